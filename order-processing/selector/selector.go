// Package selector ranks staff for an order's task chain.
package selector

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"kalpanik-operations/order-processing/planner"
	"kalpanik-operations/order-processing/types"
)

// MaxCandidates bounds the candidate list kept for audit display
const MaxCandidates = 3

// Reason explains a selection outcome
type Reason string

const (
	ReasonSelected            Reason = "SELECTED"
	ReasonNoTasks             Reason = "NO_TASKS"
	ReasonNoAvailableStaff    Reason = "NO_AVAILABLE_STAFF"
	ReasonNoStaffWithCapacity Reason = "NO_STAFF_WITH_CAPACITY"
)

// Candidate is one ranked staff member
type Candidate struct {
	StaffID         string  `json:"staffId"`
	Name            string  `json:"name"`
	CurrentWorkload float64 `json:"currentWorkload"`
	MaxCapacity     float64 `json:"maxCapacity"`
	Headroom        float64 `json:"headroom"`
	Eligible        bool    `json:"eligible"`
}

// Selection is the selector's decision. Chosen is nil when nobody qualifies;
// Candidates still explains why.
type Selection struct {
	Chosen     *types.StaffMember `json:"chosen,omitempty"`
	TotalHours float64            `json:"totalHours"`
	Candidates []Candidate        `json:"candidates"`
	Reason     Reason             `json:"reason"`
}

// Detail renders the selection for the run trace
func (s Selection) Detail() string {
	if s.Chosen == nil {
		return fmt.Sprintf("%s for %.2fh of work (%d candidates considered)", s.Reason, s.TotalHours, len(s.Candidates))
	}
	return fmt.Sprintf("selected %s (%s) at %.2fh/%.2fh for %.2fh of work",
		s.Chosen.ID, s.Chosen.Name, s.Chosen.CurrentWorkload, s.Chosen.MaxCapacity, s.TotalHours)
}

// SelectBest picks the online staff member with the lowest current workload
// who can absorb every task. Ties keep the roster order. Staff listed in
// exclude are never chosen.
func SelectBest(tasks []types.Task, staff []types.StaffMember, exclude ...string) Selection {
	total := planner.TotalHours(tasks)
	sel := Selection{TotalHours: total, Candidates: []Candidate{}}
	if len(tasks) == 0 {
		sel.Reason = ReasonNoTasks
		return sel
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	online := make([]types.StaffMember, 0, len(staff))
	for _, m := range staff {
		if _, excluded := skip[m.ID]; excluded {
			continue
		}
		if m.Status == types.StaffOnline {
			online = append(online, m)
		}
	}
	if len(online) == 0 {
		sel.Reason = ReasonNoAvailableStaff
		return sel
	}

	sort.SliceStable(online, func(i, j int) bool {
		return online[i].CurrentWorkload < online[j].CurrentWorkload
	})

	need := decimal.NewFromFloat(total)
	for i := range online {
		m := online[i]
		headroom := decimal.NewFromFloat(m.MaxCapacity).Sub(decimal.NewFromFloat(m.CurrentWorkload))
		eligible := need.LessThanOrEqual(headroom)
		if len(sel.Candidates) < MaxCandidates {
			sel.Candidates = append(sel.Candidates, Candidate{
				StaffID:         m.ID,
				Name:            m.Name,
				CurrentWorkload: m.CurrentWorkload,
				MaxCapacity:     m.MaxCapacity,
				Headroom:        headroom.Round(2).InexactFloat64(),
				Eligible:        eligible,
			})
		}
		if eligible && sel.Chosen == nil {
			chosen := m
			sel.Chosen = &chosen
		}
	}
	if sel.Chosen == nil {
		sel.Reason = ReasonNoStaffWithCapacity
		return sel
	}
	sel.Reason = ReasonSelected
	return sel
}
