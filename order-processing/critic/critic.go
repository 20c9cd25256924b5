// Package critic validates a fully assigned plan before it is approved.
package critic

import (
	"fmt"
	"strings"

	"kalpanik-operations/order-processing/planner"
	"kalpanik-operations/order-processing/types"
)

// Epsilon absorbs float noise in the capacity comparison
const Epsilon = 1e-6

// Verdict is the critic's decision on a plan
type Verdict struct {
	Approved bool     `json:"approved"`
	Issues   []string `json:"issues,omitempty"`
	Reason   string   `json:"reason"`
}

// Validate checks an order's plan. staff is the roster; tasks are the order's
// tasks in sequence. An order with no assigned worker passes the staff checks.
func Validate(order *types.Order, staff []types.StaffMember, tasks []types.Task) Verdict {
	var issues []string
	if !order.InventoryReserved {
		issues = append(issues, fmt.Sprintf("order %s has no inventory reserved", order.ID))
	}

	if order.AssignedStaffID != "" {
		var worker *types.StaffMember
		for i := range staff {
			if staff[i].ID == order.AssignedStaffID {
				worker = &staff[i]
				break
			}
		}
		switch {
		case worker == nil:
			issues = append(issues, fmt.Sprintf("assigned staff %s does not exist", order.AssignedStaffID))
		case worker.CurrentWorkload > worker.MaxCapacity+Epsilon:
			issues = append(issues, fmt.Sprintf("staff %s is over capacity: %.2fh of %.2fh",
				worker.ID, worker.CurrentWorkload, worker.MaxCapacity))
		}
	}

	if len(tasks) != len(planner.Chain) {
		issues = append(issues, fmt.Sprintf("expected %d tasks, found %d", len(planner.Chain), len(tasks)))
	} else {
		for i, task := range tasks {
			if task.Type != planner.Chain[i].Type {
				issues = append(issues, fmt.Sprintf("task %s is %s, expected %s", task.ID, task.Type, planner.Chain[i].Type))
			}
			if i == 0 {
				if len(task.DependsOn) != 0 {
					issues = append(issues, fmt.Sprintf("task %s should not depend on anything", task.ID))
				}
				continue
			}
			if len(task.DependsOn) != 1 || task.DependsOn[0] != tasks[i-1].ID {
				issues = append(issues, fmt.Sprintf("task %s should depend on %s", task.ID, tasks[i-1].ID))
			}
		}
	}

	if len(issues) > 0 {
		return Verdict{Approved: false, Issues: issues, Reason: strings.Join(issues, "; ")}
	}
	return Verdict{Approved: true, Reason: "plan is consistent"}
}
