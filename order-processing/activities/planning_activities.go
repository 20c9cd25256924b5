package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"kalpanik-operations/order-processing/assignment"
	"kalpanik-operations/order-processing/critic"
	"kalpanik-operations/order-processing/planner"
	"kalpanik-operations/order-processing/selector"
	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/types"
)

// PlanResult holds the planned task chain
type PlanResult struct {
	Tasks      []types.Task
	TotalHours float64
	Events     []types.Event
}

// DeadlineInput asks for a feasibility check against the caller's clock
type DeadlineInput struct {
	OrderID string
	Now     time.Time
}

// DeadlineResult is the feasibility of an order's deadline
type DeadlineResult struct {
	Feasibility planner.Feasibility
	Warnings    []string
	Events      []types.Event
}

// SelectInput asks for the best worker, skipping Exclude
type SelectInput struct {
	OrderID string
	Exclude []string
}

// SelectResult is the selector's decision
type SelectResult struct {
	Selection selector.Selection
	Events    []types.Event
}

// AssignResult reports an assignment attempt. Assigned is false when the
// worker lacked capacity; nothing changed in that case.
type AssignResult struct {
	Assigned   bool
	Assignment assignment.Assignment
	Reason     string
	Events     []types.Event
}

// ReviewResult is the critic's verdict on an order's plan
type ReviewResult struct {
	Verdict critic.Verdict
	Events  []types.Event
}

// PlanningActivities decompose, staff and review orders
type PlanningActivities struct {
	Store       *store.Store
	Coordinator *assignment.Coordinator
}

// PlanTasks attaches the PREPARE, QUALITY_CHECK and PACK chain to an order
func (a *PlanningActivities) PlanTasks(ctx context.Context, orderID string) (PlanResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Planning tasks", "orderID", orderID)

	tasks, err := a.Coordinator.AttachPlan(orderID)
	if err != nil {
		return PlanResult{}, err
	}
	total := planner.TotalHours(tasks)
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, fmt.Sprintf("%s %.2fh", t.Type, t.EstimatedHours))
	}
	logger.Info("Tasks planned", "orderID", orderID, "count", len(tasks), "totalHours", total)
	return PlanResult{
		Tasks:      tasks,
		TotalHours: total,
		Events: []types.Event{{
			Type:     types.EventTasksPlanned,
			EntityID: orderID,
			Detail:   strings.Join(parts, ", "),
		}},
	}, nil
}

// CheckDeadline parses the order's deadline against in.Now, stores the
// resolved time on the order and reports feasibility. An unparseable
// deadline is a warning, not an error.
func (a *PlanningActivities) CheckDeadline(ctx context.Context, in DeadlineInput) (DeadlineResult, error) {
	logger := activity.GetLogger(ctx)

	var out DeadlineResult
	err := a.Store.RunInTransaction(func(tx *store.Tx) error {
		order, err := tx.Order(in.OrderID)
		if err != nil {
			return err
		}
		deadline := planner.ParseDeadline(order.Deadline, in.Now)
		out.Feasibility = planner.CheckFeasibility(deadline, order.EstimatedHours, in.Now)

		switch deadline.State {
		case planner.DeadlineUnresolved:
			out.Warnings = append(out.Warnings, fmt.Sprintf("deadline %q could not be understood and was ignored", deadline.Raw))
			return nil
		case planner.DeadlineNotSet:
			return nil
		}
		at := deadline.At
		if _, err := tx.UpdateOrder(in.OrderID, func(o *types.Order) error {
			o.DeadlineAt = &at
			return nil
		}); err != nil {
			return err
		}
		if !*out.Feasibility.Feasible {
			detail := fmt.Sprintf("estimated completion %s is %.2fh past deadline %s",
				out.Feasibility.EstimatedCompletion.Format(time.RFC3339), -out.Feasibility.SlackHours, at.Format(time.RFC3339))
			out.Warnings = append(out.Warnings, detail)
			out.Events = append(out.Events, types.Event{Type: types.EventDeadlineAtRisk, EntityID: in.OrderID, Detail: detail})
		}
		return nil
	})
	if err != nil {
		return DeadlineResult{}, err
	}
	logger.Info("Deadline checked", "orderID", in.OrderID, "state", out.Feasibility.Deadline.State)
	return out, nil
}

// SelectWorker ranks the roster for the order's tasks
func (a *PlanningActivities) SelectWorker(ctx context.Context, in SelectInput) (SelectResult, error) {
	logger := activity.GetLogger(ctx)

	tasks, err := a.Store.TasksFor(in.OrderID)
	if err != nil {
		return SelectResult{}, err
	}
	sel := selector.SelectBest(values(tasks), roster(a.Store), in.Exclude...)
	out := SelectResult{Selection: sel}
	if sel.Chosen != nil {
		out.Events = append(out.Events, types.Event{Type: types.EventStaffSelected, EntityID: sel.Chosen.ID, Detail: sel.Detail()})
		logger.Info("Worker selected", "orderID", in.OrderID, "staffID", sel.Chosen.ID)
	} else {
		logger.Warn("No worker selected", "orderID", in.OrderID, "reason", sel.Reason)
	}
	return out, nil
}

// AssignTasks binds the order's tasks to staffID. Lack of capacity is
// reported in the result.
func (a *PlanningActivities) AssignTasks(ctx context.Context, orderID, staffID string) (AssignResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Assigning tasks", "orderID", orderID, "staffID", staffID)

	asg, err := a.Coordinator.Assign(orderID, staffID)
	var capErr *types.CapacityExceededError
	switch {
	case errors.As(err, &capErr):
		logger.Warn("Capacity exceeded", "orderID", orderID, "staffID", staffID, "error", capErr)
		return AssignResult{Reason: capErr.Error()}, nil
	case err != nil:
		return AssignResult{}, err
	}
	return AssignResult{
		Assigned:   true,
		Assignment: asg,
		Events: []types.Event{{
			Type:     types.EventTasksAssigned,
			EntityID: staffID,
			Detail:   fmt.Sprintf("%d tasks, workload now %.2fh of %.2fh", len(asg.TaskIDs), asg.Workload, asg.MaxCapacity),
		}},
	}, nil
}

// ReleaseAssignment undoes an assignment so the order can be re-staffed
func (a *PlanningActivities) ReleaseAssignment(ctx context.Context, orderID string) (AssignResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Releasing assignment", "orderID", orderID)

	asg, err := a.Coordinator.Unassign(orderID)
	if err != nil {
		return AssignResult{}, err
	}
	return AssignResult{
		Assignment: asg,
		Events: []types.Event{{
			Type:     types.EventTasksUnassigned,
			EntityID: asg.StaffID,
			Detail:   fmt.Sprintf("%.2fh freed from %s", asg.Hours, orderID),
		}},
	}, nil
}

// ValidatePlan runs the critic over the stored order, roster and tasks
func (a *PlanningActivities) ValidatePlan(ctx context.Context, orderID string) (ReviewResult, error) {
	logger := activity.GetLogger(ctx)

	order, err := a.Store.Order(orderID)
	if err != nil {
		return ReviewResult{}, err
	}
	tasks, err := a.Store.TasksFor(orderID)
	if err != nil {
		return ReviewResult{}, err
	}

	v := critic.Validate(order, roster(a.Store), values(tasks))
	out := ReviewResult{Verdict: v}
	if v.Approved {
		out.Events = append(out.Events, types.Event{Type: types.EventPlanApproved, EntityID: orderID})
		logger.Info("Plan approved", "orderID", orderID)
	} else {
		out.Events = append(out.Events, types.Event{Type: types.EventPlanRejected, EntityID: orderID, Detail: v.Reason})
		logger.Warn("Plan rejected", "orderID", orderID, "issues", v.Issues)
	}
	return out, nil
}

func roster(s *store.Store) []types.StaffMember {
	return values(s.StaffMembers())
}

func values[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, *v)
	}
	return out
}
