// Package assignment binds an order's tasks to a worker and drives tasks and
// orders through their lifecycle. Every operation commits in one store
// transaction; a returned error means nothing changed.
package assignment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kalpanik-operations/order-processing/planner"
	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/types"
)

// Assignment describes the tasks bound to (or freed from) a worker
type Assignment struct {
	OrderID     string   `json:"orderId"`
	StaffID     string   `json:"staffId"`
	TaskIDs     []string `json:"taskIds"`
	Hours       float64  `json:"hours"`
	Workload    float64  `json:"workload"`
	MaxCapacity float64  `json:"maxCapacity"`
}

// TaskUpdate is the outcome of a task lifecycle operation
type TaskUpdate struct {
	Task           types.Task    `json:"task"`
	Order          types.Order   `json:"order"`
	FreedHours     float64       `json:"freedHours,omitempty"`
	OrderStarted   bool          `json:"orderStarted,omitempty"`
	OrderCompleted bool          `json:"orderCompleted,omitempty"`
	// Cancellation is set when failing the task cancelled its order
	Cancellation   *Cancellation `json:"cancellation,omitempty"`
}

// Cancellation is the outcome of cancelling an order
type Cancellation struct {
	Order         types.Order        `json:"order"`
	FailedTaskIDs []string           `json:"failedTaskIds,omitempty"`
	FreedHours    map[string]float64 `json:"freedHours,omitempty"`
	Released      []types.LineItem   `json:"released,omitempty"`
}

// Coordinator owns assignment and lifecycle changes against a store
type Coordinator struct {
	store *store.Store
}

// New creates a coordinator for s
func New(s *store.Store) *Coordinator {
	return &Coordinator{store: s}
}

// AttachPlan decomposes a READY_TO_FULFILL order into its task chain, stores
// the tasks and moves the order to TASKS_PLANNED.
func (c *Coordinator) AttachPlan(orderID string) ([]types.Task, error) {
	var tasks []types.Task
	err := c.store.RunInTransaction(func(tx *store.Tx) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		if err := ValidateOrderTransition(order, types.OrderTasksPlanned); err != nil {
			return err
		}
		tasks = planner.Plan(order, func() string { return tx.NextID(types.KindTask) })
		ids := make([]string, 0, len(tasks))
		for i := range tasks {
			if err := tx.Put(types.KindTask, &tasks[i]); err != nil {
				return err
			}
			ids = append(ids, tasks[i].ID)
		}
		_, err = tx.UpdateOrder(orderID, func(o *types.Order) error {
			o.Status = types.OrderTasksPlanned
			o.TaskIDs = ids
			o.EstimatedHours = planner.TotalHours(tasks)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Assign binds every task of an order to staffID. It fails with
// CapacityExceededError when the worker cannot absorb the combined hours.
func (c *Coordinator) Assign(orderID, staffID string) (Assignment, error) {
	var out Assignment
	err := c.store.RunInTransaction(func(tx *store.Tx) error {
		staff, err := tx.Staff(staffID)
		if err != nil {
			return err
		}
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		if err := ValidateOrderTransition(order, types.OrderAssigned); err != nil {
			return err
		}
		tasks, err := tx.TasksFor(orderID)
		if err != nil {
			return err
		}
		hours := sumHours(tasks)
		workload := decimal.NewFromFloat(staff.CurrentWorkload).Add(hours)
		if workload.GreaterThan(decimal.NewFromFloat(staff.MaxCapacity)) {
			return &types.CapacityExceededError{
				StaffID:  staffID,
				Current:  staff.CurrentWorkload,
				Required: hours.InexactFloat64(),
				Max:      staff.MaxCapacity,
			}
		}

		ids := make([]string, 0, len(tasks))
		for _, task := range tasks {
			if err := ValidateTaskTransition(task, types.TaskAssigned); err != nil {
				return err
			}
			if _, err := tx.UpdateTask(task.ID, func(t *types.Task) error {
				t.Status = types.TaskAssigned
				t.AssignedStaffID = staffID
				return nil
			}); err != nil {
				return err
			}
			ids = append(ids, task.ID)
		}
		updated, err := tx.UpdateStaff(staffID, func(s *types.StaffMember) error {
			s.CurrentWorkload = workload.Round(2).InexactFloat64()
			s.AssignedTaskIDs = append(s.AssignedTaskIDs, ids...)
			return nil
		})
		if err != nil {
			return err
		}
		if _, err := tx.UpdateOrder(orderID, func(o *types.Order) error {
			o.Status = types.OrderAssigned
			o.AssignedStaffID = staffID
			return nil
		}); err != nil {
			return err
		}
		tx.Audit("assignment.assign", map[string]any{"orderId": orderID, "staffId": staffID, "hours": hours.InexactFloat64()})

		out = Assignment{
			OrderID:     orderID,
			StaffID:     staffID,
			TaskIDs:     ids,
			Hours:       hours.Round(2).InexactFloat64(),
			Workload:    updated.CurrentWorkload,
			MaxCapacity: updated.MaxCapacity,
		}
		return nil
	})
	return out, err
}

// Unassign returns an ASSIGNED order's tasks to PENDING and gives the hours
// back to the worker. The order goes back to TASKS_PLANNED.
func (c *Coordinator) Unassign(orderID string) (Assignment, error) {
	var out Assignment
	err := c.store.RunInTransaction(func(tx *store.Tx) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		if err := ValidateOrderTransition(order, types.OrderTasksPlanned); err != nil {
			return err
		}
		tasks, err := tx.TasksFor(orderID)
		if err != nil {
			return err
		}
		var held []*types.Task
		for _, task := range tasks {
			if task.Status != types.TaskAssigned {
				continue
			}
			if _, err := tx.UpdateTask(task.ID, func(t *types.Task) error {
				t.Status = types.TaskPending
				t.AssignedStaffID = ""
				return nil
			}); err != nil {
				return err
			}
			held = append(held, task)
		}
		staffID := order.AssignedStaffID
		freed, staff, err := freeHours(tx, staffID, held...)
		if err != nil {
			return err
		}
		if _, err := tx.UpdateOrder(orderID, func(o *types.Order) error {
			o.Status = types.OrderTasksPlanned
			o.AssignedStaffID = ""
			return nil
		}); err != nil {
			return err
		}
		tx.Audit("assignment.unassign", map[string]any{"orderId": orderID, "staffId": staffID, "hours": freed})

		out = Assignment{OrderID: orderID, StaffID: staffID, TaskIDs: taskIDs(held), Hours: freed}
		if staff != nil {
			out.Workload = staff.CurrentWorkload
			out.MaxCapacity = staff.MaxCapacity
		}
		return nil
	})
	return out, err
}

// StartTask moves an ASSIGNED task to IN_PROGRESS. A task cannot start before
// every task it depends on has completed. The first task to start moves the
// order to IN_PROGRESS.
func (c *Coordinator) StartTask(taskID string) (TaskUpdate, error) {
	var out TaskUpdate
	err := c.store.RunInTransaction(func(tx *store.Tx) error {
		task, err := tx.Task(taskID)
		if err != nil {
			return err
		}
		if err := ValidateTaskTransition(task, types.TaskInProgress); err != nil {
			return err
		}
		var waiting []string
		for _, dep := range task.DependsOn {
			d, err := tx.Task(dep)
			if err != nil {
				return err
			}
			if d.Status != types.TaskCompleted {
				waiting = append(waiting, dep)
			}
		}
		if len(waiting) > 0 {
			return &types.PermanentError{Msg: fmt.Sprintf("task %s waits on %s", taskID, strings.Join(waiting, ", "))}
		}

		updated, err := tx.UpdateTask(taskID, func(t *types.Task) error {
			t.Status = types.TaskInProgress
			return nil
		})
		if err != nil {
			return err
		}
		order, err := tx.Order(task.OrderID)
		if err != nil {
			return err
		}
		if order.Status == types.OrderAssigned {
			if order, err = tx.UpdateOrder(order.ID, func(o *types.Order) error {
				o.Status = types.OrderInProgress
				return nil
			}); err != nil {
				return err
			}
			out.OrderStarted = true
		}
		out.Task = *updated
		out.Order = *order
		return nil
	})
	return out, err
}

// CompleteTask finishes an IN_PROGRESS task and returns its hours to the
// worker. Completing the last open task completes the order and ships its
// reserved stock.
func (c *Coordinator) CompleteTask(taskID string) (TaskUpdate, error) {
	var out TaskUpdate
	err := c.store.RunInTransaction(func(tx *store.Tx) error {
		task, err := tx.Task(taskID)
		if err != nil {
			return err
		}
		if err := ValidateTaskTransition(task, types.TaskCompleted); err != nil {
			return err
		}
		updated, err := tx.UpdateTask(taskID, func(t *types.Task) error {
			t.Status = types.TaskCompleted
			return nil
		})
		if err != nil {
			return err
		}
		freed, _, err := freeHours(tx, task.AssignedStaffID, task)
		if err != nil {
			return err
		}
		out.FreedHours = freed

		tasks, err := tx.TasksFor(task.OrderID)
		if err != nil {
			return err
		}
		done := true
		for _, t := range tasks {
			if t.Status != types.TaskCompleted {
				done = false
				break
			}
		}
		order, err := tx.Order(task.OrderID)
		if err != nil {
			return err
		}
		if done {
			if err := ValidateOrderTransition(order, types.OrderCompleted); err != nil {
				return err
			}
			if order.InventoryReserved {
				for _, item := range order.Items {
					if err := tx.Consume(item.ProductID, item.Quantity); err != nil {
						return err
					}
				}
			}
			if order, err = tx.UpdateOrder(order.ID, func(o *types.Order) error {
				o.Status = types.OrderCompleted
				o.InventoryReserved = false
				return nil
			}); err != nil {
				return err
			}
			out.OrderCompleted = true
		}
		out.Task = *updated
		out.Order = *order
		return nil
	})
	return out, err
}

// FailTask marks an open task FAILED. The chain behind it can never run, so
// the order is cancelled in the same commit: its other open tasks fail, their
// hours go back to the worker and the reservation is released.
func (c *Coordinator) FailTask(taskID, reason string) (TaskUpdate, error) {
	var out TaskUpdate
	err := c.store.RunInTransaction(func(tx *store.Tx) error {
		task, err := tx.Task(taskID)
		if err != nil {
			return err
		}
		if err := ValidateTaskTransition(task, types.TaskFailed); err != nil {
			return err
		}
		order, err := tx.Order(task.OrderID)
		if err != nil {
			return err
		}
		tx.Audit("task.fail", map[string]any{"id": taskID, "reason": reason})

		if OrderTerminal(order.Status) {
			updated, err := tx.UpdateTask(taskID, func(t *types.Task) error {
				t.Status = types.TaskFailed
				return nil
			})
			if err != nil {
				return err
			}
			out.Task = *updated
			out.Order = *order
			return nil
		}

		cancelled, err := cancel(tx, order, fmt.Sprintf("task %s failed: %s", taskID, reason))
		if err != nil {
			return err
		}
		updated, err := tx.Task(taskID)
		if err != nil {
			return err
		}
		freed := decimal.Zero
		for _, hours := range cancelled.FreedHours {
			freed = freed.Add(decimal.NewFromFloat(hours))
		}
		out.Task = *updated
		out.Order = cancelled.Order
		out.FreedHours = freed.Round(2).InexactFloat64()
		out.Cancellation = &cancelled
		return nil
	})
	return out, err
}

// CancelOrder releases the order's reservation, fails its open tasks, frees
// their hours and marks the order CANCELLED.
func (c *Coordinator) CancelOrder(orderID, reason string) (Cancellation, error) {
	var out Cancellation
	err := c.store.RunInTransaction(func(tx *store.Tx) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		out, err = cancel(tx, order, reason)
		return err
	})
	return out, err
}

func cancel(tx *store.Tx, order *types.Order, reason string) (Cancellation, error) {
	var out Cancellation
	if err := ValidateOrderTransition(order, types.OrderCancelled); err != nil {
		return out, err
	}
	if order.InventoryReserved {
		for _, item := range order.Items {
			if _, err := tx.Release(item.ProductID, item.Quantity); err != nil {
				return out, err
			}
			out.Released = append(out.Released, item)
		}
	}

	tasks, err := tx.TasksFor(order.ID)
	if err != nil {
		return out, err
	}
	held := map[string][]*types.Task{}
	var staffOrder []string
	for _, task := range tasks {
		if !TaskOpen(task.Status) {
			continue
		}
		if _, err := tx.UpdateTask(task.ID, func(t *types.Task) error {
			t.Status = types.TaskFailed
			return nil
		}); err != nil {
			return out, err
		}
		out.FailedTaskIDs = append(out.FailedTaskIDs, task.ID)
		if task.AssignedStaffID != "" {
			if _, seen := held[task.AssignedStaffID]; !seen {
				staffOrder = append(staffOrder, task.AssignedStaffID)
			}
			held[task.AssignedStaffID] = append(held[task.AssignedStaffID], task)
		}
	}
	for _, staffID := range staffOrder {
		freed, _, err := freeHours(tx, staffID, held[staffID]...)
		if err != nil {
			return out, err
		}
		if out.FreedHours == nil {
			out.FreedHours = map[string]float64{}
		}
		out.FreedHours[staffID] = freed
	}

	updated, err := tx.UpdateOrder(order.ID, func(o *types.Order) error {
		o.Status = types.OrderCancelled
		o.InventoryReserved = false
		return nil
	})
	if err != nil {
		return out, err
	}
	tx.Audit("order.cancel", map[string]any{"id": order.ID, "reason": reason})
	out.Order = *updated
	return out, nil
}

// freeHours takes tasks off a worker. Workload never drops below zero.
func freeHours(tx *store.Tx, staffID string, tasks ...*types.Task) (float64, *types.StaffMember, error) {
	if staffID == "" || len(tasks) == 0 {
		return 0, nil, nil
	}
	hours := sumHours(tasks)
	drop := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		drop[t.ID] = struct{}{}
	}
	staff, err := tx.UpdateStaff(staffID, func(s *types.StaffMember) error {
		workload := decimal.NewFromFloat(s.CurrentWorkload).Sub(hours)
		if workload.IsNegative() {
			workload = decimal.Zero
		}
		s.CurrentWorkload = workload.Round(2).InexactFloat64()
		kept := s.AssignedTaskIDs[:0]
		for _, id := range s.AssignedTaskIDs {
			if _, ok := drop[id]; !ok {
				kept = append(kept, id)
			}
		}
		s.AssignedTaskIDs = kept
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return hours.Round(2).InexactFloat64(), staff, nil
}

func sumHours(tasks []*types.Task) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tasks {
		total = total.Add(decimal.NewFromFloat(t.EstimatedHours))
	}
	return total
}

func taskIDs(tasks []*types.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
