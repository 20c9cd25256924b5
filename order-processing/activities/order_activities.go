package activities

import (
	"context"
	"fmt"
	"sort"

	"go.temporal.io/sdk/activity"

	"kalpanik-operations/order-processing/assignment"
	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/types"
)

// OrderView is an order together with its tasks
type OrderView struct {
	Order types.Order
	Tasks []types.Task
}

// TaskUpdateResult is the outcome of a task lifecycle activity
type TaskUpdateResult struct {
	Update assignment.TaskUpdate
	Events []types.Event
}

// CancelResult is the outcome of cancelling an order
type CancelResult struct {
	Cancellation assignment.Cancellation
	Events       []types.Event
}

// OrderActivities contains order-related activities
type OrderActivities struct {
	Store       *store.Store
	Coordinator *assignment.Coordinator
}

// CreateOrder converts a VALIDATED intent whose stock is reserved into a
// READY_TO_FULFILL order. A CONVERTED intent returns the order it became.
func (a *OrderActivities) CreateOrder(ctx context.Context, intentID string) (types.Order, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating order", "intentID", intentID)

	var order *types.Order
	err := a.Store.RunInTransaction(func(tx *store.Tx) error {
		intent, err := tx.Intent(intentID)
		if err != nil {
			return err
		}
		if intent.Status == types.IntentConverted && intent.OrderID != "" {
			order, err = tx.Order(intent.OrderID)
			return err
		}
		if intent.Status != types.IntentValidated {
			return &types.PermanentError{Msg: fmt.Sprintf("intent %s is %s, expected %s", intentID, intent.Status, types.IntentValidated)}
		}
		if !intent.StockReserved {
			return &types.PermanentError{Msg: fmt.Sprintf("intent %s has no stock reserved", intentID)}
		}
		order = &types.Order{
			ID:          tx.NextID(types.KindOrder),
			IntentID:    intent.ID,
			CustomerRef: intent.CustomerRef,
			Channel:     intent.Channel,
			Items: []types.LineItem{{
				ProductID: intent.ProductRef,
				Quantity:  intent.Quantity,
				Unit:      intent.Unit,
			}},
			TotalQuantity:     intent.Quantity,
			Priority:          intent.Priority,
			Deadline:          intent.Deadline,
			Status:            types.OrderReadyToFulfill,
			InventoryReserved: true,
			CreatedAt:         tx.Now(),
		}
		if err := tx.Put(types.KindOrder, order); err != nil {
			return err
		}
		_, err = tx.UpdateIntent(intentID, func(i *types.OrderIntent) error {
			i.Status = types.IntentConverted
			i.OrderID = order.ID
			return nil
		})
		return err
	})
	if err != nil {
		logger.Error("Order creation failed", "intentID", intentID, "error", err)
		return types.Order{}, err
	}
	logger.Info("Order created", "orderID", order.ID)
	return *order, nil
}

// LoadOrder returns an order and its tasks
func (a *OrderActivities) LoadOrder(ctx context.Context, orderID string) (OrderView, error) {
	order, err := a.Store.Order(orderID)
	if err != nil {
		return OrderView{}, err
	}
	tasks, err := a.Store.TasksFor(orderID)
	if err != nil {
		return OrderView{}, err
	}
	return OrderView{Order: *order, Tasks: values(tasks)}, nil
}

// CancelOrder releases an order's reservation and fails its open tasks
func (a *OrderActivities) CancelOrder(ctx context.Context, orderID, reason string) (CancelResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Cancelling order", "orderID", orderID, "reason", reason)

	c, err := a.Coordinator.CancelOrder(orderID, reason)
	if err != nil {
		logger.Error("Cancellation failed", "orderID", orderID, "error", err)
		return CancelResult{}, err
	}
	out := CancelResult{Cancellation: c, Events: cancellationEvents(c, reason)}
	logger.Info("Order cancelled", "orderID", orderID, "failedTasks", len(c.FailedTaskIDs))
	return out, nil
}

// StartTask moves an assigned task to IN_PROGRESS once its dependencies completed
func (a *OrderActivities) StartTask(ctx context.Context, taskID string) (TaskUpdateResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Starting task", "taskID", taskID)

	up, err := a.Coordinator.StartTask(taskID)
	if err != nil {
		return TaskUpdateResult{}, err
	}
	out := TaskUpdateResult{Update: up, Events: []types.Event{{Type: types.EventTaskStarted, EntityID: taskID, Detail: string(up.Task.Type)}}}
	if up.OrderStarted {
		out.Events = append(out.Events, types.Event{Type: types.EventOrderInProgress, EntityID: up.Order.ID})
	}
	return out, nil
}

// CompleteTask finishes a task; the last one completes the order
func (a *OrderActivities) CompleteTask(ctx context.Context, taskID string) (TaskUpdateResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Completing task", "taskID", taskID)

	up, err := a.Coordinator.CompleteTask(taskID)
	if err != nil {
		return TaskUpdateResult{}, err
	}
	out := TaskUpdateResult{Update: up, Events: []types.Event{{
		Type:     types.EventTaskCompleted,
		EntityID: taskID,
		Detail:   fmt.Sprintf("%.2fh returned to %s", up.FreedHours, up.Task.AssignedStaffID),
	}}}
	if up.OrderCompleted {
		out.Events = append(out.Events, types.Event{Type: types.EventOrderCompleted, EntityID: up.Order.ID})
		logger.Info("Order completed", "orderID", up.Order.ID)
	}
	return out, nil
}

// FailTask marks a task FAILED, cancelling its order
func (a *OrderActivities) FailTask(ctx context.Context, taskID, reason string) (TaskUpdateResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Warn("Failing task", "taskID", taskID, "reason", reason)

	up, err := a.Coordinator.FailTask(taskID, reason)
	if err != nil {
		return TaskUpdateResult{}, err
	}
	out := TaskUpdateResult{Update: up, Events: []types.Event{{Type: types.EventTaskFailed, EntityID: taskID, Detail: reason}}}
	if up.Cancellation != nil {
		out.Events = append(out.Events, cancellationEvents(*up.Cancellation, "task "+taskID+" failed")...)
		logger.Warn("Order cancelled after task failure", "orderID", up.Order.ID, "failedTasks", len(up.Cancellation.FailedTaskIDs))
	}
	return out, nil
}

func cancellationEvents(c assignment.Cancellation, reason string) []types.Event {
	var events []types.Event
	for _, item := range c.Released {
		events = append(events, types.Event{
			Type:     types.EventStockReleased,
			EntityID: item.ProductID,
			Detail:   fmt.Sprintf("released %d", item.Quantity),
		})
	}
	staffIDs := make([]string, 0, len(c.FreedHours))
	for id := range c.FreedHours {
		staffIDs = append(staffIDs, id)
	}
	sort.Strings(staffIDs)
	for _, staffID := range staffIDs {
		events = append(events, types.Event{
			Type:     types.EventTasksUnassigned,
			EntityID: staffID,
			Detail:   fmt.Sprintf("%.2fh freed", c.FreedHours[staffID]),
		})
	}
	return append(events, types.Event{Type: types.EventOrderCancelled, EntityID: c.Order.ID, Detail: reason})
}
