package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"kalpanik-operations/order-processing/activities"
	"kalpanik-operations/order-processing/types"
)

// TaskAction is a step in a task's lifecycle
type TaskAction string

const (
	TaskActionStart    TaskAction = "start"
	TaskActionComplete TaskAction = "complete"
	TaskActionFail     TaskAction = "fail"
)

// TaskProgressRequest advances one task
type TaskProgressRequest struct {
	TaskID string
	Action TaskAction
	Reason string
}

// CancelOrderRequest cancels an order and releases what it holds
type CancelOrderRequest struct {
	OrderID string
	Reason  string
}

// RestockRequest adds stock to a product
type RestockRequest struct {
	ProductRef string
	Quantity   int
}

// SnapshotWorkflow returns the derived operational snapshot
func SnapshotWorkflow(ctx workflow.Context) (types.SystemSnapshot, error) {
	ctx = withPipelineOptions(ctx)

	var snap types.SystemSnapshot
	if err := workflow.ExecuteActivity(ctx, "FetchSystemSnapshot").Get(ctx, &snap); err != nil {
		return types.SystemSnapshot{}, err
	}
	return snap, nil
}

// CancelOrderWorkflow cancels an order, failing its open tasks, freeing staff
// workload and releasing its reservation
func CancelOrderWorkflow(ctx workflow.Context, req CancelOrderRequest) (activities.CancelResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = withPipelineOptions(ctx)

	reason := req.Reason
	if reason == "" {
		reason = "cancelled on request"
	}
	var out activities.CancelResult
	if err := workflow.ExecuteActivity(ctx, "CancelOrder", req.OrderID, reason).Get(ctx, &out); err != nil {
		logger.Error("Cancel failed", "orderID", req.OrderID, "error", err)
		return activities.CancelResult{}, err
	}
	logger.Info("Order cancelled", "orderID", req.OrderID)
	return out, nil
}

// RestockWorkflow adds units to a product's stock. The increment is not
// idempotent, so the activity gets a single attempt.
func RestockWorkflow(ctx workflow.Context, req RestockRequest) (activities.RestockResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = withCollaboratorOptions(ctx, 30*time.Second)

	var out activities.RestockResult
	if err := workflow.ExecuteActivity(ctx, "RestockInventory", activities.RestockInput{
		ProductRef: req.ProductRef,
		Quantity:   req.Quantity,
	}).Get(ctx, &out); err != nil {
		logger.Error("Restock failed", "productRef", req.ProductRef, "error", err)
		return activities.RestockResult{}, err
	}
	logger.Info("Stock restocked", "productID", out.ProductID, "available", out.Available)
	return out, nil
}

// TaskProgressWorkflow starts, completes or fails a task. Dependencies must
// be completed before a task can start; failing a task cancels its order.
func TaskProgressWorkflow(ctx workflow.Context, req TaskProgressRequest) (activities.TaskUpdateResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = withPipelineOptions(ctx)

	var f workflow.Future
	switch req.Action {
	case TaskActionStart:
		f = workflow.ExecuteActivity(ctx, "StartTask", req.TaskID)
	case TaskActionComplete:
		f = workflow.ExecuteActivity(ctx, "CompleteTask", req.TaskID)
	case TaskActionFail:
		reason := req.Reason
		if reason == "" {
			reason = "failed on request"
		}
		f = workflow.ExecuteActivity(ctx, "FailTask", req.TaskID, reason)
	default:
		return activities.TaskUpdateResult{}, &types.ValidationError{
			Msg:    fmt.Sprintf("unknown task action %q", req.Action),
			Fields: map[string]string{"action": "must be start, complete or fail"},
		}
	}

	var out activities.TaskUpdateResult
	if err := f.Get(ctx, &out); err != nil {
		logger.Warn("Task update failed", "taskID", req.TaskID, "action", req.Action, "error", err)
		return activities.TaskUpdateResult{}, err
	}
	logger.Info("Task updated", "taskID", req.TaskID, "status", out.Update.Task.Status)
	return out, nil
}
