package assignment

import (
	"kalpanik-operations/order-processing/types"
)

var taskTransitions = map[types.TaskStatus]map[types.TaskStatus]struct{}{
	types.TaskPending: {
		types.TaskAssigned: {},
		types.TaskFailed:   {},
	},
	types.TaskAssigned: {
		types.TaskInProgress: {},
		types.TaskPending:    {},
		types.TaskFailed:     {},
	},
	types.TaskInProgress: {
		types.TaskCompleted: {},
		types.TaskFailed:    {},
	},
	types.TaskCompleted: {},
	types.TaskFailed:    {},
}

var orderTransitions = map[types.OrderStatus]map[types.OrderStatus]struct{}{
	types.OrderReadyToFulfill: {
		types.OrderTasksPlanned: {},
		types.OrderCancelled:    {},
	},
	types.OrderTasksPlanned: {
		types.OrderAssigned:  {},
		types.OrderCancelled: {},
	},
	types.OrderAssigned: {
		types.OrderInProgress:   {},
		types.OrderTasksPlanned: {},
		types.OrderCancelled:    {},
	},
	types.OrderInProgress: {
		types.OrderCompleted: {},
		types.OrderCancelled: {},
	},
	types.OrderCompleted: {},
	types.OrderCancelled: {},
}

// ValidateTaskTransition checks a task status change against the lifecycle
func ValidateTaskTransition(task *types.Task, to types.TaskStatus) error {
	if _, ok := taskTransitions[task.Status][to]; !ok {
		return &types.TransitionError{Kind: types.KindTask, ID: task.ID, From: string(task.Status), To: string(to)}
	}
	return nil
}

// ValidateOrderTransition checks an order status change against the lifecycle
func ValidateOrderTransition(order *types.Order, to types.OrderStatus) error {
	if _, ok := orderTransitions[order.Status][to]; !ok {
		return &types.TransitionError{Kind: types.KindOrder, ID: order.ID, From: string(order.Status), To: string(to)}
	}
	return nil
}

// TaskOpen reports whether a task still needs work
func TaskOpen(status types.TaskStatus) bool {
	return status != types.TaskCompleted && status != types.TaskFailed
}

// OrderTerminal reports whether an order can no longer change
func OrderTerminal(status types.OrderStatus) bool {
	return len(orderTransitions[status]) == 0
}
