package activities

import (
	"context"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"

	"kalpanik-operations/order-processing/notify"
	"kalpanik-operations/order-processing/risk"
	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/types"
)

// RiskInput names the assigned order to score
type RiskInput struct {
	OrderID        string
	CandidateCount int
}

// RiskResult is the predictor's assessment
type RiskResult struct {
	Assessment risk.Assessment
	Events     []types.Event
}

// RiskActivities score the delay risk of assigned orders
type RiskActivities struct {
	Store     *store.Store
	Predictor risk.Predictor
}

// ScoreDelayRisk builds the feature vector for an assigned order, asks the
// predictor and records the score on the order
func (a *RiskActivities) ScoreDelayRisk(ctx context.Context, in RiskInput) (RiskResult, error) {
	logger := activity.GetLogger(ctx)

	order, err := a.Store.Order(in.OrderID)
	if err != nil {
		return RiskResult{}, err
	}
	f := risk.Features{
		Quantity:        float64(order.TotalQuantity),
		PriorityOrdinal: float64(order.Priority.Ordinal()),
		TotalHours:      order.EstimatedHours,
		TaskCount:       float64(len(order.TaskIDs)),
		CandidateCount:  float64(in.CandidateCount),
		ChannelOrdinal:  float64(order.Channel.Ordinal()),
	}
	if order.DeadlineAt != nil {
		f.HasDeadline = 1
	}
	if order.AssignedStaffID != "" {
		staff, err := a.Store.Staff(order.AssignedStaffID)
		if err != nil {
			return RiskResult{}, err
		}
		f.StaffWorkload = staff.CurrentWorkload
	}

	assessment, err := a.Predictor.Predict(ctx, f)
	if err != nil {
		logger.Warn("Risk prediction failed", "orderID", in.OrderID, "error", err)
		return RiskResult{}, err
	}
	err = a.Store.RunInTransaction(func(tx *store.Tx) error {
		_, err := tx.UpdateOrder(in.OrderID, func(o *types.Order) error {
			score := assessment.Risk
			o.DelayRisk = &score
			return nil
		})
		return err
	})
	if err != nil {
		return RiskResult{}, err
	}
	logger.Info("Delay risk scored", "orderID", in.OrderID, "risk", assessment.Risk, "delayed", assessment.Delayed)
	return RiskResult{
		Assessment: assessment,
		Events: []types.Event{{
			Type:     types.EventDelayRiskScored,
			EntityID: in.OrderID,
			Detail:   fmt.Sprintf("risk %.4f, delayed=%t", assessment.Risk, assessment.Delayed),
		}},
	}, nil
}

// NotifyResult is the notification that was sent
type NotifyResult struct {
	Notification notify.Notification
	Events       []types.Event
}

// NotificationActivities tell staff and customers about approved orders
type NotificationActivities struct {
	Store    *store.Store
	Notifier notify.Notifier
}

// NotifyStaff tells the assigned worker about their new tasks
func (a *NotificationActivities) NotifyStaff(ctx context.Context, orderID string) (NotifyResult, error) {
	order, err := a.Store.Order(orderID)
	if err != nil {
		return NotifyResult{}, err
	}
	if order.AssignedStaffID == "" {
		return NotifyResult{}, &types.PermanentError{Msg: fmt.Sprintf("order %s has no assigned staff", orderID)}
	}
	staff, err := a.Store.Staff(order.AssignedStaffID)
	if err != nil {
		return NotifyResult{}, err
	}
	tasks, err := a.Store.TasksFor(orderID)
	if err != nil {
		return NotifyResult{}, err
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("%s %s (%.2fh)", t.ID, t.Type, t.EstimatedHours))
	}
	msg := notify.New(notify.AudienceStaff, staff.ID, orderID,
		fmt.Sprintf("New tasks for order %s", orderID),
		fmt.Sprintf("Hi %s, you have been assigned: %s", staff.Name, strings.Join(lines, "; ")))
	return a.send(ctx, msg, types.EventStaffNotified, staff.ID)
}

// NotifyCustomer confirms the order to the customer
func (a *NotificationActivities) NotifyCustomer(ctx context.Context, orderID string) (NotifyResult, error) {
	order, err := a.Store.Order(orderID)
	if err != nil {
		return NotifyResult{}, err
	}
	body := fmt.Sprintf("Your order %s for %d units is confirmed, estimated %.2fh of work.",
		order.ID, order.TotalQuantity, order.EstimatedHours)
	if order.DeadlineAt != nil {
		body += fmt.Sprintf(" Requested by %s.", order.DeadlineAt.Format("Mon 2 Jan 15:04"))
	}
	msg := notify.New(notify.AudienceCustomer, order.CustomerRef, orderID,
		fmt.Sprintf("Order %s confirmed", orderID), body)
	return a.send(ctx, msg, types.EventCustomerNotified, order.CustomerRef)
}

func (a *NotificationActivities) send(ctx context.Context, msg notify.Notification, event types.EventType, recipient string) (NotifyResult, error) {
	logger := activity.GetLogger(ctx)
	if err := a.Notifier.Notify(ctx, msg); err != nil {
		logger.Warn("Notification failed", "audience", msg.Audience, "orderID", msg.OrderID, "error", err)
		return NotifyResult{}, err
	}
	logger.Info("Notification sent", "audience", msg.Audience, "orderID", msg.OrderID, "notificationID", msg.ID)
	return NotifyResult{
		Notification: msg,
		Events:       []types.Event{{Type: event, EntityID: recipient, Detail: msg.Subject}},
	}, nil
}
