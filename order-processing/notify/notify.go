// Package notify delivers staff and customer notifications.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Audience of a notification
type Audience string

const (
	AudienceStaff    Audience = "staff"
	AudienceCustomer Audience = "customer"
)

// Notification is one message to a staff member or a customer
type Notification struct {
	ID        string   `json:"id"`
	Audience  Audience `json:"audience"`
	Recipient string   `json:"recipient"`
	OrderID   string   `json:"orderId"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// New fills in a notification id
func New(audience Audience, recipient, orderID, subject, body string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Audience:  audience,
		Recipient: recipient,
		OrderID:   orderID,
		Subject:   subject,
		Body:      body,
	}
}

// LogNotifier writes notifications to a logrus logger
type LogNotifier struct {
	logger logrus.FieldLogger
}

func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.WithFields(logrus.Fields{
		"notificationId": msg.ID,
		"audience":       msg.Audience,
		"recipient":      msg.Recipient,
		"orderId":        msg.OrderID,
		"subject":        msg.Subject,
	}).Info(msg.Body)
	return nil
}

// Recorder keeps notifications in memory
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(ctx context.Context, msg Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of everything delivered so far
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}
