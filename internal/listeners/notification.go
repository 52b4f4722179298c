package listeners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mautops/expense-approval/internal/directory"
	"github.com/mautops/expense-approval/internal/domain"
	"github.com/sirupsen/logrus"
)

// Pusher is the subset of websocket.Hub a NotificationListener needs; kept
// as an interface so tests can substitute a recorder.
type Pusher interface {
	NotifyUser(userID string, message []byte)
}

// NotificationListener resolves who should hear about a domain event via
// UserDirectory, logs the notification it would send by mail, and pushes a
// live message over the WebSocket hub to the expense's applicant, whatever
// the event type.
type NotificationListener struct {
	directory directory.UserDirectory
	pusher    Pusher
	log       *logrus.Logger
}

// NewNotificationListener builds a NotificationListener.
func NewNotificationListener(dir directory.UserDirectory, pusher Pusher, log *logrus.Logger) *NotificationListener {
	return &NotificationListener{directory: dir, pusher: pusher, log: log}
}

func (n *NotificationListener) Name() string { return "notification" }

func (n *NotificationListener) Handle(ctx context.Context, evt domain.DomainEvent) {
	recipient, recipientErr := n.recipientFor(ctx, evt)

	fields := logrus.Fields{
		"event":       evt.Type,
		"expenseId":   evt.ExpenseID,
		"applicantId": evt.ApplicantID,
		"traceId":     evt.TraceID,
	}
	if recipientErr != nil {
		n.log.WithFields(fields).WithError(recipientErr).Warn("notification: could not resolve recipient")
	} else {
		fields["recipient"] = recipient
		n.log.WithFields(fields).Info("notification: would send mail")
	}

	payload, err := json.Marshal(pushMessage{
		Type:      string(evt.Type),
		ExpenseID: evt.ExpenseID,
	})
	if err != nil {
		return
	}
	n.pusher.NotifyUser(evt.ApplicantID, payload)
}

type pushMessage struct {
	Type      string `json:"type"`
	ExpenseID int64  `json:"expenseId"`
}

func (n *NotificationListener) recipientFor(ctx context.Context, evt domain.DomainEvent) (string, error) {
	switch evt.Type {
	case domain.EventExpenseSubmitted:
		return n.directory.AnyApproverEmail(ctx)
	case domain.EventExpenseApproved, domain.EventExpenseRejected:
		return n.directory.EmailOfApplicant(ctx, evt.ApplicantID)
	default:
		return "", fmt.Errorf("no recipient policy for %s", evt.Type)
	}
}
