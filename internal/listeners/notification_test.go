package listeners_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/listeners"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	approverEmail string
	approverErr   error
	applicantErr  error
}

func (s stubDirectory) EmailOfApplicant(ctx context.Context, applicantID string) (string, error) {
	if s.applicantErr != nil {
		return "", s.applicantErr
	}
	return applicantID + "@example.com", nil
}

func (s stubDirectory) AnyApproverEmail(ctx context.Context) (string, error) {
	if s.approverErr != nil {
		return "", s.approverErr
	}
	return s.approverEmail, nil
}

type recordingPusher struct {
	userID  string
	message []byte
}

func (p *recordingPusher) NotifyUser(userID string, message []byte) {
	p.userID = userID
	p.message = message
}

func TestNotificationListener_SubmittedNotifiesApprover(t *testing.T) {
	dir := stubDirectory{approverEmail: "approver@example.com"}
	pusher := &recordingPusher{}
	log := logrus.New()
	hook := test.NewLocal(log)

	l := listeners.NewNotificationListener(dir, pusher, log)
	l.Handle(context.Background(), domain.DomainEvent{Type: domain.EventExpenseSubmitted, ExpenseID: 1, ApplicantID: "u1"})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "approver@example.com", hook.LastEntry().Data["recipient"])
	assert.Equal(t, "u1", pusher.userID)
	require.NotEmpty(t, pusher.message)
}

func TestNotificationListener_ApprovedNotifiesApplicant(t *testing.T) {
	dir := stubDirectory{}
	pusher := &recordingPusher{}
	log := logrus.New()

	l := listeners.NewNotificationListener(dir, pusher, log)
	l.Handle(context.Background(), domain.DomainEvent{Type: domain.EventExpenseApproved, ExpenseID: 1, ApplicantID: "u1"})

	assert.Equal(t, "u1", pusher.userID)
}

func TestNotificationListener_LogsWarningWhenRecipientUnresolvable(t *testing.T) {
	dir := stubDirectory{approverErr: errors.New("no approvers configured")}
	pusher := &recordingPusher{}
	log := logrus.New()

	l := listeners.NewNotificationListener(dir, pusher, log)
	l.Handle(context.Background(), domain.DomainEvent{Type: domain.EventExpenseSubmitted, ExpenseID: 1, ApplicantID: "u1"})

	assert.Equal(t, "u1", pusher.userID)
}
