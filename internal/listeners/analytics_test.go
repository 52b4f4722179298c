package listeners_test

import (
	"context"
	"testing"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/listeners"
	"github.com/stretchr/testify/assert"
)

func TestAnalyticsListener_HandlesEveryEventTypeWithoutPanicking(t *testing.T) {
	l := listeners.NewAnalyticsListener()
	assert.Equal(t, "analytics", l.Name())

	for _, evtType := range []domain.EventType{
		domain.EventExpenseCreated,
		domain.EventExpenseSubmitted,
		domain.EventExpenseApproved,
		domain.EventExpenseRejected,
	} {
		assert.NotPanics(t, func() {
			l.Handle(context.Background(), domain.DomainEvent{Type: evtType, ExpenseID: 1})
		})
	}
}
