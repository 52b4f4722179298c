// Package listeners provides the reference C9 subscribers the container
// wires onto the EventBus: an analytics listener recording Prometheus
// counters, and a notification listener logging the mail recipient and
// pushing a live WebSocket message to the applicant. Actually sending mail is out
// of scope — the notification listener logs what it would have sent.
package listeners

import (
	"context"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/metrics"
)

// AnalyticsListener records one Prometheus counter per domain event.
type AnalyticsListener struct{}

// NewAnalyticsListener returns a stateless AnalyticsListener.
func NewAnalyticsListener() *AnalyticsListener { return &AnalyticsListener{} }

func (a *AnalyticsListener) Name() string { return "analytics" }

func (a *AnalyticsListener) Handle(_ context.Context, evt domain.DomainEvent) {
	switch evt.Type {
	case domain.EventExpenseCreated:
		metrics.RecordExpenseCreated()
	case domain.EventExpenseSubmitted:
		metrics.RecordExpenseAction("submit")
	case domain.EventExpenseApproved:
		metrics.RecordExpenseAction("approve")
	case domain.EventExpenseRejected:
		metrics.RecordExpenseAction("reject")
	}
}
