// Package lifecycle orchestrates the authorization policy, expense store,
// audit store and event bus under a single transaction per operation —
// this is where the state machine actually lives.
package lifecycle

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mautops/expense-approval/internal/authz"
	"github.com/mautops/expense-approval/internal/clock"
	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/events"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/mautops/expense-approval/internal/telemetry"
	"github.com/mautops/expense-approval/internal/trace"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Service is the C7 ExpenseLifecycle: Create/Submit/Approve/Reject plus the
// read-only Get/GetAuditLog lookups. Search lives in the search package.
type Service struct {
	store  *store.ExpenseStore
	audit  *store.AuditStore
	policy authz.Policy
	bus    *events.Bus
	clock  clock.Clock
}

// New builds a Service wiring the store, audit store, authorization policy,
// event bus and clock together.
func New(s *store.ExpenseStore, audit *store.AuditStore, policy authz.Policy, bus *events.Bus, clk clock.Clock) *Service {
	return &Service{store: s, audit: audit, policy: policy, bus: bus, clock: clk}
}

// GetAuditLog returns the full audit trail for expenseID, in
// (createdAt ASC, id ASC) order, provided actor may view the expense.
//
// Error classification order: NotFound, AuthorizationError.
func (s *Service) GetAuditLog(ctx context.Context, actor domain.Actor, expenseID int64) ([]domain.AuditEntry, error) {
	e, err := s.store.FindByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(actor, e) {
		return nil, &domain.AuthorizationError{ActorID: actor.ID, Action: domain.ActionCreate}
	}
	return s.audit.FindByExpense(ctx, expenseID)
}

// Get returns a single expense, provided actor may view it.
//
// Error classification order: NotFound, AuthorizationError.
func (s *Service) Get(ctx context.Context, actor domain.Actor, expenseID int64) (*domain.Expense, error) {
	e, err := s.store.FindByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(actor, e) {
		return nil, &domain.AuthorizationError{ActorID: actor.ID, Action: domain.ActionCreate}
	}
	return e, nil
}

// Create makes a new DRAFT expense owned by actor.
//
// Error classification order: ValidationError, AuthorizationError.
func (s *Service) Create(ctx context.Context, actor domain.Actor, title string, amount decimal.Decimal, currency string) (*domain.Expense, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "lifecycle.Create")
	defer span.End()
	span.SetAttributes(attribute.String("expense.applicant_id", actor.ID))

	now := s.clock.Now()

	e, err := domain.NewDraft(actor.ID, title, amount, currency, now)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanCreate(actor, actor.ID) {
		return nil, &domain.AuthorizationError{ActorID: actor.ID, Action: domain.ActionCreate}
	}

	tc := trace.From(ctx)
	span.SetAttributes(attribute.String("trace.id", tc.TraceID))
	err = s.store.WithTransaction(ctx, func(txStore *store.ExpenseStore, txAudit *store.AuditStore) error {
		if err := txStore.Insert(ctx, e); err != nil {
			return err
		}
		return txAudit.Append(ctx, domain.AuditEntry{
			ExpenseID:    e.ID(),
			ActorID:      actor.ID,
			Action:       domain.ActionCreate,
			BeforeStatus: domain.StatusDraft,
			AfterStatus:  domain.StatusDraft,
			TraceID:      tc.TraceID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, domain.DomainEvent{
		Type: domain.EventExpenseCreated, ExpenseID: e.ID(), ApplicantID: e.ApplicantID(),
		ActorID: actor.ID, TraceID: tc.TraceID, OccurredAt: now,
	})
	return e, nil
}

// Submit transitions an expense from DRAFT to SUBMITTED. Its only inputs
// are the expense id and the acting actor: the optimistic-concurrency
// predicate is built from the version read inside this call, not from a
// caller-supplied version, since the route this serves takes none.
//
// Error classification order: NotFound, AuthorizationError,
// InvalidTransition, Conflict.
func (s *Service) Submit(ctx context.Context, actor domain.Actor, expenseID int64) (*domain.Expense, error) {
	return s.transition(ctx, actor, expenseID, nil, domain.ActionSubmit, "",
		func(e *domain.Expense, now time.Time) error {
			if !s.policy.CanSubmit(actor, e) {
				return &domain.AuthorizationError{ActorID: actor.ID, Action: domain.ActionSubmit}
			}
			return e.Submit(now)
		})
}

// Approve transitions an expense from SUBMITTED to APPROVED, using the
// version the caller expects the expense to currently be at.
func (s *Service) Approve(ctx context.Context, actor domain.Actor, expenseID int64, expectedVersion int64) (*domain.Expense, error) {
	return s.transition(ctx, actor, expenseID, &expectedVersion, domain.ActionApprove, "",
		func(e *domain.Expense, now time.Time) error {
			if !s.policy.CanDecide(actor, e) {
				return &domain.AuthorizationError{ActorID: actor.ID, Action: domain.ActionApprove}
			}
			return e.Approve(now)
		})
}

// Reject transitions an expense from SUBMITTED to REJECTED, recording
// reason on the audit entry, using the version the caller expects the
// expense to currently be at.
func (s *Service) Reject(ctx context.Context, actor domain.Actor, expenseID int64, expectedVersion int64, reason string) (*domain.Expense, error) {
	return s.transition(ctx, actor, expenseID, &expectedVersion, domain.ActionReject, reason,
		func(e *domain.Expense, now time.Time) error {
			if !s.policy.CanDecide(actor, e) {
				return &domain.AuthorizationError{ActorID: actor.ID, Action: domain.ActionReject}
			}
			if err := validateRejectReason(reason); err != nil {
				return err
			}
			return e.Reject(now)
		})
}

func validateRejectReason(reason string) error {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "reason", Message: "reason is required"}}}
	}
	if utf8.RuneCountInString(trimmed) > 100 {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "reason", Message: "reason must be at most 100 characters"}}}
	}
	return nil
}

// transition is the shared Submit/Approve/Reject skeleton: load, apply the
// pure state transition (which itself checks authorization first), persist
// with the version predicate, append the audit entry, publish after commit.
// expectedVersion nil means "use the version just read from the store"
// (Submit's contract); non-nil means "use the caller-supplied version"
// (Approve/Reject's contract).
func (s *Service) transition(
	ctx context.Context,
	actor domain.Actor,
	expenseID int64,
	expectedVersion *int64,
	action domain.AuditAction,
	note string,
	apply func(e *domain.Expense, now time.Time) error,
) (*domain.Expense, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "lifecycle."+string(action))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("expense.id", expenseID),
	)

	e, err := s.store.FindByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	versionForUpdate := e.Version()
	if expectedVersion != nil {
		versionForUpdate = *expectedVersion
	}
	span.SetAttributes(attribute.Int64("expense.expected_version", versionForUpdate))

	beforeStatus := e.Status()
	now := s.clock.Now()
	if err := apply(e, now); err != nil {
		return nil, err
	}

	tc := trace.From(ctx)
	span.SetAttributes(attribute.String("trace.id", tc.TraceID))
	err = s.store.WithTransaction(ctx, func(txStore *store.ExpenseStore, txAudit *store.AuditStore) error {
		if err := txStore.ConditionalUpdate(ctx, e, versionForUpdate); err != nil {
			return err
		}
		return txAudit.Append(ctx, domain.AuditEntry{
			ExpenseID:    expenseID,
			ActorID:      actor.ID,
			Action:       action,
			BeforeStatus: beforeStatus,
			AfterStatus:  e.Status(),
			Note:         note,
			TraceID:      tc.TraceID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, domain.DomainEvent{
		Type: eventTypeFor(action), ExpenseID: expenseID, ApplicantID: e.ApplicantID(),
		ActorID: actor.ID, TraceID: tc.TraceID, OccurredAt: now,
	})
	return e, nil
}

func eventTypeFor(action domain.AuditAction) domain.EventType {
	switch action {
	case domain.ActionSubmit:
		return domain.EventExpenseSubmitted
	case domain.ActionApprove:
		return domain.EventExpenseApproved
	case domain.ActionReject:
		return domain.EventExpenseRejected
	default:
		return domain.EventExpenseCreated
	}
}
