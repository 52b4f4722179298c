// Package domain holds the expense aggregate and the errors its lifecycle
// operations can produce. Nothing here performs I/O.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Status is the closed set of states an Expense can be in.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

func (s Status) valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// AuditAction is the closed set of actions recorded in the audit log. It is
// deliberately its own type, distinct from Status, even though the two
// vocabularies overlap in English — nothing in this codebase compares one
// to the other.
type AuditAction string

const (
	ActionCreate  AuditAction = "CREATE"
	ActionSubmit  AuditAction = "SUBMIT"
	ActionApprove AuditAction = "APPROVE"
	ActionReject  AuditAction = "REJECT"
)

const defaultCurrency = "JPY"

// Expense is the aggregate root. It has no exported fields: every
// mutation goes through a constructor or a transition method, so an
// Expense value can never represent DRAFT-with-submittedAt-set or any
// other state the invariants forbid.
type Expense struct {
	id          int64
	applicantID string
	title       string
	amount      decimal.Decimal
	currency    string
	status      Status
	submittedAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
	version     int64
}

// NewDraft constructs a new, unpersisted Expense in DRAFT. id is 0 until
// the store assigns one on first Insert.
func NewDraft(applicantID, title string, amount decimal.Decimal, currency string, now time.Time) (*Expense, error) {
	if applicantID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "applicantId", Message: "must not be blank"}}}
	}
	title, err := validateTitle(title)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	currency = normalizeCurrency(currency)

	return &Expense{
		applicantID: applicantID,
		title:       title,
		amount:      amount,
		currency:    currency,
		status:      StatusDraft,
		createdAt:   now,
		updatedAt:   now,
		version:     0,
	}, nil
}

// Rehydrate reconstructs an Expense from persisted column values. It
// re-validates the invariants so a row corrupted outside this code's
// control (a manual SQL edit, a botched migration) is caught at load time
// rather than silently trusted.
func Rehydrate(id int64, applicantID, title string, amount decimal.Decimal, currency string, status Status, submittedAt *time.Time, createdAt, updatedAt time.Time, version int64) (*Expense, error) {
	if !status.valid() {
		return nil, &ValidationError{Fields: []FieldError{{Field: "status", Message: "unrecognized status: " + string(status)}}}
	}
	if status == StatusDraft && submittedAt != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "submittedAt", Message: "must be null while DRAFT"}}}
	}
	if status != StatusDraft && submittedAt == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "submittedAt", Message: "must be set once submitted"}}}
	}
	if status != StatusDraft && submittedAt.Before(createdAt) {
		return nil, &ValidationError{Fields: []FieldError{{Field: "submittedAt", Message: "must not precede createdAt"}}}
	}
	if _, err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	return &Expense{
		id:          id,
		applicantID: applicantID,
		title:       title,
		amount:      amount,
		currency:    currency,
		status:      status,
		submittedAt: submittedAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		version:     version,
	}, nil
}

func (e *Expense) ID() int64              { return e.id }
func (e *Expense) ApplicantID() string    { return e.applicantID }
func (e *Expense) Title() string          { return e.title }
func (e *Expense) Amount() decimal.Decimal { return e.amount }
func (e *Expense) Currency() string       { return e.currency }
func (e *Expense) Status() Status         { return e.status }
func (e *Expense) SubmittedAt() *time.Time { return e.submittedAt }
func (e *Expense) CreatedAt() time.Time   { return e.createdAt }
func (e *Expense) UpdatedAt() time.Time   { return e.updatedAt }
func (e *Expense) Version() int64         { return e.version }

// AssignID is called exactly once, by the store, right after the initial
// insert assigns a database key.
func (e *Expense) AssignID(id int64) { e.id = id }

// Submit transitions DRAFT -> SUBMITTED. Only legal from DRAFT.
func (e *Expense) Submit(now time.Time) error {
	if e.status != StatusDraft {
		return &InvalidTransitionError{From: e.status, Action: ActionSubmit}
	}
	e.status = StatusSubmitted
	e.submittedAt = &now
	e.touch(now)
	return nil
}

// Approve transitions SUBMITTED -> APPROVED. Only legal from SUBMITTED.
func (e *Expense) Approve(now time.Time) error {
	if e.status != StatusSubmitted {
		return &InvalidTransitionError{From: e.status, Action: ActionApprove}
	}
	e.status = StatusApproved
	e.touch(now)
	return nil
}

// Reject transitions SUBMITTED -> REJECTED. Only legal from SUBMITTED.
func (e *Expense) Reject(now time.Time) error {
	if e.status != StatusSubmitted {
		return &InvalidTransitionError{From: e.status, Action: ActionReject}
	}
	e.status = StatusRejected
	e.touch(now)
	return nil
}

func (e *Expense) touch(now time.Time) {
	e.updatedAt = now
	e.version++
}

func validateTitle(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", &ValidationError{Fields: []FieldError{{Field: "title", Message: "must not be blank"}}}
	}
	if utf8.RuneCountInString(title) > 100 {
		return "", &ValidationError{Fields: []FieldError{{Field: "title", Message: "must be at most 100 characters"}}}
	}
	return title, nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return &ValidationError{Fields: []FieldError{{Field: "amount", Message: "must be positive"}}}
	}
	return nil
}

func normalizeCurrency(currency string) string {
	if len(currency) != 3 {
		return defaultCurrency
	}
	return currency
}
