package domain

import "fmt"

// FieldError is one field-level complaint inside a ValidationError, matching
// the {field, message} shape the HTTP boundary echoes back verbatim.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError means the request itself was malformed — wrong shape,
// out-of-range value — independent of who's asking or what state the
// target expense is in.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// UnauthenticatedError means no actor could be resolved for the request at
// all (missing or unparseable credentials).
type UnauthenticatedError struct{}

func (e *UnauthenticatedError) Error() string { return "no authenticated actor" }

// AuthorizationError means the actor is known but is not permitted to
// perform the requested action on the target expense.
type AuthorizationError struct {
	ActorID string
	Action  AuditAction
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s is not authorized to %s", e.ActorID, e.Action)
}

// NotFoundError means the target expense does not exist, or does not exist
// for this actor's visibility.
type NotFoundError struct {
	ExpenseID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("expense %d not found", e.ExpenseID)
}

// InvalidTransitionError means the expense exists, the actor may act on it
// in general, but its current status does not permit this action.
type InvalidTransitionError struct {
	From   Status
	Action AuditAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an expense in status %s", e.Action, e.From)
}

// ConflictError means a concurrent writer won the race: the version the
// caller expected no longer matches the persisted version. Safe to retry.
type ConflictError struct {
	ExpenseID       int64
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("expense %d was modified concurrently (expected version %d)", e.ExpenseID, e.ExpectedVersion)
}

// StorageError wraps an underlying persistence failure. Retryable
// distinguishes transient failures (timeouts, connection loss) from
// permanent ones (constraint violations) so callers know whether an
// automatic retry makes sense.
type StorageError struct {
	Retryable bool
	Err       error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage error: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// SubscriberError is returned by an EventBus subscriber to report a
// processing failure without ever propagating back into the lifecycle
// operation that published the event.
type SubscriberError struct {
	Subscriber string
	Err        error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("subscriber %s failed: %v", e.Subscriber, e.Err)
}
func (e *SubscriberError) Unwrap() error { return e.Err }
