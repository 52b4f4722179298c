package domain

import "time"

// EventType is the closed set of domain events ExpenseLifecycle publishes.
type EventType string

const (
	EventExpenseCreated   EventType = "ExpenseCreated"
	EventExpenseSubmitted EventType = "ExpenseSubmitted"
	EventExpenseApproved  EventType = "ExpenseApproved"
	EventExpenseRejected  EventType = "ExpenseRejected"
)

// DomainEvent is published exactly once per successful lifecycle mutation,
// after the triggering transaction commits.
type DomainEvent struct {
	Type        EventType
	ExpenseID   int64
	ApplicantID string
	ActorID     string
	TraceID     string
	OccurredAt  time.Time
}

// Role is one of the roles an Actor may carry.
type Role string

const (
	RoleApplicant Role = "ROLE_APPLICANT"
	RoleApprover  Role = "ROLE_APPROVER"
	RoleAdmin     Role = "ROLE_ADMIN"
)

// Actor is the already-authenticated identity the HTTP boundary resolves
// and the lifecycle/authz layers consume. The core never performs
// authentication itself.
type Actor struct {
	ID    string
	Roles map[Role]bool
}

// NewActor builds an Actor from an id and a role list.
func NewActor(id string, roles ...Role) Actor {
	set := make(map[Role]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return Actor{ID: id, Roles: set}
}

// Has reports whether the actor carries role.
func (a Actor) Has(role Role) bool { return a.Roles[role] }

// AuditEntry is an immutable record of one state transition, never updated
// or deleted once written.
type AuditEntry struct {
	ID           int64
	ExpenseID    int64
	ActorID      string
	Action       AuditAction
	BeforeStatus Status
	AfterStatus  Status
	Note         string
	TraceID      string
	CreatedAt    time.Time
}
