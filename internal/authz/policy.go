// Package authz implements the authorization decision matrix as pure
// functions over already-resolved actor and expense data. Nothing in this
// package performs I/O or calls out to an external policy engine — every
// decision is a deterministic function of its inputs.
package authz

import "github.com/mautops/expense-approval/internal/domain"

// Policy evaluates whether an actor may perform an action, and builds the
// visibility predicate SearchService folds into its queries.
type Policy struct{}

// New returns the stateless default Policy.
func New() Policy { return Policy{} }

// CanCreate reports whether actor may create a draft expense for
// applicantID. Any authenticated actor may create a draft for themselves;
// there is no role gate on creation.
func (Policy) CanCreate(actor domain.Actor, applicantID string) bool {
	return actor.ID == applicantID
}

// CanSubmit reports whether actor may submit expense e. Only the owning
// applicant may submit their own draft.
func (Policy) CanSubmit(actor domain.Actor, e *domain.Expense) bool {
	return actor.Has(domain.RoleApplicant) && actor.ID == e.ApplicantID()
}

// CanDecide reports whether actor may approve or reject expense e. Any
// actor holding the approver role may decide any submitted expense,
// including their own.
func (Policy) CanDecide(actor domain.Actor, e *domain.Expense) bool {
	return actor.Has(domain.RoleApprover)
}

// CanView reports whether actor may view expense e or its audit log. The
// owning applicant, any approver, and admins may view.
func (Policy) CanView(actor domain.Actor, e *domain.Expense) bool {
	if actor.Has(domain.RoleAdmin) || actor.Has(domain.RoleApprover) {
		return true
	}
	return actor.ID == e.ApplicantID()
}

// VisibilityFilter describes, without running any query, which rows a
// SearchService caller is entitled to see: either every row (approvers and
// admins see the whole book), or only rows for a specific applicant id.
type VisibilityFilter struct {
	Unrestricted   bool
	ApplicantID    string
}

// Visibility builds the VisibilityFilter for actor, to be folded into the
// SearchService's query before any paging is applied.
func (Policy) Visibility(actor domain.Actor) VisibilityFilter {
	if actor.Has(domain.RoleAdmin) || actor.Has(domain.RoleApprover) {
		return VisibilityFilter{Unrestricted: true}
	}
	return VisibilityFilter{ApplicantID: actor.ID}
}
