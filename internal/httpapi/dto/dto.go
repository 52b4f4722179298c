// Package dto holds the HTTP request/response bodies, tagged for
// github.com/go-playground/validator/v10.
package dto

// CreateExpenseRequest is the body of POST /api/v1/expenses.
type CreateExpenseRequest struct {
	Title    string `json:"title" binding:"required,max=100"`
	Amount   string `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

// RejectExpenseRequest is the body of POST /api/v1/expenses/{id}/reject.
// Reason's non-blank/length requirement is enforced by
// lifecycle.Service.Reject, not here, so a rejected expense a caller isn't
// authorized to act on still classifies as NotFound/AuthorizationError
// ahead of any validation error on the reason itself.
type RejectExpenseRequest struct {
	Reason string `json:"reason"`
}

// ExpenseResponse is the representation of an Expense returned by every
// endpoint that echoes one back.
type ExpenseResponse struct {
	ID          int64   `json:"id"`
	ApplicantID string  `json:"applicantId"`
	Title       string  `json:"title"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	SubmittedAt *string `json:"submittedAt"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	Version     int64   `json:"version"`
}

// AuditEntryResponse is the representation of one AuditEntry.
type AuditEntryResponse struct {
	ID           int64  `json:"id"`
	ExpenseID    int64  `json:"expenseId"`
	ActorID      string `json:"actorId"`
	Action       string `json:"action"`
	BeforeStatus string `json:"beforeStatus"`
	AfterStatus  string `json:"afterStatus"`
	Note         string `json:"note,omitempty"`
	TraceID      string `json:"traceId"`
	CreatedAt    string `json:"createdAt"`
}
