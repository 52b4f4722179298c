package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/expense-approval/internal/trace"
)

// FieldErrorDTO is one field-level complaint in an error body's details array.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the exact error-response shape this service's HTTP surface
// returns: an enum code, a human message, optional field-level details,
// and the trace id to correlate with logs/audit entries.
type ErrorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []FieldErrorDTO `json:"details,omitempty"`
	TraceID string          `json:"traceId"`
}

// JSON writes data as-is with the given HTTP status.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// RespondError writes an ErrorBody with the given HTTP status and enum
// code, stamping the request's trace id.
func RespondError(c *gin.Context, status int, code, message string, details []FieldErrorDTO) {
	tc := trace.From(c.Request.Context())
	c.JSON(status, ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
		TraceID: tc.TraceID,
	})
}

// PageDTO is the pagination metadata echoed alongside a list response.
type PageDTO struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	PageWindow []int `json:"pageWindow"`
}

// ListResponse is the envelope for paged list endpoints.
type ListResponse struct {
	Items interface{} `json:"items"`
	Page  PageDTO     `json:"page"`
}
