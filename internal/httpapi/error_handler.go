package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/expense-approval/internal/domain"
)

// HandleError maps one of this service's typed errors to its HTTP
// status/code per the documented error table, dispatching by type rather
// than by matching substrings of err.Error().
func HandleError(c *gin.Context, err error) {
	var (
		validationErr  *domain.ValidationError
		unauthErr      *domain.UnauthenticatedError
		authzErr       *domain.AuthorizationError
		notFoundErr    *domain.NotFoundError
		transitionErr  *domain.InvalidTransitionError
		conflictErr    *domain.ConflictError
		storageErr     *domain.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		details := make([]FieldErrorDTO, 0, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			details = append(details, FieldErrorDTO{Field: f.Field, Message: f.Message})
		}
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "the request failed validation", details)

	case errors.As(err, &unauthErr):
		RespondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication is required", nil)

	case errors.As(err, &authzErr):
		RespondError(c, http.StatusForbidden, "NOT_AUTHORIZED", "you are not authorized to perform this action", nil)

	case errors.As(err, &notFoundErr):
		RespondError(c, http.StatusNotFound, "NOT_FOUND", "the requested expense was not found", nil)

	case errors.As(err, &transitionErr):
		RespondError(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", transitionErr.Error(), nil)

	case errors.As(err, &conflictErr):
		RespondError(c, http.StatusConflict, "CONCURRENT_MODIFICATION", "the expense was modified concurrently; retry with the latest version", nil)

	case errors.As(err, &storageErr):
		status := http.StatusInternalServerError
		code := "STORAGE_ERROR"
		if storageErr.Retryable {
			status = http.StatusServiceUnavailable
			code = "STORAGE_UNAVAILABLE"
		}
		RespondError(c, status, code, "a storage error occurred", nil)

	default:
		RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", nil)
	}
}
