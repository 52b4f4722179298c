package httpapi

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/httpapi/dto"
	"github.com/mautops/expense-approval/internal/httpapi/middleware"
	"github.com/mautops/expense-approval/internal/lifecycle"
	"github.com/mautops/expense-approval/internal/search"
	"github.com/mautops/expense-approval/internal/utils"
	"github.com/shopspring/decimal"
)

const actorContextKey = middleware.ActorContextKey

// ExpenseController implements the expense lifecycle's HTTP surface,
// grounded on the teacher's TaskController but mapping onto
// Create/Submit/Approve/Reject/Search/GetAuditLog instead of the
// multi-node task workflow.
type ExpenseController struct {
	lifecycle *lifecycle.Service
	search    *search.Service
}

// NewExpenseController builds an ExpenseController.
func NewExpenseController(lc *lifecycle.Service, s *search.Service) *ExpenseController {
	return &ExpenseController{lifecycle: lc, search: s}
}

func actorFromContext(c *gin.Context) domain.Actor {
	if actor, ok := c.Get(actorContextKey); ok {
		return actor.(domain.Actor)
	}
	return domain.Actor{}
}

func (ec *ExpenseController) parseExpenseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid expense id", nil)
		return 0, false
	}
	return id, true
}

// Create handles POST /api/v1/expenses.
func (ec *ExpenseController) Create(c *gin.Context) {
	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var details []FieldErrorDTO
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details = append(details, FieldErrorDTO{Field: strings.ToLower(fe.Field()), Message: "failed the " + fe.Tag() + " rule"})
			}
		}
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), details)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "amount is not a valid decimal", []FieldErrorDTO{{Field: "amount", Message: "must be a decimal number"}})
		return
	}

	title := utils.SanitizeString(req.Title)

	actor := actorFromContext(c)
	e, err := ec.lifecycle.Create(c.Request.Context(), actor, title, amount, req.Currency)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Location", "/api/v1/expenses/"+strconv.FormatInt(e.ID(), 10))
	c.JSON(http.StatusCreated, toExpenseResponse(e))
}

// Get handles GET /api/v1/expenses/{id}.
func (ec *ExpenseController) Get(c *gin.Context) {
	id, ok := ec.parseExpenseID(c)
	if !ok {
		return
	}
	actor := actorFromContext(c)
	e, err := ec.lifecycle.Get(c.Request.Context(), actor, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExpenseResponse(e))
}

// Submit handles POST /api/v1/expenses/{id}/submit. Unlike
// Approve/Reject, this route takes no version query param: the
// optimistic-concurrency predicate is built from the version the
// lifecycle service reads for itself.
func (ec *ExpenseController) Submit(c *gin.Context) {
	id, ok := ec.parseExpenseID(c)
	if !ok {
		return
	}

	actor := actorFromContext(c)
	e, lcErr := ec.lifecycle.Submit(c.Request.Context(), actor, id)
	if lcErr != nil {
		HandleError(c, lcErr)
		return
	}
	c.JSON(http.StatusOK, toExpenseResponse(e))
}

// Approve handles POST /api/v1/expenses/{id}/approve?version=N.
func (ec *ExpenseController) Approve(c *gin.Context) {
	id, ok := ec.parseExpenseID(c)
	if !ok {
		return
	}
	version, err := parseVersion(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "version must be a non-negative integer", []FieldErrorDTO{{Field: "version", Message: "must be a non-negative integer"}})
		return
	}

	actor := actorFromContext(c)
	e, lcErr := ec.lifecycle.Approve(c.Request.Context(), actor, id, version)
	if lcErr != nil {
		HandleError(c, lcErr)
		return
	}
	c.JSON(http.StatusOK, toExpenseResponse(e))
}

// Reject handles POST /api/v1/expenses/{id}/reject?version=N.
func (ec *ExpenseController) Reject(c *gin.Context) {
	id, ok := ec.parseExpenseID(c)
	if !ok {
		return
	}
	version, err := parseVersion(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "version must be a non-negative integer", []FieldErrorDTO{{Field: "version", Message: "must be a non-negative integer"}})
		return
	}

	var req dto.RejectExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	actor := actorFromContext(c)
	e, lcErr := ec.lifecycle.Reject(c.Request.Context(), actor, id, version, utils.SanitizeString(req.Reason))
	if lcErr != nil {
		HandleError(c, lcErr)
		return
	}
	c.JSON(http.StatusOK, toExpenseResponse(e))
}

// List handles GET /api/v1/expenses.
func (ec *ExpenseController) List(c *gin.Context) {
	criteria := searchCriteriaFromQuery(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	actor := actorFromContext(c)
	result, err := ec.search.Search(c.Request.Context(), actor, criteria, page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	items := make([]dto.ExpenseResponse, 0, len(result.Items))
	for _, e := range result.Items {
		items = append(items, toExpenseResponse(e))
	}

	c.JSON(http.StatusOK, ListResponse{
		Items: items,
		Page: PageDTO{
			Page: result.Page, PageSize: result.PageSize, Total: result.Total,
			TotalPages: result.TotalPages, PageWindow: result.PageWindow,
		},
	})
}

// ExportCSV handles GET /api/v1/expenses/export.csv, streaming every
// matching expense the actor may see as a CSV attachment.
func (ec *ExpenseController) ExportCSV(c *gin.Context) {
	criteria := searchCriteriaFromQuery(c)

	actor := actorFromContext(c)
	rows, err := ec.search.ExportCSV(c.Request.Context(), actor, criteria)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="expenses.csv"`)
	c.Header("Content-Type", "text/csv")
	w := csv.NewWriter(c.Writer)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return
		}
	}
	w.Flush()
}

func searchCriteriaFromQuery(c *gin.Context) search.Criteria {
	var criteria search.Criteria
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.Status(statusStr)
		criteria.Status = &status
	}
	criteria.Title = c.Query("title")
	if v := c.Query("amountMin"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			criteria.AmountMin = &d
		}
	}
	if v := c.Query("amountMax"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			criteria.AmountMax = &d
		}
	}
	if v := c.Query("submittedFrom"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			criteria.SubmittedFrom = &t
		}
	}
	if v := c.Query("submittedTo"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			criteria.SubmittedTo = &t
		}
	}
	criteria.SortField = c.Query("sort")
	criteria.SortOrder = c.Query("order")
	return criteria
}

// AuditLog handles GET /api/v1/expenses/{id}/audit-logs.
func (ec *ExpenseController) AuditLog(c *gin.Context) {
	id, ok := ec.parseExpenseID(c)
	if !ok {
		return
	}
	actor := actorFromContext(c)
	entries, err := ec.lifecycle.GetAuditLog(c.Request.Context(), actor, id)
	if err != nil {
		HandleError(c, err)
		return
	}

	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID: entry.ID, ExpenseID: entry.ExpenseID, ActorID: entry.ActorID,
			Action: string(entry.Action), BeforeStatus: string(entry.BeforeStatus),
			AfterStatus: string(entry.AfterStatus), Note: entry.Note, TraceID: entry.TraceID,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, items)
}

func parseVersion(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Query("version"), 10, 64)
}

func toExpenseResponse(e *domain.Expense) dto.ExpenseResponse {
	var submittedAt *string
	if e.SubmittedAt() != nil {
		s := e.SubmittedAt().Format(time.RFC3339)
		submittedAt = &s
	}
	return dto.ExpenseResponse{
		ID: e.ID(), ApplicantID: e.ApplicantID(), Title: e.Title(),
		Amount: e.Amount().StringFixed(2), Currency: e.Currency(), Status: string(e.Status()),
		SubmittedAt: submittedAt, CreatedAt: e.CreatedAt().Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt().Format(time.RFC3339), Version: e.Version(),
	}
}
