package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/expense-approval/internal/authz"
	"github.com/mautops/expense-approval/internal/clock"
	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/events"
	"github.com/mautops/expense-approval/internal/httpapi"
	"github.com/mautops/expense-approval/internal/httpapi/dto"
	"github.com/mautops/expense-approval/internal/httpapi/middleware"
	"github.com/mautops/expense-approval/internal/lifecycle"
	"github.com/mautops/expense-approval/internal/search"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testActorHeader = "X-Test-Actor"

func setupTestRouter(t *testing.T, defaultActor domain.Actor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.ExpenseModel{}, &store.AuditLogModel{}))

	bus := events.New(1, 8, 0)
	t.Cleanup(bus.Close)

	lc := lifecycle.New(store.New(db), store.NewAuditStore(db), authz.New(), bus, clock.NewFixed(time.Now()))
	sr := search.New(store.New(db), authz.New())
	controller := httpapi.NewExpenseController(lc, sr)

	actors := map[string]domain.Actor{
		"applicant": domain.NewActor("u1", domain.RoleApplicant),
		"approver":  domain.NewActor("u2", domain.RoleApprover),
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		actor := defaultActor
		if key := c.GetHeader(testActorHeader); key != "" {
			actor = actors[key]
		}
		c.Set(middleware.ActorContextKey, actor)
		c.Next()
	})
	r.POST("/api/v1/expenses", controller.Create)
	r.GET("/api/v1/expenses/:id", controller.Get)
	r.POST("/api/v1/expenses/:id/submit", controller.Submit)
	r.POST("/api/v1/expenses/:id/approve", controller.Approve)
	r.POST("/api/v1/expenses/:id/reject", controller.Reject)
	r.GET("/api/v1/expenses", controller.List)
	r.GET("/api/v1/expenses/:id/audit-logs", controller.AuditLog)
	return r
}

func doJSONAs(t *testing.T, r *gin.Engine, actorKey, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorKey != "" {
		req.Header.Set(testActorHeader, actorKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONAs(t, r, "", method, path, body)
}

func TestExpenseController_CreateAndGet(t *testing.T) {
	actor := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, actor)

	w := doJSON(t, r, http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Taxi", Amount: "100.00", Currency: "JPY"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created dto.ExpenseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "DRAFT", created.Status)

	w = doJSON(t, r, http.MethodGet, "/api/v1/expenses/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExpenseController_Create_RejectsInvalidAmount(t *testing.T) {
	actor := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, actor)

	w := doJSON(t, r, http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Taxi", Amount: "not-a-number"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExpenseController_SubmitAndApproveFlow(t *testing.T) {
	applicant := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, applicant)

	w := doJSON(t, r, http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Taxi", Amount: "50.00", Currency: "JPY"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/expenses/1/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/expenses/1/approve?version=1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code) // an actor without the approver role cannot approve
}

func TestExpenseController_Reject_RequiresReasonAndApproverRole(t *testing.T) {
	applicant := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, applicant)

	doJSONAs(t, r, "applicant", http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Taxi", Amount: "50.00", Currency: "JPY"})
	doJSONAs(t, r, "applicant", http.MethodPost, "/api/v1/expenses/1/submit", nil)

	w := doJSONAs(t, r, "approver", http.MethodPost, "/api/v1/expenses/1/reject?version=1", dto.RejectExpenseRequest{Reason: "  "})
	require.Equal(t, http.StatusBadRequest, w.Code) // blank reason, rejected by the lifecycle service
	var errBody httpapi.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	assert.Equal(t, "VALIDATION_ERROR", errBody.Code)

	w = doJSONAs(t, r, "approver", http.MethodPost, "/api/v1/expenses/1/reject?version=1", dto.RejectExpenseRequest{Reason: "missing receipt"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSONAs(t, r, "approver", http.MethodGet, "/api/v1/expenses/1/audit-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []dto.AuditEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Equal(t, "missing receipt", entries[len(entries)-1].Note)
}

func TestExpenseController_Approve_ConflictRespondsWithConcurrentModificationCode(t *testing.T) {
	applicant := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, applicant)

	doJSONAs(t, r, "applicant", http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Taxi", Amount: "50.00", Currency: "JPY"})
	doJSONAs(t, r, "applicant", http.MethodPost, "/api/v1/expenses/1/submit", nil)

	w := doJSONAs(t, r, "approver", http.MethodPost, "/api/v1/expenses/1/approve?version=99", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var errBody httpapi.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	assert.Equal(t, "CONCURRENT_MODIFICATION", errBody.Code)
}

func TestExpenseController_Approve_InvalidTransitionRespondsWithCode(t *testing.T) {
	applicant := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, applicant)

	doJSONAs(t, r, "applicant", http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Taxi", Amount: "50.00", Currency: "JPY"})

	w := doJSONAs(t, r, "approver", http.MethodPost, "/api/v1/expenses/1/approve?version=0", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var errBody httpapi.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	assert.Equal(t, "INVALID_STATUS_TRANSITION", errBody.Code)
}

func TestExpenseController_List_ReturnsPagedItems(t *testing.T) {
	actor := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, actor)

	doJSON(t, r, http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Taxi", Amount: "50.00", Currency: "JPY"})
	doJSON(t, r, http.MethodPost, "/api/v1/expenses", dto.CreateExpenseRequest{Title: "Hotel", Amount: "300.00", Currency: "JPY"})

	w := doJSON(t, r, http.MethodGet, "/api/v1/expenses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpapi.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Page.Total)
}

func TestExpenseController_Get_NotFoundForUnknownID(t *testing.T) {
	actor := domain.NewActor("u1", domain.RoleApplicant)
	r := setupTestRouter(t, actor)

	w := doJSON(t, r, http.MethodGet, "/api/v1/expenses/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
