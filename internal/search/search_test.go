package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/expense-approval/internal/authz"
	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/search"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSearchService(t *testing.T) *search.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.ExpenseModel{}))

	es := store.New(db)
	ctx := context.Background()
	for i, applicantID := range []string{"u1", "u1", "u2"} {
		amt := decimal.NewFromInt(int64(100 * (i + 1)))
		e, err := domain.NewDraft(applicantID, "Taxi", amt, "JPY", time.Now())
		require.NoError(t, err)
		require.NoError(t, es.Insert(ctx, e))
	}

	return search.New(es, authz.New())
}

func TestSearch_ApplicantSeesOnlyOwnExpenses(t *testing.T) {
	svc := setupSearchService(t)

	page, err := svc.Search(context.Background(), domain.NewActor("u1", domain.RoleApplicant), search.Criteria{}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

func TestSearch_ApproverSeesEveryExpense(t *testing.T) {
	svc := setupSearchService(t)

	page, err := svc.Search(context.Background(), domain.NewActor("approver1", domain.RoleApprover), search.Criteria{}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
}

func TestSearch_ComputesTotalPagesAndWindow(t *testing.T) {
	svc := setupSearchService(t)

	page, err := svc.Search(context.Background(), domain.NewActor("approver1", domain.RoleApprover), search.Criteria{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, []int{1, 2, 3}, page.PageWindow)
}

func TestSearch_ExportCSV_IncludesHeaderAndRestrictsVisibility(t *testing.T) {
	svc := setupSearchService(t)

	rows, err := svc.ExportCSV(context.Background(), domain.NewActor("u1", domain.RoleApplicant), search.Criteria{})
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 rows
	assert.Equal(t, []string{"id", "applicantId", "title", "amount", "currency", "status", "submittedAt", "createdAt", "updatedAt"}, rows[0])
	for _, row := range rows[1:] {
		assert.Equal(t, "u1", row[1])
	}
}
