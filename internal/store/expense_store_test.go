package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupExpenseStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.ExpenseModel{}, &store.AuditLogModel{}))
	return db
}

func draft(t *testing.T, applicantID, amount string) *domain.Expense {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	e, err := domain.NewDraft(applicantID, "Taxi", amt, "JPY", time.Now())
	require.NoError(t, err)
	return e
}

func TestExpenseStore_InsertAndFindByID(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)
	ctx := context.Background()

	e := draft(t, "u1", "100.00")
	require.NoError(t, s.Insert(ctx, e))
	assert.NotZero(t, e.ID())

	found, err := s.FindByID(ctx, e.ID())
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ApplicantID())
	assert.Equal(t, domain.StatusDraft, found.Status())
}

func TestExpenseStore_FindByID_NotFound(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)

	_, err := s.FindByID(context.Background(), 999)
	var nfErr *domain.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestExpenseStore_ConditionalUpdate_SucceedsOnMatchingVersion(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)
	ctx := context.Background()

	e := draft(t, "u1", "100.00")
	require.NoError(t, s.Insert(ctx, e))

	require.NoError(t, e.Submit(time.Now()))
	require.NoError(t, s.ConditionalUpdate(ctx, e, 0))

	found, err := s.FindByID(ctx, e.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, found.Status())
	assert.Equal(t, int64(1), found.Version())
}

func TestExpenseStore_ConditionalUpdate_ConflictsOnStaleVersion(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)
	ctx := context.Background()

	e := draft(t, "u1", "100.00")
	require.NoError(t, s.Insert(ctx, e))
	require.NoError(t, e.Submit(time.Now()))

	err := s.ConditionalUpdate(ctx, e, 5)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestExpenseStore_Search_FiltersByStatusAndApplicant(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)
	ctx := context.Background()

	e1 := draft(t, "u1", "100.00")
	require.NoError(t, s.Insert(ctx, e1))
	e2 := draft(t, "u2", "200.00")
	require.NoError(t, s.Insert(ctx, e2))
	require.NoError(t, e2.Submit(time.Now()))
	require.NoError(t, s.ConditionalUpdate(ctx, e2, 0))

	submitted := domain.StatusSubmitted
	result, err := s.Search(ctx, store.SearchCriteria{Status: &submitted}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	assert.Equal(t, "u2", result.Items[0].ApplicantID())
}

func TestExpenseStore_Search_FiltersByAmountRange(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, draft(t, "u1", "50.00")))
	require.NoError(t, s.Insert(ctx, draft(t, "u1", "500.00")))

	min, _ := decimal.NewFromString("100.00")
	result, err := s.Search(ctx, store.SearchCriteria{AmountMin: &min}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}

func TestExpenseStore_Search_FiltersByTitleSubstring(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, draft(t, "u1", "50.00")))

	result, err := s.Search(ctx, store.SearchCriteria{Title: "tax"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = s.Search(ctx, store.SearchCriteria{Title: "nope"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
}

func TestExpenseStore_Search_PagesResults(t *testing.T) {
	db := setupExpenseStoreDB(t)
	s := store.New(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, draft(t, "u1", "10.00")))
	}

	page1, err := s.Search(ctx, store.SearchCriteria{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page1.Total)
	assert.Len(t, page1.Items, 2)

	page3, err := s.Search(ctx, store.SearchCriteria{}, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page3.Items, 1)
}
