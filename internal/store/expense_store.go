package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mautops/expense-approval/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SearchCriteria is the set of optional filters Search accepts. Pointer
// fields distinguish "not provided" from the zero value, mirroring the
// teacher's TaskFilter shape.
type SearchCriteria struct {
	Status        *domain.Status
	ApplicantID   *string
	Title         string
	AmountMin     *decimal.Decimal
	AmountMax     *decimal.Decimal
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	SortField     string
	SortOrder     string
}

// SearchResult is one page of matching expenses.
type SearchResult struct {
	Items []*domain.Expense
	Total int64
}

// ExpenseStore is the durable persistence boundary for the Expense
// aggregate, with optimistic-concurrency-controlled updates.
type ExpenseStore struct {
	db *gorm.DB
}

// New returns an ExpenseStore backed by db.
func New(db *gorm.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

// Insert persists a brand-new Expense and assigns it its id.
func (s *ExpenseStore) Insert(ctx context.Context, e *domain.Expense) error {
	row := toModel(e)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return wrapStorageError(err)
	}
	e.AssignID(row.ID)
	return nil
}

// FindByID loads one expense by id, or a NotFoundError if it doesn't exist.
func (s *ExpenseStore) FindByID(ctx context.Context, id int64) (*domain.Expense, error) {
	var row ExpenseModel
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{ExpenseID: id}
	}
	if err != nil {
		return nil, wrapStorageError(err)
	}
	return fromModel(&row)
}

// Search runs criteria against the store with paging, returning up to
// pageSize rows starting at (page-1)*pageSize, 1-indexed.
func (s *ExpenseStore) Search(ctx context.Context, criteria SearchCriteria, page, pageSize int) (SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	field, order := NormalizeSort(criteria.SortField, criteria.SortOrder)

	q := s.db.WithContext(ctx).Model(&ExpenseModel{})
	if criteria.Status != nil {
		q = q.Where("status = ?", string(*criteria.Status))
	}
	if criteria.ApplicantID != nil {
		q = q.Where("applicant_id = ?", *criteria.ApplicantID)
	}
	if criteria.Title != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(criteria.Title)+"%")
	}
	if criteria.AmountMin != nil {
		q = q.Where("CAST(amount AS DECIMAL(12,2)) >= ?", criteria.AmountMin.StringFixed(2))
	}
	if criteria.AmountMax != nil {
		q = q.Where("CAST(amount AS DECIMAL(12,2)) <= ?", criteria.AmountMax.StringFixed(2))
	}
	if criteria.SubmittedFrom != nil {
		q = q.Where("submitted_at >= ?", criteria.SubmittedFrom)
	}
	if criteria.SubmittedTo != nil {
		q = q.Where("submitted_at <= ?", criteria.SubmittedTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return SearchResult{}, wrapStorageError(err)
	}

	var rows []ExpenseModel
	err := q.Order(fmt.Sprintf("%s %s", field, order)).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return SearchResult{}, wrapStorageError(err)
	}

	items := make([]*domain.Expense, 0, len(rows))
	for i := range rows {
		e, err := fromModel(&rows[i])
		if err != nil {
			continue
		}
		items = append(items, e)
	}

	return SearchResult{Items: items, Total: total}, nil
}

// ConditionalUpdate persists e's current in-memory state with a
// WHERE id=? AND version=<version before the pending mutation> predicate,
// and SET version=<e's new version> as a literal value — never
// "version = version + 1" — so the caller's mutation and the database's
// acceptance of it agree on exactly what the new version is. expectedVersion
// is the version the aggregate had before the transition method ran.
func (s *ExpenseStore) ConditionalUpdate(ctx context.Context, e *domain.Expense, expectedVersion int64) error {
	row := toModel(e)
	result := s.db.WithContext(ctx).
		Model(&ExpenseModel{}).
		Where("id = ? AND version = ?", e.ID(), expectedVersion).
		Updates(map[string]interface{}{
			"status":       row.Status,
			"submitted_at": row.SubmittedAt,
			"updated_at":   row.UpdatedAt,
			"version":      row.Version,
		})
	if result.Error != nil {
		return wrapStorageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return &domain.ConflictError{ExpenseID: e.ID(), ExpectedVersion: expectedVersion}
	}
	return nil
}

// WithTransaction runs fn inside a database transaction, so a
// ConditionalUpdate and its accompanying audit append commit or roll back
// together.
func (s *ExpenseStore) WithTransaction(ctx context.Context, fn func(txStore *ExpenseStore, txAudit *AuditStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx), NewAuditStore(tx))
	})
}

func toModel(e *domain.Expense) *ExpenseModel {
	return &ExpenseModel{
		ID:          e.ID(),
		ApplicantID: e.ApplicantID(),
		Title:       e.Title(),
		Amount:      e.Amount().StringFixed(2),
		Currency:    e.Currency(),
		Status:      string(e.Status()),
		SubmittedAt: e.SubmittedAt(),
		CreatedAt:   e.CreatedAt(),
		UpdatedAt:   e.UpdatedAt(),
		Version:     e.Version(),
	}
}

func fromModel(row *ExpenseModel) (*domain.Expense, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return domain.Rehydrate(
		row.ID, row.ApplicantID, row.Title, amount, row.Currency,
		domain.Status(row.Status), row.SubmittedAt, row.CreatedAt, row.UpdatedAt, row.Version,
	)
}

func wrapStorageError(err error) error {
	retryable := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	return &domain.StorageError{Retryable: retryable, Err: err}
}
