package store

import (
	"context"

	"github.com/mautops/expense-approval/internal/domain"
	"gorm.io/gorm"
)

// AuditStore is the append-only log of expense state transitions.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore returns an AuditStore backed by db.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Append writes one AuditEntry. Rows are never updated or deleted once
// written, so this is the only mutating method on this type.
func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	row := &AuditLogModel{
		ExpenseID:    entry.ExpenseID,
		ActorID:      entry.ActorID,
		Action:       string(entry.Action),
		BeforeStatus: string(entry.BeforeStatus),
		AfterStatus:  string(entry.AfterStatus),
		Note:         entry.Note,
		TraceID:      entry.TraceID,
		CreatedAt:    entry.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return wrapStorageError(err)
	}
	return nil
}

// FindByExpense returns every audit entry for expenseID ordered by
// (createdAt ASC, id ASC) — the order the transitions actually happened in.
func (s *AuditStore) FindByExpense(ctx context.Context, expenseID int64) ([]domain.AuditEntry, error) {
	var rows []AuditLogModel
	err := s.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStorageError(err)
	}

	entries := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.AuditEntry{
			ID:           row.ID,
			ExpenseID:    row.ExpenseID,
			ActorID:      row.ActorID,
			Action:       domain.AuditAction(row.Action),
			BeforeStatus: domain.Status(row.BeforeStatus),
			AfterStatus:  domain.Status(row.AfterStatus),
			Note:         row.Note,
			TraceID:      row.TraceID,
			CreatedAt:    row.CreatedAt,
		})
	}
	return entries, nil
}
