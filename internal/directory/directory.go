// Package directory resolves expense participants' contact addresses,
// grounded on the teacher's repository pattern but reading from a minimal
// read-only users table rather than the full identity system the teacher
// relied on for authentication.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/mautops/expense-approval/internal/domain"
	"gorm.io/gorm"
)

// UserDirectory resolves applicant/approver contact addresses. Staleness in
// an implementation's cache may delay a notification but must never affect
// a lifecycle invariant.
type UserDirectory interface {
	EmailOfApplicant(ctx context.Context, applicantID string) (string, error)
	AnyApproverEmail(ctx context.Context) (string, error)
}

type userRow struct {
	ID    string `gorm:"column:id"`
	Email string `gorm:"column:email"`
	Role  string `gorm:"column:role"`
}

func (userRow) TableName() string { return "users" }

// gormDirectory is the default, uncached UserDirectory implementation.
type gormDirectory struct {
	db *gorm.DB
}

// New returns a gorm-backed UserDirectory.
func New(db *gorm.DB) UserDirectory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) EmailOfApplicant(ctx context.Context, applicantID string) (string, error) {
	var row userRow
	err := d.db.WithContext(ctx).Where("id = ?", applicantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", &domain.NotFoundError{}
	}
	if err != nil {
		return "", &domain.StorageError{Err: err}
	}
	return row.Email, nil
}

func (d *gormDirectory) AnyApproverEmail(ctx context.Context) (string, error) {
	var row userRow
	err := d.db.WithContext(ctx).Where("role = ?", string(domain.RoleApprover)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("no approver configured")
	}
	if err != nil {
		return "", &domain.StorageError{Err: err}
	}
	return row.Email, nil
}
