package directory_test

import (
	"context"
	"testing"

	"github.com/mautops/expense-approval/internal/directory"
	"github.com/mautops/expense-approval/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDirectoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.UserModel{}))
	require.NoError(t, db.Create(&store.UserModel{ID: "u1", Email: "u1@example.com", Role: "ROLE_APPLICANT"}).Error)
	require.NoError(t, db.Create(&store.UserModel{ID: "u2", Email: "u2@example.com", Role: "ROLE_APPROVER"}).Error)
	return db
}

func TestDirectory_EmailOfApplicant(t *testing.T) {
	db := setupDirectoryDB(t)
	dir := directory.New(db)

	email, err := dir.EmailOfApplicant(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", email)
}

func TestDirectory_EmailOfApplicant_NotFound(t *testing.T) {
	db := setupDirectoryDB(t)
	dir := directory.New(db)

	_, err := dir.EmailOfApplicant(context.Background(), "nope")
	assert.Error(t, err)
}

func TestDirectory_AnyApproverEmail(t *testing.T) {
	db := setupDirectoryDB(t)
	dir := directory.New(db)

	email, err := dir.AnyApproverEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u2@example.com", email)
}

func TestDirectory_AnyApproverEmail_NoneConfigured(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.UserModel{}))
	dir := directory.New(db)

	_, err = dir.AnyApproverEmail(context.Background())
	assert.Error(t, err)
}
