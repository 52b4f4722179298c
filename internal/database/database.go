package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mautops/expense-approval/internal/config"
	"github.com/mautops/expense-approval/internal/store"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PoolConfig controls the underlying sql.DB connection pool.
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // seconds
	ConnMaxIdleTime int // seconds
}

// GetPoolConfig returns development-sized pool defaults.
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{MaxIdleConns: 10, MaxOpenConns: 100, ConnMaxLifetime: 3600, ConnMaxIdleTime: 600}
}

// GetProductionPoolConfig returns production-sized pool defaults.
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{MaxIdleConns: 20, MaxOpenConns: 200, ConnMaxLifetime: 3600, ConnMaxIdleTime: 300}
}

// Connect opens a gorm.DB against cfg.DSN, selecting the driver by DSN shape:
// a DSN starting with "file:", containing ":memory:", or ending in ".db" is
// SQLite (used by tests and single-node demo deployments); anything else is
// treated as a PostgreSQL DSN.
func Connect(cfg config.StorageConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialectorFor(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pc := poolConfigFrom(cfg, GetPoolConfig())
	applyPool(sqlDB, pc)

	return db, nil
}

// ConnectProduction connects using production-sized pool defaults when cfg
// leaves the pool fields unset.
func ConnectProduction(cfg config.StorageConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialectorFor(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pc := poolConfigFrom(cfg, GetProductionPoolConfig())
	applyPool(sqlDB, pc)

	return db, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") || strings.HasSuffix(dsn, ".db") {
		return sqlite.Open(dsn)
	}
	return postgres.Open(dsn)
}

func poolConfigFrom(cfg config.StorageConfig, fallback *PoolConfig) *PoolConfig {
	pc := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if pc.MaxIdleConns == 0 {
		pc.MaxIdleConns = fallback.MaxIdleConns
	}
	if pc.MaxOpenConns == 0 {
		pc.MaxOpenConns = fallback.MaxOpenConns
	}
	if pc.ConnMaxLifetime == 0 {
		pc.ConnMaxLifetime = fallback.ConnMaxLifetime
	}
	if pc.ConnMaxIdleTime == 0 {
		pc.ConnMaxIdleTime = fallback.ConnMaxIdleTime
	}
	return pc
}

func applyPool(sqlDB interface {
	SetMaxIdleConns(int)
	SetMaxOpenConns(int)
	SetConnMaxLifetime(time.Duration)
	SetConnMaxIdleTime(time.Duration)
}, pc *PoolConfig) {
	sqlDB.SetMaxIdleConns(pc.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pc.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pc.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(pc.ConnMaxIdleTime) * time.Second)
}

// Migrate creates the expense, audit log, outbox and user-directory tables.
// SQLite (used in tests) lacks the Postgres-specific GIN index support, so
// index creation there is limited to the plain b-tree indexes both drivers
// support.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&store.ExpenseModel{},
		&store.AuditLogModel{},
		&store.OutboxEventModel{},
		&store.UserModel{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// CreateIndexes creates the indexes the store's query paths rely on.
func CreateIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_expenses_applicant ON expenses(applicant_id)",
		"CREATE INDEX IF NOT EXISTS idx_expenses_status ON expenses(status)",
		"CREATE INDEX IF NOT EXISTS idx_expenses_created_at ON expenses(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_expense_id ON expense_audit_logs(expense_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_created_at ON expense_audit_logs(expense_id, created_at, id)",
		"CREATE INDEX IF NOT EXISTS idx_outbox_dispatched ON expense_outbox_events(dispatched_at)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_outbox_payload_gin ON expense_outbox_events USING GIN (payload)").Error; err != nil {
			return fmt.Errorf("failed to create idx_outbox_payload_gin: %w", err)
		}
	}

	return nil
}

// ConnectWithRetry connects with exponential backoff, used at process
// startup where the database may still be coming up.
func ConnectWithRetry(cfg config.StorageConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth pings the database with a bounded timeout.
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}

// Reconnect closes oldDB, if any, and opens a fresh connection.
func Reconnect(cfg config.StorageConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return Connect(cfg)
}
