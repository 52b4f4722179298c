package store

import "time"

// ExpenseModel is the GORM row for the expenses table.
type ExpenseModel struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	ApplicantID string     `gorm:"column:applicant_id;size:64;not null;index"`
	Title       string     `gorm:"column:title;size:100;not null"`
	Amount      string     `gorm:"column:amount;type:decimal(12,2);not null"`
	Currency    string     `gorm:"column:currency;size:3;not null"`
	Status      string     `gorm:"column:status;size:16;not null;index"`
	SubmittedAt *time.Time `gorm:"column:submitted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	Version     int64      `gorm:"column:version;not null"`
}

func (ExpenseModel) TableName() string { return "expenses" }

// AuditLogModel is the GORM row for the expense_audit_logs table.
type AuditLogModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	ExpenseID    int64     `gorm:"column:expense_id;not null;index"`
	ActorID      string    `gorm:"column:actor_id;size:64;not null"`
	Action       string    `gorm:"column:action;size:16;not null"`
	BeforeStatus string    `gorm:"column:before_status;size:16;not null"`
	AfterStatus  string    `gorm:"column:after_status;size:16;not null"`
	Note         string    `gorm:"column:note;size:500"`
	TraceID      string    `gorm:"column:trace_id;size:64"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (AuditLogModel) TableName() string { return "expense_audit_logs" }

// OutboxEventModel is the GORM row for the expense_outbox_events table,
// used only when events.backend=kafka-outbox.
type OutboxEventModel struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"`
	ExpenseID    int64      `gorm:"column:expense_id;not null;index"`
	EventType    string     `gorm:"column:event_type;size:30;not null"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	TraceID      string     `gorm:"column:trace_id;size:64"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	DispatchedAt *time.Time `gorm:"column:dispatched_at"`
}

func (OutboxEventModel) TableName() string { return "expense_outbox_events" }

// UserModel is the GORM row for the minimal read-only contact directory
// backing UserDirectory.
type UserModel struct {
	ID          string `gorm:"primaryKey;column:id;size:64"`
	Email       string `gorm:"column:email;size:255;not null"`
	DisplayName string `gorm:"column:display_name;size:255"`
	Role        string `gorm:"column:role;size:20"`
}

func (UserModel) TableName() string { return "users" }
