package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobSucceeded  JobStatus = "succeeded"
	JobDead       JobStatus = "dead"
)

// ReceiptJob is one queued receipt-generation attempt series. The row is
// claimed with FOR UPDATE SKIP LOCKED, rescheduled with backoff on
// failure and marked dead after the attempt limit.
type ReceiptJob struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   string         `gorm:"index;not null" json:"order_id"` // gateway order id
	UserID    uuid.UUID      `gorm:"type:uuid;not null" json:"user_id"`
	Payload   datatypes.JSON `json:"payload"`
	Status    JobStatus      `gorm:"type:varchar(12);not null;default:'pending';index" json:"status"`
	Attempts  int            `gorm:"not null;default:0" json:"attempts"`
	LastError string         `json:"last_error"`
	NextRunAt time.Time      `gorm:"index;not null" json:"next_run_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ReceiptPayload is the snapshot captured when the job is enqueued.
type ReceiptPayload struct {
	Order PaymentOrder `json:"order"`
	User  User         `json:"user"`
}

// ReceiptDLQ retains exhausted receipt jobs for manual inspection.
type ReceiptDLQ struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID     int64     `gorm:"index" json:"job_id"`
	OrderID   string    `json:"order_id"`
	ErrorMsg  string    `json:"error_msg"`
	Payload   []byte    `gorm:"type:bytea" json:"payload"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	RetriedAt *time.Time `json:"retried_at"`
	Resolved  bool      `gorm:"default:false" json:"resolved"`
}

// SearchDLQ retains outbox events that failed to index.
type SearchDLQ struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OutboxID   int64     `gorm:"index" json:"outbox_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Op         string    `json:"op"`
	ErrorMsg   string    `json:"error_msg"`
	Payload    []byte    `gorm:"type:bytea" json:"payload"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	RetriedAt  *time.Time `json:"retried_at"`
	Resolved   bool      `gorm:"default:false" json:"resolved"`
}
