// Package store is the data layer. Services depend on the Store
// interface; the gorm implementation backs production and the memory
// implementation backs tests.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/incridea/fest-backend/internal/models"
)

// RegistrationStore covers users, events, teams and memberships.
// Capacity counts are always derived by querying, never cached, so a
// mutating transaction sees current state.
type RegistrationStore interface {
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
	Event(ctx context.Context, id uuid.UUID) (*models.Event, error)

	CreateTeam(ctx context.Context, t *models.Team) error
	Team(ctx context.Context, id uuid.UUID) (*models.Team, error)
	TeamByNameAndEvent(ctx context.Context, name string, eventID uuid.UUID) (*models.Team, error)
	TeamOfUser(ctx context.Context, userID, eventID uuid.UUID) (*models.Team, error)
	SetTeamConfirmed(ctx context.Context, teamID uuid.UUID, confirmed bool) error
	DeleteTeam(ctx context.Context, teamID uuid.UUID) error
	ConfirmedTeamCount(ctx context.Context, eventID uuid.UUID) (int64, error)

	AddTeamMember(ctx context.Context, m *models.TeamMember) error
	RemoveTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
	TeamMemberCount(ctx context.Context, teamID uuid.UUID) (int64, error)
	TeamMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
}

// LedgerStore covers the payment order lifecycle. TransitionOrder and
// SetOrderReceipt are conditional writes and report whether a row
// actually changed, which is the idempotency backstop for duplicate
// webhook delivery and racing receipt workers.
type LedgerStore interface {
	CreateOrder(ctx context.Context, o *models.PaymentOrder) error
	OrderByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error)
	OrderByGatewayID(ctx context.Context, orderID string) (*models.PaymentOrder, error)
	TransitionOrder(ctx context.Context, orderID string, from, to models.OrderStatus, collected int64, snapshot datatypes.JSON) (bool, error)
	SetOrderReceipt(ctx context.Context, orderID, url string) (bool, error)
}

// IdentityStore covers PID issuance. NextPIDSequence must be a single
// atomic upsert-increment; it is the only serialized hot spot.
type IdentityStore interface {
	PIDByUser(ctx context.Context, userID uuid.UUID) (*models.PID, error)
	CreatePID(ctx context.Context, p *models.PID) error
	NextPIDSequence(ctx context.Context, categoryCode string) (int64, error)
	PriorUserExists(ctx context.Context, email string) (bool, error)
}

// ReceiptQueue is the durable job queue behind the receipt pipeline.
type ReceiptQueue interface {
	EnqueueReceiptJob(ctx context.Context, j *models.ReceiptJob) error
	ClaimDueReceiptJobs(ctx context.Context, limit int, now time.Time) ([]models.ReceiptJob, error)
	// ReclaimStaleReceiptJobs returns jobs stuck in processing since
	// before cutoff to pending, recovering from a crashed worker.
	ReclaimStaleReceiptJobs(ctx context.Context, cutoff time.Time) (int64, error)
	RescheduleReceiptJob(ctx context.Context, id int64, attempts int, errMsg string, nextRun time.Time) error
	MarkReceiptJob(ctx context.Context, id int64, status models.JobStatus, errMsg string) error
	ReceiptJob(ctx context.Context, id int64) (*models.ReceiptJob, error)

	PutReceiptDLQ(ctx context.Context, job models.ReceiptJob, errMsg string) error
	ListReceiptDLQ(ctx context.Context, limit int) ([]models.ReceiptDLQ, error)
	ReceiptDLQByID(ctx context.Context, id int64) (*models.ReceiptDLQ, error)
	ResolveReceiptDLQ(ctx context.Context, id int64) error
}

type Store interface {
	RegistrationStore
	LedgerStore
	IdentityStore
	ReceiptQueue

	// AppendOutbox records a search-sync event; callers invoke it inside
	// the same transaction as the mutation it mirrors.
	AppendOutbox(ctx context.Context, entityType string, entityID uuid.UUID, op string, payload any) error

	// InTx runs fn atomically. The Store handed to fn sees uncommitted
	// writes made earlier in the same transaction.
	InTx(ctx context.Context, fn func(Store) error) error
}
