package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/models"
)

type gormStore struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource)
	}
	return err
}

// ---------------- registration ----------------

func (s *gormStore) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *gormStore) Event(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var e models.Event
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "event")
	}
	return &e, nil
}

func (s *gormStore) CreateTeam(ctx context.Context, t *models.Team) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *gormStore) Team(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var t models.Team
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "team")
	}
	return &t, nil
}

func (s *gormStore) TeamByNameAndEvent(ctx context.Context, name string, eventID uuid.UUID) (*models.Team, error) {
	var t models.Team
	err := s.db.WithContext(ctx).First(&t, "name = ? AND event_id = ?", name, eventID).Error
	if err != nil {
		return nil, notFound(err, "team")
	}
	return &t, nil
}

func (s *gormStore) TeamOfUser(ctx context.Context, userID, eventID uuid.UUID) (*models.Team, error) {
	var t models.Team
	err := s.db.WithContext(ctx).
		Joins("JOIN team_members tm ON tm.team_id = teams.id").
		Where("tm.user_id = ? AND teams.event_id = ?", userID, eventID).
		First(&t).Error
	if err != nil {
		return nil, notFound(err, "team")
	}
	return &t, nil
}

func (s *gormStore) SetTeamConfirmed(ctx context.Context, teamID uuid.UUID, confirmed bool) error {
	return s.db.WithContext(ctx).Model(&models.Team{}).
		Where("id = ?", teamID).Update("confirmed", confirmed).Error
}

func (s *gormStore) DeleteTeam(ctx context.Context, teamID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&models.TeamMember{}, "team_id = ?", teamID).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Team{}, "id = ?", teamID).Error
}

func (s *gormStore) ConfirmedTeamCount(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Team{}).
		Where("event_id = ? AND confirmed = true", eventID).Count(&n).Error
	return n, err
}

func (s *gormStore) AddTeamMember(ctx context.Context, m *models.TeamMember) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *gormStore) RemoveTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Delete(&models.TeamMember{}, "team_id = ? AND user_id = ?", teamID, userID)
	return res.RowsAffected > 0, res.Error
}

func (s *gormStore) TeamMemberCount(ctx context.Context, teamID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ?", teamID).Count(&n).Error
	return n, err
}

func (s *gormStore) TeamMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	var out []models.TeamMember
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).Order("id asc").Find(&out).Error
	return out, err
}

// ---------------- payment ledger ----------------

func (s *gormStore) CreateOrder(ctx context.Context, o *models.PaymentOrder) error {
	return s.db.WithContext(ctx).Create(o).Error
}

func (s *gormStore) OrderByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	if err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "payment order")
	}
	return &o, nil
}

func (s *gormStore) OrderByGatewayID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	if err := s.db.WithContext(ctx).First(&o, "order_id = ?", orderID).Error; err != nil {
		return nil, notFound(err, "payment order")
	}
	return &o, nil
}

// TransitionOrder advances PENDING to a terminal state. The WHERE on the
// current status makes duplicate webhook delivery a no-op.
func (s *gormStore) TransitionOrder(ctx context.Context, orderID string, from, to models.OrderStatus, collected int64, snapshot datatypes.JSON) (bool, error) {
	updates := map[string]any{"status": to, "collected_amount": collected}
	if snapshot != nil {
		updates["payment_data"] = snapshot
	}
	res := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// SetOrderReceipt only writes when no receipt is attached yet, so a
// retry race cannot overwrite an earlier artifact.
func (s *gormStore) SetOrderReceipt(ctx context.Context, orderID, url string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("order_id = ? AND receipt IS NULL", orderID).
		Update("receipt", url)
	return res.RowsAffected > 0, res.Error
}

// ---------------- identity ----------------

func (s *gormStore) PIDByUser(ctx context.Context, userID uuid.UUID) (*models.PID, error) {
	var p models.PID
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "pid")
	}
	return &p, nil
}

func (s *gormStore) CreatePID(ctx context.Context, p *models.PID) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// NextPIDSequence is the one contended write. The upsert-increment is a
// single statement so two concurrent issuances can never read the same
// value.
func (s *gormStore) NextPIDSequence(ctx context.Context, categoryCode string) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Raw(`
		INSERT INTO pid_counters (category_code, value)
		VALUES (?, 1)
		ON CONFLICT (category_code)
		DO UPDATE SET value = pid_counters.value + 1
		RETURNING value`, categoryCode).Scan(&value).Error
	return value, err
}

func (s *gormStore) PriorUserExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.PriorUser{}).
		Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// ---------------- receipt queue ----------------

func (s *gormStore) EnqueueReceiptJob(ctx context.Context, j *models.ReceiptJob) error {
	if j.Status == "" {
		j.Status = models.JobPending
	}
	return s.db.WithContext(ctx).Create(j).Error
}

// ClaimDueReceiptJobs marks due jobs processing and returns them.
// FOR UPDATE SKIP LOCKED lets multiple workers claim disjoint batches.
func (s *gormStore) ClaimDueReceiptJobs(ctx context.Context, limit int, now time.Time) ([]models.ReceiptJob, error) {
	var jobs []models.ReceiptJob
	tx := s.db.WithContext(ctx).Raw(`
		WITH cte AS (
		  SELECT * FROM receipt_jobs
		  WHERE status = 'pending' AND next_run_at <= ?
		  ORDER BY id ASC
		  LIMIT ?
		  FOR UPDATE SKIP LOCKED
		)
		UPDATE receipt_jobs SET status = 'processing', updated_at = ?
		FROM cte
		WHERE receipt_jobs.id = cte.id
		RETURNING cte.*`, now, limit, now).Scan(&jobs)
	return jobs, tx.Error
}

// ReclaimStaleReceiptJobs recovers jobs a crashed worker left behind:
// anything still processing since before cutoff goes back to pending.
func (s *gormStore) ReclaimStaleReceiptJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.ReceiptJob{}).
		Where("status = ? AND updated_at < ?", models.JobProcessing, cutoff).
		Update("status", models.JobPending)
	return res.RowsAffected, res.Error
}

func (s *gormStore) RescheduleReceiptJob(ctx context.Context, id int64, attempts int, errMsg string, nextRun time.Time) error {
	return s.db.WithContext(ctx).Model(&models.ReceiptJob{}).Where("id = ?", id).Updates(map[string]any{
		"status":      models.JobPending,
		"attempts":    attempts,
		"last_error":  errMsg,
		"next_run_at": nextRun,
	}).Error
}

func (s *gormStore) MarkReceiptJob(ctx context.Context, id int64, status models.JobStatus, errMsg string) error {
	return s.db.WithContext(ctx).Model(&models.ReceiptJob{}).Where("id = ?", id).Updates(map[string]any{
		"status":     status,
		"last_error": errMsg,
	}).Error
}

func (s *gormStore) ReceiptJob(ctx context.Context, id int64) (*models.ReceiptJob, error) {
	var j models.ReceiptJob
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "receipt job")
	}
	return &j, nil
}

func (s *gormStore) PutReceiptDLQ(ctx context.Context, job models.ReceiptJob, errMsg string) error {
	return s.db.WithContext(ctx).Create(&models.ReceiptDLQ{
		JobID:    job.ID,
		OrderID:  job.OrderID,
		ErrorMsg: errMsg,
		Payload:  job.Payload,
	}).Error
}

func (s *gormStore) ListReceiptDLQ(ctx context.Context, limit int) ([]models.ReceiptDLQ, error) {
	var out []models.ReceiptDLQ
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

func (s *gormStore) ReceiptDLQByID(ctx context.Context, id int64) (*models.ReceiptDLQ, error) {
	var d models.ReceiptDLQ
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "dlq entry")
	}
	return &d, nil
}

func (s *gormStore) ResolveReceiptDLQ(ctx context.Context, id int64) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.ReceiptDLQ{}).Where("id = ?", id).Updates(map[string]any{
		"resolved":   true,
		"retried_at": &now,
	}).Error
}

// ---------------- outbox ----------------

func (s *gormStore) AppendOutbox(ctx context.Context, entityType string, entityID uuid.UUID, op string, payload any) error {
	data, _ := json.Marshal(payload)
	return s.db.WithContext(ctx).Create(&models.Outbox{
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    datatypes.JSON(data),
	}).Error
}
