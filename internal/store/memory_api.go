package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/incridea/fest-backend/internal/models"
)

// Store method wiring for Memory (locks) and memTx (already inside a
// transaction, so no locking).

func (m *Memory) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.user(id)
}

func (m *Memory) Event(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.event(id)
}

func (m *Memory) CreateTeam(ctx context.Context, t *models.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.createTeam(t)
}

func (m *Memory) Team(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.team(id)
}

func (m *Memory) TeamByNameAndEvent(ctx context.Context, name string, eventID uuid.UUID) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.teamByNameAndEvent(name, eventID)
}

func (m *Memory) TeamOfUser(ctx context.Context, userID, eventID uuid.UUID) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.teamOfUser(userID, eventID)
}

func (m *Memory) SetTeamConfirmed(ctx context.Context, teamID uuid.UUID, confirmed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.setTeamConfirmed(teamID, confirmed)
}

func (m *Memory) DeleteTeam(ctx context.Context, teamID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.deleteTeam(teamID)
}

func (m *Memory) ConfirmedTeamCount(ctx context.Context, eventID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.confirmedTeamCount(eventID)
}

func (m *Memory) AddTeamMember(ctx context.Context, tm *models.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.addTeamMember(tm)
}

func (m *Memory) RemoveTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.removeTeamMember(teamID, userID)
}

func (m *Memory) TeamMemberCount(ctx context.Context, teamID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.teamMemberCount(teamID)
}

func (m *Memory) TeamMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.teamMembers(teamID)
}

func (m *Memory) CreateOrder(ctx context.Context, o *models.PaymentOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.createOrder(o)
}

func (m *Memory) OrderByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.orderByID(id)
}

func (m *Memory) OrderByGatewayID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.orderByGatewayID(orderID)
}

func (m *Memory) TransitionOrder(ctx context.Context, orderID string, from, to models.OrderStatus, collected int64, snapshot datatypes.JSON) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.transitionOrder(orderID, from, to, collected, snapshot)
}

func (m *Memory) SetOrderReceipt(ctx context.Context, orderID, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.setOrderReceipt(orderID, url)
}

func (m *Memory) PIDByUser(ctx context.Context, userID uuid.UUID) (*models.PID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.pidByUser(userID)
}

func (m *Memory) CreatePID(ctx context.Context, p *models.PID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.createPID(p)
}

func (m *Memory) NextPIDSequence(ctx context.Context, categoryCode string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.nextPIDSequence(categoryCode)
}

func (m *Memory) PriorUserExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.priorUserExists(email)
}

func (m *Memory) EnqueueReceiptJob(ctx context.Context, j *models.ReceiptJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.enqueueReceiptJob(j)
}

func (m *Memory) ClaimDueReceiptJobs(ctx context.Context, limit int, now time.Time) ([]models.ReceiptJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.claimDueReceiptJobs(limit, now)
}

func (m *Memory) ReclaimStaleReceiptJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.reclaimStaleReceiptJobs(cutoff)
}

func (m *Memory) RescheduleReceiptJob(ctx context.Context, id int64, attempts int, errMsg string, nextRun time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.rescheduleReceiptJob(id, attempts, errMsg, nextRun)
}

func (m *Memory) MarkReceiptJob(ctx context.Context, id int64, status models.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.markReceiptJob(id, status, errMsg)
}

func (m *Memory) ReceiptJob(ctx context.Context, id int64) (*models.ReceiptJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.receiptJob(id)
}

func (m *Memory) PutReceiptDLQ(ctx context.Context, job models.ReceiptJob, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.putReceiptDLQ(job, errMsg)
}

func (m *Memory) ListReceiptDLQ(ctx context.Context, limit int) ([]models.ReceiptDLQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.listReceiptDLQ(limit)
}

func (m *Memory) ReceiptDLQByID(ctx context.Context, id int64) (*models.ReceiptDLQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.receiptDLQByID(id)
}

func (m *Memory) ResolveReceiptDLQ(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.resolveReceiptDLQ(id)
}

func (m *Memory) AppendOutbox(ctx context.Context, entityType string, entityID uuid.UUID, op string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.appendOutbox(entityType, entityID, op, payload)
}

// ---- memTx (inside InTx, lock already held) ----

func (t *memTx) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return t.d.user(id)
}

func (t *memTx) Event(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return t.d.event(id)
}

func (t *memTx) CreateTeam(ctx context.Context, tm *models.Team) error {
	return t.d.createTeam(tm)
}

func (t *memTx) Team(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return t.d.team(id)
}

func (t *memTx) TeamByNameAndEvent(ctx context.Context, name string, eventID uuid.UUID) (*models.Team, error) {
	return t.d.teamByNameAndEvent(name, eventID)
}

func (t *memTx) TeamOfUser(ctx context.Context, userID, eventID uuid.UUID) (*models.Team, error) {
	return t.d.teamOfUser(userID, eventID)
}

func (t *memTx) SetTeamConfirmed(ctx context.Context, teamID uuid.UUID, confirmed bool) error {
	return t.d.setTeamConfirmed(teamID, confirmed)
}

func (t *memTx) DeleteTeam(ctx context.Context, teamID uuid.UUID) error {
	return t.d.deleteTeam(teamID)
}

func (t *memTx) ConfirmedTeamCount(ctx context.Context, eventID uuid.UUID) (int64, error) {
	return t.d.confirmedTeamCount(eventID)
}

func (t *memTx) AddTeamMember(ctx context.Context, m *models.TeamMember) error {
	return t.d.addTeamMember(m)
}

func (t *memTx) RemoveTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	return t.d.removeTeamMember(teamID, userID)
}

func (t *memTx) TeamMemberCount(ctx context.Context, teamID uuid.UUID) (int64, error) {
	return t.d.teamMemberCount(teamID)
}

func (t *memTx) TeamMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	return t.d.teamMembers(teamID)
}

func (t *memTx) CreateOrder(ctx context.Context, o *models.PaymentOrder) error {
	return t.d.createOrder(o)
}

func (t *memTx) OrderByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	return t.d.orderByID(id)
}

func (t *memTx) OrderByGatewayID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	return t.d.orderByGatewayID(orderID)
}

func (t *memTx) TransitionOrder(ctx context.Context, orderID string, from, to models.OrderStatus, collected int64, snapshot datatypes.JSON) (bool, error) {
	return t.d.transitionOrder(orderID, from, to, collected, snapshot)
}

func (t *memTx) SetOrderReceipt(ctx context.Context, orderID, url string) (bool, error) {
	return t.d.setOrderReceipt(orderID, url)
}

func (t *memTx) PIDByUser(ctx context.Context, userID uuid.UUID) (*models.PID, error) {
	return t.d.pidByUser(userID)
}

func (t *memTx) CreatePID(ctx context.Context, p *models.PID) error {
	return t.d.createPID(p)
}

func (t *memTx) NextPIDSequence(ctx context.Context, categoryCode string) (int64, error) {
	return t.d.nextPIDSequence(categoryCode)
}

func (t *memTx) PriorUserExists(ctx context.Context, email string) (bool, error) {
	return t.d.priorUserExists(email)
}

func (t *memTx) EnqueueReceiptJob(ctx context.Context, j *models.ReceiptJob) error {
	return t.d.enqueueReceiptJob(j)
}

func (t *memTx) ClaimDueReceiptJobs(ctx context.Context, limit int, now time.Time) ([]models.ReceiptJob, error) {
	return t.d.claimDueReceiptJobs(limit, now)
}

func (t *memTx) ReclaimStaleReceiptJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	return t.d.reclaimStaleReceiptJobs(cutoff)
}

func (t *memTx) RescheduleReceiptJob(ctx context.Context, id int64, attempts int, errMsg string, nextRun time.Time) error {
	return t.d.rescheduleReceiptJob(id, attempts, errMsg, nextRun)
}

func (t *memTx) MarkReceiptJob(ctx context.Context, id int64, status models.JobStatus, errMsg string) error {
	return t.d.markReceiptJob(id, status, errMsg)
}

func (t *memTx) ReceiptJob(ctx context.Context, id int64) (*models.ReceiptJob, error) {
	return t.d.receiptJob(id)
}

func (t *memTx) PutReceiptDLQ(ctx context.Context, job models.ReceiptJob, errMsg string) error {
	return t.d.putReceiptDLQ(job, errMsg)
}

func (t *memTx) ListReceiptDLQ(ctx context.Context, limit int) ([]models.ReceiptDLQ, error) {
	return t.d.listReceiptDLQ(limit)
}

func (t *memTx) ReceiptDLQByID(ctx context.Context, id int64) (*models.ReceiptDLQ, error) {
	return t.d.receiptDLQByID(id)
}

func (t *memTx) ResolveReceiptDLQ(ctx context.Context, id int64) error {
	return t.d.resolveReceiptDLQ(id)
}

func (t *memTx) AppendOutbox(ctx context.Context, entityType string, entityID uuid.UUID, op string, payload any) error {
	return t.d.appendOutbox(entityType, entityID, op, payload)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*memTx)(nil)
	_ Store = (*gormStore)(nil)
)
