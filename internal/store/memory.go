package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/models"
)

// Memory is an in-memory Store used by tests. Transactions are
// serialized behind one mutex, which gives InTx the same atomicity
// guarantees the gorm implementation gets from Postgres (without
// rollback, which the services do not rely on: they validate before
// writing).
type Memory struct {
	mu sync.Mutex
	d  *memData
}

func NewMemory() *Memory {
	return &Memory{d: newMemData()}
}

func (m *Memory) InTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{d: m.d})
}

// Seeding helpers for tests.

func (m *Memory) AddUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.d.users[u.ID] = u
	return u
}

func (m *Memory) AddEvent(e models.Event) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.d.events[e.ID] = e
	return e
}

func (m *Memory) AddPriorUser(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.priorUsers[email] = true
}

func (m *Memory) OutboxEvents() []models.Outbox {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Outbox, len(m.d.outbox))
	copy(out, m.d.outbox)
	return out
}

// memTx is the unlocked view handed to InTx callbacks.
type memTx struct {
	d *memData
}

// Nested transactions just join the outer one.
func (t *memTx) InTx(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

type memData struct {
	users      map[uuid.UUID]models.User
	events     map[uuid.UUID]models.Event
	teams      map[uuid.UUID]models.Team
	members    []models.TeamMember
	memberSeq  int64
	orders     map[uuid.UUID]models.PaymentOrder
	byGateway  map[string]uuid.UUID
	pids       map[uuid.UUID]models.PID
	pidSeq     int64
	counters   map[string]int64
	priorUsers map[string]bool
	jobs       map[int64]models.ReceiptJob
	jobSeq     int64
	dlq        map[int64]models.ReceiptDLQ
	dlqSeq     int64
	outbox     []models.Outbox
}

func newMemData() *memData {
	return &memData{
		users:      map[uuid.UUID]models.User{},
		events:     map[uuid.UUID]models.Event{},
		teams:      map[uuid.UUID]models.Team{},
		orders:     map[uuid.UUID]models.PaymentOrder{},
		byGateway:  map[string]uuid.UUID{},
		pids:       map[uuid.UUID]models.PID{},
		counters:   map[string]int64{},
		priorUsers: map[string]bool{},
		jobs:       map[int64]models.ReceiptJob{},
		dlq:        map[int64]models.ReceiptDLQ{},
	}
}

// ---------------- registration ----------------

func (d *memData) user(id uuid.UUID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	return &u, nil
}

func (d *memData) event(id uuid.UUID) (*models.Event, error) {
	e, ok := d.events[id]
	if !ok {
		return nil, apperror.NotFound("event")
	}
	return &e, nil
}

func (d *memData) createTeam(t *models.Team) error {
	for _, existing := range d.teams {
		if existing.EventID == t.EventID && existing.Name == t.Name {
			return apperror.Conflict("team name already taken")
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	d.teams[t.ID] = *t
	return nil
}

func (d *memData) team(id uuid.UUID) (*models.Team, error) {
	t, ok := d.teams[id]
	if !ok {
		return nil, apperror.NotFound("team")
	}
	return &t, nil
}

func (d *memData) teamByNameAndEvent(name string, eventID uuid.UUID) (*models.Team, error) {
	for _, t := range d.teams {
		if t.EventID == eventID && t.Name == name {
			t := t
			return &t, nil
		}
	}
	return nil, apperror.NotFound("team")
}

func (d *memData) teamOfUser(userID, eventID uuid.UUID) (*models.Team, error) {
	for _, m := range d.members {
		if m.UserID != userID {
			continue
		}
		t, ok := d.teams[m.TeamID]
		if ok && t.EventID == eventID {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("team")
}

func (d *memData) setTeamConfirmed(teamID uuid.UUID, confirmed bool) error {
	t, ok := d.teams[teamID]
	if !ok {
		return apperror.NotFound("team")
	}
	t.Confirmed = confirmed
	d.teams[teamID] = t
	return nil
}

func (d *memData) deleteTeam(teamID uuid.UUID) error {
	kept := d.members[:0]
	for _, m := range d.members {
		if m.TeamID != teamID {
			kept = append(kept, m)
		}
	}
	d.members = kept
	delete(d.teams, teamID)
	return nil
}

func (d *memData) confirmedTeamCount(eventID uuid.UUID) (int64, error) {
	var n int64
	for _, t := range d.teams {
		if t.EventID == eventID && t.Confirmed {
			n++
		}
	}
	return n, nil
}

func (d *memData) addTeamMember(m *models.TeamMember) error {
	for _, existing := range d.members {
		if existing.TeamID == m.TeamID && existing.UserID == m.UserID {
			return apperror.Conflict("already a member of this team")
		}
	}
	d.memberSeq++
	m.ID = d.memberSeq
	m.CreatedAt = time.Now()
	d.members = append(d.members, *m)
	return nil
}

func (d *memData) removeTeamMember(teamID, userID uuid.UUID) (bool, error) {
	for i, m := range d.members {
		if m.TeamID == teamID && m.UserID == userID {
			d.members = append(d.members[:i], d.members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (d *memData) teamMemberCount(teamID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range d.members {
		if m.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (d *memData) teamMembers(teamID uuid.UUID) ([]models.TeamMember, error) {
	var out []models.TeamMember
	for _, m := range d.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ---------------- payment ledger ----------------

func (d *memData) createOrder(o *models.PaymentOrder) error {
	if _, dup := d.byGateway[o.OrderID]; dup {
		return apperror.Conflict("order id already recorded")
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	o.CreatedAt = time.Now()
	d.orders[o.ID] = *o
	d.byGateway[o.OrderID] = o.ID
	return nil
}

func (d *memData) orderByID(id uuid.UUID) (*models.PaymentOrder, error) {
	o, ok := d.orders[id]
	if !ok {
		return nil, apperror.NotFound("payment order")
	}
	return &o, nil
}

func (d *memData) orderByGatewayID(orderID string) (*models.PaymentOrder, error) {
	id, ok := d.byGateway[orderID]
	if !ok {
		return nil, apperror.NotFound("payment order")
	}
	return d.orderByID(id)
}

func (d *memData) transitionOrder(orderID string, from, to models.OrderStatus, collected int64, snapshot datatypes.JSON) (bool, error) {
	id, ok := d.byGateway[orderID]
	if !ok {
		return false, nil
	}
	o := d.orders[id]
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.CollectedAmount = collected
	if snapshot != nil {
		o.PaymentData = snapshot
	}
	d.orders[id] = o
	return true, nil
}

func (d *memData) setOrderReceipt(orderID, url string) (bool, error) {
	id, ok := d.byGateway[orderID]
	if !ok {
		return false, nil
	}
	o := d.orders[id]
	if o.Receipt != nil {
		return false, nil
	}
	o.Receipt = &url
	d.orders[id] = o
	return true, nil
}

// ---------------- identity ----------------

func (d *memData) pidByUser(userID uuid.UUID) (*models.PID, error) {
	p, ok := d.pids[userID]
	if !ok {
		return nil, apperror.NotFound("pid")
	}
	return &p, nil
}

func (d *memData) createPID(p *models.PID) error {
	if _, dup := d.pids[p.UserID]; dup {
		return apperror.Conflict("pid already issued")
	}
	d.pidSeq++
	p.ID = d.pidSeq
	p.CreatedAt = time.Now()
	d.pids[p.UserID] = *p
	return nil
}

func (d *memData) nextPIDSequence(categoryCode string) (int64, error) {
	d.counters[categoryCode]++
	return d.counters[categoryCode], nil
}

func (d *memData) priorUserExists(email string) (bool, error) {
	return d.priorUsers[email], nil
}

// ---------------- receipt queue ----------------

func (d *memData) enqueueReceiptJob(j *models.ReceiptJob) error {
	d.jobSeq++
	j.ID = d.jobSeq
	if j.Status == "" {
		j.Status = models.JobPending
	}
	j.CreatedAt = time.Now()
	d.jobs[j.ID] = *j
	return nil
}

func (d *memData) claimDueReceiptJobs(limit int, now time.Time) ([]models.ReceiptJob, error) {
	var out []models.ReceiptJob
	for id := int64(1); id <= d.jobSeq && len(out) < limit; id++ {
		j, ok := d.jobs[id]
		if !ok || j.Status != models.JobPending || j.NextRunAt.After(now) {
			continue
		}
		j.Status = models.JobProcessing
		j.UpdatedAt = now
		d.jobs[id] = j
		out = append(out, j)
	}
	return out, nil
}

func (d *memData) reclaimStaleReceiptJobs(cutoff time.Time) (int64, error) {
	var n int64
	for id, j := range d.jobs {
		if j.Status == models.JobProcessing && j.UpdatedAt.Before(cutoff) {
			j.Status = models.JobPending
			j.UpdatedAt = cutoff
			d.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (d *memData) rescheduleReceiptJob(id int64, attempts int, errMsg string, nextRun time.Time) error {
	j, ok := d.jobs[id]
	if !ok {
		return apperror.NotFound("receipt job")
	}
	j.Status = models.JobPending
	j.Attempts = attempts
	j.LastError = errMsg
	j.NextRunAt = nextRun
	d.jobs[id] = j
	return nil
}

func (d *memData) markReceiptJob(id int64, status models.JobStatus, errMsg string) error {
	j, ok := d.jobs[id]
	if !ok {
		return apperror.NotFound("receipt job")
	}
	j.Status = status
	j.LastError = errMsg
	d.jobs[id] = j
	return nil
}

func (d *memData) receiptJob(id int64) (*models.ReceiptJob, error) {
	j, ok := d.jobs[id]
	if !ok {
		return nil, apperror.NotFound("receipt job")
	}
	return &j, nil
}

func (d *memData) putReceiptDLQ(job models.ReceiptJob, errMsg string) error {
	d.dlqSeq++
	d.dlq[d.dlqSeq] = models.ReceiptDLQ{
		ID:        d.dlqSeq,
		JobID:     job.ID,
		OrderID:   job.OrderID,
		ErrorMsg:  errMsg,
		Payload:   job.Payload,
		CreatedAt: time.Now(),
	}
	return nil
}

func (d *memData) listReceiptDLQ(limit int) ([]models.ReceiptDLQ, error) {
	var out []models.ReceiptDLQ
	for id := d.dlqSeq; id >= 1 && len(out) < limit; id-- {
		if entry, ok := d.dlq[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (d *memData) receiptDLQByID(id int64) (*models.ReceiptDLQ, error) {
	entry, ok := d.dlq[id]
	if !ok {
		return nil, apperror.NotFound("dlq entry")
	}
	return &entry, nil
}

func (d *memData) resolveReceiptDLQ(id int64) error {
	entry, ok := d.dlq[id]
	if !ok {
		return apperror.NotFound("dlq entry")
	}
	now := time.Now()
	entry.Resolved = true
	entry.RetriedAt = &now
	d.dlq[id] = entry
	return nil
}

// ---------------- outbox ----------------

func (d *memData) appendOutbox(entityType string, entityID uuid.UUID, op string, payload any) error {
	data, _ := json.Marshal(payload)
	d.outbox = append(d.outbox, models.Outbox{
		ID:         int64(len(d.outbox) + 1),
		EntityType: entityType,
		EntityID:   entityID,
		Op:         op,
		Payload:    datatypes.JSON(data),
		CreatedAt:  time.Now(),
	})
	return nil
}
