package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserCategory string

const (
	CategoryInternal UserCategory = "INTERNAL"
	CategoryExternal UserCategory = "EXTERNAL"
	CategoryAlumni   UserCategory = "ALUMNI"
)

type EventType string

const (
	EventIndividual              EventType = "INDIVIDUAL"
	EventTeam                    EventType = "TEAM"
	EventIndividualMultipleEntry EventType = "INDIVIDUAL_MULTIPLE_ENTRY"
	EventTeamMultipleEntry       EventType = "TEAM_MULTIPLE_ENTRY"
)

// Solo reports whether the event is registered via synthetic one-member teams.
func (t EventType) Solo() bool {
	return t == EventIndividual || t == EventIndividualMultipleEntry
}

type OrderStatus string

const (
	OrderPending OrderStatus = "PENDING"
	OrderSuccess OrderStatus = "SUCCESS"
	OrderFailed  OrderStatus = "FAILED"
)

type OrderType string

const (
	OrderFestRegistration  OrderType = "FEST_REGISTRATION"
	OrderAccRegistration   OrderType = "ACC_REGISTRATION"
	OrderEventRegistration OrderType = "EVENT_REGISTRATION"
)

// ---------------- USERS ----------------
type User struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"uniqueIndex;not null" json:"email"`
	Category  UserCategory `gorm:"type:varchar(20);not null;default:'EXTERNAL'" json:"category"`
	College   string       `json:"college"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ---------------- EVENTS ----------------
type Event struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Type        EventType `gorm:"type:varchar(30);not null" json:"type"`
	MinTeamSize int       `gorm:"not null;default:1" json:"min_team_size"`
	MaxTeamSize int       `gorm:"not null;default:1" json:"max_team_size"`
	// MaxTeams nil means unlimited confirmed teams.
	MaxTeams  *int      `json:"max_teams"`
	Fees      int64     `gorm:"not null;default:0" json:"fees"` // paise, 0 = free
	Published bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ---------------- TEAMS ----------------
// Solo registrations are one-member teams whose name is the user id.
type Team struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:ux_teams_name_event;not null" json:"name"`
	EventID   uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_teams_name_event;index;not null" json:"event_id"`
	LeaderID  uuid.UUID `gorm:"type:uuid;not null" json:"leader_id"`
	Confirmed bool      `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TeamMember struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID    uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_team_members_team_user;index;not null" json:"team_id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_team_members_team_user;index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ---------------- PAYMENT LEDGER ----------------
type PaymentOrder struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	// OrderID is the gateway-assigned order identifier.
	OrderID         string         `gorm:"uniqueIndex;not null" json:"order_id"`
	UserID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Type            OrderType      `gorm:"type:varchar(30);not null" json:"type"`
	Status          OrderStatus    `gorm:"type:varchar(10);not null;default:'PENDING';index" json:"status"`
	Amount          int64          `gorm:"not null" json:"amount"` // paise
	CollectedAmount int64          `gorm:"not null;default:0" json:"collected_amount"`
	PaymentData     datatypes.JSON `json:"payment_data"`
	Receipt         *string        `json:"receipt"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ---------------- IDENTITY ----------------
type PID struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code           string    `gorm:"uniqueIndex;not null" json:"code"`
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	PaymentOrderID uuid.UUID `gorm:"type:uuid;not null" json:"payment_order_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// PIDCounter holds the last issued sequence per category code. Rows are
// only ever touched via an atomic upsert-increment.
type PIDCounter struct {
	CategoryCode string `gorm:"primaryKey" json:"category_code"`
	Value        int64  `gorm:"not null;default:0" json:"value"`
}

// PriorUser is the historical participant list; presence (by email)
// selects the returning code in the PID.
type PriorUser struct {
	Email     string    `gorm:"primaryKey" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ---------------- OUTBOX (search sync events) ----------------
type Outbox struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string    `gorm:"index;not null" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null" json:"entity_id"`
	Op         string    `gorm:"not null" json:"op"` // UPSERT | DELETE
	Payload    datatypes.JSON
	CreatedAt  time.Time `json:"created_at"`
	Processed  bool      `gorm:"default:false" json:"processed"`
}
