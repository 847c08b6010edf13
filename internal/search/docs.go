package search

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/incridea/fest-backend/internal/models"
)

type ParticipantDoc struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	College   string    `json:"college"`
	PID       string    `json:"pid,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func BuildParticipantDoc(u models.User, pidCode string) ([]byte, error) {
	return json.Marshal(ParticipantDoc{
		Name:      u.Name,
		Email:     u.Email,
		Category:  string(u.Category),
		College:   u.College,
		PID:       pidCode,
		UpdatedAt: u.UpdatedAt,
	})
}

type TeamDoc struct {
	Name      string      `json:"name"`
	EventID   uuid.UUID   `json:"event_id"`
	LeaderID  uuid.UUID   `json:"leader_id"`
	Confirmed bool        `json:"confirmed"`
	MemberIDs []uuid.UUID `json:"member_ids"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func BuildTeamDoc(t models.Team, members []models.TeamMember) ([]byte, error) {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return json.Marshal(TeamDoc{
		Name:      t.Name,
		EventID:   t.EventID,
		LeaderID:  t.LeaderID,
		Confirmed: t.Confirmed,
		MemberIDs: ids,
		UpdatedAt: t.UpdatedAt,
	})
}

type EventDoc struct {
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Fees      int64     `json:"fees"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

func BuildEventDoc(e models.Event) ([]byte, error) {
	return json.Marshal(EventDoc{
		Name:      e.Name,
		Type:      string(e.Type),
		Fees:      e.Fees,
		Published: e.Published,
		UpdatedAt: e.UpdatedAt,
	})
}
