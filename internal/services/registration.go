package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/models"
	"github.com/incridea/fest-backend/internal/store"
)

const maxTeamNameLength = 50

// RegistrationService is the team registration state machine. Every
// mutating operation runs inside one store transaction and re-derives
// capacity and uniqueness there, so concurrent registrations racing on
// the same event cannot act on stale counts.
type RegistrationService struct {
	store store.Store
	// crossCollegeExempt lists events where mixed-college teams are
	// allowed. Configured policy, see config.CrossCollegeExempt.
	crossCollegeExempt map[uuid.UUID]bool
}

func NewRegistrationService(st store.Store, crossCollegeExempt map[uuid.UUID]bool) *RegistrationService {
	if crossCollegeExempt == nil {
		crossCollegeExempt = map[uuid.UUID]bool{}
	}
	return &RegistrationService{store: st, crossCollegeExempt: crossCollegeExempt}
}

// TeamWithMembers is the read model behind GET /registration/my-team.
type TeamWithMembers struct {
	Team    models.Team         `json:"team"`
	Members []models.TeamMember `json:"members"`
}

// RegisterSolo registers a user for an individual event as a synthetic
// one-member team named after the user id. Free events auto-confirm;
// paid ones stay unconfirmed until the payment pipeline confirms them.
func (s *RegistrationService) RegisterSolo(ctx context.Context, userID, eventID uuid.UUID) (*models.Team, error) {
	var team *models.Team
	err := s.store.InTx(ctx, func(tx store.Store) error {
		ev, err := tx.Event(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.Type.Solo() {
			return apperror.Validation("this event requires team registration")
		}
		if err := s.ensureNotRegistered(ctx, tx, userID, eventID); err != nil {
			return err
		}

		// Self-heal a stale synthetic team left by a prior partial
		// failure: same name, zero members.
		if orphan, err := tx.TeamByNameAndEvent(ctx, userID.String(), eventID); err == nil {
			n, err := tx.TeamMemberCount(ctx, orphan.ID)
			if err != nil {
				return err
			}
			if n == 0 {
				log.Printf("🧹 deleting orphaned solo team %s (event %s)", orphan.ID, eventID)
				if err := tx.DeleteTeam(ctx, orphan.ID); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		team = &models.Team{
			Name:      userID.String(),
			EventID:   eventID,
			LeaderID:  userID,
			Confirmed: ev.Fees == 0,
		}
		if err := tx.CreateTeam(ctx, team); err != nil {
			return err
		}
		if err := tx.AddTeamMember(ctx, &models.TeamMember{TeamID: team.ID, UserID: userID}); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, "team", team.ID, "UPSERT", team)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// CreateTeam creates an unconfirmed team for a team event. Capacity
// counts only confirmed teams.
func (s *RegistrationService) CreateTeam(ctx context.Context, userID, eventID uuid.UUID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("team name is required")
	}
	if len(name) > maxTeamNameLength {
		return nil, apperror.Validation(fmt.Sprintf("team name must be %d characters or less", maxTeamNameLength))
	}

	var team *models.Team
	err := s.store.InTx(ctx, func(tx store.Store) error {
		ev, err := tx.Event(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.Type.Solo() {
			return apperror.Validation("this event takes individual registrations")
		}
		if err := s.ensureNotRegistered(ctx, tx, userID, eventID); err != nil {
			return err
		}
		if err := s.ensureEventHasRoom(ctx, tx, ev); err != nil {
			return err
		}
		if _, err := tx.TeamByNameAndEvent(ctx, name, eventID); err == nil {
			return apperror.Conflict("Team name already taken")
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		team = &models.Team{Name: name, EventID: eventID, LeaderID: userID}
		if err := tx.CreateTeam(ctx, team); err != nil {
			return err
		}
		if err := tx.AddTeamMember(ctx, &models.TeamMember{TeamID: team.ID, UserID: userID}); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, "team", team.ID, "UPSERT", team)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// JoinTeam adds a user to an unconfirmed team, subject to size and
// cross-college policy.
func (s *RegistrationService) JoinTeam(ctx context.Context, userID, teamID uuid.UUID) (*models.Team, error) {
	var team *models.Team
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		team, err = tx.Team(ctx, teamID)
		if err != nil {
			return err
		}
		ev, err := tx.Event(ctx, team.EventID)
		if err != nil {
			return err
		}
		if ev.Type.Solo() {
			return apperror.Validation("this event takes individual registrations")
		}
		if team.Confirmed {
			return apperror.Conflict("Team is locked")
		}
		if err := s.ensureNotRegistered(ctx, tx, userID, team.EventID); err != nil {
			return err
		}
		n, err := tx.TeamMemberCount(ctx, teamID)
		if err != nil {
			return err
		}
		if n >= int64(ev.MaxTeamSize) {
			return apperror.Conflict("Team is full")
		}
		if !s.crossCollegeExempt[team.EventID] {
			leader, err := tx.User(ctx, team.LeaderID)
			if err != nil {
				return err
			}
			joiner, err := tx.User(ctx, userID)
			if err != nil {
				return err
			}
			if leader.College != joiner.College {
				return apperror.Conflict("Cross-college teams are not allowed for this event")
			}
		}
		if err := tx.AddTeamMember(ctx, &models.TeamMember{TeamID: teamID, UserID: userID}); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, "team", teamID, "UPSERT", team)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// ConfirmTeam is the leader-driven confirmation path for free events.
// Paid teams are only confirmed by the payment pipeline.
func (s *RegistrationService) ConfirmTeam(ctx context.Context, userID, teamID uuid.UUID) (*models.Team, error) {
	var team *models.Team
	err := s.store.InTx(ctx, func(tx store.Store) error {
		var err error
		team, err = tx.Team(ctx, teamID)
		if err != nil {
			return err
		}
		if team.LeaderID != userID {
			return apperror.Forbidden("only the team leader can confirm the team")
		}
		if team.Confirmed {
			return nil
		}
		ev, err := tx.Event(ctx, team.EventID)
		if err != nil {
			return err
		}
		if ev.Fees > 0 {
			return apperror.Conflict("Paid events are confirmed on payment, not manually")
		}
		n, err := tx.TeamMemberCount(ctx, teamID)
		if err != nil {
			return err
		}
		if n < int64(ev.MinTeamSize) {
			return apperror.Conflict(fmt.Sprintf("Team needs at least %d members", ev.MinTeamSize))
		}
		if err := s.ensureEventHasRoom(ctx, tx, ev); err != nil {
			return err
		}
		if err := tx.SetTeamConfirmed(ctx, teamID, true); err != nil {
			return err
		}
		team.Confirmed = true
		return tx.AppendOutbox(ctx, "team", teamID, "UPSERT", team)
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// ConfirmPaidTeam is the payment-success path: it bypasses the fee gate
// but still honors capacity and the minimum team size. Called by the
// webhook reconciler, which logs a failure and acks anyway.
func (s *RegistrationService) ConfirmPaidTeam(ctx context.Context, teamID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx store.Store) error {
		team, err := tx.Team(ctx, teamID)
		if err != nil {
			return err
		}
		if team.Confirmed {
			return nil
		}
		ev, err := tx.Event(ctx, team.EventID)
		if err != nil {
			return err
		}
		n, err := tx.TeamMemberCount(ctx, teamID)
		if err != nil {
			return err
		}
		if n < int64(ev.MinTeamSize) {
			return apperror.Conflict(fmt.Sprintf("Team needs at least %d members", ev.MinTeamSize))
		}
		if err := s.ensureEventHasRoom(ctx, tx, ev); err != nil {
			return err
		}
		if err := tx.SetTeamConfirmed(ctx, teamID, true); err != nil {
			return err
		}
		team.Confirmed = true
		return tx.AppendOutbox(ctx, "team", teamID, "UPSERT", team)
	})
}

// LeaveTeam removes the caller from a team. The last member leaving
// deletes the team, so a later registration behaves as if the team
// never existed.
func (s *RegistrationService) LeaveTeam(ctx context.Context, userID, teamID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx store.Store) error {
		team, err := tx.Team(ctx, teamID)
		if err != nil {
			return err
		}
		ev, err := tx.Event(ctx, team.EventID)
		if err != nil {
			return err
		}
		if team.Confirmed && ev.Fees > 0 {
			return apperror.Conflict("Cannot leave a confirmed team for a paid event")
		}
		removed, err := tx.RemoveTeamMember(ctx, teamID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return apperror.NotFound("team membership")
		}
		n, err := tx.TeamMemberCount(ctx, teamID)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := tx.DeleteTeam(ctx, teamID); err != nil {
				return err
			}
			return tx.AppendOutbox(ctx, "team", teamID, "DELETE", nil)
		}
		return tx.AppendOutbox(ctx, "team", teamID, "UPSERT", team)
	})
}

// DeleteTeam disbands the team. Leader only.
func (s *RegistrationService) DeleteTeam(ctx context.Context, userID, teamID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx store.Store) error {
		team, err := tx.Team(ctx, teamID)
		if err != nil {
			return err
		}
		if team.LeaderID != userID {
			return apperror.Forbidden("only the team leader can delete the team")
		}
		ev, err := tx.Event(ctx, team.EventID)
		if err != nil {
			return err
		}
		if team.Confirmed && ev.Fees > 0 {
			return apperror.Conflict("Cannot delete a confirmed team for a paid event")
		}
		if err := tx.DeleteTeam(ctx, teamID); err != nil {
			return err
		}
		return tx.AppendOutbox(ctx, "team", teamID, "DELETE", nil)
	})
}

// MyTeam returns the caller's team for an event, with members.
func (s *RegistrationService) MyTeam(ctx context.Context, userID, eventID uuid.UUID) (*TeamWithMembers, error) {
	team, err := s.store.TeamOfUser(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.TeamMembers(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	return &TeamWithMembers{Team: *team, Members: members}, nil
}

func (s *RegistrationService) ensureNotRegistered(ctx context.Context, tx store.Store, userID, eventID uuid.UUID) error {
	_, err := tx.TeamOfUser(ctx, userID, eventID)
	if err == nil {
		return apperror.Conflict("Already registered for this event")
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	return err
}

func (s *RegistrationService) ensureEventHasRoom(ctx context.Context, tx store.Store, ev *models.Event) error {
	if ev.MaxTeams == nil {
		return nil
	}
	n, err := tx.ConfirmedTeamCount(ctx, ev.ID)
	if err != nil {
		return err
	}
	if n >= int64(*ev.MaxTeams) {
		return apperror.Conflict("Event is full")
	}
	return nil
}
