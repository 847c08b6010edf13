package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/models"
	"github.com/incridea/fest-backend/internal/store"
)

func newUser(mem *store.Memory, name, college string) models.User {
	return mem.AddUser(models.User{
		Name:     name,
		Email:    name + "@example.com",
		Category: models.CategoryExternal,
		College:  college,
	})
}

func teamEvent(mem *store.Memory, fees int64, maxTeams *int) models.Event {
	return mem.AddEvent(models.Event{
		Name:        "Hackathon-" + uuid.NewString(),
		Type:        models.EventTeam,
		MinTeamSize: 2,
		MaxTeamSize: 4,
		MaxTeams:    maxTeams,
		Fees:        fees,
	})
}

func soloEvent(mem *store.Memory, fees int64) models.Event {
	return mem.AddEvent(models.Event{
		Name:        "CodeGolf-" + uuid.NewString(),
		Type:        models.EventIndividual,
		MinTeamSize: 1,
		MaxTeamSize: 1,
		Fees:        fees,
	})
}

func TestRegisterSolo(t *testing.T) {
	ctx := context.Background()

	t.Run("free event auto-confirms", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := soloEvent(mem, 0)

		team, err := svc.RegisterSolo(ctx, u.ID, ev.ID)
		require.NoError(t, err)
		assert.True(t, team.Confirmed)
		assert.Equal(t, u.ID.String(), team.Name)
		assert.Equal(t, u.ID, team.LeaderID)

		n, err := mem.TeamMemberCount(ctx, team.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("paid event stays unconfirmed", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := soloEvent(mem, 10000)

		team, err := svc.RegisterSolo(ctx, u.ID, ev.ID)
		require.NoError(t, err)
		assert.False(t, team.Confirmed)
	})

	t.Run("rejects team events", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := teamEvent(mem, 0, nil)

		_, err := svc.RegisterSolo(ctx, u.ID, ev.ID)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("rejects double registration", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := soloEvent(mem, 0)

		_, err := svc.RegisterSolo(ctx, u.ID, ev.ID)
		require.NoError(t, err)
		_, err = svc.RegisterSolo(ctx, u.ID, ev.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("cleans up an orphaned synthetic team", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := soloEvent(mem, 0)

		// A prior partial failure left the team row without members.
		orphan := &models.Team{Name: u.ID.String(), EventID: ev.ID, LeaderID: u.ID}
		require.NoError(t, mem.CreateTeam(ctx, orphan))

		team, err := svc.RegisterSolo(ctx, u.ID, ev.ID)
		require.NoError(t, err)
		assert.NotEqual(t, orphan.ID, team.ID)

		_, err = mem.Team(ctx, orphan.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("unknown event", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")

		_, err := svc.RegisterSolo(ctx, u.ID, uuid.New())
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestCreateTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("starts unconfirmed", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := teamEvent(mem, 0, nil)

		team, err := svc.CreateTeam(ctx, u.ID, ev.ID, "Alpha")
		require.NoError(t, err)
		assert.False(t, team.Confirmed)
		assert.Equal(t, u.ID, team.LeaderID)
	})

	t.Run("rejects duplicate name in the same event", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")

		_, err := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		require.NoError(t, err)
		_, err = svc.CreateTeam(ctx, b.ID, ev.ID, "Alpha")
		assert.ErrorIs(t, err, apperror.ErrConflict)
		assert.EqualError(t, err, "Team name already taken")
	})

	t.Run("rejects individual events", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := soloEvent(mem, 0)

		_, err := svc.CreateTeam(ctx, u.ID, ev.ID, "Alpha")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		u := newUser(mem, "asha", "NMAMIT")
		ev := teamEvent(mem, 0, nil)

		_, err := svc.CreateTeam(ctx, u.ID, ev.ID, "   ")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestJoinTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("member joins an open team", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")

		team, err := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		require.NoError(t, err)
		_, err = svc.JoinTeam(ctx, b.ID, team.ID)
		require.NoError(t, err)

		n, _ := mem.TeamMemberCount(ctx, team.ID)
		assert.Equal(t, int64(2), n)
	})

	t.Run("confirmed team is locked", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")
		c := newUser(mem, "chen", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.JoinTeam(ctx, b.ID, team.ID)
		require.NoError(t, err)
		_, err = svc.ConfirmTeam(ctx, a.ID, team.ID)
		require.NoError(t, err)

		_, err = svc.JoinTeam(ctx, c.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
		assert.EqualError(t, err, "Team is locked")
	})

	t.Run("full team rejects joins", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		maxTeams := 10
		ev := mem.AddEvent(models.Event{
			Name: "Duo", Type: models.EventTeam,
			MinTeamSize: 1, MaxTeamSize: 2, MaxTeams: &maxTeams,
		})
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")
		c := newUser(mem, "chen", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.JoinTeam(ctx, b.ID, team.ID)
		require.NoError(t, err)
		_, err = svc.JoinTeam(ctx, c.ID, team.ID)
		assert.EqualError(t, err, "Team is full")
	})

	t.Run("cross-college joins are rejected", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "MIT Manipal")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.JoinTeam(ctx, b.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("exempt events allow mixed colleges", func(t *testing.T) {
		mem := store.NewMemory()
		ev := teamEvent(mem, 0, nil)
		svc := NewRegistrationService(mem, map[uuid.UUID]bool{ev.ID: true})
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "MIT Manipal")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.JoinTeam(ctx, b.ID, team.ID)
		assert.NoError(t, err)
	})

	t.Run("one team per user per event", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")

		_, err := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		require.NoError(t, err)
		teamB, err := svc.CreateTeam(ctx, b.ID, ev.ID, "Beta")
		require.NoError(t, err)

		_, err = svc.JoinTeam(ctx, a.ID, teamB.ID)
		assert.EqualError(t, err, "Already registered for this event")
	})
}

// Scenario: free team event with room for one confirmed team.
func TestEventCapacity(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewRegistrationService(mem, nil)

	maxTeams := 1
	ev := mem.AddEvent(models.Event{
		Name: "Finals", Type: models.EventTeam,
		MinTeamSize: 2, MaxTeamSize: 4, MaxTeams: &maxTeams, Fees: 0,
	})
	a := newUser(mem, "asha", "NMAMIT")
	b := newUser(mem, "bala", "NMAMIT")
	c := newUser(mem, "chen", "NMAMIT")

	team, err := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
	require.NoError(t, err)
	_, err = svc.JoinTeam(ctx, b.ID, team.ID)
	require.NoError(t, err)

	confirmed, err := svc.ConfirmTeam(ctx, a.ID, team.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)

	_, err = svc.CreateTeam(ctx, c.ID, ev.ID, "Gamma")
	assert.EqualError(t, err, "Event is full")
}

func TestConfirmTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("paid events cannot self-confirm", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		maxTeams := 1
		ev := mem.AddEvent(models.Event{
			Name: "Finals", Type: models.EventTeam,
			MinTeamSize: 2, MaxTeamSize: 4, MaxTeams: &maxTeams, Fees: 10000,
		})
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.JoinTeam(ctx, b.ID, team.ID)
		require.NoError(t, err)

		_, err = svc.ConfirmTeam(ctx, a.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)

		got, _ := mem.Team(ctx, team.ID)
		assert.False(t, got.Confirmed)
	})

	t.Run("only the leader confirms", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.JoinTeam(ctx, b.ID, team.ID)
		require.NoError(t, err)

		_, err = svc.ConfirmTeam(ctx, b.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("undersized team cannot confirm", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil) // min size 2
		a := newUser(mem, "asha", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.ConfirmTeam(ctx, a.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("payment path rejects undersized teams", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := mem.AddEvent(models.Event{
			Name: "Finals", Type: models.EventTeam,
			MinTeamSize: 2, MaxTeamSize: 4, Fees: 10000,
		})
		a := newUser(mem, "asha", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		err := svc.ConfirmPaidTeam(ctx, team.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)

		got, _ := mem.Team(ctx, team.ID)
		assert.False(t, got.Confirmed)
	})

	t.Run("paid path confirms via ConfirmPaidTeam", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := mem.AddEvent(models.Event{
			Name: "RoboRace", Type: models.EventTeam,
			MinTeamSize: 1, MaxTeamSize: 3, Fees: 10000,
		})
		a := newUser(mem, "asha", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		require.NoError(t, svc.ConfirmPaidTeam(ctx, team.ID))

		got, _ := mem.Team(ctx, team.ID)
		assert.True(t, got.Confirmed)

		// Idempotent on webhook redelivery.
		require.NoError(t, svc.ConfirmPaidTeam(ctx, team.ID))
	})
}

func TestLeaveAndDeleteTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("last member leaving deletes the team", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		require.NoError(t, svc.LeaveTeam(ctx, a.ID, team.ID))

		_, err := mem.Team(ctx, team.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		// Registering again behaves as if the team never existed.
		_, err = svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		assert.NoError(t, err)
	})

	t.Run("confirmed paid team cannot be unwound", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := mem.AddEvent(models.Event{
			Name: "RoboRace", Type: models.EventTeam,
			MinTeamSize: 1, MaxTeamSize: 3, Fees: 10000,
		})
		a := newUser(mem, "asha", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		require.NoError(t, svc.ConfirmPaidTeam(ctx, team.ID))

		err := svc.LeaveTeam(ctx, a.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
		err = svc.DeleteTeam(ctx, a.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("only the leader deletes", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		_, err := svc.JoinTeam(ctx, b.ID, team.ID)
		require.NoError(t, err)

		err = svc.DeleteTeam(ctx, b.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		require.NoError(t, svc.DeleteTeam(ctx, a.ID, team.ID))
	})

	t.Run("non-member cannot leave", func(t *testing.T) {
		mem := store.NewMemory()
		svc := NewRegistrationService(mem, nil)
		ev := teamEvent(mem, 0, nil)
		a := newUser(mem, "asha", "NMAMIT")
		b := newUser(mem, "bala", "NMAMIT")

		team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
		err := svc.LeaveTeam(ctx, b.ID, team.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestMyTeam(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewRegistrationService(mem, nil)
	ev := teamEvent(mem, 0, nil)
	a := newUser(mem, "asha", "NMAMIT")
	b := newUser(mem, "bala", "NMAMIT")

	team, _ := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
	_, err := svc.JoinTeam(ctx, b.ID, team.ID)
	require.NoError(t, err)

	out, err := svc.MyTeam(ctx, b.ID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, out.Team.ID)
	assert.Len(t, out.Members, 2)

	_, err = svc.MyTeam(ctx, newUser(mem, "chen", "NMAMIT").ID, ev.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// Team mutations leave outbox rows behind so the search index converges.
func TestRegistrationEmitsOutboxEvents(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewRegistrationService(mem, nil)
	ev := teamEvent(mem, 0, nil)
	a := newUser(mem, "asha", "NMAMIT")

	team, err := svc.CreateTeam(ctx, a.ID, ev.ID, "Alpha")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTeam(ctx, a.ID, team.ID))

	events := mem.OutboxEvents()
	require.NotEmpty(t, events)

	var ops []string
	for _, e := range events {
		if e.EntityType == "team" && e.EntityID == team.ID {
			ops = append(ops, e.Op)
		}
	}
	assert.Equal(t, []string{"UPSERT", "DELETE"}, ops)
}
