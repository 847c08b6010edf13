package search

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incridea/fest-backend/internal/models"
)

func TestBuildParticipantDoc(t *testing.T) {
	u := models.User{Name: "Asha", Email: "asha@example.com", Category: models.CategoryInternal, College: "NMAMIT"}

	t.Run("with pid", func(t *testing.T) {
		raw, err := BuildParticipantDoc(u, "INC-INN0042")
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(raw, &doc))
		assert.Equal(t, "INC-INN0042", doc["pid"])
		assert.Equal(t, "INTERNAL", doc["category"])
	})

	t.Run("pid omitted before issuance", func(t *testing.T) {
		raw, err := BuildParticipantDoc(u, "")
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(raw, &doc))
		_, has := doc["pid"]
		assert.False(t, has)
	})
}

func TestBuildTeamDoc(t *testing.T) {
	team := models.Team{Name: "Alpha", EventID: uuid.New(), LeaderID: uuid.New(), Confirmed: true}
	members := []models.TeamMember{
		{TeamID: team.ID, UserID: team.LeaderID},
		{TeamID: team.ID, UserID: uuid.New()},
	}

	raw, err := BuildTeamDoc(team, members)
	require.NoError(t, err)

	var doc TeamDoc
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "Alpha", doc.Name)
	assert.True(t, doc.Confirmed)
	assert.Len(t, doc.MemberIDs, 2)
	assert.Equal(t, team.LeaderID, doc.MemberIDs[0])
}
