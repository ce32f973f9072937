package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/engine"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/stats"
)

func newSnapshotGame(t *testing.T, snaps *[]stats.Snapshot, roles ...engine.Role) *engine.Game {
	t.Helper()
	names := []string{"ann", "bob", "cat", "dan", "eve", "fay"}
	g, err := engine.New(engine.Config{
		ID:         "snap",
		Names:      names[:len(roles)],
		Settings:   settings.Default(),
		Source:     dice.NewSequenceSource(0),
		Outbox:     newRecorder(),
		Roles:      roles,
		OnSnapshot: func(s stats.Snapshot) { *snaps = append(*snaps, s) },
	})
	require.NoError(t, err)
	return g
}

func TestSnapshot_StartRecordsRoleAndFaction(t *testing.T) {
	var snaps []stats.Snapshot
	newSnapshotGame(t, &snaps, engine.RoleJailor, engine.RoleMafioso, engine.RoleJester, engine.RoleVillager)
	require.Len(t, snaps, 1)

	start := snaps[0]
	assert.Equal(t, stats.EventStart, start.Event)
	require.Len(t, start.Players, 4)
	assert.Equal(t, "jailor", start.Players[0].Role)
	assert.Equal(t, string(engine.FactionTown), start.Players[0].Faction)
	assert.Equal(t, string(engine.FactionMafia), start.Players[1].Faction)
	assert.Equal(t, string(engine.FactionNeutral), start.Players[2].Faction)
	assert.Equal(t, string(engine.FactionTown), start.Players[3].Faction)
}

func TestSnapshot_EndKeepsFactionOfTheDead(t *testing.T) {
	var snaps []stats.Snapshot
	g := newSnapshotGame(t, &snaps, engine.RoleJailor, engine.RoleMafioso, engine.RoleVillager, engine.RoleVillager)

	advanceTo(t, g, phase.Discussion)
	act(g, 0, 0, target(1))
	advanceTo(t, g, phase.Night)
	act(g, 0, 1, ability.Boolean{Value: true})
	nextPhase(g)
	require.True(t, g.Over())

	require.Len(t, snaps, 2)
	end := snaps[1]
	assert.Equal(t, stats.EventEnd, end.Event)
	assert.Equal(t, "town", end.Conclusion)
	assert.False(t, end.Players[1].Alive)
	assert.Equal(t, string(engine.FactionMafia), end.Players[1].Faction)
	assert.True(t, end.Players[0].Won)
	assert.False(t, end.Players[1].Won)
}
