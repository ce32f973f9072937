package settings_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
)

var catalogue = []settings.RoleInfo{
	{Name: "villager", Faction: "town"},
	{Name: "doctor", Faction: "town"},
	{Name: "jailor", Faction: "town", Unique: true},
	{Name: "godfather", Faction: "mafia", Unique: true},
	{Name: "mafioso", Faction: "mafia", Unique: true},
	{Name: "jester", Faction: "neutral"},
}

func TestParse_FullDocument(t *testing.T) {
	s, err := settings.Parse([]byte(`
role_list:
  - role: jailor
  - faction: town
    count: 2
  - roles: [godfather, mafioso]
  - any: true
    exclude: [jester]
phase_times:
  night: 30
  discussion: 0
modifiers: [obscured_graves, dead_can_chat]
max_day: 12
`))
	require.NoError(t, err)
	assert.Equal(t, 5, s.RoleList.Len())
	assert.Equal(t, 12, s.MaxDay)
	assert.Equal(t, settings.DefaultTrialsPerDay, s.TrialsPerDay)
	assert.True(t, s.Enabled(settings.ObscuredGraves))
	assert.True(t, s.Enabled(settings.DeadCanChat))
	assert.False(t, s.Enabled(settings.NoTrialsDayOne))

	times := s.Times()
	assert.Equal(t, 30*time.Second, times.Get(phase.Night))
	assert.Equal(t, time.Duration(0), times.Get(phase.Discussion))
	assert.Equal(t, phase.DefaultTimes().Get(phase.Dusk), times.Get(phase.Dusk))
}

func TestParse_AggregatesErrors(t *testing.T) {
	_, err := settings.Parse([]byte(`
role_list:
  - role: jailor
    faction: town
phase_times:
  teatime: 4
  night: -1
modifiers: [mystery]
max_day: -2
`))
	require.Error(t, err)
	for _, want := range []string{"role_list[0]", "teatime", "phase_times.night", "mystery", "max_day"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := settings.Parse([]byte("colour: red\n"))
	assert.Error(t, err)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte("role_list:\n  - any: true\n"), 0644))
	s, err := settings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.RoleList.Len())

	_, err = settings.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAssign_HonoursEntriesAndUniqueness(t *testing.T) {
	list := settings.RoleList{
		{Role: "jailor"},
		{Roles: []string{"godfather", "mafioso"}, Count: 2},
		{Faction: "town", Exclude: []string{"jailor"}},
	}
	roles, err := list.Assign(4, catalogue, dice.NewSequenceSource(3, 1, 4, 1, 5))
	require.NoError(t, err)
	sorted := append([]string(nil), roles...)
	sort.Strings(sorted)
	assert.Contains(t, sorted, "jailor")
	assert.Contains(t, sorted, "godfather")
	assert.Contains(t, sorted, "mafioso")
	assert.Len(t, sorted, 4)
}

func TestAssign_Errors(t *testing.T) {
	src := dice.NewSequenceSource()
	_, err := settings.RoleList{{Any: true}}.Assign(2, catalogue, src)
	assert.True(t, errors.Is(err, settings.ErrInvalidRoleList))

	_, err = settings.RoleList{{Role: "jailor", Count: 2}}.Assign(2, catalogue, src)
	assert.True(t, errors.Is(err, settings.ErrInvalidRoleList))

	_, err = settings.RoleList{{Role: "necromancer"}}.Assign(1, catalogue, src)
	assert.True(t, errors.Is(err, settings.ErrInvalidRoleList))

	_, err = settings.RoleList{}.Assign(0, catalogue, src)
	assert.True(t, errors.Is(err, settings.ErrInvalidRoleList))
}

// TestAssign_Property verifies every assignment matches its slot multiset
// and never duplicates a unique role.
func TestAssign_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "n")
		list := make(settings.RoleList, n)
		for i := range list {
			switch rapid.IntRange(0, 2).Draw(rt, "entry") {
			case 0:
				list[i] = settings.RoleListEntry{Faction: "town"}
			case 1:
				list[i] = settings.RoleListEntry{Any: true}
			default:
				list[i] = settings.RoleListEntry{Role: "villager"}
			}
		}
		seq := rapid.SliceOf(rapid.IntRange(0, 50)).Draw(rt, "seq")
		roles, err := list.Assign(n, catalogue, dice.NewSequenceSource(seq...))
		require.NoError(rt, err)
		require.Len(rt, roles, n)
		counts := map[string]int{}
		for _, r := range roles {
			counts[r]++
		}
		for _, info := range catalogue {
			if info.Unique {
				assert.LessOrEqual(rt, counts[info.Name], 1, info.Name)
			}
		}
	})
}
