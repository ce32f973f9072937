package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/scripting"
)

var testCatalogue = []settings.RoleInfo{
	{Name: "villager", Faction: "town"},
	{Name: "doctor", Faction: "town"},
	{Name: "jailor", Faction: "town", Unique: true},
	{Name: "mafioso", Faction: "mafia"},
	{Name: "godfather", Faction: "mafia", Unique: true},
	{Name: "jester", Faction: "neutral"},
}

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(testCatalogue, dice.NewSequenceSource(0), zap.New(core))
	t.Cleanup(mgr.Close)
	return mgr, logs
}

const classicScript = `
function role_list(players)
	local list = { "jailor", { faction = "mafia", count = 2 } }
	for i = 5, players do
		table.insert(list, { roles = { "villager", "doctor" } })
	end
	table.insert(list, { any = true, exclude = { "godfather" } })
	return list
end
`

func TestManager_RoleList_BuildsEntries(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("classic", classicScript, 0))

	list, err := mgr.RoleList("classic", 5)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, settings.RoleListEntry{Role: "jailor"}, list[0])
	assert.Equal(t, settings.RoleListEntry{Faction: "mafia", Count: 2}, list[1])
	assert.Equal(t, []string{"villager", "doctor"}, list[2].Roles)
	assert.True(t, list[3].Any)
	assert.Equal(t, []string{"godfather"}, list[3].Exclude)
	assert.Equal(t, 5, list.Len())
}

func TestManager_RoleList_AssignsEveryPlayer(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("classic", classicScript, 0))

	list, err := mgr.RoleList("classic", 6)
	require.NoError(t, err)
	roles, err := list.Assign(6, testCatalogue, dice.NewSequenceSource(0))
	require.NoError(t, err)
	assert.Len(t, roles, 6)
	assert.Contains(t, roles, "jailor")
}

func TestManager_RoleList_WrongSlotCount(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("short", `function role_list(n) return { "villager" } end`, 0))

	_, err := mgr.RoleList("short", 3)
	assert.ErrorIs(t, err, settings.ErrInvalidRoleList)
}

func TestManager_RoleList_InvalidEntry(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("bad", `function role_list(n) return { { role = "villager", any = true } } end`, 0))

	_, err := mgr.RoleList("bad", 1)
	assert.Error(t, err)
}

func TestManager_RoleList_NotATable(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("num", `function role_list(n) return n end`, 0))

	_, err := mgr.RoleList("num", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want table")
}

func TestManager_RoleList_UnknownScript(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.RoleList("missing", 3)
	assert.ErrorIs(t, err, scripting.ErrNoScript)
}

func TestManager_Load_FromFile(t *testing.T) {
	mgr, _ := newTestManager(t)
	path := filepath.Join(t.TempDir(), "roles.lua")
	require.NoError(t, os.WriteFile(path, []byte(classicScript), 0644))

	require.NoError(t, mgr.Load("file", path, 0))
	assert.True(t, mgr.Loaded("file"))
	assert.Error(t, mgr.Load("missing", filepath.Join(t.TempDir(), "nope.lua"), 0))
}

func TestManager_LoadString_SyntaxError(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadString("broken", `function (`, 0))
	assert.False(t, mgr.Loaded("broken"))
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("empty", `-- no functions`, 0))
	ret, err := mgr.CallHook("empty", "nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeErrorIsLogged(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadString("bad", `function bad_hook() error("intentional error") end`, 0))

	_, err := mgr.CallHook("bad", "bad_hook")
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_CallHook_BudgetResetsPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("loop", `
		function spin(n)
			local s = 0
			for i = 1, n do s = s + i end
			return s
		end
	`, 500))

	for i := 0; i < 10; i++ {
		ret, err := mgr.CallHook("loop", "spin", lua.LNumber(20))
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, lua.LNumber(210), ret)
	}
	_, err := mgr.CallHook("loop", "spin", lua.LNumber(100000))
	assert.Error(t, err)
}

func TestModules_RolesAndFactions(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("mods", `
		function count() return #nightfall.roles end
		function faction(r) return nightfall.factions[r] end
		function pick(n) return nightfall.dice.pick(n) end
	`, 0))

	ret, err := mgr.CallHook("mods", "count")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(len(testCatalogue)), ret)

	ret, err = mgr.CallHook("mods", "faction", lua.LString("godfather"))
	require.NoError(t, err)
	assert.Equal(t, lua.LString("mafia"), ret)

	ret, err = mgr.CallHook("mods", "pick", lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret, "the sequence source always draws 0")
}

func TestModules_LogWritesToLogger(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadString("log", `
		function do_log()
			nightfall.log.debug("d")
			nightfall.log.info("hello from lua")
			nightfall.log.warn("w")
		end
	`, 0))

	_, err := mgr.CallHook("log", "do_log")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("hello from lua").Len())
	assert.Equal(t, 3, logs.FilterField(zap.String("source", "lua")).Len())
}

func TestProperty_RoleListMatchesPlayerCount(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("classic", classicScript, 0))
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(4, 15).Draw(rt, "players")
		list, err := mgr.RoleList("classic", n)
		if err != nil {
			rt.Fatalf("players=%d: %v", n, err)
		}
		if list.Len() != n {
			rt.Fatalf("players=%d: list fills %d", n, list.Len())
		}
	})
}
