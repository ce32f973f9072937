package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
)

// RoleListHook is the global function a role list script must define. It is
// called with the player count and returns an array of role list entries.
const RoleListHook = "role_list"

// ErrNoScript is returned when no VM is loaded under the requested key.
var ErrNoScript = errors.New("script not loaded")

type vm struct {
	L      *lua.LState
	cancel context.CancelFunc
	limit  int
}

// Manager owns one sandboxed LState per loaded script and serialises calls
// into it.
type Manager struct {
	mu        sync.Mutex
	vms       map[string]*vm
	catalogue []settings.RoleInfo
	src       dice.Source
	logger    *zap.Logger
}

// NewManager creates a Manager whose scripts see catalogue through
// nightfall.roles and draw from src.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no scripts loaded.
func NewManager(catalogue []settings.RoleInfo, src dice.Source, logger *zap.Logger) *Manager {
	return &Manager{
		vms:       make(map[string]*vm),
		catalogue: append([]settings.RoleInfo(nil), catalogue...),
		src:       src,
		logger:    logger,
	}
}

// Load reads the Lua file at path into a fresh VM registered under key,
// replacing any previous VM for key.
//
// Precondition: path must be a readable file.
// Postcondition: The VM is registered; returns error on read or Lua load failure.
func (m *Manager) Load(key, path string, instLimit int) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return m.LoadString(key, string(src), instLimit)
}

// LoadString compiles and runs src in a fresh VM registered under key.
//
// Postcondition: The VM is registered; returns error on Lua load failure.
func (m *Manager) LoadString(key, src string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	if err := L.DoString(src); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.vms[key]; ok {
		old.cancel()
		old.L.Close()
	}
	m.vms[key] = &vm{L: L, cancel: cancel, limit: effectiveLimit(instLimit)}
	return nil
}

// Loaded reports whether a VM is registered under key.
func (m *Manager) Loaded(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vms[key]
	return ok
}

// CallHook calls the named Lua global function in key's VM with a fresh
// instruction budget. Returns (LNil, nil) if the hook is not defined.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, ErrNoScript, or
// the Lua runtime error.
func (m *Manager) CallHook(key, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vms[key]
	if !ok {
		return lua.LNil, fmt.Errorf("%w: %q", ErrNoScript, key)
	}

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	v.cancel()
	ctx, cancel := newCountingContext(v.limit)
	v.L.SetContext(ctx)
	v.cancel = cancel

	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("script", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s in %q: %w", hook, key, err)
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// RoleList runs key's role_list hook for players and converts the result.
//
// Postcondition: Returns a role list that passes settings validation and fills
// exactly players slots, or an error.
func (m *Manager) RoleList(key string, players int) (settings.RoleList, error) {
	ret, err := m.CallHook(key, RoleListHook, lua.LNumber(players))
	if err != nil {
		return nil, err
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("scripting: %s in %q returned %s, want table", RoleListHook, key, ret.Type())
	}

	var list settings.RoleList
	for i := 1; i <= tbl.Len(); i++ {
		entry, err := toEntry(tbl.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("scripting: %s entry %d: %w", RoleListHook, i, err)
		}
		list = append(list, entry)
	}

	check := settings.Default()
	check.RoleList = list
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("scripting: %s in %q: %w", RoleListHook, key, err)
	}
	if list.Len() != players {
		return nil, fmt.Errorf("%w: script %q filled %d slots for %d players",
			settings.ErrInvalidRoleList, key, list.Len(), players)
	}
	return list, nil
}

// toEntry converts a bare role name or an entry table into a RoleListEntry.
func toEntry(v lua.LValue) (settings.RoleListEntry, error) {
	switch val := v.(type) {
	case lua.LString:
		return settings.RoleListEntry{Role: string(val)}, nil
	case *lua.LTable:
		e := settings.RoleListEntry{
			Role:    lua.LVAsString(val.RawGetString("role")),
			Faction: lua.LVAsString(val.RawGetString("faction")),
			Any:     lua.LVAsBool(val.RawGetString("any")),
			Roles:   stringArray(val.RawGetString("roles")),
			Exclude: stringArray(val.RawGetString("exclude")),
		}
		if n, ok := val.RawGetString("count").(lua.LNumber); ok {
			e.Count = int(n)
		}
		return e, nil
	default:
		return settings.RoleListEntry{}, fmt.Errorf("want string or table, got %s", v.Type())
	}
}

func stringArray(v lua.LValue) []string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	out := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		out = append(out, lua.LVAsString(tbl.RawGetInt(i)))
	}
	return out
}

// Close shuts down every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.cancel()
		v.L.Close()
		delete(m.vms, key)
	}
}
