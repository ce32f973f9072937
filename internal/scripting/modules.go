package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/nightfall/internal/game/dice"
)

// RegisterModules registers the nightfall.* Lua tables into L:
//
//	nightfall.roles           array of role names
//	nightfall.factions        map of role name to faction
//	nightfall.log.{debug,info,warn}(msg)
//	nightfall.dice.pick(n)    uniform integer in [1, n]
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: nightfall global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	root := L.NewTable()

	roles := L.NewTable()
	factions := L.NewTable()
	for _, info := range m.catalogue {
		roles.Append(lua.LString(info.Name))
		factions.RawSetString(info.Name, lua.LString(info.Faction))
	}
	root.RawSetString("roles", roles)
	root.RawSetString("factions", factions)

	log := L.NewTable()
	log.RawSetString("debug", L.NewFunction(m.luaLog(zap.DebugLevel)))
	log.RawSetString("info", L.NewFunction(m.luaLog(zap.InfoLevel)))
	log.RawSetString("warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	root.RawSetString("log", log)

	d := L.NewTable()
	d.RawSetString("pick", L.NewFunction(m.luaPick))
	root.RawSetString("dice", d)

	L.SetGlobal("nightfall", root)
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

func (m *Manager) luaPick(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 1 {
		L.ArgError(1, "n must be >= 1")
		return 0
	}
	L.Push(lua.LNumber(dice.Pick(n, m.src) + 1))
	return 1
}
