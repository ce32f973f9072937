package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
)

// killPlayer applies a death: marks p dead, publishes the grave and runs
// every role's death hook.
//
// Postcondition: p is dead and has exactly one grave for this death.
func (g *Game) killPlayer(p player.Ref, cause DeathCause, killers []GraveKiller, notes []string) {
	pl := g.players[p]
	if !pl.alive {
		return
	}
	pl.alive = false

	grave := Grave{
		Player:     p,
		Day:        g.day,
		Role:       pl.Role(),
		Cause:      cause,
		Killers:    append([]GraveKiller(nil), killers...),
		Will:       pl.will,
		DeathNotes: append([]string(nil), notes...),
	}
	if g.night != nil {
		np := g.night.at(p)
		np.died = true
		if np.appeared != "" {
			grave.Role = np.appeared
		}
		if np.cleaned {
			grave.Hidden, grave.Role, grave.Will = true, "", ""
		}
	}
	if g.settings.Enabled(settings.ObscuredGraves) {
		grave.Hidden, grave.Role, grave.Will = true, "", ""
	}
	g.graves = append(g.graves, grave)

	g.log.Info("player died",
		zap.Stringer("player", p),
		zap.String("role", string(pl.Role())),
		zap.String("cause", string(cause)),
		zap.Int("day", g.day),
	)
	g.broadcast(GravePacket{Grave: grave})
	g.broadcast(g.playersPacket())

	for i := range g.players {
		g.players[i].role.OnAnyDeath(g, player.Ref(i), p)
	}
	g.syncLabels()
}

// revive brings a dead player back and removes their grave.
func (g *Game) revive(p player.Ref) {
	pl := g.players[p]
	if pl.alive {
		return
	}
	pl.alive = true
	kept := g.graves[:0]
	for _, grave := range g.graves {
		if grave.Player != p {
			kept = append(kept, grave)
		}
	}
	g.graves = kept
	if g.night != nil {
		g.nightMessage(p, ResultRevived)
	}
	g.announce(ChatMessage{Key: string(AnnounceRevived), Players: []player.Ref{p}})
	g.log.Info("player revived", zap.Stringer("player", p))
	g.broadcast(g.playersPacket())
}

// convert replaces p's role with a fresh state of r. The player's win
// condition follows the new role's faction.
func (g *Game) convert(p player.Ref, r Role) {
	pl := g.players[p]
	from := pl.Role()
	pl.role = NewRoleState(r)
	pl.winCondition = r.Faction().WinCondition()
	g.log.Info("player converted",
		zap.Stringer("player", p),
		zap.String("from", string(from)),
		zap.String("to", string(r)),
	)
	g.send(p, YourRolePacket{Role: r, Faction: r.Faction()})
	g.syncLabels()
}

// SetConnection records a client attaching to or detaching from p.
func (g *Game) SetConnection(p player.Ref, c ConnectionState, at time.Time) {
	pl := g.players[p]
	if pl.connection == Left || pl.connection == c {
		return
	}
	pl.connection = c
	if c == Disconnected {
		pl.disconnected = at
	}
	g.broadcast(g.playersPacket())
	g.flush()
}

// DisconnectedSince returns when p's client went away, if it is currently
// disconnected.
func (g *Game) DisconnectedSince(p player.Ref) (time.Time, bool) {
	pl := g.players[p]
	return pl.disconnected, pl.connection == Disconnected
}

// PlayerLeft marks p as gone for good. A living player dies immediately.
func (g *Game) PlayerLeft(p player.Ref) {
	pl := g.players[p]
	if pl.connection == Left {
		return
	}
	pl.connection = Left
	g.announce(ChatMessage{Key: string(AnnouncePlayerLeft), Players: []player.Ref{p}})
	if pl.alive && !g.over {
		g.killPlayer(p, CauseQuit, []GraveKiller{Quit()}, nil)
		g.checkWin()
	} else {
		g.broadcast(g.playersPacket())
	}
	if !g.over {
		g.refreshControllers()
	}
	g.flush()
}
