package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/conclusion"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/stats"
)

// participants describes the living players for the conclusion evaluator.
func (g *Game) participants() []conclusion.Participant {
	var out []conclusion.Participant
	for _, p := range g.players {
		if !p.alive {
			continue
		}
		_, wildcard := p.role.(*Wildcard)
		out = append(out, conclusion.Participant{
			KeepsGameRunning:   p.Role().Faction().KeepsGameRunning(),
			WinCondition:       p.winCondition,
			UnresolvedWildcard: wildcard,
		})
	}
	return out
}

// checkWin ends the game once the living players agree on a conclusion.
func (g *Game) checkWin() {
	if g.over {
		return
	}
	if c, ok := conclusion.Evaluate(g.participants()); ok {
		g.endGame(&c)
	}
}

// won reports whether p won given the final conclusion c, which is nil when
// the game ended without one.
func (g *Game) won(p player.Ref, c *conclusion.Conclusion) bool {
	pl := g.players[p]
	if pl.winCondition.IsRoleState() {
		if rs, ok := pl.role.(roleStateWinner); ok {
			return rs.won(g, p, c)
		}
		return false
	}
	return c != nil && pl.winCondition.Contains(*c)
}

// endGame stops the game, decides the winners and tells everyone.
//
// Postcondition: g.over is true and no further phase starts.
func (g *Game) endGame(c *conclusion.Conclusion) {
	if g.over {
		return
	}
	g.over = true
	g.conclusion = c
	g.remaining = 0
	g.winners = nil
	for i := range g.players {
		if g.won(player.Ref(i), c) {
			g.winners = append(g.winners, player.Ref(i))
		}
	}

	fields := []zap.Field{zap.Int("day", g.day), zap.Int("winners", len(g.winners))}
	if c != nil {
		fields = append(fields, zap.Stringer("conclusion", *c))
	}
	g.log.Info("game over", fields...)

	// A game decided by the night's deaths never reaches Obituary.
	g.deliverNight()
	g.flush()
	g.broadcast(g.gameOverPacket())
	g.refreshControllers()
	for i := range g.players {
		g.syncPrivate(player.Ref(i))
	}
	g.snapshot(stats.EventEnd)
}

func (g *Game) gameOverPacket() GameOverPacket {
	pkt := GameOverPacket{Winners: append([]player.Ref{}, g.winners...)}
	if g.conclusion != nil {
		pkt.Conclusion = g.conclusion.String()
	}
	return pkt
}
