package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
)

// maxTransitionsPerTick bounds how many zero-length phases one tick may pass
// through.
const maxTransitionsPerTick = 16

// Tick advances the phase timer by elapsed and moves through every phase
// whose time has run out.
//
// Postcondition: pending chat has been flushed.
func (g *Game) Tick(elapsed time.Duration) {
	if g.over {
		return
	}
	g.remaining -= elapsed
	g.settle()
	g.flush()
}

// SyncTimeLeft sends every client the authoritative countdown.
func (g *Game) SyncTimeLeft() {
	if g.over {
		return
	}
	g.broadcast(TimeLeftPacket{RemainingMillis: g.remaining.Milliseconds()})
}

// settle starts the following phase while the current one has no time left.
func (g *Game) settle() {
	for i := 0; i < maxTransitionsPerTick && !g.over && g.remaining <= 0; i++ {
		g.advance()
	}
}

// advance ends the current phase and starts the next one.
func (g *Game) advance() {
	verdict := g.endPhase()
	if g.over {
		return
	}
	g.startPhase(g.state.Next(verdict, g.settings.TrialsPerDay))
}

// endPhase runs the effects of leaving the current phase and checks for a
// winner.
func (g *Game) endPhase() phase.Verdict {
	verdict := phase.VerdictNone
	switch g.state.Kind {
	case phase.Judgement:
		verdict = g.tallyVerdict()
	case phase.FinalWords:
		g.lynch(g.state.Defendant)
	case phase.Night:
		g.resolveNight()
	}
	g.checkWin()
	return verdict
}

// startPhase enters s: phase-specific setup, controller resets, role hooks,
// then fresh controllers and phase packets for everyone.
//
// Postcondition: g.state == s unless the game ended on entry.
func (g *Game) startPhase(s phase.State) {
	prev := g.state.Kind
	g.state = s
	g.remaining = g.times.Get(s.Kind)

	switch s.Kind {
	case phase.Night:
		g.night = newNightState(g)
		g.silenced = player.RefSet{}
	case phase.Obituary:
		if prev == phase.Night {
			g.day++
		}
		g.deliverNight()
		if g.day > g.settings.MaxDay {
			g.announce(ChatMessage{Key: string(AnnounceMaxDay)})
			g.endGame(nil)
			return
		}
	case phase.Nomination:
		if s.TrialsLeft <= 0 || (g.day == 1 && g.settings.Enabled(settings.NoTrialsDayOne)) {
			g.remaining = 0
		}
	}

	g.controllers.ResetOnPhaseStart(s.Kind)
	for i := range g.players {
		g.controllers.Clear(ability.SkipID(player.Ref(i)))
	}
	for i := range g.players {
		g.players[i].role.OnPhaseStart(g, player.Ref(i), s.Kind)
	}
	g.refreshControllers()

	g.log.Debug("phase started",
		zap.Stringer("phase", s.Kind),
		zap.Int("day", g.day),
		zap.Duration("length", g.remaining),
	)
	g.broadcast(g.phasePacket())
	for i := range g.players {
		g.syncPrivate(player.Ref(i))
	}
}

// deliverNight hands out last night's private results and silences, then
// discards the night.
func (g *Game) deliverNight() {
	n := g.night
	if n == nil {
		return
	}
	for i := range g.players {
		ref := player.Ref(i)
		np := n.at(ref)
		for _, m := range np.messages {
			g.queue(ref, m)
		}
		if np.silenced && g.players[i].alive {
			g.silenced.Insert(ref)
		}
	}
	g.night = nil
}

// checkFastForward ends the phase early once every living player asked to
// skip it.
func (g *Game) checkFastForward() {
	if g.over {
		return
	}
	living := 0
	for i, p := range g.players {
		if !p.alive {
			continue
		}
		living++
		if !g.controllers.Bool(ability.SkipID(player.Ref(i))) {
			return
		}
	}
	if living == 0 {
		return
	}
	g.log.Debug("phase fast-forwarded", zap.Stringer("phase", g.state.Kind))
	g.remaining = 0
}
