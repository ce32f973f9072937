package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// Controllers exposes the controller store for inspection.
func (g *Game) Controllers() *ability.Controllers { return g.controllers }

func (g *Game) roleID(actor player.Ref, index uint8) ability.ID {
	return ability.RoleID(actor, string(g.players[actor].Role()), index)
}

// selection returns the effective selection of actor's index-th ability.
func (g *Game) selection(actor player.Ref, index uint8) ability.Selection {
	return g.controllers.Get(g.roleID(actor, index))
}

// chosenPlayer returns the first player chosen on actor's index-th ability.
func (g *Game) chosenPlayer(actor player.Ref, index uint8) (player.Ref, bool) {
	refs := g.controllers.Players(g.roleID(actor, index))
	if len(refs) == 0 {
		return 0, false
	}
	return refs[0], true
}

func (g *Game) chosenPair(actor player.Ref, index uint8) (player.Ref, player.Ref, bool) {
	return g.controllers.Pair(g.roleID(actor, index))
}

func (g *Game) chosenBool(actor player.Ref, index uint8) bool {
	return g.controllers.Bool(g.roleID(actor, index))
}

// living returns every living player.
func (g *Game) living() player.RefSet {
	var s player.RefSet
	for i, p := range g.players {
		if p.alive {
			s.Insert(player.Ref(i))
		}
	}
	return s
}

// livingExcept returns every living player other than actor.
func (g *Game) livingExcept(actor player.Ref) player.RefSet {
	s := g.living()
	s.Remove(actor)
	return s
}

// livingOutside returns every living player whose faction is not f.
func (g *Game) livingOutside(f Faction) player.RefSet {
	var s player.RefSet
	for i, p := range g.players {
		if p.alive && p.Role().Faction() != f {
			s.Insert(player.Ref(i))
		}
	}
	return s
}

// livingWithRole returns the living players holding r.
func (g *Game) livingWithRole(r Role) []player.Ref {
	var out []player.Ref
	for i, p := range g.players {
		if p.alive && p.Role() == r {
			out = append(out, player.Ref(i))
		}
	}
	return out
}

func (g *Game) isNight() bool { return g.state.Kind == phase.Night && !g.over }

func (g *Game) isDay() bool { return g.state.Kind.IsDay() && !g.over }

// nightTarget describes a single-target night ability. usable carries the
// role's own guard (uses left, first night restrictions).
func (g *Game) nightTarget(actor player.Ref, pool player.RefSet, usable bool) ability.Parameters {
	allowed := g.players[actor].alive && g.isNight() && usable
	return ability.Build(ability.AvailablePlayerList{Players: pool, MaxPlayers: 1}).
		ResetOnPhaseStart(phase.Night).
		GrayedOut(!allowed).
		AllowIf(allowed, actor).
		Done()
}

// nightPair describes a two-player night ability.
func (g *Game) nightPair(actor player.Ref, pool player.RefSet, usable bool) ability.Parameters {
	allowed := g.players[actor].alive && g.isNight() && usable
	return ability.Build(ability.AvailableTwoPlayerOption{Players: pool}).
		ResetOnPhaseStart(phase.Night).
		GrayedOut(!allowed).
		AllowIf(allowed, actor).
		Done()
}

// nightToggle describes an on/off night ability.
func (g *Game) nightToggle(actor player.Ref, usable bool) ability.Parameters {
	allowed := g.players[actor].alive && g.isNight() && usable
	return ability.Build(ability.AvailableBoolean{}).
		ResetOnPhaseStart(phase.Night).
		GrayedOut(!allowed).
		AllowIf(allowed, actor).
		Done()
}

// voteWeight returns how many votes p casts.
func (g *Game) voteWeight(p player.Ref) int {
	if m, ok := g.players[p].role.(*Mayor); ok && m.Revealed {
		return 3
	}
	return 1
}

func (g *Game) nominateParams(p player.Ref) ability.Parameters {
	allowed := g.players[p].alive && !g.over && g.state.Kind == phase.Nomination && g.state.TrialsLeft > 0
	return ability.Build(ability.AvailablePlayerList{Players: g.livingExcept(p), MaxPlayers: 1}).
		ResetOnPhaseStart(phase.Nomination).
		GrayedOut(!allowed).
		AllowIf(allowed, p).
		Done()
}

// Judge verdict values.
const (
	JudgeAbstain  = 0
	JudgeInnocent = 1
	JudgeGuilty   = 2
)

func (g *Game) judgeParams(p player.Ref) ability.Parameters {
	allowed := g.players[p].alive && !g.over && g.state.Kind == phase.Judgement && g.state.Defendant != p
	return ability.Build(ability.AvailableInteger{Min: JudgeAbstain, Max: JudgeGuilty}).
		ResetOnPhaseStart(phase.Judgement).
		GrayedOut(!allowed).
		AllowIf(allowed, p).
		Done()
}

func (g *Game) skipParams(p player.Ref) ability.Parameters {
	allowed := g.players[p].alive && !g.over
	return ability.Build(ability.AvailableBoolean{}).
		GrayedOut(!allowed).
		AllowIf(allowed, p).
		Done()
}

// deriveParameters rebuilds the description of every controller from the
// current world.
func (g *Game) deriveParameters() ability.ParametersMap {
	m := ability.ParametersMap{}
	for i, p := range g.players {
		ref := player.Ref(i)
		for idx, params := range p.role.Abilities(g, ref) {
			m[ability.RoleID(ref, string(p.Role()), idx)] = params
		}
		m[ability.NominateID(ref)] = g.nominateParams(ref)
		m[ability.JudgeID(ref)] = g.judgeParams(ref)
		m[ability.SkipID(ref)] = g.skipParams(ref)
	}
	return m
}

// refreshControllers re-derives every controller and sends each player the
// part of the diff that concerns them. touched lists controllers whose
// selection changed and must be resent to their owner even when their
// parameters did not.
func (g *Game) refreshControllers(touched ...ability.ID) {
	diff := g.controllers.Replace(g.deriveParameters())
	for i := range g.players {
		ref := player.Ref(i)
		mine := diff.ForPlayer(ref)
		for _, id := range touched {
			if id.Player != ref {
				continue
			}
			if params, ok := g.controllers.Parameters(id); ok {
				mine.Changed[id] = params
			}
		}
		if mine.Empty() {
			continue
		}
		g.send(ref, g.controllersPacket(mine, false))
	}
}

// resyncControllers sends p the full set of its controllers.
func (g *Game) resyncControllers(p player.Ref) {
	all := ability.Diff{Changed: g.controllers.Map()}
	g.send(p, g.controllersPacket(all.ForPlayer(p), true))
}

func (g *Game) controllersPacket(d ability.Diff, full bool) YourControllersPacket {
	pkt := YourControllersPacket{Full: full}
	ids := d.Changed.IDs()
	for _, id := range ids {
		pkt.Changed = append(pkt.Changed, ability.EncodeParameters(id, d.Changed[id], g.controllers.Get(id)))
	}
	for _, id := range d.Removed {
		pkt.Removed = append(pkt.Removed, ability.EncodeID(id))
	}
	return pkt
}

// submit applies a selection from actor and runs the follow-up effects.
// It reports whether the selection was accepted.
func (g *Game) submit(actor player.Ref, id ability.ID, sel ability.Selection) bool {
	if err := g.controllers.Submit(actor, id, sel); err != nil {
		g.log.Debug("selection rejected", zap.Stringer("actor", actor), zap.Error(err))
		g.resyncControllers(actor)
		return false
	}
	switch id.Kind {
	case ability.KindRole:
		if string(g.players[id.Player].Role()) == id.Role {
			g.players[id.Player].role.OnSubmit(g, id.Player, id.Index, sel)
		}
	case ability.KindNominate:
		g.checkNominations()
	case ability.KindSkip:
		g.checkFastForward()
	}
	g.refreshControllers(id)
	return true
}
