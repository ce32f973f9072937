package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/combat"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// Defense returns target's effective defense tonight: the highest of its role
// defense and every grant it received, whatever order they arrived in.
func (g *Game) Defense(target player.Ref) combat.DefensePower {
	base := g.players[target].Role().Defense()
	if g.night == nil {
		return base
	}
	return base.Max(g.night.at(target).defense.Effective())
}

// tryNightKill attacks target on behalf of attacker and reports whether the
// attack will kill. A blocked attack notifies the target, its protectors and
// the attacker. A second lethal attack on a player already marked dead only
// adds its killer to the grave.
//
// Precondition: called during night resolution.
// Postcondition: on true, target is marked died with killer recorded.
func (g *Game) tryNightKill(attacker, target player.Ref, killer GraveKiller, power combat.AttackPower) bool {
	if !g.players[target].alive {
		return false
	}
	np := g.night.at(target)
	np.attacked = true
	np.attackers = append(np.attackers, attacker)

	if np.died {
		np.killers = appendKiller(np.killers, killer)
		return false
	}

	def := g.Defense(target)
	if power.CanBeBlockedBy(def) {
		if len(np.protectors) > 0 {
			g.nightMessage(target, ResultProtected)
			for _, p := range np.protectors {
				g.nightMessage(p, ResultTargetAttacked)
			}
		} else {
			g.nightMessage(target, ResultSurvivedAttack)
		}
		if attacker != target {
			g.nightMessage(attacker, ResultTargetSurvived)
		}
		g.log.Debug("attack blocked",
			zap.Stringer("attacker", attacker),
			zap.Stringer("target", target),
			zap.Stringer("power", power),
			zap.Stringer("defense", def),
		)
		return false
	}

	g.markDied(target, killer)
	g.nightMessage(target, ResultKilled)
	if note := g.players[attacker].deathNote; note != "" && attacker != target {
		np.deathNotes = append(np.deathNotes, note)
	}
	return true
}

// markDied marks target dead at night end regardless of defense.
func (g *Game) markDied(target player.Ref, killer GraveKiller) {
	np := g.night.at(target)
	np.died = true
	np.killers = appendKiller(np.killers, killer)
}

func appendKiller(list []GraveKiller, k GraveKiller) []GraveKiller {
	for _, have := range list {
		if have == k {
			return list
		}
	}
	return append(list, k)
}
