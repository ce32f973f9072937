package engine

import (
	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/combat"
	"github.com/cory-johannsen/nightfall/internal/game/conclusion"
	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/visit"
)

// Apostle converts an undefended outsider into a zealot.
type Apostle struct{ base }

func (*Apostle) Role() Role { return RoleApostle }

func (*Apostle) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionCult), true)}
}

func (*Apostle) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "apostle", false)
}

func (*Apostle) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketConvert {
		return
	}
	v, ok := g.tagged(actor, "apostle")
	if !ok {
		return
	}
	t := v.Target
	if !g.players[t].alive || g.night.at(t).died || g.players[t].Role().Faction() == FactionCult ||
		g.Defense(t) != combat.DefenseNone {
		g.nightMessageWith(actor, ChatMessage{Key: string(ResultConversionFailed), Players: []player.Ref{t}})
		return
	}
	g.convert(t, RoleZealot)
	g.nightMessage(t, ResultConverted)
}

// Zealot kills for the cult.
type Zealot struct{ base }

func (*Zealot) Role() Role { return RoleZealot }

func (*Zealot) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionCult), true)}
}

func (*Zealot) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "zealot", true)
}

func (*Zealot) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketKill {
		return
	}
	if v, ok := g.tagged(actor, "zealot"); ok {
		g.tryNightKill(actor, v.Target, KilledByFaction(FactionCult), combat.AttackBasic)
	}
}

// SerialKiller kills every night and also attacks whoever tries to roleblock it.
type SerialKiller struct{ base }

func (*SerialKiller) Role() Role { return RoleSerialKiller }

func (*SerialKiller) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), true)}
}

func (*SerialKiller) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "serial_killer", true)
}

var roleblockTags = map[visit.Tag]bool{"escort": true, "consort": true}

func (*SerialKiller) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketKill || !g.players[actor].alive {
		return
	}
	for _, v := range g.night.visits.ByTarget(actor) {
		if roleblockTags[v.Tag] && v.Visitor != actor {
			g.tryNightKill(actor, v.Visitor, KilledByRole(RoleSerialKiller), combat.AttackBasic)
		}
	}
	if v, ok := g.tagged(actor, "serial_killer"); ok {
		g.tryNightKill(actor, v.Target, KilledByRole(RoleSerialKiller), combat.AttackBasic)
	}
}

// Arsonist douses players and, by choosing itself, ignites all of them.
type Arsonist struct {
	base
	Doused player.RefSet
}

func (*Arsonist) Role() Role { return RoleArsonist }

func (*Arsonist) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.living(), true)}
}

func (a *Arsonist) Visits(g *Game, actor player.Ref) []visit.Visit {
	if t, ok := g.chosenPlayer(actor, 0); ok && t == actor {
		return nil
	}
	return g.targetVisit(actor, "arsonist", false)
}

func (a *Arsonist) NightAction(g *Game, actor player.Ref, b Bucket) {
	switch b {
	case BucketDeception:
		v, ok := g.tagged(actor, "arsonist")
		if !ok {
			return
		}
		if a.Doused.Insert(v.Target) {
			g.players[actor].addTag(v.Target, TagDoused)
			g.nightMessage(v.Target, ResultDoused)
		}
	case BucketKill:
		t, ok := g.chosenPlayer(actor, 0)
		if !ok || t != actor || !g.canAct(actor) || a.Doused.Len() == 0 {
			return
		}
		doused := a.Doused.Slice()
		a.Doused = player.RefSet{}
		for _, d := range doused {
			g.players[actor].removeTag(d, TagDoused)
			g.tryNightKill(actor, d, KilledByRole(RoleArsonist), combat.AttackProtectionPiercing)
		}
	}
}

// Politician keeps the game running and wins only alone.
type Politician struct{ base }

func (*Politician) Role() Role { return RolePolitician }

// Jester wins by being lynched, and then haunts one of the players who voted
// guilty.
type Jester struct {
	base
	Lynched      bool
	Haunted      bool
	GuiltyVoters player.RefSet
}

func (*Jester) Role() Role { return RoleJester }

func (j *Jester) hauntPool(g *Game) player.RefSet {
	var pool player.RefSet
	for _, v := range j.GuiltyVoters.Slice() {
		if g.players[v].alive {
			pool.Insert(v)
		}
	}
	return pool
}

func (j *Jester) Abilities(g *Game, actor player.Ref) Abilities {
	allowed := j.Lynched && !j.Haunted && g.isNight()
	return Abilities{0: ability.Build(ability.AvailablePlayerList{Players: j.hauntPool(g), MaxPlayers: 1}).
		ResetOnPhaseStart(phase.Night).
		GrayedOut(!allowed).
		AllowIf(allowed, actor).
		Done()}
}

func (j *Jester) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketKill || !j.Lynched || j.Haunted {
		return
	}
	pool := j.hauntPool(g)
	if pool.Len() == 0 {
		return
	}
	target, ok := g.chosenPlayer(actor, 0)
	if !ok || !pool.Contains(target) {
		target = pool.Slice()[dice.Pick(pool.Len(), g.src)]
	}
	j.Haunted = true
	if combat.Wildcard().Resolve(combat.Subject{Alive: g.players[target].alive}) == combat.OutcomeUnblockable {
		g.markDied(target, KilledByRole(RoleJester))
		g.nightMessage(target, ResultHaunted)
	}
}

func (j *Jester) OnAnyDeath(g *Game, actor, dead player.Ref) {
	if dead != actor {
		return
	}
	if grave, ok := g.Grave(dead); ok && grave.Cause == CauseLynching {
		j.Lynched = true
		j.GuiltyVoters = g.guiltyVoters.Clone()
	}
}

func (j *Jester) won(*Game, player.Ref, *conclusion.Conclusion) bool { return j.Lynched }

// Executioner wins if its target is lynched, and becomes a jester if the
// target dies any other way.
type Executioner struct {
	base
	Target    player.Ref
	HasTarget bool
	Won       bool
}

func (*Executioner) Role() Role { return RoleExecutioner }

func (e *Executioner) OnPhaseStart(g *Game, actor player.Ref, k phase.Kind) {
	if k != phase.Briefing || e.HasTarget {
		return
	}
	var pool []player.Ref
	for i, p := range g.players {
		if p.alive && player.Ref(i) != actor && p.Role().Faction() == FactionTown {
			pool = append(pool, player.Ref(i))
		}
	}
	if len(pool) == 0 {
		g.convert(actor, RoleJester)
		return
	}
	e.Target, e.HasTarget = pool[dice.Pick(len(pool), g.src)], true
	g.players[actor].addTag(e.Target, TagExecutionerTarget)
}

func (e *Executioner) OnAnyDeath(g *Game, actor, dead player.Ref) {
	if !e.HasTarget || dead != e.Target || e.Won {
		return
	}
	if grave, ok := g.Grave(dead); ok && grave.Cause == CauseLynching {
		e.Won = true
		return
	}
	if g.players[actor].alive {
		g.convert(actor, RoleJester)
	}
}

func (e *Executioner) won(*Game, player.Ref, *conclusion.Conclusion) bool { return e.Won }

// Survivor wins by being alive at the end, and may put on a vest to gain
// armor for a night.
type Survivor struct {
	base
	Vests int
}

func (*Survivor) Role() Role { return RoleSurvivor }

func (s *Survivor) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightToggle(actor, s.Vests > 0)}
}

func (s *Survivor) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketTopPriority || s.Vests <= 0 || !g.canAct(actor) || !g.chosenBool(actor, 0) {
		return
	}
	s.Vests--
	g.grantDefense(actor, actor, combat.DefenseArmored)
}

func (*Survivor) won(g *Game, actor player.Ref, _ *conclusion.Conclusion) bool {
	return g.players[actor].alive
}

// Wildcard has not committed to a role yet; it becomes the role it picks at
// the start of a night.
type Wildcard struct{ base }

func (*Wildcard) Role() Role { return RoleWildcard }

func (*Wildcard) Abilities(g *Game, actor player.Ref) Abilities {
	allowed := g.players[actor].alive && g.isNight()
	choices := roleNames(func(r Role) bool { return r != RoleWildcard })
	return Abilities{0: ability.Build(ability.AvailableRoleOption{Roles: choices}).
		GrayedOut(!allowed).
		AllowIf(allowed, actor).
		Done()}
}

func (*Wildcard) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketTopPriority || !g.canAct(actor) {
		return
	}
	chosen, ok := ParseRole(g.controllers.Role(g.roleID(actor, 0)))
	if !ok || chosen == RoleWildcard {
		return
	}
	g.convert(actor, chosen)
	g.nightMessageWith(actor, ChatMessage{Key: string(ResultBecameRole), Role: chosen})
}

func (*Wildcard) won(*Game, player.Ref, *conclusion.Conclusion) bool { return false }
