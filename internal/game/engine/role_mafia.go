package engine

import (
	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/combat"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/visit"
)

// Godfather orders the mafioso's kill, and kills personally once no mafioso
// is alive.
type Godfather struct{ base }

func (*Godfather) Role() Role { return RoleGodfather }

func (*Godfather) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionMafia), true)}
}

func (*Godfather) Visits(g *Game, actor player.Ref) []visit.Visit {
	if len(g.livingWithRole(RoleMafioso)) > 0 {
		return nil
	}
	return g.targetVisit(actor, "godfather", true)
}

func (*Godfather) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketKill {
		return
	}
	if v, ok := g.tagged(actor, "godfather"); ok {
		g.tryNightKill(actor, v.Target, KilledByFaction(FactionMafia), combat.AttackBasic)
	}
}

// Mafioso kills for the mafia. A living godfather's choice overrides its own.
type Mafioso struct{ base }

func (*Mafioso) Role() Role { return RoleMafioso }

func (*Mafioso) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionMafia), true)}
}

func (*Mafioso) Visits(g *Game, actor player.Ref) []visit.Visit {
	if !g.players[actor].alive {
		return nil
	}
	for _, gf := range g.livingWithRole(RoleGodfather) {
		if order, ok := g.chosenPlayer(gf, 0); ok {
			return []visit.Visit{{Visitor: actor, Target: order, Attack: true, Tag: "mafioso"}}
		}
	}
	return g.targetVisit(actor, "mafioso", true)
}

func (*Mafioso) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketKill {
		return
	}
	if v, ok := g.tagged(actor, "mafioso"); ok {
		g.tryNightKill(actor, v.Target, KilledByFaction(FactionMafia), combat.AttackBasic)
	}
}

// Consort roleblocks its target.
type Consort struct{ base }

func (*Consort) Role() Role { return RoleConsort }

func (*Consort) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionMafia), true)}
}

func (*Consort) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "consort", false)
}

func (*Consort) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketRoleblock {
		return
	}
	if v, ok := g.tagged(actor, "consort"); ok {
		g.roleblock(v.Target)
	}
}

// Framer makes its target appear suspicious for the night.
type Framer struct{ base }

func (*Framer) Role() Role { return RoleFramer }

func (*Framer) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionMafia), true)}
}

func (*Framer) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "framer", false)
}

func (*Framer) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketDeception {
		return
	}
	if v, ok := g.tagged(actor, "framer"); ok {
		g.night.at(v.Target).framed = true
	}
}

// Janitor hides the role and will of its target if the target dies tonight,
// and learns the hidden role.
type Janitor struct {
	base
	Cleans int
}

func (*Janitor) Role() Role { return RoleJanitor }

func (j *Janitor) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), j.Cleans > 0)}
}

func (j *Janitor) Visits(g *Game, actor player.Ref) []visit.Visit {
	if j.Cleans <= 0 {
		return nil
	}
	return g.targetVisit(actor, "janitor", false)
}

func (j *Janitor) NightAction(g *Game, actor player.Ref, b Bucket) {
	if j.Cleans <= 0 {
		return
	}
	switch b {
	case BucketDeception:
		if v, ok := g.tagged(actor, "janitor"); ok {
			np := g.night.at(v.Target)
			np.cleaned, np.cleanedBy = true, actor
		}
	case BucketFinalize:
		v, ok := g.night.visits.Tagged(actor, "janitor")
		if !ok {
			return
		}
		np := g.night.at(v.Target)
		if !np.cleaned || np.cleanedBy != actor || !np.died {
			return
		}
		j.Cleans--
		g.players[actor].knownRoles[v.Target] = g.players[v.Target].Role()
		g.nightMessageWith(actor, ChatMessage{
			Key:     string(ResultCleanedRole),
			Players: []player.Ref{v.Target},
			Role:    g.players[v.Target].Role(),
			Text:    g.players[v.Target].will,
		})
	}
}

// Forger makes its target's grave and investigations show a chosen role.
type Forger struct {
	base
	Forges int
}

func (*Forger) Role() Role { return RoleForger }

func (f *Forger) Abilities(g *Game, actor player.Ref) Abilities {
	usable := f.Forges > 0
	allowed := g.players[actor].alive && g.isNight() && usable
	fake := ability.Build(ability.AvailableRoleOption{Roles: roleNames(func(Role) bool { return true })}).
		ResetOnPhaseStart(phase.Night).
		GrayedOut(!allowed).
		AllowIf(allowed, actor).
		Done()
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), usable), 1: fake}
}

func (f *Forger) Visits(g *Game, actor player.Ref) []visit.Visit {
	if f.Forges <= 0 {
		return nil
	}
	return g.targetVisit(actor, "forger", false)
}

func (f *Forger) NightAction(g *Game, actor player.Ref, b Bucket) {
	if f.Forges <= 0 {
		return
	}
	switch b {
	case BucketDeception:
		v, ok := g.tagged(actor, "forger")
		if !ok {
			return
		}
		fake := Role(g.controllers.Role(g.roleID(actor, 1)))
		if fake == "" {
			return
		}
		g.night.at(v.Target).appeared = fake
	case BucketFinalize:
		v, ok := g.night.visits.Tagged(actor, "forger")
		if !ok {
			return
		}
		if np := g.night.at(v.Target); np.appeared != "" && np.died {
			f.Forges--
		}
	}
}

// Blackmailer silences its target for the following day.
type Blackmailer struct{ base }

func (*Blackmailer) Role() Role { return RoleBlackmailer }

func (*Blackmailer) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionMafia), true)}
}

func (*Blackmailer) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "blackmailer", false)
}

func (*Blackmailer) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketDeception {
		return
	}
	if v, ok := g.tagged(actor, "blackmailer"); ok {
		g.night.at(v.Target).silenced = true
		g.nightMessage(v.Target, ResultBlackmailed)
	}
}

// Poisoner poisons its target; the poison attacks the following night unless
// a doctor cures it first.
type Poisoner struct {
	base
	Pending []player.Ref
}

func (*Poisoner) Role() Role { return RolePoisoner }

func (*Poisoner) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingOutside(FactionMafia), true)}
}

func (*Poisoner) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "poisoner", false)
}

func (p *Poisoner) NightAction(g *Game, actor player.Ref, b Bucket) {
	switch b {
	case BucketKill:
		if len(p.Pending) == 0 {
			return
		}
		pending := p.Pending
		p.Pending = nil
		for _, victim := range pending {
			g.players[actor].removeTag(victim, TagPoisoned)
			if !g.players[victim].alive {
				continue
			}
			if g.night.at(victim).cured {
				g.nightMessage(victim, ResultCured)
				continue
			}
			g.tryNightKill(actor, victim, KilledByRole(RolePoisoner), combat.AttackBasic)
		}
	case BucketPoison:
		v, ok := g.tagged(actor, "poisoner")
		if !ok {
			return
		}
		p.Pending = append(p.Pending, v.Target)
		g.players[actor].addTag(v.Target, TagPoisoned)
		g.nightMessage(v.Target, ResultPoisoned)
	}
}

// Warper moves every weaker visit aimed at its first choice onto its second.
type Warper struct{ base }

func (*Warper) Role() Role { return RoleWarper }

func (*Warper) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightPair(actor, g.living(), true)}
}

func (*Warper) Visits(g *Game, actor player.Ref) []visit.Visit {
	if !g.players[actor].alive {
		return nil
	}
	from, to, ok := g.chosenPair(actor, 0)
	if !ok {
		return nil
	}
	return []visit.Visit{
		{Visitor: actor, Target: from, Tag: "warper.from", Transport: visit.PriorityWarper},
		{Visitor: actor, Target: to, Tag: "warper.to", Transport: visit.PriorityWarper},
	}
}

func (*Warper) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketWarp {
		return
	}
	from, ok := g.tagged(actor, "warper.from")
	if !ok {
		return
	}
	to, ok := g.night.visits.Tagged(actor, "warper.to")
	if !ok || from.Target == to.Target {
		return
	}
	g.queueRedirect(visit.Redirect{
		By:            actor,
		Priority:      visit.PriorityWarper,
		Substitutions: map[player.Ref]player.Ref{from.Target: to.Target},
	}, from.Target, to.Target)
}
