package engine

import (
	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/combat"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/visit"
)

// targetVisit returns the single visit for actor's first ability, or nil.
func (g *Game) targetVisit(actor player.Ref, tag visit.Tag, attack bool) []visit.Visit {
	if !g.players[actor].alive {
		return nil
	}
	t, ok := g.chosenPlayer(actor, 0)
	if !ok {
		return nil
	}
	return []visit.Visit{{Visitor: actor, Target: t, Attack: attack, Tag: tag}}
}

// Villager has no ability.
type Villager struct{ base }

func (*Villager) Role() Role { return RoleVillager }

// Detective learns whether its target appears suspicious.
type Detective struct{ base }

func (*Detective) Role() Role { return RoleDetective }

func (*Detective) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), true)}
}

func (*Detective) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "detective", false)
}

func (*Detective) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketInvestigative {
		return
	}
	v, ok := g.tagged(actor, "detective")
	if !ok {
		return
	}
	key := ResultInnocent
	if g.appearsSuspicious(v.Target) {
		key = ResultSuspicious
	}
	g.nightMessageWith(actor, ChatMessage{Key: string(key), Players: []player.Ref{v.Target}})
}

// appearsSuspicious is the detective's view of target tonight: framed players
// are suspicious, a forged appearance replaces the real role, and the
// godfather always appears innocent.
func (g *Game) appearsSuspicious(target player.Ref) bool {
	np := g.night.at(target)
	if np.framed {
		return true
	}
	r := g.players[target].Role()
	if np.appeared != "" {
		r = np.appeared
	}
	if r == RoleGodfather {
		return false
	}
	switch r.Faction() {
	case FactionMafia, FactionCult, FactionFiends:
		return true
	}
	return false
}

// Lookout sees who visited its target.
type Lookout struct{ base }

func (*Lookout) Role() Role { return RoleLookout }

func (*Lookout) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), true)}
}

func (*Lookout) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "lookout", false)
}

func (*Lookout) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketInvestigative {
		return
	}
	v, ok := g.tagged(actor, "lookout")
	if !ok {
		return
	}
	var seen []player.Ref
	for _, visitor := range g.night.visits.Visitors(v.Target).Slice() {
		if visitor == actor || g.night.at(visitor).roleblocked {
			continue
		}
		seen = append(seen, visitor)
	}
	g.nightMessageWith(actor, ChatMessage{Key: string(ResultVisitors), Players: append([]player.Ref{v.Target}, seen...)})
}

// Tracker sees whom its target visited.
type Tracker struct{ base }

func (*Tracker) Role() Role { return RoleTracker }

func (*Tracker) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), true)}
}

func (*Tracker) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "tracker", false)
}

func (*Tracker) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketInvestigative {
		return
	}
	v, ok := g.tagged(actor, "tracker")
	if !ok {
		return
	}
	var visited player.RefSet
	if !g.night.at(v.Target).roleblocked {
		for _, tv := range g.night.visits.ByVisitor(v.Target) {
			visited.Insert(tv.Target)
		}
	}
	g.nightMessageWith(actor, ChatMessage{Key: string(ResultTracked), Players: append([]player.Ref{v.Target}, visited.Slice()...)})
}

// Doctor protects one player a night and cures poison. It may heal itself
// SelfHeals times.
type Doctor struct {
	base
	SelfHeals int
}

func (*Doctor) Role() Role { return RoleDoctor }

func (d *Doctor) Abilities(g *Game, actor player.Ref) Abilities {
	pool := g.livingExcept(actor)
	if d.SelfHeals > 0 && g.players[actor].alive {
		pool.Insert(actor)
	}
	return Abilities{0: g.nightTarget(actor, pool, true)}
}

func (*Doctor) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "doctor", false)
}

func (d *Doctor) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketHeal {
		return
	}
	v, ok := g.tagged(actor, "doctor")
	if !ok {
		return
	}
	if v.Target == actor {
		if d.SelfHeals <= 0 {
			return
		}
		d.SelfHeals--
	}
	g.grantDefense(actor, v.Target, combat.DefenseProtected)
	g.night.at(v.Target).cured = true
}

// Bodyguard pulls attacks on its ward onto itself and strikes back at the
// attackers.
type Bodyguard struct{ base }

func (*Bodyguard) Role() Role { return RoleBodyguard }

func (*Bodyguard) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), true)}
}

func (*Bodyguard) Visits(g *Game, actor player.Ref) []visit.Visit {
	vs := g.targetVisit(actor, "bodyguard", false)
	for i := range vs {
		vs[i].Transport = visit.PriorityBodyguard
	}
	return vs
}

func (*Bodyguard) NightAction(g *Game, actor player.Ref, b Bucket) {
	switch b {
	case BucketBodyguard:
		v, ok := g.tagged(actor, "bodyguard")
		if !ok {
			return
		}
		ward := v.Target
		np := g.night.at(actor)
		for _, av := range g.night.visits.ByTarget(ward) {
			if av.Attack && av.Visitor != actor && av.Transport < visit.PriorityBodyguard {
				np.intercepted = append(np.intercepted, av.Visitor)
			}
		}
		if len(np.intercepted) == 0 {
			return
		}
		g.queueRedirect(visit.Redirect{
			By:            actor,
			Priority:      visit.PriorityBodyguard,
			Substitutions: map[player.Ref]player.Ref{ward: actor},
			Filter:        func(av visit.Visit) bool { return av.Attack && av.Visitor != actor },
		}, ward, actor)
		g.nightMessage(ward, ResultGuarded)
	case BucketKill:
		if !g.players[actor].alive {
			return
		}
		for _, attacker := range g.night.at(actor).intercepted {
			g.tryNightKill(actor, attacker, KilledByRole(RoleBodyguard), combat.AttackArmorPiercing)
		}
	}
}

// Escort roleblocks its target.
type Escort struct{ base }

func (*Escort) Role() Role { return RoleEscort }

func (*Escort) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), true)}
}

func (*Escort) Visits(g *Game, actor player.Ref) []visit.Visit {
	return g.targetVisit(actor, "escort", false)
}

func (*Escort) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketRoleblock {
		return
	}
	if v, ok := g.tagged(actor, "escort"); ok {
		g.roleblock(v.Target)
	}
}

// Transporter swaps two players so every weaker visit to one lands on the other.
type Transporter struct{ base }

func (*Transporter) Role() Role { return RoleTransporter }

func (*Transporter) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightPair(actor, g.living(), true)}
}

func (*Transporter) Visits(g *Game, actor player.Ref) []visit.Visit {
	if !g.players[actor].alive {
		return nil
	}
	a, b, ok := g.chosenPair(actor, 0)
	if !ok {
		return nil
	}
	return []visit.Visit{
		{Visitor: actor, Target: a, Tag: "transporter.first", Transport: visit.PriorityTransporter},
		{Visitor: actor, Target: b, Tag: "transporter.second", Transport: visit.PriorityTransporter},
	}
}

func (*Transporter) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketTransport {
		return
	}
	first, ok := g.tagged(actor, "transporter.first")
	if !ok {
		return
	}
	second, ok := g.night.visits.Tagged(actor, "transporter.second")
	if !ok {
		return
	}
	g.queueRedirect(visit.Redirect{
		By:            actor,
		Priority:      visit.PriorityTransporter,
		Substitutions: visit.Swap(first.Target, second.Target),
	}, first.Target, second.Target)
}

// Vigilante shoots with a limited supply of bullets and dies of guilt the
// night after killing a Town player.
type Vigilante struct {
	base
	Bullets int
	Guilty  bool
	shot    player.Ref
	fired   bool
}

func (*Vigilante) Role() Role { return RoleVigilante }

func (v *Vigilante) Abilities(g *Game, actor player.Ref) Abilities {
	usable := v.Bullets > 0 && !v.Guilty && g.day > 1
	return Abilities{0: g.nightTarget(actor, g.livingExcept(actor), usable)}
}

func (v *Vigilante) Visits(g *Game, actor player.Ref) []visit.Visit {
	if v.Bullets <= 0 || v.Guilty || g.day <= 1 {
		return nil
	}
	return g.targetVisit(actor, "vigilante", true)
}

func (v *Vigilante) NightAction(g *Game, actor player.Ref, b Bucket) {
	switch b {
	case BucketTopPriority:
		if v.Guilty && g.players[actor].alive {
			v.Guilty = false
			g.markDied(actor, Suicide())
			g.night.at(actor).cause = CauseSuicide
			g.nightMessage(actor, ResultGuilt)
		}
	case BucketKill:
		if v.Bullets <= 0 {
			return
		}
		shot, ok := g.tagged(actor, "vigilante")
		if !ok {
			return
		}
		v.Bullets--
		v.shot, v.fired = shot.Target, true
		g.tryNightKill(actor, shot.Target, KilledByRole(RoleVigilante), combat.AttackBasic)
	case BucketFinalize:
		if !v.fired {
			return
		}
		v.fired = false
		victim := g.players[v.shot].WinCondition()
		if g.night.at(v.shot).died && !victim.IsRoleState() && victim.FriendsWith(g.players[actor].WinCondition()) {
			v.Guilty = true
		}
	}
}

// Veteran goes on alert, becoming invincible and shooting every visitor.
type Veteran struct {
	base
	Alerts int
}

func (*Veteran) Role() Role { return RoleVeteran }

func (v *Veteran) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightToggle(actor, v.Alerts > 0)}
}

func (v *Veteran) NightAction(g *Game, actor player.Ref, b Bucket) {
	switch b {
	case BucketTopPriority:
		if v.Alerts <= 0 || !g.canAct(actor) || !g.chosenBool(actor, 0) {
			return
		}
		v.Alerts--
		np := g.night.at(actor)
		np.alert = true
		g.grantDefense(actor, actor, combat.DefenseInvincible)
	case BucketKill:
		if !g.night.at(actor).alert || !g.players[actor].alive {
			return
		}
		for _, visitor := range g.night.visits.Visitors(actor).Slice() {
			if visitor == actor {
				continue
			}
			g.tryNightKill(actor, visitor, KilledByRole(RoleVeteran), combat.AttackProtectionPiercing)
		}
	}
}

// Jailor detains a player chosen during the day. The prisoner is roleblocked
// and protected, and the jailor may execute them.
type Jailor struct {
	base
	Executions int
	Prisoner   player.Ref
	Jailing    bool
}

func (*Jailor) Role() Role { return RoleJailor }

func (j *Jailor) Abilities(g *Game, actor player.Ref) Abilities {
	alive := g.players[actor].alive
	dayAllowed := alive && g.isDay()
	detain := ability.Build(ability.AvailablePlayerList{Players: g.livingExcept(actor), MaxPlayers: 1}).
		ResetOnPhaseStart(phase.Obituary).
		GrayedOut(!dayAllowed).
		AllowIf(dayAllowed, actor).
		Done()
	execute := g.nightToggle(actor, j.Jailing && j.Executions > 0)
	return Abilities{0: detain, 1: execute}
}

func (j *Jailor) OnPhaseStart(g *Game, actor player.Ref, k phase.Kind) {
	switch k {
	case phase.Night:
		j.Jailing = false
		if !g.players[actor].alive {
			return
		}
		prisoner, ok := g.chosenPlayer(actor, 0)
		if !ok || !g.players[prisoner].alive {
			return
		}
		j.Prisoner, j.Jailing = prisoner, true
		np := g.night.at(prisoner)
		np.jailed, np.jailedBy = true, actor
		g.players[actor].addTag(prisoner, TagJailed)
		g.nightMessage(prisoner, ResultJailed)
	case phase.Obituary:
		if j.Jailing {
			g.players[actor].removeTag(j.Prisoner, TagJailed)
		}
		j.Jailing = false
	}
}

func (j *Jailor) NightAction(g *Game, actor player.Ref, b Bucket) {
	if !j.Jailing || !g.players[actor].alive {
		return
	}
	switch b {
	case BucketTopPriority:
		np := g.night.at(j.Prisoner)
		np.roleblocked = true
		g.grantDefense(actor, j.Prisoner, combat.DefenseProtected)
	case BucketKill:
		if j.Executions <= 0 || !g.chosenBool(actor, 1) {
			return
		}
		j.Executions--
		if g.tryNightKill(actor, j.Prisoner, KilledByRole(RoleJailor), combat.AttackProtectionPiercing) {
			g.nightMessage(j.Prisoner, ResultExecuted)
			if g.players[j.Prisoner].Role().Faction() == FactionTown {
				j.Executions = 0
				g.nightMessage(actor, ResultExecutedTown)
			}
		}
	}
}

// Mayor may reveal itself during the day to triple its vote.
type Mayor struct {
	base
	Revealed bool
}

func (*Mayor) Role() Role { return RoleMayor }

func (m *Mayor) Abilities(g *Game, actor player.Ref) Abilities {
	allowed := g.players[actor].alive && !m.Revealed && g.isDay()
	return Abilities{0: ability.Build(ability.AvailableUnit{}).
		DontSave().
		GrayedOut(!allowed).
		AllowIf(allowed, actor).
		Done()}
}

func (m *Mayor) OnSubmit(g *Game, actor player.Ref, index uint8, _ ability.Selection) {
	if index != 0 || m.Revealed {
		return
	}
	m.Revealed = true
	g.announce(ChatMessage{Key: string(AnnounceMayorRevealed), Players: []player.Ref{actor}})
	g.syncLabels()
}

// Retributionist revives one dead Town player.
type Retributionist struct {
	base
	Used bool
}

func (*Retributionist) Role() Role { return RoleRetributionist }

func (r *Retributionist) Abilities(g *Game, actor player.Ref) Abilities {
	var pool player.RefSet
	for _, grave := range g.graves {
		if !g.players[grave.Player].alive && grave.TownAligned() && grave.Player != actor {
			pool.Insert(grave.Player)
		}
	}
	return Abilities{0: g.nightTarget(actor, pool, !r.Used)}
}

func (r *Retributionist) Visits(g *Game, actor player.Ref) []visit.Visit {
	if r.Used {
		return nil
	}
	return g.targetVisit(actor, "retributionist", false)
}

func (r *Retributionist) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketConvert || r.Used {
		return
	}
	v, ok := g.tagged(actor, "retributionist")
	if !ok {
		return
	}
	grave, _ := g.Grave(v.Target)
	subject := combat.Subject{Alive: g.players[v.Target].alive, GraveTownAligned: grave.TownAligned()}
	if combat.Revive(true).Resolve(subject) != combat.OutcomeRevive {
		return
	}
	r.Used = true
	g.revive(v.Target)
}

// Matchmaker links two players on the first night. When one lover dies the
// other dies of heartbreak.
type Matchmaker struct {
	base
	Linked bool
	Lovers [2]player.Ref
}

func (*Matchmaker) Role() Role { return RoleMatchmaker }

func (m *Matchmaker) Abilities(g *Game, actor player.Ref) Abilities {
	return Abilities{0: g.nightPair(actor, g.living(), !m.Linked && g.day == 1)}
}

func (m *Matchmaker) NightAction(g *Game, actor player.Ref, b Bucket) {
	if b != BucketTopPriority || m.Linked || g.day != 1 || !g.canAct(actor) {
		return
	}
	a, c, ok := g.chosenPair(actor, 0)
	if !ok || a == c {
		return
	}
	m.Linked, m.Lovers = true, [2]player.Ref{a, c}
	for _, p := range []player.Ref{actor, a, c} {
		g.players[p].addTag(a, TagLover)
		g.players[p].addTag(c, TagLover)
	}
	g.nightMessageWith(a, ChatMessage{Key: string(ResultLovers), Players: []player.Ref{a, c}})
	g.nightMessageWith(c, ChatMessage{Key: string(ResultLovers), Players: []player.Ref{a, c}})
}

func (m *Matchmaker) OnAnyDeath(g *Game, _, dead player.Ref) {
	if !m.Linked {
		return
	}
	var other player.Ref
	switch dead {
	case m.Lovers[0]:
		other = m.Lovers[1]
	case m.Lovers[1]:
		other = m.Lovers[0]
	default:
		return
	}
	if !g.players[other].alive {
		return
	}
	// A lover already marked dead tonight keeps their own grave.
	if g.night != nil && g.night.at(other).died {
		return
	}
	g.killPlayer(other, CauseHeartbreak, nil, nil)
}
