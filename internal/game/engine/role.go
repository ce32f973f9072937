package engine

import (
	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/combat"
	"github.com/cory-johannsen/nightfall/internal/game/conclusion"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/game/visit"
)

// Role names a role in the catalogue.
type Role string

const (
	RoleVillager       Role = "villager"
	RoleDetective      Role = "detective"
	RoleLookout        Role = "lookout"
	RoleTracker        Role = "tracker"
	RoleDoctor         Role = "doctor"
	RoleBodyguard      Role = "bodyguard"
	RoleEscort         Role = "escort"
	RoleTransporter    Role = "transporter"
	RoleVigilante      Role = "vigilante"
	RoleVeteran        Role = "veteran"
	RoleJailor         Role = "jailor"
	RoleMayor          Role = "mayor"
	RoleRetributionist Role = "retributionist"
	RoleMatchmaker     Role = "matchmaker"

	RoleGodfather   Role = "godfather"
	RoleMafioso     Role = "mafioso"
	RoleConsort     Role = "consort"
	RoleFramer      Role = "framer"
	RoleJanitor     Role = "janitor"
	RoleForger      Role = "forger"
	RoleBlackmailer Role = "blackmailer"
	RolePoisoner    Role = "poisoner"
	RoleWarper      Role = "warper"

	RoleApostle Role = "apostle"
	RoleZealot  Role = "zealot"

	RoleSerialKiller Role = "serial_killer"
	RoleArsonist     Role = "arsonist"

	RolePolitician Role = "politician"

	RoleJester      Role = "jester"
	RoleExecutioner Role = "executioner"
	RoleSurvivor    Role = "survivor"
	RoleWildcard    Role = "wildcard"
)

// Faction groups roles that share a win condition.
type Faction string

const (
	FactionTown       Faction = "town"
	FactionMafia      Faction = "mafia"
	FactionCult       Faction = "cult"
	FactionFiends     Faction = "fiends"
	FactionPolitician Faction = "politician"
	FactionNeutral    Faction = "neutral"
)

// WinCondition returns the win condition shared by every role of f.
func (f Faction) WinCondition() conclusion.WinCondition {
	switch f {
	case FactionTown:
		return conclusion.Loyalist(conclusion.Town)
	case FactionMafia:
		return conclusion.Loyalist(conclusion.Mafia)
	case FactionCult:
		return conclusion.Loyalist(conclusion.Cult)
	case FactionFiends:
		return conclusion.Loyalist(conclusion.Fiends)
	case FactionPolitician:
		return conclusion.Loyalist(conclusion.Politician)
	default:
		return conclusion.RoleStateWon()
	}
}

// KeepsGameRunning reports whether a living member of f prevents the game
// from ending until its win condition is agreed on.
func (f Faction) KeepsGameRunning() bool {
	return f != FactionNeutral
}

// RoleState is one player's role together with the persistent fields that
// role owns (bullets, uses, chosen targets). The set of implementations is
// closed.
type RoleState interface {
	Role() Role
	// Abilities describes this role's controllers right now, keyed by index.
	Abilities(g *Game, actor player.Ref) Abilities
	// Visits converts saved selections into the night's visits.
	Visits(g *Game, actor player.Ref) []visit.Visit
	// NightAction runs the role's behaviour for one priority bucket.
	NightAction(g *Game, actor player.Ref, b Bucket)
	// OnPhaseStart runs after the phase has been entered and controllers reset.
	OnPhaseStart(g *Game, actor player.Ref, k phase.Kind)
	// OnAnyDeath runs for every player, alive or dead, when anyone dies.
	OnAnyDeath(g *Game, actor, dead player.Ref)
	// OnSubmit runs after a selection for one of this role's controllers is accepted.
	OnSubmit(g *Game, actor player.Ref, index uint8, sel ability.Selection)
	roleState()
}

// Abilities maps controller index to its parameters.
type Abilities map[uint8]ability.Parameters

// base supplies no-op behaviour for roles that do nothing at some hook.
type base struct{}

func (base) Abilities(*Game, player.Ref) Abilities                { return nil }
func (base) Visits(*Game, player.Ref) []visit.Visit               { return nil }
func (base) NightAction(*Game, player.Ref, Bucket)                {}
func (base) OnPhaseStart(*Game, player.Ref, phase.Kind)           {}
func (base) OnAnyDeath(*Game, player.Ref, player.Ref)             {}
func (base) OnSubmit(*Game, player.Ref, uint8, ability.Selection) {}
func (base) roleState()                                           {}

// roleStateWinner is implemented by roles whose win is decided by their own
// state rather than by the game conclusion.
type roleStateWinner interface {
	won(g *Game, actor player.Ref, c *conclusion.Conclusion) bool
}

type roleDef struct {
	faction Faction
	defense combat.DefensePower
	unique  bool
	new     func() RoleState
}

var roleOrder = []Role{
	RoleVillager, RoleDetective, RoleLookout, RoleTracker, RoleDoctor, RoleBodyguard,
	RoleEscort, RoleTransporter, RoleVigilante, RoleVeteran, RoleJailor, RoleMayor,
	RoleRetributionist, RoleMatchmaker,
	RoleGodfather, RoleMafioso, RoleConsort, RoleFramer, RoleJanitor, RoleForger,
	RoleBlackmailer, RolePoisoner, RoleWarper,
	RoleApostle, RoleZealot,
	RoleSerialKiller, RoleArsonist,
	RolePolitician,
	RoleJester, RoleExecutioner, RoleSurvivor, RoleWildcard,
}

var roles = map[Role]roleDef{
	RoleVillager:       {faction: FactionTown, new: func() RoleState { return &Villager{} }},
	RoleDetective:      {faction: FactionTown, new: func() RoleState { return &Detective{} }},
	RoleLookout:        {faction: FactionTown, new: func() RoleState { return &Lookout{} }},
	RoleTracker:        {faction: FactionTown, new: func() RoleState { return &Tracker{} }},
	RoleDoctor:         {faction: FactionTown, new: func() RoleState { return &Doctor{SelfHeals: 1} }},
	RoleBodyguard:      {faction: FactionTown, new: func() RoleState { return &Bodyguard{} }},
	RoleEscort:         {faction: FactionTown, new: func() RoleState { return &Escort{} }},
	RoleTransporter:    {faction: FactionTown, new: func() RoleState { return &Transporter{} }},
	RoleVigilante:      {faction: FactionTown, new: func() RoleState { return &Vigilante{Bullets: 3} }},
	RoleVeteran:        {faction: FactionTown, unique: true, new: func() RoleState { return &Veteran{Alerts: 3} }},
	RoleJailor:         {faction: FactionTown, unique: true, new: func() RoleState { return &Jailor{Executions: 3} }},
	RoleMayor:          {faction: FactionTown, unique: true, new: func() RoleState { return &Mayor{} }},
	RoleRetributionist: {faction: FactionTown, unique: true, new: func() RoleState { return &Retributionist{} }},
	RoleMatchmaker:     {faction: FactionTown, unique: true, new: func() RoleState { return &Matchmaker{} }},

	RoleGodfather:   {faction: FactionMafia, defense: combat.DefenseArmored, unique: true, new: func() RoleState { return &Godfather{} }},
	RoleMafioso:     {faction: FactionMafia, unique: true, new: func() RoleState { return &Mafioso{} }},
	RoleConsort:     {faction: FactionMafia, new: func() RoleState { return &Consort{} }},
	RoleFramer:      {faction: FactionMafia, new: func() RoleState { return &Framer{} }},
	RoleJanitor:     {faction: FactionMafia, new: func() RoleState { return &Janitor{Cleans: 3} }},
	RoleForger:      {faction: FactionMafia, new: func() RoleState { return &Forger{Forges: 2} }},
	RoleBlackmailer: {faction: FactionMafia, new: func() RoleState { return &Blackmailer{} }},
	RolePoisoner:    {faction: FactionMafia, new: func() RoleState { return &Poisoner{} }},
	RoleWarper:      {faction: FactionMafia, new: func() RoleState { return &Warper{} }},

	RoleApostle: {faction: FactionCult, unique: true, new: func() RoleState { return &Apostle{} }},
	RoleZealot:  {faction: FactionCult, new: func() RoleState { return &Zealot{} }},

	RoleSerialKiller: {faction: FactionFiends, defense: combat.DefenseArmored, new: func() RoleState { return &SerialKiller{} }},
	RoleArsonist:     {faction: FactionFiends, defense: combat.DefenseArmored, new: func() RoleState { return &Arsonist{} }},

	RolePolitician: {faction: FactionPolitician, new: func() RoleState { return &Politician{} }},

	RoleJester:      {faction: FactionNeutral, new: func() RoleState { return &Jester{} }},
	RoleExecutioner: {faction: FactionNeutral, new: func() RoleState { return &Executioner{} }},
	RoleSurvivor:    {faction: FactionNeutral, new: func() RoleState { return &Survivor{Vests: 4} }},
	RoleWildcard:    {faction: FactionNeutral, new: func() RoleState { return &Wildcard{} }},
}

// Roles returns every role name in catalogue order.
func Roles() []Role {
	return append([]Role(nil), roleOrder...)
}

// ParseRole reports whether name is a catalogue role.
func ParseRole(name string) (Role, bool) {
	r := Role(name)
	_, ok := roles[r]
	return r, ok
}

// NewRoleState returns the initial state of r.
//
// Precondition: r is a catalogue role.
func NewRoleState(r Role) RoleState {
	def, ok := roles[r]
	if !ok {
		panic("engine: unknown role " + string(r))
	}
	return def.new()
}

// Faction returns the faction of r.
func (r Role) Faction() Faction { return roles[r].faction }

// Defense returns the base defense of r.
func (r Role) Defense() combat.DefensePower { return roles[r].defense }

// Catalogue describes every role for role-list assignment.
func Catalogue() []settings.RoleInfo {
	out := make([]settings.RoleInfo, 0, len(roleOrder))
	for _, r := range roleOrder {
		def := roles[r]
		out = append(out, settings.RoleInfo{Name: string(r), Faction: string(def.faction), Unique: def.unique})
	}
	return out
}

// roleNames returns the catalogue roles matching keep, as strings.
func roleNames(keep func(Role) bool) []string {
	var out []string
	for _, r := range roleOrder {
		if keep(r) {
			out = append(out, string(r))
		}
	}
	return out
}
