package engine

import (
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// GraveKillerKind classifies a cause recorded on a grave.
type GraveKillerKind string

const (
	KillerRole     GraveKillerKind = "role"
	KillerFaction  GraveKillerKind = "faction"
	KillerLynching GraveKillerKind = "lynching"
	KillerSuicide  GraveKillerKind = "suicide"
	KillerQuit     GraveKillerKind = "quit"
)

// GraveKiller is one entry in a grave's list of killers.
type GraveKiller struct {
	Kind    GraveKillerKind `json:"kind"`
	Role    Role            `json:"role,omitempty"`
	Faction Faction         `json:"faction,omitempty"`
}

// KilledByRole records a kill attributed to a role.
func KilledByRole(r Role) GraveKiller { return GraveKiller{Kind: KillerRole, Role: r} }

// KilledByFaction records a kill attributed to a faction as a whole.
func KilledByFaction(f Faction) GraveKiller { return GraveKiller{Kind: KillerFaction, Faction: f} }

// Lynched records a day execution.
func Lynched() GraveKiller { return GraveKiller{Kind: KillerLynching} }

// Suicide records a self-inflicted death.
func Suicide() GraveKiller { return GraveKiller{Kind: KillerSuicide} }

// Quit records a player who left the game.
func Quit() GraveKiller { return GraveKiller{Kind: KillerQuit} }

// DeathCause summarises how a player died.
type DeathCause string

const (
	CauseLynching   DeathCause = "lynching"
	CauseKillers    DeathCause = "killers"
	CauseHeartbreak DeathCause = "heartbreak"
	CauseSuicide    DeathCause = "suicide"
	CauseQuit       DeathCause = "quit"
)

// Grave is the public record of a death.
type Grave struct {
	Player player.Ref `json:"player"`
	Day    int        `json:"day"`
	// Role is empty when the grave is hidden.
	Role       Role          `json:"role,omitempty"`
	Hidden     bool          `json:"hidden"`
	Cause      DeathCause    `json:"cause"`
	Killers    []GraveKiller `json:"killers,omitempty"`
	Will       string        `json:"will,omitempty"`
	DeathNotes []string      `json:"death_notes,omitempty"`
}

// TownAligned reports whether the grave shows a Town role.
func (g Grave) TownAligned() bool {
	return !g.Hidden && g.Role.Faction() == FactionTown
}
