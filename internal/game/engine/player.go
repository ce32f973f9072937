package engine

import (
	"sort"
	"time"

	"github.com/cory-johannsen/nightfall/internal/game/conclusion"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// ConnectionState tracks whether a player's client is attached.
type ConnectionState int

const (
	Connected ConnectionState = iota
	Disconnected
	Left
)

// String returns the connection label.
func (c ConnectionState) String() string {
	switch c {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "left"
	}
}

// Tag is a marker one player sees on another.
type Tag string

const (
	TagDoused            Tag = "doused"
	TagLover             Tag = "lover"
	TagExecutionerTarget Tag = "executioner_target"
	TagJailed            Tag = "jailed"
	TagPoisoned          Tag = "poisoned"
)

// Text length limits for saved player text.
const (
	MaxWillLength      = 1000
	MaxNotesLength     = 1000
	MaxDeathNoteLength = 300
	MaxChatLength      = 400
)

// Player is one row of the player table. Players are never removed; a player
// who leaves stays in the table as dead.
type Player struct {
	Name         string
	alive        bool
	role         RoleState
	winCondition conclusion.WinCondition
	will         string
	notes        string
	deathNote    string

	connection   ConnectionState
	disconnected time.Time

	// tags holds the markers this player sees on others.
	tags map[player.Ref]map[Tag]bool
	// knownRoles holds roles this player has learned outside the usual
	// channels (cleaned graves, revealed mayors are public and not stored here).
	knownRoles map[player.Ref]Role

	queue []ChatMessage
}

func newPlayer(name string, role RoleState) *Player {
	return &Player{
		Name:         name,
		alive:        true,
		role:         role,
		winCondition: role.Role().Faction().WinCondition(),
		tags:         map[player.Ref]map[Tag]bool{},
		knownRoles:   map[player.Ref]Role{},
	}
}

// Alive reports whether the player is alive.
func (p *Player) Alive() bool { return p.alive }

// RoleState returns the player's current role state.
func (p *Player) RoleState() RoleState { return p.role }

// Role returns the player's current role.
func (p *Player) Role() Role { return p.role.Role() }

// WinCondition returns the player's current win condition.
func (p *Player) WinCondition() conclusion.WinCondition { return p.winCondition }

// Will returns the saved will text.
func (p *Player) Will() string { return p.will }

// Notes returns the saved notes text.
func (p *Player) Notes() string { return p.notes }

// Connection returns the connection state.
func (p *Player) Connection() ConnectionState { return p.connection }

func (p *Player) addTag(on player.Ref, t Tag) {
	set, ok := p.tags[on]
	if !ok {
		set = map[Tag]bool{}
		p.tags[on] = set
	}
	set[t] = true
}

func (p *Player) removeTag(on player.Ref, t Tag) {
	if set, ok := p.tags[on]; ok {
		delete(set, t)
		if len(set) == 0 {
			delete(p.tags, on)
		}
	}
}

// HasTag reports whether the player sees t on other.
func (p *Player) HasTag(on player.Ref, t Tag) bool {
	return p.tags[on][t]
}

// Tags returns the markers the player sees, sorted for stable output.
func (p *Player) Tags() map[player.Ref][]Tag {
	out := make(map[player.Ref][]Tag, len(p.tags))
	for on, set := range p.tags {
		list := make([]Tag, 0, len(set))
		for t := range set {
			list = append(list, t)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		out[on] = list
	}
	return out
}
