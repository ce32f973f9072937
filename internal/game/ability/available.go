package ability

import (
	"unicode/utf8"

	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// Available describes the legal shape and bounds of a selection right now.
// The set of implementations is closed.
type Available interface {
	// Validate reports whether s is legal under this description.
	Validate(s Selection) bool
	// Default returns the selection used when nothing has been chosen.
	// Postcondition: Validate(Default()) is true.
	Default() Selection
	availableType() string
}

// AvailableUnit is a one-shot button.
type AvailableUnit struct{}

// AvailableBoolean is an on/off toggle.
type AvailableBoolean struct{}

// AvailablePlayerList allows choosing up to MaxPlayers players from Players.
// MaxPlayers == 0 means no upper bound.
type AvailablePlayerList struct {
	Players             player.RefSet `json:"players"`
	CanChooseDuplicates bool          `json:"can_choose_duplicates"`
	MaxPlayers          int           `json:"max_players"`
}

// AvailableTwoPlayerOption allows choosing nothing or an ordered pair from Players.
type AvailableTwoPlayerOption struct {
	Players             player.RefSet `json:"players"`
	CanChooseDuplicates bool          `json:"can_choose_duplicates"`
}

// AvailableRoleOption allows choosing nothing or one of Roles.
type AvailableRoleOption struct {
	Roles []string `json:"roles"`
}

// AvailableInteger allows any value in [Min, Max].
type AvailableInteger struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// AvailableString allows text up to MaxLength runes.
type AvailableString struct {
	MaxLength int `json:"max_length"`
}

func (AvailableUnit) availableType() string            { return "unit" }
func (AvailableBoolean) availableType() string         { return "boolean" }
func (AvailablePlayerList) availableType() string      { return "player_list" }
func (AvailableTwoPlayerOption) availableType() string { return "two_player_option" }
func (AvailableRoleOption) availableType() string      { return "role_option" }
func (AvailableInteger) availableType() string         { return "integer" }
func (AvailableString) availableType() string          { return "string" }

func (AvailableUnit) Validate(s Selection) bool {
	_, ok := s.(Unit)
	return ok
}

func (AvailableUnit) Default() Selection { return Unit{} }

func (AvailableBoolean) Validate(s Selection) bool {
	_, ok := s.(Boolean)
	return ok
}

func (AvailableBoolean) Default() Selection { return Boolean{} }

func (a AvailablePlayerList) Validate(s Selection) bool {
	pl, ok := s.(PlayerList)
	if !ok {
		return false
	}
	if a.MaxPlayers > 0 && len(pl.Players) > a.MaxPlayers {
		return false
	}
	var seen player.RefSet
	for _, p := range pl.Players {
		if !a.Players.Contains(p) {
			return false
		}
		if !seen.Insert(p) && !a.CanChooseDuplicates {
			return false
		}
	}
	return true
}

func (AvailablePlayerList) Default() Selection { return PlayerList{} }

func (a AvailableTwoPlayerOption) Validate(s Selection) bool {
	tp, ok := s.(TwoPlayerOption)
	if !ok {
		return false
	}
	if !tp.Chosen {
		return true
	}
	if !a.Players.Contains(tp.First) || !a.Players.Contains(tp.Second) {
		return false
	}
	return a.CanChooseDuplicates || tp.First != tp.Second
}

func (AvailableTwoPlayerOption) Default() Selection { return TwoPlayerOption{} }

func (a AvailableRoleOption) Validate(s Selection) bool {
	ro, ok := s.(RoleOption)
	if !ok {
		return false
	}
	if ro.Role == "" {
		return true
	}
	for _, r := range a.Roles {
		if r == ro.Role {
			return true
		}
	}
	return false
}

func (AvailableRoleOption) Default() Selection { return RoleOption{} }

func (a AvailableInteger) Validate(s Selection) bool {
	i, ok := s.(Integer)
	return ok && i.Value >= a.Min && i.Value <= a.Max
}

func (a AvailableInteger) Default() Selection { return Integer{Value: a.Min} }

func (a AvailableString) Validate(s Selection) bool {
	str, ok := s.(String)
	return ok && (a.MaxLength <= 0 || utf8.RuneCountInString(str.Value) <= a.MaxLength)
}

func (AvailableString) Default() Selection { return String{} }

// TypeOfAvailable returns the wire type name of a.
func TypeOfAvailable(a Available) string {
	if a == nil {
		return ""
	}
	return a.availableType()
}
