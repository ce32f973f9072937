package ability

import "github.com/cory-johannsen/nightfall/internal/game/player"

// Selection is a concrete value chosen for a controller.
// The set of implementations is closed.
type Selection interface {
	selectionType() string
}

// Unit is the selection of a one-shot button.
type Unit struct{}

// Boolean is an on/off selection.
type Boolean struct {
	Value bool `json:"value"`
}

// PlayerList is an ordered list of chosen players.
type PlayerList struct {
	Players []player.Ref `json:"players"`
}

// TwoPlayerOption is either nothing or an ordered pair of players.
type TwoPlayerOption struct {
	Chosen bool       `json:"chosen"`
	First  player.Ref `json:"first"`
	Second player.Ref `json:"second"`
}

// RoleOption is either nothing or one role name.
type RoleOption struct {
	Role string `json:"role,omitempty"`
}

// Integer is a bounded integer selection.
type Integer struct {
	Value int `json:"value"`
}

// String is free text.
type String struct {
	Value string `json:"value"`
}

func (Unit) selectionType() string            { return "unit" }
func (Boolean) selectionType() string         { return "boolean" }
func (PlayerList) selectionType() string      { return "player_list" }
func (TwoPlayerOption) selectionType() string { return "two_player_option" }
func (RoleOption) selectionType() string      { return "role_option" }
func (Integer) selectionType() string         { return "integer" }
func (String) selectionType() string          { return "string" }

// TypeOf returns the wire type name of s.
func TypeOf(s Selection) string {
	if s == nil {
		return ""
	}
	return s.selectionType()
}

// Pair returns the chosen pair.
func Pair(a, b player.Ref) TwoPlayerOption {
	return TwoPlayerOption{Chosen: true, First: a, Second: b}
}

// Players returns a PlayerList selection.
func Players(refs ...player.Ref) PlayerList {
	return PlayerList{Players: refs}
}
