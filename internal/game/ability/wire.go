package ability

import (
	"fmt"

	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// WireID is the client form of an ID.
type WireID struct {
	Kind   string `json:"kind"`
	Player int    `json:"player"`
	Role   string `json:"role,omitempty"`
	Index  int    `json:"index,omitempty"`
}

// EncodeID converts id to its client form.
func EncodeID(id ID) WireID {
	return WireID{Kind: id.Kind.String(), Player: id.Player.Index(), Role: id.Role, Index: int(id.Index)}
}

// Decode converts a client-supplied id, checking the player index against count.
func (w WireID) Decode(count int) (ID, error) {
	p, err := player.NewRef(w.Player, count)
	if err != nil {
		return ID{}, err
	}
	switch w.Kind {
	case "role":
		if w.Role == "" || w.Index < 0 || w.Index > 255 {
			return ID{}, fmt.Errorf("malformed role controller %q/%d", w.Role, w.Index)
		}
		return RoleID(p, w.Role, uint8(w.Index)), nil
	case "nominate":
		return NominateID(p), nil
	case "judge":
		return JudgeID(p), nil
	case "skip":
		return SkipID(p), nil
	default:
		return ID{}, fmt.Errorf("unknown controller kind %q", w.Kind)
	}
}

// WireSelection is the client form of a Selection. Only the fields relevant
// to Type are populated.
type WireSelection struct {
	Type    string `json:"type"`
	Bool    bool   `json:"bool,omitempty"`
	Players []int  `json:"players,omitempty"`
	Pair    []int  `json:"pair,omitempty"`
	Role    string `json:"role,omitempty"`
	Int     int    `json:"int,omitempty"`
	Text    string `json:"text,omitempty"`
}

// EncodeSelection converts s to its client form.
func EncodeSelection(s Selection) WireSelection {
	w := WireSelection{Type: TypeOf(s)}
	switch v := s.(type) {
	case Boolean:
		w.Bool = v.Value
	case PlayerList:
		w.Players = make([]int, len(v.Players))
		for i, p := range v.Players {
			w.Players[i] = p.Index()
		}
	case TwoPlayerOption:
		if v.Chosen {
			w.Pair = []int{v.First.Index(), v.Second.Index()}
		}
	case RoleOption:
		w.Role = v.Role
	case Integer:
		w.Int = v.Value
	case String:
		w.Text = v.Value
	}
	return w
}

// Decode converts a client-supplied selection, checking every player index
// against count. Shape is checked here; legality is left to Available.
func (w WireSelection) Decode(count int) (Selection, error) {
	switch w.Type {
	case "unit":
		return Unit{}, nil
	case "boolean":
		return Boolean{Value: w.Bool}, nil
	case "player_list":
		refs := make([]player.Ref, 0, len(w.Players))
		for _, i := range w.Players {
			r, err := player.NewRef(i, count)
			if err != nil {
				return nil, err
			}
			refs = append(refs, r)
		}
		return PlayerList{Players: refs}, nil
	case "two_player_option":
		if len(w.Pair) == 0 {
			return TwoPlayerOption{}, nil
		}
		if len(w.Pair) != 2 {
			return nil, fmt.Errorf("pair has %d members", len(w.Pair))
		}
		a, err := player.NewRef(w.Pair[0], count)
		if err != nil {
			return nil, err
		}
		b, err := player.NewRef(w.Pair[1], count)
		if err != nil {
			return nil, err
		}
		return Pair(a, b), nil
	case "role_option":
		return RoleOption{Role: w.Role}, nil
	case "integer":
		return Integer{Value: w.Int}, nil
	case "string":
		return String{Value: w.Text}, nil
	default:
		return nil, fmt.Errorf("unknown selection type %q", w.Type)
	}
}

// WireAvailable is the client form of an Available.
type WireAvailable struct {
	Type                string        `json:"type"`
	Players             player.RefSet `json:"players,omitempty"`
	CanChooseDuplicates bool          `json:"can_choose_duplicates,omitempty"`
	MaxPlayers          int           `json:"max_players,omitempty"`
	Roles               []string      `json:"roles,omitempty"`
	Min                 int           `json:"min,omitempty"`
	Max                 int           `json:"max,omitempty"`
	MaxLength           int           `json:"max_length,omitempty"`
}

// WireParameters is the client form of Parameters.
type WireParameters struct {
	ID                WireID        `json:"id"`
	Available         WireAvailable `json:"available"`
	GrayedOut         bool          `json:"grayed_out"`
	ResetOnPhaseStart string        `json:"reset_on_phase_start,omitempty"`
	DontSave          bool          `json:"dont_save"`
	Default           WireSelection `json:"default"`
	Current           WireSelection `json:"current"`
}

// EncodeAvailable converts a to its client form.
func EncodeAvailable(a Available) WireAvailable {
	w := WireAvailable{Type: TypeOfAvailable(a)}
	switch v := a.(type) {
	case AvailablePlayerList:
		w.Players = v.Players
		w.CanChooseDuplicates = v.CanChooseDuplicates
		w.MaxPlayers = v.MaxPlayers
	case AvailableTwoPlayerOption:
		w.Players = v.Players
		w.CanChooseDuplicates = v.CanChooseDuplicates
	case AvailableRoleOption:
		w.Roles = v.Roles
	case AvailableInteger:
		w.Min, w.Max = v.Min, v.Max
	case AvailableString:
		w.MaxLength = v.MaxLength
	}
	return w
}

// EncodeParameters converts p to its client form together with the
// effective selection current.
func EncodeParameters(id ID, p Parameters, current Selection) WireParameters {
	w := WireParameters{
		ID:        EncodeID(id),
		Available: EncodeAvailable(p.Available),
		GrayedOut: p.GrayedOut,
		DontSave:  p.DontSave,
		Default:   EncodeSelection(p.Default),
		Current:   EncodeSelection(current),
	}
	if p.ResetsOnPhase {
		w.ResetOnPhaseStart = p.ResetOn.String()
	}
	return w
}
