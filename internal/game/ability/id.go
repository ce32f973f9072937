// Package ability describes, validates and persists player choices.
//
// A controller is one addressable unit of choice (a role ability, a vote, a
// verdict). Each controller has server-computed Parameters describing what
// may legally be selected right now, and a persisted Selection that is only
// trusted while it still validates against the current Parameters.
package ability

import (
	"fmt"

	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// ControllerKind distinguishes role abilities from the named, role-less controllers.
type ControllerKind int

const (
	KindRole ControllerKind = iota
	KindNominate
	KindJudge
	KindSkip
)

// String returns the controller kind label.
func (k ControllerKind) String() string {
	switch k {
	case KindRole:
		return "role"
	case KindNominate:
		return "nominate"
	case KindJudge:
		return "judge"
	case KindSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// ID addresses one controller. Role and Index are only set for KindRole.
type ID struct {
	Kind   ControllerKind `json:"kind"`
	Player player.Ref     `json:"player"`
	Role   string         `json:"role,omitempty"`
	Index  uint8          `json:"index,omitempty"`
}

// RoleID addresses the index-th ability of role for p.
func RoleID(p player.Ref, role string, index uint8) ID {
	return ID{Kind: KindRole, Player: p, Role: role, Index: index}
}

// NominateID addresses p's nomination vote.
func NominateID(p player.Ref) ID { return ID{Kind: KindNominate, Player: p} }

// JudgeID addresses p's judgement verdict.
func JudgeID(p player.Ref) ID { return ID{Kind: KindJudge, Player: p} }

// SkipID addresses p's fast-forward vote.
func SkipID(p player.Ref) ID { return ID{Kind: KindSkip, Player: p} }

func (id ID) String() string {
	if id.Kind == KindRole {
		return fmt.Sprintf("%s/%s.%d", id.Player, id.Role, id.Index)
	}
	return fmt.Sprintf("%s/%s", id.Player, id.Kind)
}

// Less orders IDs by player, kind, role, then index.
func (id ID) Less(o ID) bool {
	if id.Player != o.Player {
		return id.Player < o.Player
	}
	if id.Kind != o.Kind {
		return id.Kind < o.Kind
	}
	if id.Role != o.Role {
		return id.Role < o.Role
	}
	return id.Index < o.Index
}
