// Package conclusion defines game-ending outcomes, player win conditions, and
// the evaluator that decides when every player keeping the game running
// agrees on a single outcome.
package conclusion

import (
	"fmt"
	"strings"
)

// Conclusion is a terminal outcome of a game.
type Conclusion int

const (
	Town Conclusion = iota
	Mafia
	Cult
	Fiends
	Politician
	Draw
)

var names = map[Conclusion]string{
	Town:       "town",
	Mafia:      "mafia",
	Cult:       "cult",
	Fiends:     "fiends",
	Politician: "politician",
	Draw:       "draw",
}

// Candidates returns the non-Draw conclusions in evaluation order.
func Candidates() []Conclusion {
	return []Conclusion{Town, Mafia, Cult, Fiends, Politician}
}

// String returns the lowercase conclusion name.
func (c Conclusion) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}

// Parse parses a lowercase conclusion name.
func Parse(s string) (Conclusion, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, n := range names {
		if n == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown conclusion %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Conclusion) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// WinCondition decides whether a conclusion counts as a win for a player.
// A loyalist condition wins when the conclusion is in its set; a role-state
// condition is computed by the role itself and never blocks agreement.
// The zero value is a loyalist condition with an empty set, which agrees
// with nothing.
type WinCondition struct {
	set       uint8
	roleState bool
}

// Loyalist returns a condition reached when the game ends in any of cs.
func Loyalist(cs ...Conclusion) WinCondition {
	var w WinCondition
	for _, c := range cs {
		w.set |= 1 << uint(c)
	}
	return w
}

// RoleStateWon returns a condition the role declares for itself.
func RoleStateWon() WinCondition {
	return WinCondition{roleState: true}
}

// IsRoleState reports whether the role decides its own win.
func (w WinCondition) IsRoleState() bool { return w.roleState }

// Contains reports whether c is in a loyalist condition's set.
func (w WinCondition) Contains(c Conclusion) bool {
	return w.set&(1<<uint(c)) != 0
}

// Conclusions returns the loyalist set in evaluation order.
func (w WinCondition) Conclusions() []Conclusion {
	var out []Conclusion
	for _, c := range Candidates() {
		if w.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// AgreesWith reports whether a game ending in c would not need to continue
// for this player. Role-state conditions always agree.
func (w WinCondition) AgreesWith(c Conclusion) bool {
	return w.roleState || w.Contains(c)
}

// FriendsWith reports whether two conditions can coexist without one side
// needing to eliminate the other: their sets intersect, or either side is
// role-state declared.
func (w WinCondition) FriendsWith(o WinCondition) bool {
	if w.roleState || o.roleState {
		return true
	}
	return w.set&o.set != 0
}

func (w WinCondition) String() string {
	if w.roleState {
		return "role_state"
	}
	parts := make([]string, 0, 5)
	for _, c := range w.Conclusions() {
		parts = append(parts, c.String())
	}
	return "loyalist(" + strings.Join(parts, ",") + ")"
}
