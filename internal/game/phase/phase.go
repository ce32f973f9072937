// Package phase defines the day/night cycle values and their deterministic
// transition order.
package phase

import (
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// Kind identifies a phase type without its data.
type Kind int

const (
	Briefing Kind = iota
	Obituary
	Discussion
	Nomination
	Testimony
	Judgement
	FinalWords
	Dusk
	Night
	numKinds
)

var kindNames = [numKinds]string{
	"briefing", "obituary", "discussion", "nomination", "testimony",
	"judgement", "final_words", "dusk", "night",
}

// Kinds returns every phase kind in cycle order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// String returns the snake_case name used in settings files and packets.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind parses a snake_case phase name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// IsDay reports whether the phase belongs to the day half of the cycle.
func (k Kind) IsDay() bool {
	return k != Night && k != Briefing
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Verdict is the outcome of a Judgement phase.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictInnocent
	VerdictGuilty
)

// State is a phase together with the data that phase carries.
// Defendant is meaningful for Testimony, Judgement and FinalWords; TrialsLeft
// for Nomination, Testimony and Judgement.
type State struct {
	Kind       Kind       `json:"kind"`
	Defendant  player.Ref `json:"defendant,omitempty"`
	TrialsLeft int        `json:"trials_left,omitempty"`
}

// Start states for each kind that carries no trial data.
func BriefingState() State   { return State{Kind: Briefing} }
func ObituaryState() State   { return State{Kind: Obituary} }
func DiscussionState() State { return State{Kind: Discussion} }
func DuskState() State       { return State{Kind: Dusk} }
func NightState() State      { return State{Kind: Night} }

// NominationState opens nominations with the given trial budget.
func NominationState(trialsLeft int) State {
	return State{Kind: Nomination, TrialsLeft: trialsLeft}
}

// TestimonyState puts defendant on the stand.
func TestimonyState(defendant player.Ref, trialsLeft int) State {
	return State{Kind: Testimony, Defendant: defendant, TrialsLeft: trialsLeft}
}

// Next returns the state that follows s when its timer expires.
// verdict is only consulted when s is a Judgement.
//
// Postcondition: The returned state is a pure function of s and verdict.
func (s State) Next(verdict Verdict, trialsPerDay int) State {
	switch s.Kind {
	case Briefing:
		return ObituaryState()
	case Obituary:
		return DiscussionState()
	case Discussion:
		return NominationState(trialsPerDay)
	case Nomination:
		return DuskState()
	case Testimony:
		return State{Kind: Judgement, Defendant: s.Defendant, TrialsLeft: s.TrialsLeft}
	case Judgement:
		if verdict == VerdictGuilty {
			return State{Kind: FinalWords, Defendant: s.Defendant}
		}
		if s.TrialsLeft > 0 {
			return NominationState(s.TrialsLeft)
		}
		return DuskState()
	case FinalWords:
		return DuskState()
	case Dusk:
		return NightState()
	default:
		return ObituaryState()
	}
}

// Times holds the configured wall-clock length of every phase kind.
type Times struct {
	d [numKinds]time.Duration
}

// DefaultTimes returns the stock phase lengths.
func DefaultTimes() Times {
	var t Times
	t.d[Briefing] = 45 * time.Second
	t.d[Obituary] = 20 * time.Second
	t.d[Discussion] = 100 * time.Second
	t.d[Nomination] = 60 * time.Second
	t.d[Testimony] = 30 * time.Second
	t.d[Judgement] = 30 * time.Second
	t.d[FinalWords] = 10 * time.Second
	t.d[Dusk] = 15 * time.Second
	t.d[Night] = 45 * time.Second
	return t
}

// Get returns the length of k.
func (t Times) Get(k Kind) time.Duration {
	if k < 0 || k >= numKinds {
		return 0
	}
	return t.d[k]
}

// Set overrides the length of k.
//
// Precondition: d >= 0.
func (t *Times) Set(k Kind, d time.Duration) {
	if k < 0 || k >= numKinds || d < 0 {
		return
	}
	t.d[k] = d
}

// GameIsSkipped reports whether every phase of the loop after Briefing is
// zero length, which would make the game cycle without ever waiting.
func (t Times) GameIsSkipped() bool {
	for k := Obituary; k < numKinds; k++ {
		if t.d[k] > 0 {
			return false
		}
	}
	return true
}
