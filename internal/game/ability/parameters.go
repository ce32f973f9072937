package ability

import (
	"reflect"
	"sort"

	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// Parameters is the server-computed description of one controller.
//
// GrayedOut is a client hint only; validation ignores it.
type Parameters struct {
	Available      Available
	GrayedOut      bool
	ResetOn        phase.Kind
	ResetsOnPhase  bool
	DontSave       bool
	Default        Selection
	AllowedPlayers player.RefSet
}

// Allows reports whether p may submit to the controller.
func (p Parameters) Allows(actor player.Ref) bool {
	return p.AllowedPlayers.Contains(actor)
}

// Equal reports whether both descriptions are identical.
func (p Parameters) Equal(o Parameters) bool {
	return p.GrayedOut == o.GrayedOut &&
		p.ResetOn == o.ResetOn &&
		p.ResetsOnPhase == o.ResetsOnPhase &&
		p.DontSave == o.DontSave &&
		p.AllowedPlayers.Equal(o.AllowedPlayers) &&
		reflect.DeepEqual(p.Available, o.Available) &&
		reflect.DeepEqual(p.Default, o.Default)
}

// Builder assembles Parameters. The zero Builder is not usable; call Build.
type Builder struct {
	p Parameters
}

// Build starts a description for a.
func Build(a Available) *Builder {
	return &Builder{p: Parameters{Available: a}}
}

// Default sets the default selection.
func (b *Builder) Default(s Selection) *Builder {
	b.p.Default = s
	return b
}

// GrayedOut sets the client hint.
func (b *Builder) GrayedOut(v bool) *Builder {
	b.p.GrayedOut = v
	return b
}

// ResetOnPhaseStart clears the saved selection whenever k begins.
func (b *Builder) ResetOnPhaseStart(k phase.Kind) *Builder {
	b.p.ResetOn = k
	b.p.ResetsOnPhase = true
	return b
}

// DontSave makes submissions act as one-shot triggers that are never persisted.
func (b *Builder) DontSave() *Builder {
	b.p.DontSave = true
	return b
}

// AllowPlayers adds players to the permitted submitter set.
func (b *Builder) AllowPlayers(refs ...player.Ref) *Builder {
	for _, r := range refs {
		b.p.AllowedPlayers.Insert(r)
	}
	return b
}

// AllowIf permits actor only when cond holds.
func (b *Builder) AllowIf(cond bool, actor player.Ref) *Builder {
	if cond {
		b.p.AllowedPlayers.Insert(actor)
	}
	return b
}

// Done normalises and returns the Parameters.
//
// Postcondition: Available.Validate(Default) is true.
func (b *Builder) Done() Parameters {
	p := b.p
	if p.Available == nil {
		p.Available = AvailableUnit{}
	}
	if ai, ok := p.Available.(AvailableInteger); ok && ai.Min > ai.Max {
		ai.Max = ai.Min
		p.Available = ai
	}
	if p.Default == nil || !p.Available.Validate(p.Default) {
		p.Default = p.Available.Default()
	}
	p.AllowedPlayers = p.AllowedPlayers.Clone()
	return p
}

// ParametersMap holds the current description of every live controller.
type ParametersMap map[ID]Parameters

// IDs returns the keys in ID order.
func (m ParametersMap) IDs() []ID {
	out := make([]ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Diff lists what changed between two maps.
type Diff struct {
	Changed ParametersMap
	Removed []ID
}

// Empty reports whether the diff carries nothing.
func (d Diff) Empty() bool { return len(d.Changed) == 0 && len(d.Removed) == 0 }

// ForPlayer narrows the diff to controllers visible to p: those p may
// submit to, plus every removal of p's own controllers.
func (d Diff) ForPlayer(p player.Ref) Diff {
	out := Diff{Changed: ParametersMap{}}
	for id, params := range d.Changed {
		if id.Player == p || params.Allows(p) {
			out.Changed[id] = params
		}
	}
	for _, id := range d.Removed {
		if id.Player == p {
			out.Removed = append(out.Removed, id)
		}
	}
	return out
}

// DiffMaps computes the changes that turn old into updated.
func DiffMaps(old, updated ParametersMap) Diff {
	d := Diff{Changed: ParametersMap{}}
	for id, np := range updated {
		if op, ok := old[id]; !ok || !op.Equal(np) {
			d.Changed[id] = np
		}
	}
	for id := range old {
		if _, ok := updated[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].Less(d.Removed[j]) })
	return d
}
