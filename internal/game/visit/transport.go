package visit

import "github.com/cory-johannsen/nightfall/internal/game/player"

// Redirect describes one transport-class role's substitution for the night.
type Redirect struct {
	// By is the redirecting player.
	By player.Ref
	// Priority is the redirecting role's transport priority.
	Priority TransportPriority
	// Substitutions maps original targets to replacement targets. All
	// substitutions apply simultaneously, so A->B plus B->A is a swap.
	Substitutions map[player.Ref]player.Ref
	// Filter, when non-nil, restricts which visits may be rewritten.
	Filter func(Visit) bool
}

// Apply rewrites the target of every visit in r whose current target is a
// key of rd.Substitutions and whose creator ranks strictly below rd.Priority.
// Visitors are never changed and no visit is added or removed.
//
// Postcondition: r.Len() is unchanged. Returns the number of rewritten visits.
func (r *Registry) Apply(rd Redirect) int {
	rewritten := 0
	for i := range r.visits {
		v := &r.visits[i]
		to, ok := rd.Substitutions[v.Target]
		if !ok || to == v.Target {
			continue
		}
		if v.Transport >= rd.Priority {
			continue
		}
		if rd.Filter != nil && !rd.Filter(*v) {
			continue
		}
		v.Target = to
		rewritten++
	}
	return rewritten
}

// ApplyAll applies redirects in strict priority order, strongest first, ties
// broken by the redirecting player's index. Each redirect sees the registry
// left by the previous one.
//
// Postcondition: r.Len() is unchanged.
func (r *Registry) ApplyAll(redirects []Redirect) {
	ordered := make([]Redirect, len(redirects))
	copy(ordered, redirects)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && outranks(ordered[j], ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	for _, rd := range ordered {
		r.Apply(rd)
	}
}

func outranks(a, b Redirect) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.By < b.By
}

// Swap builds the substitution map for exchanging a and b.
func Swap(a, b player.Ref) map[player.Ref]player.Ref {
	return map[player.Ref]player.Ref{a: b, b: a}
}
