// Package visit stores the directed visitor-to-target relations produced by
// night ability selections, and rewrites them when a transport-class role
// redirects visits.
package visit

import (
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// TransportPriority ranks roles that may redirect visits. A redirect only
// rewrites visits whose creator ranks strictly below the redirecting role.
type TransportPriority int

const (
	PriorityNone TransportPriority = iota
	PriorityBodyguard
	PriorityWarper
	PriorityTransporter
)

// String returns the priority label.
func (p TransportPriority) String() string {
	switch p {
	case PriorityNone:
		return "none"
	case PriorityBodyguard:
		return "bodyguard"
	case PriorityWarper:
		return "warper"
	case PriorityTransporter:
		return "transporter"
	default:
		return "unknown"
	}
}

// Tag identifies the ability that created a visit, e.g. "doctor" or
// "transporter.second".
type Tag string

// Visit is one directed relation for the current night.
type Visit struct {
	Visitor player.Ref
	Target  player.Ref
	Attack  bool
	Tag     Tag
	// Transport is the transport priority of the role that created the visit.
	Transport TransportPriority
}

// Registry is the flat collection of visits for one night.
// It is not safe for concurrent use; the owning game serialises access.
type Registry struct {
	visits []Visit
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Clear removes every visit. Called at the start of each night.
//
// Postcondition: Len() == 0.
func (r *Registry) Clear() {
	r.visits = r.visits[:0]
}

// Add appends v.
func (r *Registry) Add(v Visit) {
	r.visits = append(r.visits, v)
}

// Len returns the number of visits.
func (r *Registry) Len() int { return len(r.visits) }

// All returns a copy of every visit in creation order.
func (r *Registry) All() []Visit {
	out := make([]Visit, len(r.visits))
	copy(out, r.visits)
	return out
}

// ByVisitor returns the visits made by visitor, in creation order.
func (r *Registry) ByVisitor(visitor player.Ref) []Visit {
	var out []Visit
	for _, v := range r.visits {
		if v.Visitor == visitor {
			out = append(out, v)
		}
	}
	return out
}

// ByTarget returns the visits whose current target is target, in creation order.
func (r *Registry) ByTarget(target player.Ref) []Visit {
	var out []Visit
	for _, v := range r.visits {
		if v.Target == target {
			out = append(out, v)
		}
	}
	return out
}

// Tagged returns the first visit by visitor carrying tag.
func (r *Registry) Tagged(visitor player.Ref, tag Tag) (Visit, bool) {
	for _, v := range r.visits {
		if v.Visitor == visitor && v.Tag == tag {
			return v, true
		}
	}
	return Visit{}, false
}

// Visitors returns the distinct visitors of target in index order.
func (r *Registry) Visitors(target player.Ref) player.RefSet {
	var s player.RefSet
	for _, v := range r.visits {
		if v.Target == target {
			s.Insert(v.Visitor)
		}
	}
	return s
}
