package ability

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// ErrRejected is returned when a submission is not accepted.
var ErrRejected = errors.New("selection rejected")

// Controllers stores every controller's Parameters and its persisted selection.
//
// Saved selections are never purged when the world changes. Readers validate
// them against the current Parameters and fall back to the default.
type Controllers struct {
	params ParametersMap
	saved  map[ID]Selection
}

// NewControllers returns an empty store.
func NewControllers() *Controllers {
	return &Controllers{params: ParametersMap{}, saved: map[ID]Selection{}}
}

// Parameters returns the current description of id.
func (c *Controllers) Parameters(id ID) (Parameters, bool) {
	p, ok := c.params[id]
	return p, ok
}

// Map returns a copy of the current parameters map.
func (c *Controllers) Map() ParametersMap {
	out := make(ParametersMap, len(c.params))
	for id, p := range c.params {
		out[id] = p
	}
	return out
}

// Replace installs a freshly derived parameters map and returns what changed.
// Saved selections of removed controllers are kept so a controller that
// reappears later reads its old choice if that choice is still valid.
func (c *Controllers) Replace(updated ParametersMap) Diff {
	d := DiffMaps(c.params, updated)
	c.params = make(ParametersMap, len(updated))
	for id, p := range updated {
		c.params[id] = p
	}
	return d
}

// Submit validates and persists a selection from actor.
//
// Postcondition: on success the selection is persisted unless the controller
// is DontSave; on error nothing is mutated.
func (c *Controllers) Submit(actor player.Ref, id ID, sel Selection) error {
	p, ok := c.params[id]
	if !ok {
		return fmt.Errorf("%w: no controller %s", ErrRejected, id)
	}
	if !p.Allows(actor) {
		return fmt.Errorf("%w: %s may not submit to %s", ErrRejected, actor, id)
	}
	if sel == nil || !p.Available.Validate(sel) {
		return fmt.Errorf("%w: invalid %s selection for %s", ErrRejected, TypeOf(sel), id)
	}
	if !p.DontSave {
		c.saved[id] = sel
	}
	return nil
}

// Set persists a selection without permission checks. The engine uses it
// for server-driven choices.
func (c *Controllers) Set(id ID, sel Selection) {
	c.saved[id] = sel
}

// Get returns the effective selection of id: the saved one if it validates
// against the current Parameters, otherwise the default. Unknown controllers
// return nil.
func (c *Controllers) Get(id ID) Selection {
	p, ok := c.params[id]
	if !ok {
		return nil
	}
	if s, ok := c.saved[id]; ok && p.Available.Validate(s) {
		return s
	}
	return p.Default
}

// Saved returns the raw persisted selection, valid or not.
func (c *Controllers) Saved(id ID) (Selection, bool) {
	s, ok := c.saved[id]
	return s, ok
}

// ResetOnPhaseStart clears every saved selection whose controller resets on k.
// It returns the number of selections cleared.
func (c *Controllers) ResetOnPhaseStart(k phase.Kind) int {
	n := 0
	for id, p := range c.params {
		if !p.ResetsOnPhase || p.ResetOn != k {
			continue
		}
		if _, ok := c.saved[id]; ok {
			delete(c.saved, id)
			n++
		}
	}
	return n
}

// Clear drops the saved selection of id.
func (c *Controllers) Clear(id ID) {
	delete(c.saved, id)
}

// Players returns the chosen players of a PlayerList controller, or nil.
func (c *Controllers) Players(id ID) []player.Ref {
	if pl, ok := c.Get(id).(PlayerList); ok {
		return pl.Players
	}
	return nil
}

// Pair returns the chosen pair of a TwoPlayerOption controller.
func (c *Controllers) Pair(id ID) (player.Ref, player.Ref, bool) {
	if tp, ok := c.Get(id).(TwoPlayerOption); ok && tp.Chosen {
		return tp.First, tp.Second, true
	}
	return 0, 0, false
}

// Bool returns the value of a Boolean controller.
func (c *Controllers) Bool(id ID) bool {
	b, ok := c.Get(id).(Boolean)
	return ok && b.Value
}

// Int returns the value of an Integer controller.
func (c *Controllers) Int(id ID) (int, bool) {
	i, ok := c.Get(id).(Integer)
	return i.Value, ok
}

// Role returns the chosen role of a RoleOption controller, or "".
func (c *Controllers) Role(id ID) string {
	if ro, ok := c.Get(id).(RoleOption); ok {
		return ro.Role
	}
	return ""
}

// Text returns the value of a String controller.
func (c *Controllers) Text(id ID) string {
	if s, ok := c.Get(id).(String); ok {
		return s.Value
	}
	return ""
}
