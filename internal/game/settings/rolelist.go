package settings

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/nightfall/internal/game/dice"
)

// RoleInfo is what assignment needs to know about one role.
type RoleInfo struct {
	Name    string
	Faction string
	// Unique roles may appear at most once per game.
	Unique bool
}

// RoleListEntry is one slot of the role list. Exactly one of Role, Roles,
// Faction or Any selects the candidates; Exclude removes names from them.
type RoleListEntry struct {
	Role    string   `yaml:"role,omitempty"`
	Roles   []string `yaml:"roles,omitempty"`
	Faction string   `yaml:"faction,omitempty"`
	Any     bool     `yaml:"any,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	// Count repeats the entry; zero means once.
	Count int `yaml:"count,omitempty"`
}

func (e RoleListEntry) validate() error {
	set := 0
	if e.Role != "" {
		set++
	}
	if len(e.Roles) > 0 {
		set++
	}
	if e.Faction != "" {
		set++
	}
	if e.Any {
		set++
	}
	if set != 1 {
		return errors.New("exactly one of role, roles, faction or any must be set")
	}
	if e.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", e.Count)
	}
	return nil
}

// slots returns how many players the entry fills.
func (e RoleListEntry) slots() int {
	if e.Count == 0 {
		return 1
	}
	return e.Count
}

// candidates returns the roles from catalogue that the entry allows, in
// catalogue order.
func (e RoleListEntry) candidates(catalogue []RoleInfo) []RoleInfo {
	excluded := make(map[string]bool, len(e.Exclude))
	for _, x := range e.Exclude {
		excluded[x] = true
	}
	allowed := make(map[string]bool, len(e.Roles))
	for _, r := range e.Roles {
		allowed[r] = true
	}
	var out []RoleInfo
	for _, info := range catalogue {
		if excluded[info.Name] {
			continue
		}
		switch {
		case e.Role != "":
			if info.Name != e.Role {
				continue
			}
		case len(e.Roles) > 0:
			if !allowed[info.Name] {
				continue
			}
		case e.Faction != "":
			if info.Faction != e.Faction {
				continue
			}
		}
		out = append(out, info)
	}
	return out
}

func (e RoleListEntry) String() string {
	switch {
	case e.Role != "":
		return e.Role
	case len(e.Roles) > 0:
		return fmt.Sprintf("one of %v", e.Roles)
	case e.Faction != "":
		return "random " + e.Faction
	default:
		return "any"
	}
}

// RoleList is the ordered list of slots for a game.
type RoleList []RoleListEntry

// Len returns the number of players the list fills.
func (l RoleList) Len() int {
	n := 0
	for _, e := range l {
		n += e.slots()
	}
	return n
}

// Expand flattens Count so every entry fills exactly one slot.
func (l RoleList) Expand() []RoleListEntry {
	out := make([]RoleListEntry, 0, l.Len())
	for _, e := range l {
		for i := 0; i < e.slots(); i++ {
			one := e
			one.Count = 0
			out = append(out, one)
		}
	}
	return out
}

// Assign resolves the role list into one role name per player.
//
// Slots with fewer candidates are filled first so that exact roles are not
// starved by broad pools. Unique roles are never handed out twice.
//
// Precondition: src must be non-nil.
// Postcondition: Returns exactly players names, or an error wrapping
// ErrInvalidRoleList.
func (l RoleList) Assign(players int, catalogue []RoleInfo, src dice.Source) ([]string, error) {
	if players < 1 {
		return nil, fmt.Errorf("%w: no players", ErrInvalidRoleList)
	}
	slots := l.Expand()
	if len(slots) != players {
		return nil, fmt.Errorf("%w: %d slots for %d players", ErrInvalidRoleList, len(slots), players)
	}

	order := dice.Permutation(len(slots), src)
	sort.SliceStable(order, func(i, j int) bool {
		return len(slots[order[i]].candidates(catalogue)) < len(slots[order[j]].candidates(catalogue))
	})

	taken := map[string]bool{}
	roles := make([]string, len(slots))
	for _, idx := range order {
		var open []RoleInfo
		for _, c := range slots[idx].candidates(catalogue) {
			if c.Unique && taken[c.Name] {
				continue
			}
			open = append(open, c)
		}
		if len(open) == 0 {
			return nil, fmt.Errorf("%w: no role left for slot %d (%s)", ErrInvalidRoleList, idx, slots[idx])
		}
		pick := open[dice.Pick(len(open), src)]
		taken[pick.Name] = true
		roles[idx] = pick.Name
	}

	dice.Shuffle(len(roles), src, func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
	return roles, nil
}
