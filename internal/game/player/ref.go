// Package player provides stable index handles into a game's player table.
//
// Every cross-player reference in the game core is a Ref, never a pointer.
// Players are never removed from the table, so a Ref stays valid for the
// lifetime of the game once it has been constructed.
package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// MaxPlayers is the largest table size a Ref can address.
const MaxPlayers = 255

// ErrInvalidRef is returned when an index does not address a player in the table.
var ErrInvalidRef = errors.New("invalid player reference")

// Ref is a stable index into a game's player table.
type Ref uint8

// NewRef validates index against the table size and returns the matching Ref.
// This is the only constructor that should see client-supplied indices.
//
// Precondition: count <= MaxPlayers.
// Postcondition: Returns a Ref with Index() < count, or ErrInvalidRef.
func NewRef(index, count int) (Ref, error) {
	if index < 0 || index >= count || index >= MaxPlayers {
		return 0, fmt.Errorf("%w: index %d of %d", ErrInvalidRef, index, count)
	}
	return Ref(index), nil
}

// All returns every Ref in a table of count players, in index order.
//
// Precondition: 0 <= count <= MaxPlayers.
func All(count int) []Ref {
	out := make([]Ref, count)
	for i := range out {
		out[i] = Ref(i)
	}
	return out
}

// Index returns the position of the player in the table.
func (r Ref) Index() int { return int(r) }

func (r Ref) String() string { return "#" + strconv.Itoa(int(r)+1) }

// RefSet is an ordered set of Refs. Iteration order is always ascending index
// order, which keeps night resolution deterministic.
// The zero value is an empty set ready for use.
type RefSet struct {
	refs []Ref
}

// NewRefSet builds a set from refs, discarding duplicates.
func NewRefSet(refs ...Ref) RefSet {
	var s RefSet
	for _, r := range refs {
		s.Insert(r)
	}
	return s
}

// Insert adds r to the set and reports whether it was newly added.
func (s *RefSet) Insert(r Ref) bool {
	i := sort.Search(len(s.refs), func(i int) bool { return s.refs[i] >= r })
	if i < len(s.refs) && s.refs[i] == r {
		return false
	}
	// Copies of a RefSet share storage, so mutations never write in place.
	out := make([]Ref, 0, len(s.refs)+1)
	out = append(out, s.refs[:i]...)
	out = append(out, r)
	s.refs = append(out, s.refs[i:]...)
	return true
}

// Remove deletes r from the set and reports whether it was present.
func (s *RefSet) Remove(r Ref) bool {
	i := sort.Search(len(s.refs), func(i int) bool { return s.refs[i] >= r })
	if i >= len(s.refs) || s.refs[i] != r {
		return false
	}
	if len(s.refs) == 1 {
		s.refs = nil
		return true
	}
	out := make([]Ref, 0, len(s.refs)-1)
	out = append(out, s.refs[:i]...)
	s.refs = append(out, s.refs[i+1:]...)
	return true
}

// Contains reports whether r is in the set.
func (s RefSet) Contains(r Ref) bool {
	i := sort.Search(len(s.refs), func(i int) bool { return s.refs[i] >= r })
	return i < len(s.refs) && s.refs[i] == r
}

// Len returns the number of members.
func (s RefSet) Len() int { return len(s.refs) }

// Slice returns a copy of the members in ascending order.
func (s RefSet) Slice() []Ref {
	out := make([]Ref, len(s.refs))
	copy(out, s.refs)
	return out
}

// Clone returns an independent copy of the set.
func (s RefSet) Clone() RefSet {
	if len(s.refs) == 0 {
		return RefSet{}
	}
	return RefSet{refs: s.Slice()}
}

// Equal reports whether both sets hold exactly the same members.
func (s RefSet) Equal(o RefSet) bool {
	if len(s.refs) != len(o.refs) {
		return false
	}
	for i := range s.refs {
		if s.refs[i] != o.refs[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as an ascending array of indices.
func (s RefSet) MarshalJSON() ([]byte, error) {
	if len(s.refs) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s.refs)
}

// UnmarshalJSON decodes an array of indices.
func (s *RefSet) UnmarshalJSON(b []byte) error {
	var refs []Ref
	if err := json.Unmarshal(b, &refs); err != nil {
		return err
	}
	*s = NewRefSet(refs...)
	return nil
}

// MarshalJSON encodes r as its bare index so that []Ref encodes as a JSON
// array rather than a byte string.
func (r Ref) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(r), 10), nil
}

// UnmarshalJSON decodes a bare index. Range checks against the player table
// happen in NewRef.
func (r *Ref) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseUint(string(b), 10, 8)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRef, b)
	}
	*r = Ref(v)
	return nil
}
