// Package combat implements the attack and defense model used to decide
// whether a lethal effect lands on a player.
package combat

// DefensePower is an ordered defense tier. Higher tiers block stronger attacks.
type DefensePower int

const (
	DefenseNone DefensePower = iota
	DefenseArmored
	DefenseProtected
	DefenseInvincible
)

// String returns a human-readable defense label.
func (d DefensePower) String() string {
	switch d {
	case DefenseNone:
		return "none"
	case DefenseArmored:
		return "armored"
	case DefenseProtected:
		return "protected"
	case DefenseInvincible:
		return "invincible"
	default:
		return "unknown"
	}
}

// Max returns the stronger of d and o.
//
// Postcondition: Returns a value >= d and >= o.
func (d DefensePower) Max(o DefensePower) DefensePower {
	if o > d {
		return o
	}
	return d
}

// AttackPower is an ordered attack tier. Each tier is blocked by any defense
// at or above its own rank.
type AttackPower int

const (
	AttackBasic AttackPower = iota + 1
	AttackArmorPiercing
	AttackProtectionPiercing
)

// String returns a human-readable attack label.
func (a AttackPower) String() string {
	switch a {
	case AttackBasic:
		return "basic"
	case AttackArmorPiercing:
		return "armor piercing"
	case AttackProtectionPiercing:
		return "protection piercing"
	default:
		return "unknown"
	}
}

// CanBeBlockedBy reports whether defense d stops attack a.
// Basic is stopped by Armored and above, ArmorPiercing by Protected and above,
// ProtectionPiercing only by Invincible.
//
// Postcondition: Monotonic in d; a stronger defense never blocks less.
func (a AttackPower) CanBeBlockedBy(d DefensePower) bool {
	return int(d) >= int(a)
}

// CanBlock reports whether d stops attack a. It is the mirror of CanBeBlockedBy.
func (d DefensePower) CanBlock(a AttackPower) bool {
	return a.CanBeBlockedBy(d)
}

// Grants accumulates the defense tiers granted to one player during one night.
// The effective defense is the maximum grant, regardless of grant order.
// The zero value holds the base defense DefenseNone.
type Grants struct {
	max DefensePower
	n   int
}

// NewGrants returns a Grants seeded with a role's base defense.
func NewGrants(base DefensePower) Grants {
	return Grants{max: base}
}

// Grant records one more defense grant.
//
// Postcondition: Effective() >= d.
func (g *Grants) Grant(d DefensePower) {
	g.max = g.max.Max(d)
	g.n++
}

// Effective returns the defense used during kill resolution.
func (g Grants) Effective() DefensePower { return g.max }

// Count returns how many grants were applied on top of the base defense.
func (g Grants) Count() int { return g.n }
