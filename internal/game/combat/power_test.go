package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/nightfall/internal/game/combat"
)

func TestCanBlock_Table(t *testing.T) {
	cases := []struct {
		atk     combat.AttackPower
		def     combat.DefensePower
		blocked bool
	}{
		{combat.AttackBasic, combat.DefenseNone, false},
		{combat.AttackBasic, combat.DefenseArmored, true},
		{combat.AttackArmorPiercing, combat.DefenseArmored, false},
		{combat.AttackArmorPiercing, combat.DefenseProtected, true},
		{combat.AttackProtectionPiercing, combat.DefenseProtected, false},
		{combat.AttackProtectionPiercing, combat.DefenseInvincible, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.blocked, c.def.CanBlock(c.atk), "%s vs %s", c.atk, c.def)
		assert.Equal(t, c.blocked, c.atk.CanBeBlockedBy(c.def))
	}
}

func genDefense() *rapid.Generator[combat.DefensePower] {
	return rapid.Custom(func(t *rapid.T) combat.DefensePower {
		return combat.DefensePower(rapid.IntRange(0, 3).Draw(t, "defense"))
	})
}

// TestPropertyGrants_MaxIndependentOfOrder: the effective defense equals the
// maximum grant for every permutation of the same grants.
func TestPropertyGrants_MaxIndependentOfOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		grants := rapid.SliceOfN(genDefense(), 1, 8).Draw(rt, "grants")
		perm := rapid.Permutation(grants).Draw(rt, "perm")

		forward := combat.NewGrants(combat.DefenseNone)
		for _, d := range grants {
			forward.Grant(d)
		}
		shuffled := combat.NewGrants(combat.DefenseNone)
		for _, d := range perm {
			shuffled.Grant(d)
		}

		want := combat.DefenseNone
		for _, d := range grants {
			if d > want {
				want = d
			}
		}
		assert.Equal(rt, want, forward.Effective())
		assert.Equal(rt, forward.Effective(), shuffled.Effective())
		assert.Equal(rt, len(grants), forward.Count())
	})
}

func TestPropertyCanBlock_Monotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		atk := combat.AttackPower(rapid.IntRange(1, 3).Draw(rt, "attack"))
		lo := genDefense().Draw(rt, "lo")
		hi := genDefense().Draw(rt, "hi")
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo.CanBlock(atk) {
			assert.True(rt, hi.CanBlock(atk))
		}
	})
}

func TestGrants_BaseDefenseKept(t *testing.T) {
	g := combat.NewGrants(combat.DefenseArmored)
	g.Grant(combat.DefenseNone)
	assert.Equal(t, combat.DefenseArmored, g.Effective())
}
