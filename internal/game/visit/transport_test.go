package visit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/visit"
)

const (
	transporter player.Ref = iota
	killer
	blocker
	a
	b
)

func swapScenario() *visit.Registry {
	r := visit.NewRegistry()
	r.Add(visit.Visit{Visitor: transporter, Target: a, Tag: "transporter.first", Transport: visit.PriorityTransporter})
	r.Add(visit.Visit{Visitor: transporter, Target: b, Tag: "transporter.second", Transport: visit.PriorityTransporter})
	r.Add(visit.Visit{Visitor: killer, Target: a, Attack: true, Tag: "mafioso"})
	r.Add(visit.Visit{Visitor: blocker, Target: b, Tag: "escort"})
	return r
}

func TestApply_SwapRewritesOnlyWeakerVisits(t *testing.T) {
	r := swapScenario()
	n := r.Apply(visit.Redirect{By: transporter, Priority: visit.PriorityTransporter, Substitutions: visit.Swap(a, b)})
	assert.Equal(t, 2, n)
	require.Equal(t, 4, r.Len())

	kill, ok := r.Tagged(killer, "mafioso")
	require.True(t, ok)
	assert.Equal(t, b, kill.Target)
	block, ok := r.Tagged(blocker, "escort")
	require.True(t, ok)
	assert.Equal(t, a, block.Target)

	first, _ := r.Tagged(transporter, "transporter.first")
	second, _ := r.Tagged(transporter, "transporter.second")
	assert.Equal(t, a, first.Target)
	assert.Equal(t, b, second.Target)
}

func TestApply_FilterLimitsRewrites(t *testing.T) {
	r := swapScenario()
	n := r.Apply(visit.Redirect{
		By:            5,
		Priority:      visit.PriorityBodyguard,
		Substitutions: map[player.Ref]player.Ref{a: 5},
		Filter:        func(v visit.Visit) bool { return v.Attack },
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, player.NewRefSet(killer), r.Visitors(5))
}

func TestApplyAll_StrongestFirst(t *testing.T) {
	r := visit.NewRegistry()
	r.Add(visit.Visit{Visitor: killer, Target: a, Attack: true})
	// Warper sends A's visitors to B; transporter swaps A and B first, so the
	// kill lands on B and is then warped only if B is a warp key.
	r.ApplyAll([]visit.Redirect{
		{By: 7, Priority: visit.PriorityWarper, Substitutions: map[player.Ref]player.Ref{b: 6}},
		{By: transporter, Priority: visit.PriorityTransporter, Substitutions: visit.Swap(a, b)},
	})
	got := r.ByVisitor(killer)
	require.Len(t, got, 1)
	assert.Equal(t, player.Ref(6), got[0].Target)
}

func TestApply_TransportClassNotRedirectedByEqualOrWeaker(t *testing.T) {
	r := visit.NewRegistry()
	r.Add(visit.Visit{Visitor: 7, Target: a, Transport: visit.PriorityWarper})
	n := r.Apply(visit.Redirect{By: 8, Priority: visit.PriorityWarper, Substitutions: map[player.Ref]player.Ref{a: b}})
	assert.Zero(t, n)
	n = r.Apply(visit.Redirect{By: 8, Priority: visit.PriorityBodyguard, Substitutions: map[player.Ref]player.Ref{a: b}})
	assert.Zero(t, n)
}

func TestClear(t *testing.T) {
	r := swapScenario()
	r.Clear()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.ByTarget(a))
}

// TestPropertyRedirect_PreservesVisitCountAndVisitors: redirection rewrites
// targets only; it never adds, drops, or re-attributes a visit.
func TestPropertyRedirect_PreservesVisitCountAndVisitors(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		const players = 8
		ref := rapid.Custom(func(t *rapid.T) player.Ref {
			return player.Ref(rapid.IntRange(0, players-1).Draw(t, "ref"))
		})
		prio := rapid.Custom(func(t *rapid.T) visit.TransportPriority {
			return visit.TransportPriority(rapid.IntRange(0, 3).Draw(t, "prio"))
		})

		r := visit.NewRegistry()
		n := rapid.IntRange(0, 20).Draw(rt, "visits")
		for i := 0; i < n; i++ {
			r.Add(visit.Visit{Visitor: ref.Draw(rt, "visitor"), Target: ref.Draw(rt, "target"), Transport: prio.Draw(rt, "creator")})
		}
		before := r.All()

		var redirects []visit.Redirect
		for i := rapid.IntRange(0, 4).Draw(rt, "redirects"); i > 0; i-- {
			subs := map[player.Ref]player.Ref{}
			for j := rapid.IntRange(1, 3).Draw(rt, "subs"); j > 0; j-- {
				subs[ref.Draw(rt, "from")] = ref.Draw(rt, "to")
			}
			redirects = append(redirects, visit.Redirect{By: ref.Draw(rt, "by"), Priority: prio.Draw(rt, "priority"), Substitutions: subs})
		}
		r.ApplyAll(redirects)

		after := r.All()
		require.Len(rt, after, len(before))
		for i := range before {
			assert.Equal(rt, before[i].Visitor, after[i].Visitor)
			assert.Equal(rt, before[i].Tag, after[i].Tag)
			if before[i].Transport == visit.PriorityTransporter {
				assert.Equal(rt, before[i].Target, after[i].Target)
			}
		}
	})
}
