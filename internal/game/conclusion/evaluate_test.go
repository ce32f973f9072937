package conclusion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/nightfall/internal/game/conclusion"
)

func keeper(cs ...conclusion.Conclusion) conclusion.Participant {
	return conclusion.Participant{KeepsGameRunning: true, WinCondition: conclusion.Loyalist(cs...)}
}

func bystander() conclusion.Participant {
	return conclusion.Participant{WinCondition: conclusion.RoleStateWon()}
}

func wildcard() conclusion.Participant {
	return conclusion.Participant{KeepsGameRunning: true, WinCondition: conclusion.RoleStateWon(), UnresolvedWildcard: true}
}

func TestEvaluate_TownWins(t *testing.T) {
	c, ok := conclusion.Evaluate([]conclusion.Participant{keeper(conclusion.Town), keeper(conclusion.Town), bystander()})
	require.True(t, ok)
	assert.Equal(t, conclusion.Town, c)
}

func TestEvaluate_Contested(t *testing.T) {
	_, ok := conclusion.Evaluate([]conclusion.Participant{keeper(conclusion.Town), keeper(conclusion.Mafia)})
	assert.False(t, ok)
}

func TestEvaluate_DrawByExhaustion(t *testing.T) {
	c, ok := conclusion.Evaluate([]conclusion.Participant{bystander(), bystander()})
	require.True(t, ok)
	assert.Equal(t, conclusion.Draw, c)

	c, ok = conclusion.Evaluate(nil)
	require.True(t, ok)
	assert.Equal(t, conclusion.Draw, c)
}

func TestEvaluate_WildcardStasis(t *testing.T) {
	three := []conclusion.Participant{wildcard(), wildcard(), wildcard()}
	_, ok := conclusion.Evaluate(three)
	assert.False(t, ok)

	_, ok = conclusion.Evaluate(three[:2])
	assert.False(t, ok)

	c, ok := conclusion.Evaluate(three[:1])
	require.True(t, ok)
	assert.Equal(t, conclusion.Town, c)

	resolved := []conclusion.Participant{wildcard(), wildcard(), keeper(conclusion.Fiends)}
	c, ok = conclusion.Evaluate(resolved)
	require.True(t, ok)
	assert.Equal(t, conclusion.Fiends, c)
}

func TestEvaluate_FirstAgreedCandidateWins(t *testing.T) {
	c, ok := conclusion.Evaluate([]conclusion.Participant{
		keeper(conclusion.Cult, conclusion.Fiends),
		keeper(conclusion.Fiends, conclusion.Cult),
	})
	require.True(t, ok)
	assert.Equal(t, conclusion.Cult, c)
}

func TestWinCondition_Friends(t *testing.T) {
	town := conclusion.Loyalist(conclusion.Town)
	mafia := conclusion.Loyalist(conclusion.Mafia)
	both := conclusion.Loyalist(conclusion.Town, conclusion.Mafia)
	assert.False(t, town.FriendsWith(mafia))
	assert.True(t, town.FriendsWith(both))
	assert.True(t, mafia.FriendsWith(conclusion.RoleStateWon()))
	assert.True(t, conclusion.RoleStateWon().FriendsWith(town))
	assert.Equal(t, "loyalist(town,mafia)", both.String())
}

func TestParse(t *testing.T) {
	for _, c := range append(conclusion.Candidates(), conclusion.Draw) {
		got, err := conclusion.Parse(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := conclusion.Parse("nobody")
	assert.Error(t, err)
}

func genParticipant() *rapid.Generator[conclusion.Participant] {
	return rapid.Custom(func(t *rapid.T) conclusion.Participant {
		if rapid.Bool().Draw(t, "role_state") {
			return conclusion.Participant{
				KeepsGameRunning: rapid.Bool().Draw(t, "keeps"),
				WinCondition:     conclusion.RoleStateWon(),
			}
		}
		var cs []conclusion.Conclusion
		for _, c := range conclusion.Candidates() {
			if rapid.Bool().Draw(t, c.String()) {
				cs = append(cs, c)
			}
		}
		return conclusion.Participant{KeepsGameRunning: true, WinCondition: conclusion.Loyalist(cs...)}
	})
}

// TestPropertyEvaluate_MonotonicUnderDeath: once a population has concluded,
// removing any player never reopens the game.
func TestPropertyEvaluate_MonotonicUnderDeath(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		living := rapid.SliceOfN(genParticipant(), 1, 10).Draw(rt, "living")
		if _, ok := conclusion.Evaluate(living); !ok {
			return
		}
		dead := rapid.IntRange(0, len(living)-1).Draw(rt, "dead")
		rest := append(append([]conclusion.Participant{}, living[:dead]...), living[dead+1:]...)
		_, ok := conclusion.Evaluate(rest)
		assert.True(rt, ok)
	})
}

// TestPropertyEvaluate_ResultAgreedByAllKeepers checks the single-outcome rule.
func TestPropertyEvaluate_ResultAgreedByAllKeepers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		living := rapid.SliceOfN(genParticipant(), 0, 10).Draw(rt, "living")
		c, ok := conclusion.Evaluate(living)
		if !ok || c == conclusion.Draw {
			return
		}
		for _, p := range living {
			if p.KeepsGameRunning {
				assert.True(rt, p.WinCondition.AgreesWith(c))
			}
		}
	})
}
