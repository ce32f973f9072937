package phase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/nightfall/internal/game/phase"
)

func TestNext_FullCycleWithoutTrial(t *testing.T) {
	s := phase.BriefingState()
	var seen []phase.Kind
	for i := 0; i < 6; i++ {
		s = s.Next(phase.VerdictNone, 3)
		seen = append(seen, s.Kind)
	}
	assert.Equal(t, []phase.Kind{
		phase.Obituary, phase.Discussion, phase.Nomination, phase.Dusk, phase.Night, phase.Obituary,
	}, seen)
}

func TestNext_TrialGuilty(t *testing.T) {
	s := phase.TestimonyState(2, 1)
	s = s.Next(phase.VerdictNone, 3)
	require.Equal(t, phase.Judgement, s.Kind)
	assert.EqualValues(t, 2, s.Defendant)
	s = s.Next(phase.VerdictGuilty, 3)
	assert.Equal(t, phase.FinalWords, s.Kind)
	assert.EqualValues(t, 2, s.Defendant)
	assert.Equal(t, phase.Dusk, s.Next(phase.VerdictNone, 3).Kind)
}

func TestNext_TrialInnocentReturnsToNomination(t *testing.T) {
	s := phase.State{Kind: phase.Judgement, Defendant: 1, TrialsLeft: 2}
	n := s.Next(phase.VerdictInnocent, 3)
	assert.Equal(t, phase.NominationState(2), n)

	s.TrialsLeft = 0
	assert.Equal(t, phase.Dusk, s.Next(phase.VerdictInnocent, 3).Kind)
}

func TestParseKind_RoundTrip(t *testing.T) {
	for _, k := range phase.Kinds() {
		got, err := phase.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := phase.ParseKind("brunch")
	assert.Error(t, err)
}

func TestTimes_SetAndSkipped(t *testing.T) {
	tm := phase.DefaultTimes()
	assert.Equal(t, 45*time.Second, tm.Get(phase.Night))
	assert.False(t, tm.GameIsSkipped())

	var zero phase.Times
	assert.True(t, zero.GameIsSkipped())
	zero.Set(phase.Night, time.Second)
	assert.False(t, zero.GameIsSkipped())
	zero.Set(phase.Night, -time.Second)
	assert.Equal(t, time.Second, zero.Get(phase.Night))
}
