package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/nightfall/internal/stats"
)

type chanSink struct {
	got chan stats.Snapshot
	err error
}

func (s *chanSink) Record(_ context.Context, snap stats.Snapshot) error {
	s.got <- snap
	return s.err
}

func TestDispatcher_DeliversSnapshot(t *testing.T) {
	sink := &chanSink{got: make(chan stats.Snapshot, 1)}
	d := stats.NewDispatcher(sink, time.Second, zap.NewNop())

	d.Dispatch(stats.Snapshot{GameID: "g1", Event: stats.EventEnd, Day: 3, Conclusion: "town"})

	select {
	case snap := <-sink.got:
		assert.Equal(t, "g1", snap.GameID)
		assert.Equal(t, stats.EventEnd, snap.Event)
		assert.Equal(t, "town", snap.Conclusion)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot was not recorded")
	}
}

func TestDispatcher_LogsSinkFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &chanSink{got: make(chan stats.Snapshot, 1), err: stats.ErrUnavailable}
	d := stats.NewDispatcher(sink, time.Second, zap.New(core))

	d.Dispatch(stats.Snapshot{GameID: "g2", Event: stats.EventStart})
	<-sink.got

	require.Eventually(t, func() bool { return logs.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "recording game snapshot", entry.Message)
	assert.Equal(t, "g2", entry.ContextMap()["game"])
}

func TestNopSink(t *testing.T) {
	assert.NoError(t, stats.NopSink{}.Record(context.Background(), stats.Snapshot{}))
}
