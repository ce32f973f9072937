package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type mockService struct {
	started atomic.Bool
	stopped atomic.Bool
	startFn func() error
}

func (m *mockService) Start() error {
	m.started.Store(true)
	if m.startFn != nil {
		return m.startFn()
	}
	// Block until stopped
	for !m.stopped.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (m *mockService) Stop() {
	m.stopped.Store(true)
}

func TestLifecycleStopsInReverseOrder(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	var mu sync.Mutex
	var stops []string
	services := map[string]*mockService{}
	for _, name := range []string{"postgres", "rooms", "http"} {
		name := name
		svc := &mockService{}
		services[name] = svc
		lc.Add(name, &FuncService{
			StartFn: svc.Start,
			StopFn: func() {
				mu.Lock()
				stops = append(stops, name)
				mu.Unlock()
				svc.Stop()
			},
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, svc := range services {
			if !svc.started.Load() {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"http", "rooms", "postgres"}, stops)
}

func TestFuncService(t *testing.T) {
	started := false
	stopped := false

	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() {
			stopped = true
		},
	}

	err := svc.Start()
	assert.NoError(t, err)
	assert.True(t, started)

	svc.Stop()
	assert.True(t, stopped)
}

func TestLifecycleStopsEverythingWhenAServiceFails(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	healthy := &mockService{}
	failing := &mockService{startFn: func() error { return errors.New("bind failed") }}
	lc.Add("healthy", healthy)
	lc.Add("failing", failing)

	done := make(chan error, 1)
	go func() {
		done <- lc.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service failing")
		assert.Contains(t, err.Error(), "bind failed")
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down after a failure")
	}
	assert.True(t, healthy.stopped.Load())
	assert.True(t, failing.stopped.Load())
}

func TestLifecycleLogsTheFailureThatStoppedIt(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	lc := NewLifecycle(zap.New(core))
	lc.Add("healthy", &mockService{})
	lc.Add("failing", &mockService{startFn: func() error { return errors.New("bind failed") }})

	require.Error(t, lc.Run(context.Background()))

	entries := logs.FilterMessage("service error, shutting down").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	require.Contains(t, fields, "error")
	assert.Contains(t, fields["error"], "service failing: bind failed")
}

func TestLifecycleWithNoServices(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, lc.Run(ctx))
}
