// Package stats records game snapshots outside the game loop. Recording is
// fire-and-forget: a slow or failing sink never delays a game.
package stats

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable is returned by a Sink that cannot currently record.
var ErrUnavailable = errors.New("statistics sink unavailable")

// Event distinguishes the two snapshots taken per game.
type Event string

const (
	EventStart Event = "start"
	EventEnd   Event = "end"
)

// PlayerRecord is one player's row in a snapshot.
type PlayerRecord struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	// Faction is the team the role belongs to when the snapshot was taken.
	Faction string `json:"faction"`
	Alive   bool   `json:"alive"`
	Won     bool   `json:"won"`
}

// Snapshot is the state of a game at its start or end.
type Snapshot struct {
	GameID string `json:"game_id"`
	Event  Event  `json:"event"`
	Day    int    `json:"day"`
	// Conclusion is empty at the start and for games that ended without one.
	Conclusion string         `json:"conclusion,omitempty"`
	Players    []PlayerRecord `json:"players"`
	At         time.Time      `json:"at"`
}

// Sink persists snapshots.
type Sink interface {
	Record(ctx context.Context, s Snapshot) error
}

// NopSink discards every snapshot.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(context.Context, Snapshot) error { return nil }

// Dispatcher hands snapshots to a Sink on a separate goroutine.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher returns a Dispatcher that gives each Record call timeout to
// complete.
//
// Precondition: sink and logger must be non-nil; timeout > 0.
func NewDispatcher(sink Sink, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sink: sink, timeout: timeout, logger: logger}
}

// Dispatch records s in the background. Errors are logged and dropped.
func (d *Dispatcher) Dispatch(s Snapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sink.Record(ctx, s); err != nil {
			d.logger.Warn("recording game snapshot",
				zap.String("game", s.GameID),
				zap.String("event", string(s.Event)),
				zap.Error(err),
			)
		}
	}()
}
