package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/nightfall/internal/config"
	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/session"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/observability"
	"github.com/cory-johannsen/nightfall/internal/stats"
)

var (
	// ErrTooManyRooms is returned when game.max_rooms rooms are open.
	ErrTooManyRooms = errors.New("too many rooms")
	// ErrRoomNotFound is returned for an unknown room id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotRunning is returned when creating a room before Start or after
	// shutdown began.
	ErrNotRunning = errors.New("room manager not running")
)

// ScriptLoader loads role list scripts on demand and serves their lists.
type ScriptLoader interface {
	RoleLister
	Load(key, path string, instLimit int) error
	Loaded(key string) bool
}

// ManagerConfig carries everything NewManager needs.
type ManagerConfig struct {
	Game config.GameConfig
	// Defaults are the settings used when a room is created without any.
	Defaults *settings.Settings
	// DefaultScript is the key of a preloaded role list script, or empty.
	DefaultScript string
	Scripts       ScriptLoader
	Sessions      *session.Manager
	Source        dice.Source
	Stats         *stats.Dispatcher
	Logger        *zap.Logger
}

// Manager owns every open room, runs each on its own goroutine, and feeds
// them clock ticks.
type Manager struct {
	cfg   ManagerConfig
	ticks *TickManager
	log   *zap.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
	ctx   context.Context
	group *errgroup.Group
}

// NewManager creates a Manager. Rooms can be created once Start has run.
//
// Precondition: cfg.Sessions and cfg.Logger must be non-nil;
// cfg.Game.TickInterval must be > 0.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Defaults == nil {
		cfg.Defaults = settings.Default()
	}
	return &Manager{
		cfg:   cfg,
		ticks: NewTickManager(cfg.Game.TickInterval),
		log:   cfg.Logger,
		rooms: make(map[string]*Room),
	}
}

// Start begins ticking and accepts rooms until ctx is cancelled.
//
// Postcondition: Create succeeds until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.group, m.ctx = errgroup.WithContext(ctx)
	m.ticks.Start(m.ctx)
}

// Wait blocks until every room goroutine has returned.
func (m *Manager) Wait() error {
	m.mu.RLock()
	g := m.group
	m.mu.RUnlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// Create opens a room with s, or with the default settings when s is nil.
// A settings script path is loaded on first use.
//
// Postcondition: Returns the running room, or ErrTooManyRooms, ErrNotRunning
// or a script load error.
func (m *Manager) Create(s *settings.Settings) (*Room, error) {
	if s == nil {
		s = m.cfg.Defaults
	}
	scriptKey, err := m.scriptFor(s)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil || m.ctx.Err() != nil {
		return nil, ErrNotRunning
	}
	if len(m.rooms) >= m.cfg.Game.MaxRooms {
		return nil, ErrTooManyRooms
	}

	id := uuid.NewString()
	logger := observability.RoomLogger(m.log, id)
	src := m.cfg.Source
	if src == nil {
		src = dice.NewCryptoSource()
	}
	rc := RoomConfig{
		ID:        id,
		Game:      m.cfg.Game,
		Settings:  s,
		ScriptKey: scriptKey,
		Sessions:  m.cfg.Sessions,
		Source:    dice.NewLoggedRoller(src, logger),
		Logger:    logger,
	}
	if m.cfg.Scripts != nil {
		rc.Scripts = m.cfg.Scripts
	}
	if m.cfg.Stats != nil {
		rc.OnSnapshot = m.cfg.Stats.Dispatch
	}
	room := newRoom(rc)
	m.rooms[id] = room

	ctx := m.ctx
	m.group.Go(func() error {
		defer m.remove(id)
		return room.run(ctx)
	})
	m.ticks.RegisterTick(id, room.Tick)
	m.log.Info("room created", zap.String("room", id), zap.Int("open", len(m.rooms)))
	return room, nil
}

func (m *Manager) scriptFor(s *settings.Settings) (string, error) {
	if s.Script == "" {
		return m.cfg.DefaultScript, nil
	}
	if m.cfg.Scripts == nil {
		return "", fmt.Errorf("settings name script %q but scripting is disabled", s.Script)
	}
	if !m.cfg.Scripts.Loaded(s.Script) {
		if err := m.cfg.Scripts.Load(s.Script, s.Script, m.cfg.Game.ScriptInstructionLimit); err != nil {
			return "", err
		}
	}
	return s.Script, nil
}

func (m *Manager) remove(id string) {
	m.ticks.Unregister(id)
	m.mu.Lock()
	delete(m.rooms, id)
	open := len(m.rooms)
	m.mu.Unlock()
	m.log.Info("room removed", zap.String("room", id), zap.Int("open", open))
}

// Get returns the open room with id.
//
// Postcondition: Returns ErrRoomNotFound if no such room is open.
func (m *Manager) Get(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return r, nil
}

// List returns a summary of every open room ordered by id.
func (m *Manager) List(ctx context.Context) []Summary {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		s, err := r.Summary(ctx)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of open rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
