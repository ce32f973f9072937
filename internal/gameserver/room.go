// Package gameserver hosts nightfall rooms: each room owns one game on a
// single goroutine and talks to its clients through session entities.
package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/nightfall/internal/config"
	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/engine"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/session"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/stats"
)

var (
	// ErrRoomClosed is returned once a room's goroutine has stopped.
	ErrRoomClosed = errors.New("room closed")
	// ErrRoomFull is returned when the lobby already seats player.MaxPlayers.
	ErrRoomFull = errors.New("room full")
	// ErrGameStarted is returned when joining a room whose game is running.
	ErrGameStarted = errors.New("game already started")
	// ErrUnknownToken is returned when a token does not belong to the room.
	ErrUnknownToken = errors.New("unknown session token")
)

// RoleLister produces a role list for a player count from a loaded script.
type RoleLister interface {
	RoleList(key string, players int) (settings.RoleList, error)
}

// RoomConfig carries everything newRoom needs.
type RoomConfig struct {
	ID       string
	Game     config.GameConfig
	Settings *settings.Settings
	// ScriptKey names the role list script used when Settings has no role list.
	ScriptKey string
	Scripts   RoleLister
	Sessions  *session.Manager
	Source    dice.Source
	Logger    *zap.Logger
	// OnSnapshot receives the game's start and end snapshots.
	OnSnapshot func(stats.Snapshot)
}

// Room is one lobby and, once started, one game. Every state change happens
// on the goroutine running run; other goroutines talk to it through events.
type Room struct {
	id        string
	cfg       config.GameConfig
	settings  *settings.Settings
	scriptKey string
	scripts   RoleLister
	sessions  *session.Manager
	src       dice.Source
	log       *zap.Logger
	out       *sessionOutbox
	snapshot  func(stats.Snapshot)

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the run goroutine.
	lobby     []string
	game      *engine.Game
	limiters  map[string]*rate.Limiter
	lastTick  time.Time
	ticks     int
	idleSince time.Time
	closing   string
	announced bool
}

func newRoom(cfg RoomConfig) *Room {
	s := cfg.Settings
	if s == nil {
		s = settings.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	src := cfg.Source
	if src == nil {
		src = dice.NewCryptoSource()
	}
	return &Room{
		id:        cfg.ID,
		cfg:       cfg.Game,
		settings:  s,
		scriptKey: cfg.ScriptKey,
		scripts:   cfg.Scripts,
		sessions:  cfg.Sessions,
		src:       src,
		log:       logger,
		out:       &sessionOutbox{roomID: cfg.ID, sessions: cfg.Sessions, log: logger},
		snapshot:  cfg.OnSnapshot,
		events:    make(chan event, 64),
		done:      make(chan struct{}),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// Done is closed when the room stops.
func (r *Room) Done() <-chan struct{} { return r.done }

// run applies events until ctx is cancelled or the room closes itself.
//
// Postcondition: Done is closed and every session of the room is removed.
func (r *Room) run(ctx context.Context) error {
	defer r.shutdown()
	r.log.Info("room opened")
	for {
		select {
		case <-ctx.Done():
			r.closing = "server shutting down"
			return nil
		case ev := <-r.events:
			if !r.apply(ev) {
				return nil
			}
		}
	}
}

// apply runs one event. A panic inside the game closes this room only.
func (r *Room) apply(ev event) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("room panicked, closing",
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			r.closing = "internal error"
			ok = false
		}
	}()
	ev.apply(r)
	return r.closing == ""
}

func (r *Room) shutdown() {
	r.closeOnce.Do(func() {
		for _, tok := range r.sessions.TokensInRoom(r.id) {
			r.out.sendToken(tok, ClosedPacket{Reason: r.closing})
		}
		r.sessions.RemoveRoom(r.id)
		close(r.done)
		r.log.Info("room closed", zap.String("reason", r.closing))
	})
}

// submit hands ev to the room goroutine.
func (r *Room) submit(ctx context.Context, ev event) error {
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join seats name in the lobby and returns the new session with its attached
// entity.
//
// Postcondition: Returns ErrGameStarted, ErrRoomFull, ErrRoomClosed or a
// duplicate name error on failure.
func (r *Room) Join(ctx context.Context, name string) (session.Session, *session.Entity, error) {
	reply := make(chan joinResult, 1)
	if err := r.submit(ctx, joinEvent{name: name, reply: reply}); err != nil {
		return session.Session{}, nil, err
	}
	select {
	case res := <-reply:
		return res.sess, res.entity, res.err
	case <-r.done:
		return session.Session{}, nil, ErrRoomClosed
	case <-ctx.Done():
		return session.Session{}, nil, ctx.Err()
	}
}

// Connect attaches a new connection to an existing session and resyncs it.
//
// Postcondition: Returns the new entity, or ErrUnknownToken or ErrRoomClosed.
func (r *Room) Connect(ctx context.Context, token string) (*session.Entity, error) {
	reply := make(chan joinResult, 1)
	if err := r.submit(ctx, connectEvent{token: token, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.entity, res.err
	case <-r.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect reports that the connection owning e went away.
func (r *Room) Disconnect(token string, e *session.Entity) {
	_ = r.submit(context.Background(), disconnectEvent{token: token, entity: e})
}

// Message hands one raw client message to the room.
func (r *Room) Message(ctx context.Context, token string, data []byte) error {
	return r.submit(ctx, messageEvent{token: token, data: data})
}

// Tick forwards a clock tick without blocking. A room that is behind skips
// the tick; the next one carries the full elapsed time.
func (r *Room) Tick(now time.Time) {
	select {
	case r.events <- tickEvent{now: now}:
	default:
	}
}

// Summary is a point-in-time view of a room for listings.
type Summary struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Started bool   `json:"started"`
	Over    bool   `json:"over"`
	Day     int    `json:"day,omitempty"`
}

// Summary returns the room's listing row.
func (r *Room) Summary(ctx context.Context) (Summary, error) {
	reply := make(chan Summary, 1)
	if err := r.submit(ctx, summaryEvent{reply: reply}); err != nil {
		return Summary{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-r.done:
		return Summary{}, ErrRoomClosed
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

type event interface {
	apply(r *Room)
}

type joinResult struct {
	sess   session.Session
	entity *session.Entity
	err    error
}

type joinEvent struct {
	name  string
	reply chan<- joinResult
}

func (ev joinEvent) apply(r *Room) {
	if r.game != nil {
		ev.reply <- joinResult{err: ErrGameStarted}
		return
	}
	if len(r.lobby) >= player.MaxPlayers {
		ev.reply <- joinResult{err: ErrRoomFull}
		return
	}
	sess, e, err := r.sessions.Join(r.id, ev.name)
	if err != nil {
		ev.reply <- joinResult{err: err}
		return
	}
	r.lobby = append(r.lobby, sess.Token)
	r.log.Info("player joined lobby", zap.String("name", ev.name), zap.Int("waiting", len(r.lobby)))
	r.out.sendToken(sess.Token, JoinedPacket{Room: r.id, Name: sess.Name, Token: sess.Token})
	r.broadcastLobby()
	ev.reply <- joinResult{sess: sess, entity: e}
}

type connectEvent struct {
	token string
	reply chan<- joinResult
}

func (ev connectEvent) apply(r *Room) {
	sess, ok := r.sessions.Get(ev.token)
	if !ok || sess.RoomID != r.id {
		ev.reply <- joinResult{err: ErrUnknownToken}
		return
	}
	sess, e, err := r.sessions.Attach(ev.token)
	if err != nil {
		ev.reply <- joinResult{err: err}
		return
	}
	r.log.Info("player reconnected", zap.String("name", sess.Name))
	if r.game != nil && sess.Seated {
		r.game.SetConnection(sess.Player, engine.Connected, time.Now())
		r.game.Resync(sess.Player)
	} else {
		r.out.sendToken(sess.Token, r.lobbyPacket())
	}
	ev.reply <- joinResult{sess: sess, entity: e}
}

type disconnectEvent struct {
	token  string
	entity *session.Entity
}

func (ev disconnectEvent) apply(r *Room) {
	sess, ok := r.sessions.Get(ev.token)
	if !ok || !r.sessions.Detach(ev.token, ev.entity) {
		return
	}
	if r.game == nil {
		r.leaveLobby(sess)
		return
	}
	if sess.Seated {
		r.log.Info("player disconnected", zap.String("name", sess.Name))
		r.game.SetConnection(sess.Player, engine.Disconnected, time.Now())
	}
}

type messageEvent struct {
	token string
	data  []byte
}

func (ev messageEvent) apply(r *Room) {
	sess, ok := r.sessions.Get(ev.token)
	if !ok {
		return
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(ev.data, &env); err != nil {
		r.reject(sess.Token, CodeBadRequest, "message is not a JSON object")
		return
	}
	if env.Type == "start_game" {
		r.start(sess)
		return
	}
	if r.game == nil {
		r.reject(sess.Token, CodeNotStarted, "the game has not started")
		return
	}
	if !sess.Seated {
		return
	}
	a, err := engine.DecodeAction(ev.data)
	if err != nil {
		r.log.Debug("undecodable action", zap.String("name", sess.Name), zap.Error(err))
		r.reject(sess.Token, CodeBadRequest, err.Error())
		return
	}
	switch a.(type) {
	case engine.SendChat, engine.Whisper:
		if !r.limiter(sess.Token).Allow() {
			r.reject(sess.Token, CodeRateLimited, "slow down")
			return
		}
	}
	r.game.Handle(sess.Player, a)
	r.checkOver()
}

type tickEvent struct {
	now time.Time
}

func (ev tickEvent) apply(r *Room) {
	if r.game != nil && !r.game.Over() {
		elapsed := ev.now.Sub(r.lastTick)
		r.lastTick = ev.now
		if elapsed > 0 {
			r.game.Tick(elapsed)
		}
		r.ticks++
		if r.cfg.TimeSyncEvery > 0 && r.ticks%r.cfg.TimeSyncEvery == 0 {
			r.game.SyncTimeLeft()
		}
		r.expireDisconnected(ev.now)
		r.checkOver()
	}
	r.checkIdle(ev.now)
}

type summaryEvent struct {
	reply chan<- Summary
}

func (ev summaryEvent) apply(r *Room) {
	s := Summary{ID: r.id, Players: len(r.lobby)}
	if r.game != nil {
		s.Started = true
		s.Over = r.game.Over()
		s.Day = r.game.Day()
		s.Players = r.game.Players()
	}
	ev.reply <- s
}

// start creates the game from the lobby when the host asks for it.
func (r *Room) start(sess session.Session) {
	if r.game != nil {
		r.reject(sess.Token, CodeStarted, "the game has already started")
		return
	}
	if len(r.lobby) == 0 || r.lobby[0] != sess.Token {
		r.reject(sess.Token, CodeNotHost, "only the host can start the game")
		return
	}

	roles, err := r.assignRoles(len(r.lobby))
	if err != nil {
		r.log.Warn("assigning roles", zap.Error(err))
		r.reject(sess.Token, CodeRoleList, err.Error())
		return
	}

	names := make([]string, len(r.lobby))
	for i, tok := range r.lobby {
		if err := r.sessions.Seat(tok, player.Ref(i)); err != nil {
			panic(fmt.Sprintf("seating lobby token %d: %v", i, err))
		}
		s, _ := r.sessions.Get(tok)
		names[i] = s.Name
	}

	g, err := engine.New(engine.Config{
		ID:         r.id,
		Names:      names,
		Settings:   r.settings,
		Source:     r.src,
		Logger:     r.log,
		Outbox:     r.out,
		OnSnapshot: r.snapshot,
		Roles:      roles,
	})
	if err != nil {
		panic(fmt.Sprintf("creating game with assigned roles: %v", err))
	}
	r.game = g
	r.lastTick = time.Now()
	r.log.Info("game started", zap.Int("players", len(names)))
}

// assignRoles draws one role per player from the settings role list, or
// from the room's script when the settings leave the list empty.
func (r *Room) assignRoles(players int) ([]engine.Role, error) {
	list := r.settings.RoleList
	if list.Len() == 0 && r.scriptKey != "" && r.scripts != nil {
		scripted, err := r.scripts.RoleList(r.scriptKey, players)
		if err != nil {
			return nil, err
		}
		list = scripted
	}
	names, err := list.Assign(players, engine.Catalogue(), r.src)
	if err != nil {
		return nil, err
	}
	roles := make([]engine.Role, len(names))
	for i, n := range names {
		roles[i] = engine.Role(n)
	}
	return roles, nil
}

// expireDisconnected removes players whose client stayed away longer than
// the disconnect grace.
func (r *Room) expireDisconnected(now time.Time) {
	for i := 0; i < r.game.Players() && !r.game.Over(); i++ {
		p := player.Ref(i)
		since, ok := r.game.DisconnectedSince(p)
		if ok && now.Sub(since) >= r.cfg.DisconnectGrace {
			r.log.Info("disconnect grace expired", zap.Stringer("player", p))
			r.game.PlayerLeft(p)
		}
	}
}

// checkIdle closes a room nobody has been connected to for the grace period.
func (r *Room) checkIdle(now time.Time) {
	if r.sessions.Attached(r.id) > 0 {
		r.idleSince = time.Time{}
		return
	}
	if r.idleSince.IsZero() {
		r.idleSince = now
		return
	}
	if now.Sub(r.idleSince) >= r.cfg.DisconnectGrace {
		r.closing = "idle"
	}
}

// checkOver notes the end of the game once. The room stays open for the
// results until every client has gone.
func (r *Room) checkOver() {
	if r.announced || !r.game.Over() {
		return
	}
	r.announced = true
	r.log.Info("room waiting for clients to leave", zap.Int("attached", r.sessions.Attached(r.id)))
}

func (r *Room) leaveLobby(sess session.Session) {
	for i, tok := range r.lobby {
		if tok == sess.Token {
			r.lobby = append(r.lobby[:i], r.lobby[i+1:]...)
			break
		}
	}
	delete(r.limiters, sess.Token)
	_ = r.sessions.Remove(sess.Token)
	r.log.Info("player left lobby", zap.String("name", sess.Name), zap.Int("waiting", len(r.lobby)))
	r.broadcastLobby()
}

func (r *Room) lobbyPacket() LobbyPacket {
	pkt := LobbyPacket{Room: r.id, Names: make([]string, 0, len(r.lobby))}
	for i, tok := range r.lobby {
		s, ok := r.sessions.Get(tok)
		if !ok {
			continue
		}
		if i == 0 {
			pkt.Host = s.Name
		}
		pkt.Names = append(pkt.Names, s.Name)
	}
	return pkt
}

func (r *Room) broadcastLobby() {
	pkt := r.lobbyPacket()
	for _, tok := range r.lobby {
		r.out.sendToken(tok, pkt)
	}
}

func (r *Room) reject(token, code, msg string) {
	r.out.sendToken(token, ErrorPacket{Code: code, Message: msg})
}

func (r *Room) limiter(token string) *rate.Limiter {
	l, ok := r.limiters[token]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.cfg.ChatRate), r.cfg.ChatBurst)
		r.limiters[token] = l
	}
	return l
}
