// Package engine runs one game of nightfall: the player table, the role
// catalogue, the phase machine, controller validation and the nightly
// priority sweep. A Game is not safe for concurrent use; the room that owns
// it applies every event on a single goroutine.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/conclusion"
	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
	"github.com/cory-johannsen/nightfall/internal/stats"
)

// Config carries everything New needs.
type Config struct {
	ID       string
	Names    []string
	Settings *settings.Settings
	// Source drives role assignment and every random choice during play.
	Source dice.Source
	Logger *zap.Logger
	Outbox Outbox
	// OnSnapshot, when set, receives the start and end snapshots.
	OnSnapshot func(stats.Snapshot)
	// Roles, when set, bypasses the role list and assigns roles by index.
	Roles []Role
}

// Game is the complete state of one game.
type Game struct {
	id       string
	log      *zap.Logger
	settings *settings.Settings
	times    phase.Times
	src      dice.Source

	players     []*Player
	state       phase.State
	day         int
	remaining   time.Duration
	controllers *ability.Controllers
	night       *NightState
	graves      []Grave
	// silenced holds players blackmailed for the current day.
	silenced     player.RefSet
	guiltyVoters player.RefSet

	out        Outbox
	onSnapshot func(stats.Snapshot)
	over       bool
	conclusion *conclusion.Conclusion
	winners    []player.Ref
}

// New assigns roles and starts the Briefing phase.
//
// Precondition: cfg.Names has between 1 and player.MaxPlayers entries.
// Postcondition: Returns a game in Briefing on day 1, or an error wrapping
// settings.ErrInvalidRoleList when roles cannot be assigned.
func New(cfg Config) (*Game, error) {
	if len(cfg.Names) == 0 || len(cfg.Names) > player.MaxPlayers {
		return nil, fmt.Errorf("game needs 1 to %d players, got %d", player.MaxPlayers, len(cfg.Names))
	}
	s := cfg.Settings
	if s == nil {
		s = settings.Default()
	}
	src := cfg.Source
	if src == nil {
		src = dice.NewCryptoSource()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	roles := cfg.Roles
	if roles == nil {
		names, err := s.RoleList.Assign(len(cfg.Names), Catalogue(), src)
		if err != nil {
			return nil, fmt.Errorf("assigning roles: %w", err)
		}
		roles = make([]Role, len(names))
		for i, n := range names {
			roles[i] = Role(n)
		}
	}
	if len(roles) != len(cfg.Names) {
		return nil, fmt.Errorf("%w: %d roles for %d players", settings.ErrInvalidRoleList, len(roles), len(cfg.Names))
	}

	g := &Game{
		id:          cfg.ID,
		log:         logger.With(zap.String("game", cfg.ID)),
		settings:    s,
		times:       s.Times(),
		src:         src,
		day:         1,
		controllers: ability.NewControllers(),
		out:         cfg.Outbox,
		onSnapshot:  cfg.OnSnapshot,
	}
	for i, name := range cfg.Names {
		r, ok := ParseRole(string(roles[i]))
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", settings.ErrInvalidRoleList, roles[i])
		}
		g.players = append(g.players, newPlayer(name, NewRoleState(r)))
	}

	g.log.Info("game created", zap.Int("players", len(g.players)))
	for i := range g.players {
		g.send(player.Ref(i), YourIndexPacket{Index: player.Ref(i)})
	}
	g.broadcast(g.playersPacket())
	g.startPhase(phase.BriefingState())
	g.snapshot(stats.EventStart)
	g.flush()
	return g, nil
}

// ID returns the game id.
func (g *Game) ID() string { return g.id }

// Player returns the row of p.
//
// Precondition: p is a valid reference for this game.
func (g *Game) Player(p player.Ref) *Player { return g.players[p] }

// Players returns the number of players.
func (g *Game) Players() int { return len(g.players) }

// Phase returns the current phase state.
func (g *Game) Phase() phase.State { return g.state }

// Day returns the current day number, starting at 1.
func (g *Game) Day() int { return g.day }

// Remaining returns the time left in the current phase.
func (g *Game) Remaining() time.Duration { return g.remaining }

// Night returns tonight's state, or nil outside a night.
func (g *Game) Night() *NightState { return g.night }

// Graves returns every grave in death order.
func (g *Game) Graves() []Grave { return append([]Grave(nil), g.graves...) }

// Grave returns the grave of p.
func (g *Game) Grave(p player.Ref) (Grave, bool) {
	for i := len(g.graves) - 1; i >= 0; i-- {
		if g.graves[i].Player == p {
			return g.graves[i], true
		}
	}
	return Grave{}, false
}

// Over reports whether the game has ended.
func (g *Game) Over() bool { return g.over }

// Conclusion returns the final conclusion, or nil while running or when the
// game ended without one.
func (g *Game) Conclusion() *conclusion.Conclusion { return g.conclusion }

// Winners returns the players who won, once the game is over.
func (g *Game) Winners() []player.Ref { return append([]player.Ref(nil), g.winners...) }

// Silenced reports whether p is blackmailed today.
func (g *Game) Silenced(p player.Ref) bool { return g.silenced.Contains(p) }

func (g *Game) snapshot(ev stats.Event) {
	if g.onSnapshot == nil {
		return
	}
	s := stats.Snapshot{GameID: g.id, Event: ev, Day: g.day, At: time.Now().UTC()}
	if ev == stats.EventEnd && g.conclusion != nil {
		s.Conclusion = g.conclusion.String()
	}
	won := map[player.Ref]bool{}
	for _, w := range g.winners {
		won[w] = true
	}
	for i, p := range g.players {
		s.Players = append(s.Players, stats.PlayerRecord{
			Index:   i,
			Name:    p.Name,
			Role:    string(p.Role()),
			Faction: string(p.Role().Faction()),
			Alive:   p.alive,
			Won:     won[player.Ref(i)],
		})
	}
	g.onSnapshot(s)
}
