package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/dice"
	"github.com/cory-johannsen/nightfall/internal/game/engine"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
)

// recorder is an Outbox that keeps every packet per player.
type recorder struct {
	packets map[player.Ref][]engine.Packet
}

func newRecorder() *recorder {
	return &recorder{packets: map[player.Ref][]engine.Packet{}}
}

func (r *recorder) Send(to player.Ref, p engine.Packet) {
	r.packets[to] = append(r.packets[to], p)
}

func (r *recorder) chat(p player.Ref) []engine.ChatMessage {
	var out []engine.ChatMessage
	for _, pkt := range r.packets[p] {
		if c, ok := pkt.(engine.ChatPacket); ok {
			out = append(out, c.Messages...)
		}
	}
	return out
}

func (r *recorder) hasKey(p player.Ref, key engine.NightResult) bool {
	for _, m := range r.chat(p) {
		if m.Key == string(key) {
			return true
		}
	}
	return false
}

func newGame(t *testing.T, s *settings.Settings, roles ...engine.Role) (*engine.Game, *recorder) {
	t.Helper()
	if s == nil {
		s = settings.Default()
	}
	names := make([]string, len(roles))
	for i := range roles {
		names[i] = fmt.Sprintf("player%d", i+1)
	}
	rec := newRecorder()
	g, err := engine.New(engine.Config{
		ID:       "test",
		Names:    names,
		Settings: s,
		Source:   dice.NewSequenceSource(0),
		Outbox:   rec,
		Roles:    roles,
	})
	require.NoError(t, err)
	return g, rec
}

// nextPhase runs the current phase's timer out.
func nextPhase(g *engine.Game) {
	g.Tick(g.Remaining())
}

// advanceTo ticks until the game reaches k.
func advanceTo(t *testing.T, g *engine.Game, k phase.Kind) {
	t.Helper()
	for i := 0; i < 40 && g.Phase().Kind != k && !g.Over(); i++ {
		nextPhase(g)
	}
	require.Equal(t, k, g.Phase().Kind, "game did not reach %s", k)
}

// act submits sel to actor's index-th role controller through the wire path.
func act(g *engine.Game, actor player.Ref, index uint8, sel ability.Selection) {
	id := ability.RoleID(actor, string(g.Player(actor).Role()), index)
	g.Handle(actor, engine.SubmitSelection{ID: ability.EncodeID(id), Selection: ability.EncodeSelection(sel)})
}

func target(refs ...player.Ref) ability.PlayerList { return ability.Players(refs...) }

func intPtr(i int) *int { return &i }
