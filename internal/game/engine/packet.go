package engine

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// Packet is one outbound message to a client.
type Packet interface {
	PacketType() string
}

// Outbox receives packets addressed to one player. Implementations must not
// block the caller.
type Outbox interface {
	Send(to player.Ref, p Packet)
}

type envelope struct {
	Type    string `json:"type"`
	Payload Packet `json:"payload"`
}

// EncodePacket wraps p in its type envelope and encodes it as JSON.
func EncodePacket(p Packet) ([]byte, error) {
	b, err := json.Marshal(envelope{Type: p.PacketType(), Payload: p})
	if err != nil {
		return nil, fmt.Errorf("encoding %s packet: %w", p.PacketType(), err)
	}
	return b, nil
}

// PhasePacket announces the phase that just started.
type PhasePacket struct {
	Phase           phase.State `json:"phase"`
	Day             int         `json:"day"`
	RemainingMillis int64       `json:"remaining_ms"`
}

// TimeLeftPacket corrects a client's countdown.
type TimeLeftPacket struct {
	RemainingMillis int64 `json:"remaining_ms"`
}

// PlayerInfo is the public row of one player.
type PlayerInfo struct {
	Index      player.Ref `json:"index"`
	Name       string     `json:"name"`
	Alive      bool       `json:"alive"`
	Connection string     `json:"connection"`
}

// PlayersPacket lists every player's public state.
type PlayersPacket struct {
	Players []PlayerInfo `json:"players"`
}

// YourIndexPacket tells a client which player it is.
type YourIndexPacket struct {
	Index player.Ref `json:"index"`
}

// YourRolePacket tells a client its current role.
type YourRolePacket struct {
	Role    Role    `json:"role"`
	Faction Faction `json:"faction"`
}

// YourControllersPacket carries changed and removed controllers. Full marks
// a complete resync that replaces everything the client holds.
type YourControllersPacket struct {
	Full    bool                     `json:"full"`
	Changed []ability.WireParameters `json:"changed,omitempty"`
	Removed []ability.WireID         `json:"removed,omitempty"`
}

// ChatGroupsPacket lists the groups the client may speak in.
type ChatGroupsPacket struct {
	Groups []ChatGroup `json:"groups"`
}

// RoleLabel is one role a client knows about another player.
type RoleLabel struct {
	Player player.Ref `json:"player"`
	Role   Role       `json:"role"`
}

// RoleLabelsPacket lists every role the client knows.
type RoleLabelsPacket struct {
	Labels []RoleLabel `json:"labels"`
}

// TagEntry lists the markers a client sees on one player.
type TagEntry struct {
	Player player.Ref `json:"player"`
	Tags   []Tag      `json:"tags"`
}

// TagsPacket lists every marker the client sees.
type TagsPacket struct {
	Tags []TagEntry `json:"tags"`
}

// GravePacket publishes a new grave.
type GravePacket struct {
	Grave Grave `json:"grave"`
}

// ChatPacket delivers queued chat messages.
type ChatPacket struct {
	Messages []ChatMessage `json:"messages"`
}

// YourWillPacket echoes the client's saved texts.
type YourWillPacket struct {
	Will      string `json:"will"`
	Notes     string `json:"notes"`
	DeathNote string `json:"death_note"`
}

// GameOverPacket announces the end of the game. Conclusion is empty when the
// game ended without one.
type GameOverPacket struct {
	Conclusion string       `json:"conclusion,omitempty"`
	Winners    []player.Ref `json:"winners"`
}

func (PhasePacket) PacketType() string           { return "phase" }
func (TimeLeftPacket) PacketType() string        { return "time_left" }
func (PlayersPacket) PacketType() string         { return "players" }
func (YourIndexPacket) PacketType() string       { return "your_index" }
func (YourRolePacket) PacketType() string        { return "your_role" }
func (YourControllersPacket) PacketType() string { return "your_controllers" }
func (ChatGroupsPacket) PacketType() string      { return "chat_groups" }
func (RoleLabelsPacket) PacketType() string      { return "role_labels" }
func (TagsPacket) PacketType() string            { return "tags" }
func (GravePacket) PacketType() string           { return "grave" }
func (ChatPacket) PacketType() string            { return "chat" }
func (YourWillPacket) PacketType() string        { return "your_will" }
func (GameOverPacket) PacketType() string        { return "game_over" }

func (g *Game) send(to player.Ref, p Packet) {
	if g.out == nil {
		return
	}
	g.out.Send(to, p)
}

func (g *Game) broadcast(p Packet) {
	for i := range g.players {
		g.send(player.Ref(i), p)
	}
}

func (g *Game) playersPacket() PlayersPacket {
	pkt := PlayersPacket{Players: make([]PlayerInfo, len(g.players))}
	for i, p := range g.players {
		pkt.Players[i] = PlayerInfo{
			Index:      player.Ref(i),
			Name:       p.Name,
			Alive:      p.alive,
			Connection: p.connection.String(),
		}
	}
	return pkt
}

func (g *Game) phasePacket() PhasePacket {
	return PhasePacket{Phase: g.state, Day: g.day, RemainingMillis: g.remaining.Milliseconds()}
}

// RoleLabels returns the roles viewer knows: its own, its faction insiders',
// revealed mayors, every visible grave, and roles learned during the game.
func (g *Game) RoleLabels(viewer player.Ref) []RoleLabel {
	v := g.players[viewer]
	known := map[player.Ref]Role{viewer: v.Role()}
	insider := v.Role().Faction() == FactionMafia || v.Role().Faction() == FactionCult
	for i, p := range g.players {
		ref := player.Ref(i)
		switch {
		case g.over:
			known[ref] = p.Role()
		case insider && p.Role().Faction() == v.Role().Faction():
			known[ref] = p.Role()
		}
		if m, ok := p.role.(*Mayor); ok && m.Revealed {
			known[ref] = RoleMayor
		}
	}
	for _, grave := range g.graves {
		if !grave.Hidden {
			known[grave.Player] = grave.Role
		}
	}
	for ref, r := range v.knownRoles {
		if _, ok := known[ref]; !ok {
			known[ref] = r
		}
	}
	out := make([]RoleLabel, 0, len(known))
	for _, ref := range player.All(len(g.players)) {
		if r, ok := known[ref]; ok {
			out = append(out, RoleLabel{Player: ref, Role: r})
		}
	}
	return out
}

// syncLabels resends every player's role labels.
func (g *Game) syncLabels() {
	for i := range g.players {
		ref := player.Ref(i)
		g.send(ref, RoleLabelsPacket{Labels: g.RoleLabels(ref)})
	}
}

func (g *Game) tagsPacket(p player.Ref) TagsPacket {
	tags := g.players[p].Tags()
	pkt := TagsPacket{Tags: []TagEntry{}}
	for _, ref := range player.All(len(g.players)) {
		if list, ok := tags[ref]; ok {
			pkt.Tags = append(pkt.Tags, TagEntry{Player: ref, Tags: list})
		}
	}
	return pkt
}

// syncPrivate sends p everything only p may see.
func (g *Game) syncPrivate(p player.Ref) {
	pl := g.players[p]
	g.send(p, YourRolePacket{Role: pl.Role(), Faction: pl.Role().Faction()})
	g.send(p, ChatGroupsPacket{Groups: g.SendGroups(p)})
	g.send(p, RoleLabelsPacket{Labels: g.RoleLabels(p)})
	g.send(p, g.tagsPacket(p))
}

// Resync sends p the complete game state, as after a reconnect.
func (g *Game) Resync(p player.Ref) {
	g.send(p, YourIndexPacket{Index: p})
	g.send(p, g.playersPacket())
	g.send(p, g.phasePacket())
	for _, grave := range g.graves {
		g.send(p, GravePacket{Grave: grave})
	}
	pl := g.players[p]
	g.send(p, YourWillPacket{Will: pl.will, Notes: pl.notes, DeathNote: pl.deathNote})
	g.syncPrivate(p)
	g.resyncControllers(p)
	if g.over {
		g.send(p, g.gameOverPacket())
	}
}
