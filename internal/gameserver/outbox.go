package gameserver

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/engine"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/session"
)

// JoinedPacket hands a new client its reconnect token.
type JoinedPacket struct {
	Room  string `json:"room"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// LobbyPacket lists who is waiting in a room that has not started.
type LobbyPacket struct {
	Room  string   `json:"room"`
	Host  string   `json:"host"`
	Names []string `json:"names"`
}

// ErrorPacket reports a rejected request to one client.
type ErrorPacket struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClosedPacket tells every client the room is shutting down.
type ClosedPacket struct {
	Reason string `json:"reason"`
}

func (JoinedPacket) PacketType() string { return "joined" }
func (LobbyPacket) PacketType() string  { return "lobby" }
func (ErrorPacket) PacketType() string  { return "error" }
func (ClosedPacket) PacketType() string { return "closed" }

// Error codes carried by ErrorPacket.
const (
	CodeBadRequest  = "bad_request"
	CodeNotStarted  = "not_started"
	CodeStarted     = "already_started"
	CodeNotHost     = "not_host"
	CodeRoleList    = "invalid_role_list"
	CodeRateLimited = "rate_limited"
)

// sessionOutbox implements engine.Outbox by encoding each packet and pushing
// it to the seat's attached connection.
type sessionOutbox struct {
	roomID   string
	sessions *session.Manager
	log      *zap.Logger
}

// Send implements engine.Outbox. Packets for full or missing connections are
// dropped; the client is resynced when it reattaches.
func (o *sessionOutbox) Send(to player.Ref, p engine.Packet) {
	data, err := engine.EncodePacket(p)
	if err != nil {
		o.log.Error("encoding packet", zap.String("type", p.PacketType()), zap.Error(err))
		return
	}
	if err := o.sessions.Push(o.roomID, to, data); err != nil {
		o.log.Debug("dropping packet",
			zap.Stringer("player", to),
			zap.String("type", p.PacketType()),
			zap.Error(err),
		)
	}
}

// sendToken encodes p for a single session by token.
func (o *sessionOutbox) sendToken(token string, p engine.Packet) {
	data, err := engine.EncodePacket(p)
	if err != nil {
		o.log.Error("encoding packet", zap.String("type", p.PacketType()), zap.Error(err))
		return
	}
	if err := o.sessions.Send(token, data); err != nil {
		o.log.Debug("dropping packet", zap.String("type", p.PacketType()), zap.Error(err))
	}
}
