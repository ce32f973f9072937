package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// ErrUnknownAction is returned by DecodeAction for an unrecognised type.
var ErrUnknownAction = errors.New("unknown action")

// Action is one decoded client request. The set of implementations is closed.
type Action interface {
	actionType() string
}

// SubmitSelection sets any controller.
type SubmitSelection struct {
	ID        ability.WireID        `json:"id"`
	Selection ability.WireSelection `json:"selection"`
}

// Nominate votes to put Target on trial. A nil Target withdraws the vote.
type Nominate struct {
	Target *int `json:"target"`
}

// Judge casts a judgement vote: 0 abstain, 1 innocent, 2 guilty.
type Judge struct {
	Verdict int `json:"verdict"`
}

// SendChat speaks in a chat group.
type SendChat struct {
	Group string `json:"group"`
	Text  string `json:"text"`
}

// Whisper speaks privately to one player.
type Whisper struct {
	To   int    `json:"to"`
	Text string `json:"text"`
}

// SaveWill replaces the sender's will.
type SaveWill struct {
	Text string `json:"text"`
}

// SaveNotes replaces the sender's notes.
type SaveNotes struct {
	Text string `json:"text"`
}

// SaveDeathNote replaces the note left on the sender's victims.
type SaveDeathNote struct {
	Text string `json:"text"`
}

// FastForward votes to skip the rest of the phase.
type FastForward struct {
	Skip bool `json:"skip"`
}

func (SubmitSelection) actionType() string { return "submit_selection" }
func (Nominate) actionType() string        { return "nominate" }
func (Judge) actionType() string           { return "judge" }
func (SendChat) actionType() string        { return "send_chat" }
func (Whisper) actionType() string         { return "whisper" }
func (SaveWill) actionType() string        { return "save_will" }
func (SaveNotes) actionType() string       { return "save_notes" }
func (SaveDeathNote) actionType() string   { return "save_death_note" }
func (FastForward) actionType() string     { return "fast_forward" }

var actionDecoders = map[string]func() Action{
	"submit_selection": func() Action { return &SubmitSelection{} },
	"nominate":         func() Action { return &Nominate{} },
	"judge":            func() Action { return &Judge{} },
	"send_chat":        func() Action { return &SendChat{} },
	"whisper":          func() Action { return &Whisper{} },
	"save_will":        func() Action { return &SaveWill{} },
	"save_notes":       func() Action { return &SaveNotes{} },
	"save_death_note":  func() Action { return &SaveDeathNote{} },
	"fast_forward":     func() Action { return &FastForward{} },
}

// DecodeAction parses a client message of the form
// {"type": "...", "payload": {...}}.
//
// Postcondition: Returns a value (not pointer) Action, or an error.
func DecodeAction(data []byte) (Action, error) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding action envelope: %w", err)
	}
	newAction, ok := actionDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, env.Type)
	}
	a := newAction()
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, a); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
	}
	switch v := a.(type) {
	case *SubmitSelection:
		return *v, nil
	case *Nominate:
		return *v, nil
	case *Judge:
		return *v, nil
	case *SendChat:
		return *v, nil
	case *Whisper:
		return *v, nil
	case *SaveWill:
		return *v, nil
	case *SaveNotes:
		return *v, nil
	case *SaveDeathNote:
		return *v, nil
	case *FastForward:
		return *v, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAction, env.Type)
}

// Handle applies a from actor. Invalid input never changes the game; the
// sender is resynced instead.
//
// Postcondition: pending chat has been flushed.
func (g *Game) Handle(actor player.Ref, a Action) {
	if actor.Index() >= len(g.players) {
		return
	}
	if err := g.handle(actor, a); err != nil {
		g.log.Debug("action dropped",
			zap.Stringer("actor", actor),
			zap.String("action", a.actionType()),
			zap.Error(err),
		)
		g.Resync(actor)
	}
	g.settle()
	g.flush()
}

func (g *Game) handle(actor player.Ref, a Action) error {
	n := len(g.players)
	switch v := a.(type) {
	case SubmitSelection:
		id, err := v.ID.Decode(n)
		if err != nil {
			return err
		}
		sel, err := v.Selection.Decode(n)
		if err != nil {
			return err
		}
		g.submit(actor, id, sel)
	case Nominate:
		sel := ability.PlayerList{}
		if v.Target != nil {
			target, err := player.NewRef(*v.Target, n)
			if err != nil {
				return err
			}
			sel = ability.Players(target)
		}
		g.submit(actor, ability.NominateID(actor), sel)
	case Judge:
		g.submit(actor, ability.JudgeID(actor), ability.Integer{Value: v.Verdict})
	case FastForward:
		g.submit(actor, ability.SkipID(actor), ability.Boolean{Value: v.Skip})
	case SendChat:
		group, ok := ParseChatGroup(v.Group)
		if !ok {
			return fmt.Errorf("unknown chat group %q", v.Group)
		}
		return g.sendChat(actor, group, v.Text)
	case Whisper:
		to, err := player.NewRef(v.To, n)
		if err != nil {
			return err
		}
		return g.whisper(actor, to, v.Text)
	case SaveWill:
		if !g.players[actor].alive {
			return fmt.Errorf("%s is dead; the will is sealed", actor)
		}
		text, err := cleanText(v.Text, MaxWillLength)
		if err != nil {
			return err
		}
		g.players[actor].will = text
		g.sendTexts(actor)
	case SaveNotes:
		text, err := cleanText(v.Text, MaxNotesLength)
		if err != nil {
			return err
		}
		g.players[actor].notes = text
		g.sendTexts(actor)
	case SaveDeathNote:
		text, err := cleanText(v.Text, MaxDeathNoteLength)
		if err != nil {
			return err
		}
		g.players[actor].deathNote = text
		g.sendTexts(actor)
	default:
		return fmt.Errorf("%w %T", ErrUnknownAction, a)
	}
	return nil
}

func (g *Game) sendTexts(p player.Ref) {
	pl := g.players[p]
	g.send(p, YourWillPacket{Will: pl.will, Notes: pl.notes, DeathNote: pl.deathNote})
}
