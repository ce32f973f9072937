package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/settings"
)

// MessageKind classifies a chat message.
type MessageKind string

const (
	MsgChat          MessageKind = "chat"
	MsgWhisper       MessageKind = "whisper"
	MsgWhisperNotice MessageKind = "whisper_notice"
	MsgNightResult   MessageKind = "night_result"
	MsgSystem        MessageKind = "system"
)

// ChatGroup is a channel players may speak in.
type ChatGroup string

const (
	GroupAll   ChatGroup = "all"
	GroupDead  ChatGroup = "dead"
	GroupMafia ChatGroup = "mafia"
	GroupCult  ChatGroup = "cult"
	GroupJail  ChatGroup = "jail"
)

// ParseChatGroup reports whether s names a chat group.
func ParseChatGroup(s string) (ChatGroup, bool) {
	switch g := ChatGroup(s); g {
	case GroupAll, GroupDead, GroupMafia, GroupCult, GroupJail:
		return g, true
	}
	return "", false
}

// NightResult keys a private message produced during night resolution.
type NightResult string

const (
	ResultRoleblocked      NightResult = "roleblocked"
	ResultRoleblockImmune  NightResult = "roleblock_immune"
	ResultTransported      NightResult = "transported"
	ResultProtected        NightResult = "protected"
	ResultTargetAttacked   NightResult = "target_attacked"
	ResultSurvivedAttack   NightResult = "survived_attack"
	ResultTargetSurvived   NightResult = "target_survived"
	ResultKilled           NightResult = "killed"
	ResultSuspicious       NightResult = "suspicious"
	ResultInnocent         NightResult = "innocent"
	ResultVisitors         NightResult = "visitors"
	ResultTracked          NightResult = "tracked"
	ResultGuarded          NightResult = "guarded"
	ResultJailed           NightResult = "jailed"
	ResultExecuted         NightResult = "executed"
	ResultExecutedTown     NightResult = "executed_town"
	ResultGuilt            NightResult = "guilt"
	ResultLovers           NightResult = "lovers"
	ResultCleanedRole      NightResult = "cleaned_role"
	ResultBlackmailed      NightResult = "blackmailed"
	ResultPoisoned         NightResult = "poisoned"
	ResultCured            NightResult = "cured"
	ResultConverted        NightResult = "converted"
	ResultConversionFailed NightResult = "conversion_failed"
	ResultDoused           NightResult = "doused"
	ResultHaunted          NightResult = "haunted"
	ResultBecameRole       NightResult = "became_role"
	ResultRevived          NightResult = "revived"
)

// Announcement keys a public system message.
type Announcement string

const (
	AnnounceMayorRevealed   Announcement = "mayor_revealed"
	AnnounceOnTrial         Announcement = "on_trial"
	AnnounceVerdictGuilty   Announcement = "verdict_guilty"
	AnnounceVerdictInnocent Announcement = "verdict_innocent"
	AnnounceRevived         Announcement = "revived"
	AnnouncePlayerLeft      Announcement = "player_left"
	AnnounceMaxDay          Announcement = "max_day"
)

// ChatMessage is one line in a player's chat log. Key identifies the
// template for system and night messages; Text carries player-written text.
type ChatMessage struct {
	Kind    MessageKind  `json:"kind"`
	Group   ChatGroup    `json:"group,omitempty"`
	Sender  *player.Ref  `json:"sender,omitempty"`
	To      *player.Ref  `json:"to,omitempty"`
	Key     string       `json:"key,omitempty"`
	Text    string       `json:"text,omitempty"`
	Players []player.Ref `json:"players,omitempty"`
	Role    Role         `json:"role,omitempty"`
	Day     int          `json:"day"`
}

// queue appends m to p's pending chat.
func (g *Game) queue(p player.Ref, m ChatMessage) {
	if m.Day == 0 {
		m.Day = g.day
	}
	g.players[p].queue = append(g.players[p].queue, m)
}

// announce queues a system message for every player.
func (g *Game) announce(m ChatMessage) {
	m.Kind = MsgSystem
	for i := range g.players {
		g.queue(player.Ref(i), m)
	}
}

// flush sends every pending chat message.
func (g *Game) flush() {
	for i, p := range g.players {
		if len(p.queue) == 0 {
			continue
		}
		msgs := p.queue
		p.queue = nil
		g.send(player.Ref(i), ChatPacket{Messages: msgs})
	}
}

// SendGroups returns the groups p may speak in right now.
func (g *Game) SendGroups(p player.Ref) []ChatGroup {
	pl := g.players[p]
	if g.over {
		return []ChatGroup{GroupAll}
	}
	if !pl.alive {
		out := []ChatGroup{GroupDead}
		if g.settings.Enabled(settings.DeadCanChat) && g.state.Kind.IsDay() {
			out = append(out, GroupAll)
		}
		return out
	}
	switch k := g.state.Kind; {
	case k == phase.Night:
		var out []ChatGroup
		switch pl.Role().Faction() {
		case FactionMafia:
			out = append(out, GroupMafia)
		case FactionCult:
			out = append(out, GroupCult)
		}
		if g.inJail(p) {
			out = append(out, GroupJail)
		}
		return out
	case g.silenced.Contains(p):
		return nil
	case k == phase.Testimony || k == phase.FinalWords:
		if g.state.Defendant == p {
			return []ChatGroup{GroupAll}
		}
		return nil
	default:
		return []ChatGroup{GroupAll}
	}
}

// inJail reports whether p is the jailor or the prisoner of tonight's jail.
func (g *Game) inJail(p player.Ref) bool {
	if g.night == nil {
		return false
	}
	if g.night.at(p).jailed {
		return true
	}
	if j, ok := g.players[p].role.(*Jailor); ok && j.Jailing {
		return true
	}
	return false
}

// receivers returns who reads messages sent to group.
func (g *Game) receivers(group ChatGroup) []player.Ref {
	var out []player.Ref
	for i, pl := range g.players {
		ref := player.Ref(i)
		var ok bool
		switch group {
		case GroupAll:
			ok = true
		case GroupDead:
			ok = !pl.alive || g.over
		case GroupMafia:
			ok = pl.Role().Faction() == FactionMafia
		case GroupCult:
			ok = pl.Role().Faction() == FactionCult
		case GroupJail:
			ok = g.inJail(ref)
		}
		if ok {
			out = append(out, ref)
		}
	}
	return out
}

func canSend(groups []ChatGroup, g ChatGroup) bool {
	for _, have := range groups {
		if have == g {
			return true
		}
	}
	return false
}

// cleanText trims text and checks it against limit.
func cleanText(text string, limit int) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n > limit {
		return "", fmt.Errorf("text of %d characters exceeds %d", n, limit)
	}
	return text, nil
}

// sendChat posts text from sender to group.
func (g *Game) sendChat(sender player.Ref, group ChatGroup, text string) error {
	text, err := cleanText(text, MaxChatLength)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("empty chat message")
	}
	if !canSend(g.SendGroups(sender), group) {
		return fmt.Errorf("%s may not speak in %s during %s", sender, group, g.state.Kind)
	}
	from := sender
	m := ChatMessage{Kind: MsgChat, Group: group, Sender: &from, Text: text}
	// The prisoner does not learn who the jailor is.
	if _, isJailor := g.players[sender].role.(*Jailor); isJailor && group == GroupJail {
		m.Sender = nil
	}
	for _, to := range g.receivers(group) {
		g.queue(to, m)
	}
	return nil
}

// whisper sends text privately from sender to target. Everyone else sees
// that a whisper happened but not what it said.
func (g *Game) whisper(sender, target player.Ref, text string) error {
	text, err := cleanText(text, MaxChatLength)
	if err != nil {
		return err
	}
	if text == "" || sender == target {
		return fmt.Errorf("invalid whisper")
	}
	if !g.state.Kind.IsDay() || g.over {
		return fmt.Errorf("whispers are only allowed during the day")
	}
	if !g.players[sender].alive || !g.players[target].alive {
		return fmt.Errorf("whispers are only allowed between living players")
	}
	if g.silenced.Contains(sender) {
		return fmt.Errorf("%s is silenced", sender)
	}
	from, to := sender, target
	full := ChatMessage{Kind: MsgWhisper, Sender: &from, To: &to, Text: text}
	notice := ChatMessage{Kind: MsgWhisperNotice, Sender: &from, To: &to}
	for i := range g.players {
		ref := player.Ref(i)
		if ref == sender || ref == target {
			g.queue(ref, full)
		} else {
			g.queue(ref, notice)
		}
	}
	return nil
}
