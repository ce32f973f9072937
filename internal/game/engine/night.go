package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/combat"
	"github.com/cory-johannsen/nightfall/internal/game/player"
	"github.com/cory-johannsen/nightfall/internal/game/visit"
)

// Bucket is one step of the nightly resolution sweep. Every player's
// behaviour for a bucket runs before the next bucket begins.
type Bucket int

const (
	BucketTopPriority Bucket = iota
	BucketTransport
	BucketWarp
	BucketRoleblock
	BucketDeception
	BucketBodyguard
	BucketHeal
	BucketKill
	BucketConvert
	BucketPoison
	BucketInvestigative
	BucketFinalize
	numBuckets
)

var bucketNames = [numBuckets]string{
	"top_priority", "transport", "warp", "roleblock", "deception", "bodyguard",
	"heal", "kill", "convert", "poison", "investigative", "finalize",
}

// Buckets returns every bucket in sweep order.
func Buckets() []Bucket {
	out := make([]Bucket, numBuckets)
	for i := range out {
		out[i] = Bucket(i)
	}
	return out
}

func (b Bucket) String() string {
	if b < 0 || b >= numBuckets {
		return "unknown"
	}
	return bucketNames[b]
}

// nightPlayer is the per-night scratch state of one player. It is rebuilt at
// the start of every night and never carried into the next one.
type nightPlayer struct {
	roleblocked bool
	defense     combat.Grants
	attacked    bool
	attackers   []player.Ref
	died        bool
	cause       DeathCause
	killers     []GraveKiller
	deathNotes  []string
	protectors  []player.Ref
	transported bool
	jailed      bool
	jailedBy    player.Ref
	framed      bool
	appeared    Role
	cleaned     bool
	cleanedBy   player.Ref
	silenced    bool
	cured       bool
	alert       bool
	// intercepted lists attackers a bodyguard pulled onto itself.
	intercepted []player.Ref
	messages    []ChatMessage
}

// NightState holds everything that only lives for one night.
type NightState struct {
	day      int
	players  []nightPlayer
	visits   *visit.Registry
	resolved bool
	// redirects queued by transport-class roles during the current bucket.
	redirects []queuedRedirect
}

type queuedRedirect struct {
	visit.Redirect
	notify []player.Ref
}

func newNightState(g *Game) *NightState {
	n := &NightState{day: g.day, players: make([]nightPlayer, len(g.players)), visits: visit.NewRegistry()}
	for i, p := range g.players {
		n.players[i].defense = combat.NewGrants(p.Role().Defense())
	}
	return n
}

func (n *NightState) at(p player.Ref) *nightPlayer {
	if p.Index() >= len(n.players) {
		panic("engine: night state has no player " + p.String())
	}
	return &n.players[p]
}

// Visits returns the night's visit registry.
func (n *NightState) Visits() *visit.Registry { return n.visits }

// Roleblocked reports whether p was roleblocked tonight.
func (n *NightState) Roleblocked(p player.Ref) bool { return n.at(p).roleblocked }

// Attacked reports whether p was attacked tonight.
func (n *NightState) Attacked(p player.Ref) bool { return n.at(p).attacked }

// Died reports whether p will die when the night ends.
func (n *NightState) Died(p player.Ref) bool { return n.at(p).died }

// Jailed reports whether p is detained tonight.
func (n *NightState) Jailed(p player.Ref) bool { return n.at(p).jailed }

// Transported reports whether p was moved by a transport-class role.
func (n *NightState) Transported(p player.Ref) bool { return n.at(p).transported }

// Framed reports whether p appears suspicious tonight.
func (n *NightState) Framed(p player.Ref) bool { return n.at(p).framed }

// Messages returns the private results queued for p.
func (n *NightState) Messages(p player.Ref) []ChatMessage {
	return append([]ChatMessage(nil), n.at(p).messages...)
}

// Grants returns the defense grants p received tonight.
func (n *NightState) Grants(p player.Ref) combat.Grants { return n.at(p).defense }

func (g *Game) nightMessage(to player.Ref, key NightResult) {
	g.nightMessageWith(to, ChatMessage{Key: string(key)})
}

func (g *Game) nightMessageWith(to player.Ref, m ChatMessage) {
	m.Kind = MsgNightResult
	m.Day = g.day
	np := g.night.at(to)
	np.messages = append(np.messages, m)
}

// collectVisits asks every role for its visits. It must run before the sweep.
func (g *Game) collectVisits() {
	g.night.visits.Clear()
	for i, p := range g.players {
		for _, v := range p.role.Visits(g, player.Ref(i)) {
			g.night.visits.Add(v)
		}
	}
}

// resolveNight runs the full priority sweep and applies the resulting deaths.
// Nothing in here may wait; the sweep runs to completion in one call.
//
// Precondition: g.night was created at the start of this night.
// Postcondition: every death marked during the sweep has been applied.
func (g *Game) resolveNight() {
	n := g.night
	if n == nil || n.resolved {
		return
	}
	g.collectVisits()
	g.log.Debug("night visits collected", zap.Int("day", g.day), zap.Int("visits", n.visits.Len()))

	for _, b := range Buckets() {
		for i := range g.players {
			ref := player.Ref(i)
			g.players[i].role.NightAction(g, ref, b)
		}
		g.applyRedirects()
		g.log.Debug("night bucket resolved", zap.Stringer("bucket", b))
	}
	n.resolved = true

	for i := range g.players {
		np := &n.players[i]
		if !np.died {
			continue
		}
		cause := np.cause
		if cause == "" {
			cause = CauseKillers
		}
		g.killPlayer(player.Ref(i), cause, np.killers, np.deathNotes)
	}
}

// canAct reports whether actor is alive and not roleblocked tonight.
func (g *Game) canAct(actor player.Ref) bool {
	return g.players[actor].alive && !g.night.at(actor).roleblocked
}

// tagged returns actor's post-transport visit with tag, if actor can act.
func (g *Game) tagged(actor player.Ref, tag visit.Tag) (visit.Visit, bool) {
	if !g.canAct(actor) {
		return visit.Visit{}, false
	}
	return g.night.visits.Tagged(actor, tag)
}

// roleblockImmune lists roles a roleblock has no effect on.
var roleblockImmune = map[Role]bool{
	RoleVeteran:     true,
	RoleTransporter: true,
	RoleJailor:      true,
	RoleEscort:      true,
	RoleConsort:     true,
}

// roleblock blocks target for the rest of the night.
func (g *Game) roleblock(target player.Ref) {
	np := g.night.at(target)
	if roleblockImmune[g.players[target].Role()] {
		g.nightMessage(target, ResultRoleblockImmune)
		return
	}
	if !np.roleblocked {
		np.roleblocked = true
		g.nightMessage(target, ResultRoleblocked)
	}
}

// grantDefense raises target's defense for the night and records protector
// when it is a real protection rather than the target's own.
func (g *Game) grantDefense(protector, target player.Ref, d combat.DefensePower) {
	np := g.night.at(target)
	np.defense.Grant(d)
	if protector != target {
		np.protectors = append(np.protectors, protector)
	}
}

// queueRedirect records rd for the end of the current bucket. notify lists
// the players told they were transported once it applies.
func (g *Game) queueRedirect(rd visit.Redirect, notify ...player.Ref) {
	g.night.redirects = append(g.night.redirects, queuedRedirect{Redirect: rd, notify: notify})
}

// applyRedirects rewrites the night's visits with every redirect queued in
// the bucket that just ran, strongest transport priority first.
func (g *Game) applyRedirects() {
	n := g.night
	if len(n.redirects) == 0 {
		return
	}
	rds := make([]visit.Redirect, len(n.redirects))
	for i, q := range n.redirects {
		rds[i] = q.Redirect
	}
	n.visits.ApplyAll(rds)
	for _, q := range n.redirects {
		for _, p := range q.notify {
			np := n.at(p)
			if !np.transported {
				np.transported = true
				g.nightMessage(p, ResultTransported)
			}
		}
	}
	g.log.Debug("night redirects applied", zap.Int("redirects", len(rds)))
	n.redirects = nil
}
