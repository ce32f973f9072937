package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/nightfall/internal/game/ability"
	"github.com/cory-johannsen/nightfall/internal/game/phase"
	"github.com/cory-johannsen/nightfall/internal/game/player"
)

// livingCount returns the number of living players.
func (g *Game) livingCount() int {
	n := 0
	for _, p := range g.players {
		if p.alive {
			n++
		}
	}
	return n
}

// NominationVotes returns the weighted nomination votes per nominee.
func (g *Game) NominationVotes() map[player.Ref]int {
	votes := map[player.Ref]int{}
	for i, p := range g.players {
		voter := player.Ref(i)
		if !p.alive {
			continue
		}
		refs := g.controllers.Players(ability.NominateID(voter))
		if len(refs) == 0 || !g.players[refs[0]].alive {
			continue
		}
		votes[refs[0]] += g.voteWeight(voter)
	}
	return votes
}

// checkNominations puts the first player nominated by more than half of the
// living players on trial.
func (g *Game) checkNominations() {
	if g.state.Kind != phase.Nomination || g.state.TrialsLeft <= 0 || g.over {
		return
	}
	votes := g.NominationVotes()
	living := g.livingCount()
	for _, ref := range player.All(len(g.players)) {
		if votes[ref]*2 <= living {
			continue
		}
		g.log.Info("player put on trial", zap.Stringer("defendant", ref), zap.Int("votes", votes[ref]))
		g.announce(ChatMessage{Key: string(AnnounceOnTrial), Players: []player.Ref{ref}})
		g.startPhase(phase.TestimonyState(ref, g.state.TrialsLeft-1))
		return
	}
}

// tallyVerdict counts the judgement votes. Guilty needs strictly more
// weight than innocent; abstentions count for neither side.
func (g *Game) tallyVerdict() phase.Verdict {
	guilty, innocent := 0, 0
	var guiltyVoters player.RefSet
	for i, p := range g.players {
		voter := player.Ref(i)
		if !p.alive || voter == g.state.Defendant {
			continue
		}
		v, _ := g.controllers.Int(ability.JudgeID(voter))
		switch v {
		case JudgeGuilty:
			guilty += g.voteWeight(voter)
			guiltyVoters.Insert(voter)
		case JudgeInnocent:
			innocent += g.voteWeight(voter)
		}
	}
	defendant := []player.Ref{g.state.Defendant}
	if guilty > innocent {
		g.guiltyVoters = guiltyVoters
		g.announce(ChatMessage{Key: string(AnnounceVerdictGuilty), Players: append(defendant, guiltyVoters.Slice()...)})
		return phase.VerdictGuilty
	}
	g.announce(ChatMessage{Key: string(AnnounceVerdictInnocent), Players: defendant})
	return phase.VerdictInnocent
}

// lynch executes the defendant at the end of their final words.
func (g *Game) lynch(defendant player.Ref) {
	if !g.players[defendant].alive {
		return
	}
	g.killPlayer(defendant, CauseLynching, []GraveKiller{Lynched()}, nil)
}
