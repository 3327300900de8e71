package mafia

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"mafia-game-bot/internal/gateway"
)

// Votes is a one-vote-per-voter ballot box. Tally order is deterministic:
// ties break in favor of whichever choice received its first vote earlier.
type Votes[V comparable, C comparable] struct {
	order []C
	count map[C]int
	cast  map[V]C
}

func NewVotes[V comparable, C comparable]() *Votes[V, C] {
	return &Votes[V, C]{
		count: make(map[C]int),
		cast:  make(map[V]C),
	}
}

// Vote records the voter's choice. A voter votes at most once; a second
// attempt is rejected and the standing choice returned.
func (v *Votes[V, C]) Vote(voter V, choice C) (C, bool) {
	if prev, ok := v.cast[voter]; ok {
		return prev, false
	}
	v.record(voter, choice)
	return choice, true
}

// Replace records the voter's choice, displacing any earlier one. Returns
// true when an earlier, different choice was displaced.
func (v *Votes[V, C]) Replace(voter V, choice C) bool {
	prev, voted := v.cast[voter]
	if voted {
		if prev == choice {
			return false
		}
		v.count[prev]--
	}
	v.record(voter, choice)
	return voted
}

func (v *Votes[V, C]) record(voter V, choice C) {
	if _, seen := v.count[choice]; !seen {
		v.order = append(v.order, choice)
	}
	v.count[choice]++
	v.cast[voter] = choice
}

// Count returns the votes standing for a choice.
func (v *Votes[V, C]) Count(choice C) int { return v.count[choice] }

// Total returns the number of voters who have voted.
func (v *Votes[V, C]) Total() int { return len(v.cast) }

// Tally is one choice and its standing vote count.
type Tally[C comparable] struct {
	Choice C
	Votes  int
}

// Tallies returns every choice that received a vote, most votes first.
func (v *Votes[V, C]) Tallies() []Tally[C] {
	out := make([]Tally[C], 0, len(v.order))
	for _, c := range v.order {
		if v.count[c] > 0 {
			out = append(out, Tally[C]{Choice: c, Votes: v.count[c]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	return out
}

// Leader returns the unique choice with the most votes, if it has at
// least minimum votes. A tie for first place means no leader.
func (v *Votes[V, C]) Leader(minimum int) (C, bool) {
	var zero C
	t := v.Tallies()
	if len(t) == 0 || t[0].Votes < minimum {
		return zero, false
	}
	if len(t) > 1 && t[1].Votes == t[0].Votes {
		return zero, false
	}
	return t[0].Choice, true
}

// Judgement is a juror's verdict during a trial.
type Judgement int

const (
	JudgementGuilty Judgement = iota
	JudgementInnocent
)

func (j Judgement) String() string {
	if j == JudgementGuilty {
		return "guilty"
	}
	return "innocent"
}

// maxTrials bounds how many trials a single day can hold.
const maxTrials = 3

// voteQuorum is how many votes put someone on trial: a third of the
// living players, but never fewer than two.
func voteQuorum(alive int) int {
	q := alive / 3
	if q < 2 {
		q = 2
	}
	return q
}

// trialLoop runs the day's voting and trials. It returns once someone is
// lynched, the vote stalls, or the trial allowance runs out.
func (g *Game) trialLoop(ctx context.Context) {
	for trial := 0; trial < maxTrials; trial++ {
		suspect := g.votingWindow(ctx)
		if suspect == nil {
			g.say(ctx, g.gameChat, render(msgVotingStalemate))
			return
		}
		if g.runTrial(ctx, suspect) {
			return
		}
	}
	g.say(ctx, g.gameChat, render(msgTooManyTrials))
}

// votingWindow collects !vote commands from living players and returns
// the suspect to put on trial, or nil when the town can't agree. The
// window ends early as soon as anyone reaches quorum.
func (g *Game) votingWindow(ctx context.Context) *Player {
	alive := g.roster.Alive()
	quorum := voteQuorum(len(alive))
	votes := NewVotes[int64, *Player]()

	g.say(ctx, g.gameChat, render(msgVotingTime,
		"{seconds}", strconv.Itoa(int(g.config.VotingTime/time.Second)),
		"{votes}", strconv.Itoa(quorum),
		"{players}", userListing(alive),
	))

	g.window(ctx, g.config.VotingTime, g.gameChat, func(ev gateway.Event) bool {
		msg := ev.Message
		if ev.Kind != gateway.EventMessage || msg.Channel != g.gameChat.ID() {
			return true
		}
		voter := g.roster.Get(msg.Author.ID)
		if voter == nil || voter.Dead() {
			return true
		}
		name, ok := basicCommand("!vote", msg.Text)
		if !ok {
			return true
		}
		target := selectPlayer(name, excludePlayer(alive, voter))
		if target == nil {
			g.nack(ctx, g.gameChat, msg.ID)
			return true
		}
		prev, counted := votes.Vote(voter.ID(), target)
		if !counted {
			g.say(ctx, g.gameChat, render(msgAlreadyVotedFor,
				"{voter}", voter.Name(), "{target}", prev.Name()))
			return true
		}
		g.say(ctx, g.gameChat, render(msgVotedFor,
			"{voter}", voter.Name(), "{target}", target.Name()))
		_, decided := votes.Leader(quorum)
		return !decided
	})

	suspect, ok := votes.Leader(quorum)
	if !ok {
		return nil
	}
	return suspect
}

// spotlight gives one player the floor: the game chat is locked for
// everyone else while fn runs, then restored.
func (g *Game) spotlight(ctx context.Context, p *Player, fn func()) {
	g.lockChat(ctx)
	if err := g.gameChat.SetUserAccess(ctx, p.User, gateway.AccessAllow); err != nil {
		g.log.Warn().Err(err).Str("player", p.Name()).Msg("spotlight grant failed")
	}
	fn()
	if err := g.gameChat.SetUserAccess(ctx, p.User, gateway.AccessInherit); err != nil {
		g.log.Warn().Err(err).Str("player", p.Name()).Msg("spotlight revoke failed")
	}
	g.unlockChat(ctx)
}

// runTrial holds a defense and judgement for the suspect. Returns true
// when the suspect is lynched, which ends the day's trials.
func (g *Game) runTrial(ctx context.Context, suspect *Player) bool {
	g.say(ctx, g.gameChat, render(msgPutOnTrial, "{player}", suspect.Name()))
	g.spotlight(ctx, suspect, func() {
		g.window(ctx, g.config.DefenseTime, nil, nil)
	})

	verdict := g.judgementWindow(ctx, suspect)
	g.announceTallies(ctx, verdict)

	guilty := verdict.Count(JudgementGuilty)
	innocent := verdict.Count(JudgementInnocent)
	switch {
	case guilty == innocent:
		g.say(ctx, g.gameChat, render(msgJudgementTie, "{player}", suspect.Name()))
		return false
	case guilty < innocent:
		g.say(ctx, g.gameChat, render(msgJudgementInnocent, "{player}", suspect.Name()))
		return false
	}

	g.lynch(ctx, suspect)
	return true
}

// judgementWindow collects !guilty / !innocent verdicts from the living
// jurors. Verdicts may come from a juror's personal channel or a direct
// message, and may be changed while the window is open.
func (g *Game) judgementWindow(ctx context.Context, suspect *Player) *Votes[int64, Judgement] {
	verdict := NewVotes[int64, Judgement]()

	g.say(ctx, g.gameChat, render(msgJudgementPrompt,
		"{mentions}", commaListing(excludePlayer(g.roster.Alive(), suspect)),
		"{player}", suspect.Name(),
	))

	g.window(ctx, g.config.JudgementTime, g.gameChat, func(ev gateway.Event) bool {
		msg := ev.Message
		if ev.Kind != gateway.EventMessage {
			return true
		}
		juror := g.roster.Get(msg.Author.ID)
		if juror == nil || juror.Dead() || juror == suspect {
			return true
		}
		if !msg.Direct && (juror.Channel == nil || msg.Channel != juror.Channel.ID()) {
			return true
		}

		var j Judgement
		switch strings.ToLower(strings.TrimSpace(msg.Text)) {
		case "!guilty", "!g":
			j = JudgementGuilty
		case "!innocent", "!inno", "!i":
			j = JudgementInnocent
		default:
			return true
		}

		changed := verdict.Replace(juror.ID(), j)
		if juror.Channel != nil {
			g.say(ctx, juror.Channel, render(msgJudgementVote, "{judgement}", j.String()))
		}
		public := msgJudgementVotePublic
		if changed {
			public = msgJudgementVoteChanged
		}
		g.say(ctx, g.gameChat, render(public, "{player}", juror.Name()))
		return true
	})

	return verdict
}

func (g *Game) announceTallies(ctx context.Context, verdict *Votes[int64, Judgement]) {
	for _, t := range verdict.Tallies() {
		g.say(ctx, g.gameChat, render(msgVotesEntry,
			"{votes}", strconv.Itoa(t.Votes), "{target}", t.Choice.String()))
	}
}

// lynch executes the convicted suspect: last words, death, role reveal.
func (g *Game) lynch(ctx context.Context, suspect *Player) {
	g.say(ctx, g.gameChat, render(msgLynchLastWordsPrompt, "{player}", suspect.Name()))
	g.window(ctx, g.config.LastWordsTime, nil, nil)

	suspect.Kill(ctx)
	g.say(ctx, g.gameChat, render(msgRestInPeace, "{player}", suspect.Name()))
	g.revealDeath(ctx, suspect)
}
