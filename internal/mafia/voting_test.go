package mafia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mafia-game-bot/internal/gateway"
)

func TestVotesSingleVotePerVoter(t *testing.T) {
	v := NewVotes[int64, string]()

	choice, counted := v.Vote(1, "alice")
	require.True(t, counted)
	require.Equal(t, "alice", choice)

	standing, counted := v.Vote(1, "bob")
	assert.False(t, counted, "a second vote is rejected")
	assert.Equal(t, "alice", standing, "the standing choice is reported back")
	assert.Equal(t, 1, v.Count("alice"))
	assert.Equal(t, 0, v.Count("bob"))
	assert.Equal(t, 1, v.Total())
}

func TestVotesReplace(t *testing.T) {
	v := NewVotes[int64, string]()

	assert.False(t, v.Replace(1, "guilty"), "first verdict displaces nothing")
	assert.False(t, v.Replace(1, "guilty"), "restating the same verdict is a no-op")
	assert.True(t, v.Replace(1, "innocent"), "a different verdict is a change")

	assert.Equal(t, 0, v.Count("guilty"))
	assert.Equal(t, 1, v.Count("innocent"))
	assert.Equal(t, 1, v.Total())
}

func TestVotesTalliesTieBreak(t *testing.T) {
	v := NewVotes[int64, string]()
	v.Vote(1, "alice")
	v.Vote(2, "bob")
	v.Vote(3, "bob")
	v.Vote(4, "carol")

	tallies := v.Tallies()
	require.Len(t, tallies, 3)
	assert.Equal(t, Tally[string]{Choice: "bob", Votes: 2}, tallies[0])
	// alice and carol are tied; alice got her first vote earlier
	assert.Equal(t, Tally[string]{Choice: "alice", Votes: 1}, tallies[1])
	assert.Equal(t, Tally[string]{Choice: "carol", Votes: 1}, tallies[2])
}

func TestVotesLeader(t *testing.T) {
	v := NewVotes[int64, string]()

	_, ok := v.Leader(1)
	assert.False(t, ok, "no votes means no leader")

	v.Vote(1, "alice")
	_, ok = v.Leader(2)
	assert.False(t, ok, "a leader below the minimum does not count")

	v.Vote(2, "alice")
	leader, ok := v.Leader(2)
	require.True(t, ok)
	assert.Equal(t, "alice", leader)

	v.Vote(3, "bob")
	v.Vote(4, "bob")
	_, ok = v.Leader(2)
	assert.False(t, ok, "a tie for first place means no leader")
}

// TestVotesConservationProperty checks that however voters vote and
// re-vote, the tallies always sum to the number of voters and never go
// negative.
func TestVotesConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewVotes[int64, int]()

		numOps := rapid.IntRange(1, 50).Draw(t, "numOps")
		voters := make(map[int64]bool)
		for i := 0; i < numOps; i++ {
			voter := rapid.Int64Range(1, 8).Draw(t, "voter")
			choice := rapid.IntRange(1, 5).Draw(t, "choice")
			if rapid.Bool().Draw(t, "replace") {
				v.Replace(voter, choice)
			} else {
				v.Vote(voter, choice)
			}
			voters[voter] = true
		}

		if v.Total() != len(voters) {
			t.Fatalf("total %d, want %d distinct voters", v.Total(), len(voters))
		}
		sum := 0
		for _, tally := range v.Tallies() {
			if tally.Votes <= 0 {
				t.Fatalf("tally for %d is %d", tally.Choice, tally.Votes)
			}
			sum += tally.Votes
		}
		if sum != len(voters) {
			t.Fatalf("tallies sum to %d, want %d", sum, len(voters))
		}
	})
}

func TestVoteQuorum(t *testing.T) {
	tests := []struct {
		alive  int
		quorum int
	}{
		{2, 2},
		{3, 2},
		{5, 2},
		{6, 2},
		{7, 2},
		{9, 3},
		{12, 4},
		{15, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.quorum, voteQuorum(tt.alive), "alive=%d", tt.alive)
	}
}

func TestJudgementString(t *testing.T) {
	assert.Equal(t, "guilty", JudgementGuilty.String())
	assert.Equal(t, "innocent", JudgementInnocent.String())
}

func TestDefenseSpotlight(t *testing.T) {
	players := testPlayers("Sam", "Olive")
	g := nightGame(t, players)
	suspect, bystander := players[0], players[1]

	gameChat, err := g.area.CreateChannel(context.Background(), "town-square", gateway.AccessAllow)
	require.NoError(t, err)
	g.gameChat = gameChat
	gw := g.gw.(*gateway.MemoryGateway)

	g.spotlight(context.Background(), suspect, func() {
		assert.Equal(t, gateway.AccessAllow, gw.UserAccess(gameChat, suspect.User),
			"the accused keeps the floor")
		assert.Equal(t, gateway.AccessReadOnly, gw.UserAccess(gameChat, bystander.User),
			"everyone else is muted during the defense")
	})

	assert.Equal(t, gateway.AccessAllow, gw.UserAccess(gameChat, suspect.User))
	assert.Equal(t, gateway.AccessAllow, gw.UserAccess(gameChat, bystander.User),
		"the floor reopens after the defense")
}
