package mafia

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"mafia-game-bot/internal/gateway"
)

func testPlayers(names ...string) []*Player {
	out := make([]*Player, len(names))
	for i, n := range names {
		out[i] = newPlayer(nil, gateway.User{ID: int64(i + 1), Name: n})
	}
	return out
}

func TestBasicCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rest  string
		ok    bool
	}{
		{"!kill", "!kill alice", "alice", true},
		{"!kill", "!kill alice smith", "alice smith", true},
		{"!kill", "!KILL alice", "alice", true},
		{"!vote", "!Vote Bob", "Bob", true},
		{"!kill", "!kill", "", false},
		{"!kill", "!kill ", "", false},
		{"!kill", "!killalice", "", false},
		{"!kill", "!heal alice", "", false},
		{"!kill", "say !kill alice", "", false},
	}
	for _, tt := range tests {
		rest, ok := basicCommand(tt.name, tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.rest, rest, "input %q", tt.input)
	}
}

func TestSelectPlayerExactMatch(t *testing.T) {
	players := testPlayers("Alice", "Bob", "Carol")

	assert.Same(t, players[0], selectPlayer("Alice", players))
	assert.Same(t, players[1], selectPlayer("bOb", players), "name match is case-insensitive")
	assert.Same(t, players[2], selectPlayer("3", players), "id selects too")
	assert.Nil(t, selectPlayer("zzzzzz", players))
	assert.Nil(t, selectPlayer("x", nil))
}

func TestSelectPlayerFuzzyThreshold(t *testing.T) {
	players := testPlayers("Alice", "Bob")

	orig := score
	defer func() { score = orig }()

	score = func(query, candidate string) int { return fuzzyThreshold }
	assert.Nil(t, selectPlayer("alise", players), "scores at the threshold do not match")

	score = func(query, candidate string) int {
		if candidate == "Bob" {
			return fuzzyThreshold + 1
		}
		return 0
	}
	assert.Same(t, players[1], selectPlayer("bub", players))
}

// TestSelectPlayerExactBeatsFuzzyProperty checks that an exact name hit
// always wins, whatever the fuzzy scorer claims about other candidates.
func TestSelectPlayerExactBeatsFuzzyProperty(t *testing.T) {
	orig := score
	defer func() { score = orig }()
	score = func(query, candidate string) int { return 100 }

	rapid.Check(t, func(t *rapid.T) {
		players := testPlayers("Alice", "Bob", "Carol", "Dave")
		pick := rapid.IntRange(0, len(players)-1).Draw(t, "pick")

		got := selectPlayer(players[pick].Name(), players)
		if got != players[pick] {
			t.Fatalf("selected %v, want %v", got, players[pick])
		}
	})
}
