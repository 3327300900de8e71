package mafia

import (
	"strconv"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// fuzzyThreshold is the similarity floor (out of 100) a candidate must
// exceed for a non-exact match to count.
const fuzzyThreshold = 50

// scoreFunc rates how well a selector matches a candidate name, 0-100.
// The algorithm is a detail; only the exact-match-first, then-threshold
// policy below is load-bearing.
type scoreFunc func(query, candidate string) int

var score scoreFunc = fuzzy.WRatio

// basicCommand parses "<name> <rest>" and returns the rest. The verb is
// case-insensitive and must be followed by an argument.
func basicCommand(name, input string) (string, bool) {
	n := len(name)
	if len(input) <= n+1 || !strings.EqualFold(input[:n], name) || input[n] != ' ' {
		return "", false
	}
	return input[n+1:], true
}

// selectPlayer resolves a selector against candidate players. An exact
// case-insensitive name or id match always wins; otherwise the best fuzzy
// score above the threshold does, tolerating loose typing.
func selectPlayer(selector string, players []*Player) *Player {
	lowered := strings.ToLower(selector)
	for _, p := range players {
		if strings.ToLower(p.Name()) == lowered || strconv.FormatInt(p.ID(), 10) == selector {
			return p
		}
	}

	var best *Player
	bestScore := fuzzyThreshold
	for _, p := range players {
		if s := score(selector, p.Name()); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best
}
