package mafia

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetWill(t *testing.T) {
	p := testPlayers("Alice")[0]

	assert.True(t, p.SetWill("avenge me"))
	assert.Equal(t, "avenge me", p.Will)

	assert.True(t, p.SetWill(strings.Repeat("x", willLimit)))

	assert.False(t, p.SetWill(strings.Repeat("x", willLimit+1)))
	assert.Equal(t, strings.Repeat("x", willLimit), p.Will, "an oversized will changes nothing")
}

func TestSuspicious(t *testing.T) {
	p := testPlayers("Alice")[0]

	for _, tt := range []struct {
		role       Role
		suspicious bool
	}{
		{RoleInnocent, false},
		{RoleDoctor, false},
		{RoleEscort, false},
		{RoleMedium, false},
		{RoleMafia, true},
		{RoleInvestigator, true},
	} {
		p.Role = tt.role
		assert.Equal(t, tt.suspicious, p.Suspicious(), "role=%s", tt.role)
	}
}

func TestExcludePlayer(t *testing.T) {
	players := testPlayers("Alice", "Bob", "Carol")

	out := excludePlayer(players, players[1])
	assert.Equal(t, []*Player{players[0], players[2]}, out)

	assert.Len(t, excludePlayer(players, nil), 3)
}
