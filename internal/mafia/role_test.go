package mafia

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mafia-game-bot/internal/gateway"
)

func TestMafiaCount(t *testing.T) {
	tests := []struct {
		players int
		mafia   int
	}{
		{1, 1},
		{2, 1},
		{3, 1},
		{5, 1},
		{6, 2},
		{8, 2},
		{9, 3},
		{12, 3},
		{30, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.mafia, mafiaCount(tt.players), "players=%d", tt.players)
	}
}

func TestRoleWeights(t *testing.T) {
	tests := []struct {
		role   Role
		weight int
	}{
		{RoleInnocent, 10},
		{RoleInvestigator, 10},
		{RoleDoctor, 10},
		{RoleMedium, 5},
		{RoleEscort, 5},
		{RoleMafia, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.weight, tt.role.weight(), "role=%s", tt.role)
	}
}

func TestDecisionKey(t *testing.T) {
	mafias := testPlayers("M1", "M2")

	k1, ok := RoleMafia.DecisionKey(mafias[0])
	require.True(t, ok)
	k2, ok := RoleMafia.DecisionKey(mafias[1])
	require.True(t, ok)
	assert.Equal(t, k1, k2, "grouped roles share one decision")

	doctors := testPlayers("D1", "D2")
	d1, ok := RoleDoctor.DecisionKey(doctors[0])
	require.True(t, ok)
	d2, ok := RoleDoctor.DecisionKey(doctors[1])
	require.True(t, ok)
	assert.NotEqual(t, d1, d2, "ungrouped roles decide per player")
	assert.False(t, d1.Persistent)

	m, ok := RoleMedium.DecisionKey(doctors[0])
	require.True(t, ok)
	assert.True(t, m.Persistent, "the seance marker survives night resets")

	_, ok = RoleInnocent.DecisionKey(doctors[0])
	assert.False(t, ok, "innocents carry no nightly decision")
}

func TestRollTownieRoleNeverEvil(t *testing.T) {
	for i := 0; i < 1000; i++ {
		r := rollTownieRole()
		require.False(t, r.Evil(), "rolled %s", r)
		require.Greater(t, r.weight(), 0, "rolled zero-weight role %s", r)
	}
}

// nightGame builds a minimal running game around a roster, enough for
// hook resolution to execute against a real area.
func nightGame(t *testing.T, players []*Player) *Game {
	t.Helper()
	gw := gateway.NewMemory()
	area, err := gw.CreateArea(context.Background(), "night-test")
	require.NoError(t, err)

	g := &Game{
		gw:     gw,
		area:   area,
		memory: NewMemory(),
		roster: newRoster(players),
		config: DefaultConfig(),
		log:    zerolog.Nop(),
	}
	for _, p := range players {
		p.game = g
	}
	return g
}

func TestNightResolutionDoctorSavesVictim(t *testing.T) {
	players := testPlayers("Mallory", "Dana", "Victor")
	players[0].Role = RoleMafia
	players[1].Role = RoleDoctor
	g := nightGame(t, players)
	mafioso, doctor, victim := players[0], players[1], players[2]

	mafiaKey, _ := RoleMafia.DecisionKey(mafioso)
	g.memory.Set(mafiaKey, victim)
	healKey, _ := RoleDoctor.DecisionKey(doctor)
	g.memory.Set(healKey, victim)

	g.runNightHooks(context.Background(), false)

	assert.True(t, victim.Alive, "a healed victim survives the attack")
	assert.True(t, g.memory.Has(attackedKey(victim)),
		"the attack is still recorded so the doctor reports a save")
}

func TestNightResolutionUnhealedVictimDies(t *testing.T) {
	players := testPlayers("Mallory", "Dana", "Victor")
	players[0].Role = RoleMafia
	players[1].Role = RoleDoctor
	g := nightGame(t, players)
	mafioso, doctor, victim := players[0], players[1], players[2]

	mafiaKey, _ := RoleMafia.DecisionKey(mafioso)
	g.memory.Set(mafiaKey, victim)
	// the doctor guessed wrong
	healKey, _ := RoleDoctor.DecisionKey(doctor)
	g.memory.Set(healKey, doctor)

	g.runNightHooks(context.Background(), false)

	assert.True(t, victim.Dead())
	assert.True(t, doctor.Alive)
}

func TestNightResolutionEscortBlocksMafia(t *testing.T) {
	players := testPlayers("Mallory", "Esther", "Victor")
	players[0].Role = RoleMafia
	players[1].Role = RoleEscort
	g := nightGame(t, players)
	mafioso, escort, victim := players[0], players[1], players[2]

	mafiaKey, _ := RoleMafia.DecisionKey(mafioso)
	g.memory.Set(mafiaKey, victim)
	blockKey, _ := RoleEscort.DecisionKey(escort)
	g.memory.Set(blockKey, mafioso)

	g.runNightHooks(context.Background(), false)

	assert.True(t, victim.Alive, "the blocked mafia's decision was erased before resolving")
	assert.False(t, g.memory.Has(mafiaKey))
}

func TestMediumSeanceOncePerGame(t *testing.T) {
	players := testPlayers("Morgan", "Victor")
	players[0].Role = RoleMedium
	g := nightGame(t, players)
	medium := players[0]

	spec, err := g.area.CreateChannel(context.Background(), "graveyard", gateway.AccessHidden)
	require.NoError(t, err)
	g.specChat = spec
	gw := g.gw.(*gateway.MemoryGateway)

	a := &actionContext{
		ctx:     context.Background(),
		game:    g,
		player:  medium,
		message: &gateway.Message{Text: "!seance"},
	}

	state := mediumOnMessage(a, nil)
	assert.Equal(t, true, state)
	assert.Equal(t, gateway.AccessReadOnly, gw.UserAccess(spec, medium.User),
		"the first seance opens the dead channel")
	assert.True(t, g.memory.Has(seanceOpenKey(medium)))

	// the grant is revoked when the night ends
	mediumNightEnd(a, state)
	assert.Equal(t, gateway.AccessHidden, gw.UserAccess(spec, medium.User))
	assert.False(t, g.memory.Has(seanceOpenKey(medium)))

	state = mediumOnMessage(a, state)
	assert.Equal(t, true, state)
	assert.Equal(t, gateway.AccessHidden, gw.UserAccess(spec, medium.User),
		"a second seance does not reopen the channel")
}

// TestAssignRolesProperty checks role assignment for any viable player
// count: the mafia quota is met exactly, and the town always holds at
// least one active nightly capability.
func TestAssignRolesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 15).Draw(t, "n")

		names := make([]string, n)
		for i := range names {
			names[i] = "p" + string(rune('a'+i))
		}
		g := &Game{roster: newRoster(testPlayers(names...))}

		g.assignRoles()

		if got := len(g.roster.Mafia()); got != mafiaCount(n) {
			t.Fatalf("%d mafia assigned, want %d", got, mafiaCount(n))
		}
		townies := g.roster.Townies()
		if len(townies) == 0 {
			return
		}
		for _, p := range townies {
			if p.Role != RoleInnocent {
				return
			}
		}
		t.Fatal("town is all innocents; someone should have been made investigator")
	})
}
