package mafia

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mafia-game-bot/internal/gateway"
)

func TestRosterOrdering(t *testing.T) {
	players := []*Player{
		newPlayer(nil, gateway.User{ID: 30, Name: "Carol"}),
		newPlayer(nil, gateway.User{ID: 10, Name: "Alice"}),
		newPlayer(nil, gateway.User{ID: 20, Name: "Bob"}),
	}
	r := newRoster(players)

	var ids []int64
	for _, p := range r.Players() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []int64{10, 20, 30}, ids)

	require.NotNil(t, r.Get(20))
	assert.Equal(t, "Bob", r.Get(20).Name())
	assert.Nil(t, r.Get(99), "outsiders resolve to nil")
}

func TestRosterSamplePanics(t *testing.T) {
	r := newRoster(testPlayers("Alice", "Bob"))
	assert.Len(t, r.Sample(2), 2)
	assert.Panics(t, func() { r.Sample(3) })
}

// TestRosterPartitionProperty checks the faction views against each
// other: mafia and town partition the roster, the alive views partition
// the living, and the win conditions are exactly the empty-side checks.
func TestRosterPartitionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(t, "n")

		players := make([]*Player, n)
		for i := range players {
			p := newPlayer(nil, gateway.User{ID: int64(i + 1), Name: "p" + strconv.Itoa(i+1)})
			p.Role = AllRoles[rapid.IntRange(0, len(AllRoles)-1).Draw(t, "role")]
			p.Alive = rapid.Bool().Draw(t, "alive")
			players[i] = p
		}
		r := newRoster(players)

		if got := len(r.Mafia()) + len(r.Townies()); got != n {
			t.Fatalf("mafia+townies = %d, want %d", got, n)
		}
		if got := len(r.Alive()) + len(r.Dead()); got != n {
			t.Fatalf("alive+dead = %d, want %d", got, n)
		}
		if got := len(r.AliveMafia()) + len(r.AliveTownies()); got != len(r.Alive()) {
			t.Fatalf("alive mafia+townies = %d, want %d", got, len(r.Alive()))
		}
		for _, p := range r.AliveMafia() {
			if !p.Alive || !p.Mafia() {
				t.Fatalf("%s in AliveMafia but alive=%v mafia=%v", p.Name(), p.Alive, p.Mafia())
			}
		}
		for _, p := range r.Nocturnal() {
			if p.Role == RoleInnocent {
				t.Fatalf("%s is nocturnal but innocent", p.Name())
			}
		}
		if r.AllMafiaDead() != (len(r.AliveMafia()) == 0) {
			t.Fatal("AllMafiaDead disagrees with AliveMafia")
		}
		if r.AllTowniesDead() != (len(r.AliveTownies()) == 0) {
			t.Fatal("AllTowniesDead disagrees with AliveTownies")
		}
	})
}

func TestRosterLocalize(t *testing.T) {
	ctx := context.Background()
	gw := gateway.NewMemory()
	area, err := gw.CreateArea(ctx, "test")
	require.NoError(t, err)

	r := newRoster(testPlayers("Alice", "Bob"))

	err = r.Localize(ctx, area)
	assert.Error(t, err, "localizing before anyone joined fails")

	// the area hands out refreshed identities on join
	gw.Join(area, gateway.User{ID: 1, Name: "Alice (refreshed)"})
	gw.Join(area, gateway.User{ID: 2, Name: "Bob (refreshed)"})

	require.NoError(t, r.Localize(ctx, area))
	assert.Equal(t, "Alice (refreshed)", r.Get(1).Name())
	assert.Equal(t, "Bob (refreshed)", r.Get(2).Name())
}
