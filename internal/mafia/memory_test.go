package mafia

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestMemoryResetProperty checks that a night reset purges every
// non-persistent decision and leaves every persistent one untouched, and
// that a second reset changes nothing further.
func TestMemoryResetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := NewMemory()

		numKeys := rapid.IntRange(0, 30).Draw(t, "numKeys")
		persistent := make(map[Key]int)
		for i := 0; i < numKeys; i++ {
			k := Key{
				Name:       "k" + strconv.Itoa(i),
				Persistent: rapid.Bool().Draw(t, "persistent"),
			}
			m.Set(k, i)
			if k.Persistent {
				persistent[k] = i
			}
		}

		m.Reset()

		if m.Len() != len(persistent) {
			t.Fatalf("after reset: %d keys remain, want %d", m.Len(), len(persistent))
		}
		for k, want := range persistent {
			got, ok := m.Get(k)
			if !ok || got != want {
				t.Fatalf("persistent key %v lost: got %v, %v", k, got, ok)
			}
		}

		m.Reset()
		if m.Len() != len(persistent) {
			t.Fatalf("second reset changed the store: %d keys", m.Len())
		}
	})
}

func TestMemoryLocalized(t *testing.T) {
	base := Key{Name: "heal_target"}

	a := base.Localized(1)
	b := base.Localized(2)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, base.Localized(1), "localization must be stable")
	assert.Equal(t, "heal_target_1", a.Name)
	assert.False(t, a.Persistent)

	p := Key{Name: "has_seanced", Persistent: true}.Localized(7)
	assert.True(t, p.Persistent, "localization keeps persistence")
}

func TestMemoryMatchPrefix(t *testing.T) {
	m := NewMemory()
	m.Set(Key{Name: "heal_target_1"}, "alice")
	m.Set(Key{Name: "heal_target_2"}, "bob")
	m.Set(Key{Name: "block_target_1"}, "alice")

	assert.True(t, m.MatchPrefix("heal_target_", func(v any) bool { return v == "bob" }))
	assert.False(t, m.MatchPrefix("heal_target_", func(v any) bool { return v == "carol" }))
	assert.False(t, m.MatchPrefix("mafia_", func(v any) bool { return true }))
}

func TestMemoryPlayer(t *testing.T) {
	m := NewMemory()
	k := Key{Name: "mafia_victim"}

	require.Nil(t, m.Player(k), "missing key reads as nil player")

	m.Set(k, "not a player")
	assert.Nil(t, m.Player(k), "wrong type reads as nil player")

	p := &Player{}
	m.Set(k, p)
	assert.Same(t, p, m.Player(k))

	m.Delete(k)
	assert.False(t, m.Has(k))
}
