// Package mafia implements the social-deduction game engine: the phase
// state machine, role framework, voting/trial subsystem and lobby flow,
// all behind the gateway boundary.
package mafia

import (
	"strconv"
	"strings"
	"sync"
)

// Key identifies a decision in Memory. Keys are value objects: two keys
// are the same entry iff name and persistence match.
type Key struct {
	Name       string
	Persistent bool
}

// Localized derives a per-player variant of the key. Grouped roles share
// one un-localized key; everyone else gets their own.
func (k Key) Localized(playerID int64) Key {
	return Key{
		Name:       k.Name + "_" + strconv.FormatInt(playerID, 10),
		Persistent: k.Persistent,
	}
}

// Memory tracks in-progress and persistent role decisions for one game.
// Role handlers for the same night run concurrently, so every access goes
// through the internal lock.
type Memory struct {
	mu     sync.Mutex
	values map[Key]any
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{values: make(map[Key]any)}
}

// Get returns the stored decision, if any.
func (m *Memory) Get(k Key) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[k]
	return v, ok
}

// Player returns the stored decision as a player, or nil.
func (m *Memory) Player(k Key) *Player {
	v, ok := m.Get(k)
	if !ok {
		return nil
	}
	p, _ := v.(*Player)
	return p
}

// Set stores a decision.
func (m *Memory) Set(k Key, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[k] = v
}

// Delete removes a decision.
func (m *Memory) Delete(k Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, k)
}

// Has reports whether a decision is stored.
func (m *Memory) Has(k Key) bool {
	_, ok := m.Get(k)
	return ok
}

// MatchPrefix reports whether any stored key starting with prefix holds a
// value accepted by pred.
func (m *Memory) MatchPrefix(prefix string, pred func(any) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.values {
		if strings.HasPrefix(k.Name, prefix) && pred(v) {
			return true
		}
	}
	return false
}

// Reset purges every non-persistent key. Called exactly once per night
// start; this is the only place state is cleared, so no night's leftover
// decision can leak into the next resolution.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.values {
		if !k.Persistent {
			delete(m.values, k)
		}
	}
}

// Len returns the number of stored decisions.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}
