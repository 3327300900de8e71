package ext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

type fakeExt struct {
	name     string
	setupErr error
	setups   int
}

func (f *fakeExt) Name() string { return f.name }

func (f *fakeExt) Setup(_ *tele.Bot) error {
	f.setups++
	return f.setupErr
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&fakeExt{name: ""}))

	require.NoError(t, r.Register(&fakeExt{name: "mafia"}))
	require.NoError(t, r.Register(&fakeExt{name: "gets"}))
	assert.Equal(t, 2, r.Count())

	e, ok := r.Get("mafia")
	require.True(t, ok)
	assert.Equal(t, "mafia", e.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)

	// same-name registration replaces
	replacement := &fakeExt{name: "mafia"}
	require.NoError(t, r.Register(replacement))
	assert.Equal(t, 2, r.Count())
	e, _ = r.Get("mafia")
	assert.Same(t, replacement, e)
}

func TestRegistryOrdering(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(&fakeExt{name: name}))
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())

	var listed []string
	for _, e := range r.List() {
		listed = append(listed, e.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, listed)
}

func TestSetupAll(t *testing.T) {
	r := NewRegistry()
	a := &fakeExt{name: "a"}
	b := &fakeExt{name: "b"}
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	require.NoError(t, r.SetupAll(nil))
	assert.Equal(t, 1, a.setups)
	assert.Equal(t, 1, b.setups)
}

func TestSetupAllStopsOnError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	a := &fakeExt{name: "a", setupErr: boom}
	b := &fakeExt{name: "b"}
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	err := r.SetupAll(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `extension "a"`)
	assert.Equal(t, 0, b.setups, "later extensions are not set up after a failure")
}
