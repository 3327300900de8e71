package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAccessResolution(t *testing.T) {
	ctx := context.Background()
	gw := NewMemory()
	area, err := gw.CreateArea(ctx, "test")
	require.NoError(t, err)

	alice := User{ID: 1, Name: "Alice"}
	gw.Join(area, alice)

	open, err := area.CreateChannel(ctx, "open", AccessAllow)
	require.NoError(t, err)
	hidden, err := area.CreateChannel(ctx, "hidden", AccessHidden)
	require.NoError(t, err)

	assert.Equal(t, AccessAllow, gw.UserAccess(open, alice))
	assert.Equal(t, AccessHidden, gw.UserAccess(hidden, alice))

	// a tag override restricts past the channel base
	require.NoError(t, area.AssignTag(ctx, alice, "dead"))
	require.NoError(t, open.SetTagAccess(ctx, "dead", AccessReadOnly))
	assert.Equal(t, AccessReadOnly, gw.UserAccess(open, alice))

	// a user override wins over any tag
	require.NoError(t, open.SetUserAccess(ctx, alice, AccessAllow))
	assert.Equal(t, AccessAllow, gw.UserAccess(open, alice))

	// AccessInherit clears the override and falls back to the tag
	require.NoError(t, open.SetUserAccess(ctx, alice, AccessInherit))
	assert.Equal(t, AccessReadOnly, gw.UserAccess(open, alice))

	// the everyone override stands in for a missing tag override
	require.NoError(t, area.RemoveTag(ctx, alice, "dead"))
	require.NoError(t, open.SetTagAccess(ctx, TagEveryone, AccessReadOnly))
	assert.Equal(t, AccessReadOnly, gw.UserAccess(open, alice))
}

func TestMemorySayHonorsAccess(t *testing.T) {
	ctx := context.Background()
	gw := NewMemory()
	area, err := gw.CreateArea(ctx, "test")
	require.NoError(t, err)

	alice := User{ID: 1, Name: "Alice"}
	gw.Join(area, alice)

	ch, err := area.CreateChannel(ctx, "general", AccessAllow)
	require.NoError(t, err)

	sub := gw.Subscribe(func(ev Event) bool { return ev.Kind == EventMessage })
	defer sub.Close()

	gw.Say(ch, alice, "hello")
	ev := recvEvent(t, sub)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hello", ev.Message.Text)
	assert.Equal(t, []string{"hello"}, gw.Transcript(ch))

	// a locked channel swallows the message entirely
	require.NoError(t, ch.SetTagAccess(ctx, TagEveryone, AccessReadOnly))
	gw.Say(ch, alice, "muted")
	assert.Equal(t, []string{"hello"}, gw.Transcript(ch))
}

func TestMemoryPostedLifecycle(t *testing.T) {
	ctx := context.Background()
	gw := NewMemory()
	area, err := gw.CreateArea(ctx, "test")
	require.NoError(t, err)
	ch, err := area.CreateChannel(ctx, "general", AccessAllow)
	require.NoError(t, err)

	p, err := ch.Send(ctx, "one")
	require.NoError(t, err)
	require.NoError(t, p.Edit(ctx, "two"))
	assert.Equal(t, []string{"two"}, gw.Transcript(ch))

	assert.Same(t, p, gw.LastPosted(ch))
	assert.Nil(t, gw.FindChannel(area, "missing"))
	assert.Same(t, ch, gw.FindChannel(area, "general"))

	require.NoError(t, area.Delete(ctx))
	_, err = ch.Send(ctx, "three")
	assert.Error(t, err, "a deleted area accepts no more messages")
	assert.Nil(t, gw.FindArea("test"), "deleted areas are not found")
}
