// Package gateway defines the narrow messaging-platform boundary that the
// game engine depends on: isolated areas, channels inside them, outbound
// sends and a single event-subscription primitive. Implementations exist
// for Telegram and for an in-memory platform used by tests and dry runs.
package gateway

import "context"

// User is a stable platform identity.
type User struct {
	ID   int64
	Name string
}

func (u User) String() string { return u.Name }

// Tag marks a group of area members (e.g. "dead", "spectator") so channel
// access can be granted or revoked for all of them at once.
type Tag string

// Access is the effective permission a subject has in a channel.
type Access int

const (
	// AccessInherit removes any per-subject override.
	AccessInherit Access = iota
	// AccessAllow grants reading and posting.
	AccessAllow
	// AccessReadOnly grants reading but not posting.
	AccessReadOnly
	// AccessHidden hides the channel entirely.
	AccessHidden
)

// EventKind discriminates inbound platform events.
type EventKind int

const (
	EventMessage EventKind = iota
	EventReaction
	EventMemberJoined
	EventMemberLeft
)

// Message is an inbound message event payload.
type Message struct {
	ID      string
	Channel string
	Author  User
	Text    string
	// Direct is true for messages sent privately to the bot rather than
	// inside an area channel.
	Direct bool
}

// Reaction is a marker toggled on a posted message.
type Reaction struct {
	MessageID string
	Channel   string
	User      User
	Marker    string
	Removed   bool
}

// Event is a single inbound platform event. Exactly one payload field is
// set, matching Kind.
type Event struct {
	Kind     EventKind
	AreaID   string
	Message  *Message
	Reaction *Reaction
	Member   *User
}

// Gateway is the platform entry point. One Gateway instance serves the
// whole process; each running game owns its own Subscription and Area.
type Gateway interface {
	// CreateArea provisions an isolated communication space.
	CreateArea(ctx context.Context, name string) (Area, error)

	// Subscribe registers a scoped event listener. Events failing the
	// predicate are not delivered. The returned handle must be closed
	// exactly once; closing is idempotent and safe on all exit paths.
	Subscribe(pred func(Event) bool) *Subscription
}

// Area is an isolated communication space with its own membership.
type Area interface {
	ID() string
	Name() string

	CreateChannel(ctx context.Context, name string, access Access) (Channel, error)
	Delete(ctx context.Context) error

	Members() []User
	HasMember(id int64) bool

	AssignTag(ctx context.Context, user User, tag Tag) error
	RemoveTag(ctx context.Context, user User, tag Tag) error

	InviteLink(ctx context.Context) (string, error)
}

// Channel is a text channel inside an area.
type Channel interface {
	ID() string
	Name() string

	Send(ctx context.Context, text string) (Posted, error)

	// SetUserAccess and SetTagAccess override channel access for a single
	// member or for everyone holding a tag.
	SetUserAccess(ctx context.Context, user User, access Access) error
	SetTagAccess(ctx context.Context, tag Tag, access Access) error

	// React attaches a lightweight marker to someone else's message,
	// used as a negative acknowledgement for malformed commands.
	React(ctx context.Context, messageID string, marker string) error
}

// Posted is a handle to a message the bot sent.
type Posted interface {
	ID() string
	Edit(ctx context.Context, text string) error
	Delete(ctx context.Context) error
	Pin(ctx context.Context) error

	// AddMarker exposes a reaction marker on the message that members can
	// toggle; toggles arrive as EventReaction events.
	AddMarker(ctx context.Context, marker string) error
}
