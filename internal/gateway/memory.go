package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TagEveryone addresses every area member that has no more specific
// override, like a platform's default role.
const TagEveryone Tag = "@everyone"

// MemoryGateway is a fully in-process platform. It records transcripts and
// exposes injection helpers so the game engine can be driven end to end
// without a network.
type MemoryGateway struct {
	broker *Broker

	mu     sync.Mutex
	areas  map[string]*memoryArea
	nextID int64
}

// NewMemory creates an empty in-memory platform.
func NewMemory() *MemoryGateway {
	return &MemoryGateway{
		broker: NewBroker(),
		areas:  make(map[string]*memoryArea),
	}
}

func (g *MemoryGateway) CreateArea(_ context.Context, name string) (Area, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a := &memoryArea{
		gw:       g,
		id:       uuid.NewString(),
		name:     name,
		members:  make(map[int64]User),
		tags:     make(map[int64]map[Tag]bool),
		channels: make(map[string]*memoryChannel),
	}
	g.areas[a.id] = a
	return a, nil
}

func (g *MemoryGateway) Subscribe(pred func(Event) bool) *Subscription {
	return g.broker.Subscribe(pred)
}

func (g *MemoryGateway) messageID() string {
	g.nextID++
	return fmt.Sprintf("m%d", g.nextID)
}

// Join adds a member to an area and publishes the join event.
func (g *MemoryGateway) Join(a Area, u User) {
	ma := a.(*memoryArea)
	g.mu.Lock()
	ma.members[u.ID] = u
	g.mu.Unlock()
	g.broker.Publish(Event{Kind: EventMemberJoined, AreaID: ma.id, Member: &u})
}

// Leave removes a member from an area and publishes the leave event.
func (g *MemoryGateway) Leave(a Area, u User) {
	ma := a.(*memoryArea)
	g.mu.Lock()
	delete(ma.members, u.ID)
	g.mu.Unlock()
	g.broker.Publish(Event{Kind: EventMemberLeft, AreaID: ma.id, Member: &u})
}

// Say injects a member message into a channel, honoring posting access the
// way the real platform would.
func (g *MemoryGateway) Say(ch Channel, u User, text string) {
	mc := ch.(*memoryChannel)
	g.mu.Lock()
	allowed := mc.effectiveAccess(u) == AccessAllow
	id := g.messageID()
	if allowed {
		mc.log = append(mc.log, transcriptEntry{author: u.Name, text: text})
	}
	g.mu.Unlock()
	if !allowed {
		return
	}
	g.broker.Publish(Event{
		Kind:    EventMessage,
		AreaID:  mc.area.id,
		Message: &Message{ID: id, Channel: mc.id, Author: u, Text: text},
	})
}

// SayDirect injects a private message to the bot.
func (g *MemoryGateway) SayDirect(u User, text string) {
	g.mu.Lock()
	id := g.messageID()
	g.mu.Unlock()
	g.broker.Publish(Event{
		Kind:    EventMessage,
		Message: &Message{ID: id, Author: u, Text: text, Direct: true},
	})
}

// Toggle flips a reaction marker on a posted message.
func (g *MemoryGateway) Toggle(p Posted, u User, marker string, removed bool) {
	mp := p.(*memoryPosted)
	g.broker.Publish(Event{
		Kind:   EventReaction,
		AreaID: mp.ch.area.id,
		Reaction: &Reaction{
			MessageID: mp.id,
			Channel:   mp.ch.id,
			User:      u,
			Marker:    marker,
			Removed:   removed,
		},
	})
}

// Transcript returns every message recorded in a channel, oldest first.
func (g *MemoryGateway) Transcript(ch Channel) []string {
	mc := ch.(*memoryChannel)
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(mc.log))
	for _, e := range mc.log {
		out = append(out, e.text)
	}
	return out
}

// NackCount returns how many negative-acknowledgement reactions the bot
// added in a channel.
func (g *MemoryGateway) NackCount(ch Channel) int {
	mc := ch.(*memoryChannel)
	g.mu.Lock()
	defer g.mu.Unlock()
	return mc.nacks
}

// UserAccess reports the effective access a user has in a channel.
func (g *MemoryGateway) UserAccess(ch Channel, u User) Access {
	mc := ch.(*memoryChannel)
	g.mu.Lock()
	defer g.mu.Unlock()
	return mc.effectiveAccess(u)
}

// FindArea returns the first live area whose name starts with prefix.
func (g *MemoryGateway) FindArea(prefix string) Area {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.areas {
		if !a.deleted && strings.HasPrefix(a.name, prefix) {
			return a
		}
	}
	return nil
}

// FindChannel returns the named channel in an area, or nil.
func (g *MemoryGateway) FindChannel(a Area, name string) Channel {
	ma := a.(*memoryArea)
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range ma.channels {
		if c.name == name {
			return c
		}
	}
	return nil
}

// LastPosted returns the most recent message the bot posted in a channel,
// or nil.
func (g *MemoryGateway) LastPosted(ch Channel) Posted {
	mc := ch.(*memoryChannel)
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(mc.posts) == 0 {
		return nil
	}
	return mc.posts[len(mc.posts)-1]
}

type transcriptEntry struct {
	author string
	text   string
}

type memoryArea struct {
	gw       *MemoryGateway
	id       string
	name     string
	deleted  bool
	members  map[int64]User
	tags     map[int64]map[Tag]bool
	channels map[string]*memoryChannel
}

func (a *memoryArea) ID() string   { return a.id }
func (a *memoryArea) Name() string { return a.name }

func (a *memoryArea) CreateChannel(_ context.Context, name string, access Access) (Channel, error) {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	if a.deleted {
		return nil, fmt.Errorf("area %q is deleted", a.name)
	}
	c := &memoryChannel{
		area:       a,
		id:         uuid.NewString(),
		name:       name,
		base:       access,
		userAccess: make(map[int64]Access),
		tagAccess:  make(map[Tag]Access),
	}
	a.channels[c.id] = c
	return c, nil
}

func (a *memoryArea) Delete(context.Context) error {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	if a.deleted {
		return fmt.Errorf("area %q is already deleted", a.name)
	}
	a.deleted = true
	return nil
}

func (a *memoryArea) Members() []User {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	out := make([]User, 0, len(a.members))
	for _, u := range a.members {
		out = append(out, u)
	}
	return out
}

func (a *memoryArea) HasMember(id int64) bool {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	_, ok := a.members[id]
	return ok
}

func (a *memoryArea) AssignTag(_ context.Context, user User, tag Tag) error {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	if a.tags[user.ID] == nil {
		a.tags[user.ID] = make(map[Tag]bool)
	}
	a.tags[user.ID][tag] = true
	return nil
}

func (a *memoryArea) RemoveTag(_ context.Context, user User, tag Tag) error {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	delete(a.tags[user.ID], tag)
	return nil
}

func (a *memoryArea) InviteLink(context.Context) (string, error) {
	return "mem://join/" + a.id, nil
}

type memoryChannel struct {
	area       *memoryArea
	id         string
	name       string
	base       Access
	userAccess map[int64]Access
	tagAccess  map[Tag]Access
	log        []transcriptEntry
	posts      []*memoryPosted
	nacks      int
}

func (c *memoryChannel) ID() string   { return c.id }
func (c *memoryChannel) Name() string { return c.name }

// effectiveAccess resolves access the way the real platforms do: a user
// override wins, then the most restrictive override among the user's tags,
// then the everyone override, then the channel base. Callers hold gw.mu.
func (c *memoryChannel) effectiveAccess(u User) Access {
	if acc, ok := c.userAccess[u.ID]; ok && acc != AccessInherit {
		return acc
	}
	strictest := AccessInherit
	for tag := range c.area.tags[u.ID] {
		if acc, ok := c.tagAccess[tag]; ok && acc != AccessInherit {
			if strictest == AccessInherit || acc > strictest {
				strictest = acc
			}
		}
	}
	if strictest != AccessInherit {
		return strictest
	}
	if acc, ok := c.tagAccess[TagEveryone]; ok && acc != AccessInherit {
		return acc
	}
	return c.base
}

func (c *memoryChannel) Send(_ context.Context, text string) (Posted, error) {
	c.area.gw.mu.Lock()
	defer c.area.gw.mu.Unlock()
	if c.area.deleted {
		return nil, fmt.Errorf("area %q is deleted", c.area.name)
	}
	p := &memoryPosted{ch: c, id: c.area.gw.messageID(), text: text}
	c.log = append(c.log, transcriptEntry{author: "", text: text})
	p.logIdx = len(c.log) - 1
	c.posts = append(c.posts, p)
	return p, nil
}

func (c *memoryChannel) SetUserAccess(_ context.Context, user User, access Access) error {
	c.area.gw.mu.Lock()
	defer c.area.gw.mu.Unlock()
	if access == AccessInherit {
		delete(c.userAccess, user.ID)
		return nil
	}
	c.userAccess[user.ID] = access
	return nil
}

func (c *memoryChannel) SetTagAccess(_ context.Context, tag Tag, access Access) error {
	c.area.gw.mu.Lock()
	defer c.area.gw.mu.Unlock()
	if access == AccessInherit {
		delete(c.tagAccess, tag)
		return nil
	}
	c.tagAccess[tag] = access
	return nil
}

func (c *memoryChannel) React(_ context.Context, _ string, _ string) error {
	c.area.gw.mu.Lock()
	defer c.area.gw.mu.Unlock()
	c.nacks++
	return nil
}

type memoryPosted struct {
	ch      *memoryChannel
	id      string
	text    string
	logIdx  int
	pinned  bool
	markers []string
}

func (p *memoryPosted) ID() string { return p.id }

func (p *memoryPosted) Edit(_ context.Context, text string) error {
	p.ch.area.gw.mu.Lock()
	defer p.ch.area.gw.mu.Unlock()
	p.text = text
	p.ch.log[p.logIdx].text = text
	return nil
}

func (p *memoryPosted) Delete(context.Context) error {
	p.ch.area.gw.mu.Lock()
	defer p.ch.area.gw.mu.Unlock()
	p.ch.log[p.logIdx].text = ""
	return nil
}

func (p *memoryPosted) Pin(context.Context) error {
	p.ch.area.gw.mu.Lock()
	defer p.ch.area.gw.mu.Unlock()
	p.pinned = true
	return nil
}

func (p *memoryPosted) AddMarker(_ context.Context, marker string) error {
	p.ch.area.gw.mu.Lock()
	defer p.ch.area.gw.mu.Unlock()
	p.markers = append(p.markers, marker)
	return nil
}
