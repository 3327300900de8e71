package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

// Telegram adapts the gateway contract onto Telegram. Bots cannot create
// group chats, so isolated areas are leased from a configured pool of
// pre-provisioned forum supergroups; channels are forum topics inside the
// leased chat. Telegram has no per-topic permission overwrites, so posting
// rights are enforced by the adapter itself: it tracks an access table and
// deletes posts from members who are not allowed to speak.
type Telegram struct {
	bot    *tele.Bot
	broker *Broker
	log    zerolog.Logger

	mu    sync.Mutex
	free  []int64
	areas map[int64]*teleArea
	// toggled tracks marker presses per message/user/marker so that a
	// second press reads as removal.
	toggled map[string]bool
}

// NewTelegram wires the adapter into a telebot instance. arenaChats is the
// pool of forum supergroup IDs available for games; the bot must be an
// administrator in each.
func NewTelegram(bot *tele.Bot, arenaChats []int64, log zerolog.Logger) *Telegram {
	t := &Telegram{
		bot:    bot,
		broker: NewBroker(),
		log:    log,
		free:   append([]int64(nil), arenaChats...),
		areas:  make(map[int64]*teleArea),
	}
	bot.Handle(tele.OnText, t.onText)
	bot.Handle(tele.OnUserJoined, t.onUserJoined)
	bot.Handle(tele.OnUserLeft, t.onUserLeft)
	bot.Handle(tele.OnCallback, t.onCallback)
	return t
}

func (t *Telegram) Subscribe(pred func(Event) bool) *Subscription {
	return t.broker.Subscribe(pred)
}

// Publish forwards an externally observed event into the broker. The bot
// host uses this for events it intercepts before the adapter (e.g. lobby
// chat messages outside any arena).
func (t *Telegram) Publish(ev Event) { t.broker.Publish(ev) }

// WrapChat exposes an ordinary chat the bot is in as a Channel, so flows
// that predate a game area (the lobby, final summaries) can use the same
// send/edit/marker surface. Access control is out of the adapter's hands
// in such chats, so the access setters are no-ops.
func (t *Telegram) WrapChat(chatID int64, name string) Channel {
	return &teleOutsideChannel{gw: t, chat: &tele.Chat{ID: chatID}, name: name}
}

type teleOutsideChannel struct {
	gw   *Telegram
	chat *tele.Chat
	name string
}

func (c *teleOutsideChannel) ID() string   { return strconv.FormatInt(c.chat.ID, 10) }
func (c *teleOutsideChannel) Name() string { return c.name }

func (c *teleOutsideChannel) Send(_ context.Context, text string) (Posted, error) {
	msg, err := c.gw.bot.Send(c.chat, text)
	if err != nil {
		return nil, fmt.Errorf("send to chat %d failed: %w", c.chat.ID, err)
	}
	return &teleOutsidePosted{gw: c.gw, msg: msg}, nil
}

func (c *teleOutsideChannel) SetUserAccess(context.Context, User, Access) error { return nil }
func (c *teleOutsideChannel) SetTagAccess(context.Context, Tag, Access) error   { return nil }

func (c *teleOutsideChannel) React(_ context.Context, messageID string, marker string) error {
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("bad message id %q: %w", messageID, err)
	}
	_, err = c.gw.bot.Send(c.chat, marker, &tele.SendOptions{
		ReplyTo: &tele.Message{ID: id, Chat: c.chat},
	})
	return err
}

type teleOutsidePosted struct {
	gw      *Telegram
	msg     *tele.Message
	markers []tele.InlineButton
}

func (p *teleOutsidePosted) ID() string { return strconv.Itoa(p.msg.ID) }

func (p *teleOutsidePosted) Edit(_ context.Context, text string) error {
	msg, err := p.gw.bot.Edit(p.msg, text, p.markup())
	if err != nil {
		return err
	}
	p.msg = msg
	return nil
}

func (p *teleOutsidePosted) Delete(context.Context) error { return p.gw.bot.Delete(p.msg) }
func (p *teleOutsidePosted) Pin(context.Context) error    { return p.gw.bot.Pin(p.msg) }

func (p *teleOutsidePosted) AddMarker(_ context.Context, marker string) error {
	p.markers = append(p.markers, tele.InlineButton{Unique: marker, Text: marker, Data: marker})
	msg, err := p.gw.bot.EditReplyMarkup(p.msg, p.markup())
	if err != nil {
		return err
	}
	p.msg = msg
	return nil
}

func (p *teleOutsidePosted) markup() *tele.ReplyMarkup {
	if len(p.markers) == 0 {
		return &tele.ReplyMarkup{}
	}
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{p.markers}}
}

func (t *Telegram) CreateArea(ctx context.Context, name string) (Area, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.free) == 0 {
		return nil, fmt.Errorf("no arena chat available for %q", name)
	}
	chatID := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	a := &teleArea{
		gw:       t,
		chat:     &tele.Chat{ID: chatID},
		name:     name,
		members:  make(map[int64]User),
		tags:     make(map[int64]map[Tag]bool),
		channels: make(map[int]*teleChannel),
	}
	if err := t.bot.SetGroupTitle(a.chat, name); err != nil {
		t.free = append(t.free, chatID)
		return nil, fmt.Errorf("failed to claim arena chat: %w", err)
	}
	t.areas[chatID] = a
	return a, nil
}

func (t *Telegram) areaFor(chat *tele.Chat) *teleArea {
	if chat == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.areas[chat.ID]
}

func (t *Telegram) onText(c tele.Context) error {
	m := c.Message()
	if m == nil || c.Sender() == nil {
		return nil
	}
	author := User{ID: c.Sender().ID, Name: senderName(c.Sender())}

	if c.Chat().Type == tele.ChatPrivate {
		t.broker.Publish(Event{
			Kind:    EventMessage,
			Message: &Message{ID: strconv.Itoa(m.ID), Author: author, Text: m.Text, Direct: true},
		})
		return nil
	}

	area := t.areaFor(c.Chat())
	if area == nil {
		return nil
	}
	ch := area.channel(m.ThreadID)
	if ch == nil {
		return nil
	}
	if area.effectiveAccess(ch, author) != AccessAllow {
		// no native per-topic mute; moderate instead
		if err := t.bot.Delete(m); err != nil {
			t.log.Debug().Err(err).Msg("could not delete disallowed post")
		}
		return nil
	}
	t.broker.Publish(Event{
		Kind:   EventMessage,
		AreaID: area.ID(),
		Message: &Message{
			ID:      strconv.Itoa(m.ID),
			Channel: ch.id,
			Author:  author,
			Text:    m.Text,
		},
	})
	return nil
}

func (t *Telegram) onUserJoined(c tele.Context) error {
	area := t.areaFor(c.Chat())
	if area == nil || c.Message() == nil {
		return nil
	}
	for _, joined := range c.Message().UsersJoined {
		u := User{ID: joined.ID, Name: senderName(&joined)}
		area.gw.mu.Lock()
		area.members[u.ID] = u
		area.gw.mu.Unlock()
		t.broker.Publish(Event{Kind: EventMemberJoined, AreaID: area.ID(), Member: &u})
	}
	return nil
}

func (t *Telegram) onUserLeft(c tele.Context) error {
	area := t.areaFor(c.Chat())
	if area == nil || c.Message() == nil || c.Message().UserLeft == nil {
		return nil
	}
	left := c.Message().UserLeft
	u := User{ID: left.ID, Name: senderName(left)}
	area.gw.mu.Lock()
	delete(area.members, u.ID)
	area.gw.mu.Unlock()
	t.broker.Publish(Event{Kind: EventMemberLeft, AreaID: area.ID(), Member: &u})
	return nil
}

// onCallback translates marker-button presses into reaction events.
func (t *Telegram) onCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}
	defer func() {
		if err := c.Respond(&tele.CallbackResponse{}); err != nil {
			t.log.Debug().Err(err).Msg("callback respond failed")
		}
	}()

	area := t.areaFor(cb.Message.Chat)
	var areaID, chID string
	if area != nil {
		areaID = area.ID()
		if ch := area.channel(cb.Message.ThreadID); ch != nil {
			chID = ch.id
		}
	}
	user := User{ID: cb.Sender.ID, Name: senderName(cb.Sender)}
	msgID := strconv.Itoa(cb.Message.ID)
	marker := trimCallbackData(cb.Data)

	t.mu.Lock()
	if t.toggled == nil {
		t.toggled = make(map[string]bool)
	}
	key := msgID + "/" + strconv.FormatInt(user.ID, 10) + "/" + marker
	removed := t.toggled[key]
	t.toggled[key] = !removed
	t.mu.Unlock()

	t.broker.Publish(Event{
		Kind:   EventReaction,
		AreaID: areaID,
		Reaction: &Reaction{
			MessageID: msgID,
			Channel:   chID,
			User:      user,
			Marker:    marker,
			Removed:   removed,
		},
	})
	return nil
}

// trimCallbackData recovers the marker from telebot's packed callback
// data ("\f<unique>|<payload>").
func trimCallbackData(data string) string {
	if len(data) > 0 && data[0] == '\f' {
		data = data[1:]
	}
	if i := strings.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}
	return data
}

func senderName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

type teleArea struct {
	gw      *Telegram
	chat    *tele.Chat
	name    string
	deleted bool

	members  map[int64]User
	tags     map[int64]map[Tag]bool
	channels map[int]*teleChannel // thread ID -> channel
}

func (a *teleArea) ID() string   { return strconv.FormatInt(a.chat.ID, 10) }
func (a *teleArea) Name() string { return a.name }

func (a *teleArea) channel(threadID int) *teleChannel {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	return a.channels[threadID]
}

func (a *teleArea) CreateChannel(_ context.Context, name string, access Access) (Channel, error) {
	topic, err := a.gw.bot.CreateTopic(a.chat, &tele.Topic{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to create topic %q: %w", name, err)
	}
	c := &teleChannel{
		area:       a,
		id:         fmt.Sprintf("%d/%d", a.chat.ID, topic.ThreadID),
		thread:     topic.ThreadID,
		topic:      topic,
		name:       name,
		base:       access,
		userAccess: make(map[int64]Access),
		tagAccess:  make(map[Tag]Access),
	}
	a.gw.mu.Lock()
	a.channels[topic.ThreadID] = c
	a.gw.mu.Unlock()
	return c, nil
}

func (a *teleArea) Delete(context.Context) error {
	a.gw.mu.Lock()
	if a.deleted {
		a.gw.mu.Unlock()
		return fmt.Errorf("area %q is already deleted", a.name)
	}
	a.deleted = true
	channels := make([]*teleChannel, 0, len(a.channels))
	for _, c := range a.channels {
		channels = append(channels, c)
	}
	members := make([]User, 0, len(a.members))
	for _, u := range a.members {
		members = append(members, u)
	}
	a.gw.mu.Unlock()

	for _, c := range channels {
		if err := a.gw.bot.DeleteTopic(a.chat, c.topic); err != nil {
			a.gw.log.Debug().Err(err).Str("topic", c.name).Msg("topic teardown failed")
		}
	}
	// evict everyone so the arena chat can be reused for the next game
	for _, u := range members {
		member := &tele.ChatMember{User: &tele.User{ID: u.ID}}
		if err := a.gw.bot.Ban(a.chat, member); err != nil {
			a.gw.log.Debug().Err(err).Int64("user", u.ID).Msg("eviction failed")
			continue
		}
		if err := a.gw.bot.Unban(a.chat, &tele.User{ID: u.ID}); err != nil {
			a.gw.log.Debug().Err(err).Int64("user", u.ID).Msg("unban failed")
		}
	}

	a.gw.mu.Lock()
	delete(a.gw.areas, a.chat.ID)
	a.gw.free = append(a.gw.free, a.chat.ID)
	a.gw.mu.Unlock()
	return nil
}

func (a *teleArea) Members() []User {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	out := make([]User, 0, len(a.members))
	for _, u := range a.members {
		out = append(out, u)
	}
	return out
}

func (a *teleArea) HasMember(id int64) bool {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	_, ok := a.members[id]
	return ok
}

func (a *teleArea) AssignTag(_ context.Context, user User, tag Tag) error {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	if a.tags[user.ID] == nil {
		a.tags[user.ID] = make(map[Tag]bool)
	}
	a.tags[user.ID][tag] = true
	return nil
}

func (a *teleArea) RemoveTag(_ context.Context, user User, tag Tag) error {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	delete(a.tags[user.ID], tag)
	return nil
}

func (a *teleArea) InviteLink(context.Context) (string, error) {
	link, err := a.gw.bot.CreateInviteLink(a.chat, &tele.ChatInviteLink{})
	if err != nil {
		return "", fmt.Errorf("failed to create invite link: %w", err)
	}
	return link.InviteLink, nil
}

// effectiveAccess mirrors memoryChannel.effectiveAccess: user override,
// then strictest tag override, then everyone, then channel base.
func (a *teleArea) effectiveAccess(c *teleChannel, u User) Access {
	a.gw.mu.Lock()
	defer a.gw.mu.Unlock()
	if acc, ok := c.userAccess[u.ID]; ok && acc != AccessInherit {
		return acc
	}
	strictest := AccessInherit
	for tag := range a.tags[u.ID] {
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

type teleChannel struct {
	area   *teleArea
	id     string
	thread int
	topic  *tele.Topic
	name   string

	base       Access
	userAccess map[int64]Access
	tagAccess  map[Tag]Access
}

func (c *teleChannel) ID() string   { return c.id }
func (c *teleChannel) Name() string { return c.name }

func (c *teleChannel) Send(_ context.Context, text string) (Posted, error) {
	msg, err := c.area.gw.bot.Send(c.area.chat, text, &tele.SendOptions{ThreadID: c.thread})
	if err != nil {
		return nil, fmt.Errorf("send to %q failed: %w", c.name, err)
	}
	return &telePosted{ch: c, msg: msg}, nil
}

func (c *teleChannel) SetUserAccess(_ context.Context, user User, access Access) error {
	c.area.gw.mu.Lock()
	defer c.area.gw.mu.Unlock()
	if access == AccessInherit {
		delete(c.userAccess, user.ID)
		return nil
	}
	c.userAccess[user.ID] = access
	return nil
}

func (c *teleChannel) SetTagAccess(_ context.Context, tag Tag, access Access) error {
	c.area.gw.mu.Lock()
	defer c.area.gw.mu.Unlock()
	if access == AccessInherit {
		delete(c.tagAccess, tag)
		return nil
	}
	c.tagAccess[tag] = access
	return nil
}

func (c *teleChannel) React(_ context.Context, messageID string, marker string) error {
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("bad message id %q: %w", messageID, err)
	}
	// Telegram reactions are not exposed per-topic through the bot API we
	// target, so a nack is a short reply instead.
	_, err = c.area.gw.bot.Send(c.area.chat, marker, &tele.SendOptions{
		ThreadID: c.thread,
		ReplyTo:  &tele.Message{ID: id, Chat: c.area.chat},
	})
	return err
}

type telePosted struct {
	ch      *teleChannel
	msg     *tele.Message
	markers []tele.InlineButton
}

func (p *telePosted) ID() string { return strconv.Itoa(p.msg.ID) }

func (p *telePosted) Edit(_ context.Context, text string) error {
	msg, err := p.ch.area.gw.bot.Edit(p.msg, text)
	if err != nil {
		return err
	}
	p.msg = msg
	return nil
}

func (p *telePosted) Delete(context.Context) error {
	return p.ch.area.gw.bot.Delete(p.msg)
}

func (p *telePosted) Pin(context.Context) error {
	return p.ch.area.gw.bot.Pin(p.msg)
}

func (p *telePosted) AddMarker(_ context.Context, marker string) error {
	p.markers = append(p.markers, tele.InlineButton{
		Unique: marker,
		Text:   marker,
		Data:   marker,
	})
	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{p.markers}}
	msg, err := p.ch.area.gw.bot.EditReplyMarkup(p.msg, markup)
	if err != nil {
		return err
	}
	p.msg = msg
	return nil
}
