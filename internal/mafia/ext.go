package mafia

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"mafia-game-bot/internal/gateway"
)

// Ext exposes the game engine as a bot extension: /mafia opens a lobby in
// the invoking chat, /mafia_roles explains the role distribution. At most
// one game runs per originating chat.
type Ext struct {
	gw      *gateway.Telegram
	cfg     Config
	isAdmin func(int64) bool
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*Game
}

// NewExt creates the extension. isAdmin gates /mafia_abort for users other
// than the game's creator.
func NewExt(gw *gateway.Telegram, cfg Config, isAdmin func(int64) bool, log zerolog.Logger) *Ext {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Ext{
		gw:       gw,
		cfg:      cfg,
		isAdmin:  isAdmin,
		log:      log,
		sessions: make(map[int64]*Game),
	}
}

func (e *Ext) Name() string { return "mafia" }

func (e *Ext) Setup(b *tele.Bot) error {
	b.Handle("/mafia", e.handleMafia)
	b.Handle("/mafia_roles", e.handleRoles)
	b.Handle("/mafia_abort", e.handleAbort)
	return nil
}

func (e *Ext) handleMafia(c tele.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	if chat.Type == tele.ChatPrivate {
		return c.Reply("Mafia is played in group chats. Ask me there!")
	}

	creator := gateway.User{ID: sender.ID, Name: displayName(sender)}

	e.mu.Lock()
	if _, running := e.sessions[chat.ID]; running {
		e.mu.Unlock()
		return c.Reply("A game is already running in this chat.")
	}
	g := NewGame(e.gw, e.gw.WrapChat(chat.ID, chat.Title), creator, e.cfg, e.log)
	e.sessions[chat.ID] = g
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			delete(e.sessions, chat.ID)
			e.mu.Unlock()
		}()
		if err := g.Run(context.Background()); err != nil {
			e.log.Error().Err(err).Str("game_id", g.ID).Msg("game ended with error")
		}
	}()
	return nil
}

func (e *Ext) handleRoles(c tele.Context) error {
	var b strings.Builder
	b.WriteString("Roles and their lottery weights:\n")
	for _, r := range AllRoles {
		b.WriteString("- " + r.String())
		switch {
		case r.Evil():
			b.WriteString(" (one per three players, up to three)")
		default:
			b.WriteString(" (weight " + strconv.Itoa(r.weight()) + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("If no townie rolls an active role, one becomes an Investigator.")
	return c.Reply(b.String())
}

func (e *Ext) handleAbort(c tele.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	e.mu.Lock()
	g := e.sessions[chat.ID]
	e.mu.Unlock()
	if g == nil {
		return c.Reply("No game is running in this chat.")
	}
	if g.Creator().ID != sender.ID && !e.isAdmin(sender.ID) {
		return c.Reply("Only the game's creator or an admin can abort it.")
	}

	e.log.Info().Str("game_id", g.ID).Int64("by", sender.ID).Msg("game aborted")
	g.Abort()
	return c.Reply("Game aborted.")
}

// Running reports whether a game is active in the given chat.
func (e *Ext) Running(chatID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[chatID]
	return ok
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
