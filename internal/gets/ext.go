package gets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// Ext exposes the tally as a bot extension.
type Ext struct {
	service *Service
	topSize int
}

// NewExt creates the extension.
func NewExt(service *Service, topSize int) *Ext {
	return &Ext{service: service, topSize: topSize}
}

func (e *Ext) Name() string { return "gets" }

func (e *Ext) Setup(b *tele.Bot) error {
	b.Handle("/get", e.handleGet)
	b.Handle("/gets_top", e.handleTop)
	return nil
}

func (e *Ext) handleGet(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	name := sender.Username
	if name == "" {
		name = sender.FirstName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := e.service.Claim(ctx, sender.ID, name)
	if err != nil {
		if errors.Is(err, ErrOnCooldown) {
			return c.Reply("Not so fast! Try again in a bit.")
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("get claim failed")
		return c.Reply("Something went wrong, try again later.")
	}
	return c.Reply(fmt.Sprintf("%s got it! That's %d.", name, count))
}

func (e *Ext) handleTop(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := e.service.Top(ctx, e.topSize)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard query failed")
		return c.Reply("Something went wrong, try again later.")
	}
	if len(entries) == 0 {
		return c.Reply("Nobody has any gets yet. Be the first with /get!")
	}

	var b strings.Builder
	b.WriteString("Top gets:\n")
	for i, entry := range entries {
		b.WriteString(fmt.Sprintf("%d. %s - %d\n", i+1, entry.Username, entry.Count))
	}
	return c.Reply(strings.TrimRight(b.String(), "\n"))
}
