// Package bot provides the Telegram bot initialization, middleware and
// extension loading.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"mafia-game-bot/internal/config"
	"mafia-game-bot/internal/ext"
)

// Bot wraps the telebot instance with application middleware. Feature
// modules are attached through the extension registry, not hardcoded
// here.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config
}

// New creates the bot and installs the global middleware. Extensions are
// loaded separately with LoadExtensions, after their dependencies (like
// the gateway adapter) have been wired onto the telebot instance.
func New(cfg *config.Config) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{bot: teleBot, cfg: cfg}

	// Whitelist middleware - check if chat is allowed
	b.bot.Use(WhitelistMiddleware(cfg))

	// Logging middleware
	b.bot.Use(LoggingMiddleware())

	// Recovery middleware - a panicking handler must not kill the poller
	b.bot.Use(RecoveryMiddleware())

	return b, nil
}

// LoadExtensions binds every registered extension's handlers.
func (b *Bot) LoadExtensions(registry *ext.Registry) error {
	if err := registry.SetupAll(b.bot); err != nil {
		return err
	}
	log.Info().Strs("extensions", registry.Names()).Msg("Extensions loaded")
	return nil
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// Telebot returns the underlying telebot instance, for wiring components
// that register their own low-level handlers (the gateway adapter).
func (b *Bot) Telebot() *tele.Bot {
	return b.bot
}
