// Package main is the entry point for the Mafia game bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mafia-game-bot/internal/bot"
	"mafia-game-bot/internal/config"
	"mafia-game-bot/internal/ext"
	"mafia-game-bot/internal/gateway"
	"mafia-game-bot/internal/gets"
	"mafia-game-bot/internal/mafia"
	"mafia-game-bot/internal/pkg/db"
	"mafia-game-bot/internal/pkg/lock"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Initialize bot
	telegramBot, err := bot.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Initialize the gets tally store
	getsRepo := gets.NewRepository(dbPool.Pool)
	if err := getsRepo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	log.Info().Msg("Database migrations completed")

	getsService := gets.NewService(
		getsRepo,
		lock.NewUserLock(),
		time.Duration(cfg.Gets.CooldownSeconds)*time.Second,
	)

	// Initialize the game gateway over the arena chat pool
	gw := gateway.NewTelegram(telegramBot.Telebot(), cfg.Mafia.ArenaChats, log.Logger)

	mafiaCfg := mafia.Config{
		MinPlayers:     cfg.Mafia.MinPlayers,
		NightTime:      time.Duration(cfg.Mafia.NightSeconds) * time.Second,
		TutorialTime:   time.Duration(cfg.Mafia.TutorialSeconds) * time.Second,
		DiscussionTime: time.Duration(cfg.Mafia.DiscussionSeconds) * time.Second,
		VotingTime:     time.Duration(cfg.Mafia.VotingSeconds) * time.Second,
		DefenseTime:    time.Duration(cfg.Mafia.DefenseSeconds) * time.Second,
		JudgementTime:  time.Duration(cfg.Mafia.JudgementSeconds) * time.Second,
		LastWordsTime:  time.Duration(cfg.Mafia.LastWordsSeconds) * time.Second,
		GraceTime:      time.Duration(cfg.Mafia.GraceSeconds) * time.Second,
	}

	// Register extensions
	registry := ext.NewRegistry()

	if err := registry.Register(mafia.NewExt(gw, mafiaCfg, cfg.IsAdmin, log.Logger)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register mafia extension")
	}
	if err := registry.Register(gets.NewExt(getsService, cfg.Gets.TopSize)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register gets extension")
	}

	log.Info().
		Int("extension_count", registry.Count()).
		Strs("extensions", registry.Names()).
		Msg("Extensions registered")

	if err := telegramBot.LoadExtensions(registry); err != nil {
		log.Fatal().Err(err).Msg("Failed to load extensions")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}
