// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Mafia     MafiaConfig     `mapstructure:"mafia"`
	Gets      GetsConfig      `mapstructure:"gets"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// MafiaConfig holds the game engine configuration. ArenaChats is the pool
// of pre-provisioned forum supergroups that host game areas; the bot must
// be an administrator in each of them.
type MafiaConfig struct {
	ArenaChats []int64 `mapstructure:"arena_chats"`
	MinPlayers int     `mapstructure:"min_players"`

	NightSeconds      int `mapstructure:"night_seconds"`
	TutorialSeconds   int `mapstructure:"tutorial_seconds"`
	DiscussionSeconds int `mapstructure:"discussion_seconds"`
	VotingSeconds     int `mapstructure:"voting_seconds"`
	DefenseSeconds    int `mapstructure:"defense_seconds"`
	JudgementSeconds  int `mapstructure:"judgement_seconds"`
	LastWordsSeconds  int `mapstructure:"last_words_seconds"`
	GraceSeconds      int `mapstructure:"grace_seconds"`
}

// GetsConfig holds the gets point-tally configuration.
type GetsConfig struct {
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
	TopSize         int `mapstructure:"top_size"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, MAFIA_MIN_PLAYERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mafiabot")
	v.SetDefault("database.name", "mafiabot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Game defaults
	v.SetDefault("mafia.min_players", 3)
	v.SetDefault("mafia.night_seconds", 36)
	v.SetDefault("mafia.tutorial_seconds", 15)
	v.SetDefault("mafia.discussion_seconds", 45)
	v.SetDefault("mafia.voting_seconds", 30)
	v.SetDefault("mafia.defense_seconds", 20)
	v.SetDefault("mafia.judgement_seconds", 20)
	v.SetDefault("mafia.last_words_seconds", 5)
	v.SetDefault("mafia.grace_seconds", 15)

	// Gets defaults
	v.SetDefault("gets.cooldown_seconds", 60)
	v.SetDefault("gets.top_size", 10)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist. Arena chats are
// always allowed, since the game engine operates inside them.
func (c *Config) IsChatAllowed(chatID int64) bool {
	for _, id := range c.Mafia.ArenaChats {
		if id == chatID {
			return true
		}
	}
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
