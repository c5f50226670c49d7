package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"msgvault/internal/constants"
	"msgvault/internal/models"

	"github.com/joho/godotenv"
)

var (
	ErrMissingAPIKey   = models.ConfigError{Message: "missing API key (set MSGVAULT_API_KEY)"}
	ErrMissingDBPath   = models.ConfigError{Message: "missing database path (set DB_PATH)"}
	ErrMissingBotToken = models.ConfigError{Message: "missing Discord bot token (set DISCORD_BOT_TOKEN)"}
)

// LoadConfig builds the configuration from the environment. A .env file at
// envPath seeds variables that are not already set; a missing file is not an
// error, matching dotenv conventions.
func LoadConfig(envPath string) (*models.Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &models.Config{
		APIKey:   os.Getenv("MSGVAULT_API_KEY"),
		LogLevel: os.Getenv("LOG_LEVEL"),
		Server: models.ServerConfig{
			Port: envInt("PORT", constants.DefaultServerPort),
		},
		Database: models.DatabaseConfig{
			Path: os.Getenv("DB_PATH"),
		},
		Discord: models.DiscordConfig{
			BotToken: os.Getenv("DISCORD_BOT_TOKEN"),
		},
		Retry: models.RetryConfig{
			InitialBackoffMs: envInt("RETRY_INITIAL_BACKOFF_MS", constants.DefaultBackoffInitialMs),
			MaxBackoffMs:     envInt("RETRY_MAX_BACKOFF_MS", constants.DefaultBackoffMaxMs),
			MaxAttempts:      envInt("RETRY_MAX_ATTEMPTS", constants.DefaultMaxAttempts),
		},
		Tracing: models.TracingConfig{
			Enabled:      envBool("MSGVAULT_TRACING_ENABLED", false),
			UseStdout:    envBool("MSGVAULT_TRACING_STDOUT", true),
			OTLPEndpoint: os.Getenv("MSGVAULT_TRACING_OTLP_ENDPOINT"),
			SampleRate:   envFloat("MSGVAULT_TRACING_SAMPLE_RATE", 0.1),
			Environment:  os.Getenv("MSGVAULT_ENV"),
		},
	}

	if guild := os.Getenv("DISCORD_GUILD_ID"); guild != "" {
		id, err := strconv.ParseInt(guild, 10, 64)
		if err != nil {
			return nil, models.ConfigError{Message: fmt.Sprintf("invalid DISCORD_GUILD_ID: %q", guild)}
		}
		cfg.Discord.GuildID = id
	}

	channelIDs, err := ParseChannelIDs(os.Getenv("DISCORD_CHANNEL_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.Discord.ChannelIDs = channelIDs

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseChannelIDs parses the comma-separated channel allow-list. Empty input
// yields a nil slice, which means no channel restriction.
func ParseChannelIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, models.ConfigError{Message: fmt.Sprintf("invalid channel ID in DISCORD_CHANNEL_IDS: %q", part)}
		}
		if seen[id] {
			return nil, models.ConfigError{Message: fmt.Sprintf("duplicate channel ID in DISCORD_CHANNEL_IDS: %d", id)}
		}

		seen[id] = true
		ids = append(ids, id)
	}

	return ids, nil
}

func validate(c *models.Config) error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Discord.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("invalid PORT: %d", c.Server.Port)}
	}

	// Production deployments must not run with a placeholder secret.
	if os.Getenv("MSGVAULT_ENV") == "production" {
		if len(c.APIKey) < 32 {
			return models.ConfigError{Message: "API key must be at least 32 characters long in production"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	}

	return nil
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}
