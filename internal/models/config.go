package models

// Config holds the application configuration, sourced from the environment
// (optionally seeded from a .env file).
type Config struct {
	APIKey   string         `json:"api_key"`
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Discord  DiscordConfig  `json:"discord"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"log_level"`
}

// ServerConfig holds HTTP server related configuration
type ServerConfig struct {
	Port int `json:"port"`
}

// DatabaseConfig holds database related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// DiscordConfig holds event source related configuration.
// GuildID of zero means no guild restriction; an empty ChannelIDs slice
// means no channel allow-list.
type DiscordConfig struct {
	BotToken   string  `json:"-"`
	GuildID    int64   `json:"guild_id"`
	ChannelIDs []int64 `json:"channel_ids"`
}

// RetryConfig holds retry related configuration
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry related configuration
type TracingConfig struct {
	Enabled      bool    `json:"enabled"`
	UseStdout    bool    `json:"use_stdout"`
	OTLPEndpoint string  `json:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate"`
	Environment  string  `json:"environment"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
