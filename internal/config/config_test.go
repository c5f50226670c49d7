package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MSGVAULT_API_KEY", "test-api-key-value")
	t.Setenv("DB_PATH", "/tmp/msgvault-test.db")
	t.Setenv("DISCORD_BOT_TOKEN", "bot-token-value")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "test-api-key-value", cfg.APIKey)
	assert.Equal(t, "/tmp/msgvault-test.db", cfg.Database.Path)
	assert.Equal(t, "bot-token-value", cfg.Discord.BotToken)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Zero(t, cfg.Discord.GuildID)
	assert.Nil(t, cfg.Discord.ChannelIDs)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "missing api key", unset: "MSGVAULT_API_KEY"},
		{name: "missing db path", unset: "DB_PATH"},
		{name: "missing bot token", unset: "DISCORD_BOT_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigScope(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_GUILD_ID", "123456789")
	t.Setenv("DISCORD_CHANNEL_IDS", "100, 200,300")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, int64(123456789), cfg.Discord.GuildID)
	assert.Equal(t, []int64{100, 200, 300}, cfg.Discord.ChannelIDs)
}

func TestLoadConfigInvalidScope(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_GUILD_ID", "not-a-number")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "70000")

	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigEnvFile(t *testing.T) {
	t.Setenv("MSGVAULT_API_KEY", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("DISCORD_BOT_TOKEN", "")
	// godotenv never overrides variables already set, so these must be
	// cleared above for the file values to land.
	os.Unsetenv("MSGVAULT_API_KEY")
	os.Unsetenv("DB_PATH")
	os.Unsetenv("DISCORD_BOT_TOKEN")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "MSGVAULT_API_KEY=from-file\nDB_PATH=/tmp/from-file.db\nDISCORD_BOT_TOKEN=file-token\nPORT=9090\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0600))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigMissingEnvFileIsOK(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
	assert.Equal(t, "test-api-key-value", cfg.APIKey)
}

func TestParseChannelIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "whitespace only", input: "  ", want: nil},
		{name: "single", input: "42", want: []int64{42}},
		{name: "multiple with spaces", input: "1, 2 ,3", want: []int64{1, 2, 3}},
		{name: "trailing comma", input: "1,2,", want: []int64{1, 2}},
		{name: "non-numeric", input: "1,abc", wantErr: true},
		{name: "duplicate", input: "1,2,1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannelIDs(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductionModeRequiresStrongKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MSGVAULT_ENV", "production")
	t.Setenv("MSGVAULT_API_KEY", "short")

	_, err := LoadConfig("")
	assert.Error(t, err)

	t.Setenv("MSGVAULT_API_KEY", "a-long-production-grade-api-key-value-12345")
	_, err = LoadConfig("")
	assert.NoError(t, err)
}
