package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// DiscordEpoch is the first second of 2015, the origin of snowflake
// timestamps.
const DiscordEpoch int64 = 1420070400000

// User is the author block of a message payload.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

// Attachment is carried only for counting; the files themselves are not
// mirrored.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Channel is the REST form of a channel object. GuildID is empty for DM
// channels.
type Channel struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

// Message is the wire form of a channel message, shared by the REST history
// endpoint and the gateway MESSAGE_CREATE / MESSAGE_UPDATE dispatches.
// Raw preserves the exact payload bytes for forensic storage.
type Message struct {
	ID              string          `json:"id"`
	ChannelID       string          `json:"channel_id"`
	GuildID         string          `json:"guild_id"`
	Author          User            `json:"author"`
	Content         string          `json:"content"`
	Timestamp       time.Time       `json:"timestamp"`
	EditedTimestamp *time.Time      `json:"edited_timestamp"`
	Attachments     []Attachment    `json:"attachments"`
	Embeds          []Embed         `json:"embeds"`
	Raw             json.RawMessage `json:"-"`
}

// MessageDelete is the gateway MESSAGE_DELETE payload: identity and scope
// only.
type MessageDelete struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
}

// ParseSnowflake converts a snowflake id string to its numeric form.
// Malformed ids parse to zero.
func ParseSnowflake(id string) int64 {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0
	}
	return int64(n)
}

// SnowflakeTime extracts the creation timestamp encoded in a snowflake id.
// Delete events carry no timestamps, so this is the only way to recover
// created_at for a tombstone.
func SnowflakeTime(id string) time.Time {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}
	}
	ms := int64(n>>22) + DiscordEpoch
	return time.UnixMilli(ms).UTC()
}
