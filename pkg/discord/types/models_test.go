package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnowflake(t *testing.T) {
	assert.Equal(t, int64(175928847299117063), ParseSnowflake("175928847299117063"))
	assert.Equal(t, int64(0), ParseSnowflake(""))
	assert.Equal(t, int64(0), ParseSnowflake("not-a-number"))
	assert.Equal(t, int64(0), ParseSnowflake("-5"))
}

func TestSnowflakeTime(t *testing.T) {
	// Known example: 175928847299117063 encodes 2016-04-30 11:18:25.796 UTC.
	ts := SnowflakeTime("175928847299117063")
	assert.Equal(t, time.Date(2016, 4, 30, 11, 18, 25, int(796*time.Millisecond), time.UTC), ts)

	assert.True(t, SnowflakeTime("garbage").IsZero())
}

func TestMessageDecoding(t *testing.T) {
	payload := `{
		"id": "100",
		"channel_id": "20",
		"guild_id": "10",
		"author": {"id": "30", "username": "alice", "bot": false},
		"content": "hello",
		"timestamp": "2024-06-01T12:00:00.000000+00:00",
		"edited_timestamp": null,
		"attachments": [{"id": "1", "filename": "pic.png", "size": 1024}],
		"embeds": []
	}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))

	assert.Equal(t, "100", msg.ID)
	assert.Equal(t, "10", msg.GuildID)
	assert.Equal(t, "alice", msg.Author.Username)
	assert.Nil(t, msg.EditedTimestamp)
	assert.Len(t, msg.Attachments, 1)
	assert.True(t, msg.Timestamp.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestMessageEditedTimestamp(t *testing.T) {
	payload := `{"id":"100","channel_id":"20","timestamp":"2024-06-01T12:00:00Z","edited_timestamp":"2024-06-01T12:05:00Z"}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	require.NotNil(t, msg.EditedTimestamp)
	assert.True(t, msg.EditedTimestamp.Equal(time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC)))
}
