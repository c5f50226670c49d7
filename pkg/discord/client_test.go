package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"msgvault/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		BaseURL:           server.URL,
		BotToken:          "test-token",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
	})
}

func TestGetChannelMessages(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")

		// Newest-first, as the API serves them.
		fmt.Fprint(w, `[
			{"id":"300","channel_id":"20","author":{"id":"30","username":"alice"},"content":"third","timestamp":"2024-06-01T12:00:03Z"},
			{"id":"100","channel_id":"20","author":{"id":"30","username":"alice"},"content":"first","timestamp":"2024-06-01T12:00:01Z"},
			{"id":"200","channel_id":"20","author":{"id":"30","username":"alice"},"content":"second","timestamp":"2024-06-01T12:00:02Z"}
		]`)
	})

	messages, err := client.GetChannelMessages(context.Background(), 20, "0", 50)
	require.NoError(t, err)

	assert.Equal(t, "/channels/20/messages", gotPath)
	assert.Equal(t, "after=0&limit=50", gotQuery)
	assert.Equal(t, "Bot test-token", gotAuth)

	// Sorted oldest-first on the way out.
	require.Len(t, messages, 3)
	assert.Equal(t, "100", messages[0].ID)
	assert.Equal(t, "200", messages[1].ID)
	assert.Equal(t, "300", messages[2].ID)
}

func TestGetChannelMessagesPreservesRawPayload(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"100","channel_id":"20","author":{"id":"30","username":"alice"},"content":"hi","timestamp":"2024-06-01T12:00:00Z","custom_field":"kept"}]`)
	})

	messages, err := client.GetChannelMessages(context.Background(), 20, "0", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	// Fields the struct does not model survive in the raw bytes.
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(messages[0].Raw, &raw))
	assert.Equal(t, "kept", raw["custom_field"])
}

func TestGetChannelMessagesClampsLimit(t *testing.T) {
	var gotQuery string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[]`)
	})

	_, err := client.GetChannelMessages(context.Background(), 20, "", 1000)
	require.NoError(t, err)
	assert.Equal(t, "after=0&limit=100", gotQuery)
}

func TestGetChannelMessagesErrorStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"Missing Access","code":50001}`)
	})

	_, err := client.GetChannelMessages(context.Background(), 20, "0", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGetRetriesAfterRateLimit(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[]`)
	})

	messages, err := client.GetChannelMessages(context.Background(), 20, "0", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetChannel(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"id":"20","guild_id":"7","name":"general"}`)
	})

	channel, err := client.GetChannel(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, "/channels/20", gotPath)
	assert.Equal(t, "20", channel.ID)
	assert.Equal(t, "7", channel.GuildID)
	assert.Equal(t, "general", channel.Name)
}

func TestGetChannelOmitsGuildForDM(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"20","recipients":[{"id":"30"}]}`)
	})

	channel, err := client.GetChannel(context.Background(), 20)
	require.NoError(t, err)
	assert.Empty(t, channel.GuildID)
}

func TestGetGatewayURL(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gateway/bot", r.URL.Path)
		fmt.Fprint(w, `{"url":"wss://gateway.example.test","shards":1}`)
	})

	url, err := client.GetGatewayURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://gateway.example.test", url)
}

func TestGetGatewayURLMissing(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	_, err := client.GetGatewayURL(context.Background())
	assert.Error(t, err)
}

func TestClientBreakerOpensOnRepeatedFailures(t *testing.T) {
	var calls int64
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := client.GetGatewayURL(context.Background())
		require.Error(t, err)
	}
	require.EqualValues(t, 5, atomic.LoadInt64(&calls))

	// Breaker is open now; the request never reaches the server.
	_, err := client.GetGatewayURL(context.Background())
	assert.True(t, circuitbreaker.IsOpenError(err))
	assert.EqualValues(t, 5, atomic.LoadInt64(&calls))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Second, parseRetryAfter(""))
	assert.Equal(t, time.Second, parseRetryAfter("garbage"))
	assert.Equal(t, 2500*time.Millisecond, parseRetryAfter("2.5"))
}
