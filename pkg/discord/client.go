package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"msgvault/pkg/circuitbreaker"
	"msgvault/pkg/discord/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultAPIBaseURL = "https://discord.com/api/v10"

// MaxHistoryPageSize is the largest page the messages endpoint will return.
const MaxHistoryPageSize = 100

// ClientConfig configures the REST client.
type ClientConfig struct {
	BaseURL           string
	BotToken          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the Discord REST API. A token-bucket limiter keeps the
// client under the platform's global rate limit; 429 responses are honored
// via Retry-After on top of that, and a circuit breaker sheds load when
// the API fails repeatedly.
type Client struct {
	baseURL  string
	botToken string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *circuitbreaker.Breaker
	logger   *logrus.Logger
}

func NewClient(cfg ClientConfig) *Client {
	return NewClientWithLogger(cfg, nil)
}

func NewClientWithLogger(cfg ClientConfig, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 40
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		botToken: cfg.BotToken,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:  circuitbreaker.New(circuitbreaker.Config{Name: "discord-api"}, logger),
		logger:   logger,
	}
}

// GetChannelMessages fetches one page of channel history after the given id,
// oldest-first. An afterID of "0" (or empty) starts at the channel's first
// message.
func (c *Client) GetChannelMessages(ctx context.Context, channelID int64, afterID string, limit int) ([]types.Message, error) {
	if limit <= 0 || limit > MaxHistoryPageSize {
		limit = MaxHistoryPageSize
	}
	if afterID == "" {
		afterID = "0"
	}

	url := fmt.Sprintf("%s/channels/%d/messages?after=%s&limit=%d", c.baseURL, channelID, afterID, limit)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	// Decode elements individually so each message keeps its raw payload
	// bytes alongside the parsed form.
	var rawMessages []json.RawMessage
	if err := json.Unmarshal(body, &rawMessages); err != nil {
		return nil, fmt.Errorf("failed to decode message page: %w", err)
	}

	messages := make([]types.Message, 0, len(rawMessages))
	for _, raw := range rawMessages {
		var msg types.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		msg.Raw = raw
		messages = append(messages, msg)
	}

	// The API returns pages newest-first; the walker wants oldest-first.
	sort.Slice(messages, func(i, j int) bool {
		return types.ParseSnowflake(messages[i].ID) < types.ParseSnowflake(messages[j].ID)
	})

	return messages, nil
}

// GetChannel fetches a channel object. History payloads omit guild_id, so
// the backfill path uses this to resolve a channel's owning guild.
func (c *Client) GetChannel(ctx context.Context, channelID int64) (*types.Channel, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/channels/%d", c.baseURL, channelID))
	if err != nil {
		return nil, err
	}

	var channel types.Channel
	if err := json.Unmarshal(body, &channel); err != nil {
		return nil, fmt.Errorf("failed to decode channel: %w", err)
	}
	return &channel, nil
}

// GetGatewayURL resolves the websocket URL to dial for the gateway.
func (c *Client) GetGatewayURL(ctx context.Context) (string, error) {
	body, err := c.get(ctx, c.baseURL+"/gateway/bot")
	if err != nil {
		return "", err
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("gateway response missing url")
	}

	return payload.URL, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		b, err := c.doGet(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

func (c *Client) doGet(ctx context.Context, url string) ([]byte, error) {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bot "+c.botToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			c.logger.WithField("retry_after", retryAfter).Warn("Rate limited by Discord API")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfter):
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		return body, nil
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return time.Second
}
