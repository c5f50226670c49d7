package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"msgvault/pkg/discord/types"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Gateway intents
const (
	IntentGuilds         = 1 << 0
	IntentGuildMessages  = 1 << 9
	IntentMessageContent = 1 << 15
)

// DefaultIntents covers everything the ingestor needs: channel structure,
// message events and message bodies.
const DefaultIntents = IntentGuilds | IntentGuildMessages | IntentMessageContent

const (
	gatewayWriteTimeout     = 5 * time.Second
	gatewayMaxReconnectWait = 60 * time.Second
	gatewayMessageSizeLimit = 4 << 20
)

// GatewayConfig configures the long-lived event stream connection.
type GatewayConfig struct {
	BotToken string
	Intents  int
	// URLFunc resolves the websocket URL to dial; usually Client.GetGatewayURL.
	URLFunc func(ctx context.Context) (string, error)
}

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// GatewayClient maintains the websocket connection to the event stream. It
// dials, identifies, heartbeats and dispatches events to a registered
// handler; on connection loss it reconnects with exponential backoff and
// re-identifies. Events are dispatched one at a time in delivery order.
type GatewayClient struct {
	cfg     GatewayConfig
	handler types.EventHandler
	logger  *logrus.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	selfID   int64
	seq      int64
	interval time.Duration
}

func NewGateway(cfg GatewayConfig, logger *logrus.Logger) *GatewayClient {
	if cfg.Intents == 0 {
		cfg.Intents = DefaultIntents
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &GatewayClient{
		cfg:    cfg,
		logger: logger,
	}
}

// RegisterHandler sets the dispatch target. It must be called before Run;
// the handler may itself hold a reference back to this client for SelfID.
func (g *GatewayClient) RegisterHandler(handler types.EventHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = handler
}

// SelfID returns the connected bot user id; zero before Connect succeeds.
func (g *GatewayClient) SelfID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selfID
}

// Connect dials the gateway, performs the hello/identify handshake and
// waits for the READY dispatch. A failure here means the event source is
// unavailable.
func (g *GatewayClient) Connect(ctx context.Context) error {
	if g.cfg.URLFunc == nil {
		return fmt.Errorf("gateway URL resolver is not configured")
	}

	url, err := g.cfg.URLFunc(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve gateway URL: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, url+"?v=10&encoding=json", nil)
	if err != nil {
		return fmt.Errorf("failed to dial gateway: %w", err)
	}
	conn.SetReadLimit(gatewayMessageSizeLimit)

	if err := g.handshake(ctx, conn); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake failed")
		return err
	}

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	return nil
}

func (g *GatewayClient) handshake(ctx context.Context, conn *websocket.Conn) error {
	hello, err := g.read(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}

	var helloData struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return fmt.Errorf("failed to decode hello: %w", err)
	}

	g.mu.Lock()
	g.interval = time.Duration(helloData.HeartbeatInterval) * time.Millisecond
	g.mu.Unlock()

	identify := map[string]interface{}{
		"token":   g.cfg.BotToken,
		"intents": g.cfg.Intents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "msgvault",
			"device":  "msgvault",
		},
	}
	if err := g.write(ctx, conn, gatewayPayload{Op: opIdentify, D: mustMarshal(identify)}); err != nil {
		return fmt.Errorf("failed to identify: %w", err)
	}

	// The first dispatch after identify is READY; it carries our own
	// identity, which the ingestor needs for its self-loop guard.
	for {
		payload, err := g.read(ctx, conn)
		if err != nil {
			return fmt.Errorf("failed to read ready: %w", err)
		}
		if payload.Op != opDispatch {
			continue
		}
		if payload.T != "READY" {
			continue
		}

		var ready struct {
			User types.User `json:"user"`
		}
		if err := json.Unmarshal(payload.D, &ready); err != nil {
			return fmt.Errorf("failed to decode ready: %w", err)
		}

		g.mu.Lock()
		g.selfID = types.ParseSnowflake(ready.User.ID)
		if payload.S != nil {
			g.seq = *payload.S
		}
		g.mu.Unlock()

		g.logger.WithField("self_id", ready.User.ID).Info("Gateway connected")
		return nil
	}
}

// Run consumes the connection until ctx is cancelled, reconnecting on
// failure. Each dispatched event is handled before the next read so events
// on one connection stay in delivery order.
func (g *GatewayClient) Run(ctx context.Context) error {
	reconnectWait := time.Second

	for {
		err := g.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		g.logger.WithError(err).WithField("wait", reconnectWait).Warn("Gateway connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectWait):
		}

		reconnectWait *= 2
		if reconnectWait > gatewayMaxReconnectWait {
			reconnectWait = gatewayMaxReconnectWait
		}

		if err := g.Connect(ctx); err != nil {
			g.logger.WithError(err).Warn("Gateway reconnect failed")
			continue
		}
		reconnectWait = time.Second
	}
}

func (g *GatewayClient) consume(ctx context.Context) error {
	g.mu.Lock()
	conn := g.conn
	interval := g.interval
	g.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("gateway is not connected")
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go g.heartbeatLoop(heartbeatCtx, conn, interval)

	for {
		payload, err := g.read(ctx, conn)
		if err != nil {
			return err
		}

		if payload.S != nil {
			g.mu.Lock()
			g.seq = *payload.S
			g.mu.Unlock()
		}

		switch payload.Op {
		case opDispatch:
			g.dispatch(ctx, payload)
		case opHeartbeat:
			if err := g.sendHeartbeat(ctx, conn); err != nil {
				return err
			}
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway requested reconnect (op %d)", payload.Op)
		case opHeartbeatAck:
			// nothing to do
		}
	}
}

func (g *GatewayClient) dispatch(ctx context.Context, payload *gatewayPayload) {
	g.mu.Lock()
	handler := g.handler
	g.mu.Unlock()
	if handler == nil {
		return
	}

	switch payload.T {
	case "MESSAGE_CREATE", "MESSAGE_UPDATE":
		var msg types.Message
		if err := json.Unmarshal(payload.D, &msg); err != nil {
			g.logger.WithError(err).WithField("event", payload.T).Warn("Failed to decode message event")
			return
		}
		msg.Raw = payload.D

		if payload.T == "MESSAGE_CREATE" {
			handler.OnMessageCreated(ctx, &msg)
		} else {
			handler.OnMessageUpdated(ctx, &msg)
		}
	case "MESSAGE_DELETE":
		var del types.MessageDelete
		if err := json.Unmarshal(payload.D, &del); err != nil {
			g.logger.WithError(err).Warn("Failed to decode delete event")
			return
		}
		handler.OnMessageDeleted(ctx, &del)
	}
}

func (g *GatewayClient) heartbeatLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.sendHeartbeat(ctx, conn); err != nil {
				g.logger.WithError(err).Warn("Failed to send heartbeat")
				return
			}
		}
	}
}

func (g *GatewayClient) sendHeartbeat(ctx context.Context, conn *websocket.Conn) error {
	g.mu.Lock()
	seq := g.seq
	g.mu.Unlock()

	return g.write(ctx, conn, gatewayPayload{Op: opHeartbeat, D: mustMarshal(seq)})
}

func (g *GatewayClient) read(ctx context.Context, conn *websocket.Conn) (*gatewayPayload, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}

	var payload gatewayPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode gateway payload: %w", err)
	}

	return &payload, nil
}

func (g *GatewayClient) write(ctx context.Context, conn *websocket.Conn, payload gatewayPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway payload: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, gatewayWriteTimeout)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, data)
}

// Close shuts the connection down cleanly.
func (g *GatewayClient) Close() error {
	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close(websocket.StatusNormalClosure, "shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Marshalling fixed payload shapes cannot fail at runtime.
		panic(err)
	}
	return data
}
