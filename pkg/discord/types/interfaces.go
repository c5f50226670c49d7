package types

import (
	"context"
)

// HistorySource fetches channel metadata and pages of channel history from
// the REST API. Message results are ordered oldest-first; afterID of zero
// starts at the beginning of the channel.
type HistorySource interface {
	GetChannel(ctx context.Context, channelID int64) (*Channel, error)
	GetChannelMessages(ctx context.Context, channelID int64, afterID string, limit int) ([]Message, error)
}

// EventHandler receives gateway dispatches. Implementations must isolate
// their own failures; a handler error never tears down the connection.
type EventHandler interface {
	OnMessageCreated(ctx context.Context, msg *Message)
	OnMessageUpdated(ctx context.Context, msg *Message)
	OnMessageDeleted(ctx context.Context, del *MessageDelete)
}

// Gateway is the long-lived event stream connection. Connect must complete
// before Run; SelfID is valid only after Connect has returned.
type Gateway interface {
	Connect(ctx context.Context) error
	Run(ctx context.Context) error
	Close() error
	SelfID() int64
}
