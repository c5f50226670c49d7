package discord

import (
	"context"

	"msgvault/pkg/discord/types"
)

// History is a lazy oldest-first iterator over one channel's full message
// history. It pages through the REST API on demand; the caller can stop at
// any point and a fresh iterator restarts from the beginning, which keeps a
// restarted backfill idempotent.
type History struct {
	source    types.HistorySource
	channelID int64
	pageSize  int

	page    []types.Message
	pos     int
	afterID string
	done    bool
}

// NewHistory creates an iterator over channelID's history. pageSize is
// clamped by the source to the API maximum.
func NewHistory(source types.HistorySource, channelID int64, pageSize int) *History {
	return &History{
		source:    source,
		channelID: channelID,
		pageSize:  pageSize,
		afterID:   "0",
	}
}

// Next returns the next message in ascending id order, or (nil, nil) when
// the history at iterator creation time is exhausted.
func (h *History) Next(ctx context.Context) (*types.Message, error) {
	for h.pos >= len(h.page) {
		if h.done {
			return nil, nil
		}

		page, err := h.source.GetChannelMessages(ctx, h.channelID, h.afterID, h.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			h.done = true
			return nil, nil
		}

		h.page = page
		h.pos = 0
		h.afterID = page[len(page)-1].ID
	}

	msg := &h.page[h.pos]
	h.pos++
	return msg, nil
}
