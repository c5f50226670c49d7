package service

import (
	"context"
	"time"

	"msgvault/internal/errors"
	"msgvault/internal/metrics"
	"msgvault/internal/models"

	"github.com/sirupsen/logrus"
)

// MessageReader is the storage surface the query path reads through.
type MessageReader interface {
	GetMessage(ctx context.Context, messageID string) (*models.MessageRecord, error)
	ListMessages(ctx context.Context, q models.ListQuery) ([]models.MessageRecord, error)
}

// QueryEngine serves the read API over the store. Pagination is cursor
// based: pages are ordered by (created_at, message_id) ascending and the
// cursor is the last message id of the previous page, so rows written
// between page fetches before the cursor position never shift results.
type QueryEngine struct {
	reader MessageReader
	logger *logrus.Logger
}

func NewQueryEngine(reader MessageReader, logger *logrus.Logger) *QueryEngine {
	return &QueryEngine{
		reader: reader,
		logger: logger,
	}
}

// List returns one page of messages matching the query. An inverted time
// range is a valid query with an empty result, not an error.
func (e *QueryEngine) List(ctx context.Context, q models.ListQuery) (*models.MessagePage, error) {
	page := &models.MessagePage{
		Data:       []models.MessageRecord{},
		Pagination: models.Pagination{Limit: q.Limit},
	}

	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return page, nil
	}

	start := time.Now()

	// Fetch one row past the limit; its presence means another page exists.
	probe := q
	probe.Limit = q.Limit + 1

	records, err := e.reader.ListMessages(ctx, probe)
	if err != nil {
		return nil, errors.NewDatabaseError("list messages", err)
	}

	if len(records) > q.Limit {
		records = records[:q.Limit]
		cursor := records[len(records)-1].MessageID
		page.Pagination.NextCursor = &cursor
	}
	if len(records) > 0 {
		page.Data = records
	}

	metrics.RecordTimer("query_list_duration", time.Since(start), nil, "List query latency")
	metrics.IncrementCounter("query_list_requests", nil, "List queries served")

	e.logger.WithFields(logrus.Fields{
		"guild_id":   q.GuildID,
		"channel_id": q.ChannelID,
		"returned":   len(records),
		"has_more":   page.Pagination.NextCursor != nil,
	}).Debug("Listed messages")

	return page, nil
}

// Get returns a single message by id, including soft-deleted tombstones.
func (e *QueryEngine) Get(ctx context.Context, messageID string) (*models.MessageRecord, error) {
	record, err := e.reader.GetMessage(ctx, messageID)
	if err != nil {
		return nil, errors.NewDatabaseError("get message", err)
	}
	if record == nil {
		return nil, errors.NewNotFoundError("message", messageID)
	}

	metrics.IncrementCounter("query_get_requests", nil, "Single message lookups served")
	return record, nil
}
