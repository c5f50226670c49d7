package service

import (
	"context"

	"msgvault/internal/errors"
	"msgvault/internal/metrics"
	"msgvault/pkg/discord"
	"msgvault/pkg/discord/types"

	"github.com/sirupsen/logrus"
)

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	ChannelsWalked int
	ChannelsFailed int
	MessagesSeen   int
	MessagesAdded  int
	MessagesFailed int
}

// BackfillWalker pulls full channel history through the REST API and fills
// in any messages the store has never seen. Backfill only ever inserts:
// rows already written by the live stream, including tombstones, are left
// untouched. A failing channel is logged and skipped so one revoked channel
// cannot abort the rest of the run, and a failing write is logged and
// skipped so one bad message cannot drop the rest of its channel.
type BackfillWalker struct {
	source   types.HistorySource
	store    MessageStore
	guildID  int64
	pageSize int
	logger   *logrus.Logger
}

func NewBackfillWalker(source types.HistorySource, store MessageStore, guildID int64, logger *logrus.Logger) *BackfillWalker {
	return &BackfillWalker{
		source:   source,
		store:    store,
		guildID:  guildID,
		pageSize: discord.MaxHistoryPageSize,
		logger:   logger,
	}
}

// Run walks every configured channel oldest-first. It returns an error only
// when every channel failed or the context was cancelled; partial failures
// are reported in the result.
func (w *BackfillWalker) Run(ctx context.Context, channelIDs []int64) (*BackfillResult, error) {
	result := &BackfillResult{}

	var lastErr error
	for _, channelID := range channelIDs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		seen, added, failed, err := w.walkChannel(ctx, channelID)
		result.MessagesSeen += seen
		result.MessagesAdded += added
		result.MessagesFailed += failed

		if err != nil {
			lastErr = err
			result.ChannelsFailed++
			metrics.IncrementCounter("backfill_channel_errors", nil, "Channels skipped during backfill")
			w.logger.WithError(err).WithField("channel_id", channelID).Warn("Backfill failed for channel, continuing")
			continue
		}

		result.ChannelsWalked++
		w.logger.WithFields(logrus.Fields{
			"channel_id": channelID,
			"seen":       seen,
			"added":      added,
			"failed":     failed,
		}).Info("Backfilled channel")
	}

	if len(channelIDs) > 0 && result.ChannelsWalked == 0 {
		return result, errors.Wrap(lastErr, errors.GetCode(lastErr), "backfill failed for every channel")
	}

	metrics.IncrementCounter("backfill_runs", nil, "Completed backfill runs")
	return result, nil
}

func (w *BackfillWalker) walkChannel(ctx context.Context, channelID int64) (seen, added, failed int, err error) {
	guildID, err := w.resolveGuild(ctx, channelID)
	if err != nil {
		return 0, 0, 0, errors.NewChannelUnavailableError(channelID, err)
	}

	history := discord.NewHistory(w.source, channelID, w.pageSize)

	for {
		msg, err := history.Next(ctx)
		if err != nil {
			return seen, added, failed, errors.NewChannelUnavailableError(channelID, err)
		}
		if msg == nil {
			return seen, added, failed, nil
		}

		seen++

		event := EventFromMessage(msg)
		if event.GuildID == 0 {
			// History payloads omit guild_id.
			event.GuildID = guildID
		}

		inserted, err := w.store.InsertIfAbsent(ctx, event)
		if err != nil {
			failed++
			metrics.IncrementCounter("backfill_write_errors", nil, "Message writes dropped during backfill")
			w.logger.WithError(errors.NewTransientWriteError(event.MessageID, err)).WithFields(logrus.Fields{
				"channel_id": channelID,
				"message_id": event.MessageID,
			}).Warn("Backfill write failed for message, continuing")
			continue
		}
		if inserted {
			added++
		}
	}
}

// resolveGuild returns the guild to stamp on this channel's backfilled
// rows. With a configured guild restriction that value is authoritative;
// otherwise the channel's owning guild comes from the channel object, so
// backfilled rows land in the same scope the live stream writes to.
func (w *BackfillWalker) resolveGuild(ctx context.Context, channelID int64) (int64, error) {
	if w.guildID != 0 {
		return w.guildID, nil
	}

	channel, err := w.source.GetChannel(ctx, channelID)
	if err != nil {
		return 0, err
	}
	return types.ParseSnowflake(channel.GuildID), nil
}
