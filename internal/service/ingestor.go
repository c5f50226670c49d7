package service

import (
	"context"
	"time"

	"msgvault/internal/metrics"
	"msgvault/internal/models"
	"msgvault/internal/privacy"
	"msgvault/pkg/discord/types"

	"github.com/sirupsen/logrus"
)

// SelfIDSource reports the identity of the connected bot user.
type SelfIDSource interface {
	SelfID() int64
}

// Ingestor adapts gateway dispatches into reconciler events. It drops events
// outside the configured guild and channel scope and events authored by the
// bot itself, and it swallows write failures after logging them so a bad
// event never stalls the stream.
type Ingestor struct {
	reconciler *Reconciler
	self       SelfIDSource
	guildID    int64
	channels   map[int64]bool
	logger     *logrus.Logger
}

func NewIngestor(reconciler *Reconciler, self SelfIDSource, guildID int64, channelIDs []int64, logger *logrus.Logger) *Ingestor {
	var channels map[int64]bool
	if len(channelIDs) > 0 {
		channels = make(map[int64]bool, len(channelIDs))
		for _, id := range channelIDs {
			channels[id] = true
		}
	}

	return &Ingestor{
		reconciler: reconciler,
		self:       self,
		guildID:    guildID,
		channels:   channels,
		logger:     logger,
	}
}

// inScope reports whether an event from the given guild and channel should
// be ingested. An empty channel set means every channel in the guild.
func (i *Ingestor) inScope(guildID, channelID int64) bool {
	if i.guildID != 0 && guildID != i.guildID {
		return false
	}
	if i.channels != nil && !i.channels[channelID] {
		return false
	}
	return true
}

func (i *Ingestor) OnMessageCreated(ctx context.Context, msg *types.Message) {
	i.observed(ctx, msg, "create")
}

func (i *Ingestor) OnMessageUpdated(ctx context.Context, msg *types.Message) {
	i.observed(ctx, msg, "update")
}

func (i *Ingestor) observed(ctx context.Context, msg *types.Message, kind string) {
	guildID := types.ParseSnowflake(msg.GuildID)
	channelID := types.ParseSnowflake(msg.ChannelID)

	if !i.inScope(guildID, channelID) {
		metrics.IncrementCounter("ingest_skipped", map[string]string{"reason": "scope"}, "Events dropped before reconcile")
		return
	}
	if i.self != nil && types.ParseSnowflake(msg.Author.ID) == i.self.SelfID() {
		metrics.IncrementCounter("ingest_skipped", map[string]string{"reason": "self"}, "Events dropped before reconcile")
		return
	}

	event := EventFromMessage(msg)

	if err := i.reconciler.Reconcile(ctx, event); err != nil {
		i.logger.WithError(err).WithFields(logrus.Fields{
			"message_id": msg.ID,
			"event":      kind,
		}).Error("Failed to ingest message event")
		return
	}

	i.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"event":      kind,
		"preview":    privacy.MaskContent(msg.Content, 32),
	}).Debug("Ingested message event")
}

func (i *Ingestor) OnMessageDeleted(ctx context.Context, del *types.MessageDelete) {
	guildID := types.ParseSnowflake(del.GuildID)
	channelID := types.ParseSnowflake(del.ChannelID)

	if !i.inScope(guildID, channelID) {
		metrics.IncrementCounter("ingest_skipped", map[string]string{"reason": "scope"}, "Events dropped before reconcile")
		return
	}

	event := &models.MessageEvent{
		Kind:      models.EventDeleted,
		MessageID: del.ID,
		GuildID:   guildID,
		ChannelID: channelID,
		// A delete payload has no timestamps; recover created_at from the
		// snowflake so a tombstone for a never-seen message still sorts
		// correctly.
		CreatedAt: types.SnowflakeTime(del.ID),
	}

	if err := i.reconciler.Reconcile(ctx, event); err != nil {
		i.logger.WithError(err).WithField("message_id", del.ID).Error("Failed to ingest delete event")
	}
}

// EventFromMessage converts a wire message into an observed event.
func EventFromMessage(msg *types.Message) *models.MessageEvent {
	var edited *time.Time
	if msg.EditedTimestamp != nil {
		t := msg.EditedTimestamp.UTC()
		edited = &t
	}

	return &models.MessageEvent{
		Kind:            models.EventObserved,
		MessageID:       msg.ID,
		GuildID:         types.ParseSnowflake(msg.GuildID),
		ChannelID:       types.ParseSnowflake(msg.ChannelID),
		AuthorID:        types.ParseSnowflake(msg.Author.ID),
		AuthorName:      msg.Author.Username,
		Content:         msg.Content,
		CreatedAt:       msg.Timestamp.UTC(),
		EditedAt:        edited,
		AttachmentCount: len(msg.Attachments),
		EmbedCount:      len(msg.Embeds),
		RawJSON:         string(msg.Raw),
	}
}
