package models

import "time"

// EventKind classifies an upstream message observation.
type EventKind string

const (
	// EventObserved covers message creation and edits: the payload carries
	// the full current state of the message.
	EventObserved EventKind = "observed"
	// EventDeleted carries identity and scope only; it marks the record as
	// soft-deleted.
	EventDeleted EventKind = "deleted"
)

// MessageRecord is the canonical stored form of a Discord message.
// MessageID, GuildID, ChannelID, AuthorID, CreatedAt and IngestedAt are
// immutable after first write; Deleted only ever transitions false to true.
type MessageRecord struct {
	MessageID       string     `json:"message_id"`
	GuildID         int64      `json:"guild_id"`
	ChannelID       int64      `json:"channel_id"`
	AuthorID        int64      `json:"author_id"`
	AuthorName      string     `json:"author_name"`
	Content         string     `json:"content"`
	CreatedAt       time.Time  `json:"created_at"`
	EditedAt        *time.Time `json:"edited_at"`
	Deleted         bool       `json:"deleted"`
	AttachmentCount int        `json:"attachment_count"`
	EmbedCount      int        `json:"embed_count"`
	RawJSON         string     `json:"-"`
	IngestedAt      time.Time  `json:"-"`
}

// MessageEvent is a single upstream observation fed to the reconciler.
// For EventDeleted only MessageID, GuildID and ChannelID are meaningful.
type MessageEvent struct {
	Kind            EventKind
	MessageID       string
	GuildID         int64
	ChannelID       int64
	AuthorID        int64
	AuthorName      string
	Content         string
	CreatedAt       time.Time
	EditedAt        *time.Time
	AttachmentCount int
	EmbedCount      int
	RawJSON         string
}

// ListQuery are the filter and pagination parameters for a scoped read.
type ListQuery struct {
	GuildID        int64
	ChannelID      int64
	From           *time.Time
	To             *time.Time
	Cursor         string
	Limit          int
	IncludeDeleted bool
}

// MessagePage is one page of query results. NextCursor is nil when the
// page is the last one.
type MessagePage struct {
	Data       []MessageRecord `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

type Pagination struct {
	NextCursor *string `json:"next_cursor"`
	Limit      int     `json:"limit"`
}
