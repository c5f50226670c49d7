package database

// Message queries. All writers go through single-statement upserts so that a
// concurrent live event and backfill insert for the same message_id resolve
// inside SQLite's own row-level atomicity, without application locks.
const (
	// UpsertObservedQuery inserts a freshly observed message or, when the
	// record already exists, overwrites the mutable fields only. The
	// deleted flag, created_at and ingested_at are never touched on
	// conflict: an observed event must not resurrect a soft-deleted row.
	UpsertObservedQuery = `
		INSERT INTO messages (
			message_id, guild_id, channel_id, author_id, author_name,
			content, created_at, edited_at, deleted, attachment_count,
			embed_count, raw_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			author_name = excluded.author_name,
			content = excluded.content,
			edited_at = excluded.edited_at,
			attachment_count = excluded.attachment_count,
			embed_count = excluded.embed_count,
			raw_json = excluded.raw_json
	`

	// MarkDeletedQuery records a delete observation. A missing row gets a
	// tombstone so a late-arriving create cannot resurrect the message; an
	// existing row keeps every field except the deleted flag.
	MarkDeletedQuery = `
		INSERT INTO messages (
			message_id, guild_id, channel_id, author_id, created_at, deleted
		) VALUES (?, ?, ?, 0, ?, TRUE)
		ON CONFLICT(message_id) DO UPDATE SET deleted = TRUE
	`

	// InsertIfAbsentQuery is the backfill write path: insert-only, so a
	// historical snapshot never clobbers an edit or delete the live path
	// already captured.
	InsertIfAbsentQuery = `
		INSERT OR IGNORE INTO messages (
			message_id, guild_id, channel_id, author_id, author_name,
			content, created_at, edited_at, deleted, attachment_count,
			embed_count, raw_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?, ?)
	`

	SelectMessageByIDQuery = `
		SELECT message_id, guild_id, channel_id, author_id, author_name,
		       content, created_at, edited_at, deleted, attachment_count,
		       embed_count, raw_json, ingested_at
		FROM messages
		WHERE message_id = ?
	`
)
