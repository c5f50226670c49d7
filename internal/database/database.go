package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"msgvault/internal/migrations"
	"msgvault/internal/models"
	"msgvault/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// Validate database path to prevent directory traversal
	if err := security.ValidateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// UpsertObserved applies an observed (create or edit) event. The insert and
// the mutable-field overwrite are one statement, so the read-modify-write is
// atomic per message_id and idempotent under redelivery.
func (d *Database) UpsertObserved(ctx context.Context, ev *models.MessageEvent) error {
	encryptedName, err := d.encryptor.EncryptIfEnabled(ev.AuthorName)
	if err != nil {
		return fmt.Errorf("failed to encrypt author name: %w", err)
	}

	encryptedContent, err := d.encryptor.EncryptIfEnabled(ev.Content)
	if err != nil {
		return fmt.Errorf("failed to encrypt content: %w", err)
	}

	encryptedRaw, err := d.encryptor.EncryptIfEnabled(ev.RawJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt raw payload: %w", err)
	}

	_, err = d.db.ExecContext(ctx, UpsertObservedQuery,
		ev.MessageID,
		ev.GuildID,
		ev.ChannelID,
		ev.AuthorID,
		encryptedName,
		encryptedContent,
		ev.CreatedAt.UTC(),
		normalizeTime(ev.EditedAt),
		ev.AttachmentCount,
		ev.EmbedCount,
		encryptedRaw,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	return nil
}

// MarkDeleted applies a delete observation. Delete events only carry
// identity and scope, so a tombstone insert stores zero values for the
// author and content fields.
func (d *Database) MarkDeleted(ctx context.Context, ev *models.MessageEvent) error {
	_, err := d.db.ExecContext(ctx, MarkDeletedQuery,
		ev.MessageID,
		ev.GuildID,
		ev.ChannelID,
		ev.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark message deleted: %w", err)
	}

	return nil
}

// InsertIfAbsent is the backfill write path. It returns true when a row was
// inserted and false when the message was already present, in which case the
// stored record is left byte-for-byte untouched.
func (d *Database) InsertIfAbsent(ctx context.Context, ev *models.MessageEvent) (bool, error) {
	encryptedName, err := d.encryptor.EncryptIfEnabled(ev.AuthorName)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt author name: %w", err)
	}

	encryptedContent, err := d.encryptor.EncryptIfEnabled(ev.Content)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt content: %w", err)
	}

	encryptedRaw, err := d.encryptor.EncryptIfEnabled(ev.RawJSON)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt raw payload: %w", err)
	}

	result, err := d.db.ExecContext(ctx, InsertIfAbsentQuery,
		ev.MessageID,
		ev.GuildID,
		ev.ChannelID,
		ev.AuthorID,
		encryptedName,
		encryptedContent,
		ev.CreatedAt.UTC(),
		normalizeTime(ev.EditedAt),
		ev.AttachmentCount,
		ev.EmbedCount,
		encryptedRaw,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// GetMessage retrieves a message by id. A missing row returns (nil, nil).
func (d *Database) GetMessage(ctx context.Context, messageID string) (*models.MessageRecord, error) {
	row := d.db.QueryRowContext(ctx, SelectMessageByIDQuery, messageID)

	record, err := d.scanMessage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return record, nil
}

// ListMessages runs the scoped range query. The caller controls the limit
// (the query engine passes limit+1 to detect a next page); ordering is
// ascending (created_at, message_id) so the cursor has a strict total order
// to advance over.
func (d *Database) ListMessages(ctx context.Context, q models.ListQuery) ([]models.MessageRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT message_id, guild_id, channel_id, author_id, author_name,
		       content, created_at, edited_at, deleted, attachment_count,
		       embed_count, raw_json, ingested_at
		FROM messages
		WHERE guild_id = ? AND channel_id = ?`)
	args := []interface{}{q.GuildID, q.ChannelID}

	if q.From != nil {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		sb.WriteString(" AND created_at <= ?")
		args = append(args, q.To.UTC())
	}
	if !q.IncludeDeleted {
		sb.WriteString(" AND deleted = FALSE")
	}
	if q.Cursor != "" {
		sb.WriteString(" AND message_id > ?")
		args = append(args, q.Cursor)
	}

	sb.WriteString(" ORDER BY created_at ASC, message_id ASC LIMIT ?")
	args = append(args, q.Limit)

	rows, err := d.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []models.MessageRecord
	for rows.Next() {
		record, err := d.scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return records, nil
}

func (d *Database) scanMessage(scan func(dest ...interface{}) error) (*models.MessageRecord, error) {
	var record models.MessageRecord
	var encryptedName, encryptedContent, encryptedRaw string
	var editedAt sql.NullTime

	err := scan(
		&record.MessageID,
		&record.GuildID,
		&record.ChannelID,
		&record.AuthorID,
		&encryptedName,
		&encryptedContent,
		&record.CreatedAt,
		&editedAt,
		&record.Deleted,
		&record.AttachmentCount,
		&record.EmbedCount,
		&encryptedRaw,
		&record.IngestedAt,
	)
	if err != nil {
		return nil, err
	}

	if editedAt.Valid {
		ts := editedAt.Time
		record.EditedAt = &ts
	}

	record.AuthorName, err = d.encryptor.DecryptIfEnabled(encryptedName)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt author name: %w", err)
	}

	record.Content, err = d.encryptor.DecryptIfEnabled(encryptedContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %w", err)
	}

	record.RawJSON, err = d.encryptor.DecryptIfEnabled(encryptedRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt raw payload: %w", err)
	}

	return &record, nil
}

// normalizeTime binds a nullable timestamp in UTC so that stored DATETIME
// values compare consistently.
func normalizeTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
