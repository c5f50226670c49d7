package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"msgvault/internal/models"
	"msgvault/pkg/discord/types"
)

// fakeStore is an in-memory MessageStore and MessageReader that mirrors the
// real store's write semantics: observed upserts overwrite mutable fields,
// deletes only flip the flag, and backfill inserts never touch existing
// rows.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]models.MessageRecord
	failAll bool
	failID  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]models.MessageRecord)}
}

func (s *fakeStore) UpsertObserved(_ context.Context, ev *models.MessageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return fmt.Errorf("store unavailable")
	}

	existing, ok := s.records[ev.MessageID]
	record := models.MessageRecord{
		MessageID:       ev.MessageID,
		GuildID:         ev.GuildID,
		ChannelID:       ev.ChannelID,
		AuthorID:        ev.AuthorID,
		AuthorName:      ev.AuthorName,
		Content:         ev.Content,
		CreatedAt:       ev.CreatedAt,
		EditedAt:        ev.EditedAt,
		AttachmentCount: ev.AttachmentCount,
		EmbedCount:      ev.EmbedCount,
		RawJSON:         ev.RawJSON,
	}
	if ok {
		record.CreatedAt = existing.CreatedAt
		record.Deleted = existing.Deleted
	}
	s.records[ev.MessageID] = record
	return nil
}

func (s *fakeStore) MarkDeleted(_ context.Context, ev *models.MessageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return fmt.Errorf("store unavailable")
	}

	record, ok := s.records[ev.MessageID]
	if !ok {
		record = models.MessageRecord{
			MessageID: ev.MessageID,
			GuildID:   ev.GuildID,
			ChannelID: ev.ChannelID,
			CreatedAt: ev.CreatedAt,
		}
	}
	record.Deleted = true
	s.records[ev.MessageID] = record
	return nil
}

func (s *fakeStore) InsertIfAbsent(_ context.Context, ev *models.MessageEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll || ev.MessageID == s.failID {
		return false, fmt.Errorf("store unavailable")
	}

	if _, ok := s.records[ev.MessageID]; ok {
		return false, nil
	}
	s.records[ev.MessageID] = models.MessageRecord{
		MessageID:       ev.MessageID,
		GuildID:         ev.GuildID,
		ChannelID:       ev.ChannelID,
		AuthorID:        ev.AuthorID,
		AuthorName:      ev.AuthorName,
		Content:         ev.Content,
		CreatedAt:       ev.CreatedAt,
		EditedAt:        ev.EditedAt,
		AttachmentCount: ev.AttachmentCount,
		EmbedCount:      ev.EmbedCount,
		RawJSON:         ev.RawJSON,
	}
	return true, nil
}

func (s *fakeStore) GetMessage(_ context.Context, messageID string) (*models.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, fmt.Errorf("store unavailable")
	}

	record, ok := s.records[messageID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *fakeStore) ListMessages(_ context.Context, q models.ListQuery) ([]models.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, fmt.Errorf("store unavailable")
	}

	var matches []models.MessageRecord
	for _, record := range s.records {
		if record.GuildID != q.GuildID || record.ChannelID != q.ChannelID {
			continue
		}
		if q.From != nil && record.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && record.CreatedAt.After(*q.To) {
			continue
		}
		if !q.IncludeDeleted && record.Deleted {
			continue
		}
		if q.Cursor != "" && record.MessageID <= q.Cursor {
			continue
		}
		matches = append(matches, record)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].MessageID < matches[j].MessageID
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (s *fakeStore) get(messageID string) (models.MessageRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[messageID]
	return record, ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// fakeHistorySource serves scripted pages per channel. Channels listed in
// fail return an error on the first call. guilds maps a channel to the
// guild its channel object reports.
type fakeHistorySource struct {
	mu       sync.Mutex
	channels map[int64][]types.Message
	guilds   map[int64]int64
	fail     map[int64]bool
	calls    int
}

func (f *fakeHistorySource) GetChannel(_ context.Context, channelID int64) (*types.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail[channelID] {
		return nil, fmt.Errorf("missing access")
	}
	return &types.Channel{
		ID:      strconv.FormatInt(channelID, 10),
		GuildID: strconv.FormatInt(f.guilds[channelID], 10),
	}, nil
}

func (f *fakeHistorySource) GetChannelMessages(_ context.Context, channelID int64, afterID string, limit int) ([]types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.fail[channelID] {
		return nil, fmt.Errorf("missing access")
	}

	var page []types.Message
	for _, msg := range f.channels[channelID] {
		if types.ParseSnowflake(msg.ID) <= types.ParseSnowflake(afterID) {
			continue
		}
		page = append(page, msg)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

type fixedSelfID int64

func (f fixedSelfID) SelfID() int64 { return int64(f) }
