package service

import (
	"context"
	"testing"
	"time"

	"msgvault/internal/errors"
	"msgvault/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func observedEvent(id string, content string) *models.MessageEvent {
	return &models.MessageEvent{
		Kind:       models.EventObserved,
		MessageID:  id,
		GuildID:    10,
		ChannelID:  20,
		AuthorID:   30,
		AuthorName: "alice",
		Content:    content,
		CreatedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReconcilerObservedUpserts(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, testLogger())
	ctx := context.Background()

	require.NoError(t, reconciler.Reconcile(ctx, observedEvent("100", "hello")))

	record, ok := store.get("100")
	require.True(t, ok)
	assert.Equal(t, "hello", record.Content)
	assert.Equal(t, "alice", record.AuthorName)
	assert.False(t, record.Deleted)

	// An edit overwrites mutable fields in place.
	require.NoError(t, reconciler.Reconcile(ctx, observedEvent("100", "hello, edited")))

	record, ok = store.get("100")
	require.True(t, ok)
	assert.Equal(t, "hello, edited", record.Content)
	assert.Equal(t, 1, store.count())
}

func TestReconcilerIdempotentReplay(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, testLogger())
	ctx := context.Background()

	event := observedEvent("200", "once")
	require.NoError(t, reconciler.Reconcile(ctx, event))
	first, _ := store.get("200")

	require.NoError(t, reconciler.Reconcile(ctx, event))
	second, _ := store.get("200")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.count())
}

func TestReconcilerDeleteIsMonotonic(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, testLogger())
	ctx := context.Background()

	require.NoError(t, reconciler.Reconcile(ctx, observedEvent("300", "doomed")))
	require.NoError(t, reconciler.Reconcile(ctx, &models.MessageEvent{
		Kind:      models.EventDeleted,
		MessageID: "300",
		GuildID:   10,
		ChannelID: 20,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}))

	record, ok := store.get("300")
	require.True(t, ok)
	assert.True(t, record.Deleted)

	// A stale observed event replayed after the delete must not resurrect
	// the message.
	require.NoError(t, reconciler.Reconcile(ctx, observedEvent("300", "doomed")))

	record, _ = store.get("300")
	assert.True(t, record.Deleted)
}

func TestReconcilerDeleteBeforeCreate(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, testLogger())
	ctx := context.Background()

	require.NoError(t, reconciler.Reconcile(ctx, &models.MessageEvent{
		Kind:      models.EventDeleted,
		MessageID: "400",
		GuildID:   10,
		ChannelID: 20,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}))

	record, ok := store.get("400")
	require.True(t, ok)
	assert.True(t, record.Deleted)
	assert.Empty(t, record.Content)
}

func TestReconcilerRejectsBadEvents(t *testing.T) {
	reconciler := NewReconciler(newFakeStore(), testLogger())
	ctx := context.Background()

	tests := []struct {
		name  string
		event *models.MessageEvent
	}{
		{name: "nil event", event: nil},
		{name: "missing message id", event: &models.MessageEvent{Kind: models.EventObserved}},
		{name: "unknown kind", event: &models.MessageEvent{Kind: "exploded", MessageID: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reconciler.Reconcile(ctx, tt.event)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
		})
	}
}

func TestReconcilerWrapsStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	reconciler := NewReconciler(store, testLogger())

	err := reconciler.Reconcile(context.Background(), observedEvent("500", "x"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTransientWrite, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))
}
