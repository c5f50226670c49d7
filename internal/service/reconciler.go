package service

import (
	"context"
	"fmt"
	"time"

	"msgvault/internal/errors"
	"msgvault/internal/metrics"
	"msgvault/internal/models"

	"github.com/sirupsen/logrus"
)

// MessageStore is the storage surface the ingestion path writes through.
type MessageStore interface {
	UpsertObserved(ctx context.Context, ev *models.MessageEvent) error
	MarkDeleted(ctx context.Context, ev *models.MessageEvent) error
	InsertIfAbsent(ctx context.Context, ev *models.MessageEvent) (bool, error)
}

// Reconciler applies ingestion events to the store. Observed events upsert
// the full record; deletion events only ever flip the deleted flag, so a
// late-arriving observed event can never resurrect a deleted message.
type Reconciler struct {
	store  MessageStore
	logger *logrus.Logger
}

func NewReconciler(store MessageStore, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

// Reconcile applies a single event. It is safe to call concurrently and to
// replay the same event: each write is atomic and idempotent.
func (r *Reconciler) Reconcile(ctx context.Context, event *models.MessageEvent) error {
	if event == nil || event.MessageID == "" {
		return errors.NewInvalidInputError("event", "event has no message id")
	}

	start := time.Now()

	var err error
	switch event.Kind {
	case models.EventObserved:
		err = r.store.UpsertObserved(ctx, event)
	case models.EventDeleted:
		err = r.store.MarkDeleted(ctx, event)
	default:
		return errors.NewInvalidInputError("event", fmt.Sprintf("unknown event kind %q", event.Kind))
	}

	if err != nil {
		metrics.IncrementCounter("reconcile_errors", map[string]string{"kind": string(event.Kind)}, "Reconcile write failures")
		return errors.NewTransientWriteError(event.MessageID, err)
	}

	metrics.IncrementCounter("reconcile_events", map[string]string{"kind": string(event.Kind)}, "Events applied to the store")
	metrics.RecordTimer("reconcile_duration", time.Since(start), nil, "Reconcile write latency")

	r.logger.WithFields(logrus.Fields{
		"message_id": event.MessageID,
		"channel_id": event.ChannelID,
		"kind":       event.Kind,
	}).Debug("Reconciled event")

	return nil
}
