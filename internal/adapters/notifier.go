// Package adapters connects storage save events to outbound channels.
package adapters

import (
	"context"
	"log/slog"

	"budgetfamille/internal/amqp"
	"budgetfamille/internal/log"
	"budgetfamille/internal/metrics"
	"budgetfamille/internal/storage"
)

// Publisher is the subset of amqp.Client used by the notifier.
type Publisher interface {
	PublishCollectionSaved(ctx context.Context, msg *amqp.CollectionSavedMessage) error
}

// AMQPNotifier publishes a message for every saved collection. Publish
// failures are logged only: the data is already persisted and the worker
// resyncs periodically.
type AMQPNotifier struct {
	publisher Publisher
	metrics   *metrics.Metrics
}

var _ storage.SaveListener = (*AMQPNotifier)(nil)

func NewAMQPNotifier(p Publisher, m *metrics.Metrics) *AMQPNotifier {
	return &AMQPNotifier{publisher: p, metrics: m}
}

func (n *AMQPNotifier) CollectionSaved(ctx context.Context, key string, count int) {
	if n.publisher == nil {
		return
	}
	err := n.publisher.PublishCollectionSaved(ctx, amqp.NewCollectionSavedMessage(key, count))
	n.metrics.IncPublished(err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish collection saved message",
			log.FieldComponent, log.ComponentAMQP,
			"key", key,
			"error", err)
	}
}

// MetricsListener counts successful collection writes.
type MetricsListener struct {
	Metrics *metrics.Metrics
}

func (l MetricsListener) CollectionSaved(_ context.Context, key string, _ int) {
	l.Metrics.IncCollectionSave(key)
}
