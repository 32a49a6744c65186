// Package worker keeps the spreadsheet mirror in line with the ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"budgetfamille/internal/amqp"
	"budgetfamille/internal/log"
	"budgetfamille/internal/metrics"
	"budgetfamille/internal/resilience"
	"budgetfamille/internal/sheets"
	"budgetfamille/internal/storage"
)

const (
	TriggerEvent   = "event"
	TriggerResync  = "resync"
	TriggerStartup = "startup"

	mirrorTimeout = time.Minute
)

// SyncWorker reloads the ledger from the store and rewrites the mirror.
// Mirror calls go through a circuit breaker so a failing Sheets API is not
// hammered by every event.
type SyncWorker struct {
	gw      *storage.Gateway
	mirror  sheets.LedgerMirror
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewSyncWorker(gw *storage.Gateway, mirror sheets.LedgerMirror, m *metrics.Metrics) *SyncWorker {
	return &SyncWorker{
		gw:      gw,
		mirror:  mirror,
		metrics: m,
		breaker: resilience.NewCircuitBreaker("sheets_mirror", time.Minute, func(name string, state int) {
			m.SetBreakerState(name, state)
		}),
	}
}

// HandleCollectionSaved mirrors the ledger when the transactions collection
// changed. Other collections are not mirrored.
func (w *SyncWorker) HandleCollectionSaved(ctx context.Context, msg *amqp.CollectionSavedMessage) error {
	if msg.Key != storage.KeyTransactions {
		slog.DebugContext(ctx, "Ignoring collection without mirror", log.FieldComponent, log.ComponentWorker, "key", msg.Key)
		return nil
	}
	return w.Sync(ctx, TriggerEvent)
}

// Sync performs one full mirror run.
func (w *SyncWorker) Sync(ctx context.Context, trigger string) error {
	txs, err := storage.Transactions().Load(ctx, w.gw)
	if err != nil {
		w.metrics.ObserveMirror(trigger, 0, err)
		return fmt.Errorf("load transactions: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	_, err = w.breaker.Execute(func() (any, error) {
		return nil, w.mirror.MirrorTransactions(ctx, txs)
	})
	w.metrics.ObserveMirror(trigger, len(txs), err)
	if err != nil {
		return fmt.Errorf("mirror transactions: %w", err)
	}

	slog.InfoContext(ctx, "Ledger mirrored",
		log.FieldComponent, log.ComponentWorker,
		"trigger", trigger,
		"transactions", len(txs))
	return nil
}

// RunPeriodic resyncs every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Sync(ctx, TriggerResync); err != nil {
				slog.ErrorContext(ctx, "Periodic resync failed", log.FieldComponent, log.ComponentWorker, "error", err)
			}
		}
	}
}
