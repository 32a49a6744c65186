package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetfamille/internal/adapters"
	"budgetfamille/internal/amqp"
	"budgetfamille/internal/metrics"
	"budgetfamille/internal/storage"
	"budgetfamille/internal/storage/memory"
)

type DefaultFactory struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewFactory(logger *slog.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, metrics: m}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		store, err = memory.NewFromDir(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	gw := storage.NewGateway(store, adapters.MetricsListener{Metrics: f.metrics})
	closers := []func() error{store.Close}

	if config.Publish && config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue,
			amqp.WithBreakerObserver(f.metrics.SetBreakerState))
		if err != nil {
			// Data stays local; the worker's periodic resync catches up.
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			gw.AddListener(adapters.NewAMQPNotifier(client, f.metrics))
			closers = append([]func() error{client.Close}, closers...)
			f.logger.InfoContext(ctx, "Publishing collection saved events",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Gateway: gw,
		Cleanup: func() error {
			var errs []error
			for _, c := range closers {
				if err := c(); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}
