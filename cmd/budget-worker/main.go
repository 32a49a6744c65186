package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetfamille/internal/amqp"
	"budgetfamille/internal/cli"
	"budgetfamille/internal/log"
	"budgetfamille/internal/metrics"
	ports "budgetfamille/internal/sheets"
	gsheet "budgetfamille/internal/sheets/google"
	mem "budgetfamille/internal/sheets/memory"
	"budgetfamille/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting budget-worker", "sync_interval", cfg.SyncInterval)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	m := metrics.New()
	be := cli.OpenBackend(ctx, logger, cfg, m, false)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	var mirror ports.LedgerMirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		mirror = mem.New()
		logger.Info("Google Sheets disabled - mirroring in memory only")
	}

	syncWorker := worker.NewSyncWorker(be.Gateway, mirror, m)
	if err := syncWorker.Sync(ctx, worker.TriggerStartup); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return syncWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})

	if cfg.AMQPURL != "" {
		consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			amqp.WithBreakerObserver(m.SetBreakerState))
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer consumer.Close()

		g.Go(func() error {
			err := consumer.ConsumeCollectionSaved(gctx, syncWorker.HandleCollectionSaved)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - relying on periodic resync")
	}

	if cfg.WorkerMetricsPort != "" {
		srv := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		return
	}
	logger.Info("Worker shutdown complete")
}
