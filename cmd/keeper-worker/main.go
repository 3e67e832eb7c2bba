package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weeklykeeper/internal/amqp"
	"weeklykeeper/internal/cli"
	"weeklykeeper/internal/log"
	"weeklykeeper/internal/sheets"
	gsheet "weeklykeeper/internal/sheets/google"
	syncpkg "weeklykeeper/internal/sync"
	"weeklykeeper/internal/worker"
)

// resyncInterval is how often the worker re-uploads regardless of messages,
// so a lost announcement cannot strand the remote copy.
const resyncInterval = 1 * time.Hour

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)

	logger.Info("Starting keeper-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.WebDAVURL == "" {
		logger.Error("WEBDAV_URL is required for the worker")
		os.Exit(1)
	}

	snapshots := cli.OpenSnapshots(cfg, logger)
	defer snapshots.Close()

	remote, err := syncpkg.NewWebDAVClient(syncpkg.WebDAVOptions{
		BaseURL:    cfg.WebDAVURL,
		Username:   cfg.WebDAVUsername,
		Password:   cfg.WebDAVPassword,
		Filename:   cfg.WebDAVFilename,
		RequireTLS: cfg.WebDAVRequireTLS,
	})
	if err != nil {
		logger.Error("Failed to initialize WebDAV client", log.FieldError, err, log.FieldSyncTarget, cfg.WebDAVURL)
		os.Exit(1)
	}

	// Settlement mirror is optional.
	var mirror sheets.SettlementWriter
	if cfg.SheetsSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.SheetsSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no SHEETS_SPREADSHEET_ID provided")
	}

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncWorker := worker.NewSyncWorker(snapshots, remote, mirror)

	// On startup, upload whatever the snapshot holds in case announcements
	// were missed while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	go func() {
		if err := bus.ConsumeStateChanges(ctx, func(msg *amqp.StateChangedMessage) error {
			return syncWorker.HandleStateChanged(ctx, msg)
		}); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
			cancel()
		}
	}()

	ticker := time.NewTicker(resyncInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.Resync(ctx); err != nil {
					logger.Error("Periodic resync failed", log.FieldError, err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second) // let the in-flight upload finish
	logger.Info("Worker shutdown complete")
}
