package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorops/internal/amqp"
	"tutorops/internal/cli"
	"tutorops/internal/export"
	exportgoogle "tutorops/internal/export/google"
	exportmemory "tutorops/internal/export/memory"
	"tutorops/internal/ledger"
	"tutorops/internal/plan"
	"tutorops/internal/report"
	"tutorops/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting export-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitRecordStore(context.Background(), logger, cfg)
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Record store cleanup failed", "error", err)
			}
		}()
	}

	// Google Sheets export destination (optional; falls back to in-memory)
	var exporter export.ReportExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := exportgoogle.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = exportmemory.New()
		logger.Info("Google Sheets disabled - exporting in memory only")
	}

	plans := plan.NewStore(result.Store)
	lgr := ledger.New(result.Store)
	engine := report.NewEngine(plans, lgr)
	exportWorker := worker.NewExportWorker(engine, exporter, cfg.ExportInterval, cfg.ExportWindowDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume ledger events when AMQP is configured; without it the
	// worker still re-exports on its own schedule.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, func(event *amqp.LedgerEvent) error {
				return exportWorker.HandleLedgerEvent(ctx, event)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Event consumption failed", "error", err)
			}
			cancel()
		}()
		logger.Info("Consuming ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		exportWorker.ExportEveryTick = true
		logger.Info("AMQP disabled - re-exporting on every interval")
	}

	go func() {
		if err := exportWorker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Export worker failed", "error", err)
		}
		cancel()
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	// Give the worker a moment to finish the in-flight export.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
