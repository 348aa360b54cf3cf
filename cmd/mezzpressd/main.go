package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"mezzpress/internal/config"
	"mezzpress/internal/daemon"
	"mezzpress/internal/encoder"
	"mezzpress/internal/inputcheck"
	"mezzpress/internal/logging"
	"mezzpress/internal/notifications"
	"mezzpress/internal/objectstore"
	"mezzpress/internal/outputcheck"
	"mezzpress/internal/reservation"
	"mezzpress/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := reservation.Open(cfg)
	if err != nil {
		logger.Error("open reservation store", logging.Error(err))
		return
	}
	defer store.Close()

	inputs := inputcheck.New(objectstore.New(cfg.Paths.SourceDir), inputcheck.Options{
		MaxSourceSizeBytes: int64(cfg.Pipeline.MaxSourceSizeGiB) << 30,
	})
	outputs := outputcheck.New(objectstore.New(cfg.Paths.OutputDir), outputcheck.Options{
		ExpectDASH:       cfg.Pipeline.EnableDASH,
		ToleranceSeconds: cfg.Pipeline.DurationToleranceSeconds,
	})
	orch := workflow.New(cfg, store, inputs, outputs, encoder.NewClient(cfg), notifications.NewService(cfg), logger)

	d, err := daemon.New(cfg, store, orch, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	d.Wait()
	d.Stop()
	logger.Info("mezzpressd shut down")
}
