package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"marketflow/config"
	"marketflow/logger"
	"marketflow/pipeline"
	"marketflow/warehouse"
	"marketflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	stages := flag.String("stage", "all", "Comma-separated stages to run (or 'all')")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":    cfg.Marketflow.Name,
		"version":    cfg.Marketflow.Version,
		"start_date": cfg.StartDate,
	}).Info("starting marketflow")

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A daily batch should die cleanly when the scheduler kills it
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	wh, err := warehouse.New(cfg.Warehouse)
	if err != nil {
		log.WithError(err).Error("failed to connect to warehouse")
		os.Exit(1)
	}
	defer wh.Close()

	if err := wh.Migrate(ctx); err != nil {
		log.WithError(err).Error("failed to migrate warehouse schema")
		os.Exit(1)
	}

	arch, err := writer.NewArchiver(cfg)
	if err != nil {
		log.WithError(err).Error("failed to create bronze archiver")
		os.Exit(1)
	}

	p := pipeline.New(cfg, wh, arch)
	runner := pipeline.NewRunner(p.Stages())

	log.WithFields(logger.Fields{
		"run_id": p.RunID(),
		"stages": *stages,
	}).Info("starting batch run")

	if err := runner.Run(ctx, strings.Split(*stages, ",")); err != nil {
		log.WithError(err).WithFields(logger.Fields{"run_id": p.RunID()}).Error("batch run failed")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{"run_id": p.RunID()}).Info("batch run completed")
}
