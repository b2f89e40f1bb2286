package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bikeshare/internal/amqp"
	"bikeshare/internal/cli"
	"bikeshare/internal/log"
	"bikeshare/internal/services"
	"bikeshare/internal/sources/csvfile"
	"bikeshare/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentImport)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The publisher stays a nil interface when AMQP is unavailable.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "")
		if err != nil {
			logger.Warn("AMQP unavailable, import will not be announced", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	src := csvfile.New(cfg.DailySource, cfg.HourlySource, cfg.SourceTimeout)
	logger.Info("Starting import",
		"daily_source", cfg.DailySource,
		"hourly_source", cfg.HourlySource,
		"path", cfg.SQLiteDBPath)

	res, err := services.NewImporter(src, repo, publisher).Run(ctx)
	if err != nil {
		logger.Error("Import failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Import finished",
		"import_id", res.ImportID,
		log.FieldDailyRows, res.DailyRows,
		log.FieldHourlyRows, res.HourlyRows,
		"published", res.Published)
}
