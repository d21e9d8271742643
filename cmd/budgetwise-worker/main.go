package main

import (
	"context"
	"os"

	"budgetwise/internal/amqp"
	"budgetwise/internal/cli"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
	"budgetwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	flush := cli.SetupTelemetry(ctx, logger, "budgetwise-worker", cfg.OTelEndpoint)
	defer flush()

	store, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	}

	reminder := services.NewBillReminder(store.Backend, services.LogNotifier{Logger: logger}, logger)
	w := worker.NewReminderWorker(consumer, reminder, cfg.ReminderInterval, logger)

	logger.Info("Starting budgetwise-worker",
		log.FieldBackend, store.Type.String(),
		"interval", cfg.ReminderInterval.String(),
		"consumer", consumer != nil)
	if err := w.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
