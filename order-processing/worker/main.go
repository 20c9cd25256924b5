package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"kalpanik-operations/order-processing/activities"
	"kalpanik-operations/order-processing/config"
	"kalpanik-operations/order-processing/extraction"
	"kalpanik-operations/order-processing/logging"
	"kalpanik-operations/order-processing/notify"
	"kalpanik-operations/order-processing/risk"
	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatalf("Unable to create Temporal client: %v", err)
	}
	defer c.Close()

	// Build and seed the state store
	s := store.New(store.WithAuditCapacity(cfg.AuditCapacity))
	seed := store.DefaultSeed()
	if cfg.SeedFile != "" {
		seed, err = store.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			logging.LogError(logger, "worker", "main", "load seed file", cfg.SeedFile, err)
			os.Exit(1)
		}
	}
	if err := s.Seed(seed); err != nil {
		logging.LogError(logger, "worker", "main", "seed store", nil, err)
		os.Exit(1)
	}

	model, err := risk.LoadModel(cfg.RiskModelPath)
	if err != nil {
		logging.LogError(logger, "worker", "main", "load risk model", cfg.RiskModelPath, err)
		os.Exit(1)
	}

	// Create worker with options
	w := worker.New(c, cfg.TaskQueue, worker.Options{
		Identity:                               "order-worker-" + hostname(),
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.OrderWorkflow)
	w.RegisterWorkflow(workflows.SnapshotWorkflow)
	w.RegisterWorkflow(workflows.CancelOrderWorkflow)
	w.RegisterWorkflow(workflows.TaskProgressWorkflow)
	w.RegisterWorkflow(workflows.RestockWorkflow)

	// Register activities
	activities.Register(w, activities.Dependencies{
		Store:     s,
		Extractor: extraction.NewRuleExtractor(),
		Predictor: model,
		Notifier:  notify.NewLogNotifier(logger),
	})

	logger.WithFields(logrus.Fields{
		"taskQueue": cfg.TaskQueue,
		"identity":  "order-worker-" + hostname(),
		"products":  len(seed.Inventory),
		"staff":     len(seed.Staff),
	}).Info("Worker starting")

	// Start worker
	err = w.Run(worker.InterruptCh())
	if err != nil {
		logger.Fatalf("Unable to start worker: %v", err)
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
