package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradescope/internal/config"
	"tradescope/internal/metrics"
	"tradescope/internal/queue"
	sig "tradescope/internal/signal"
	"tradescope/internal/storage"
	"tradescope/internal/storage/postgres"
	"tradescope/internal/transform"
	"tradescope/internal/worker"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "tradescope",
		Short:        "Decoded-log transform engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Transform every decoded block in the input directory once",
		RunE:  runProcess,
	}
	processCmd.Flags().String("registry", "./registry.yaml", "contract registry YAML path")
	processCmd.Flags().String("in", "./data/decoded", "decoded block envelopes directory")
	processCmd.Flags().String("data-dir", "./data/blocks", "output blob storage root")
	processCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional; skip event persistence when empty)")
	processCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(processCmd)

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a transform worker against the shared job queue",
		RunE:  runWorker,
	}
	workerCmd.Flags().String("registry", "./registry.yaml", "contract registry YAML path")
	workerCmd.Flags().String("in", "./data/decoded", "decoded block envelopes directory")
	workerCmd.Flags().String("data-dir", "./data/blocks", "output blob storage root")
	workerCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	workerCmd.Flags().String("worker-name", "worker-1", "worker name recorded on claimed jobs")
	workerCmd.Flags().Duration("poll-interval", 0, "queue poll interval")
	workerCmd.Flags().Int("max-retries", 3, "job retry limit")
	workerCmd.Flags().String("metrics-addr", "", "metrics listen address (empty disables)")
	workerCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(workerCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := newManager(cfg, logger)
	if err != nil {
		return err
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	blobs := storage.NewBlobStore(cfg.DataDir)
	paths, err := inputPaths(cfg.InputDir)
	if err != nil {
		return err
	}

	logger.Info("process start",
		zap.String("in", cfg.InputDir),
		zap.Int("blocks", len(paths)),
		zap.Bool("persist", store != nil),
	)

	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		envelope, err := storage.ReadEnvelope(path)
		if err != nil {
			return err
		}
		manager.ProcessBlock(envelope)

		if err := blobs.WriteProcessing(envelope); err != nil {
			return err
		}
		if store != nil {
			for i := range envelope.Transactions {
				if err := store.UpsertTransaction(ctx, &envelope.Transactions[i]); err != nil {
					return err
				}
			}
		}
		if err := blobs.Promote(envelope.ChainID, envelope.BlockNumber); err != nil {
			return err
		}
		logger.Info("block transformed",
			zap.Uint64("block", envelope.BlockNumber),
			zap.Int("transactions", len(envelope.Transactions)),
		)
	}

	return nil
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := newManager(cfg, logger)
	if err != nil {
		return err
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	jobs := queue.NewQueueWithPool(store.Pool())
	if err := jobs.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate queue: %w", err)
	}

	m := metrics.Init()
	if cfg.MetricsAddr != "" {
		metrics.Serve(cfg.MetricsAddr)
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	w := worker.New(worker.Config{
		Name:         cfg.WorkerName,
		InputDir:     cfg.InputDir,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
	}, jobs, store, storage.NewBlobStore(cfg.DataDir), manager, m, logger)

	enqueued, err := w.EnqueueInput(ctx)
	if err != nil {
		return fmt.Errorf("enqueue input: %w", err)
	}
	logger.Info("input enqueued", zap.Int("blocks", enqueued))

	return w.Run(ctx)
}

// inputPaths accepts either a directory of envelopes or one envelope file.
func inputPaths(in string) ([]string, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		return []string{in}, nil
	}
	return storage.ListEnvelopes(in)
}

func newManager(cfg config.Config, logger *zap.Logger) (*transform.Manager, error) {
	registry, err := config.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	signals, err := sig.NewRegistry(registry, logger)
	if err != nil {
		return nil, fmt.Errorf("build transformers: %w", err)
	}
	patterns := transform.NewPatternRegistry(registry)
	return transform.NewManager(registry, signals, patterns, logger), nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
