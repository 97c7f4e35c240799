package worker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"tradescope/internal/metrics"
	"tradescope/internal/model"
	"tradescope/internal/queue"
	"tradescope/internal/storage"
	"tradescope/internal/storage/postgres"
	"tradescope/internal/transform"
)

const staleThreshold = 10 * time.Minute

// Worker drains the block queue: claim, transform, persist, promote. Blocks
// are independent, so any number of workers can run against the same queue.
type Worker struct {
	name         string
	inputDir     string
	pollInterval time.Duration
	maxRetries   int

	queue   *queue.Queue
	store   *postgres.Store
	blobs   *storage.BlobStore
	manager *transform.Manager
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type Config struct {
	Name         string
	InputDir     string
	PollInterval time.Duration
	MaxRetries   int
}

func New(cfg Config, q *queue.Queue, store *postgres.Store, blobs *storage.BlobStore,
	manager *transform.Manager, m *metrics.Metrics, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Worker{
		name:         cfg.Name,
		inputDir:     cfg.InputDir,
		pollInterval: cfg.PollInterval,
		maxRetries:   cfg.MaxRetries,
		queue:        q,
		store:        store,
		blobs:        blobs,
		manager:      manager,
		metrics:      m,
		logger:       logger,
	}
}

// EnqueueInput scans the input directory and schedules a job per decoded
// block envelope found there. Already-known blocks are skipped by the queue.
func (w *Worker) EnqueueInput(ctx context.Context) (int, error) {
	paths, err := storage.ListEnvelopes(w.inputDir)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, path := range paths {
		envelope, err := storage.ReadEnvelope(path)
		if err != nil {
			w.logger.Warn("skipping unreadable envelope", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := w.queue.Enqueue(ctx, envelope.ChainID, envelope.BlockNumber, w.maxRetries); err != nil {
			return enqueued, err
		}
		enqueued++
	}
	return enqueued, nil
}

// Run claims and processes jobs until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker start",
		zap.String("worker", w.name),
		zap.String("input_dir", w.inputDir),
		zap.Duration("poll_interval", w.pollInterval),
	)

	if reset, err := w.queue.ResetStale(ctx, staleThreshold); err != nil {
		w.logger.Warn("reset stale jobs", zap.Error(err))
	} else if reset > 0 {
		w.logger.Info("reset stale jobs", zap.Int64("count", reset))
	}

	for {
		job, err := w.queue.Claim(ctx, w.name)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("claim job", zap.Error(err))
		}
		if job != nil {
			w.handle(ctx, job)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.sleep()):
		}
	}
}

// sleep jitters the poll interval by up to 25% so idle workers sharing a
// queue do not claim in lockstep.
func (w *Worker) sleep() time.Duration {
	quarter := int64(w.pollInterval) / 4
	if quarter <= 0 {
		return w.pollInterval
	}
	return w.pollInterval + time.Duration(rand.Int63n(quarter))
}

func (w *Worker) handle(ctx context.Context, job *queue.Job) {
	if err := w.processJob(ctx, job); err != nil {
		w.metrics.JobFailed()
		w.logger.Error("job failed",
			zap.Int64("job_id", job.ID),
			zap.Uint64("block", job.BlockNumber),
			zap.Error(err),
		)
		if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("record job failure", zap.Int64("job_id", job.ID), zap.Error(failErr))
		}
		return
	}
	if err := w.queue.Complete(ctx, job.ID); err != nil {
		w.logger.Error("mark job complete", zap.Int64("job_id", job.ID), zap.Error(err))
	}
}

// processJob runs the two-phase pipeline for one block: transform, write the
// envelope into processing/, persist events, then promote to complete/.
func (w *Worker) processJob(ctx context.Context, job *queue.Job) error {
	envelope, err := storage.FindDecoded(w.inputDir, job.ChainID, job.BlockNumber)
	if err != nil {
		return fmt.Errorf("load decoded block %d: %w", job.BlockNumber, err)
	}

	w.manager.ProcessBlock(envelope)
	w.observe(envelope)

	if err := w.blobs.WriteProcessing(envelope); err != nil {
		return err
	}
	for i := range envelope.Transactions {
		if err := w.store.UpsertTransaction(ctx, &envelope.Transactions[i]); err != nil {
			return err
		}
	}
	if err := w.blobs.Promote(envelope.ChainID, envelope.BlockNumber); err != nil {
		return err
	}

	w.logger.Info("block transformed",
		zap.Uint64("chain_id", envelope.ChainID),
		zap.Uint64("block", envelope.BlockNumber),
		zap.Int("transactions", len(envelope.Transactions)),
	)
	return nil
}

func (w *Worker) observe(envelope *model.BlockEnvelope) {
	w.metrics.BlocksProcessed()
	transformed := 0
	for i := range envelope.Transactions {
		tx := &envelope.Transactions[i]
		if !tx.Transformed {
			continue
		}
		transformed++
		for _, event := range tx.Events {
			w.metrics.EventEmitted(string(event.Type()))
		}
		for _, pe := range tx.Errors {
			w.metrics.TransformError(pe.ErrorType)
			if pe.ErrorType == model.ErrReconciliationViolation {
				w.metrics.Violation()
			}
		}
	}
	w.metrics.TransactionsTransformed(transformed)
}
