package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Job states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// Job is one block transform job.
type Job struct {
	ID          int64
	ChainID     uint64
	BlockNumber uint64
	Status      string
	RetryCount  int
	MaxRetries  int
	ClaimedBy   string
	LastError   string
}

// Queue is the database-backed job queue shared across worker processes.
// Claims use row-level SKIP LOCKED so no two workers process the same
// block concurrently; state transitions commit together with their work.
type Queue struct {
	pool *pgxpool.Pool
}

func NewQueue(ctx context.Context, dsn string) (*Queue, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Queue{pool: pool}, nil
}

// NewQueueWithPool wraps an existing pool, sharing it with the event store.
func NewQueueWithPool(pool *pgxpool.Pool) *Queue {
	return &Queue{pool: pool}
}

func (q *Queue) Close() {
	if q.pool != nil {
		q.pool.Close()
	}
}

// Migrate creates the jobs table if missing.
func (q *Queue) Migrate(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transform_jobs (
			id BIGSERIAL PRIMARY KEY,
			chain_id BIGINT NOT NULL,
			block_number BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INT NOT NULL DEFAULT 0,
			max_retries INT NOT NULL DEFAULT 3,
			claimed_by TEXT NOT NULL DEFAULT '',
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (chain_id, block_number)
		);
		CREATE INDEX IF NOT EXISTS transform_jobs_pending
			ON transform_jobs (block_number) WHERE status = 'pending';
	`)
	return err
}

// Enqueue schedules a block job; duplicates are ignored.
func (q *Queue) Enqueue(ctx context.Context, chainID, blockNumber uint64, maxRetries int) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO transform_jobs (chain_id, block_number, max_retries)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain_id, block_number) DO NOTHING
	`, int64(chainID), int64(blockNumber), maxRetries)
	return err
}

// Claim picks the oldest pending job, marks it processing, and returns it.
// Returns (nil, nil) when nothing is pending.
func (q *Queue) Claim(ctx context.Context, workerName string) (*Job, error) {
	row := q.pool.QueryRow(ctx, `
		UPDATE transform_jobs SET
			status = $2,
			claimed_by = $1,
			updated_at = now()
		WHERE id = (
			SELECT id FROM transform_jobs
			WHERE status = $3
			ORDER BY block_number
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, chain_id, block_number, status, retry_count, max_retries, claimed_by, last_error
	`, workerName, StatusProcessing, StatusPending)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// Complete marks a job done.
func (q *Queue) Complete(ctx context.Context, jobID int64) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE transform_jobs SET status = $2, last_error = '', updated_at = now()
		WHERE id = $1
	`, jobID, StatusComplete)
	return err
}

// Fail records a job failure. The job returns to pending with an
// incremented retry counter until max retries, then fails permanently.
func (q *Queue) Fail(ctx context.Context, jobID int64, cause string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE transform_jobs SET
			retry_count = retry_count + 1,
			status = CASE WHEN retry_count + 1 >= max_retries THEN $2 ELSE $3 END,
			last_error = $4,
			claimed_by = '',
			updated_at = now()
		WHERE id = $1
	`, jobID, StatusFailed, StatusPending, cause)
	return err
}

// Stats returns job counts per status, for operator visibility.
func (q *Queue) Stats(ctx context.Context) (map[string]int64, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT status, count(*) FROM transform_jobs GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

// ResetStale returns jobs stuck in processing beyond the threshold to
// pending. Crash recovery for workers that died mid-job.
func (q *Queue) ResetStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.pool.Exec(ctx, `
		UPDATE transform_jobs SET status = $1, claimed_by = '', updated_at = now()
		WHERE status = $2 AND updated_at < now() - $3::interval
	`, StatusPending, StatusProcessing, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var job Job
	var chainID, blockNumber int64
	if err := row.Scan(&job.ID, &chainID, &blockNumber, &job.Status,
		&job.RetryCount, &job.MaxRetries, &job.ClaimedBy, &job.LastError); err != nil {
		return nil, err
	}
	job.ChainID = uint64(chainID)
	job.BlockNumber = uint64(blockNumber)
	return &job, nil
}
