package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradescope/internal/model"
)

// Store persists finished domain events, positions, and errors. Every row
// is keyed by content ID, so reprocessing upserts and never duplicates.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying pool for sharing with the job queue.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the event tables if missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trades (
			content_id TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			taker TEXT NOT NULL,
			direction TEXT NOT NULL,
			trade_type TEXT NOT NULL,
			base_token TEXT NOT NULL,
			quote_token TEXT NOT NULL,
			base_amount NUMERIC NOT NULL,
			quote_amount NUMERIC NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS pool_swaps (
			content_id TEXT PRIMARY KEY,
			trade_id TEXT NOT NULL DEFAULT '',
			tx_hash TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			pool TEXT NOT NULL,
			taker TEXT NOT NULL,
			direction TEXT NOT NULL,
			base_token TEXT NOT NULL,
			quote_token TEXT NOT NULL,
			base_amount NUMERIC NOT NULL,
			quote_amount NUMERIC NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS liquidity_events (
			content_id TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			pool TEXT NOT NULL,
			provider TEXT NOT NULL,
			action TEXT NOT NULL,
			base_token TEXT NOT NULL,
			quote_token TEXT NOT NULL,
			base_amount NUMERIC NOT NULL,
			quote_amount NUMERIC NOT NULL,
			position_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS transfers (
			content_id TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			token TEXT NOT NULL,
			from_address TEXT NOT NULL,
			to_address TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			unknown BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS rewards (
			content_id TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			source TEXT NOT NULL,
			user_address TEXT NOT NULL,
			token TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS positions (
			content_id TEXT PRIMARY KEY,
			tx_hash TEXT NOT NULL,
			ts BIGINT NOT NULL,
			event_id TEXT NOT NULL,
			user_address TEXT NOT NULL,
			token TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS processing_errors (
			content_id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			error_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			tx_hash TEXT NOT NULL,
			contract TEXT NOT NULL DEFAULT '',
			log_index BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// UpsertTransaction writes every event, position, and error of a finalized
// transaction in one batch.
func (s *Store) UpsertTransaction(ctx context.Context, tx *model.Transaction) error {
	batch := &pgx.Batch{}

	for _, event := range tx.Events {
		queueEvent(batch, event)
	}
	for i := range tx.Positions {
		queuePosition(batch, &tx.Positions[i])
	}
	for i := range tx.Errors {
		queueError(batch, &tx.Errors[i])
	}

	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert transaction %s: %w", tx.TxHash, err)
		}
	}
	return nil
}

func queueEvent(batch *pgx.Batch, event model.DomainEvent) {
	switch typed := event.(type) {
	case *model.Trade:
		queueTrade(batch, typed)
	case *model.PoolSwap:
		queuePoolSwap(batch, typed, "")
	case *model.Liquidity:
		batch.Queue(`
			INSERT INTO liquidity_events (
				content_id, tx_hash, block_number, ts, pool, provider, action,
				base_token, quote_token, base_amount, quote_amount, position_id
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (content_id) DO UPDATE SET updated_at = now()
		`, typed.ContentID, typed.TxHash, int64(typed.BlockNumber), int64(typed.Timestamp),
			typed.Pool, typed.Provider, typed.Action, typed.BaseToken, typed.QuoteToken,
			typed.BaseAmount.String(), typed.QuoteAmount.String(), typed.PositionID)
	case *model.Transfer:
		batch.Queue(`
			INSERT INTO transfers (
				content_id, tx_hash, block_number, ts, token, from_address, to_address, amount, unknown
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (content_id) DO UPDATE SET updated_at = now()
		`, typed.ContentID, typed.TxHash, int64(typed.BlockNumber), int64(typed.Timestamp),
			typed.Token, typed.From, typed.To, typed.Amount.String(), typed.Unknown)
	case *model.Reward:
		batch.Queue(`
			INSERT INTO rewards (
				content_id, tx_hash, block_number, ts, source, user_address, token, amount
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (content_id) DO UPDATE SET updated_at = now()
		`, typed.ContentID, typed.TxHash, int64(typed.BlockNumber), int64(typed.Timestamp),
			typed.Source, typed.User, typed.Token, typed.Amount.String())
	}
}

func queueTrade(batch *pgx.Batch, trade *model.Trade) {
	batch.Queue(`
		INSERT INTO trades (
			content_id, tx_hash, block_number, ts, taker, direction, trade_type,
			base_token, quote_token, base_amount, quote_amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (content_id) DO UPDATE SET
			trade_type = EXCLUDED.trade_type,
			updated_at = now()
	`, trade.ContentID, trade.TxHash, int64(trade.BlockNumber), int64(trade.Timestamp),
		trade.Taker, trade.Direction, trade.TradeType, trade.BaseToken, trade.QuoteToken,
		trade.BaseAmount.String(), trade.QuoteAmount.String())

	for _, swap := range trade.Swaps {
		queuePoolSwap(batch, swap, trade.ContentID)
	}
}

func queuePoolSwap(batch *pgx.Batch, swap *model.PoolSwap, tradeID string) {
	batch.Queue(`
		INSERT INTO pool_swaps (
			content_id, trade_id, tx_hash, block_number, ts, pool, taker, direction,
			base_token, quote_token, base_amount, quote_amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (content_id) DO UPDATE SET
			trade_id = EXCLUDED.trade_id,
			updated_at = now()
	`, swap.ContentID, tradeID, swap.TxHash, int64(swap.BlockNumber), int64(swap.Timestamp),
		swap.Pool, swap.Taker, swap.Direction, swap.BaseToken, swap.QuoteToken,
		swap.BaseAmount.String(), swap.QuoteAmount.String())
}

func queuePosition(batch *pgx.Batch, position *model.Position) {
	batch.Queue(`
		INSERT INTO positions (
			content_id, tx_hash, ts, event_id, user_address, token, amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (content_id) DO UPDATE SET updated_at = now()
	`, position.ContentID, position.TxHash, int64(position.Timestamp),
		position.EventID, position.User, position.Token, position.Amount.String())
}

func queueError(batch *pgx.Batch, pe *model.ProcessingError) {
	var logIndex *int64
	if pe.LogIndex != nil {
		value := int64(*pe.LogIndex)
		logIndex = &value
	}
	batch.Queue(`
		INSERT INTO processing_errors (
			content_id, stage, error_type, severity, message, tx_hash, contract, log_index
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (content_id) DO NOTHING
	`, pe.ContentID, pe.Stage, pe.ErrorType, pe.Severity, pe.Message,
		pe.TxHash, pe.Contract, logIndex)
}
