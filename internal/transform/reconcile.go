package transform

import (
	"fmt"

	"go.uber.org/zap"

	"tradescope/internal/model"
)

// Reconciler runs last and guarantees completeness: every tracked-token
// transfer ends up referenced by exactly one event. Leftovers become
// UnknownTransfer events; anything still unaccounted after that is an
// internal-consistency defect, not a data problem.
type Reconciler struct {
	logger *zap.Logger
}

func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

func (r *Reconciler) Process(ctx *Context) {
	for _, transfer := range ctx.UnmatchedTransfers() {
		if !ctx.IsTracked(transfer.Token) {
			continue
		}

		event := &model.Transfer{
			TxHash:      ctx.Tx.TxHash,
			BlockNumber: ctx.Tx.BlockNumber,
			Timestamp:   ctx.Tx.Timestamp,
			Token:       transfer.Token,
			From:        transfer.From,
			To:          transfer.To,
			Amount:      transfer.Amount,
			Unknown:     true,
			Indices:     []uint64{transfer.LogIndex},
		}
		event.Seal()

		ctx.MarkConsumed(transfer.LogIndex)
		ctx.AddEvent(event)
		ctx.AddTransferPositions(event.ContentID, []*model.TransferSignal{transfer})
	}

	r.verify(ctx)
}

// verify re-scans the finished context: every tracked transfer must be
// referenced by exactly one event. A violation is an aggregation bug and
// is recorded at critical severity; the transaction is still finalized.
func (r *Reconciler) verify(ctx *Context) {
	references := make(map[uint64]int)
	count := func(indices []uint64) {
		for _, logIndex := range indices {
			if _, ok := ctx.Transfer(logIndex); ok {
				references[logIndex]++
			}
		}
	}
	for _, event := range ctx.Events() {
		count(event.SignalIndices())
		if trade, ok := event.(*model.Trade); ok {
			for _, swap := range trade.Swaps {
				count(swap.Indices)
			}
		}
	}

	for _, sig := range ctx.SignalsByKind(model.KindTransfer) {
		transfer := sig.(*model.TransferSignal)
		if !ctx.IsTracked(transfer.Token) {
			continue
		}
		refs := references[transfer.LogIndex]
		if refs == 1 {
			continue
		}

		logIndex := transfer.LogIndex
		ctx.AddError(model.NewTransformError(
			model.ErrReconciliationViolation,
			fmt.Sprintf("tracked transfer at log %d referenced by %d events", logIndex, refs),
			ctx.Tx.TxHash, transfer.Token, &logIndex))
		r.logger.Error("reconciliation violation",
			zap.String("tx_hash", ctx.Tx.TxHash),
			zap.Uint64("log_index", logIndex),
			zap.String("token", transfer.Token),
			zap.Int("references", refs),
		)
	}
}
