package transform

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"tradescope/internal/config"
	"tradescope/internal/model"
	"tradescope/internal/signal"
)

// Manager is the transform engine: signals → domain events → reconciliation
// → finalized transaction. Single-threaded and synchronous per transaction;
// no state survives across transactions.
type Manager struct {
	registry *config.Registry
	signals  *signal.Registry
	patterns *PatternRegistry
	logger   *zap.Logger
}

func NewManager(registry *config.Registry, signals *signal.Registry, patterns *PatternRegistry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		registry: registry,
		signals:  signals,
		patterns: patterns,
		logger:   logger,
	}
}

// ProcessTransaction transforms one transaction. Reverted or log-less
// transactions pass through unchanged. A panic anywhere inside the engine
// is captured as a processing_exception on the original transaction.
func (m *Manager) ProcessTransaction(tx model.Transaction) (out model.Transaction) {
	if !tx.Processable() {
		return tx
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("transform panic",
				zap.String("tx_hash", tx.TxHash),
				zap.Any("panic", r),
			)
			out = tx
			out.Errors = append(out.Errors, model.NewTransformError(
				model.ErrProcessingException,
				fmt.Sprintf("panic: %v", r),
				tx.TxHash, "", nil))
		}
	}()

	signals, errors := m.produceSignals(&tx)
	ctx := NewContext(&tx, signals, m.registry.IsTracked)
	for _, pe := range errors {
		ctx.AddError(pe)
	}

	processors := []Processor{
		NewLiquidityProcessor(m.patterns, m.logger),
		NewRewardProcessor(m.patterns, m.logger),
		NewTradeProcessor(m.registry, m.logger),
		NewReconciler(m.logger),
	}
	for _, processor := range processors {
		processor.Process(ctx)
	}

	tx.Signals = ctx.Signals()
	tx.Events = ctx.Events()
	tx.Positions = ctx.Positions()
	tx.Errors = append(tx.Errors, ctx.Errors()...)
	tx.Transformed = true

	m.logger.Debug("transaction transformed",
		zap.String("tx_hash", tx.TxHash),
		zap.Int("signals", len(tx.Signals)),
		zap.Int("events", len(tx.Events)),
		zap.Int("positions", len(tx.Positions)),
		zap.Int("errors", len(tx.Errors)),
	)

	return tx
}

// produceSignals groups logs by contract and runs the registered
// transformer for each. Logs of unknown contracts are silently skipped.
func (m *Manager) produceSignals(tx *model.Transaction) ([]model.Signal, []model.ProcessingError) {
	byContract := make(map[string][]model.DecodedLog)
	var order []string
	for _, log := range tx.Logs {
		addr, err := model.NormalizeAddress(log.Address)
		if err != nil {
			continue
		}
		if _, ok := byContract[addr]; !ok {
			order = append(order, addr)
		}
		byContract[addr] = append(byContract[addr], log)
	}
	sort.Strings(order)

	var signals []model.Signal
	var errors []model.ProcessingError
	for _, addr := range order {
		transformer, ok := m.signals.For(addr)
		if !ok {
			continue
		}
		emitted, failed := transformer.Transform(byContract[addr], tx)
		signals = append(signals, emitted...)
		errors = append(errors, failed...)
	}

	sort.Slice(signals, func(i, j int) bool { return signals[i].Index() < signals[j].Index() })
	return signals, errors
}

// ProcessBlock transforms every transaction of a block envelope in order.
func (m *Manager) ProcessBlock(envelope *model.BlockEnvelope) {
	for i := range envelope.Transactions {
		envelope.Transactions[i] = m.ProcessTransaction(envelope.Transactions[i])
	}
}
