package signal

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"tradescope/internal/config"
	"tradescope/internal/model"
)

// Transformer maps the decoded logs of one contract into signals. Pure: no
// side effects, no chain I/O; failures come back as structured errors.
type Transformer interface {
	Transform(logs []model.DecodedLog, tx *model.Transaction) ([]model.Signal, []model.ProcessingError)
}

// handlerFunc interprets one decoded log. A nil signal with nil error means
// the log is intentionally ignored.
type handlerFunc func(log model.DecodedLog, tx *model.Transaction) (model.Signal, error)

// dispatcher is the shared event-name dispatch table. Concrete transformers
// only differ in their handler tables and contract config.
type dispatcher struct {
	contract config.ContractConfig
	handlers map[string]handlerFunc
}

func (d *dispatcher) Transform(logs []model.DecodedLog, tx *model.Transaction) ([]model.Signal, []model.ProcessingError) {
	sorted := make([]model.DecodedLog, len(logs))
	copy(sorted, logs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LogIndex < sorted[j].LogIndex })

	var signals []model.Signal
	var errors []model.ProcessingError

	for _, log := range sorted {
		handler, ok := d.handlers[log.EventName]
		if !ok {
			continue
		}
		sig, err := handler(log, tx)
		if err != nil {
			logIndex := log.LogIndex
			errors = append(errors, model.NewTransformError(
				errorType(err), err.Error(), tx.TxHash, log.Address, &logIndex))
			continue
		}
		if sig != nil {
			signals = append(signals, sig)
		}
	}

	return signals, errors
}

// Registry maps contract addresses to transformer instances. Built once at
// startup, immutable afterwards; unknown contracts are skipped by callers.
type Registry struct {
	transformers map[string]Transformer
	logger       *zap.Logger
}

// NewRegistry builds transformers for every configured contract.
func NewRegistry(reg *config.Registry, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := &Registry{
		transformers: make(map[string]Transformer),
		logger:       logger,
	}

	for _, contract := range reg.Contracts() {
		transformer, err := newTransformer(contract)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", contract.Address, err)
		}
		out.transformers[contract.Address] = transformer
	}

	logger.Info("signal registry built", zap.Int("contracts", len(out.transformers)))
	return out, nil
}

func newTransformer(contract config.ContractConfig) (Transformer, error) {
	switch contract.Kind {
	case config.KindToken:
		return newTokenTransformer(contract), nil
	case config.KindPool:
		return newPoolTransformer(contract), nil
	case config.KindPositionManager:
		return newPositionManagerTransformer(contract), nil
	case config.KindRouter:
		return newRouterTransformer(contract), nil
	case config.KindFarm:
		return newFarmTransformer(contract), nil
	case config.KindAuction:
		return newAuctionTransformer(contract), nil
	default:
		return nil, fmt.Errorf("unsupported kind: %s", contract.Kind)
	}
}

// For returns the transformer for a normalized contract address.
func (r *Registry) For(address string) (Transformer, bool) {
	transformer, ok := r.transformers[address]
	return transformer, ok
}
