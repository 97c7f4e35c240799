package signal

import (
	"tradescope/internal/config"
	"tradescope/internal/model"
)

// positionManagerTransformer interprets concentrated-liquidity position
// manager events. Positions are identified by token id; the receipt token
// is the manager's position NFT, so no receipt transfer leg is expected.
type positionManagerTransformer struct {
	dispatcher
}

func newPositionManagerTransformer(contract config.ContractConfig) *positionManagerTransformer {
	t := &positionManagerTransformer{dispatcher{contract: contract}}
	t.handlers = map[string]handlerFunc{
		"IncreaseLiquidity": t.increase,
		"DecreaseLiquidity": t.decrease,
	}
	return t
}

func (t *positionManagerTransformer) increase(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	return t.change(log, model.LiquidityAdd, "position_increase")
}

func (t *positionManagerTransformer) decrease(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	return t.change(log, model.LiquidityRemove, "position_decrease")
}

func (t *positionManagerTransformer) change(log model.DecodedLog, action model.LiquidityAction, pattern string) (model.Signal, error) {
	provider, err := firstAttrAddress(log, "owner", "sender")
	if err != nil {
		return nil, err
	}
	positionID := optionalAttr(log, "token_id")
	if positionID == "" {
		return nil, missingAttr("token_id")
	}

	amount0, err := attrAmount(log, "amount0")
	if err != nil {
		return nil, err
	}
	amount1, err := attrAmount(log, "amount1")
	if err != nil {
		return nil, err
	}
	if amount0.IsZero() && amount1.IsZero() {
		return nil, zeroAmounts()
	}

	base, quote := amount1, amount0
	if t.contract.BaseIsToken0 {
		base, quote = amount0, amount1
	}

	return &model.LiquiditySignal{
		LogIndex:    log.LogIndex,
		Pool:        t.contract.Address,
		Provider:    provider,
		Action:      action,
		BaseToken:   t.contract.BaseToken,
		QuoteToken:  t.contract.QuoteToken,
		BaseAmount:  base.AbsValue(),
		QuoteAmount: quote.AbsValue(),
		PositionID:  positionID,
		PatternName: pattern,
	}, nil
}
