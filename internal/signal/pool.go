package signal

import (
	"tradescope/internal/config"
	"tradescope/internal/model"
)

// poolTransformer interprets AMM pool events. Amounts are reported on the
// configured base-token axis; decoded amounts are pool-perspective, so a
// positive base amount means the pool received base (buy pressure). That
// sign must survive unchanged into the swap signal.
type poolTransformer struct {
	dispatcher
}

func newPoolTransformer(contract config.ContractConfig) *poolTransformer {
	t := &poolTransformer{dispatcher{contract: contract}}
	t.handlers = map[string]handlerFunc{
		"Swap": t.swap,
		"Mint": t.mint,
		"Burn": t.burn,
	}
	return t
}

// baseQuote maps decoded amount0/amount1 onto the base axis.
func (t *poolTransformer) baseQuote(log model.DecodedLog) (*model.BigInt, *model.BigInt, error) {
	amount0, err := attrAmount(log, "amount0")
	if err != nil {
		return nil, nil, err
	}
	amount1, err := attrAmount(log, "amount1")
	if err != nil {
		return nil, nil, err
	}
	if amount0.IsZero() && amount1.IsZero() {
		return nil, nil, zeroAmounts()
	}
	if t.contract.BaseIsToken0 {
		return amount0, amount1, nil
	}
	return amount1, amount0, nil
}

func (t *poolTransformer) swap(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	recipient, err := firstAttrAddress(log, "recipient", "to")
	if err != nil {
		return nil, err
	}
	base, quote, err := t.baseQuote(log)
	if err != nil {
		return nil, err
	}

	return &model.SwapSignal{
		LogIndex:    log.LogIndex,
		Pool:        t.contract.Address,
		Recipient:   recipient,
		BaseToken:   t.contract.BaseToken,
		QuoteToken:  t.contract.QuoteToken,
		BaseAmount:  base,
		QuoteAmount: quote,
	}, nil
}

func (t *poolTransformer) mint(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	return t.liquidity(log, model.LiquidityAdd, "liquidity_add")
}

func (t *poolTransformer) burn(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	return t.liquidity(log, model.LiquidityRemove, "liquidity_remove")
}

func (t *poolTransformer) liquidity(log model.DecodedLog, action model.LiquidityAction, pattern string) (model.Signal, error) {
	provider, err := firstAttrAddress(log, "owner", "sender")
	if err != nil {
		return nil, err
	}
	base, quote, err := t.baseQuote(log)
	if err != nil {
		return nil, err
	}

	return &model.LiquiditySignal{
		LogIndex:     log.LogIndex,
		Pool:         t.contract.Address,
		Provider:     provider,
		Action:       action,
		BaseToken:    t.contract.BaseToken,
		QuoteToken:   t.contract.QuoteToken,
		BaseAmount:   base.AbsValue(),
		QuoteAmount:  quote.AbsValue(),
		ReceiptToken: t.contract.ReceiptToken,
		PatternName:  pattern,
	}, nil
}
