package transform

import (
	"fmt"

	"tradescope/internal/config"
	"tradescope/internal/model"
)

// Leg is one expected transfer implied by a pattern. Amount nil means the
// matcher infers it from the ledger. MinCount 0 marks the leg optional.
type Leg struct {
	Token    string
	From     string
	To       string
	Amount   *model.BigInt
	MinCount int
	MaxCount int
}

func requiredLeg(token, from, to string, amount *model.BigInt) Leg {
	return Leg{Token: token, From: from, To: to, Amount: amount, MinCount: 1, MaxCount: 1}
}

func optionalLeg(token, from, to string, amount *model.BigInt) Leg {
	return Leg{Token: token, From: from, To: to, Amount: amount, MinCount: 0, MaxCount: 1}
}

// Pattern produces (never searches for) the ordered legs expected for one
// signal. Matching against the ledger is the matcher's job.
type Pattern interface {
	Name() string
	Legs(sig model.Signal, ctx *Context) ([]Leg, error)
}

// PatternRegistry is the immutable pattern-name lookup table.
type PatternRegistry struct {
	patterns map[string]Pattern
}

// NewPatternRegistry registers the built-in patterns.
func NewPatternRegistry(reg *config.Registry) *PatternRegistry {
	r := &PatternRegistry{patterns: make(map[string]Pattern)}
	for _, p := range []Pattern{
		&liquidityAddPattern{registry: reg},
		&liquidityRemovePattern{registry: reg},
		&positionIncreasePattern{},
		&positionDecreasePattern{},
		&rewardClaimPattern{},
	} {
		r.patterns[p.Name()] = p
	}
	return r
}

// Get returns the pattern registered under name.
func (r *PatternRegistry) Get(name string) (Pattern, bool) {
	p, ok := r.patterns[name]
	return p, ok
}

func asLiquidity(sig model.Signal) (*model.LiquiditySignal, error) {
	liq, ok := sig.(*model.LiquiditySignal)
	if !ok {
		return nil, fmt.Errorf("expected liquidity signal, got %s", sig.Kind())
	}
	return liq, nil
}

// liquidityAddPattern: base and quote legs provider→pool, receipt leg
// zero→provider when a receipt token is configured, optional fee-receipt
// leg zero→feeCollector.
type liquidityAddPattern struct {
	registry *config.Registry
}

func (p *liquidityAddPattern) Name() string { return "liquidity_add" }

func (p *liquidityAddPattern) Legs(sig model.Signal, _ *Context) ([]Leg, error) {
	liq, err := asLiquidity(sig)
	if err != nil {
		return nil, err
	}

	var legs []Leg
	if !liq.BaseAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.BaseToken, liq.Provider, liq.Pool, liq.BaseAmount))
	}
	if !liq.QuoteAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.QuoteToken, liq.Provider, liq.Pool, liq.QuoteAmount))
	}
	if liq.ReceiptToken != "" {
		legs = append(legs, requiredLeg(liq.ReceiptToken, model.ZeroAddress, liq.Provider, nil))
		if collector := p.feeCollector(liq.Pool); collector != "" {
			legs = append(legs, optionalLeg(liq.ReceiptToken, model.ZeroAddress, collector, nil))
		}
	}
	return legs, nil
}

func (p *liquidityAddPattern) feeCollector(pool string) string {
	if p.registry == nil {
		return ""
	}
	contract, ok := p.registry.Contract(pool)
	if !ok {
		return ""
	}
	return contract.FeeCollector
}

// liquidityRemovePattern mirrors the add pattern: tokens flow pool→provider
// and the receipt is burned.
type liquidityRemovePattern struct {
	registry *config.Registry
}

func (p *liquidityRemovePattern) Name() string { return "liquidity_remove" }

func (p *liquidityRemovePattern) Legs(sig model.Signal, _ *Context) ([]Leg, error) {
	liq, err := asLiquidity(sig)
	if err != nil {
		return nil, err
	}

	var legs []Leg
	if !liq.BaseAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.BaseToken, liq.Pool, liq.Provider, liq.BaseAmount))
	}
	if !liq.QuoteAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.QuoteToken, liq.Pool, liq.Provider, liq.QuoteAmount))
	}
	if liq.ReceiptToken != "" {
		legs = append(legs, requiredLeg(liq.ReceiptToken, liq.Provider, model.ZeroAddress, nil))
	}
	return legs, nil
}

// positionIncreasePattern: token legs provider→manager; the position NFT
// itself is not a transfer leg.
type positionIncreasePattern struct{}

func (p *positionIncreasePattern) Name() string { return "position_increase" }

func (p *positionIncreasePattern) Legs(sig model.Signal, _ *Context) ([]Leg, error) {
	liq, err := asLiquidity(sig)
	if err != nil {
		return nil, err
	}

	var legs []Leg
	if !liq.BaseAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.BaseToken, liq.Provider, liq.Pool, liq.BaseAmount))
	}
	if !liq.QuoteAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.QuoteToken, liq.Provider, liq.Pool, liq.QuoteAmount))
	}
	return legs, nil
}

type positionDecreasePattern struct{}

func (p *positionDecreasePattern) Name() string { return "position_decrease" }

func (p *positionDecreasePattern) Legs(sig model.Signal, _ *Context) ([]Leg, error) {
	liq, err := asLiquidity(sig)
	if err != nil {
		return nil, err
	}

	var legs []Leg
	if !liq.BaseAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.BaseToken, liq.Pool, liq.Provider, liq.BaseAmount))
	}
	if !liq.QuoteAmount.IsZero() {
		legs = append(legs, requiredLeg(liq.QuoteToken, liq.Pool, liq.Provider, liq.QuoteAmount))
	}
	return legs, nil
}

// rewardClaimPattern: one token leg source→user.
type rewardClaimPattern struct{}

func (p *rewardClaimPattern) Name() string { return "reward_claim" }

func (p *rewardClaimPattern) Legs(sig model.Signal, _ *Context) ([]Leg, error) {
	reward, ok := sig.(*model.RewardSignal)
	if !ok {
		return nil, fmt.Errorf("expected reward signal, got %s", sig.Kind())
	}
	return []Leg{requiredLeg(reward.Token, reward.Source, reward.User, reward.Amount)}, nil
}
