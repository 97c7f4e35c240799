package transform

import (
	"go.uber.org/zap"

	"tradescope/internal/model"
)

// Processor runs one business domain over the transaction context.
type Processor interface {
	Process(ctx *Context)
}

// LiquidityProcessor matches liquidity signals to their transfer patterns.
// Signals that fail matching are re-queued for a second pass (earlier
// consumption can disambiguate the ledger) and finally constructed directly
// from the signal alone.
type LiquidityProcessor struct {
	patterns *PatternRegistry
	matcher  *Matcher
	logger   *zap.Logger
}

func NewLiquidityProcessor(patterns *PatternRegistry, logger *zap.Logger) *LiquidityProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiquidityProcessor{patterns: patterns, matcher: &Matcher{}, logger: logger}
}

func (p *LiquidityProcessor) Process(ctx *Context) {
	pending := ctx.SignalsByKind(model.KindLiquidity)

	for pass := 0; pass < 2 && len(pending) > 0; pass++ {
		var retry []model.Signal
		for _, sig := range pending {
			if ctx.IsConsumed(sig.Index()) {
				continue
			}
			if !p.tryPattern(ctx, sig.(*model.LiquiditySignal), pass == 0) {
				retry = append(retry, sig)
			}
		}
		pending = retry
	}

	for _, sig := range pending {
		if ctx.IsConsumed(sig.Index()) {
			continue
		}
		p.emit(ctx, sig.(*model.LiquiditySignal), nil)
	}
}

// tryPattern resolves the signal's pattern against the ledger. A Legs error
// is deterministic for a given signal, so it is recorded on the first pass
// only; retries would duplicate it.
func (p *LiquidityProcessor) tryPattern(ctx *Context, liq *model.LiquiditySignal, recordErrors bool) bool {
	pattern, ok := p.patterns.Get(liq.PatternName)
	if !ok {
		return false
	}
	legs, err := pattern.Legs(liq, ctx)
	if err != nil {
		if recordErrors {
			logIndex := liq.LogIndex
			ctx.AddError(model.NewTransformError(
				model.ErrInvalidAttribute, err.Error(), ctx.Tx.TxHash, liq.Pool, &logIndex))
		}
		return false
	}
	match, ok := p.matcher.MatchPattern(legs, ctx)
	if !ok {
		return false
	}
	p.emit(ctx, liq, match.Indices)
	return true
}

func (p *LiquidityProcessor) emit(ctx *Context, liq *model.LiquiditySignal, matched []uint64) {
	indices := append([]uint64{liq.LogIndex}, matched...)

	event := &model.Liquidity{
		TxHash:      ctx.Tx.TxHash,
		BlockNumber: ctx.Tx.BlockNumber,
		Timestamp:   ctx.Tx.Timestamp,
		Pool:        liq.Pool,
		Provider:    liq.Provider,
		Action:      string(liq.Action),
		BaseToken:   liq.BaseToken,
		QuoteToken:  liq.QuoteToken,
		BaseAmount:  liq.BaseAmount,
		QuoteAmount: liq.QuoteAmount,
		PositionID:  liq.PositionID,
		Indices:     indices,
	}
	event.Seal()

	ctx.MarkConsumed(indices...)
	ctx.AddEvent(event)
	ctx.AddTransferPositions(event.ContentID, ctx.ConsumedTransfers(matched))
}

// RewardProcessor matches reward claims to their payout transfer.
type RewardProcessor struct {
	patterns *PatternRegistry
	matcher  *Matcher
	logger   *zap.Logger
}

func NewRewardProcessor(patterns *PatternRegistry, logger *zap.Logger) *RewardProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardProcessor{patterns: patterns, matcher: &Matcher{}, logger: logger}
}

func (p *RewardProcessor) Process(ctx *Context) {
	for _, sig := range ctx.SignalsByKind(model.KindReward) {
		if ctx.IsConsumed(sig.Index()) {
			continue
		}
		reward := sig.(*model.RewardSignal)

		var matched []uint64
		if pattern, ok := p.patterns.Get(reward.PatternName); ok {
			if legs, err := pattern.Legs(reward, ctx); err == nil {
				if match, ok := p.matcher.MatchPattern(legs, ctx); ok {
					matched = match.Indices
				}
			}
		}

		indices := append([]uint64{reward.LogIndex}, matched...)
		event := &model.Reward{
			TxHash:      ctx.Tx.TxHash,
			BlockNumber: ctx.Tx.BlockNumber,
			Timestamp:   ctx.Tx.Timestamp,
			Source:      reward.Source,
			User:        reward.User,
			Token:       reward.Token,
			Amount:      reward.Amount,
			Indices:     indices,
		}
		event.Seal()

		ctx.MarkConsumed(indices...)
		ctx.AddEvent(event)
		ctx.AddTransferPositions(event.ContentID, ctx.ConsumedTransfers(matched))
	}
}
