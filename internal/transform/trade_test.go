package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradescope/internal/config"
	"tradescope/internal/model"
)

func swapSig(logIndex uint64, pool, recipient string, base, quote int64) *model.SwapSignal {
	return &model.SwapSignal{
		LogIndex:    logIndex,
		Pool:        pool,
		Recipient:   recipient,
		BaseToken:   tokenA,
		QuoteToken:  tokenB,
		BaseAmount:  model.BigIntFromInt64(base),
		QuoteAmount: model.BigIntFromInt64(quote),
	}
}

func tradeRegistry(t *testing.T) *config.Registry {
	t.Helper()
	reg, err := config.ParseRegistry([]byte(`
tracked_tokens:
  - "` + tokenA + `"
  - "` + tokenB + `"
routers:
  - "` + router + `"
`))
	require.NoError(t, err)
	return reg
}

func singleTrade(t *testing.T, ctx *Context) *model.Trade {
	t.Helper()
	var trades []*model.Trade
	for _, event := range ctx.Events() {
		if trade, ok := event.(*model.Trade); ok {
			trades = append(trades, trade)
		}
	}
	require.Len(t, trades, 1)
	return trades[0]
}

func TestTradeSingleSwap(t *testing.T) {
	ctx := newTestContext([]model.Signal{
		transferSig(1, tokenA, alice, poolAddr, 100),
		transferSig(2, tokenB, poolAddr, alice, 200),
		swapSig(3, poolAddr, alice, 100, -200),
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	trade := singleTrade(t, ctx)
	require.Equal(t, model.DirectionBuy, trade.Direction)
	require.Equal(t, model.TradeTypeTrade, trade.TradeType)
	require.Equal(t, alice, trade.Taker)
	require.Equal(t, "100", trade.BaseAmount.String())
	require.Equal(t, "200", trade.QuoteAmount.String())
	require.Len(t, trade.Swaps, 1)
	require.Equal(t, []uint64{1, 2, 3}, trade.Swaps[0].Indices)

	require.True(t, ctx.IsConsumed(1))
	require.True(t, ctx.IsConsumed(2))
	require.True(t, ctx.IsConsumed(3))
	require.Empty(t, ctx.Errors())
}

func TestTradeBatchAggregation(t *testing.T) {
	// Two partial swaps on the same (pool, recipient) fold into one pool
	// event whose provenance lists both source log indices.
	ctx := newTestContext([]model.Signal{
		swapSig(1, poolAddr, alice, 60, -120),
		swapSig(2, poolAddr, alice, 40, -80),
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	trade := singleTrade(t, ctx)
	require.Len(t, trade.Swaps, 1)
	require.Equal(t, "100", trade.BaseAmount.String())
	require.Equal(t, "200", trade.QuoteAmount.String())
	require.Equal(t, []uint64{1, 2}, trade.Swaps[0].Indices)
}

func TestTradeArbitrageTagging(t *testing.T) {
	pool2 := "0x5555555555555555555555555555555555555555"
	ctx := newTestContext([]model.Signal{
		swapSig(1, poolAddr, alice, 100, -200),
		swapSig(2, pool2, bob, -100, 210),
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	var trades []*model.Trade
	for _, event := range ctx.Events() {
		trades = append(trades, event.(*model.Trade))
	}
	require.Len(t, trades, 2)
	for _, trade := range trades {
		require.Equal(t, model.TradeTypeArbitrage, trade.TradeType)
	}
}

func TestTradeArbitrageRequiresEqualVolumes(t *testing.T) {
	pool2 := "0x5555555555555555555555555555555555555555"
	ctx := newTestContext([]model.Signal{
		swapSig(1, poolAddr, alice, 100, -200),
		swapSig(2, pool2, bob, -90, 190),
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	for _, event := range ctx.Events() {
		require.Equal(t, model.TradeTypeTrade, event.(*model.Trade).TradeType)
	}
}

func TestTradeArbitrageExcludesIncomplete(t *testing.T) {
	// An incomplete trade contributes no volume to the netting and keeps
	// its tag even when the remaining volumes would otherwise balance.
	trades := []*model.Trade{
		{TradeType: model.TradeTypeIncomplete, Direction: model.DirectionBuy, BaseToken: tokenA, BaseAmount: model.BigIntFromInt64(100)},
		{TradeType: model.TradeTypeTrade, Direction: model.DirectionSell, BaseToken: tokenA, BaseAmount: model.BigIntFromInt64(100)},
	}

	NewTradeProcessor(tradeRegistry(t), nil).tagArbitrage(trades)

	require.Equal(t, model.TradeTypeIncomplete, trades[0].TradeType)
	require.Equal(t, model.TradeTypeTrade, trades[1].TradeType)
}

func TestTradeRouteDeficitReconciled(t *testing.T) {
	// The route declares 150 in, pools account for 100; the remaining 50
	// moved taker → router and reconciles the trade.
	ctx := newTestContext([]model.Signal{
		transferSig(1, tokenA, alice, poolAddr, 100),
		transferSig(2, tokenB, poolAddr, alice, 200),
		transferSig(3, tokenA, alice, router, 50),
		swapSig(4, poolAddr, alice, 100, -200),
		&model.RouteSignal{
			LogIndex:  5,
			Router:    router,
			Taker:     alice,
			TokenIn:   tokenA,
			TokenOut:  tokenB,
			AmountIn:  model.BigIntFromInt64(150),
			AmountOut: model.BigIntFromInt64(200),
		},
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	trade := singleTrade(t, ctx)
	require.Equal(t, model.TradeTypeTrade, trade.TradeType)
	require.Equal(t, "150", trade.BaseAmount.String())
	require.Equal(t, []uint64{3, 5}, trade.Indices)
	require.True(t, ctx.IsConsumed(3))
	require.Empty(t, ctx.Errors())
}

func TestTradeRouteMismatchIncomplete(t *testing.T) {
	ctx := newTestContext([]model.Signal{
		transferSig(1, tokenA, alice, poolAddr, 100),
		transferSig(2, tokenB, poolAddr, alice, 200),
		swapSig(3, poolAddr, alice, 100, -200),
		&model.RouteSignal{
			LogIndex:  4,
			Router:    router,
			Taker:     alice,
			TokenIn:   tokenA,
			TokenOut:  tokenB,
			AmountIn:  model.BigIntFromInt64(150),
			AmountOut: model.BigIntFromInt64(200),
		},
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	trade := singleTrade(t, ctx)
	require.Equal(t, model.TradeTypeIncomplete, trade.TradeType)

	errs := ctx.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, model.ErrRouterAmountMismatch, errs[0].ErrorType)
	require.Equal(t, model.SeverityError, errs[0].Severity)
}

func TestTradeRouterInference(t *testing.T) {
	// An unconfigured intermediate whose balance nets to zero on every
	// token is treated as a router; its transfers attach to the trade.
	hop := "0x6666666666666666666666666666666666666666"
	ctx := newTestContext([]model.Signal{
		transferSig(1, tokenA, alice, poolAddr, 100),
		transferSig(2, tokenB, poolAddr, hop, 200),
		transferSig(3, tokenB, hop, alice, 200),
		swapSig(4, poolAddr, hop, 100, -200),
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	trade := singleTrade(t, ctx)
	require.Equal(t, []uint64{3}, trade.Indices)
	require.True(t, ctx.IsConsumed(3))
	require.Empty(t, ctx.UnmatchedTransfers())
}

func TestTradeRouterInferenceRequiresZeroNet(t *testing.T) {
	// The intermediate keeps 10 of what passed through, so it is not a
	// transient router and its outbound transfer stays unmatched.
	hop := "0x6666666666666666666666666666666666666666"
	ctx := newTestContext([]model.Signal{
		transferSig(1, tokenA, alice, poolAddr, 100),
		transferSig(2, tokenB, poolAddr, hop, 200),
		transferSig(3, tokenB, hop, alice, 190),
		swapSig(4, poolAddr, hop, 100, -200),
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	trade := singleTrade(t, ctx)
	require.Empty(t, trade.Indices)
	require.False(t, ctx.IsConsumed(3))
}

func TestTradeSwapWithoutTransfers(t *testing.T) {
	// No matching pool transfers: the pool event is built from the signal
	// alone and the recipient stands in as taker.
	ctx := newTestContext([]model.Signal{
		swapSig(1, poolAddr, alice, -100, 200),
	})

	NewTradeProcessor(tradeRegistry(t), nil).Process(ctx)

	trade := singleTrade(t, ctx)
	require.Equal(t, model.DirectionSell, trade.Direction)
	require.Equal(t, alice, trade.Taker)
	require.Equal(t, []uint64{1}, trade.Swaps[0].Indices)
}
