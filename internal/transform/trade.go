package transform

import (
	"fmt"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"tradescope/internal/config"
	"tradescope/internal/model"
)

// TradeProcessor composes per-pool swap matches into trader-facing trades:
// batch aggregation, route context, 1:1 pool matching, router
// classification and inference, trade synthesis, arbitrage tagging.
type TradeProcessor struct {
	registry *config.Registry
	matcher  *Matcher
	logger   *zap.Logger
}

func NewTradeProcessor(registry *config.Registry, logger *zap.Logger) *TradeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeProcessor{registry: registry, matcher: &Matcher{}, logger: logger}
}

// routeContext captures what the transaction's route signals declare. The
// highest-log-index route signal is the outermost call.
type routeContext struct {
	outermost *model.RouteSignal
	taker     string
	routers   map[string]bool
	indices   []uint64
}

// poolMatch pairs a swap signal with its pool-level event and the matched
// pool transfers, when found.
type poolMatch struct {
	swap        *model.SwapSignal
	event       *model.PoolSwap
	inTransfer  *model.TransferSignal
	outTransfer *model.TransferSignal
}

func (p *TradeProcessor) Process(ctx *Context) {
	swaps := p.aggregateBatches(ctx)
	if len(swaps) == 0 {
		return
	}

	route := p.routeContext(ctx)
	matches := p.matchPools(ctx, swaps)
	routerTransfers, _ := p.classifyRouters(ctx, route, matches)
	trades := p.synthesize(ctx, matches, route, routerTransfers)
	p.tagArbitrage(trades)

	for _, trade := range trades {
		ctx.AddEvent(trade)
	}
}

// aggregateBatches sums identical-pool partial swaps sharing
// (pool, recipient) into one synthetic swap signal, preserving the
// originals as provenance through SourceIndices.
func (p *TradeProcessor) aggregateBatches(ctx *Context) []*model.SwapSignal {
	type key struct {
		pool      string
		recipient string
	}
	groups := make(map[key][]*model.SwapSignal)
	var order []key

	for _, sig := range ctx.SignalsByKind(model.KindSwap) {
		if ctx.IsConsumed(sig.Index()) {
			continue
		}
		swap := sig.(*model.SwapSignal)
		k := key{pool: swap.Pool, recipient: swap.Recipient}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], swap)
	}

	out := make([]*model.SwapSignal, 0, len(order))
	for _, k := range order {
		group := groups[k]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}

		base := new(model.BigInt)
		quote := new(model.BigInt)
		var indices []uint64
		var top uint64
		for _, swap := range group {
			base.Add(&base.Int, &swap.BaseAmount.Int)
			quote.Add(&quote.Int, &swap.QuoteAmount.Int)
			indices = append(indices, swap.LogIndex)
			if swap.LogIndex > top {
				top = swap.LogIndex
			}
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

		out = append(out, &model.SwapSignal{
			LogIndex:      top,
			Pool:          k.pool,
			Recipient:     k.recipient,
			BaseToken:     group[0].BaseToken,
			QuoteToken:    group[0].QuoteToken,
			BaseAmount:    base,
			QuoteAmount:   quote,
			SourceIndices: indices,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LogIndex < out[j].LogIndex })
	return out
}

func (p *TradeProcessor) routeContext(ctx *Context) *routeContext {
	routes := ctx.SignalsByKind(model.KindRoute)
	if len(routes) == 0 {
		return nil
	}

	rc := &routeContext{routers: make(map[string]bool)}
	for _, sig := range routes {
		route := sig.(*model.RouteSignal)
		rc.indices = append(rc.indices, route.LogIndex)
		rc.routers[route.Router] = true
		for _, addr := range route.Routers {
			rc.routers[addr] = true
		}
		if rc.outermost == nil || route.LogIndex > rc.outermost.LogIndex {
			rc.outermost = route
		}
	}
	rc.taker = rc.outermost.Taker
	return rc
}

// matchPools resolves each swap signal to exactly one inbound and one
// outbound pool transfer. Amounts come from the signal, so the ledger is
// pre-filtered to the exact amount. A swap whose transfers cannot be found
// still yields a pool-level event built from the signal alone.
func (p *TradeProcessor) matchPools(ctx *Context, swaps []*model.SwapSignal) []*poolMatch {
	matches := make([]*poolMatch, 0, len(swaps))

	for _, swap := range swaps {
		inToken, inAmount := swap.BaseToken, swap.BaseAmount
		outToken, outAmount := swap.QuoteToken, swap.QuoteAmount
		if swap.BaseAmount.Sign() < 0 {
			inToken, inAmount = swap.QuoteToken, swap.QuoteAmount
			outToken, outAmount = swap.BaseToken, swap.BaseAmount
		}

		used := make(map[uint64]bool)
		inTransfer, inOK := p.matcher.MatchOne(Leg{
			Token: inToken, To: swap.Pool, Amount: inAmount.AbsValue(),
		}, ctx, used)
		if inOK {
			used[inTransfer.LogIndex] = true
		}
		outTransfer, outOK := p.matcher.MatchOne(Leg{
			Token: outToken, From: swap.Pool, Amount: outAmount.AbsValue(),
		}, ctx, used)

		match := &poolMatch{swap: swap}
		indices := swap.Constituents()
		taker := swap.Recipient

		if inOK && outOK {
			match.inTransfer = inTransfer
			match.outTransfer = outTransfer
			taker = outTransfer.To
			indices = append(indices, inTransfer.LogIndex, outTransfer.LogIndex)
		}

		direction := model.DirectionSell
		if swap.BaseAmount.Sign() > 0 {
			direction = model.DirectionBuy
		}

		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		event := &model.PoolSwap{
			TxHash:      ctx.Tx.TxHash,
			BlockNumber: ctx.Tx.BlockNumber,
			Timestamp:   ctx.Tx.Timestamp,
			Pool:        swap.Pool,
			Taker:       taker,
			Direction:   direction,
			BaseToken:   swap.BaseToken,
			QuoteToken:  swap.QuoteToken,
			BaseAmount:  swap.BaseAmount,
			QuoteAmount: swap.QuoteAmount,
			Indices:     indices,
		}
		event.Seal()
		match.event = event

		ctx.MarkConsumed(indices...)
		if inOK && outOK {
			ctx.AddTransferPositions(event.ContentID,
				[]*model.TransferSignal{inTransfer, outTransfer})
		}

		matches = append(matches, match)
	}

	return matches
}

// classifyRouters splits the remaining unmatched transfers into router
// transfers and everything else. A transfer touches a router if either
// endpoint is a known router (declared by a route signal or configured),
// or an inferred one: a non-taker address whose unmatched balance nets to
// exactly zero on every token it touched.
func (p *TradeProcessor) classifyRouters(ctx *Context, route *routeContext, matches []*poolMatch) ([]*model.TransferSignal, map[string]bool) {
	unmatched := ctx.UnmatchedTransfers()
	if len(unmatched) == 0 {
		return nil, nil
	}

	known := make(map[string]bool)
	if route != nil {
		for addr := range route.routers {
			known[addr] = true
		}
	}

	pools := make(map[string]bool, len(matches))
	for _, match := range matches {
		pools[match.swap.Pool] = true
	}

	taker := ""
	if route != nil {
		taker = route.taker
	}

	isKnown := func(addr string) bool {
		return known[addr] || p.registry.IsKnownRouter(addr)
	}

	// Net per-token balances for inference, over every transfer in the
	// transaction: an intermediate's inbound leg is often already matched
	// to a pool swap, so unmatched transfers alone understate its flow.
	balances := make(map[string]map[string]*big.Int)
	inbound := make(map[string]int)
	outbound := make(map[string]int)
	for _, sig := range ctx.SignalsByKind(model.KindTransfer) {
		transfer := sig.(*model.TransferSignal)
		for _, addr := range []string{transfer.From, transfer.To} {
			if balances[addr] == nil {
				balances[addr] = make(map[string]*big.Int)
			}
			if balances[addr][transfer.Token] == nil {
				balances[addr][transfer.Token] = new(big.Int)
			}
		}
		balances[transfer.From][transfer.Token].Sub(balances[transfer.From][transfer.Token], &transfer.Amount.Int)
		balances[transfer.To][transfer.Token].Add(balances[transfer.To][transfer.Token], &transfer.Amount.Int)
		outbound[transfer.From]++
		inbound[transfer.To]++
	}

	inferred := make(map[string]bool)
	for addr, perToken := range balances {
		if addr == taker || isKnown(addr) || pools[addr] || model.IsZeroAddress(addr) {
			continue
		}
		if inbound[addr] == 0 || outbound[addr] == 0 {
			continue
		}
		transient := true
		for _, net := range perToken {
			if net.Sign() != 0 {
				transient = false
				break
			}
		}
		if transient {
			inferred[addr] = true
		}
	}

	routerSet := make(map[string]bool, len(known)+len(inferred))
	for addr := range known {
		routerSet[addr] = true
	}
	for addr := range inferred {
		routerSet[addr] = true
	}

	var routerTransfers []*model.TransferSignal
	for _, transfer := range unmatched {
		if routerSet[transfer.From] || routerSet[transfer.To] ||
			p.registry.IsKnownRouter(transfer.From) || p.registry.IsKnownRouter(transfer.To) {
			routerTransfers = append(routerTransfers, transfer)
		}
	}

	return routerTransfers, routerSet
}

// tradeGroup accumulates pool matches for one (taker, base token) pair.
type tradeGroup struct {
	taker     string
	baseToken string
	matches   []*poolMatch
}

func (p *TradeProcessor) synthesize(ctx *Context, matches []*poolMatch, route *routeContext, routerTransfers []*model.TransferSignal) []*model.Trade {
	if len(matches) == 0 {
		return nil
	}

	groups := make(map[string]*tradeGroup)
	var order []string
	for _, match := range matches {
		taker := match.event.Taker
		if route != nil && route.taker != "" {
			taker = route.taker
		}
		key := taker + "|" + match.swap.BaseToken
		group, ok := groups[key]
		if !ok {
			group = &tradeGroup{taker: taker, baseToken: match.swap.BaseToken}
			groups[key] = group
			order = append(order, key)
		}
		group.matches = append(group.matches, match)
	}
	sort.Strings(order)

	assigned := p.assignRouterTransfers(order, groups, routerTransfers)

	var trades []*model.Trade
	for _, key := range order {
		group := groups[key]
		trade := p.buildTrade(ctx, group, route, assigned[key])
		trades = append(trades, trade)
	}
	return trades
}

// assignRouterTransfers distributes router transfers across trade groups:
// by token membership first, remainder to the first group.
func (p *TradeProcessor) assignRouterTransfers(order []string, groups map[string]*tradeGroup, routerTransfers []*model.TransferSignal) map[string][]*model.TransferSignal {
	assigned := make(map[string][]*model.TransferSignal)
	if len(routerTransfers) == 0 || len(order) == 0 {
		return assigned
	}
	if len(order) == 1 {
		assigned[order[0]] = routerTransfers
		return assigned
	}

	for _, transfer := range routerTransfers {
		target := ""
		for _, key := range order {
			group := groups[key]
			if group.baseToken == transfer.Token {
				target = key
				break
			}
			for _, match := range group.matches {
				if match.swap.QuoteToken == transfer.Token {
					target = key
					break
				}
			}
			if target != "" {
				break
			}
		}
		if target == "" {
			target = order[0]
		}
		assigned[target] = append(assigned[target], transfer)
	}
	return assigned
}

func (p *TradeProcessor) buildTrade(ctx *Context, group *tradeGroup, route *routeContext, routerTransfers []*model.TransferSignal) *model.Trade {
	netBase := new(big.Int)
	netQuote := new(big.Int)
	quoteToken := ""
	var swaps []*model.PoolSwap
	for _, match := range group.matches {
		netBase.Add(netBase, &match.swap.BaseAmount.Int)
		netQuote.Add(netQuote, &match.swap.QuoteAmount.Int)
		quoteToken = match.swap.QuoteToken
		swaps = append(swaps, match.event)
	}

	direction := model.DirectionSell
	if netBase.Sign() > 0 {
		direction = model.DirectionBuy
	}

	baseAmount := new(model.BigInt)
	baseAmount.Abs(netBase)
	quoteAmount := new(model.BigInt)
	quoteAmount.Abs(netQuote)

	var indices []uint64
	positionTransfers := make([]*model.TransferSignal, 0, len(routerTransfers))
	for _, transfer := range routerTransfers {
		indices = append(indices, transfer.LogIndex)
		positionTransfers = append(positionTransfers, transfer)
	}
	if route != nil {
		indices = append(indices, route.indices...)
	}

	trade := &model.Trade{
		TxHash:      ctx.Tx.TxHash,
		BlockNumber: ctx.Tx.BlockNumber,
		Timestamp:   ctx.Tx.Timestamp,
		Taker:       group.taker,
		Direction:   direction,
		TradeType:   model.TradeTypeTrade,
		BaseToken:   group.baseToken,
		QuoteToken:  quoteToken,
		BaseAmount:  baseAmount,
		QuoteAmount: quoteAmount,
		Swaps:       swaps,
	}

	// Declared route amount vs. matched pool amounts: try to reconcile a
	// deficit through one unmatched taker transfer before giving up.
	if route != nil {
		if declared := declaredAmount(route.outermost, group.baseToken); declared != nil {
			if declared.Cmp(&baseAmount.Int) != 0 {
				deficit := new(model.BigInt)
				deficit.Sub(&declared.Int, &baseAmount.Int)
				if transfer, ok := p.reconcileDeficit(ctx, group.taker, group.baseToken, deficit); ok {
					if !containsIndex(indices, transfer.LogIndex) {
						indices = append(indices, transfer.LogIndex)
						positionTransfers = append(positionTransfers, transfer)
					}
					baseAmount.Add(&baseAmount.Int, &deficit.Int)
				} else {
					trade.TradeType = model.TradeTypeIncomplete
					ctx.AddError(model.NewTransformError(
						model.ErrRouterAmountMismatch,
						fmt.Sprintf("route declares %s %s, matched %s", declared.String(), group.baseToken, baseAmount.String()),
						ctx.Tx.TxHash, route.outermost.Router, nil))
				}
			}
		}
	}

	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	trade.Indices = indices
	trade.Seal()

	ctx.MarkConsumed(indices...)
	ctx.AddTransferPositions(trade.ContentID, positionTransfers)

	return trade
}

func containsIndex(indices []uint64, logIndex uint64) bool {
	for _, existing := range indices {
		if existing == logIndex {
			return true
		}
	}
	return false
}

func declaredAmount(route *model.RouteSignal, baseToken string) *model.BigInt {
	switch baseToken {
	case route.TokenIn:
		return route.AmountIn
	case route.TokenOut:
		return route.AmountOut
	default:
		return nil
	}
}

// reconcileDeficit looks for a single unmatched taker transfer of the base
// token covering the difference.
func (p *TradeProcessor) reconcileDeficit(ctx *Context, taker, token string, deficit *model.BigInt) (*model.TransferSignal, bool) {
	if deficit.Sign() <= 0 {
		return nil, false
	}
	if transfer, ok := p.matcher.MatchOne(Leg{Token: token, From: taker, Amount: deficit}, ctx, nil); ok {
		return transfer, true
	}
	return p.matcher.MatchOne(Leg{Token: token, To: taker, Amount: deficit}, ctx, nil)
}

// tagArbitrage retags trades when net buys equal net sells for the same
// base token within the transaction. Incomplete trades stay out on both
// sides: their matched amount is already known short of the declared route,
// so they cannot contribute a trustworthy volume, and the incomplete tag is
// the stronger fact to preserve.
func (p *TradeProcessor) tagArbitrage(trades []*model.Trade) {
	buys := make(map[string]*big.Int)
	sells := make(map[string]*big.Int)

	for _, trade := range trades {
		if trade.TradeType != model.TradeTypeTrade {
			continue
		}
		bucket := sells
		if trade.Direction == model.DirectionBuy {
			bucket = buys
		}
		if bucket[trade.BaseToken] == nil {
			bucket[trade.BaseToken] = new(big.Int)
		}
		bucket[trade.BaseToken].Add(bucket[trade.BaseToken], &trade.BaseAmount.Int)
	}

	for token, bought := range buys {
		sold := sells[token]
		if sold == nil || bought.Sign() == 0 {
			continue
		}
		if bought.Cmp(sold) != 0 {
			continue
		}
		for _, trade := range trades {
			if trade.BaseToken == token && trade.TradeType == model.TradeTypeTrade {
				trade.TradeType = model.TradeTypeArbitrage
			}
		}
	}
}
