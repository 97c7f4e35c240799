package signal

import (
	"strings"

	"tradescope/internal/config"
	"tradescope/internal/model"
)

// routerTransformer interprets router/aggregator swap events into route
// signals carrying the taker and the declared end-to-end amounts.
type routerTransformer struct {
	dispatcher
}

func newRouterTransformer(contract config.ContractConfig) *routerTransformer {
	t := &routerTransformer{dispatcher{contract: contract}}
	t.handlers = map[string]handlerFunc{
		"Swapped":   t.route,
		"SwapExact": t.route,
		"Route":     t.route,
	}
	return t
}

func (t *routerTransformer) route(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	taker, err := firstAttrAddress(log, "taker", "sender")
	if err != nil {
		return nil, err
	}
	tokenIn, err := firstAttrAddress(log, "token_in", "src_token")
	if err != nil {
		return nil, err
	}
	tokenOut, err := firstAttrAddress(log, "token_out", "dst_token")
	if err != nil {
		return nil, err
	}
	amountIn, err := attrAmount(log, "amount_in")
	if err != nil {
		return nil, err
	}
	amountOut, err := attrAmount(log, "amount_out")
	if err != nil {
		return nil, err
	}
	if amountIn.IsZero() && amountOut.IsZero() {
		return nil, zeroAmounts()
	}

	routers := []string{t.contract.Address}
	if raw := optionalAttr(log, "routers"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			addr, err := model.NormalizeAddress(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			routers = append(routers, addr)
		}
	}

	return &model.RouteSignal{
		LogIndex:  log.LogIndex,
		Router:    t.contract.Address,
		Taker:     taker,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn.AbsValue(),
		AmountOut: amountOut.AbsValue(),
		Routers:   routers,
	}, nil
}
