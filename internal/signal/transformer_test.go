package signal

import (
	"testing"

	"tradescope/internal/config"
	"tradescope/internal/model"
)

const (
	tokenA   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	tokenB   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	poolAddr = "0xcccccccccccccccccccccccccccccccccccccccc"
	alice    = "0xdddddddddddddddddddddddddddddddddddddddd"
	bob      = "0x1111111111111111111111111111111111111111"
	farmAddr = "0x2222222222222222222222222222222222222222"
)

func testTx() *model.Transaction {
	return &model.Transaction{TxHash: "0xtx", Success: true}
}

func TestTokenTransfer(t *testing.T) {
	transformer := newTokenTransformer(config.ContractConfig{
		Address: tokenA, Kind: config.KindToken,
	})

	signals, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex:  3,
		Address:   tokenA,
		EventName: "Transfer",
		Attributes: map[string]string{
			"from": alice, "to": bob, "value": "100",
		},
	}}, testTx())

	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if len(signals) != 1 {
		t.Fatalf("signals = %d", len(signals))
	}

	transfer := signals[0].(*model.TransferSignal)
	if transfer.Token != tokenA || transfer.From != alice || transfer.To != bob {
		t.Fatalf("transfer = %+v", transfer)
	}
	if transfer.Amount.String() != "100" {
		t.Fatalf("amount = %s", transfer.Amount.String())
	}
	if transfer.LogIndex != 3 {
		t.Fatalf("log index = %d", transfer.LogIndex)
	}
}

func TestTokenTransferAmountFallback(t *testing.T) {
	transformer := newTokenTransformer(config.ContractConfig{Address: tokenA})

	signals, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex:  1,
		EventName: "Transfer",
		Attributes: map[string]string{
			"from": alice, "to": bob, "amount": "55",
		},
	}}, testTx())

	if len(errs) != 0 || len(signals) != 1 {
		t.Fatalf("signals = %d, errors = %v", len(signals), errs)
	}
	if signals[0].(*model.TransferSignal).Amount.String() != "55" {
		t.Fatal("amount fallback not applied")
	}
}

func TestTokenTransferErrors(t *testing.T) {
	transformer := newTokenTransformer(config.ContractConfig{Address: tokenA})

	cases := []struct {
		name     string
		attrs    map[string]string
		wantType string
	}{
		{"missing from", map[string]string{"to": bob, "value": "1"}, model.ErrMissingAttributes},
		{"zero amount", map[string]string{"from": alice, "to": bob, "value": "0"}, model.ErrZeroAmounts},
		{"bad address", map[string]string{"from": "xyz", "to": bob, "value": "1"}, model.ErrInvalidAttribute},
	}

	for _, tc := range cases {
		signals, errs := transformer.Transform([]model.DecodedLog{{
			LogIndex: 1, EventName: "Transfer", Attributes: tc.attrs,
		}}, testTx())
		if len(signals) != 0 {
			t.Fatalf("%s: unexpected signal", tc.name)
		}
		if len(errs) != 1 {
			t.Fatalf("%s: errors = %d", tc.name, len(errs))
		}
		if errs[0].ErrorType != tc.wantType {
			t.Fatalf("%s: error type = %s, want %s", tc.name, errs[0].ErrorType, tc.wantType)
		}
		if errs[0].LogIndex == nil || *errs[0].LogIndex != 1 {
			t.Fatalf("%s: log index not attributed", tc.name)
		}
	}
}

func TestPoolSwapPreservesSign(t *testing.T) {
	transformer := newPoolTransformer(config.ContractConfig{
		Address: poolAddr, Kind: config.KindPool,
		BaseToken: tokenA, QuoteToken: tokenB, BaseIsToken0: true,
	})

	signals, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex:  5,
		EventName: "Swap",
		Attributes: map[string]string{
			"recipient": alice, "amount0": "100", "amount1": "-200",
		},
	}}, testTx())

	if len(errs) != 0 || len(signals) != 1 {
		t.Fatalf("signals = %d, errors = %v", len(signals), errs)
	}

	swap := signals[0].(*model.SwapSignal)
	if swap.BaseAmount.String() != "100" || swap.QuoteAmount.String() != "-200" {
		t.Fatalf("amounts = %s / %s", swap.BaseAmount.String(), swap.QuoteAmount.String())
	}
	if swap.Pool != poolAddr || swap.Recipient != alice {
		t.Fatalf("swap = %+v", swap)
	}
}

func TestPoolSwapBaseIsToken1(t *testing.T) {
	transformer := newPoolTransformer(config.ContractConfig{
		Address: poolAddr, BaseToken: tokenA, QuoteToken: tokenB, BaseIsToken0: false,
	})

	signals, _ := transformer.Transform([]model.DecodedLog{{
		LogIndex:  5,
		EventName: "Swap",
		Attributes: map[string]string{
			"recipient": alice, "amount0": "-200", "amount1": "100",
		},
	}}, testTx())

	if len(signals) != 1 {
		t.Fatalf("signals = %d", len(signals))
	}
	swap := signals[0].(*model.SwapSignal)
	if swap.BaseAmount.String() != "100" {
		t.Fatalf("base amount = %s", swap.BaseAmount.String())
	}
}

func TestPoolMintBurn(t *testing.T) {
	transformer := newPoolTransformer(config.ContractConfig{
		Address: poolAddr, BaseToken: tokenA, QuoteToken: tokenB, BaseIsToken0: true,
	})

	signals, errs := transformer.Transform([]model.DecodedLog{
		{
			LogIndex: 1, EventName: "Mint",
			Attributes: map[string]string{"owner": alice, "amount0": "10", "amount1": "20"},
		},
		{
			LogIndex: 2, EventName: "Burn",
			Attributes: map[string]string{"owner": alice, "amount0": "-10", "amount1": "-20"},
		},
	}, testTx())

	if len(errs) != 0 || len(signals) != 2 {
		t.Fatalf("signals = %d, errors = %v", len(signals), errs)
	}

	mint := signals[0].(*model.LiquiditySignal)
	if mint.Action != model.LiquidityAdd || mint.PatternName != "liquidity_add" {
		t.Fatalf("mint = %+v", mint)
	}

	burn := signals[1].(*model.LiquiditySignal)
	if burn.Action != model.LiquidityRemove || burn.BaseAmount.String() != "10" {
		t.Fatalf("burn = %+v", burn)
	}
}

func TestRouterRoute(t *testing.T) {
	router := "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	transformer := newRouterTransformer(config.ContractConfig{Address: router})

	signals, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex:  9,
		EventName: "Swapped",
		Attributes: map[string]string{
			"taker": alice, "token_in": tokenA, "token_out": tokenB,
			"amount_in": "100", "amount_out": "200",
			"routers": bob + ", " + farmAddr,
		},
	}}, testTx())

	if len(errs) != 0 || len(signals) != 1 {
		t.Fatalf("signals = %d, errors = %v", len(signals), errs)
	}

	route := signals[0].(*model.RouteSignal)
	if route.Taker != alice || route.TokenIn != tokenA || route.TokenOut != tokenB {
		t.Fatalf("route = %+v", route)
	}
	if len(route.Routers) != 3 {
		t.Fatalf("routers = %v", route.Routers)
	}
}

func TestFarmClaim(t *testing.T) {
	transformer := newFarmTransformer(config.ContractConfig{
		Address: farmAddr, RewardToken: tokenA,
	})

	signals, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex:  2,
		EventName: "RewardPaid",
		Attributes: map[string]string{
			"user": alice, "amount": "500",
		},
	}}, testTx())

	if len(errs) != 0 || len(signals) != 1 {
		t.Fatalf("signals = %d, errors = %v", len(signals), errs)
	}

	reward := signals[0].(*model.RewardSignal)
	if reward.Token != tokenA || reward.User != alice || reward.Source != farmAddr {
		t.Fatalf("reward = %+v", reward)
	}
	if reward.PatternName != "reward_claim" {
		t.Fatalf("pattern = %s", reward.PatternName)
	}
}

func TestFarmClaimRequiresToken(t *testing.T) {
	transformer := newFarmTransformer(config.ContractConfig{Address: farmAddr})

	_, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex: 2, EventName: "Claim",
		Attributes: map[string]string{"user": alice, "amount": "500"},
	}}, testTx())

	if len(errs) != 1 || errs[0].ErrorType != model.ErrMissingAttributes {
		t.Fatalf("errors = %v", errs)
	}
}

func TestPositionManagerChange(t *testing.T) {
	transformer := newPositionManagerTransformer(config.ContractConfig{
		Address: poolAddr, BaseToken: tokenA, QuoteToken: tokenB, BaseIsToken0: true,
	})

	signals, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex:  4,
		EventName: "IncreaseLiquidity",
		Attributes: map[string]string{
			"owner": alice, "token_id": "42", "amount0": "10", "amount1": "20",
		},
	}}, testTx())

	if len(errs) != 0 || len(signals) != 1 {
		t.Fatalf("signals = %d, errors = %v", len(signals), errs)
	}

	liq := signals[0].(*model.LiquiditySignal)
	if liq.PositionID != "42" || liq.PatternName != "position_increase" {
		t.Fatalf("liquidity = %+v", liq)
	}
}

func TestDispatcherSkipsUnknownEvents(t *testing.T) {
	transformer := newTokenTransformer(config.ContractConfig{Address: tokenA})

	signals, errs := transformer.Transform([]model.DecodedLog{{
		LogIndex: 1, EventName: "Approval",
		Attributes: map[string]string{"owner": alice, "spender": bob, "value": "1"},
	}}, testTx())

	if len(signals) != 0 || len(errs) != 0 {
		t.Fatalf("unknown event produced output: %d signals, %d errors", len(signals), len(errs))
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := config.ParseRegistry([]byte(`
contracts:
  - address: "` + tokenA + `"
    kind: token
  - address: "` + poolAddr + `"
    kind: pool
    base_token: "` + tokenA + `"
    quote_token: "` + tokenB + `"
`))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}

	registry, err := NewRegistry(reg, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	if _, ok := registry.For(tokenA); !ok {
		t.Fatal("token transformer missing")
	}
	if _, ok := registry.For(poolAddr); !ok {
		t.Fatal("pool transformer missing")
	}
	if _, ok := registry.For(alice); ok {
		t.Fatal("unknown address has transformer")
	}
}
