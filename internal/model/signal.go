package model

// SignalKind tags the per-contract interpretation of a decoded log.
type SignalKind string

const (
	KindTransfer  SignalKind = "transfer"
	KindSwap      SignalKind = "swap"
	KindLiquidity SignalKind = "liquidity"
	KindRoute     SignalKind = "route"
	KindReward    SignalKind = "reward"
)

// Signal is an intermediate, per-contract reading of a decoded log. Signals
// are immutable once emitted; consumption is tracked by the transaction
// context, never on the signal itself.
type Signal interface {
	Kind() SignalKind
	Index() uint64
}

// TransferSignal is one value movement of a token.
type TransferSignal struct {
	LogIndex uint64  `json:"log_index"`
	Token    string  `json:"token"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Amount   *BigInt `json:"amount"`
	BatchID  string  `json:"batch_id,omitempty"`
}

func (s *TransferSignal) Kind() SignalKind { return KindTransfer }
func (s *TransferSignal) Index() uint64    { return s.LogIndex }

// SwapSignal is a pool swap normalized to the pool's base-token axis.
// BaseAmount is signed: positive means the pool received base (buy
// pressure). The sign drives downstream trade direction and is preserved
// exactly as the pool transformer produced it.
type SwapSignal struct {
	LogIndex    uint64  `json:"log_index"`
	Pool        string  `json:"pool"`
	Recipient   string  `json:"recipient"`
	BaseToken   string  `json:"base_token"`
	QuoteToken  string  `json:"quote_token"`
	BaseAmount  *BigInt `json:"base_amount"`
	QuoteAmount *BigInt `json:"quote_amount"`

	// SourceIndices lists constituent swap log indices when this signal is
	// a batch-aggregated synthesis of partial swaps.
	SourceIndices []uint64 `json:"source_indices,omitempty"`
}

func (s *SwapSignal) Kind() SignalKind { return KindSwap }
func (s *SwapSignal) Index() uint64    { return s.LogIndex }

// Constituents returns the log indices this swap stands for.
func (s *SwapSignal) Constituents() []uint64 {
	if len(s.SourceIndices) > 0 {
		return s.SourceIndices
	}
	return []uint64{s.LogIndex}
}

// LiquidityAction distinguishes adds from removes.
type LiquidityAction string

const (
	LiquidityAdd    LiquidityAction = "add"
	LiquidityRemove LiquidityAction = "remove"
)

// LiquiditySignal is a liquidity provision change on a pool or position
// manager. PatternName selects the transfer pattern used to resolve the
// expected legs.
type LiquiditySignal struct {
	LogIndex     uint64          `json:"log_index"`
	Pool         string          `json:"pool"`
	Provider     string          `json:"provider"`
	Action       LiquidityAction `json:"action"`
	BaseToken    string          `json:"base_token"`
	QuoteToken   string          `json:"quote_token"`
	BaseAmount   *BigInt         `json:"base_amount"`
	QuoteAmount  *BigInt         `json:"quote_amount"`
	ReceiptToken string          `json:"receipt_token,omitempty"`
	PositionID   string          `json:"position_id,omitempty"`
	PatternName  string          `json:"pattern"`
}

func (s *LiquiditySignal) Kind() SignalKind { return KindLiquidity }
func (s *LiquiditySignal) Index() uint64    { return s.LogIndex }

// RouteSignal is emitted by router/aggregator contracts and identifies the
// taker plus the value the router declares moved end to end.
type RouteSignal struct {
	LogIndex  uint64   `json:"log_index"`
	Router    string   `json:"router"`
	Taker     string   `json:"taker"`
	TokenIn   string   `json:"token_in"`
	TokenOut  string   `json:"token_out"`
	AmountIn  *BigInt  `json:"amount_in"`
	AmountOut *BigInt  `json:"amount_out"`
	Routers   []string `json:"routers,omitempty"`
}

func (s *RouteSignal) Kind() SignalKind { return KindRoute }
func (s *RouteSignal) Index() uint64    { return s.LogIndex }

// RewardSignal is a reward or settlement payout claim.
type RewardSignal struct {
	LogIndex    uint64  `json:"log_index"`
	Source      string  `json:"source"`
	User        string  `json:"user"`
	Token       string  `json:"token"`
	Amount      *BigInt `json:"amount"`
	PatternName string  `json:"pattern"`
}

func (s *RewardSignal) Kind() SignalKind { return KindReward }
func (s *RewardSignal) Index() uint64    { return s.LogIndex }
