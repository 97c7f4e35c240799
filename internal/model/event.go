package model

import "tradescope/internal/ident"

// EventType routes a domain event to its persistence table.
type EventType string

const (
	EventTrade           EventType = "trade"
	EventPoolSwap        EventType = "pool_swap"
	EventLiquidity       EventType = "liquidity"
	EventTransfer        EventType = "transfer"
	EventUnknownTransfer EventType = "unknown_transfer"
	EventReward          EventType = "reward"
)

const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

const (
	TradeTypeTrade      = "trade"
	TradeTypeArbitrage  = "arbitrage"
	TradeTypeIncomplete = "incomplete"
)

// DomainEvent is a canonical, content-addressed business event. The ID is a
// hash of Identity() only; Seal computes it and must be called exactly once,
// after all identifying fields are final.
type DomainEvent interface {
	Type() EventType
	ID() string
	Identity() ident.Content
	SignalIndices() []uint64
	Seal()
}

// PoolSwap is one pool-level swap leg of a trade.
type PoolSwap struct {
	ContentID   string   `json:"content_id"`
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	Pool        string   `json:"pool"`
	Taker       string   `json:"taker"`
	Direction   string   `json:"direction"`
	BaseToken   string   `json:"base_token"`
	QuoteToken  string   `json:"quote_token"`
	BaseAmount  *BigInt  `json:"base_amount"`
	QuoteAmount *BigInt  `json:"quote_amount"`
	Indices     []uint64 `json:"signal_indices"`
}

func (e *PoolSwap) Type() EventType         { return EventPoolSwap }
func (e *PoolSwap) ID() string              { return e.ContentID }
func (e *PoolSwap) SignalIndices() []uint64 { return e.Indices }

func (e *PoolSwap) Identity() ident.Content {
	return ident.Content{
		"type":           string(EventPoolSwap),
		"tx_hash":        e.TxHash,
		"pool":           e.Pool,
		"taker":          e.Taker,
		"direction":      e.Direction,
		"base_token":     e.BaseToken,
		"base_amount":    e.BaseAmount.String(),
		"quote_amount":   e.QuoteAmount.String(),
		"signal_indices": e.Indices,
	}
}

func (e *PoolSwap) Seal() { e.ContentID = ident.NewID(e.Identity()) }

// Trade is the trader-facing aggregation of one or more pool swaps.
// TradeType is derived after synthesis (arbitrage retagging) and therefore
// not part of the identity.
type Trade struct {
	ContentID   string      `json:"content_id"`
	TxHash      string      `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	Timestamp   uint64      `json:"timestamp"`
	Taker       string      `json:"taker"`
	Direction   string      `json:"direction"`
	TradeType   string      `json:"trade_type"`
	BaseToken   string      `json:"base_token"`
	QuoteToken  string      `json:"quote_token"`
	BaseAmount  *BigInt     `json:"base_amount"`
	QuoteAmount *BigInt     `json:"quote_amount"`
	Swaps       []*PoolSwap `json:"swaps"`
	Indices     []uint64    `json:"signal_indices"`
}

func (e *Trade) Type() EventType         { return EventTrade }
func (e *Trade) ID() string              { return e.ContentID }
func (e *Trade) SignalIndices() []uint64 { return e.Indices }

func (e *Trade) Identity() ident.Content {
	swapIDs := make([]string, 0, len(e.Swaps))
	for _, swap := range e.Swaps {
		swapIDs = append(swapIDs, swap.ContentID)
	}
	return ident.Content{
		"type":           string(EventTrade),
		"tx_hash":        e.TxHash,
		"taker":          e.Taker,
		"direction":      e.Direction,
		"base_token":     e.BaseToken,
		"base_amount":    e.BaseAmount.String(),
		"swaps":          swapIDs,
		"signal_indices": e.Indices,
	}
}

func (e *Trade) Seal() { e.ContentID = ident.NewID(e.Identity()) }

// Liquidity is a canonical liquidity add or remove.
type Liquidity struct {
	ContentID   string   `json:"content_id"`
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	Pool        string   `json:"pool"`
	Provider    string   `json:"provider"`
	Action      string   `json:"action"`
	BaseToken   string   `json:"base_token"`
	QuoteToken  string   `json:"quote_token"`
	BaseAmount  *BigInt  `json:"base_amount"`
	QuoteAmount *BigInt  `json:"quote_amount"`
	PositionID  string   `json:"position_id,omitempty"`
	Indices     []uint64 `json:"signal_indices"`
}

func (e *Liquidity) Type() EventType         { return EventLiquidity }
func (e *Liquidity) ID() string              { return e.ContentID }
func (e *Liquidity) SignalIndices() []uint64 { return e.Indices }

func (e *Liquidity) Identity() ident.Content {
	return ident.Content{
		"type":           string(EventLiquidity),
		"tx_hash":        e.TxHash,
		"pool":           e.Pool,
		"provider":       e.Provider,
		"action":         e.Action,
		"base_amount":    e.BaseAmount.String(),
		"quote_amount":   e.QuoteAmount.String(),
		"position_id":    e.PositionID,
		"signal_indices": e.Indices,
	}
}

func (e *Liquidity) Seal() { e.ContentID = ident.NewID(e.Identity()) }

// Transfer is a canonical token transfer. Unknown marks the reconciliation
// fallback for tracked-token transfers no pattern accounted for.
type Transfer struct {
	ContentID   string   `json:"content_id"`
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	Token       string   `json:"token"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Amount      *BigInt  `json:"amount"`
	Unknown     bool     `json:"unknown"`
	Indices     []uint64 `json:"signal_indices"`
}

func (e *Transfer) Type() EventType {
	if e.Unknown {
		return EventUnknownTransfer
	}
	return EventTransfer
}

func (e *Transfer) ID() string              { return e.ContentID }
func (e *Transfer) SignalIndices() []uint64 { return e.Indices }

func (e *Transfer) Identity() ident.Content {
	return ident.Content{
		"type":           string(e.Type()),
		"tx_hash":        e.TxHash,
		"token":          e.Token,
		"from":           e.From,
		"to":             e.To,
		"amount":         e.Amount.String(),
		"signal_indices": e.Indices,
	}
}

func (e *Transfer) Seal() { e.ContentID = ident.NewID(e.Identity()) }

// Reward is a canonical reward or settlement claim.
type Reward struct {
	ContentID   string   `json:"content_id"`
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	Source      string   `json:"source"`
	User        string   `json:"user"`
	Token       string   `json:"token"`
	Amount      *BigInt  `json:"amount"`
	Indices     []uint64 `json:"signal_indices"`
}

func (e *Reward) Type() EventType         { return EventReward }
func (e *Reward) ID() string              { return e.ContentID }
func (e *Reward) SignalIndices() []uint64 { return e.Indices }

func (e *Reward) Identity() ident.Content {
	return ident.Content{
		"type":           string(EventReward),
		"tx_hash":        e.TxHash,
		"source":         e.Source,
		"user":           e.User,
		"token":          e.Token,
		"amount":         e.Amount.String(),
		"signal_indices": e.Indices,
	}
}

func (e *Reward) Seal() { e.ContentID = ident.NewID(e.Identity()) }
