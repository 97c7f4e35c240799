package model

import "tradescope/internal/ident"

// Position is one (user, token) balance delta tied to a single event.
type Position struct {
	ContentID string  `json:"content_id"`
	TxHash    string  `json:"tx_hash"`
	Timestamp uint64  `json:"timestamp"`
	EventID   string  `json:"event_id"`
	User      string  `json:"user"`
	Token     string  `json:"token"`
	Amount    *BigInt `json:"amount"`
}

func (p *Position) Identity() ident.Content {
	return ident.Content{
		"type":     "position",
		"tx_hash":  p.TxHash,
		"event_id": p.EventID,
		"user":     p.User,
		"token":    p.Token,
		"amount":   p.Amount.String(),
	}
}

func (p *Position) Seal() { p.ContentID = ident.NewID(p.Identity()) }
