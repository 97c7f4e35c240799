package transform

import (
	"math/big"
	"sort"

	"tradescope/internal/model"
)

// maxHops bounds multi-hop expansion through router intermediates.
const maxHops = 5

// Match is the set of transfer log indices resolved for a whole pattern.
// The caller consumes them atomically.
type Match struct {
	Indices []uint64
}

// Matcher resolves pattern legs against the transaction ledger.
type Matcher struct{}

// MatchPattern resolves every leg independently. It succeeds only if every
// required leg is satisfied; failure is silent and nothing is consumed.
func (m *Matcher) MatchPattern(legs []Leg, ctx *Context) (Match, bool) {
	used := make(map[uint64]bool)
	var all []uint64

	for _, leg := range legs {
		indices, ok := m.resolveLeg(leg, ctx, used)
		if !ok {
			if leg.MinCount == 0 {
				continue
			}
			return Match{}, false
		}
		for _, logIndex := range indices {
			used[logIndex] = true
		}
		all = append(all, indices...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return Match{Indices: all}, true
}

func (m *Matcher) resolveLeg(leg Leg, ctx *Context, used map[uint64]bool) ([]uint64, bool) {
	maxCount := leg.MaxCount
	if maxCount < 1 {
		maxCount = 1
	}
	minCount := leg.MinCount
	if minCount > maxCount {
		return nil, false
	}

	amount := leg.Amount
	if amount == nil {
		amount = m.inferAmount(leg, ctx, used)
	}

	// Direct: transfers from→to of the right token, pre-filtered to the
	// exact amount when one is known. The amount filter disambiguates
	// pools with many same-token transfers in one transaction.
	var direct []uint64
	for _, transfer := range ctx.TransfersOut(leg.Token, leg.From) {
		if used[transfer.LogIndex] || transfer.To != leg.To {
			continue
		}
		if amount != nil && transfer.Amount.Cmp(&amount.Int) != 0 {
			continue
		}
		direct = append(direct, transfer.LogIndex)
		if len(direct) == maxCount {
			break
		}
	}
	if len(direct) >= minCount && len(direct) >= 1 {
		return direct, true
	}

	// Multi-hop for router-mediated legs; counts as one occurrence.
	if indices, ok := m.matchMultiHop(leg, amount, ctx, used); ok && minCount <= 1 {
		return indices, true
	}

	return nil, false
}

// inferAmount picks an amount from any existing transfer out of the leg's
// source (or into its destination) of the right token.
func (m *Matcher) inferAmount(leg Leg, ctx *Context, used map[uint64]bool) *model.BigInt {
	for _, transfer := range ctx.TransfersOut(leg.Token, leg.From) {
		if !used[transfer.LogIndex] {
			return transfer.Amount
		}
	}
	for _, transfer := range ctx.TransfersIn(leg.Token, leg.To) {
		if !used[transfer.LogIndex] {
			return transfer.Amount
		}
	}
	return nil
}

// matchMultiHop expands breadth-first from the leg source, following
// out-transfers of newly reached intermediate addresses until the
// destination is reached or the hop bound is hit. The leg is satisfied only
// if net flow balances exactly: the amount leaving From equals the amount
// reaching To and is positive. Side-branch transfers discovered during
// expansion are consumed with the leg.
func (m *Matcher) matchMultiHop(leg Leg, amount *model.BigInt, ctx *Context, used map[uint64]bool) ([]uint64, bool) {
	if leg.From == leg.To {
		return nil, false
	}

	visited := map[string]bool{leg.From: true, leg.To: true}
	frontier := []string{leg.From}
	collected := make(map[uint64]*model.TransferSignal)
	reached := false

	for hop := 0; hop < maxHops && len(frontier) > 0 && !reached; hop++ {
		var next []string
		for _, addr := range frontier {
			for _, transfer := range ctx.TransfersOut(leg.Token, addr) {
				if used[transfer.LogIndex] || collected[transfer.LogIndex] != nil {
					continue
				}
				collected[transfer.LogIndex] = transfer
				if transfer.To == leg.To {
					reached = true
					continue
				}
				if !visited[transfer.To] {
					visited[transfer.To] = true
					next = append(next, transfer.To)
				}
			}
		}
		frontier = next
	}

	if !reached {
		return nil, false
	}

	sumOut := new(big.Int)
	sumIn := new(big.Int)
	for _, transfer := range collected {
		if transfer.From == leg.From {
			sumOut.Add(sumOut, &transfer.Amount.Int)
		}
		if transfer.To == leg.To {
			sumIn.Add(sumIn, &transfer.Amount.Int)
		}
	}

	if sumOut.Sign() <= 0 || sumOut.Cmp(sumIn) != 0 {
		return nil, false
	}
	if amount != nil && sumOut.Cmp(&amount.Int) != 0 {
		return nil, false
	}

	indices := make([]uint64, 0, len(collected))
	for logIndex := range collected {
		indices = append(indices, logIndex)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices, true
}

// MatchOne resolves a single leg to exactly one transfer, used by the
// per-pool 1:1 swap matcher. Either endpoint may be empty to mean "any".
func (m *Matcher) MatchOne(leg Leg, ctx *Context, used map[uint64]bool) (*model.TransferSignal, bool) {
	var candidates []*model.TransferSignal
	if leg.From != "" {
		candidates = ctx.TransfersOut(leg.Token, leg.From)
	} else {
		candidates = ctx.TransfersIn(leg.Token, leg.To)
	}

	for _, transfer := range candidates {
		if used != nil && used[transfer.LogIndex] {
			continue
		}
		if leg.From != "" && transfer.From != leg.From {
			continue
		}
		if leg.To != "" && transfer.To != leg.To {
			continue
		}
		if leg.Amount != nil && transfer.Amount.Cmp(&leg.Amount.Int) != 0 {
			continue
		}
		return transfer, true
	}
	return nil, false
}
