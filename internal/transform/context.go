package transform

import (
	"sort"

	"tradescope/internal/model"
)

type direction string

const (
	dirIn  direction = "in"
	dirOut direction = "out"
)

// Context is the per-transaction working state: a signal map, the
// consumption set, and the transfer ledger indexed as
// token → direction → address → {logIndex: signal}. It is created fresh per
// transaction, mutated append-only during processing, and discarded after
// finalization.
type Context struct {
	Tx *model.Transaction

	signals   map[uint64]model.Signal
	transfers map[uint64]*model.TransferSignal
	consumed  map[uint64]bool
	index     map[string]map[direction]map[string]map[uint64]*model.TransferSignal

	events    []model.DomainEvent
	positions []model.Position
	errors    []model.ProcessingError

	tracked func(token string) bool
}

// NewContext builds the ledger from the emitted signals.
func NewContext(tx *model.Transaction, signals []model.Signal, tracked func(string) bool) *Context {
	if tracked == nil {
		tracked = func(string) bool { return false }
	}

	ctx := &Context{
		Tx:        tx,
		signals:   make(map[uint64]model.Signal, len(signals)),
		transfers: make(map[uint64]*model.TransferSignal),
		consumed:  make(map[uint64]bool),
		index:     make(map[string]map[direction]map[string]map[uint64]*model.TransferSignal),
		tracked:   tracked,
	}

	for _, sig := range signals {
		ctx.signals[sig.Index()] = sig
		transfer, ok := sig.(*model.TransferSignal)
		if !ok {
			continue
		}
		ctx.transfers[transfer.LogIndex] = transfer
		ctx.indexTransfer(transfer)
	}

	return ctx
}

func (c *Context) indexTransfer(transfer *model.TransferSignal) {
	byDir, ok := c.index[transfer.Token]
	if !ok {
		byDir = make(map[direction]map[string]map[uint64]*model.TransferSignal)
		c.index[transfer.Token] = byDir
	}
	for _, entry := range []struct {
		dir  direction
		addr string
	}{{dirOut, transfer.From}, {dirIn, transfer.To}} {
		byAddr, ok := byDir[entry.dir]
		if !ok {
			byAddr = make(map[string]map[uint64]*model.TransferSignal)
			byDir[entry.dir] = byAddr
		}
		byIndex, ok := byAddr[entry.addr]
		if !ok {
			byIndex = make(map[uint64]*model.TransferSignal)
			byAddr[entry.addr] = byIndex
		}
		byIndex[transfer.LogIndex] = transfer
	}
}

// Signals returns all signals ordered by log index.
func (c *Context) Signals() []model.Signal {
	out := make([]model.Signal, 0, len(c.signals))
	for _, sig := range c.signals {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// SignalsByKind returns signals of the given kinds ordered by log index.
func (c *Context) SignalsByKind(kinds ...model.SignalKind) []model.Signal {
	wanted := make(map[model.SignalKind]bool, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = true
	}
	var out []model.Signal
	for _, sig := range c.signals {
		if wanted[sig.Kind()] {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// Transfer returns the transfer signal at a log index.
func (c *Context) Transfer(logIndex uint64) (*model.TransferSignal, bool) {
	transfer, ok := c.transfers[logIndex]
	return transfer, ok
}

// UnmatchedTransfers returns all unconsumed transfers ordered by log index.
func (c *Context) UnmatchedTransfers() []*model.TransferSignal {
	var out []*model.TransferSignal
	for logIndex, transfer := range c.transfers {
		if !c.consumed[logIndex] {
			out = append(out, transfer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogIndex < out[j].LogIndex })
	return out
}

// TransfersForTokens returns unconsumed transfers of the given tokens.
func (c *Context) TransfersForTokens(tokens ...string) []*model.TransferSignal {
	wanted := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		wanted[token] = true
	}
	var out []*model.TransferSignal
	for logIndex, transfer := range c.transfers {
		if wanted[transfer.Token] && !c.consumed[logIndex] {
			out = append(out, transfer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogIndex < out[j].LogIndex })
	return out
}

// TransfersOut returns unconsumed transfers of token leaving addr.
func (c *Context) TransfersOut(token, addr string) []*model.TransferSignal {
	return c.directional(token, dirOut, addr)
}

// TransfersIn returns unconsumed transfers of token arriving at addr.
func (c *Context) TransfersIn(token, addr string) []*model.TransferSignal {
	return c.directional(token, dirIn, addr)
}

func (c *Context) directional(token string, dir direction, addr string) []*model.TransferSignal {
	byDir, ok := c.index[token]
	if !ok {
		return nil
	}
	byAddr, ok := byDir[dir]
	if !ok {
		return nil
	}
	var out []*model.TransferSignal
	for logIndex, transfer := range byAddr[addr] {
		if !c.consumed[logIndex] {
			out = append(out, transfer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogIndex < out[j].LogIndex })
	return out
}

// MarkConsumed marks signal indices as consumed. Idempotent and
// irreversible within the transaction.
func (c *Context) MarkConsumed(indices ...uint64) {
	for _, logIndex := range indices {
		c.consumed[logIndex] = true
	}
}

// IsConsumed reports whether a signal index has been consumed.
func (c *Context) IsConsumed(logIndex uint64) bool {
	return c.consumed[logIndex]
}

// IsTracked reports whether a token is covered by the completeness
// guarantee.
func (c *Context) IsTracked(token string) bool {
	return c.tracked(token)
}

// AddEvent appends a sealed domain event.
func (c *Context) AddEvent(event model.DomainEvent) {
	c.events = append(c.events, event)
}

// AddError appends a processing error.
func (c *Context) AddError(pe model.ProcessingError) {
	c.errors = append(c.errors, pe)
}

// Events returns the events appended so far.
func (c *Context) Events() []model.DomainEvent {
	return c.events
}

// Errors returns the errors appended so far.
func (c *Context) Errors() []model.ProcessingError {
	return c.errors
}

// Positions returns the positions appended so far.
func (c *Context) Positions() []model.Position {
	return c.positions
}

// AddTransferPositions nets the given transfers per (user, token) and
// appends one position per non-zero net, tied to the given event. Untracked
// tokens and the zero address are skipped.
func (c *Context) AddTransferPositions(eventID string, transfers []*model.TransferSignal) {
	type key struct {
		user  string
		token string
	}
	nets := make(map[key]*model.BigInt)
	var order []key

	accumulate := func(user, token string, amount *model.BigInt, negate bool) {
		if model.IsZeroAddress(user) {
			return
		}
		k := key{user: user, token: token}
		net, ok := nets[k]
		if !ok {
			net = model.BigIntFromInt64(0)
			nets[k] = net
			order = append(order, k)
		}
		if negate {
			net.Sub(&net.Int, &amount.Int)
		} else {
			net.Add(&net.Int, &amount.Int)
		}
	}

	for _, transfer := range transfers {
		if !c.tracked(transfer.Token) {
			continue
		}
		accumulate(transfer.From, transfer.Token, transfer.Amount, true)
		accumulate(transfer.To, transfer.Token, transfer.Amount, false)
	}

	for _, k := range order {
		net := nets[k]
		if net.IsZero() {
			continue
		}
		position := model.Position{
			TxHash:    c.Tx.TxHash,
			Timestamp: c.Tx.Timestamp,
			EventID:   eventID,
			User:      k.user,
			Token:     k.token,
			Amount:    net,
		}
		position.Seal()
		c.positions = append(c.positions, position)
	}
}

// ConsumedTransfers maps a set of indices back to transfer signals,
// skipping indices that are not transfers.
func (c *Context) ConsumedTransfers(indices []uint64) []*model.TransferSignal {
	var out []*model.TransferSignal
	for _, logIndex := range indices {
		if transfer, ok := c.transfers[logIndex]; ok {
			out = append(out, transfer)
		}
	}
	return out
}
