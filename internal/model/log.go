package model

// DecodedLog is one emitted event with attributes already decoded upstream.
type DecodedLog struct {
	LogIndex   uint64            `json:"log_index"`
	Address    string            `json:"address"`
	EventName  string            `json:"event_name"`
	Attributes map[string]string `json:"attributes"`
}

// Transaction carries one transaction through the transform engine. Logs are
// the input; signals, events, positions, and errors are populated during
// finalization and immutable afterwards.
type Transaction struct {
	ChainID     uint64                `json:"chain_id"`
	BlockNumber uint64                `json:"block_number"`
	BlockHash   string                `json:"block_hash"`
	TxHash      string                `json:"tx_hash"`
	Timestamp   uint64                `json:"timestamp"`
	Success     bool                  `json:"success"`
	Logs        map[uint64]DecodedLog `json:"logs,omitempty"`

	Signals     []Signal          `json:"signals,omitempty"`
	Events      []DomainEvent     `json:"events,omitempty"`
	Positions   []Position        `json:"positions,omitempty"`
	Errors      []ProcessingError `json:"errors,omitempty"`
	Transformed bool              `json:"transformed"`
}

// Processable reports whether the engine should touch this transaction.
// Reverted transactions and transactions without decoded logs pass through
// unchanged.
func (t *Transaction) Processable() bool {
	return t.Success && len(t.Logs) > 0
}

// BlockEnvelope groups the transactions of one block for blob storage.
type BlockEnvelope struct {
	ChainID      uint64        `json:"chain_id"`
	BlockNumber  uint64        `json:"block_number"`
	BlockHash    string        `json:"block_hash"`
	Timestamp    uint64        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}
