package model

import (
	"encoding/json"
	"testing"
)

func TestTransactionJSONRoundTrip(t *testing.T) {
	transfer := &Transfer{
		TxHash:  "0xtx",
		Token:   "0xtoken",
		From:    "0xalice",
		To:      "0xbob",
		Amount:  BigIntFromInt64(100),
		Indices: []uint64{1},
	}
	transfer.Seal()

	tx := Transaction{
		ChainID:     56,
		BlockNumber: 10,
		TxHash:      "0xtx",
		Success:     true,
		Transformed: true,
		Signals: []Signal{
			&TransferSignal{LogIndex: 1, Token: "0xtoken", From: "0xalice", To: "0xbob", Amount: BigIntFromInt64(100)},
			&SwapSignal{LogIndex: 2, Pool: "0xpool", Recipient: "0xalice", BaseAmount: BigIntFromInt64(100), QuoteAmount: BigIntFromInt64(-200)},
			&RouteSignal{LogIndex: 3, Router: "0xrouter", Taker: "0xalice", AmountIn: BigIntFromInt64(100), AmountOut: BigIntFromInt64(200)},
		},
		Events: []DomainEvent{transfer},
	}

	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(got.Signals) != 3 {
		t.Fatalf("signals = %d", len(got.Signals))
	}
	ts, ok := got.Signals[0].(*TransferSignal)
	if !ok {
		t.Fatalf("signal 0 decoded as %T", got.Signals[0])
	}
	if ts.Amount.String() != "100" || ts.From != "0xalice" {
		t.Fatalf("transfer signal = %+v", ts)
	}
	swap, ok := got.Signals[1].(*SwapSignal)
	if !ok {
		t.Fatalf("signal 1 decoded as %T", got.Signals[1])
	}
	if swap.QuoteAmount.String() != "-200" {
		t.Fatalf("swap amount = %s", swap.QuoteAmount)
	}
	if _, ok := got.Signals[2].(*RouteSignal); !ok {
		t.Fatalf("signal 2 decoded as %T", got.Signals[2])
	}

	if len(got.Events) != 1 {
		t.Fatalf("events = %d", len(got.Events))
	}
	event, ok := got.Events[0].(*Transfer)
	if !ok {
		t.Fatalf("event decoded as %T", got.Events[0])
	}
	if event.ContentID != transfer.ContentID {
		t.Fatalf("content id %s != %s", event.ContentID, transfer.ContentID)
	}
}

func TestTransactionJSONUnknownTransferTag(t *testing.T) {
	unknown := &Transfer{
		TxHash:  "0xtx",
		Token:   "0xtoken",
		From:    "0xalice",
		To:      "0xbob",
		Amount:  BigIntFromInt64(5),
		Unknown: true,
		Indices: []uint64{4},
	}
	unknown.Seal()

	data, err := json.Marshal(Transaction{TxHash: "0xtx", Events: []DomainEvent{unknown}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Transaction
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	event, ok := got.Events[0].(*Transfer)
	if !ok {
		t.Fatalf("event decoded as %T", got.Events[0])
	}
	if !event.Unknown || event.Type() != EventUnknownTransfer {
		t.Fatalf("unknown flag lost: %+v", event)
	}
}

func TestTransactionJSONUnknownKindRejected(t *testing.T) {
	var got Transaction
	err := json.Unmarshal([]byte(`{"tx_hash":"0xtx","signals":[{"kind":"mystery"}]}`), &got)
	if err == nil {
		t.Fatal("expected error for unknown signal kind")
	}
}
