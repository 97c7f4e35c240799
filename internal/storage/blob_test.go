package storage

import (
	"os"
	"path/filepath"
	"testing"

	"tradescope/internal/model"
)

func testEnvelope() *model.BlockEnvelope {
	return &model.BlockEnvelope{
		ChainID:     56,
		BlockNumber: 1234,
		BlockHash:   "0xblock",
		Timestamp:   1700000000,
		Transactions: []model.Transaction{
			{TxHash: "0xtx", Success: true, Transformed: true},
		},
	}
}

func TestBlobStoreTwoPhase(t *testing.T) {
	root := t.TempDir()
	store := NewBlobStore(root)

	if err := store.WriteProcessing(testEnvelope()); err != nil {
		t.Fatalf("write processing: %v", err)
	}

	processing := filepath.Join(root, "processing", "block_56_1234.json")
	if _, err := os.Stat(processing); err != nil {
		t.Fatalf("processing file missing: %v", err)
	}
	if _, err := store.ReadComplete(56, 1234); err == nil {
		t.Fatal("envelope visible in complete before promotion")
	}

	if err := store.Promote(56, 1234); err != nil {
		t.Fatalf("promote: %v", err)
	}

	if _, err := os.Stat(processing); !os.IsNotExist(err) {
		t.Fatal("processing copy survived promotion")
	}

	envelope, err := store.ReadComplete(56, 1234)
	if err != nil {
		t.Fatalf("read complete: %v", err)
	}
	if envelope.BlockNumber != 1234 || envelope.ChainID != 56 {
		t.Fatalf("envelope = %+v", envelope)
	}
	if len(envelope.Transactions) != 1 || envelope.Transactions[0].TxHash != "0xtx" {
		t.Fatalf("transactions = %+v", envelope.Transactions)
	}
}

func TestBlobStoreRoundTripTransformedEnvelope(t *testing.T) {
	event := &model.Transfer{
		TxHash:  "0xtx",
		Token:   "0xtoken",
		From:    "0xalice",
		To:      "0xbob",
		Amount:  model.BigIntFromInt64(100),
		Indices: []uint64{1},
	}
	event.Seal()

	envelope := testEnvelope()
	envelope.Transactions[0].Signals = []model.Signal{
		&model.TransferSignal{LogIndex: 1, Token: "0xtoken", From: "0xalice", To: "0xbob", Amount: model.BigIntFromInt64(100)},
	}
	envelope.Transactions[0].Events = []model.DomainEvent{event}

	store := NewBlobStore(t.TempDir())
	if err := store.WriteProcessing(envelope); err != nil {
		t.Fatalf("write processing: %v", err)
	}
	if err := store.Promote(56, 1234); err != nil {
		t.Fatalf("promote: %v", err)
	}

	got, err := store.ReadComplete(56, 1234)
	if err != nil {
		t.Fatalf("read complete: %v", err)
	}
	tx := got.Transactions[0]
	if len(tx.Signals) != 1 || len(tx.Events) != 1 {
		t.Fatalf("signals = %d, events = %d", len(tx.Signals), len(tx.Events))
	}
	sig, ok := tx.Signals[0].(*model.TransferSignal)
	if !ok {
		t.Fatalf("signal decoded as %T", tx.Signals[0])
	}
	if sig.Amount.String() != "100" {
		t.Fatalf("signal amount = %s", sig.Amount)
	}
	read, ok := tx.Events[0].(*model.Transfer)
	if !ok {
		t.Fatalf("event decoded as %T", tx.Events[0])
	}
	if read.ContentID != event.ContentID {
		t.Fatalf("content id %s != %s", read.ContentID, event.ContentID)
	}
}

func TestBlobStoreNoPartialWrites(t *testing.T) {
	root := t.TempDir()
	store := NewBlobStore(root)

	if err := store.WriteProcessing(testEnvelope()); err != nil {
		t.Fatalf("write processing: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "processing"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Fatalf("tmp file left behind: %s", entry.Name())
		}
	}
}

func TestListEnvelopes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"block_56_2.json", "block_56_1.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	paths, err := ListEnvelopes(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v", paths)
	}
	if filepath.Base(paths[0]) != "block_56_1.json" {
		t.Fatalf("not sorted: %v", paths)
	}
}

func TestPromoteMissingEnvelope(t *testing.T) {
	store := NewBlobStore(t.TempDir())
	if err := store.Promote(56, 99); err == nil {
		t.Fatal("expected error promoting missing envelope")
	}
}
