package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nemeth06/settlement-worker/internal/model"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settlement.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertIntent(t *testing.T, s *SQLStore, in model.Intent) {
	t.Helper()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO intents(id, status, hash, to_address, value, calldata, gas_limit, retry_count, last_error, created_at, updated_at)
		 VALUES (?, ?, NULL, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		in.ID, string(in.Status), in.To, in.Value, in.Calldata, in.GasLimit, now, now)
	if err != nil {
		t.Fatalf("inserting fixture intent: %v", err)
	}
}

func TestGetPendingOrdersByCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertIntent(t, s, model.Intent{ID: "first", Status: model.StatusPending, To: "0x1", Value: "1", Calldata: "0x", GasLimit: "21000"})
	time.Sleep(10 * time.Millisecond)
	insertIntent(t, s, model.Intent{ID: "second", Status: model.StatusPending, To: "0x1", Value: "1", Calldata: "0x", GasLimit: "21000"})

	pending, err := s.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "first" || pending[1].ID != "second" {
		t.Fatalf("got %+v, want [first, second] in createdAt order", pending)
	}
}

func TestSetStatusWritesHashOnlyWithStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertIntent(t, s, model.Intent{ID: "t1", Status: model.StatusPending, To: "0x1", Value: "1", Calldata: "0x", GasLimit: "21000"})

	if err := s.SetStatus(ctx, "t1", model.StatusSettled, "0xabc"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusSettled || got.Hash != "0xabc" {
		t.Fatalf("got status=%s hash=%s, want SETTLED/0xabc", got.Status, got.Hash)
	}
}

func TestDLQInsertsRowAndMarksFailed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertIntent(t, s, model.Intent{ID: "t1", Status: model.StatusProcessing, To: "0x1", Value: "1", Calldata: "0x", GasLimit: "21000"})

	if err := s.DLQ(ctx, "t1", model.ReasonPermanentError, "execution reverted"); err != nil {
		t.Fatalf("DLQ: %v", err)
	}

	got, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusFailed {
		t.Fatalf("got status=%s, want FAILED", got.Status)
	}

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dlq_entries WHERE intent_id = ?`, "t1")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scanning dlq count: %v", err)
	}
	if count != 1 {
		t.Fatalf("dlq row count = %d, want 1", count)
	}

	entries, err := s.ListDLQ(ctx)
	if err != nil {
		t.Fatalf("ListDLQ: %v", err)
	}
	if len(entries) != 1 || entries[0].IntentID != "t1" || entries[0].Reason != model.ReasonPermanentError {
		t.Fatalf("got %+v, want one entry for t1 with reason %q", entries, model.ReasonPermanentError)
	}
}

func TestSweepStaleProcessing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertIntent(t, s, model.Intent{ID: "stuck", Status: model.StatusProcessing, To: "0x1", Value: "1", Calldata: "0x", GasLimit: "21000"})
	insertIntent(t, s, model.Intent{ID: "fine", Status: model.StatusPending, To: "0x1", Value: "1", Calldata: "0x", GasLimit: "21000"})

	n, err := s.SweepStaleProcessing(ctx)
	if err != nil {
		t.Fatalf("SweepStaleProcessing: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d intents, want 1", n)
	}

	got, err := s.Get(ctx, "stuck")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Fatalf("got status=%s, want PENDING after sweep", got.Status)
	}
}
