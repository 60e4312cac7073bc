package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/petal-labs/toolscope"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{
		DSN: filepath.Join(t.TempDir(), "journal.db"),
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func journalRecord(id, tool string) toolscope.Record {
	return toolscope.Record{
		ExecutionID:    id,
		ToolName:       tool,
		StartTimestamp: "2026-01-02 03:04:05.000",
		EndTimestamp:   "2026-01-02 03:04:05.120",
		DurationMS:     120,
		ServerHost:     "srv-1",
		Status:         toolscope.StatusSuccess,
		OutputTokens:   2,
	}
}

func TestStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(StoreConfig{}); err == nil {
		t.Fatal("NewStore() without dsn, want error")
	}
}

func TestStoreAppendAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, journalRecord("exec-1", "greet")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(ctx, journalRecord("exec-2", "fetch")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Recent() = %d records, want 2", len(records))
	}

	byID := make(map[string]toolscope.Record)
	for _, rec := range records {
		byID[rec.ExecutionID] = rec
	}
	got, ok := byID["exec-1"]
	if !ok {
		t.Fatal("exec-1 not found")
	}
	if got.ToolName != "greet" || got.DurationMS != 120 || got.Status != toolscope.StatusSuccess {
		t.Fatalf("round-tripped record = %+v", got)
	}
}

func TestStoreAppendOverwritesSameExecution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, journalRecord("exec-1", "greet")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	updated := journalRecord("exec-1", "greet-v2")
	if err := store.Append(ctx, updated); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Recent() = %d records, want 1", len(records))
	}
	if records[0].ToolName != "greet-v2" {
		t.Fatalf("tool_name = %q, want greet-v2", records[0].ToolName)
	}
}

func TestStoreAppendRequiresExecutionID(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append(context.Background(), toolscope.Record{}); err == nil {
		t.Fatal("Append() without execution id, want error")
	}
}

func TestStoreRecentLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, journalRecord(id, "greet")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Recent(2) = %d records, want 2", len(records))
	}

	records, err = store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) error = %v", err)
	}
	if records != nil {
		t.Fatalf("Recent(0) = %v, want nil", records)
	}
}

func TestStorePrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, journalRecord("old", "greet")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Cutoff in the past removes nothing.
	removed, err := store.Prune(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 0 {
		t.Fatalf("Prune(past) removed %d, want 0", removed)
	}

	// Cutoff in the future removes everything recorded so far.
	removed, err = store.Prune(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Prune(future) removed %d, want 1", removed)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("Recent() after prune = %d records, want 0", len(records))
	}
}

func TestStoreSinkAppends(t *testing.T) {
	store := newTestStore(t)

	sink := store.Sink(nil)
	sink.SendAsync(journalRecord("exec-1", "greet"))

	records, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Recent() = %d records, want 1", len(records))
	}
}

func TestStoreFailureHandlerJournalsRecord(t *testing.T) {
	store := newTestStore(t)

	handler := store.FailureHandler(nil)
	handler(journalRecord("exec-1", "greet"), context.DeadlineExceeded)

	records, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Recent() = %d records, want 1", len(records))
	}
}
