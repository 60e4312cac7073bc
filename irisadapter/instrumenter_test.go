package irisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petal-labs/toolscope"
)

type recordingSink struct {
	mu      sync.Mutex
	records []toolscope.Record
}

func (s *recordingSink) SendAsync(rec toolscope.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) all() []toolscope.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]toolscope.Record, len(s.records))
	copy(out, s.records)
	return out
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", toolscope.NoopSink); err == nil {
		t.Fatal("New() without server host, want error")
	}
	if _, err := New("srv", nil); err == nil {
		t.Fatal("New() without sink, want error")
	}
}

func TestMiddlewareSuccessPassesThrough(t *testing.T) {
	sink := &recordingSink{}
	instrumenter, err := New("srv-1", sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	next := func(ctx context.Context, args json.RawMessage) (any, error) {
		return "hello world", nil
	}
	wrapped := instrumenter.Middleware()(next)

	result, err := wrapped(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("wrapped call error = %v", err)
	}
	if result != "hello world" {
		t.Fatalf("result = %v, want hello world", result)
	}

	records := sink.all()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Status != toolscope.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", rec.Status)
	}
	if rec.OutputTokens != 2 {
		t.Fatalf("output_tokens = %d, want 2", rec.OutputTokens)
	}
	// Plain context carries no iris tool context.
	if rec.ToolName != "unknown" {
		t.Fatalf("tool_name = %q, want unknown", rec.ToolName)
	}
	if rec.ServerHost != "srv-1" {
		t.Fatalf("server_host = %q, want srv-1", rec.ServerHost)
	}
}

func TestMiddlewareFailurePassesThrough(t *testing.T) {
	sink := &recordingSink{}
	instrumenter, err := New("srv-1", sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	callErr := errors.New("bad input")
	wrapped := instrumenter.Middleware()(func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, callErr
	})

	_, err = wrapped(context.Background(), nil)
	if !errors.Is(err, callErr) {
		t.Fatalf("error = %v, want original %v", err, callErr)
	}

	records := sink.all()
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Status != toolscope.StatusFailure {
		t.Fatalf("status = %s, want FAILURE", rec.Status)
	}
	if rec.ErrorMessage == nil || *rec.ErrorMessage != "bad input" {
		t.Fatalf("error_message = %v, want bad input", rec.ErrorMessage)
	}
}

func TestCollectorRecordsCall(t *testing.T) {
	sink := &recordingSink{}
	instrumenter, err := New("srv-1", sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	instrumenter.now = func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC)
	}

	collector := instrumenter.Collector()
	collector.RecordCall("fetch", time.Second, nil)
	collector.RecordCall("fetch", 500*time.Millisecond, errors.New("timeout"))

	records := sink.all()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	success := records[0]
	if success.ToolName != "fetch" {
		t.Fatalf("tool_name = %q, want fetch", success.ToolName)
	}
	if success.Status != toolscope.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", success.Status)
	}
	if success.DurationMS != 1000 {
		t.Fatalf("duration_ms = %d, want 1000", success.DurationMS)
	}
	if success.StartTimestamp != "2026-01-02 03:04:05.000" {
		t.Fatalf("start_timestamp = %q", success.StartTimestamp)
	}
	if success.OutputTokens != 0 {
		t.Fatalf("output_tokens = %d, want 0 from collector path", success.OutputTokens)
	}

	failure := records[1]
	if failure.Status != toolscope.StatusFailure {
		t.Fatalf("status = %s, want FAILURE", failure.Status)
	}
	if failure.ErrorMessage == nil || *failure.ErrorMessage != "timeout" {
		t.Fatalf("error_message = %v, want timeout", failure.ErrorMessage)
	}
}
