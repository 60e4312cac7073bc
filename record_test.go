package toolscope

import (
	"testing"
	"time"
)

func TestFormatTimestampMillisecondPrecision(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	got := FormatTimestamp(ts)
	want := "2026-03-14 09:26:53.589"
	if got != want {
		t.Fatalf("FormatTimestamp() = %q, want %q", got, want)
	}
	if len(got) != len(TimestampLayout) {
		t.Fatalf("timestamp width = %d, want %d", len(got), len(TimestampLayout))
	}
}

func TestDurationMS(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := DurationMS(start, start.Add(1500*time.Millisecond)); got != 1500 {
		t.Fatalf("DurationMS() = %d, want 1500", got)
	}
	if got := DurationMS(start, start.Add(999*time.Microsecond)); got != 0 {
		t.Fatalf("sub-millisecond DurationMS() = %d, want 0", got)
	}
	// Clock skew must never produce a negative duration.
	if got := DurationMS(start, start.Add(-time.Second)); got != 0 {
		t.Fatalf("negative DurationMS() = %d, want 0", got)
	}
}

func TestCharCountEstimator(t *testing.T) {
	est := CharCountEstimator{}

	if got := est.EstimateTokens("hello world"); got != 2 {
		t.Fatalf("EstimateTokens(hello world) = %d, want 2", got)
	}
	if got := est.EstimateTokens(nil); got != 0 {
		t.Fatalf("EstimateTokens(nil) = %d, want 0", got)
	}
	// Non-string results are measured via their JSON form.
	if got := est.EstimateTokens(map[string]any{"ok": true}); got != len(`{"ok":true}`)/4 {
		t.Fatalf("EstimateTokens(map) = %d, want %d", got, len(`{"ok":true}`)/4)
	}
}

func TestCharCountEstimatorCustomDivisor(t *testing.T) {
	est := CharCountEstimator{CharsPerToken: 2}
	if got := est.EstimateTokens("hello world"); got != 5 {
		t.Fatalf("EstimateTokens() = %d, want 5", got)
	}
}

func TestNewExecutionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewExecutionID()
		if id == "" {
			t.Fatal("NewExecutionID() returned empty string")
		}
		if seen[id] {
			t.Fatalf("duplicate execution id %q", id)
		}
		seen[id] = true
	}
}
