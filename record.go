// Package toolscope instruments tool handlers served by a host framework.
// It wraps handlers so every invocation is timed, classified, and emitted
// as a structured execution record to a collector, without changing the
// handler's observable behavior.
package toolscope

import (
	"time"

	"github.com/google/uuid"
)

// Status classifies the outcome of one tool invocation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// TimestampLayout is the wall-clock format used on the wire,
// millisecond precision.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Record captures one tool invocation. It is built entirely within the
// wrapper frame of a single call and never mutated after construction.
type Record struct {
	ExecutionID    string  `json:"execution_id"`
	ToolName       string  `json:"tool_name"`
	StartTimestamp string  `json:"start_timestamp"`
	EndTimestamp   string  `json:"end_timestamp"`
	DurationMS     int64   `json:"duration_ms"`
	ServerHost     string  `json:"server_host"`
	Status         Status  `json:"status"`
	ErrorMessage   *string `json:"error_message"`
	OutputTokens   int     `json:"output_tokens"`
}

// NewExecutionID returns a fresh globally unique execution identifier.
func NewExecutionID() string {
	return uuid.NewString()
}

// FormatTimestamp renders t in the wire timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// DurationMS returns the elapsed whole milliseconds between start and end.
// Negative intervals clamp to zero.
func DurationMS(start, end time.Time) int64 {
	ms := end.Sub(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
