// Package transport delivers execution records to a remote collector over
// HTTP. Delivery is best-effort and at-most-once: failures are logged and
// optionally journaled, never retried, and never surfaced to the tool path.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/petal-labs/toolscope"
)

// DefaultTimeout bounds one collector POST.
const DefaultTimeout = 5 * time.Second

// Config configures a Sender.
type Config struct {
	// Endpoint is the collector URL. Required.
	Endpoint string

	// TimeoutMS bounds each POST in milliseconds. Defaults to 5000.
	TimeoutMS int

	// Workers is the async dispatch pool size. Defaults to 4.
	Workers int

	// QueueSize bounds the async queue; records beyond it are dropped.
	// Defaults to 256.
	QueueSize int

	// Logger receives delivery diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnFailure is invoked for every record that could not be delivered,
	// including records dropped by the queue. Optional.
	OnFailure func(rec toolscope.Record, err error)
}

// ErrQueueFull reports a record dropped because the async queue was full.
var ErrQueueFull = errors.New("transport: dispatch queue full")

// Sender posts execution records to a collector endpoint.
type Sender struct {
	endpoint   string
	client     *http.Client
	logger     *slog.Logger
	onFailure  func(rec toolscope.Record, err error)
	dispatcher *dispatcher
}

// NewSender creates a Sender and starts its dispatch workers.
func NewSender(cfg Config) (*Sender, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("transport: endpoint is required")
	}

	timeout := DefaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sender{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		onFailure: cfg.OnFailure,
	}
	s.dispatcher = newDispatcher(dispatcherConfig{
		workers:   cfg.Workers,
		queueSize: cfg.QueueSize,
		deliver:   s.deliver,
		onDrop: func(rec toolscope.Record) {
			logger.Debug("execution record dropped",
				"execution_id", rec.ExecutionID,
				"tool_name", rec.ToolName,
			)
			if s.onFailure != nil {
				s.onFailure(rec, ErrQueueFull)
			}
		},
	})
	return s, nil
}

// Send posts one record synchronously. Any network error, timeout, or
// non-2xx response is returned as an error; nothing is retried.
func (s *Sender) Send(ctx context.Context, rec toolscope.Record) error {
	if s == nil {
		return errors.New("transport: sender is nil")
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("transport: encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: post record: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("transport: collector returned status %d", resp.StatusCode)
	}
	return nil
}

// SendAsync enqueues a record for background delivery and returns
// immediately. When the queue is full the record is dropped.
func (s *Sender) SendAsync(rec toolscope.Record) {
	if s == nil {
		return
	}
	s.dispatcher.enqueue(rec)
}

// Dropped returns the number of records dropped by the async queue.
func (s *Sender) Dropped() uint64 {
	return s.dispatcher.dropped()
}

// Close stops the dispatch workers. In-flight deliveries are abandoned;
// queued records are not drained.
func (s *Sender) Close() {
	s.dispatcher.close()
}

func (s *Sender) deliver(rec toolscope.Record) {
	err := s.Send(context.Background(), rec)
	if err == nil {
		return
	}
	s.logger.Warn("failed to deliver execution record",
		"execution_id", rec.ExecutionID,
		"tool_name", rec.ToolName,
		"error", err,
	)
	if s.onFailure != nil {
		s.onFailure(rec, err)
	}
}

// Ensure interface compliance at compile time.
var _ toolscope.Sink = (*Sender)(nil)
