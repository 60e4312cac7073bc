package journal

import (
	"context"
	"log/slog"

	"github.com/petal-labs/toolscope"
)

// Sink adapts the store to the toolscope.Sink interface so executions can
// be captured locally alongside (or instead of) remote delivery. Append
// failures are logged, never propagated.
func (s *Store) Sink(logger *slog.Logger) toolscope.Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &storeSink{store: s, logger: logger}
}

type storeSink struct {
	store  *Store
	logger *slog.Logger
}

func (s *storeSink) SendAsync(rec toolscope.Record) {
	if err := s.store.Append(context.Background(), rec); err != nil {
		s.logger.Error("failed to journal execution record",
			"execution_id", rec.ExecutionID,
			"tool_name", rec.ToolName,
			"error", err,
		)
	}
}

// FailureHandler returns a transport failure hook that journals every
// record the sender could not deliver.
func (s *Store) FailureHandler(logger *slog.Logger) func(rec toolscope.Record, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(rec toolscope.Record, sendErr error) {
		if err := s.Append(context.Background(), rec); err != nil {
			logger.Error("failed to journal undelivered record",
				"execution_id", rec.ExecutionID,
				"send_error", sendErr,
				"error", err,
			)
		}
	}
}
