// Package irisadapter instruments iris tool calls with toolscope
// execution records. Hosts using iris install the middleware on their
// tool chain; hosts that only expose the metrics-collector seam can use
// the Collector bridge instead.
package irisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/petal-labs/iris/tools"

	"github.com/petal-labs/toolscope"
)

// unknownToolName labels calls whose iris tool context is missing.
const unknownToolName = "unknown"

// Instrumenter produces iris integration points backed by a record sink.
type Instrumenter struct {
	serverHost string
	sink       toolscope.Sink
	estimator  toolscope.TokenEstimator
	now        func() time.Time
}

// New creates an Instrumenter. Missing configuration fails fast.
func New(serverHost string, sink toolscope.Sink) (*Instrumenter, error) {
	if serverHost == "" {
		return nil, errors.New("irisadapter: server host is required")
	}
	if sink == nil {
		return nil, errors.New("irisadapter: sink is required")
	}
	return &Instrumenter{
		serverHost: serverHost,
		sink:       sink,
		estimator:  toolscope.CharCountEstimator{},
		now:        time.Now,
	}, nil
}

// Middleware returns iris middleware emitting one execution record per
// tool call. The call's result and error pass through unchanged.
func (i *Instrumenter) Middleware() tools.Middleware {
	return func(next tools.ToolCallFunc) tools.ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			toolName := unknownToolName
			if tc := tools.ToolContextFromContext(ctx); tc != nil {
				toolName = tc.ToolName
			}

			start := i.now()
			result, err := next(ctx, args)
			end := i.now()

			i.sink.SendAsync(i.buildRecord(toolName, start, end, result, err))
			return result, err
		}
	}
}

// Collector returns an iris metrics collector emitting execution records.
// The collector callback carries no result payload, so records from this
// path have no output token estimate.
func (i *Instrumenter) Collector() tools.MetricsCollector {
	return &recordCollector{instrumenter: i}
}

type recordCollector struct {
	instrumenter *Instrumenter
}

// RecordCall records a tool call with its outcome.
func (c *recordCollector) RecordCall(toolName string, duration time.Duration, err error) {
	i := c.instrumenter
	end := i.now()
	start := end.Add(-duration)
	i.sink.SendAsync(i.buildRecord(toolName, start, end, nil, err))
}

func (i *Instrumenter) buildRecord(toolName string, start, end time.Time, result any, err error) toolscope.Record {
	rec := toolscope.Record{
		ExecutionID:    toolscope.NewExecutionID(),
		ToolName:       toolName,
		ServerHost:     i.serverHost,
		StartTimestamp: toolscope.FormatTimestamp(start),
		EndTimestamp:   toolscope.FormatTimestamp(end),
		DurationMS:     toolscope.DurationMS(start, end),
	}
	if err != nil {
		message := err.Error()
		rec.Status = toolscope.StatusFailure
		rec.ErrorMessage = &message
		return rec
	}
	rec.Status = toolscope.StatusSuccess
	rec.OutputTokens = i.estimator.EstimateTokens(result)
	return rec
}

// Ensure interface compliance at compile time.
var _ tools.MetricsCollector = (*recordCollector)(nil)
