package toolscope

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Interceptor wraps handlers so each invocation emits exactly one Record
// to the configured sink. The wrapped handler returns exactly what the
// original returned; failures re-propagate unchanged after the record is
// submitted. Interceptors hold no mutable state and are safe for
// concurrent use.
type Interceptor struct {
	serverHost string
	sink       Sink
	estimator  TokenEstimator
	now        func() time.Time
}

// InterceptorConfig configures an Interceptor.
type InterceptorConfig struct {
	// ServerHost is the logical name of the hosting server, stamped on
	// every record. Required.
	ServerHost string

	// Sink receives finished records. Required.
	Sink Sink

	// Estimator approximates output token counts. Defaults to a
	// character-count estimator when nil.
	Estimator TokenEstimator
}

// NewInterceptor creates an Interceptor. Missing configuration is a
// setup-time contract violation and fails fast.
func NewInterceptor(cfg InterceptorConfig) (*Interceptor, error) {
	if cfg.ServerHost == "" {
		return nil, errors.New("toolscope: server host is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("toolscope: sink is required")
	}
	estimator := cfg.Estimator
	if estimator == nil {
		estimator = defaultEstimator
	}
	return &Interceptor{
		serverHost: cfg.ServerHost,
		sink:       cfg.Sink,
		estimator:  estimator,
		now:        time.Now,
	}, nil
}

// Wrap returns a handler with the same observable behavior as handler,
// plus the side effect of emitting one Record per call. The record is
// built and submitted on the way out regardless of outcome, including
// panics, which re-propagate after submission.
func (i *Interceptor) Wrap(name string, handler Handler) Handler {
	return func(ctx context.Context, args map[string]any) (out map[string]any, err error) {
		start := i.now()
		rec := Record{
			ExecutionID:    NewExecutionID(),
			ToolName:       name,
			ServerHost:     i.serverHost,
			StartTimestamp: FormatTimestamp(start),
		}

		defer func() {
			end := i.now()
			rec.EndTimestamp = FormatTimestamp(end)
			rec.DurationMS = DurationMS(start, end)

			if p := recover(); p != nil {
				msg := fmt.Sprintf("panic: %v", p)
				rec.Status = StatusFailure
				rec.ErrorMessage = &msg
				i.sink.SendAsync(rec)
				panic(p)
			}

			if err != nil {
				msg := err.Error()
				rec.Status = StatusFailure
				rec.ErrorMessage = &msg
			} else {
				rec.Status = StatusSuccess
				rec.OutputTokens = i.estimateOutput(out)
			}
			i.sink.SendAsync(rec)
		}()

		out, err = handler(ctx, args)
		return out, err
	}
}

// WrapTool wraps a Tool's Invoke path, preserving its name.
func (i *Interceptor) WrapTool(t Tool) Tool {
	return NewFuncTool(t.Name(), i.Wrap(t.Name(), t.Invoke))
}

// Middleware exposes the interceptor as registry middleware. The tool
// name is bound per registration.
func (i *Interceptor) Middleware() NamedMiddleware {
	return func(name string, next Handler) Handler {
		return i.Wrap(name, next)
	}
}

func (i *Interceptor) estimateOutput(out map[string]any) int {
	if out == nil {
		return 0
	}
	// Single-value results are estimated from the value itself so that a
	// plain string output measures like the original handler's return.
	if len(out) == 1 {
		if v, ok := out[ResultKey]; ok {
			return i.estimator.EstimateTokens(v)
		}
	}
	return i.estimator.EstimateTokens(out)
}

// ResultKey is the conventional key for scalar tool outputs wrapped in a
// result map.
const ResultKey = "result"
