// Package otel publishes execution records as OpenTelemetry metrics and
// spans, alongside (or instead of) remote collector delivery.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/toolscope"
)

// ExecutionObserver records tool execution records into OpenTelemetry.
// It implements toolscope.Sink so it can be fanned in next to the HTTP
// transport via toolscope.MultiSink.
type ExecutionObserver struct {
	tracer trace.Tracer

	executions metric.Int64Counter
	failures   metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewExecutionObserver creates an observer bound to the provided
// meter/tracer.
func NewExecutionObserver(meter metric.Meter, tracer trace.Tracer) (*ExecutionObserver, error) {
	executions, err := meter.Int64Counter(
		"toolscope.executions",
		metric.WithDescription("Number of tool executions"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"toolscope.failures",
		metric.WithDescription("Number of failed tool executions"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolscope.execution.latency",
		metric.WithDescription("Tool execution latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ExecutionObserver{
		tracer:     tracer,
		executions: executions,
		failures:   failures,
		latency:    latency,
	}, nil
}

// SendAsync records one execution record.
func (o *ExecutionObserver) SendAsync(rec toolscope.Record) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", rec.ToolName),
		attribute.String("server_host", rec.ServerHost),
		attribute.String("status", string(rec.Status)),
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.executions.Add(ctx, 1, options)
	if rec.Status == toolscope.StatusFailure {
		o.failures.Add(ctx, 1, options)
	}
	o.latency.Record(ctx, float64(rec.DurationMS)/1000, options)

	if o.tracer == nil {
		return
	}

	start, end, ok := recordInterval(rec)
	startOpts := []trace.SpanStartOption{trace.WithAttributes(attrs...)}
	endOpts := []trace.SpanEndOption{}
	if ok {
		startOpts = append(startOpts, trace.WithTimestamp(start))
		endOpts = append(endOpts, trace.WithTimestamp(end))
	}

	_, span := o.tracer.Start(ctx, "tool.execute", startOpts...)
	span.SetAttributes(attribute.String("execution_id", rec.ExecutionID))
	if rec.Status == toolscope.StatusFailure {
		message := ""
		if rec.ErrorMessage != nil {
			message = *rec.ErrorMessage
		}
		span.SetStatus(codes.Error, message)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(endOpts...)
}

// recordInterval recovers the wall-clock interval from the record's
// formatted timestamps.
func recordInterval(rec toolscope.Record) (time.Time, time.Time, bool) {
	start, err := time.Parse(toolscope.TimestampLayout, rec.StartTimestamp)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(toolscope.TimestampLayout, rec.EndTimestamp)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Ensure interface compliance at compile time.
var _ toolscope.Sink = (*ExecutionObserver)(nil)
