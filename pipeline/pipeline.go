// Package pipeline assembles a full record delivery pipeline from a
// config: HTTP sender, optional local journal with scheduled pruning,
// and optional OpenTelemetry bridge, fanned in behind a single sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/toolscope"
	"github.com/petal-labs/toolscope/config"
	"github.com/petal-labs/toolscope/journal"
	toolotel "github.com/petal-labs/toolscope/otel"
	"github.com/petal-labs/toolscope/transport"
)

// Pipeline owns the delivery-side resources of an instrumented process.
type Pipeline struct {
	sink   toolscope.Sink
	sender *transport.Sender
	store  *journal.Store
	pruner *journal.Pruner

	otelShutdown func(context.Context) error
}

// New builds a pipeline from cfg. The returned pipeline's Sink is what
// gets passed to toolscope.Instrument.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{}

	if cfg.Journal.Path != "" {
		store, err := journal.NewStore(journal.StoreConfig{DSN: cfg.Journal.Path})
		if err != nil {
			return nil, err
		}
		p.store = store

		pruner, err := journal.NewPruner(store, journal.PrunerConfig{
			Schedule:       cfg.Journal.PruneSchedule,
			RetentionHours: cfg.Journal.RetentionHours,
			Logger:         logger,
		})
		if err != nil {
			p.Close(ctx)
			return nil, err
		}
		p.pruner = pruner
		pruner.Start()
	}

	senderCfg := transport.Config{
		Endpoint:  cfg.Endpoint,
		TimeoutMS: cfg.TimeoutMS,
		Workers:   cfg.Dispatcher.Workers,
		QueueSize: cfg.Dispatcher.QueueSize,
		Logger:    logger,
	}
	if p.store != nil {
		senderCfg.OnFailure = p.store.FailureHandler(logger)
	}
	sender, err := transport.NewSender(senderCfg)
	if err != nil {
		p.Close(ctx)
		return nil, err
	}
	p.sender = sender

	sinks := toolscope.MultiSink{sender}

	if cfg.OTel.Enabled {
		shutdown, err := toolotel.Setup(ctx, toolotel.SetupConfig{
			Endpoint:    cfg.OTel.OTLPEndpoint,
			ServiceName: cfg.OTel.ServiceName,
			Insecure:    cfg.OTel.Insecure,
		})
		if err != nil {
			p.Close(ctx)
			return nil, err
		}
		p.otelShutdown = shutdown

		observer, err := toolotel.NewExecutionObserver(
			otelapi.GetMeterProvider().Meter("toolscope"),
			otelapi.GetTracerProvider().Tracer("toolscope"),
		)
		if err != nil {
			p.Close(ctx)
			return nil, fmt.Errorf("pipeline: create execution observer: %w", err)
		}
		sinks = append(sinks, observer)
	}

	p.sink = sinks
	return p, nil
}

// Sink returns the fan-in sink for toolscope.Instrument.
func (p *Pipeline) Sink() toolscope.Sink {
	return p.sink
}

// Journal returns the local journal store, or nil when not configured.
func (p *Pipeline) Journal() *journal.Store {
	return p.store
}

// Close releases pipeline resources. Queued deliveries are abandoned,
// consistent with the at-most-once delivery contract.
func (p *Pipeline) Close(ctx context.Context) {
	if p.sender != nil {
		p.sender.Close()
	}
	if p.pruner != nil {
		p.pruner.Stop()
	}
	if p.otelShutdown != nil {
		_ = p.otelShutdown(ctx)
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
