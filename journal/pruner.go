package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs retention pruning daily at 03:00 UTC.
const DefaultPruneSchedule = "0 3 * * *"

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// PrunerConfig configures background journal pruning.
type PrunerConfig struct {
	// Schedule is a five-field UTC cron expression. Defaults to
	// DefaultPruneSchedule.
	Schedule string

	// RetentionHours is how long records are kept. Defaults to 168 (7 days).
	RetentionHours int

	// Logger receives pruning diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Pruner deletes expired journal rows on a cron schedule.
type Pruner struct {
	store     *Store
	schedule  cron.Schedule
	retention time.Duration
	logger    *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPruner creates a Pruner for the given store. The schedule must be a
// plain UTC cron expression; timezone prefixes are rejected.
func NewPruner(store *Store, cfg PrunerConfig) (*Pruner, error) {
	if store == nil {
		return nil, errors.New("journal: pruner store is required")
	}

	expr := strings.TrimSpace(cfg.Schedule)
	if expr == "" {
		expr = DefaultPruneSchedule
	}
	schedule, err := parseCronExpressionUTC(expr)
	if err != nil {
		return nil, err
	}

	retention := 168 * time.Hour
	if cfg.RetentionHours > 0 {
		retention = time.Duration(cfg.RetentionHours) * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pruner{
		store:     store,
		schedule:  schedule,
		retention: retention,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start launches the pruning loop in a background goroutine.
func (p *Pruner) Start() {
	go p.run()
}

// Stop halts the pruning loop and waits for it to exit.
func (p *Pruner) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
}

func (p *Pruner) run() {
	defer close(p.done)
	for {
		now := time.Now().UTC()
		next := p.schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-p.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		p.pruneOnce()
	}
}

func (p *Pruner) pruneOnce() {
	cutoff := time.Now().UTC().Add(-p.retention)
	removed, err := p.store.Prune(context.Background(), cutoff)
	if err != nil {
		p.logger.Error("journal prune failed", "error", err)
		return
	}
	if removed > 0 {
		p.logger.Info("journal pruned", "removed", removed, "cutoff", cutoff)
	}
}

func parseCronExpressionUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, errors.New("journal: cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, errors.New("journal: cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("journal: invalid cron expression: %w", err)
	}
	return schedule, nil
}
