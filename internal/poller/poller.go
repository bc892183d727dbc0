package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/autofilm-dash/internal/model"
)

// Source fetches the polled endpoints. *api.Client satisfies it.
type Source interface {
	Health(ctx context.Context) (*model.HealthStatus, error)
	Stats(ctx context.Context) (*model.SystemStats, error)
}

// Snapshot is the result of one poll cycle. Health or Stats is nil when its
// request failed; Err holds the first failure.
type Snapshot struct {
	Health    *model.HealthStatus
	Stats     *model.SystemStats
	FetchedAt time.Time
	Err       error
}

// SnapshotHandler receives fetched snapshots.
type SnapshotHandler interface {
	HandleSnapshot(snapshot Snapshot)
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(Snapshot)

func (f SnapshotHandlerFunc) HandleSnapshot(s Snapshot) {
	f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 30s)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Poller periodically fetches health and stats.
type Poller struct {
	cfg     Config
	source  Source
	handler SnapshotHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, source Source, handler SnapshotHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &Poller{
		cfg:     cfg,
		source:  source,
		handler: handler,
		logger:  logger.With("component", "poller"),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("status poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("status poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll(p.ctx)
		}
	}
}

// Poll runs one cycle and returns its snapshot without calling the handler.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	var snap Snapshot
	var g errgroup.Group

	g.Go(func() error {
		h, err := p.source.Health(ctx)
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		snap.Health = h
		return nil
	})
	g.Go(func() error {
		s, err := p.source.Stats(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		snap.Stats = s
		return nil
	})

	snap.Err = g.Wait()
	snap.FetchedAt = time.Now()
	return snap
}

func (p *Poller) poll(ctx context.Context) {
	start := time.Now()

	snap := p.Poll(ctx)
	if ctx.Err() != nil {
		return
	}

	if snap.Err != nil {
		p.logger.Warn("poll cycle failed", "error", snap.Err, "duration", time.Since(start))
	} else {
		p.logger.Debug("poll cycle complete",
			"health", snap.Health.Status,
			"duration", time.Since(start),
		)
	}

	if p.handler != nil {
		p.handler.HandleSnapshot(snap)
	}
}
