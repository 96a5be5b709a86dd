package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/ares/internal/marketdata"
	"github.com/rickgao/ares/internal/metrics"
	"github.com/rickgao/ares/internal/model"
)

// Fetcher retrieves one market snapshot.
type Fetcher interface {
	FetchMarketData(ctx context.Context, marketID string) (model.Snapshot, error)
}

// MarketSource provides the market ids to poll.
type MarketSource interface {
	Markets() []string
}

// StaticMarkets is a fixed MarketSource.
type StaticMarkets []string

func (s StaticMarkets) Markets() []string {
	return s
}

// SnapshotHandler receives fetched snapshots.
type SnapshotHandler interface {
	HandleSnapshot(ctx context.Context, snapshot model.MarketSnapshot) error
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(context.Context, model.MarketSnapshot) error

func (f SnapshotHandlerFunc) HandleSnapshot(ctx context.Context, s model.MarketSnapshot) error {
	return f(ctx, s)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 15m)
	Concurrency int           // Max concurrent requests (default: 10)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    15 * time.Minute,
		Concurrency: 10,
		Timeout:     10 * time.Second,
	}
}

// CycleStats summarizes one poll cycle.
type CycleStats struct {
	ID        uuid.UUID
	StartedAt time.Time
	Markets   int
	Fetched   int
	Failed    int
	Duration  time.Duration
}

// Option configures a Poller.
type Option func(*Poller)

// WithMetrics sets the metrics engine.
func WithMetrics(m metrics.Engine) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// Poller periodically fetches market snapshots from the provider.
type Poller struct {
	cfg     Config
	fetcher Fetcher
	markets MarketSource
	handler SnapshotHandler
	logger  *slog.Logger
	metrics metrics.Engine
	now     func() time.Time

	lastMu sync.RWMutex
	last   CycleStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. handler may be nil.
func New(cfg Config, fetcher Fetcher, markets MarketSource, handler SnapshotHandler, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	p := &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		markets: markets,
		handler: handler,
		logger:  logger,
		metrics: metrics.NilEngine{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("snapshot poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
		"markets", len(p.markets.Markets()),
	)

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
		p.logger.Info("snapshot poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastCycle returns the stats of the most recent completed cycle.
// The zero value means no cycle has completed yet.
func (p *Poller) LastCycle() CycleStats {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	return p.last
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.PollOnce(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(p.ctx)
		}
	}
}

// PollOnce fetches every market once with bounded concurrency.
func (p *Poller) PollOnce(ctx context.Context) CycleStats {
	stats := CycleStats{
		ID:        uuid.New(),
		StartedAt: p.now(),
	}

	markets := p.markets.Markets()
	stats.Markets = len(markets)
	if len(markets) == 0 {
		p.logger.Debug("no markets to poll")
		return stats
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	var fetched, failed atomic.Int64

	for _, marketID := range markets {
		if ctx.Err() != nil {
			break
		}
		marketID := marketID
		g.Go(func() error {
			if err := p.pollMarket(ctx, marketID); err != nil {
				// The client already logged fetch and parse failures at error level.
				p.logger.Warn("failed to poll market",
					"cycle_id", stats.ID,
					"market_id", marketID,
					"retryable", isRetryable(err),
					"error", err,
				)
				failed.Add(1)
				return nil
			}
			fetched.Add(1)
			return nil
		})
	}

	g.Wait()

	stats.Fetched = int(fetched.Load())
	stats.Failed = int(failed.Load())
	stats.Duration = time.Since(stats.StartedAt)

	p.lastMu.Lock()
	p.last = stats
	p.lastMu.Unlock()

	p.metrics.RecordPollCycle(stats.Fetched, stats.Failed, stats.Duration)

	p.logger.Info("poll cycle complete",
		"cycle_id", stats.ID,
		"markets", stats.Markets,
		"fetched", stats.Fetched,
		"errors", stats.Failed,
		"duration", stats.Duration,
	)

	return stats
}

// pollMarket fetches and handles a single market's snapshot.
func (p *Poller) pollMarket(ctx context.Context, marketID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	data, err := p.fetcher.FetchMarketData(ctx, marketID)
	if err != nil {
		return err
	}

	if p.handler != nil {
		snap := model.NewMarketSnapshot(marketID, data, p.now())
		if err := p.handler.HandleSnapshot(ctx, snap); err != nil {
			return err
		}
	}

	return nil
}

// isRetryable reports whether a failed fetch may succeed next cycle.
func isRetryable(err error) bool {
	var fetchErr *marketdata.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.IsRetryable()
	}
	return false
}
