// Package gc prunes expired records from the command journal.
//
// The memory journal is already bounded by its capacity, but a badger
// journal grows with every invocation. The collector removes records older
// than a maximum age, either on demand (afsctl prune) or periodically while
// a long-running command such as afsctl watch is active.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/journal"
)

// DefaultInterval is used when Config.Interval is zero.
const DefaultInterval = time.Hour

// Collector periodically prunes a journal.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	store    journal.Pruner
	config   Config
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

// Config contains configuration for the collector.
type Config struct {
	// MaxAge is how long records are kept; 0 disables collection
	MaxAge time.Duration

	// Interval is how often to prune (default: 1h)
	Interval time.Duration

	// DryRun logs what would be pruned without deleting
	DryRun bool
}

// Enabled reports whether the configuration prunes anything.
func (c Config) Enabled() bool {
	return c.MaxAge > 0
}

// NewCollector creates a collector for store. It fails when the store
// cannot prune.
func NewCollector(store journal.Store, config Config) (*Collector, error) {
	pruner, ok := store.(journal.Pruner)
	if !ok {
		return nil, fmt.Errorf("journal store %T does not support pruning", store)
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	return &Collector{
		store:  pruner,
		config: config,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start begins background collection. It does nothing when MaxAge is 0 or
// when the collector is already running.
func (c *Collector) Start() {
	if !c.config.Enabled() {
		logger.Debug("Journal retention disabled")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	logger.Info("Starting journal collector: max_age=%s interval=%s dry_run=%v",
		c.config.MaxAge, c.config.Interval, c.config.DryRun)
	go c.worker()
}

// Stop signals the worker and waits for it to finish or for ctx to expire.
// Safe to call multiple times.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return nil
	}

	c.stopOnce.Do(func() { close(c.stopCh) })

	select {
	case <-c.doneCh:
		logger.Debug("Journal collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Journal collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow prunes once and blocks until done.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.Interval)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Journal collection failed: %v", err)
			} else {
				logger.Debug("Journal collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		StartTime: c.now(),
		DryRun:    c.config.DryRun,
	}
	if !c.config.Enabled() {
		stats.EndTime = stats.StartTime
		return stats, nil
	}
	stats.Cutoff = stats.StartTime.Add(-c.config.MaxAge)

	n, err := c.store.Prune(ctx, stats.Cutoff, c.config.DryRun)
	stats.EndTime = c.now()
	if err != nil {
		return stats, fmt.Errorf("failed to prune journal: %w", err)
	}
	stats.Pruned = n

	if c.config.DryRun {
		logger.Info("Journal: DRY RUN - would prune %d records older than %s", n, stats.Cutoff.Format(time.RFC3339))
	} else if n > 0 {
		logger.Info("Journal: pruned %d records older than %s", n, stats.Cutoff.Format(time.RFC3339))
	}
	return stats, nil
}

// Stats describes one collection run.
type Stats struct {
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time" yaml:"end_time"`
	Cutoff    time.Time `json:"cutoff" yaml:"cutoff"`
	Pruned    int       `json:"pruned" yaml:"pruned"`
	DryRun    bool      `json:"dry_run" yaml:"dry_run"`
}

// Duration returns the run duration.
func (s *Stats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a one-line summary of the run.
func (s *Stats) Summary() string {
	return fmt.Sprintf("cutoff=%s pruned=%d dry_run=%v duration=%s",
		s.Cutoff.Format(time.RFC3339), s.Pruned, s.DryRun, s.Duration())
}
