package gc

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/afsctl/pkg/journal"
	"github.com/marmos91/afsctl/pkg/journal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listOnlyStore struct{}

func (listOnlyStore) Append(context.Context, journal.Record) error        { return nil }
func (listOnlyStore) List(context.Context, int) ([]journal.Record, error) { return nil, nil }
func (listOnlyStore) Close() error                                        { return nil }

var now = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New(memory.Config{Capacity: 10})
	for _, age := range []time.Duration{72 * time.Hour, 30 * time.Hour, 2 * time.Hour, time.Minute} {
		require.NoError(t, s.Append(ctx, journal.NewRecord([]string{"vos", "listvldb"}, nil, now.Add(-age))))
	}
	return s
}

func newTestCollector(t *testing.T, store journal.Store, cfg Config) *Collector {
	t.Helper()
	c, err := NewCollector(store, cfg)
	require.NoError(t, err)
	c.now = func() time.Time { return now }
	return c
}

func TestNewCollector_RequiresPruner(t *testing.T) {
	_, err := NewCollector(listOnlyStore{}, Config{MaxAge: time.Hour})
	assert.ErrorContains(t, err, "does not support pruning")
}

func TestNewCollector_DefaultInterval(t *testing.T) {
	c := newTestCollector(t, seeded(t), Config{MaxAge: time.Hour})
	assert.Equal(t, DefaultInterval, c.config.Interval)
}

func TestRunNow(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	c := newTestCollector(t, store, Config{MaxAge: 24 * time.Hour})

	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pruned)
	assert.Equal(t, now.Add(-24*time.Hour), stats.Cutoff)
	assert.Contains(t, stats.Summary(), "pruned=2")

	left, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestRunNow_DryRun(t *testing.T) {
	ctx := context.Background()
	store := seeded(t)
	c := newTestCollector(t, store, Config{MaxAge: time.Hour, DryRun: true})

	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pruned)
	assert.True(t, stats.DryRun)

	left, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, left, 4)
}

func TestRunNow_Disabled(t *testing.T) {
	store := seeded(t)
	c := newTestCollector(t, store, Config{})

	stats, err := c.RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Pruned)
}

func TestStartStop(t *testing.T) {
	store := seeded(t)
	c := newTestCollector(t, store, Config{MaxAge: 24 * time.Hour, Interval: 5 * time.Millisecond})

	c.Start()
	c.Start()

	require.Eventually(t, func() bool {
		left, err := store.List(context.Background(), 0)
		return err == nil && len(left) == 2
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))
}

func TestStop_NotStarted(t *testing.T) {
	c := newTestCollector(t, seeded(t), Config{})
	c.Start()
	assert.NoError(t, c.Stop(context.Background()))
}
