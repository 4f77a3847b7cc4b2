package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/afsctl/pkg/journal"
)

// DefaultCapacity is used when Config.Capacity is zero.
const DefaultCapacity = 256

// Config configures the in-memory journal.
type Config struct {
	// Capacity is the number of records kept; older records are dropped.
	Capacity int `mapstructure:"capacity"`
}

// Store is a bounded in-memory journal. Records are lost on exit.
type Store struct {
	mu      sync.RWMutex
	records []journal.Record
	next    int
	full    bool
	closed  bool
}

// New creates an in-memory journal.
func New(cfg Config) *Store {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{records: make([]journal.Record, capacity)}
}

func (s *Store) Append(ctx context.Context, rec journal.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journal.ErrClosed
	}

	s.records[s.next] = rec
	s.next = (s.next + 1) % len(s.records)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, journal.ErrClosed
	}

	count := s.next
	if s.full {
		count = len(s.records)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]journal.Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.records)) % len(s.records)
		out = append(out, s.records[idx])
	}
	return out, nil
}

func (s *Store) Prune(ctx context.Context, before time.Time, dryRun bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, journal.ErrClosed
	}

	count := s.next
	start := 0
	if s.full {
		count = len(s.records)
		start = s.next
	}

	kept := make([]journal.Record, 0, count)
	for i := 0; i < count; i++ {
		rec := s.records[(start+i)%len(s.records)]
		if rec.Started.Before(before) {
			continue
		}
		kept = append(kept, rec)
	}
	pruned := count - len(kept)
	if dryRun || pruned == 0 {
		return pruned, nil
	}

	clear(s.records)
	copy(s.records, kept)
	s.next = len(kept) % len(s.records)
	s.full = len(kept) == len(s.records)
	return pruned, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
