package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/afsctl/pkg/journal"
)

// keyPrefix namespaces journal records. Keys are
// "rec:<20-digit unix nanos>:<uuid>" so a lexical scan is chronological.
const keyPrefix = "rec:"

// Config configures the BadgerDB journal.
type Config struct {
	// DBPath is the database directory. Required unless InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database off disk (tests, dry runs).
	InMemory bool `mapstructure:"in_memory"`
}

// Store is a persistent journal backed by BadgerDB.
type Store struct {
	db       *badger.DB
	mu       sync.RWMutex
	closed   bool
	inMemory bool
}

// New opens (or creates) the journal database.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.DBPath == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger journal: db_path is required")
	}

	opts := badger.DefaultOptions(cfg.DBPath)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger journal: %w", err)
	}
	return &Store{db: db, inMemory: cfg.InMemory}, nil
}

func recordKey(rec journal.Record) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", keyPrefix, rec.Started.UnixNano(), rec.ID))
}

func (s *Store) Append(ctx context.Context, rec journal.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return journal.ErrClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode journal record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec), data)
	})
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

	var out []journal.Record
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must start past the last key of the prefix.
		seek := append(append([]byte(nil), prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec journal.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to decode journal record %q: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes records started before the cutoff, then asks badger to
// reclaim value log space.
func (s *Store) Prune(ctx context.Context, before time.Time, dryRun bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, journal.ErrClosed
	}

	cutoff := []byte(fmt.Sprintf("%s%020d:", keyPrefix, before.UnixNano()))
	var expired [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, cutoff) >= 0 {
				break
			}
			expired = append(expired, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if dryRun || len(expired) == 0 {
		return len(expired), nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range expired {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("failed to delete journal record %q: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}

	if !s.inMemory {
		if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
			return len(expired), fmt.Errorf("value log gc: %w", err)
		}
	}
	return len(expired), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil && !errors.Is(err, badger.ErrDBClosed) {
		return err
	}
	return nil
}
