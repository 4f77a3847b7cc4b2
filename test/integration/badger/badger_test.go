//go:build integration

package badger_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/gc"
	"github.com/marmos91/afsctl/pkg/journal"
	"github.com/marmos91/afsctl/pkg/journal/badger"
)

// TestBadgerJournal_Integration exercises the on-disk journal.
//
// Prerequisites:
//   - A POSIX shell at /bin/sh
//   - Run with: go test -tags=integration ./test/integration/badger/...
//
// These tests verify that the BadgerDB journal:
//   - Records real invocations through JournaledRunner
//   - Persists records across restarts
//   - Handles concurrent writers
//   - Prunes expired records on disk
func TestBadgerJournal_Integration(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "journal")

	open := func(t *testing.T) *badger.Store {
		t.Helper()
		store, err := badger.New(ctx, badger.Config{DBPath: dbPath})
		if err != nil {
			t.Fatalf("Failed to open journal: %v", err)
		}
		return store
	}

	t.Run("RecordsRealInvocations", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		runner := command.NewJournaledRunner(command.ExecRunner{}, store)
		res, err := runner.Run(ctx, command.NewInvocation("/bin/sh", "-c", "echo out; echo err >&2; exit 3"))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.ExitCode != 3 {
			t.Fatalf("Expected exit code 3, got %d", res.ExitCode)
		}

		records, err := store.List(ctx, 1)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}
		rec := records[0]
		if rec.ExitCode != 3 || rec.Stdout != "out\n" || rec.Stderr != "err\n" {
			t.Errorf("Unexpected record: %+v", rec)
		}
	})

	t.Run("PersistsAcrossRestart", func(t *testing.T) {
		store := open(t)
		records, err := store.List(ctx, 0)
		store.Close()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected the record from the previous run, got %d records", len(records))
		}
		if records[0].Argv[0] != "/bin/sh" {
			t.Errorf("Unexpected argv: %v", records[0].Argv)
		}
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		const writers, perWriter = 8, 25
		var wg sync.WaitGroup
		errs := make(chan error, writers*perWriter)
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					rec := journal.NewRecord([]string{"vos", "examine", fmt.Sprintf("v%d.%d", w, i)}, nil, time.Now())
					if err := store.Append(ctx, rec); err != nil {
						errs <- err
					}
				}
			}(w)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("Append failed: %v", err)
		}

		records, err := store.List(ctx, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != writers*perWriter+1 {
			t.Errorf("Expected %d records, got %d", writers*perWriter+1, len(records))
		}
	})

	t.Run("PrunesOnDisk", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		collector, err := gc.NewCollector(store, gc.Config{MaxAge: time.Nanosecond})
		if err != nil {
			t.Fatalf("NewCollector failed: %v", err)
		}
		stats, err := collector.RunNow(ctx)
		if err != nil {
			t.Fatalf("RunNow failed: %v", err)
		}
		if stats.Pruned == 0 {
			t.Error("Expected records to be pruned")
		}

		records, err := store.List(ctx, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("Expected an empty journal after pruning, got %d records", len(records))
		}
	})
}
