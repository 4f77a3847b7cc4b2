package config

import (
	"context"
	"fmt"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/gc"
	"github.com/marmos91/afsctl/pkg/journal"
	"github.com/marmos91/afsctl/pkg/journal/badger"
	"github.com/marmos91/afsctl/pkg/journal/memory"
	"github.com/mitchellh/mapstructure"
)

// CreateJournal creates a journal store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "none": no journal; returns a nil store
//   - "memory": Uses pkg/journal/memory (bounded, ephemeral)
//   - "badger": Uses pkg/journal/badger (BadgerDB storage, persistent)
func CreateJournal(ctx context.Context, cfg *JournalConfig) (journal.Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return createMemoryJournal(ctx, cfg.Memory)
	case "badger":
		return createBadgerJournal(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown journal type: %q (supported: none, memory, badger)", cfg.Type)
	}
}

// createMemoryJournal creates an in-memory journal.
func createMemoryJournal(ctx context.Context, options map[string]any) (journal.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg memory.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory journal options: %w", err)
	}

	return memory.New(storeCfg), nil
}

// createBadgerJournal creates a BadgerDB-based persistent journal.
func createBadgerJournal(ctx context.Context, options map[string]any) (journal.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg badger.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger journal options: %w", err)
	}

	store, err := badger.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger journal: %w", err)
	}

	logger.Debug("Badger journal opened at %s", storeCfg.DBPath)
	return store, nil
}

// CreateCollector returns the retention collector for store, or nil when no
// journal is configured or records never expire.
func CreateCollector(store journal.Store, cfg *JournalConfig) (*gc.Collector, error) {
	if store == nil || cfg.Retention.MaxAge <= 0 {
		return nil, nil
	}
	return gc.NewCollector(store, gc.Config{
		MaxAge:   cfg.Retention.MaxAge,
		Interval: cfg.Retention.Interval,
	})
}
