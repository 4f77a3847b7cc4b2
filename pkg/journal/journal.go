// Package journal keeps a transcript of external tool invocations.
//
// A journal is optional. When configured, command.JournaledRunner appends one
// Record per invocation so failed runs can be inspected after the fact
// (afsctl history). Two stores are provided: memory (bounded ring) and
// badger (persistent, survives restarts).
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("journal closed")

// Record is one captured invocation.
type Record struct {
	ID       string        `json:"id" yaml:"id"`
	Tool     string        `json:"tool,omitempty" yaml:"tool,omitempty"`
	Argv     []string      `json:"argv" yaml:"argv"`
	Env      []string      `json:"env,omitempty" yaml:"env,omitempty"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Stdout   string        `json:"stdout" yaml:"stdout"`
	Stderr   string        `json:"stderr" yaml:"stderr"`
	Err      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Started  time.Time     `json:"started" yaml:"started"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// NewRecord creates a record with a fresh id. argv must already have its
// secrets masked.
func NewRecord(argv, env []string, started time.Time) Record {
	return Record{
		ID:      uuid.NewString(),
		Argv:    append([]string(nil), argv...),
		Env:     append([]string(nil), env...),
		Started: started,
	}
}

// Store persists records.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores one record.
	Append(ctx context.Context, rec Record) error

	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)

	// Close releases resources held by the store.
	Close() error
}

// Pruner is implemented by stores that can drop old records.
type Pruner interface {
	// Prune removes records started before the cutoff and returns how many
	// matched. With dryRun set nothing is removed.
	Prune(ctx context.Context, before time.Time, dryRun bool) (int, error)
}
