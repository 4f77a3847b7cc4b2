package command

import (
	"context"
	"time"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/journal"
)

// JournaledRunner appends a journal record for every invocation of Next.
//
// Journal failures are logged and never change the command outcome.
type JournaledRunner struct {
	Next  Runner
	Store journal.Store
}

// NewJournaledRunner wraps next with store.
func NewJournaledRunner(next Runner, store journal.Store) *JournaledRunner {
	return &JournaledRunner{Next: next, Store: store}
}

func (r *JournaledRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	rec := journal.NewRecord(inv.Redacted(), inv.Env, time.Now())
	rec.Tool = inv.Label()

	res, err := r.Next.Run(ctx, inv)

	rec.Duration = time.Since(rec.Started)
	rec.ExitCode = res.ExitCode
	rec.Stdout = res.Stdout
	rec.Stderr = res.Stderr
	if err != nil {
		rec.Err = err.Error()
	}

	// Record even when the caller cancelled ctx.
	if jerr := r.Store.Append(context.WithoutCancel(ctx), rec); jerr != nil {
		logger.Warn("journal append failed for %q: %v", inv.String(), jerr)
	}
	return res, err
}
