package command

import (
	"context"
	"time"

	"github.com/marmos91/afsctl/pkg/metrics"
)

// InstrumentedRunner records metrics for every invocation of Next.
type InstrumentedRunner struct {
	Next    Runner
	Metrics metrics.CommandMetrics
}

// NewInstrumentedRunner wraps next. A nil m uses the no-op implementation.
func NewInstrumentedRunner(next Runner, m metrics.CommandMetrics) *InstrumentedRunner {
	if m == nil {
		m = metrics.NewNoopCommandMetrics()
	}
	return &InstrumentedRunner{Next: next, Metrics: m}
}

func (r *InstrumentedRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	tool := inv.Label()
	r.Metrics.RecordCommandStart(tool)
	defer r.Metrics.RecordCommandEnd(tool)

	start := time.Now()
	res, err := r.Next.Run(ctx, inv)
	r.Metrics.RecordCommand(tool, time.Since(start), res.ExitCode, err)
	return res, err
}
