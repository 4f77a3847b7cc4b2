package metrics

import "time"

// CommandMetrics provides observability for external tool invocations.
//
// This interface is optional - runners constructed without metrics use the
// no-op implementation.
type CommandMetrics interface {
	// RecordCommand records one finished invocation.
	//
	// Parameters:
	//   - tool: program label (e.g. "vos", "fs")
	//   - duration: wall time of the process
	//   - exitCode: process exit code (ignored when err is non-nil)
	//   - err: start failure, nil when the process ran
	RecordCommand(tool string, duration time.Duration, exitCode int, err error)

	// RecordCommandStart increments the in-flight counter for tool.
	RecordCommandStart(tool string)

	// RecordCommandEnd decrements the in-flight counter for tool.
	RecordCommandEnd(tool string)
}

// NewNoopCommandMetrics returns a CommandMetrics that discards everything.
func NewNoopCommandMetrics() CommandMetrics {
	return noopCommandMetrics{}
}

type noopCommandMetrics struct{}

func (noopCommandMetrics) RecordCommand(string, time.Duration, int, error) {}
func (noopCommandMetrics) RecordCommandStart(string)                       {}
func (noopCommandMetrics) RecordCommandEnd(string)                         {}

// CommandStatus maps an invocation outcome to a metric label.
func CommandStatus(exitCode int, err error) string {
	switch {
	case err != nil:
		return "error"
	case exitCode != 0:
		return "failed"
	default:
		return "success"
	}
}
