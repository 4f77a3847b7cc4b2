// Package commandtest provides a scripted Runner for tests.
package commandtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/afsctl/pkg/command"
)

// Call is one staged process outcome.
type Call struct {
	// Expect, when non-nil, must equal the argv of the invocation that
	// consumes this call.
	Expect []string

	ExitCode int
	Stdout   []string
	Stderr   []string
	Err      error

	// Got is filled with the invocation that consumed the call.
	Got command.Invocation
}

// FakeRunner returns staged results in FIFO order and records invocations.
type FakeRunner struct {
	t     testing.TB
	mu    sync.Mutex
	queue []*Call
	calls []command.Invocation
}

// New creates an empty fake runner bound to t.
func New(t testing.TB) *FakeRunner {
	return &FakeRunner{t: t}
}

// Stage queues one outcome and returns it so the test can inspect Got later.
// Stdout and Stderr lines are joined with "\n", without a trailing newline.
func (f *FakeRunner) Stage(c Call) *Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := c
	f.queue = append(f.queue, &call)
	return &call
}

// Run implements command.Runner.
func (f *FakeRunner) Run(_ context.Context, inv command.Invocation) (command.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, inv)
	if len(f.queue) == 0 {
		f.t.Errorf("unexpected invocation with no staged call: %s", inv.String())
		return command.Result{}, fmt.Errorf("commandtest: no staged call for %q", inv.String())
	}

	call := f.queue[0]
	f.queue = f.queue[1:]
	call.Got = inv

	if call.Expect != nil && strings.Join(call.Expect, "\x00") != strings.Join(inv.Argv, "\x00") {
		f.t.Errorf("unexpected argv\nwant: %q\ngot:  %q", call.Expect, inv.Argv)
	}
	if call.Err != nil {
		return command.Result{}, call.Err
	}
	return command.Result{
		ExitCode: call.ExitCode,
		Stdout:   strings.Join(call.Stdout, "\n"),
		Stderr:   strings.Join(call.Stderr, "\n"),
	}, nil
}

// Calls returns every invocation seen so far.
func (f *FakeRunner) Calls() []command.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]command.Invocation(nil), f.calls...)
}

// Pending returns the number of staged calls not consumed yet.
func (f *FakeRunner) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// AssertDrained fails the test when staged calls were never consumed.
func (f *FakeRunner) AssertDrained() {
	f.t.Helper()
	if n := f.Pending(); n != 0 {
		f.t.Errorf("%d staged call(s) were not consumed", n)
	}
}
