package command

import (
	"context"
	"strings"
)

// Canonical executable names used when no override is configured.
const (
	DefaultVos      = "vos"
	DefaultFs       = "fs"
	DefaultBos      = "bos"
	DefaultRxdebug  = "rxdebug"
	DefaultAklog    = "aklog"
	DefaultKlogKrb5 = "klog.krb5"
	DefaultKinit    = "kinit"
	DefaultKdestroy = "kdestroy"
	DefaultUnlog    = "unlog"
	DefaultPagsh    = "pagsh"
)

// Tool wraps one external program category.
type Tool struct {
	// Name is the category label carried on every Invocation for metrics
	// and the journal (e.g. "vos").
	Name string

	// Executable is the resolved program name or path.
	Executable string

	Runner Runner
}

// NewTool creates a tool. An empty executable falls back to name, and a nil
// runner falls back to ExecRunner.
func NewTool(name, executable string, runner Runner) Tool {
	executable = strings.TrimSpace(executable)
	if executable == "" {
		executable = name
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return Tool{Name: name, Executable: executable, Runner: runner}
}

// Invocation builds the argv for this tool.
func (t Tool) Invocation(args ...string) Invocation {
	inv := NewInvocation(t.Executable, args...)
	inv.Tool = t.Name
	return inv
}

// RunResult runs the tool and returns the raw result without classification.
func (t Tool) RunResult(ctx context.Context, args ...string) (Result, error) {
	return t.Runner.Run(ctx, t.Invocation(args...))
}

// Run runs the tool and returns stdout, classifying non-zero exits into
// NotFoundError or CommandFailedError.
func (t Tool) Run(ctx context.Context, args ...string) (string, error) {
	return t.RunEnv(ctx, nil, args...)
}

// RunEnv is Run with extra environment assignments for the child process.
func (t Tool) RunEnv(ctx context.Context, env []string, args ...string) (string, error) {
	inv := t.Invocation(args...)
	if len(env) > 0 {
		inv = inv.WithEnv(env...)
	}
	return t.Exec(ctx, inv)
}

// Exec runs a prepared invocation, such as one with secret arguments, and
// classifies the result like Run.
func (t Tool) Exec(ctx context.Context, inv Invocation) (string, error) {
	res, err := t.Runner.Run(ctx, inv)
	if err != nil {
		return "", err
	}
	return Classify(res)
}

// Executables holds the resolved program for every tool category.
type Executables struct {
	Vos      string
	Fs       string
	Bos      string
	Rxdebug  string
	Aklog    string
	KlogKrb5 string
	Kinit    string
	Kdestroy string
	Unlog    string
	Pagsh    string
}

// DefaultExecutables returns the canonical tool names.
func DefaultExecutables() Executables {
	return Executables{
		Vos:      DefaultVos,
		Fs:       DefaultFs,
		Bos:      DefaultBos,
		Rxdebug:  DefaultRxdebug,
		Aklog:    DefaultAklog,
		KlogKrb5: DefaultKlogKrb5,
		Kinit:    DefaultKinit,
		Kdestroy: DefaultKdestroy,
		Unlog:    DefaultUnlog,
		Pagsh:    DefaultPagsh,
	}
}

// Tools is the façade set shared by the higher level packages.
type Tools struct {
	Vos      Tool
	Fs       Tool
	Bos      Tool
	Rxdebug  Tool
	Aklog    Tool
	KlogKrb5 Tool
	Kinit    Tool
	Kdestroy Tool
	Unlog    Tool
	Pagsh    Tool
}

// NewTools builds every façade on the same runner. Empty executables fall
// back to the canonical names.
func NewTools(exe Executables, runner Runner) Tools {
	return Tools{
		Vos:      NewTool(DefaultVos, exe.Vos, runner),
		Fs:       NewTool(DefaultFs, exe.Fs, runner),
		Bos:      NewTool(DefaultBos, exe.Bos, runner),
		Rxdebug:  NewTool(DefaultRxdebug, exe.Rxdebug, runner),
		Aklog:    NewTool(DefaultAklog, exe.Aklog, runner),
		KlogKrb5: NewTool(DefaultKlogKrb5, exe.KlogKrb5, runner),
		Kinit:    NewTool(DefaultKinit, exe.Kinit, runner),
		Kdestroy: NewTool(DefaultKdestroy, exe.Kdestroy, runner),
		Unlog:    NewTool(DefaultUnlog, exe.Unlog, runner),
		Pagsh:    NewTool(DefaultPagsh, exe.Pagsh, runner),
	}
}
