package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"unicode/utf8"

	"github.com/marmos91/afsctl/internal/logger"
)

// Runner executes a single program invocation.
//
// Implementations must block until the process exits and must return a
// non-zero exit code as data in Result, not as an error. Errors are reserved
// for invocations that could not run at all.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) (Result, error)

func (f RunnerFunc) Run(ctx context.Context, inv Invocation) (Result, error) {
	return f(ctx, inv)
}

// ExecRunner runs programs on the local host with os/exec.
//
// No shell is involved: argv is handed to the operating system as-is. The
// context is only used for cancellation requested by the caller; no timeout
// is applied here.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	if len(inv.Argv) == 0 {
		return Result{}, ErrEmptyCommand
	}

	logger.Info("running: %s", inv.String())

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("%s: %w", inv.Program(), ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, startError(inv.Program(), err)
		}
		exitCode = exitErr.ExitCode()
	}

	logger.Info("code: %d", exitCode)
	if !utf8.Valid(stdout.Bytes()) || !utf8.Valid(stderr.Bytes()) {
		return Result{}, fmt.Errorf("%s: %w", inv.Program(), ErrInvalidOutput)
	}

	res := Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	logger.Info("stdout: %s", res.Stdout)
	logger.Info("stderr: %s", res.Stderr)
	return res, nil
}

// startError maps exec/os start failures onto the runner taxonomy.
func startError(program string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &ProgramError{Program: program, Err: ErrProgramNotFound, Cause: err}
	case errors.Is(err, fs.ErrPermission):
		return &ProgramError{Program: program, Err: ErrPermissionDenied, Cause: err}
	default:
		return fmt.Errorf("%s: %w", program, err)
	}
}
