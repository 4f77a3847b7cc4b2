package command

import (
	"context"
	"fmt"
)

// ExpectSuccess runs argv and fails with ErrUnexpectedExitCode unless the
// program exits with code 0.
func ExpectSuccess(ctx context.Context, r Runner, argv ...string) (Result, error) {
	res, err := r.Run(ctx, Invocation{Argv: argv})
	if err != nil {
		return Result{}, err
	}
	if res.ExitCode != 0 {
		return res, fmt.Errorf("%w: %d (stderr: %s)", ErrUnexpectedExitCode, res.ExitCode, res.Stderr)
	}
	return res, nil
}

// ExpectFailure runs argv and fails with ErrUnexpectedExitCode when the
// program exits with code 0.
func ExpectFailure(ctx context.Context, r Runner, argv ...string) (Result, error) {
	res, err := r.Run(ctx, Invocation{Argv: argv})
	if err != nil {
		return Result{}, err
	}
	if res.ExitCode == 0 {
		return res, fmt.Errorf("%w: command should have failed", ErrUnexpectedExitCode)
	}
	return res, nil
}
