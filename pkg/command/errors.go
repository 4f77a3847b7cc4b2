package command

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProgramNotFound indicates the executable could not be located.
	ErrProgramNotFound = errors.New("program not found")

	// ErrPermissionDenied indicates the executable exists but cannot be run.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrEmptyCommand is returned for an invocation without argv.
	ErrEmptyCommand = errors.New("empty command line")

	// ErrInvalidOutput indicates captured output was not valid UTF-8.
	ErrInvalidOutput = errors.New("output is not valid utf-8")

	// ErrCommandFailed matches every *CommandFailedError.
	ErrCommandFailed = errors.New("command failed")

	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("no such entry")

	// ErrUnexpectedExitCode is returned by ExpectSuccess and ExpectFailure.
	ErrUnexpectedExitCode = errors.New("unexpected exit code")
)

// notFoundMarkers are the stderr fragments the OpenAFS tools print when the
// requested volume or entry is absent. Callers rely on this exact list to
// tell "absent" apart from "broken".
var notFoundMarkers = []string{
	"no such entry",
	"does not exist",
}

// ProgramError reports a failure to start a program.
type ProgramError struct {
	Program string
	Err     error // ErrProgramNotFound or ErrPermissionDenied
	Cause   error // underlying exec/os error
}

func (e *ProgramError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Program, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Program, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

// CommandFailedError is a non-zero exit whose stderr does not indicate a
// missing entry.
type CommandFailedError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandFailedError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Stdout)
	}
	if msg == "" {
		return fmt.Sprintf("command failed: exit code %d", e.ExitCode)
	}
	return fmt.Sprintf("command failed: exit code %d: %s", e.ExitCode, msg)
}

func (e *CommandFailedError) Is(target error) bool {
	return target == ErrCommandFailed
}

// NotFoundError is a non-zero exit whose stderr reports a missing entry.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return "not found: " + strings.TrimSpace(e.Message)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Classify maps a result to the façade contract: stdout on exit 0,
// NotFoundError when stderr carries a known absence marker, and
// CommandFailedError otherwise.
func Classify(res Result) (string, error) {
	if res.ExitCode == 0 {
		return res.Stdout, nil
	}
	for _, marker := range notFoundMarkers {
		if strings.Contains(res.Stderr, marker) {
			return "", &NotFoundError{Message: res.Stderr}
		}
	}
	return "", &CommandFailedError{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
