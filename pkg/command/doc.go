// Package command runs the OpenAFS administration programs and classifies
// their outcome.
//
// Two layers live here:
//
//   - Runner: spawns one external program without a shell, captures stdout
//     and stderr, and reports the exit code as data. Only failures to start
//     the program (missing executable, missing execute permission) are
//     errors at this layer.
//
//   - Tool: a typed wrapper for one tool category (vos, fs, bos, rxdebug,
//     the authentication programs). It prepends the resolved executable to
//     the arguments and turns non-zero exits into NotFoundError or
//     CommandFailedError.
//
// Runners are stateless and safe for concurrent use. Decorators
// (InstrumentedRunner, JournaledRunner) add metrics and a command journal
// without changing results.
package command
