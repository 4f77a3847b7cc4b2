package command

import (
	"path/filepath"
	"slices"
	"strings"
)

// Mask replaces secret arguments in logs and journal records.
const Mask = "******"

// Invocation is one program execution request.
type Invocation struct {
	// Argv is the program followed by its arguments. Argv[0] is resolved
	// through PATH when it contains no path separator.
	Argv []string

	// Env holds extra NAME=value assignments added on top of the inherited
	// process environment (e.g. KRB5CCNAME for a private ticket cache).
	Env []string

	// Tool is the category label used for metrics (e.g. "vos"). Empty means
	// the base name of Argv[0].
	Tool string

	// Secret lists Argv indexes that must never be logged or recorded.
	Secret []int
}

// NewInvocation builds an Invocation from a program and its arguments.
func NewInvocation(program string, args ...string) Invocation {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, program)
	argv = append(argv, args...)
	return Invocation{Argv: argv}
}

// WithEnv returns a copy of the invocation with extra environment assignments.
func (inv Invocation) WithEnv(env ...string) Invocation {
	out := inv.clone()
	out.Env = append(out.Env, env...)
	return out
}

// WithSecret returns a copy of the invocation with the given Argv indexes
// marked secret.
func (inv Invocation) WithSecret(indexes ...int) Invocation {
	out := inv.clone()
	out.Secret = append(out.Secret, indexes...)
	return out
}

func (inv Invocation) clone() Invocation {
	return Invocation{
		Argv:   append([]string(nil), inv.Argv...),
		Env:    append([]string(nil), inv.Env...),
		Tool:   inv.Tool,
		Secret: append([]int(nil), inv.Secret...),
	}
}

// Label returns Tool, or the base name of the program when Tool is empty.
func (inv Invocation) Label() string {
	if inv.Tool != "" {
		return inv.Tool
	}
	if p := inv.Program(); p != "" {
		return filepath.Base(p)
	}
	return ""
}

// Redacted returns a copy of Argv with secret arguments replaced by Mask.
func (inv Invocation) Redacted() []string {
	argv := append([]string(nil), inv.Argv...)
	for i := range argv {
		if slices.Contains(inv.Secret, i) {
			argv[i] = Mask
		}
	}
	return argv
}

// Program returns argv[0], or "" for an empty invocation.
func (inv Invocation) Program() string {
	if len(inv.Argv) == 0 {
		return ""
	}
	return inv.Argv[0]
}

// String renders the command line the way a shell user would type it,
// environment assignments first and secrets masked.
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.Env)+len(inv.Argv))
	parts = append(parts, inv.Env...)
	parts = append(parts, inv.Redacted()...)
	return strings.Join(parts, " ")
}

// Result is the captured outcome of one completed process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the process exited with code 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}
