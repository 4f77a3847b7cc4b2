package pag

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/afsctl/pkg/command"
)

// ErrNoPag is returned by ShellPag when the new shell carries no PAG group.
var ErrNoPag = errors.New("no PAG group in new shell")

// Shell runs script with "pagsh -c" so it executes inside a fresh PAG, and
// returns its stdout. Tokens obtained by the script are discarded when the
// shell exits.
func Shell(ctx context.Context, pagsh command.Tool, script string) (string, error) {
	if script == "" {
		return "", errors.New("pagsh: script is required")
	}
	out, err := pagsh.Run(ctx, "-c", script)
	if err != nil {
		return "", fmt.Errorf("pagsh failed: %w", err)
	}
	return out, nil
}

// ShellPag starts a pagsh, lists its groups with "id -G" and returns the PAG
// it was given.
func ShellPag(ctx context.Context, pagsh command.Tool) (uint32, error) {
	out, err := Shell(ctx, pagsh, "id -G")
	if err != nil {
		return 0, err
	}
	gids, err := ParseGroups(out)
	if err != nil {
		return 0, err
	}
	id, ok, err := Detect(gids)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoPag
	}
	return id, nil
}
