package e2e

import (
	"errors"

	"github.com/marmos91/afsctl/pkg/command"
)

func isCommandFailed(err error) bool {
	return errors.Is(err, command.ErrCommandFailed)
}
