// Package auth obtains and discards AFS tokens with the Kerberos and
// OpenAFS login tools.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/config"
)

// passwordArg is the argv index of the klog.krb5 password.
const passwordArg = 4

// ErrMissingArgument is returned when a login method lacks its credentials.
var ErrMissingArgument = errors.New("missing argument")

// Authenticator runs login and logout sequences for one cell.
type Authenticator struct {
	tools command.Tools
	cell  config.CellConfig
}

// New creates an Authenticator.
func New(tools command.Tools, cell config.CellConfig) *Authenticator {
	return &Authenticator{tools: tools, cell: cell}
}

// Principal converts an AFS style user name to a Kerberos principal:
// "user.admin" in realm R becomes "user/admin@R".
func Principal(user, realm string) string {
	return strings.ReplaceAll(user, ".", "/") + "@" + realm
}

// Akimpersonate forges a token for user from the cell keytab.
func (a *Authenticator) Akimpersonate(ctx context.Context, user string) error {
	if user == "" {
		return fmt.Errorf("%w: user is required", ErrMissingArgument)
	}
	_, err := a.tools.Aklog.Run(ctx,
		"-d",
		"-c", a.cell.Name,
		"-k", a.cell.Realm,
		"-keytab", a.cell.Keytab,
		"-principal", Principal(user, a.cell.Realm),
	)
	if err != nil {
		return fmt.Errorf("aklog failed: %w", err)
	}
	return nil
}

// LoginWithPassword obtains a token with klog.krb5.
func (a *Authenticator) LoginWithPassword(ctx context.Context, user, password string) error {
	if user == "" {
		return fmt.Errorf("%w: user is required", ErrMissingArgument)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrMissingArgument)
	}
	inv := a.tools.KlogKrb5.Invocation(
		"-principal", user,
		"-password", password,
		"-cell", a.cell.Name,
		"-k", a.cell.Realm,
	).WithSecret(passwordArg)
	if _, err := a.tools.KlogKrb5.Exec(ctx, inv); err != nil {
		return fmt.Errorf("klog.krb5 failed: %w", err)
	}
	return nil
}

// LoginWithKeytab obtains tickets with kinit into the private credential
// cache, then a token with aklog.
func (a *Authenticator) LoginWithKeytab(ctx context.Context, user, keytab string) error {
	if user == "" {
		return fmt.Errorf("%w: user is required", ErrMissingArgument)
	}
	if keytab == "" {
		return fmt.Errorf("%w: keytab is required", ErrMissingArgument)
	}
	if _, err := os.Stat(keytab); err != nil {
		return fmt.Errorf("keytab %s: %w", keytab, err)
	}

	env := a.ccacheEnv()
	if _, err := a.tools.Kinit.RunEnv(ctx, env,
		"-k", "-t", keytab, Principal(user, a.cell.Realm),
	); err != nil {
		return fmt.Errorf("kinit failed: %w", err)
	}
	if _, err := a.tools.Aklog.RunEnv(ctx, env,
		"-d", "-c", a.cell.Name, "-k", a.cell.Realm,
	); err != nil {
		return fmt.Errorf("aklog failed: %w", err)
	}
	return nil
}

// Login picks a method: akimpersonate when the cell enables it, otherwise
// password, otherwise keytab.
func (a *Authenticator) Login(ctx context.Context, user, password, keytab string) error {
	switch {
	case a.cell.Akimpersonate:
		logger.Debug("login %s with akimpersonate", user)
		return a.Akimpersonate(ctx, user)
	case password != "":
		logger.Debug("login %s with password", user)
		return a.LoginWithPassword(ctx, user, password)
	case keytab != "":
		logger.Debug("login %s with keytab %s", user, keytab)
		return a.LoginWithKeytab(ctx, user, keytab)
	default:
		return fmt.Errorf("%w: password or keytab is required", ErrMissingArgument)
	}
}

// Logout destroys the private ticket cache (unless tokens were forged with
// akimpersonate) and discards the AFS tokens.
func (a *Authenticator) Logout(ctx context.Context) error {
	if !a.cell.Akimpersonate {
		if _, err := a.tools.Kdestroy.RunEnv(ctx, a.ccacheEnv()); err != nil {
			return fmt.Errorf("kdestroy failed: %w", err)
		}
	}
	if _, err := a.tools.Unlog.Run(ctx); err != nil {
		return fmt.Errorf("unlog failed: %w", err)
	}
	return nil
}

func (a *Authenticator) ccacheEnv() []string {
	return []string{"KRB5CCNAME=" + a.cell.Krb5CCache}
}
