package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/auth"
	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/config"
	"github.com/marmos91/afsctl/pkg/journal"
	"github.com/marmos91/afsctl/pkg/volume"
	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

var (
	// errUsage marks bad command lines; main exits with status 2.
	errUsage = errors.New("usage")

	// errCheckFailed marks a check that ran fine but did not hold.
	errCheckFailed = errors.New("check failed")
)

type app struct {
	cfg     *config.Config
	tools   command.Tools
	volumes *volume.Manager
	auth    *auth.Authenticator
	journal journal.Store
	metrics *config.MetricsResult
	format  string
	out     io.Writer
}

// newApp wires the runner chain: base runner, then metrics, then the
// journal and the rate limit when they are configured.
func newApp(ctx context.Context, cfg *config.Config, base command.Runner, out io.Writer, format string) (*app, error) {
	if format != formatYAML && format != formatJSON {
		return nil, fmt.Errorf("%w: unknown output format %q (supported: yaml, json)", errUsage, format)
	}

	metricsResult := config.InitializeMetrics(cfg)
	runner := command.Runner(command.NewInstrumentedRunner(base, metricsResult.CommandMetrics))

	store, err := config.CreateJournal(ctx, &cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}
	if store != nil {
		logger.Debug("Journaling invocations to %s store", cfg.Journal.Type)
		runner = command.NewJournaledRunner(runner, store)
	}
	if limiter := config.CreateRateLimiter(&cfg.Command); limiter != nil {
		logger.Debug("Limiting tool invocations to %.2f/s", cfg.Command.RateLimit.RequestsPerSecond)
		runner = command.NewRateLimitedRunner(runner, limiter)
	}

	tools := command.NewTools(cfg.Tools.Executables(), runner)
	return &app{
		cfg:     cfg,
		tools:   tools,
		volumes: volume.NewManager(tools),
		auth:    auth.New(tools, cfg.Cell),
		journal: store,
		metrics: metricsResult,
		format:  format,
		out:     out,
	}, nil
}

func (a *app) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

// run dispatches one subcommand.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	name, rest := args[0], args[1:]

	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if len(rest) < cmd.min || (cmd.max >= 0 && len(rest) > cmd.max) {
		return fmt.Errorf("%w: afsctl %s %s", errUsage, name, cmd.args)
	}

	if !cmd.longRunning {
		var cancel context.CancelFunc
		ctx, cancel = a.withTimeout(ctx)
		defer cancel()
	}
	return cmd.run(a, ctx, rest)
}

// withTimeout applies command.timeout, if set.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Command.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Command.Timeout)
	}
	return context.WithCancel(ctx)
}

// print writes v in the selected output format.
func (a *app) print(v any) error {
	var (
		data []byte
		err  error
	)
	switch a.format {
	case formatJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	default:
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = a.out.Write(data)
	return err
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
