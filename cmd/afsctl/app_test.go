package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/command/commandtest"
	"github.com/marmos91/afsctl/pkg/config"
	"github.com/marmos91/afsctl/pkg/dump"
	"github.com/marmos91/afsctl/pkg/pag"
	"github.com/marmos91/afsctl/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var examineOutput = []string{
	"File /afs/example.com/test (536871188.1.1) contained in volume 536871188",
	"Volume status for vid = 536871188 named test",
	"Current disk quota is unlimited",
	"Current blocks used are 5313118",
	"The partition has 861483100 blocks available out of 1073213444",
}

var listACLOutput = []string{
	"Access list for /afs/example.com/test is",
	"Normal rights:",
	"  system:administrators rlidwka",
	"  user1 rlidwkA",
	"Negative rights:",
	"  user2 l",
}

func newTestApp(t *testing.T, mutate func(*config.Config), format string) (*app, *commandtest.FakeRunner, *bytes.Buffer) {
	t.Helper()
	cfg := config.GetDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	fake := commandtest.New(t)
	var out bytes.Buffer

	a, err := newApp(context.Background(), cfg, fake, &out, format)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		fake.AssertDrained()
	})
	return a, fake, &out
}

func TestRun_ExamineYAML(t *testing.T) {
	a, fake, out := newTestApp(t, nil, formatYAML)
	fake.Stage(commandtest.Call{
		Expect: []string{"fs", "examine", "-path", "/afs/example.com/test"},
		Stdout: examineOutput,
	})

	require.NoError(t, a.run(context.Background(), []string{"examine", "/afs/example.com/test"}))
	assert.Contains(t, out.String(), "volume_id: 536871188")
	assert.Contains(t, out.String(), "name: test")
}

func TestRun_ExamineJSON(t *testing.T) {
	a, fake, out := newTestApp(t, nil, formatJSON)
	fake.Stage(commandtest.Call{Stdout: examineOutput})

	require.NoError(t, a.run(context.Background(), []string{"examine", "/afs/example.com/test"}))

	var info report.VolumeInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, int64(536871188), info.VolumeID)
	assert.Equal(t, int64(211730344), info.Partition.Used)
}

func TestRun_ConfiguredExecutable(t *testing.T) {
	a, fake, _ := newTestApp(t, func(c *config.Config) { c.Tools.Fs = "/usr/afs/bin/fs" }, formatYAML)
	fake.Stage(commandtest.Call{
		Expect: []string{"/usr/afs/bin/fs", "getcacheparms"},
		Stdout: []string{"AFS using 42699 of the cache's available 50000 1K byte blocks."},
	})

	require.NoError(t, a.run(context.Background(), []string{"cache-size"}))
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"NoCommand", nil},
		{"UnknownCommand", []string{"frobnicate"}},
		{"MissingArgument", []string{"examine"}},
		{"TooManyArguments", []string{"logout", "now"}},
		{"BadPort", []string{"version", "localhost", "http"}},
		{"BadQuota", []string{"create", "test", "fs1", "a", "-5"}},
		{"LoginWithoutUser", []string{"login", "-password", "secret"}},
		{"WatchBadInterval", []string{"watch", "soon", "/afs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestApp(t, nil, formatYAML)

			err := a.run(context.Background(), tt.args)
			require.ErrorIs(t, err, errUsage)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestNewApp_UnknownFormat(t *testing.T) {
	_, err := newApp(context.Background(), config.GetDefaultConfig(), commandtest.New(t), &bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_ACLCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("Holds", func(t *testing.T) {
		a, fake, out := newTestApp(t, nil, formatYAML)
		fake.Stage(commandtest.Call{
			Expect: []string{"fs", "listacl", "-path", "/afs/example.com/test"},
			Stdout: listACLOutput,
		})

		require.NoError(t, a.run(ctx, []string{"acl-check", "/afs/example.com/test", "user1", "rl"}))
		assert.Equal(t, "true\n", out.String())
	})

	t.Run("DoesNotHold", func(t *testing.T) {
		a, fake, out := newTestApp(t, nil, formatYAML)
		fake.Stage(commandtest.Call{Stdout: listACLOutput})

		err := a.run(ctx, []string{"acl-check", "/afs/example.com/test", "user1", "rla"})
		assert.ErrorIs(t, err, errCheckFailed)
		assert.Equal(t, 1, exitCode(err))
		assert.Equal(t, "false\n", out.String())
	})

	t.Run("InvalidRights", func(t *testing.T) {
		a, fake, _ := newTestApp(t, nil, formatYAML)
		fake.Stage(commandtest.Call{Stdout: listACLOutput})

		err := a.run(ctx, []string{"acl-check", "/afs/example.com/test", "user1", "rlq"})
		assert.ErrorIs(t, err, errUsage)
	})
}

func TestRun_ACL(t *testing.T) {
	a, fake, out := newTestApp(t, nil, formatYAML)
	fake.Stage(commandtest.Call{Stdout: listACLOutput})

	require.NoError(t, a.run(context.Background(), []string{"acl", "/afs/example.com/test"}))
	assert.Contains(t, out.String(), "user1:")
	assert.Contains(t, out.String(), "granted: rlidwkA")
	assert.Contains(t, out.String(), "revoked: l")
}

func TestRun_Pag(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		a, _, out := newTestApp(t, nil, formatYAML)

		require.NoError(t, a.run(ctx, []string{"pag", "4,", "24,", "1090519041"}))
		assert.Equal(t, "1090519041\n", out.String())
	})

	t.Run("None", func(t *testing.T) {
		a, _, out := newTestApp(t, nil, formatYAML)

		require.NoError(t, a.run(ctx, []string{"pag", "[4, 24, 1001]"}))
		assert.Equal(t, "none\n", out.String())
	})

	t.Run("Ambiguous", func(t *testing.T) {
		a, _, _ := newTestApp(t, nil, formatYAML)

		err := a.run(ctx, []string{"pag", "1090519041", "1090519042"})
		assert.ErrorIs(t, err, pag.ErrAmbiguousPag)
	})

	t.Run("TwoGroupPagsRejected", func(t *testing.T) {
		a, _, _ := newTestApp(t, func(c *config.Config) { c.Cell.PagOneGroup = false }, formatYAML)

		err := a.run(ctx, []string{"pag", "1090519041"})
		assert.ErrorContains(t, err, "pag_onegroup")
	})
}

func TestRun_Login(t *testing.T) {
	a, fake, _ := newTestApp(t, nil, formatYAML)
	fake.Stage(commandtest.Call{
		Expect: []string{"klog.krb5", "-principal", "admin", "-password", "secret", "-cell", "example.com", "-k", "EXAMPLE.COM"},
	})

	require.NoError(t, a.run(context.Background(), []string{"login", "-password", "secret", "admin"}))
}

func TestRun_Logout(t *testing.T) {
	a, fake, _ := newTestApp(t, nil, formatYAML)
	kdestroy := fake.Stage(commandtest.Call{})
	fake.Stage(commandtest.Call{Expect: []string{"unlog"}})

	require.NoError(t, a.run(context.Background(), []string{"logout"}))
	assert.Equal(t, "KRB5CCNAME=/tmp/afsrobot.krb5cc kdestroy", kdestroy.Got.String())
}

func TestRun_History(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled", func(t *testing.T) {
		a, _, _ := newTestApp(t, nil, formatYAML)

		assert.ErrorContains(t, a.run(ctx, []string{"history"}), "journal is disabled")
	})

	t.Run("Memory", func(t *testing.T) {
		a, fake, out := newTestApp(t, func(c *config.Config) { c.Journal.Type = "memory" }, formatJSON)
		fake.Stage(commandtest.Call{ExitCode: 1, Stderr: []string{"VLDB: no such entry"}})
		fake.Stage(commandtest.Call{Stdout: examineOutput})

		require.NoError(t, a.run(ctx, []string{"exists", "missing"}))
		require.NoError(t, a.run(ctx, []string{"examine", "/afs/example.com/test"}))
		out.Reset()

		require.NoError(t, a.run(ctx, []string{"history", "1"}))
		var records []struct {
			Argv     []string `json:"argv"`
			ExitCode int      `json:"exit_code"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, []string{"fs", "examine", "-path", "/afs/example.com/test"}, records[0].Argv)
		assert.Equal(t, 0, records[0].ExitCode)
	})
}

func TestRun_Watch(t *testing.T) {
	a, fake, out := newTestApp(t, nil, formatYAML)
	fake.Stage(commandtest.Call{Stdout: examineOutput})
	fake.Stage(commandtest.Call{ExitCode: 1, Stderr: []string{"fs: Connection timed out"}})
	fake.Stage(commandtest.Call{Stdout: examineOutput})

	require.NoError(t, a.run(context.Background(), []string{"watch", "-count", "3", "1ms", "/afs/example.com/test"}))
	assert.Equal(t, 2, strings.Count(out.String(), "volume_id: 536871188"))
}

func TestRun_WatchStopsOnCancel(t *testing.T) {
	a, fake, out := newTestApp(t, nil, formatYAML)
	fake.Stage(commandtest.Call{Err: context.Canceled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.run(ctx, []string{"watch", "1h", "/afs/example.com/test"}))
	assert.Empty(t, out.String())
}

func TestNewApp_RateLimited(t *testing.T) {
	a, fake, out := newTestApp(t, func(c *config.Config) {
		c.Command.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 10}
	}, formatYAML)
	fake.Stage(commandtest.Call{Stdout: []string{"AFS using 1 of the cache's available 50000 1K byte blocks."}})

	require.NoError(t, a.run(context.Background(), []string{"cache-size"}))
	assert.Equal(t, "50000\n", out.String())
}

func TestRun_Prune(t *testing.T) {
	ctx := context.Background()
	a, fake, out := newTestApp(t, func(c *config.Config) { c.Journal.Type = "memory" }, formatJSON)
	fake.Stage(commandtest.Call{Stdout: examineOutput})
	require.NoError(t, a.run(ctx, []string{"examine", "/afs/example.com/test"}))

	err := a.run(ctx, []string{"prune"})
	require.ErrorIs(t, err, errUsage, "no max age configured")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"prune", "-dry-run", "1ns"}))
	assert.Contains(t, out.String(), `"pruned": 1`)
	assert.Contains(t, out.String(), `"dry_run": true`)

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"prune", "1ns"}))
	assert.Contains(t, out.String(), `"pruned": 1`)

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"history"}))
	assert.Equal(t, "[]\n", out.String())
}

func TestRun_JSONOutputIsNotMixedWithLogs(t *testing.T) {
	stdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() {
		os.Stdout = stdout
		logger.SetOutput(os.Stderr)
	})

	cfg := config.GetDefaultConfig()
	configureLogging(cfg)

	fake := commandtest.New(t)
	fake.Stage(commandtest.Call{Stdout: examineOutput})
	logging := command.RunnerFunc(func(ctx context.Context, inv command.Invocation) (command.Result, error) {
		logger.Info("running: %s", inv.String())
		res, err := fake.Run(ctx, inv)
		logger.Info("stdout: %s", res.Stdout)
		return res, err
	})

	a, err := newApp(context.Background(), cfg, logging, os.Stdout, formatJSON)
	require.NoError(t, err)
	require.NoError(t, a.run(context.Background(), []string{"examine", "/afs/example.com/test"}))
	require.NoError(t, a.Close())
	require.NoError(t, w.Close())

	data, err := io.ReadAll(r)
	require.NoError(t, err)

	var got report.VolumeInfo
	require.NoError(t, json.Unmarshal(data, &got), "stdout: %s", data)
	assert.Equal(t, "test", got.Name)
}

func TestRun_LoginJournalMasksPassword(t *testing.T) {
	ctx := context.Background()
	a, fake, out := newTestApp(t, func(c *config.Config) { c.Journal.Type = "memory" }, formatYAML)
	fake.Stage(commandtest.Call{})

	require.NoError(t, a.run(ctx, []string{"login", "-password", "secret", "admin"}))
	require.NoError(t, a.run(ctx, []string{"history"}))

	assert.NotContains(t, out.String(), "secret")
	assert.Contains(t, out.String(), command.Mask)
}

func TestRun_PagShell(t *testing.T) {
	a, fake, out := newTestApp(t, nil, formatYAML)
	fake.Stage(commandtest.Call{
		Expect: []string{"pagsh", "-c", "id -G"},
		Stdout: []string{"1098354308 4 24\n"},
	})

	require.NoError(t, a.run(context.Background(), []string{"pag-shell", "id -G"}))
	assert.Equal(t, "1098354308 4 24\n", out.String())
}

func TestRun_Dump(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.dump")

	t.Run("CreateAndCheck", func(t *testing.T) {
		a, _, out := newTestApp(t, nil, formatJSON)

		require.NoError(t, a.run(ctx, []string{"create-dump", "-size", "small", "-contains", "bogus-acl", "-name", "test", path}))
		require.NoError(t, a.run(ctx, []string{"check-dump", path}))

		var sum dump.Summary
		require.NoError(t, json.Unmarshal(out.Bytes(), &sum))
		assert.Equal(t, "test", sum.Name)
		assert.Len(t, sum.Vnodes, 4)
	})

	t.Run("BogusSize", func(t *testing.T) {
		a, _, _ := newTestApp(t, nil, formatYAML)
		bogus := filepath.Join(t.TempDir(), "bogus.dump")

		err := a.run(ctx, []string{"create-dump", "-size", "bogus", bogus})
		assert.ErrorIs(t, err, errUsage)
		assert.NoFileExists(t, bogus)
	})

	t.Run("NotADump", func(t *testing.T) {
		a, _, _ := newTestApp(t, nil, formatYAML)
		text := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(text, []byte("hello\n"), 0o644))

		assert.ErrorIs(t, a.run(ctx, []string{"check-dump", text}), errCheckFailed)
	})
}
