// Package e2e runs afsctl against a live OpenAFS cell.
//
// The suite is skipped unless AFSCTL_E2E_CELL names a cell the test host is
// a client of. Tests that create volumes also need AFSCTL_E2E_SERVER and
// AFSCTL_E2E_PARTITION, and an admin token (e.g. from "afsctl login").
//
// Run with:
//
//	AFSCTL_E2E_CELL=example.com go test -tags=e2e -v ./test/e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/config"
	"github.com/marmos91/afsctl/pkg/journal"
	"github.com/marmos91/afsctl/pkg/journal/memory"
	"github.com/marmos91/afsctl/pkg/volume"
)

// Environment variables read by the suite.
const (
	EnvCell      = "AFSCTL_E2E_CELL"
	EnvServer    = "AFSCTL_E2E_SERVER"
	EnvPartition = "AFSCTL_E2E_PARTITION"
	EnvConfig    = "AFSCTL_E2E_CONFIG"
)

// TestContext bundles the tools wired the same way the CLI wires them.
type TestContext struct {
	T       *testing.T
	Config  *config.Config
	Tools   command.Tools
	Volumes *volume.Manager
	Journal journal.Store
	Cell    string
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewTestContext skips the test unless a cell is configured.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	cell := os.Getenv(EnvCell)
	if cell == "" {
		t.Skipf("%s not set; skipping live cell tests", EnvCell)
	}

	cfg, err := config.Load(os.Getenv(EnvConfig))
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Cell.Name = cell

	if testing.Verbose() {
		logger.SetLevel("DEBUG")
	}

	store := memory.New(memory.Config{})
	runner := command.NewJournaledRunner(command.ExecRunner{}, store)
	tools := command.NewTools(cfg.Tools.Executables(), runner)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	tc := &TestContext{
		T:       t,
		Config:  cfg,
		Tools:   tools,
		Volumes: volume.NewManager(tools),
		Journal: store,
		Cell:    cell,
		ctx:     ctx,
		cancel:  cancel,
	}
	t.Cleanup(tc.Cleanup)
	return tc
}

// Context returns the per-test context.
func (tc *TestContext) Context() context.Context {
	return tc.ctx
}

// CellRoot returns /afs/<cell>.
func (tc *TestContext) CellRoot() string {
	return filepath.Join("/afs", tc.Cell)
}

// RequireServer skips the test unless a fileserver and partition are set.
func (tc *TestContext) RequireServer() (server, part string) {
	tc.T.Helper()
	server, part = os.Getenv(EnvServer), os.Getenv(EnvPartition)
	if server == "" || part == "" {
		tc.T.Skipf("%s and %s must be set for volume lifecycle tests", EnvServer, EnvPartition)
	}
	return server, part
}

// UniqueVolumeName returns a short volume name unlikely to collide. Volume
// names are limited to 22 characters.
func (tc *TestContext) UniqueVolumeName() string {
	return fmt.Sprintf("e2e.%s", uuid.NewString()[:8])
}

// Cleanup dumps the journal of a failed test, then cancels the context.
func (tc *TestContext) Cleanup() {
	defer tc.cancel()
	if !tc.T.Failed() {
		return
	}
	records, err := tc.Journal.List(context.Background(), 0)
	if err != nil {
		return
	}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		tc.T.Logf("ran %v: exit %d\nstdout: %s\nstderr: %s", rec.Argv, rec.ExitCode, rec.Stdout, rec.Stderr)
	}
}
