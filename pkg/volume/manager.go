package volume

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/report"
)

// DefaultPartition is the partition letter used by CreateVolume when none
// is given.
const DefaultPartition = "a"

// DefaultRxdebugPort is the fileserver port queried by ServerVersion when
// none is given.
const DefaultRxdebugPort = 7000

// Resolver looks up the addresses of a host name. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Manager runs volume operations through the configured tools.
type Manager struct {
	tools    command.Tools
	resolver Resolver
	hostname func() (string, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithResolver replaces the host resolver used by LocationMatches.
func WithResolver(r Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithHostname replaces the local host name lookup used by CreateVolume.
func WithHostname(fn func() (string, error)) Option {
	return func(m *Manager) { m.hostname = fn }
}

// NewManager creates a Manager. By default it resolves hosts with
// net.DefaultResolver and names the local server with os.Hostname.
func NewManager(tools command.Tools, opts ...Option) *Manager {
	m := &Manager{
		tools:    tools,
		resolver: defaultResolver,
		hostname: os.Hostname,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExaminePath runs "fs examine" on path.
func (m *Manager) ExaminePath(ctx context.Context, path string) (report.VolumeInfo, error) {
	out, err := m.tools.Fs.Run(ctx, "examine", "-path", path)
	if err != nil {
		return report.VolumeInfo{}, err
	}
	return report.ParseExamine(path, out)
}

// GetVolumeEntry looks a volume up in the VLDB by name or numeric id.
func (m *Manager) GetVolumeEntry(ctx context.Context, nameOrID string) (report.VldbEntry, error) {
	out, err := m.tools.Vos.Run(ctx, "listvldb", "-name", nameOrID, "-quiet", "-noresolve", "-noauth")
	if err != nil {
		return report.VldbEntry{}, err
	}
	return report.ParseListVLDB(out)
}

// GetParts lists the partition letters of server.
func (m *Manager) GetParts(ctx context.Context, server string) ([]string, error) {
	out, err := m.tools.Vos.Run(ctx, "listpart", server)
	if err != nil {
		return nil, err
	}
	return report.ParseListPart(out)
}

// ReleaseParent releases the volume containing path and refreshes the
// cache manager's volume mappings.
//
// path usually sits in a read-only clone, so the VLDB is queried with the
// numeric id to find the read-write base name that vos release expects.
func (m *Manager) ReleaseParent(ctx context.Context, path string) error {
	info, err := m.ExaminePath(ctx, path)
	if err != nil {
		return stepErr(StepExamine, err)
	}

	entry, err := m.GetVolumeEntry(ctx, strconv.FormatInt(info.VolumeID, 10))
	if err != nil {
		return stepErr(StepListVLDB, err)
	}

	logger.Info("releasing volume %s (parent of %s)", entry.Name, path)
	if _, err := m.tools.Vos.Run(ctx, "release", entry.Name, "-verbose"); err != nil {
		return stepErr(StepRelease, err)
	}

	return stepErr(StepCheckVolumes, m.CheckVolumes(ctx))
}

// CheckVolumes forces the cache manager to refresh volume name mappings.
func (m *Manager) CheckVolumes(ctx context.Context) error {
	_, err := m.tools.Fs.Run(ctx, "checkvolumes")
	return err
}

// CreateVolume creates a read-write volume and returns its id. An empty
// server means the local host, an empty part means DefaultPartition and a
// quota of 0 means unlimited.
func (m *Manager) CreateVolume(ctx context.Context, name, server, part string, quota int64) (string, error) {
	if server == "" {
		host, err := m.hostname()
		if err != nil {
			return "", fmt.Errorf("local hostname: %w", err)
		}
		server = host
	}
	if part == "" {
		part = DefaultPartition
	}

	out, err := m.tools.Vos.Run(ctx,
		"create",
		"-server", server,
		"-partition", part,
		"-name", name,
		"-m", strconv.FormatInt(quota, 10),
		"-verbose",
	)
	if err != nil {
		return "", stepErr(StepCreate, err)
	}
	id, err := report.ParseCreateVolume(out)
	if err != nil {
		return "", stepErr(StepCreate, err)
	}
	logger.Info("created volume %s (%s) on %s /vicep%s", name, id, server, part)
	return id, nil
}

// RemoveVolume removes a volume and its VLDB entry. A volume that is not in
// the VLDB is left alone.
func (m *Manager) RemoveVolume(ctx context.Context, name string) error {
	if _, err := m.GetVolumeEntry(ctx, name); err != nil {
		if command.IsNotFound(err) {
			logger.Debug("volume %s not in the vldb, nothing to remove", name)
			return nil
		}
		return stepErr(StepListVLDB, err)
	}

	if _, err := m.tools.Vos.Run(ctx, "remove", "-id", name); err != nil {
		return stepErr(StepRemove, err)
	}
	logger.Info("removed volume %s", name)

	return stepErr(StepCheckVolumes, m.CheckVolumes(ctx))
}

// ZapVolume deletes a volume from a server partition without touching the
// VLDB.
func (m *Manager) ZapVolume(ctx context.Context, id, server, part string) error {
	_, err := m.tools.Vos.Run(ctx, "zap", "-id", id, "-server", server, "-part", part)
	return err
}

// VolumeExists reports whether name is in the VLDB.
func (m *Manager) VolumeExists(ctx context.Context, name string) (bool, error) {
	_, err := m.GetVolumeEntry(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case command.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// LocationMatches reports whether the read-write copy of name lives on
// server and partition part, according to both the VLDB and the volume
// server itself.
func (m *Manager) LocationMatches(ctx context.Context, name, server, part string) (bool, error) {
	addrs, err := m.resolver.LookupHost(ctx, server)
	if err != nil {
		return false, stepErr(StepResolve, err)
	}

	entry, err := m.GetVolumeEntry(ctx, name)
	if err != nil {
		return false, stepErr(StepListVLDB, err)
	}

	site, ok := entry.RWSite()
	if !ok {
		return false, stepErr(StepListVLDB, fmt.Errorf("volume %s has no RW site", name))
	}
	if site.Partition != part || !(site.Server == server || slices.Contains(addrs, site.Server)) {
		logger.Debug("volume %s is on %s /vicep%s, not %s /vicep%s", name, site.Server, site.Partition, server, part)
		return false, nil
	}

	out, err := m.tools.Vos.Run(ctx, "listvol", "-server", site.Server, "-partition", part, "-fast", "-noauth", "-quiet")
	if err != nil {
		return false, stepErr(StepListVol, err)
	}
	ids, err := report.ParseListVol(out)
	if err != nil {
		return false, stepErr(StepListVol, err)
	}
	return slices.Contains(ids, entry.RWID), nil
}

// IsLocked reports whether the VLDB entry of name is locked.
func (m *Manager) IsLocked(ctx context.Context, name string) (bool, error) {
	entry, err := m.GetVolumeEntry(ctx, name)
	if err != nil {
		return false, err
	}
	return entry.Locked, nil
}

// VolumeID returns the read-write volume id of name.
func (m *Manager) VolumeID(ctx context.Context, name string) (string, error) {
	entry, err := m.GetVolumeEntry(ctx, name)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(entry.RWID, 10), nil
}

// CacheSize returns the cache manager's available cache in 1K blocks.
func (m *Manager) CacheSize(ctx context.Context) (int64, error) {
	out, err := m.tools.Fs.Run(ctx, "getcacheparms")
	if err != nil {
		return 0, err
	}
	return report.ParseCacheParms(out)
}

// ServerVersion asks an rx server for its version string. A port of 0
// means DefaultRxdebugPort.
func (m *Manager) ServerVersion(ctx context.Context, host string, port int) (string, error) {
	if port <= 0 {
		port = DefaultRxdebugPort
	}
	out, err := m.tools.Rxdebug.Run(ctx, "-servers", host, "-port", strconv.Itoa(port), "-version")
	if err != nil {
		return "", err
	}
	return report.ParseRxdebugVersion(out)
}

// IsStep reports whether err is a StepError for step.
func IsStep(err error, step string) bool {
	var se *StepError
	return errors.As(err, &se) && se.Step == step
}
