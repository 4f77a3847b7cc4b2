package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/acl"
	"github.com/marmos91/afsctl/pkg/config"
	"github.com/marmos91/afsctl/pkg/dump"
	"github.com/marmos91/afsctl/pkg/gc"
	"github.com/marmos91/afsctl/pkg/pag"
)

type subcommand struct {
	args        string
	min, max    int // max < 0 means unbounded
	longRunning bool
	run         func(a *app, ctx context.Context, args []string) error
}

var commands map[string]subcommand

func init() {
	commands = map[string]subcommand{
		"examine":        {args: "<path>", min: 1, max: 1, run: cmdExamine},
		"listvldb":       {args: "<name|id>", min: 1, max: 1, run: cmdListVLDB},
		"listpart":       {args: "<server>", min: 1, max: 1, run: cmdListPart},
		"release-parent": {args: "<path>", min: 1, max: 1, run: cmdReleaseParent},
		"create":         {args: "<name> [server] [part] [quota]", min: 1, max: 4, run: cmdCreate},
		"remove":         {args: "<name>", min: 1, max: 1, run: cmdRemove},
		"zap":            {args: "<id> <server> <part>", min: 3, max: 3, run: cmdZap},
		"exists":         {args: "<name>", min: 1, max: 1, run: cmdExists},
		"location":       {args: "<name> <server> <part>", min: 3, max: 3, run: cmdLocation},
		"locked":         {args: "<name>", min: 1, max: 1, run: cmdLocked},
		"volume-id":      {args: "<name>", min: 1, max: 1, run: cmdVolumeID},
		"acl":            {args: "<path>", min: 1, max: 1, run: cmdACL},
		"acl-check":      {args: "<path> <principal> <expr>", min: 3, max: 3, run: cmdACLCheck},
		"login":          {args: "[-password p] [-keytab k] <user>", min: 1, max: -1, run: cmdLogin},
		"logout":         {args: "", min: 0, max: 0, run: cmdLogout},
		"pag":            {args: "[groups]", min: 0, max: -1, run: cmdPag},
		"pag-shell":      {args: "<script>", min: 1, max: 1, run: cmdPagShell},
		"create-dump":    {args: "[-size empty|small] [-contains bogus-acl] [-name n] [-id id] <path>", min: 1, max: -1, run: cmdCreateDump},
		"check-dump":     {args: "<path>", min: 1, max: 1, run: cmdCheckDump},
		"cache-size":     {args: "", min: 0, max: 0, run: cmdCacheSize},
		"version":        {args: "<host> [port]", min: 1, max: 2, run: cmdVersion},
		"history":        {args: "[n]", min: 0, max: 1, run: cmdHistory},
		"prune":          {args: "[-dry-run] [max-age]", min: 0, max: 2, run: cmdPrune},
		"watch":          {args: "[-count n] <interval> <path>", min: 2, max: -1, longRunning: true, run: cmdWatch},
	}
}

func cmdExamine(a *app, ctx context.Context, args []string) error {
	info, err := a.volumes.ExaminePath(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(info)
}

func cmdListVLDB(a *app, ctx context.Context, args []string) error {
	entry, err := a.volumes.GetVolumeEntry(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(entry)
}

func cmdListPart(a *app, ctx context.Context, args []string) error {
	parts, err := a.volumes.GetParts(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(parts)
}

func cmdReleaseParent(a *app, ctx context.Context, args []string) error {
	return a.volumes.ReleaseParent(ctx, args[0])
}

func cmdCreate(a *app, ctx context.Context, args []string) error {
	var server, part string
	var quota int64
	if len(args) > 1 {
		server = args[1]
	}
	if len(args) > 2 {
		part = args[2]
	}
	if len(args) > 3 {
		q, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil || q < 0 {
			return fmt.Errorf("%w: invalid quota %q", errUsage, args[3])
		}
		quota = q
	}

	id, err := a.volumes.CreateVolume(ctx, args[0], server, part, quota)
	if err != nil {
		return err
	}
	return a.print(id)
}

func cmdRemove(a *app, ctx context.Context, args []string) error {
	return a.volumes.RemoveVolume(ctx, args[0])
}

func cmdZap(a *app, ctx context.Context, args []string) error {
	return a.volumes.ZapVolume(ctx, args[0], args[1], args[2])
}

func cmdExists(a *app, ctx context.Context, args []string) error {
	ok, err := a.volumes.VolumeExists(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(ok)
}

func cmdLocation(a *app, ctx context.Context, args []string) error {
	ok, err := a.volumes.LocationMatches(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	if err := a.print(ok); err != nil {
		return err
	}
	if !ok {
		return errCheckFailed
	}
	return nil
}

func cmdLocked(a *app, ctx context.Context, args []string) error {
	locked, err := a.volumes.IsLocked(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(locked)
}

func cmdVolumeID(a *app, ctx context.Context, args []string) error {
	id, err := a.volumes.VolumeID(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(id)
}

func cmdACL(a *app, ctx context.Context, args []string) error {
	entries, err := acl.FromPath(ctx, a.tools.Fs, args[0])
	if err != nil {
		return err
	}
	return a.print(entries.Entries())
}

func cmdACLCheck(a *app, ctx context.Context, args []string) error {
	entries, err := acl.FromPath(ctx, a.tools.Fs, args[0])
	if err != nil {
		return err
	}
	ok, err := entries.Contains(args[1], args[2])
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := a.print(ok); err != nil {
		return err
	}
	if !ok {
		return errCheckFailed
	}
	return nil
}

func cmdLogin(a *app, ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	password := fs.String("password", "", "Kerberos password")
	keytab := fs.String("keytab", "", "Keytab holding the user's key")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: afsctl login %s", errUsage, commands["login"].args)
	}
	return a.auth.Login(ctx, fs.Arg(0), *password, *keytab)
}

func cmdLogout(a *app, ctx context.Context, _ []string) error {
	return a.auth.Logout(ctx)
}

func cmdPag(a *app, _ context.Context, args []string) error {
	if !a.cfg.Cell.PagOneGroup {
		return errors.New("only single group PAGs are supported (cell.pag_onegroup is false)")
	}

	var (
		id  uint32
		ok  bool
		err error
	)
	if len(args) > 0 {
		gids, perr := pag.ParseGroups(strings.Join(args, " "))
		if perr != nil {
			return fmt.Errorf("%w: %v", errUsage, perr)
		}
		id, ok, err = pag.Detect(gids)
	} else {
		id, ok, err = pag.Current()
	}
	if err != nil {
		return err
	}
	if !ok {
		return a.print("none")
	}
	return a.print(id)
}

func cmdPagShell(a *app, ctx context.Context, args []string) error {
	out, err := pag.Shell(ctx, a.tools.Pagsh, args[0])
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.out, out)
	return err
}

func cmdCreateDump(a *app, _ context.Context, args []string) error {
	fs := flag.NewFlagSet("create-dump", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	size := fs.String("size", string(dump.SizeSmall), "Dump size: empty or small")
	contains := fs.String("contains", "", "Special content: bogus-acl")
	name := fs.String("name", dump.DefaultName, "Volume name recorded in the dump")
	id := fs.Uint("id", uint(dump.DefaultVolumeID), "Volume id recorded in the dump")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 || *id == 0 || *id > math.MaxUint32 {
		return fmt.Errorf("%w: afsctl create-dump %s", errUsage, commands["create-dump"].args)
	}

	err := dump.Create(fs.Arg(0), dump.Options{
		VolumeID: uint32(*id),
		Name:     *name,
		Size:     dump.Size(*size),
		Contains: dump.Content(*contains),
	})
	if errors.Is(err, dump.ErrInvalidSize) || errors.Is(err, dump.ErrInvalidContent) {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return err
}

func cmdCheckDump(a *app, _ context.Context, args []string) error {
	sum, err := dump.ReadFile(args[0])
	if errors.Is(err, dump.ErrNotDump) {
		logger.Error("%s: %v", args[0], err)
		return errCheckFailed
	}
	if err != nil {
		return err
	}
	return a.print(sum)
}

func cmdCacheSize(a *app, ctx context.Context, _ []string) error {
	size, err := a.volumes.CacheSize(ctx)
	if err != nil {
		return err
	}
	return a.print(size)
}

func cmdVersion(a *app, ctx context.Context, args []string) error {
	port := 0
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("%w: invalid port %q", errUsage, args[1])
		}
		port = p
	}
	version, err := a.volumes.ServerVersion(ctx, args[0], port)
	if err != nil {
		return err
	}
	return a.print(version)
}

func cmdHistory(a *app, ctx context.Context, args []string) error {
	if a.journal == nil {
		return errors.New("journal is disabled (set journal.type to memory or badger)")
	}
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: invalid count %q", errUsage, args[0])
		}
		limit = n
	}
	records, err := a.journal.List(ctx, limit)
	if err != nil {
		return err
	}
	return a.print(records)
}

func cmdPrune(a *app, ctx context.Context, args []string) error {
	if a.journal == nil {
		return errors.New("journal is disabled (set journal.type to memory or badger)")
	}
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Bool("dry-run", false, "Count expired records without deleting them")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	maxAge := a.cfg.Journal.Retention.MaxAge
	switch fs.NArg() {
	case 0:
	case 1:
		d, err := time.ParseDuration(fs.Arg(0))
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid max age %q", errUsage, fs.Arg(0))
		}
		maxAge = d
	default:
		return fmt.Errorf("%w: afsctl prune %s", errUsage, commands["prune"].args)
	}
	if maxAge <= 0 {
		return fmt.Errorf("%w: no max age given and journal.retention.max_age is not set", errUsage)
	}

	collector, err := gc.NewCollector(a.journal, gc.Config{MaxAge: maxAge, DryRun: *dryRun})
	if err != nil {
		return err
	}
	stats, err := collector.RunNow(ctx)
	if err != nil {
		return err
	}
	return a.print(stats)
}

// cmdWatch examines a path every interval until interrupted, serving
// metrics meanwhile when they are enabled. Failed examinations are logged
// and the loop goes on.
func cmdWatch(a *app, ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	count := fs.Int("count", 0, "Stop after n examinations (0 = forever)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: afsctl watch %s", errUsage, commands["watch"].args)
	}
	interval, err := time.ParseDuration(fs.Arg(0))
	if err != nil || interval <= 0 {
		return fmt.Errorf("%w: invalid interval %q", errUsage, fs.Arg(0))
	}
	path := fs.Arg(1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if srv := a.metrics.Server; srv != nil {
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	collector, err := config.CreateCollector(a.journal, &a.cfg.Journal)
	if err != nil {
		return err
	}
	if collector != nil {
		collector.Start()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = collector.Stop(stopCtx)
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		stepCtx, stepCancel := a.withTimeout(ctx)
		info, err := a.volumes.ExaminePath(stepCtx, path)
		stepCancel()
		if err != nil {
			logger.Warn("examine %s: %v", path, err)
		} else if err := a.print(info); err != nil {
			return err
		}

		if *count > 0 && n >= *count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
