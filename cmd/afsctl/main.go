package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marmos91/afsctl/internal/logger"
	"github.com/marmos91/afsctl/pkg/command"
	"github.com/marmos91/afsctl/pkg/config"
)

const usageText = `afsctl - drive the OpenAFS administration tools

Usage:
  afsctl [flags] <command> [args]

Volume commands:
  examine <path>                       show the volume containing path
  listvldb <name|id>                   show a VLDB entry
  listpart <server>                    list the partitions of a fileserver
  release-parent <path>                release the volume containing path
  create <name> [server] [part] [quota]
  remove <name>
  zap <id> <server> <part>
  exists <name>
  location <name> <server> <part>      check where the RW volume lives
  locked <name>
  volume-id <name>

Access control:
  acl <path>                           show the ACL of a directory
  acl-check <path> <principal> <expr>  check a principal holds rights

Session:
  login [-password p] [-keytab k] <user>
  logout
  pag [groups]                         show the PAG of the process or of a group list
  pag-shell <script>                   run script with pagsh in a new PAG

Dumps:
  create-dump [-size empty|small] [-contains bogus-acl] [-name n] [-id id] <path>
  check-dump <path>                    check path is a volume dump and summarize it

Probes:
  cache-size
  version <host> [port]

Other:
  history [n]                          show recorded invocations
  prune [-dry-run] [max-age]           drop journal records older than max-age
  watch [-count n] <interval> <path>   examine path repeatedly, serving metrics
  init [-force]                        write a default config file

Flags:
`

func usage() {
	fmt.Fprint(flag.CommandLine.Output(), usageText)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/afsctl/config.yaml)")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	output := flag.String("o", formatYAML, "Output format (yaml, json)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if args[0] == "init" {
		if err := runInit(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(*logLevel)
	}
	configureLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, command.ExecRunner{}, os.Stdout, *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = a.run(ctx, args)
	if closeErr := a.Close(); closeErr != nil {
		logger.Warn("Failed to close journal: %v", closeErr)
	}
	if err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	path := fs.String("path", "", "Write to this path instead of the default location")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *path != "" {
		if err := config.InitConfigToPath(*path, *force); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", *path)
		return nil
	}

	written, err := config.InitConfig(*force)
	if err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", written)
	return nil
}

// configureLogging applies the logging section. Logs go to stderr unless a
// file or stdout is configured explicitly.
func configureLogging(cfg *config.Config) {
	logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}
