package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulschiretz/kitchensync/pkg/archivecompact"
	"github.com/paulschiretz/kitchensync/pkg/kconfig"
	"github.com/paulschiretz/kitchensync/pkg/plog"
	"github.com/paulschiretz/kitchensync/pkg/syncengine"
)

// appName is the canonical name of the application used for logging.
const appName = "KitchenSync"

// version holds the application's version string.
// It's a `var` so it can be set at compile time using ldflags.
// Example: go build -ldflags="-X main.version=1.0.0"
var version = "dev"

// init sets up a custom, more descriptive help message for the command-line flags.
func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s (version %s):\n", appName, version)
		fmt.Fprintf(flag.CommandLine.Output(), "  %s [flags] SOURCE DESTINATION\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Mirror SOURCE onto DESTINATION, archiving anything overwritten or removed.\n\n")
		flag.PrintDefaults()
	}
}

// cliConfig holds the parsed and validated flag values before they're
// resolved into a syncengine.Config.
type cliConfig struct {
	preview        bool
	skipTimestamps bool
	useModTime     bool
	verbosity      int
	abortTimeout   int
	compress       bool
	excludes       []string
}

func parseFlags(args []string) (src, dst string, cli cliConfig, err error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	previewFlag := fs.String("p", "N", "Preview mode: show what would happen without touching the filesystem ('Y' or 'N').")
	skipTimestampsFlag := fs.String("t", "N", "Skip files whose names look like an embedded timestamp ('Y' or 'N').")
	useModTimeFlag := fs.String("m", "Y", "Treat a newer source modification time as requiring an update ('Y' or 'N').")
	verbosityFlag := fs.Int("v", 1, "Verbosity level: 0 (errors only), 1 (actions), or 2 (directory traversal).")
	abortTimeoutFlag := fs.Int("a", 0, "Abort a single file copy after this many seconds (0 disables the watchdog).")
	compressFlag := fs.String("c", "N", "Compress this run's archive directory after the sync completes ('Y' or 'N').")

	var excludes []string
	fs.Var(kconfig.NewExcludeFlags(&excludes), "x", "Exclude files/directories matching PATTERN. Repeatable.")

	if err := fs.Parse(args); err != nil {
		return "", "", cliConfig{}, err
	}

	rest := fs.Args()
	if len(rest) != 2 {
		return "", "", cliConfig{}, fmt.Errorf("expected exactly two positional arguments, SOURCE and DESTINATION, got %d", len(rest))
	}

	preview, err := parseYN("-p", *previewFlag)
	if err != nil {
		return "", "", cliConfig{}, err
	}
	skipTimestamps, err := parseYN("-t", *skipTimestampsFlag)
	if err != nil {
		return "", "", cliConfig{}, err
	}
	useModTime, err := parseYN("-m", *useModTimeFlag)
	if err != nil {
		return "", "", cliConfig{}, err
	}
	compress, err := parseYN("-c", *compressFlag)
	if err != nil {
		return "", "", cliConfig{}, err
	}
	if *verbosityFlag < 0 || *verbosityFlag > 2 {
		return "", "", cliConfig{}, fmt.Errorf("-v must be 0, 1, or 2, got %d", *verbosityFlag)
	}
	if *abortTimeoutFlag < 0 {
		return "", "", cliConfig{}, fmt.Errorf("-a must not be negative, got %d", *abortTimeoutFlag)
	}

	return rest[0], rest[1], cliConfig{
		preview:        preview,
		skipTimestamps: skipTimestamps,
		useModTime:     useModTime,
		verbosity:      *verbosityFlag,
		abortTimeout:   *abortTimeoutFlag,
		compress:       compress,
		excludes:       excludes,
	}, nil
}

func parseYN(flagName, value string) (bool, error) {
	switch value {
	case "Y", "y":
		return true, nil
	case "N", "n":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be 'Y' or 'N', got %q", flagName, value)
	}
}

// run resolves the CLI arguments into a syncengine.Config, runs the sync,
// prints a summary, and returns the process exit code.
func run(args []string) int {
	srcArg, dstArg, cli, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	}

	src, err := kconfig.ResolvePath(srcArg)
	if err != nil {
		plog.Error("failed to resolve source path", "error", err)
		return 1
	}
	dst, err := kconfig.ResolvePath(dstArg)
	if err != nil {
		plog.Error("failed to resolve destination path", "error", err)
		return 1
	}

	cfg := syncengine.Config{
		SrcRoot:             src,
		DstRoot:             dst,
		Preview:             cli.preview,
		ExcludePatterns:     cli.excludes,
		SkipTimestamps:      cli.skipTimestamps,
		UseModTime:          cli.useModTime,
		Verbosity:           cli.verbosity,
		AbortTimeoutSeconds: cli.abortTimeout,
	}

	plog.Info("starting "+appName, "version", version, "source", src, "destination", dst, "preview", cli.preview)

	start := time.Now()
	result, err := syncengine.Sync(cfg)
	duration := time.Since(start).Round(time.Millisecond)
	if err != nil {
		plog.Error(appName+" aborted", "error", err)
		return 1
	}

	printSummary(result, duration)

	if cli.compress && !cli.preview {
		runDir := filepath.Join(dst, ".kitchensync", result.RunTimestamp)
		if err := archivecompact.Compact(runDir); err != nil {
			plog.Warn("archive compaction failed", "error", err)
		}
	}

	if result.Stats.Errors > 0 {
		return 1
	}
	return 0
}

func printSummary(result syncengine.Result, duration time.Duration) {
	s := result.Stats
	fmt.Printf("%s finished in %s: %d copied, %d updated, %d deleted, %d dirs created, %d unchanged, %d errors\n",
		appName, duration, s.FilesCopied, s.FilesUpdated, s.FilesDeleted, s.DirsCreated, s.FilesUnchanged, s.Errors)
	for _, e := range result.Errors {
		fmt.Printf("  error: %s (%s)\n", e.SourcePath, e.Kind)
	}
}

// main has no signal handling of its own: the Sync Engine offers no
// in-band cancellation (spec.md §5), so a process kill is the only
// user-visible way to stop a run, and the default SIGINT behavior
// already provides that.
func main() {
	os.Exit(run(os.Args[1:]))
}
