package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/asynkron/gopatch/internal/logging"
)

// Environment variables consulted for flag defaults. A .env file in the
// working directory is loaded first; variables already set win.
const (
	envStrip    = "GOPATCH_STRIP"
	envRoot     = "GOPATCH_ROOT"
	envColor    = "GOPATCH_COLOR"
	envLogLevel = "GOPATCH_LOG_LEVEL"
)

// Config holds all the command-line flag values.
type Config struct {
	PatchFile string
	Strip     int
	Root      string
	Revert    bool
	Quiet     bool
	Verbose   bool
	Diffstat  bool
	Check     bool
	DryRun    bool
	JSON      bool
	Color     string
	LogLevel  logging.Level
}

// errUsage marks problems with the command line itself.
var errUsage = errors.New("usage error")

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

// parseFlags defines and parses command-line flags using pflag. Defaults
// come from the environment.
func parseFlags(args []string, stderr io.Writer) (*Config, error) {
	cfg := &Config{}

	defaultStrip := 0
	if raw := strings.TrimSpace(os.Getenv(envStrip)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative integer, got %q", errUsage, envStrip, raw)
		}
		defaultStrip = n
	}
	defaultColor := strings.TrimSpace(os.Getenv(envColor))
	if defaultColor == "" {
		defaultColor = "auto"
	}

	flags := pflag.NewFlagSet("gopatch", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.IntVarP(&cfg.Strip, "strip", "p", defaultStrip, "Strip this many leading path components from file names.")
	flags.StringVarP(&cfg.Root, "directory", "d", os.Getenv(envRoot), "Apply the patch relative to this directory (default: current directory).")
	flags.BoolVarP(&cfg.Revert, "revert", "R", false, "Revert a previously applied patch.")
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Only print errors.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every file and autofix.")
	flags.BoolVar(&cfg.Diffstat, "diffstat", false, "Print a diffstat of the patch and exit.")
	flags.BoolVar(&cfg.Check, "check", false, "Report whether each source file can be patched without changing anything.")
	flags.BoolVar(&cfg.DryRun, "dry-run", false, "Print the resulting changes as a unified diff without writing files.")
	flags.BoolVar(&cfg.JSON, "json", false, "Print a machine-readable JSON report.")
	flags.StringVar(&cfg.Color, "color", defaultColor, "Colorize output: auto, always or never.")

	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: gopatch [flags] PATCHFILE")
		fmt.Fprintln(stderr, "\nApply a unified diff to the files it names. Use - to read the patch from stdin.")
		fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return nil, fmt.Errorf("%w: expected exactly one patch file, got %d", errUsage, flags.NArg())
	}
	cfg.PatchFile = flags.Arg(0)

	if cfg.Strip < 0 {
		return nil, fmt.Errorf("%w: --strip must not be negative", errUsage)
	}
	if cfg.Quiet && cfg.Verbose {
		return nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", errUsage)
	}
	modes := 0
	for _, on := range []bool{cfg.Diffstat, cfg.Check, cfg.DryRun} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return nil, fmt.Errorf("%w: --diffstat, --check and --dry-run are mutually exclusive", errUsage)
	}
	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return nil, fmt.Errorf("%w: --color must be auto, always or never, got %q", errUsage, cfg.Color)
	}

	cfg.LogLevel = logging.LevelWarn
	if raw := os.Getenv(envLogLevel); raw != "" {
		level, ok := logging.ParseLevel(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown %s %q", errUsage, envLogLevel, raw)
		}
		cfg.LogLevel = level
	}
	switch {
	case cfg.Quiet:
		cfg.LogLevel = logging.LevelError
	case cfg.Verbose:
		cfg.LogLevel = logging.LevelDebug
	}

	return cfg, nil
}
