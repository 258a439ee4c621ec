package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/asynkron/gopatch/internal/logging"
	"github.com/asynkron/gopatch/internal/report"
	"github.com/asynkron/gopatch/pkg/patch"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Run executes gopatch using the provided CLI arguments. It returns a
// POSIX-style exit code indicating whether execution succeeded.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if stdin == nil {
		stdin = eofReader{}
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	if err := loadDotEnv(); err != nil {
		fmt.Fprintln(stderr, err)
		return ExitFailure
	}

	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintf(stderr, "gopatch: %v\n", err)
		return ExitUsage
	}

	logger := logging.NewStdLogger(cfg.LogLevel, stderr)
	a := &app{
		cfg:    cfg,
		log:    logger,
		stdout: stdout,
		stderr: stderr,
		colors: newPalette(stdout, cfg.Color),
		errs:   newPalette(stderr, cfg.Color),
	}
	return a.run(ctx, stdin)
}

type app struct {
	cfg    *Config
	log    logging.Logger
	stdout io.Writer
	stderr io.Writer
	colors palette
	errs   palette
}

func (a *app) mode() report.Mode {
	switch {
	case a.cfg.Diffstat:
		return report.ModeDiffstat
	case a.cfg.Check:
		return report.ModeCheck
	case a.cfg.DryRun:
		return report.ModeDryRun
	case a.cfg.Revert:
		return report.ModeRevert
	}
	return report.ModeApply
}

func (a *app) run(ctx context.Context, stdin io.Reader) int {
	ps, err := a.load(stdin)
	if err != nil {
		fmt.Fprintf(a.stderr, "gopatch: %v\n", err)
		return ExitFailure
	}

	rep := report.New(a.mode(), ps)
	if !ps.OK() {
		if !a.cfg.JSON {
			for _, d := range ps.Diagnostics {
				if d.Severity == patch.SeverityError {
					fmt.Fprintf(a.stderr, "%s: %s\n", a.cfg.PatchFile, d)
				}
			}
		}
		err := fmt.Errorf("%s: patch parse failed with %d errors", a.cfg.PatchFile, ps.Errors)
		return a.finish(rep, err)
	}

	a.log.Debug(ctx, "patch loaded",
		logging.Field("file", a.cfg.PatchFile),
		logging.Field("entries", ps.Len()),
		logging.Field("dialect", ps.Dialect),
		logging.Field("warnings", ps.Warnings))

	if a.cfg.Revert {
		ps = ps.Inverse()
	}
	opts := patch.ApplyOptions{Root: a.cfg.Root, Strip: a.cfg.Strip}

	switch rep.Mode {
	case report.ModeDiffstat:
		if !a.cfg.JSON {
			fmt.Fprintln(a.stdout, ps.Stats().Format(a.colors.bars()))
		}
		return a.finish(rep, nil)

	case report.ModeCheck:
		checks, err := a.check(ps, opts)
		rep.Checks = checks
		if err == nil {
			for _, c := range checks {
				if c.Applicability != patch.Applicable.String() {
					err = fmt.Errorf("%s cannot be applied cleanly", c.Path)
					break
				}
			}
		}
		return a.finish(rep, err)

	case report.ModeDryRun:
		preview, err := ps.Preview(ctx, opts)
		if err == nil {
			rep.Preview = preview
			if !a.cfg.JSON {
				fmt.Fprint(a.stdout, preview)
			}
		}
		return a.finish(rep, err)
	}

	results, err := ps.Apply(ctx, opts)
	rep.Results = results
	if !a.cfg.JSON && !a.cfg.Quiet {
		for _, res := range results {
			fmt.Fprintln(a.stdout, a.colors.result(res))
		}
	}
	return a.finish(rep, err)
}

func (a *app) load(stdin io.Reader) (*patch.PatchSet, error) {
	opts := patch.Options{Logger: a.log}
	if a.cfg.PatchFile == "-" {
		ps := patch.NewPatchSet(opts)
		if _, err := ps.Parse(stdin); err != nil {
			return nil, err
		}
		return ps, nil
	}
	return patch.FromFile(a.cfg.PatchFile, opts)
}

func (a *app) check(ps *patch.PatchSet, opts patch.ApplyOptions) ([]report.Check, error) {
	entries, err := ps.Check(opts)
	checks := make([]report.Check, 0, len(entries))
	for _, e := range entries {
		check := report.Check{Path: e.Path, Applicability: e.CanPatch.String(), Patched: e.IsPatched == patch.Applicable}
		checks = append(checks, check)
		if !a.cfg.JSON && !a.cfg.Quiet {
			line := a.colors.applicability(e.CanPatch) + " " + e.Path
			if check.Patched {
				line += " (already patched)"
			}
			fmt.Fprintln(a.stdout, line)
		}
	}
	return checks, err
}

// finish prints err and the JSON report when requested and maps the outcome
// to an exit code.
func (a *app) finish(rep *report.Report, err error) int {
	rep.SetError(err)
	if err != nil && !a.cfg.JSON {
		var perr *patch.Error
		if errors.As(err, &perr) {
			fmt.Fprintln(a.stderr, a.errs.render(a.errs.fail, "error:")+" "+patch.FormatError(perr))
		} else {
			fmt.Fprintln(a.stderr, a.errs.render(a.errs.fail, "error:")+" "+err.Error())
		}
	}
	if a.cfg.JSON {
		if encErr := report.Encode(a.stdout, rep); encErr != nil {
			fmt.Fprintf(a.stderr, "gopatch: %v\n", encErr)
			return ExitFailure
		}
	}
	if !rep.OK {
		return ExitFailure
	}
	return ExitOK
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
