package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tbrun/internal/harness"
	"github.com/roach88/tbrun/internal/report"
	"github.com/roach88/tbrun/internal/scenario"
	"github.com/roach88/tbrun/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter     string // scenario name glob
	Discipline string // default discipline for files that do not name one
	Database   string // record the run when set
	Golden     string // canonical snapshot to compare against
	Update     bool   // rewrite the golden file instead of comparing
	Strict     bool   // fail at bind time on unresolvable ports
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	RunID       string           `json:"run_id,omitempty"`
	Golden      string           `json:"golden,omitempty"` // "match", "mismatch" or "updated"
	Summary     *harness.Summary `json:"summary"`
	Passed      bool             `json:"passed"`
	DurationSec float64          `json:"duration_sec"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <design.cue> <scenarios>...",
		Short: "Run scenarios against a design",
		Long: `Compile a CUE design and run every scenario against a fresh instance.

Scenario arguments are files or directories. Directories are searched
recursively for .yaml, .yml, .hcl, .json and .jsonl files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed, or the golden file did not match
  2 - Command error (invalid paths, bad design, model errors)

Examples:
  tbrun run adder.cue ./scenarios
  tbrun run counter.cue counter.yaml --filter "reset-*"
  tbrun run latch.cue tb.json --discipline SEQ --db runs.db
  tbrun run latch.cue ./scenarios --golden latch.golden --update`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Discipline, "discipline", "CMB", "default discipline (CMB|SEQ)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "compare the run snapshot with this golden file")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate the golden file")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when a declared port cannot be resolved")

	return cmd
}

func runScenarios(opts *RunOptions, designPath string, scenarioPaths []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Update && opts.Golden == "" {
		return f.fail(ExitCommandError, ErrCodeGeneric, "--update requires --golden", nil)
	}
	disc, err := scenario.ParseDiscipline(opts.Discipline, scenario.Combinational)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, "invalid --discipline", err)
	}

	design, err := loadDesign(designPath)
	if err != nil {
		return failLoad(f, err)
	}
	scenarios, err := loadScenarios(scenarioPaths, scenario.Options{Discipline: disc}, opts.Filter)
	if err != nil {
		return failLoad(f, err)
	}
	f.VerboseLog("Loaded design %s with %d scenario(s)", design.Name(), len(scenarios))

	h, err := harness.New(design,
		harness.WithLogger(logger),
		harness.WithStrictBinding(opts.Strict),
	)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeModel, "failed to prepare design", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	sum, err := h.Run(ctx, scenarios)
	if err != nil {
		if harness.IsModelError(err) {
			return f.fail(ExitCommandError, ErrCodeModel, "model error", err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return f.fail(ExitCommandError, ErrCodeGeneric, "run cancelled", err)
		}
		return f.fail(ExitCommandError, ErrCodeGeneric, "run failed", err)
	}

	result := RunResult{
		Summary:     sum,
		Passed:      sum.Passed(),
		DurationSec: time.Since(started).Seconds(),
	}

	if opts.Database != "" {
		id, err := recordRun(ctx, opts.Database, sum, started)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
		}
		result.RunID = id
		logger.Info("run recorded", "run_id", id, "db", opts.Database)
	}

	if opts.Golden != "" {
		if opts.Update {
			if err := report.UpdateGolden(opts.Golden, sum); err != nil {
				return f.fail(ExitCommandError, ErrCodeGolden, "failed to update golden file", err)
			}
			result.Golden = "updated"
		} else {
			match, err := report.CompareGolden(opts.Golden, sum)
			if err != nil {
				return f.fail(ExitCommandError, ErrCodeGolden, "failed to compare golden file", err)
			}
			result.Golden = "match"
			if !match {
				result.Golden = "mismatch"
			}
		}
	}

	if err := outputRun(f, result); err != nil {
		return err
	}

	if !result.Passed {
		return NewExitError(ExitFailure, fmt.Sprintf("%d failure(s)", sum.TotalFailures))
	}
	if result.Golden == "mismatch" {
		return NewExitError(ExitFailure, "golden mismatch")
	}
	return nil
}

func recordRun(ctx context.Context, path string, sum *harness.Summary, started time.Time) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.RecordRun(ctx, sum, started)
}

func outputRun(f *OutputFormatter, result RunResult) error {
	if f.Format == "json" {
		if result.Passed && result.Golden != "mismatch" {
			return f.Success(result)
		}
		return f.Failure(result)
	}

	w := f.Writer
	if err := report.WriteText(w, result.Summary); err != nil {
		return err
	}
	if f.Verbose {
		if err := report.WriteMismatches(f.GetErrWriter(), result.Summary); err != nil {
			return err
		}
	}
	switch result.Golden {
	case "updated":
		fmt.Fprintln(w, "Golden file updated.")
	case "mismatch":
		fmt.Fprintln(w, "Golden file mismatch.")
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "Run recorded: %s\n", result.RunID)
	}
	return nil
}
