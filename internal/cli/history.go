package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tbrun/internal/report"
	"github.com/roach88/tbrun/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Scenario string // show one scenario's outcomes instead of whole runs
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with "tbrun run --db", most recent first.

Examples:
  tbrun history --db runs.db
  tbrun history --db runs.db --scenario reset --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "list outcomes of one scenario")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.Scenario != "" {
		recs, err := st.ScenarioHistory(cmd.Context(), opts.Scenario, opts.Limit)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, "failed to read history", err)
		}
		if f.Format == "json" {
			if recs == nil {
				recs = []store.ScenarioRecord{}
			}
			return f.Success(recs)
		}
		if len(recs) == 0 {
			fmt.Fprintf(f.Writer, "No recorded runs of scenario %s.\n", opts.Scenario)
			return nil
		}
		tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tUNPASS")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Failures)
		}
		return tw.Flush()
	}

	runs, err := st.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to read history", err)
	}
	if f.Format == "json" {
		if runs == nil {
			runs = []store.RunInfo{}
		}
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No recorded runs.")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDESIGN\tSCENARIOS\tUNPASS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.StartedAt.Local().Format(time.DateTime), r.Design, r.ScenarioCount, r.TotalFailures)
	}
	return tw.Flush()
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Print the report of a recorded run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.LoadRun(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return f.fail(ExitCommandError, ErrCodeNotFound, "run not found", fmt.Errorf("%s", id))
	}
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to load run", err)
	}

	if f.Format == "json" {
		return f.Success(run)
	}
	fmt.Fprintf(f.Writer, "Run %s (%s) started %s\n", run.ID, run.Design, run.StartedAt.Local().Format(time.DateTime))
	if err := report.WriteText(f.Writer, run.Summary); err != nil {
		return err
	}
	if f.Verbose {
		return report.WriteMismatches(f.Writer, run.Summary)
	}
	return nil
}
