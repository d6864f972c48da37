package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/scenario"
	"github.com/roach88/tbrun/internal/sim"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Discipline string
}

// ValidationIssue is one signal reference a run would reject.
type ValidationIssue struct {
	Scenario string `json:"scenario"`
	Step     int    `json:"step"`
	Signal   string `json:"signal"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Design    string            `json:"design"`
	Scenarios int               `json:"scenarios"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <design.cue> <scenarios>...",
		Short: "Check scenarios against a design without simulating",
		Long: `Check that every signal a scenario drives is a design input, every
signal it expects is a design output, and every referenced port can be
resolved. No model is instantiated.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Discipline, "discipline", "CMB", "default discipline (CMB|SEQ)")

	return cmd
}

func runValidate(opts *ValidateOptions, designPath string, scenarioPaths []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	disc, err := scenario.ParseDiscipline(opts.Discipline, scenario.Combinational)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, "invalid --discipline", err)
	}
	design, err := loadDesign(designPath)
	if err != nil {
		return failLoad(f, err)
	}
	scenarios, err := loadScenarios(scenarioPaths, scenario.Options{Discipline: disc}, "")
	if err != nil {
		return failLoad(f, err)
	}

	issues, err := ValidateScenarios(design, scenarios)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeModel, "invalid port declarations", err)
	}
	f.VerboseLog("Checked %d scenario(s) against %s", len(scenarios), design.Name())

	result := ValidationResult{
		Valid:     len(issues) == 0,
		Design:    design.Name(),
		Scenarios: len(scenarios),
		Errors:    issues,
	}
	if result.Valid {
		return outputValidateSuccess(f, result)
	}
	return outputValidationErrors(f, result)
}

// ValidateScenarios reports every signal reference that a run against design
// would fail on. Issues are ordered by scenario, step and signal name.
func ValidateScenarios(design sim.Design, scenarios []*scenario.Scenario) ([]ValidationIssue, error) {
	reg, err := ports.NewRegistry(design.Ports())
	if err != nil {
		return nil, err
	}
	layout := design.Layout()

	var issues []ValidationIssue
	check := func(sc *scenario.Scenario, step int, name string, wantInput bool) {
		issue := ValidationIssue{Scenario: sc.Name, Step: step, Signal: name}
		p, ok := reg.Lookup(name)
		switch {
		case !ok:
			issue.Code = ErrCodeUnknownSignal
			issue.Message = "signal not declared by the design"
		case p.IsInput != wantInput:
			issue.Code = ErrCodeDirection
			if p.IsInput {
				issue.Message = "signal is an input, not an output"
			} else {
				issue.Message = "signal is an output, not an input"
			}
		case p.Wide():
			issue.Code = ErrCodeUnbound
			issue.Message = fmt.Sprintf("signal is %d bits wide; values wider than %d bits are not supported", p.Width, ports.MaxWidth)
		case layout[name] == nil:
			issue.Code = ErrCodeUnbound
			issue.Message = "signal has no binding rule"
		default:
			return
		}
		issues = append(issues, issue)
	}

	for _, sc := range scenarios {
		for i, st := range sc.Steps {
			for _, name := range scenario.SortedKeys(st.Inputs) {
				check(sc, i, name, true)
			}
			for _, name := range scenario.SortedKeys(st.Expected) {
				check(sc, i, name, false)
			}
		}
	}
	return issues, nil
}

func outputValidateSuccess(f *OutputFormatter, result ValidationResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ %d scenario(s) valid for %s\n", result.Scenarios, result.Design)
	return nil
}

func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "%s step %d: %s\n", e.Scenario, e.Step, e.Signal)
		fmt.Fprintf(f.Writer, "  %s: %s\n\n", e.Code, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
