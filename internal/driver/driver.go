// Package driver applies scenario steps to a live model and compares outputs.
//
// Both disciplines share one mechanism: per step, write every input through
// the binding table, evaluate the model exactly once, then read and compare
// every expected output. The driver never touches the clock on its own; a
// sequential scenario toggles it explicitly across successive steps.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tbrun/internal/scenario"
	"github.com/roach88/tbrun/internal/signal"
	"github.com/roach88/tbrun/internal/sim"
)

// ComparisonResult is the outcome of checking one expected output in one step.
type ComparisonResult struct {
	Scenario string `json:"scenario"`
	Step     int    `json:"step"`
	Signal   string `json:"signal"`
	Expected uint64 `json:"expected"`
	Actual   uint64 `json:"actual"`
	Matched  bool   `json:"matched"`
}

// StepError is a scenario-fatal error raised while executing a step.
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrModelMismatch is returned when the binding table belongs to a different
// model instance than the one being driven.
var ErrModelMismatch = errors.New("binding table is not bound to this model instance")

// Driver executes scenarios against bound model instances.
type Driver struct {
	logger *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for per-step debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Driver. Without WithLogger it logs nothing.
func New(opts ...Option) *Driver {
	d := &Driver{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Drive runs every step of sc against m through tbl.
//
// Mismatches are recorded and execution continues. A signal resolution error
// or a failing Evaluate stops the scenario: Drive returns the results gathered
// so far together with a *StepError.
func Drive(ctx context.Context, tbl *signal.Table, m sim.Model, sc *scenario.Scenario) ([]ComparisonResult, error) {
	return New().Drive(ctx, tbl, m, sc)
}

// Drive runs every step of sc against m through tbl. See the package-level
// Drive.
func (d *Driver) Drive(ctx context.Context, tbl *signal.Table, m sim.Model, sc *scenario.Scenario) ([]ComparisonResult, error) {
	if tbl.Released() || tbl.Model() != m {
		return nil, ErrModelMismatch
	}

	unit := "step"
	if sc.Discipline == scenario.Sequential {
		unit = "time point"
	}

	var results []ComparisonResult
	for i, st := range sc.Steps {
		for _, name := range scenario.SortedKeys(st.Inputs) {
			if err := tbl.Set(name, st.Inputs[name]); err != nil {
				return results, &StepError{Step: i, Err: err}
			}
		}

		if err := m.Evaluate(); err != nil {
			return results, &StepError{Step: i, Err: fmt.Errorf("evaluate: %w", err)}
		}

		for _, name := range scenario.SortedKeys(st.Expected) {
			actual, err := tbl.Get(name)
			if err != nil {
				return results, &StepError{Step: i, Err: err}
			}
			want := st.Expected[name]
			r := ComparisonResult{
				Scenario: sc.Name,
				Step:     i,
				Signal:   name,
				Expected: want,
				Actual:   actual,
				Matched:  actual == want,
			}
			results = append(results, r)

			if r.Matched {
				d.logger.DebugContext(ctx, "output matched",
					"scenario", sc.Name, unit, i, "signal", name, "value", actual)
			} else {
				d.logger.InfoContext(ctx, "output mismatch",
					"scenario", sc.Name, unit, i, "signal", name,
					"expected", want, "actual", actual)
			}
		}
	}
	return results, nil
}

// Mismatches counts the unmatched results.
func Mismatches(results []ComparisonResult) int {
	n := 0
	for _, r := range results {
		if !r.Matched {
			n++
		}
	}
	return n
}
