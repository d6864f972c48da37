package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tbrun/internal/driver"
	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/scenario"
	"github.com/roach88/tbrun/internal/signal"
	"github.com/roach88/tbrun/internal/sim"
)

// ModelError reports that a model instance could not be created. It is fatal
// to the whole run.
type ModelError struct {
	Design   string
	Scenario string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("design %s: cannot create model instance for scenario %s: %v", e.Design, e.Scenario, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// IsModelError returns true if err is or wraps a *ModelError.
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

// Harness runs scenarios against one design.
type Harness struct {
	design   sim.Design
	registry *ports.Registry
	layout   sim.Layout
	driver   *driver.Driver
	logger   *slog.Logger
	strict   bool
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for run and scenario events. It is also handed
// to the driver.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithStrictBinding makes a port without a storage location fail the
// scenario at bind time, even if the scenario never references it.
func WithStrictBinding(strict bool) Option {
	return func(h *Harness) {
		h.strict = strict
	}
}

// New builds the port registry for design. An invalid port list (for
// example a duplicate name) is returned as a *ports.Error.
func New(design sim.Design, opts ...Option) (*Harness, error) {
	if design == nil {
		return nil, fmt.Errorf("nil design")
	}
	reg, err := ports.NewRegistry(design.Ports())
	if err != nil {
		return nil, fmt.Errorf("design %s: %w", design.Name(), err)
	}

	h := &Harness{
		design:   design,
		registry: reg,
		layout:   design.Layout(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.driver = driver.New(driver.WithLogger(h.logger))
	return h, nil
}

// Run executes scenarios one at a time, in order.
//
// The returned error is non-nil only for run-fatal conditions: cancellation
// (checked before each scenario starts) and *ModelError. The summary holds
// every scenario completed before the error.
func (h *Harness) Run(ctx context.Context, scenarios []*scenario.Scenario) (*Summary, error) {
	summary := &Summary{Design: h.design.Name()}

	h.logger.Info("run starting", "design", h.design.Name(), "scenarios", len(scenarios))
	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			h.logger.Info("run cancelled", "completed", len(summary.Scenarios))
			return summary, err
		}

		res, err := h.runScenario(ctx, sc)
		if err != nil {
			h.logger.Error("run aborted", "scenario", sc.Name, "error", err)
			return summary, err
		}
		summary.add(res)
	}
	h.logger.Info("run finished",
		"design", h.design.Name(),
		"scenarios", len(summary.Scenarios),
		"total_failures", summary.TotalFailures,
	)
	return summary, nil
}

// runScenario moves one scenario from Created through Running to Passed or
// Failed. The table is released before the instance is closed on every path.
func (h *Harness) runScenario(ctx context.Context, sc *scenario.Scenario) (res ScenarioResult, err error) {
	res = ScenarioResult{Name: sc.Name, Discipline: sc.Discipline, Status: StatusCreated}

	m, err := h.design.New()
	if err != nil {
		return res, &ModelError{Design: h.design.Name(), Scenario: sc.Name, Err: err}
	}
	if m == nil {
		return res, &ModelError{Design: h.design.Name(), Scenario: sc.Name, Err: errors.New("design returned no instance")}
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			h.logger.Warn("closing model instance", "scenario", sc.Name, "error", cerr)
		}
	}()

	res.Status = StatusRunning
	h.logger.Debug("scenario running", "scenario", sc.Name, "discipline", sc.Discipline, "steps", len(sc.Steps))

	bind := signal.Bind
	if h.strict {
		bind = signal.BindStrict
	}
	tbl, err := bind(h.registry, h.layout, m)
	if err != nil {
		h.fail(&res, err)
		return res, nil
	}
	defer tbl.Release()

	if unbound := tbl.Unbound(); len(unbound) > 0 {
		if used := referenced(sc, unbound); len(used) > 0 {
			h.logger.Warn("scenario references ports without storage location", "scenario", sc.Name, "ports", used)
		} else {
			h.logger.Debug("ports without storage location", "scenario", sc.Name, "ports", unbound)
		}
	}

	results, err := h.driver.Drive(ctx, tbl, m, sc)
	res.Results = results
	res.Failures = res.Mismatches()
	if err != nil {
		h.fail(&res, err)
		return res, nil
	}

	if res.Failures > 0 {
		res.Status = StatusFailed
		h.logger.Info("scenario failed", "scenario", sc.Name, "failures", res.Failures)
	} else {
		res.Status = StatusPassed
		h.logger.Info("scenario passed", "scenario", sc.Name, "comparisons", len(results))
	}
	return res, nil
}

// fail marks a scenario failed by a fatal error. The error counts as one
// failure so the run cannot report success.
func (h *Harness) fail(res *ScenarioResult, err error) {
	res.Status = StatusFailed
	res.Failures++
	res.Fatal = err.Error()
	res.err = err
	h.logger.Error("scenario aborted", "scenario", res.Name, "error", err)
}

// referenced returns the names in unbound that some step of sc drives or
// expects. unbound must be sorted.
func referenced(sc *scenario.Scenario, unbound []string) []string {
	inputs, outputs := sc.Signals()
	used := make(map[string]bool, len(inputs)+len(outputs))
	for _, name := range inputs {
		used[name] = true
	}
	for _, name := range outputs {
		used[name] = true
	}
	var out []string
	for _, name := range unbound {
		if used[name] {
			out = append(out, name)
		}
	}
	return out
}
