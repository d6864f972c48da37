package harness

import (
	"github.com/roach88/tbrun/internal/driver"
	"github.com/roach88/tbrun/internal/scenario"
)

// Status is the lifecycle state of one scenario run.
type Status string

const (
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name       string                    `json:"name"`
	Discipline scenario.Discipline       `json:"discipline"`
	Status     Status                    `json:"status"`
	Failures   int                       `json:"failures"`
	Results    []driver.ComparisonResult `json:"results"`

	// Fatal holds the scenario-ending error message, if any.
	Fatal string `json:"fatal,omitempty"`
	err   error
}

// Err returns the scenario-fatal error, or nil.
func (r *ScenarioResult) Err() error { return r.err }

// Passed reports whether every comparison matched and nothing was fatal.
func (r *ScenarioResult) Passed() bool { return r.Status == StatusPassed }

// Mismatches counts unmatched comparisons.
func (r *ScenarioResult) Mismatches() int { return driver.Mismatches(r.Results) }

// Summary aggregates a run over all scenarios, in run order.
type Summary struct {
	Design        string           `json:"design"`
	Scenarios     []ScenarioResult `json:"scenarios"`
	TotalFailures int              `json:"total_failures"`
}

// Passed reports whether the run had no failures. It decides the exit code.
func (s *Summary) Passed() bool { return s.TotalFailures == 0 }

// PerScenario returns the failure count per scenario name.
func (s *Summary) PerScenario() map[string]int {
	out := make(map[string]int, len(s.Scenarios))
	for _, r := range s.Scenarios {
		out[r.Name] = r.Failures
	}
	return out
}

// Lookup returns the result for the named scenario.
func (s *Summary) Lookup(name string) (*ScenarioResult, bool) {
	for i := range s.Scenarios {
		if s.Scenarios[i].Name == name {
			return &s.Scenarios[i], true
		}
	}
	return nil, false
}

func (s *Summary) add(r ScenarioResult) {
	s.Scenarios = append(s.Scenarios, r)
	s.TotalFailures += r.Failures
}
