package scenario

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Discipline selects how a scenario's steps are interpreted. Both disciplines
// run through the same driver mechanics.
type Discipline string

const (
	// Combinational steps are independent input vectors.
	Combinational Discipline = "CMB"
	// Sequential steps are successive time points; the clock is an ordinary
	// input toggled explicitly by the steps.
	Sequential Discipline = "SEQ"
)

// ParseDiscipline accepts CMB/SEQ and the long names, case-insensitively.
// An empty string yields def.
func ParseDiscipline(s string, def Discipline) (Discipline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "cmb", "comb", "combinational":
		return Combinational, nil
	case "seq", "sequential":
		return Sequential, nil
	}
	return "", fmt.Errorf("unknown discipline %q (want CMB or SEQ)", s)
}

func (d Discipline) String() string { return string(d) }

// Step is one input vector and its expected outputs.
type Step struct {
	Inputs   map[string]uint64 `json:"inputs"`
	Expected map[string]uint64 `json:"expect"`
}

// Scenario is a named, ordered list of steps.
type Scenario struct {
	Name       string     `json:"name"`
	Discipline Discipline `json:"discipline"`
	Steps      []Step     `json:"steps"`

	// Source is the file the scenario was loaded from, if any.
	Source string `json:"source,omitempty"`
}

// Signals returns the sorted input and output names referenced by any step.
func (s *Scenario) Signals() (inputs, outputs []string) {
	in := make(map[string]struct{})
	out := make(map[string]struct{})
	for _, st := range s.Steps {
		for k := range st.Inputs {
			in[k] = struct{}{}
		}
		for k := range st.Expected {
			out[k] = struct{}{}
		}
	}
	return sortedKeys(in), sortedKeys(out)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the scenario shape. Signal names are checked later against
// the port registry.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.Discipline != Combinational && s.Discipline != Sequential {
		return fmt.Errorf("scenario %s: invalid discipline %q", s.Name, s.Discipline)
	}
	for i, st := range s.Steps {
		for k := range st.Inputs {
			if k == "" {
				return fmt.Errorf("scenario %s: step %d: empty input name", s.Name, i)
			}
		}
		for k := range st.Expected {
			if k == "" {
				return fmt.Errorf("scenario %s: step %d: empty output name", s.Name, i)
			}
		}
	}
	return nil
}

// Filter returns the scenarios whose name matches the glob pattern. An empty
// pattern matches everything.
func Filter(scenarios []*Scenario, pattern string) ([]*Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	var out []*Scenario
	for _, sc := range scenarios {
		ok, err := filepath.Match(pattern, sc.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if ok {
			out = append(out, sc)
		}
	}
	return out, nil
}
