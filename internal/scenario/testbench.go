package scenario

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// clockCyclesKey carries stimulus-generator metadata, not a signal.
const clockCyclesKey = "clock cycles"

type testbenchRecord struct {
	Scenario string           `json:"scenario"`
	Type     string           `json:"type,omitempty"`
	Inputs   []map[string]any `json:"input variable"`
	Outputs  []map[string]any `json:"output variable"`
}

// ParseTestbench decodes testbench records: a JSON array, or one JSON object
// per line. Input and output vectors are paired by index; an input vector with
// no output vector becomes a step with no checks.
func ParseTestbench(data []byte, def Discipline) ([]*Scenario, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []testbenchRecord
	if trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(trimmed))
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			var rec testbenchRecord
			dec := json.NewDecoder(strings.NewReader(text))
			dec.UseNumber()
			if err := dec.Decode(&rec); err != nil {
				return nil, fmt.Errorf("line %d: failed to parse JSON: %w", line, err)
			}
			records = append(records, rec)
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}

	out := make([]*Scenario, 0, len(records))
	for i, rec := range records {
		disc, err := ParseDiscipline(rec.Type, def)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.Scenario, err)
		}
		sc := &Scenario{Name: rec.Scenario, Discipline: disc, Steps: make([]Step, 0, len(rec.Inputs))}
		for j, in := range rec.Inputs {
			var exp map[string]any
			if j < len(rec.Outputs) {
				exp = rec.Outputs[j]
			}
			step, err := buildStep(withoutClockCycles(in), withoutClockCycles(exp))
			if err != nil {
				return nil, fmt.Errorf("scenario %s: step %d: %w", rec.Scenario, j, err)
			}
			sc.Steps = append(sc.Steps, step)
		}
		out = append(out, sc)
	}
	return out, nil
}

func withoutClockCycles(m map[string]any) map[string]any {
	if _, ok := m[clockCyclesKey]; !ok {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != clockCyclesKey {
			out[k] = v
		}
	}
	return out
}
