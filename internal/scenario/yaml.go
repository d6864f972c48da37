package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Discipline string         `yaml:"discipline"`
	Scenarios  []yamlScenario `yaml:"scenarios"`
}

type yamlScenario struct {
	Name       string     `yaml:"name"`
	Discipline string     `yaml:"discipline"`
	Steps      []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Inputs map[string]any `yaml:"inputs"`
	Expect map[string]any `yaml:"expect"`
}

// ParseYAML decodes a YAML scenario file. A file may hold several documents
// separated by "---"; each carries its own discipline default and their
// scenarios are returned in file order. Unknown fields are rejected.
func ParseYAML(data []byte, def Discipline) ([]*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []*Scenario
	for doc := 0; ; doc++ {
		var f yamlFile
		if err := dec.Decode(&f); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("failed to parse YAML document %d: %w", doc, err)
		}
		scenarios, err := f.build(def)
		if err != nil {
			if doc > 0 {
				return nil, fmt.Errorf("document %d: %w", doc, err)
			}
			return nil, err
		}
		out = append(out, scenarios...)
	}
}

func (f *yamlFile) build(def Discipline) ([]*Scenario, error) {
	fileDisc, err := ParseDiscipline(f.Discipline, def)
	if err != nil {
		return nil, err
	}

	out := make([]*Scenario, 0, len(f.Scenarios))
	for i, ys := range f.Scenarios {
		disc, err := ParseDiscipline(ys.Discipline, fileDisc)
		if err != nil {
			return nil, fmt.Errorf("scenario %d (%s): %w", i, ys.Name, err)
		}
		sc := &Scenario{Name: ys.Name, Discipline: disc, Steps: make([]Step, 0, len(ys.Steps))}
		for j, st := range ys.Steps {
			step, err := buildStep(st.Inputs, st.Expect)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: step %d: %w", ys.Name, j, err)
			}
			sc.Steps = append(sc.Steps, step)
		}
		out = append(out, sc)
	}
	return out, nil
}

func buildStep(inputs, expect map[string]any) (Step, error) {
	in, err := convertVector(inputs)
	if err != nil {
		return Step{}, fmt.Errorf("inputs: %w", err)
	}
	exp, err := convertVector(expect)
	if err != nil {
		return Step{}, fmt.Errorf("expect: %w", err)
	}
	return Step{Inputs: in, Expected: exp}, nil
}
