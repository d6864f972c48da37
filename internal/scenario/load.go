package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options configures loading.
type Options struct {
	// Discipline applies to scenarios whose file does not name one.
	// Defaults to Combinational.
	Discipline Discipline
}

func (o Options) discipline() Discipline {
	if o.Discipline == "" {
		return Combinational
	}
	return o.Discipline
}

// Supported reports whether path has a scenario file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".jsonl", ".hcl":
		return true
	}
	return false
}

// LoadFile reads and parses one scenario file. Every failure is a *LoadError.
func LoadFile(path string, opts Options) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	scenarios, err := Parse(data, path, opts)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	for _, sc := range scenarios {
		sc.Source = path
	}
	return scenarios, nil
}

// Parse decodes data in the format implied by filename's extension and
// validates every scenario.
func Parse(data []byte, filename string, opts Options) ([]*Scenario, error) {
	var (
		scenarios []*Scenario
		err       error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		scenarios, err = ParseYAML(data, opts.discipline())
	case ".json", ".jsonl":
		scenarios, err = ParseTestbench(data, opts.discipline())
	case ".hcl":
		scenarios, err = ParseHCL(data, filename, opts.discipline())
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
	}
	return scenarios, nil
}

// LoadPaths loads every file named in paths. Directories are walked
// recursively for supported files, in lexical order. Scenario names must be
// unique across all files.
func LoadPaths(paths []string, opts Options) ([]*Scenario, error) {
	var all []*Scenario
	seen := make(map[string]string)
	for _, p := range paths {
		files, err := findScenarioFiles(p)
		if err != nil {
			return nil, &LoadError{Path: p, Err: err}
		}
		for _, f := range files {
			scenarios, err := LoadFile(f, opts)
			if err != nil {
				return nil, err
			}
			for _, sc := range scenarios {
				if prev, dup := seen[sc.Name]; dup {
					return nil, &LoadError{Path: f, Err: fmt.Errorf("duplicate scenario name %q (first defined in %s)", sc.Name, prev)}
				}
				seen[sc.Name] = f
			}
			all = append(all, scenarios...)
		}
	}
	return all, nil
}

func findScenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
