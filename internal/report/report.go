// Package report renders run summaries as text, as canonical JSON snapshots,
// and compares snapshots against golden files.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/tbrun/internal/harness"
)

// WriteText writes one line per scenario and a final total:
//
//	Test passed for scenario <name>
//	Test failed, unpass = <n> for scenario <name>
//	Total unpass: <n>
//
// Fatal scenario errors are written indented under their scenario line.
func WriteText(w io.Writer, s *harness.Summary) error {
	for _, r := range s.Scenarios {
		var err error
		if r.Passed() {
			_, err = fmt.Fprintf(w, "Test passed for scenario %s\n", r.Name)
		} else {
			_, err = fmt.Fprintf(w, "Test failed, unpass = %d for scenario %s\n", r.Failures, r.Name)
		}
		if err != nil {
			return err
		}
		if r.Fatal != "" {
			if _, err := fmt.Fprintf(w, "  error: %s\n", r.Fatal); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "Total unpass: %d\n", s.TotalFailures)
	return err
}

// WriteMismatches writes one line per failed comparison.
func WriteMismatches(w io.Writer, s *harness.Summary) error {
	for _, r := range s.Scenarios {
		for _, c := range r.Results {
			if c.Matched {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %s step %d: %s expected=%d actual=%d\n",
				r.Name, c.Step, c.Signal, c.Expected, c.Actual); err != nil {
				return err
			}
		}
	}
	return nil
}

// SnapshotMap converts a summary to the plain map form used for canonical
// JSON. Fatal messages are included; they are deterministic.
func SnapshotMap(s *harness.Summary) map[string]any {
	scenarios := make([]any, len(s.Scenarios))
	for i, r := range s.Scenarios {
		results := make([]any, len(r.Results))
		for j, c := range r.Results {
			results[j] = map[string]any{
				"step":     c.Step,
				"signal":   c.Signal,
				"expected": c.Expected,
				"actual":   c.Actual,
				"matched":  c.Matched,
			}
		}
		m := map[string]any{
			"name":       r.Name,
			"discipline": string(r.Discipline),
			"status":     string(r.Status),
			"failures":   r.Failures,
			"results":    results,
		}
		if r.Fatal != "" {
			m["fatal"] = r.Fatal
		}
		scenarios[i] = m
	}
	return map[string]any{
		"design":         s.Design,
		"scenarios":      scenarios,
		"total_failures": s.TotalFailures,
	}
}

// Snapshot returns the canonical JSON form of a summary.
func Snapshot(s *harness.Summary) ([]byte, error) {
	data, err := MarshalCanonical(SnapshotMap(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// CompareGolden reports whether the snapshot of s equals the golden file.
func CompareGolden(path string, s *harness.Summary) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	current, err := Snapshot(s)
	if err != nil {
		return false, err
	}
	return bytes.Equal(bytes.TrimSpace(golden), current), nil
}

// UpdateGolden writes the snapshot of s to path, creating directories.
func UpdateGolden(path string, s *harness.Summary) error {
	data, err := Snapshot(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
