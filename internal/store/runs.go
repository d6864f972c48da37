package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tbrun/internal/driver"
	"github.com/roach88/tbrun/internal/harness"
	"github.com/roach88/tbrun/internal/scenario"
)

// timeLayout has fixed-width fractional seconds so stored times sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("run not found")

// RunInfo is the header row of a recorded run.
type RunInfo struct {
	ID            string    `json:"id"`
	Design        string    `json:"design"`
	StartedAt     time.Time `json:"started_at"`
	ScenarioCount int       `json:"scenario_count"`
	TotalFailures int       `json:"total_failures"`
	Passed        bool      `json:"passed"`
}

// Run is a recorded run with its full summary.
type Run struct {
	RunInfo
	Summary *harness.Summary `json:"summary"`
}

// ScenarioRecord is one recorded outcome of a named scenario.
type ScenarioRecord struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Status    harness.Status `json:"status"`
	Failures  int            `json:"failures"`
}

// NewRunID returns a time-ordered run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecordRun stores a summary in a single transaction and returns its run ID.
func (s *Store) RecordRun(ctx context.Context, sum *harness.Summary, startedAt time.Time) (string, error) {
	id := NewRunID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, design, started_at, scenario_count, total_failures, passed)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		id,
		sum.Design,
		startedAt.UTC().Format(timeLayout),
		len(sum.Scenarios),
		sum.TotalFailures,
		boolInt(sum.Passed()),
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	for pos, r := range sum.Scenarios {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenario_results (run_id, position, name, discipline, status, failures, fatal)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, pos, r.Name, string(r.Discipline), string(r.Status), r.Failures, r.Fatal)
		if err != nil {
			return "", fmt.Errorf("record run: scenario %s: %w", r.Name, err)
		}
		for seq, c := range r.Results {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO comparisons (run_id, scenario_position, seq, step, signal, expected, actual, matched)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, id, pos, seq, c.Step, c.Signal, int64(c.Expected), int64(c.Actual), boolInt(c.Matched))
			if err != nil {
				return "", fmt.Errorf("record run: scenario %s: %w", r.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `
		SELECT id, design, started_at, scenario_count, total_failures, passed
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LoadRun reads a run and rebuilds its summary. Scenario-fatal errors come
// back as their recorded messages only.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, design, started_at, scenario_count, total_failures, passed
		FROM runs WHERE id = ?
	`, id)
	info, err := scanRunInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	sum := &harness.Summary{Design: info.Design, TotalFailures: info.TotalFailures}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, name, discipline, status, failures, fatal
		FROM scenario_results WHERE run_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	positions := make(map[int]int)
	for rows.Next() {
		var (
			pos  int
			r    harness.ScenarioResult
			disc string
			stat string
		)
		if err := rows.Scan(&pos, &r.Name, &disc, &stat, &r.Failures, &r.Fatal); err != nil {
			rows.Close()
			return nil, fmt.Errorf("load run %s: %w", id, err)
		}
		r.Discipline = scenario.Discipline(disc)
		r.Status = harness.Status(stat)
		positions[pos] = len(sum.Scenarios)
		sum.Scenarios = append(sum.Scenarios, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	crow, err := s.db.QueryContext(ctx, `
		SELECT scenario_position, step, signal, expected, actual, matched
		FROM comparisons WHERE run_id = ?
		ORDER BY scenario_position ASC, seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	defer crow.Close()
	for crow.Next() {
		var (
			pos              int
			c                driver.ComparisonResult
			expected, actual int64
			matched          int
		)
		if err := crow.Scan(&pos, &c.Step, &c.Signal, &expected, &actual, &matched); err != nil {
			return nil, fmt.Errorf("load run %s: %w", id, err)
		}
		i, ok := positions[pos]
		if !ok {
			return nil, fmt.Errorf("load run %s: comparison for missing scenario %d", id, pos)
		}
		c.Scenario = sum.Scenarios[i].Name
		c.Expected = uint64(expected)
		c.Actual = uint64(actual)
		c.Matched = matched == 1
		sum.Scenarios[i].Results = append(sum.Scenarios[i].Results, c)
	}
	if err := crow.Err(); err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	return &Run{RunInfo: info, Summary: sum}, nil
}

// ScenarioHistory returns the recorded outcomes of one scenario, most recent
// first.
func (s *Store) ScenarioHistory(ctx context.Context, name string, limit int) ([]ScenarioRecord, error) {
	query := `
		SELECT r.id, r.started_at, sr.status, sr.failures
		FROM scenario_results sr
		JOIN runs r ON r.id = sr.run_id
		WHERE sr.name = ?
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC
	`
	args := []any{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scenario history: %w", err)
	}
	defer rows.Close()

	var out []ScenarioRecord
	for rows.Next() {
		var (
			rec     ScenarioRecord
			started string
			status  string
		)
		if err := rows.Scan(&rec.RunID, &started, &status, &rec.Failures); err != nil {
			return nil, fmt.Errorf("scenario history: %w", err)
		}
		if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("scenario history: %w", err)
		}
		rec.Status = harness.Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(r rowScanner) (RunInfo, error) {
	var (
		info    RunInfo
		started string
		passed  int
	)
	if err := r.Scan(&info.ID, &info.Design, &started, &info.ScenarioCount, &info.TotalFailures, &passed); err != nil {
		return info, err
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return info, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	info.StartedAt = t
	info.Passed = passed == 1
	return info, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
