package driver_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbrun/internal/driver"
	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/scenario"
	"github.com/roach88/tbrun/internal/signal"
	"github.com/roach88/tbrun/internal/sim"
	"github.com/roach88/tbrun/internal/testutil"
)

func bind(t *testing.T, d sim.Design) (*signal.Table, sim.Model) {
	t.Helper()
	reg, err := ports.NewRegistry(d.Ports())
	require.NoError(t, err)
	m, err := d.New()
	require.NoError(t, err)
	tbl, err := signal.Bind(reg, d.Layout(), m)
	require.NoError(t, err)
	t.Cleanup(func() {
		tbl.Release()
		_ = m.Close()
	})
	return tbl, m
}

func latchScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name:       "Latch",
		Discipline: scenario.Sequential,
		Steps: []scenario.Step{
			{Inputs: map[string]uint64{"clk": 0, "d": 1}, Expected: map[string]uint64{"q": 0}},
			{Inputs: map[string]uint64{"clk": 1, "d": 1}, Expected: map[string]uint64{"q": 1}},
		},
	}
}

func TestDrive_LatchCapturesOnRisingEdge(t *testing.T) {
	tbl, m := bind(t, testutil.LatchDesign(t))

	results, err := driver.Drive(context.Background(), tbl, m, latchScenario())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Matched, "step %d", r.Step)
		assert.Equal(t, "Latch", r.Scenario)
		assert.Equal(t, "q", r.Signal)
	}
	assert.Equal(t, uint64(1), results[1].Actual)
	assert.Zero(t, driver.Mismatches(results))
}

func TestDrive_MismatchContinues(t *testing.T) {
	tbl, m := bind(t, testutil.AdderDesign(t))
	sc := &scenario.Scenario{
		Name:       "adder",
		Discipline: scenario.Combinational,
		Steps: []scenario.Step{
			{Inputs: map[string]uint64{"a": 3, "b": 4}, Expected: map[string]uint64{"sum": 8, "cout": 0}},
			{Inputs: map[string]uint64{"a": 15, "b": 1}, Expected: map[string]uint64{"sum": 0, "cout": 1}},
		},
	}

	results, err := driver.Drive(context.Background(), tbl, m, sc)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Outputs are compared in name order.
	assert.Equal(t, "cout", results[0].Signal)
	assert.True(t, results[0].Matched)
	assert.Equal(t, "sum", results[1].Signal)
	assert.False(t, results[1].Matched)
	assert.Equal(t, uint64(8), results[1].Expected)
	assert.Equal(t, uint64(7), results[1].Actual)
	assert.True(t, results[2].Matched)
	assert.True(t, results[3].Matched)
	assert.Equal(t, 1, driver.Mismatches(results))
}

func TestDrive_StepsWithoutChecks(t *testing.T) {
	tbl, m := bind(t, testutil.CounterDesign(t))
	sc := &scenario.Scenario{
		Name:       "count",
		Discipline: scenario.Sequential,
		Steps: []scenario.Step{
			{Inputs: map[string]uint64{"clk": 0, "en": 1}},
			{Inputs: map[string]uint64{"clk": 1}},
			{Inputs: map[string]uint64{"clk": 0}},
			{Inputs: map[string]uint64{"clk": 1}, Expected: map[string]uint64{"count": 2}},
		},
	}

	results, err := driver.Drive(context.Background(), tbl, m, sc)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
}

func TestDrive_EmptyScenario(t *testing.T) {
	tbl, m := bind(t, testutil.LatchDesign(t))

	results, err := driver.Drive(context.Background(), tbl, m, &scenario.Scenario{Name: "empty", Discipline: scenario.Combinational})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDrive_UnknownSignalIsFatal(t *testing.T) {
	tbl, m := bind(t, testutil.LatchDesign(t))
	sc := &scenario.Scenario{
		Name:       "typo",
		Discipline: scenario.Sequential,
		Steps: []scenario.Step{
			{Inputs: map[string]uint64{"clk": 0, "d": 0}, Expected: map[string]uint64{"q": 0}},
			{Inputs: map[string]uint64{"clk": 1, "dd": 1}, Expected: map[string]uint64{"q": 1}},
			{Inputs: map[string]uint64{"clk": 0}, Expected: map[string]uint64{"q": 1}},
		},
	}

	results, err := driver.Drive(context.Background(), tbl, m, sc)
	require.Error(t, err)
	assert.Len(t, results, 1, "results before the failing step are kept")

	var se *driver.StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Step)
	assert.True(t, signal.IsUnknownSignal(err))
}

func TestDrive_UnknownOutputIsFatal(t *testing.T) {
	tbl, m := bind(t, testutil.LatchDesign(t))
	sc := &scenario.Scenario{
		Name:       "typo",
		Discipline: scenario.Combinational,
		Steps:      []scenario.Step{{Expected: map[string]uint64{"qq": 0}}},
	}

	_, err := driver.Drive(context.Background(), tbl, m, sc)
	require.Error(t, err)
	assert.True(t, signal.IsUnknownSignal(err))
}

func TestDrive_EvaluateErrorIsFatal(t *testing.T) {
	d := &testutil.CountingDesign{Design: testutil.LatchDesign(t), FailEvaluate: true}
	tbl, m := bind(t, d)

	_, err := driver.Drive(context.Background(), tbl, m, latchScenario())
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.False(t, signal.IsResolutionError(err))
}

func TestDrive_RejectsForeignTable(t *testing.T) {
	d := testutil.LatchDesign(t)
	tbl, _ := bind(t, d)
	_, other := bind(t, d)

	_, err := driver.Drive(context.Background(), tbl, other, latchScenario())
	assert.ErrorIs(t, err, driver.ErrModelMismatch)
}

func TestDrive_LogsMismatches(t *testing.T) {
	tbl, m := bind(t, testutil.LatchDesign(t))
	sc := latchScenario()
	sc.Steps[1].Expected["q"] = 0

	var buf bytes.Buffer
	drv := driver.New(driver.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	results, err := drv.Drive(context.Background(), tbl, m, sc)
	require.NoError(t, err)
	assert.Equal(t, 1, driver.Mismatches(results))

	out := buf.String()
	assert.Contains(t, out, "output mismatch")
	assert.Contains(t, out, `"time point"=1`)
	assert.Contains(t, out, "expected=0")
	assert.Contains(t, out, "actual=1")
	assert.NotContains(t, out, "output matched", "debug records are filtered at info level")
}
