package harness_test

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbrun/internal/harness"
	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/scenario"
	"github.com/roach88/tbrun/internal/signal"
	"github.com/roach88/tbrun/internal/sim"
	"github.com/roach88/tbrun/internal/testutil"
)

func step(in, exp map[string]uint64) scenario.Step {
	return scenario.Step{Inputs: in, Expected: exp}
}

func latchScenarios() []*scenario.Scenario {
	return []*scenario.Scenario{
		{
			Name:       "Latch",
			Discipline: scenario.Sequential,
			Steps: []scenario.Step{
				step(map[string]uint64{"clk": 0, "d": 1}, map[string]uint64{"q": 0}),
				step(map[string]uint64{"clk": 1, "d": 1}, map[string]uint64{"q": 1}),
			},
		},
		{
			// Depends on a fresh instance: q starts at 0.
			Name:       "FreshState",
			Discipline: scenario.Sequential,
			Steps: []scenario.Step{
				step(map[string]uint64{"clk": 0, "d": 0}, map[string]uint64{"q": 0}),
			},
		},
		{
			Name:       "WrongExpectation",
			Discipline: scenario.Sequential,
			Steps: []scenario.Step{
				step(map[string]uint64{"clk": 0, "d": 1}, map[string]uint64{"q": 1}),
				step(map[string]uint64{"clk": 1, "d": 0}, map[string]uint64{"q": 1}),
			},
		},
		{
			Name:       "Typo",
			Discipline: scenario.Sequential,
			Steps: []scenario.Step{
				step(map[string]uint64{"clk": 1, "dee": 1}, map[string]uint64{"q": 1}),
			},
		},
		{Name: "Empty", Discipline: scenario.Combinational},
	}
}

func run(t *testing.T, d sim.Design, scenarios []*scenario.Scenario, opts ...harness.Option) *harness.Summary {
	t.Helper()
	h, err := harness.New(d, opts...)
	require.NoError(t, err)
	summary, err := h.Run(context.Background(), scenarios)
	require.NoError(t, err)
	return summary
}

func TestRun_LatchExample(t *testing.T) {
	summary := run(t, testutil.LatchDesign(t), latchScenarios()[:1])

	require.Len(t, summary.Scenarios, 1)
	res := summary.Scenarios[0]
	assert.Equal(t, harness.StatusPassed, res.Status)
	assert.Len(t, res.Results, 2)
	assert.True(t, summary.Passed())
	assert.Equal(t, "latch", summary.Design)
}

func TestRun_Outcomes(t *testing.T) {
	summary := run(t, testutil.LatchDesign(t), latchScenarios())
	require.Len(t, summary.Scenarios, 5)

	want := map[string]harness.Status{
		"Latch":            harness.StatusPassed,
		"FreshState":       harness.StatusPassed,
		"WrongExpectation": harness.StatusFailed,
		"Typo":             harness.StatusFailed,
		"Empty":            harness.StatusPassed,
	}
	for name, status := range want {
		res, ok := summary.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, status, res.Status, name)
	}

	wrong, _ := summary.Lookup("WrongExpectation")
	assert.Equal(t, 2, wrong.Failures)
	assert.Nil(t, wrong.Err())

	typo, _ := summary.Lookup("Typo")
	assert.Equal(t, 1, typo.Failures)
	assert.True(t, signal.IsUnknownSignal(typo.Err()))
	assert.Contains(t, typo.Fatal, "dee")

	empty, _ := summary.Lookup("Empty")
	assert.Empty(t, empty.Results)
	assert.Zero(t, empty.Failures)

	assert.Equal(t, 3, summary.TotalFailures)
	assert.False(t, summary.Passed())
	assert.Equal(t, map[string]int{
		"Latch": 0, "FreshState": 0, "WrongExpectation": 2, "Typo": 1, "Empty": 0,
	}, summary.PerScenario())
}

func TestRun_TotalFailuresEqualsMismatches(t *testing.T) {
	var scenarios []*scenario.Scenario
	for _, sc := range latchScenarios() {
		if sc.Name != "Typo" {
			scenarios = append(scenarios, sc)
		}
	}
	summary := run(t, testutil.LatchDesign(t), scenarios)

	mismatches := 0
	for _, res := range summary.Scenarios {
		for _, r := range res.Results {
			if !r.Matched {
				mismatches++
			}
		}
	}
	assert.Equal(t, mismatches, summary.TotalFailures)
}

func TestRun_OrderIndependent(t *testing.T) {
	baseline := run(t, testutil.LatchDesign(t), latchScenarios())
	want := make(map[string]harness.Status)
	for _, r := range baseline.Scenarios {
		want[r.Name] = r.Status
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		scenarios := latchScenarios()
		rng.Shuffle(len(scenarios), func(a, b int) { scenarios[a], scenarios[b] = scenarios[b], scenarios[a] })

		summary := run(t, testutil.LatchDesign(t), scenarios)
		assert.Equal(t, baseline.TotalFailures, summary.TotalFailures)
		for _, r := range summary.Scenarios {
			assert.Equal(t, want[r.Name], r.Status, "scenario %s in shuffle %d", r.Name, i)
		}
	}
}

func TestRun_FreshInstancePerScenario(t *testing.T) {
	d := &testutil.CountingDesign{Design: testutil.LatchDesign(t)}
	summary := run(t, d, latchScenarios())

	assert.Len(t, summary.Scenarios, 5)
	assert.Equal(t, 5, d.Created)
	assert.Equal(t, 5, d.Closed, "every instance is closed, including after fatal errors")
	assert.Zero(t, d.Live)
}

func TestRun_ModelConstructionIsFatal(t *testing.T) {
	d := &testutil.CountingDesign{Design: testutil.LatchDesign(t), FailNew: 2}
	h, err := harness.New(d)
	require.NoError(t, err)

	summary, err := h.Run(context.Background(), latchScenarios())
	require.Error(t, err)
	assert.True(t, harness.IsModelError(err))
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Contains(t, err.Error(), "WrongExpectation")

	require.NotNil(t, summary)
	assert.Len(t, summary.Scenarios, 2, "scenarios before the failure are reported")
	assert.Zero(t, d.Live)
}

func TestRun_EvaluateFailureEndsScenarioOnly(t *testing.T) {
	d := &testutil.CountingDesign{Design: testutil.LatchDesign(t), FailEvaluate: true}
	summary := run(t, d, latchScenarios())

	for _, res := range summary.Scenarios {
		switch res.Name {
		case "Empty":
			assert.Equal(t, harness.StatusPassed, res.Status)
			continue
		case "Typo":
			// The unknown input fails before Evaluate is reached.
			assert.True(t, signal.IsUnknownSignal(res.Err()))
			continue
		}
		assert.Equal(t, harness.StatusFailed, res.Status, res.Name)
		assert.ErrorIs(t, res.Err(), testutil.ErrInjected, res.Name)
	}
	assert.Zero(t, d.Live)
}

func TestRun_CancelledBetweenScenarios(t *testing.T) {
	h, err := harness.New(testutil.LatchDesign(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.Run(ctx, latchScenarios())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Scenarios)
}

// partialDesign drops a port's resolution rule.
type partialDesign struct {
	sim.Design
	drop string
}

func (d partialDesign) Layout() sim.Layout {
	l := d.Design.Layout()
	delete(l, d.drop)
	return l
}

func TestRun_UnboundPort(t *testing.T) {
	d := partialDesign{Design: testutil.LatchDesign(t), drop: "d"}
	scenarios := []*scenario.Scenario{
		{Name: "UsesD", Discipline: scenario.Sequential, Steps: []scenario.Step{
			step(map[string]uint64{"d": 1}, nil),
		}},
		{Name: "ClockOnly", Discipline: scenario.Sequential, Steps: []scenario.Step{
			step(map[string]uint64{"clk": 1}, map[string]uint64{"q": 0}),
		}},
	}

	summary := run(t, d, scenarios)
	uses, _ := summary.Lookup("UsesD")
	assert.Equal(t, harness.StatusFailed, uses.Status)
	assert.True(t, signal.IsUnboundSignal(uses.Err()))
	clock, _ := summary.Lookup("ClockOnly")
	assert.Equal(t, harness.StatusPassed, clock.Status)

	strict := run(t, d, scenarios, harness.WithStrictBinding(true))
	for _, res := range strict.Scenarios {
		assert.Equal(t, harness.StatusFailed, res.Status, res.Name)
		assert.True(t, signal.IsUnboundSignal(res.Err()), res.Name)
	}
	assert.Equal(t, 2, strict.TotalFailures)
}

func TestRun_WidePort(t *testing.T) {
	d := testutil.WideDesign{Design: testutil.LatchDesign(t), Port: "key", Width: 128}
	scenarios := []*scenario.Scenario{
		{Name: "Latch", Discipline: scenario.Sequential, Steps: []scenario.Step{
			step(map[string]uint64{"clk": 1, "d": 1}, map[string]uint64{"q": 1}),
		}},
		{Name: "UsesKey", Discipline: scenario.Sequential, Steps: []scenario.Step{
			step(map[string]uint64{"key": 7}, nil),
		}},
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	summary := run(t, d, scenarios, harness.WithLogger(logger))

	latch, _ := summary.Lookup("Latch")
	assert.Equal(t, harness.StatusPassed, latch.Status)
	key, _ := summary.Lookup("UsesKey")
	assert.Equal(t, harness.StatusFailed, key.Status)
	assert.True(t, signal.IsUnboundSignal(key.Err()))
	assert.Contains(t, key.Fatal, "128 bits wide")
	assert.Equal(t, 1, summary.TotalFailures)

	out := buf.String()
	assert.Contains(t, out, `msg="ports without storage location" scenario=Latch`)
	assert.Contains(t, out, `msg="scenario references ports without storage location" scenario=UsesKey`)
}

func TestRun_FailuresFollowMismatches(t *testing.T) {
	summary := run(t, testutil.LatchDesign(t), latchScenarios())
	for _, res := range summary.Scenarios {
		if res.Fatal != "" {
			assert.Equal(t, res.Mismatches()+1, res.Failures, res.Name)
			continue
		}
		assert.Equal(t, res.Mismatches(), res.Failures, res.Name)
	}
}

func TestRun_TypedNilInstanceIsModelError(t *testing.T) {
	calls := 0
	d, err := sim.NewStructDesign("latch", func() sim.Evaluator {
		calls++
		if calls > 2 {
			return (*testutil.Latch)(nil)
		}
		return &testutil.Latch{}
	})
	require.NoError(t, err)
	h, err := harness.New(d)
	require.NoError(t, err)

	var summary *harness.Summary
	require.NotPanics(t, func() {
		summary, err = h.Run(context.Background(), latchScenarios())
	})
	require.Error(t, err)
	assert.True(t, harness.IsModelError(err))
	assert.Contains(t, err.Error(), "FreshState")
	assert.Len(t, summary.Scenarios, 1)
}

// dupDesign declares the same port twice.
type dupDesign struct{ sim.Design }

func (d dupDesign) Ports() []ports.PortInfo {
	p := d.Design.Ports()
	return append(p, p[0])
}

func TestNew_DuplicatePortIsFatal(t *testing.T) {
	_, err := harness.New(dupDesign{testutil.LatchDesign(t)})
	require.Error(t, err)
	assert.True(t, ports.IsDuplicatePort(err))

	_, err = harness.New(nil)
	assert.Error(t, err)
}

func TestRun_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	run(t, testutil.LatchDesign(t), latchScenarios(), harness.WithLogger(logger))

	out := buf.String()
	assert.Contains(t, out, "run starting")
	assert.Contains(t, out, "scenario passed")
	assert.Contains(t, out, "scenario aborted")
	assert.Contains(t, out, "total_failures=3")
}
