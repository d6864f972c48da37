package signal_test

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/signal"
	"github.com/roach88/tbrun/internal/sim"
	"github.com/roach88/tbrun/internal/testutil"
)

func bindDesign(t *testing.T, d sim.Design) (*signal.Table, sim.Model) {
	t.Helper()
	reg, err := ports.NewRegistry(d.Ports())
	require.NoError(t, err)
	m, err := d.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	tbl, err := signal.Bind(reg, d.Layout(), m)
	require.NoError(t, err)
	return tbl, m
}

func TestMask(t *testing.T) {
	tests := []struct {
		width int
		want  uint64
	}{
		{0, 0},
		{1, 0x1},
		{2, 0x3},
		{8, 0xff},
		{63, 0x7fffffffffffffff},
		{64, 0xffffffffffffffff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, signal.Mask(tt.width), "width %d", tt.width)
	}
}

func TestSet_TruncatesToWidth(t *testing.T) {
	tbl, m := bindDesign(t, testutil.PassthroughDesign(t))

	require.NoError(t, tbl.Set("in", 5))
	require.NoError(t, m.Evaluate())

	got, err := tbl.Get("out")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got, "5 & 0b11 must read back as 1")
}

func TestSetGet_MaskProperty(t *testing.T) {
	d := testutil.AdderDesign(t)
	tbl, m := bindDesign(t, d)

	// Adding zero leaves the masked operand on the sum output.
	require.NoError(t, tbl.Set("b", 0))
	f := func(v uint64) bool {
		if err := tbl.Set("a", v); err != nil {
			return false
		}
		if err := m.Evaluate(); err != nil {
			return false
		}
		got, err := tbl.Get("sum")
		return err == nil && got == v&signal.Mask(4) && got <= signal.Mask(4)
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestSet_UnknownSignal(t *testing.T) {
	tbl, _ := bindDesign(t, testutil.LatchDesign(t))

	err := tbl.Set("nope", 1)
	require.Error(t, err)
	assert.True(t, signal.IsUnknownSignal(err))
	assert.True(t, signal.IsResolutionError(err))
	assert.Contains(t, err.Error(), "signal=nope")
}

func TestSet_OutputIsNotAnInput(t *testing.T) {
	tbl, _ := bindDesign(t, testutil.LatchDesign(t))

	err := tbl.Set("q", 1)
	require.Error(t, err)
	assert.True(t, signal.IsUnknownSignal(err))
	assert.Contains(t, err.Error(), "is an output")
}

func TestGet_InputIsNotAnOutput(t *testing.T) {
	tbl, _ := bindDesign(t, testutil.LatchDesign(t))

	_, err := tbl.Get("d")
	require.Error(t, err)
	assert.True(t, signal.IsUnknownSignal(err))
	assert.Contains(t, err.Error(), "is an input")
}

func TestBind_MissingRuleIsUnbound(t *testing.T) {
	d := testutil.LatchDesign(t)
	reg, err := ports.NewRegistry(d.Ports())
	require.NoError(t, err)

	layout := d.Layout()
	delete(layout, "q")

	m, err := d.New()
	require.NoError(t, err)
	defer m.Close()

	tbl, err := signal.Bind(reg, layout, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, tbl.Unbound())

	b, ok := tbl.Lookup("q")
	require.True(t, ok)
	assert.False(t, b.Bound())

	_, err = tbl.Get("q")
	require.Error(t, err)
	assert.True(t, signal.IsUnboundSignal(err))
	assert.False(t, signal.IsUnknownSignal(err))

	// Bound signals keep working.
	require.NoError(t, tbl.Set("d", 1))
}

func TestBind_FailingExtractorIsUnbound(t *testing.T) {
	latch := testutil.LatchDesign(t)
	adder := testutil.AdderDesign(t)

	reg, err := ports.NewRegistry(latch.Ports())
	require.NoError(t, err)

	// Resolving latch ports against an adder instance fails per port.
	m, err := adder.New()
	require.NoError(t, err)
	defer m.Close()

	tbl, err := signal.Bind(reg, latch.Layout(), m)
	require.NoError(t, err)
	assert.Equal(t, []string{"clk", "d", "q"}, tbl.Unbound())

	err = tbl.Set("clk", 1)
	require.Error(t, err)
	assert.True(t, signal.IsUnboundSignal(err))
	assert.Contains(t, err.Error(), "not an instance of latch")
}

func TestBind_WidePortIsUnbound(t *testing.T) {
	d := testutil.WideDesign{Design: testutil.LatchDesign(t), Port: "key", Width: 128}
	tbl, m := bindDesign(t, d)
	assert.Equal(t, []string{"key"}, tbl.Unbound())

	err := tbl.Set("key", 1)
	require.Error(t, err)
	assert.True(t, signal.IsUnboundSignal(err))
	assert.Contains(t, err.Error(), "128 bits wide")

	require.NoError(t, tbl.Set("d", 1))
	require.NoError(t, tbl.Set("clk", 1))
	require.NoError(t, m.Evaluate())
	q, err := tbl.Get("q")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), q)
}

func TestBindStrict(t *testing.T) {
	d := testutil.LatchDesign(t)
	reg, err := ports.NewRegistry(d.Ports())
	require.NoError(t, err)

	m, err := d.New()
	require.NoError(t, err)
	defer m.Close()

	_, err = signal.BindStrict(reg, d.Layout(), m)
	require.NoError(t, err)

	layout := d.Layout()
	delete(layout, "d")
	_, err = signal.BindStrict(reg, layout, m)
	require.Error(t, err)
	assert.True(t, signal.IsUnboundSignal(err))
	assert.Contains(t, err.Error(), "signal=d")
}

func TestBind_NilModel(t *testing.T) {
	d := testutil.LatchDesign(t)
	reg, err := ports.NewRegistry(d.Ports())
	require.NoError(t, err)

	_, err = signal.Bind(reg, d.Layout(), nil)
	require.Error(t, err)
}

func TestRelease_InvalidatesTable(t *testing.T) {
	tbl, m := bindDesign(t, testutil.LatchDesign(t))
	assert.Same(t, m, tbl.Model())

	tbl.Release()
	assert.True(t, tbl.Released())
	assert.Nil(t, tbl.Model())

	err := tbl.Set("d", 1)
	require.Error(t, err)
	assert.True(t, signal.IsStaleBinding(err))

	_, err = tbl.Get("q")
	require.Error(t, err)
	assert.True(t, signal.IsStaleBinding(err))
}

func TestTables_AreIndependentPerInstance(t *testing.T) {
	d := testutil.LatchDesign(t)
	first, m1 := bindDesign(t, d)
	second, m2 := bindDesign(t, d)

	require.NoError(t, first.Set("d", 1))
	require.NoError(t, first.Set("clk", 1))
	require.NoError(t, m1.Evaluate())

	require.NoError(t, m2.Evaluate())

	q1, err := first.Get("q")
	require.NoError(t, err)
	q2, err := second.Get("q")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), q1)
	assert.Equal(t, uint64(0), q2)
}
