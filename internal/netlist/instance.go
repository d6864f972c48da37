package netlist

import (
	"github.com/pkg/errors"

	"github.com/roach88/tbrun/internal/sim"
)

// ErrUnstable is returned when combinational logic does not settle, which
// means the circuit has an oscillating feedback loop.
var ErrUnstable = errors.New("combinational logic did not settle")

// Instance is one simulation of a Circuit.
type Instance struct {
	c       *Circuit
	vals    []uint64
	prevClk []uint64
	closed  bool
}

// Evaluate settles combinational logic, clocks every register that sees a
// rising edge, then settles again. Registers sample their inputs before any
// of them updates.
func (m *Instance) Evaluate() error {
	if m.closed {
		return sim.ErrClosed
	}
	if err := m.settle(); err != nil {
		return err
	}

	type latch struct {
		q int
		v uint64
	}
	var next []latch
	for i, r := range m.c.regs {
		clk := m.vals[r.clk] & 1
		rising := clk == 1 && m.prevClk[i] == 0
		m.prevClk[i] = clk
		if !rising {
			continue
		}
		if r.rst >= 0 && m.vals[r.rst]&1 != 0 {
			next = append(next, latch{q: r.q, v: 0})
			continue
		}
		if r.en >= 0 && m.vals[r.en]&1 == 0 {
			continue
		}
		next = append(next, latch{q: r.q, v: m.vals[r.d] & m.c.nets[r.q].mask})
	}
	if len(next) == 0 {
		return nil
	}
	for _, l := range next {
		m.vals[l.q] = l.v
	}
	return m.settle()
}

func (m *Instance) settle() error {
	limit := len(m.c.comb) + 1
	for pass := 0; pass <= limit; pass++ {
		changed := false
		for _, u := range m.c.comb {
			if u(m.vals) {
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
	return errors.Wrapf(ErrUnstable, "design %s after %d passes", m.c.name, limit+1)
}

// Close implements sim.Model.
func (m *Instance) Close() error {
	m.closed = true
	return nil
}

// Value returns the current value of any net, by name.
func (m *Instance) Value(name string) (uint64, bool) {
	idx, ok := m.c.index[name]
	if !ok {
		return 0, false
	}
	return m.vals[idx], true
}

type netCell struct {
	inst *Instance
	idx  int
}

func (c *netCell) Load() uint64 { return c.inst.vals[c.idx] }

func (c *netCell) Store(v uint64) { c.inst.vals[c.idx] = v & c.inst.c.nets[c.idx].mask }
