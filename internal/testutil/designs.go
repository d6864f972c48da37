package testutil

import (
	"testing"

	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/sim"
)

// Latch is a D flip-flop: q takes d on the rising edge of clk.
type Latch struct {
	Clk bool `sim:"in"`
	D   bool `sim:"in"`
	Q   bool `sim:"out"`

	prev bool
}

// Eval implements sim.Evaluator.
func (l *Latch) Eval() {
	if l.Clk && !l.prev {
		l.Q = l.D
	}
	l.prev = l.Clk
}

// Adder is a 4-bit combinational adder with carry out.
type Adder struct {
	A     uint8 `sim:"in,a,width=4"`
	B     uint8 `sim:"in,b,width=4"`
	Sum   uint8 `sim:"out,sum,width=4"`
	Carry bool  `sim:"out,cout"`
}

// Eval implements sim.Evaluator.
func (a *Adder) Eval() {
	s := uint16(a.A&0xf) + uint16(a.B&0xf)
	a.Sum = uint8(s & 0xf)
	a.Carry = s > 0xf
}

// Counter is a 3-bit counter with synchronous reset and enable.
type Counter struct {
	Clk   bool  `sim:"in"`
	Rst   bool  `sim:"in"`
	En    bool  `sim:"in"`
	Count uint8 `sim:"out,count,width=3"`

	prev bool
}

// Eval implements sim.Evaluator.
func (c *Counter) Eval() {
	if c.Clk && !c.prev {
		switch {
		case c.Rst:
			c.Count = 0
		case c.En:
			c.Count = (c.Count + 1) & 0x7
		}
	}
	c.prev = c.Clk
}

// Passthrough copies a 2-bit input to a 2-bit output.
type Passthrough struct {
	In  uint8 `sim:"in,in,width=2"`
	Out uint8 `sim:"out,out,width=2"`
}

// Eval implements sim.Evaluator.
func (p *Passthrough) Eval() { p.Out = p.In }

// LatchDesign returns the Latch design.
func LatchDesign(t testing.TB) *sim.StructDesign {
	return mustDesign(t, "latch", func() sim.Evaluator { return &Latch{} })
}

// AdderDesign returns the Adder design.
func AdderDesign(t testing.TB) *sim.StructDesign {
	return mustDesign(t, "adder4", func() sim.Evaluator { return &Adder{} })
}

// CounterDesign returns the Counter design.
func CounterDesign(t testing.TB) *sim.StructDesign {
	return mustDesign(t, "counter3", func() sim.Evaluator { return &Counter{} })
}

// PassthroughDesign returns the Passthrough design.
func PassthroughDesign(t testing.TB) *sim.StructDesign {
	return mustDesign(t, "passthrough", func() sim.Evaluator { return &Passthrough{} })
}

func mustDesign(t testing.TB, name string, fn func() sim.Evaluator) *sim.StructDesign {
	t.Helper()
	d, err := sim.NewStructDesign(name, fn)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// WideDesign adds an input port of the given width to a design. The extra
// port has no resolution rule, like a VL_INW port in a generated header.
type WideDesign struct {
	sim.Design
	Port  string
	Width int
}

// Ports implements sim.Design.
func (d WideDesign) Ports() []ports.PortInfo {
	return append(d.Design.Ports(), ports.PortInfo{Name: d.Port, Width: d.Width, IsInput: true})
}
