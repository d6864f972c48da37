package netlist

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/sim"
)

type netKind int

const (
	netInput netKind = iota
	netOutput
	netWire
)

type net struct {
	name  string
	width int
	mask  uint64
	kind  netKind
}

// updater recomputes the nets driven by a combinational part from the
// current values. It reports whether any driven net changed.
type updater func(vals []uint64) bool

type register struct {
	label     string
	d, clk, q int
	en, rst   int // -1 when not connected
}

// Circuit is a compiled netlist. It is immutable and safe to instantiate
// any number of times.
type Circuit struct {
	name  string
	nets  []net
	index map[string]int
	ports []ports.PortInfo
	comb  []updater
	regs  []register
}

func maskOf(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// Build validates spec and compiles it into a Circuit.
func Build(spec *Spec) (*Circuit, error) {
	if spec.Name == "" {
		return nil, errors.New("design name is required")
	}
	c := &Circuit{name: spec.Name, index: make(map[string]int)}

	addNet := func(name string, width int, kind netKind) error {
		if name == "" {
			return errors.New("empty net name")
		}
		if width < 1 || width > ports.MaxWidth {
			return errors.Errorf("net %s: width %d out of range 1..%d", name, width, ports.MaxWidth)
		}
		if _, dup := c.index[name]; dup {
			return errors.Errorf("net %s declared more than once", name)
		}
		c.index[name] = len(c.nets)
		c.nets = append(c.nets, net{name: name, width: width, mask: maskOf(width), kind: kind})
		return nil
	}

	for _, p := range spec.Ports {
		var kind netKind
		switch p.Dir {
		case "in":
			kind = netInput
		case "out":
			kind = netOutput
		default:
			return nil, errors.Errorf("port %s: invalid direction %q", p.Name, p.Dir)
		}
		if err := addNet(p.Name, p.Width, kind); err != nil {
			return nil, errors.Wrap(err, "design "+spec.Name)
		}
		c.ports = append(c.ports, ports.PortInfo{Name: p.Name, Width: p.Width, IsInput: kind == netInput})
	}
	for _, w := range spec.Wires {
		if err := addNet(w.Name, w.Width, netWire); err != nil {
			return nil, errors.Wrap(err, "design "+spec.Name)
		}
	}

	driven := make(map[int]string)
	for i := range spec.Parts {
		if err := c.addPart(&spec.Parts[i], i, driven); err != nil {
			return nil, errors.Wrapf(err, "design %s: part %s", spec.Name, spec.Parts[i].Label(i))
		}
	}
	for i, n := range c.nets {
		if n.kind == netOutput {
			if _, ok := driven[i]; !ok {
				return nil, errors.Errorf("design %s: output port %s is not driven", spec.Name, n.name)
			}
		}
	}
	return c, nil
}

func (c *Circuit) ref(pin, name string, required bool) (int, error) {
	if name == "" {
		if required {
			return -1, errors.Errorf("pin %s is not connected", pin)
		}
		return -1, nil
	}
	idx, ok := c.index[name]
	if !ok {
		return -1, errors.Errorf("pin %s: unknown net %q", pin, name)
	}
	return idx, nil
}

func (c *Circuit) drive(pin, name, label string, driven map[int]string) (int, error) {
	idx, err := c.ref(pin, name, true)
	if err != nil {
		return -1, err
	}
	if c.nets[idx].kind == netInput {
		return -1, errors.Errorf("pin %s: input port %s cannot be driven", pin, name)
	}
	if prev, ok := driven[idx]; ok {
		return -1, errors.Errorf("pin %s: net %s is already driven by %s", pin, name, prev)
	}
	driven[idx] = label
	return idx, nil
}

var binaryOps = map[string]func(a, b uint64) uint64{
	"and":  func(a, b uint64) uint64 { return a & b },
	"or":   func(a, b uint64) uint64 { return a | b },
	"xor":  func(a, b uint64) uint64 { return a ^ b },
	"nand": func(a, b uint64) uint64 { return ^(a & b) },
	"nor":  func(a, b uint64) uint64 { return ^(a | b) },
	"xnor": func(a, b uint64) uint64 { return ^(a ^ b) },
}

func (c *Circuit) addPart(p *PartSpec, i int, driven map[int]string) error {
	label := p.Label(i)

	if op, ok := binaryOps[p.Type]; ok {
		a, err := c.ref("a", p.A, true)
		if err != nil {
			return err
		}
		b, err := c.ref("b", p.B, true)
		if err != nil {
			return err
		}
		out, err := c.drive("out", p.Out, label, driven)
		if err != nil {
			return err
		}
		c.comb = append(c.comb, c.setter(out, func(v []uint64) uint64 { return op(v[a], v[b]) }))
		return nil
	}

	switch p.Type {
	case "not":
		in, err := c.ref("in", p.In, true)
		if err != nil {
			return err
		}
		out, err := c.drive("out", p.Out, label, driven)
		if err != nil {
			return err
		}
		c.comb = append(c.comb, c.setter(out, func(v []uint64) uint64 { return ^v[in] }))

	case "mux":
		a, err := c.ref("a", p.A, true)
		if err != nil {
			return err
		}
		b, err := c.ref("b", p.B, true)
		if err != nil {
			return err
		}
		sel, err := c.ref("sel", p.Sel, true)
		if err != nil {
			return err
		}
		out, err := c.drive("out", p.Out, label, driven)
		if err != nil {
			return err
		}
		c.comb = append(c.comb, c.setter(out, func(v []uint64) uint64 {
			if v[sel]&1 != 0 {
				return v[b]
			}
			return v[a]
		}))

	case "add":
		a, err := c.ref("a", p.A, true)
		if err != nil {
			return err
		}
		b, err := c.ref("b", p.B, true)
		if err != nil {
			return err
		}
		out, err := c.drive("out", p.Out, label, driven)
		if err != nil {
			return err
		}
		width := c.nets[out].width
		c.comb = append(c.comb, c.setter(out, func(v []uint64) uint64 {
			sum, _ := bits.Add64(v[a], v[b], 0)
			return sum
		}))
		if p.Cout != "" {
			cout, err := c.drive("cout", p.Cout, label, driven)
			if err != nil {
				return err
			}
			c.comb = append(c.comb, c.setter(cout, func(v []uint64) uint64 {
				return carryOut(v[a], v[b], width)
			}))
		}

	case "const":
		out, err := c.drive("out", p.Out, label, driven)
		if err != nil {
			return err
		}
		if p.Value&^c.nets[out].mask != 0 {
			return errors.Errorf("value %d does not fit in %d bits", p.Value, c.nets[out].width)
		}
		val := p.Value
		c.comb = append(c.comb, c.setter(out, func([]uint64) uint64 { return val }))

	case "dff":
		r := register{label: label}
		var err error
		if r.d, err = c.ref("d", p.D, true); err != nil {
			return err
		}
		if r.clk, err = c.ref("clk", p.Clk, true); err != nil {
			return err
		}
		if r.en, err = c.ref("en", p.En, false); err != nil {
			return err
		}
		if r.rst, err = c.ref("rst", p.Rst, false); err != nil {
			return err
		}
		if r.q, err = c.drive("q", p.Q, label, driven); err != nil {
			return err
		}
		c.regs = append(c.regs, r)

	default:
		return errors.Errorf("unknown part type %q", p.Type)
	}
	return nil
}

// carryOut returns the carry out of bit width-1 when adding a and b.
func carryOut(a, b uint64, width int) uint64 {
	if width >= 64 {
		_, carry := bits.Add64(a, b, 0)
		return carry
	}
	m := maskOf(width)
	sum := (a & m) + (b & m)
	return (sum >> uint(width)) & 1
}

func (c *Circuit) setter(out int, fn func(v []uint64) uint64) updater {
	mask := c.nets[out].mask
	return func(v []uint64) bool {
		nv := fn(v) & mask
		if v[out] == nv {
			return false
		}
		v[out] = nv
		return true
	}
}

// Name implements sim.Design.
func (c *Circuit) Name() string { return c.name }

// Ports implements sim.Design.
func (c *Circuit) Ports() []ports.PortInfo {
	out := make([]ports.PortInfo, len(c.ports))
	copy(out, c.ports)
	return out
}

// Nets returns the names of all nets, ports first, in declaration order.
func (c *Circuit) Nets() []string {
	out := make([]string, len(c.nets))
	for i, n := range c.nets {
		out[i] = n.name
	}
	return out
}

// Layout implements sim.Design. Every port resolves to its net in the given
// instance.
func (c *Circuit) Layout() sim.Layout {
	l := make(sim.Layout, len(c.ports))
	for _, p := range c.ports {
		idx := c.index[p.Name]
		name := p.Name
		l[name] = func(m sim.Model) (sim.Cell, error) {
			inst, ok := m.(*Instance)
			if !ok || inst.c != c {
				return nil, errors.Errorf("signal %s: model is not an instance of %s", name, c.name)
			}
			if inst.closed {
				return nil, sim.ErrClosed
			}
			return &netCell{inst: inst, idx: idx}, nil
		}
	}
	return l
}

// New implements sim.Design.
func (c *Circuit) New() (sim.Model, error) {
	return c.Instantiate(), nil
}

// Instantiate returns a fresh instance with every net and register at zero.
func (c *Circuit) Instantiate() *Instance {
	return &Instance{
		c:       c,
		vals:    make([]uint64, len(c.nets)),
		prevClk: make([]uint64, len(c.regs)),
	}
}
