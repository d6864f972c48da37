// Package signal binds port names to storage inside a live model instance and
// provides masked reads and writes on them.
//
// A Table belongs to exactly one model instance. It must be rebuilt for every
// new instance and released before that instance is closed.
package signal

import (
	"fmt"
	"sort"

	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/sim"
)

// Mask returns the bit mask for a signal of the given width.
func Mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	if width <= 0 {
		return 0
	}
	return (uint64(1) << uint(width)) - 1
}

// Binding is the resolved storage of one port in one model instance.
type Binding struct {
	Name    string
	Width   int
	IsInput bool

	cell sim.Cell
	err  error // resolution failure, nil when bound
}

// Bound reports whether the binding has a storage location.
func (b *Binding) Bound() bool { return b.cell != nil }

// Table maps port names to bindings for a single model instance.
type Table struct {
	model    sim.Model
	bindings map[string]*Binding
	released bool
}

// Bind resolves every port of reg against m using layout.
//
// Ports without an extractor, whose extractor fails, or that are wider than
// ports.MaxWidth stay in the table as unbound: any Set or Get on them returns
// an UNBOUND_SIGNAL error. Use Unbound to list them.
func Bind(reg *ports.Registry, layout sim.Layout, m sim.Model) (*Table, error) {
	if m == nil {
		return nil, fmt.Errorf("bind: nil model instance")
	}
	t := &Table{
		model:    m,
		bindings: make(map[string]*Binding, reg.Len()),
	}
	for _, p := range reg.Ports() {
		b := &Binding{Name: p.Name, Width: p.Width, IsInput: p.IsInput}
		ex, ok := layout[p.Name]
		if p.Wide() {
			b.err = fmt.Errorf("port %s is %d bits wide; values wider than %d bits are not supported", p.Name, p.Width, ports.MaxWidth)
		} else if !ok {
			b.err = fmt.Errorf("no resolution rule for port %s", p.Name)
		} else if cell, err := ex(m); err != nil {
			b.err = err
		} else if cell == nil {
			b.err = fmt.Errorf("resolution rule for port %s returned no storage", p.Name)
		} else {
			b.cell = cell
		}
		t.bindings[p.Name] = b
	}
	return t, nil
}

// BindStrict is like Bind but fails when any port cannot be resolved.
func BindStrict(reg *ports.Registry, layout sim.Layout, m sim.Model) (*Table, error) {
	t, err := Bind(reg, layout, m)
	if err != nil {
		return nil, err
	}
	if unbound := t.Unbound(); len(unbound) > 0 {
		b := t.bindings[unbound[0]]
		return nil, &Error{
			Code:    ErrCodeUnboundSignal,
			Signal:  b.Name,
			Message: fmt.Sprintf("%d port(s) have no storage location", len(unbound)),
			Err:     b.err,
		}
	}
	return t, nil
}

// Model returns the instance this table is bound to.
func (t *Table) Model() sim.Model { return t.model }

// Unbound returns the sorted names of ports without a storage location.
func (t *Table) Unbound() []string {
	var names []string
	for name, b := range t.bindings {
		if !b.Bound() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Lookup returns the binding for name.
func (t *Table) Lookup(name string) (*Binding, bool) {
	b, ok := t.bindings[name]
	return b, ok
}

// Release invalidates the table. It must be called before the model instance
// is closed; later Set and Get calls fail with STALE_BINDING.
func (t *Table) Release() {
	t.released = true
	for _, b := range t.bindings {
		b.cell = nil
	}
	t.model = nil
}

// Released reports whether Release was called.
func (t *Table) Released() bool { return t.released }

func (t *Table) resolve(name string, input bool) (*Binding, error) {
	if t.released {
		return nil, &Error{Code: ErrCodeStaleBinding, Signal: name, Message: "binding table used after its model instance was released"}
	}
	b, ok := t.bindings[name]
	if !ok {
		return nil, unknown(name, "signal not declared by the model")
	}
	if b.IsInput != input {
		if input {
			return nil, unknown(name, "signal is an output, not an input")
		}
		return nil, unknown(name, "signal is an input, not an output")
	}
	if !b.Bound() {
		return nil, &Error{Code: ErrCodeUnboundSignal, Signal: name, Message: "signal has no storage location in this model instance", Err: b.err}
	}
	return b, nil
}

// Set writes value to the input name, truncated to the port width.
// Values wider than the port are silently masked, not rejected.
func (t *Table) Set(name string, value uint64) error {
	b, err := t.resolve(name, true)
	if err != nil {
		return err
	}
	b.cell.Store(value & Mask(b.Width))
	return nil
}

// Get reads the output name, masked to the port width.
func (t *Table) Get(name string) (uint64, error) {
	b, err := t.resolve(name, false)
	if err != nil {
		return 0, err
	}
	return b.cell.Load() & Mask(b.Width), nil
}
