package testutil

import (
	"errors"

	"github.com/roach88/tbrun/internal/ports"
	"github.com/roach88/tbrun/internal/sim"
)

// CountingDesign wraps a design and records instance lifecycle events, so
// tests can check that every instance is closed and none is reused.
type CountingDesign struct {
	sim.Design

	// FailNew makes New fail after this many successful instances (0 = never).
	FailNew int
	// FailEvaluate makes every Evaluate call fail.
	FailEvaluate bool

	Created int
	Closed  int
	Live    int
}

// ErrInjected is returned by injected failures.
var ErrInjected = errors.New("injected failure")

// Ports implements sim.Design.
func (d *CountingDesign) Ports() []ports.PortInfo { return d.Design.Ports() }

// Layout wraps every extractor so it unwraps counted instances.
func (d *CountingDesign) Layout() sim.Layout {
	inner := d.Design.Layout()
	l := make(sim.Layout, len(inner))
	for name, ex := range inner {
		ex := ex
		l[name] = func(m sim.Model) (sim.Cell, error) {
			if cm, ok := m.(*countedModel); ok {
				m = cm.Model
			}
			return ex(m)
		}
	}
	return l
}

// New implements sim.Design.
func (d *CountingDesign) New() (sim.Model, error) {
	if d.FailNew > 0 && d.Created >= d.FailNew {
		return nil, ErrInjected
	}
	m, err := d.Design.New()
	if err != nil {
		return nil, err
	}
	d.Created++
	d.Live++
	return &countedModel{Model: m, d: d}, nil
}

type countedModel struct {
	sim.Model
	d      *CountingDesign
	closed bool
}

func (m *countedModel) Evaluate() error {
	if m.d.FailEvaluate {
		return ErrInjected
	}
	return m.Model.Evaluate()
}

func (m *countedModel) Close() error {
	if !m.closed {
		m.closed = true
		m.d.Closed++
		m.d.Live--
	}
	return m.Model.Close()
}
