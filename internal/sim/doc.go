// Package sim defines how the testbench core talks to a simulated circuit.
//
// A Design is a blueprint: it declares its ports, provides a Layout that
// resolves each port name to a storage Cell inside a live instance, and
// creates fresh Model instances. The core only ever calls Model.Evaluate and
// reads or writes cells; what evaluation means is up to the backend.
//
// Two backends ship with this repository: struct models (this package), where
// a tagged Go struct with an Eval method is the circuit, and CUE-described
// netlists (package netlist).
//
// # Struct models
//
// Ports are struct fields tagged `sim:"in"` or `sim:"out"`. The port name
// defaults to the lowercased field name and can be forced with a second tag
// item. The width defaults to the field size and can be narrowed with
// width=N:
//
//	type Latch struct {
//		Clk  bool  `sim:"in"`
//		D    bool  `sim:"in"`
//		Q    bool  `sim:"out"`
//		Sum  uint8 `sim:"out,sum,width=3"`
//		prev bool
//	}
//
//	func (l *Latch) Eval() {
//		if l.Clk && !l.prev {
//			l.Q = l.D
//		}
//		l.prev = l.Clk
//	}
//
//	design, err := sim.NewStructDesign("latch", func() sim.Evaluator { return &Latch{} })
package sim
