// Package netlist is a small gate and register level simulation backend.
//
// A circuit is a set of named nets (input ports, output ports and internal
// wires), each up to 64 bits wide, connected by parts. Combinational parts
// are re-evaluated until every net is stable. Registers (dff) sample their
// d input on the rising edge of their clock net, as seen between two
// successive calls to Evaluate; the clock starts low.
//
// Circuits are normally built from CUE design files by package compiler.
// A *Circuit implements sim.Design, and every instance it creates carries its
// own net values and register state.
package netlist
