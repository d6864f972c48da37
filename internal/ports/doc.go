// Package ports describes the named input and output signals of a simulated
// circuit.
//
// A Registry is built once per design from its port declarations and is
// read-only afterwards. It does not depend on any live model instance; the
// signal package resolves registry entries against a concrete instance.
//
// Port metadata usually comes from the design itself (see sim.Design), but
// ParseHeader can also recover it from a Verilator-generated model header:
//
//	f, _ := os.Open("obj_dir/Vtop.h")
//	decls, err := ports.ParseHeader(f)
//	reg, err := ports.NewRegistry(decls)
package ports
