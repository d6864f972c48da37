// Package compiler turns CUE design files into netlist circuits.
//
// A design file holds one top-level "design" struct:
//
//	design: {
//		name: "latch"
//		ports: [
//			{name: "clk", dir: "in"},
//			{name: "d", dir: "in"},
//			{name: "q", dir: "out"},
//		]
//		parts: [
//			{type: "dff", d: "d", clk: "clk", q: "q"},
//		]
//	}
//
// Widths default to 1. The file is unified with a closed schema before it is
// decoded, so unknown fields and out-of-range widths are reported with their
// CUE position.
package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tbrun/internal/netlist"
)

// CompileError is a design compilation error with an optional CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}

// CompileDesign decodes the design struct v into a netlist spec.
func CompileDesign(v cue.Value) (*netlist.Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{Field: "design", Message: "design is required"}
	}

	schema := v.Context().CompileString(designSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("design schema: %w", err)
	}
	u := schema.LookupPath(cue.ParsePath("#Design")).Unify(v)
	if err := u.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	var spec netlist.Spec
	if err := u.Decode(&spec); err != nil {
		return nil, formatCUEError(err)
	}
	if len(spec.Ports) == 0 {
		return nil, &CompileError{Field: "ports", Message: "at least one port is required", Pos: v.Pos()}
	}
	return &spec, nil
}

// Compile compiles CUE source and builds the circuit.
func Compile(src []byte, filename string) (*netlist.Circuit, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	dv := v.LookupPath(cue.ParsePath("design"))
	if !dv.Exists() {
		return nil, &CompileError{Field: "design", Message: "no top-level design struct", Pos: v.Pos()}
	}
	spec, err := CompileDesign(dv)
	if err != nil {
		return nil, err
	}

	c, err := netlist.Build(spec)
	if err != nil {
		return nil, &CompileError{Field: "design", Message: err.Error(), Pos: dv.Pos()}
	}
	return c, nil
}

// LoadFile reads and compiles a design file.
func LoadFile(path string) (*netlist.Circuit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read design file: %w", err)
	}
	return Compile(src, path)
}
