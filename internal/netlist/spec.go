package netlist

import "strconv"

// Spec is the declarative form of a circuit.
type Spec struct {
	Name  string     `json:"name"`
	Ports []PortSpec `json:"ports"`
	Wires []WireSpec `json:"wires,omitempty"`
	Parts []PartSpec `json:"parts,omitempty"`
}

// PortSpec declares an input or output port.
type PortSpec struct {
	Name  string `json:"name"`
	Dir   string `json:"dir"` // "in" or "out"
	Width int    `json:"width"`
}

// WireSpec declares an internal net.
type WireSpec struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

// PartSpec connects a part to nets by name. Which fields apply depends on
// Type:
//
//	and, or, xor, nand, nor, xnor   a, b -> out
//	not                             in -> out
//	mux                             a, b, sel -> out (sel=0 selects a)
//	add                             a, b -> out, optional cout
//	const                           value -> out
//	dff                             d, clk, optional en and rst -> q
type PartSpec struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	A     string `json:"a,omitempty"`
	B     string `json:"b,omitempty"`
	In    string `json:"in,omitempty"`
	Sel   string `json:"sel,omitempty"`
	D     string `json:"d,omitempty"`
	Clk   string `json:"clk,omitempty"`
	En    string `json:"en,omitempty"`
	Rst   string `json:"rst,omitempty"`
	Value uint64 `json:"value,omitempty"`
	Out   string `json:"out,omitempty"`
	Cout  string `json:"cout,omitempty"`
	Q     string `json:"q,omitempty"`
}

// Label names the part in error messages.
func (p *PartSpec) Label(i int) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Type + "#" + strconv.Itoa(i)
}
