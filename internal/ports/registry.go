package ports

import (
	"errors"
	"fmt"
)

// MaxWidth is the widest signal whose value fits in a uint64. Wider ports are
// still registered; they only lack a storage binding.
const MaxWidth = 64

// PortInfo describes one declared signal of a model.
type PortInfo struct {
	Name    string `json:"name"`
	Width   int    `json:"width"`
	IsInput bool   `json:"is_input"`
}

// Direction returns "in" or "out".
func (p PortInfo) Direction() string {
	if p.IsInput {
		return "in"
	}
	return "out"
}

// Wide reports whether the port is too wide to be read or written as a
// uint64.
func (p PortInfo) Wide() bool { return p.Width > MaxWidth }

// ErrorCode categorizes registry construction errors.
type ErrorCode string

const (
	// ErrCodeDuplicatePort indicates two signals declared with the same name.
	ErrCodeDuplicatePort ErrorCode = "DUPLICATE_PORT"

	// ErrCodeInvalidWidth indicates a width below 1.
	ErrCodeInvalidWidth ErrorCode = "INVALID_WIDTH"

	// ErrCodeInvalidName indicates an empty port name.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"
)

// Error is returned by NewRegistry.
type Error struct {
	Code    ErrorCode
	Port    string
	Message string
}

func (e *Error) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s: %s (port=%s)", e.Code, e.Message, e.Port)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDuplicatePort reports whether err is a duplicate port declaration.
func IsDuplicatePort(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeDuplicatePort
	}
	return false
}

// Registry is the ordered, immutable set of ports of one design.
type Registry struct {
	ports []PortInfo
	index map[string]int
}

// NewRegistry builds a registry from port declarations.
// Declaration order is preserved. Names must be unique across inputs and
// outputs.
func NewRegistry(decls []PortInfo) (*Registry, error) {
	r := &Registry{
		ports: make([]PortInfo, 0, len(decls)),
		index: make(map[string]int, len(decls)),
	}
	for i, d := range decls {
		if d.Name == "" {
			return nil, &Error{Code: ErrCodeInvalidName, Message: fmt.Sprintf("port %d has an empty name", i)}
		}
		if d.Width < 1 {
			return nil, &Error{
				Code:    ErrCodeInvalidWidth,
				Port:    d.Name,
				Message: fmt.Sprintf("width %d must be at least 1", d.Width),
			}
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, &Error{Code: ErrCodeDuplicatePort, Port: d.Name, Message: "port declared more than once"}
		}
		r.index[d.Name] = len(r.ports)
		r.ports = append(r.ports, d)
	}
	return r, nil
}

// Ports returns all ports in declaration order.
func (r *Registry) Ports() []PortInfo {
	out := make([]PortInfo, len(r.ports))
	copy(out, r.ports)
	return out
}

// Inputs returns the input ports in declaration order.
func (r *Registry) Inputs() []PortInfo {
	return r.filter(true)
}

// Outputs returns the output ports in declaration order.
func (r *Registry) Outputs() []PortInfo {
	return r.filter(false)
}

func (r *Registry) filter(in bool) []PortInfo {
	var out []PortInfo
	for _, p := range r.ports {
		if p.IsInput == in {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the port with the given name.
func (r *Registry) Lookup(name string) (PortInfo, bool) {
	i, ok := r.index[name]
	if !ok {
		return PortInfo{}, false
	}
	return r.ports[i], true
}

// Len returns the number of ports.
func (r *Registry) Len() int { return len(r.ports) }
