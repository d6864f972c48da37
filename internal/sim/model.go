package sim

import (
	"errors"

	"github.com/roach88/tbrun/internal/ports"
)

// ErrClosed is returned when a closed model instance is used.
var ErrClosed = errors.New("model instance is closed")

// Model is one live instance of a simulated circuit with its own state.
type Model interface {
	// Evaluate propagates the current inputs through the model and settles
	// its outputs. For clocked models this applies the effect of any clock
	// edge present in the inputs.
	Evaluate() error

	// Close releases the instance. Cells resolved from it must not be used
	// afterwards.
	Close() error
}

// Cell is a readable and writable storage location inside a model instance.
// Values are not masked by the cell; callers mask to the port width.
type Cell interface {
	Load() uint64
	Store(v uint64)
}

// Extractor resolves a storage location inside a specific model instance.
type Extractor func(m Model) (Cell, error)

// Layout maps port names to extractors. It is the declarative replacement for
// per-model name comparisons: a name without an entry is unbound.
type Layout map[string]Extractor

// Design is the blueprint of a simulated circuit.
type Design interface {
	// Name identifies the design in reports.
	Name() string

	// Ports returns the port declarations in order.
	Ports() []ports.PortInfo

	// Layout returns the name to storage resolution rules.
	Layout() Layout

	// New creates a fresh instance in its initial state.
	New() (Model, error)
}
