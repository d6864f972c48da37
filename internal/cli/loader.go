package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/tbrun/internal/compiler"
	"github.com/roach88/tbrun/internal/netlist"
	"github.com/roach88/tbrun/internal/scenario"
)

// LoadError represents an error that occurred while loading a design or
// scenario files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadDesign compiles the CUE design at path.
func loadDesign(path string) (*netlist.Circuit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("design file not found: %s", path), Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("design path is a directory: %s", path)}
	}

	c, err := compiler.LoadFile(path)
	if err != nil {
		le := &LoadError{Code: ErrCodeDesignInvalid, Message: err.Error(), Err: err}
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			le.Message = fmt.Sprintf("%s: %s", ce.Field, ce.Message)
			le.Pos = ce.Pos
		}
		return nil, le
	}
	return c, nil
}

// loadScenarios loads every scenario under paths and applies the name filter.
func loadScenarios(paths []string, opts scenario.Options, filter string) ([]*scenario.Scenario, error) {
	all, err := scenario.LoadPaths(paths, opts)
	if err != nil {
		code := ErrCodeScenarioLoad
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return nil, &LoadError{Code: code, Message: err.Error(), Err: err}
	}
	filtered, err := scenario.Filter(all, filter)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}
	return filtered, nil
}

// failLoad reports a loader error and converts it to a command error.
func failLoad(f *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		return f.fail(ExitCommandError, ErrCodeGeneric, "load failed", err)
	}
	msg := le.Message
	if le.Pos.IsValid() {
		msg = fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
	}
	if outErr := f.Error(le.Code, msg, nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, msg, err)
}
