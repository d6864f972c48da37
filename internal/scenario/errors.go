package scenario

import (
	"errors"
	"fmt"
)

// LoadError reports a scenario file that could not be read or parsed.
// It is fatal to the whole run.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("scenario file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError returns true if err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
