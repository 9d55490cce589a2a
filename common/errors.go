package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError reports a configuration value rejected at construction.
// Values are never silently clamped into range.
type ConfigError struct {
	Name    string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Name, e.Value, e.Message)
}

// NewConfigError returns a ConfigError carrying a stack trace.
func NewConfigError(name string, value interface{}, message string) error {
	return errors.WithStack(&ConfigError{
		Name:    name,
		Value:   value,
		Message: message,
	})
}

// IsConfigError reports whether the cause of err is a ConfigError.
func IsConfigError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigError)
	return ok
}

// CheckUnitInterval returns a ConfigError unless 0 <= v < 1.
func CheckUnitInterval(name string, v float64) error {
	if !(v >= 0 && v < 1) {
		return NewConfigError(name, v, "outside allowed range [0, 1)")
	}
	return nil
}
