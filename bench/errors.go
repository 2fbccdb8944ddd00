package bench

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("benchmark configuration error")

	// ErrUnknownOperation is returned when a unit has no operation with
	// the requested name.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnknownUnit is returned when a registry has no unit with the
	// requested name.
	ErrUnknownUnit = errors.New("unknown benchmark unit")

	// ErrBinding is returned when a binding does not match the unit's
	// declared parameters.
	ErrBinding = errors.New("invalid parameter binding")
)

// ConfigurationError reports an invalid declaration. It is raised at
// declaration or registration time, never while an operation runs.
type ConfigurationError struct {
	Unit   string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("benchmark %s: %s", e.Unit, e.Reason)
	}

	return fmt.Sprintf("benchmark %s: invalid %s: %s", e.Unit, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold for any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(unit, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Unit:   unit,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
