package grove

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a rule references an identifier that
	// has no resolvable type and no factory, or when a virtual identifier is
	// created without an InstanceOf target.
	ErrConfiguration = errors.New("configuration error")

	// ErrConstruction is returned when the introspector cannot locate or
	// build the requested type.
	ErrConstruction = errors.New("construction error")

	// ErrUnresolvableParameter is returned when a constructor parameter has
	// no rule-supplied value, no matching argument, no declared object type,
	// no default and is not nullable. The concrete error is a
	// [*ParameterError].
	ErrUnresolvableParameter = errors.New("unresolvable parameter")

	// ErrCircularDependency is returned when a dependency cycle cannot be
	// closed through a shared instance. The error message includes the full
	// chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrDuplicateProvider is returned when a constructor for the same
	// identifier is registered more than once.
	ErrDuplicateProvider = errors.New("duplicate provider")
)

// ParameterError describes a constructor parameter that could not be
// resolved from any source.
type ParameterError struct {
	Type  string
	Index int
	Name  string
}

func (e *ParameterError) Error() string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("%s: parameter %s of %s", ErrUnresolvableParameter, name, e.Type)
}

// Unwrap makes errors.Is(err, ErrUnresolvableParameter) hold.
func (e *ParameterError) Unwrap() error { return ErrUnresolvableParameter }
