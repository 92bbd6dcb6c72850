package registry

import "errors"

// Standard registry error types.
var (
	// ErrUnknownCapability indicates a trigger or action type identifier has no
	// registered factory.
	ErrUnknownCapability = errors.New("capability not registered")

	// ErrInvalidConfig indicates a capability configuration failed schema validation.
	ErrInvalidConfig = errors.New("invalid capability configuration")
)

// IsUnknownCapability checks if an error indicates an unregistered capability type.
func IsUnknownCapability(err error) bool {
	return errors.Is(err, ErrUnknownCapability)
}
