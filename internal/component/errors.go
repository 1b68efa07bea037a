package component

import (
	"errors"
	"fmt"
)

// ErrNoShaderCache is returned by LoadShader on a component built without a cache.
var ErrNoShaderCache = errors.New("component has no shader cache")

// ConfigurationError reports an unrecognized enumerated setting. SetCullFace
// panics with it; ParseCullFace returns it.
type ConfigurationError struct {
	Field string
	Value string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s parameter %q", e.Field, e.Value)
}

// UninitializedStateError is the panic value when a component is drawn
// before InitializeBuffers completed or without a shader.
type UninitializedStateError struct {
	Op     string
	Reason string
}

func (e *UninitializedStateError) Error() string {
	return fmt.Sprintf("%s on uninitialized component: %s", e.Op, e.Reason)
}
