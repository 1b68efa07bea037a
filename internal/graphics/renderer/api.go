package renderer

import (
	"sigma-render/internal/component"
)

// Renderable is the component contract the renderer drives.
type Renderable = component.Renderable

// ViewportAware renderables are told when the framebuffer size changes.
type ViewportAware interface {
	SetViewport(width, height int)
}
