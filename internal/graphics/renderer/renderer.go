package renderer

import (
	"context"
	"fmt"
	"runtime"

	"sigma-render/internal/gpu"
	"sigma-render/internal/graphics"
	"sigma-render/internal/logging"
	"sigma-render/internal/meshing"
	"sigma-render/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// Renderer owns the draw order of a set of components. Render submits one
// Render call per Ready component, in the order they were added.
type Renderer struct {
	backend     gpu.Backend
	renderables []Renderable
	camera      *graphics.Camera

	ClearColor [4]float32
}

// NewRenderer creates a new renderer with the given renderables
func NewRenderer(backend gpu.Backend, camera *graphics.Camera, rs ...Renderable) *Renderer {
	return &Renderer{
		backend:     backend,
		renderables: rs,
		camera:      camera,
		ClearColor:  [4]float32{0.53, 0.81, 0.92, 1.0},
	}
}

// Add appends a renderable after the existing ones.
func (r *Renderer) Add(rs ...Renderable) {
	r.renderables = append(r.renderables, rs...)
}

// Renderables returns the components in submission order.
func (r *Renderer) Renderables() []Renderable {
	return r.renderables
}

// Init prepares CPU-side geometry on worker goroutines, then initializes
// every renderable's buffers on the calling thread. The first upload failure
// stops initialization; components already initialized stay Ready.
func (r *Renderer) Init(ctx context.Context) error {
	var prep []meshing.Preparer
	for _, c := range r.renderables {
		if p, ok := c.(meshing.Preparer); ok && !c.Ready() {
			prep = append(prep, p)
		}
	}
	if err := meshing.PrepareAll(ctx, runtime.NumCPU(), prep); err != nil {
		return fmt.Errorf("prepare geometry: %w", err)
	}

	for i, c := range r.renderables {
		if err := c.InitializeBuffers(); err != nil {
			return fmt.Errorf("initialize component %d: %w", i, err)
		}
		logging.Logger().Debug("component initialized", "index", i, "mode", c.DrawMode(), "vao", c.Vao())
	}
	return nil
}

// Render clears the frame and draws with the camera's matrices.
func (r *Renderer) Render() {
	defer profiling.Track("renderer.Render")()
	c := r.ClearColor
	r.backend.Clear(c[0], c[1], c[2], c[3])
	r.RenderWith(r.camera.GetViewMatrix(), r.camera.GetProjectionMatrix())
}

// RenderWith draws every Ready component with the given matrices. Components
// that are not Ready are skipped.
func (r *Renderer) RenderWith(view, proj mgl32.Mat4) {
	for i, c := range r.renderables {
		if !c.Ready() {
			logging.Logger().Debug("skipping uninitialized component", "index", i)
			continue
		}
		c.Render(view, proj)
	}
}

// Dispose cleans up all renderables in reverse order
func (r *Renderer) Dispose() {
	for i := len(r.renderables) - 1; i >= 0; i-- {
		r.renderables[i].Dispose()
	}
}

// GetCamera returns the camera instance
func (r *Renderer) GetCamera() *graphics.Camera {
	return r.camera
}

// UpdateViewport updates the camera and any viewport-aware renderables.
func (r *Renderer) UpdateViewport(width, height int) {
	r.camera.SetViewport(width, height)
	for _, c := range r.renderables {
		if v, ok := c.(ViewportAware); ok {
			v.SetViewport(width, height)
		}
	}
}
