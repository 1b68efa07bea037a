package crosshair

import (
	"sigma-render/internal/component"
	"sigma-render/internal/gpu"
	"sigma-render/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultShader = "shaders/crosshair"

// Crosshair is a screen-space overlay: two line segments in clip space,
// unlit and never culled.
type Crosshair struct {
	component.Base

	Size        float32
	AspectRatio float32
}

var _ component.Renderable = (*Crosshair)(nil)

// NewCrosshair creates a new crosshair renderable
func NewCrosshair(base component.Base) *Crosshair {
	c := &Crosshair{Base: base, Size: 0.02, AspectRatio: 1}
	c.SetCullFace("none")
	c.SetLightingEnabled(false)
	return c
}

// Vertices returns the two segments for the current size.
func (c *Crosshair) Vertices() []float32 {
	s := c.Size
	return []float32{
		-s, 0, 0,
		s, 0, 0,
		0, -s, 0,
		0, s, 0,
	}
}

// SetViewport keeps the crosshair square on non-square windows.
func (c *Crosshair) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		c.AspectRatio = float32(width) / float32(height)
	}
}

func (c *Crosshair) MeshGroupElementCount(group int) int {
	if group != component.DefaultGroup {
		return 0
	}
	return 4
}

// InitializeBuffers uploads the line vertices; there is no element buffer.
func (c *Crosshair) InitializeBuffers() error {
	if c.Ready() {
		return nil
	}
	vbo, err := c.AllocateSlot(component.VertBuf, gpu.ArrayBuffer)
	if err != nil {
		return err
	}
	c.Backend().UploadFloats(vbo, c.Vertices())
	if err := c.DescribeGeometry(gpu.Lines); err != nil {
		c.ReleaseBuffers()
		return err
	}
	return nil
}

// Render ignores view and projection in the shader; they are still bound so
// every component presents the same uniforms.
func (c *Crosshair) Render(view, proj mgl32.Mat4) {
	defer profiling.Track("renderer.crosshair")()
	p := c.BeginRender(view, proj)
	p.SetFloat("aspectRatio", c.AspectRatio)
	c.Draw(c.MeshGroupElementCount(component.DefaultGroup), 0)
}
