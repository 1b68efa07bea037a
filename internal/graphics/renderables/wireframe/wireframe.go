package wireframe

import (
	"sigma-render/internal/component"
	"sigma-render/internal/gpu"
	"sigma-render/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultShader = "shaders/wireframe"

// boxEdges indexes the 12 edges of a box whose corners are numbered by bit:
// bit 0 selects max X, bit 1 max Y, bit 2 max Z.
var boxEdges = []uint32{
	0, 1, 2, 3, 4, 5, 6, 7, // along X
	0, 2, 1, 3, 4, 6, 5, 7, // along Y
	0, 4, 1, 5, 2, 6, 3, 7, // along Z
}

// Wireframe outlines an axis-aligned box with indexed lines
type Wireframe struct {
	component.Base

	Min, Max mgl32.Vec3
	Color    mgl32.Vec3
	Model    mgl32.Mat4
}

var _ component.Renderable = (*Wireframe)(nil)

// NewWireframe creates a black outline of the box min..max
func NewWireframe(base component.Base, min, max mgl32.Vec3) *Wireframe {
	w := &Wireframe{Base: base, Min: min, Max: max, Model: mgl32.Ident4()}
	w.SetCullFace("none")
	w.SetLightingEnabled(false)
	return w
}

// Bounds returns the axis-aligned bounds of vs, slightly inflated so the
// outline does not z-fight with the surface.
func Bounds(vs []component.Vertex) (mgl32.Vec3, mgl32.Vec3) {
	if len(vs) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	lo, hi := vs[0].Vec3(), vs[0].Vec3()
	for _, v := range vs[1:] {
		for i, c := range v.Vec3() {
			lo[i] = min(lo[i], c)
			hi[i] = max(hi[i], c)
		}
	}
	pad := hi.Sub(lo).Mul(0.005)
	return lo.Sub(pad), hi.Add(pad)
}

// Corners returns the eight box corners in boxEdges order.
func (w *Wireframe) Corners() []float32 {
	out := make([]float32, 0, 8*3)
	for i := range 8 {
		c := w.Min
		if i&1 != 0 {
			c[0] = w.Max[0]
		}
		if i&2 != 0 {
			c[1] = w.Max[1]
		}
		if i&4 != 0 {
			c[2] = w.Max[2]
		}
		out = append(out, c[0], c[1], c[2])
	}
	return out
}

func (w *Wireframe) MeshGroupElementCount(group int) int {
	if group != component.DefaultGroup {
		return 0
	}
	return len(boxEdges)
}

func (w *Wireframe) InitializeBuffers() error {
	if w.Ready() {
		return nil
	}
	if err := w.upload(); err != nil {
		w.ReleaseBuffers()
		return err
	}
	return nil
}

func (w *Wireframe) upload() error {
	elem, err := w.AllocateSlot(component.ElemBuf, gpu.ElementBuffer)
	if err != nil {
		return err
	}
	w.Backend().UploadIndices(elem, boxEdges)

	vbo, err := w.AllocateSlot(component.VertBuf, gpu.ArrayBuffer)
	if err != nil {
		return err
	}
	w.Backend().UploadFloats(vbo, w.Corners())
	return w.DescribeGeometry(gpu.Lines)
}

// Render draws the outline in Color
func (w *Wireframe) Render(view, proj mgl32.Mat4) {
	defer profiling.Track("renderer.wireframe")()
	p := w.BeginRender(view, proj)
	p.SetMatrix4("model", w.Model)
	p.SetVector3("color", w.Color.X(), w.Color.Y(), w.Color.Z())
	w.Draw(w.MeshGroupElementCount(component.DefaultGroup), 0)
}
