// Package terrain draws a regular height field as triangle strips.
package terrain

import (
	"fmt"
	"math"

	"sigma-render/internal/component"
	"sigma-render/internal/gpu"
	"sigma-render/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultShader = "shaders/terrain"

// Terrain is a Width x Depth grid of heights, centered on the origin.
type Terrain struct {
	component.Base

	Width   int
	Depth   int
	Spacing float32
	Heights []float32 // row-major, Depth rows of Width samples

	Model mgl32.Mat4

	prepared *geometry
}

// geometry is the CPU-side vertex data, built off the render thread by
// Prepare and consumed by InitializeBuffers.
type geometry struct {
	positions []float32
	normals   []float32
	colors    []float32
	indices   []uint32
}

var _ component.Renderable = (*Terrain)(nil)

// New returns a terrain over the given heights.
func New(base component.Base, width, depth int, spacing float32, heights []float32) *Terrain {
	return &Terrain{
		Base:    base,
		Width:   width,
		Depth:   depth,
		Spacing: spacing,
		Heights: heights,
		Model:   mgl32.Ident4(),
	}
}

// Hills builds a deterministic rolling height field.
func Hills(width, depth int, amplitude float32) []float32 {
	h := make([]float32, width*depth)
	for z := 0; z < depth; z++ {
		for x := 0; x < width; x++ {
			fx, fz := float64(x)/float64(width), float64(z)/float64(depth)
			v := math.Sin(fx*2*math.Pi)*math.Cos(fz*3*math.Pi) + 0.5*math.Sin((fx+fz)*5*math.Pi)
			h[z*width+x] = amplitude * float32(v)
		}
	}
	return h
}

// StripIndexCount is the number of indices a width x depth grid needs when
// drawn as one strip with degenerate joins between rows.
func StripIndexCount(width, depth int) int {
	if width < 2 || depth < 2 {
		return 0
	}
	rows := depth - 1
	return rows*2*width + (rows-1)*2
}

// StripIndices builds the strip: each row pair zig-zags left to right, and
// two repeated indices join consecutive rows without visible triangles.
func StripIndices(width, depth int) []uint32 {
	out := make([]uint32, 0, StripIndexCount(width, depth))
	for z := 0; z < depth-1; z++ {
		for x := 0; x < width; x++ {
			out = append(out, uint32(z*width+x), uint32((z+1)*width+x))
		}
		if z < depth-2 {
			out = append(out, uint32((z+1)*width+width-1), uint32((z+1)*width))
		}
	}
	return out
}

// HeightAt returns the sample at grid coordinates, clamped to the edges.
func (t *Terrain) HeightAt(x, z int) float32 {
	x = min(max(x, 0), t.Width-1)
	z = min(max(z, 0), t.Depth-1)
	return t.Heights[z*t.Width+x]
}

// MeshGroupElementCount is the strip length; terrain has a single group.
func (t *Terrain) MeshGroupElementCount(group int) int {
	if group != component.DefaultGroup {
		return 0
	}
	return StripIndexCount(t.Width, t.Depth)
}

func (t *Terrain) validate() error {
	if t.Width < 2 || t.Depth < 2 {
		return fmt.Errorf("terrain needs at least 2x2 samples, got %dx%d", t.Width, t.Depth)
	}
	if len(t.Heights) != t.Width*t.Depth {
		return fmt.Errorf("terrain has %d heights for %dx%d samples", len(t.Heights), t.Width, t.Depth)
	}
	return nil
}

// Prepare builds the vertex data without touching the backend, so it may
// run on a worker goroutine. InitializeBuffers uses the result.
func (t *Terrain) Prepare() error {
	if err := t.validate(); err != nil {
		return err
	}
	t.prepared = t.build()
	return nil
}

// InitializeBuffers uploads positions, normals, height colors and the strip.
func (t *Terrain) InitializeBuffers() error {
	if t.Ready() {
		return nil
	}
	geo := t.prepared
	t.prepared = nil
	if geo == nil {
		if err := t.validate(); err != nil {
			return err
		}
		geo = t.build()
	}
	if err := t.upload(geo); err != nil {
		t.ReleaseBuffers()
		return err
	}
	return nil
}

func (t *Terrain) build() *geometry {
	n := t.Width * t.Depth
	geo := &geometry{
		positions: make([]float32, 0, n*3),
		normals:   make([]float32, 0, n*3),
		colors:    make([]float32, 0, n*3),
		indices:   StripIndices(t.Width, t.Depth),
	}

	lo, hi := t.Heights[0], t.Heights[0]
	for _, h := range t.Heights {
		lo, hi = min(lo, h), max(hi, h)
	}

	ox := float32(t.Width-1) * t.Spacing / 2
	oz := float32(t.Depth-1) * t.Spacing / 2
	for z := 0; z < t.Depth; z++ {
		for x := 0; x < t.Width; x++ {
			h := t.HeightAt(x, z)
			geo.positions = append(geo.positions, float32(x)*t.Spacing-ox, h, float32(z)*t.Spacing-oz)

			// Central differences; edges fall back to one-sided via clamping.
			dx := t.HeightAt(x+1, z) - t.HeightAt(x-1, z)
			dz := t.HeightAt(x, z+1) - t.HeightAt(x, z-1)
			nrm := mgl32.Vec3{-dx, 2 * t.Spacing, -dz}.Normalize()
			geo.normals = append(geo.normals, nrm[0], nrm[1], nrm[2])

			c := heightColor(h, lo, hi)
			geo.colors = append(geo.colors, c.R, c.G, c.B)
		}
	}
	return geo
}

func (t *Terrain) upload(geo *geometry) error {
	backend := t.Backend()

	elem, err := t.AllocateSlot(component.ElemBuf, gpu.ElementBuffer)
	if err != nil {
		return err
	}
	backend.UploadIndices(elem, geo.indices)

	uploads := []struct {
		slot component.BufferSlot
		data []float32
	}{
		{component.VertBuf, geo.positions},
		{component.NormalBuf, geo.normals},
		{component.ColorBuf, geo.colors},
	}
	for _, u := range uploads {
		h, err := t.AllocateSlot(u.slot, gpu.ArrayBuffer)
		if err != nil {
			return err
		}
		backend.UploadFloats(h, u.data)
	}
	return t.DescribeGeometry(gpu.TriangleStrip)
}

// heightColor blends grass, rock and snow by normalized height.
func heightColor(h, lo, hi float32) component.Color {
	grass := mgl32.Vec3{0.25, 0.55, 0.2}
	rock := mgl32.Vec3{0.5, 0.42, 0.35}
	snow := mgl32.Vec3{0.95, 0.95, 0.97}
	f := float32(0.5)
	if hi > lo {
		f = (h - lo) / (hi - lo)
	}
	var c mgl32.Vec3
	if f < 0.6 {
		c = grass.Add(rock.Sub(grass).Mul(f / 0.6))
	} else {
		c = rock.Add(snow.Sub(rock).Mul((f - 0.6) / 0.4))
	}
	return component.Color{R: c[0], G: c[1], B: c[2]}
}

// Render draws the whole strip.
func (t *Terrain) Render(view, proj mgl32.Mat4) {
	defer profiling.Track("renderer.terrain")()
	p := t.BeginRender(view, proj)
	p.SetMatrix4("model", t.Model)
	t.Draw(t.MeshGroupElementCount(component.DefaultGroup), 0)
}
