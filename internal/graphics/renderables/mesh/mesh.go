// Package mesh is an indexed triangle mesh component with optional per-vertex
// colors, normals and texture coordinates and one draw range per material.
package mesh

import (
	"errors"
	"fmt"

	"sigma-render/internal/component"
	"sigma-render/internal/gpu"
	"sigma-render/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultShader = "shaders/mesh"

// Group is a contiguous face range drawn with one material.
type Group struct {
	Name     string
	First    int // first face
	Count    int // number of faces
	Material component.Material
}

// Mesh implements component.Renderable.
type Mesh struct {
	component.Base

	Vertices  []component.Vertex
	Faces     []component.Face
	Colors    []component.Color
	Normals   []component.Vertex
	TexCoords []component.TexCoord

	// Groups split Faces by material. With no groups the whole mesh is drawn
	// with Material.
	Groups   []Group
	Material component.Material

	Model mgl32.Mat4

	prepared *arrays
}

// arrays holds flattened attribute data; nil slices mean the slot is unused.
type arrays struct {
	indices   []uint32
	positions []float32
	colors    []float32
	normals   []float32
	texCoords []float32
}

var _ component.Renderable = (*Mesh)(nil)

// New returns an empty mesh.
func New(base component.Base) *Mesh {
	return &Mesh{
		Base:     base,
		Material: component.NewMaterial(),
		Model:    mgl32.Ident4(),
	}
}

// AddGroup appends a material group covering count faces from first.
func (m *Mesh) AddGroup(name string, first, count int, mat component.Material) {
	m.Groups = append(m.Groups, Group{Name: name, First: first, Count: count, Material: mat})
}

// GroupIndex returns the MeshGroupElementCount index of a named group, or
// -1. Group indices start at 1; DefaultGroup is the whole mesh.
func (m *Mesh) GroupIndex(name string) int {
	for i, g := range m.Groups {
		if g.Name == name {
			return i + 1
		}
	}
	return -1
}

// MeshGroupElementCount returns 3 indices per face of the requested group.
func (m *Mesh) MeshGroupElementCount(group int) int {
	if group == component.DefaultGroup {
		return len(m.Faces) * 3
	}
	if group < 1 || group > len(m.Groups) {
		return 0
	}
	return m.Groups[group-1].Count * 3
}

// Validate checks face indices, optional attribute lengths and group ranges.
func (m *Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Faces) == 0 {
		return errors.New("mesh has no geometry")
	}
	n := uint32(len(m.Vertices))
	for i, f := range m.Faces {
		if f.V1 >= n || f.V2 >= n || f.V3 >= n {
			return fmt.Errorf("face %d references vertex outside [0,%d)", i, n)
		}
	}
	attrs := []struct {
		name string
		len  int
	}{
		{"colors", len(m.Colors)},
		{"normals", len(m.Normals)},
		{"texcoords", len(m.TexCoords)},
	}
	for _, a := range attrs {
		if a.len != 0 && a.len != len(m.Vertices) {
			return fmt.Errorf("%d %s for %d vertices", a.len, a.name, len(m.Vertices))
		}
	}
	for _, g := range m.Groups {
		if g.First < 0 || g.Count < 0 || g.First+g.Count > len(m.Faces) {
			return fmt.Errorf("group %q covers faces [%d,%d) of %d", g.Name, g.First, g.First+g.Count, len(m.Faces))
		}
	}
	return nil
}

// ComputeNormals replaces Normals with area-weighted vertex normals.
func (m *Mesh) ComputeNormals() {
	acc := make([]mgl32.Vec3, len(m.Vertices))
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f.V1].Vec3(), m.Vertices[f.V2].Vec3(), m.Vertices[f.V3].Vec3()
		n := b.Sub(a).Cross(c.Sub(a))
		acc[f.V1] = acc[f.V1].Add(n)
		acc[f.V2] = acc[f.V2].Add(n)
		acc[f.V3] = acc[f.V3].Add(n)
	}
	m.Normals = make([]component.Vertex, len(acc))
	for i, n := range acc {
		if n.Len() > 0 {
			n = n.Normalize()
		}
		m.Normals[i] = component.VertexFromVec3(n)
	}
}

// Prepare validates and flattens the mesh without touching the backend.
// It is safe to call from a worker goroutine before InitializeBuffers.
func (m *Mesh) Prepare() error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.prepared = m.flatten()
	return nil
}

// InitializeBuffers uploads the mesh. Only slots with data are populated.
func (m *Mesh) InitializeBuffers() error {
	if m.Ready() {
		return nil
	}
	a := m.prepared
	m.prepared = nil
	if a == nil {
		if err := m.Validate(); err != nil {
			return err
		}
		a = m.flatten()
	}
	if err := m.upload(a); err != nil {
		m.ReleaseBuffers()
		return err
	}
	return nil
}

func (m *Mesh) flatten() *arrays {
	a := &arrays{
		indices:   make([]uint32, 0, len(m.Faces)*3),
		positions: flattenVertices(m.Vertices),
	}
	for _, f := range m.Faces {
		a.indices = append(a.indices, f.V1, f.V2, f.V3)
	}
	if len(m.Colors) > 0 {
		a.colors = make([]float32, 0, len(m.Colors)*3)
		for _, c := range m.Colors {
			a.colors = append(a.colors, c.R, c.G, c.B)
		}
	}
	if len(m.Normals) > 0 {
		a.normals = flattenVertices(m.Normals)
	}
	if len(m.TexCoords) > 0 {
		a.texCoords = make([]float32, 0, len(m.TexCoords)*2)
		for _, uv := range m.TexCoords {
			a.texCoords = append(a.texCoords, uv.U, uv.V)
		}
	}
	return a
}

func (m *Mesh) upload(a *arrays) error {
	backend := m.Backend()

	elem, err := m.AllocateSlot(component.ElemBuf, gpu.ElementBuffer)
	if err != nil {
		return err
	}
	backend.UploadIndices(elem, a.indices)

	attrs := []struct {
		slot component.BufferSlot
		data []float32
	}{
		{component.VertBuf, a.positions},
		{component.ColorBuf, a.colors},
		{component.NormalBuf, a.normals},
		{component.UVBuf, a.texCoords},
	}
	for _, at := range attrs {
		if at.data == nil {
			continue
		}
		h, err := m.AllocateSlot(at.slot, gpu.ArrayBuffer)
		if err != nil {
			return err
		}
		backend.UploadFloats(h, at.data)
	}

	return m.DescribeGeometry(gpu.Triangles)
}

// Render draws every material group, or the whole mesh when there are none.
func (m *Mesh) Render(view, proj mgl32.Mat4) {
	defer profiling.Track("renderer.mesh")()
	p := m.BeginRender(view, proj)
	p.SetMatrix4("model", m.Model)

	if len(m.Groups) == 0 {
		m.Material.Apply(m.Backend(), p)
		m.Draw(m.MeshGroupElementCount(component.DefaultGroup), 0)
		return
	}
	for i := range m.Groups {
		g := &m.Groups[i]
		g.Material.Apply(m.Backend(), p)
		m.Draw(m.MeshGroupElementCount(i+1), g.First*3)
	}
}

func flattenVertices(vs []component.Vertex) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}
