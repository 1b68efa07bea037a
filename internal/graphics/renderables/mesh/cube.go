package mesh

import (
	"sigma-render/internal/component"
)

// cubeFaces lists the four corners of each face (CCW seen from outside),
// its normal and its color.
var cubeFaces = []struct {
	corners [4][3]float32
	normal  [3]float32
	color   component.Color
}{
	{[4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}, [3]float32{0, 0, 1}, component.Color{R: 0.9, G: 0.3, B: 0.3}},
	{[4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}, [3]float32{0, 0, -1}, component.Color{R: 0.3, G: 0.9, B: 0.3}},
	{[4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}, [3]float32{1, 0, 0}, component.Color{R: 0.3, G: 0.3, B: 0.9}},
	{[4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}, [3]float32{-1, 0, 0}, component.Color{R: 0.9, G: 0.9, B: 0.3}},
	{[4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}, [3]float32{0, 1, 0}, component.Color{R: 0.3, G: 0.9, B: 0.9}},
	{[4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}, [3]float32{0, -1, 0}, component.Color{R: 0.9, G: 0.3, B: 0.9}},
}

// NewCube returns an axis-aligned cube with edge length size, flat normals,
// one color per side and a 0..1 UV square on each side.
func NewCube(base component.Base, size float32) *Mesh {
	m := New(base)
	h := size / 2
	uvs := [4]component.TexCoord{{U: 0, V: 0}, {U: 1, V: 0}, {U: 1, V: 1}, {U: 0, V: 1}}
	for _, f := range cubeFaces {
		first := uint32(len(m.Vertices))
		for i, c := range f.corners {
			m.Vertices = append(m.Vertices, component.Vertex{X: c[0] * h, Y: c[1] * h, Z: c[2] * h})
			m.Normals = append(m.Normals, component.Vertex{X: f.normal[0], Y: f.normal[1], Z: f.normal[2]})
			m.Colors = append(m.Colors, f.color)
			m.TexCoords = append(m.TexCoords, uvs[i])
		}
		m.Faces = append(m.Faces,
			component.Face{V1: first, V2: first + 1, V3: first + 2},
			component.Face{V1: first + 2, V2: first + 3, V3: first},
		)
	}
	return m
}
