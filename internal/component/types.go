package component

import (
	"fmt"

	"sigma-render/internal/gpu"
	"sigma-render/internal/graphics"

	"github.com/go-gl/mathgl/mgl32"
)

// Face stores which vertex each corner of a triangle uses.
type Face struct {
	V1, V2, V3 uint32
}

// Vertex is a position.
type Vertex struct {
	X, Y, Z float32
}

func VertexFromVec3(v mgl32.Vec3) Vertex { return Vertex{v[0], v[1], v[2]} }

func (v Vertex) Vec3() mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }

// Color is a per-vertex RGB color.
type Color struct {
	R, G, B float32
}

// TexCoord is a 1D or 2D texture coordinate; V is zero for 1D.
type TexCoord struct {
	U, V float32
}

// Texture units material maps bind to.
const (
	AmbientMapUnit uint32 = iota
	DiffuseMapUnit
	SpecularMapUnit
	NormalMapUnit
)

// Material holds the shading parameters of one surface, in the Wavefront
// .mtl sense. Use NewMaterial for the defaults; the zero value is black.
type Material struct {
	Ka       [3]float32
	Kd       [3]float32
	Ks       [3]float32
	Tr       float32 // aka d
	Hardness float32
	Illum    int

	AmbientMap  gpu.TextureHandle
	DiffuseMap  gpu.TextureHandle
	SpecularMap gpu.TextureHandle
	NormalMap   gpu.TextureHandle
}

// NewMaterial returns a white, opaque material with hardness 64,
// illumination model 1 and no texture maps.
func NewMaterial() Material {
	return Material{
		Ka:       [3]float32{1, 1, 1},
		Kd:       [3]float32{1, 1, 1},
		Ks:       [3]float32{1, 1, 1},
		Tr:       1,
		Hardness: 64,
		Illum:    1,
	}
}

// MaterialMaps names the image files of a material's texture maps. Empty
// names leave the map unset.
type MaterialMaps struct {
	Ambient  string `yaml:"ambient"`
	Diffuse  string `yaml:"diffuse"`
	Specular string `yaml:"specular"`
	Normal   string `yaml:"normal"`
}

// LoadMaps resolves map file names through the texture cache.
func (m *Material) LoadMaps(textures *graphics.TextureCache, maps MaterialMaps) error {
	targets := []struct {
		path string
		dst  *gpu.TextureHandle
	}{
		{maps.Ambient, &m.AmbientMap},
		{maps.Diffuse, &m.DiffuseMap},
		{maps.Specular, &m.SpecularMap},
		{maps.Normal, &m.NormalMap},
	}
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		h, err := textures.Get(t.path)
		if err != nil {
			return fmt.Errorf("material map: %w", err)
		}
		*t.dst = h
	}
	return nil
}

// Apply uploads the material to p and binds its maps.
func (m *Material) Apply(backend gpu.Backend, p *graphics.Program) {
	p.SetVector3("material.ka", m.Ka[0], m.Ka[1], m.Ka[2])
	p.SetVector3("material.kd", m.Kd[0], m.Kd[1], m.Kd[2])
	p.SetVector3("material.ks", m.Ks[0], m.Ks[1], m.Ks[2])
	p.SetFloat("material.tr", m.Tr)
	p.SetFloat("material.hardness", m.Hardness)
	p.SetInt("material.illum", int32(m.Illum))

	maps := []struct {
		unit    uint32
		tex     gpu.TextureHandle
		sampler string
		flag    string
	}{
		{AmbientMapUnit, m.AmbientMap, "ambientMap", "hasAmbientMap"},
		{DiffuseMapUnit, m.DiffuseMap, "diffuseMap", "hasDiffuseMap"},
		{SpecularMapUnit, m.SpecularMap, "specularMap", "hasSpecularMap"},
		{NormalMapUnit, m.NormalMap, "normalMap", "hasNormalMap"},
	}
	for _, mp := range maps {
		p.SetBool(mp.flag, mp.tex != gpu.NoTexture)
		if mp.tex == gpu.NoTexture {
			continue
		}
		backend.BindTexture(mp.unit, mp.tex)
		p.SetInt(mp.sampler, int32(mp.unit))
	}
}
