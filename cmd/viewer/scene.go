package main

import (
	"errors"
	"fmt"

	"sigma-render/internal/component"
	"sigma-render/internal/config"
	"sigma-render/internal/gpu"
	"sigma-render/internal/graphics"
	"sigma-render/internal/graphics/renderables/crosshair"
	"sigma-render/internal/graphics/renderables/label"
	"sigma-render/internal/graphics/renderables/mesh"
	"sigma-render/internal/graphics/renderables/terrain"
	"sigma-render/internal/graphics/renderables/wireframe"
	"sigma-render/internal/logging"

	"github.com/go-gl/mathgl/mgl32"
)

const defaultLabelPixels = 16

var errNoTextures = errors.New("material maps need assets.texture_root")

// sceneBuilder turns scene entries into renderables. Font atlases are
// shared between labels of the same pixel size.
type sceneBuilder struct {
	backend  gpu.Backend
	shaders  *graphics.Cache
	textures *graphics.TextureCache

	atlases map[float32]*graphics.FontAtlas
	cubes   map[string]*mesh.Mesh
	next    component.EntityID
}

func newSceneBuilder(backend gpu.Backend, shaders *graphics.Cache, textures *graphics.TextureCache) *sceneBuilder {
	return &sceneBuilder{
		backend:  backend,
		shaders:  shaders,
		textures: textures,
		atlases:  make(map[float32]*graphics.FontAtlas),
		cubes:    make(map[string]*mesh.Mesh),
	}
}

// buildScene creates one renderable per scene entry, in order, with its
// shader loaded, followed by the stats label when window.stats is set.
// Buffers are not initialized.
func buildScene(cfg config.Config, backend gpu.Backend, shaders *graphics.Cache, textures *graphics.TextureCache) ([]component.Renderable, *label.Label, error) {
	b := newSceneBuilder(backend, shaders, textures)
	rs, err := b.build(cfg.Scene)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Window.Stats {
		return rs, nil, nil
	}
	stats, err := b.statsLabel()
	if err != nil {
		return nil, nil, err
	}
	return append(rs, stats), stats, nil
}

func (b *sceneBuilder) build(scene []config.ComponentConfig) ([]component.Renderable, error) {
	out := make([]component.Renderable, 0, len(scene))
	for i, sc := range scene {
		r, err := b.add(sc)
		if err != nil {
			return nil, fmt.Errorf("scene[%d] %s: %w", i, sc.Kind, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *sceneBuilder) add(sc config.ComponentConfig) (component.Renderable, error) {
	base := component.NewBaseForEntity(b.next, b.backend, b.shaders)
	b.next++

	r, shader, err := b.newRenderable(sc, base)
	if err != nil {
		return nil, err
	}
	if sc.Shader != "" {
		shader = sc.Shader
	}
	if sc.Cull != "" {
		r.SetCullFace(sc.Cull)
	}
	r.SetLightingEnabled(sc.LightingOr(r.IsLightingEnabled()))
	if err := r.LoadShader(shader); err != nil {
		return nil, err
	}
	logging.Logger().Debug("scene component", "entity", base.EntityID(), "name", sc.Name, "kind", sc.Kind, "shader", shader)
	return r, nil
}

func (b *sceneBuilder) newRenderable(sc config.ComponentConfig, base component.Base) (component.Renderable, string, error) {
	model := mgl32.Translate3D(sc.Position[0], sc.Position[1], sc.Position[2])
	color := mgl32.Vec3(sc.Color)
	switch sc.Kind {
	case config.KindCube:
		m := mesh.NewCube(base, sizeOr(sc.Size, 1))
		m.Model = model
		if sc.Maps != (component.MaterialMaps{}) {
			if b.textures == nil {
				return nil, "", errNoTextures
			}
			if err := m.Material.LoadMaps(b.textures, sc.Maps); err != nil {
				return nil, "", err
			}
		}
		if sc.Name != "" {
			b.cubes[sc.Name] = m
		}
		return m, mesh.DefaultShader, nil

	case config.KindTerrain:
		t := terrain.New(base, sc.Width, sc.Depth, sizeOr(sc.Spacing, 1), terrain.Hills(sc.Width, sc.Depth, sc.Amplitude))
		t.Model = model
		return t, terrain.DefaultShader, nil

	case config.KindCrosshair:
		c := crosshair.NewCrosshair(base)
		if sc.Size > 0 {
			c.Size = sc.Size
		}
		return c, crosshair.DefaultShader, nil

	case config.KindWireframe:
		var w *wireframe.Wireframe
		if sc.Outline != "" {
			target, ok := b.cubes[sc.Outline]
			if !ok {
				return nil, "", fmt.Errorf("outline: no cube named %q", sc.Outline)
			}
			lo, hi := wireframe.Bounds(target.Vertices)
			w = wireframe.NewWireframe(base, lo, hi)
			w.Model = target.Model
		} else {
			h := sizeOr(sc.Size, 1) / 2
			w = wireframe.NewWireframe(base, mgl32.Vec3{-h, -h, -h}, mgl32.Vec3{h, h, h})
			w.Model = model
		}
		w.Color = color
		return w, wireframe.DefaultShader, nil

	case config.KindLabel:
		atlas, err := b.atlas(sizeOr(sc.Size, defaultLabelPixels))
		if err != nil {
			return nil, "", err
		}
		l := label.New(base, atlas, sc.Text)
		if sc.Position != ([3]float32{}) {
			l.X, l.Y = sc.Position[0], sc.Position[1]
		}
		if sc.Color != ([3]float32{}) {
			l.Color = color
		}
		return l, label.DefaultShader, nil
	}
	return nil, "", &component.ConfigurationError{Field: "kind", Value: sc.Kind}
}

// atlas bakes printable ASCII at the given pixel size once per builder.
func (b *sceneBuilder) atlas(pixels float32) (*graphics.FontAtlas, error) {
	if a, ok := b.atlases[pixels]; ok {
		return a, nil
	}
	face, err := graphics.NewGoFontFace(float64(pixels))
	if err != nil {
		return nil, err
	}
	defer face.Close()
	a, err := graphics.BuildFontAtlas(face, ' ', '~', 512)
	if err != nil {
		return nil, err
	}
	b.atlases[pixels] = a
	return a, nil
}

// statsLabel is the frame statistics overlay added when window.stats is set.
func (b *sceneBuilder) statsLabel() (*label.Label, error) {
	r, err := b.add(config.ComponentConfig{Kind: config.KindLabel, Name: "stats", Color: [3]float32{1, 1, 0}})
	if err != nil {
		return nil, fmt.Errorf("stats label: %w", err)
	}
	return r.(*label.Label), nil
}

func sizeOr(v, def float32) float32 {
	if v == 0 {
		return def
	}
	return v
}
