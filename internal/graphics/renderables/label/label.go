// Package label draws a line of screen-space text from a baked font atlas.
package label

import (
	"sigma-render/internal/component"
	"sigma-render/internal/gpu"
	"sigma-render/internal/graphics"
	"sigma-render/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultShader = "shaders/label"

// Label is text positioned in window pixels, origin top-left, X/Y naming
// the baseline start. It is unlit and never culled.
type Label struct {
	component.Base

	atlas   *graphics.FontAtlas
	texture gpu.TextureHandle
	text    string
	indices int

	X, Y   float32
	Scale  float32
	Color  mgl32.Vec3
	Width  int
	Height int
}

var _ component.Renderable = (*Label)(nil)

// New returns a label that will draw text with atlas.
func New(base component.Base, atlas *graphics.FontAtlas, text string) *Label {
	l := &Label{
		Base:   base,
		atlas:  atlas,
		text:   text,
		X:      8,
		Y:      float32(atlas.LineHeight) + 4,
		Scale:  1,
		Color:  mgl32.Vec3{1, 1, 1},
		Width:  1,
		Height: 1,
	}
	l.SetCullFace("none")
	l.SetLightingEnabled(false)
	return l
}

func (l *Label) Text() string { return l.text }

// SetText replaces the text. A Ready label re-uploads into its existing
// buffers.
func (l *Label) SetText(text string) {
	if text == l.text {
		return
	}
	l.text = text
	if l.Ready() {
		l.upload()
	}
}

// SetViewport keeps the pixel projection in step with the window.
func (l *Label) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		l.Width, l.Height = width, height
	}
}

// Texture is the atlas texture owned by this label.
func (l *Label) Texture() gpu.TextureHandle { return l.texture }

func (l *Label) MeshGroupElementCount(group int) int {
	if group != component.DefaultGroup {
		return 0
	}
	return l.indices
}

func (l *Label) InitializeBuffers() error {
	if l.Ready() {
		return nil
	}
	if err := l.allocate(); err != nil {
		l.deleteTexture()
		l.ReleaseBuffers()
		return err
	}
	return nil
}

func (l *Label) allocate() error {
	tex, err := l.Backend().CreateTexture(l.atlas.Image)
	if err != nil {
		return err
	}
	l.texture = tex
	if _, err := l.AllocateSlot(component.ElemBuf, gpu.ElementBuffer); err != nil {
		return err
	}
	if _, err := l.AllocateSlot(component.VertBuf, gpu.ArrayBuffer); err != nil {
		return err
	}
	if _, err := l.AllocateSlot(component.UVBuf, gpu.ArrayBuffer); err != nil {
		return err
	}
	l.upload()
	return l.DescribeGeometry(gpu.Triangles)
}

func (l *Label) upload() {
	pos, uv, idx := l.atlas.Quads(l.text, 0, 0, 1)
	b := l.Backend()
	b.UploadIndices(l.GetBuffer(component.ElemBuf), idx)
	b.UploadFloats(l.GetBuffer(component.VertBuf), pos)
	b.UploadFloats(l.GetBuffer(component.UVBuf), uv)
	l.indices = len(idx)
}

func (l *Label) Render(view, proj mgl32.Mat4) {
	defer profiling.Track("renderer.label")()
	p := l.BeginRender(view, proj)
	screen := mgl32.Ortho(0, float32(l.Width), float32(l.Height), 0, -1, 1)
	model := mgl32.Translate3D(l.X, l.Y, 0).Mul4(mgl32.Scale3D(l.Scale, l.Scale, 1))
	p.SetMatrix4("screen", screen.Mul4(model))
	p.SetVector3("textColor", l.Color.X(), l.Color.Y(), l.Color.Z())
	l.Backend().BindTexture(0, l.texture)
	p.SetInt("glyphs", 0)
	l.Draw(l.indices, 0)
}

func (l *Label) deleteTexture() {
	if l.texture != gpu.NoTexture {
		l.Backend().DeleteTexture(l.texture)
		l.texture = gpu.NoTexture
	}
	l.indices = 0
}

// Dispose releases the buffers and the atlas texture.
func (l *Label) Dispose() {
	l.deleteTexture()
	l.Release()
}
