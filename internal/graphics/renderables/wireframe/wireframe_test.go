package wireframe

import (
	"testing"
	"testing/fstest"

	"sigma-render/internal/component"
	"sigma-render/internal/gpu"
	"sigma-render/internal/gpu/gputest"
	"sigma-render/internal/graphics"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCornersAndEdges(t *testing.T) {
	w := NewWireframe(component.Base{}, mgl32.Vec3{-1, -2, -3}, mgl32.Vec3{1, 2, 3})
	c := w.Corners()
	require.Len(t, c, 24)
	assert.Equal(t, []float32{-1, -2, -3}, c[0:3])
	assert.Equal(t, []float32{1, 2, 3}, c[21:24])
	assert.Equal(t, []float32{1, -2, 3}, c[15:18]) // corner 5: max X, max Z

	// every edge joins corners differing in exactly one axis
	for i := 0; i < len(boxEdges); i += 2 {
		d := boxEdges[i] ^ boxEdges[i+1]
		assert.Contains(t, []uint32{1, 2, 4}, d, "edge %d", i/2)
	}
}

func TestBounds(t *testing.T) {
	lo, hi := Bounds([]component.Vertex{{X: 0, Y: 5, Z: -1}, {X: 2, Y: -5, Z: 1}})
	assert.InDelta(t, -0.01, lo.X(), 1e-6)
	assert.InDelta(t, 5.05, hi.Y(), 1e-6)

	lo, hi = Bounds(nil)
	assert.Equal(t, mgl32.Vec3{}, lo)
	assert.Equal(t, mgl32.Vec3{}, hi)
}

func TestWireframeRender(t *testing.T) {
	backend := gputest.New()
	cache := graphics.NewCache(backend, fstest.MapFS{
		DefaultShader + ".vert": &fstest.MapFile{Data: []byte("void main() {}")},
		DefaultShader + ".frag": &fstest.MapFile{Data: []byte("void main() {}")},
	})
	w := NewWireframe(component.NewBase(backend, cache), mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	w.Color = mgl32.Vec3{1, 0, 0}
	require.NoError(t, w.LoadShader(DefaultShader))
	require.NoError(t, w.InitializeBuffers())

	w.Render(mgl32.Ident4(), mgl32.Ident4())
	draws := backend.DrawCalls()
	require.Len(t, draws, 1)
	assert.Equal(t, gputest.DrawCall{
		Mode:       gpu.Lines,
		Count:      24,
		Indexed:    true,
		Descriptor: w.Vao(),
		Program:    w.GetShader().Handle(),
		Cull:       gpu.CullNone,
	}, draws[0])
	v, _ := backend.Uniform(w.GetShader().Handle(), "color")
	assert.Equal(t, [3]float32{1, 0, 0}, v)
}
