package terrain

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

func TestStripIndices(t *testing.T) {
	tests := []struct {
		w, d int
		want []uint32
	}{
		{2, 2, []uint32{0, 2, 1, 3}},
		{3, 2, []uint32{0, 3, 1, 4, 2, 5}},
		{2, 3, []uint32{0, 2, 1, 3, 3, 2, 2, 4, 3, 5}},
	}
	for _, tt := range tests {
		got := StripIndices(tt.w, tt.d)
		assert.Equal(t, tt.want, got, "%dx%d", tt.w, tt.d)
		assert.Len(t, got, StripIndexCount(tt.w, tt.d))
	}
	assert.Zero(t, StripIndexCount(1, 5))
}

func TestTerrainRendersOneStrip(t *testing.T) {
	backend := gputest.New()
	cache := graphics.NewCache(backend, fstest.MapFS{
		DefaultShader + ".vert": &fstest.MapFile{Data: []byte("void main() {}")},
		DefaultShader + ".frag": &fstest.MapFile{Data: []byte("void main() {}")},
	})
	tr := New(component.NewBase(backend, cache), 8, 6, 0.5, Hills(8, 6, 2))
	require.NoError(t, tr.LoadShader(DefaultShader))
	require.NoError(t, tr.InitializeBuffers())

	assert.Equal(t, gpu.TriangleStrip, tr.DrawMode())
	for _, s := range []component.BufferSlot{component.ElemBuf, component.VertBuf, component.NormalBuf, component.ColorBuf} {
		assert.NotEqual(t, gpu.NoBuffer, tr.GetBuffer(s), "slot %s", s)
	}
	assert.Equal(t, gpu.NoBuffer, tr.GetBuffer(component.UVBuf))
	assert.Len(t, backend.Buffers[tr.GetBuffer(component.VertBuf)], 8*6*3)

	tr.Render(mgl32.Ident4(), mgl32.Ident4())
	draws := backend.DrawCalls()
	require.Len(t, draws, 1)
	assert.Equal(t, gpu.TriangleStrip, draws[0].Mode)
	assert.Equal(t, int32(StripIndexCount(8, 6)), draws[0].Count)
	assert.Equal(t, 0, tr.MeshGroupElementCount(1))
}

func TestTerrainRejectsBadGrid(t *testing.T) {
	backend := gputest.New()
	assert.Error(t, New(component.NewBase(backend, nil), 1, 4, 1, make([]float32, 4)).InitializeBuffers())
	assert.Error(t, New(component.NewBase(backend, nil), 3, 3, 1, make([]float32, 8)).InitializeBuffers())
}

func TestFlatTerrainNormalsPointUp(t *testing.T) {
	backend := gputest.New()
	tr := New(component.NewBase(backend, nil), 3, 3, 1, make([]float32, 9))
	require.NoError(t, tr.InitializeBuffers())
	normals := backend.Buffers[tr.GetBuffer(component.NormalBuf)]
	for i := 0; i < len(normals); i += 3 {
		assert.Equal(t, []float32{0, 1, 0}, normals[i:i+3])
	}
}

func TestPrepareDoesNotTouchBackend(t *testing.T) {
	backend := gputest.New()
	tr := New(component.NewBase(backend, nil), 4, 4, 1, Hills(4, 4, 1))
	require.NoError(t, tr.Prepare())
	assert.Empty(t, backend.Buffers)
	assert.False(t, tr.Ready())

	require.NoError(t, tr.InitializeBuffers())
	assert.True(t, tr.Ready())
	assert.Len(t, backend.Buffers[tr.GetBuffer(component.VertBuf)], 4*4*3)
	assert.Nil(t, tr.prepared)

	assert.Error(t, New(component.NewBase(backend, nil), 1, 1, 1, nil).Prepare())
}
