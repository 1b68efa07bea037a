package graphics

import (
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"

	"sigma-render/internal/gpu"
	"sigma-render/internal/gpu/gputest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vertSrc = "#version 410 core\nvoid main() { gl_Position = vec4(0.0); }\n"
	fragSrc = "#version 410 core\nout vec4 c;\nvoid main() { c = vec4(1.0); }\n"
)

func shaderFS(names ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, name := range names {
		fsys[name+".vert"] = &fstest.MapFile{Data: []byte(vertSrc)}
		fsys[name+".frag"] = &fstest.MapFile{Data: []byte(fragSrc)}
	}
	return fsys
}

func TestLoadReturnsSharedProgram(t *testing.T) {
	backend := gputest.New()
	cache := NewCache(backend, shaderFS("shaders/mesh", "shaders/terrain"))

	p1, err := cache.Load("shaders/mesh")
	require.NoError(t, err)
	p2, err := cache.Load("shaders/mesh")
	require.NoError(t, err)
	other, err := cache.Load("shaders/terrain")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.NotSame(t, p1, other)
	assert.NotEqual(t, p1.Handle(), other.Handle())
	assert.Equal(t, "shaders/mesh", p1.Name())
	assert.Equal(t, 2, cache.Compiles())
	assert.Equal(t, 2, backend.Links())
	assert.Equal(t, 4, backend.Compiles())
	assert.Zero(t, backend.LiveStages(), "stages are deleted once linked")
	assert.Equal(t, []string{"shaders/mesh", "shaders/terrain"}, cache.Names())
}

func TestLoadMissingThenRetry(t *testing.T) {
	backend := gputest.New()
	fsys := shaderFS("shaders/mesh")
	cache := NewCache(backend, fsys)

	_, err := cache.Load("shaders/mesh")
	require.NoError(t, err)

	_, err = cache.Load("shaders/missing")
	var compileErr *ShaderCompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "shaders/missing", compileErr.Name)
	assert.Equal(t, gpu.VertexStage, compileErr.Stage)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, ok := cache.Lookup("shaders/missing")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())

	fsys["shaders/missing.vert"] = &fstest.MapFile{Data: []byte(vertSrc)}
	fsys["shaders/missing.frag"] = &fstest.MapFile{Data: []byte(fragSrc)}

	p, err := cache.Load("shaders/missing")
	require.NoError(t, err)
	got, ok := cache.Lookup("shaders/missing")
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestLoadMissingFragmentOnly(t *testing.T) {
	fsys := fstest.MapFS{"shaders/half.vert": &fstest.MapFile{Data: []byte(vertSrc)}}
	backend := gputest.New()
	cache := NewCache(backend, fsys)

	_, err := cache.Load("shaders/half")
	var compileErr *ShaderCompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, gpu.FragmentStage, compileErr.Stage)
	assert.Zero(t, backend.Compiles(), "nothing is compiled until both sources are read")
}

func TestLoadIsCaseSensitive(t *testing.T) {
	cache := NewCache(gputest.New(), shaderFS("shaders/mesh"))
	_, err := cache.Load("shaders/Mesh")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadRejectsInvalidPath(t *testing.T) {
	cache := NewCache(gputest.New(), shaderFS("shaders/mesh"))
	_, err := cache.Load("../shaders/mesh")
	assert.ErrorIs(t, err, fs.ErrInvalid)
	assert.Zero(t, cache.Len())
}

func TestCompileAndLinkFailuresAreNotCached(t *testing.T) {
	tests := []struct {
		name     string
		vert     string
		frag     string
		wantLink bool
		stage    gpu.StageKind
	}{
		{name: "vertex", vert: gputest.FailMarker, frag: fragSrc, stage: gpu.VertexStage},
		{name: "fragment", vert: vertSrc, frag: gputest.FailMarker, stage: gpu.FragmentStage},
		{name: "link", vert: vertSrc, frag: gputest.LinkFailMarker, wantLink: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := gputest.New()
			fsys := fstest.MapFS{
				"bad.vert": &fstest.MapFile{Data: []byte(tt.vert)},
				"bad.frag": &fstest.MapFile{Data: []byte(tt.frag)},
			}
			cache := NewCache(backend, fsys)

			_, err := cache.Load("bad")
			require.Error(t, err)
			if tt.wantLink {
				var linkErr *ShaderLinkError
				require.ErrorAs(t, err, &linkErr)
				assert.Equal(t, "bad", linkErr.Name)
				assert.NotEmpty(t, linkErr.Log)
			} else {
				var compileErr *ShaderCompileError
				require.ErrorAs(t, err, &compileErr)
				assert.Equal(t, tt.stage, compileErr.Stage)
				assert.NotEmpty(t, compileErr.Log)
				assert.Nil(t, errors.Unwrap(err))
			}
			assert.Zero(t, backend.LiveStages(), "no stage leaks on failure")
			assert.Zero(t, cache.Len())

			fsys["bad.vert"] = &fstest.MapFile{Data: []byte(vertSrc)}
			fsys["bad.frag"] = &fstest.MapFile{Data: []byte(fragSrc)}
			_, err = cache.Load("bad")
			assert.NoError(t, err)
		})
	}
}

func TestLoadPropagatesResourceExhaustion(t *testing.T) {
	backend := gputest.New()
	backend.ExhaustAfter = 1
	cache := NewCache(backend, shaderFS("shaders/mesh"))

	_, err := cache.Load("shaders/mesh")
	assert.ErrorIs(t, err, gpu.ErrResourceExhausted)
	assert.Zero(t, cache.Len())
}

func TestConcurrentLoadCompilesOnce(t *testing.T) {
	backend := gputest.New()
	cache := NewCache(backend, shaderFS("shaders/mesh"))

	const workers = 16
	programs := make([]*Program, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := cache.Load("shaders/mesh")
			assert.NoError(t, err)
			programs[i] = p
		}()
	}
	wg.Wait()

	for _, p := range programs {
		assert.Same(t, programs[0], p)
	}
	assert.Equal(t, 1, backend.Links())
	assert.Equal(t, 1, cache.Compiles())
}

func TestReloadSwapsHandleInPlace(t *testing.T) {
	backend := gputest.New()
	fsys := shaderFS("shaders/mesh")
	cache := NewCache(backend, fsys)

	p, err := cache.Load("shaders/mesh")
	require.NoError(t, err)
	before := p.Handle()

	require.NoError(t, cache.Reload("shaders/mesh"))
	after := p.Handle()
	assert.NotEqual(t, before, after)
	assert.True(t, backend.WasDeleted(uint32(before)))

	again, err := cache.Load("shaders/mesh")
	require.NoError(t, err)
	assert.Same(t, p, again)

	fsys["shaders/mesh.frag"] = &fstest.MapFile{Data: []byte(gputest.FailMarker)}
	err = cache.Reload("shaders/mesh")
	var compileErr *ShaderCompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, after, p.Handle(), "failed reload keeps the previous program")
}

func TestReloadUnknown(t *testing.T) {
	cache := NewCache(gputest.New(), shaderFS())
	assert.ErrorIs(t, cache.Reload("shaders/mesh"), ErrNotLoaded)
}

func TestCloseDeletesPrograms(t *testing.T) {
	backend := gputest.New()
	cache := NewCache(backend, shaderFS("a", "b"))
	pa, err := cache.Load("a")
	require.NoError(t, err)
	pb, err := cache.Load("b")
	require.NoError(t, err)

	cache.Close()
	assert.Zero(t, cache.Len())
	assert.True(t, backend.WasDeleted(uint32(pa.Handle())))
	assert.True(t, backend.WasDeleted(uint32(pb.Handle())))

	compiles := backend.Compiles()
	_, err = cache.Load("a")
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.ErrorIs(t, cache.Reload("a"), ErrCacheClosed)
	assert.Equal(t, compiles, backend.Compiles(), "closed cache compiles nothing")
	assert.NotPanics(t, cache.Close)
}

func TestProgramUniforms(t *testing.T) {
	backend := gputest.New()
	cache := NewCache(backend, shaderFS("shaders/mesh"))
	p, err := cache.Load("shaders/mesh")
	require.NoError(t, err)

	p.Use()
	assert.Equal(t, p.Handle(), backend.ActiveProgram())

	view := mgl32.Translate3D(1, 2, 3)
	p.SetMatrix4("view", view)
	p.SetVector3("lightDir", 0, 1, 0)
	p.SetFloat("aspectRatio", 1.5)
	p.SetBool("lightingEnabled", true)

	v, ok := backend.Uniform(p.Handle(), "view")
	require.True(t, ok)
	assert.Equal(t, [16]float32(view), v)
	v, _ = backend.Uniform(p.Handle(), "lightDir")
	assert.Equal(t, [3]float32{0, 1, 0}, v)
	v, _ = backend.Uniform(p.Handle(), "aspectRatio")
	assert.Equal(t, float32(1.5), v)
	v, _ = backend.Uniform(p.Handle(), "lightingEnabled")
	assert.Equal(t, int32(1), v)
}

func TestNewCacheDir(t *testing.T) {
	dir := t.TempDir()
	writeShaderPair(t, dir, "mesh")

	cache := NewCacheDir(gputest.New(), dir)
	_, err := cache.Load("mesh")
	assert.NoError(t, err)
}
