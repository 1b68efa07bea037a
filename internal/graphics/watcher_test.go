package graphics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sigma-render/internal/gpu/gputest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeShaderPair(t *testing.T, root, name string) {
	t.Helper()
	base := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(base), 0o755))
	require.NoError(t, os.WriteFile(base+".vert", []byte(vertSrc), 0o644))
	require.NoError(t, os.WriteFile(base+".frag", []byte(fragSrc), 0o644))
}

func TestShaderName(t *testing.T) {
	root := filepath.Join("assets")
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{filepath.Join(root, "shaders", "mesh.vert"), "shaders/mesh", true},
		{filepath.Join(root, "shaders", "mesh.frag"), "shaders/mesh", true},
		{filepath.Join(root, "overlay.frag"), "overlay", true},
		{filepath.Join(root, "shaders", "mesh.vert.swp"), "", false},
		{filepath.Join(root, "textures", "grass.png"), "", false},
		{filepath.Join("elsewhere", "mesh.vert"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ShaderName(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReloadPendingDedupesAndSkipsUnknown(t *testing.T) {
	backend := gputest.New()
	cache := NewCache(backend, shaderFS("shaders/mesh"))
	p, err := cache.Load("shaders/mesh")
	require.NoError(t, err)
	before := p.Handle()

	w := &Watcher{changes: make(chan string, 8)}
	w.changes <- "shaders/mesh"
	w.changes <- "shaders/mesh"
	w.changes <- "shaders/never-loaded"

	assert.Equal(t, 1, w.ReloadPending(cache))
	assert.NotEqual(t, before, p.Handle())
	assert.Equal(t, 0, w.ReloadPending(cache), "queue is drained")
}

func TestWatcherReportsEdits(t *testing.T) {
	root := t.TempDir()
	writeShaderPair(t, root, "shaders/mesh")

	w, err := NewWatcher(root)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(root, "shaders", "mesh.frag")
	require.NoError(t, os.WriteFile(path, []byte(fragSrc+"// edited\n"), 0o644))

	select {
	case name := <-w.Changes():
		assert.Equal(t, "shaders/mesh", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for edited fragment shader")
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	require.NoError(t, err)
	defer w.Close()

	dir := filepath.Join(root, "shaders", "extra")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// Keep editing until the new directory is watched.
	path := filepath.Join(dir, "glow.vert")
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		require.NoError(t, os.WriteFile(path, []byte(vertSrc), 0o644))
		select {
		case name := <-w.Changes():
			assert.Equal(t, "shaders/extra/glow", name)
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no change reported from a directory created after start")
		}
	}
}
