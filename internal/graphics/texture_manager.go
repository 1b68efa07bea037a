package graphics

import (
	"io/fs"
	"sync"

	"sigma-render/internal/gpu"
)

// TextureCache uploads each texture path once and returns the same handle
// afterwards. Material maps resolve through it.
type TextureCache struct {
	backend gpu.Backend
	fsys    fs.FS

	mu       sync.RWMutex
	textures map[string]gpu.TextureHandle
}

// NewTextureCache reads images from fsys.
func NewTextureCache(backend gpu.Backend, fsys fs.FS) *TextureCache {
	return &TextureCache{
		backend:  backend,
		fsys:     fsys,
		textures: make(map[string]gpu.TextureHandle),
	}
}

// Get returns a cached texture handle for the given path.
// If the texture is already loaded, it returns the cached handle.
// Otherwise, it loads the texture and caches it.
func (t *TextureCache) Get(path string) (gpu.TextureHandle, error) {
	t.mu.RLock()
	if tex, ok := t.textures[path]; ok {
		t.mu.RUnlock()
		return tex, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double check locking
	if tex, ok := t.textures[path]; ok {
		return tex, nil
	}

	tex, err := LoadTexture(t.backend, t.fsys, path)
	if err != nil {
		return gpu.NoTexture, err
	}

	t.textures[path] = tex
	return tex, nil
}

// Close deletes every cached texture.
func (t *TextureCache) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, tex := range t.textures {
		t.backend.DeleteTexture(tex)
		delete(t.textures, path)
	}
}
