package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sigma-render/internal/component"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.Scene, 3)
	assert.Equal(t, KindTerrain, cfg.Scene[0].Kind)
	assert.Equal(t, KindCrosshair, cfg.Scene[2].Kind)
}

func TestParseEmptyYieldsDefault(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
window:
  width: 640
  height: 480
assets:
  watch_shaders: true
scene:
  - kind: cube
    cull: front
    lighting: false
    maps:
      diffuse: textures/crate.png
`))
	require.NoError(t, err)

	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, "sigma-render", cfg.Window.Title)
	assert.Equal(t, "assets", cfg.Assets.ShaderRoot)
	assert.True(t, cfg.Assets.WatchShaders)
	assert.InDelta(t, 60, cfg.Camera.FOV, 1e-6)

	require.Len(t, cfg.Scene, 1)
	sc := cfg.Scene[0]
	assert.Equal(t, "front", sc.Cull)
	assert.False(t, sc.LightingOr(true))
	assert.Equal(t, "textures/crate.png", sc.Maps.Diffuse)
}

func TestParseOutline(t *testing.T) {
	cfg, err := Parse([]byte(`
window:
  stats: true
  fps_limit: 144
scene:
  - kind: cube
    name: crate
  - kind: wireframe
    outline: crate
    color: [1, 0, 0]
  - kind: label
    text: hello
`))
	require.NoError(t, err)
	assert.True(t, cfg.Window.Stats)
	assert.Equal(t, 144, cfg.Window.FPSLimit)
	assert.Equal(t, [3]float32{1, 0, 0}, cfg.Scene[1].Color)
	assert.Equal(t, "hello", cfg.Scene[2].Text)
}

func TestLightingOr(t *testing.T) {
	on := true
	assert.True(t, ComponentConfig{}.LightingOr(true))
	assert.False(t, ComponentConfig{}.LightingOr(false))
	assert.True(t, ComponentConfig{Lighting: &on}.LightingOr(false))
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown key", "windw:\n  width: 1\n", "field windw not found"},
		{"zero width", "window:\n  width: 0\n", "window: invalid size"},
		{"empty shader root", "assets:\n  shader_root: \"\"\n", "shader_root is empty"},
		{"fov", "camera:\n  fov: 180\n", "fov"},
		{"clip planes", "camera:\n  near: 10\n  far: 1\n", "clip planes"},
		{"tiny terrain", "scene:\n  - kind: terrain\n    width: 1\n    depth: 4\n", "scene[0]: terrain"},
		{"negative size", "scene:\n  - kind: cube\n    size: -1\n", "negative size"},
		{"fps limit", "window:\n  fps_limit: -1\n", "fps_limit"},
		{"outline before cube", "scene:\n  - kind: wireframe\n    outline: crate\n  - kind: cube\n    name: crate\n", "unknown cube \"crate\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
		value string
	}{
		{"bad cull", "scene:\n  - kind: cube\n    cull: sideways\n", "cull_face", "sideways"},
		{"unknown kind", "scene:\n  - kind: teapot\n", "kind", "teapot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var cerr *component.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
			assert.Equal(t, tt.value, cerr.Value)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte("window:\n  title: test\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Window.Title)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	big := filepath.Join(dir, "big.yml")
	require.NoError(t, os.WriteFile(big, []byte("#"+strings.Repeat("x", maxConfigSize)), 0o644))
	_, err = Load(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "larger than")
}

func TestRenderSettings(t *testing.T) {
	t.Cleanup(func() { Apply(Default()) })

	SetSwapInterval(-3)
	assert.Equal(t, 0, GetSwapInterval())
	SetSwapInterval(9)
	assert.Equal(t, 4, GetSwapInterval())

	cfg := Default()
	cfg.Window.VSync = false
	cfg.Assets.WatchShaders = true
	Apply(cfg)
	assert.Equal(t, 0, GetSwapInterval())
	assert.True(t, GetHotReload())
	assert.Zero(t, GetFPSLimit())
	SetFPSLimit(5000)
	assert.Equal(t, 1000, GetFPSLimit())
	assert.False(t, ToggleHotReload())
	assert.False(t, GetHotReload())
}
