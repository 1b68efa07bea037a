package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"sigma-render/internal/component"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is looked up in the working directory when -config is not given.
const DefaultFilename = "scene.yml"

const maxConfigSize = 1024 * 1024

// Component kinds understood by the viewer.
const (
	KindCube      = "cube"
	KindTerrain   = "terrain"
	KindCrosshair = "crosshair"
	KindWireframe = "wireframe"
	KindLabel     = "label"
)

// Config is the viewer configuration: window, asset roots, camera and scene.
type Config struct {
	Window     WindowConfig      `yaml:"window"`
	Assets     AssetsConfig      `yaml:"assets"`
	Camera     CameraConfig      `yaml:"camera"`
	ClearColor [4]float32        `yaml:"clear_color"`
	Scene      []ComponentConfig `yaml:"scene"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
	// FPSLimit caps the frame rate; 0 means uncapped.
	FPSLimit int `yaml:"fps_limit"`
	// Stats adds a label showing frame rate and draw calls.
	Stats bool `yaml:"stats"`
}

// AssetsConfig locates shader and texture files. Shader names in the scene
// are relative to ShaderRoot, texture paths to TextureRoot.
type AssetsConfig struct {
	ShaderRoot   string `yaml:"shader_root"`
	TextureRoot  string `yaml:"texture_root"`
	WatchShaders bool   `yaml:"watch_shaders"`
}

type CameraConfig struct {
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
	FOV      float32    `yaml:"fov"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

// ComponentConfig describes one renderable in submission order. Fields not
// used by a kind are ignored.
type ComponentConfig struct {
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name"`
	Shader   string `yaml:"shader"`
	Cull     string `yaml:"cull"`
	Lighting *bool  `yaml:"lighting"`

	Position [3]float32 `yaml:"position"`
	Size     float32    `yaml:"size"`
	Color    [3]float32 `yaml:"color"`

	// terrain
	Width     int     `yaml:"width"`
	Depth     int     `yaml:"depth"`
	Spacing   float32 `yaml:"spacing"`
	Amplitude float32 `yaml:"amplitude"`

	// wireframe: name of an earlier cube to outline
	Outline string `yaml:"outline"`

	// label
	Text string `yaml:"text"`

	Maps component.MaterialMaps `yaml:"maps"`
}

// LightingOr returns the configured lighting flag, or def when unset.
func (c ComponentConfig) LightingOr(def bool) bool {
	if c.Lighting == nil {
		return def
	}
	return *c.Lighting
}

// Default returns a configuration that renders a lit cube over rolling
// terrain with a crosshair on top.
func Default() Config {
	return Config{
		Window: WindowConfig{Width: 1280, Height: 720, Title: "sigma-render", VSync: true},
		Assets: AssetsConfig{ShaderRoot: "assets", TextureRoot: "assets"},
		Camera: CameraConfig{
			Position: [3]float32{0, 4, 10},
			FOV:      60,
			Near:     0.1,
			Far:      1000,
		},
		ClearColor: [4]float32{0.53, 0.81, 0.92, 1},
		Scene: []ComponentConfig{
			{Kind: KindTerrain, Name: "ground", Width: 64, Depth: 64, Spacing: 0.5, Amplitude: 1.5, Position: [3]float32{0, -2, 0}},
			{Kind: KindCube, Name: "cube", Size: 1.5},
			{Kind: KindCrosshair, Name: "crosshair", Size: 0.02},
		},
	}
}

// Load reads path and overlays it on Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > maxConfigSize {
		return Config{}, fmt.Errorf("config %s: larger than %d bytes", path, maxConfigSize)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. An empty
// document yields Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window: invalid size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Assets.ShaderRoot == "" {
		return errors.New("assets: shader_root is empty")
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return fmt.Errorf("camera: fov %v out of range (0, 180)", c.Camera.FOV)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera: invalid clip planes near=%v far=%v", c.Camera.Near, c.Camera.Far)
	}
	if c.Window.FPSLimit < 0 {
		return fmt.Errorf("window: negative fps_limit %d", c.Window.FPSLimit)
	}
	cubes := make(map[string]bool)
	for i, sc := range c.Scene {
		if err := sc.validate(); err != nil {
			return fmt.Errorf("scene[%d]: %w", i, err)
		}
		if sc.Kind == KindWireframe && sc.Outline != "" && !cubes[sc.Outline] {
			return fmt.Errorf("scene[%d]: wireframe outlines unknown cube %q", i, sc.Outline)
		}
		if sc.Kind == KindCube && sc.Name != "" {
			cubes[sc.Name] = true
		}
	}
	return nil
}

func (c ComponentConfig) validate() error {
	if c.Cull != "" {
		if _, err := component.ParseCullFace(c.Cull); err != nil {
			return err
		}
	}
	switch c.Kind {
	case KindCube, KindCrosshair, KindWireframe, KindLabel:
		if c.Size < 0 {
			return fmt.Errorf("%s: negative size %v", c.Kind, c.Size)
		}
	case KindTerrain:
		if c.Width < 2 || c.Depth < 2 {
			return fmt.Errorf("terrain: grid %dx%d smaller than 2x2", c.Width, c.Depth)
		}
		if c.Spacing < 0 {
			return fmt.Errorf("terrain: negative spacing %v", c.Spacing)
		}
	default:
		return &component.ConfigurationError{Field: "kind", Value: c.Kind}
	}
	return nil
}
