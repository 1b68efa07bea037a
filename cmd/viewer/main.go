package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"runtime"
	"time"

	"sigma-render/internal/config"
	"sigma-render/internal/gpu/glbackend"
	"sigma-render/internal/graphics"
	"sigma-render/internal/graphics/renderables/label"
	"sigma-render/internal/graphics/renderer"
	"sigma-render/internal/input"
	"sigma-render/internal/logging"
	"sigma-render/internal/profiling"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "scene configuration (YAML); defaults to "+config.DefaultFilename+" if present")
	verbose := flag.Bool("v", false, "debug logging")
	orbitSpeed := flag.Float64("orbit", 20, "camera orbit speed in degrees per second, 0 to disable")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	defer closer.Close()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		closer.Fatalln(err)
	}
	config.Apply(cfg)

	if err := run(cfg, float32(*orbitSpeed)); err != nil {
		closer.Fatalln(err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.Load(config.DefaultFilename)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Logger().Info("no scene file, using built-in scene")
		return config.Default(), nil
	}
	return cfg, err
}

func setupWindow(cfg config.WindowConfig) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(config.GetSwapInterval())
	return window, nil
}

// run owns every GL resource. GL teardown happens here on the locked thread;
// closer only handles what is safe from its signal goroutine.
func run(cfg config.Config, orbitSpeed float32) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	window, err := setupWindow(cfg.Window)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}

	backend, err := glbackend.New()
	if err != nil {
		return err
	}
	logging.Logger().Info("backend ready", "gl", backend.Version())

	shaders := graphics.NewCacheDir(backend, cfg.Assets.ShaderRoot)
	defer shaders.Close()

	var textures *graphics.TextureCache
	if cfg.Assets.TextureRoot != "" {
		textures = graphics.NewTextureCache(backend, os.DirFS(cfg.Assets.TextureRoot))
		defer textures.Close()
	}

	components, stats, err := buildScene(cfg, backend, shaders, textures)
	if err != nil {
		return err
	}

	fbW, fbH := window.GetFramebufferSize()
	camera := graphics.NewCamera(fbW, fbH)
	camera.Position = mgl32.Vec3(cfg.Camera.Position)
	camera.Target = mgl32.Vec3(cfg.Camera.Target)
	camera.FOV = cfg.Camera.FOV
	camera.NearPlane = cfg.Camera.Near
	camera.FarPlane = cfg.Camera.Far

	r := renderer.NewRenderer(backend, camera, components...)
	r.ClearColor = cfg.ClearColor
	defer r.Dispose()
	if err := r.Init(context.Background()); err != nil {
		return err
	}
	r.UpdateViewport(fbW, fbH)
	logging.Logger().Info("scene loaded", "components", len(components), "programs", shaders.Len())

	var watcher *graphics.Watcher
	if cfg.Assets.WatchShaders {
		watcher, err = graphics.NewWatcher(cfg.Assets.ShaderRoot)
		if err != nil {
			logging.Logger().Warn("shader hot reload unavailable", "err", err)
		} else {
			closer.Bind(func() { watcher.Close() })
		}
	}

	im := input.NewInputManager()
	im.Attach(window)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, fbWidth, fbHeight int) {
		gl.Viewport(0, 0, int32(fbWidth), int32(fbHeight))
		r.UpdateViewport(fbWidth, fbHeight)
	})

	orbitCamera := newOrbit(camera)
	orbiting := orbitSpeed != 0
	lastCursorX, _ := window.GetCursorPos()
	var limiter fpsLimiter

	last := time.Now()
	lastReport := last
	frames := 0
	for !window.ShouldClose() {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		profiling.ResetFrame()

		handleActions(im, window, r, shaders, &orbiting, stats)
		cursorX, _ := window.GetCursorPos()
		if im.IsActive(input.ActionDrag) {
			orbitCamera.advance(float32(cursorX-lastCursorX) * 0.01)
		}
		lastCursorX = cursorX
		if im.IsActive(input.ActionZoomIn) {
			orbitCamera.zoom(1 - dt)
		}
		if im.IsActive(input.ActionZoomOut) {
			orbitCamera.zoom(1 + dt)
		}
		if orbiting {
			orbitCamera.advance(mgl32.DegToRad(orbitSpeed) * dt)
		}
		im.PostUpdate()

		if watcher != nil && config.GetHotReload() {
			if n := watcher.ReloadPending(shaders); n > 0 {
				logging.Logger().Info("shaders reloaded", "count", n)
			}
		}

		r.Render()

		func() {
			defer profiling.Track("glfw.SwapBuffers")()
			window.SwapBuffers()
		}()
		func() {
			defer profiling.Track("glfw.PollEvents")()
			glfw.PollEvents()
		}()

		frames++
		if since := now.Sub(lastReport); since >= time.Second {
			fps := float64(frames) / since.Seconds()
			logging.Logger().Debug("frame",
				"fps", fps,
				"draw_calls", profiling.Counter("draw_calls"),
				"top", profiling.TopN(3))
			if stats != nil {
				stats.SetText(fmt.Sprintf("%.0f fps  %d draws", fps, profiling.Counter("draw_calls")))
			}
			frames = 0
			lastReport = now
		}

		limiter.Wait()
	}
	return nil
}

func handleActions(im *input.InputManager, window *glfw.Window, r *renderer.Renderer, shaders *graphics.Cache, orbiting *bool, stats *label.Label) {
	if im.JustPressed(input.ActionQuit) {
		window.SetShouldClose(true)
	}
	if im.JustPressed(input.ActionReloadShaders) {
		for _, name := range shaders.Names() {
			if err := shaders.Reload(name); err != nil {
				logging.Logger().Warn("shader reload failed", "shader", name, "err", err)
			}
		}
	}
	if im.JustPressed(input.ActionToggleHotReload) {
		logging.Logger().Info("hot reload", "enabled", config.ToggleHotReload())
	}
	if im.JustPressed(input.ActionToggleLighting) {
		for _, c := range r.Renderables() {
			c.SetLightingEnabled(!c.IsLightingEnabled())
		}
	}
	if im.JustPressed(input.ActionToggleOrbit) {
		*orbiting = !*orbiting
	}
	if im.JustPressed(input.ActionToggleStats) && stats != nil {
		if stats.Scale > 0 {
			stats.Scale = 0
		} else {
			stats.Scale = 1
		}
	}
}

// orbit circles the camera around its target at a fixed radius and height.
type orbit struct {
	camera *graphics.Camera
	radius float64
	height float32
	angle  float64
}

func newOrbit(c *graphics.Camera) *orbit {
	d := c.Position.Sub(c.Target)
	return &orbit{
		camera: c,
		radius: math.Hypot(float64(d.X()), float64(d.Z())),
		height: d.Y(),
		angle:  math.Atan2(float64(d.X()), float64(d.Z())),
	}
}

func (o *orbit) advance(delta float32) {
	o.angle += float64(delta)
	x := float32(o.radius * math.Sin(o.angle))
	z := float32(o.radius * math.Cos(o.angle))
	o.camera.Position = o.camera.Target.Add(mgl32.Vec3{x, o.height, z})
}

// zoom scales the distance to the target, keeping at least one unit.
func (o *orbit) zoom(factor float32) {
	if factor <= 0 {
		return
	}
	o.radius = max(o.radius*float64(factor), 1)
	o.height = o.height * factor
	o.advance(0)
}
