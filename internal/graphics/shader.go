package graphics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"sigma-render/internal/gpu"
	"sigma-render/internal/logging"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNotLoaded is returned by Reload for a name the cache has never loaded.
	ErrNotLoaded = errors.New("shader not loaded")
	// ErrCacheClosed is returned by Load and Reload after Close.
	ErrCacheClosed = errors.New("shader cache closed")
)

// ShaderCompileError reports a stage that could not be read or compiled.
// Err is set when the source could not be read.
type ShaderCompileError struct {
	Name  string
	Stage gpu.StageKind
	Log   string
	Err   error
}

func (e *ShaderCompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shader %q: read %s stage: %v", e.Name, e.Stage, e.Err)
	}
	return fmt.Sprintf("shader %q: compile %s stage: %s", e.Name, e.Stage, e.Log)
}

func (e *ShaderCompileError) Unwrap() error { return e.Err }

// ShaderLinkError reports a program whose stages compiled but failed to link.
type ShaderLinkError struct {
	Name string
	Log  string
}

func (e *ShaderLinkError) Error() string {
	return fmt.Sprintf("shader %q: link: %s", e.Name, e.Log)
}

// Program is a linked vertex+fragment pair shared by every component that
// loaded the same name. The handle may be swapped by Cache.Reload; the
// Program value itself never changes identity.
type Program struct {
	name    string
	backend gpu.Backend
	handle  atomic.Uint32
}

// Name is the base name the program was loaded under, e.g. "shaders/mesh".
func (p *Program) Name() string { return p.name }

// Handle is the currently linked backend program.
func (p *Program) Handle() gpu.ProgramHandle {
	return gpu.ProgramHandle(p.handle.Load())
}

// Use activates the program.
func (p *Program) Use() {
	p.backend.UseProgram(p.Handle())
}

// SetMatrix4 sets a 4x4 matrix uniform.
func (p *Program) SetMatrix4(name string, m mgl32.Mat4) {
	p.backend.SetUniformMatrix4(p.Handle(), name, (*[16]float32)(&m))
}

// SetVector3 sets a vec3 uniform.
func (p *Program) SetVector3(name string, x, y, z float32) {
	p.backend.SetUniformVec3(p.Handle(), name, x, y, z)
}

// SetFloat sets a float uniform.
func (p *Program) SetFloat(name string, v float32) {
	p.backend.SetUniformFloat(p.Handle(), name, v)
}

// SetInt sets an integer uniform.
func (p *Program) SetInt(name string, v int32) {
	p.backend.SetUniformInt(p.Handle(), name, v)
}

// SetBool sets a boolean uniform.
func (p *Program) SetBool(name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	p.backend.SetUniformInt(p.Handle(), name, i)
}

// Cache compiles each shader name at most once and hands out the shared
// Program afterwards. Entries live until Close.
//
// Load may be called from any goroutine; the backend it was built with must
// tolerate that (the GL backend does not, so viewers load on the render
// thread).
type Cache struct {
	backend gpu.Backend
	fsys    fs.FS

	mu       sync.RWMutex
	programs map[string]*Program
	compiles int
	closed   bool
}

// NewCache reads shader sources from fsys.
func NewCache(backend gpu.Backend, fsys fs.FS) *Cache {
	return &Cache{
		backend:  backend,
		fsys:     fsys,
		programs: make(map[string]*Program),
	}
}

// NewCacheDir reads shader sources from a directory on disk.
func NewCacheDir(backend gpu.Backend, root string) *Cache {
	return NewCache(backend, os.DirFS(root))
}

// Load returns the program for name, compiling name.vert and name.frag on
// the first request. Failures are never cached.
func (c *Cache) Load(name string) (*Program, error) {
	c.mu.RLock()
	if p, ok := c.programs[name]; ok {
		c.mu.RUnlock()
		logging.Logger().Debug("shader cache hit", "name", name)
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check locking
	if p, ok := c.programs[name]; ok {
		return p, nil
	}
	if c.closed {
		return nil, fmt.Errorf("load %q: %w", name, ErrCacheClosed)
	}

	handle, err := c.build(name)
	if err != nil {
		return nil, err
	}
	p := &Program{name: name, backend: c.backend}
	p.handle.Store(uint32(handle))
	c.programs[name] = p
	c.compiles++
	logging.Logger().Debug("shader compiled", "name", name, "program", handle)
	return p, nil
}

// Lookup returns an already loaded program without compiling.
func (c *Cache) Lookup(name string) (*Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.programs[name]
	return p, ok
}

// Len is the number of loaded programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// Names lists loaded program names in sorted order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.programs))
	for name := range c.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compiles counts successful compile+link rounds, reloads included.
func (c *Cache) Compiles() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compiles
}

// Reload recompiles a loaded program from its sources and swaps the linked
// handle in place, so every holder sees the new code. On failure the old
// handle stays active.
func (c *Cache) Reload(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("reload %q: %w", name, ErrCacheClosed)
	}
	p, ok := c.programs[name]
	if !ok {
		return fmt.Errorf("reload %q: %w", name, ErrNotLoaded)
	}
	handle, err := c.build(name)
	if err != nil {
		return err
	}
	old := gpu.ProgramHandle(p.handle.Swap(uint32(handle)))
	c.backend.DeleteProgram(old)
	c.compiles++
	logging.Logger().Info("shader reloaded", "name", name, "program", handle)
	return nil
}

// Close deletes every program and empties the cache. Programs still held by
// components become invalid. A closed cache cannot be reused; Close is
// idempotent.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for name, p := range c.programs {
		c.backend.DeleteProgram(p.Handle())
		delete(c.programs, name)
	}
}

// build reads, compiles and links one program. Intermediate stages are
// always deleted.
func (c *Cache) build(name string) (gpu.ProgramHandle, error) {
	vertexSource, err := c.readStage(name, gpu.VertexStage)
	if err != nil {
		return gpu.NoProgram, err
	}
	fragmentSource, err := c.readStage(name, gpu.FragmentStage)
	if err != nil {
		return gpu.NoProgram, err
	}

	vertexShader, err := c.compileStage(name, vertexSource, gpu.VertexStage)
	if err != nil {
		return gpu.NoProgram, err
	}
	defer c.backend.DeleteStage(vertexShader)

	fragmentShader, err := c.compileStage(name, fragmentSource, gpu.FragmentStage)
	if err != nil {
		return gpu.NoProgram, err
	}
	defer c.backend.DeleteStage(fragmentShader)

	program, err := c.backend.LinkProgram(vertexShader, fragmentShader)
	if err != nil {
		if errors.Is(err, gpu.ErrResourceExhausted) {
			return gpu.NoProgram, fmt.Errorf("shader %q: %w", name, err)
		}
		return gpu.NoProgram, &ShaderLinkError{Name: name, Log: err.Error()}
	}
	return program, nil
}

func (c *Cache) readStage(name string, kind gpu.StageKind) (string, error) {
	path := name + kind.Ext()
	if !fs.ValidPath(path) {
		return "", &ShaderCompileError{Name: name, Stage: kind, Err: fmt.Errorf("%s: %w", path, fs.ErrInvalid)}
	}
	src, err := fs.ReadFile(c.fsys, path)
	if err != nil {
		return "", &ShaderCompileError{Name: name, Stage: kind, Err: err}
	}
	return string(src), nil
}

func (c *Cache) compileStage(name, source string, kind gpu.StageKind) (gpu.StageHandle, error) {
	stage, err := c.backend.CompileStage(source, kind)
	if err != nil {
		if errors.Is(err, gpu.ErrResourceExhausted) {
			return gpu.NoStage, fmt.Errorf("shader %q: %w", name, err)
		}
		return gpu.NoStage, &ShaderCompileError{Name: name, Stage: kind, Log: err.Error()}
	}
	return stage, nil
}
