// Package gputest provides an in-memory gpu.Backend that records every call.
package gputest

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"sigma-render/internal/gpu"
)

// FailMarker makes CompileStage fail for any source containing it.
const FailMarker = "#error"

// LinkFailMarker makes LinkProgram fail when any attached stage's source
// contains it.
const LinkFailMarker = "#link-error"

// DrawCall is one recorded IssueDrawCall.
type DrawCall struct {
	Mode       gpu.DrawMode
	Count      int32
	Offset     int32
	Indexed    bool
	Descriptor gpu.DescriptorHandle
	Program    gpu.ProgramHandle
	Cull       gpu.CullMode
}

// Backend is a deterministic fake. Handles are issued from a single counter so
// no two resources ever share a handle value. It is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	next uint32

	// ExhaustAfter, when > 0, makes every allocation fail once that many
	// handles have been issued.
	ExhaustAfter int

	stageSrc  map[gpu.StageHandle]string
	Buffers   map[gpu.BufferHandle][]float32
	Indices   map[gpu.BufferHandle][]uint32
	Layouts   map[gpu.DescriptorHandle][]gpu.AttribBinding
	Programs  map[gpu.ProgramHandle][]gpu.StageHandle
	Textures  map[gpu.TextureHandle]image.Rectangle
	Uniforms  map[gpu.ProgramHandle]map[string]any
	Draws     []DrawCall
	Deleted   []uint32
	compiles  int
	links     int
	bound     gpu.DescriptorHandle
	program   gpu.ProgramHandle
	cull      gpu.CullMode
	textures  map[uint32]gpu.TextureHandle
	liveStage int
	clears    int
}

var _ gpu.Backend = (*Backend)(nil)

// New returns an empty recording backend.
func New() *Backend {
	return &Backend{
		stageSrc: make(map[gpu.StageHandle]string),
		Buffers:  make(map[gpu.BufferHandle][]float32),
		Indices:  make(map[gpu.BufferHandle][]uint32),
		Layouts:  make(map[gpu.DescriptorHandle][]gpu.AttribBinding),
		Programs: make(map[gpu.ProgramHandle][]gpu.StageHandle),
		Textures: make(map[gpu.TextureHandle]image.Rectangle),
		Uniforms: make(map[gpu.ProgramHandle]map[string]any),
		textures: make(map[uint32]gpu.TextureHandle),
	}
}

func (b *Backend) issue(what string) (uint32, error) {
	if b.ExhaustAfter > 0 && int(b.next) >= b.ExhaustAfter {
		return 0, fmt.Errorf("%s: %w", what, gpu.ErrResourceExhausted)
	}
	b.next++
	return b.next, nil
}

func (b *Backend) AllocateBuffer(target gpu.BufferTarget) (gpu.BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, err := b.issue("buffer")
	if err != nil {
		return gpu.NoBuffer, err
	}
	if target == gpu.ElementBuffer {
		b.Indices[gpu.BufferHandle(h)] = nil
	} else {
		b.Buffers[gpu.BufferHandle(h)] = nil
	}
	return gpu.BufferHandle(h), nil
}

func (b *Backend) UploadFloats(h gpu.BufferHandle, data []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Buffers[h] = append([]float32(nil), data...)
}

func (b *Backend) UploadIndices(h gpu.BufferHandle, data []uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Indices[h] = append([]uint32(nil), data...)
}

func (b *Backend) DeleteBuffers(hs ...gpu.BufferHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range hs {
		delete(b.Buffers, h)
		delete(b.Indices, h)
		b.Deleted = append(b.Deleted, uint32(h))
	}
}

func (b *Backend) CreateGeometryDescriptor() (gpu.DescriptorHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, err := b.issue("descriptor")
	if err != nil {
		return gpu.NoDescriptor, err
	}
	b.Layouts[gpu.DescriptorHandle(h)] = nil
	return gpu.DescriptorHandle(h), nil
}

func (b *Backend) BindGeometryDescriptor(d gpu.DescriptorHandle, layout []gpu.AttribBinding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Layouts[d] = append([]gpu.AttribBinding(nil), layout...)
}

func (b *Backend) UseGeometryDescriptor(d gpu.DescriptorHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound = d
}

func (b *Backend) DeleteGeometryDescriptor(d gpu.DescriptorHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Layouts, d)
	b.Deleted = append(b.Deleted, uint32(d))
}

func (b *Backend) CompileStage(source string, kind gpu.StageKind) (gpu.StageHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.Contains(source, FailMarker) {
		return gpu.NoStage, fmt.Errorf("0:1(1): error: %s stage rejected", kind)
	}
	h, err := b.issue("stage")
	if err != nil {
		return gpu.NoStage, err
	}
	b.compiles++
	b.liveStage++
	b.stageSrc[gpu.StageHandle(h)] = source
	return gpu.StageHandle(h), nil
}

func (b *Backend) LinkProgram(stages ...gpu.StageHandle) (gpu.ProgramHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range stages {
		src, ok := b.stageSrc[s]
		if !ok {
			return gpu.NoProgram, errors.New("link: unknown stage")
		}
		if strings.Contains(src, LinkFailMarker) {
			return gpu.NoProgram, errors.New("error: linking failed, unresolved varying")
		}
	}
	h, err := b.issue("program")
	if err != nil {
		return gpu.NoProgram, err
	}
	b.links++
	b.Programs[gpu.ProgramHandle(h)] = append([]gpu.StageHandle(nil), stages...)
	return gpu.ProgramHandle(h), nil
}

func (b *Backend) DeleteStage(s gpu.StageHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.stageSrc[s]; ok {
		delete(b.stageSrc, s)
		b.liveStage--
	}
}

func (b *Backend) DeleteProgram(p gpu.ProgramHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Programs, p)
	delete(b.Uniforms, p)
	b.Deleted = append(b.Deleted, uint32(p))
}

func (b *Backend) UseProgram(p gpu.ProgramHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = p
}

func (b *Backend) setUniform(p gpu.ProgramHandle, name string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.Uniforms[p]
	if !ok {
		u = make(map[string]any)
		b.Uniforms[p] = u
	}
	u[name] = v
}

func (b *Backend) SetUniformMatrix4(p gpu.ProgramHandle, name string, m *[16]float32) {
	b.setUniform(p, name, *m)
}

func (b *Backend) SetUniformVec3(p gpu.ProgramHandle, name string, x, y, z float32) {
	b.setUniform(p, name, [3]float32{x, y, z})
}

func (b *Backend) SetUniformFloat(p gpu.ProgramHandle, name string, v float32) {
	b.setUniform(p, name, v)
}

func (b *Backend) SetUniformInt(p gpu.ProgramHandle, name string, v int32) {
	b.setUniform(p, name, v)
}

func (b *Backend) Clear(r, g, bl, a float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clears++
}

func (b *Backend) SetCullMode(c gpu.CullMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cull = c
}

func (b *Backend) IssueDrawCall(mode gpu.DrawMode, elementCount, primitiveOffset int32, indexed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Draws = append(b.Draws, DrawCall{
		Mode:       mode,
		Count:      elementCount,
		Offset:     primitiveOffset,
		Indexed:    indexed,
		Descriptor: b.bound,
		Program:    b.program,
		Cull:       b.cull,
	})
}

func (b *Backend) CreateTexture(img *image.RGBA) (gpu.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, err := b.issue("texture")
	if err != nil {
		return gpu.NoTexture, err
	}
	b.Textures[gpu.TextureHandle(h)] = img.Rect
	return gpu.TextureHandle(h), nil
}

func (b *Backend) BindTexture(unit uint32, h gpu.TextureHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures[unit] = h
}

func (b *Backend) DeleteTexture(h gpu.TextureHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Textures, h)
	b.Deleted = append(b.Deleted, uint32(h))
}

// Compiles is the number of successful CompileStage calls.
func (b *Backend) Compiles() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compiles
}

// Links is the number of successful LinkProgram calls.
func (b *Backend) Links() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.links
}

// Clears is the number of Clear calls.
func (b *Backend) Clears() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clears
}

// LiveStages is the number of compiled stages not yet deleted.
func (b *Backend) LiveStages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.liveStage
}

// BoundDescriptor is the descriptor most recently passed to UseGeometryDescriptor.
func (b *Backend) BoundDescriptor() gpu.DescriptorHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bound
}

// ActiveProgram is the program most recently passed to UseProgram.
func (b *Backend) ActiveProgram() gpu.ProgramHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.program
}

// Cull is the cull mode most recently set.
func (b *Backend) Cull() gpu.CullMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cull
}

// BoundTexture is the texture bound to a unit.
func (b *Backend) BoundTexture(unit uint32) gpu.TextureHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.textures[unit]
}

// Uniform returns the last value uploaded for a program uniform.
func (b *Backend) Uniform(p gpu.ProgramHandle, name string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.Uniforms[p][name]
	return v, ok
}

// DrawCalls returns a copy of the recorded draws.
func (b *Backend) DrawCalls() []DrawCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DrawCall(nil), b.Draws...)
}

// ResetDraws clears the recorded draws.
func (b *Backend) ResetDraws() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Draws = nil
}

// WasDeleted reports whether a handle value was passed to any Delete call.
func (b *Backend) WasDeleted(h uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.Deleted {
		if d == h {
			return true
		}
	}
	return false
}
