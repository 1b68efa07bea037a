// Package component defines the contract every drawable entity component
// satisfies and the per-component state shared by all of them.
//
// A concrete renderable embeds Base and implements InitializeBuffers,
// MeshGroupElementCount and Render. Base owns the buffer slots, geometry
// descriptor, draw and cull modes, lighting flag and the shared shader.
package component

import (
	"fmt"

	"sigma-render/internal/gpu"
	"sigma-render/internal/graphics"
	"sigma-render/internal/logging"
	"sigma-render/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultGroup selects the whole mesh in MeshGroupElementCount.
const DefaultGroup = 0

// EntityID identifies the entity a component belongs to.
type EntityID int

// Renderable is what the draw system sees of a component.
type Renderable interface {
	// InitializeBuffers allocates and fills the component's buffers and
	// geometry descriptor. Calling it on a Ready component is a no-op.
	InitializeBuffers() error
	// MeshGroupElementCount is the number of elements drawn for a sub-group;
	// DefaultGroup covers the whole mesh.
	MeshGroupElementCount(group int) int
	// Render draws the component. It panics if the component is not Ready.
	Render(view, proj mgl32.Mat4)

	DrawMode() gpu.DrawMode
	Vao() gpu.DescriptorHandle
	GetBuffer(slot BufferSlot) gpu.BufferHandle
	SetCullFace(name string)
	LoadShader(name string) error
	GetShader() *graphics.Program
	SetLightingEnabled(enabled bool)
	IsLightingEnabled() bool
	Ready() bool
	Dispose()
}

// Base is the state every renderable component carries.
type Base struct {
	entity  EntityID
	backend gpu.Backend
	shaders *graphics.Cache

	buffers  Buffers
	vao      gpu.DescriptorHandle
	drawMode gpu.DrawMode
	cullFace gpu.CullMode
	ready    bool

	shader   *graphics.Program
	lighting bool
}

// NewBase returns component state for entity 0. shaders may be nil for
// components that never load a shader through the cache.
func NewBase(backend gpu.Backend, shaders *graphics.Cache) Base {
	return NewBaseForEntity(0, backend, shaders)
}

// NewBaseForEntity returns component state owned by entity id.
func NewBaseForEntity(id EntityID, backend gpu.Backend, shaders *graphics.Cache) Base {
	return Base{
		entity:   id,
		backend:  backend,
		shaders:  shaders,
		cullFace: gpu.CullBack,
		lighting: true,
	}
}

func (b *Base) EntityID() EntityID { return b.entity }

// Backend is the GPU backend the component draws with.
func (b *Base) Backend() gpu.Backend { return b.backend }

// GetBuffer returns the buffer at slot, or gpu.NoBuffer if the component did
// not populate it.
func (b *Base) GetBuffer(slot BufferSlot) gpu.BufferHandle {
	return b.buffers.Get(slot)
}

// SetBuffer records a buffer the component allocated itself.
func (b *Base) SetBuffer(slot BufferSlot, h gpu.BufferHandle) {
	b.buffers.Set(slot, h)
}

// AllocateSlot allocates a buffer from the backend and stores it in slot.
func (b *Base) AllocateSlot(slot BufferSlot, target gpu.BufferTarget) (gpu.BufferHandle, error) {
	h, err := b.backend.AllocateBuffer(target)
	if err != nil {
		return gpu.NoBuffer, fmt.Errorf("allocate %s buffer: %w", slot, err)
	}
	b.buffers.Set(slot, h)
	return h, nil
}

// DrawMode is the topology recorded by the last InitializeBuffers.
func (b *Base) DrawMode() gpu.DrawMode { return b.drawMode }

// Vao is the geometry descriptor recorded by the last InitializeBuffers.
func (b *Base) Vao() gpu.DescriptorHandle { return b.vao }

// Ready reports whether InitializeBuffers has completed.
func (b *Base) Ready() bool { return b.ready }

// Attach records the geometry descriptor and draw mode and marks the
// component Ready. Concrete InitializeBuffers implementations call it last.
func (b *Base) Attach(vao gpu.DescriptorHandle, mode gpu.DrawMode) {
	b.vao = vao
	b.drawMode = mode
	b.ready = true
}

// DescribeGeometry creates a geometry descriptor binding every populated
// named slot at its standard location, plus any extra bindings, then
// Attaches it with mode.
func (b *Base) DescribeGeometry(mode gpu.DrawMode, extra ...gpu.AttribBinding) error {
	vao, err := b.backend.CreateGeometryDescriptor()
	if err != nil {
		return fmt.Errorf("create geometry descriptor: %w", err)
	}
	layout := make([]gpu.AttribBinding, 0, b.buffers.Len()+len(extra))
	b.buffers.Each(func(slot BufferSlot, h gpu.BufferHandle) {
		switch {
		case slot == ElemBuf:
			layout = append(layout, gpu.AttribBinding{Buffer: h, Target: gpu.ElementBuffer})
		case slot < NumNamedSlots:
			layout = append(layout, gpu.AttribBinding{
				Location: slot.Location(),
				Buffer:   h,
				Target:   gpu.ArrayBuffer,
				Size:     slot.Components(),
			})
		}
	})
	layout = append(layout, extra...)
	b.backend.BindGeometryDescriptor(vao, layout)
	b.Attach(vao, mode)
	return nil
}

// CullFace is the current cull mode.
func (b *Base) CullFace() gpu.CullMode { return b.cullFace }

// SetCullFace sets the cull mode from "back", "front" or "none". Any other
// value is a configuration bug and panics with *ConfigurationError.
func (b *Base) SetCullFace(name string) {
	mode, err := ParseCullFace(name)
	if err != nil {
		panic(err)
	}
	b.cullFace = mode
}

// ParseCullFace converts a cull face name to a gpu.CullMode.
func ParseCullFace(name string) (gpu.CullMode, error) {
	switch name {
	case "back":
		return gpu.CullBack, nil
	case "front":
		return gpu.CullFront, nil
	case "none":
		return gpu.CullNone, nil
	}
	return gpu.CullNone, &ConfigurationError{Field: "cull_face", Value: name}
}

// LoadShader loads filename.vert and filename.frag through the shared cache
// and makes the program this component's active shader. filename is a
// relative base name such as "shaders/mesh".
func (b *Base) LoadShader(filename string) error {
	if b.shaders == nil {
		return ErrNoShaderCache
	}
	p, err := b.shaders.Load(filename)
	if err != nil {
		return err
	}
	b.shader = p
	return nil
}

// GetShader returns the active shared program, or nil.
func (b *Base) GetShader() *graphics.Program { return b.shader }

func (b *Base) SetLightingEnabled(enabled bool) { b.lighting = enabled }

func (b *Base) IsLightingEnabled() bool { return b.lighting }

// BeginRender binds everything a draw needs: cull mode, geometry descriptor,
// program, the view and projection matrices and the lighting flag. It panics
// with *UninitializedStateError if the component is not Ready or has no
// shader.
func (b *Base) BeginRender(view, proj mgl32.Mat4) *graphics.Program {
	if !b.ready {
		panic(&UninitializedStateError{Op: "Render", Reason: "InitializeBuffers has not completed"})
	}
	if b.shader == nil {
		panic(&UninitializedStateError{Op: "Render", Reason: "no shader loaded"})
	}
	b.backend.SetCullMode(b.cullFace)
	b.backend.UseGeometryDescriptor(b.vao)
	b.shader.Use()
	b.shader.SetMatrix4("view", view)
	b.shader.SetMatrix4("proj", proj)
	b.shader.SetBool("lightingEnabled", b.lighting)
	return b.shader
}

// Draw issues one draw call with the component's draw mode. Components with
// an element buffer draw indexed.
func (b *Base) Draw(count, offset int) {
	if count <= 0 {
		return
	}
	b.backend.IssueDrawCall(b.drawMode, int32(count), int32(offset), b.buffers.Has(ElemBuf))
	profiling.Count("draw_calls", 1)
}

// ReleaseBuffers deletes owned buffers and the geometry descriptor and
// returns the component to the uninitialized state. The active shader is
// kept, so InitializeBuffers may be retried after a failed upload.
func (b *Base) ReleaseBuffers() {
	var hs []gpu.BufferHandle
	b.buffers.Each(func(_ BufferSlot, h gpu.BufferHandle) { hs = append(hs, h) })
	if len(hs) > 0 {
		b.backend.DeleteBuffers(hs...)
	}
	if b.vao != gpu.NoDescriptor {
		b.backend.DeleteGeometryDescriptor(b.vao)
	}
	logging.Logger().Debug("component buffers released", "entity", b.entity, "buffers", len(hs))
	b.buffers.Clear()
	b.vao = gpu.NoDescriptor
	b.ready = false
}

// Release frees the buffers and drops the shared shader reference. The
// program stays in the cache.
func (b *Base) Release() {
	b.ReleaseBuffers()
	b.shader = nil
}

// Dispose is Release; it lets Base satisfy Renderable's lifecycle.
func (b *Base) Dispose() { b.Release() }
