// Package gpu defines the handle vocabulary and the Backend interface that
// renderable components and the shader cache drive. Nothing in this package
// talks to a driver; see glbackend for the OpenGL implementation.
package gpu

import (
	"errors"
	"image"
)

// Opaque handles issued by a Backend. The zero value of each is "unset".
type (
	BufferHandle     uint32
	DescriptorHandle uint32
	StageHandle      uint32
	ProgramHandle    uint32
	TextureHandle    uint32
)

const (
	NoBuffer     BufferHandle     = 0
	NoDescriptor DescriptorHandle = 0
	NoStage      StageHandle      = 0
	NoProgram    ProgramHandle    = 0
	NoTexture    TextureHandle    = 0
)

// ErrResourceExhausted is wrapped by backends when a buffer, descriptor,
// program or texture cannot be allocated.
var ErrResourceExhausted = errors.New("gpu: resource exhausted")

// DrawMode is the primitive topology of a draw call.
type DrawMode uint8

const (
	Triangles DrawMode = iota
	TriangleStrip
	TriangleFan
	Lines
	LineStrip
	Points
)

func (m DrawMode) String() string {
	switch m {
	case Triangles:
		return "triangles"
	case TriangleStrip:
		return "triangle_strip"
	case TriangleFan:
		return "triangle_fan"
	case Lines:
		return "lines"
	case LineStrip:
		return "line_strip"
	case Points:
		return "points"
	}
	return "unknown"
}

// CullMode selects which winding is discarded before rasterization.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

func (c CullMode) String() string {
	switch c {
	case CullNone:
		return "none"
	case CullBack:
		return "back"
	case CullFront:
		return "front"
	}
	return "unknown"
}

// StageKind identifies a programmable pipeline stage.
type StageKind uint8

const (
	VertexStage StageKind = iota
	FragmentStage
)

// Ext is the file extension a stage's source is stored under.
func (k StageKind) Ext() string {
	if k == FragmentStage {
		return ".frag"
	}
	return ".vert"
}

func (k StageKind) String() string {
	if k == FragmentStage {
		return "fragment"
	}
	return "vertex"
}

// BufferTarget is what a buffer is bound as.
type BufferTarget uint8

const (
	ArrayBuffer BufferTarget = iota
	ElementBuffer
)

// AttribBinding maps one buffer to a shader input location inside a
// geometry descriptor. Element buffers ignore Location and Size.
type AttribBinding struct {
	Location uint32
	Buffer   BufferHandle
	Target   BufferTarget
	Size     int32 // components per vertex
}

// Backend is the GPU surface the core drives. Implementations are bound to
// a single thread (the one owning the context) unless documented otherwise.
type Backend interface {
	AllocateBuffer(target BufferTarget) (BufferHandle, error)
	UploadFloats(h BufferHandle, data []float32)
	UploadIndices(h BufferHandle, data []uint32)
	DeleteBuffers(hs ...BufferHandle)

	CreateGeometryDescriptor() (DescriptorHandle, error)
	BindGeometryDescriptor(d DescriptorHandle, layout []AttribBinding)
	UseGeometryDescriptor(d DescriptorHandle)
	DeleteGeometryDescriptor(d DescriptorHandle)

	CompileStage(source string, kind StageKind) (StageHandle, error)
	LinkProgram(stages ...StageHandle) (ProgramHandle, error)
	DeleteStage(s StageHandle)
	DeleteProgram(p ProgramHandle)
	UseProgram(p ProgramHandle)

	SetUniformMatrix4(p ProgramHandle, name string, m *[16]float32)
	SetUniformVec3(p ProgramHandle, name string, x, y, z float32)
	SetUniformFloat(p ProgramHandle, name string, v float32)
	SetUniformInt(p ProgramHandle, name string, v int32)

	Clear(r, g, b, a float32)
	SetCullMode(c CullMode)
	IssueDrawCall(mode DrawMode, elementCount, primitiveOffset int32, indexed bool)

	CreateTexture(img *image.RGBA) (TextureHandle, error)
	BindTexture(unit uint32, h TextureHandle)
	DeleteTexture(h TextureHandle)
}
