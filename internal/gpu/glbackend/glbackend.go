// Package glbackend implements gpu.Backend on OpenGL 4.1 core.
//
// Every method must be called from the thread that owns the GL context.
package glbackend

import (
	"fmt"
	"image"
	"strings"

	"sigma-render/internal/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Backend drives the current OpenGL context.
type Backend struct {
	uniforms map[gpu.ProgramHandle]map[string]int32
}

var _ gpu.Backend = (*Backend)(nil)

// New loads the GL function pointers for the current context and sets the
// baseline pipeline state.
func New() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init gl: %w", err)
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.FrontFace(gl.CCW)
	return &Backend{uniforms: make(map[gpu.ProgramHandle]map[string]int32)}, nil
}

// Version reports the driver's GL version string.
func (b *Backend) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (b *Backend) AllocateBuffer(target gpu.BufferTarget) (gpu.BufferHandle, error) {
	var h uint32
	gl.GenBuffers(1, &h)
	if h == 0 {
		return gpu.NoBuffer, fmt.Errorf("gen buffer: %w", gpu.ErrResourceExhausted)
	}
	return gpu.BufferHandle(h), nil
}

func (b *Backend) UploadFloats(h gpu.BufferHandle, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(h))
	if len(data) == 0 {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
}

func (b *Backend) UploadIndices(h gpu.BufferHandle, data []uint32) {
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(h))
	if len(data) == 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
}

func (b *Backend) DeleteBuffers(hs ...gpu.BufferHandle) {
	for _, h := range hs {
		if h == gpu.NoBuffer {
			continue
		}
		id := uint32(h)
		gl.DeleteBuffers(1, &id)
	}
}

func (b *Backend) CreateGeometryDescriptor() (gpu.DescriptorHandle, error) {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	if vao == 0 {
		return gpu.NoDescriptor, fmt.Errorf("gen vertex array: %w", gpu.ErrResourceExhausted)
	}
	return gpu.DescriptorHandle(vao), nil
}

// BindGeometryDescriptor records the attribute layout into the VAO. Each
// array buffer is tightly packed float32 data.
func (b *Backend) BindGeometryDescriptor(d gpu.DescriptorHandle, layout []gpu.AttribBinding) {
	gl.BindVertexArray(uint32(d))
	for _, a := range layout {
		if a.Target == gpu.ElementBuffer {
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(a.Buffer))
			continue
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, uint32(a.Buffer))
		gl.EnableVertexAttribArray(a.Location)
		gl.VertexAttribPointerWithOffset(a.Location, a.Size, gl.FLOAT, false, a.Size*4, 0)
	}
	gl.BindVertexArray(0)
}

func (b *Backend) UseGeometryDescriptor(d gpu.DescriptorHandle) {
	gl.BindVertexArray(uint32(d))
}

func (b *Backend) DeleteGeometryDescriptor(d gpu.DescriptorHandle) {
	if d == gpu.NoDescriptor {
		return
	}
	id := uint32(d)
	gl.DeleteVertexArrays(1, &id)
}

func (b *Backend) CompileStage(source string, kind gpu.StageKind) (gpu.StageHandle, error) {
	shaderType := uint32(gl.VERTEX_SHADER)
	if kind == gpu.FragmentStage {
		shaderType = gl.FRAGMENT_SHADER
	}
	shader := gl.CreateShader(shaderType)
	if shader == 0 {
		return gpu.NoStage, fmt.Errorf("create %s shader: %w", kind, gpu.ErrResourceExhausted)
	}
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return gpu.NoStage, fmt.Errorf("%s", strings.TrimRight(log, "\x00"))
	}
	return gpu.StageHandle(shader), nil
}

func (b *Backend) LinkProgram(stages ...gpu.StageHandle) (gpu.ProgramHandle, error) {
	program := gl.CreateProgram()
	if program == 0 {
		return gpu.NoProgram, fmt.Errorf("create program: %w", gpu.ErrResourceExhausted)
	}
	for _, s := range stages {
		gl.AttachShader(program, uint32(s))
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return gpu.NoProgram, fmt.Errorf("%s", strings.TrimRight(log, "\x00"))
	}
	for _, s := range stages {
		gl.DetachShader(program, uint32(s))
	}
	return gpu.ProgramHandle(program), nil
}

func (b *Backend) DeleteStage(s gpu.StageHandle) {
	if s != gpu.NoStage {
		gl.DeleteShader(uint32(s))
	}
}

func (b *Backend) DeleteProgram(p gpu.ProgramHandle) {
	if p == gpu.NoProgram {
		return
	}
	delete(b.uniforms, p)
	gl.DeleteProgram(uint32(p))
}

func (b *Backend) UseProgram(p gpu.ProgramHandle) {
	gl.UseProgram(uint32(p))
}

// location returns the cached uniform location, querying the driver once
// per (program, name).
func (b *Backend) location(p gpu.ProgramHandle, name string) int32 {
	locs, ok := b.uniforms[p]
	if !ok {
		locs = make(map[string]int32)
		b.uniforms[p] = locs
	}
	if loc, ok := locs[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
	locs[name] = loc
	return loc
}

func (b *Backend) SetUniformMatrix4(p gpu.ProgramHandle, name string, m *[16]float32) {
	if loc := b.location(p, name); loc != -1 {
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
}

func (b *Backend) SetUniformVec3(p gpu.ProgramHandle, name string, x, y, z float32) {
	if loc := b.location(p, name); loc != -1 {
		gl.Uniform3f(loc, x, y, z)
	}
}

func (b *Backend) SetUniformFloat(p gpu.ProgramHandle, name string, v float32) {
	if loc := b.location(p, name); loc != -1 {
		gl.Uniform1f(loc, v)
	}
}

func (b *Backend) SetUniformInt(p gpu.ProgramHandle, name string, v int32) {
	if loc := b.location(p, name); loc != -1 {
		gl.Uniform1i(loc, v)
	}
}

// Clear clears the color and depth buffers.
func (b *Backend) Clear(r, g, bl, a float32) {
	gl.ClearColor(r, g, bl, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (b *Backend) SetCullMode(c gpu.CullMode) {
	switch c {
	case gpu.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case gpu.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Disable(gl.CULL_FACE)
	}
}

func (b *Backend) IssueDrawCall(mode gpu.DrawMode, elementCount, primitiveOffset int32, indexed bool) {
	if elementCount <= 0 {
		return
	}
	if indexed {
		gl.DrawElements(glMode(mode), elementCount, gl.UNSIGNED_INT, gl.PtrOffset(int(primitiveOffset)*4))
		return
	}
	gl.DrawArrays(glMode(mode), primitiveOffset, elementCount)
}

func glMode(m gpu.DrawMode) uint32 {
	switch m {
	case gpu.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.TriangleFan:
		return gl.TRIANGLE_FAN
	case gpu.Lines:
		return gl.LINES
	case gpu.LineStrip:
		return gl.LINE_STRIP
	case gpu.Points:
		return gl.POINTS
	}
	return gl.TRIANGLES
}

func (b *Backend) CreateTexture(img *image.RGBA) (gpu.TextureHandle, error) {
	var texture uint32
	gl.GenTextures(1, &texture)
	if texture == 0 {
		return gpu.NoTexture, fmt.Errorf("gen texture: %w", gpu.ErrResourceExhausted)
	}
	gl.BindTexture(gl.TEXTURE_2D, texture)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	size := img.Rect.Size()
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(size.X),
		int32(size.Y),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return gpu.TextureHandle(texture), nil
}

func (b *Backend) BindTexture(unit uint32, h gpu.TextureHandle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(h))
}

func (b *Backend) DeleteTexture(h gpu.TextureHandle) {
	if h == gpu.NoTexture {
		return
	}
	id := uint32(h)
	gl.DeleteTextures(1, &id)
}
