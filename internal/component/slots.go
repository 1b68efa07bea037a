package component

import (
	"fmt"

	"sigma-render/internal/gpu"
)

// BufferSlot names the role a buffer plays for a component.
type BufferSlot int

const (
	ElemBuf BufferSlot = iota
	VertBuf
	UVBuf
	ColorBuf
	NormalBuf
	TangentBuf
	BiNormalBuf

	// NumNamedSlots is the number of slots with a fixed meaning.
	NumNamedSlots
)

// MaxBuffers is the buffer capacity of one component. Slots past the named
// ones are handed out by ExtraSlot.
const MaxBuffers = 10

// ExtraSlot returns the i-th type-specific slot (instance data and the like).
func ExtraSlot(i int) BufferSlot {
	s := NumNamedSlots + BufferSlot(i)
	if i < 0 || !s.Valid() {
		panic(fmt.Sprintf("component: extra slot %d out of range", i))
	}
	return s
}

// Valid reports whether s fits in a component's buffer array.
func (s BufferSlot) Valid() bool { return s >= 0 && s < MaxBuffers }

func (s BufferSlot) String() string {
	switch s {
	case ElemBuf:
		return "elem"
	case VertBuf:
		return "vert"
	case UVBuf:
		return "uv"
	case ColorBuf:
		return "color"
	case NormalBuf:
		return "normal"
	case TangentBuf:
		return "tangent"
	case BiNormalBuf:
		return "binormal"
	}
	if s.Valid() {
		return fmt.Sprintf("extra%d", s-NumNamedSlots)
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Location is the shader input location a named vertex slot binds to.
// Shaders in assets/shaders follow this table.
func (s BufferSlot) Location() uint32 {
	switch s {
	case VertBuf:
		return 0
	case ColorBuf:
		return 1
	case NormalBuf:
		return 2
	case UVBuf:
		return 3
	case TangentBuf:
		return 4
	case BiNormalBuf:
		return 5
	}
	return uint32(s)
}

// Components is the number of floats per vertex a named slot carries.
func (s BufferSlot) Components() int32 {
	if s == UVBuf {
		return 2
	}
	return 3
}

// Buffers maps slots to buffer handles. A slot holds at most one handle for
// its lifetime; unset slots read as gpu.NoBuffer.
type Buffers struct {
	handles [MaxBuffers]gpu.BufferHandle
}

// Set assigns h to slot. Reassigning a slot to a different handle, or using
// an out-of-range slot, is a programming error and panics.
func (b *Buffers) Set(slot BufferSlot, h gpu.BufferHandle) {
	if !slot.Valid() {
		panic(fmt.Sprintf("component: buffer slot %d out of range", int(slot)))
	}
	if cur := b.handles[slot]; cur != gpu.NoBuffer && cur != h {
		panic(fmt.Sprintf("component: buffer slot %s already holds %d", slot, cur))
	}
	b.handles[slot] = h
}

// Get returns the handle at slot, or gpu.NoBuffer when the slot is unset or
// out of range.
func (b *Buffers) Get(slot BufferSlot) gpu.BufferHandle {
	if !slot.Valid() {
		return gpu.NoBuffer
	}
	return b.handles[slot]
}

// Has reports whether slot holds a buffer.
func (b *Buffers) Has(slot BufferSlot) bool {
	return b.Get(slot) != gpu.NoBuffer
}

// Len is the number of populated slots.
func (b *Buffers) Len() int {
	n := 0
	for _, h := range b.handles {
		if h != gpu.NoBuffer {
			n++
		}
	}
	return n
}

// Each calls fn for every populated slot in slot order.
func (b *Buffers) Each(fn func(BufferSlot, gpu.BufferHandle)) {
	for i, h := range b.handles {
		if h != gpu.NoBuffer {
			fn(BufferSlot(i), h)
		}
	}
}

// Clear unsets every slot.
func (b *Buffers) Clear() {
	b.handles = [MaxBuffers]gpu.BufferHandle{}
}
