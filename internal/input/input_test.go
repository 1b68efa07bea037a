package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestEdgeDetection(t *testing.T) {
	im := NewInputManager()

	im.HandleKeyEvent(glfw.KeyF5, glfw.Press)
	assert.True(t, im.IsActive(ActionReloadShaders))
	assert.True(t, im.JustPressed(ActionReloadShaders))

	im.PostUpdate()
	im.HandleKeyEvent(glfw.KeyF5, glfw.Repeat)
	assert.True(t, im.IsActive(ActionReloadShaders))
	assert.False(t, im.JustPressed(ActionReloadShaders), "repeat is not a new press")

	im.HandleKeyEvent(glfw.KeyF5, glfw.Release)
	assert.False(t, im.IsActive(ActionReloadShaders))
	assert.True(t, im.JustReleased(ActionReloadShaders))

	im.PostUpdate()
	assert.False(t, im.JustReleased(ActionReloadShaders))
}

func TestBindings(t *testing.T) {
	tests := []struct {
		name   string
		key    glfw.Key
		action Action
	}{
		{"escape quits", glfw.KeyEscape, ActionQuit},
		{"equal zooms in", glfw.KeyEqual, ActionZoomIn},
		{"keypad add zooms in", glfw.KeyKPAdd, ActionZoomIn},
		{"minus zooms out", glfw.KeyMinus, ActionZoomOut},
		{"space toggles orbit", glfw.KeySpace, ActionToggleOrbit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := NewInputManager()
			im.HandleKeyEvent(tt.key, glfw.Press)
			assert.True(t, im.JustPressed(tt.action))
		})
	}
}

func TestRebindAndMouse(t *testing.T) {
	im := NewInputManager()
	im.UnbindKey(glfw.KeyL)
	im.BindKey(glfw.KeyK, ActionToggleLighting)
	im.BindKey(glfw.KeyK, ActionCount) // ignored

	im.HandleKeyEvent(glfw.KeyL, glfw.Press)
	assert.False(t, im.IsActive(ActionToggleLighting))
	im.HandleKeyEvent(glfw.KeyK, glfw.Press)
	assert.True(t, im.IsActive(ActionToggleLighting))

	im.HandleMouseButtonEvent(glfw.MouseButtonLeft, glfw.Press)
	assert.True(t, im.IsActive(ActionDrag))
	im.HandleMouseButtonEvent(glfw.MouseButtonLeft, glfw.Release)
	assert.False(t, im.IsActive(ActionDrag))

	assert.False(t, im.IsActive(Action(-1)))
	assert.False(t, im.JustPressed(ActionCount))
}
