package config

import "sync"

// RenderSettings holds settings the viewer may change while running.
type RenderSettings struct {
	mu           sync.RWMutex
	swapInterval int
	hotReload    bool
	fpsLimit     int
}

var globalRenderSettings = &RenderSettings{
	swapInterval: 1,
}

// Apply seeds the runtime settings from a loaded configuration.
func Apply(c Config) {
	SetHotReload(c.Assets.WatchShaders)
	SetFPSLimit(c.Window.FPSLimit)
	if c.Window.VSync {
		SetSwapInterval(1)
	} else {
		SetSwapInterval(0)
	}
}

// GetSwapInterval returns the number of vblanks to wait per buffer swap
func GetSwapInterval() int {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.swapInterval
}

// SetSwapInterval sets the swap interval, clamped to [0, 4]
func SetSwapInterval(n int) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > 4 {
		n = 4
	}

	globalRenderSettings.swapInterval = n
}

// GetHotReload reports whether changed shader files are reloaded each frame
func GetHotReload() bool {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.hotReload
}

// SetHotReload enables or disables shader hot reload
func SetHotReload(enabled bool) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.hotReload = enabled
}

// ToggleHotReload flips hot reload and returns the new value
func ToggleHotReload() bool {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.hotReload = !globalRenderSettings.hotReload
	return globalRenderSettings.hotReload
}

// GetFPSLimit returns the frame rate cap, 0 for uncapped
func GetFPSLimit() int {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.fpsLimit
}

// SetFPSLimit sets the frame rate cap. Values below 0 mean uncapped.
func SetFPSLimit(limit int) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}

	globalRenderSettings.fpsLimit = limit
}
