package main

import (
	"testing"
	"time"

	"sigma-render/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestFPSLimiterPaces(t *testing.T) {
	config.SetFPSLimit(100)
	t.Cleanup(func() { config.SetFPSLimit(0) })

	var f fpsLimiter
	start := time.Now()
	for range 5 {
		f.Wait()
	}
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestFPSLimiterUncapped(t *testing.T) {
	config.SetFPSLimit(0)

	var f fpsLimiter
	start := time.Now()
	for range 100 {
		f.Wait()
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.True(t, f.next.IsZero())
}
