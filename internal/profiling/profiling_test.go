package profiling

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackAndReset(t *testing.T) {
	ResetFrame()
	stop := Track("renderer.mesh")
	time.Sleep(time.Millisecond)
	stop()
	Count("draw_calls", 3)
	Count("draw_calls", 2)

	assert.GreaterOrEqual(t, Snapshot()["renderer.mesh"], time.Millisecond)
	assert.Equal(t, 5, Counter("draw_calls"))
	assert.Equal(t, Snapshot()["renderer.mesh"], SumWithPrefix("renderer."))

	ResetFrame()
	assert.Empty(t, Snapshot())
	assert.Zero(t, Counter("draw_calls"))
}

func TestTopNOrdersBySlowest(t *testing.T) {
	ResetFrame()
	mu.Lock()
	totals["a"] = 1 * time.Millisecond
	totals["b"] = 3 * time.Millisecond
	totals["c"] = 2 * time.Millisecond
	mu.Unlock()

	got := TopN(2)
	assert.Equal(t, "b:3.0ms, c:2.0ms", got)
	assert.Equal(t, 3, len(strings.Split(TopN(10), ", ")))
	ResetFrame()
}
