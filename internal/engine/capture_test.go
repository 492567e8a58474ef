package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCapturer tracks installed window listeners.
type countingCapturer struct {
	installed int
	captures  int
}

func (c *countingCapturer) Capture() {
	c.installed++
	c.captures++
}

func (c *countingCapturer) Release() { c.installed-- }

func TestCaptureManagerSingleHolder(t *testing.T) {
	sink := &countingCapturer{}
	cm := NewCaptureManager(sink)

	c, ok := cm.Acquire()
	require.True(t, ok)
	assert.True(t, cm.Pending())
	assert.Equal(t, 1, sink.installed)

	_, ok = cm.Acquire()
	assert.False(t, ok)
	assert.Equal(t, 1, sink.captures, "a refused acquire installs nothing")

	c.Release()
	c.Release()
	assert.False(t, cm.Pending())
	assert.Equal(t, 0, sink.installed)

	_, ok = cm.Acquire()
	assert.True(t, ok)
	cm.ReleaseAll()
	assert.Equal(t, 0, sink.installed)
}

func TestCaptureReleaseNil(t *testing.T) {
	var c *Capture
	assert.NotPanics(t, func() { c.Release() })
}

func TestStaleCaptureDoesNotReleaseNewer(t *testing.T) {
	sink := &countingCapturer{}
	cm := NewCaptureManager(sink)

	old, _ := cm.Acquire()
	cm.ReleaseAll()
	_, ok := cm.Acquire()
	require.True(t, ok)

	old.Release()
	assert.True(t, cm.Pending())
	assert.Equal(t, 1, sink.installed)
}
