package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZOffsetStacksKinds(t *testing.T) {
	const thickness = 0.15
	frame := ZOffset(KindFrame, thickness, 0)
	image := ZOffset(KindImage, thickness, 0)
	text := ZOffset(KindText, thickness, 0)

	assert.InDelta(t, 0.076, frame, 1e-12)
	assert.Less(t, frame, image)
	assert.Less(t, image, text)
	assert.Greater(t, frame, thickness/2, "entities sit in front of the base face")
}

func TestZOffsetSeparatesSiblings(t *testing.T) {
	a := ZOffset(KindText, 0.1, 0)
	b := ZOffset(KindText, 0.1, 1)
	assert.InDelta(t, zEpsilon, b-a, 1e-12)
	assert.Equal(t, a, ZOffset(KindText, 0.1, -3))
}
