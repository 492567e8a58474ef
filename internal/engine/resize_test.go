package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeHandleSigns(t *testing.T) {
	start := Size{W: 0.4, H: 0.4}
	min := Size{W: 0.1, H: 0.1}
	d := Vec2{X: 0.1, Y: 0.1}

	tests := []struct {
		handle Handle
		want   Size
	}{
		{HandleRight, Size{0.5, 0.4}},
		{HandleLeft, Size{0.3, 0.4}},
		{HandleTop, Size{0.4, 0.5}},
		{HandleBottom, Size{0.4, 0.3}},
		{HandleTopRight, Size{0.5, 0.5}},
		{HandleTopLeft, Size{0.3, 0.5}},
		{HandleBottomRight, Size{0.5, 0.3}},
		{HandleBottomLeft, Size{0.3, 0.3}},
		{HandleScale, Size{0.4, 0.5}},
	}
	for _, tt := range tests {
		t.Run(string(tt.handle), func(t *testing.T) {
			got, ok := Resize(start, tt.handle, d, min)
			require.True(t, ok)
			assert.InDelta(t, tt.want.W, got.W, 1e-12)
			assert.InDelta(t, tt.want.H, got.H, 1e-12)
		})
	}
}

func TestResizeUnknownHandle(t *testing.T) {
	start := Size{W: 0.4, H: 0.4}
	got, ok := Resize(start, HandleRemove, Vec2{X: 1}, Size{})
	assert.False(t, ok)
	assert.Equal(t, start, got)
}

func TestResizeNeverDropsBelowMinimum(t *testing.T) {
	min := Size{W: MinImageSize, H: MinImageSize}
	for _, h := range BoxHandles {
		for _, d := range []Vec2{{X: 5, Y: 5}, {X: -5, Y: -5}, {X: 5, Y: -5}, {X: -5, Y: 5}} {
			got, ok := Resize(Size{W: 0.3, H: 0.3}, h, d, min)
			require.True(t, ok)
			assert.GreaterOrEqual(t, got.W, min.W, "handle %s delta %v", h, d)
			assert.GreaterOrEqual(t, got.H, min.H, "handle %s delta %v", h, d)
		}
	}
}

func TestHandlesPerKind(t *testing.T) {
	text := NewTextEntity("t")
	assert.Equal(t, BoxHandles, text.Handles())
	text.Cylindrical = true
	assert.Equal(t, []Handle{HandleScale}, text.Handles())
	assert.True(t, HasHandle(text, HandleScale))
	assert.True(t, HasHandle(text, HandleRemove))
	assert.False(t, HasHandle(text, HandleLeft))

	assert.Equal(t, BoxHandles, NewImageEntity("i").Handles())
	assert.Equal(t, BoxHandles, NewFrameEntity("f").Handles())
}

func TestHandlePositionsFollowRotation(t *testing.T) {
	img := NewImageEntity("i")
	img.Pos = Vec3{X: 1, Y: 1, Z: 0.08}
	img.W, img.H = 0.4, 0.2

	byHandle := func(e Entity) map[Handle]Vec3 {
		out := make(map[Handle]Vec3)
		for _, hp := range HandlePositions(e) {
			out[hp.Handle] = hp.Position
		}
		return out
	}

	got := byHandle(img)
	assert.Len(t, got, len(BoxHandles)+1)
	assert.InDelta(t, 1.2, got[HandleRight].X, 1e-9)
	assert.InDelta(t, 1.0, got[HandleRight].Y, 1e-9)
	assert.InDelta(t, 0.08, got[HandleRight].Z, 1e-12)

	img.Rotate(90)
	got = byHandle(img)
	assert.InDelta(t, 1.0, got[HandleRight].X, 1e-9)
	assert.InDelta(t, 1.2, got[HandleRight].Y, 1e-9)
}
