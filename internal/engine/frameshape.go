package engine

import (
	"fmt"
	"math"
)

// ShapeKind is the outline of a frame.
type ShapeKind string

const (
	ShapeCircle    ShapeKind = "circle"
	ShapeRectangle ShapeKind = "rectangle"
	ShapeSquare    ShapeKind = "square"
	ShapeOval      ShapeKind = "oval"
)

// bezierCircle is k = 4 * (sqrt(2) - 1) / 3, the control-point ratio of a
// four-segment cubic approximation of a circle.
const bezierCircle = 0.5522847498

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []any

// FrameGeometry is the extrudable outline of a frame, centered on the origin.
// Outer winds counter-clockwise and Hole clockwise so the renderer can cut
// the hole with a non-zero fill rule.
type FrameGeometry struct {
	Outer     []PathCommand `json:"outer"`
	Hole      []PathCommand `json:"hole"`
	OuterHalf Vec2          `json:"outerHalf"`
	HoleHalf  Vec2          `json:"holeHalf"`
}

// IsEmpty reports whether the geometry has no outline.
func (g FrameGeometry) IsEmpty() bool {
	return len(g.Outer) == 0
}

// GenerateFrameShape builds the outline of a frame of the given kind. The
// hole is inset by frameWidth on every side and collapses to nothing when the
// frame is thicker than half its extent. Unknown kinds return an empty
// geometry and ErrInvalidGeometry.
func GenerateFrameShape(kind ShapeKind, size Size, frameWidth float64) (FrameGeometry, error) {
	var half Vec2
	round := false

	switch kind {
	case ShapeRectangle:
		half = Vec2{size.W / 2, size.H / 2}
	case ShapeSquare:
		side := math.Min(size.W, size.H)
		half = Vec2{side / 2, side / 2}
	case ShapeCircle:
		r := math.Min(size.W, size.H) / 2
		half = Vec2{r, r}
		round = true
	case ShapeOval:
		half = Vec2{size.W / 2, size.H / 2}
		round = true
	default:
		return FrameGeometry{}, fmt.Errorf("%w: shape %q", ErrInvalidGeometry, kind)
	}

	inner := Vec2{
		X: math.Max(0, half.X-frameWidth),
		Y: math.Max(0, half.Y-frameWidth),
	}

	g := FrameGeometry{OuterHalf: half, HoleHalf: inner}
	if round {
		g.Outer = ellipsePath(half.X, half.Y)
		if inner.X > 0 && inner.Y > 0 {
			g.Hole = reverseEllipsePath(inner.X, inner.Y)
		}
	} else {
		g.Outer = rectPath(half.X, half.Y)
		if inner.X > 0 && inner.Y > 0 {
			g.Hole = reverseRectPath(inner.X, inner.Y)
		}
	}
	return g, nil
}

func rectPath(hw, hh float64) []PathCommand {
	return []PathCommand{
		{"M", -hw, -hh},
		{"L", hw, -hh},
		{"L", hw, hh},
		{"L", -hw, hh},
		{"Z"},
	}
}

func reverseRectPath(hw, hh float64) []PathCommand {
	return []PathCommand{
		{"M", -hw, -hh},
		{"L", -hw, hh},
		{"L", hw, hh},
		{"L", hw, -hh},
		{"Z"},
	}
}

// ellipsePath generates path commands for an ellipse using bezier curves.
func ellipsePath(rx, ry float64) []PathCommand {
	kx, ky := rx*bezierCircle, ry*bezierCircle

	// Four bezier curves to approximate an ellipse
	return []PathCommand{
		{"M", rx, 0.0},
		{"C", rx, ky, kx, ry, 0.0, ry},
		{"C", -kx, ry, -rx, ky, -rx, 0.0},
		{"C", -rx, -ky, -kx, -ry, 0.0, -ry},
		{"C", kx, -ry, rx, -ky, rx, 0.0},
		{"Z"},
	}
}

func reverseEllipsePath(rx, ry float64) []PathCommand {
	kx, ky := rx*bezierCircle, ry*bezierCircle
	return []PathCommand{
		{"M", rx, 0.0},
		{"C", rx, -ky, kx, -ry, 0.0, -ry},
		{"C", -kx, -ry, -rx, -ky, -rx, 0.0},
		{"C", -rx, ky, -kx, ry, 0.0, ry},
		{"C", kx, ry, rx, ky, rx, 0.0},
		{"Z"},
	}
}

type shapeKey struct {
	kind       ShapeKind
	w, h       float64
	frameWidth float64
}

// maxShapeEntries bounds the memo; a resize drag produces a new key per move.
const maxShapeEntries = 256

// ShapeCache memoizes GenerateFrameShape on its full input tuple.
type ShapeCache struct {
	entries map[shapeKey]FrameGeometry
}

func NewShapeCache() *ShapeCache {
	return &ShapeCache{entries: make(map[shapeKey]FrameGeometry)}
}

// Get returns the geometry for the inputs, generating it on a miss. Errors
// are not cached.
func (c *ShapeCache) Get(kind ShapeKind, size Size, frameWidth float64) (FrameGeometry, error) {
	key := shapeKey{kind: kind, w: size.W, h: size.H, frameWidth: frameWidth}
	if g, ok := c.entries[key]; ok {
		return g, nil
	}
	g, err := GenerateFrameShape(kind, size, frameWidth)
	if err != nil {
		return g, err
	}
	if len(c.entries) >= maxShapeEntries {
		clear(c.entries)
	}
	c.entries[key] = g
	return g, nil
}

// Len returns the number of memoized shapes.
func (c *ShapeCache) Len() int {
	return len(c.entries)
}
