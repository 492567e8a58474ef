package engine

import "math"

// Delta sensitivities. Screen deltas are in pixels, world deltas in scene
// units; both are converted into scene units with +Y pointing up.
const (
	ScreenSensitivity = 0.005
	WorldSensitivity  = 1.0
)

// Vec2 is a 2D vector in scene units unless noted otherwise.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) ApproxEq(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) XY() Vec2 { return Vec2{v.X, v.Y} }

// Ray is a half-line from Origin along Dir, typically a camera pick ray.
type Ray struct {
	Origin Vec3 `json:"origin"`
	Dir    Vec3 `json:"dir"`
}

// Plane is defined by a point on it and its normal.
type Plane struct {
	Point  Vec3 `json:"point"`
	Normal Vec3 `json:"normal"`
}

// FacePlane returns the plane parallel to the base object's front face at depth z.
func FacePlane(z float64) Plane {
	return Plane{Point: Vec3{Z: z}, Normal: Vec3{Z: 1}}
}

// IntersectPlane returns the point where the ray crosses p. The second
// result is false when the ray is parallel to the plane or points away from it.
func (r Ray) IntersectPlane(p Plane) (Vec3, bool) {
	denom := p.Normal.Dot(r.Dir)
	if math.Abs(denom) < 1e-9 {
		return Vec3{}, false
	}
	t := p.Point.Sub(r.Origin).Dot(p.Normal) / denom
	if t < 0 {
		return Vec3{}, false
	}
	return r.Origin.Add(r.Dir.Scale(t)), true
}

// ScreenToNDC maps a pixel position in a viewport to normalized device
// coordinates in [-1, 1] with +Y up.
func ScreenToNDC(x, y, width, height float64) Vec2 {
	if width <= 0 || height <= 0 {
		return Vec2{}
	}
	return Vec2{
		X: x/width*2 - 1,
		Y: -(y/height*2 - 1),
	}
}

// ScreenDelta converts a pixel displacement into scene units. Screen Y grows
// downward, so it is negated.
func ScreenDelta(start, cur Vec2) Vec2 {
	return Vec2{
		X: (cur.X - start.X) * ScreenSensitivity,
		Y: -(cur.Y - start.Y) * ScreenSensitivity,
	}
}

// WorldDelta converts a displacement between two face-plane hits into scene units.
func WorldDelta(start, cur Vec3) Vec2 {
	return Vec2{
		X: (cur.X - start.X) * WorldSensitivity,
		Y: (cur.Y - start.Y) * WorldSensitivity,
	}
}

// PointerSample is the part of a pointer event the mapper needs.
type PointerSample struct {
	Screen Vec2
	World  *Vec3
}

// Delta returns the displacement between two samples, preferring world hits
// when both samples have one.
func Delta(start, cur PointerSample) Vec2 {
	if start.World != nil && cur.World != nil {
		return WorldDelta(*start.World, *cur.World)
	}
	return ScreenDelta(start.Screen, cur.Screen)
}
