package engine

// Depth offsets above the base object's front face. Kinds stack frames,
// then images, then text; siblings of one kind are separated by zEpsilon so
// coplanar entities never z-fight even when the depth buffer is coarse.
const (
	frameZOffset = 0.001
	imageZOffset = 0.002
	textZOffset  = 0.003
	zEpsilon     = 0.00001
)

// ZOffset returns the z coordinate of the siblingIndex-th entity of kind on
// a base object of the given thickness. The base is centered on z=0, so its
// front face sits at baseThickness/2.
func ZOffset(kind Kind, baseThickness float64, siblingIndex int) float64 {
	var off float64
	switch kind {
	case KindFrame:
		off = frameZOffset
	case KindImage:
		off = imageZOffset
	case KindText:
		off = textZOffset
	}
	if siblingIndex < 0 {
		siblingIndex = 0
	}
	return baseThickness/2 + off + float64(siblingIndex)*zEpsilon
}
