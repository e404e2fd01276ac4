package geom

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrDegenerate rejects ill-conditioned geometry at creation time: zero or
// negative extents, non-finite parameters, or hulls without volume.
var ErrDegenerate = errors.New("geom: degenerate shape")

// Kind tags the closed set of shape variants.
type Kind int

const (
	KindSphere Kind = iota
	KindBox
	KindCapsule
	KindHull
	KindPlane
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	case KindCapsule:
		return "capsule"
	case KindHull:
		return "hull"
	case KindPlane:
		return "plane"
	}
	return "unknown"
}

// Shape is an immutable collision shape. Implementations precompute their
// local bounds at construction, so Bounds is a field read.
type Shape interface {
	Kind() Kind
	// Bounds returns the shape's bounding box in local space.
	Bounds() AABB
	// Mass returns the mass for a given uniform density.
	Mass(density float64) float64
	// Inertia returns the local inertia tensor for the given mass.
	Inertia(mass float64) mgl64.Mat3
}

// ConvexShape is a shape with a support function, usable by GJK/EPA. Every
// shape except Plane is convex; planes are handled by closed-form paths.
type ConvexShape interface {
	Shape
	// Support returns the farthest local point in the given local direction.
	Support(dir mgl64.Vec3) mgl64.Vec3
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v mgl64.Vec3) bool {
	return finite(v.X()) && finite(v.Y()) && finite(v.Z())
}

// WorldBounds returns a conservative world-space bound for a shape under a
// pose. Spheres and capsules are exact; boxes and hulls rotate their local
// box, which always contains the transformed shape.
func WorldBounds(s Shape, t Transform) AABB {
	switch sh := s.(type) {
	case *Sphere:
		r := mgl64.Vec3{sh.Radius, sh.Radius, sh.Radius}
		return AABB{Min: t.Position.Sub(r), Max: t.Position.Add(r)}
	case *Capsule:
		a := t.Point(mgl64.Vec3{0, sh.HalfHeight, 0})
		b := t.Point(mgl64.Vec3{0, -sh.HalfHeight, 0})
		r := mgl64.Vec3{sh.Radius, sh.Radius, sh.Radius}
		box := AABB{Min: a.Sub(r), Max: a.Add(r)}
		return box.Union(AABB{Min: b.Sub(r), Max: b.Add(r)})
	case *Plane:
		return sh.worldBounds(t)
	default:
		local := s.Bounds()
		c := local.Center()
		h := local.Max.Sub(c)
		// Rotate the local box: world half-extent along each axis is the
		// absolute row sum of the rotation matrix times the local extents.
		m := t.RotationMat3()
		wc := t.Point(c)
		var wh mgl64.Vec3
		for row := 0; row < 3; row++ {
			wh[row] = math.Abs(m.At(row, 0))*h.X() +
				math.Abs(m.At(row, 1))*h.Y() +
				math.Abs(m.At(row, 2))*h.Z()
		}
		return AABB{Min: wc.Sub(wh), Max: wc.Add(wh)}
	}
}
