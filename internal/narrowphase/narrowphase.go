// Package narrowphase decides exact contact between candidate shape pairs
// and builds contact manifolds.
//
// Primitive pairs involving spheres and planes use closed-form tests. The
// remaining convex-convex pairs run GJK for the overlap decision and EPA for
// penetration depth, then clip contact features against each other to
// produce a stable multi-point manifold.
package narrowphase

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// ContactPoint is a single manifold point in world space. Penetration is
// zero for touching contacts and positive for overlap.
type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64
}

// Manifold describes how two shapes touch. The normal is a unit vector
// pointing from shape A toward shape B; pushing B along it separates the
// pair.
type Manifold struct {
	Normal mgl64.Vec3
	Points []ContactPoint
}

// Deepest returns the largest penetration in the manifold.
func (m Manifold) Deepest() float64 {
	var d float64
	for _, p := range m.Points {
		if p.Penetration > d {
			d = p.Penetration
		}
	}
	return d
}

func (m Manifold) flipped() Manifold {
	return Manifold{Normal: m.Normal.Mul(-1), Points: m.Points}
}

// Collide computes the contact manifold for a shape pair, reporting false
// when the shapes are separated by more than the touch tolerance.
func Collide(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform) (Manifold, bool) {
	// Planes only ever appear on the B side; flip if needed. Two planes
	// never collide.
	if a.Kind() == geom.KindPlane {
		if b.Kind() == geom.KindPlane {
			return Manifold{}, false
		}
		m, ok := Collide(b, tb, a, ta)
		if !ok {
			return Manifold{}, false
		}
		return m.flipped(), true
	}

	switch sa := a.(type) {
	case *geom.Sphere:
		switch sb := b.(type) {
		case *geom.Sphere:
			return collideSphereSphere(sa, ta, sb, tb)
		case *geom.Plane:
			return collideSpherePlane(sa, ta, sb, tb)
		case *geom.Box:
			return collideSphereBox(sa, ta, sb, tb)
		case *geom.Capsule:
			return collideSphereCapsule(sa, ta, sb, tb)
		}
	case *geom.Box:
		if sb, ok := b.(*geom.Sphere); ok {
			m, hit := collideSphereBox(sb, tb, sa, ta)
			if !hit {
				return Manifold{}, false
			}
			return m.flipped(), true
		}
	case *geom.Capsule:
		if sb, ok := b.(*geom.Sphere); ok {
			m, hit := collideSphereCapsule(sb, tb, sa, ta)
			if !hit {
				return Manifold{}, false
			}
			return m.flipped(), true
		}
	}

	if pb, ok := b.(*geom.Plane); ok {
		return collideConvexPlane(a.(geom.ConvexShape), ta, pb, tb)
	}

	return collideConvexConvex(a.(geom.ConvexShape), ta, b.(geom.ConvexShape), tb)
}
