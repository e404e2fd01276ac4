package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// RayHit reports the closest body struck by a ray.
type RayHit struct {
	Body     BodyID
	Distance float64
	Point    mgl64.Vec3
}

// RayCast finds the nearest body along origin + t*dir for t in (0, maxDist].
// Spheres and planes are exact; the remaining shapes are tested against
// their oriented bounding box, which is what pickers need.
func (w *World) RayCast(origin, dir mgl64.Vec3, maxDist float64) (RayHit, bool) {
	if dir.LenSqr() < geom.Epsilon || maxDist <= 0 {
		return RayHit{}, false
	}
	dir = dir.Normalize()

	best := RayHit{Distance: maxDist}
	found := false

	rayBounds := geom.BoundsFromPoints([]mgl64.Vec3{origin, origin.Add(dir.Mul(maxDist))})
	w.tree.Query(rayBounds, func(id int32) {
		idx := w.tree.Data(id)
		b := &w.bodies.slots[idx].value

		t, hit := rayShape(b.shape, b.transform, origin, dir, best.Distance)
		if hit && t <= best.Distance {
			best = RayHit{
				Body:     BodyID{h: handle{index: int32(idx), gen: w.bodies.slots[idx].gen}},
				Distance: t,
				Point:    origin.Add(dir.Mul(t)),
			}
			found = true
		}
	})
	return best, found
}

func rayShape(s geom.Shape, tf geom.Transform, origin, dir mgl64.Vec3, maxDist float64) (float64, bool) {
	switch sh := s.(type) {
	case *geom.Sphere:
		return raySphere(tf.Position, sh.Radius, origin, dir, maxDist)
	case *geom.Plane:
		n := tf.Dir(sh.Normal)
		point := tf.Point(sh.Normal.Mul(sh.Offset))
		denom := dir.Dot(n)
		if math.Abs(denom) < geom.Epsilon {
			return 0, false
		}
		t := point.Sub(origin).Dot(n) / denom
		if t <= 0 || t > maxDist {
			return 0, false
		}
		return t, true
	default:
		// Local-space slab test against the shape's bounding box.
		lo := tf.LocalPoint(origin)
		ld := tf.LocalDir(dir)
		t, hit := s.Bounds().RayHit(lo, ld, maxDist)
		return t, hit
	}
}

func raySphere(center mgl64.Vec3, radius float64, origin, dir mgl64.Vec3, maxDist float64) (float64, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.LenSqr() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t <= 0 || t > maxDist {
		return 0, false
	}
	return t, true
}
