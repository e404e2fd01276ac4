package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box in either local or world space.
type AABB struct {
	Min, Max mgl64.Vec3
}

// Overlaps reports whether two boxes intersect, touching included.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min.X() <= b.Min.X() && a.Min.Y() <= b.Min.Y() && a.Min.Z() <= b.Min.Z() &&
		a.Max.X() >= b.Max.X() && a.Max.Y() >= b.Max.Y() && a.Max.Z() >= b.Max.Z()
}

// Union returns the smallest box containing both inputs.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{
			math.Min(a.Min.X(), b.Min.X()),
			math.Min(a.Min.Y(), b.Min.Y()),
			math.Min(a.Min.Z(), b.Min.Z()),
		},
		Max: mgl64.Vec3{
			math.Max(a.Max.X(), b.Max.X()),
			math.Max(a.Max.Y(), b.Max.Y()),
			math.Max(a.Max.Z(), b.Max.Z()),
		},
	}
}

// Expanded grows the box by a uniform margin on every side.
func (a AABB) Expanded(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Swept extends the box along a displacement, covering the start and end of
// a motion. Used to fatten broad-phase bounds with predicted movement.
func (a AABB) Swept(d mgl64.Vec3) AABB {
	out := a
	for i := 0; i < 3; i++ {
		if d[i] < 0 {
			out.Min[i] += d[i]
		} else {
			out.Max[i] += d[i]
		}
	}
	return out
}

// Center returns the box midpoint.
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// SurfaceArea is the tree-insertion cost metric.
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2 * (d.X()*d.Y() + d.Y()*d.Z() + d.Z()*d.X())
}

// ContainsPoint reports whether p lies inside the box.
func (a AABB) ContainsPoint(p mgl64.Vec3) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Y() >= a.Min.Y() && p.Y() <= a.Max.Y() &&
		p.Z() >= a.Min.Z() && p.Z() <= a.Max.Z()
}

// RayHit intersects a ray p + t*d, t in [0, tMax], with the box using the
// slab method. Returns the entry parameter and whether the ray hits.
func (a AABB) RayHit(p, d mgl64.Vec3, tMax float64) (float64, bool) {
	tMin := 0.0
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < Epsilon {
			if p[i] < a.Min[i] || p[i] > a.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / d[i]
		t1 := (a.Min[i] - p[i]) * inv
		t2 := (a.Max[i] - p[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// BoundsFromPoints returns the tight box around a point set.
func BoundsFromPoints(points []mgl64.Vec3) AABB {
	box := AABB{
		Min: mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, p := range points {
		for i := 0; i < 3; i++ {
			box.Min[i] = math.Min(box.Min[i], p[i])
			box.Max[i] = math.Max(box.Max[i], p[i])
		}
	}
	return box
}
