package narrowphase

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

const (
	maxManifoldPoints = 4

	// featureTolerance decides how far behind the support extreme a vertex
	// may sit and still count as part of the contact feature.
	featureTolerance = 0.01
)

// contactFeature is the polygon of a shape's surface most aligned with dir.
// One point for spheres and corner contacts, two for an edge, three or more
// for a face.
func contactFeature(s geom.ConvexShape, t geom.Transform, dir mgl64.Vec3) []mgl64.Vec3 {
	switch sh := s.(type) {
	case *geom.Sphere:
		return []mgl64.Vec3{t.Position.Add(dir.Mul(sh.Radius))}
	case *geom.Capsule:
		local := t.LocalDir(dir)
		top := t.Point(mgl64.Vec3{0, sh.HalfHeight, 0})
		bottom := t.Point(mgl64.Vec3{0, -sh.HalfHeight, 0})
		off := dir.Mul(sh.Radius)
		if math.Abs(local.Y()) < featureTolerance {
			return []mgl64.Vec3{top.Add(off), bottom.Add(off)}
		}
		if local.Y() > 0 {
			return []mgl64.Vec3{top.Add(off)}
		}
		return []mgl64.Vec3{bottom.Add(off)}
	case *geom.Box:
		return extremeVertices(boxCornerList(sh, t), dir)
	case *geom.ConvexHull:
		world := make([]mgl64.Vec3, len(sh.Points))
		for i, p := range sh.Points {
			world[i] = t.Point(p)
		}
		return extremeVertices(world, dir)
	default:
		return []mgl64.Vec3{geom.SupportWorld(s, t, dir)}
	}
}

func boxCornerList(b *geom.Box, t geom.Transform) []mgl64.Vec3 {
	corners := b.Corners()
	world := make([]mgl64.Vec3, len(corners))
	for i, c := range corners {
		world[i] = t.Point(c)
	}
	return world
}

// extremeVertices keeps the vertices within featureTolerance of the support
// extreme along dir, ordered counter-clockwise around dir so clipping sees a
// proper convex polygon.
func extremeVertices(points []mgl64.Vec3, dir mgl64.Vec3) []mgl64.Vec3 {
	best := math.Inf(-1)
	for _, p := range points {
		if d := p.Dot(dir); d > best {
			best = d
		}
	}
	var out []mgl64.Vec3
	for _, p := range points {
		if p.Dot(dir) > best-featureTolerance {
			out = append(out, p)
		}
	}
	if len(out) > 2 {
		sortPolygon(out, dir)
	}
	return out
}

func sortPolygon(points []mgl64.Vec3, normal mgl64.Vec3) {
	var center mgl64.Vec3
	for _, p := range points {
		center = center.Add(p)
	}
	center = center.Mul(1 / float64(len(points)))
	tx, ty := tangentBasis(normal)
	sort.Slice(points, func(i, j int) bool {
		ri, rj := points[i].Sub(center), points[j].Sub(center)
		return math.Atan2(ri.Dot(ty), ri.Dot(tx)) < math.Atan2(rj.Dot(ty), rj.Dot(tx))
	})
}

// tangentBasis builds two unit vectors orthogonal to n and each other.
func tangentBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var t mgl64.Vec3
	if math.Abs(n.X()) > 0.707 {
		t = mgl64.Vec3{n.Y(), -n.X(), 0}
	} else {
		t = mgl64.Vec3{0, n.Z(), -n.Y()}
	}
	t = t.Normalize()
	return t, n.Cross(t)
}

// clipPolygon runs Sutherland-Hodgman: incident is clipped against the side
// planes of the reference polygon (planes contain the reference edges and
// face inward, parallel to the reference normal).
func clipPolygon(incident, reference []mgl64.Vec3, refNormal mgl64.Vec3) []mgl64.Vec3 {
	out := incident
	n := len(reference)
	for i := 0; i < n && len(out) > 0; i++ {
		a, b := reference[i], reference[(i+1)%n]
		planeN := refNormal.Cross(b.Sub(a))
		if planeN.LenSqr() < geom.Epsilon {
			continue
		}
		planeN = planeN.Normalize()
		out = clipAgainstPlane(out, planeN, a.Dot(planeN))
	}
	return out
}

func clipAgainstPlane(poly []mgl64.Vec3, n mgl64.Vec3, offset float64) []mgl64.Vec3 {
	var out []mgl64.Vec3
	for i := range poly {
		cur, next := poly[i], poly[(i+1)%len(poly)]
		dc, dn := cur.Dot(n)-offset, next.Dot(n)-offset
		if dc >= 0 {
			out = append(out, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			out = append(out, cur.Add(next.Sub(cur).Mul(t)))
		}
	}
	return out
}

// collideConvexConvex handles the shape pairs with no closed form: GJK
// decides overlap, EPA finds the separating axis and depth, and feature
// clipping spreads the contact over the touching faces.
func collideConvexConvex(a geom.ConvexShape, ta geom.Transform, b geom.ConvexShape, tb geom.Transform) (Manifold, bool) {
	var s simplex
	if !gjk(a, ta, b, tb, &s) {
		return Manifold{}, false
	}
	normal, depth, ok := epa(a, ta, b, tb, &s)
	if !ok {
		return Manifold{}, false
	}

	// Normal points from A toward B. Feature on A faces along the normal,
	// feature on B faces against it.
	featA := contactFeature(a, ta, normal)
	featB := contactFeature(b, tb, normal.Mul(-1))

	points := clipFeatures(featA, featB, normal)
	if len(points) == 0 {
		// Both features collapsed; anchor the contact between the two
		// support points.
		sa := geom.SupportWorld(a, ta, normal)
		sb := geom.SupportWorld(b, tb, normal.Mul(-1))
		points = []mgl64.Vec3{sa.Add(sb).Mul(0.5)}
	}

	m := Manifold{Normal: normal}
	for _, p := range points {
		m.Points = append(m.Points, ContactPoint{Position: p, Penetration: depth})
	}
	m.Points = dedupePoints(m.Points)
	if len(m.Points) > maxManifoldPoints {
		m.Points = reducePoints(m.Points, m.Normal)
	}
	return m, true
}

func clipFeatures(featA, featB []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	switch {
	case len(featA) == 1:
		return []mgl64.Vec3{featA[0]}
	case len(featB) == 1:
		return []mgl64.Vec3{featB[0]}
	case len(featA) == 2 && len(featB) == 2:
		p, q := closestSegmentPoints(featA[0], featA[1], featB[0], featB[1])
		return []mgl64.Vec3{p.Add(q).Mul(0.5)}
	case len(featA) >= len(featB):
		// A is the reference face; clip B's feature against it.
		return clipPolygon(featB, featA, normal)
	default:
		return clipPolygon(featA, featB, normal)
	}
}

// closestSegmentPoints returns the nearest points on segments p1-q1 and
// p2-q2.
func closestSegmentPoints(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	d1, d2 := q1.Sub(p1), q2.Sub(p2)
	r := p1.Sub(p2)
	a, e, f := d1.Dot(d1), d2.Dot(d2), d2.Dot(r)

	var s, t float64
	if a < geom.Epsilon && e < geom.Epsilon {
		return p1, p2
	}
	if a < geom.Epsilon {
		t = clamp01(f / e)
	} else {
		c := d1.Dot(r)
		if e < geom.Epsilon {
			s = clamp01(-c / a)
		} else {
			bb := d1.Dot(d2)
			denom := a*e - bb*bb
			if denom > geom.Epsilon {
				s = clamp01((bb*f - c*e) / denom)
			}
			t = (bb*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((bb - c) / a)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// dedupePoints merges points closer than the contact match distance, keeping
// the deeper of each merged pair.
func dedupePoints(points []ContactPoint) []ContactPoint {
	out := points[:0]
	for _, p := range points {
		merged := false
		for i := range out {
			if out[i].Position.Sub(p.Position).Len() < geom.ContactMatchDistance {
				if p.Penetration > out[i].Penetration {
					out[i] = p
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, p)
		}
	}
	return out
}

// reducePoints keeps at most maxManifoldPoints: the deepest point plus the
// extremes along the two tangent directions, which preserves the footprint
// the solver needs to resist tipping.
func reducePoints(points []ContactPoint, normal mgl64.Vec3) []ContactPoint {
	if len(points) <= maxManifoldPoints {
		return points
	}
	tx, ty := tangentBasis(normal)

	keep := make(map[int]bool, maxManifoldPoints)
	deepest := 0
	for i, p := range points {
		if p.Penetration > points[deepest].Penetration {
			deepest = i
		}
	}
	keep[deepest] = true

	for _, axis := range []mgl64.Vec3{tx, tx.Mul(-1), ty, ty.Mul(-1)} {
		if len(keep) >= maxManifoldPoints {
			break
		}
		best, bestD := -1, math.Inf(-1)
		for i, p := range points {
			if keep[i] {
				continue
			}
			if d := p.Position.Dot(axis); d > bestD {
				best, bestD = i, d
			}
		}
		if best >= 0 {
			keep[best] = true
		}
	}

	idx := make([]int, 0, len(keep))
	for i := range keep {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]ContactPoint, 0, len(idx))
	for _, i := range idx {
		out = append(out, points[i])
	}
	return out
}
