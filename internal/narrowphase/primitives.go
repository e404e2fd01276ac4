package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

func collideSphereSphere(a *geom.Sphere, ta geom.Transform, b *geom.Sphere, tb geom.Transform) (Manifold, bool) {
	d := tb.Position.Sub(ta.Position)
	dist := d.Len()
	sep := dist - a.Radius - b.Radius
	if sep > geom.LinearSlop {
		return Manifold{}, false
	}

	normal := mgl64.Vec3{0, 1, 0} // coincident centers: fixed axis
	if dist > geom.Epsilon {
		normal = d.Mul(1 / dist)
	}
	pen := math.Max(-sep, 0)
	point := ta.Position.Add(normal.Mul(a.Radius - pen/2))
	return Manifold{
		Normal: normal,
		Points: []ContactPoint{{Position: point, Penetration: pen}},
	}, true
}

func worldPlane(p *geom.Plane, t geom.Transform) (normal, point mgl64.Vec3) {
	return t.Dir(p.Normal), t.Point(p.Normal.Mul(p.Offset))
}

func collideSpherePlane(a *geom.Sphere, ta geom.Transform, b *geom.Plane, tb geom.Transform) (Manifold, bool) {
	n, origin := worldPlane(b, tb)
	sep := ta.Position.Sub(origin).Dot(n) - a.Radius
	if sep > geom.LinearSlop {
		return Manifold{}, false
	}
	pen := math.Max(-sep, 0)
	point := ta.Position.Sub(n.Mul(a.Radius - pen/2))
	return Manifold{
		Normal: n.Mul(-1), // from sphere toward the plane
		Points: []ContactPoint{{Position: point, Penetration: pen}},
	}, true
}

func collideSphereBox(a *geom.Sphere, ta geom.Transform, b *geom.Box, tb geom.Transform) (Manifold, bool) {
	local := tb.LocalPoint(ta.Position)
	clamped := local
	for i := 0; i < 3; i++ {
		clamped[i] = math.Max(-b.Half[i], math.Min(b.Half[i], clamped[i]))
	}
	delta := local.Sub(clamped)
	d2 := delta.LenSqr()

	if d2 > geom.Epsilon {
		// Center outside the box: surface point is the clamp.
		dist := math.Sqrt(d2)
		sep := dist - a.Radius
		if sep > geom.LinearSlop {
			return Manifold{}, false
		}
		pen := math.Max(-sep, 0)
		normal := tb.Dir(delta.Mul(1 / dist)).Mul(-1) // sphere toward box
		return Manifold{
			Normal: normal,
			Points: []ContactPoint{{Position: tb.Point(clamped), Penetration: pen}},
		}, true
	}

	// Center inside the box: push out through the nearest face.
	axis, sign, best := 0, 1.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if d := b.Half[i] - local[i]; d < best {
			best, axis, sign = d, i, 1
		}
		if d := b.Half[i] + local[i]; d < best {
			best, axis, sign = d, i, -1
		}
	}
	var faceNormal mgl64.Vec3
	faceNormal[axis] = sign
	worldFace := tb.Dir(faceNormal) // box center toward sphere side
	pen := best + a.Radius
	return Manifold{
		Normal: worldFace.Mul(-1),
		Points: []ContactPoint{{Position: ta.Position, Penetration: pen}},
	}, true
}

func collideSphereCapsule(a *geom.Sphere, ta geom.Transform, b *geom.Capsule, tb geom.Transform) (Manifold, bool) {
	local := tb.LocalPoint(ta.Position)
	segY := math.Max(-b.HalfHeight, math.Min(b.HalfHeight, local.Y()))
	onSeg := tb.Point(mgl64.Vec3{0, segY, 0})

	d := onSeg.Sub(ta.Position)
	dist := d.Len()
	sep := dist - a.Radius - b.Radius
	if sep > geom.LinearSlop {
		return Manifold{}, false
	}
	normal := mgl64.Vec3{0, 1, 0}
	if dist > geom.Epsilon {
		normal = d.Mul(1 / dist)
	}
	pen := math.Max(-sep, 0)
	point := ta.Position.Add(normal.Mul(a.Radius - pen/2))
	return Manifold{
		Normal: normal,
		Points: []ContactPoint{{Position: point, Penetration: pen}},
	}, true
}

// collideConvexPlane gathers every vertex of the convex shape within the
// touch tolerance of the plane. Flat resting produces the full face, which
// is what keeps stacks from rocking on a single unstable point.
func collideConvexPlane(a geom.ConvexShape, ta geom.Transform, b *geom.Plane, tb geom.Transform) (Manifold, bool) {
	n, origin := worldPlane(b, tb)

	var candidates []mgl64.Vec3
	switch s := a.(type) {
	case *geom.Box:
		for _, c := range s.Corners() {
			candidates = append(candidates, ta.Point(c))
		}
	case *geom.ConvexHull:
		for _, p := range s.Points {
			candidates = append(candidates, ta.Point(p))
		}
	case *geom.Capsule:
		top := ta.Point(mgl64.Vec3{0, s.HalfHeight, 0})
		bottom := ta.Point(mgl64.Vec3{0, -s.HalfHeight, 0})
		candidates = append(candidates, top.Sub(n.Mul(s.Radius)), bottom.Sub(n.Mul(s.Radius)))
	default:
		candidates = append(candidates, geom.SupportWorld(a, ta, n.Mul(-1)))
	}

	var points []ContactPoint
	for _, v := range candidates {
		sep := v.Sub(origin).Dot(n)
		if sep <= geom.LinearSlop {
			points = append(points, ContactPoint{
				Position:    v,
				Penetration: math.Max(-sep, 0),
			})
		}
	}
	if len(points) == 0 {
		return Manifold{}, false
	}
	m := Manifold{Normal: n.Mul(-1), Points: points}
	m.Points = dedupePoints(m.Points)
	if len(m.Points) > maxManifoldPoints {
		m.Points = reducePoints(m.Points, m.Normal)
	}
	return m, true
}
