package narrowphase

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

const gjkMaxIterations = 32

// simplex holds 1-4 points of the Minkowski difference while GJK converges
// toward the origin.
type simplex struct {
	points [4]mgl64.Vec3
	count  int
}

func (s *simplex) push(p mgl64.Vec3) {
	s.points[s.count] = p
	s.count++
}

func (s *simplex) set(points ...mgl64.Vec3) {
	s.count = copy(s.points[:], points)
}

// minkowskiSupport samples the support of A-B in a world direction.
func minkowskiSupport(a geom.ConvexShape, ta geom.Transform, b geom.ConvexShape, tb geom.Transform, dir mgl64.Vec3) mgl64.Vec3 {
	pa := geom.SupportWorld(a, ta, dir)
	pb := geom.SupportWorld(b, tb, dir.Mul(-1))
	return pa.Sub(pb)
}

// gjk reports whether the two convex shapes overlap. On overlap the simplex
// is a tetrahedron enclosing the origin, ready for EPA.
func gjk(a geom.ConvexShape, ta geom.Transform, b geom.ConvexShape, tb geom.Transform, s *simplex) bool {
	dir := tb.Position.Sub(ta.Position)
	if dir.LenSqr() < geom.Epsilon {
		dir = mgl64.Vec3{1, 0, 0}
	}

	s.set(minkowskiSupport(a, ta, b, tb, dir))
	dir = s.points[0].Mul(-1)
	if dir.LenSqr() < geom.Epsilon {
		return true // first support already at the origin
	}

	for i := 0; i < gjkMaxIterations; i++ {
		p := minkowskiSupport(a, ta, b, tb, dir)
		if p.Dot(dir) <= 0 {
			return false // origin unreachable: separated
		}
		s.push(p)
		if s.evolve(&dir) {
			return true
		}
	}
	return false
}

// evolve reduces the simplex to the feature closest to the origin and
// points dir at the origin from it. Returns true when the simplex encloses
// the origin (tetrahedron case only).
func (s *simplex) evolve(dir *mgl64.Vec3) bool {
	switch s.count {
	case 2:
		return s.line(dir)
	case 3:
		return s.triangle(dir)
	case 4:
		return s.tetrahedron(dir)
	}
	return false
}

func (s *simplex) line(dir *mgl64.Vec3) bool {
	a := s.points[1] // newest
	b := s.points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < geom.Epsilon {
		if ao.LenSqr() < geom.Epsilon {
			return true
		}
		s.set(a)
		*dir = ao
		return false
	}
	if ab.Dot(ao) <= 0 {
		s.set(a)
		*dir = ao
		return false
	}
	perp := ab.Cross(ao).Cross(ab)
	if perp.LenSqr() < geom.Epsilon {
		return true // origin on the segment
	}
	*dir = perp
	return false
}

func (s *simplex) triangle(dir *mgl64.Vec3) bool {
	a := s.points[2] // newest
	b := s.points[1]
	c := s.points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	if abc.LenSqr() < geom.Epsilon {
		s.set(b, a)
		return s.line(dir)
	}

	if ab.Cross(abc).Dot(ao) > 0 {
		s.set(b, a)
		*dir = ab.Cross(ao).Cross(ab)
		return false
	}
	if abc.Cross(ac).Dot(ao) > 0 {
		s.set(c, a)
		*dir = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*dir = abc
	} else {
		s.set(a, c, b) // flip winding so the next face test is consistent
		*dir = abc.Mul(-1)
	}
	return false
}

func (s *simplex) tetrahedron(dir *mgl64.Vec3) bool {
	a := s.points[3] // newest
	b := s.points[2]
	c := s.points[1]
	d := s.points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	abc := outward(ab.Cross(ac), ad)
	acd := outward(ac.Cross(ad), ab)
	adb := outward(ad.Cross(ab), ac)

	if abc.LenSqr() < geom.Epsilon || acd.LenSqr() < geom.Epsilon || adb.LenSqr() < geom.Epsilon {
		s.set(c, b, a)
		return s.triangle(dir)
	}

	switch {
	case abc.Dot(ao) > 0:
		s.set(c, b, a)
		return s.triangle(dir)
	case acd.Dot(ao) > 0:
		s.set(d, c, a)
		return s.triangle(dir)
	case adb.Dot(ao) > 0:
		s.set(b, d, a)
		return s.triangle(dir)
	}
	return true // origin inside every face
}

// outward flips n away from the opposite vertex direction.
func outward(n, opposite mgl64.Vec3) mgl64.Vec3 {
	if n.Dot(opposite) > 0 {
		return n.Mul(-1)
	}
	return n
}
