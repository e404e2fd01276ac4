package narrowphase

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

const (
	epaMaxIterations = 32
	epaTolerance     = 1e-4
	epaMinDistance   = 1e-4

	// fallbackDepth is used when the pair is so degenerate (coincident
	// centers, collapsed simplex) that no direction can be computed. The
	// separation axis is then fixed +Y to stay deterministic.
	fallbackDepth = 0.01
)

type face struct {
	points   [3]mgl64.Vec3
	normal   mgl64.Vec3
	distance float64
}

type epaEdge struct {
	a, b mgl64.Vec3
}

// epa expands the GJK tetrahedron toward the closest boundary of the
// Minkowski difference, yielding the penetration normal (from A toward B)
// and depth.
func epa(a geom.ConvexShape, ta geom.Transform, b geom.ConvexShape, tb geom.Transform, s *simplex) (mgl64.Vec3, float64, bool) {
	if s.count < 4 {
		return degenerateAxis(s), degenerateDepth(s), true
	}

	faces := initialFaces(s)
	for i := 0; i < epaMaxIterations; i++ {
		if len(faces) == 0 {
			break
		}
		ci := closestFace(faces)
		cf := faces[ci]
		if cf.distance < epaMinDistance {
			faces = append(faces[:ci], faces[ci+1:]...)
			continue
		}

		support := minkowskiSupport(a, ta, b, tb, cf.normal)
		d := support.Dot(cf.normal)
		if d-cf.distance < epaTolerance {
			return cf.normal, cf.distance, true
		}
		faces = expand(faces, support, ci)
	}
	// Non-convergence: fall back to the best face seen, or the fixed axis.
	if len(faces) > 0 {
		cf := faces[closestFace(faces)]
		return cf.normal, cf.distance, true
	}
	return mgl64.Vec3{0, 1, 0}, fallbackDepth, true
}

func degenerateAxis(s *simplex) mgl64.Vec3 {
	// Prefer the direction of the point closest to the origin.
	best := mgl64.Vec3{0, 1, 0}
	bestLen := math.Inf(1)
	for i := 0; i < s.count; i++ {
		if l := s.points[i].Len(); l > geom.Epsilon && l < bestLen {
			best, bestLen = s.points[i].Normalize(), l
		}
	}
	return best
}

func degenerateDepth(s *simplex) float64 {
	bestLen := math.Inf(1)
	for i := 0; i < s.count; i++ {
		if l := s.points[i].Len(); l < bestLen {
			bestLen = l
		}
	}
	if math.IsInf(bestLen, 1) || bestLen < geom.Epsilon {
		return fallbackDepth
	}
	return bestLen
}

func newFace(a, b, c, opposite mgl64.Vec3) face {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.LenSqr() < geom.Epsilon {
		return face{points: [3]mgl64.Vec3{a, b, c}, normal: mgl64.Vec3{0, 1, 0}, distance: epaMinDistance}
	}
	n = n.Normalize()
	if n.Dot(opposite.Sub(a)) > 0 {
		n = n.Mul(-1) // point away from the opposite vertex
	}
	d := a.Dot(n)
	if d < 0 {
		n = n.Mul(-1)
		d = -d
	}
	if d < epaMinDistance {
		d = epaMinDistance
	}
	return face{points: [3]mgl64.Vec3{a, b, c}, normal: n, distance: d}
}

func initialFaces(s *simplex) []face {
	a, b, c, d := s.points[0], s.points[1], s.points[2], s.points[3]
	return []face{
		newFace(a, b, c, d),
		newFace(a, c, d, b),
		newFace(a, d, b, c),
		newFace(b, d, c, a),
	}
}

func closestFace(faces []face) int {
	ci := 0
	for i := 1; i < len(faces); i++ {
		if faces[i].distance < faces[ci].distance {
			ci = i
		}
	}
	return ci
}

// expand removes every face visible from the support point and stitches new
// faces over the resulting boundary hole.
func expand(faces []face, support mgl64.Vec3, closestIdx int) []face {
	var visible []int
	for i, f := range faces {
		if support.Sub(f.points[0]).Dot(f.normal) > 0 {
			visible = append(visible, i)
		}
	}
	if len(visible) == 0 || len(visible) >= len(faces) {
		visible = []int{closestIdx}
	}

	centroid := polytopeCentroid(faces)
	edges := boundaryEdges(faces, visible)

	for i := len(visible) - 1; i >= 0; i-- {
		faces = append(faces[:visible[i]], faces[visible[i]+1:]...)
	}
	for _, e := range edges {
		faces = append(faces, newFace(e.a, e.b, support, centroid))
	}
	return faces
}

func polytopeCentroid(faces []face) mgl64.Vec3 {
	var sum mgl64.Vec3
	n := 0
	for _, f := range faces {
		for _, p := range f.points {
			sum = sum.Add(p)
			n++
		}
	}
	if n == 0 {
		return mgl64.Vec3{}
	}
	return sum.Mul(1 / float64(n))
}

// boundaryEdges returns edges belonging to exactly one visible face.
func boundaryEdges(faces []face, visible []int) []epaEdge {
	count := make(map[epaEdge]int)
	for _, idx := range visible {
		f := faces[idx]
		for i := 0; i < 3; i++ {
			e := orderEdge(epaEdge{f.points[i], f.points[(i+1)%3]})
			count[e]++
		}
	}
	var edges []epaEdge
	for e, c := range count {
		if c == 1 {
			edges = append(edges, e)
		}
	}
	// Map iteration order is random; sort for reproducible polytopes.
	sort.Slice(edges, func(i, j int) bool {
		if c := compareVec(edges[i].a, edges[j].a); c != 0 {
			return c < 0
		}
		return compareVec(edges[i].b, edges[j].b) < 0
	})
	return edges
}

func orderEdge(e epaEdge) epaEdge {
	if compareVec(e.a, e.b) > 0 {
		return epaEdge{e.b, e.a}
	}
	return e
}

func compareVec(a, b mgl64.Vec3) int {
	for i := 0; i < 3; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
