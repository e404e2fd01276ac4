package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ConvexHull is a convex point cloud. The points are assumed to be the hull
// vertices; interior points are harmless but waste support-query time.
type ConvexHull struct {
	Points   []mgl64.Vec3
	Centroid mgl64.Vec3
	bounds   AABB
}

// NewConvexHull validates that the point set spans a volume: at least four
// points, not all coplanar. The points are copied.
func NewConvexHull(points []mgl64.Vec3) (*ConvexHull, error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("hull needs at least 4 points, got %d: %w", len(points), ErrDegenerate)
	}
	for _, p := range points {
		if !finiteVec(p) {
			return nil, fmt.Errorf("hull point %v: %w", p, ErrDegenerate)
		}
	}
	if !spansVolume(points) {
		return nil, fmt.Errorf("hull points are coplanar: %w", ErrDegenerate)
	}

	pts := make([]mgl64.Vec3, len(points))
	copy(pts, points)

	var centroid mgl64.Vec3
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1.0 / float64(len(pts)))

	return &ConvexHull{
		Points:   pts,
		Centroid: centroid,
		bounds:   BoundsFromPoints(pts),
	}, nil
}

// spansVolume checks that some tetrahedron of the points has non-negligible
// volume.
func spansVolume(points []mgl64.Vec3) bool {
	a := points[0]
	// Find a second point distinct from a.
	bi := -1
	for i := 1; i < len(points); i++ {
		if points[i].Sub(a).LenSqr() > Epsilon {
			bi = i
			break
		}
	}
	if bi < 0 {
		return false
	}
	ab := points[bi].Sub(a)
	// Third point off the ab line.
	ci := -1
	for i := bi + 1; i < len(points); i++ {
		if ab.Cross(points[i].Sub(a)).LenSqr() > Epsilon {
			ci = i
			break
		}
	}
	if ci < 0 {
		return false
	}
	n := ab.Cross(points[ci].Sub(a))
	// Fourth point off the abc plane.
	for i := 1; i < len(points); i++ {
		if math.Abs(n.Dot(points[i].Sub(a))) > Epsilon*n.Len() {
			return true
		}
	}
	return false
}

func (h *ConvexHull) Kind() Kind   { return KindHull }
func (h *ConvexHull) Bounds() AABB { return h.bounds }

// Mass approximates the hull by its bounding box; exact polyhedron volume
// integration is not worth the cost for mass setup.
func (h *ConvexHull) Mass(density float64) float64 {
	d := h.bounds.Max.Sub(h.bounds.Min)
	return density * d.X() * d.Y() * d.Z()
}

// Inertia approximates the hull with its bounding box tensor. The
// approximation is conservative for stability: a box tensor is never smaller
// than the hull's along any principal axis.
func (h *ConvexHull) Inertia(mass float64) mgl64.Mat3 {
	d := h.bounds.Max.Sub(h.bounds.Min)
	f := mass / 12.0
	x2, y2, z2 := d.X()*d.X(), d.Y()*d.Y(), d.Z()*d.Z()
	return mgl64.Diag3(mgl64.Vec3{f * (y2 + z2), f * (x2 + z2), f * (x2 + y2)})
}

func (h *ConvexHull) Support(dir mgl64.Vec3) mgl64.Vec3 {
	best := h.Points[0]
	bestDot := best.Dot(dir)
	for _, p := range h.Points[1:] {
		if d := p.Dot(dir); d > bestDot {
			best, bestDot = p, d
		}
	}
	return best
}
