package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane is the half-space n·p <= offset in the owning body's local frame.
// Planes are static-only: they have no finite mass and no support function.
type Plane struct {
	Normal mgl64.Vec3
	Offset float64
}

// NewPlane validates and normalizes the plane normal.
func NewPlane(normal mgl64.Vec3, offset float64) (*Plane, error) {
	if !finiteVec(normal) || !finite(offset) || normal.LenSqr() < Epsilon {
		return nil, fmt.Errorf("plane normal %v: %w", normal, ErrDegenerate)
	}
	return &Plane{Normal: normal.Normalize(), Offset: offset}, nil
}

func (p *Plane) Kind() Kind { return KindPlane }

// Bounds covers the plane out to PlaneExtent in every axis. The world-space
// bound (see worldBounds) is tighter for axis-aligned normals.
func (p *Plane) Bounds() AABB {
	e := PlaneExtent
	return AABB{Min: mgl64.Vec3{-e, -e, -e}, Max: mgl64.Vec3{e, e, e}}
}

// Mass is infinite: planes only attach to static bodies.
func (p *Plane) Mass(density float64) float64 { return math.Inf(1) }

func (p *Plane) Inertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// Distance returns the signed distance of a local point to the plane
// surface; negative means below (inside the half-space solid).
func (p *Plane) Distance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) - p.Offset
}

func (p *Plane) worldBounds(t Transform) AABB {
	n := t.Dir(p.Normal)
	origin := t.Point(p.Normal.Mul(p.Offset))
	e := PlaneExtent
	box := AABB{
		Min: origin.Add(mgl64.Vec3{-e, -e, -e}),
		Max: origin.Add(mgl64.Vec3{e, e, e}),
	}
	// For an axis-aligned world normal, keep only the solid side plus slop.
	for i := 0; i < 3; i++ {
		if math.Abs(math.Abs(n[i])-1) < Epsilon {
			if n[i] > 0 {
				box.Max[i] = origin[i] + LinearSlop
			} else {
				box.Min[i] = origin[i] - LinearSlop
			}
		}
	}
	return box
}
