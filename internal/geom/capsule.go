package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Capsule is a segment along the local Y axis inflated by a radius. The
// segment runs from (0,-HalfHeight,0) to (0,HalfHeight,0).
type Capsule struct {
	HalfHeight float64
	Radius     float64
	bounds     AABB
}

// NewCapsule validates both extents. A zero half height would be a sphere;
// callers should construct one directly instead.
func NewCapsule(halfHeight, radius float64) (*Capsule, error) {
	if !finite(halfHeight) || !finite(radius) || halfHeight <= Epsilon || radius <= Epsilon {
		return nil, fmt.Errorf("capsule half height %v radius %v: %w", halfHeight, radius, ErrDegenerate)
	}
	return &Capsule{
		HalfHeight: halfHeight,
		Radius:     radius,
		bounds: AABB{
			Min: mgl64.Vec3{-radius, -halfHeight - radius, -radius},
			Max: mgl64.Vec3{radius, halfHeight + radius, radius},
		},
	}, nil
}

func (c *Capsule) Kind() Kind   { return KindCapsule }
func (c *Capsule) Bounds() AABB { return c.bounds }

func (c *Capsule) Mass(density float64) float64 {
	r, h := c.Radius, 2*c.HalfHeight
	cylinder := math.Pi * r * r * h
	caps := 4.0 / 3.0 * math.Pi * r * r * r
	return density * (cylinder + caps)
}

func (c *Capsule) Inertia(mass float64) mgl64.Mat3 {
	r, h := c.Radius, 2*c.HalfHeight
	cylVol := math.Pi * r * r * h
	capVol := 4.0 / 3.0 * math.Pi * r * r * r
	mCyl := mass * cylVol / (cylVol + capVol)
	mCap := mass - mCyl

	// Cylinder about its center plus two hemispheres offset to the ends.
	iy := 0.5*mCyl*r*r + mCap*2.0/5.0*r*r
	ix := mCyl*(h*h/12.0+r*r/4.0) +
		mCap*(2.0/5.0*r*r+h*h/4.0+3.0/8.0*h*r)
	return mgl64.Diag3(mgl64.Vec3{ix, iy, ix})
}

func (c *Capsule) Support(dir mgl64.Vec3) mgl64.Vec3 {
	end := mgl64.Vec3{0, c.HalfHeight, 0}
	if dir.Y() < 0 {
		end[1] = -c.HalfHeight
	}
	if dir.LenSqr() < Epsilon {
		return end.Add(mgl64.Vec3{c.Radius, 0, 0})
	}
	return end.Add(dir.Normalize().Mul(c.Radius))
}
