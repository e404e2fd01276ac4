package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is centered on the local origin.
type Sphere struct {
	Radius float64
	bounds AABB
}

// NewSphere validates the radius and precomputes local bounds.
func NewSphere(radius float64) (*Sphere, error) {
	if !finite(radius) || radius <= Epsilon {
		return nil, fmt.Errorf("sphere radius %v: %w", radius, ErrDegenerate)
	}
	r := mgl64.Vec3{radius, radius, radius}
	return &Sphere{
		Radius: radius,
		bounds: AABB{Min: r.Mul(-1), Max: r},
	}, nil
}

func (s *Sphere) Kind() Kind   { return KindSphere }
func (s *Sphere) Bounds() AABB { return s.bounds }

func (s *Sphere) Mass(density float64) float64 {
	return density * 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius
}

func (s *Sphere) Inertia(mass float64) mgl64.Mat3 {
	i := 2.0 / 5.0 * mass * s.Radius * s.Radius
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) Support(dir mgl64.Vec3) mgl64.Vec3 {
	if dir.LenSqr() < Epsilon {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return dir.Normalize().Mul(s.Radius)
}
