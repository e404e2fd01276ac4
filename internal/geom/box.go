package geom

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned cuboid in local space, described by half extents.
type Box struct {
	Half   mgl64.Vec3
	bounds AABB
}

// NewBox validates half extents and precomputes local bounds.
func NewBox(half mgl64.Vec3) (*Box, error) {
	if !finiteVec(half) || half.X() <= Epsilon || half.Y() <= Epsilon || half.Z() <= Epsilon {
		return nil, fmt.Errorf("box half extents %v: %w", half, ErrDegenerate)
	}
	return &Box{
		Half:   half,
		bounds: AABB{Min: half.Mul(-1), Max: half},
	}, nil
}

func (b *Box) Kind() Kind   { return KindBox }
func (b *Box) Bounds() AABB { return b.bounds }

func (b *Box) Mass(density float64) float64 {
	return density * 8 * b.Half.X() * b.Half.Y() * b.Half.Z()
}

func (b *Box) Inertia(mass float64) mgl64.Mat3 {
	x2 := 4 * b.Half.X() * b.Half.X()
	y2 := 4 * b.Half.Y() * b.Half.Y()
	z2 := 4 * b.Half.Z() * b.Half.Z()
	f := mass / 12.0
	return mgl64.Diag3(mgl64.Vec3{f * (y2 + z2), f * (x2 + z2), f * (x2 + y2)})
}

func (b *Box) Support(dir mgl64.Vec3) mgl64.Vec3 {
	p := b.Half
	if dir.X() < 0 {
		p[0] = -p[0]
	}
	if dir.Y() < 0 {
		p[1] = -p[1]
	}
	if dir.Z() < 0 {
		p[2] = -p[2]
	}
	return p
}

// Corners returns the eight local vertices.
func (b *Box) Corners() [8]mgl64.Vec3 {
	h := b.Half
	return [8]mgl64.Vec3{
		{-h.X(), -h.Y(), -h.Z()},
		{+h.X(), -h.Y(), -h.Z()},
		{-h.X(), +h.Y(), -h.Z()},
		{+h.X(), +h.Y(), -h.Z()},
		{-h.X(), -h.Y(), +h.Z()},
		{+h.X(), -h.Y(), +h.Z()},
		{-h.X(), +h.Y(), +h.Z()},
		{+h.X(), +h.Y(), +h.Z()},
	}
}
