package geom

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestConstructorsRejectDegenerateShapes(t *testing.T) {
	coplanar := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}

	tests := []struct {
		name string
		make func() error
	}{
		{"zero radius sphere", func() error { _, err := NewSphere(0); return err }},
		{"negative radius sphere", func() error { _, err := NewSphere(-1); return err }},
		{"nan radius sphere", func() error { _, err := NewSphere(math.NaN()); return err }},
		{"flat box", func() error { _, err := NewBox(mgl64.Vec3{1, 0, 1}); return err }},
		{"zero capsule", func() error { _, err := NewCapsule(0, 1); return err }},
		{"thin capsule", func() error { _, err := NewCapsule(1, 0); return err }},
		{"tiny hull", func() error { _, err := NewConvexHull(coplanar[:3]); return err }},
		{"coplanar hull", func() error { _, err := NewConvexHull(coplanar); return err }},
		{"zero normal plane", func() error { _, err := NewPlane(mgl64.Vec3{}, 0); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.make(); !errors.Is(err, ErrDegenerate) {
				t.Errorf("expected ErrDegenerate, got %v", err)
			}
		})
	}
}

func TestSupportExtremes(t *testing.T) {
	sphere, _ := NewSphere(2)
	box, _ := NewBox(mgl64.Vec3{1, 2, 3})
	capsule, _ := NewCapsule(1, 0.5)
	hull, _ := NewConvexHull([]mgl64.Vec3{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	})

	tests := []struct {
		name  string
		shape ConvexShape
		dir   mgl64.Vec3
		want  mgl64.Vec3
	}{
		{"sphere +x", sphere, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0}},
		{"sphere -y", sphere, mgl64.Vec3{0, -3, 0}, mgl64.Vec3{0, -2, 0}},
		{"box corner", box, mgl64.Vec3{1, 1, -1}, mgl64.Vec3{1, 2, -3}},
		{"box opposite", box, mgl64.Vec3{-1, -1, 1}, mgl64.Vec3{-1, -2, 3}},
		{"capsule top", capsule, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1.5, 0}},
		{"capsule bottom", capsule, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, -1.5, 0}},
		{"hull apex", hull, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.shape.Support(tt.dir)
			if got.Sub(tt.want).Len() > 1e-9 {
				t.Errorf("support(%v) = %v, want %v", tt.dir, got, tt.want)
			}
		})
	}
}

// World bounds must contain the transformed shape under arbitrary rotation.
func TestWorldBoundsContainment(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	box, _ := NewBox(mgl64.Vec3{0.5, 1, 2})
	capsule, _ := NewCapsule(1.5, 0.25)
	shapes := []ConvexShape{box, capsule}

	for i := 0; i < 100; i++ {
		axis := mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}
		if axis.LenSqr() < 1e-6 {
			continue
		}
		pose := NewTransform(
			mgl64.Vec3{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10},
			mgl64.QuatRotate(rng.Float64()*2*math.Pi, axis.Normalize()),
		)
		for _, s := range shapes {
			bounds := WorldBounds(s, pose)
			// Sample support points in random directions; each must be inside.
			for j := 0; j < 16; j++ {
				dir := mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}
				if dir.LenSqr() < 1e-6 {
					continue
				}
				p := SupportWorld(s, pose, dir)
				if !bounds.Expanded(1e-9).ContainsPoint(p) {
					t.Fatalf("%v: support %v escapes bounds %+v", s.Kind(), p, bounds)
				}
			}
		}
	}
}

func TestInertiaPositiveDefinite(t *testing.T) {
	sphere, _ := NewSphere(1)
	box, _ := NewBox(mgl64.Vec3{1, 1, 1})
	capsule, _ := NewCapsule(1, 0.5)

	for _, s := range []Shape{sphere, box, capsule} {
		inertia := s.Inertia(s.Mass(1))
		for i := 0; i < 3; i++ {
			if inertia.At(i, i) <= 0 {
				t.Errorf("%v inertia diagonal %d not positive: %v", s.Kind(), i, inertia.At(i, i))
			}
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	pose := NewTransform(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(1.1, mgl64.Vec3{0, 1, 0}))
	p := mgl64.Vec3{-4, 5, 0.5}
	back := pose.LocalPoint(pose.Point(p))
	if back.Sub(p).Len() > 1e-12 {
		t.Errorf("round trip drifted: %v vs %v", back, p)
	}
}
