package integrate

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

func TestVelocityGravity(t *testing.T) {
	g := mgl64.Vec3{0, -10, 0}
	v := Velocity(mgl64.Vec3{}, mgl64.Vec3{}, 1, g, 0, 0.5)
	if got := v.Y(); math.Abs(got+5) > 1e-12 {
		t.Errorf("vY = %v, want -5", got)
	}
}

func TestVelocityForceScalesByInvMass(t *testing.T) {
	f := mgl64.Vec3{4, 0, 0}
	v := Velocity(mgl64.Vec3{}, f, 0.5, mgl64.Vec3{}, 0, 1)
	if got := v.X(); math.Abs(got-2) > 1e-12 {
		t.Errorf("vX = %v, want 2", got)
	}
}

func TestDampingDecaysExponentially(t *testing.T) {
	v := Velocity(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, 1, mgl64.Vec3{}, 2, 0.5)
	want := math.Exp(-1)
	if got := v.X(); math.Abs(got-want) > 1e-12 {
		t.Errorf("vX = %v, want %v", got, want)
	}
}

func TestPoseLinearAdvance(t *testing.T) {
	tf := geom.TransformAt(mgl64.Vec3{1, 2, 3})
	out := Pose(tf, mgl64.Vec3{1, 0, -1}, mgl64.Vec3{}, 0.25)
	want := mgl64.Vec3{1.25, 2, 2.75}
	if out.Position.Sub(want).Len() > 1e-12 {
		t.Errorf("position = %v, want %v", out.Position, want)
	}
}

func TestPoseRotationStaysUnit(t *testing.T) {
	tf := geom.TransformAt(mgl64.Vec3{})
	w := mgl64.Vec3{0.3, 4, -2}
	for i := 0; i < 1000; i++ {
		tf = Pose(tf, mgl64.Vec3{}, w, 1.0/60)
	}
	if got := tf.Rotation.Len(); math.Abs(got-1) > 1e-9 {
		t.Errorf("|q| = %v after 1000 steps, want 1", got)
	}
}

func TestPoseSpinMatchesSmallAngle(t *testing.T) {
	// One small step about Y should rotate X toward -Z by about w*dt.
	tf := geom.TransformAt(mgl64.Vec3{})
	dt := 1e-3
	w := mgl64.Vec3{0, 1, 0}
	tf = Pose(tf, mgl64.Vec3{}, w, dt)

	rotated := tf.Dir(mgl64.Vec3{1, 0, 0})
	if math.Abs(rotated.Z()+dt) > 1e-6 {
		t.Errorf("rotated X = %v, want z ~ %v", rotated, -dt)
	}
}

func TestValidFlagsNonFinite(t *testing.T) {
	ok := geom.TransformAt(mgl64.Vec3{})
	cases := []struct {
		name string
		t    geom.Transform
		v, w mgl64.Vec3
		want bool
	}{
		{"clean", ok, mgl64.Vec3{1, 2, 3}, mgl64.Vec3{}, true},
		{"nan position", geom.TransformAt(mgl64.Vec3{math.NaN(), 0, 0}), mgl64.Vec3{}, mgl64.Vec3{}, false},
		{"inf velocity", ok, mgl64.Vec3{math.Inf(1), 0, 0}, mgl64.Vec3{}, false},
		{"nan spin", ok, mgl64.Vec3{}, mgl64.Vec3{0, math.NaN(), 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Valid(tc.t, tc.v, tc.w); got != tc.want {
				t.Errorf("Valid = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWorldInvInertiaRotates(t *testing.T) {
	// Rod-like tensor spun 90 degrees about Z swaps the X and Y terms.
	local := mgl64.Diag3(mgl64.Vec3{1, 4, 4})
	q := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	world := WorldInvInertia(local, q)

	if got := world.At(0, 0); math.Abs(got-4) > 1e-9 {
		t.Errorf("world[0][0] = %v, want 4", got)
	}
	if got := world.At(1, 1); math.Abs(got-1) > 1e-9 {
		t.Errorf("world[1][1] = %v, want 1", got)
	}
}
