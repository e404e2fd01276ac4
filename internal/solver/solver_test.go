package solver

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/onsi/gomega"
)

func unitSphereBody(pos, v mgl64.Vec3) Body {
	// mass 1, solid sphere r=1: I = 2/5
	inv := 1.0 / 0.4
	return Body{
		InvMass:    1,
		InvInertia: mgl64.Diag3(mgl64.Vec3{inv, inv, inv}),
		Position:   pos,
		V:          v,
	}
}

func staticBody(pos mgl64.Vec3) Body {
	return Body{Position: pos}
}

func headOnContact(a, b int, restitution, friction float64) Contact {
	return Contact{
		A: a, B: b,
		Normal:      mgl64.Vec3{1, 0, 0},
		Friction:    friction,
		Restitution: restitution,
		Points: []ContactPoint{{
			RA: mgl64.Vec3{1, 0, 0},
			RB: mgl64.Vec3{-1, 0, 0},
		}},
	}
}

func TestElasticHeadOnExchange(t *testing.T) {
	g := gomega.NewWithT(t)

	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}),
		unitSphereBody(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{0, 0, 0}),
	}
	contacts := []Contact{headOnContact(0, 1, 1, 0)}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	WarmStart(bodies, contacts)
	Solve(bodies, contacts, nil, p)

	// Equal masses, e=1: the moving body stops and the other takes its
	// velocity.
	g.Expect(bodies[0].V.X()).To(gomega.BeNumerically("~", 0, 1e-9))
	g.Expect(bodies[1].V.X()).To(gomega.BeNumerically("~", 1, 1e-9))
}

func TestInelasticContactStopsApproach(t *testing.T) {
	g := gomega.NewWithT(t)

	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}),
		unitSphereBody(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{0, 0, 0}),
	}
	contacts := []Contact{headOnContact(0, 1, 0, 0)}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	Solve(bodies, contacts, nil, p)

	// e=0: bodies move together afterwards, momentum conserved.
	g.Expect(bodies[0].V.X()).To(gomega.BeNumerically("~", 1, 1e-9))
	g.Expect(bodies[1].V.X()).To(gomega.BeNumerically("~", 1, 1e-9))
}

func TestPostSolveNormalVelocityNonNegative(t *testing.T) {
	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 0, 0}),
		staticBody(mgl64.Vec3{2, 0, 0}),
	}
	contacts := []Contact{headOnContact(0, 1, 0.3, 0.5)}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	Solve(bodies, contacts, nil, p)

	a, b := &bodies[0], &bodies[1]
	cp := contacts[0].Points[0]
	vn := relativeVelocity(a, b, cp.RA, cp.RB).Dot(contacts[0].Normal)
	if vn < -1e-6 {
		t.Errorf("post-solve approach velocity %v, want >= 0", vn)
	}
}

func TestFrictionConeClamp(t *testing.T) {
	g := gomega.NewWithT(t)

	// Sliding along Z while pressed along the normal.
	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 3}),
		staticBody(mgl64.Vec3{2, 0, 0}),
	}
	mu := 0.4
	contacts := []Contact{headOnContact(0, 1, 0, mu)}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	Solve(bodies, contacts, nil, p)

	cp := contacts[0].Points[0]
	tangentTotal := math.Hypot(cp.Pt1, cp.Pt2)
	g.Expect(tangentTotal).To(gomega.BeNumerically("<=", math.Sqrt2*mu*cp.Pn+1e-9))
	// Sliding must slow down, not reverse.
	g.Expect(bodies[0].V.Z()).To(gomega.BeNumerically(">=", 0))
	g.Expect(bodies[0].V.Z()).To(gomega.BeNumerically("<", 3))
}

func TestZeroFrictionPreservesTangentVelocity(t *testing.T) {
	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 3}),
		staticBody(mgl64.Vec3{2, 0, 0}),
	}
	contacts := []Contact{headOnContact(0, 1, 0, 0)}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	Solve(bodies, contacts, nil, p)

	if got := bodies[0].V.Z(); math.Abs(got-3) > 1e-9 {
		t.Errorf("tangent velocity = %v, want unchanged 3", got)
	}
}

func TestBaumgarteBiasPushesOut(t *testing.T) {
	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}),
		staticBody(mgl64.Vec3{1.9, 0, 0}),
	}
	c := headOnContact(0, 1, 0, 0)
	c.Points[0].Penetration = 0.1
	contacts := []Contact{c}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0.2, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	Solve(bodies, contacts, nil, p)

	// The bias opens the contact: body A gains separating (-X) velocity.
	if bodies[0].V.X() >= 0 {
		t.Errorf("vX = %v, want < 0 (separating)", bodies[0].V.X())
	}
}

func TestBelowBounceThresholdNoRestitution(t *testing.T) {
	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0.2, 0, 0}),
		staticBody(mgl64.Vec3{2, 0, 0}),
	}
	contacts := []Contact{headOnContact(0, 1, 1, 0)}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	Solve(bodies, contacts, nil, p)

	// Slow approach must not bounce even at e=1.
	if got := bodies[0].V.X(); math.Abs(got) > 1e-9 {
		t.Errorf("vX = %v, want 0 (no bounce below threshold)", got)
	}
}

func TestWarmStartReappliesImpulse(t *testing.T) {
	bodies := []Body{
		unitSphereBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}),
		unitSphereBody(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{}),
	}
	c := headOnContact(0, 1, 0, 0)
	c.Points[0].Pn = 1
	contacts := []Contact{c}
	p := Params{Iterations: 1, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Prepare(bodies, contacts, p)
	WarmStart(bodies, contacts)

	if got := bodies[1].V.X(); math.Abs(got-1) > 1e-9 {
		t.Errorf("warm-started vX = %v, want 1 from Pn=1", got)
	}
	if got := bodies[0].V.X(); math.Abs(got+1) > 1e-9 {
		t.Errorf("warm-started vX = %v, want -1", got)
	}
}

func TestSortContactsByBodyPair(t *testing.T) {
	contacts := []Contact{
		{A: 2, B: 3},
		{A: 0, B: 5},
		{A: 0, B: 1},
		{A: 1, B: 2},
	}
	SortContacts(contacts)
	want := [][2]int{{0, 1}, {0, 5}, {1, 2}, {2, 3}}
	for i, w := range want {
		if contacts[i].A != w[0] || contacts[i].B != w[1] {
			t.Fatalf("order[%d] = (%d,%d), want (%d,%d)", i, contacts[i].A, contacts[i].B, w[0], w[1])
		}
	}
}

func TestDistanceJointHoldsLength(t *testing.T) {
	g := gomega.NewWithT(t)

	bodies := []Body{
		staticBody(mgl64.Vec3{0, 0, 0}),
		unitSphereBody(mgl64.Vec3{0, -2, 0}, mgl64.Vec3{0, -1, 0}),
	}
	j := &DistanceJoint{A: 0, B: 1, Length: 2}
	p := Params{Iterations: 10, Dt: 1.0 / 60, Beta: 0.2, Slop: 0.005, BounceThreshold: 0.5}

	Solve(bodies, nil, []Joint{j}, p)

	// Falling straight away from the anchor: the rod removes the radial
	// velocity.
	g.Expect(bodies[1].V.Y()).To(gomega.BeNumerically("~", 0, 1e-6))
}

func TestSphericalJointPinsAnchors(t *testing.T) {
	g := gomega.NewWithT(t)

	bodies := []Body{
		staticBody(mgl64.Vec3{0, 0, 0}),
		unitSphereBody(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{3, -1, 2}),
	}
	j := &SphericalJoint{A: 0, B: 1, RA: mgl64.Vec3{2, 0, 0}}
	p := Params{Iterations: 20, Dt: 1.0 / 60, Beta: 0, Slop: 0.005, BounceThreshold: 0.5}

	Solve(bodies, nil, []Joint{j}, p)

	// Anchors coincide at B's center, so the constraint kills all linear
	// velocity of that point.
	vrel := relativeVelocity(&bodies[0], &bodies[1], j.RA, j.RB)
	g.Expect(vrel.Len()).To(gomega.BeNumerically("~", 0, 1e-6))
}
