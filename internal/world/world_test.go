package world

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/geom"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Gravity = config.GravityConfig{Y: -10}
	return cfg
}

func mustSphereShape(t *testing.T, r float64) geom.Shape {
	t.Helper()
	s, err := geom.NewSphere(r)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustBoxShape(t *testing.T, hx, hy, hz float64) geom.Shape {
	t.Helper()
	b, err := geom.NewBox(mgl64.Vec3{hx, hy, hz})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustGround(t *testing.T, w *World) BodyID {
	t.Helper()
	plane, err := geom.NewPlane(mgl64.Vec3{0, 1, 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	id, err := w.CreateBody(BodyDef{Shape: plane, Motion: Static})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func stepN(t *testing.T, w *World, n int, dt float64) StepInfo {
	t.Helper()
	var info StepInfo
	for i := 0; i < n; i++ {
		var err error
		info, err = w.Step(dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return info
}

func TestDropSphereSettlesAndSleeps(t *testing.T) {
	g := gomega.NewWithT(t)

	w := New(testConfig())
	mustGround(t, w)
	ball, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0, 10, 0},
		Material: Material{Density: 1, Friction: 0.5, Restitution: 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	stepN(t, w, 300, 1.0/60)

	pose, err := w.Pose(ball)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(pose.Position.Y()).To(gomega.BeNumerically("~", 1.0, 0.01))

	asleep, err := w.Sleeping(ball)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(asleep).To(gomega.BeTrue(), "resting ball should fall asleep")
}

func TestStepRejectsNonPositiveDt(t *testing.T) {
	w := New(testConfig())
	for _, dt := range []float64{0, -0.01, math.NaN(), math.Inf(1)} {
		_, err := w.Step(dt)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Step(%v) error = %v, want ErrInvalidArgument", dt, err)
		}
		var se *StepError
		if !errors.As(err, &se) {
			t.Errorf("Step(%v) error should wrap StepError", dt)
		}
	}
}

func TestStaleHandleFailsAfterRemove(t *testing.T) {
	w := New(testConfig())
	id, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0, 5, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveBody(id); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Pose(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Pose after remove = %v, want ErrNotFound", err)
	}
	if err := w.RemoveBody(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("double remove = %v, want ErrNotFound", err)
	}

	// The recycled slot must not resurrect the old handle.
	id2, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{3, 5, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Pose(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale handle resolves after slot reuse: %v", err)
	}
	if _, err := w.Pose(id2); err != nil {
		t.Errorf("fresh handle failed: %v", err)
	}
}

func TestCreateBodyRejectsBadDefs(t *testing.T) {
	w := New(testConfig())
	cases := []struct {
		name string
		def  BodyDef
		want error
	}{
		{"nil shape", BodyDef{Motion: Dynamic}, ErrInvalidArgument},
		{"dynamic plane", func() BodyDef {
			p, _ := geom.NewPlane(mgl64.Vec3{0, 1, 0}, 0)
			return BodyDef{Shape: p, Motion: Dynamic}
		}(), ErrInvalidArgument},
		{"nan position", BodyDef{
			Shape: mustSphereShape(t, 1), Motion: Dynamic,
			Position: mgl64.Vec3{math.NaN(), 0, 0},
		}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := w.CreateBody(tc.def); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func buildDeterminismWorld(t *testing.T) (*World, []BodyID) {
	t.Helper()
	w := New(testConfig())
	mustGround(t, w)
	var ids []BodyID
	for i := 0; i < 8; i++ {
		id, err := w.CreateBody(BodyDef{
			Shape:    mustSphereShape(t, 0.5),
			Motion:   Dynamic,
			Position: mgl64.Vec3{float64(i%3) * 0.4, 3 + float64(i)*1.2, float64(i%2) * 0.3},
			Material: Material{Density: 1, Friction: 0.4, Restitution: 0.3},
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	return w, ids
}

func TestDeterministicReplay(t *testing.T) {
	w1, ids1 := buildDeterminismWorld(t)
	w2, ids2 := buildDeterminismWorld(t)

	stepN(t, w1, 240, 1.0/60)
	stepN(t, w2, 240, 1.0/60)

	for i := range ids1 {
		p1, err := w1.Pose(ids1[i])
		if err != nil {
			t.Fatal(err)
		}
		p2, err := w2.Pose(ids2[i])
		if err != nil {
			t.Fatal(err)
		}
		if p1.Position != p2.Position {
			t.Fatalf("body %d diverged: %v vs %v", i, p1.Position, p2.Position)
		}
		if p1.Rotation != p2.Rotation {
			t.Fatalf("body %d rotation diverged", i)
		}
	}
}

func TestContactEventLifecycle(t *testing.T) {
	g := gomega.NewWithT(t)

	w := New(testConfig())
	mustGround(t, w)
	ball, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0, 1.2, 0},
		Material: Material{Density: 1, Friction: 0.5, Restitution: 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	// Fall until first touch.
	sawBegin := false
	for i := 0; i < 120 && !sawBegin; i++ {
		stepN(t, w, 1, 1.0/60)
		for _, ev := range w.Events() {
			if ev.Type == ContactBegin {
				sawBegin = true
				g.Expect(ev.Points).To(gomega.BeNumerically(">", 0))
			}
		}
	}
	g.Expect(sawBegin).To(gomega.BeTrue(), "never saw ContactBegin")

	stepN(t, w, 1, 1.0/60)
	persist := false
	for _, ev := range w.Events() {
		if ev.Type == ContactPersist {
			persist = true
		}
	}
	g.Expect(persist).To(gomega.BeTrue(), "contact should persist while resting")

	// Launch upward and watch the contact end.
	g.Expect(w.ApplyImpulse(ball, mgl64.Vec3{0, 40, 0}, mgl64.Vec3{0, 1, 0})).To(gomega.Succeed())
	sawEnd := false
	for i := 0; i < 30 && !sawEnd; i++ {
		stepN(t, w, 1, 1.0/60)
		for _, ev := range w.Events() {
			if ev.Type == ContactEnd {
				sawEnd = true
			}
		}
	}
	g.Expect(sawEnd).To(gomega.BeTrue(), "never saw ContactEnd")
}

func TestImpulseWakesSleepingBody(t *testing.T) {
	g := gomega.NewWithT(t)

	w := New(testConfig())
	mustGround(t, w)
	ball, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0, 1.0, 0},
		Material: Material{Density: 1, Friction: 0.5, Restitution: 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	stepN(t, w, 120, 1.0/60)
	asleep, _ := w.Sleeping(ball)
	g.Expect(asleep).To(gomega.BeTrue())

	g.Expect(w.ApplyImpulse(ball, mgl64.Vec3{5, 0, 0}, mgl64.Vec3{0, 1, 0})).To(gomega.Succeed())
	asleep, _ = w.Sleeping(ball)
	g.Expect(asleep).To(gomega.BeFalse())

	before, _ := w.Pose(ball)
	stepN(t, w, 30, 1.0/60)
	after, _ := w.Pose(ball)
	g.Expect(after.Position.X()).To(gomega.BeNumerically(">", before.Position.X()+0.1))
}

func TestKinematicIgnoresGravity(t *testing.T) {
	w := New(testConfig())
	id, err := w.CreateBody(BodyDef{
		Shape:    mustBoxShape(t, 1, 1, 1),
		Motion:   Kinematic,
		Position: mgl64.Vec3{0, 5, 0},
		Velocity: mgl64.Vec3{1, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	stepN(t, w, 60, 1.0/60)

	pose, err := w.Pose(id)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pose.Position.Y()-5) > 1e-9 {
		t.Errorf("kinematic body fell: y = %v", pose.Position.Y())
	}
	if math.Abs(pose.Position.X()-1) > 1e-9 {
		t.Errorf("kinematic body x = %v, want 1", pose.Position.X())
	}
}

func TestRemoveBodyDropsJoints(t *testing.T) {
	w := New(testConfig())
	anchor, err := w.CreateBody(BodyDef{
		Shape:    mustBoxShape(t, 0.1, 0.1, 0.1),
		Motion:   Static,
		Position: mgl64.Vec3{0, 5, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	bob, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 0.3),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0, 3, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	jid, err := w.AddJoint(JointDef{Kind: JointDistance, A: anchor, B: bob})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.RemoveBody(bob); err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveJoint(jid); !errors.Is(err, ErrNotFound) {
		t.Errorf("joint should be gone with its body, got %v", err)
	}
	// The world still steps cleanly.
	stepN(t, w, 10, 1.0/60)
}

func TestRemoveOverlappingBodyBeforeFirstStep(t *testing.T) {
	g := gomega.NewWithT(t)

	w := New(testConfig())
	first, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Static,
		Position: mgl64.Vec3{0, 0, 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	second, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0.5, 0, 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	// The first body's bound overlaps the survivor when it is removed, so
	// its queued proxy must not reach the pair query.
	g.Expect(w.RemoveBody(first)).To(gomega.Succeed())

	stepN(t, w, 5, 1.0/60)

	g.Expect(w.BodyCount()).To(gomega.Equal(1))
	_, err = w.Pose(first)
	g.Expect(errors.Is(err, ErrNotFound)).To(gomega.BeTrue())
	pose, err := w.Pose(second)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(pose.Position.Y()).To(gomega.BeNumerically("<", 0), "survivor keeps falling")
}

func TestDistanceJointPendulum(t *testing.T) {
	g := gomega.NewWithT(t)

	w := New(testConfig())
	anchor, err := w.CreateBody(BodyDef{
		Shape:    mustBoxShape(t, 0.1, 0.1, 0.1),
		Motion:   Static,
		Position: mgl64.Vec3{0, 10, 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	bob, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 0.3),
		Motion:   Dynamic,
		Position: mgl64.Vec3{2, 10, 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())
	_, err = w.AddJoint(JointDef{Kind: JointDistance, A: anchor, B: bob, Length: 2})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	for i := 0; i < 600; i++ {
		stepN(t, w, 1, 1.0/60)
		pose, err := w.Pose(bob)
		g.Expect(err).NotTo(gomega.HaveOccurred())
		dist := pose.Position.Sub(mgl64.Vec3{0, 10, 0}).Len()
		g.Expect(dist).To(gomega.BeNumerically("~", 2, 0.1),
			"rod length drifted at step %d", i)
	}
}

func TestRayCastHitsNearest(t *testing.T) {
	w := New(testConfig())
	near, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Static,
		Position: mgl64.Vec3{5, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Static,
		Position: mgl64.Vec3{10, 0, 0},
	}); err != nil {
		t.Fatal(err)
	}

	hit, ok := w.RayCast(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 100)
	if !ok {
		t.Fatal("ray missed")
	}
	if hit.Body != near {
		t.Error("ray hit the far body first")
	}
	if math.Abs(hit.Distance-4) > 1e-9 {
		t.Errorf("distance = %v, want 4", hit.Distance)
	}

	if _, ok := w.RayCast(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{1, 0, 0}, 100); ok {
		t.Error("ray above the spheres should miss")
	}
}

func TestNumericalBlowupQuarantined(t *testing.T) {
	g := gomega.NewWithT(t)

	w := New(testConfig())
	id, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0, 0, 0},
		Velocity: mgl64.Vec3{1e308, 0, 0},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	quarantined := false
	for i := 0; i < 200 && !quarantined; i++ {
		info, err := w.Step(1.0 / 60)
		g.Expect(err).NotTo(gomega.HaveOccurred(), "blowup must not fail the step")
		if len(info.Unstable) > 0 {
			quarantined = true
			g.Expect(info.Unstable[0]).To(gomega.Equal(id))
		}
	}
	g.Expect(quarantined).To(gomega.BeTrue(), "runaway body never quarantined")

	pose, err := w.Pose(id)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(math.IsInf(pose.Position.X(), 0)).To(gomega.BeFalse())
	asleep, _ := w.Sleeping(id)
	g.Expect(asleep).To(gomega.BeTrue())

	lin, ang, err := w.Velocity(id)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(lin.Len()).To(gomega.BeZero())
	g.Expect(ang.Len()).To(gomega.BeZero())
}

func TestStepInfoCounters(t *testing.T) {
	w := New(testConfig())
	mustGround(t, w)
	for i := 0; i < 3; i++ {
		if _, err := w.CreateBody(BodyDef{
			Shape:    mustSphereShape(t, 0.5),
			Motion:   Dynamic,
			Position: mgl64.Vec3{float64(i) * 5, 0.4, 0},
		}); err != nil {
			t.Fatal(err)
		}
	}

	info := stepN(t, w, 1, 1.0/60)
	if info.Bodies != 4 {
		t.Errorf("Bodies = %d, want 4", info.Bodies)
	}
	if info.Awake != 3 {
		t.Errorf("Awake = %d, want 3", info.Awake)
	}
	if info.Pairs < 3 {
		t.Errorf("Pairs = %d, want at least the 3 ground contacts", info.Pairs)
	}
	if info.KineticEnergy < 0 {
		t.Errorf("KineticEnergy = %v, want >= 0", info.KineticEnergy)
	}
}

func TestSnapshotListsAllBodies(t *testing.T) {
	w := New(testConfig())
	mustGround(t, w)
	if _, err := w.CreateBody(BodyDef{
		Shape:    mustSphereShape(t, 1),
		Motion:   Dynamic,
		Position: mgl64.Vec3{0, 3, 0},
	}); err != nil {
		t.Fatal(err)
	}

	snaps := w.Snapshot()
	if len(snaps) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snaps))
	}
	if snaps[0].Kind != geom.KindPlane {
		t.Errorf("first snapshot kind = %v, want plane", snaps[0].Kind)
	}
	if snaps[1].Position.Y() != 3 {
		t.Errorf("sphere snapshot y = %v, want 3", snaps[1].Position.Y())
	}
}
