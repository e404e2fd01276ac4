// Package solver resolves contact and joint constraints with sequential
// impulses. Impulses accumulate across a fixed iteration count and persist
// across steps for warm starting, which is what lets low iteration counts
// hold stacks together.
package solver

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is the solver's view of a rigid body. The solver reads mass and pose
// and mutates only the velocities.
type Body struct {
	InvMass    float64
	InvInertia mgl64.Mat3 // world space
	Position   mgl64.Vec3
	V          mgl64.Vec3
	W          mgl64.Vec3
}

// Params tunes the velocity solve.
type Params struct {
	Iterations      int
	Dt              float64
	Beta            float64 // Baumgarte position-correction gain
	Slop            float64 // penetration allowed without correction
	BounceThreshold float64 // min approach speed for restitution
}

// ContactPoint carries one manifold point through the solve. The accumulated
// impulses survive the step for warm starting.
type ContactPoint struct {
	RA, RB      mgl64.Vec3 // contact offset from each center of mass
	Penetration float64

	Pn  float64 // accumulated normal impulse
	Pt1 float64 // accumulated tangent impulses
	Pt2 float64

	normalMass   float64
	tangentMass1 float64
	tangentMass2 float64
	velocityBias float64
}

// Contact is the constraint built from one manifold.
type Contact struct {
	A, B        int
	Normal      mgl64.Vec3 // unit, from A toward B
	Friction    float64
	Restitution float64
	Points      []ContactPoint

	tangent1 mgl64.Vec3
	tangent2 mgl64.Vec3
}

func (b *Body) applyImpulse(p, r mgl64.Vec3) {
	b.V = b.V.Add(p.Mul(b.InvMass))
	b.W = b.W.Add(b.InvInertia.Mul3x1(r.Cross(p)))
}

// relativeVelocity is the velocity of the contact point on B relative to the
// point on A.
func relativeVelocity(a, b *Body, ra, rb mgl64.Vec3) mgl64.Vec3 {
	vb := b.V.Add(b.W.Cross(rb))
	va := a.V.Add(a.W.Cross(ra))
	return vb.Sub(va)
}

// effectiveMass inverts the scalar constraint mass along dir.
func effectiveMass(a, b *Body, ra, rb, dir mgl64.Vec3) float64 {
	rna := ra.Cross(dir)
	rnb := rb.Cross(dir)
	k := a.InvMass + b.InvMass +
		a.InvInertia.Mul3x1(rna).Cross(ra).Dot(dir) +
		b.InvInertia.Mul3x1(rnb).Cross(rb).Dot(dir)
	if k < 1e-12 {
		return 0
	}
	return 1 / k
}

// Prepare computes effective masses and velocity biases from the pre-solve
// state. Restitution samples the approach speed here, before any impulses
// change it.
func Prepare(bodies []Body, contacts []Contact, p Params) {
	for ci := range contacts {
		c := &contacts[ci]
		a, b := &bodies[c.A], &bodies[c.B]
		c.tangent1, c.tangent2 = tangentBasis(c.Normal)

		for pi := range c.Points {
			cp := &c.Points[pi]
			cp.normalMass = effectiveMass(a, b, cp.RA, cp.RB, c.Normal)
			cp.tangentMass1 = effectiveMass(a, b, cp.RA, cp.RB, c.tangent1)
			cp.tangentMass2 = effectiveMass(a, b, cp.RA, cp.RB, c.tangent2)

			cp.velocityBias = 0
			if p.Dt > 0 {
				cp.velocityBias = p.Beta / p.Dt * math.Max(0, cp.Penetration-p.Slop)
			}
			vn := relativeVelocity(a, b, cp.RA, cp.RB).Dot(c.Normal)
			if vn < -p.BounceThreshold {
				cp.velocityBias += -c.Restitution * vn
			}
		}
	}
}

// WarmStart reapplies last step's accumulated impulses so the iterations
// start near the previous solution.
func WarmStart(bodies []Body, contacts []Contact) {
	for ci := range contacts {
		c := &contacts[ci]
		a, b := &bodies[c.A], &bodies[c.B]
		for pi := range c.Points {
			cp := &c.Points[pi]
			impulse := c.Normal.Mul(cp.Pn).
				Add(c.tangent1.Mul(cp.Pt1)).
				Add(c.tangent2.Mul(cp.Pt2))
			a.applyImpulse(impulse.Mul(-1), cp.RA)
			b.applyImpulse(impulse, cp.RB)
		}
	}
}

// Solve runs the fixed iteration loop. Contacts are visited in slice order,
// which the caller keeps sorted by body pair; joints follow contacts. The
// solve never fails, leftover error is carried to the next step.
func Solve(bodies []Body, contacts []Contact, joints []Joint, p Params) {
	for i := range joints {
		joints[i].init(bodies, p)
		joints[i].warmStart(bodies)
	}
	for it := 0; it < p.Iterations; it++ {
		for ci := range contacts {
			solveContact(bodies, &contacts[ci])
		}
		for ji := range joints {
			joints[ji].solve(bodies)
		}
	}
}

func solveContact(bodies []Body, c *Contact) {
	a, b := &bodies[c.A], &bodies[c.B]

	// Friction first, clamped against the normal impulse accumulated so
	// far.
	for pi := range c.Points {
		cp := &c.Points[pi]
		rel := relativeVelocity(a, b, cp.RA, cp.RB)
		maxF := c.Friction * cp.Pn

		lambda := -cp.tangentMass1 * rel.Dot(c.tangent1)
		old := cp.Pt1
		cp.Pt1 = clamp(cp.Pt1+lambda, -maxF, maxF)
		impulse := c.tangent1.Mul(cp.Pt1 - old)

		lambda = -cp.tangentMass2 * rel.Dot(c.tangent2)
		old = cp.Pt2
		cp.Pt2 = clamp(cp.Pt2+lambda, -maxF, maxF)
		impulse = impulse.Add(c.tangent2.Mul(cp.Pt2 - old))

		a.applyImpulse(impulse.Mul(-1), cp.RA)
		b.applyImpulse(impulse, cp.RB)
	}

	for pi := range c.Points {
		cp := &c.Points[pi]
		vn := relativeVelocity(a, b, cp.RA, cp.RB).Dot(c.Normal)
		lambda := -cp.normalMass * (vn - cp.velocityBias)

		old := cp.Pn
		cp.Pn = math.Max(cp.Pn+lambda, 0)
		impulse := c.Normal.Mul(cp.Pn - old)

		a.applyImpulse(impulse.Mul(-1), cp.RA)
		b.applyImpulse(impulse, cp.RB)
	}
}

// SortContacts fixes the visit order by body pair so the float accumulation
// is reproducible run to run.
func SortContacts(contacts []Contact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		if contacts[i].A != contacts[j].A {
			return contacts[i].A < contacts[j].A
		}
		return contacts[i].B < contacts[j].B
	})
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func tangentBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var t mgl64.Vec3
	if math.Abs(n.X()) > 0.707 {
		t = mgl64.Vec3{n.Y(), -n.X(), 0}
	} else {
		t = mgl64.Vec3{0, n.Z(), -n.Y()}
	}
	t = t.Normalize()
	return t, n.Cross(t)
}
