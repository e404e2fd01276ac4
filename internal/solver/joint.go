package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Joint is a bilateral constraint between two bodies, solved inside the same
// iteration loop as contacts.
type Joint interface {
	init(bodies []Body, p Params)
	warmStart(bodies []Body)
	solve(bodies []Body)
}

// DistanceJoint keeps two anchor points at a fixed separation, like a stiff
// rod. Anchors are stored in world space relative to each body's center of
// mass for the current step.
type DistanceJoint struct {
	A, B   int
	RA, RB mgl64.Vec3 // world offsets from each center of mass
	Length float64

	axis    mgl64.Vec3
	mass    float64
	bias    float64
	impulse float64
}

// Impulse returns the accumulated impulse, for carrying across steps.
func (j *DistanceJoint) Impulse() float64 { return j.impulse }

// SetImpulse seeds the accumulated impulse before a solve.
func (j *DistanceJoint) SetImpulse(v float64) { j.impulse = v }

func (j *DistanceJoint) init(bodies []Body, p Params) {
	a, b := &bodies[j.A], &bodies[j.B]
	span := b.Position.Add(j.RB).Sub(a.Position.Add(j.RA))
	dist := span.Len()

	j.axis = mgl64.Vec3{0, 1, 0}
	if dist > 1e-9 {
		j.axis = span.Mul(1 / dist)
	}
	j.mass = effectiveMass(a, b, j.RA, j.RB, j.axis)
	j.bias = 0
	if p.Dt > 0 {
		j.bias = p.Beta / p.Dt * (dist - j.Length)
	}
}

func (j *DistanceJoint) warmStart(bodies []Body) {
	a, b := &bodies[j.A], &bodies[j.B]
	impulse := j.axis.Mul(j.impulse)
	a.applyImpulse(impulse.Mul(-1), j.RA)
	b.applyImpulse(impulse, j.RB)
}

func (j *DistanceJoint) solve(bodies []Body) {
	a, b := &bodies[j.A], &bodies[j.B]
	vrel := relativeVelocity(a, b, j.RA, j.RB).Dot(j.axis)
	lambda := -j.mass * (vrel + j.bias)
	j.impulse += lambda

	impulse := j.axis.Mul(lambda)
	a.applyImpulse(impulse.Mul(-1), j.RA)
	b.applyImpulse(impulse, j.RB)
}

// SphericalJoint pins two anchor points together while leaving rotation
// free, a ball-and-socket.
type SphericalJoint struct {
	A, B   int
	RA, RB mgl64.Vec3

	mass    mgl64.Mat3 // effective mass of the 3-dof point constraint
	bias    mgl64.Vec3
	impulse mgl64.Vec3
}

// Impulse returns the accumulated impulse, for carrying across steps.
func (j *SphericalJoint) Impulse() mgl64.Vec3 { return j.impulse }

// SetImpulse seeds the accumulated impulse before a solve.
func (j *SphericalJoint) SetImpulse(v mgl64.Vec3) { j.impulse = v }

func (j *SphericalJoint) init(bodies []Body, p Params) {
	a, b := &bodies[j.A], &bodies[j.B]

	k := mgl64.Diag3(mgl64.Vec3{
		a.InvMass + b.InvMass,
		a.InvMass + b.InvMass,
		a.InvMass + b.InvMass,
	})
	k = k.Add(skewMassTerm(a.InvInertia, j.RA)).Add(skewMassTerm(b.InvInertia, j.RB))
	j.mass = safeInverse(k)

	j.bias = mgl64.Vec3{}
	if p.Dt > 0 {
		drift := b.Position.Add(j.RB).Sub(a.Position.Add(j.RA))
		j.bias = drift.Mul(p.Beta / p.Dt)
	}
}

func (j *SphericalJoint) warmStart(bodies []Body) {
	a, b := &bodies[j.A], &bodies[j.B]
	a.applyImpulse(j.impulse.Mul(-1), j.RA)
	b.applyImpulse(j.impulse, j.RB)
}

func (j *SphericalJoint) solve(bodies []Body) {
	a, b := &bodies[j.A], &bodies[j.B]
	vrel := relativeVelocity(a, b, j.RA, j.RB)
	lambda := j.mass.Mul3x1(vrel.Add(j.bias)).Mul(-1)
	j.impulse = j.impulse.Add(lambda)

	a.applyImpulse(lambda.Mul(-1), j.RA)
	b.applyImpulse(lambda, j.RB)
}

// skewMassTerm expands -[r]x * I^-1 * [r]x, the angular contribution of one
// body to the point-constraint mass matrix.
func skewMassTerm(invInertia mgl64.Mat3, r mgl64.Vec3) mgl64.Mat3 {
	rs := skew(r)
	return rs.Mul3(invInertia).Mul3(rs).Mul(-1)
}

func skew(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, v.Z(), -v.Y(),
		-v.Z(), 0, v.X(),
		v.Y(), -v.X(), 0,
	}
}

// safeInverse falls back to zero (a disabled constraint) when the mass
// matrix is singular, which happens for two static anchors.
func safeInverse(m mgl64.Mat3) mgl64.Mat3 {
	if math.Abs(m.Det()) < 1e-12 {
		return mgl64.Mat3{}
	}
	return m.Inv()
}
