// Package integrate advances rigid-body state with semi-implicit Euler:
// velocities first, then poses from the new velocities. Updating in that
// order keeps contact stacks from gaining energy the way explicit Euler
// does.
package integrate

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// Velocity applies gravity, an external force, and exponential damping over
// dt.
func Velocity(v, force mgl64.Vec3, invMass float64, gravity mgl64.Vec3, damping, dt float64) mgl64.Vec3 {
	out := v.Add(gravity.Add(force.Mul(invMass)).Mul(dt))
	return out.Mul(dampingFactor(damping, dt))
}

// AngularVelocity applies a torque through the world-space inverse inertia
// and exponential damping over dt.
func AngularVelocity(w, torque mgl64.Vec3, invInertia mgl64.Mat3, damping, dt float64) mgl64.Vec3 {
	out := w.Add(invInertia.Mul3x1(torque).Mul(dt))
	return out.Mul(dampingFactor(damping, dt))
}

func dampingFactor(damping, dt float64) float64 {
	if damping <= 0 {
		return 1
	}
	return math.Exp(-damping * dt)
}

// Pose moves a transform along linear and angular velocity for dt. The
// rotation uses the quaternion derivative q' = 0.5*ω*q and renormalizes, so
// drift from the unit sphere never accumulates.
func Pose(t geom.Transform, v, w mgl64.Vec3, dt float64) geom.Transform {
	t.Position = t.Position.Add(v.Mul(dt))

	omega := mgl64.Quat{W: 0, V: w}
	dq := omega.Mul(t.Rotation).Scale(0.5 * dt)
	t.Rotation = t.Rotation.Add(dq).Normalize()
	return t
}

// Valid reports whether a body's state is still numerically sound. A false
// result means the step must quarantine the body rather than propagate NaN
// into the broad phase.
func Valid(t geom.Transform, v, w mgl64.Vec3) bool {
	return finiteVec(t.Position) && finiteVec(v) && finiteVec(w) &&
		finiteQuat(t.Rotation)
}

func finiteVec(v mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

func finiteQuat(q mgl64.Quat) bool {
	if math.IsNaN(q.W) || math.IsInf(q.W, 0) {
		return false
	}
	return finiteVec(q.V)
}

// WorldInvInertia rotates a body-local inverse inertia tensor into world
// space: R * I^-1 * R^T.
func WorldInvInertia(local mgl64.Mat3, rotation mgl64.Quat) mgl64.Mat3 {
	r := rotation.Mat4().Mat3()
	return r.Mul3(local).Mul3(r.Transpose())
}
