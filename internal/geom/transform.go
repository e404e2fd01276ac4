package geom

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid pose: position plus unit-quaternion orientation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform builds a pose from a position and orientation. The rotation
// is normalized so callers can pass unnormalized quaternions.
func NewTransform(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{Position: position, Rotation: rotation.Normalize()}
}

// TransformAt returns an identity-rotation pose at the given position.
func TransformAt(position mgl64.Vec3) Transform {
	return Transform{Position: position, Rotation: mgl64.QuatIdent()}
}

// Point maps a local point into world space.
func (t Transform) Point(local mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(local))
}

// LocalPoint maps a world point into the transform's local space.
func (t Transform) LocalPoint(world mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(world.Sub(t.Position))
}

// Dir maps a local direction into world space (rotation only).
func (t Transform) Dir(local mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(local)
}

// LocalDir maps a world direction into local space.
func (t Transform) LocalDir(world mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(world)
}

// RotationMat3 returns the orientation as a 3x3 matrix.
func (t Transform) RotationMat3() mgl64.Mat3 {
	return t.Rotation.Mat4().Mat3()
}

// SupportWorld returns the farthest point of a convex shape in a world-space
// direction: the direction is taken into local space, the local support is
// queried, and the result mapped back out.
func SupportWorld(s ConvexShape, t Transform, worldDir mgl64.Vec3) mgl64.Vec3 {
	return t.Point(s.Support(t.LocalDir(worldDir)))
}
