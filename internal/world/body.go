package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/integrate"
)

// MotionType selects how a body participates in the simulation.
type MotionType int

const (
	// Static bodies never move and collide only with non-static bodies.
	Static MotionType = iota
	// Kinematic bodies follow their set velocity, unaffected by forces or
	// contacts.
	Kinematic
	// Dynamic bodies respond to gravity, forces, and contacts.
	Dynamic
)

func (m MotionType) String() string {
	switch m {
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Material bundles the surface and mass response of a body.
type Material struct {
	Density     float64
	Friction    float64
	Restitution float64
}

// DefaultMaterial is a medium-friction, slightly bouncy solid.
func DefaultMaterial() Material {
	return Material{Density: 1, Friction: 0.5, Restitution: 0.1}
}

// BodyID is an opaque handle to a body. Handles outlive removal safely:
// operations on a removed body's id fail with ErrNotFound.
type BodyID struct {
	h handle
}

// JointID is an opaque handle to a joint.
type JointID struct {
	h handle
}

// BodyDef describes a body at creation time.
type BodyDef struct {
	Shape           geom.Shape
	Motion          MotionType
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Material        Material
	LinearDamping   float64
	AngularDamping  float64
}

// body is the internal record behind a BodyID.
type body struct {
	shape    geom.Shape
	motion   MotionType
	material Material

	transform geom.Transform
	v, w      mgl64.Vec3

	invMass         float64
	localInertia    mgl64.Mat3
	localInvInertia mgl64.Mat3

	force  mgl64.Vec3
	torque mgl64.Vec3

	linDamping float64
	angDamping float64

	proxy      int32
	sleeping   bool
	sleepTimer float64
}

func (b *body) awakeDynamic() bool {
	return b.motion == Dynamic && !b.sleeping
}

func (b *body) moves() bool {
	return b.motion != Static && !b.sleeping
}

func newBody(def BodyDef) (body, error) {
	if def.Shape == nil {
		return body{}, ErrInvalidArgument
	}
	rot := def.Rotation
	if rot.Len() < geom.Epsilon {
		rot = mgl64.QuatIdent()
	}
	mat := def.Material
	if mat == (Material{}) {
		mat = DefaultMaterial()
	}

	b := body{
		shape:      def.Shape,
		motion:     def.Motion,
		material:   mat,
		transform:  geom.NewTransform(def.Position, rot.Normalize()),
		v:          def.Velocity,
		w:          def.AngularVelocity,
		linDamping: def.LinearDamping,
		angDamping: def.AngularDamping,
		proxy:      -1,
	}

	if def.Motion == Dynamic {
		mass := def.Shape.Mass(mat.Density)
		if mass <= 0 || math.IsInf(mass, 0) {
			return body{}, ErrInvalidArgument
		}
		b.invMass = 1 / mass
		b.localInertia = def.Shape.Inertia(mass)
		b.localInvInertia = b.localInertia.Inv()
	}
	return b, nil
}

// worldInvInertia rotates the local tensor by the current orientation.
// Static and kinematic bodies report zero, they never yield to impulses.
func (b *body) worldInvInertia() mgl64.Mat3 {
	if b.motion != Dynamic {
		return mgl64.Mat3{}
	}
	return integrate.WorldInvInertia(b.localInvInertia, b.transform.Rotation)
}

func (b *body) worldBounds() geom.AABB {
	return geom.WorldBounds(b.shape, b.transform)
}
