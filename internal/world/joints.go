package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/solver"
)

// JointKind selects the constraint a joint enforces.
type JointKind int

const (
	// JointDistance holds two anchor points at a fixed separation.
	JointDistance JointKind = iota
	// JointSpherical pins two anchor points together, rotation free.
	JointSpherical
)

// JointDef describes a joint between two bodies. Anchors are in each body's
// local frame.
type JointDef struct {
	Kind    JointKind
	A, B    BodyID
	AnchorA mgl64.Vec3
	AnchorB mgl64.Vec3

	// Length applies to distance joints. Zero means "use the current
	// anchor separation".
	Length float64
}

type jointRecord struct {
	kind           JointKind
	a, b           handle
	anchorA        mgl64.Vec3
	anchorB        mgl64.Vec3
	length         float64
	linearImpulse  float64
	pointImpulse   mgl64.Vec3
	builtDistance  *solver.DistanceJoint
	builtSpherical *solver.SphericalJoint
}

// AddJoint validates a joint definition and registers it. Both bodies wake.
func (w *World) AddJoint(def JointDef) (JointID, error) {
	a, aok := w.bodies.get(def.A.h)
	b, bok := w.bodies.get(def.B.h)
	if !aok || !bok {
		return JointID{}, ErrNotFound
	}
	if def.A.h == def.B.h {
		return JointID{}, ErrInvalidArgument
	}
	if !finiteVec(def.AnchorA) || !finiteVec(def.AnchorB) || def.Length < 0 {
		return JointID{}, ErrInvalidArgument
	}
	if a.motion != Dynamic && b.motion != Dynamic {
		return JointID{}, ErrInvalidArgument
	}

	rec := jointRecord{
		kind:    def.Kind,
		a:       def.A.h,
		b:       def.B.h,
		anchorA: def.AnchorA,
		anchorB: def.AnchorB,
		length:  def.Length,
	}
	if def.Kind == JointDistance && def.Length == 0 {
		pa := a.transform.Point(def.AnchorA)
		pb := b.transform.Point(def.AnchorB)
		rec.length = pb.Sub(pa).Len()
	}

	w.wake(a)
	w.wake(b)
	return JointID{h: w.joints.alloc(rec)}, nil
}

// RemoveJoint frees a joint.
func (w *World) RemoveJoint(id JointID) error {
	if !w.joints.release(id.h) {
		return ErrNotFound
	}
	return nil
}

// buildJoints lowers live joints into solver constraints, in joint arena
// order. Joints keep sleeping partners of awake bodies honest by waking
// them.
func (w *World) buildJoints(sbodies []solver.Body) []solver.Joint {
	var out []solver.Joint
	w.joints.each(func(h handle, j *jointRecord) {
		j.builtDistance = nil
		j.builtSpherical = nil

		a, aok := w.bodies.get(j.a)
		b, bok := w.bodies.get(j.b)
		if !aok || !bok {
			return
		}
		if a.awakeDynamic() && b.motion == Dynamic && b.sleeping {
			w.wake(b)
			sbodies[j.b.index].InvMass = b.invMass
			sbodies[j.b.index].InvInertia = b.worldInvInertia()
		}
		if b.awakeDynamic() && a.motion == Dynamic && a.sleeping {
			w.wake(a)
			sbodies[j.a.index].InvMass = a.invMass
			sbodies[j.a.index].InvInertia = a.worldInvInertia()
		}
		if !a.awakeDynamic() && !b.awakeDynamic() {
			return
		}

		ra := a.transform.Dir(j.anchorA)
		rb := b.transform.Dir(j.anchorB)

		switch j.kind {
		case JointDistance:
			dj := &solver.DistanceJoint{
				A: int(j.a.index), B: int(j.b.index),
				RA: ra, RB: rb,
				Length: j.length,
			}
			dj.SetImpulse(j.linearImpulse)
			j.builtDistance = dj
			out = append(out, dj)
		case JointSpherical:
			sj := &solver.SphericalJoint{
				A: int(j.a.index), B: int(j.b.index),
				RA: ra, RB: rb,
			}
			sj.SetImpulse(j.pointImpulse)
			j.builtSpherical = sj
			out = append(out, sj)
		}
	})
	return out
}

// storeJointImpulses copies accumulated impulses back into the records so
// the next step warm starts.
func (w *World) storeJointImpulses() {
	w.joints.each(func(h handle, j *jointRecord) {
		if j.builtDistance != nil {
			j.linearImpulse = j.builtDistance.Impulse()
			j.builtDistance = nil
		}
		if j.builtSpherical != nil {
			j.pointImpulse = j.builtSpherical.Impulse()
			j.builtSpherical = nil
		}
	})
}
