package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// BodySnapshot is a read-only copy of one body's state, for viewers and
// exporters.
type BodySnapshot struct {
	ID       BodyID
	Kind     geom.Kind
	Motion   MotionType
	Sleeping bool

	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3
	Angular  mgl64.Vec3

	// Radius is the bounding-sphere radius of the shape, enough for
	// coarse rendering.
	Radius float64
}

// Snapshot copies every live body in id order.
func (w *World) Snapshot() []BodySnapshot {
	out := make([]BodySnapshot, 0, w.bodies.len())
	w.bodies.each(func(h handle, b *body) {
		bounds := b.shape.Bounds()
		half := bounds.Max.Sub(bounds.Min).Mul(0.5)
		out = append(out, BodySnapshot{
			ID:       BodyID{h: h},
			Kind:     b.shape.Kind(),
			Motion:   b.motion,
			Sleeping: b.sleeping,
			Position: b.transform.Position,
			Rotation: b.transform.Rotation,
			Velocity: b.v,
			Angular:  b.w,
			Radius:   half.Len(),
		})
	})
	return out
}
