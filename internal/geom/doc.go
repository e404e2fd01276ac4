// Package geom provides the geometric foundation for the rigid-body
// simulation: collision shapes, rigid transforms, axis-aligned bounds and
// the numeric tolerances shared by the collision pipeline.
//
// Shapes form a closed set ([Sphere], [Box], [Capsule], [ConvexHull],
// [Plane]) and are immutable after construction. Constructors reject
// degenerate geometry up front, so queries never have to defend against
// zero-extent shapes.
//
// All math is built on mgl64 from go-gl/mathgl.
package geom
