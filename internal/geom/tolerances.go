package geom

// Numeric tolerances used across the collision pipeline. Keeping them in one
// place makes the interplay between the phases auditable: the broad phase
// pads by more than the narrow phase tolerates, and the solver leaves
// LinearSlop of overlap so resting contacts do not jitter.
const (
	// Epsilon treats near-zero separations as touching.
	Epsilon = 1e-9

	// LinearSlop is the overlap the solver deliberately leaves in place.
	// Penetration below this produces no positional correction.
	LinearSlop = 0.005

	// ContactMatchDistance is the maximum distance between a cached contact
	// point and a fresh one for warm-start impulses to carry over. Also used
	// to deduplicate near-coincident manifold points.
	ContactMatchDistance = 0.01

	// DefaultBoundsPadding fattens broad-phase bounds so slowly moving
	// bodies do not force a tree update every step.
	DefaultBoundsPadding = 0.1

	// PlaneExtent bounds the "infinite" plane for broad-phase purposes.
	PlaneExtent = 1e4
)
