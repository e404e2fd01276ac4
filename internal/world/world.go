// Package world drives the simulation: it owns the bodies and joints,
// runs the collision pipeline each step, and exposes the public handle-based
// API.
package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/broadphase"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/integrate"
	"github.com/san-kum/rigidsim/internal/narrowphase"
	"github.com/san-kum/rigidsim/internal/solver"
)

const narrowPhaseChunk = 8

// World is a self-contained simulation. It is not safe for concurrent use;
// one goroutine steps it and reads it.
type World struct {
	gravity      mgl64.Vec3
	iterations   int
	workers      int
	contactBeta  float64
	bounceThresh float64
	sleepLinear  float64
	sleepAngular float64
	sleepDelay   float64

	bodies arena[body]
	joints arena[jointRecord]
	tree   *broadphase.Tree

	// proxies created since the last step; they must query for pairs once
	// even if their body never moves (a wall placed inside a sleeping
	// stack has to wake it).
	pendingMoved []int32

	step uint64
	time float64

	events       []ContactEvent
	prevContacts map[pairKey]contactSummary
	warm         map[pairKey][]warmPoint
}

type warmPoint struct {
	pos          mgl64.Vec3
	pn, pt1, pt2 float64
}

// StepInfo reports what one Step did.
type StepInfo struct {
	Step            uint64
	Time            float64
	Bodies          int
	Awake           int
	Pairs           int
	Contacts        int
	KineticEnergy   float64
	PotentialEnergy float64

	// Unstable lists bodies quarantined this step after producing a
	// non-finite state. Their poses were rolled back and they were forced
	// asleep.
	Unstable []BodyID
}

// New builds an empty world from a tuning config.
func New(cfg *config.Config) *World {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = config.DefaultIterations
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}
	padding := cfg.BroadPhase.Padding
	if padding <= 0 {
		padding = config.DefaultPadding
	}
	return &World{
		gravity:      mgl64.Vec3{cfg.Gravity.X, cfg.Gravity.Y, cfg.Gravity.Z},
		iterations:   iterations,
		workers:      workers,
		contactBeta:  cfg.Contact.Beta,
		bounceThresh: cfg.Contact.BounceThreshold,
		sleepLinear:  cfg.Sleep.Linear,
		sleepAngular: cfg.Sleep.Angular,
		sleepDelay:   cfg.Sleep.Delay,
		tree:         broadphase.New(padding),
		prevContacts: map[pairKey]contactSummary{},
		warm:         map[pairKey][]warmPoint{},
	}
}

// CreateBody validates the definition, allocates a handle, and registers
// the body with the broad phase.
func (w *World) CreateBody(def BodyDef) (BodyID, error) {
	b, err := newBody(def)
	if err != nil {
		return BodyID{}, err
	}
	if !finiteVec(def.Position) || !finiteVec(def.Velocity) || !finiteVec(def.AngularVelocity) {
		return BodyID{}, ErrInvalidArgument
	}

	h := w.bodies.alloc(b)
	stored, _ := w.bodies.get(h)
	stored.proxy = w.tree.CreateProxy(stored.worldBounds(), int(h.index))
	w.pendingMoved = append(w.pendingMoved, stored.proxy)
	return BodyID{h: h}, nil
}

// RemoveBody frees a body. Joints, contact state, and warm-start impulses
// referencing it are dropped; its id becomes permanently stale.
func (w *World) RemoveBody(id BodyID) error {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return ErrNotFound
	}
	w.tree.DestroyProxy(b.proxy)

	// The proxy may still be queued for its first pair query.
	for i, p := range w.pendingMoved {
		if p == b.proxy {
			w.pendingMoved = append(w.pendingMoved[:i], w.pendingMoved[i+1:]...)
			break
		}
	}

	var stale []handle
	w.joints.each(func(jh handle, j *jointRecord) {
		if j.a == id.h || j.b == id.h {
			stale = append(stale, jh)
		}
	})
	for _, jh := range stale {
		w.joints.release(jh)
	}

	for key := range w.prevContacts {
		if key.a == id.h || key.b == id.h {
			delete(w.prevContacts, key)
		}
	}
	for key := range w.warm {
		if key.a == id.h || key.b == id.h {
			delete(w.warm, key)
		}
	}

	w.bodies.release(id.h)
	return nil
}

// Pose returns the body's current transform.
func (w *World) Pose(id BodyID) (geom.Transform, error) {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return geom.Transform{}, ErrNotFound
	}
	return b.transform, nil
}

// Velocity returns the body's linear and angular velocity.
func (w *World) Velocity(id BodyID) (linear, angular mgl64.Vec3, err error) {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, ErrNotFound
	}
	return b.v, b.w, nil
}

// SetVelocity overwrites both velocities and wakes the body.
func (w *World) SetVelocity(id BodyID, linear, angular mgl64.Vec3) error {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return ErrNotFound
	}
	if !finiteVec(linear) || !finiteVec(angular) {
		return ErrInvalidArgument
	}
	if b.motion == Static {
		return ErrInvalidArgument
	}
	b.v, b.w = linear, angular
	w.wake(b)
	return nil
}

// ApplyForce accumulates a force and torque for the next Step and wakes the
// body. Forces clear after each step.
func (w *World) ApplyForce(id BodyID, force, torque mgl64.Vec3) error {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return ErrNotFound
	}
	if !finiteVec(force) || !finiteVec(torque) {
		return ErrInvalidArgument
	}
	if b.motion != Dynamic {
		return ErrInvalidArgument
	}
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(torque)
	w.wake(b)
	return nil
}

// ApplyImpulse changes velocity immediately: at the center of mass for the
// linear part, with the lever arm from point for the angular part.
func (w *World) ApplyImpulse(id BodyID, impulse, point mgl64.Vec3) error {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return ErrNotFound
	}
	if !finiteVec(impulse) || !finiteVec(point) {
		return ErrInvalidArgument
	}
	if b.motion != Dynamic {
		return ErrInvalidArgument
	}
	b.v = b.v.Add(impulse.Mul(b.invMass))
	r := point.Sub(b.transform.Position)
	b.w = b.w.Add(b.worldInvInertia().Mul3x1(r.Cross(impulse)))
	w.wake(b)
	return nil
}

// Wake forces a body awake and resets its sleep timer.
func (w *World) Wake(id BodyID) error {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return ErrNotFound
	}
	w.wake(b)
	return nil
}

func (w *World) wake(b *body) {
	if b.motion == Static {
		return
	}
	b.sleeping = false
	b.sleepTimer = 0
}

// Sleeping reports whether the body is currently asleep.
func (w *World) Sleeping(id BodyID) (bool, error) {
	b, ok := w.bodies.get(id.h)
	if !ok {
		return false, ErrNotFound
	}
	return b.sleeping, nil
}

// Events returns the contact events generated by the last Step. The slice
// is owned by the world and rewritten on the next Step.
func (w *World) Events() []ContactEvent {
	return w.events
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return w.bodies.len() }

// Time returns accumulated simulation time.
func (w *World) Time() float64 { return w.time }

// Step advances the simulation by dt seconds. The pipeline runs broad
// phase, narrow phase, the impulse solver, and integration in a fixed order
// so identical inputs give bit-identical results.
func (w *World) Step(dt float64) (StepInfo, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return StepInfo{}, &StepError{Step: w.step, Time: w.time, Wrapped: ErrInvalidArgument}
	}

	info := StepInfo{Step: w.step, Time: w.time}

	// Broad phase: refresh fat bounds for everything that can move and
	// collect the proxies worth re-querying.
	moved := w.pendingMoved
	w.pendingMoved = nil
	w.bodies.each(func(h handle, b *body) {
		if !b.moves() {
			return
		}
		w.tree.MoveProxy(b.proxy, b.worldBounds(), b.v.Mul(dt))
		moved = append(moved, b.proxy)
	})
	pairs := w.tree.Pairs(moved)
	info.Pairs = len(pairs)

	// Narrow phase, fork-join: each worker writes only its own slots.
	type pairResult struct {
		m   narrowphase.Manifold
		hit bool
	}
	results := make([]pairResult, len(pairs))
	parallelFor(len(pairs), w.workers, narrowPhaseChunk, func(start, end int) {
		for i := start; i < end; i++ {
			a := &w.bodies.slots[pairs[i].A].value
			b := &w.bodies.slots[pairs[i].B].value
			if a.motion != Dynamic && b.motion != Dynamic {
				continue
			}
			m, hit := narrowphase.Collide(a.shape, a.transform, b.shape, b.transform)
			results[i] = pairResult{m: m, hit: hit}
		}
	})

	// Contact with a moving body wakes a sleeping one.
	for i, p := range pairs {
		if !results[i].hit {
			continue
		}
		a := &w.bodies.slots[p.A].value
		b := &w.bodies.slots[p.B].value
		if a.moves() && b.motion == Dynamic && b.sleeping {
			w.wake(b)
		}
		if b.moves() && a.motion == Dynamic && a.sleeping {
			w.wake(a)
		}
	}

	// Velocities first: gravity and forces act before the solver so
	// resting contacts cancel them this same step.
	w.bodies.each(func(h handle, b *body) {
		if !b.awakeDynamic() {
			return
		}
		b.v = integrate.Velocity(b.v, b.force, b.invMass, w.gravity, b.linDamping, dt)
		b.w = integrate.AngularVelocity(b.w, b.torque, b.worldInvInertia(), b.angDamping, dt)
		b.force, b.torque = mgl64.Vec3{}, mgl64.Vec3{}
	})

	sbodies := w.solverView()
	contacts, contactKeys := w.buildContacts(pairs, func(i int) (narrowphase.Manifold, bool) {
		return results[i].m, results[i].hit
	})
	info.Contacts = len(contacts)
	joints := w.buildJoints(sbodies)

	params := solver.Params{
		Iterations:      w.iterations,
		Dt:              dt,
		Beta:            w.contactBeta,
		Slop:            geom.LinearSlop,
		BounceThreshold: w.bounceThresh,
	}
	solver.Prepare(sbodies, contacts, params)
	solver.WarmStart(sbodies, contacts)
	solver.Solve(sbodies, contacts, joints, params)
	w.storeJointImpulses()

	// Copy solved velocities back and advance poses.
	w.bodies.each(func(h handle, b *body) {
		if b.awakeDynamic() {
			sb := &sbodies[h.index]
			b.v, b.w = sb.V, sb.W
		}
		if !b.moves() {
			return
		}
		before := b.transform
		b.transform = integrate.Pose(b.transform, b.v, b.w, dt)

		if !integrate.Valid(b.transform, b.v, b.w) {
			b.transform = before
			b.v, b.w = mgl64.Vec3{}, mgl64.Vec3{}
			b.sleeping = true
			info.Unstable = append(info.Unstable, BodyID{h: h})
			return
		}
	})

	w.updateSleep(dt)

	// Event diff against the previous step's manifold set.
	cur := make(map[pairKey]contactSummary, len(pairs))
	tested := make(map[pairKey]bool, len(pairs))
	for i, p := range pairs {
		key := w.keyFor(p.A, p.B)
		tested[key] = true
		if results[i].hit {
			cur[key] = contactSummary{
				normal:  results[i].m.Normal,
				points:  len(results[i].m.Points),
				deepest: results[i].m.Deepest(),
			}
		}
	}
	// Pairs where both bodies went quiet were not re-tested; their contact
	// carries forward rather than flickering end/begin.
	for key, s := range w.prevContacts {
		if tested[key] {
			continue
		}
		a, aok := w.bodies.get(key.a)
		b, bok := w.bodies.get(key.b)
		if aok && bok && !a.moves() && !b.moves() {
			cur[key] = s
		}
	}
	w.events = diffContacts(w.prevContacts, cur)
	w.prevContacts = cur

	w.storeWarmImpulses(contacts, contactKeys)

	w.step++
	w.time += dt
	info.Bodies = w.bodies.len()
	w.bodies.each(func(h handle, b *body) {
		if b.motion == Dynamic && !b.sleeping {
			info.Awake++
		}
		if b.motion == Dynamic && b.invMass > 0 {
			mass := 1 / b.invMass
			r := b.transform.RotationMat3()
			worldInertia := r.Mul3(b.localInertia).Mul3(r.Transpose())
			info.KineticEnergy += 0.5*mass*b.v.LenSqr() +
				0.5*b.w.Dot(worldInertia.Mul3x1(b.w))
			info.PotentialEnergy -= mass * w.gravity.Dot(b.transform.Position)
		}
	})
	return info, nil
}

// solverView builds the solver's body slice, indexed by arena slot so
// contact and joint constraints can address bodies by index.
func (w *World) solverView() []solver.Body {
	sbodies := make([]solver.Body, len(w.bodies.slots))
	w.bodies.each(func(h handle, b *body) {
		sb := &sbodies[h.index]
		sb.Position = b.transform.Position
		sb.V, sb.W = b.v, b.w
		if b.awakeDynamic() {
			sb.InvMass = b.invMass
			sb.InvInertia = b.worldInvInertia()
		}
	})
	return sbodies
}

func (w *World) keyFor(ia, ib int) pairKey {
	return pairKey{
		a: handle{index: int32(ia), gen: w.bodies.slots[ia].gen},
		b: handle{index: int32(ib), gen: w.bodies.slots[ib].gen},
	}
}

// buildContacts turns hit manifolds into solver constraints, warm-started
// from last step's impulses where the points still line up.
func (w *World) buildContacts(pairs []broadphase.Pair, result func(int) (narrowphase.Manifold, bool)) ([]solver.Contact, []pairKey) {
	var contacts []solver.Contact
	var keys []pairKey
	for i, p := range pairs {
		m, hit := result(i)
		if !hit {
			continue
		}
		a := &w.bodies.slots[p.A].value
		b := &w.bodies.slots[p.B].value
		if !a.awakeDynamic() && !b.awakeDynamic() {
			continue
		}

		c := solver.Contact{
			A: p.A, B: p.B,
			Normal:      m.Normal,
			Friction:    math.Sqrt(a.material.Friction * b.material.Friction),
			Restitution: math.Max(a.material.Restitution, b.material.Restitution),
		}
		key := w.keyFor(p.A, p.B)
		cached := w.warm[key]
		for _, pt := range m.Points {
			cp := solver.ContactPoint{
				RA:          pt.Position.Sub(a.transform.Position),
				RB:          pt.Position.Sub(b.transform.Position),
				Penetration: pt.Penetration,
			}
			if wi, ok := matchWarm(cached, pt.Position); ok {
				cp.Pn, cp.Pt1, cp.Pt2 = wi.pn, wi.pt1, wi.pt2
			}
			c.Points = append(c.Points, cp)
		}
		contacts = append(contacts, c)
		keys = append(keys, key)
	}
	solver.SortContacts(contacts)
	return contacts, keys
}

func matchWarm(cached []warmPoint, pos mgl64.Vec3) (warmPoint, bool) {
	for _, wp := range cached {
		if wp.pos.Sub(pos).Len() < geom.ContactMatchDistance {
			return wp, true
		}
	}
	return warmPoint{}, false
}

// storeWarmImpulses rebuilds the warm-start cache from the solved contacts.
func (w *World) storeWarmImpulses(contacts []solver.Contact, keys []pairKey) {
	for k := range w.warm {
		delete(w.warm, k)
	}
	// keys was recorded before SortContacts; rebuild by pair key lookup.
	keyByPair := make(map[[2]int]pairKey, len(keys))
	for _, k := range keys {
		keyByPair[[2]int{int(k.a.index), int(k.b.index)}] = k
	}
	for ci := range contacts {
		c := &contacts[ci]
		key, ok := keyByPair[[2]int{c.A, c.B}]
		if !ok {
			continue
		}
		pts := make([]warmPoint, 0, len(c.Points))
		a := &w.bodies.slots[c.A].value
		for _, cp := range c.Points {
			pts = append(pts, warmPoint{
				pos: a.transform.Position.Add(cp.RA),
				pn:  cp.Pn, pt1: cp.Pt1, pt2: cp.Pt2,
			})
		}
		w.warm[key] = pts
	}
}

// updateSleep advances sleep timers for slow awake bodies and puts them to
// sleep after the configured delay.
func (w *World) updateSleep(dt float64) {
	if w.sleepDelay <= 0 {
		return
	}
	w.bodies.each(func(h handle, b *body) {
		if !b.awakeDynamic() {
			return
		}
		if b.v.Len() < w.sleepLinear && b.w.Len() < w.sleepAngular {
			b.sleepTimer += dt
			if b.sleepTimer >= w.sleepDelay {
				b.sleeping = true
				b.v, b.w = mgl64.Vec3{}, mgl64.Vec3{}
			}
		} else {
			b.sleepTimer = 0
		}
	})
}

func finiteVec(v mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}
