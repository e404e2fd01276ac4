package world

// arena is a generation-tagged slot store. Freed slots are recycled but
// bump their generation, so a stale handle can never reach another
// occupant's data.
type arena[T any] struct {
	slots []arenaSlot[T]
	free  []int32
	live  int
}

type arenaSlot[T any] struct {
	value T
	gen   uint32
	used  bool
}

type handle struct {
	index int32
	gen   uint32
}

func (a *arena[T]) alloc(v T) handle {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = v
		s.used = true
		return handle{index: idx, gen: s.gen}
	}
	a.slots = append(a.slots, arenaSlot[T]{value: v, used: true})
	return handle{index: int32(len(a.slots) - 1)}
}

func (a *arena[T]) get(h handle) (*T, bool) {
	if h.index < 0 || int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return &s.value, true
}

func (a *arena[T]) release(h handle) bool {
	if h.index < 0 || int(h.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	if !s.used || s.gen != h.gen {
		return false
	}
	var zero T
	s.value = zero
	s.used = false
	s.gen++
	a.free = append(a.free, h.index)
	a.live--
	return true
}

// each visits live slots in index order, which keeps every traversal of the
// world deterministic.
func (a *arena[T]) each(fn func(h handle, v *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.used {
			fn(handle{index: int32(i), gen: s.gen}, &s.value)
		}
	}
}

func (a *arena[T]) len() int {
	return a.live
}
