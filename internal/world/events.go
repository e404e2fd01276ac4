package world

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// EventType classifies a contact event relative to the previous step.
type EventType int

const (
	// ContactBegin fires on the first step a pair touches.
	ContactBegin EventType = iota
	// ContactPersist fires on every later step the pair keeps touching.
	ContactPersist
	// ContactEnd fires on the first step a previously touching pair
	// separates.
	ContactEnd
)

func (t EventType) String() string {
	switch t {
	case ContactBegin:
		return "begin"
	case ContactPersist:
		return "persist"
	case ContactEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ContactEvent summarizes one pair's contact change for the last Step.
type ContactEvent struct {
	Type    EventType
	A, B    BodyID
	Normal  mgl64.Vec3 // from A toward B; zero for End events
	Points  int
	Deepest float64
}

type pairKey struct {
	a, b handle
}

type contactSummary struct {
	normal  mgl64.Vec3
	points  int
	deepest float64
}

// diffContacts compares this step's manifold set against the previous one
// and emits the change set sorted by (A, B, Type) so consumers see a stable
// order.
func diffContacts(prev, cur map[pairKey]contactSummary) []ContactEvent {
	events := make([]ContactEvent, 0, len(cur)+len(prev))

	for key, s := range cur {
		typ := ContactBegin
		if _, ok := prev[key]; ok {
			typ = ContactPersist
		}
		events = append(events, ContactEvent{
			Type:    typ,
			A:       BodyID{h: key.a},
			B:       BodyID{h: key.b},
			Normal:  s.normal,
			Points:  s.points,
			Deepest: s.deepest,
		})
	}
	for key := range prev {
		if _, ok := cur[key]; !ok {
			events = append(events, ContactEvent{
				Type: ContactEnd,
				A:    BodyID{h: key.a},
				B:    BodyID{h: key.b},
			})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.A.h.index != b.A.h.index {
			return a.A.h.index < b.A.h.index
		}
		if a.B.h.index != b.B.h.index {
			return a.B.h.index < b.B.h.index
		}
		return a.Type < b.Type
	})
	return events
}
