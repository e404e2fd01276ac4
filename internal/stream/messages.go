package stream

import (
	"github.com/san-kum/rigidsim/internal/world"
)

// Snapshot is the wire form of one step's world state.
type Snapshot struct {
	Type   string      `json:"type"`
	Step   uint64      `json:"step"`
	Time   float64     `json:"time"`
	Bodies []BodyState `json:"bodies"`
	Events []Event     `json:"events,omitempty"`
}

// BodyState is the wire form of one body.
type BodyState struct {
	Kind     string     `json:"kind"`
	Motion   string     `json:"motion"`
	Sleeping bool       `json:"sleeping,omitempty"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"` // w, x, y, z
	Velocity [3]float64 `json:"velocity"`
	Radius   float64    `json:"radius"`
}

// Command is a client control message.
type Command struct {
	Type string `json:"type"` // pause, resume, reset
}

// Event is the wire form of a contact event.
type Event struct {
	Type    string  `json:"type"`
	Points  int     `json:"points"`
	Deepest float64 `json:"deepest"`
}

// Encode converts world state into the wire snapshot.
func Encode(step uint64, time float64, snaps []world.BodySnapshot, events []world.ContactEvent) Snapshot {
	msg := Snapshot{
		Type:   "snapshot",
		Step:   step,
		Time:   time,
		Bodies: make([]BodyState, 0, len(snaps)),
	}
	for _, s := range snaps {
		msg.Bodies = append(msg.Bodies, BodyState{
			Kind:     s.Kind.String(),
			Motion:   s.Motion.String(),
			Sleeping: s.Sleeping,
			Position: [3]float64{s.Position.X(), s.Position.Y(), s.Position.Z()},
			Rotation: [4]float64{s.Rotation.W, s.Rotation.V.X(), s.Rotation.V.Y(), s.Rotation.V.Z()},
			Velocity: [3]float64{s.Velocity.X(), s.Velocity.Y(), s.Velocity.Z()},
			Radius:   s.Radius,
		})
	}
	for _, ev := range events {
		msg.Events = append(msg.Events, Event{
			Type:    ev.Type.String(),
			Points:  ev.Points,
			Deepest: ev.Deepest,
		})
	}
	return msg
}
