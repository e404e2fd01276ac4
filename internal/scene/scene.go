// Package scene builds the named demo worlds the CLI and viewers run.
package scene

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/world"
)

type builder func(*world.World) error

var scenes = map[string]builder{
	"drop":     buildDrop,
	"stack":    buildStack,
	"wall":     buildWall,
	"pendulum": buildPendulum,
	"bounce":   buildBounce,
}

// Names lists the available scenes, sorted.
func Names() []string {
	out := make([]string, 0, len(scenes))
	for name := range scenes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build populates w with the named scene.
func Build(name string, w *world.World) error {
	b, ok := scenes[name]
	if !ok {
		return fmt.Errorf("scene: unknown scene %q", name)
	}
	return b(w)
}

func ground(w *world.World) error {
	plane, err := geom.NewPlane(mgl64.Vec3{0, 1, 0}, 0)
	if err != nil {
		return err
	}
	_, err = w.CreateBody(world.BodyDef{Shape: plane, Motion: world.Static})
	return err
}

// buildDrop rains a mixed set of shapes onto the ground.
func buildDrop(w *world.World) error {
	if err := ground(w); err != nil {
		return err
	}
	sphere, err := geom.NewSphere(0.5)
	if err != nil {
		return err
	}
	box, err := geom.NewBox(mgl64.Vec3{0.4, 0.4, 0.4})
	if err != nil {
		return err
	}
	capsule, err := geom.NewCapsule(0.4, 0.25)
	if err != nil {
		return err
	}
	shapes := []geom.Shape{sphere, box, capsule}

	for i := 0; i < 12; i++ {
		shape := shapes[i%len(shapes)]
		_, err := w.CreateBody(world.BodyDef{
			Shape:    shape,
			Motion:   world.Dynamic,
			Position: mgl64.Vec3{float64(i%4)*1.5 - 2.25, 4 + float64(i/4)*2, float64(i%3)*1.2 - 1.2},
			Material: world.Material{Density: 1, Friction: 0.5, Restitution: 0.2},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// buildStack stands a tower of boxes, the classic solver stress test.
func buildStack(w *world.World) error {
	if err := ground(w); err != nil {
		return err
	}
	box, err := geom.NewBox(mgl64.Vec3{0.5, 0.5, 0.5})
	if err != nil {
		return err
	}
	for i := 0; i < 6; i++ {
		_, err := w.CreateBody(world.BodyDef{
			Shape:    box,
			Motion:   world.Dynamic,
			Position: mgl64.Vec3{0, 0.5 + float64(i)*1.001, 0},
			Material: world.Material{Density: 1, Friction: 0.6, Restitution: 0},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// buildWall fires a heavy sphere at a brick wall.
func buildWall(w *world.World) error {
	if err := ground(w); err != nil {
		return err
	}
	brick, err := geom.NewBox(mgl64.Vec3{0.5, 0.25, 0.25})
	if err != nil {
		return err
	}
	for row := 0; row < 5; row++ {
		offset := 0.0
		if row%2 == 1 {
			offset = 0.5
		}
		for col := 0; col < 4; col++ {
			_, err := w.CreateBody(world.BodyDef{
				Shape:    brick,
				Motion:   world.Dynamic,
				Position: mgl64.Vec3{float64(col)*1.02 - 1.5 + offset, 0.25 + float64(row)*0.51, 0},
				Material: world.Material{Density: 2, Friction: 0.7, Restitution: 0},
			})
			if err != nil {
				return err
			}
		}
	}

	cannonball, err := geom.NewSphere(0.6)
	if err != nil {
		return err
	}
	_, err = w.CreateBody(world.BodyDef{
		Shape:    cannonball,
		Motion:   world.Dynamic,
		Position: mgl64.Vec3{0, 1.5, 8},
		Velocity: mgl64.Vec3{0, 0, -18},
		Material: world.Material{Density: 8, Friction: 0.4, Restitution: 0.1},
	})
	return err
}

// buildPendulum hangs a chain of three spheres from a static anchor with
// distance joints.
func buildPendulum(w *world.World) error {
	anchorBox, err := geom.NewBox(mgl64.Vec3{0.2, 0.2, 0.2})
	if err != nil {
		return err
	}
	anchor, err := w.CreateBody(world.BodyDef{
		Shape:    anchorBox,
		Motion:   world.Static,
		Position: mgl64.Vec3{0, 10, 0},
	})
	if err != nil {
		return err
	}

	bobShape, err := geom.NewSphere(0.3)
	if err != nil {
		return err
	}
	prev := anchor
	for i := 0; i < 3; i++ {
		bob, err := w.CreateBody(world.BodyDef{
			Shape:    bobShape,
			Motion:   world.Dynamic,
			Position: mgl64.Vec3{1.5 * float64(i+1), 10, 0},
			Material: world.Material{Density: 2, Friction: 0.3, Restitution: 0.1},
		})
		if err != nil {
			return err
		}
		if _, err := w.AddJoint(world.JointDef{
			Kind:   world.JointDistance,
			A:      prev,
			B:      bob,
			Length: 1.5,
		}); err != nil {
			return err
		}
		prev = bob
	}
	return nil
}

// buildBounce drops spheres of increasing restitution side by side.
func buildBounce(w *world.World) error {
	if err := ground(w); err != nil {
		return err
	}
	ball, err := geom.NewSphere(0.5)
	if err != nil {
		return err
	}
	for i := 0; i < 5; i++ {
		_, err := w.CreateBody(world.BodyDef{
			Shape:    ball,
			Motion:   world.Dynamic,
			Position: mgl64.Vec3{float64(i)*1.5 - 3, 6, 0},
			Material: world.Material{
				Density:     1,
				Friction:    0.4,
				Restitution: 0.15 * float64(i+1),
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
