package scene

import (
	"testing"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/world"
)

func TestBuildAllScenes(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			w := world.New(config.DefaultConfig())
			if err := Build(name, w); err != nil {
				t.Fatalf("build: %v", err)
			}
			if w.BodyCount() == 0 {
				t.Fatal("scene built no bodies")
			}
			// Every scene must survive a short run.
			for i := 0; i < 30; i++ {
				if _, err := w.Step(1.0 / 60); err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
			}
		})
	}
}

func TestBuildUnknownScene(t *testing.T) {
	w := world.New(config.DefaultConfig())
	if err := Build("nope", w); err == nil {
		t.Fatal("expected error for unknown scene")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
