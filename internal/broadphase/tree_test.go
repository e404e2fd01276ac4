package broadphase

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

func sphereBounds(center mgl64.Vec3, r float64) geom.AABB {
	e := mgl64.Vec3{r, r, r}
	return geom.AABB{Min: center.Sub(e), Max: center.Add(e)}
}

// The tree must never miss a truly overlapping pair: brute force is ground
// truth.
func TestPairsMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tree := New(0.1)

	const n = 200
	centers := make([]mgl64.Vec3, n)
	proxies := make([]int32, n)
	for i := 0; i < n; i++ {
		centers[i] = mgl64.Vec3{rng.Float64() * 30, rng.Float64() * 30, rng.Float64() * 30}
		proxies[i] = tree.CreateProxy(sphereBounds(centers[i], 1), i)
	}

	pairs := tree.Pairs(proxies)
	seen := make(map[Pair]bool, len(pairs))
	for _, p := range pairs {
		seen[p] = true
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if centers[i].Sub(centers[j]).Len() <= 2 { // true sphere overlap
				if !seen[Pair{A: i, B: j}] {
					t.Fatalf("missing candidate pair (%d, %d)", i, j)
				}
			}
		}
	}
}

func TestPairsDeterministicOrder(t *testing.T) {
	build := func(seed int64) []Pair {
		rng := rand.New(rand.NewSource(seed))
		tree := New(0.1)
		var proxies []int32
		for i := 0; i < 100; i++ {
			c := mgl64.Vec3{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
			proxies = append(proxies, tree.CreateProxy(sphereBounds(c, 1), i))
		}
		return tree.Pairs(proxies)
	}

	a := build(3)
	b := build(3)
	if len(a) != len(b) {
		t.Fatalf("pair counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pair %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i].A < a[i-1].A || (a[i].A == a[i-1].A && a[i].B <= a[i-1].B) {
			t.Fatalf("pairs not strictly ordered at %d: %+v after %+v", i, a[i], a[i-1])
		}
	}
}

func TestMoveProxySkipsSmallMotion(t *testing.T) {
	tree := New(0.5)
	id := tree.CreateProxy(sphereBounds(mgl64.Vec3{0, 0, 0}, 1), 0)
	tree.Pairs([]int32{id}) // clear moved flag

	// Wiggle within the fat bound: no reinsertion.
	if tree.MoveProxy(id, sphereBounds(mgl64.Vec3{0.1, 0, 0}, 1), mgl64.Vec3{0.1, 0, 0}) {
		t.Error("small motion should stay inside fat bounds")
	}
	// Jump outside: must reinsert.
	if !tree.MoveProxy(id, sphereBounds(mgl64.Vec3{5, 0, 0}, 1), mgl64.Vec3{5, 0, 0}) {
		t.Error("large motion must reinsert the leaf")
	}
}

func TestDestroyProxyRemovesPairs(t *testing.T) {
	tree := New(0.1)
	a := tree.CreateProxy(sphereBounds(mgl64.Vec3{0, 0, 0}, 1), 0)
	b := tree.CreateProxy(sphereBounds(mgl64.Vec3{1, 0, 0}, 1), 1)
	if got := tree.Pairs([]int32{a, b}); len(got) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(got))
	}
	tree.DestroyProxy(b)
	tree.nodes[a].moved = true
	if got := tree.Pairs([]int32{a}); len(got) != 0 {
		t.Fatalf("expected no pairs after destroy, got %d", len(got))
	}
}

func TestTreeStaysBalanced(t *testing.T) {
	tree := New(0.1)
	// Insert along a line: worst case for a naive tree.
	for i := 0; i < 1024; i++ {
		tree.CreateProxy(sphereBounds(mgl64.Vec3{float64(i) * 3, 0, 0}, 1), i)
	}
	if h := tree.Height(); h > 32 {
		t.Errorf("tree height %d too large for 1024 leaves", h)
	}
}
