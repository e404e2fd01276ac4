// Package broadphase culls body pairs with a dynamic bounding-volume tree.
//
// Leaves store fattened world bounds so that small movements do not touch
// the tree at all; a leaf is only reinserted when its tight bound escapes
// the stored fat bound. Internal nodes are kept shallow with local rotations
// after every insertion and removal, giving O(log n) updates and queries.
package broadphase

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

const nullNode = -1

type node struct {
	box    geom.AABB // fat bounds
	parent int32     // free-list next pointer while unallocated
	child1 int32
	child2 int32
	height int32 // 0 for leaves
	data   int   // caller's key, typically a body slot index
	moved  bool
}

func (n *node) leaf() bool { return n.child1 == nullNode }

// Tree is an incrementally updated AABB hierarchy.
type Tree struct {
	nodes   []node
	root    int32
	free    int32
	padding float64
}

// New creates an empty tree. padding fattens every leaf bound uniformly;
// moving leaves are additionally swept by their displacement.
func New(padding float64) *Tree {
	if padding <= 0 {
		padding = geom.DefaultBoundsPadding
	}
	return &Tree{root: nullNode, free: nullNode, padding: padding}
}

func (t *Tree) allocate() int32 {
	if t.free == nullNode {
		t.nodes = append(t.nodes, node{})
		t.free = int32(len(t.nodes) - 1)
		t.nodes[t.free].parent = nullNode
	}
	id := t.free
	n := &t.nodes[id]
	t.free = n.parent
	n.parent = nullNode
	n.child1 = nullNode
	n.child2 = nullNode
	n.height = 0
	n.moved = false
	return id
}

func (t *Tree) release(id int32) {
	t.nodes[id].parent = t.free
	t.nodes[id].height = -1
	t.free = id
}

// CreateProxy inserts a leaf for the given tight bound and returns its id.
func (t *Tree) CreateProxy(tight geom.AABB, data int) int32 {
	id := t.allocate()
	t.nodes[id].box = tight.Expanded(t.padding)
	t.nodes[id].data = data
	t.nodes[id].moved = true
	t.insertLeaf(id)
	return id
}

// DestroyProxy removes a leaf.
func (t *Tree) DestroyProxy(id int32) {
	t.removeLeaf(id)
	t.release(id)
}

// MoveProxy updates a leaf for a new tight bound and displacement. It
// returns true when the leaf had to be reinserted; callers use that signal
// to re-query pairs for the body.
func (t *Tree) MoveProxy(id int32, tight geom.AABB, displacement mgl64.Vec3) bool {
	fat := tight.Expanded(t.padding).Swept(displacement)
	if t.nodes[id].box.Contains(tight) {
		// Still inside the stored fat bound; nothing to do unless the fat
		// bound has grown far beyond the shape (body slowed down).
		huge := fat.Expanded(4 * t.padding)
		if huge.Contains(t.nodes[id].box) {
			return false
		}
	}
	t.removeLeaf(id)
	t.nodes[id].box = fat
	t.insertLeaf(id)
	t.nodes[id].moved = true
	return true
}

// Data returns the caller key stored on a leaf.
func (t *Tree) Data(id int32) int { return t.nodes[id].data }

// FatBounds returns the stored fat bound of a leaf.
func (t *Tree) FatBounds(id int32) geom.AABB { return t.nodes[id].box }

// Query visits every leaf whose fat bound overlaps box. The visit order is a
// pure function of tree structure, which itself is a pure function of the
// insertion history.
func (t *Tree) Query(box geom.AABB, visit func(id int32)) {
	var stack []int32
	if t.root != nullNode {
		stack = append(stack, t.root)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if !n.box.Overlaps(box) {
			continue
		}
		if n.leaf() {
			visit(id)
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

// RayQuery visits leaves whose fat bound is hit by the segment p..p+d*tMax.
func (t *Tree) RayQuery(p, d mgl64.Vec3, tMax float64, visit func(id int32)) {
	var stack []int32
	if t.root != nullNode {
		stack = append(stack, t.root)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[id]
		if _, ok := n.box.RayHit(p, d, tMax); !ok {
			continue
		}
		if n.leaf() {
			visit(id)
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

func (t *Tree) insertLeaf(leaf int32) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Descend to the sibling with the lowest combined-surface-area cost.
	leafBox := t.nodes[leaf].box
	index := t.root
	for !t.nodes[index].leaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].box.SurfaceArea()
		combined := t.nodes[index].box.Union(leafBox).SurfaceArea()

		cost := 2 * combined
		inheritance := 2 * (combined - area)

		cost1 := childCost(t.nodes[child1].box, leafBox, t.nodes[child1].leaf()) + inheritance
		cost2 := childCost(t.nodes[child2].box, leafBox, t.nodes[child2].leaf()) + inheritance

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}
	sibling := index

	// Splice a new parent above the chosen sibling.
	oldParent := t.nodes[sibling].parent
	newParent := t.allocate()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].box = leafBox.Union(t.nodes[sibling].box)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent == nullNode {
		t.root = newParent
	} else if t.nodes[oldParent].child1 == sibling {
		t.nodes[oldParent].child1 = newParent
	} else {
		t.nodes[oldParent].child2 = newParent
	}

	t.refit(t.nodes[leaf].parent)
}

func childCost(childBox, leafBox geom.AABB, isLeaf bool) float64 {
	combined := childBox.Union(leafBox).SurfaceArea()
	if isLeaf {
		return combined
	}
	return combined - childBox.SurfaceArea()
}

func (t *Tree) removeLeaf(leaf int32) {
	if leaf == t.root {
		t.root = nullNode
		return
	}
	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent

	var sibling int32
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.release(parent)
		return
	}
	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.release(parent)
	t.refit(grandParent)
}

// refit walks to the root rebalancing and tightening boxes.
func (t *Tree) refit(index int32) {
	for index != nullNode {
		index = t.balance(index)
		n := &t.nodes[index]
		c1, c2 := n.child1, n.child2
		n.height = 1 + max32(t.nodes[c1].height, t.nodes[c2].height)
		n.box = t.nodes[c1].box.Union(t.nodes[c2].box)
		index = n.parent
	}
}

// balance performs one AVL-style rotation if the subtree at a is lopsided.
// Returns the root of the (possibly new) subtree.
func (t *Tree) balance(a int32) int32 {
	na := &t.nodes[a]
	if na.leaf() || na.height < 2 {
		return a
	}
	b := na.child1
	c := na.child2
	diff := t.nodes[c].height - t.nodes[b].height

	if diff > 1 {
		return t.rotateUp(a, c, b)
	}
	if diff < -1 {
		return t.rotateUp(a, b, c)
	}
	return a
}

// rotateUp lifts child up into a's position; other stays below a.
func (t *Tree) rotateUp(a, up, other int32) int32 {
	f := t.nodes[up].child1
	g := t.nodes[up].child2

	// Swap a and up.
	t.nodes[up].child1 = a
	t.nodes[up].parent = t.nodes[a].parent
	t.nodes[a].parent = up

	parent := t.nodes[up].parent
	if parent != nullNode {
		if t.nodes[parent].child1 == a {
			t.nodes[parent].child1 = up
		} else {
			t.nodes[parent].child2 = up
		}
	} else {
		t.root = up
	}

	// Attach the taller grandchild to up, the other to a.
	if t.nodes[f].height > t.nodes[g].height {
		t.nodes[up].child2 = f
		t.replaceChild(a, up, g)
		t.nodes[g].parent = a
	} else {
		t.nodes[up].child2 = g
		t.replaceChild(a, up, f)
		t.nodes[f].parent = a
	}

	t.recompute(a)
	t.recompute(up)
	return up
}

func (t *Tree) replaceChild(parent, oldChild, newChild int32) {
	if t.nodes[parent].child1 == oldChild {
		t.nodes[parent].child1 = newChild
	} else {
		t.nodes[parent].child2 = newChild
	}
}

func (t *Tree) recompute(id int32) {
	n := &t.nodes[id]
	c1, c2 := n.child1, n.child2
	n.box = t.nodes[c1].box.Union(t.nodes[c2].box)
	n.height = 1 + max32(t.nodes[c1].height, t.nodes[c2].height)
}

// Height returns the root height; useful for balance assertions in tests.
func (t *Tree) Height() int32 {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
