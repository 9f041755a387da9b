// Package quadtree implements a dynamically rebalancing region quadtree that
// owns a set of moving payloads and answers proximity queries over them.
//
// Payloads are addressed by a Handle that is assigned on Add and never
// reused. Internally the tree is an arena: nodes live in one table indexed by
// NodeID, leaves split in place into inner nodes when they grow past the leaf
// capacity, and inner nodes whose four leaf children became sparse are joined
// back by Clean. Node ids are recycled through a free stack, so only handles
// are stable across structural changes.
//
// A Quadtree is not safe for concurrent use.
package quadtree

import (
	"fmt"
	"iter"
	"slices"

	"github.com/tslnc04/agent-sim/internal/geometry"
)

// Defaults for the two tunables.
const (
	DefaultLeafCapacity = 4
	DefaultMinLeafWidth = 2.0
)

// Handle identifies one payload for the lifetime of the tree.
type Handle uint64

// Locatable is the payload stored in the tree. The tree calls SetPosition
// when a payload is moved; callers must go through Move rather than changing
// the position themselves.
type Locatable interface {
	Position() geometry.Vec2
	SetPosition(geometry.Vec2)
}

// Option configures a Quadtree.
type Option func(*options)

type options struct {
	leafCapacity int
	minLeafWidth float64
}

// WithLeafCapacity sets how many payloads a leaf holds before it splits.
func WithLeafCapacity(n int) Option {
	return func(o *options) {
		o.leafCapacity = n
	}
}

// WithMinLeafWidth sets the width at or below which a leaf never splits,
// however crowded it is.
func WithMinLeafWidth(w float64) Option {
	return func(o *options) {
		o.minLeafWidth = w
	}
}

// Quadtree is a spatial index over payloads of type T.
type Quadtree[T Locatable] struct {
	bounds       geometry.Rect
	leafCapacity int
	minLeafWidth float64

	nextHandle Handle
	nodes      []node
	free       []NodeID
	owner      map[Handle]NodeID
	agents     map[Handle]T
}

// New creates an empty tree covering bounds.
func New[T Locatable](bounds geometry.Rect, opts ...Option) *Quadtree[T] {
	o := options{
		leafCapacity: DefaultLeafCapacity,
		minLeafWidth: DefaultMinLeafWidth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.leafCapacity < 1 {
		o.leafCapacity = 1
	}

	q := &Quadtree[T]{
		bounds:       bounds,
		leafCapacity: o.leafCapacity,
		minLeafWidth: o.minLeafWidth,
		owner:        make(map[Handle]NodeID),
		agents:       make(map[Handle]T),
	}
	q.nodes = append(q.nodes, newLeaf(noParent, bounds, nil))
	return q
}

// NewWithAgents creates a tree covering bounds and adds every payload to it.
// Payloads positioned outside bounds are skipped; the returned handles are
// those of the payloads that were stored, in input order.
func NewWithAgents[T Locatable](bounds geometry.Rect, agents []T, opts ...Option) (*Quadtree[T], []Handle) {
	q := New[T](bounds, opts...)
	handles := make([]Handle, 0, len(agents))
	for _, a := range agents {
		if h, ok := q.Add(a); ok {
			handles = append(handles, h)
		}
	}
	return q, handles
}

// Bounds returns the world rectangle covered by the tree.
func (q *Quadtree[T]) Bounds() geometry.Rect {
	return q.bounds
}

// LeafCapacity returns the configured leaf capacity.
func (q *Quadtree[T]) LeafCapacity() int {
	return q.leafCapacity
}

// MinLeafWidth returns the configured split floor.
func (q *Quadtree[T]) MinLeafWidth() float64 {
	return q.minLeafWidth
}

// Len returns the number of stored payloads.
func (q *Quadtree[T]) Len() int {
	return len(q.agents)
}

// Get returns the payload stored under h.
func (q *Quadtree[T]) Get(h Handle) (T, bool) {
	a, ok := q.agents[h]
	return a, ok
}

// Handles returns every live handle in ascending order.
func (q *Quadtree[T]) Handles() []Handle {
	handles := make([]Handle, 0, len(q.agents))
	for h := range q.agents {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	return handles
}

// All iterates over the stored payloads in ascending handle order. When T is
// a pointer type the payloads may be mutated in place, except for their
// position, which only Move may change. The tree must not be modified while
// iterating.
func (q *Quadtree[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		for _, h := range q.Handles() {
			a, ok := q.agents[h]
			if !ok {
				continue
			}
			if !yield(h, a) {
				return
			}
		}
	}
}

// Owner returns the id of the leaf currently holding h.
func (q *Quadtree[T]) Owner(h Handle) (NodeID, bool) {
	id, ok := q.owner[h]
	return id, ok
}

// Node returns a copy of the node stored at id.
func (q *Quadtree[T]) Node(id NodeID) (NodeInfo, bool) {
	if !q.live(id) {
		return NodeInfo{}, false
	}
	return q.info(id), true
}

// LeafCount returns the number of leaves.
func (q *Quadtree[T]) LeafCount() int {
	n := 0
	for id := range q.nodes {
		if q.nodes[id].kind == kindLeaf {
			n++
		}
	}
	return n
}

// Leaves returns a copy of every current leaf in ascending id order.
func (q *Quadtree[T]) Leaves() []NodeInfo {
	var leaves []NodeInfo
	for id := range q.nodes {
		if q.nodes[id].kind == kindLeaf {
			leaves = append(leaves, q.info(NodeID(id)))
		}
	}
	return leaves
}

// LeafFor descends from the root to the leaf whose rectangle holds pos. It
// fails when pos lies outside the tree's bounds.
func (q *Quadtree[T]) LeafFor(pos geometry.Vec2) (NodeID, bool) {
	if !q.bounds.Contains(pos) {
		return 0, false
	}

	id := RootID
	for {
		n := &q.nodes[id]
		switch n.kind {
		case kindLeaf:
			return id, true
		case kindInner:
			id = n.children[n.bounds.Quadrant(pos)]
		default:
			panic(fmt.Sprintf("quadtree: descent reached %s node %d", n.kind, id))
		}
	}
}

// Add stores a and returns its new handle. It fails, storing nothing, when
// a's position is outside the tree's bounds.
func (q *Quadtree[T]) Add(a T) (Handle, bool) {
	leafID, ok := q.LeafFor(a.Position())
	if !ok {
		return 0, false
	}

	h := q.nextHandle
	q.nextHandle++

	q.agents[h] = a
	q.owner[h] = leafID
	leaf := q.leaf(leafID)
	leaf.agents = append(leaf.agents, h)

	q.checkCapacity(leafID)
	return h, true
}

// Remove deletes h from the tree and returns its payload. Sparse leaves left
// behind are only joined by the next Clean.
func (q *Quadtree[T]) Remove(h Handle) (T, bool) {
	leafID, ok := q.owner[h]
	if !ok {
		var zero T
		return zero, false
	}
	q.detach(leafID, h)
	delete(q.owner, h)

	a := q.agents[h]
	delete(q.agents, h)
	return a, true
}

// Move sets the position of h to pos, relocating it to another leaf when pos
// leaves the current one. It fails, changing nothing, when h is unknown or
// pos is outside the tree's bounds.
func (q *Quadtree[T]) Move(h Handle, pos geometry.Vec2) bool {
	leafID, ok := q.owner[h]
	if !ok {
		return false
	}
	a := q.agents[h]

	if q.leaf(leafID).bounds.Contains(pos) {
		a.SetPosition(pos)
		return true
	}

	// Descend from the root: a point on a quadrant edge is contained by
	// siblings on both sides, so only the quadrant rule picks its leaf.
	newID, ok := q.LeafFor(pos)
	if !ok {
		return false
	}

	q.detach(leafID, h)
	leaf := q.leaf(newID)
	leaf.agents = append(leaf.agents, h)
	q.owner[h] = newID
	a.SetPosition(pos)

	q.checkCapacity(newID)
	return true
}

func (q *Quadtree[T]) detach(leafID NodeID, h Handle) {
	leaf := q.leaf(leafID)
	i := slices.Index(leaf.agents, h)
	if i < 0 {
		panic(fmt.Sprintf("quadtree: leaf %d does not hold handle %d", leafID, h))
	}
	leaf.agents = slices.Delete(leaf.agents, i, i+1)
}

// FindLeavesIn returns the ids of all leaves whose rectangle intersects r, in
// no particular order.
func (q *Quadtree[T]) FindLeavesIn(r geometry.Rect) []NodeID {
	var leaves []NodeID
	stack := []NodeID{RootID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &q.nodes[id]
		if !n.bounds.Intersects(r) {
			continue
		}
		switch n.kind {
		case kindLeaf:
			leaves = append(leaves, id)
		case kindInner:
			stack = append(stack, n.children[:]...)
		default:
			panic(fmt.Sprintf("quadtree: traversal reached %s node %d", n.kind, id))
		}
	}
	return leaves
}

// FindAgentsIn returns the handles held by every leaf intersecting r. The
// match is at leaf granularity, so the result may include payloads outside r;
// it never misses one inside r.
func (q *Quadtree[T]) FindAgentsIn(r geometry.Rect) []Handle {
	var handles []Handle
	for _, id := range q.FindLeavesIn(r) {
		handles = append(handles, q.nodes[id].agents...)
	}
	return handles
}

func (q *Quadtree[T]) checkCapacity(leafID NodeID) {
	leaf := q.leaf(leafID)
	if len(leaf.agents) > q.leafCapacity && leaf.bounds.Width() > q.minLeafWidth {
		q.split(leafID)
	}
}

// split turns the leaf at id into an inner node with four fresh leaf
// children, keeping the id so the parent's child list stays valid.
func (q *Quadtree[T]) split(id NodeID) {
	old := *q.leaf(id)

	var buckets [4][]Handle
	for _, h := range old.agents {
		a, ok := q.agents[h]
		if !ok {
			panic(fmt.Sprintf("quadtree: leaf %d holds unknown handle %d", id, h))
		}
		i := old.bounds.Quadrant(a.Position())
		buckets[i] = append(buckets[i], h)
	}

	var children [4]NodeID
	for i, bounds := range old.bounds.Quarter() {
		children[i] = q.allocNode(newLeaf(id, bounds, buckets[i]))
		for _, h := range buckets[i] {
			q.owner[h] = children[i]
		}
	}

	q.nodes[id] = newInner(old.parent, old.bounds, children)
}

// Clean runs one consolidation pass: every inner node whose children are all
// leaves holding at most the leaf capacity between them is joined into a
// single leaf. Only the parents of leaves existing at the start of the pass
// are inspected, so collapsing a deeper sparse region can take several
// passes. It returns the number of joins.
func (q *Quadtree[T]) Clean() int {
	seen := make(map[NodeID]struct{})
	var parents []NodeID
	for id := range q.nodes {
		n := &q.nodes[id]
		if n.kind != kindLeaf || n.parent == noParent {
			continue
		}
		if _, ok := seen[n.parent]; !ok {
			seen[n.parent] = struct{}{}
			parents = append(parents, n.parent)
		}
	}
	slices.Sort(parents)

	joined := 0
	for _, id := range parents {
		if q.joinable(id) {
			q.join(id)
			joined++
		}
	}
	return joined
}

// Consolidate repeats Clean until no more joins happen and returns the total
// number of joins.
func (q *Quadtree[T]) Consolidate() int {
	total := 0
	for {
		n := q.Clean()
		if n == 0 {
			return total
		}
		total += n
	}
}

func (q *Quadtree[T]) joinable(id NodeID) bool {
	if !q.live(id) || q.nodes[id].kind != kindInner {
		return false
	}
	count := 0
	for _, c := range q.nodes[id].children {
		if !q.live(c) || q.nodes[c].kind != kindLeaf {
			return false
		}
		count += len(q.nodes[c].agents)
	}
	return count <= q.leafCapacity
}

// join collapses the inner node at id and its four leaf children into one
// leaf stored under id.
func (q *Quadtree[T]) join(id NodeID) {
	inner := q.nodes[id]

	var agents []Handle
	for _, c := range inner.children {
		agents = append(agents, q.leaf(c).agents...)
	}
	for _, h := range agents {
		q.owner[h] = id
	}
	for _, c := range inner.children {
		q.freeNode(c)
	}

	q.nodes[id] = newLeaf(inner.parent, inner.bounds, agents)
}
