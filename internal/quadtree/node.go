package quadtree

import (
	"fmt"

	"github.com/tslnc04/agent-sim/internal/geometry"
)

// NodeID identifies a slot in the node table. IDs are recycled after a node
// is destroyed, so they must not be held across a structural change.
type NodeID int

// RootID is the id of the first node, which exists for the lifetime of the
// tree.
const RootID NodeID = 0

const noParent NodeID = -1

type nodeKind uint8

const (
	kindLeaf nodeKind = iota
	kindInner
	kindFree
)

func (k nodeKind) String() string {
	switch k {
	case kindLeaf:
		return "leaf"
	case kindInner:
		return "inner"
	case kindFree:
		return "free"
	default:
		return fmt.Sprintf("nodeKind(%d)", uint8(k))
	}
}

// node is a tagged union of the leaf and inner shapes so the whole tree lives
// in one homogeneous table. Leaves use agents, inner nodes use children.
type node struct {
	kind     nodeKind
	parent   NodeID
	bounds   geometry.Rect
	agents   []Handle
	children [4]NodeID
}

func newLeaf(parent NodeID, bounds geometry.Rect, agents []Handle) node {
	return node{kind: kindLeaf, parent: parent, bounds: bounds, agents: agents}
}

func newInner(parent NodeID, bounds geometry.Rect, children [4]NodeID) node {
	return node{kind: kindInner, parent: parent, bounds: bounds, children: children}
}

// NodeInfo is a read-only copy of one node, for diagnostics and tests.
type NodeInfo struct {
	ID        NodeID
	Parent    NodeID
	HasParent bool
	Leaf      bool
	Bounds    geometry.Rect
	Agents    []Handle
	Children  [4]NodeID
}

func (q *Quadtree[T]) info(id NodeID) NodeInfo {
	n := &q.nodes[id]
	info := NodeInfo{
		ID:        id,
		Parent:    n.parent,
		HasParent: n.parent != noParent,
		Leaf:      n.kind == kindLeaf,
		Bounds:    n.bounds,
	}
	if info.Leaf {
		info.Agents = append([]Handle(nil), n.agents...)
	} else {
		info.Children = n.children
	}
	return info
}

// allocNode stores n in a recycled slot if one is free, otherwise at the end
// of the table.
func (q *Quadtree[T]) allocNode(n node) NodeID {
	if last := len(q.free) - 1; last >= 0 {
		id := q.free[last]
		q.free = q.free[:last]
		q.nodes[id] = n
		return id
	}
	q.nodes = append(q.nodes, n)
	return NodeID(len(q.nodes) - 1)
}

// freeNode releases a slot. The last slot of the table is dropped instead of
// being pushed on the free stack.
func (q *Quadtree[T]) freeNode(id NodeID) {
	if int(id) == len(q.nodes)-1 {
		q.nodes = q.nodes[:id]
		return
	}
	q.nodes[id] = node{kind: kindFree, parent: noParent}
	q.free = append(q.free, id)
}

func (q *Quadtree[T]) live(id NodeID) bool {
	return id >= 0 && int(id) < len(q.nodes) && q.nodes[id].kind != kindFree
}

// leaf returns the leaf stored at id. Callers only pass ids taken from the
// owner map or from a descent, so anything else is a corrupted tree.
func (q *Quadtree[T]) leaf(id NodeID) *node {
	if !q.live(id) || q.nodes[id].kind != kindLeaf {
		panic(fmt.Sprintf("quadtree: node %d is not a leaf", id))
	}
	return &q.nodes[id]
}
