package quadtree

import (
	"errors"
	"fmt"
)

// Validate walks the whole tree and reports the first broken invariant it
// finds: parent/child links, leaf membership against the owner map, payload
// placement inside the owning leaf, and the free stack.
func (q *Quadtree[T]) Validate() error {
	if len(q.nodes) == 0 || q.nodes[RootID].kind == kindFree {
		return errors.New("root node missing")
	}
	if q.nodes[RootID].parent != noParent {
		return fmt.Errorf("root has parent %d", q.nodes[RootID].parent)
	}

	for _, id := range q.free {
		if int(id) >= len(q.nodes) {
			return fmt.Errorf("free id %d beyond table of %d", id, len(q.nodes))
		}
		if q.nodes[id].kind != kindFree {
			return fmt.Errorf("free id %d holds a %s node", id, q.nodes[id].kind)
		}
	}

	seen := make(map[Handle]NodeID)
	for i := range q.nodes {
		id := NodeID(i)
		n := &q.nodes[id]
		if n.kind == kindFree {
			continue
		}

		if id != RootID {
			if !q.live(n.parent) || q.nodes[n.parent].kind != kindInner {
				return fmt.Errorf("node %d: parent %d is not an inner node", id, n.parent)
			}
			found := false
			for _, c := range q.nodes[n.parent].children {
				if c == id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("node %d: not among the children of its parent %d", id, n.parent)
			}
		}

		switch n.kind {
		case kindInner:
			for _, c := range n.children {
				if !q.live(c) {
					return fmt.Errorf("node %d: child %d is not live", id, c)
				}
				if q.nodes[c].parent != id {
					return fmt.Errorf("node %d: child %d points at parent %d", id, c, q.nodes[c].parent)
				}
			}
		case kindLeaf:
			for _, h := range n.agents {
				if prev, dup := seen[h]; dup {
					return fmt.Errorf("handle %d held by leaves %d and %d", h, prev, id)
				}
				seen[h] = id
				if owner, ok := q.owner[h]; !ok || owner != id {
					return fmt.Errorf("handle %d held by leaf %d but owned by %d", h, id, owner)
				}
				a, ok := q.agents[h]
				if !ok {
					return fmt.Errorf("handle %d held by leaf %d has no payload", h, id)
				}
				if !n.bounds.Contains(a.Position()) {
					return fmt.Errorf("handle %d at %s outside leaf %d %s", h, a.Position(), id, n.bounds)
				}
			}
		}
	}

	if len(seen) != len(q.owner) || len(q.owner) != len(q.agents) {
		return fmt.Errorf("%d handles in leaves, %d owners, %d payloads", len(seen), len(q.owner), len(q.agents))
	}
	return nil
}
