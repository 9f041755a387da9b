// Package contact records who infected whom during a simulation run.
package contact

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/tslnc04/agent-sim/internal/quadtree"
)

const noParent = -1

// node is one infected agent. parent and children index into Graph.nodes.
type node struct {
	agent    quadtree.Handle
	parent   int
	children []int
}

func (n *node) degree() int {
	d := len(n.children)
	if n.parent != noParent {
		d++
	}
	return d
}

// Graph is an append-only contact tracing tree. Each recorded agent links to
// the agent that infected it, if that one is recorded too. Safe for
// concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes []node
	index map[quadtree.Handle]int // agent → position in nodes
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[quadtree.Handle]int)}
}

// Add records agent as infected by parent, or as a root when parent is nil
// or unknown. It returns false if agent is already recorded.
func (g *Graph) Add(agent quadtree.Handle, parent *quadtree.Handle) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.index[agent]; ok {
		return false
	}

	n := node{agent: agent, parent: noParent}
	id := len(g.nodes)
	if parent != nil {
		if p, ok := g.index[*parent]; ok {
			n.parent = p
			g.nodes[p].children = append(g.nodes[p].children, id)
		}
	}
	g.nodes = append(g.nodes, n)
	g.index[agent] = id
	return true
}

// Len returns the number of recorded agents.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Contains reports whether agent is recorded.
func (g *Graph) Contains(agent quadtree.Handle) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.index[agent]
	return ok
}

// Parent returns the agent that infected agent. ok is false for roots and
// unrecorded agents.
func (g *Graph) Parent(agent quadtree.Handle) (parent quadtree.Handle, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, found := g.index[agent]
	if !found || g.nodes[id].parent == noParent {
		return 0, false
	}
	return g.nodes[g.nodes[id].parent].agent, true
}

// Children returns the agents infected by agent, in infection order.
func (g *Graph) Children(agent quadtree.Handle) []quadtree.Handle {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.index[agent]
	if !ok {
		return nil
	}
	children := make([]quadtree.Handle, 0, len(g.nodes[id].children))
	for _, c := range g.nodes[id].children {
		children = append(children, g.nodes[c].agent)
	}
	return children
}

// AverageDegree is the mean number of edges per recorded agent, 0 for an
// empty graph.
func (g *Graph) AverageDegree() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.nodes) == 0 {
		return 0
	}
	total := 0
	for i := range g.nodes {
		total += g.nodes[i].degree()
	}
	return float64(total) / float64(len(g.nodes))
}

// WriteDOT writes the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph ContactGraph {")
	for i := range g.nodes {
		n := &g.nodes[i]
		fmt.Fprintf(bw, "  ContactNode%d [label=\"Agent %d\"];\n", i, n.agent)
		for _, c := range n.children {
			fmt.Fprintf(bw, "  ContactNode%d -> ContactNode%d;\n", i, c)
		}
	}
	fmt.Fprintln(bw, "}")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write contact graph: %w", err)
	}
	return nil
}
