package contact_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tslnc04/agent-sim/internal/contact"
	"github.com/tslnc04/agent-sim/internal/quadtree"
)

func h(n uint64) *quadtree.Handle {
	v := quadtree.Handle(n)
	return &v
}

func TestAddAndLookup(t *testing.T) {
	g := contact.NewGraph()
	require.True(t, g.Add(7, nil))
	require.True(t, g.Add(3, h(7)))
	require.True(t, g.Add(9, h(7)))
	require.True(t, g.Add(4, h(3)))

	assert.Equal(t, 4, g.Len())
	assert.True(t, g.Contains(3))
	assert.False(t, g.Contains(5))

	_, ok := g.Parent(7)
	assert.False(t, ok, "index case has no parent")
	p, ok := g.Parent(4)
	require.True(t, ok)
	assert.Equal(t, quadtree.Handle(3), p)

	assert.Equal(t, []quadtree.Handle{3, 9}, g.Children(7))
	assert.Empty(t, g.Children(9))
	assert.Nil(t, g.Children(42))
}

func TestDuplicatePrevented(t *testing.T) {
	g := contact.NewGraph()
	assert.True(t, g.Add(1, nil))
	assert.False(t, g.Add(1, nil))
	assert.False(t, g.Add(1, h(2)))
	assert.Equal(t, 1, g.Len())
}

func TestUnknownParentMakesRoot(t *testing.T) {
	g := contact.NewGraph()
	require.True(t, g.Add(1, h(99)))
	_, ok := g.Parent(1)
	assert.False(t, ok)
}

func TestAverageDegree(t *testing.T) {
	g := contact.NewGraph()
	assert.Zero(t, g.AverageDegree())

	g.Add(1, nil)
	g.Add(2, h(1))
	g.Add(3, h(1))
	// 1 has two children, 2 and 3 one parent each
	assert.InDelta(t, 4.0/3.0, g.AverageDegree(), 1e-12)
}

func TestWriteDOT(t *testing.T) {
	g := contact.NewGraph()
	g.Add(5, nil)
	g.Add(8, h(5))

	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph ContactGraph {"))
	assert.Contains(t, out, `ContactNode0 [label="Agent 5"];`)
	assert.Contains(t, out, `ContactNode1 [label="Agent 8"];`)
	assert.Contains(t, out, "ContactNode0 -> ContactNode1;")
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestConcurrentReaders(t *testing.T) {
	g := contact.NewGraph()
	g.Add(0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.AverageDegree()
				g.Len()
			}
		}()
	}
	for i := uint64(1); i < 100; i++ {
		g.Add(quadtree.Handle(i), h(i-1))
	}
	wg.Wait()
	assert.Equal(t, 100, g.Len())
}
