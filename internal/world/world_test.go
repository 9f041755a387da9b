package world_test

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tslnc04/agent-sim/internal/agent"
	"github.com/tslnc04/agent-sim/internal/geometry"
	"github.com/tslnc04/agent-sim/internal/quadtree"
	"github.com/tslnc04/agent-sim/internal/spatial"
	"github.com/tslnc04/agent-sim/internal/world"
)

func bounds(w, h float64) geometry.Rect {
	return geometry.NewRect(geometry.V(0, 0), geometry.V(w, h))
}

func newWorld(t *testing.T, opts world.Options, seed int64) *world.World {
	t.Helper()
	w, err := world.New(bounds(40, 40), opts, rand.New(rand.NewSource(seed)), zap.NewNop())
	require.NoError(t, err)
	return w
}

func place(t *testing.T, w *world.World, x, y float64, status agent.StatusKind) (quadtree.Handle, *agent.Agent) {
	t.Helper()
	a := agent.New(geometry.V(x, y), 0)
	a.Status = agent.Status{Kind: status}
	h, ok := w.AddAgent(a)
	require.True(t, ok)
	return h, a
}

func TestNewRejectsBadInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := world.New(geometry.NewRect(geometry.V(0, 0), geometry.V(0, 5)), world.DefaultOptions(), rng, zap.NewNop())
	assert.Error(t, err)

	opts := world.DefaultOptions()
	opts.StepSize = 0
	_, err = world.New(bounds(10, 10), opts, rng, zap.NewNop())
	assert.Error(t, err)

	opts = world.DefaultOptions()
	opts.InfectionRadius = -1
	_, err = world.New(bounds(10, 10), opts, rng, zap.NewNop())
	assert.Error(t, err)
}

func TestPopulate(t *testing.T) {
	w := newWorld(t, world.DefaultOptions(), 1)
	w.Populate(world.Population{Agents: 200, Homes: 50, Workplaces: 5, Schools: 2})

	tree := w.Tree()
	require.Equal(t, 200, tree.Len())
	require.NoError(t, tree.Validate())

	for _, a := range tree.All() {
		assert.True(t, a.Status.IsSusceptible())
		assert.False(t, a.Home.IsNaN())
		assert.False(t, a.Workplace.IsNaN())
		assert.GreaterOrEqual(t, a.Speed, world.MinSpeed)
		assert.Less(t, a.Speed, world.MaxSpeed)
		assert.Less(t, a.Age, world.MaxInitialAge)

		nearest, ok := w.Structures().Nearest(spatial.Home, a.Home)
		require.True(t, ok)
		assert.Equal(t, a.Home, nearest.Pos, "home is one of the placed homes")

		if a.Age >= agent.AdultAge {
			assert.True(t, a.School.IsNaN())
		} else {
			assert.False(t, a.School.IsNaN())
		}
	}
	assert.True(t, w.Done(), "nobody infected yet")
}

func TestInfectIndexCases(t *testing.T) {
	w := newWorld(t, world.DefaultOptions(), 1)
	w.Populate(world.Population{Agents: 10, Homes: 3, Workplaces: 1})

	assert.Equal(t, 3, w.InfectIndexCases(3))
	assert.Equal(t, 3, w.Stats().Infectious)
	assert.Equal(t, 3, w.Contacts().Len())
	assert.False(t, w.Done())

	assert.Equal(t, 7, w.InfectIndexCases(100), "capped at the susceptible count")
	assert.Equal(t, 0, w.Stats().Susceptible)
}

func TestExactRadiusInfection(t *testing.T) {
	w := newWorld(t, world.DefaultOptions(), 1)
	src, _ := place(t, w, 10, 10, agent.Infectious)
	near, nearAgent := place(t, w, 11, 10, agent.Susceptible)
	_, cornerAgent := place(t, w, 11.9, 11.9, agent.Susceptible)
	_, farAgent := place(t, w, 30, 30, agent.Susceptible)

	w.Step()

	assert.Equal(t, agent.Exposed, nearAgent.Status.Kind)
	assert.Equal(t, agent.Susceptible, cornerAgent.Status.Kind, "inside the query square but beyond the radius")
	assert.Equal(t, agent.Susceptible, farAgent.Status.Kind)

	parent, ok := w.Contacts().Parent(near)
	require.True(t, ok)
	assert.Equal(t, src, parent)
	assert.Equal(t, 1, w.Stats().Infected)
}

func TestSquareInfectionWithoutExactRadius(t *testing.T) {
	opts := world.DefaultOptions()
	opts.ExactRadius = false
	w := newWorld(t, opts, 1)
	place(t, w, 10, 10, agent.Infectious)
	_, nearAgent := place(t, w, 11, 10, agent.Susceptible)
	_, cornerAgent := place(t, w, 11.9, 11.9, agent.Susceptible)

	w.Step()

	assert.Equal(t, agent.Exposed, nearAgent.Status.Kind)
	assert.Equal(t, agent.Exposed, cornerAgent.Status.Kind)
}

func TestFirstSourceWins(t *testing.T) {
	w := newWorld(t, world.DefaultOptions(), 1)
	first, _ := place(t, w, 10, 10, agent.Infectious)
	place(t, w, 12, 10, agent.Infectious)
	target, _ := place(t, w, 11, 10, agent.Susceptible)

	w.Step()
	parent, ok := w.Contacts().Parent(target)
	require.True(t, ok)
	assert.Equal(t, first, parent)
}

func TestDeadAgentsLeaveTheIndex(t *testing.T) {
	opts := world.DefaultOptions()
	opts.StepSize = 10 * agent.Year
	w := newWorld(t, opts, 1)
	h, a := place(t, w, 5, 5, agent.Recovered)
	a.Age = 130 * agent.Year

	w.Step()

	_, ok := w.Tree().Get(h)
	assert.False(t, ok)
	s := w.Stats()
	assert.Equal(t, 1, s.Dead)
	assert.Equal(t, 0, s.Alive())
}

func TestAgentsWalkHome(t *testing.T) {
	w := newWorld(t, world.DefaultOptions(), 1)
	h, a := place(t, w, 1, 1, agent.Susceptible)
	a.Speed = 1e-3
	a.Home = geometry.V(5, 1)

	w.Step()
	assert.InDelta(t, 4.6, a.Position().X, 1e-9)
	assert.InDelta(t, 1.0, a.Position().Y, 1e-9)

	w.Step()
	assert.Equal(t, geometry.V(5, 1), a.Position())

	w.Step()
	assert.LessOrEqual(t, a.Position().Dist(geometry.V(5, 1)), 1.0+1e-9, "wanders near home once there")

	owner, ok := w.Tree().Owner(h)
	require.True(t, ok)
	leaf, _ := w.Tree().Node(owner)
	assert.True(t, leaf.Bounds.Contains(a.Position()))
}

func TestStepKeepsIndexConsistent(t *testing.T) {
	for _, full := range []bool{false, true} {
		opts := world.DefaultOptions()
		opts.FullConsolidation = full
		w := newWorld(t, opts, 7)
		w.Populate(world.Population{Agents: 300, Homes: 60, Workplaces: 6, Schools: 2})
		w.InfectIndexCases(5)

		for i := 0; i < 72; i++ {
			w.Step()
			require.NoError(t, w.Tree().Validate(), "step %d", i)
			s := w.Stats()
			require.Equal(t, 300, s.Alive()+s.Dead)
			require.Equal(t, len(w.Tree().Leaves()), s.Leaves)
			require.Equal(t, i+1, s.Step)
			require.Equal(t, time.Duration(i+1)*time.Hour, s.Elapsed)
		}
		if full {
			assert.Zero(t, w.Tree().Clean(), "already at a fixed point")
		}
	}
}

func TestSeededRunsRepeat(t *testing.T) {
	run := func() []world.Stats {
		w := newWorld(t, world.DefaultOptions(), 42)
		w.Populate(world.Population{Agents: 150, Homes: 40, Workplaces: 4, Schools: 1})
		w.InfectIndexCases(2)
		var out []world.Stats
		for i := 0; i < 48; i++ {
			w.Step()
			out = append(out, w.Stats())
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestAgentsIn(t *testing.T) {
	w := newWorld(t, world.DefaultOptions(), 1)
	a, _ := place(t, w, 1, 1, agent.Susceptible)
	place(t, w, 3, 3, agent.Susceptible)
	c, _ := place(t, w, 2, 1.5, agent.Infectious)

	got := w.AgentsIn(geometry.NewRect(geometry.V(0, 0), geometry.V(2, 2)))
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Handle)
	assert.Equal(t, c, got[1].Handle)
	assert.Equal(t, "infectious", got[1].Status)
	assert.Equal(t, 2.0, got[1].X)
}

func TestString(t *testing.T) {
	w, err := world.New(bounds(4, 3), world.DefaultOptions(), rand.New(rand.NewSource(1)), zap.NewNop())
	require.NoError(t, err)
	_, a := place(t, w, 0.5, 2.5, agent.Susceptible)

	lines := strings.Split(strings.TrimSuffix(w.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Step 0")
	assert.True(t, strings.HasPrefix(lines[1], a.Colored()), "top row holds the agent")
	assert.Equal(t, strings.Repeat(" ", 12), lines[3])
}

func TestRenderSVG(t *testing.T) {
	w := newWorld(t, world.DefaultOptions(), 3)
	w.Populate(world.Population{Agents: 25, Homes: 5, Workplaces: 3})

	var buf bytes.Buffer
	w.RenderSVG(&buf)
	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Equal(t, 25, strings.Count(out, "<circle"))
	assert.Equal(t, 3, strings.Count(out, "<polygon"))
	assert.Equal(t, len(w.Tree().Leaves()), strings.Count(out, "<rect"))
}
