// Package world runs the epidemic: it owns the agents through the spatial
// index, the fixed structures and the contact graph, and advances them one
// step at a time.
package world

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/tslnc04/agent-sim/internal/agent"
	"github.com/tslnc04/agent-sim/internal/contact"
	"github.com/tslnc04/agent-sim/internal/geometry"
	"github.com/tslnc04/agent-sim/internal/quadtree"
	"github.com/tslnc04/agent-sim/internal/spatial"
)

// Population ranges for new agents.
const (
	MaxInitialAge = 80 * agent.Year
	MinSpeed      = 0.5e-3
	MaxSpeed      = 1.5e-3
)

// Options tunes the index and the step.
type Options struct {
	LeafCapacity      int
	MinLeafWidth      float64
	StepSize          time.Duration
	InfectionRadius   float64
	ExactRadius       bool
	FullConsolidation bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		LeafCapacity:    quadtree.DefaultLeafCapacity,
		MinLeafWidth:    quadtree.DefaultMinLeafWidth,
		StepSize:        time.Hour,
		InfectionRadius: 2.0,
		ExactRadius:     true,
	}
}

// Population sizes the initial world.
type Population struct {
	Agents     int
	Homes      int
	Workplaces int
	Schools    int
}

// World is a running simulation. It is not safe for concurrent use.
type World struct {
	logger *zap.Logger
	opts   Options
	bounds geometry.Rect
	rng    *rand.Rand

	tree       *quadtree.Quadtree[*agent.Agent]
	structures *spatial.Structures
	contacts   *contact.Graph

	step     int
	elapsed  time.Duration
	deaths   int
	infected int
}

// New creates an empty world covering bounds. All randomness is drawn from
// rng.
func New(bounds geometry.Rect, opts Options, rng *rand.Rand, logger *zap.Logger) (*World, error) {
	if bounds.Width() <= 0 || bounds.Height() <= 0 {
		return nil, fmt.Errorf("world bounds %s are empty", bounds)
	}
	if opts.StepSize <= 0 {
		return nil, fmt.Errorf("step size must be positive, got %s", opts.StepSize)
	}
	if opts.InfectionRadius < 0 {
		return nil, fmt.Errorf("infection radius must not be negative, got %g", opts.InfectionRadius)
	}

	return &World{
		logger: logger,
		opts:   opts,
		bounds: bounds,
		rng:    rng,
		tree: quadtree.New[*agent.Agent](bounds,
			quadtree.WithLeafCapacity(opts.LeafCapacity),
			quadtree.WithMinLeafWidth(opts.MinLeafWidth),
		),
		structures: spatial.NewStructures(bounds, nil, nil, nil),
		contacts:   contact.NewGraph(),
	}, nil
}

// Populate places the structures and creates the agents. Each agent lives at
// a random home and works at the workplace nearest to it; minors also get
// the nearest school.
func (w *World) Populate(pop Population) {
	w.structures = spatial.PlaceStructures(w.rng, w.bounds, pop.Homes, pop.Workplaces, pop.Schools)

	for i := 0; i < pop.Agents; i++ {
		speed := MinSpeed + w.rng.Float64()*(MaxSpeed-MinSpeed)
		a := agent.New(spatial.RandomPosition(w.rng, w.bounds), speed)
		a.Age = time.Duration(w.rng.Int63n(int64(MaxInitialAge)))
		w.assignDestinations(a)
		a.UpdateTask(w.TimeOfDay())

		if _, ok := w.tree.Add(a); !ok {
			w.logger.Warn("agent placed outside the world", zap.Stringer("pos", a.Position()))
		}
	}

	w.logger.Info("world populated",
		zap.Int("agents", w.tree.Len()),
		zap.Int("homes", pop.Homes),
		zap.Int("workplaces", pop.Workplaces),
		zap.Int("schools", pop.Schools),
		zap.Int("leaves", w.tree.LeafCount()),
	)
}

func (w *World) assignDestinations(a *agent.Agent) {
	anchor := a.Position()
	if home, ok := w.structures.Random(w.rng, spatial.Home); ok {
		a.Home = home.Pos
		anchor = home.Pos
	}
	if work, ok := w.structures.Nearest(spatial.Workplace, anchor); ok {
		a.Workplace = work.Pos
	}
	if a.Age < agent.AdultAge {
		if school, ok := w.structures.Nearest(spatial.School, anchor); ok {
			a.School = school.Pos
		}
	}
}

// AddAgent inserts a prepared agent, for callers building a world by hand.
func (w *World) AddAgent(a *agent.Agent) (quadtree.Handle, bool) {
	return w.tree.Add(a)
}

// InfectIndexCases makes up to n random susceptible agents infectious and
// records them as roots of the contact graph. It returns how many were
// infected.
func (w *World) InfectIndexCases(n int) int {
	var candidates []quadtree.Handle
	for h, a := range w.tree.All() {
		if a.Status.IsSusceptible() {
			candidates = append(candidates, h)
		}
	}
	w.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	n = min(n, len(candidates))
	for _, h := range candidates[:n] {
		a, _ := w.tree.Get(h)
		a.Status = agent.Status{Kind: agent.Infectious}
		w.contacts.Add(h, nil)
	}
	w.infected += n

	w.logger.Info("index cases seeded", zap.Int("count", n))
	return n
}

// Bounds returns the world rectangle.
func (w *World) Bounds() geometry.Rect {
	return w.bounds
}

// Options returns the options the world was created with.
func (w *World) Options() Options {
	return w.opts
}

// StepCount returns the number of completed steps.
func (w *World) StepCount() int {
	return w.step
}

// Elapsed returns the simulated time since the start.
func (w *World) Elapsed() time.Duration {
	return w.elapsed
}

// TimeOfDay returns the simulated wall clock.
func (w *World) TimeOfDay() time.Duration {
	return w.elapsed % agent.Day
}

// Tree exposes the spatial index.
func (w *World) Tree() *quadtree.Quadtree[*agent.Agent] {
	return w.tree
}

// Structures returns the placed structures.
func (w *World) Structures() *spatial.Structures {
	return w.structures
}

// Contacts returns the contact graph.
func (w *World) Contacts() *contact.Graph {
	return w.contacts
}

// AgentInfo is a snapshot of one agent.
type AgentInfo struct {
	Handle    quadtree.Handle `json:"handle"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Status    string          `json:"status"`
	Task      string          `json:"task"`
	AgeYears  float64         `json:"ageYears"`
	InStateHr float64         `json:"inStateHours"`
}

func info(h quadtree.Handle, a *agent.Agent) AgentInfo {
	pos := a.Position()
	return AgentInfo{
		Handle:    h,
		X:         pos.X,
		Y:         pos.Y,
		Status:    a.Status.Kind.String(),
		Task:      a.Task.String(),
		AgeYears:  a.Age.Hours() / agent.Year.Hours(),
		InStateHr: a.Status.Elapsed.Hours(),
	}
}

// AgentsIn returns the agents positioned inside r, in handle order. Unlike
// the index query this is exact.
func (w *World) AgentsIn(r geometry.Rect) []AgentInfo {
	handles := w.tree.FindAgentsIn(r)
	slices.Sort(handles)

	var agents []AgentInfo
	for _, h := range handles {
		a, ok := w.tree.Get(h)
		if !ok || !r.Contains(a.Position()) {
			continue
		}
		agents = append(agents, info(h, a))
	}
	return agents
}
