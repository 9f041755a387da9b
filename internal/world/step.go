package world

import (
	"math"

	"go.uber.org/zap"

	"github.com/tslnc04/agent-sim/internal/agent"
	"github.com/tslnc04/agent-sim/internal/geometry"
	"github.com/tslnc04/agent-sim/internal/quadtree"
)

// arrived is how close an agent must be to its destination to count as there.
const arrived = 1e-9

type exposure struct {
	target, source quadtree.Handle
}

// Step advances the world by one step: transmission around every
// infectious agent, disease clocks and tasks, movement, then index
// consolidation.
func (w *World) Step() {
	for _, e := range w.exposures() {
		target, _ := w.tree.Get(e.target)
		if target.Infect() {
			source := e.source
			w.contacts.Add(e.target, &source)
			w.infected++
		}
	}

	w.elapsed += w.opts.StepSize
	w.step++

	w.advanceClocks()
	w.moveAgents()

	var joins int
	if w.opts.FullConsolidation {
		joins = w.tree.Consolidate()
	} else {
		joins = w.tree.Clean()
	}

	if ce := w.logger.Check(zap.DebugLevel, "step"); ce != nil {
		s := w.Stats()
		ce.Write(
			zap.Int("step", s.Step),
			zap.Int("susceptible", s.Susceptible),
			zap.Int("exposed", s.Exposed),
			zap.Int("infectious", s.Infectious),
			zap.Int("recovered", s.Recovered),
			zap.Int("dead", s.Dead),
			zap.Int("leaves", s.Leaves),
			zap.Int("joins", joins),
		)
	}
}

// exposures finds every susceptible agent near an infectious one. The first
// infectious neighbour in handle order is the recorded source.
func (w *World) exposures() []exposure {
	r := w.opts.InfectionRadius
	side := geometry.V(2*r, 2*r)

	var found []exposure
	for h, a := range w.tree.All() {
		if !a.Status.IsInfectious() {
			continue
		}
		pos := a.Position()
		for _, nh := range w.tree.FindAgentsIn(geometry.NewCenteredRect(pos, side)) {
			n, ok := w.tree.Get(nh)
			if !ok || !n.Status.IsSusceptible() {
				continue
			}
			if w.opts.ExactRadius && n.Position().Dist(pos) > r {
				continue
			}
			found = append(found, exposure{target: nh, source: h})
		}
	}
	return found
}

// advanceClocks steps every agent and drops the dead from the index.
func (w *World) advanceClocks() {
	tod := w.TimeOfDay()
	var dead []quadtree.Handle
	for h, a := range w.tree.All() {
		a.Step(w.opts.StepSize, w.rng)
		a.UpdateTask(tod)
		if a.Status.IsDead() {
			dead = append(dead, h)
		}
	}

	for _, h := range dead {
		w.tree.Remove(h)
		w.deaths++
		if w.deaths == 1 {
			w.logger.Info("first death", zap.Int("step", w.step), zap.Uint64("agent", uint64(h)))
		}
	}
}

// moveAgents walks every agent toward its destination at its speed, or
// wanders when it has nowhere to go.
func (w *World) moveAgents() {
	seconds := w.opts.StepSize.Seconds()
	for _, h := range w.tree.Handles() {
		a, _ := w.tree.Get(h)
		pos := a.Position()
		reach := a.Speed * seconds

		var delta geometry.Vec2
		dest := a.Destination()
		if dest.IsNaN() || pos.Dist(dest) < arrived {
			theta := w.rng.Float64() * 2 * math.Pi
			delta = geometry.V(math.Cos(theta), math.Sin(theta)).Scale(math.Min(1, reach))
		} else {
			delta = dest.Sub(pos).ClampMag(reach)
		}

		next := pos.Add(delta).Clamp(w.bounds)
		if !w.tree.Move(h, next) {
			w.logger.Warn("agent move rejected", zap.Uint64("agent", uint64(h)), zap.Stringer("pos", next))
		}
	}
}

// Done reports whether the epidemic is over: nobody is exposed or
// infectious.
func (w *World) Done() bool {
	for _, a := range w.tree.All() {
		if k := a.Status.Kind; k == agent.Exposed || k == agent.Infectious {
			return false
		}
	}
	return true
}
