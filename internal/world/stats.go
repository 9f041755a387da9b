package world

import (
	"time"

	"github.com/tslnc04/agent-sim/internal/agent"
)

// Stats summarises the world after a step.
type Stats struct {
	Step        int           `json:"step" msgpack:"step"`
	Elapsed     time.Duration `json:"elapsed" msgpack:"elapsed"`
	Susceptible int           `json:"susceptible" msgpack:"s"`
	Exposed     int           `json:"exposed" msgpack:"e"`
	Infectious  int           `json:"infectious" msgpack:"i"`
	Recovered   int           `json:"recovered" msgpack:"r"`
	Dead        int           `json:"dead" msgpack:"d"`
	// Infected counts every infection so far, index cases included.
	Infected int `json:"infected" msgpack:"infected"`
	Leaves   int `json:"leaves" msgpack:"leaves"`
}

// Alive is the number of agents still in the index.
func (s Stats) Alive() int {
	return s.Susceptible + s.Exposed + s.Infectious + s.Recovered
}

// Count returns the number of agents in a status.
func (s Stats) Count(k agent.StatusKind) int {
	switch k {
	case agent.Susceptible:
		return s.Susceptible
	case agent.Exposed:
		return s.Exposed
	case agent.Infectious:
		return s.Infectious
	case agent.Recovered:
		return s.Recovered
	case agent.Dead:
		return s.Dead
	default:
		return 0
	}
}

// Stats counts the agents per status.
func (w *World) Stats() Stats {
	s := Stats{
		Step:     w.step,
		Elapsed:  w.elapsed,
		Dead:     w.deaths,
		Infected: w.infected,
		Leaves:   w.tree.LeafCount(),
	}
	for _, a := range w.tree.All() {
		switch a.Status.Kind {
		case agent.Susceptible:
			s.Susceptible++
		case agent.Exposed:
			s.Exposed++
		case agent.Infectious:
			s.Infectious++
		case agent.Recovered:
			s.Recovered++
		}
	}
	return s
}
