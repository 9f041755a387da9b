// Package agent holds the per-agent record of the epidemic simulation: its
// disease state and clock, daily task, destinations and mortality.
package agent

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/fatih/color"

	"github.com/tslnc04/agent-sim/internal/geometry"
)

const (
	Day  = 24 * time.Hour
	Year = 365 * Day

	// IncubationPeriod is how long an agent stays exposed before becoming
	// infectious.
	IncubationPeriod = 21 * Day
	// InfectiousPeriod is how long an agent stays infectious before
	// recovering.
	InfectiousPeriod = 28 * Day

	// AdultAge is the age from which agents go to work instead of school.
	AdultAge = 18 * Year

	dayStart = 8 * time.Hour
	dayEnd   = 17 * time.Hour
)

// StatusKind enumerates the disease states.
type StatusKind uint8

const (
	Susceptible StatusKind = iota
	Exposed
	Infectious
	Recovered
	Dead
)

// Kinds lists every status kind in display order.
var Kinds = []StatusKind{Susceptible, Exposed, Infectious, Recovered, Dead}

func (k StatusKind) String() string {
	switch k {
	case Susceptible:
		return "susceptible"
	case Exposed:
		return "exposed"
	case Infectious:
		return "infectious"
	case Recovered:
		return "recovered"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("StatusKind(%d)", uint8(k))
	}
}

// Status is a disease state together with the time spent in it. Elapsed is
// only tracked for Exposed and Infectious.
type Status struct {
	Kind    StatusKind
	Elapsed time.Duration
}

func (s Status) IsSusceptible() bool { return s.Kind == Susceptible }
func (s Status) IsInfectious() bool  { return s.Kind == Infectious }
func (s Status) IsDead() bool        { return s.Kind == Dead }

// Task is what the agent is currently doing, which decides where it heads.
type Task uint8

const (
	Home Task = iota
	Work
	School
	None
)

func (t Task) String() string {
	switch t {
	case Home:
		return "home"
	case Work:
		return "work"
	case School:
		return "school"
	case None:
		return "none"
	default:
		return fmt.Sprintf("Task(%d)", uint8(t))
	}
}

// Agent is one simulated person.
type Agent struct {
	pos geometry.Vec2

	Status Status
	Task   Task

	// Destinations; NaN when unassigned.
	Home      geometry.Vec2
	Workplace geometry.Vec2
	School    geometry.Vec2

	// Speed is the distance covered per second.
	Speed float64
	Age   time.Duration
}

// New returns a susceptible newborn at pos heading home, with no
// destinations assigned.
func New(pos geometry.Vec2, speed float64) *Agent {
	return &Agent{
		pos:       pos,
		Status:    Status{Kind: Susceptible},
		Task:      Home,
		Home:      geometry.NaN(),
		Workplace: geometry.NaN(),
		School:    geometry.NaN(),
		Speed:     speed,
	}
}

// Position implements quadtree.Locatable.
func (a *Agent) Position() geometry.Vec2 {
	return a.pos
}

// SetPosition implements quadtree.Locatable.
func (a *Agent) SetPosition(pos geometry.Vec2) {
	a.pos = pos
}

// Infect exposes a susceptible agent. It reports whether the status changed.
func (a *Agent) Infect() bool {
	if !a.Status.IsSusceptible() {
		return false
	}
	a.Status = Status{Kind: Exposed}
	return true
}

// Step advances the disease clock and age by stepSize and rolls for death.
func (a *Agent) Step(stepSize time.Duration, rng *rand.Rand) {
	if a.Status.IsDead() {
		return
	}

	switch a.Status.Kind {
	case Exposed:
		if a.Status.Elapsed > IncubationPeriod {
			a.Status = Status{Kind: Infectious}
		} else {
			a.Status.Elapsed += stepSize
		}
	case Infectious:
		if a.Status.Elapsed > InfectiousPeriod {
			a.Status = Status{Kind: Recovered}
		} else {
			a.Status.Elapsed += stepSize
		}
	}

	a.Age += stepSize

	if rng.Float64() < a.DeathProbability(stepSize) {
		a.Status = Status{Kind: Dead}
		a.Task = None
	}
}

// DeathProbability is the chance of dying within the next stepSize. The
// annual rate roughly follows the SSA period life table averaged over sexes,
// plus 0.1% per year while infectious.
func (a *Agent) DeathProbability(stepSize time.Duration) float64 {
	years := a.Age.Hours() / Year.Hours()

	var annual float64
	switch y := int(years); {
	case y <= 20:
		annual = 0.001
	case y <= 50:
		annual = 0.0001*(years-20) + 0.001
	case y <= 80:
		annual = 0.0001*(years-50) + 0.005
	case y <= 100:
		annual = 0.01*(years-80) + 0.05
	case y <= 119:
		annual = 0.03*(years-100) + 0.2
	default:
		annual = 0.9
	}
	if a.Status.IsInfectious() {
		annual += 0.001
	}

	p := annual * stepSize.Seconds() / Year.Seconds()
	return min(max(p, 0), 1)
}

// UpdateTask picks the task for the given time of day: work or school
// during the day, home otherwise. The dead have no task.
func (a *Agent) UpdateTask(timeOfDay time.Duration) {
	switch {
	case a.Status.IsDead():
		a.Task = None
	case timeOfDay >= dayStart && timeOfDay < dayEnd:
		if a.Age < AdultAge && !a.School.IsNaN() {
			a.Task = School
		} else {
			a.Task = Work
		}
	default:
		a.Task = Home
	}
}

// Destination returns where the current task leads, NaN if nowhere.
func (a *Agent) Destination() geometry.Vec2 {
	switch a.Task {
	case Home:
		return a.Home
	case Work:
		return a.Workplace
	case School:
		return a.School
	default:
		return geometry.NaN()
	}
}

// Symbol is a three character cell for the text grid. Exposed and infectious
// agents show whole days spent in the state.
func (a *Agent) Symbol() string {
	days := int(a.Status.Elapsed / Day)
	switch a.Status.Kind {
	case Susceptible:
		return " S "
	case Exposed:
		return fmt.Sprintf("E%-2d", days)
	case Infectious:
		return fmt.Sprintf("I%-2d", days)
	case Recovered:
		return " R "
	default:
		return " D "
	}
}

var palette = map[StatusKind]*color.Color{
	Susceptible: color.New(color.FgGreen),
	Exposed:     color.New(38, 5, 208),
	Infectious:  color.New(color.FgRed),
	Recovered:   color.New(color.FgYellow),
	Dead:        color.New(color.FgBlue),
}

// Color returns the terminal color used for a status kind.
func Color(k StatusKind) *color.Color {
	return palette[k]
}

// Colored is Symbol wrapped in the status color. Colors are dropped when the
// output is not a terminal.
func (a *Agent) Colored() string {
	return Color(a.Status.Kind).Sprint(a.Symbol())
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s %s %s", a.Status.Kind, a.pos, a.Task)
}
