package agent_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tslnc04/agent-sim/internal/agent"
	"github.com/tslnc04/agent-sim/internal/geometry"
)

// halfSource makes every Float64 draw 0.5.
type halfSource struct{}

func (halfSource) Int63() int64 { return 1 << 62 }
func (halfSource) Seed(int64)   {}

func TestNew(t *testing.T) {
	a := agent.New(geometry.V(1, 2), 0.5)
	assert.Equal(t, geometry.V(1, 2), a.Position())
	assert.True(t, a.Status.IsSusceptible())
	assert.Equal(t, agent.Home, a.Task)
	assert.True(t, a.Home.IsNaN())
	assert.True(t, a.Destination().IsNaN())
	assert.Equal(t, 0.5, a.Speed)
	assert.Zero(t, a.Age)
}

func TestInfectOnlySusceptible(t *testing.T) {
	a := agent.New(geometry.Zero(), 1)
	assert.True(t, a.Infect())
	assert.Equal(t, agent.Status{Kind: agent.Exposed}, a.Status)
	assert.False(t, a.Infect(), "already exposed")

	a.Status = agent.Status{Kind: agent.Recovered}
	assert.False(t, a.Infect())
	assert.Equal(t, agent.Recovered, a.Status.Kind)
}

func TestDiseaseProgression(t *testing.T) {
	rng := rand.New(halfSource{})
	a := agent.New(geometry.Zero(), 1)
	require.True(t, a.Infect())

	for a.Status.Kind == agent.Exposed {
		a.Step(agent.Day, rng)
	}
	assert.Equal(t, agent.Status{Kind: agent.Infectious}, a.Status)
	assert.Equal(t, 23*agent.Day, a.Age, "22 days counting plus the transition step")

	a.Step(agent.Day, rng)
	assert.Equal(t, agent.Day, a.Status.Elapsed)

	for a.Status.Kind == agent.Infectious {
		a.Step(agent.Day, rng)
	}
	assert.Equal(t, agent.Recovered, a.Status.Kind)

	age := a.Age
	a.Step(time.Hour, rng)
	assert.Equal(t, agent.Recovered, a.Status.Kind)
	assert.Equal(t, age+time.Hour, a.Age)
}

func TestDeadAgentsStayPut(t *testing.T) {
	a := agent.New(geometry.Zero(), 1)
	a.Status = agent.Status{Kind: agent.Dead}
	a.Step(agent.Day, rand.New(rand.NewSource(1)))
	assert.Zero(t, a.Age)

	a.UpdateTask(10 * time.Hour)
	assert.Equal(t, agent.None, a.Task)
	assert.True(t, a.Destination().IsNaN())
}

func TestDeathProbability(t *testing.T) {
	a := agent.New(geometry.Zero(), 1)

	a.Age = 10 * agent.Year
	assert.InDelta(t, 0.001, a.DeathProbability(agent.Year), 1e-12)

	a.Age = 30 * agent.Year
	assert.InDelta(t, 0.002, a.DeathProbability(agent.Year), 1e-12)

	a.Age = 60 * agent.Year
	assert.InDelta(t, 0.006, a.DeathProbability(agent.Year), 1e-12)

	a.Age = 90 * agent.Year
	assert.InDelta(t, 0.15, a.DeathProbability(agent.Year), 1e-12)

	a.Age = 110 * agent.Year
	assert.InDelta(t, 0.5, a.DeathProbability(agent.Year), 1e-12)

	a.Age = 130 * agent.Year
	assert.InDelta(t, 0.9, a.DeathProbability(agent.Year), 1e-12)

	a.Age = 10 * agent.Year
	a.Status = agent.Status{Kind: agent.Infectious}
	assert.InDelta(t, 0.002, a.DeathProbability(agent.Year), 1e-12)
	assert.InDelta(t, 0.002/365, a.DeathProbability(agent.Day), 1e-12)

	a.Age = 130 * agent.Year
	assert.Equal(t, 1.0, a.DeathProbability(10*agent.Year), "clamped")
}

func TestUpdateTask(t *testing.T) {
	a := agent.New(geometry.Zero(), 1)
	a.Home = geometry.V(1, 1)
	a.Workplace = geometry.V(2, 2)
	a.School = geometry.V(3, 3)
	a.Age = 10 * agent.Year

	a.UpdateTask(7 * time.Hour)
	assert.Equal(t, agent.Home, a.Task)
	assert.Equal(t, a.Home, a.Destination())

	a.UpdateTask(8 * time.Hour)
	assert.Equal(t, agent.School, a.Task)
	assert.Equal(t, a.School, a.Destination())

	a.Age = 30 * agent.Year
	a.UpdateTask(12 * time.Hour)
	assert.Equal(t, agent.Work, a.Task)
	assert.Equal(t, a.Workplace, a.Destination())

	a.UpdateTask(17 * time.Hour)
	assert.Equal(t, agent.Home, a.Task)

	child := agent.New(geometry.Zero(), 1)
	child.UpdateTask(9 * time.Hour)
	assert.Equal(t, agent.Work, child.Task, "no school assigned")
}

func TestSymbol(t *testing.T) {
	a := agent.New(geometry.Zero(), 1)
	assert.Equal(t, " S ", a.Symbol())

	a.Status = agent.Status{Kind: agent.Exposed, Elapsed: 3*agent.Day + time.Hour}
	assert.Equal(t, "E3 ", a.Symbol())

	a.Status = agent.Status{Kind: agent.Infectious, Elapsed: 12 * agent.Day}
	assert.Equal(t, "I12", a.Symbol())

	a.Status = agent.Status{Kind: agent.Recovered}
	assert.Equal(t, " R ", a.Symbol())

	a.Status = agent.Status{Kind: agent.Dead}
	assert.Equal(t, " D ", a.Symbol())
}

func TestColored(t *testing.T) {
	a := agent.New(geometry.Zero(), 1)
	c := agent.Color(agent.Susceptible)
	c.EnableColor()
	defer c.DisableColor()

	assert.Equal(t, "\x1b[32m S \x1b[0m", a.Colored())

	for _, k := range agent.Kinds {
		assert.NotNil(t, agent.Color(k), k.String())
	}
}
