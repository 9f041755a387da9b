package world

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo/float"

	"github.com/tslnc04/agent-sim/internal/agent"
	"github.com/tslnc04/agent-sim/internal/quadtree"
	"github.com/tslnc04/agent-sim/internal/spatial"
)

const (
	catchmentStyle = "fill:none;stroke:#888888;stroke-width:0.05;stroke-dasharray:0.3,0.2"
	agentRadius    = 0.2
)

var statusFill = map[agent.StatusKind]string{
	agent.Susceptible: "green",
	agent.Exposed:     "orange",
	agent.Infectious:  "red",
	agent.Recovered:   "gold",
	agent.Dead:        "blue",
}

// String draws the world as a colored text grid, one cell per unit square
// with the top row first. A cell shows the lowest handle found in it.
func (w *World) String() string {
	cols := int(math.Ceil(w.bounds.Width()))
	rows := int(math.Ceil(w.bounds.Height()))
	cells := make([]*agent.Agent, cols*rows)

	for _, a := range w.tree.All() {
		p := a.Position().Sub(w.bounds.BL)
		x := min(int(p.X), cols-1)
		y := min(int(p.Y), rows-1)
		if cells[y*cols+x] == nil {
			cells[y*cols+x] = a
		}
	}

	var b strings.Builder
	day := int(w.elapsed / agent.Day)
	hour := int(w.TimeOfDay().Hours())
	fmt.Fprintf(&b, "----- Step %d, day %d %02d:00 -----\n", w.step, day, hour)
	for y := rows - 1; y >= 0; y-- {
		for x := 0; x < cols; x++ {
			if a := cells[y*cols+x]; a != nil {
				b.WriteString(a.Colored())
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderSVG draws the workplace catchments, the index leaves and every
// agent colored by status.
func (w *World) RenderSVG(out io.Writer) {
	b := w.bounds
	canvas := svg.New(out)
	quadtree.StartWorld(canvas, b.BL.X, b.BL.Y, b.Width(), b.Height())

	for _, c := range w.structures.Catchments(spatial.Workplace) {
		xs := make([]float64, len(c.Polygon))
		ys := make([]float64, len(c.Polygon))
		for i, v := range c.Polygon {
			xs[i], ys[i] = v.X, v.Y
		}
		canvas.Polygon(xs, ys, catchmentStyle)
	}

	w.tree.DrawLeaves(canvas, quadtree.LeafStyle)

	for _, a := range w.tree.All() {
		p := a.Position()
		canvas.Circle(p.X, p.Y, agentRadius, "fill:"+statusFill[a.Status.Kind])
	}

	quadtree.EndWorld(canvas)
}
