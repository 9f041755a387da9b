// Package report draws epidemic curves from recorded step statistics.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/tslnc04/agent-sim/internal/agent"
	"github.com/tslnc04/agent-sim/internal/world"
)

// Format selects the chart encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// FormatFor picks the format from a file name, defaulting to PNG.
func FormatFor(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".svg") {
		return SVG
	}
	return PNG
}

// ErrTooFewPoints is returned when there is not enough history for a curve.
var ErrTooFewPoints = errors.New("need at least two steps to draw a curve")

var seriesColor = map[agent.StatusKind]drawing.Color{
	agent.Susceptible: chart.ColorGreen,
	agent.Exposed:     chart.ColorOrange,
	agent.Infectious:  chart.ColorRed,
	agent.Recovered:   chart.ColorYellow,
	agent.Dead:        chart.ColorBlue,
}

// RenderCurves plots the number of agents in every status against simulated
// days.
func RenderCurves(w io.Writer, stats []world.Stats, format Format) error {
	if len(stats) < 2 {
		return ErrTooFewPoints
	}

	days := make([]float64, len(stats))
	peak := 0
	for i, s := range stats {
		days[i] = s.Elapsed.Hours() / 24
		peak = max(peak, s.Alive()+s.Dead)
	}
	if days[0] == days[len(days)-1] {
		return ErrTooFewPoints
	}

	var series []chart.Series
	for _, k := range agent.Kinds {
		ys := make([]float64, len(stats))
		for i, s := range stats {
			ys[i] = float64(s.Count(k))
		}
		series = append(series, chart.ContinuousSeries{
			Name:    k.String(),
			XValues: days,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: seriesColor[k],
				StrokeWidth: 2,
			},
		})
	}

	graph := chart.Chart{
		Title:  "Epidemic curve",
		Width:  1024,
		Height: 512,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "day",
			Range: &chart.ContinuousRange{Min: days[0], Max: days[len(days)-1]},
		},
		YAxis: chart.YAxis{
			Name:  "agents",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(peak, 1))},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	provider := chart.PNG
	if format == SVG {
		provider = chart.SVG
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
