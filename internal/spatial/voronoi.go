package spatial

import (
	"github.com/fogleman/delaunay"

	"github.com/tslnc04/agent-sim/internal/geometry"
)

const clipEpsilon = 1e-9

// Catchment is the Voronoi cell of one structure: the part of the world
// closer to it than to any other structure of the same kind.
type Catchment struct {
	Site    *Structure
	Polygon []geometry.Vec2 // counter-clockwise
}

// Catchments computes the Voronoi cells of every structure of a kind,
// clipped to the world bounds, in structure order. Coincident structures
// share one cell, which is reported for the first of them only.
func (s *Structures) Catchments(kind Kind) []Catchment {
	var sites []*Structure
	seen := make(map[geometry.Vec2]bool)
	for _, st := range s.All(kind) {
		if !seen[st.Pos] {
			seen[st.Pos] = true
			sites = append(sites, st)
		}
	}
	if len(sites) == 0 {
		return nil
	}

	neighbours := delaunayNeighbours(sites)
	b := s.bounds
	world := []geometry.Vec2{b.BL, geometry.V(b.TR.X, b.BL.Y), b.TR, geometry.V(b.BL.X, b.TR.Y)}

	catchments := make([]Catchment, 0, len(sites))
	for i, st := range sites {
		poly := world
		for _, j := range neighbours[i] {
			poly = clipCloser(poly, st.Pos, sites[j].Pos)
		}
		catchments = append(catchments, Catchment{Site: st, Polygon: poly})
	}
	return catchments
}

// delaunayNeighbours lists, per site, the sites its Voronoi cell can share an
// edge with. When no triangulation exists (fewer than three sites, or all on
// one line) every other site is a neighbour.
func delaunayNeighbours(sites []*Structure) [][]int {
	neighbours := make([][]int, len(sites))

	points := make([]delaunay.Point, len(sites))
	for i, st := range sites {
		points[i] = delaunay.Point{X: st.Pos.X, Y: st.Pos.Y}
	}
	tri, err := delaunay.Triangulate(points)
	if err != nil || len(tri.Triangles) == 0 {
		for i := range sites {
			for j := range sites {
				if i != j {
					neighbours[i] = append(neighbours[i], j)
				}
			}
		}
		return neighbours
	}

	linked := make(map[[2]int]bool)
	link := func(a, b int) {
		if a > b {
			a, b = b, a
		}
		if linked[[2]int{a, b}] {
			return
		}
		linked[[2]int{a, b}] = true
		neighbours[a] = append(neighbours[a], b)
		neighbours[b] = append(neighbours[b], a)
	}
	for t := 0; t+2 < len(tri.Triangles); t += 3 {
		a, b, c := tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2]
		link(a, b)
		link(b, c)
		link(c, a)
	}
	return neighbours
}

// clipCloser keeps the part of a convex polygon that is at least as close to
// site as to other, preserving the winding.
func clipCloser(poly []geometry.Vec2, site, other geometry.Vec2) []geometry.Vec2 {
	mid := site.Add(other).Scale(0.5)
	normal := other.Sub(site)
	side := func(p geometry.Vec2) float64 {
		d := p.Sub(mid)
		return d.X*normal.X + d.Y*normal.Y
	}

	var out []geometry.Vec2
	keep := func(p geometry.Vec2) {
		if n := len(out); n > 0 && out[n-1].Dist(p) < clipEpsilon {
			return
		}
		out = append(out, p)
	}
	for i, cur := range poly {
		next := poly[(i+1)%len(poly)]
		sc, sn := side(cur), side(next)
		if sc <= 0 {
			keep(cur)
		}
		if (sc < 0 && sn > 0) || (sc > 0 && sn < 0) {
			t := sc / (sc - sn)
			keep(cur.Add(next.Sub(cur).Scale(t)))
		}
	}
	if n := len(out); n > 1 && out[0].Dist(out[n-1]) < clipEpsilon {
		out = out[:n-1]
	}
	return out
}
