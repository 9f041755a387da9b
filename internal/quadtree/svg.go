package quadtree

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo/float"
)

// LeafStyle is the SVG style used for leaf rectangles.
const LeafStyle = "fill:none;stroke:black;stroke-width:0.05"

// PixelsPerUnit is the rendered size of one world unit.
const PixelsPerUnit = 16

// RenderSVG writes an SVG document outlining every leaf rectangle. The
// viewBox is the tree's bounds with the y axis pointing up.
func (q *Quadtree[T]) RenderSVG(w io.Writer) {
	canvas := svg.New(w)
	StartWorld(canvas, q.bounds.BL.X, q.bounds.BL.Y, q.bounds.Width(), q.bounds.Height())
	q.DrawLeaves(canvas, LeafStyle)
	EndWorld(canvas)
}

// DrawLeaves draws the leaf rectangles onto an already started canvas.
func (q *Quadtree[T]) DrawLeaves(canvas *svg.SVG, style string) {
	for i := range q.nodes {
		n := &q.nodes[i]
		if n.kind != kindLeaf {
			continue
		}
		canvas.Rect(n.bounds.BL.X, n.bounds.BL.Y, n.bounds.Width(), n.bounds.Height(), style)
	}
}

// StartWorld opens an SVG document whose user space is the given world
// rectangle, flipped so that y grows upward. Close it with EndWorld.
func StartWorld(canvas *svg.SVG, x, y, w, h float64) {
	canvas.Startview(w*PixelsPerUnit, h*PixelsPerUnit, x, y, w, h)
	canvas.Gtransform(fmt.Sprintf("translate(0,%g) scale(1,-1)", 2*y+h))
}

// EndWorld closes a document opened by StartWorld.
func EndWorld(canvas *svg.SVG) {
	canvas.Gend()
	canvas.End()
}
