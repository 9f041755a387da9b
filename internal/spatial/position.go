// Package spatial places the fixed structures of the world (homes,
// workplaces, schools) and answers lookups over them.
package spatial

import (
	"math/rand"

	"github.com/tslnc04/agent-sim/internal/geometry"
)

// RandomPosition returns a position drawn uniformly from r.
func RandomPosition(rng *rand.Rand, r geometry.Rect) geometry.Vec2 {
	return geometry.RandomIn(rng, r.BL, r.TR)
}
