package spatial

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/tslnc04/agent-sim/internal/geometry"
)

// Kind is a type of structure.
type Kind uint8

const (
	Home Kind = iota
	Workplace
	School

	numKinds
)

func (k Kind) String() string {
	switch k {
	case Home:
		return "home"
	case Workplace:
		return "workplace"
	case School:
		return "school"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// R-tree fan-out.
const (
	minChildren = 4
	maxChildren = 16
)

// pointTol is the half-side of the box a structure occupies in the R-tree.
const pointTol = 1e-9

// Structure is one fixed destination.
type Structure struct {
	ID   int
	Kind Kind
	Pos  geometry.Vec2
}

// Bounds implements rtreego.Spatial.
func (s *Structure) Bounds() rtreego.Rect {
	return toPoint(s.Pos).ToRect(pointTol)
}

func toPoint(v geometry.Vec2) rtreego.Point {
	return rtreego.Point{v.X, v.Y}
}

// Structures holds every structure of a world, indexed per kind. It is
// immutable once placed.
type Structures struct {
	bounds geometry.Rect
	byKind [numKinds][]*Structure
	trees  [numKinds]*rtreego.Rtree
}

// NewStructures indexes the given positions, one slice per kind.
func NewStructures(bounds geometry.Rect, homes, workplaces, schools []geometry.Vec2) *Structures {
	s := &Structures{bounds: bounds}
	for k, positions := range [numKinds][]geometry.Vec2{homes, workplaces, schools} {
		kind := Kind(k)
		tree := rtreego.NewTree(2, minChildren, maxChildren)
		for _, p := range positions {
			st := &Structure{ID: len(s.byKind[kind]), Kind: kind, Pos: p}
			s.byKind[kind] = append(s.byKind[kind], st)
			tree.Insert(st)
		}
		s.trees[kind] = tree
	}
	return s
}

// PlaceStructures scatters the requested number of each kind uniformly over
// bounds.
func PlaceStructures(rng *rand.Rand, bounds geometry.Rect, homes, workplaces, schools int) *Structures {
	place := func(n int) []geometry.Vec2 {
		ps := make([]geometry.Vec2, n)
		for i := range ps {
			ps[i] = RandomPosition(rng, bounds)
		}
		return ps
	}
	return NewStructures(bounds, place(homes), place(workplaces), place(schools))
}

// Bounds returns the world rectangle the structures were placed in.
func (s *Structures) Bounds() geometry.Rect {
	return s.bounds
}

// Len returns the number of structures of a kind.
func (s *Structures) Len(kind Kind) int {
	if kind >= numKinds {
		return 0
	}
	return len(s.byKind[kind])
}

// All returns the structures of a kind in placement order.
func (s *Structures) All(kind Kind) []*Structure {
	if kind >= numKinds {
		return nil
	}
	return append([]*Structure(nil), s.byKind[kind]...)
}

// Random picks a uniformly random structure of a kind.
func (s *Structures) Random(rng *rand.Rand, kind Kind) (*Structure, bool) {
	if s.Len(kind) == 0 {
		return nil, false
	}
	return s.byKind[kind][rng.Intn(len(s.byKind[kind]))], true
}

// Nearest returns the structure of a kind closest to pos.
func (s *Structures) Nearest(kind Kind, pos geometry.Vec2) (*Structure, bool) {
	if s.Len(kind) == 0 {
		return nil, false
	}
	nn := s.trees[kind].NearestNeighbor(toPoint(pos))
	if nn == nil {
		return nil, false
	}
	return nn.(*Structure), true
}

// Within returns the structures of a kind lying inside r.
func (s *Structures) Within(kind Kind, r geometry.Rect) []*Structure {
	if s.Len(kind) == 0 {
		return nil
	}
	query, err := rtreego.NewRectFromPoints(toPoint(r.BL), toPoint(r.TR))
	if err != nil {
		return nil
	}
	var found []*Structure
	for _, sp := range s.trees[kind].SearchIntersect(query) {
		st := sp.(*Structure)
		if r.Contains(st.Pos) {
			found = append(found, st)
		}
	}
	slices.SortFunc(found, func(a, b *Structure) int { return cmp.Compare(a.ID, b.ID) })
	return found
}
