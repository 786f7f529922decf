package nav

import (
	"math"

	"voxelbot.ai/internal/voxel"
)

// Axis is one goal axis: a concrete value or "don't care".
type Axis struct {
	Value int
	Any   bool
}

func At(v int) Axis { return Axis{Value: v} }

// AnyAxis matches every value on its axis.
var AnyAxis = Axis{Any: true}

// Goal is a target coordinate where any axis may be left unconstrained.
type Goal struct {
	X Axis
	Y Axis
	Z Axis
}

func GoalAt(c voxel.Coord) Goal {
	return Goal{X: At(c.X), Y: At(c.Y), Z: At(c.Z)}
}

// Dist is the straight-line distance over the constrained axes only.
func (g Goal) Dist(c voxel.Coord) float64 {
	var dx, dy, dz float64
	if !g.X.Any {
		dx = float64(c.X - g.X.Value)
	}
	if !g.Y.Any {
		dy = float64(c.Y - g.Y.Value)
	}
	if !g.Z.Any {
		dz = float64(c.Z - g.Z.Value)
	}
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Bound clamps the goal to a concrete coordinate for preload box purposes,
// substituting the start value on unconstrained axes.
func (g Goal) Bound(start voxel.Coord) voxel.Coord {
	c := start
	if !g.X.Any {
		c.X = g.X.Value
	}
	if !g.Y.Any {
		c.Y = g.Y.Value
	}
	if !g.Z.Any {
		c.Z = g.Z.Value
	}
	return c
}
