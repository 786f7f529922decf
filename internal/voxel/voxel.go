// Package voxel holds the integer grid primitives shared by the cache, the
// planner and the remote clients.
package voxel

import "math"

// ChunkSize is the edge length of the cubic chunk, the unit of bulk read and
// cache invalidation.
const ChunkSize = 16

type Coord struct {
	X int
	Y int
	Z int
}

// Delta is a single move step. Planner output keeps every axis in [-1, 1].
type Delta struct {
	X int
	Y int
	Z int
}

func (c Coord) Add(d Delta) Coord {
	return Coord{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
}

func (c Coord) Sub(o Coord) Delta {
	return Delta{X: c.X - o.X, Y: c.Y - o.Y, Z: c.Z - o.Z}
}

func (c Coord) ToArray() [3]int { return [3]int{c.X, c.Y, c.Z} }

func FromArray(a [3]int) Coord { return Coord{X: a[0], Y: a[1], Z: a[2]} }

// Block is one world cell as reported by the observer.
type Block struct {
	Type  uint16
	Biome uint8
}

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

func ChunkOf(c Coord) ChunkKey {
	return ChunkKey{
		CX: floorDiv(c.X, ChunkSize),
		CY: floorDiv(c.Y, ChunkSize),
		CZ: floorDiv(c.Z, ChunkSize),
	}
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Chebyshev is the max per-axis distance, the single-step movement bound.
func Chebyshev(a, b Coord) int {
	dx := absInt(a.X - b.X)
	dy := absInt(a.Y - b.Y)
	dz := absInt(a.Z - b.Z)
	m := dx
	if dy > m {
		m = dy
	}
	if dz > m {
		m = dz
	}
	return m
}

func Euclidean(a, b Coord) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
