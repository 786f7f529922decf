// Package nav turns "go to X" into a validated sequence of unit steps using
// A* over the cache-backed voxel grid.
package nav

import (
	"container/heap"
	"context"
	"errors"

	"voxelbot.ai/internal/voxel"
)

// ErrUnreachable reports that the search exhausted its frontier (or its
// expansion budget) without reaching the goal. It is a normal outcome, not a
// transport failure.
var ErrUnreachable = errors.New("goal unreachable")

// BlockSource is the cache-backed block query the planner routes every lookup
// through.
type BlockSource interface {
	Block(ctx context.Context, c voxel.Coord) (voxel.Block, error)
}

// Preloader is optionally implemented by a BlockSource that supports bulk
// region reads (the block cache does).
type Preloader interface {
	Preload(ctx context.Context, min, max voxel.Coord) error
}

// Passable reports whether an agent body can occupy a cell of this block.
type Passable func(voxel.Block) bool

type Planner struct {
	blocks   BlockSource
	passable Passable
	model    CostModel
}

func New(blocks BlockSource, passable Passable, model CostModel) *Planner {
	return &Planner{blocks: blocks, passable: passable, model: model}
}

// Cardinal horizontal directions, fixed order for determinism.
var dirs = [4]voxel.Delta{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}

type node struct {
	pos    voxel.Coord
	g      float64
	f      float64
	jumps  int
	parent *node
	index  int // heap bookkeeping
}

type openHeap []*node

func (h openHeap) Len() int           { return len(h) }
func (h openHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h openHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *openHeap) Push(x any)        { n := x.(*node); n.index = len(*h); *h = append(*h, n) }
func (h *openHeap) Pop() any          { old := *h; n := old[len(old)-1]; *h = old[:len(old)-1]; return n }

// Plan searches for a route from start to within GoalDistance of goal and
// returns it as unit steps. It never mutates the world; all lookups go
// through the block source.
func (p *Planner) Plan(ctx context.Context, start voxel.Coord, goal Goal) ([]voxel.Delta, error) {
	if goal.Dist(start) <= p.model.GoalDistance {
		return []voxel.Delta{}, nil
	}

	if p.model.PreloadMargin >= 0 {
		p.preload(ctx, start, goal)
	}

	startNode := &node{pos: start, g: 0, f: goal.Dist(start)}
	open := openHeap{}
	heap.Init(&open)
	heap.Push(&open, startNode)

	// Open set keyed by coordinate: one best-known node per cell.
	best := map[voxel.Coord]*node{start: startNode}
	closed := map[voxel.Coord]bool{}

	expansions := 0
	for open.Len() > 0 {
		cur := heap.Pop(&open).(*node)
		if closed[cur.pos] {
			continue
		}
		if goal.Dist(cur.pos) <= p.model.GoalDistance {
			return rebuild(cur), nil
		}
		closed[cur.pos] = true

		expansions++
		if p.model.MaxExpansions > 0 && expansions > p.model.MaxExpansions {
			return nil, ErrUnreachable
		}

		for _, d := range dirs {
			for dy := -2; dy <= 2; dy++ {
				cand := voxel.Coord{X: cur.pos.X + d.X, Y: cur.pos.Y + dy, Z: cur.pos.Z + d.Z}
				ok, err := p.admissible(ctx, cur.pos, cand)
				if err != nil {
					return nil, err
				}
				if !ok || closed[cand] {
					continue
				}
				edge, jumps := p.model.EdgeCost(cur.pos, cand, cur.jumps)
				g := cur.g + edge
				if prev, seen := best[cand]; seen && prev.g <= g {
					continue
				}
				n := &node{pos: cand, g: g, f: g + goal.Dist(cand), jumps: jumps, parent: cur}
				best[cand] = n
				heap.Push(&open, n)
			}
		}
	}
	return nil, ErrUnreachable
}

// admissible validates a candidate inline during generation: one combined
// pass over the cached reads instead of a generate-then-filter split.
func (p *Planner) admissible(ctx context.Context, from, to voxel.Coord) (bool, error) {
	if voxel.Chebyshev(from, to) > 1 {
		return false, nil
	}

	dest, err := p.blocks.Block(ctx, to)
	if err != nil {
		return false, err
	}
	if !p.passable(dest) {
		return false, nil
	}

	// Body-height clearance at the destination, plus headroom over the
	// current cell when climbing.
	above, err := p.blocks.Block(ctx, voxel.Coord{X: to.X, Y: to.Y + 1, Z: to.Z})
	if err != nil {
		return false, err
	}
	if !p.passable(above) {
		return false, nil
	}
	dy := to.Y - from.Y
	if dy > 0 {
		over, err := p.blocks.Block(ctx, voxel.Coord{X: from.X, Y: from.Y + 2, Z: from.Z})
		if err != nil {
			return false, err
		}
		if !p.passable(over) {
			return false, nil
		}
	}

	// Ground support beneath the destination, unless this is a penalized fall.
	below, err := p.blocks.Block(ctx, voxel.Coord{X: to.X, Y: to.Y - 1, Z: to.Z})
	if err != nil {
		return false, err
	}
	if p.passable(below) && dy >= 0 {
		return false, nil
	}
	return true, nil
}

func (p *Planner) preload(ctx context.Context, start voxel.Coord, goal Goal) {
	pre, ok := p.blocks.(Preloader)
	if !ok {
		return
	}
	end := goal.Bound(start)
	m := p.model.PreloadMargin
	min := voxel.Coord{X: minInt(start.X, end.X) - m, Y: minInt(start.Y, end.Y) - m, Z: minInt(start.Z, end.Z) - m}
	max := voxel.Coord{X: maxInt(start.X, end.X) + m, Y: maxInt(start.Y, end.Y) + m, Z: maxInt(start.Z, end.Z) + m}
	// Best effort; per-coordinate reads cover a failed preload.
	_ = pre.Preload(ctx, min, max)
}

func rebuild(n *node) []voxel.Delta {
	depth := 0
	for c := n; c.parent != nil; c = c.parent {
		depth++
	}
	steps := make([]voxel.Delta, depth)
	for c := n; c.parent != nil; c = c.parent {
		depth--
		steps[depth] = c.pos.Sub(c.parent.pos)
	}
	return steps
}

// BatchSteps splits a route into chunks of at most max steps, the unit the
// movement protocol accepts per mutating call.
func BatchSteps(steps []voxel.Delta, max int) [][]voxel.Delta {
	if max <= 0 {
		max = len(steps)
	}
	var out [][]voxel.Delta
	for len(steps) > 0 {
		n := max
		if n > len(steps) {
			n = len(steps)
		}
		out = append(out, steps[:n])
		steps = steps[n:]
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
