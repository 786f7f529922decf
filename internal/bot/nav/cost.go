package nav

import "voxelbot.ai/internal/voxel"

// CostModel tunes edge weights and search bounds. The defaults keep single
// jumps cheap, falls cheaper than climbs and long unbroken jump chains
// increasingly expensive.
type CostModel struct {
	UpPenaltyPerUnit   float64
	DownPenaltyPerUnit float64
	JumpChainPenalty   float64

	// GoalDistance is the straight-line radius at which a popped node counts
	// as having reached the goal.
	GoalDistance float64

	// MaxExpansions bounds search effort; exceeding it reports ErrUnreachable.
	MaxExpansions int

	// PreloadMargin expands the start..goal bounding box bulk-preloaded into
	// the block cache before search. Negative disables preloading.
	PreloadMargin int
}

func DefaultCostModel() CostModel {
	return CostModel{
		UpPenaltyPerUnit:   5.0,
		DownPenaltyPerUnit: 0.5,
		JumpChainPenalty:   2.0,
		GoalDistance:       0.5,
		MaxExpansions:      16384,
		PreloadMargin:      4,
	}
}

// EdgeCost prices one step from -> to given the consecutive-jump count
// carried on the path so far, and returns the count after the step. Upward
// steps reset nothing; any non-upward step breaks the chain.
func (m CostModel) EdgeCost(from, to voxel.Coord, jumps int) (cost float64, newJumps int) {
	cost = voxel.Euclidean(from, to)
	dy := to.Y - from.Y
	switch {
	case dy > 0:
		cost += float64(dy) * m.UpPenaltyPerUnit
		newJumps = jumps + 1
		cost += float64(newJumps*newJumps) * m.JumpChainPenalty
	case dy < 0:
		cost += float64(-dy) * m.DownPenaltyPerUnit
		newJumps = 0
	default:
		newJumps = 0
	}
	return cost, newJumps
}
