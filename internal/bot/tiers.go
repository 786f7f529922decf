package bot

// Score tiers. Actions score within a tier and may add small in-tier offsets
// (|offset| < half the gap to the next tier); cross-action comparisons across
// tiers are therefore always intentional, never accidental near-collisions
// of ad hoc constants.
const (
	TierIdle     float64 = 10
	TierRoutine  float64 = 100
	TierElevated float64 = 1_000
	TierUrgent   float64 = 10_000
	TierCritical float64 = 100_000
)

// Tiers in ascending order, for the collision check.
var tiers = []float64{TierIdle, TierRoutine, TierElevated, TierUrgent, TierCritical}
