package modes

import (
	"context"
	"fmt"
	"math"
	"time"

	"voxelbot.ai/internal/bot"
	"voxelbot.ai/internal/bot/nav"
	"voxelbot.ai/internal/bot/txn"
	"voxelbot.ai/internal/voxel"
)

// fullStack is the slot size above which stash considers a slot worth a trip.
const fullStack = 64

// scanHeight bounds the vertical extent of the target scan around the
// agent's own level.
const scanHeight = 4

// HarvestConfig tunes the harvest mode. Chest deposits are disabled until a
// chest coordinate is set.
type HarvestConfig struct {
	Targets      []uint16
	Chest        voxel.Coord
	HasChest     bool
	SearchRadius int
	BatchSize    int
	BatchDelay   time.Duration
}

// Harvest is the default productive mode: find the nearest target block,
// walk there, mine it, and stash full slots into the chest.
type Harvest struct {
	bot.ActionList
	cfg     HarvestConfig
	targets map[uint16]bool
}

func NewHarvest(cfg HarvestConfig) *Harvest {
	h := &Harvest{cfg: cfg, targets: map[uint16]bool{}}
	for _, t := range cfg.Targets {
		h.targets[t] = true
	}
	h.ActionList = bot.NewActionList(
		&mineAction{h: h},
		&stashAction{h: h},
	)
	return h
}

func (h *Harvest) Name() string { return "harvest" }

func (h *Harvest) Priority() int { return 10 }

// Harvest is the fallback mode; it never declines a cycle.
func (h *Harvest) IsAvailable(st *bot.State) bool { return true }

// assessment is the harvest-specific extension attached to the cycle state.
type assessment struct {
	Target voxel.Coord
	Found  bool
}

// AssessState scans the configured radius around the agent for the nearest
// target block. The scan runs over a freshly preloaded cache so one bulk
// read serves the whole pass.
func (h *Harvest) AssessState(ctx context.Context, a *bot.Agent, base *bot.State) (*bot.State, error) {
	a.Blocks.Clear()
	r := h.cfg.SearchRadius
	min := voxel.Coord{X: base.Pos.X - r, Y: base.Pos.Y - scanHeight, Z: base.Pos.Z - r}
	max := voxel.Coord{X: base.Pos.X + r, Y: base.Pos.Y + scanHeight, Z: base.Pos.Z + r}
	if err := a.Blocks.Preload(ctx, min, max); err != nil {
		return nil, fmt.Errorf("harvest scan preload: %w", err)
	}

	var (
		found  bool
		target voxel.Coord
		bestD  = math.Inf(1)
	)
	for y := min.Y; y <= max.Y; y++ {
		for z := min.Z; z <= max.Z; z++ {
			for x := min.X; x <= max.X; x++ {
				pos := voxel.Coord{X: x, Y: y, Z: z}
				b, err := a.Blocks.Block(ctx, pos)
				if err != nil {
					return nil, fmt.Errorf("harvest scan: %w", err)
				}
				if !h.targets[b.Type] {
					continue
				}
				if d := voxel.Euclidean(base.Pos, pos); d < bestD {
					bestD, target, found = d, pos, true
				}
			}
		}
	}
	return base.WithExt(&assessment{Target: target, Found: found}), nil
}

func (h *Harvest) assessmentOf(s *bot.State) *assessment {
	if a, ok := s.Ext.(*assessment); ok {
		return a
	}
	return &assessment{}
}

// travelTo plans a route to the first reachable of the candidate stand
// cells and walks it, joining the movement submissions before returning.
func travelTo(ctx context.Context, a *bot.Agent, s *bot.State, stands []voxel.Coord, batch int, delay time.Duration) error {
	var steps []voxel.Delta
	var planned bool
	var lastErr error
	for _, stand := range stands {
		var err error
		steps, err = a.Planner.Plan(ctx, s.Pos, nav.GoalAt(stand))
		if err == nil {
			planned = true
			break
		}
		lastErr = err
	}
	if !planned {
		return fmt.Errorf("no reachable stand cell: %w", lastErr)
	}
	if len(steps) == 0 {
		return nil
	}
	if err := a.MoveAlong(ctx, steps, batch, delay); err != nil {
		return err
	}
	// Join the silent movement submissions so the mutating call that follows
	// observes the final position.
	return a.Exec.Wait(ctx)
}

// standCells lists where an agent can stand to touch the block: on top
// first, then the four horizontal neighbors.
func standCells(target voxel.Coord) []voxel.Coord {
	return []voxel.Coord{
		{X: target.X, Y: target.Y + 1, Z: target.Z},
		{X: target.X + 1, Y: target.Y, Z: target.Z},
		{X: target.X - 1, Y: target.Y, Z: target.Z},
		{X: target.X, Y: target.Y, Z: target.Z + 1},
		{X: target.X, Y: target.Y, Z: target.Z - 1},
	}
}

type mineAction struct {
	h *Harvest
}

func (m *mineAction) Name() string { return "mine" }

func (m *mineAction) CanExecute(s *bot.State) bool { return m.h.assessmentOf(s).Found }

func (m *mineAction) Score(s *bot.State) float64 { return bot.TierRoutine }

func (m *mineAction) Execute(ctx context.Context, a *bot.Agent, s *bot.State) error {
	target := m.h.assessmentOf(s).Target
	if err := travelTo(ctx, a, s, standCells(target), m.h.cfg.BatchSize, m.h.cfg.BatchDelay); err != nil {
		return fmt.Errorf("mine: %w", err)
	}
	call := txn.Call{
		System:      "mine",
		Fn:          "mine(int32[3])",
		Args:        []any{target.ToArray()},
		Description: fmt.Sprintf("mine block at %v", target),
	}
	if _, err := a.Exec.Execute(ctx, call); err != nil {
		return err
	}
	// The mined cell changed; drop its chunk so the next scan re-reads it.
	a.Blocks.CommitAt(target)
	return nil
}

type stashAction struct {
	h *Harvest
}

func (t *stashAction) Name() string { return "stash" }

func (t *stashAction) fullSlots(s *bot.State) []bot.InvSlot {
	var out []bot.InvSlot
	for _, slot := range s.Inventory {
		if slot.Amount >= fullStack {
			out = append(out, slot)
		}
	}
	return out
}

func (t *stashAction) CanExecute(s *bot.State) bool {
	return t.h.cfg.HasChest && len(t.fullSlots(s)) > 0
}

// Score rises with the number of full slots, so a nearly full inventory
// outranks another mining trip.
func (t *stashAction) Score(s *bot.State) float64 {
	return bot.TierRoutine + float64(len(t.fullSlots(s)))
}

func (t *stashAction) Execute(ctx context.Context, a *bot.Agent, s *bot.State) error {
	chest := t.h.cfg.Chest
	if err := travelTo(ctx, a, s, standCells(chest), t.h.cfg.BatchSize, t.h.cfg.BatchDelay); err != nil {
		return fmt.Errorf("stash: %w", err)
	}

	// Each deposit touches a distinct inventory slot, so the calls are safe
	// to fan out.
	slots := t.fullSlots(s)
	fns := make([]func(context.Context) error, len(slots))
	for i, slot := range slots {
		call := txn.Call{
			System:      "inventory",
			Fn:          "deposit(int32[3],uint16,int64)",
			Args:        []any{chest.ToArray(), slot.Item, slot.Amount},
			Description: fmt.Sprintf("deposit %d x item %d", slot.Amount, slot.Item),
		}
		fns[i] = func(ctx context.Context) error {
			_, err := a.Exec.Execute(ctx, call)
			return err
		}
	}
	if err := bot.FanOut(ctx, fns...); err != nil {
		return fmt.Errorf("stash: %w", err)
	}
	a.Blocks.CommitAt(chest)
	return nil
}
