package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"voxelbot.ai/internal/bot/blockcache"
	"voxelbot.ai/internal/bot/nav"
	"voxelbot.ai/internal/bot/txn"
	"voxelbot.ai/internal/voxel"
)

// Observer is the read-only world query surface.
type Observer interface {
	Position(ctx context.Context) (voxel.Coord, error)
	Energy(ctx context.Context) (int64, error)
	// Inventory returns the entity's slots and the paired chest's slots.
	Inventory(ctx context.Context) (Inventory, Inventory, error)
	Active(ctx context.Context) (bool, error)
	Block(ctx context.Context, c voxel.Coord) (voxel.Block, error)
	Blocks(ctx context.Context, min, max voxel.Coord) ([]voxel.Block, error)
}

// Agent bundles the capabilities actions run against. All fields are wired
// once at startup and read-only afterwards.
type Agent struct {
	Log     *log.Logger
	Obs     Observer
	Exec    *txn.Executor
	Blocks  *blockcache.Cache
	Planner *nav.Planner

	// Locate derives the location tag for a position; optional.
	Locate func(voxel.Coord) string

	// Retry bounds the reactivation retry loop. The zero value means a
	// single attempt.
	Retry txn.RetryPolicy

	// Activate is the mutating call that (re)activates the controlled
	// entity when a cycle finds it inactive.
	Activate txn.Call
}

// Observe performs the cycle's base observation: one read pass producing the
// read-derived fields of the BotState.
func (a *Agent) Observe(ctx context.Context) (*State, error) {
	pos, err := a.Obs.Position(ctx)
	if err != nil {
		return nil, &TransientReadError{Op: "read position", Err: err}
	}
	energy, err := a.Obs.Energy(ctx)
	if err != nil {
		return nil, &TransientReadError{Op: "read energy", Err: err}
	}
	inv, chest, err := a.Obs.Inventory(ctx)
	if err != nil {
		return nil, &TransientReadError{Op: "read inventory", Err: err}
	}
	s := &State{Pos: pos, Energy: energy, Inventory: inv, Chest: chest}
	if a.Locate != nil {
		s.Location = a.Locate(pos)
	}
	return s, nil
}

// EnsureActive checks the controlled entity every cycle: exogenous events may
// have deactivated it between cycles. Reactivation desynchronizes the
// send-order counter, so it is always followed by a resync.
func (a *Agent) EnsureActive(ctx context.Context) error {
	active, err := a.Obs.Active(ctx)
	if err != nil {
		return &TransientReadError{Op: "read entity status", Err: err}
	}
	if active {
		return nil
	}
	a.Log.Printf("entity inactive, reactivating")
	// Activation is idempotent, so the whole activate+resync sequence
	// retries under the configured policy.
	err = txn.Retry(ctx, a.Retry, func(ctx context.Context) error {
		if _, err := a.Exec.Execute(ctx, a.Activate); err != nil {
			return err
		}
		return a.Exec.Resync(ctx)
	})
	if err != nil {
		return fmt.Errorf("reactivate: %w", err)
	}
	return nil
}

// MoveAlong batches a planned route into as few movement calls as the
// protocol allows and submits them silently: a failed movement mutation is
// corrected by the next cycle's replanning, not by aborting the agent. The
// fixed delay between consecutive calls is the system's only rate limiting.
func (a *Agent) MoveAlong(ctx context.Context, steps []voxel.Delta, batch int, delay time.Duration) error {
	for i, b := range nav.BatchSteps(steps, batch) {
		if i > 0 && delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		deltas := make([][3]int, len(b))
		for j, d := range b {
			deltas[j] = [3]int{d.X, d.Y, d.Z}
		}
		call := txn.Call{
			System:      "move",
			Fn:          "move(int32[3][])",
			Args:        []any{deltas},
			Description: fmt.Sprintf("move %d steps (batch %d)", len(b), i+1),
		}
		if _, err := a.Exec.ExecuteAsync(ctx, call, txn.WatchSilent); err != nil {
			return err
		}
	}
	return nil
}

// FanOut runs independent operations in unordered parallel with an implicit
// join: every fn finishes, success or failure, before FanOut returns. Safe
// only when each operation targets a disjoint coordinate or inventory slot.
func FanOut(ctx context.Context, fns ...func(context.Context) error) error {
	errs := make([]error, len(fns))
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func(context.Context) error) {
			defer wg.Done()
			errs[i] = fn(ctx)
		}(i, fn)
	}
	wg.Wait()
	return errors.Join(errs...)
}
