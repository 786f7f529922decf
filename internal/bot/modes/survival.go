// Package modes holds the concrete behavior modes the agent runs with:
// survival keeps the entity alive, harvest keeps it productive.
package modes

import (
	"context"
	"fmt"
	"time"

	"voxelbot.ai/internal/bot"
	"voxelbot.ai/internal/bot/txn"
)

// Survival takes over when energy drops below its threshold. Eating beats
// idling whenever food is on hand.
type Survival struct {
	bot.ActionList
	threshold int64
}

func NewSurvival(threshold int64, foodItem uint16) *Survival {
	s := &Survival{threshold: threshold}
	s.ActionList = bot.NewActionList(
		&eatAction{food: foodItem},
		&idleRecoverAction{wait: 2 * time.Second},
	)
	return s
}

func (s *Survival) Name() string { return "survival" }

func (s *Survival) Priority() int { return 20 }

func (s *Survival) IsAvailable(st *bot.State) bool { return st.Energy < s.threshold }

// AssessState needs nothing beyond the base observation: energy and
// inventory are already there.
func (s *Survival) AssessState(ctx context.Context, a *bot.Agent, base *bot.State) (*bot.State, error) {
	return base, nil
}

type eatAction struct {
	food uint16
}

func (e *eatAction) Name() string { return "eat" }

func (e *eatAction) CanExecute(s *bot.State) bool { return s.Inventory.SlotOf(e.food) >= 0 }

func (e *eatAction) Score(s *bot.State) float64 { return bot.TierUrgent }

func (e *eatAction) Execute(ctx context.Context, a *bot.Agent, s *bot.State) error {
	call := txn.Call{
		System:      "inventory",
		Fn:          "consume(uint16,int64)",
		Args:        []any{e.food, int64(1)},
		Description: fmt.Sprintf("eat item %d", e.food),
	}
	_, err := a.Exec.Execute(ctx, call)
	return err
}

// idleRecoverAction waits out passive energy recharge. Always eligible, so
// survival never reports no viable action.
type idleRecoverAction struct {
	wait time.Duration
}

func (i *idleRecoverAction) Name() string { return "idle-recover" }

func (i *idleRecoverAction) CanExecute(s *bot.State) bool { return true }

func (i *idleRecoverAction) Score(s *bot.State) float64 { return bot.TierIdle }

func (i *idleRecoverAction) Execute(ctx context.Context, a *bot.Agent, s *bot.State) error {
	a.Log.Printf("energy %d, no food: idling %s for recharge", s.Energy, i.wait)
	t := time.NewTimer(i.wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
