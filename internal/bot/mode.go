package bot

import (
	"context"
	"fmt"
)

// Action is one atomic unit of work owned by a mode.
type Action interface {
	// Name is unique within the owning mode.
	Name() string
	// CanExecute is a pure eligibility predicate over the cycle's state.
	CanExecute(s *State) bool
	// Score ranks eligible actions; defined only when CanExecute is true.
	Score(s *State) float64
	// Execute performs the work; it may call the planner and executor any
	// number of times, including in parallel fan-out.
	Execute(ctx context.Context, a *Agent, s *State) error
}

// Mode is a named, statically-prioritized bundle of actions.
type Mode interface {
	Name() string
	// Priority is static; higher wins. Equal priorities resolve to the
	// first-registered mode.
	Priority() int
	// IsAvailable is a pure predicate over the cycle's base state, safe to
	// call every cycle.
	IsAvailable(s *State) bool
	// AssessState turns the base observation into the cycle's complete
	// BotState, performing further read-only queries as needed. Transient
	// read failures must surface as errors, never silent defaults.
	AssessState(ctx context.Context, a *Agent, base *State) (*State, error)
	// SelectAction picks the eligible action with the highest score; ties
	// resolve to definition order. With no eligible action it returns
	// ErrNoViableAction.
	SelectAction(s *State) (Action, error)
}

// ActionList implements the default SelectAction rule. Concrete modes embed
// it with their actions in definition order.
type ActionList struct {
	actions []Action
}

func NewActionList(actions ...Action) ActionList {
	seen := map[string]bool{}
	for _, a := range actions {
		if seen[a.Name()] {
			panic(fmt.Sprintf("duplicate action name %q", a.Name()))
		}
		seen[a.Name()] = true
	}
	return ActionList{actions: actions}
}

func (l ActionList) Actions() []Action { return l.actions }

func (l ActionList) SelectAction(s *State) (Action, error) {
	var best Action
	bestScore := 0.0
	for _, a := range l.actions {
		if !a.CanExecute(s) {
			continue
		}
		score := a.Score(s)
		// Strict > keeps definition order on ties.
		if best == nil || score > bestScore {
			best, bestScore = a, score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: all %d actions ineligible", ErrNoViableAction, len(l.actions))
	}
	return best, nil
}

// Scores reports eligible actions and their scores, for the cycle log.
func (l ActionList) Scores(s *State) map[string]float64 {
	out := map[string]float64{}
	for _, a := range l.actions {
		if a.CanExecute(s) {
			out[a.Name()] = a.Score(s)
		}
	}
	return out
}
