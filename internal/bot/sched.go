package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"voxelbot.ai/internal/bot/cyclelog"
	"voxelbot.ai/internal/bot/txn"
)

// Scheduler arbitrates modes, assesses state, selects and executes one
// action per cycle, forever.
type Scheduler struct {
	agent  *Agent
	log    *log.Logger
	cycles *cyclelog.Writer // optional

	modes []Mode // registration order is the tie-break order

	cycle      uint64
	failStreak int
}

func NewScheduler(a *Agent, logger *log.Logger, cycles *cyclelog.Writer) *Scheduler {
	return &Scheduler{agent: a, log: logger, cycles: cycles}
}

// Register appends a mode; registration order breaks priority ties.
func (s *Scheduler) Register(m Mode) error {
	for _, r := range s.modes {
		if r.Name() == m.Name() {
			return fmt.Errorf("mode %q already registered", m.Name())
		}
	}
	s.modes = append(s.modes, m)
	return nil
}

// RunForever drives cycles until the context ends or a fatal submission
// failure surfaces at the reap point. Per-cycle errors are logged and the
// loop proceeds immediately to the next cycle; there is no inter-cycle
// backoff — rate limiting lives in fixed delays inside individual actions.
func (s *Scheduler) RunForever(ctx context.Context) error {
	if len(s.modes) == 0 {
		return errors.New("no modes registered")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.RunCycle(ctx); err != nil {
			var fatal *txn.FatalError
			if errors.As(err, &fatal) {
				s.log.Printf("FATAL: %v", fatal)
				return err
			}
			s.failStreak++
			s.log.Printf("cycle %d failed (streak %d): %v", s.cycle, s.failStreak, err)
			continue
		}
		s.failStreak = 0
	}
}

// RunCycle executes one full IDLE -> ACTIVATE -> ASSESS -> SELECT -> EXECUTE
// pass.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	s.cycle++
	started := time.Now()
	rec := cyclelog.Record{Time: started.UTC(), Cycle: s.cycle}
	defer func() {
		rec.FailStreak = s.failStreak
		rec.DurationMs = time.Since(started).Milliseconds()
		if s.cycles != nil {
			if err := s.cycles.Write(rec); err != nil {
				s.log.Printf("cycle log: %v", err)
			}
		}
	}()

	fail := func(err error) error {
		rec.Err = err.Error()
		var fatal *txn.FatalError
		rec.Fatal = errors.As(err, &fatal)
		return err
	}

	// Join point for outstanding non-blocking submissions. Runs before
	// anything in this cycle mutates, reactivation included.
	if err := s.agent.Exec.Reap(); err != nil {
		return fail(err)
	}

	// The entity may have been deactivated by exogenous events between
	// cycles.
	if err := s.agent.EnsureActive(ctx); err != nil {
		return fail(err)
	}

	base, err := s.agent.Observe(ctx)
	if err != nil {
		return fail(err)
	}

	mode, err := s.arbitrate(base)
	if err != nil {
		return fail(err)
	}
	rec.Mode = mode.Name()

	state, err := mode.AssessState(ctx, s.agent, base)
	if err != nil {
		return fail(fmt.Errorf("%s: assess: %w", mode.Name(), err))
	}

	action, err := mode.SelectAction(state)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", mode.Name(), err))
	}
	rec.Action = action.Name()
	if sc, ok := mode.(interface{ Scores(*State) map[string]float64 }); ok {
		rec.Scores = sc.Scores(state)
	}
	s.log.Printf("cycle %d: mode=%s action=%s", s.cycle, mode.Name(), action.Name())

	if err := action.Execute(ctx, s.agent, state); err != nil {
		return fail(fmt.Errorf("%s/%s: %w", mode.Name(), action.Name(), err))
	}
	return nil
}

// arbitrate picks the highest-priority available mode. A single registered
// mode is selected unconditionally. Equal priorities resolve to the
// earliest-registered mode.
func (s *Scheduler) arbitrate(base *State) (Mode, error) {
	if len(s.modes) == 1 {
		return s.modes[0], nil
	}
	var best Mode
	for _, m := range s.modes {
		if !m.IsAvailable(base) {
			continue
		}
		// Strict > keeps the earliest-registered mode on ties.
		if best == nil || m.Priority() > best.Priority() {
			best = m
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %d modes registered", ErrNoViableMode, len(s.modes))
	}
	return best, nil
}
