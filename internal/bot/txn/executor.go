// Package txn turns abstract mutating calls into submitted, monitored and
// retried operations against the remote ledger.
package txn

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Call is an abstract mutating request addressed to a named remote
// subsystem. Byte-level encoding is the ledger client's concern.
type Call struct {
	System      string
	Fn          string // function signature, e.g. "move(int32[3][])"
	Args        []any
	Description string
}

type GasMode int

const (
	GasFixed GasMode = iota
	GasEstimate
)

// GasProfile selects fixed low-cost defaults or estimate-with-margin pricing.
type GasProfile struct {
	Mode   GasMode
	Limit  uint64
	Price  uint64
	Margin float64
}

func FixedGas(limit, price uint64) GasProfile {
	return GasProfile{Mode: GasFixed, Limit: limit, Price: price}
}

func EstimateGas(margin float64) GasProfile {
	return GasProfile{Mode: GasEstimate, Margin: margin}
}

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusReverted  Status = "REVERTED"
)

type Receipt struct {
	SubmissionID string
	Status       Status
	Code         string
	Message      string
	GasUsed      uint64
}

// Ledger is the remote submission surface the executor drives.
type Ledger interface {
	// Submit hands the call to the ledger; it returns once accepted for
	// ordering, not once confirmed.
	Submit(ctx context.Context, id string, call Call, gas GasProfile) error
	// Await blocks until the submission resolves.
	Await(ctx context.Context, id string) (Receipt, error)
	// Resync refreshes the local send-order counter from the remote ledger.
	Resync(ctx context.Context) error
}

// Recorder persists submission lifecycle events (the journal implements it).
type Recorder interface {
	Submitted(id, description, system string, at time.Time)
	Resolved(id, status, errMsg string, at time.Time)
}

// WatchPolicy governs how a non-blocking submission's failure is handled at
// the reap point.
type WatchPolicy int

const (
	// WatchSilent logs the failure and leaves correction to the next cycle's
	// replanning. Used for locomotion.
	WatchSilent WatchPolicy = iota
	// WatchFailFast stops the whole agent: a failed non-movement mutation
	// leaves state the agent can no longer reason about.
	WatchFailFast
)

// Pending is the handle for one in-flight non-blocking submission.
type Pending struct {
	ID          string
	Description string
	SubmittedAt time.Time

	policy WatchPolicy
	done   chan struct{}

	mu      sync.Mutex
	receipt Receipt
	err     error
}

// Outcome blocks until resolution.
func (p *Pending) Outcome(ctx context.Context) (Receipt, error) {
	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-p.done:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.receipt, p.err
}

func (p *Pending) resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Pending) resolve(r Receipt, err error) {
	p.mu.Lock()
	p.receipt, p.err = r, err
	p.mu.Unlock()
	close(p.done)
}

type Executor struct {
	ledger Ledger
	log    *log.Logger
	rec    Recorder // may be nil
	gas    GasProfile

	mu             sync.Mutex
	outstanding    []*Pending
	maxOutstanding int
}

type Option func(*Executor)

func WithRecorder(r Recorder) Option { return func(e *Executor) { e.rec = r } }

func WithDefaultGas(g GasProfile) Option { return func(e *Executor) { e.gas = g } }

func WithMaxOutstanding(n int) Option { return func(e *Executor) { e.maxOutstanding = n } }

func New(ledger Ledger, logger *log.Logger, opts ...Option) *Executor {
	e := &Executor{
		ledger:         ledger,
		log:            logger,
		gas:            FixedGas(500_000, 1),
		maxOutstanding: 32,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func validate(call Call) error {
	if strings.TrimSpace(call.System) == "" {
		return &PreconditionError{Reason: "empty system id"}
	}
	if strings.TrimSpace(call.Fn) == "" {
		return &PreconditionError{Reason: "empty function signature"}
	}
	if strings.TrimSpace(call.Description) == "" {
		return &PreconditionError{Reason: "empty description"}
	}
	return nil
}

// Execute submits the call and blocks for one confirmation. Any non-success
// status or submission error returns a MutationError: it aborts the current
// action, never the process.
func (e *Executor) Execute(ctx context.Context, call Call) (Receipt, error) {
	if err := validate(call); err != nil {
		return Receipt{}, err
	}
	id := uuid.NewString()
	e.submitted(id, call)
	if err := e.ledger.Submit(ctx, id, call, e.gas); err != nil {
		e.resolvedRec(id, "SUBMIT_FAILED", err.Error())
		return Receipt{}, &MutationError{Description: call.Description, Err: err}
	}
	rcpt, err := e.ledger.Await(ctx, id)
	if err != nil {
		e.resolvedRec(id, "AWAIT_FAILED", err.Error())
		return Receipt{}, &MutationError{Description: call.Description, Err: err}
	}
	e.resolvedRec(id, string(rcpt.Status), rcpt.Message)
	if rcpt.Status != StatusConfirmed {
		return rcpt, &MutationError{Description: call.Description, Code: rcpt.Code, Message: rcpt.Message}
	}
	return rcpt, nil
}

// ExecuteAsync submits the call in the background and returns its handle
// immediately. The outcome is resolved by a watcher and surfaced at the next
// Reap according to the policy. The outstanding set is bounded; callers
// hitting the bound must Reap (or wait) first.
func (e *Executor) ExecuteAsync(ctx context.Context, call Call, policy WatchPolicy) (*Pending, error) {
	if err := validate(call); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if len(e.outstanding) >= e.maxOutstanding {
		e.mu.Unlock()
		return nil, &PreconditionError{Reason: "too many outstanding submissions"}
	}
	p := &Pending{
		ID:          uuid.NewString(),
		Description: call.Description,
		SubmittedAt: time.Now(),
		policy:      policy,
		done:        make(chan struct{}),
	}
	e.outstanding = append(e.outstanding, p)
	e.mu.Unlock()

	e.submitted(p.ID, call)

	// The watcher outlives the launching cycle on purpose.
	go func() {
		wctx := context.WithoutCancel(ctx)
		if err := e.ledger.Submit(wctx, p.ID, call, e.gas); err != nil {
			e.resolvedRec(p.ID, "SUBMIT_FAILED", err.Error())
			p.resolve(Receipt{}, &MutationError{Description: call.Description, Err: err})
			return
		}
		rcpt, err := e.ledger.Await(wctx, p.ID)
		switch {
		case err != nil:
			e.resolvedRec(p.ID, "AWAIT_FAILED", err.Error())
			p.resolve(rcpt, &MutationError{Description: call.Description, Err: err})
		case rcpt.Status != StatusConfirmed:
			e.resolvedRec(p.ID, string(rcpt.Status), rcpt.Message)
			p.resolve(rcpt, &MutationError{Description: call.Description, Code: rcpt.Code, Message: rcpt.Message})
		default:
			e.resolvedRec(p.ID, string(rcpt.Status), rcpt.Message)
			p.resolve(rcpt, nil)
		}
	}()
	return p, nil
}

// Reap drains resolved submissions from the supervised set. Silent failures
// are logged and dropped; a fail-fast failure is returned as a FatalError.
// The scheduler calls this at a fixed point before each cycle's mutating
// phase, turning the old watcher race into an explicit join.
func (e *Executor) Reap() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fatal error
	keep := e.outstanding[:0]
	for _, p := range e.outstanding {
		if !p.resolved() {
			keep = append(keep, p)
			continue
		}
		p.mu.Lock()
		err := p.err
		p.mu.Unlock()
		if err == nil {
			continue
		}
		switch p.policy {
		case WatchSilent:
			e.log.Printf("submission %s failed (silent, will replan): %v", p.ID, err)
		case WatchFailFast:
			e.log.Printf("submission %s failed (fail-fast): %v", p.ID, err)
			if fatal == nil {
				fatal = &FatalError{SubmissionID: p.ID, Description: p.Description, Err: err}
			}
		}
	}
	e.outstanding = keep
	return fatal
}

// Wait blocks until every outstanding submission resolves, then reaps.
func (e *Executor) Wait(ctx context.Context) error {
	e.mu.Lock()
	pending := make([]*Pending, len(e.outstanding))
	copy(pending, e.outstanding)
	e.mu.Unlock()
	for _, p := range pending {
		if _, err := p.Outcome(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return e.Reap()
}

func (e *Executor) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.outstanding)
}

// Resync refreshes the send-order counter. Callers invoke it after any step
// that may have desynchronized local ordering from the ledger, in particular
// after entity (re)activation.
func (e *Executor) Resync(ctx context.Context) error {
	return e.ledger.Resync(ctx)
}

func (e *Executor) submitted(id string, call Call) {
	if e.rec != nil {
		e.rec.Submitted(id, call.Description, call.System, time.Now())
	}
}

func (e *Executor) resolvedRec(id, status, msg string) {
	if e.rec != nil {
		e.rec.Resolved(id, status, msg, time.Now())
	}
}
