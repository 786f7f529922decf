package bot

import "errors"

// ErrNoViableMode: no registered mode reported itself available this cycle.
var ErrNoViableMode = errors.New("no viable mode")

// ErrNoViableAction: the selected mode's fresh assessment yields zero
// eligible actions. Distinct from ErrNoViableMode — it signals that
// availability and action eligibility diverged between two remote reads.
var ErrNoViableAction = errors.New("no viable action")

// TransientReadError is a failed remote read query. It is surfaced, not
// auto-retried; the scheduler recovers by retrying at the next cycle.
type TransientReadError struct {
	Op  string
	Err error
}

func (e *TransientReadError) Error() string {
	return "transient read failure: " + e.Op + ": " + e.Err.Error()
}

func (e *TransientReadError) Unwrap() error { return e.Err }
