package txn

import "fmt"

// PreconditionError is a local validation failure raised before any remote
// call is made.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition violated: " + e.Reason
}

// MutationError reports a submitted call that did not confirm successfully.
type MutationError struct {
	Description string
	Code        string
	Message     string
	Err         error
}

func (e *MutationError) Error() string {
	s := "mutation failed: " + e.Description
	if e.Code != "" {
		s += " [" + e.Code + "]"
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *MutationError) Unwrap() error { return e.Err }

// RetryExhaustedError wraps the last failure after a policy-bounded number of
// retries.
type RetryExhaustedError struct {
	Attempts int // retries performed after the first attempt
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// FatalError is a failed fail-fast submission surfaced at the reap point; it
// stops the whole agent.
type FatalError struct {
	SubmissionID string
	Description  string
	Err          error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal submission %s (%s): %v", e.SubmissionID, e.Description, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
