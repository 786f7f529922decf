package txn

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

// fakeLedger scripts per-submission outcomes keyed by call description.
type fakeLedger struct {
	mu        sync.Mutex
	submitErr map[string]error
	receipts  map[string]Receipt
	submitted []string
	resyncs   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{submitErr: map[string]error{}, receipts: map[string]Receipt{}}
}

func (l *fakeLedger) Submit(_ context.Context, id string, call Call, _ GasProfile) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitted = append(l.submitted, call.Description)
	if err := l.submitErr[call.Description]; err != nil {
		return err
	}
	r := l.receipts[call.Description]
	r.SubmissionID = id
	l.receipts[id] = r
	return nil
}

func (l *fakeLedger) Await(_ context.Context, id string) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.receipts[id], nil
}

func (l *fakeLedger) Resync(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resyncs++
	return nil
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestExecute_blockingConfirms(t *testing.T) {
	l := newFakeLedger()
	l.receipts["mine block"] = Receipt{Status: StatusConfirmed, GasUsed: 123}
	e := New(l, discard())

	rcpt, err := e.Execute(context.Background(), Call{
		System: "work", Fn: "mine(int32[3])", Args: []any{[3]int{1, 2, 3}}, Description: "mine block",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rcpt.Status != StatusConfirmed || rcpt.GasUsed != 123 {
		t.Fatalf("receipt = %+v", rcpt)
	}
}

func TestExecute_blockingRevertIsMutationError(t *testing.T) {
	l := newFakeLedger()
	l.receipts["eat"] = Receipt{Status: StatusReverted, Code: "E_NO_RESOURCE", Message: "no food"}
	e := New(l, discard())

	_, err := e.Execute(context.Background(), Call{System: "work", Fn: "eat(uint16)", Description: "eat"})
	var me *MutationError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MutationError", err)
	}
	if me.Code != "E_NO_RESOURCE" {
		t.Fatalf("code = %q", me.Code)
	}
}

func TestExecute_validatesBeforeRemoteCall(t *testing.T) {
	l := newFakeLedger()
	e := New(l, discard())

	_, err := e.Execute(context.Background(), Call{System: "", Fn: "x()", Description: "d"})
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PreconditionError", err)
	}
	if len(l.submitted) != 0 {
		t.Fatalf("remote submit happened despite local validation failure")
	}
}

func TestReap_silentFailureAbsorbed(t *testing.T) {
	l := newFakeLedger()
	l.submitErr["move"] = errors.New("mempool full")
	e := New(l, discard())

	p, err := e.ExecuteAsync(context.Background(), Call{System: "move", Fn: "move(int32[3][])", Description: "move"}, WatchSilent)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := p.Outcome(context.Background()); err == nil {
		t.Fatalf("outcome should carry the failure")
	}
	if err := e.Reap(); err != nil {
		t.Fatalf("silent failure must not be fatal, got %v", err)
	}
	if e.Outstanding() != 0 {
		t.Fatalf("outstanding = %d after reap", e.Outstanding())
	}
}

func TestReap_failFastFailureIsFatal(t *testing.T) {
	l := newFakeLedger()
	l.receipts["craft"] = Receipt{Status: StatusReverted, Code: "E_NO_RESOURCE"}
	e := New(l, discard())

	p, err := e.ExecuteAsync(context.Background(), Call{System: "work", Fn: "craft(uint16)", Description: "craft"}, WatchFailFast)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, _ = p.Outcome(context.Background())

	err = e.Reap()
	var fe *FatalError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FatalError", err)
	}
	if fe.SubmissionID != p.ID {
		t.Fatalf("fatal id = %s, want %s", fe.SubmissionID, p.ID)
	}
}

func TestExecuteAsync_boundedOutstanding(t *testing.T) {
	l := newFakeLedger()
	e := New(l, discard(), WithMaxOutstanding(1))

	block := make(chan struct{})
	slow := &slowLedger{fakeLedger: l, gate: block}
	e.ledger = slow

	if _, err := e.ExecuteAsync(context.Background(), Call{System: "s", Fn: "f()", Description: "a"}, WatchSilent); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := e.ExecuteAsync(context.Background(), Call{System: "s", Fn: "f()", Description: "b"}, WatchSilent)
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PreconditionError (bound hit)", err)
	}
	close(block)
	if err := e.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

type slowLedger struct {
	*fakeLedger
	gate chan struct{}
}

func (l *slowLedger) Await(ctx context.Context, id string) (Receipt, error) {
	<-l.gate
	return Receipt{SubmissionID: id, Status: StatusConfirmed}, nil
}

func TestResync_delegates(t *testing.T) {
	l := newFakeLedger()
	e := New(l, discard())
	if err := e.Resync(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if l.resyncs != 1 {
		t.Fatalf("resyncs = %d, want 1", l.resyncs)
	}
}

func TestRetryPolicy_exactDelays(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, JitterFraction: 0}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := p.Backoff(i); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i, got, w)
		}
	}
	// Cap applies beyond the configured window.
	if got := p.Backoff(5); got != 10*time.Second {
		t.Fatalf("backoff(5) = %v, want cap 10s", got)
	}
}

func TestRetry_exhaustsAndWraps(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	cause := errors.New("boom")
	err := Retry(context.Background(), p, func(context.Context) error {
		calls++
		return cause
	})
	if calls != 4 {
		t.Fatalf("total attempts = %d, want maxAttempts+1 = 4", calls)
	}
	var re *RetryExhaustedError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RetryExhaustedError", err)
	}
	if re.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", re.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("exhausted error must wrap the last cause")
	}
}

func TestRetry_succeedsMidway(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Microsecond, Multiplier: 2}
	calls := 0
	err := Retry(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetry_cancelStopsLoop(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 100, BaseDelay: time.Hour, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, p, func(context.Context) error { return errors.New("always") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
