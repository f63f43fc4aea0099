package report

import (
	"context"
	"sync"
)

// Ticket identifies one report request within a Tracker.
type Ticket uint64

// Tracker holds the report state of one view and guarantees that only the
// latest request can change it. Beginning a request cancels the context of
// the one it supersedes; a response carrying an old ticket is dropped.
type Tracker struct {
	mu     sync.Mutex
	seq    Ticket
	cancel context.CancelFunc
	state  State
}

// NewTracker returns a tracker in the idle phase.
func NewTracker() *Tracker {
	return &Tracker{state: State{Phase: PhaseIdle}}
}

// Begin starts a request for date. The previous report is discarded.
func (t *Tracker) Begin(parent context.Context, date string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.seq++
	t.cancel = cancel
	t.state = State{Phase: PhaseLoading, Date: date}
	return ctx, t.seq
}

// Resolve applies the outcome of the request identified by tk. It reports
// false, leaving the state untouched, when tk has been superseded.
func (t *Tracker) Resolve(tk Ticket, r *Report, err error) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tk != t.seq {
		return t.state, false
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	date := t.state.Date
	switch {
	case err != nil:
		t.state = State{Phase: PhaseError, Date: date, Message: UserMessage(err)}
	case r == nil:
		t.state = State{Phase: PhaseError, Date: date, Message: MsgNotFound}
	default:
		t.state = State{Phase: PhaseSuccess, Date: date, Report: r}
	}
	return t.state, true
}

// Run fetches date through f and resolves the result.
func (t *Tracker) Run(ctx context.Context, f Fetcher, date string) (State, bool) {
	reqCtx, tk := t.Begin(ctx, date)
	r, err := f.Fetch(reqCtx, date)
	return t.Resolve(tk, r, err)
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close cancels any in-flight request.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.seq++
}
