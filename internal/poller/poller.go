// Package poller implements the client-side background poll loop
// described by SPEC_FULL.md §4.7: while the UI composes an outgoing
// text to a fixed correspondent, a goroutine wakes periodically, calls
// recv_txt, and hands the caller a fresh snapshot whenever the text
// count changes. Shutdown is cooperative: a flag plus a condition
// variable, exactly as the original's should_exit+condvar pattern,
// rather than a context.Context. The lock behind the condition variable
// is the poller's own; callers do not share it.
package poller

import (
	"sync"
	"time"

	"chat262/internal/client"
	"chat262/internal/wire"
)

// Receiver is the subset of *client.Client the poller needs. Tests
// supply a fake satisfying this instead of a live connection.
type Receiver interface {
	RecvTxt(sender []byte) (wire.StatusCode, []client.Text, client.Outcome)
}

// Poller wakes every interval and polls correspondent's chat through
// recv. onUpdate is called with the new text snapshot, holding the
// poller's own lock, whenever the server's text count differs from the
// last observed count; callers must not block long inside it.
type Poller struct {
	recv          Receiver
	correspondent []byte
	interval      time.Duration
	onUpdate      func([]client.Text)

	mu         sync.Mutex
	cond       *sync.Cond
	shouldExit bool
	lastCount  int
}

// New builds a Poller. It does not start polling; call Run, typically
// in its own goroutine.
func New(recv Receiver, correspondent []byte, interval time.Duration, onUpdate func([]client.Text)) *Poller {
	p := &Poller{
		recv:          recv,
		correspondent: correspondent,
		interval:      interval,
		onUpdate:      onUpdate,
		lastCount:     -1,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Run blocks until Stop is called, waking every interval to poll.
func (p *Poller) Run() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		deadline := time.Now().Add(p.interval)
		for !p.shouldExit && time.Now().Before(deadline) {
			p.waitUntil(deadline)
		}
		if p.shouldExit {
			return
		}
		p.pollLocked()
	}
}

// waitUntil blocks on the condition variable until either deadline
// elapses or Stop broadcasts. Must be called with p.mu held; releases
// and reacquires it like any sync.Cond.Wait.
func (p *Poller) waitUntil(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()
	p.cond.Wait()
}

// pollLocked issues one recv_txt call. It drops the lock for the
// blocking network call and reacquires it before touching shared
// state, matching the discipline the foreground relies on to issue
// its own requests between polls.
func (p *Poller) pollLocked() {
	p.mu.Unlock()
	status, texts, outcome := p.recv.RecvTxt(p.correspondent)
	p.mu.Lock()

	if p.shouldExit || outcome != client.Ok || status != wire.StatusOK {
		return
	}
	if len(texts) == p.lastCount {
		return
	}
	p.lastCount = len(texts)
	if p.onUpdate != nil {
		p.onUpdate(texts)
	}
}

// Stop sets the exit flag and wakes the poller so Run returns at the
// next opportunity. Safe to call from any goroutine, any number of
// times.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.shouldExit = true
	p.cond.Broadcast()
	p.mu.Unlock()
}
