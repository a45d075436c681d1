// Package eventloop provides the single logical thread every playback
// component runs on. Work arrives either as posted closures or as timers;
// both are executed one at a time, in order, on whichever goroutine drives
// the loop.
//
// Two clocks are supported. New returns a wall-clock loop driven by Run.
// NewVirtual returns a loop whose time only moves when Advance is called,
// which is what the package tests of the session, scheduler and transport use.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrVirtualOnly is returned when a virtual-clock operation is used on a
// wall-clock loop.
var ErrVirtualOnly = errors.New("eventloop: operation requires a virtual clock")

// Loop runs posted tasks and timers sequentially.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	timers  timerHeap
	seq     uint64
	wake    chan struct{}
	virtual bool
	vnow    time.Time
}

// New creates a loop that follows the wall clock.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// NewVirtual creates a loop whose clock starts at start and advances only
// through Advance.
func NewVirtual(start time.Time) *Loop {
	l := New()
	l.virtual = true
	l.vnow = start
	return l
}

// Now returns the loop's current time.
func (l *Loop) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nowLocked()
}

func (l *Loop) nowLocked() time.Time {
	if l.virtual {
		return l.vnow
	}
	return time.Now()
}

// Post queues fn to run on the loop. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Invoke runs fn on the loop and waits for it to return.
// It must not be called from the loop itself.
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc schedules fn to run on the loop once d has elapsed.
// Safe to call from any goroutine.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	t := &Timer{loop: l, when: l.nowLocked().Add(d), seq: l.seq, fn: fn, index: -1}
	heap.Push(&l.timers, t)
	l.mu.Unlock()
	l.signal()
	return t
}

// Every runs fn every interval until the returned ticker is stopped.
// The ticker re-arms itself after fn returns, so a slow fn delays the next
// tick rather than queueing several.
func (l *Loop) Every(interval time.Duration, fn func()) *Ticker {
	if interval <= 0 {
		interval = time.Millisecond
	}
	tk := &Ticker{loop: l, interval: interval, fn: fn}
	tk.arm()
	return tk
}

// Pending reports how many tasks and timers are waiting.
func (l *Loop) Pending() (tasks, timers int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue), len(l.timers)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// step executes one ready unit of work and reports whether it found one.
// Queued tasks run before due timers.
func (l *Loop) step() bool {
	l.mu.Lock()
	if len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
		return true
	}
	if len(l.timers) > 0 && !l.timers[0].when.After(l.nowLocked()) {
		t := heap.Pop(&l.timers).(*Timer)
		l.mu.Unlock()
		t.fn()
		return true
	}
	l.mu.Unlock()
	return false
}

// Run drives a wall-clock loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.virtual {
		return ErrVirtualOnly
	}
	for {
		for l.step() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		l.mu.Lock()
		hasTimer := len(l.timers) > 0
		var wait time.Duration
		if hasTimer {
			wait = time.Until(l.timers[0].when)
		}
		l.mu.Unlock()
		if hasTimer && wait <= 0 {
			continue
		}

		var sleep *time.Timer
		var timeout <-chan time.Time
		if hasTimer {
			sleep = time.NewTimer(wait)
			timeout = sleep.C
		}
		select {
		case <-ctx.Done():
			if sleep != nil {
				sleep.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-timeout:
		}
		if sleep != nil {
			sleep.Stop()
		}
	}
}

// RunUntilIdle executes queued tasks and timers that are due at the current
// virtual time. Tasks posted while draining are executed too.
func (l *Loop) RunUntilIdle() {
	for l.step() {
	}
}

// Advance moves the virtual clock forward by d, firing every timer that
// falls due on the way in deadline order.
func (l *Loop) Advance(d time.Duration) {
	l.mu.Lock()
	if !l.virtual {
		l.mu.Unlock()
		panic(ErrVirtualOnly)
	}
	target := l.vnow.Add(d)
	l.mu.Unlock()

	for {
		l.RunUntilIdle()
		l.mu.Lock()
		if len(l.timers) == 0 || l.timers[0].when.After(target) {
			l.vnow = target
			l.mu.Unlock()
			l.RunUntilIdle()
			return
		}
		if next := l.timers[0].when; next.After(l.vnow) {
			l.vnow = next
		}
		l.mu.Unlock()
	}
}

// Timer is a pending call scheduled with AfterFunc.
type Timer struct {
	loop  *Loop
	when  time.Time
	seq   uint64
	fn    func()
	index int
}

// Stop cancels the timer. It reports whether the call was still pending.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&l.timers, t.index)
	return true
}

// Ticker repeatedly runs a function on the loop.
// Stop must be called from the loop.
type Ticker struct {
	loop     *Loop
	interval time.Duration
	fn       func()
	timer    *Timer
	stopped  bool
}

func (tk *Ticker) arm() {
	tk.timer = tk.loop.AfterFunc(tk.interval, func() {
		if tk.stopped {
			return
		}
		tk.fn()
		if !tk.stopped {
			tk.arm()
		}
	})
}

// Stop halts the ticker.
func (tk *Ticker) Stop() {
	if tk == nil || tk.stopped {
		return
	}
	tk.stopped = true
	tk.timer.Stop()
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
