// Package animation runs the timed property transitions of a step against
// the elements of its renderer arena.
package animation

import (
	"log/slog"
	"time"

	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/renderer"
	"github.com/ivlev/lessonboard/internal/scene"
)

// DefaultFPS is the tick rate used when none is configured.
const DefaultFPS = 60

// Scheduler starts step timelines on the event loop.
type Scheduler struct {
	loop  *eventloop.Loop
	frame time.Duration
	log   *slog.Logger
}

func NewScheduler(loop *eventloop.Loop, fps int, log *slog.Logger) *Scheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		loop:  loop,
		frame: time.Second / time.Duration(fps),
		log:   log.With("component", "animation"),
	}
}

// Run starts every instruction on one shared timeline beginning now. The
// returned Completion resolves once all finite instructions have finished;
// instructions repeating forever keep running until Cancel but never hold
// back completion. Instructions with a missing target or an unsupported
// kind are skipped.
func (s *Scheduler) Run(instrs []scene.AnimationInstruction, arena *renderer.Arena) *Completion {
	c := &Completion{loop: s.loop, arena: arena, start: s.loop.Now()}

	for i, a := range instrs {
		h, ok := arena.Lookup(a.Target)
		if !ok {
			s.log.Debug("animation target missing", "index", i, "target", a.Target, "kind", a.Kind)
			continue
		}
		effect, ok := effects[a.Kind]
		if !ok {
			s.log.Warn("unsupported animation kind", "index", i, "kind", a.Kind)
			continue
		}
		t, ok := effect(a, arena.Element(h))
		if !ok {
			s.log.Debug("animation not applicable to shape", "index", i, "kind", a.Kind, "target", a.Target)
			continue
		}
		t.delay, t.duration, t.repeat, t.yoyo = a.Delay, a.Duration, a.Repeat, a.Yoyo
		if t.ease == nil {
			t.ease = Ease(a.Ease)
		}
		if t.prime != nil {
			t.prime()
		}
		c.tracks = append(c.tracks, t)
		if !t.infinite() && t.end() > c.deadline {
			c.deadline = t.end()
		}
	}

	if len(c.tracks) == 0 {
		s.loop.Post(c.resolve)
		return c
	}

	c.update(0)
	c.ticker = s.loop.Every(s.frame, c.tick)
	c.timer = s.loop.AfterFunc(c.deadline, func() {
		c.update(c.deadline)
		c.resolve()
	})
	return c
}

// Completion tracks a running step timeline.
type Completion struct {
	loop     *eventloop.Loop
	arena    *renderer.Arena
	start    time.Time
	tracks   []*track
	deadline time.Duration
	ticker   *eventloop.Ticker
	timer    *eventloop.Timer

	resolved  bool
	cancelled bool
	callbacks []func()
}

// Deadline is the timeline offset at which the completion resolves.
func (c *Completion) Deadline() time.Duration { return c.deadline }

// Resolved reports whether every finite instruction has finished.
func (c *Completion) Resolved() bool { return c.resolved }

// OnDone registers fn to run on the loop when the completion resolves. It is
// never called for a cancelled completion.
func (c *Completion) OnDone(fn func()) {
	if c.cancelled {
		return
	}
	if c.resolved {
		c.loop.Post(func() {
			if !c.cancelled {
				fn()
			}
		})
		return
	}
	c.callbacks = append(c.callbacks, fn)
}

// Cancel stops all tracks, including those repeating forever. Pending
// callbacks are dropped.
func (c *Completion) Cancel() {
	if c == nil || c.cancelled {
		return
	}
	c.cancelled = true
	c.callbacks = nil
	c.ticker.Stop()
	c.timer.Stop()
}

func (c *Completion) tick() {
	if c.cancelled {
		return
	}
	if c.arena.Disposed() {
		c.Cancel()
		return
	}
	c.update(c.loop.Now().Sub(c.start))
	if c.resolved && !c.hasInfinite() {
		c.ticker.Stop()
	}
}

func (c *Completion) update(elapsed time.Duration) {
	if c.arena.Disposed() {
		return
	}
	for _, t := range c.tracks {
		t.update(elapsed)
	}
}

func (c *Completion) hasInfinite() bool {
	for _, t := range c.tracks {
		if t.infinite() {
			return true
		}
	}
	return false
}

func (c *Completion) resolve() {
	if c.resolved || c.cancelled {
		return
	}
	c.resolved = true
	if !c.hasInfinite() {
		c.ticker.Stop()
	}
	callbacks := c.callbacks
	c.callbacks = nil
	for _, fn := range callbacks {
		fn()
	}
}
