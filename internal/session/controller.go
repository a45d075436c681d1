// Package session sequences the steps of a lesson: it renders each step,
// runs its animations, speaks its narration and advances when narration
// completes.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/lessonboard/internal/animation"
	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/events"
	"github.com/ivlev/lessonboard/internal/renderer"
	"github.com/ivlev/lessonboard/internal/scene"
)

// DefaultStepPause is the pause between a step's narration ending and the
// next step starting.
const DefaultStepPause = time.Second

type Painter interface {
	Render(shapes []scene.Shape) (*renderer.Arena, []renderer.Handle)
}

type Animator interface {
	Run(instrs []scene.AnimationInstruction, arena *renderer.Arena) *animation.Completion
}

type Narrator interface {
	Speak(n scene.Narration, onComplete func())
	Stop()
	Pause()
	Resume()
}

// Options configures a Controller.
type Options struct {
	StepPause   time.Duration
	AutoAdvance bool
	Publisher   events.Publisher
	Logger      *slog.Logger
}

// State is a snapshot of the session.
type State struct {
	ID          string
	Mode        Mode
	Index       int
	Len         int
	AutoAdvance bool
	Open        bool
}

// Controller is the step sequencer. All methods must be called on the loop.
type Controller struct {
	id       string
	loop     *eventloop.Loop
	painter  Painter
	animator Animator
	narrator Narrator
	pub      events.Publisher
	log      *slog.Logger
	pause    time.Duration

	steps       []scene.Step
	index       int
	mode        Mode
	autoAdvance bool
	open        bool

	// Per-step state, reset by teardown.
	token          uint64
	arena          *renderer.Arena
	completion     *animation.Completion
	timer          *eventloop.Timer
	narrated       bool
	advancePending bool
}

func NewController(loop *eventloop.Loop, painter Painter, animator Animator, narrator Narrator, opts Options) *Controller {
	if opts.StepPause < 0 {
		opts.StepPause = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	id := uuid.NewString()
	return &Controller{
		id:          id,
		loop:        loop,
		painter:     painter,
		animator:    animator,
		narrator:    narrator,
		pub:         opts.Publisher,
		log:         opts.Logger.With("component", "session", "session_id", id),
		pause:       opts.StepPause,
		index:       -1,
		autoAdvance: opts.AutoAdvance,
	}
}

func (c *Controller) State() State {
	return State{
		ID:          c.id,
		Mode:        c.mode,
		Index:       c.index,
		Len:         len(c.steps),
		AutoAdvance: c.autoAdvance,
		Open:        c.open,
	}
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) Len() int { return len(c.steps) }

// Steps returns a copy of the received steps.
func (c *Controller) Steps() []scene.Step { return append([]scene.Step(nil), c.steps...) }

// Arena returns the elements of the current step, or nil.
func (c *Controller) Arena() *renderer.Arena { return c.arena }

// Load replaces the steps. A running session is stopped first.
func (c *Controller) Load(steps []scene.Step) {
	c.Stop()
	c.steps = append([]scene.Step(nil), steps...)
	c.open = false
}

// Open marks the lesson as still receiving steps: reaching the last step
// waits for more instead of completing.
func (c *Controller) Open() { c.open = true }

// Append adds a streamed step. A session waiting at the end of the received
// steps moves on to it.
func (c *Controller) Append(step scene.Step) {
	c.steps = append(c.steps, step)
	if c.mode == Playing && c.index < 0 {
		c.enterStep(0)
		return
	}
	c.maybeAdvance()
}

// Seal marks the lesson as complete. A session waiting at the last step
// completes.
func (c *Controller) Seal() {
	c.open = false
	if c.mode == Playing && c.index < 0 && len(c.steps) == 0 {
		c.complete()
		return
	}
	c.maybeAdvance()
}

// Start begins playback at step 0.
func (c *Controller) Start() error {
	if c.mode == Playing || c.mode == Paused {
		return fmt.Errorf("start while %s: %w", c.mode, ErrInvalidTransition)
	}
	if len(c.steps) == 0 {
		if !c.open {
			return ErrNoSteps
		}
		// Wait for the first streamed step.
		c.teardown()
		c.index = -1
		c.setMode(Playing)
		return nil
	}
	c.enterStep(0)
	return nil
}

func (c *Controller) Next() error { return c.GoTo(c.index + 1) }

func (c *Controller) Previous() error { return c.GoTo(c.index - 1) }

// GoTo enters step i, clamped to the received steps.
func (c *Controller) GoTo(i int) error {
	if c.mode == Idle {
		return fmt.Errorf("navigate while idle: %w", ErrInvalidTransition)
	}
	if len(c.steps) == 0 {
		return ErrNoSteps
	}
	c.enterStep(clamp(i, 0, len(c.steps)-1))
	return nil
}

// Pause suspends narration. Animations keep their current state.
func (c *Controller) Pause() error {
	if c.mode != Playing {
		return fmt.Errorf("pause while %s: %w", c.mode, ErrInvalidTransition)
	}
	c.narrator.Pause()
	if c.timer.Stop() {
		c.timer = nil
		c.advancePending = true
	}
	c.setMode(Paused)
	return nil
}

func (c *Controller) Resume() error {
	if c.mode != Paused {
		return fmt.Errorf("resume while %s: %w", c.mode, ErrInvalidTransition)
	}
	c.setMode(Playing)
	if c.index < 0 {
		// Paused while waiting for the first streamed step.
		switch {
		case len(c.steps) > 0:
			c.enterStep(0)
		case !c.open:
			c.complete()
		}
		return nil
	}
	c.narrator.Resume()
	if c.advancePending {
		c.advancePending = false
		c.maybeAdvance()
	}
	return nil
}

// Stop cancels everything and returns to idle. Calling it again has no
// further effect.
func (c *Controller) Stop() {
	c.teardown()
	c.index = -1
	c.setMode(Idle)
}

// SetAutoAdvance switches auto-advance. Turning it on after the current
// step's narration has finished schedules the advance.
func (c *Controller) SetAutoAdvance(on bool) {
	c.autoAdvance = on
	if !on {
		c.timer.Stop()
		c.timer = nil
		c.advancePending = false
		return
	}
	c.maybeAdvance()
}

func (c *Controller) enterStep(i int) {
	c.teardown()
	c.token++
	tok := c.token
	c.index = i
	c.setMode(Playing)

	step := c.steps[i]
	c.arena, _ = c.painter.Render(step.Shapes)
	c.completion = c.animator.Run(step.Animations, c.arena)
	c.log.Debug("step entered", "step", i, "shapes", len(step.Shapes), "animations", len(step.Animations))
	c.publish(events.StepEntered, step.Title)

	// Last: a narrator may complete synchronously.
	c.narrator.Speak(step.Narration, func() { c.onNarrated(tok) })
}

func (c *Controller) onNarrated(tok uint64) {
	if tok != c.token || c.mode == Idle {
		return
	}
	c.narrated = true
	c.publish(events.StepNarrated, "")
	c.maybeAdvance()
}

// maybeAdvance moves past a narrated step: it completes at the end of a
// sealed lesson or schedules the next step when auto-advance is on.
func (c *Controller) maybeAdvance() {
	if !c.narrated || c.timer != nil {
		return
	}
	if c.mode == Paused {
		c.advancePending = true
		return
	}
	if c.mode != Playing {
		return
	}
	if c.index+1 >= len(c.steps) {
		if !c.open {
			c.complete()
		}
		return
	}
	if !c.autoAdvance {
		return
	}
	tok := c.token
	c.timer = c.loop.AfterFunc(c.pause, func() {
		c.timer = nil
		c.advance(tok)
	})
}

func (c *Controller) advance(tok uint64) {
	if tok != c.token || c.mode != Playing {
		c.log.Debug("dropping stale advance", "token", tok, "current", c.token)
		return
	}
	c.enterStep(c.index + 1)
}

func (c *Controller) complete() {
	c.timer.Stop()
	c.timer = nil
	c.setMode(Completed)
	c.publish(events.LessonCompleted, "")
}

// teardown cancels everything belonging to the current step.
func (c *Controller) teardown() {
	c.timer.Stop()
	c.timer = nil
	c.advancePending = false
	c.narrated = false
	c.narrator.Stop()
	c.completion.Cancel()
	c.completion = nil
	c.arena.Dispose()
	c.arena = nil
}

func (c *Controller) setMode(m Mode) {
	if m == c.mode {
		return
	}
	if !canTransition(c.mode, m) {
		c.log.Warn("rejected transition", "from", c.mode, "to", m)
		return
	}
	c.log.Debug("mode changed", "from", c.mode, "to", m)
	c.mode = m
	c.publish(events.ModeChanged, "")
}

func (c *Controller) publish(t events.Type, msg string) {
	if c.pub == nil {
		return
	}
	c.pub.Publish(events.Event{
		Type:      t,
		SessionID: c.id,
		Step:      c.index,
		Mode:      c.mode.String(),
		Message:   msg,
		Time:      c.loop.Now(),
	})
}

func clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
