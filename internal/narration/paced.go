package narration

import (
	"time"

	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/scene"
)

// PacedSpeaker simulates speech: an utterance lasts its estimated duration
// on the loop clock. It is used headless and in demos.
type PacedSpeaker struct {
	Loop *eventloop.Loop
	// Duration overrides the estimate when set.
	Duration func(scene.Narration) time.Duration
}

func (s *PacedSpeaker) Available() bool { return s.Loop != nil }

func (s *PacedSpeaker) Speak(n scene.Narration, done func(error)) (Playback, error) {
	if s.Loop == nil {
		return nil, ErrUnavailable
	}
	d := EstimateDuration(n)
	if s.Duration != nil {
		d = s.Duration(n)
	}
	p := &pacedPlayback{loop: s.Loop, remaining: d, done: done}
	p.arm()
	return p, nil
}

// pacedPlayback is only touched from the loop.
type pacedPlayback struct {
	loop      *eventloop.Loop
	timer     *eventloop.Timer
	started   time.Time
	remaining time.Duration
	done      func(error)
	paused    bool
	finished  bool
}

func (p *pacedPlayback) arm() {
	p.started = p.loop.Now()
	p.timer = p.loop.AfterFunc(p.remaining, func() {
		p.finished = true
		p.done(nil)
	})
}

func (p *pacedPlayback) Cancel() {
	p.finished = true
	p.timer.Stop()
}

func (p *pacedPlayback) Pause() {
	if p.paused || p.finished {
		return
	}
	p.paused = true
	p.timer.Stop()
	p.remaining -= p.loop.Now().Sub(p.started)
	if p.remaining < 0 {
		p.remaining = 0
	}
}

func (p *pacedPlayback) Resume() {
	if !p.paused || p.finished {
		return
	}
	p.paused = false
	p.arm()
}
