package narration

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/scene"
)

// DefaultFallbackDelay is how long a step waits for narration that cannot
// be spoken before it is treated as finished.
const DefaultFallbackDelay = 50 * time.Millisecond

// Synchronizer owns the single in-flight utterance. All methods must be
// called on the loop; onComplete callbacks run there too.
type Synchronizer struct {
	loop     *eventloop.Loop
	speaker  Speaker
	fallback time.Duration
	log      *slog.Logger

	seq     uint64
	current *utterance
}

type utterance struct {
	id         uint64
	playback   Playback
	timer      *eventloop.Timer
	onComplete func()
	paused     bool
}

func NewSynchronizer(loop *eventloop.Loop, speaker Speaker, fallback time.Duration, log *slog.Logger) *Synchronizer {
	if speaker == nil {
		speaker = NullSpeaker{}
	}
	if fallback <= 0 {
		fallback = DefaultFallbackDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		loop:     loop,
		speaker:  speaker,
		fallback: fallback,
		log:      log.With("component", "narration"),
	}
}

// Speak starts n and calls onComplete once it has finished. A previous
// utterance is cancelled and its onComplete will never run. Empty text or an
// unavailable speaker completes after the fallback delay; speaker errors
// count as completion.
func (s *Synchronizer) Speak(n scene.Narration, onComplete func()) {
	s.Stop()

	s.seq++
	u := &utterance{id: s.seq, onComplete: onComplete}
	s.current = u

	if strings.TrimSpace(n.Text) == "" || !s.speaker.Available() {
		u.timer = s.loop.AfterFunc(s.fallback, func() { s.finish(u.id, nil) })
		return
	}

	id := u.id
	pb, err := s.speaker.Speak(n, func(err error) {
		s.loop.Post(func() { s.finish(id, err) })
	})
	if err != nil {
		s.log.Warn("narration could not start, continuing without it", "error", err)
		u.timer = s.loop.AfterFunc(s.fallback, func() { s.finish(id, nil) })
		return
	}
	u.playback = pb
}

func (s *Synchronizer) finish(id uint64, err error) {
	u := s.current
	if u == nil || u.id != id {
		return
	}
	if err != nil {
		s.log.Warn("narration failed, treating as complete", "error", err)
	}
	s.current = nil
	if u.onComplete != nil {
		u.onComplete()
	}
}

// Stop cancels the current utterance without completing it.
func (s *Synchronizer) Stop() {
	u := s.current
	if u == nil {
		return
	}
	s.current = nil
	u.timer.Stop()
	if u.playback != nil {
		u.playback.Cancel()
	}
}

// Pause suspends the current utterance.
func (s *Synchronizer) Pause() {
	u := s.current
	if u == nil || u.paused {
		return
	}
	u.paused = true
	if u.playback != nil {
		u.playback.Pause()
		return
	}
	u.timer.Stop()
}

// Resume continues a paused utterance.
func (s *Synchronizer) Resume() {
	u := s.current
	if u == nil || !u.paused {
		return
	}
	u.paused = false
	if u.playback != nil {
		u.playback.Resume()
		return
	}
	id := u.id
	u.timer = s.loop.AfterFunc(s.fallback, func() { s.finish(id, nil) })
}

// Speaking reports whether an utterance is in flight.
func (s *Synchronizer) Speaking() bool { return s.current != nil }
