// Package narration drives the spoken part of a step and reports when it
// has finished.
package narration

import (
	"errors"
	"strings"
	"time"

	"github.com/ivlev/lessonboard/internal/scene"
)

const (
	// WordsPerMinute is the assumed speaking pace at rate 1.
	WordsPerMinute = 150
	// MinDuration is the shortest duration estimated for a step.
	MinDuration = 2 * time.Second
)

// ErrUnavailable is returned by speakers that cannot produce speech.
var ErrUnavailable = errors.New("speech synthesis unavailable")

// Speaker produces speech for one utterance at a time. done is called once
// when the utterance ends, possibly from another goroutine. It is not called
// after Cancel.
type Speaker interface {
	Available() bool
	Speak(n scene.Narration, done func(error)) (Playback, error)
}

// Playback controls an utterance in progress.
type Playback interface {
	Cancel()
	Pause()
	Resume()
}

// NullSpeaker never speaks.
type NullSpeaker struct{}

func (NullSpeaker) Available() bool { return false }

func (NullSpeaker) Speak(scene.Narration, func(error)) (Playback, error) {
	return nil, ErrUnavailable
}

// EstimateDuration estimates how long n takes to speak.
func EstimateDuration(n scene.Narration) time.Duration {
	words := len(strings.Fields(n.Text))
	rate := n.SpeakingRate
	if rate <= 0 {
		rate = 1
	}
	d := time.Duration(float64(words) / (WordsPerMinute * rate) * float64(time.Minute))
	if d < MinDuration {
		return MinDuration
	}
	return d
}
