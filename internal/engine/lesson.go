package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/lessonboard/internal/config"
	"github.com/ivlev/lessonboard/internal/narration"
	"github.com/ivlev/lessonboard/internal/scene"
	"github.com/ivlev/lessonboard/internal/source"
	"github.com/ivlev/lessonboard/internal/transport"
)

// LoadLesson fetches the lesson named by the config: from the retrieval
// endpoint when a lesson id is set, otherwise from a lesson file.
func LoadLesson(ctx context.Context, cfg *config.Config) (*scene.Lesson, []scene.Issue, error) {
	if cfg.LessonID != "" {
		return source.NewHTTPSource(cfg.LessonAPI).Fetch(ctx, cfg.LessonID)
	}
	return source.NewFileSource(cfg.LessonDir).Fetch(ctx, cfg.LessonPath)
}

// LoadDocument extracts the text the teaching service builds a lesson from.
func LoadDocument(path string) (transport.Document, error) {
	doc, err := source.OpenPDF(path)
	if err != nil {
		return transport.Document{}, err
	}
	defer doc.Close()

	text := doc.Text()
	if text == "" {
		return transport.Document{}, fmt.Errorf("в документе %s нет текста", path)
	}
	id, err := filepath.Abs(path)
	if err != nil {
		id = path
	}
	return transport.Document{
		ID:       id,
		Topic:    doc.Topic(),
		Filename: doc.Filename(),
		Text:     text,
	}, nil
}

// estimateDurations fills in missing step durations and returns the total.
// A step lasts as long as its narration or its finite animations, whichever
// is longer.
func estimateDurations(steps []scene.Step) time.Duration {
	var total time.Duration
	for i := range steps {
		s := &steps[i]
		if s.EstimatedDuration <= 0 {
			d := narration.EstimateDuration(s.Narration)
			for _, a := range s.Animations {
				if end := a.End(); end > d {
					d = end
				}
			}
			s.EstimatedDuration = d
		}
		total += s.EstimatedDuration
	}
	return total
}

// applyVoice sets the configured voice on narrations that name none.
func applyVoice(steps []scene.Step, voice string) {
	if voice == "" {
		return
	}
	for i := range steps {
		if steps[i].Narration.Voice == "" {
			steps[i].Narration.Voice = voice
		}
	}
}
