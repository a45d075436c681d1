package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivlev/lessonboard/internal/scene"
)

var (
	// ErrLessonNotFound is returned when the retrieval endpoint has no data
	// for the requested lesson.
	ErrLessonNotFound = errors.New("lesson data not found")
	// ErrLessonGenerating is returned while the lesson is still being
	// generated upstream.
	ErrLessonGenerating = errors.New("lesson is still generating")
)

// LessonSource resolves a lesson by id. Issues are decode problems that were
// skipped; they never make Fetch fail.
type LessonSource interface {
	Fetch(ctx context.Context, id string) (*scene.Lesson, []scene.Issue, error)
}

// FileSource reads lesson files. An empty id picks the newest lesson in Dir.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	if dir == "" {
		dir = scene.LessonsDir
	}
	return &FileSource{Dir: dir}
}

func (s *FileSource) Fetch(ctx context.Context, id string) (*scene.Lesson, []scene.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	path := id
	if path == "" {
		latest, err := scene.FindLatestLesson(s.Dir)
		if err != nil {
			return nil, nil, err
		}
		path = latest
	} else if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(s.Dir, id)
		}
	}

	lesson, issues, err := scene.ReadLesson(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", id, ErrLessonNotFound)
	}
	if err != nil {
		return nil, issues, fmt.Errorf("read lesson %s: %w", path, err)
	}
	return lesson, issues, nil
}
