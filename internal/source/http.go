package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ivlev/lessonboard/internal/scene"
)

// maxLessonBytes caps the size of a retrieved lesson document.
const maxLessonBytes = 8 << 20

// HTTPSource fetches lessons from the retrieval endpoint
// GET {BaseURL}/lessons/{id}.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, id string) (*scene.Lesson, []scene.Issue, error) {
	endpoint := s.BaseURL + "/lessons/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch lesson %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil, fmt.Errorf("lesson %s: %w", id, ErrLessonNotFound)
	case http.StatusAccepted:
		return nil, nil, fmt.Errorf("lesson %s: %w", id, ErrLessonGenerating)
	default:
		return nil, nil, fmt.Errorf("fetch lesson %s: unexpected status %s", id, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLessonBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read lesson %s: %w", id, err)
	}

	steps, issues, err := scene.ParseCommands(body)
	if err != nil {
		return nil, nil, fmt.Errorf("decode lesson %s: %w", id, err)
	}
	if len(steps) == 0 {
		return nil, issues, fmt.Errorf("lesson %s: %w", id, ErrLessonNotFound)
	}
	return &scene.Lesson{Title: id, Steps: steps}, issues, nil
}
