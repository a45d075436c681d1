package scene

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteLesson writes a lesson to a YAML file, or JSON when path ends in .json.
func WriteLesson(lesson *Lesson, path string) error {
	payload := EncodeLesson(lesson)

	var data []byte
	var err error
	if isJSON(path) {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = yaml.Marshal(payload)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadLesson reads a lesson from a YAML or JSON file. JSON files may also be
// legacy retrieval documents.
func ReadLesson(path string) (*Lesson, []Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if isJSON(path) {
		steps, issues, err := ParseCommands(data)
		if err != nil {
			return nil, nil, err
		}
		var title struct {
			Title string `json:"title"`
		}
		_ = json.Unmarshal(data, &title)
		if len(steps) == 0 {
			return nil, issues, ErrEmptyLesson
		}
		return &Lesson{Title: title.Title, Steps: steps}, issues, nil
	}

	var payload LessonPayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, nil, err
	}
	lesson, issues := payload.Decode()
	if len(lesson.Steps) == 0 {
		return nil, issues, ErrEmptyLesson
	}
	return lesson, issues, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
