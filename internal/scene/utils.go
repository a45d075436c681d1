package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LessonsDir is where lessons are looked up when none is given explicitly.
var LessonsDir = filepath.Join("input", "lessons")

// GenerateLessonPath creates a timestamped lesson filename inside dir.
func GenerateLessonPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("lesson_%s.yaml", timestamp))
}

// FindLatestLesson finds the most recently modified lesson file in dir.
func FindLatestLesson(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read lessons directory: %w", err)
	}

	var lessons []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
			lessons = append(lessons, filepath.Join(dir, entry.Name()))
		}
	}

	if len(lessons) == 0 {
		return "", fmt.Errorf("no lesson files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(lessons, func(i, j int) bool {
		infoI, errI := os.Stat(lessons[i])
		infoJ, errJ := os.Stat(lessons[j])
		if errI != nil || errJ != nil {
			return errJ != nil && errI == nil
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return lessons[0], nil
}
