package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateLessonPath(t *testing.T) {
	path := GenerateLessonPath(LessonsDir)

	if !strings.Contains(path, "lesson_") {
		t.Errorf("Path should contain 'lesson_': %s", path)
	}
	if filepath.Dir(path) != LessonsDir {
		t.Errorf("Path should be in %s: %s", LessonsDir, path)
	}
	if filepath.Ext(path) != ".yaml" {
		t.Errorf("Path should end in .yaml: %s", path)
	}
}

func TestFindLatestLesson(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		filepath.Join(dir, "lesson_2026-02-12_10-00-00.yaml"),
		filepath.Join(dir, "lesson_2026-02-13_01-00-00.json"),
		filepath.Join(dir, "lesson_2026-02-11_15-30-00.yml"),
	}
	for i, f := range files {
		if err := os.WriteFile(f, []byte("steps: []"), 0644); err != nil {
			t.Fatal(err)
		}
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}
	// Not a lesson, newer than everything else.
	notes := filepath.Join(dir, "notes.txt")
	os.WriteFile(notes, []byte("x"), 0644)
	future := time.Now().Add(24 * time.Hour)
	os.Chtimes(notes, future, future)

	latest, err := FindLatestLesson(dir)
	if err != nil {
		t.Fatalf("FindLatestLesson failed: %v", err)
	}
	if latest != files[2] {
		t.Errorf("Expected latest %s, got %s", files[2], latest)
	}
}

func TestFindLatestLessonEmpty(t *testing.T) {
	if _, err := FindLatestLesson(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}
