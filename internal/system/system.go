package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

func FindLatestPDF(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ".pdf") {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(dir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено PDF-файлов", dir)
	}

	return latestFile, nil
}

// SpeechEngine is a text-to-speech binary found on PATH.
type SpeechEngine struct {
	Name string
	Path string
}

// speechEngines in order of preference.
var speechEngines = []string{"espeak-ng", "espeak", "say", "spd-say"}

// FindSpeechEngine returns the best available speech engine. preferred, when
// set, is tried first; "none" disables speech.
func FindSpeechEngine(preferred string) (SpeechEngine, bool) {
	// Приоритеты:
	// 1. Явно указанный движок
	// 2. espeak-ng / espeak (Linux)
	// 3. say (MacOS)
	// 4. spd-say (speech-dispatcher)
	if preferred == "none" {
		return SpeechEngine{}, false
	}

	candidates := speechEngines
	if preferred != "" {
		candidates = append([]string{preferred}, speechEngines...)
	}

	for _, name := range candidates {
		path, err := exec.LookPath(name)
		if err == nil {
			return SpeechEngine{Name: filepath.Base(name), Path: path}, true
		}
	}

	return SpeechEngine{}, false
}
