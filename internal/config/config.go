package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	LessonPath string `yaml:"lesson"`
	LessonDir  string `yaml:"lesson_dir"`
	LessonID   string `yaml:"lesson_id"`
	PDFPath    string `yaml:"pdf"`
	PDFDir     string `yaml:"pdf_dir"`
	SaveLesson bool   `yaml:"save_lesson"`

	ServerURL string `yaml:"server_url"`
	LessonAPI string `yaml:"lesson_api"`
	UserID    string `yaml:"user_id"`

	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
	FPS        int    `yaml:"fps"`
	Preset     string `yaml:"preset"`

	AutoAdvance       bool          `yaml:"auto_advance"`
	StepPause         time.Duration `yaml:"step_pause"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectBackoff  time.Duration `yaml:"reconnect_backoff"`
	NarrationFallback time.Duration `yaml:"narration_fallback"`
	SpeechEngine      string        `yaml:"speech_engine"`
	Voice             string        `yaml:"voice"`

	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	ShowStats    bool   `yaml:"stats"`
	BuildVersion string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		LessonDir:         "input/lessons",
		PDFDir:            "input/pdf",
		Width:             1280,
		Height:            720,
		Background:        "#1e1e1e",
		FPS:               60,
		AutoAdvance:       true,
		StepPause:         time.Second,
		ReconnectAttempts: 1,
		ReconnectBackoff:  3 * time.Second,
		NarrationFallback: 50 * time.Millisecond,
		SpeechEngine:      "auto",
		LogLevel:          "info",
	}
}

// Load reads a YAML config file over the defaults. Keys absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyPreset overrides the canvas size for a named format.
func (c *Config) ApplyPreset() error {
	switch c.Preset {
	case "":
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	case "4:3":
		c.Width, c.Height = 1024, 768
	default:
		return fmt.Errorf("%w: unknown preset %q", ErrInvalid, c.Preset)
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.Width <= 0 || c.Height <= 0 {
		problems = append(problems, fmt.Sprintf("canvas %dx%d", c.Width, c.Height))
	}
	if c.FPS <= 0 || c.FPS > 240 {
		problems = append(problems, fmt.Sprintf("fps %d", c.FPS))
	}
	if c.StepPause < 0 {
		problems = append(problems, "negative step_pause")
	}
	if c.ReconnectAttempts < 0 {
		problems = append(problems, "negative reconnect_attempts")
	}
	if c.ReconnectBackoff <= 0 {
		problems = append(problems, "reconnect_backoff must be positive")
	}
	if c.NarrationFallback <= 0 {
		problems = append(problems, "narration_fallback must be positive")
	}
	if c.ServerURL != "" && !strings.HasPrefix(c.ServerURL, "ws://") && !strings.HasPrefix(c.ServerURL, "wss://") {
		problems = append(problems, fmt.Sprintf("server_url %q is not a websocket URL", c.ServerURL))
	}
	if c.LessonID != "" && c.LessonAPI == "" {
		problems = append(problems, "lesson_id needs lesson_api")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
