package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Default animation given to legacy whiteboard commands that do not carry
// one: a fade-in staggered by legacyStagger per command.
const (
	legacyStagger  = 500 * time.Millisecond
	legacyDuration = time.Second
	legacyEase     = "power2.out"
)

// LegacyLesson is the document served by the lesson retrieval endpoint.
// Older generators emit the sequence under teaching_steps.
type LegacyLesson struct {
	TeachingSequence []LegacySegment `json:"teaching_sequence,omitempty"`
	TeachingSteps    []LegacySegment `json:"teaching_steps,omitempty"`
}

// Segments returns the segments regardless of which key carried them.
func (l LegacyLesson) Segments() []LegacySegment {
	if len(l.TeachingSequence) > 0 {
		return l.TeachingSequence
	}
	return l.TeachingSteps
}

// LegacySegment is one teaching step in the legacy format. Each whiteboard
// command is a shape with an optional nested animation.
type LegacySegment struct {
	Title              string         `json:"title,omitempty"`
	TextExplanation    string         `json:"text_explanation,omitempty"`
	TTSText            string         `json:"tts_text,omitempty"`
	WhiteboardCommands []ShapePayload `json:"whiteboard_commands"`
	Duration           float64        `json:"duration,omitempty"`
}

// Step normalizes the segment into a Step.
func (seg LegacySegment) Step(stepIndex int) (Step, []Issue) {
	var issues []Issue
	text := seg.TTSText
	if text == "" {
		text = seg.TextExplanation
	}
	step := Step{
		Title:             seg.Title,
		Narration:         Narration{Text: text, SpeakingRate: 1, Pitch: 1},
		EstimatedDuration: seconds(seg.Duration),
	}

	for i, cmd := range seg.WhiteboardCommands {
		shape, err := DecodeShape(cmd)
		if err != nil {
			issues = append(issues, Issue{Step: stepIndex, Element: "shape", Index: i, Reason: err.Error()})
		}
		step.Shapes = append(step.Shapes, shape)

		if cmd.Animation == nil {
			step.Animations = append(step.Animations, AnimationInstruction{
				Target:   i,
				Kind:     AnimFadeIn,
				Delay:    time.Duration(i) * legacyStagger,
				Duration: legacyDuration,
				Ease:     legacyEase,
			})
			continue
		}
		a, err := DecodeAnimation(*cmd.Animation, i)
		if err != nil {
			issues = append(issues, Issue{Step: stepIndex, Element: "animation", Index: i, Reason: err.Error()})
		}
		step.Animations = append(step.Animations, a)
	}
	return step, issues
}

// FromLegacy converts a legacy lesson into steps.
func FromLegacy(l LegacyLesson) ([]Step, []Issue) {
	var steps []Step
	var issues []Issue
	for i, seg := range l.Segments() {
		step, segIssues := seg.Step(i)
		steps = append(steps, step)
		issues = append(issues, segIssues...)
	}
	return steps, issues
}

// ToLegacy converts steps into the legacy format. Each shape becomes a
// whiteboard command carrying the first animation that targets it; further
// animations of the same shape cannot be expressed and are dropped.
func ToLegacy(steps []Step) LegacyLesson {
	var out LegacyLesson
	for _, s := range steps {
		seg := LegacySegment{
			Title:           s.Title,
			TextExplanation: s.Narration.Text,
			TTSText:         s.Narration.Text,
			Duration:        s.EstimatedDuration.Seconds(),
		}
		first := make(map[int]AnimationInstruction)
		for _, a := range s.Animations {
			if _, ok := first[a.Target]; !ok {
				first[a.Target] = a
			}
		}
		for i, sh := range s.Shapes {
			cmd := EncodeShape(sh)
			if a, ok := first[i]; ok {
				ap := EncodeAnimation(a, false)
				cmd.Animation = &ap
			}
			seg.WhiteboardCommands = append(seg.WhiteboardCommands, cmd)
		}
		out.TeachingSequence = append(out.TeachingSequence, seg)
	}
	return out
}

// ParseCommand decodes a single step command received from the generator.
// Both the step payload and the legacy segment format are accepted.
func ParseCommand(data []byte, stepIndex int) (Step, []Issue, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Step{}, nil, fmt.Errorf("parse command: %w", err)
	}
	if isLegacy(probe) {
		var seg LegacySegment
		if err := json.Unmarshal(data, &seg); err != nil {
			return Step{}, nil, fmt.Errorf("parse legacy command: %w", err)
		}
		step, issues := seg.Step(stepIndex)
		return step, issues, nil
	}
	var sp StepPayload
	if err := json.Unmarshal(data, &sp); err != nil {
		return Step{}, nil, fmt.Errorf("parse step command: %w", err)
	}
	step, issues := sp.Decode(stepIndex)
	return step, issues, nil
}

func isLegacy(probe map[string]json.RawMessage) bool {
	for _, key := range []string{"whiteboard_commands", "tts_text", "text_explanation"} {
		if _, ok := probe[key]; ok {
			return true
		}
	}
	return false
}

// ParseCommands decodes a batch of step commands. It accepts a JSON array of
// commands, a legacy lesson document, or a lesson payload with steps.
func ParseCommands(data []byte) ([]Step, []Issue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil, nil
	}

	if data[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, nil, fmt.Errorf("parse commands: %w", err)
		}
		var steps []Step
		var issues []Issue
		for i, raw := range raws {
			step, stepIssues, err := ParseCommand(raw, i)
			if err != nil {
				issues = append(issues, Issue{Step: i, Element: "command", Index: i, Reason: err.Error()})
				continue
			}
			steps = append(steps, step)
			issues = append(issues, stepIssues...)
		}
		return steps, issues, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, fmt.Errorf("parse commands: %w", err)
	}
	if _, ok := probe["steps"]; ok {
		var lp LessonPayload
		if err := json.Unmarshal(data, &lp); err != nil {
			return nil, nil, fmt.Errorf("parse lesson: %w", err)
		}
		lesson, issues := lp.Decode()
		return lesson.Steps, issues, nil
	}
	_, seq := probe["teaching_sequence"]
	_, legacySteps := probe["teaching_steps"]
	if seq || legacySteps {
		var ll LegacyLesson
		if err := json.Unmarshal(data, &ll); err != nil {
			return nil, nil, fmt.Errorf("parse legacy lesson: %w", err)
		}
		steps, issues := FromLegacy(ll)
		return steps, issues, nil
	}

	step, issues, err := ParseCommand(data, 0)
	if err != nil {
		return nil, nil, err
	}
	return []Step{step}, issues, nil
}

// ErrEmptyLesson is returned when a lesson document contains no steps.
var ErrEmptyLesson = errors.New("lesson has no steps")
