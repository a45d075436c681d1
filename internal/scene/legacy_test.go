package scene

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyJSON = `{
  "teaching_sequence": [
    {
      "title": "Intro",
      "text_explanation": "Atoms are small.",
      "whiteboard_commands": [
        {"type":"circle","x":50,"y":50,"radius":10},
        {"type":"text","x":10,"y":10,"text":"Atom","animation":{"type":"write","duration":1.5}},
        {"type":"icon","name":"atom","size":48}
      ]
    },
    {
      "title": "Orbit",
      "tts_text": "Electrons orbit the nucleus.",
      "text_explanation": "Electron orbit",
      "whiteboard_commands": [
        {"type":"circle","radius":4,"animation":{"type":"orbit","duration":3,"orbit_center":{"x":50,"y":50},"orbit_radius":30}}
      ]
    }
  ]
}`

func TestFromLegacy(t *testing.T) {
	steps, issues, err := ParseCommands([]byte(legacyJSON))
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, steps, 2)

	first := steps[0]
	assert.Equal(t, "Atoms are small.", first.Narration.Text, "text_explanation is the narration fallback")
	require.Len(t, first.Animations, 3)

	// Commands without animation fade in one after another.
	assert.Equal(t, AnimFadeIn, first.Animations[0].Kind)
	assert.Zero(t, first.Animations[0].Delay)
	assert.Equal(t, AnimWrite, first.Animations[1].Kind)
	assert.Equal(t, 1500*time.Millisecond, first.Animations[1].Duration)
	assert.Equal(t, AnimFadeIn, first.Animations[2].Kind)
	assert.Equal(t, time.Second, first.Animations[2].Delay)
	assert.Equal(t, 2, first.Animations[2].Target)

	second := steps[1]
	assert.Equal(t, "Electrons orbit the nucleus.", second.Narration.Text)
	require.Len(t, second.Animations, 1)
	assert.True(t, second.Animations[0].Infinite())
}

func TestLegacyRoundTrip(t *testing.T) {
	steps, _, err := ParseCommands([]byte(legacyJSON))
	require.NoError(t, err)

	data, err := json.Marshal(ToLegacy(steps))
	require.NoError(t, err)

	again, issues, err := ParseCommands(data)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, again, len(steps))
	for i := range steps {
		assert.Equal(t, steps[i].Narration.Text, again[i].Narration.Text)
		assert.Len(t, again[i].Shapes, len(steps[i].Shapes))
		assert.Equal(t, steps[i].Title, again[i].Title)
	}
}

func TestToLegacyKeepsFirstAnimation(t *testing.T) {
	step := Step{
		Shapes: []Shape{Circle{Common: Common{Opacity: 1}, Radius: 5}},
		Animations: []AnimationInstruction{
			{Target: 0, Kind: AnimScale, Duration: time.Second},
			{Target: 0, Kind: AnimRotate, Duration: time.Second},
		},
	}
	legacy := ToLegacy([]Step{step})
	require.Len(t, legacy.TeachingSequence, 1)
	cmd := legacy.TeachingSequence[0].WhiteboardCommands[0]
	require.NotNil(t, cmd.Animation)
	assert.Equal(t, "scale", cmd.Animation.Type)
	assert.Nil(t, cmd.Animation.ShapeIndex)
}

func TestParseCommandsForms(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		steps int
	}{
		{"null", `null`, 0},
		{"array", `[{"shapes":[]},{"whiteboard_commands":[]}]`, 2},
		{"lesson", `{"title":"x","steps":[{"shapes":[]}]}`, 1},
		{"legacy steps key", `{"teaching_steps":[{"whiteboard_commands":[]}]}`, 1},
		{"single", `{"shapes":[{"type":"rect"}]}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, _, err := ParseCommands([]byte(tt.data))
			require.NoError(t, err)
			assert.Len(t, steps, tt.steps)
		})
	}

	_, _, err := ParseCommands([]byte(`{broken`))
	assert.Error(t, err)
}

func TestParseCommandsSkipsBrokenEntries(t *testing.T) {
	steps, issues, err := ParseCommands([]byte(`[{"shapes":[]}, 42, {"shapes":[]}]`))
	require.NoError(t, err)
	assert.Len(t, steps, 2)
	require.Len(t, issues, 1)
	assert.Equal(t, "command", issues[0].Element)
}

func TestWriteReadLesson(t *testing.T) {
	steps, _, err := ParseCommands([]byte(legacyJSON))
	require.NoError(t, err)
	lesson := &Lesson{Title: "Atoms", Steps: steps}

	for _, name := range []string{"lesson.yaml", "lesson.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteLesson(lesson, path))

			got, issues, err := ReadLesson(path)
			require.NoError(t, err)
			assert.Empty(t, issues)
			assert.Equal(t, "Atoms", got.Title)
			require.Len(t, got.Steps, 2)
			assert.Equal(t, lesson.Steps[1].Animations[0].OrbitRadius, got.Steps[1].Animations[0].OrbitRadius)
			assert.Equal(t, lesson.Steps[0].Narration.Text, got.Steps[0].Narration.Text)
		})
	}
}

func TestReadLessonEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: nothing\nsteps: []\n"), 0644))

	_, _, err := ReadLesson(path)
	assert.ErrorIs(t, err, ErrEmptyLesson)
}
