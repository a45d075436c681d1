package scene

import (
	"fmt"
	"time"
)

// AnimationKind identifies an animation instruction.
type AnimationKind string

const (
	AnimFadeIn  AnimationKind = "fadeIn"
	AnimFadeOut AnimationKind = "fadeOut"
	AnimScale   AnimationKind = "scale"
	AnimMove    AnimationKind = "move"
	AnimRotate  AnimationKind = "rotate"
	AnimPulse   AnimationKind = "pulse"
	AnimGlow    AnimationKind = "glow"
	AnimDraw    AnimationKind = "draw"
	AnimWrite   AnimationKind = "write"
	AnimOrbit   AnimationKind = "orbit"
)

// RepeatForever marks an instruction that loops until its step is torn down.
const RepeatForever = -1

// Vec is a 2D point.
type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Props is a set of named numeric properties (x, y, scale, rotation,
// opacity, shadowBlur, ...).
type Props map[string]float64

// Get returns the named property or def when absent.
func (p Props) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Has reports whether the property is present.
func (p Props) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// AnimationInstruction is a timed property transition applied to one shape.
type AnimationInstruction struct {
	Target      int
	Kind        AnimationKind
	Delay       time.Duration
	Duration    time.Duration
	Ease        string
	Repeat      int // additional iterations, RepeatForever loops
	Yoyo        bool
	From        Props
	To          Props
	OrbitCenter *Vec
	OrbitRadius float64
	Color       string
}

// Infinite reports whether the instruction never finishes on its own.
func (a AnimationInstruction) Infinite() bool { return a.Repeat < 0 }

// End returns the offset from the start of the step timeline at which a
// finite instruction finishes.
func (a AnimationInstruction) End() time.Duration {
	if a.Infinite() {
		return 0
	}
	return a.Delay + a.Duration*time.Duration(a.Repeat+1)
}

// Narration is the spoken part of a step.
type Narration struct {
	Text         string
	Voice        string
	SpeakingRate float64
	Pitch        float64
}

// Step is one unit of a teaching sequence.
type Step struct {
	Title             string
	Shapes            []Shape
	Animations        []AnimationInstruction
	Narration         Narration
	EstimatedDuration time.Duration
}

// Lesson is an ordered list of steps.
type Lesson struct {
	Title string
	Steps []Step
}

// Issue describes a malformed element that was skipped or corrected while
// decoding. Issues are informational; decoding never fails because of them.
type Issue struct {
	Step    int
	Element string
	Index   int
	Reason  string
}

func (i Issue) String() string {
	return fmt.Sprintf("step %d %s %d: %s", i.Step, i.Element, i.Index, i.Reason)
}

// CheckTargets reports animation instructions whose target index does not
// exist in the step.
func (s Step) CheckTargets(stepIndex int) []Issue {
	var issues []Issue
	for i, a := range s.Animations {
		if a.Target < 0 || a.Target >= len(s.Shapes) {
			issues = append(issues, Issue{
				Step:    stepIndex,
				Element: "animation",
				Index:   i,
				Reason:  fmt.Sprintf("target %d out of range [0,%d)", a.Target, len(s.Shapes)),
			})
		}
	}
	return issues
}
