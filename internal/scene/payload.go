package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKind is reported for shapes and animations with an unrecognised type.
var ErrUnknownKind = errors.New("unknown kind")

// ShapePayload is the wire form of a shape (and of a legacy whiteboard
// command, which may carry a nested animation).
//
// Decoding never fails: a payload that cannot be decoded keeps its type tag
// (when readable) and remembers the error, and is turned into an
// UnknownShape by Decode.
type ShapePayload struct {
	Type          string            `json:"type" yaml:"type"`
	X             float64           `json:"x,omitempty" yaml:"x,omitempty"`
	Y             float64           `json:"y,omitempty" yaml:"y,omitempty"`
	Rotation      float64           `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Opacity       *float64          `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Radius        float64           `json:"radius,omitempty" yaml:"radius,omitempty"`
	Width         float64           `json:"width,omitempty" yaml:"width,omitempty"`
	Height        float64           `json:"height,omitempty" yaml:"height,omitempty"`
	CornerRadius  float64           `json:"corner_radius,omitempty" yaml:"corner_radius,omitempty"`
	Fill          string            `json:"fill,omitempty" yaml:"fill,omitempty"`
	Stroke        string            `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	StrokeWidth   float64           `json:"stroke_width,omitempty" yaml:"stroke_width,omitempty"`
	Dash          any               `json:"dash,omitempty" yaml:"dash,omitempty"`
	Points        []float64         `json:"points,omitempty" yaml:"points,omitempty"`
	PointerLength float64           `json:"pointer_length,omitempty" yaml:"pointer_length,omitempty"`
	PointerWidth  float64           `json:"pointer_width,omitempty" yaml:"pointer_width,omitempty"`
	Text          string            `json:"text,omitempty" yaml:"text,omitempty"`
	Content       string            `json:"content,omitempty" yaml:"content,omitempty"`
	FontSize      float64           `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	FontFamily    string            `json:"font_family,omitempty" yaml:"font_family,omitempty"`
	Align         string            `json:"align,omitempty" yaml:"align,omitempty"`
	Src           string            `json:"src,omitempty" yaml:"src,omitempty"`
	Name          string            `json:"name,omitempty" yaml:"name,omitempty"`
	Size          float64           `json:"size,omitempty" yaml:"size,omitempty"`
	Color         string            `json:"color,omitempty" yaml:"color,omitempty"`
	Closed        *bool             `json:"closed,omitempty" yaml:"closed,omitempty"`
	Data          string            `json:"data,omitempty" yaml:"data,omitempty"`
	Animation     *AnimationPayload `json:"animation,omitempty" yaml:"animation,omitempty"`

	err error
}

// AnimationPayload is the wire form of an animation instruction.
type AnimationPayload struct {
	ShapeIndex  *int     `json:"shape_index,omitempty" yaml:"shape_index,omitempty"`
	Type        string   `json:"type" yaml:"type"`
	Delay       float64  `json:"delay,omitempty" yaml:"delay,omitempty"`
	Duration    float64  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Ease        string   `json:"ease,omitempty" yaml:"ease,omitempty"`
	Repeat      *int     `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Yoyo        *bool    `json:"yoyo,omitempty" yaml:"yoyo,omitempty"`
	From        Props    `json:"from,omitempty" yaml:"from,omitempty"`
	To          Props    `json:"to,omitempty" yaml:"to,omitempty"`
	OrbitCenter *Vec     `json:"orbit_center,omitempty" yaml:"orbit_center,omitempty"`
	OrbitRadius *float64 `json:"orbit_radius,omitempty" yaml:"orbit_radius,omitempty"`
	Color       string   `json:"color,omitempty" yaml:"color,omitempty"`

	err error
}

// TTSConfig is the voice configuration attached to narration.
type TTSConfig struct {
	Voice        string  `json:"voice,omitempty" yaml:"voice,omitempty"`
	SpeakingRate float64 `json:"speaking_rate,omitempty" yaml:"speaking_rate,omitempty"`
	Pitch        float64 `json:"pitch,omitempty" yaml:"pitch,omitempty"`
}

// AudioPayload is the wire form of narration.
type AudioPayload struct {
	Text      string     `json:"text" yaml:"text"`
	TTSConfig *TTSConfig `json:"tts_config,omitempty" yaml:"tts_config,omitempty"`
}

// StepPayload is the wire form of a step.
type StepPayload struct {
	Title      string             `json:"title,omitempty" yaml:"title,omitempty"`
	Shapes     []ShapePayload     `json:"shapes" yaml:"shapes"`
	Animations []AnimationPayload `json:"animations,omitempty" yaml:"animations,omitempty"`
	Audio      *AudioPayload      `json:"audio,omitempty" yaml:"audio,omitempty"`
	Duration   float64            `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// LessonPayload is the wire form of a lesson file.
type LessonPayload struct {
	Title string        `json:"title,omitempty" yaml:"title,omitempty"`
	Steps []StepPayload `json:"steps" yaml:"steps"`
}

func (p *ShapePayload) UnmarshalJSON(data []byte) error {
	type plain ShapePayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*p = ShapePayload{Type: probeJSONType(data), err: err}
		return nil
	}
	*p = ShapePayload(v)
	return nil
}

func (p *ShapePayload) UnmarshalYAML(node *yaml.Node) error {
	type plain ShapePayload
	var v plain
	if err := node.Decode(&v); err != nil {
		*p = ShapePayload{Type: probeYAMLType(node), err: err}
		return nil
	}
	*p = ShapePayload(v)
	return nil
}

func (p *AnimationPayload) UnmarshalJSON(data []byte) error {
	type plain AnimationPayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*p = AnimationPayload{Type: probeJSONType(data), err: err}
		return nil
	}
	*p = AnimationPayload(v)
	return nil
}

func (p *AnimationPayload) UnmarshalYAML(node *yaml.Node) error {
	type plain AnimationPayload
	var v plain
	if err := node.Decode(&v); err != nil {
		*p = AnimationPayload{Type: probeYAMLType(node), err: err}
		return nil
	}
	*p = AnimationPayload(v)
	return nil
}

func probeJSONType(data []byte) string {
	var probe struct {
		Type any `json:"type"`
	}
	_ = json.Unmarshal(data, &probe)
	s, _ := probe.Type.(string)
	return s
}

func probeYAMLType(node *yaml.Node) string {
	var probe struct {
		Type any `yaml:"type"`
	}
	_ = node.Decode(&probe)
	s, _ := probe.Type.(string)
	return s
}

func seconds(v float64) time.Duration {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

// DecodeShape converts a wire shape into a Shape. Malformed or unknown
// shapes become UnknownShape and are reported through the returned error.
func DecodeShape(p ShapePayload) (Shape, error) {
	common := Common{X: p.X, Y: p.Y, Rotation: p.Rotation, Opacity: 1}
	if p.Opacity != nil {
		common.Opacity = clamp01(*p.Opacity)
	}
	if p.err != nil {
		return UnknownShape{Common: common, Type: p.Type}, fmt.Errorf("decode %q: %w", p.Type, p.err)
	}

	paint := Paint{Fill: p.Fill, Stroke: p.Stroke, StrokeWidth: p.StrokeWidth, Dash: SanitizeDash(p.Dash)}
	var dashErr error
	if p.Dash != nil && paint.Dash == nil {
		dashErr = fmt.Errorf("invalid dash %v dropped", p.Dash)
	}

	switch ParseKind(p.Type) {
	case KindCircle:
		return Circle{Common: common, Paint: paint, Radius: p.Radius}, dashErr
	case KindRectangle:
		return Rectangle{Common: common, Paint: paint, Width: p.Width, Height: p.Height, CornerRadius: p.CornerRadius}, dashErr
	case KindPolyline:
		return Polyline{Common: common, Paint: paint, Points: evenPoints(p.Points)}, dashErr
	case KindArrow:
		paint.Dash = nil
		return Arrow{Common: common, Paint: paint, Points: evenPoints(p.Points), PointerLength: p.PointerLength, PointerWidth: p.PointerWidth}, nil
	case KindText:
		content := p.Content
		if content == "" {
			content = p.Text
		}
		return Text{Common: common, Content: content, FontSize: p.FontSize, FontFamily: p.FontFamily, Fill: p.Fill, Align: p.Align}, nil
	case KindImage:
		return Image{Common: common, SourceRef: p.Src, Width: p.Width, Height: p.Height}, nil
	case KindIcon:
		return Icon{Common: common, Name: p.Name, Size: p.Size, Color: p.Color}, nil
	case KindPolygon:
		closed := true
		if p.Closed != nil {
			closed = *p.Closed
		}
		return Polygon{Common: common, Paint: paint, Points: evenPoints(p.Points), Closed: closed}, dashErr
	case KindPath:
		return Path{Common: common, Paint: paint, Data: p.Data}, dashErr
	default:
		return UnknownShape{Common: common, Type: p.Type}, fmt.Errorf("shape %q: %w", p.Type, ErrUnknownKind)
	}
}

func evenPoints(p []float64) Points {
	if len(p)%2 == 1 {
		p = p[:len(p)-1]
	}
	return Points(p)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var animationKinds = map[AnimationKind]bool{
	AnimFadeIn: true, AnimFadeOut: true, AnimScale: true, AnimMove: true, AnimRotate: true,
	AnimPulse: true, AnimGlow: true, AnimDraw: true, AnimWrite: true, AnimOrbit: true,
}

// KnownAnimation reports whether k is a supported animation kind.
func KnownAnimation(k AnimationKind) bool { return animationKinds[k] }

// DecodeAnimation converts a wire animation targeting target.
// Instructions of unknown kind keep their kind string and are reported; the
// scheduler skips them.
func DecodeAnimation(p AnimationPayload, target int) (AnimationInstruction, error) {
	a := AnimationInstruction{
		Target:   target,
		Kind:     AnimationKind(p.Type),
		Delay:    seconds(p.Delay),
		Duration: seconds(p.Duration),
		Ease:     p.Ease,
		From:     p.From,
		To:       p.To,
		Color:    p.Color,
	}
	if p.err != nil {
		return a, fmt.Errorf("decode animation %q: %w", p.Type, p.err)
	}

	switch {
	case p.Repeat != nil:
		a.Repeat = *p.Repeat
		if a.Repeat < RepeatForever {
			a.Repeat = RepeatForever
		}
	case a.Kind == AnimPulse:
		a.Repeat = 1
	case a.Kind == AnimOrbit:
		a.Repeat = RepeatForever
	}
	switch {
	case p.Yoyo != nil:
		a.Yoyo = *p.Yoyo
	case a.Kind == AnimPulse:
		a.Yoyo = true
	}
	if p.OrbitCenter != nil {
		c := *p.OrbitCenter
		a.OrbitCenter = &c
	}
	if p.OrbitRadius != nil {
		a.OrbitRadius = *p.OrbitRadius
	}

	if !KnownAnimation(a.Kind) {
		return a, fmt.Errorf("animation %q: %w", p.Type, ErrUnknownKind)
	}
	return a, nil
}

// Decode converts a wire step into a Step. stepIndex is only used to label
// issues.
func (p StepPayload) Decode(stepIndex int) (Step, []Issue) {
	var issues []Issue
	step := Step{Title: p.Title, EstimatedDuration: seconds(p.Duration)}

	for i, sp := range p.Shapes {
		shape, err := DecodeShape(sp)
		if err != nil {
			issues = append(issues, Issue{Step: stepIndex, Element: "shape", Index: i, Reason: err.Error()})
		}
		step.Shapes = append(step.Shapes, shape)
	}

	for i, ap := range p.Animations {
		target := -1
		if ap.ShapeIndex != nil {
			target = *ap.ShapeIndex
		}
		a, err := DecodeAnimation(ap, target)
		if err != nil {
			issues = append(issues, Issue{Step: stepIndex, Element: "animation", Index: i, Reason: err.Error()})
		}
		step.Animations = append(step.Animations, a)
	}
	issues = append(issues, step.CheckTargets(stepIndex)...)

	if p.Audio != nil {
		step.Narration = Narration{Text: p.Audio.Text, SpeakingRate: 1, Pitch: 1}
		if c := p.Audio.TTSConfig; c != nil {
			step.Narration.Voice = c.Voice
			if c.SpeakingRate > 0 {
				step.Narration.SpeakingRate = c.SpeakingRate
			}
			if c.Pitch > 0 {
				step.Narration.Pitch = c.Pitch
			}
		}
	}
	return step, issues
}

// Decode converts a wire lesson into a Lesson.
func (p LessonPayload) Decode() (*Lesson, []Issue) {
	lesson := &Lesson{Title: p.Title}
	var issues []Issue
	for i, sp := range p.Steps {
		step, stepIssues := sp.Decode(i)
		lesson.Steps = append(lesson.Steps, step)
		issues = append(issues, stepIssues...)
	}
	return lesson, issues
}

// EncodeShape converts a Shape back into its wire form.
func EncodeShape(s Shape) ShapePayload {
	c := s.Base()
	p := ShapePayload{X: c.X, Y: c.Y, Rotation: c.Rotation}
	if c.Opacity != 1 {
		op := c.Opacity
		p.Opacity = &op
	}
	paint := func(pt Paint) {
		p.Fill, p.Stroke, p.StrokeWidth = pt.Fill, pt.Stroke, pt.StrokeWidth
		if len(pt.Dash) > 0 {
			p.Dash = append([]float64(nil), pt.Dash...)
		}
	}
	switch v := s.(type) {
	case Circle:
		p.Type, p.Radius = string(KindCircle), v.Radius
		paint(v.Paint)
	case Rectangle:
		p.Type, p.Width, p.Height, p.CornerRadius = string(KindRectangle), v.Width, v.Height, v.CornerRadius
		paint(v.Paint)
	case Polyline:
		p.Type, p.Points = string(KindPolyline), v.Points
		paint(v.Paint)
	case Arrow:
		p.Type, p.Points, p.PointerLength, p.PointerWidth = string(KindArrow), v.Points, v.PointerLength, v.PointerWidth
		paint(v.Paint)
	case Text:
		p.Type, p.Text, p.FontSize, p.FontFamily, p.Fill, p.Align = string(KindText), v.Content, v.FontSize, v.FontFamily, v.Fill, v.Align
	case Image:
		p.Type, p.Src, p.Width, p.Height = string(KindImage), v.SourceRef, v.Width, v.Height
	case Icon:
		p.Type, p.Name, p.Size, p.Color = string(KindIcon), v.Name, v.Size, v.Color
	case Polygon:
		p.Type, p.Points = string(KindPolygon), v.Points
		closed := v.Closed
		p.Closed = &closed
		paint(v.Paint)
	case Path:
		p.Type, p.Data = string(KindPath), v.Data
		paint(v.Paint)
	case UnknownShape:
		p.Type = v.Type
	}
	return p
}

// EncodeAnimation converts an instruction back into its wire form.
// withTarget controls whether shape_index is emitted.
func EncodeAnimation(a AnimationInstruction, withTarget bool) AnimationPayload {
	p := AnimationPayload{
		Type:     string(a.Kind),
		Delay:    a.Delay.Seconds(),
		Duration: a.Duration.Seconds(),
		Ease:     a.Ease,
		From:     a.From,
		To:       a.To,
		Color:    a.Color,
	}
	if withTarget {
		t := a.Target
		p.ShapeIndex = &t
	}
	if a.Repeat != 0 {
		r := a.Repeat
		p.Repeat = &r
	}
	if a.Yoyo {
		y := true
		p.Yoyo = &y
	}
	if a.OrbitCenter != nil {
		c := *a.OrbitCenter
		p.OrbitCenter = &c
	}
	if a.OrbitRadius != 0 {
		r := a.OrbitRadius
		p.OrbitRadius = &r
	}
	return p
}

// EncodeStep converts a Step back into its wire form.
func EncodeStep(s Step) StepPayload {
	p := StepPayload{Title: s.Title, Duration: s.EstimatedDuration.Seconds()}
	for _, sh := range s.Shapes {
		p.Shapes = append(p.Shapes, EncodeShape(sh))
	}
	for _, a := range s.Animations {
		p.Animations = append(p.Animations, EncodeAnimation(a, true))
	}
	if s.Narration.Text != "" {
		p.Audio = &AudioPayload{
			Text: s.Narration.Text,
			TTSConfig: &TTSConfig{
				Voice:        s.Narration.Voice,
				SpeakingRate: s.Narration.SpeakingRate,
				Pitch:        s.Narration.Pitch,
			},
		}
	}
	return p
}

// EncodeLesson converts a Lesson back into its wire form.
func EncodeLesson(l *Lesson) LessonPayload {
	p := LessonPayload{Title: l.Title}
	for _, s := range l.Steps {
		p.Steps = append(p.Steps, EncodeStep(s))
	}
	return p
}
