package renderer

import (
	"math"
	"regexp"
	"strconv"

	"github.com/ivlev/lessonboard/internal/scene"
)

// Primitive is the drawing primitive an element is emitted as.
type Primitive string

const (
	PrimCircle   Primitive = "circle"
	PrimRect     Primitive = "rect"
	PrimPolyline Primitive = "polyline"
	PrimArrow    Primitive = "arrow"
	PrimPolygon  Primitive = "polygon"
	PrimPath     Primitive = "path"
	PrimText     Primitive = "text"
	PrimImage    Primitive = "image"
)

// Element is a retained drawable. The animation scheduler mutates the
// animatable fields in place; geometry is fixed at render time except when
// an image placeholder is resolved.
type Element struct {
	Primitive  Primitive
	ShapeIndex int

	// Animatable.
	X, Y         float64
	Rotation     float64
	Opacity      float64
	ScaleX       float64
	ScaleY       float64
	Dash         []float64
	DashOffset   float64
	ShadowBlur   float64
	ShadowColor  string
	VisibleChars int // -1 shows the whole text

	// Geometry.
	Radius        float64
	Width         float64
	Height        float64
	CornerRadius  float64
	Points        scene.Points
	Closed        bool
	PathData      string
	PathScale     float64
	PointerLength float64
	PointerWidth  float64

	// Style.
	Fill        string
	Stroke      string
	StrokeWidth float64

	// Text.
	Content    string
	FontSize   float64
	FontFamily string
	Align      string
	TextWidth  float64

	// Image.
	Href        string
	Placeholder bool
	Label       string
}

func newElement(p Primitive, shapeIndex int, c scene.Common) *Element {
	return &Element{
		Primitive:    p,
		ShapeIndex:   shapeIndex,
		X:            c.X,
		Y:            c.Y,
		Rotation:     c.Rotation,
		Opacity:      c.Opacity,
		ScaleX:       1,
		ScaleY:       1,
		VisibleChars: -1,
		PathScale:    1,
	}
}

func (e *Element) applyPaint(p scene.Paint) {
	e.Fill = p.Fill
	e.Stroke = p.Stroke
	e.StrokeWidth = p.StrokeWidth
	if scene.ValidDash(p.Dash) {
		e.Dash = append([]float64(nil), p.Dash...)
	}
}

// Strokable reports whether the element is drawn as an open or closed line
// whose stroke can be revealed progressively.
func (e *Element) Strokable() bool {
	switch e.Primitive {
	case PrimPolyline, PrimArrow, PrimPolygon, PrimPath:
		return true
	}
	return false
}

// Length returns the outline length in local units. For paths it is
// approximated from the coordinates in the path data.
func (e *Element) Length() float64 {
	switch e.Primitive {
	case PrimPolyline, PrimArrow:
		return e.Points.Length(false)
	case PrimPolygon:
		return e.Points.Length(e.Closed)
	case PrimPath:
		return pathLength(e.PathData) * e.PathScale
	case PrimCircle:
		return 2 * math.Pi * e.Radius
	case PrimRect, PrimImage:
		return 2 * (e.Width + e.Height)
	}
	return 0
}

// Runes returns the number of characters of a text element.
func (e *Element) Runes() int {
	return len([]rune(e.Content))
}

// VisibleText returns the revealed part of the text.
func (e *Element) VisibleText() string {
	if e.VisibleChars < 0 {
		return e.Content
	}
	r := []rune(e.Content)
	if e.VisibleChars >= len(r) {
		return e.Content
	}
	return string(r[:e.VisibleChars])
}

var pathNumber = regexp.MustCompile(`[-+]?(?:\d*\.\d+|\d+\.?)(?:[eE][-+]?\d+)?`)

// pathLength treats consecutive number pairs in d as polyline vertices.
// Relative commands and curves are not resolved.
func pathLength(d string) float64 {
	var pts scene.Points
	for _, m := range pathNumber.FindAllString(d, -1) {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		pts = append(pts, v)
	}
	if len(pts)%2 == 1 {
		pts = pts[:len(pts)-1]
	}
	return pts.Length(false)
}
