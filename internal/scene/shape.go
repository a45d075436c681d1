package scene

import (
	"math"
)

// Kind identifies a shape variant.
type Kind string

const (
	KindCircle    Kind = "circle"
	KindRectangle Kind = "rectangle"
	KindPolyline  Kind = "polyline"
	KindArrow     Kind = "arrow"
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindIcon      Kind = "icon"
	KindPolygon   Kind = "polygon"
	KindPath      Kind = "path"
	KindUnknown   Kind = "unknown"
)

// kindAliases maps wire type tags onto variants.
var kindAliases = map[string]Kind{
	"circle":    KindCircle,
	"rectangle": KindRectangle,
	"rect":      KindRectangle,
	"polyline":  KindPolyline,
	"line":      KindPolyline,
	"arrow":     KindArrow,
	"text":      KindText,
	"image":     KindImage,
	"icon":      KindIcon,
	"polygon":   KindPolygon,
	"path":      KindPath,
}

// ParseKind resolves a wire type tag. Unrecognised tags yield KindUnknown.
func ParseKind(tag string) Kind {
	if k, ok := kindAliases[tag]; ok {
		return k
	}
	return KindUnknown
}

// Shape is a declarative drawable primitive. The set of implementations is
// closed: Circle, Rectangle, Polyline, Arrow, Text, Image, Icon, Polygon,
// Path and UnknownShape.
type Shape interface {
	Kind() Kind
	Base() Common
	isShape()
}

// Common holds the fields every shape carries.
type Common struct {
	X        float64
	Y        float64
	Rotation float64 // degrees
	Opacity  float64
}

// Paint is the fill/stroke style shared by outlined shapes.
type Paint struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Dash        []float64
}

// Points is a flat coordinate list: x0, y0, x1, y1, ...
type Points []float64

// Pairs returns the number of complete coordinate pairs.
func (p Points) Pairs() int { return len(p) / 2 }

// At returns the i-th coordinate pair.
func (p Points) At(i int) (x, y float64) { return p[2*i], p[2*i+1] }

// Length returns the polyline length, including the closing segment when
// closed is set.
func (p Points) Length(closed bool) float64 {
	n := p.Pairs()
	if n < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < n; i++ {
		x0, y0 := p.At(i - 1)
		x1, y1 := p.At(i)
		total += math.Hypot(x1-x0, y1-y0)
	}
	if closed {
		x0, y0 := p.At(n - 1)
		x1, y1 := p.At(0)
		total += math.Hypot(x1-x0, y1-y0)
	}
	return total
}

type Circle struct {
	Common
	Paint
	Radius float64
}

type Rectangle struct {
	Common
	Paint
	Width        float64
	Height       float64
	CornerRadius float64
}

type Polyline struct {
	Common
	Paint
	Points Points
}

type Arrow struct {
	Common
	Paint
	Points        Points
	PointerLength float64
	PointerWidth  float64
}

type Text struct {
	Common
	Content    string
	FontSize   float64
	FontFamily string
	Fill       string
	Align      string
}

// Image references a bitmap resolved asynchronously by the renderer.
type Image struct {
	Common
	SourceRef string
	Width     float64
	Height    float64
}

// Icon names an entry of the bundled vector icon library.
type Icon struct {
	Common
	Name  string
	Size  float64
	Color string
}

type Polygon struct {
	Common
	Paint
	Points Points
	Closed bool
}

type Path struct {
	Common
	Paint
	Data string
}

// UnknownShape keeps the slot of a shape whose type was not recognised so
// animation target indices stay aligned with the payload.
type UnknownShape struct {
	Common
	Type string
}

func (Circle) Kind() Kind       { return KindCircle }
func (Rectangle) Kind() Kind    { return KindRectangle }
func (Polyline) Kind() Kind     { return KindPolyline }
func (Arrow) Kind() Kind        { return KindArrow }
func (Text) Kind() Kind         { return KindText }
func (Image) Kind() Kind        { return KindImage }
func (Icon) Kind() Kind         { return KindIcon }
func (Polygon) Kind() Kind      { return KindPolygon }
func (Path) Kind() Kind         { return KindPath }
func (UnknownShape) Kind() Kind { return KindUnknown }

func (s Circle) Base() Common       { return s.Common }
func (s Rectangle) Base() Common    { return s.Common }
func (s Polyline) Base() Common     { return s.Common }
func (s Arrow) Base() Common        { return s.Common }
func (s Text) Base() Common         { return s.Common }
func (s Image) Base() Common        { return s.Common }
func (s Icon) Base() Common         { return s.Common }
func (s Polygon) Base() Common      { return s.Common }
func (s Path) Base() Common         { return s.Common }
func (s UnknownShape) Base() Common { return s.Common }

func (Circle) isShape()       {}
func (Rectangle) isShape()    {}
func (Polyline) isShape()     {}
func (Arrow) isShape()        {}
func (Text) isShape()         {}
func (Image) isShape()        {}
func (Icon) isShape()         {}
func (Polygon) isShape()      {}
func (Path) isShape()         {}
func (UnknownShape) isShape() {}

// ValidDash reports whether d may be handed to a renderer: a non-empty list
// of finite, non-negative numbers.
func ValidDash(d []float64) bool {
	if len(d) == 0 {
		return false
	}
	for _, v := range d {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SanitizeDash converts an arbitrary decoded dash value into a dash list.
// It returns nil for anything that is not a valid dash array.
func SanitizeDash(v any) []float64 {
	var out []float64
	switch d := v.(type) {
	case nil:
		return nil
	case []float64:
		out = append(out, d...)
	case []any:
		for _, e := range d {
			f, ok := toFloat(e)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
	default:
		return nil
	}
	if !ValidDash(out) {
		return nil
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
