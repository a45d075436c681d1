package renderer

import (
	"context"
	"log/slog"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/scene"
	"github.com/ivlev/lessonboard/internal/source"
)

const (
	defaultFontSize    = 16.0
	defaultPointer     = 10.0
	defaultIconSize    = 48.0
	placeholderWidth   = 200.0
	placeholderHeight  = 150.0
	placeholderLabel   = "Loading…"
	placeholderFill    = "#f5f5f5"
	placeholderOutline = "#bbbbbb"
)

// Canvas describes the drawing surface.
type Canvas struct {
	Width      float64
	Height     float64
	Background string
}

// ImageLoader resolves image references asynchronously. Implementations
// must be safe for concurrent use.
type ImageLoader interface {
	Load(ctx context.Context, ref string) (source.ImageInfo, error)
}

type renderFunc func(r *Renderer, index int, s scene.Shape) *Element

// renderers is the per-kind dispatch table. Kinds without an entry produce
// no element.
var renderers = map[scene.Kind]renderFunc{
	scene.KindCircle:    renderCircle,
	scene.KindRectangle: renderRectangle,
	scene.KindPolyline:  renderPolyline,
	scene.KindArrow:     renderArrow,
	scene.KindText:      renderText,
	scene.KindImage:     renderImage,
	scene.KindIcon:      renderIcon,
	scene.KindPolygon:   renderPolygon,
	scene.KindPath:      renderPath,
}

// Renderer turns shapes into retained elements. It must be used from the
// event loop goroutine.
type Renderer struct {
	loop   *eventloop.Loop
	images ImageLoader
	canvas Canvas
	face   font.Face
	log    *slog.Logger
}

func New(loop *eventloop.Loop, images ImageLoader, canvas Canvas, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		loop:   loop,
		images: images,
		canvas: canvas,
		face:   basicfont.Face7x13,
		log:    log.With("component", "renderer"),
	}
}

// Render creates a fresh arena holding one element per recognised shape, in
// array order. Unknown shapes are skipped with a warning; images start as
// placeholders and are swapped in place once loaded.
func (r *Renderer) Render(shapes []scene.Shape) (*Arena, []Handle) {
	arena := newArena(r.canvas)
	handles := make([]Handle, 0, len(shapes))

	for i, s := range shapes {
		if s == nil {
			r.log.Warn("skipping empty shape", "index", i)
			continue
		}
		fn, ok := renderers[s.Kind()]
		if !ok {
			name := string(s.Kind())
			if u, isUnknown := s.(scene.UnknownShape); isUnknown {
				name = u.Type
			}
			r.log.Warn("skipping unknown shape", "index", i, "type", name)
			continue
		}
		h := arena.add(fn(r, i, s))
		handles = append(handles, h)

		if img, isImage := s.(scene.Image); isImage {
			r.loadImage(arena, h, img)
		}
	}
	return arena, handles
}

func (r *Renderer) loadImage(arena *Arena, h Handle, img scene.Image) {
	if r.images == nil {
		r.log.Warn("no image loader, keeping placeholder", "index", h.ShapeIndex, "src", img.SourceRef)
		return
	}
	ctx := arena.ctx
	go func() {
		info, err := r.images.Load(ctx, img.SourceRef)
		r.loop.Post(func() {
			el := arena.Element(h)
			if el == nil {
				return
			}
			if err != nil {
				r.log.Warn("image load failed, keeping placeholder", "index", h.ShapeIndex, "src", img.SourceRef, "error", err)
				return
			}
			resolveImage(el, img, info)
		})
	}()
}

// resolveImage turns a placeholder into the loaded image. Animated
// properties are left untouched.
func resolveImage(el *Element, img scene.Image, info source.ImageInfo) {
	w, h := img.Width, img.Height
	switch {
	case w > 0 && h > 0:
	case w > 0 && info.Width > 0:
		h = w * info.Height / info.Width
	case h > 0 && info.Height > 0:
		w = h * info.Width / info.Height
	default:
		w, h = info.Width, info.Height
	}
	el.Width, el.Height = w, h
	el.Href = info.Href
	el.Placeholder = false
	el.Label = ""
	el.Fill, el.Stroke, el.StrokeWidth = "", "", 0
	el.Dash = nil
}

func renderCircle(_ *Renderer, i int, s scene.Shape) *Element {
	c := s.(scene.Circle)
	e := newElement(PrimCircle, i, c.Common)
	e.applyPaint(c.Paint)
	e.Radius = c.Radius
	return e
}

func renderRectangle(_ *Renderer, i int, s scene.Shape) *Element {
	rc := s.(scene.Rectangle)
	e := newElement(PrimRect, i, rc.Common)
	e.applyPaint(rc.Paint)
	e.Width, e.Height, e.CornerRadius = rc.Width, rc.Height, rc.CornerRadius
	return e
}

func renderPolyline(_ *Renderer, i int, s scene.Shape) *Element {
	p := s.(scene.Polyline)
	e := newElement(PrimPolyline, i, p.Common)
	e.applyPaint(p.Paint)
	e.Points = append(scene.Points(nil), p.Points...)
	return e
}

func renderArrow(_ *Renderer, i int, s scene.Shape) *Element {
	a := s.(scene.Arrow)
	e := newElement(PrimArrow, i, a.Common)
	e.applyPaint(a.Paint)
	e.Dash = nil
	e.Points = append(scene.Points(nil), a.Points...)
	e.PointerLength = orDefaultF(a.PointerLength, defaultPointer)
	e.PointerWidth = orDefaultF(a.PointerWidth, defaultPointer)
	return e
}

func renderText(r *Renderer, i int, s scene.Shape) *Element {
	t := s.(scene.Text)
	e := newElement(PrimText, i, t.Common)
	e.Content = t.Content
	e.FontSize = orDefaultF(t.FontSize, defaultFontSize)
	e.FontFamily = t.FontFamily
	e.Fill = t.Fill
	e.Align = t.Align
	e.TextWidth = r.measure(t.Content, e.FontSize)
	return e
}

func renderImage(_ *Renderer, i int, s scene.Shape) *Element {
	img := s.(scene.Image)
	e := newElement(PrimImage, i, img.Common)
	e.Width = orDefaultF(img.Width, placeholderWidth)
	e.Height = orDefaultF(img.Height, placeholderHeight)
	e.Placeholder = true
	e.Label = placeholderLabel
	e.Fill = placeholderFill
	e.Stroke = placeholderOutline
	e.StrokeWidth = 1
	e.Dash = []float64{6, 4}
	return e
}

func renderIcon(r *Renderer, i int, s scene.Shape) *Element {
	ic := s.(scene.Icon)
	e := newElement(PrimPath, i, ic.Common)
	d, found := lookupIcon(ic.Name)
	if !found {
		r.log.Warn("unknown icon, using default", "index", i, "name", ic.Name)
	}
	e.PathData = d
	e.PathScale = orDefaultF(ic.Size, defaultIconSize) / iconViewBox
	e.Fill = orDefault(ic.Color, "#333333")
	return e
}

func renderPolygon(_ *Renderer, i int, s scene.Shape) *Element {
	p := s.(scene.Polygon)
	e := newElement(PrimPolygon, i, p.Common)
	e.applyPaint(p.Paint)
	e.Points = append(scene.Points(nil), p.Points...)
	e.Closed = p.Closed
	return e
}

func renderPath(_ *Renderer, i int, s scene.Shape) *Element {
	p := s.(scene.Path)
	e := newElement(PrimPath, i, p.Common)
	e.applyPaint(p.Paint)
	e.PathData = p.Data
	return e
}

// measure returns the advance width of s at the given font size, scaled
// from the fixed 7x13 face.
func (r *Renderer) measure(s string, size float64) float64 {
	adv := font.MeasureString(r.face, s)
	height := float64(r.face.Metrics().Height) / 64
	if height <= 0 {
		height = 13
	}
	return float64(adv) / 64 * size / height
}

func orDefaultF(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
