package renderer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/scene"
	"github.com/ivlev/lessonboard/internal/source"
)

type fakeLoader struct {
	info  source.ImageInfo
	err   error
	block bool
}

func (f *fakeLoader) Load(ctx context.Context, ref string) (source.ImageInfo, error) {
	if f.block {
		<-ctx.Done()
		return source.ImageInfo{}, ctx.Err()
	}
	return f.info, f.err
}

func newTestRenderer(loader ImageLoader) (*Renderer, *eventloop.Loop) {
	loop := eventloop.NewVirtual(time.Unix(0, 0))
	return New(loop, loader, Canvas{Width: 800, Height: 600, Background: "#fff"}, nil), loop
}

func visible() scene.Common { return scene.Common{Opacity: 1} }

// waitPosted blocks until a background goroutine has posted to the loop and
// then drains it.
func waitPosted(t *testing.T, loop *eventloop.Loop) {
	t.Helper()
	require.Eventually(t, func() bool {
		tasks, _ := loop.Pending()
		return tasks > 0
	}, time.Second, time.Millisecond)
	loop.RunUntilIdle()
}

func TestRenderHandleOrder(t *testing.T) {
	r, _ := newTestRenderer(nil)
	shapes := []scene.Shape{
		scene.Circle{Common: visible(), Radius: 10},
		scene.UnknownShape{Common: visible(), Type: "hexagon"},
		scene.Text{Common: visible(), Content: "H2O"},
		scene.Rectangle{Common: visible(), Width: 4, Height: 2},
		nil,
		scene.Polygon{Common: visible(), Points: scene.Points{0, 0, 1, 0, 1, 1}, Closed: true},
	}

	arena, handles := r.Render(shapes)
	require.Len(t, handles, 4)

	var indices []int
	for _, h := range handles {
		indices = append(indices, h.ShapeIndex)
	}
	assert.Equal(t, []int{0, 2, 3, 5}, indices)
	assert.Equal(t, handles, arena.Handles())

	_, ok := arena.Lookup(1)
	assert.False(t, ok, "unknown shape has no handle")
	h, ok := arena.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, PrimText, arena.Element(h).Primitive)
}

func TestRenderDropsInvalidDash(t *testing.T) {
	r, _ := newTestRenderer(nil)
	arena, handles := r.Render([]scene.Shape{
		scene.Circle{Common: visible(), Paint: scene.Paint{Stroke: "#000", Dash: []float64{4, -1}}, Radius: 5},
		scene.Polyline{Common: visible(), Paint: scene.Paint{Stroke: "#000", Dash: []float64{}}, Points: scene.Points{0, 0, 5, 5}},
		scene.Rectangle{Common: visible(), Paint: scene.Paint{Stroke: "#000", Dash: []float64{3, 1}}, Width: 1, Height: 1},
	})
	require.Len(t, handles, 3)
	assert.Nil(t, arena.Element(handles[0]).Dash)
	assert.Nil(t, arena.Element(handles[1]).Dash)
	assert.Equal(t, []float64{3, 1}, arena.Element(handles[2]).Dash)
	assert.NotContains(t, strings.Split(arena.SVG(), "\n")[2], "dasharray")
}

func TestImagePlaceholderReplacedInPlace(t *testing.T) {
	loader := &fakeLoader{info: source.ImageInfo{Href: "data:image/png;base64,AA==", Width: 400, Height: 200, Format: "png"}}
	r, loop := newTestRenderer(loader)

	arena, handles := r.Render([]scene.Shape{scene.Image{Common: visible(), SourceRef: "cell.png", Width: 100}})
	require.Len(t, handles, 1)
	el := arena.Element(handles[0])
	require.True(t, el.Placeholder)
	assert.Contains(t, arena.SVG(), placeholderLabel)

	// An animation already touched the placeholder.
	el.Opacity = 0.4
	el.ScaleX = 1.5

	waitPosted(t, loop)

	same := arena.Element(handles[0])
	assert.Same(t, el, same)
	assert.False(t, same.Placeholder)
	assert.Equal(t, "data:image/png;base64,AA==", same.Href)
	assert.Equal(t, 100.0, same.Width)
	assert.Equal(t, 50.0, same.Height, "aspect ratio follows the image")
	assert.Equal(t, 0.4, same.Opacity)
	assert.Equal(t, 1.5, same.ScaleX)
	assert.Contains(t, arena.SVG(), "<image")
}

func TestImageFailureKeepsPlaceholder(t *testing.T) {
	r, loop := newTestRenderer(&fakeLoader{err: errors.New("404")})
	arena, handles := r.Render([]scene.Shape{scene.Image{Common: visible(), SourceRef: "missing.png"}})

	waitPosted(t, loop)

	el := arena.Element(handles[0])
	require.NotNil(t, el)
	assert.True(t, el.Placeholder)
	assert.Equal(t, placeholderWidth, el.Width)
}

func TestDisposeCancelsImageLoad(t *testing.T) {
	r, loop := newTestRenderer(&fakeLoader{block: true})
	arena, handles := r.Render([]scene.Shape{scene.Image{Common: visible(), SourceRef: "slow.png"}})

	arena.Dispose()
	arena.Dispose()
	waitPosted(t, loop)

	assert.Nil(t, arena.Element(handles[0]))
	assert.True(t, arena.Disposed())
	assert.Zero(t, arena.Len())
	_, ok := arena.Lookup(0)
	assert.False(t, ok)
}

func TestIconFallback(t *testing.T) {
	r, _ := newTestRenderer(nil)
	arena, handles := r.Render([]scene.Shape{
		scene.Icon{Common: visible(), Name: "lightbulb", Size: 48},
		scene.Icon{Common: visible(), Name: "unicorn"},
	})
	require.Len(t, handles, 2)
	assert.Equal(t, icons["lightbulb"], arena.Element(handles[0]).PathData)
	assert.Equal(t, 2.0, arena.Element(handles[0]).PathScale)
	assert.Equal(t, icons[defaultIcon], arena.Element(handles[1]).PathData)
}

func TestTextAlignment(t *testing.T) {
	r, _ := newTestRenderer(nil)
	arena, handles := r.Render([]scene.Shape{
		scene.Text{Common: visible(), Content: "abcd", FontSize: 26, Align: "center"},
		scene.Text{Common: visible(), Content: "abcd", Align: "right"},
	})
	centered := arena.Element(handles[0])
	// 4 glyphs of the 7x13 face at twice the size.
	assert.InDelta(t, 56.0, centered.TextWidth, 1e-9)
	assert.Equal(t, -28.0, textOffset(centered))

	right := arena.Element(handles[1])
	assert.Equal(t, defaultFontSize, right.FontSize)
	assert.Equal(t, -right.TextWidth, textOffset(right))
	assert.Contains(t, arena.SVG(), `<text x="-28"`)
}

func TestVisibleText(t *testing.T) {
	e := &Element{Content: "атом", VisibleChars: -1}
	assert.Equal(t, "атом", e.VisibleText())
	e.VisibleChars = 2
	assert.Equal(t, "ат", e.VisibleText())
	e.VisibleChars = 10
	assert.Equal(t, "атом", e.VisibleText())
	assert.Equal(t, 4, e.Runes())
}

func TestElementLength(t *testing.T) {
	poly := &Element{Primitive: PrimPolygon, Points: scene.Points{0, 0, 3, 0, 3, 4}, Closed: true}
	assert.Equal(t, 12.0, poly.Length())
	path := &Element{Primitive: PrimPath, PathData: "M0 0 L3 4 L6 0", PathScale: 2}
	assert.Equal(t, 20.0, path.Length())
	assert.True(t, path.Strokable())
	assert.False(t, (&Element{Primitive: PrimCircle}).Strokable())
}

func TestSVGDocument(t *testing.T) {
	r, _ := newTestRenderer(nil)
	arena, handles := r.Render([]scene.Shape{
		scene.Circle{Common: scene.Common{X: 10, Y: 20, Opacity: 1}, Paint: scene.Paint{Fill: "#f00"}, Radius: 5},
		scene.Arrow{Common: visible(), Paint: scene.Paint{Stroke: "#00f"}, Points: scene.Points{0, 0, 100, 0}},
		scene.Text{Common: visible(), Content: "a < b"},
	})
	arena.Element(handles[0]).ShadowBlur = 20
	arena.Element(handles[0]).ShadowColor = "#ffd54f"

	svg := arena.SVG()
	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600"`))
	assert.Contains(t, svg, `translate(10 20)`)
	assert.Contains(t, svg, `<circle r="5" fill="#f00"/>`)
	assert.Contains(t, svg, `filter="url(#glow-0)"`)
	assert.Contains(t, svg, `flood-color="#ffd54f"`)
	assert.Contains(t, svg, `<polygon points="100 0 90 5 90 -5"`)
	assert.Contains(t, svg, "a &lt; b")

	arena.Dispose()
	assert.NotContains(t, arena.SVG(), "<circle")
}
