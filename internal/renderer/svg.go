package renderer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func nums(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return strings.Join(parts, " ")
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func orNone(c string) string {
	if c == "" {
		return "none"
	}
	return c
}

func writeDocument(c Canvas, elems []*Element) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(c.Width), num(c.Height), num(c.Width), num(c.Height))
	buf.WriteString("\n")
	if c.Background != "" {
		fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", escape(c.Background))
	}

	var defs bytes.Buffer
	for i, e := range elems {
		if e.ShadowBlur > 0 {
			color := e.ShadowColor
			if color == "" {
				color = "#000"
			}
			fmt.Fprintf(&defs, `<filter id="glow-%d" x="-50%%" y="-50%%" width="200%%" height="200%%"><feDropShadow dx="0" dy="0" stdDeviation="%s" flood-color="%s"/></filter>`,
				i, num(e.ShadowBlur/2), escape(color))
		}
	}
	if defs.Len() > 0 {
		buf.WriteString("<defs>")
		buf.Write(defs.Bytes())
		buf.WriteString("</defs>\n")
	}

	for i, e := range elems {
		writeElement(&buf, i, e)
	}
	buf.WriteString("</svg>\n")
	return buf.String()
}

func writeElement(buf *bytes.Buffer, slot int, e *Element) {
	fmt.Fprintf(buf, `<g data-shape="%d" transform="translate(%s %s) rotate(%s) scale(%s %s)" opacity="%s"`,
		e.ShapeIndex, num(e.X), num(e.Y), num(e.Rotation), num(e.ScaleX), num(e.ScaleY), num(e.Opacity))
	if e.ShadowBlur > 0 {
		fmt.Fprintf(buf, ` filter="url(#glow-%d)"`, slot)
	}
	buf.WriteString(">")

	switch e.Primitive {
	case PrimCircle:
		fmt.Fprintf(buf, `<circle r="%s"%s/>`, num(e.Radius), stroke(e))
	case PrimRect:
		fmt.Fprintf(buf, `<rect width="%s" height="%s"`, num(e.Width), num(e.Height))
		if e.CornerRadius > 0 {
			fmt.Fprintf(buf, ` rx="%s"`, num(e.CornerRadius))
		}
		fmt.Fprintf(buf, `%s/>`, stroke(e))
	case PrimPolyline:
		fmt.Fprintf(buf, `<polyline points="%s"%s/>`, nums(e.Points), stroke(e))
	case PrimPolygon:
		tag := "polygon"
		if !e.Closed {
			tag = "polyline"
		}
		fmt.Fprintf(buf, `<%s points="%s"%s/>`, tag, nums(e.Points), stroke(e))
	case PrimArrow:
		fmt.Fprintf(buf, `<polyline points="%s"%s/>`, nums(e.Points), stroke(e))
		if head := arrowHead(e); head != nil {
			color := orNone(e.Stroke)
			fmt.Fprintf(buf, `<polygon points="%s" fill="%s" stroke="%s"/>`, nums(head), escape(color), escape(color))
		}
	case PrimPath:
		if e.PathScale != 1 {
			fmt.Fprintf(buf, `<path transform="scale(%s)" d="%s"%s/>`, num(e.PathScale), escape(e.PathData), stroke(e))
		} else {
			fmt.Fprintf(buf, `<path d="%s"%s/>`, escape(e.PathData), stroke(e))
		}
	case PrimText:
		fmt.Fprintf(buf, `<text x="%s" y="%s" font-size="%s"`, num(textOffset(e)), num(e.FontSize), num(e.FontSize))
		if e.FontFamily != "" {
			fmt.Fprintf(buf, ` font-family="%s"`, escape(e.FontFamily))
		}
		fmt.Fprintf(buf, ` fill="%s">%s</text>`, escape(orDefault(e.Fill, "#000")), escape(e.VisibleText()))
	case PrimImage:
		if e.Placeholder {
			fmt.Fprintf(buf, `<rect width="%s" height="%s"%s/>`, num(e.Width), num(e.Height), stroke(e))
			fmt.Fprintf(buf, `<text x="%s" y="%s" font-size="12" text-anchor="middle" fill="#888">%s</text>`,
				num(e.Width/2), num(e.Height/2), escape(e.Label))
		} else {
			fmt.Fprintf(buf, `<image width="%s" height="%s" href="%s"/>`, num(e.Width), num(e.Height), escape(e.Href))
		}
	}
	buf.WriteString("</g>\n")
}

func stroke(e *Element) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ` fill="%s"`, escape(orNone(e.Fill)))
	if e.Stroke != "" {
		fmt.Fprintf(&sb, ` stroke="%s"`, escape(e.Stroke))
		if e.StrokeWidth > 0 {
			fmt.Fprintf(&sb, ` stroke-width="%s"`, num(e.StrokeWidth))
		}
	}
	if len(e.Dash) > 0 {
		fmt.Fprintf(&sb, ` stroke-dasharray="%s"`, nums(e.Dash))
		if e.DashOffset != 0 {
			fmt.Fprintf(&sb, ` stroke-dashoffset="%s"`, num(e.DashOffset))
		}
	}
	return sb.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// textOffset shifts the text so that X is its left edge, centre or right
// edge depending on alignment.
func textOffset(e *Element) float64 {
	switch e.Align {
	case "center":
		return -e.TextWidth / 2
	case "right":
		return -e.TextWidth
	}
	return 0
}

// arrowHead returns the triangle at the end of the last segment.
func arrowHead(e *Element) []float64 {
	n := e.Points.Pairs()
	if n < 2 {
		return nil
	}
	x0, y0 := e.Points.At(n - 2)
	x1, y1 := e.Points.At(n - 1)
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	ux, uy := dx/l, dy/l
	length, width := e.PointerLength, e.PointerWidth
	bx, by := x1-ux*length, y1-uy*length
	return []float64{
		x1, y1,
		bx - uy*width/2, by + ux*width/2,
		bx + uy*width/2, by - ux*width/2,
	}
}
