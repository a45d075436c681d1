package animation

import (
	"math"

	"github.com/ivlev/lessonboard/internal/renderer"
	"github.com/ivlev/lessonboard/internal/scene"
)

const (
	defaultGlowBlur  = 20.0
	defaultGlowColor = "#ffd54f"
	pulseFactor      = 1.2
)

// Effect builds the track for one instruction on its target element. It
// reports false when the pairing is unsupported, which makes the
// instruction a no-op.
type Effect func(a scene.AnimationInstruction, el *renderer.Element) (*track, bool)

// effects is the per-kind effect table.
var effects = map[scene.AnimationKind]Effect{
	scene.AnimFadeIn:  fadeIn,
	scene.AnimFadeOut: fadeOut,
	scene.AnimScale:   scale,
	scene.AnimMove:    move,
	scene.AnimRotate:  rotate,
	scene.AnimPulse:   pulse,
	scene.AnimGlow:    glow,
	scene.AnimDraw:    draw,
	scene.AnimWrite:   write,
	scene.AnimOrbit:   orbit,
}

func fadeIn(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	from, to := a.From.Get("opacity", 0), a.To.Get("opacity", 1)
	return &track{
		prime: func() { el.Opacity = from },
		apply: func(p float64) { el.Opacity = lerp(from, to, p) },
	}, true
}

func fadeOut(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	var from float64
	to := a.To.Get("opacity", 0)
	return &track{
		begin: func() { from = a.From.Get("opacity", el.Opacity) },
		apply: func(p float64) { el.Opacity = lerp(from, to, p) },
	}, true
}

func scale(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	from, to := a.From.Get("scale", 0), a.To.Get("scale", 1)
	set := func(v float64) { el.ScaleX, el.ScaleY = v, v }
	return &track{
		prime: func() { set(from) },
		apply: func(p float64) { set(lerp(from, to, p)) },
	}, true
}

func move(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	var fx, fy, tx, ty float64
	t := &track{
		begin: func() {
			fx, fy = a.From.Get("x", el.X), a.From.Get("y", el.Y)
			tx, ty = a.To.Get("x", el.X), a.To.Get("y", el.Y)
		},
		apply: func(p float64) {
			el.X, el.Y = lerp(fx, tx, p), lerp(fy, ty, p)
		},
	}
	if a.From.Has("x") || a.From.Has("y") {
		t.prime = func() {
			el.X, el.Y = a.From.Get("x", el.X), a.From.Get("y", el.Y)
		}
	}
	return t, true
}

func rotate(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	var from, to float64
	return &track{
		begin: func() {
			from = a.From.Get("rotation", el.Rotation)
			to = a.To.Get("rotation", from+360)
		},
		apply: func(p float64) { el.Rotation = lerp(from, to, p) },
	}, true
}

func pulse(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	var from, to float64
	return &track{
		begin: func() {
			from = a.From.Get("scale", el.ScaleX)
			to = a.To.Get("scale", from*pulseFactor)
		},
		apply: func(p float64) {
			v := lerp(from, to, p)
			el.ScaleX, el.ScaleY = v, v
		},
	}, true
}

func glow(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	var from float64
	to := a.To.Get("shadowBlur", defaultGlowBlur)
	color := a.Color
	if color == "" {
		color = defaultGlowColor
	}
	return &track{
		begin: func() {
			from = a.From.Get("shadowBlur", el.ShadowBlur)
			el.ShadowColor = color
		},
		apply: func(p float64) { el.ShadowBlur = lerp(from, to, p) },
	}, true
}

// draw reveals the outline of line-like shapes by sliding a dash the length
// of the outline.
func draw(_ scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	if !el.Strokable() {
		return nil, false
	}
	length := el.Length()
	if length <= 0 {
		return nil, false
	}
	return &track{
		prime: func() {
			el.Dash = []float64{length, length}
			el.DashOffset = length
		},
		apply: func(p float64) { el.DashOffset = length * (1 - p) },
	}, true
}

// write reveals text one character at a time. Progress is linear so that
// characters appear at a constant cadence.
func write(_ scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	if el.Primitive != renderer.PrimText {
		return nil, false
	}
	n := el.Runes()
	return &track{
		ease:  linear,
		prime: func() { el.VisibleChars = 0 },
		apply: func(p float64) {
			if p >= 1 {
				el.VisibleChars = -1
				return
			}
			el.VisibleChars = int(math.Floor(p * float64(n)))
		},
	}, true
}

// orbit turns the element a full rotation per iteration, starting from its
// current bearing, and places it on the circle at that rotation.
func orbit(a scene.AnimationInstruction, el *renderer.Element) (*track, bool) {
	if a.OrbitCenter == nil || a.OrbitRadius <= 0 {
		return nil, false
	}
	cx, cy, r := a.OrbitCenter.X, a.OrbitCenter.Y, a.OrbitRadius
	var start float64
	t := &track{
		begin: func() {
			if el.X != cx || el.Y != cy {
				start = math.Atan2(el.Y-cy, el.X-cx)
			}
		},
		apply: func(p float64) {
			el.Rotation = start*180/math.Pi + 360*p
			angle := el.Rotation * math.Pi / 180
			el.X = cx + r*math.Cos(angle)
			el.Y = cy + r*math.Sin(angle)
		},
	}
	if a.Ease == "" {
		t.ease = linear
	}
	return t, true
}
