package animation

import (
	"math"
	"strings"
)

// EaseFunc maps linear progress in [0,1] to eased progress.
type EaseFunc func(t float64) float64

// DefaultEase is used when an instruction names no ease or an unknown one.
const DefaultEase = "power1.out"

// easeIns holds the "in" variant of every family; out and inOut are derived.
var easeIns = map[string]EaseFunc{
	"none":    linear,
	"linear":  linear,
	"power0":  linear,
	"power1":  power(2),
	"quad":    power(2),
	"power2":  power(3),
	"cubic":   power(3),
	"power3":  power(4),
	"quart":   power(4),
	"power4":  power(5),
	"quint":   power(5),
	"strong":  power(5),
	"sine":    func(t float64) float64 { return 1 - math.Cos(t*math.Pi/2) },
	"expo":    expoIn,
	"circ":    func(t float64) float64 { return 1 - math.Sqrt(1-t*t) },
	"back":    backIn,
	"elastic": elasticIn,
	"bounce":  func(t float64) float64 { return 1 - bounceOut(1-t) },
}

// Ease resolves a GSAP-style ease name such as "power2.inOut", "sine.in" or
// "bounce". A family without a variant defaults to out; unknown names fall
// back to DefaultEase.
func Ease(name string) EaseFunc {
	if fn, ok := lookupEase(name); ok {
		return fn
	}
	fn, _ := lookupEase(DefaultEase)
	return fn
}

func lookupEase(name string) (EaseFunc, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	family, variant, _ := strings.Cut(name, ".")
	in, ok := easeIns[family]
	if !ok {
		return nil, false
	}
	switch variant {
	case "in":
		return in, true
	case "", "out":
		return outOf(in), true
	case "inout":
		return inOutOf(in), true
	}
	return nil, false
}

func outOf(in EaseFunc) EaseFunc {
	return func(t float64) float64 { return 1 - in(1-t) }
}

func inOutOf(in EaseFunc) EaseFunc {
	return func(t float64) float64 {
		if t < 0.5 {
			return in(2*t) / 2
		}
		return 1 - in(2-2*t)/2
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func linear(t float64) float64 { return t }

func power(n int) EaseFunc {
	return func(t float64) float64 { return pow(t, n) }
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

func expoIn(t float64) float64 {
	if t <= 0 {
		return 0
	}
	return math.Pow(2, 10*t-10)
}

func backIn(t float64) float64 {
	const c1 = 1.70158
	const c3 = c1 + 1
	return c3*t*t*t - c1*t*t
}

func elasticIn(t float64) float64 {
	const c4 = 2 * math.Pi / 3
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	}
	return -math.Pow(2, 10*t-10) * math.Sin((t*10-10.75)*c4)
}

func bounceOut(t float64) float64 {
	const n1 = 7.5625
	const d1 = 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}
