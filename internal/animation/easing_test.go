package animation

import (
	"testing"
)

func TestEaseEndpoints(t *testing.T) {
	names := []string{
		"none", "linear", "power1.in", "power2.out", "power3.inOut", "power4",
		"quad.in", "cubic.out", "sine.inOut", "expo.in", "expo.out", "circ.out",
		"back.inOut", "elastic.out", "bounce.out", "bounce.in",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			fn := Ease(name)
			if got := fn(0); abs(got) > 1e-3 {
				t.Errorf("%s(0) = %f, want 0", name, got)
			}
			if got := fn(1); abs(got-1) > 1e-3 {
				t.Errorf("%s(1) = %f, want 1", name, got)
			}
		})
	}
}

func TestEaseInOutCubic(t *testing.T) {
	fn := Ease("power2.inOut")
	tests := []struct {
		in, want float64
	}{
		{0.25, 0.0625},
		{0.5, 0.5},
		{0.75, 0.9375},
	}
	for _, tt := range tests {
		if got := fn(tt.in); abs(got-tt.want) > 1e-9 {
			t.Errorf("power2.inOut(%.2f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestEaseFallback(t *testing.T) {
	def := Ease(DefaultEase)
	for _, name := range []string{"", "wobbly", "power2.sideways"} {
		if got, want := Ease(name)(0.5), def(0.5); got != want {
			t.Errorf("Ease(%q)(0.5) = %f, want default %f", name, got, want)
		}
	}
	if got := def(0.5); abs(got-0.75) > 1e-9 {
		t.Errorf("power1.out(0.5) = %f, want 0.75", got)
	}
	if got := Ease("Power2.InOut")(0.25); abs(got-0.0625) > 1e-9 {
		t.Errorf("ease names should be case-insensitive, got %f", got)
	}
}

func TestLerp(t *testing.T) {
	if got := lerp(10, 20, 0.25); got != 12.5 {
		t.Errorf("lerp = %f, want 12.5", got)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
