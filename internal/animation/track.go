package animation

import (
	"math"
	"time"
)

// track is one running instruction on the shared step timeline.
type track struct {
	delay    time.Duration
	duration time.Duration
	repeat   int
	yoyo     bool
	ease     EaseFunc

	// prime renders the starting state as soon as the timeline starts,
	// before the delay has elapsed.
	prime func()
	// begin captures start values when the delay has elapsed.
	begin func()
	// apply renders eased progress in [0,1].
	apply func(p float64)

	started bool
	done    bool
}

func (t *track) infinite() bool { return t.repeat < 0 }

// end returns the timeline offset at which a finite track finishes.
func (t *track) end() time.Duration {
	return t.delay + t.duration*time.Duration(t.repeat+1)
}

// update renders the track at elapsed time since the timeline started.
func (t *track) update(elapsed time.Duration) {
	if t.done || elapsed < t.delay {
		return
	}
	if !t.started {
		t.started = true
		if t.begin != nil {
			t.begin()
		}
	}

	local := elapsed - t.delay
	if t.duration <= 0 {
		t.apply(t.ease(1))
		t.done = !t.infinite()
		return
	}

	iteration := int(local / t.duration)
	if !t.infinite() && iteration > t.repeat {
		t.apply(t.ease(t.finalProgress()))
		t.done = true
		return
	}

	frac := float64(local-time.Duration(iteration)*t.duration) / float64(t.duration)
	frac = math.Min(math.Max(frac, 0), 1)
	if t.yoyo && iteration%2 == 1 {
		frac = 1 - frac
	}
	t.apply(t.ease(frac))
}

// finalProgress is where a finite track rests: a yoyo ending on a reversed
// iteration comes back to the start.
func (t *track) finalProgress() float64 {
	if t.yoyo && t.repeat%2 == 1 {
		return 0
	}
	return 1
}
