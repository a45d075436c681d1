package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/lessonboard/internal/animation"
	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/events"
	"github.com/ivlev/lessonboard/internal/renderer"
	"github.com/ivlev/lessonboard/internal/scene"
)

// fakeNarrator completes synchronously when sync is set; otherwise the test
// completes utterances through pending.
type fakeNarrator struct {
	sync    bool
	spoken  []string
	pending []func()
	stops   int
	paused  bool
}

func (f *fakeNarrator) Speak(n scene.Narration, onComplete func()) {
	f.spoken = append(f.spoken, n.Text)
	if f.sync {
		onComplete()
		return
	}
	f.pending = append(f.pending, onComplete)
}

func (f *fakeNarrator) Stop()   { f.stops++ }
func (f *fakeNarrator) Pause()  { f.paused = true }
func (f *fakeNarrator) Resume() { f.paused = false }

// finish completes the most recent utterance.
func (f *fakeNarrator) finish() { f.pending[len(f.pending)-1]() }

type recorder struct {
	events []events.Event
}

func (r *recorder) Publish(e events.Event) { r.events = append(r.events, e) }

func (r *recorder) steps(t events.Type) []int {
	var out []int
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e.Step)
		}
	}
	return out
}

type fixture struct {
	loop     *eventloop.Loop
	narrator *fakeNarrator
	rec      *recorder
	ctl      *Controller
}

func newFixture(t *testing.T, narrator *fakeNarrator, opts Options) *fixture {
	t.Helper()
	loop := eventloop.NewVirtual(time.Unix(0, 0))
	rec := &recorder{}
	opts.Publisher = rec
	painter := renderer.New(loop, nil, renderer.Canvas{Width: 640, Height: 480}, nil)
	animator := animation.NewScheduler(loop, 60, nil)
	return &fixture{
		loop:     loop,
		narrator: narrator,
		rec:      rec,
		ctl:      NewController(loop, painter, animator, narrator, opts),
	}
}

func makeSteps(n int) []scene.Step {
	steps := make([]scene.Step, n)
	for i := range steps {
		steps[i] = scene.Step{
			Title: fmt.Sprintf("step %d", i),
			Shapes: []scene.Shape{
				scene.Circle{Common: scene.Common{X: 10, Y: 10, Opacity: 1}, Radius: 5},
			},
			Animations: []scene.AnimationInstruction{
				{Target: 0, Kind: scene.AnimFadeIn, Duration: 500 * time.Millisecond},
			},
			Narration: scene.Narration{Text: fmt.Sprintf("narration %d", i), SpeakingRate: 1, Pitch: 1},
		}
	}
	return steps
}

func TestAutoAdvanceVisitsEveryStepOnce(t *testing.T) {
	f := newFixture(t, &fakeNarrator{sync: true}, Options{StepPause: time.Second, AutoAdvance: true})
	f.ctl.Load(makeSteps(3))

	require.NoError(t, f.ctl.Start())
	f.loop.Advance(10 * time.Second)

	assert.Equal(t, []int{0, 1, 2}, f.rec.steps(events.StepEntered))
	assert.Equal(t, []string{"narration 0", "narration 1", "narration 2"}, f.narrator.spoken)
	assert.Equal(t, Completed, f.ctl.State().Mode)
	assert.Len(t, f.rec.steps(events.LessonCompleted), 1)
}

func TestAutoAdvanceWaitsForStepPause(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{StepPause: time.Second, AutoAdvance: true})
	f.ctl.Load(makeSteps(2))
	require.NoError(t, f.ctl.Start())

	f.narrator.finish()
	f.loop.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, f.ctl.State().Index)
	f.loop.Advance(time.Millisecond)
	assert.Equal(t, 1, f.ctl.State().Index)
}

func TestStopIsIdempotent(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{AutoAdvance: true})
	f.ctl.Load(makeSteps(3))
	require.NoError(t, f.ctl.Start())
	f.loop.Advance(100 * time.Millisecond)

	f.ctl.Stop()
	once := f.ctl.State()
	f.ctl.Stop()
	twice := f.ctl.State()

	assert.Equal(t, once, twice)
	assert.Equal(t, Idle, twice.Mode)
	assert.Equal(t, -1, twice.Index)
	assert.Nil(t, f.ctl.Arena())
	_, timers := f.loop.Pending()
	assert.Zero(t, timers)
}

func TestRapidNextLandsOnLastTarget(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{StepPause: time.Second, AutoAdvance: true})
	f.ctl.Load(makeSteps(5))
	require.NoError(t, f.ctl.Start())

	require.NoError(t, f.ctl.Next())
	require.NoError(t, f.ctl.Next())
	assert.Equal(t, 2, f.ctl.State().Index)

	// Completions of the abandoned steps arrive late and are ignored.
	f.narrator.pending[0]()
	f.narrator.pending[1]()
	f.loop.Advance(5 * time.Second)

	assert.Equal(t, 2, f.ctl.State().Index)
	assert.Equal(t, []int{0, 1, 2}, f.rec.steps(events.StepEntered))
}

func TestStaleAdvanceTimerIsDropped(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{StepPause: time.Second, AutoAdvance: true})
	f.ctl.Load(makeSteps(4))
	require.NoError(t, f.ctl.Start())

	f.narrator.finish() // schedules advance to step 1
	f.loop.Advance(500 * time.Millisecond)
	require.NoError(t, f.ctl.Next()) // user jumps to step 1 first

	f.loop.Advance(2 * time.Second)
	assert.Equal(t, 1, f.ctl.State().Index)
	assert.Equal(t, []int{0, 1}, f.rec.steps(events.StepEntered))
}

func TestManualModeWaitsForNext(t *testing.T) {
	f := newFixture(t, &fakeNarrator{sync: true}, Options{StepPause: time.Second})
	f.ctl.Load(makeSteps(2))
	require.NoError(t, f.ctl.Start())

	f.loop.Advance(10 * time.Second)
	assert.Equal(t, 0, f.ctl.State().Index)
	assert.Equal(t, Playing, f.ctl.State().Mode)

	require.NoError(t, f.ctl.Next())
	assert.Equal(t, Completed, f.ctl.State().Mode, "last step completes even without auto-advance")
}

func TestEnablingAutoAdvanceAfterNarration(t *testing.T) {
	f := newFixture(t, &fakeNarrator{sync: true}, Options{StepPause: time.Second})
	f.ctl.Load(makeSteps(2))
	require.NoError(t, f.ctl.Start())
	f.loop.Advance(5 * time.Second)

	f.ctl.SetAutoAdvance(true)
	f.loop.Advance(time.Second)
	assert.Equal(t, 1, f.ctl.State().Index)
}

func TestPauseDefersAdvance(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{StepPause: time.Second, AutoAdvance: true})
	f.ctl.Load(makeSteps(2))
	require.NoError(t, f.ctl.Start())

	f.narrator.finish()
	require.NoError(t, f.ctl.Pause())
	assert.True(t, f.narrator.paused)
	f.loop.Advance(5 * time.Second)
	assert.Equal(t, 0, f.ctl.State().Index)
	assert.Equal(t, Paused, f.ctl.State().Mode)

	require.NoError(t, f.ctl.Resume())
	assert.False(t, f.narrator.paused)
	f.loop.Advance(time.Second)
	assert.Equal(t, 1, f.ctl.State().Index)

	assert.ErrorIs(t, f.ctl.Resume(), ErrInvalidTransition)
}

func TestPreviousClampsAtFirstStep(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{})
	f.ctl.Load(makeSteps(3))
	require.NoError(t, f.ctl.Start())

	require.NoError(t, f.ctl.Previous())
	assert.Equal(t, 0, f.ctl.State().Index)
	require.NoError(t, f.ctl.GoTo(99))
	assert.Equal(t, 2, f.ctl.State().Index)
}

func TestStepExitDisposesArena(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{})
	f.ctl.Load(makeSteps(2))
	require.NoError(t, f.ctl.Start())

	first := f.ctl.Arena()
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Len())

	require.NoError(t, f.ctl.Next())
	assert.True(t, first.Disposed())
	assert.False(t, f.ctl.Arena().Disposed())
	assert.Equal(t, 2, f.narrator.stops, "narration is stopped on every step entry")
}

func TestStartErrors(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{})
	assert.ErrorIs(t, f.ctl.Start(), ErrNoSteps)
	assert.ErrorIs(t, f.ctl.Next(), ErrInvalidTransition)
	assert.ErrorIs(t, f.ctl.Pause(), ErrInvalidTransition)

	f.ctl.Load(makeSteps(1))
	require.NoError(t, f.ctl.Start())
	assert.ErrorIs(t, f.ctl.Start(), ErrInvalidTransition)
}

func TestStreamingAppendAndSeal(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{StepPause: time.Second, AutoAdvance: true})
	steps := makeSteps(2)
	f.ctl.Open()

	require.NoError(t, f.ctl.Start())
	assert.Equal(t, Playing, f.ctl.State().Mode)
	assert.Equal(t, -1, f.ctl.State().Index)

	f.ctl.Append(steps[0])
	assert.Equal(t, 0, f.ctl.State().Index)

	// End of received steps while the lesson is open: wait.
	f.narrator.finish()
	f.loop.Advance(5 * time.Second)
	assert.Equal(t, 0, f.ctl.State().Index)
	assert.Equal(t, Playing, f.ctl.State().Mode)

	f.ctl.Append(steps[1])
	f.loop.Advance(time.Second)
	assert.Equal(t, 1, f.ctl.State().Index)

	f.narrator.finish()
	assert.Equal(t, Playing, f.ctl.State().Mode)
	f.ctl.Seal()
	assert.Equal(t, Completed, f.ctl.State().Mode)
}

func TestResumeStartsStepStreamedWhilePaused(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{StepPause: time.Second, AutoAdvance: true})
	f.ctl.Open()
	require.NoError(t, f.ctl.Start())
	require.NoError(t, f.ctl.Pause())

	f.ctl.Append(makeSteps(1)[0])
	assert.Equal(t, -1, f.ctl.State().Index)
	assert.Equal(t, Paused, f.ctl.State().Mode)

	require.NoError(t, f.ctl.Resume())
	f.loop.Advance(10 * time.Second)
	assert.Equal(t, 0, f.ctl.State().Index)
	assert.Equal(t, Playing, f.ctl.State().Mode)
	assert.Equal(t, []int{0}, f.rec.steps(events.StepEntered))
}

func TestSealWithoutStepsCompletes(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{AutoAdvance: true})
	f.ctl.Open()
	require.NoError(t, f.ctl.Start())

	f.ctl.Seal()
	f.loop.Advance(10 * time.Second)
	assert.Equal(t, Completed, f.ctl.State().Mode)
	assert.Len(t, f.rec.steps(events.LessonCompleted), 1)
}

func TestSealWhilePausedWithoutStepsCompletesOnResume(t *testing.T) {
	f := newFixture(t, &fakeNarrator{}, Options{AutoAdvance: true})
	f.ctl.Open()
	require.NoError(t, f.ctl.Start())
	require.NoError(t, f.ctl.Pause())

	f.ctl.Seal()
	assert.Equal(t, Paused, f.ctl.State().Mode)
	require.NoError(t, f.ctl.Resume())
	assert.Equal(t, Completed, f.ctl.State().Mode)
}

func TestRestartAfterCompletion(t *testing.T) {
	f := newFixture(t, &fakeNarrator{sync: true}, Options{AutoAdvance: true})
	f.ctl.Load(makeSteps(1))
	require.NoError(t, f.ctl.Start())
	require.Equal(t, Completed, f.ctl.State().Mode)

	require.NoError(t, f.ctl.Start())
	assert.Equal(t, Completed, f.ctl.State().Mode)
	assert.Equal(t, []int{0, 0}, f.rec.steps(events.StepEntered))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(Idle, Playing))
	assert.False(t, canTransition(Idle, Paused))
	assert.False(t, canTransition(Idle, Completed))
	assert.True(t, canTransition(Playing, Completed))
	assert.False(t, canTransition(Paused, Completed))
	assert.Equal(t, "paused", Paused.String())
}
