package eventloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVirtualTimersFireInDeadlineOrder(t *testing.T) {
	l := NewVirtual(epoch)
	var got []string

	l.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	l.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	l.AfterFunc(200*time.Millisecond, func() { got = append(got, "b") })

	l.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"a"}, got)

	l.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, epoch.Add(1150*time.Millisecond), l.Now())
}

func TestTimerSeesItsOwnDeadline(t *testing.T) {
	l := NewVirtual(epoch)
	var at time.Time
	l.AfterFunc(250*time.Millisecond, func() { at = l.Now() })

	l.Advance(time.Second)
	assert.Equal(t, epoch.Add(250*time.Millisecond), at)
}

func TestStopPreventsTimer(t *testing.T) {
	l := NewVirtual(epoch)
	fired := false
	tm := l.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	l.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestPostedTasksRunBeforeDueTimers(t *testing.T) {
	l := NewVirtual(epoch)
	var got []string
	l.AfterFunc(0, func() { got = append(got, "timer") })
	l.Post(func() { got = append(got, "task") })

	l.RunUntilIdle()
	assert.Equal(t, []string{"task", "timer"}, got)
}

func TestTimerScheduledFromTimerWithinWindow(t *testing.T) {
	l := NewVirtual(epoch)
	count := 0
	l.AfterFunc(100*time.Millisecond, func() {
		count++
		l.AfterFunc(100*time.Millisecond, func() { count++ })
	})

	l.Advance(250 * time.Millisecond)
	assert.Equal(t, 2, count)
}

func TestTickerStops(t *testing.T) {
	l := NewVirtual(epoch)
	ticks := 0
	var tk *Ticker
	tk = l.Every(10*time.Millisecond, func() {
		ticks++
		if ticks == 3 {
			tk.Stop()
		}
	})

	l.Advance(time.Second)
	assert.Equal(t, 3, ticks)
	_, timers := l.Pending()
	assert.Zero(t, timers)
}

func TestAdvancePanicsOnWallClock(t *testing.T) {
	assert.Panics(t, func() { New().Advance(time.Second) })
}

func TestRunExecutesPostedWork(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	fired := make(chan struct{})
	l.AfterFunc(5*time.Millisecond, func() { close(fired) })

	var value int
	require.NoError(t, l.Invoke(ctx, func() { value = 42 }))
	assert.Equal(t, 42, value)

	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("timer did not fire")
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
