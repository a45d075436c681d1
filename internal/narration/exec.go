package narration

import (
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ivlev/lessonboard/internal/scene"
	"github.com/ivlev/lessonboard/internal/system"
)

// ExecSpeaker speaks through a command-line speech engine.
type ExecSpeaker struct {
	Engine system.SpeechEngine
}

func NewExecSpeaker(engine system.SpeechEngine) *ExecSpeaker {
	return &ExecSpeaker{Engine: engine}
}

func (s *ExecSpeaker) Available() bool { return s.Engine.Path != "" }

func (s *ExecSpeaker) Speak(n scene.Narration, done func(error)) (Playback, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	cmd := exec.Command(s.Engine.Path, speechArgs(s.Engine.Name, n)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", s.Engine.Name, err)
	}

	p := &execPlayback{cmd: cmd}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		cancelled := p.cancelled
		p.mu.Unlock()
		if !cancelled {
			done(err)
		}
	}()
	return p, nil
}

// speechArgs maps narration settings onto the engine's flags.
func speechArgs(engine string, n scene.Narration) []string {
	rate := n.SpeakingRate
	if rate <= 0 {
		rate = 1
	}
	pitch := n.Pitch
	if pitch <= 0 {
		pitch = 1
	}

	switch engine {
	case "espeak-ng", "espeak":
		args := []string{
			"-s", strconv.Itoa(roundInt(175 * rate)),
			"-p", strconv.Itoa(clampInt(roundInt(50*pitch), 0, 99)),
		}
		if n.Voice != "" {
			args = append(args, "-v", n.Voice)
		}
		return append(args, "--", n.Text)
	case "say":
		return []string{"-r", strconv.Itoa(roundInt(175 * rate)), "--", n.Text}
	case "spd-say":
		return []string{
			"-w",
			"-r", strconv.Itoa(clampInt(roundInt((rate-1)*100), -100, 100)),
			"-p", strconv.Itoa(clampInt(roundInt((pitch-1)*100), -100, 100)),
			"--", n.Text,
		}
	}
	return []string{n.Text}
}

func roundInt(v float64) int { return int(math.Round(v)) }

func clampInt(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

type execPlayback struct {
	cmd       *exec.Cmd
	mu        sync.Mutex
	cancelled bool
	paused    bool
}

func (p *execPlayback) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled {
		return
	}
	p.cancelled = true
	if p.paused {
		resume(p.cmd.Process)
	}
	p.cmd.Process.Kill()
}

func (p *execPlayback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || p.paused {
		return
	}
	if suspend(p.cmd.Process) == nil {
		p.paused = true
	}
}

func (p *execPlayback) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || !p.paused {
		return
	}
	if resume(p.cmd.Process) == nil {
		p.paused = false
	}
}
