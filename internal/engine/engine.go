package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/lessonboard/internal/animation"
	"github.com/ivlev/lessonboard/internal/config"
	"github.com/ivlev/lessonboard/internal/eventloop"
	"github.com/ivlev/lessonboard/internal/events"
	"github.com/ivlev/lessonboard/internal/logging"
	"github.com/ivlev/lessonboard/internal/narration"
	"github.com/ivlev/lessonboard/internal/renderer"
	"github.com/ivlev/lessonboard/internal/scene"
	"github.com/ivlev/lessonboard/internal/session"
	"github.com/ivlev/lessonboard/internal/source"
	"github.com/ivlev/lessonboard/internal/system"
	"github.com/ivlev/lessonboard/internal/transport"
)

var (
	ErrNoLesson     = errors.New("нет ни урока, ни адреса сервиса")
	ErrDisconnected = errors.New("сервис обучения недоступен")
)

type Options struct {
	Images renderer.ImageLoader
	Dialer transport.Dialer
	Out    io.Writer
	Logger *slog.Logger
}

// Player plays one lesson, either from local steps or streamed from the
// teaching service.
type Player struct {
	Config *config.Config

	log     *slog.Logger
	out     io.Writer
	loop    *eventloop.Loop
	hub     *events.Hub
	session *session.Controller
	client  *transport.Client

	quit     chan struct{}
	quitOnce sync.Once
}

func NewPlayer(cfg *config.Config, opts Options) *Player {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Images == nil {
		opts.Images = source.NewImageLoader()
	}
	if opts.Dialer == nil {
		opts.Dialer = transport.WSDialer{Timeout: transport.DefaultDialTimeout}
	}

	loop := eventloop.New()
	hub := events.NewHub()
	log := opts.Logger

	painter := renderer.New(loop, opts.Images, renderer.Canvas{
		Width:      float64(cfg.Width),
		Height:     float64(cfg.Height),
		Background: cfg.Background,
	}, log)
	animator := animation.NewScheduler(loop, cfg.FPS, log)
	narrator := narration.NewSynchronizer(loop, NewSpeaker(cfg.SpeechEngine, loop), cfg.NarrationFallback, log)
	ctl := session.NewController(loop, painter, animator, narrator, session.Options{
		StepPause:   cfg.StepPause,
		AutoAdvance: cfg.AutoAdvance,
		Publisher:   hub,
		Logger:      log,
	})

	p := &Player{
		Config:  cfg,
		log:     log,
		out:     opts.Out,
		loop:    loop,
		hub:     hub,
		session: ctl,
		quit:    make(chan struct{}),
	}
	if cfg.ServerURL != "" {
		p.client = transport.NewClient(loop, opts.Dialer, ctl, transport.Options{
			URL:               cfg.ServerURL,
			UserID:            cfg.UserID,
			ReconnectAttempts: cfg.ReconnectAttempts,
			ReconnectBackoff:  cfg.ReconnectBackoff,
			Publisher:         hub,
			Logger:            log,
			AutoStart:         true,
		})
	}
	return p
}

// NewSpeaker picks the speech backend: "none" is silent, "paced" simulates
// speech on the loop clock, anything else names an engine ("auto" picks the
// best one installed). Without an engine narration is paced.
func NewSpeaker(name string, loop *eventloop.Loop) narration.Speaker {
	switch name {
	case "none":
		return narration.NullSpeaker{}
	case "paced":
		return &narration.PacedSpeaker{Loop: loop}
	case "auto":
		name = ""
	}
	if engine, ok := system.FindSpeechEngine(name); ok {
		return narration.NewExecSpeaker(engine)
	}
	return &narration.PacedSpeaker{Loop: loop}
}

// Run plays until the lesson completes, ctx is cancelled or Quit is called.
// doc, when set, is sent to the teaching service to generate a lesson.
func (p *Player) Run(ctx context.Context, lesson *scene.Lesson, doc *transport.Document) error {
	hasSteps := lesson != nil && len(lesson.Steps) > 0
	if !hasSteps && p.client == nil {
		return ErrNoLesson
	}
	startTime := time.Now()

	ctx = logging.WithSessionID(ctx, p.session.ID())
	if lesson != nil {
		ctx = logging.WithLesson(ctx, lesson.Title)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := p.hub.Subscribe(ctx, events.Filter{})
	defer unsubscribe()

	var steps []scene.Step
	if hasSteps {
		steps = append(steps, lesson.Steps...)
		applyVoice(steps, p.Config.Voice)
		total := estimateDurations(steps)
		fmt.Fprintf(p.out, "[*] Урок: %s | Шагов: %d | Расчётная длительность: %.1fs\n", lesson.Title, len(steps), total.Seconds())
	}

	var visited int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.loop.Run(gctx) })
	g.Go(func() error {
		var err error
		visited, err = p.watch(gctx, updates)
		if err == nil {
			cancel()
		}
		return err
	})
	g.Go(func() error {
		return p.loop.Invoke(gctx, func() {
			if hasSteps {
				p.session.Load(steps)
				if err := p.session.Start(); err != nil {
					p.log.ErrorContext(gctx, "start failed", "error", err)
				}
			}
			if p.client != nil {
				if doc != nil {
					p.client.SetDocument(*doc)
				}
				p.client.Connect()
			}
		})
	})

	err := g.Wait()
	p.shutdown()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if p.Config.SaveLesson && !hasSteps && doc != nil {
		if path, saveErr := p.saveLesson(doc.Topic); saveErr != nil {
			fmt.Fprintf(p.out, "[!] Не удалось сохранить урок: %v\n", saveErr)
		} else if path != "" {
			fmt.Fprintf(p.out, "[+++] Урок сохранён: %s\n", path)
		}
	}

	if p.Config.ShowStats {
		p.report(time.Since(startTime), visited)
	}
	return err
}

// shutdown tears the session and connection down after the loop has stopped.
func (p *Player) shutdown() {
	p.session.Stop()
	if p.client != nil {
		p.client.Close()
	}
}

// saveLesson writes the streamed steps to the lesson directory so they can be
// replayed offline. The loop must be stopped.
func (p *Player) saveLesson(title string) (string, error) {
	steps := p.session.Steps()
	if len(steps) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(p.Config.LessonDir, 0755); err != nil {
		return "", err
	}
	path := scene.GenerateLessonPath(p.Config.LessonDir)
	if err := scene.WriteLesson(&scene.Lesson{Title: title, Steps: steps}, path); err != nil {
		return "", err
	}
	return path, nil
}

// Quit ends Run.
func (p *Player) Quit() {
	p.quitOnce.Do(func() { close(p.quit) })
}

// watch prints events and ends playback on completion. It returns how many
// steps were entered.
func (p *Player) watch(ctx context.Context, updates <-chan events.Event) (int, error) {
	visited := 0
	for {
		select {
		case <-ctx.Done():
			return visited, nil
		case <-p.quit:
			return visited, nil
		case e, ok := <-updates:
			if !ok {
				return visited, nil
			}
			printEvent(p.out, e)
			switch e.Type {
			case events.StepEntered:
				visited++
			case events.LessonCompleted:
				return visited, nil
			case events.ConnectionStatus:
				if e.Message == transport.StatusGaveUp && visited == 0 {
					return visited, ErrDisconnected
				}
			}
		}
	}
}

func printEvent(w io.Writer, e events.Event) {
	switch e.Type {
	case events.ModeChanged:
		fmt.Fprintf(w, "[*] Режим: %s\n", e.Mode)
	case events.StepEntered:
		if e.Message != "" {
			fmt.Fprintf(w, "[>] Шаг %d: %s\n", e.Step+1, e.Message)
		} else {
			fmt.Fprintf(w, "[>] Шаг %d\n", e.Step+1)
		}
	case events.LessonCompleted:
		fmt.Fprintln(w, "[+++] Урок завершён")
	case events.Warning:
		fmt.Fprintf(w, "[!] %s\n", e.Message)
	case events.ConnectionStatus:
		fmt.Fprintf(w, "[*] Соединение: %s\n", e.Message)
	case events.LessonGenerating:
		fmt.Fprintln(w, "[*] Урок генерируется...")
	case events.AIResponse:
		fmt.Fprintf(w, "[AI] %s\n", e.Message)
	case events.ServerError:
		fmt.Fprintf(w, "[-] Ошибка сервиса: %s\n", e.Message)
	}
}

func (p *Player) report(elapsed time.Duration, steps int) {
	stats, err := system.CollectStats()
	if err != nil {
		p.log.Warn("process stats unavailable", "error", err)
	}
	fmt.Fprint(p.out, formatReport(p.Config.BuildVersion, elapsed, steps, stats))

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Steps: %d | Total: %.2fs | CPU: %.1f%% | RSS: %.1fMB\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		steps,
		elapsed.Seconds(),
		stats.CPUPercent,
		stats.RSSMB(),
	)
	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(p.out, "[!] Не удалось записать benchmark.log: %v\n", err)
		return
	}
	defer f.Close()
	f.WriteString(logEntry)
}

func formatReport(build string, elapsed time.Duration, steps int, stats system.Stats) string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Steps Shown: %d\n"+
			"CPU: %.1f%%\n"+
			"RSS: %.1f MB\n"+
			"Threads: %d | Goroutines: %d\n"+
			"----------------------------\n",
		build, elapsed.Seconds(), steps, stats.CPUPercent, stats.RSSMB(), stats.Threads, stats.Goroutines,
	)
}
