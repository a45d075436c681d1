package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ivlev/lessonboard/internal/config"
	"github.com/ivlev/lessonboard/internal/engine"
	"github.com/ivlev/lessonboard/internal/logging"
	"github.com/ivlev/lessonboard/internal/scene"
	"github.com/ivlev/lessonboard/internal/system"
	"github.com/ivlev/lessonboard/internal/transport"
)

var buildVersion = "dev"

func main() {
	defaults := config.Default()

	configPtr := flag.String("config", "", "Путь к YAML-конфигу (флаги имеют приоритет)")
	lessonPtr := flag.String("lesson", "", "Путь к файлу урока (по умолчанию: самый свежий урок в input/lessons/)")
	lessonDirPtr := flag.String("lesson-dir", defaults.LessonDir, "Папка с уроками")
	lessonIDPtr := flag.String("lesson-id", "", "ID урока для загрузки с -lesson-api")
	lessonAPIPtr := flag.String("lesson-api", "", "Адрес API уроков, например http://localhost:8000")
	pdfPtr := flag.String("pdf", "", "PDF для генерации урока (по умолчанию: самый свежий файл в input/pdf/)")
	serverPtr := flag.String("server", "", "WebSocket-адрес сервиса обучения, например ws://localhost:8000/ws")
	userPtr := flag.String("user", "", "ID пользователя для сервиса")
	widthPtr := flag.Int("width", defaults.Width, "Ширина холста")
	heightPtr := flag.Int("height", defaults.Height, "Высота холста")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16, 4:5, 4:3")
	fpsPtr := flag.Int("fps", defaults.FPS, "Частота кадров анимации")
	autoPtr := flag.Bool("auto", defaults.AutoAdvance, "Автоматически переходить к следующему шагу")
	pausePtr := flag.Duration("step-pause", defaults.StepPause, "Пауза между шагами")
	speechPtr := flag.String("speech", defaults.SpeechEngine, "Озвучка: auto, espeak-ng, espeak, say, spd-say, paced, none")
	voicePtr := flag.String("voice", "", "Голос для озвучки")
	logLevelPtr := flag.String("log-level", defaults.LogLevel, "Уровень логов: debug, info, warn, error")
	logFilePtr := flag.String("log-file", "", "JSON-лог в файл")
	statsPtr := flag.Bool("stats", false, "Показать отчёт о производительности")
	savePtr := flag.Bool("save", false, "Сохранить полученный от сервиса урок в папку уроков")

	flag.Parse()

	cfg := defaults
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфига: %v", err)
		}
		cfg = loaded
	}

	// Явно заданные флаги перекрывают конфиг
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lesson":
			cfg.LessonPath = *lessonPtr
		case "lesson-dir":
			cfg.LessonDir = *lessonDirPtr
		case "lesson-id":
			cfg.LessonID = *lessonIDPtr
		case "lesson-api":
			cfg.LessonAPI = *lessonAPIPtr
		case "pdf":
			cfg.PDFPath = *pdfPtr
		case "server":
			cfg.ServerURL = *serverPtr
		case "user":
			cfg.UserID = *userPtr
		case "width":
			cfg.Width = *widthPtr
		case "height":
			cfg.Height = *heightPtr
		case "preset":
			cfg.Preset = *presetPtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "auto":
			cfg.AutoAdvance = *autoPtr
		case "step-pause":
			cfg.StepPause = *pausePtr
		case "speech":
			cfg.SpeechEngine = *speechPtr
		case "voice":
			cfg.Voice = *voicePtr
		case "log-level":
			cfg.LogLevel = *logLevelPtr
		case "log-file":
			cfg.LogFile = *logFilePtr
		case "stats":
			cfg.ShowStats = *statsPtr
		case "save":
			cfg.SaveLesson = *savePtr
		}
	})
	cfg.BuildVersion = buildVersion

	if err := cfg.ApplyPreset(); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("[-] Ошибка логгера: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	// Создаем нужные директории, если их нет
	for _, d := range []string{cfg.LessonDir, cfg.PDFDir} {
		os.MkdirAll(d, 0755)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lesson *scene.Lesson
	var doc *transport.Document

	if cfg.ServerURL != "" {
		pdfPath := cfg.PDFPath
		if pdfPath == "" {
			latest, err := system.FindLatestPDF(cfg.PDFDir)
			if err != nil {
				log.Fatalf("[-] Ошибка: %v. Положите PDF в %s/", err, cfg.PDFDir)
			}
			pdfPath = latest
			fmt.Printf("[*] Выбран файл: %s\n", pdfPath)
		}
		d, err := engine.LoadDocument(pdfPath)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения PDF: %v", err)
		}
		doc = &d
	} else {
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		l, issues, err := engine.LoadLesson(fetchCtx, cfg)
		cancel()
		if err != nil {
			log.Fatalf("[-] Ошибка загрузки урока: %v. Положите урок в %s/", err, cfg.LessonDir)
		}
		for _, issue := range issues {
			logger.Warn("skipped lesson element", "issue", issue.String())
		}
		lesson = l
	}

	p := engine.NewPlayer(cfg, engine.Options{Logger: logger})
	go p.ReadControls(ctx, os.Stdin)

	if err := p.Run(ctx, lesson, doc); err != nil {
		log.Fatalf("[-] Ошибка воспроизведения: %v", err)
	}
	fmt.Println("[+++] Готово")
}
