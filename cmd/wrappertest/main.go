package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"wrappertest/internal/job"
	"wrappertest/internal/kokoro"
	"wrappertest/internal/logger"
	"wrappertest/internal/notify"
	"wrappertest/internal/runner"
	"wrappertest/internal/storage"
	"wrappertest/internal/tts"
)

func main() {
	// Settings loading logs too, so start with the default config and
	// rebuild once the configured level and file are known.
	if err := logger.Init(storage.DefaultSettings().Log); err != nil {
		log.Fatalf("FATAL: could not initialise logger: %v", err)
	}
	defer logger.Sync()

	settings, err := storage.LoadSettings("settings.json", ".env")
	if err != nil {
		logger.Error("could not load settings", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	if err := logger.Init(settings.Log); err != nil {
		logger.Error("could not initialise configured logger", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("settings loaded",
		zap.String("backend", settings.HandlerBackend),
		zap.String("kokoro_base_url", settings.KokoroBaseURL),
		zap.String("output_dir", settings.OutputDir),
		zap.Duration("startup_delay", settings.StartupDelay))

	r := runner.NewRunner(newHandler(settings), runner.DefaultCases())
	r.OutputDir = settings.OutputDir
	r.StartupDelay = settings.StartupDelay

	if settings.DiscordWebhookURL != "" {
		n, err := notify.NewDiscordNotifier(settings.DiscordWebhookURL)
		if err != nil {
			logger.Warn("discord notifications disabled", zap.Error(err))
		} else {
			r.Notifier = n
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes := r.Run(ctx)
	passed, failed := runner.Tally(outcomes)
	logger.Info("run complete", zap.Int("passed", passed), zap.Int("failed", failed))
}

func newHandler(settings storage.Settings) job.Handler {
	switch settings.HandlerBackend {
	case storage.BackendPolly:
		cfg := tts.LoadConfig(settings.AWSAccessKeyID, settings.AWSSecretAccessKey, settings.AWSRegion)
		return tts.NewPollyHandler(cfg)
	default:
		return kokoro.NewHandler(settings.KokoroBaseURL, settings.KokoroAPIKey, settings.HTTPTimeout)
	}
}
