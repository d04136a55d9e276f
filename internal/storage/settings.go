package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"wrappertest/internal/logger"
)

const (
	BackendKokoro = "kokoro"
	BackendPolly  = "polly"
)

type Settings struct {
	HandlerBackend     string           `json:"handler_backend"`
	KokoroBaseURL      string           `json:"kokoro_base_url"`
	KokoroAPIKey       string           `json:"kokoro_api_key"`
	HTTPTimeout        time.Duration    `json:"http_timeout"`
	StartupDelay       time.Duration    `json:"startup_delay"`
	OutputDir          string           `json:"output_dir"`
	DiscordWebhookURL  string           `json:"discord_webhook_url"`
	AWSAccessKeyID     string           `json:"aws_access_key_id"`
	AWSSecretAccessKey string           `json:"aws_secret_access_key"`
	AWSRegion          string           `json:"region"`
	Log                logger.LogConfig `json:"log"`
}

// DefaultSettings matches a local Kokoro FastAPI container.
func DefaultSettings() Settings {
	return Settings{
		HandlerBackend: BackendKokoro,
		KokoroBaseURL:  "http://127.0.0.1:8880",
		KokoroAPIKey:   "not-needed",
		HTTPTimeout:    120 * time.Second,
		StartupDelay:   10 * time.Second,
		OutputDir:      ".",
		Log:            logger.LogConfig{Level: "info"},
	}
}

type settingField struct {
	key string // settings.json key
	env string
	set func(s *Settings, v any) error
}

func stringField(dst func(s *Settings) *string) func(s *Settings, v any) error {
	return func(s *Settings, v any) error {
		str, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		*dst(s) = strings.TrimSpace(str)
		return nil
	}
}

func durationField(dst func(s *Settings) *time.Duration) func(s *Settings, v any) error {
	return func(s *Settings, v any) error {
		var d time.Duration
		if secs, err := cast.ToFloat64E(v); err == nil {
			d = time.Duration(secs * float64(time.Second))
		} else if d, err = cast.ToDurationE(v); err != nil {
			return err
		}
		if d < 0 {
			return fmt.Errorf("duration must not be negative, got %s", d)
		}
		*dst(s) = d
		return nil
	}
}

var settingFields = []settingField{
	{"handler_backend", "HANDLER_BACKEND", stringField(func(s *Settings) *string { return &s.HandlerBackend })},
	{"kokoro_base_url", "KOKORO_BASE_URL", stringField(func(s *Settings) *string { return &s.KokoroBaseURL })},
	{"kokoro_api_key", "KOKORO_API_KEY", stringField(func(s *Settings) *string { return &s.KokoroAPIKey })},
	{"http_timeout", "HTTP_TIMEOUT", durationField(func(s *Settings) *time.Duration { return &s.HTTPTimeout })},
	{"startup_delay", "STARTUP_DELAY", durationField(func(s *Settings) *time.Duration { return &s.StartupDelay })},
	{"output_dir", "OUTPUT_DIR", stringField(func(s *Settings) *string { return &s.OutputDir })},
	{"discord_webhook_url", "DISCORD_WEBHOOK_URL", stringField(func(s *Settings) *string { return &s.DiscordWebhookURL })},
	{"aws_access_key_id", "aws_access_key_id", stringField(func(s *Settings) *string { return &s.AWSAccessKeyID })},
	{"aws_secret_access_key", "aws_secret_access_key", stringField(func(s *Settings) *string { return &s.AWSSecretAccessKey })},
	{"region", "region", stringField(func(s *Settings) *string { return &s.AWSRegion })},
	{"log_level", "LOG_LEVEL", stringField(func(s *Settings) *string { return &s.Log.Level })},
	{"log_file", "LOG_FILE", stringField(func(s *Settings) *string { return &s.Log.Filename })},
}

// LoadSettings starts from DefaultSettings, applies filePath (a flat JSON
// object) if it exists, then envPath via godotenv, then the process
// environment. Durations take Go syntax ("10s", "1m30s"); bare numbers are
// seconds.
func LoadSettings(filePath, envPath string) (Settings, error) {
	settings := DefaultSettings()

	if filePath != "" && CheckFileExistence(filePath) {
		byteValue, err := ReadFromFile(filePath)
		if err != nil {
			return settings, err
		}

		var raw map[string]any
		if err := json.Unmarshal(byteValue, &raw); err != nil {
			return settings, fmt.Errorf("error decoding settings JSON: %w", err)
		}

		for _, f := range settingFields {
			v, ok := raw[f.key]
			if !ok {
				continue
			}
			if err := f.set(&settings, v); err != nil {
				return settings, fmt.Errorf("invalid value for %s in settings file: %w", f.key, err)
			}
		}
		logger.Info("settings loaded", zap.String("path", filePath))
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			logger.Debug("env file not loaded", zap.String("path", envPath), zap.Error(err))
		}
	}

	for _, f := range settingFields {
		v, ok := os.LookupEnv(f.env)
		if !ok {
			continue
		}
		if err := f.set(&settings, v); err != nil {
			return settings, fmt.Errorf("invalid value for %s: %w", f.env, err)
		}
	}

	settings.HandlerBackend = strings.ToLower(settings.HandlerBackend)
	settings.KokoroBaseURL = strings.TrimRight(settings.KokoroBaseURL, "/")

	if err := settings.Validate(); err != nil {
		return settings, err
	}

	return settings, nil
}

func (s Settings) Validate() error {
	switch s.HandlerBackend {
	case BackendKokoro:
		if s.KokoroBaseURL == "" {
			return fmt.Errorf("KOKORO_BASE_URL is missing in settings")
		}
	case BackendPolly:
		if s.AWSRegion == "" {
			return fmt.Errorf("AWS region is missing in settings")
		}
	default:
		return fmt.Errorf("unknown handler backend %q (expected %q or %q)", s.HandlerBackend, BackendKokoro, BackendPolly)
	}
	return nil
}
