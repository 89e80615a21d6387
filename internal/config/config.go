// Package config loads process settings from the environment once at
// startup.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/satriahrh/speaklab/internal/silencegate"
)

// DefaultTranscribePrompt steers the recognizer towards the practice topic.
const DefaultTranscribePrompt = "Context: short English answers about daily routines and daily life. " +
	"If the audio is unclear or too short, please return an empty transcript so the user can try recording again."

// STT providers
const (
	ProviderWhisper = "whisper"
	ProviderGoogle  = "google"
	ProviderMock    = "mock"
)

// Settings mirrors the environment. The VAD values stay raw strings so a bad
// value can fall back to its default instead of failing the whole load.
type Settings struct {
	Port           string `envconfig:"PORT" default:"8080"`
	FFmpegPath     string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	UploadTempDir  string `envconfig:"UPLOAD_TEMP_DIR"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	STTProvider        string `envconfig:"STT_PROVIDER" default:"whisper"`
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `envconfig:"OPENAI_BASE_URL"`
	WhisperModel       string `envconfig:"WHISPER_MODEL" default:"whisper-1"`
	TranscribeLanguage string `envconfig:"TRANSCRIBE_LANGUAGE" default:"en"`
	TranscribePrompt   string `envconfig:"TRANSCRIBE_PROMPT"`

	VADFrameMs              string `envconfig:"VAD_FRAME_MS"`
	VADSilenceDBFS          string `envconfig:"VAD_SILENCE_DBFS"`
	VADSilenceRatioCutoff   string `envconfig:"VAD_SILENCE_RATIO_CUTOFF"`
	VADMinDurationSeconds   string `envconfig:"VAD_MIN_DURATION_SECONDS"`
	VADDecodeTimeout        string `envconfig:"VAD_DECODE_TIMEOUT"`
	VADMaxConcurrentDecodes string `envconfig:"VAD_MAX_CONCURRENT_DECODES"`
}

// Config is the validated configuration handed to the rest of the process.
type Config struct {
	Settings Settings
	Gate     silencegate.Config
	GateOpts silencegate.Options
	// Warnings lists every value that was rejected and replaced by its
	// default. They are logged once the logger exists.
	Warnings []string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// A missing .env is the normal production case.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var settings Settings
	if err := envconfig.Process("", &settings); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return build(settings)
}

func build(settings Settings) (*Config, error) {
	p := &parser{}

	frameMs := p.intValue("VAD_FRAME_MS", settings.VADFrameMs, silencegate.DefaultFrameDurationMs,
		func(v int) bool { return v > 0 && v <= silencegate.MaxFrameDurationMs })
	dbfs := p.floatValue("VAD_SILENCE_DBFS", settings.VADSilenceDBFS, silencegate.DefaultSilenceThresholdDBFS,
		func(v float64) bool { return v <= 0 })
	cutoff := p.floatValue("VAD_SILENCE_RATIO_CUTOFF", settings.VADSilenceRatioCutoff, silencegate.DefaultSilenceRatioCutoff,
		func(v float64) bool { return v > 0 && v <= 1 })
	minDuration := p.floatValue("VAD_MIN_DURATION_SECONDS", settings.VADMinDurationSeconds, silencegate.DefaultMinDurationSec,
		func(v float64) bool { return v >= 0 })

	defaults := silencegate.DefaultOptions()
	timeout := p.durationValue("VAD_DECODE_TIMEOUT", settings.VADDecodeTimeout, defaults.DecodeTimeout)
	maxDecodes := p.intValue("VAD_MAX_CONCURRENT_DECODES", settings.VADMaxConcurrentDecodes, defaults.MaxConcurrentDecodes,
		func(v int) bool { return v > 0 })

	gate, err := silencegate.NewConfig(frameMs, silencegate.DefaultSampleRateHz, dbfs, cutoff, minDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid silence gate config: %w", err)
	}

	settings.STTProvider = strings.ToLower(strings.TrimSpace(settings.STTProvider))
	switch settings.STTProvider {
	case ProviderWhisper, ProviderGoogle, ProviderMock:
	default:
		return nil, fmt.Errorf("unsupported STT_PROVIDER %q", settings.STTProvider)
	}
	if settings.STTProvider == ProviderWhisper && settings.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when STT_PROVIDER is %s", ProviderWhisper)
	}

	if settings.UploadTempDir == "" {
		settings.UploadTempDir = os.TempDir()
	}
	if settings.MaxUploadBytes <= 0 {
		p.warn("MAX_UPLOAD_BYTES", strconv.FormatInt(settings.MaxUploadBytes, 10), "must be positive")
		settings.MaxUploadBytes = 25 << 20
	}
	if settings.TranscribePrompt == "" {
		settings.TranscribePrompt = DefaultTranscribePrompt
	}

	return &Config{
		Settings: settings,
		Gate:     gate,
		GateOpts: silencegate.Options{
			DecodeTimeout:        timeout,
			MaxConcurrentDecodes: maxDecodes,
		},
		Warnings: p.warnings,
	}, nil
}

// BodyLimit renders MaxUploadBytes in the form echo's BodyLimit expects.
func (s Settings) BodyLimit() string {
	return strconv.FormatInt(s.MaxUploadBytes, 10) + "B"
}

type parser struct {
	warnings []string
}

func (p *parser) warn(name, raw, reason string) {
	p.warnings = append(p.warnings, fmt.Sprintf("%s=%q %s, using default", name, raw, reason))
}

func (p *parser) intValue(name, raw string, def int, valid func(int) bool) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.warn(name, raw, "is not an integer")
		return def
	}
	if !valid(v) {
		p.warn(name, raw, "is out of range")
		return def
	}
	return v
}

func (p *parser) floatValue(name, raw string, def float64, valid func(float64) bool) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.warn(name, raw, "is not a number")
		return def
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || !valid(v) {
		p.warn(name, raw, "is out of range")
		return def
	}
	return v
}

// durationValue accepts Go durations ("15s") and plain seconds ("15").
func (p *parser) durationValue(name, raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
			p.warn(name, raw, "is not a duration")
			return def
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		p.warn(name, raw, "must be positive")
		return def
	}
	return d
}
