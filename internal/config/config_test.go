package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/speaklab/internal/silencegate"
)

func setMockEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for key, value := range env {
		t.Setenv(key, value)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	setMockEnv(t, map[string]string{"STT_PROVIDER": "mock"})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.Warnings)
	assert.Equal(t, silencegate.DefaultConfig(), cfg.Gate)
	assert.Equal(t, silencegate.DefaultOptions(), cfg.GateOpts)
	assert.Equal(t, "8080", cfg.Settings.Port)
	assert.Equal(t, "ffmpeg", cfg.Settings.FFmpegPath)
	assert.Equal(t, int64(25<<20), cfg.Settings.MaxUploadBytes)
	assert.Equal(t, "whisper-1", cfg.Settings.WhisperModel)
	assert.Equal(t, "en", cfg.Settings.TranscribeLanguage)
	assert.Equal(t, DefaultTranscribePrompt, cfg.Settings.TranscribePrompt)
	assert.Equal(t, os.TempDir(), cfg.Settings.UploadTempDir)
	assert.Equal(t, "26214400B", cfg.Settings.BodyLimit())
}

func TestFromEnv_ValidOverrides(t *testing.T) {
	setMockEnv(t, map[string]string{
		"STT_PROVIDER":               "mock",
		"VAD_FRAME_MS":               "30",
		"VAD_SILENCE_DBFS":           "-50",
		"VAD_SILENCE_RATIO_CUTOFF":   "0.9",
		"VAD_MIN_DURATION_SECONDS":   "0",
		"VAD_DECODE_TIMEOUT":         "5s",
		"VAD_MAX_CONCURRENT_DECODES": "2",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.Warnings)
	assert.Equal(t, 30, cfg.Gate.FrameDurationMs)
	assert.Equal(t, -50.0, cfg.Gate.SilenceThresholdDBFS)
	assert.Equal(t, 0.9, cfg.Gate.SilenceRatioCutoff)
	assert.Equal(t, 0.0, cfg.Gate.MinDurationSec)
	assert.Equal(t, 5*time.Second, cfg.GateOpts.DecodeTimeout)
	assert.Equal(t, 2, cfg.GateOpts.MaxConcurrentDecodes)
}

func TestFromEnv_InvalidVADValuesFallBackPerField(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, cfg *Config)
	}{
		{"frame not integer", "VAD_FRAME_MS", "twenty", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultFrameDurationMs, cfg.Gate.FrameDurationMs)
		}},
		{"frame zero", "VAD_FRAME_MS", "0", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultFrameDurationMs, cfg.Gate.FrameDurationMs)
		}},
		{"frame negative", "VAD_FRAME_MS", "-20", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultFrameDurationMs, cfg.Gate.FrameDurationMs)
		}},
		{"frame above cap", "VAD_FRAME_MS", "1001", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultFrameDurationMs, cfg.Gate.FrameDurationMs)
		}},
		{"frame huge", "VAD_FRAME_MS", "100000000", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultFrameDurationMs, cfg.Gate.FrameDurationMs)
			assert.Equal(t, silencegate.DefaultConfig().FrameByteCount(), cfg.Gate.FrameByteCount())
		}},
		{"dbfs positive", "VAD_SILENCE_DBFS", "6", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultSilenceThresholdDBFS, cfg.Gate.SilenceThresholdDBFS)
		}},
		{"dbfs NaN", "VAD_SILENCE_DBFS", "NaN", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultSilenceThresholdDBFS, cfg.Gate.SilenceThresholdDBFS)
		}},
		{"dbfs infinite", "VAD_SILENCE_DBFS", "-Inf", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultSilenceThresholdDBFS, cfg.Gate.SilenceThresholdDBFS)
		}},
		{"cutoff zero", "VAD_SILENCE_RATIO_CUTOFF", "0", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultSilenceRatioCutoff, cfg.Gate.SilenceRatioCutoff)
		}},
		{"cutoff above one", "VAD_SILENCE_RATIO_CUTOFF", "1.5", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultSilenceRatioCutoff, cfg.Gate.SilenceRatioCutoff)
		}},
		{"min duration negative", "VAD_MIN_DURATION_SECONDS", "-1", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultMinDurationSec, cfg.Gate.MinDurationSec)
		}},
		{"timeout garbage", "VAD_DECODE_TIMEOUT", "soon", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultOptions().DecodeTimeout, cfg.GateOpts.DecodeTimeout)
		}},
		{"timeout zero", "VAD_DECODE_TIMEOUT", "0s", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultOptions().DecodeTimeout, cfg.GateOpts.DecodeTimeout)
		}},
		{"max decodes zero", "VAD_MAX_CONCURRENT_DECODES", "0", func(t *testing.T, cfg *Config) {
			assert.Equal(t, silencegate.DefaultOptions().MaxConcurrentDecodes, cfg.GateOpts.MaxConcurrentDecodes)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMockEnv(t, map[string]string{
				"STT_PROVIDER": "mock",
				tt.key:         tt.value,
			})

			cfg, err := FromEnv()
			require.NoError(t, err)

			require.Len(t, cfg.Warnings, 1)
			assert.Contains(t, cfg.Warnings[0], tt.key)
			tt.check(t, cfg)
		})
	}
}

func TestFromEnv_OneBadFieldKeepsTheOthers(t *testing.T) {
	setMockEnv(t, map[string]string{
		"STT_PROVIDER":             "mock",
		"VAD_FRAME_MS":             "abc",
		"VAD_SILENCE_RATIO_CUTOFF": "0.6",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, silencegate.DefaultFrameDurationMs, cfg.Gate.FrameDurationMs)
	assert.Equal(t, 0.6, cfg.Gate.SilenceRatioCutoff)
}

func TestFromEnv_DecodeTimeoutInSeconds(t *testing.T) {
	setMockEnv(t, map[string]string{
		"STT_PROVIDER":       "mock",
		"VAD_DECODE_TIMEOUT": "2.5",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.GateOpts.DecodeTimeout)
}

func TestFromEnv_Provider(t *testing.T) {
	t.Run("whisper requires api key", func(t *testing.T) {
		setMockEnv(t, map[string]string{"STT_PROVIDER": "whisper", "OPENAI_API_KEY": ""})
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("whisper with api key", func(t *testing.T) {
		setMockEnv(t, map[string]string{"STT_PROVIDER": "Whisper", "OPENAI_API_KEY": "sk-test"})
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ProviderWhisper, cfg.Settings.STTProvider)
	})

	t.Run("unknown provider", func(t *testing.T) {
		setMockEnv(t, map[string]string{"STT_PROVIDER": "azure"})
		_, err := FromEnv()
		assert.Error(t, err)
	})
}

func TestFromEnv_MalformedServerSetting(t *testing.T) {
	setMockEnv(t, map[string]string{
		"STT_PROVIDER":     "mock",
		"MAX_UPLOAD_BYTES": "lots",
	})

	_, err := FromEnv()
	assert.Error(t, err)
}
