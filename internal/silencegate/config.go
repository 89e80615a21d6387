// Package silencegate decides whether an uploaded recording contains enough
// speech to be worth transcribing.
//
// The decoded stream is cut into fixed-length frames, each frame is classified
// as silent or voiced by its RMS energy, and the counts are folded into a
// SilenceCheckResult. Decide turns that result into a Verdict. Everything
// except Gate is pure and safe to call without a decoder.
package silencegate

import (
	"fmt"
	"math"
	"time"
)

// BytesPerSample is the width of one f32le PCM sample.
const BytesPerSample = 4

// Defaults used when configuration is absent or invalid.
const (
	DefaultFrameDurationMs      = 20
	DefaultSampleRateHz         = 16000
	DefaultSilenceThresholdDBFS = -45.0
	DefaultSilenceRatioCutoff   = 0.85
	DefaultMinDurationSec       = 0.8
)

// Upper bounds keeping the per-request frame buffer small.
const (
	MaxFrameDurationMs = 1000
	MaxSampleRateHz    = 192000
)

// Config holds the gate thresholds. It is built once at startup and shared
// read-only between requests.
type Config struct {
	FrameDurationMs      int
	SampleRateHz         int
	SilenceThresholdDBFS float64
	SilenceRatioCutoff   float64
	MinDurationSec       float64

	thresholdLinear float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	cfg, _ := NewConfig(DefaultFrameDurationMs, DefaultSampleRateHz,
		DefaultSilenceThresholdDBFS, DefaultSilenceRatioCutoff, DefaultMinDurationSec)
	return cfg
}

// NewConfig validates the parameters and precomputes the linear threshold.
func NewConfig(frameMs, sampleRate int, dbfs, ratioCutoff, minDurationSec float64) (Config, error) {
	if frameMs <= 0 || frameMs > MaxFrameDurationMs {
		return Config{}, fmt.Errorf("frame duration must be in (0, %d] ms, got %d ms", MaxFrameDurationMs, frameMs)
	}
	if sampleRate <= 0 || sampleRate > MaxSampleRateHz {
		return Config{}, fmt.Errorf("sample rate must be in (0, %d] Hz, got %d Hz", MaxSampleRateHz, sampleRate)
	}
	if math.IsNaN(dbfs) || math.IsInf(dbfs, 0) {
		return Config{}, fmt.Errorf("silence threshold must be finite, got %v dBFS", dbfs)
	}
	if math.IsNaN(ratioCutoff) || math.IsInf(ratioCutoff, 0) {
		return Config{}, fmt.Errorf("silence ratio cutoff must be finite, got %v", ratioCutoff)
	}
	if math.IsNaN(minDurationSec) || math.IsInf(minDurationSec, 0) {
		return Config{}, fmt.Errorf("minimum duration must be finite, got %v", minDurationSec)
	}

	return Config{
		FrameDurationMs:      frameMs,
		SampleRateHz:         sampleRate,
		SilenceThresholdDBFS: dbfs,
		SilenceRatioCutoff:   ratioCutoff,
		MinDurationSec:       minDurationSec,
		thresholdLinear:      DBFSToLinear(dbfs),
	}, nil
}

// DBFSToLinear converts a dBFS level to a linear RMS amplitude.
func DBFSToLinear(dbfs float64) float64 {
	return math.Pow(10, dbfs/20)
}

// SilenceThresholdLinear is the RMS level below which a frame is silent.
func (c Config) SilenceThresholdLinear() float64 {
	return c.thresholdLinear
}

// FrameSampleCount is the number of whole samples in one frame.
func (c Config) FrameSampleCount() int {
	return int(math.Floor(float64(c.SampleRateHz) * float64(c.FrameDurationMs) / 1000))
}

// FrameByteCount is the size of one frame in bytes, never less than 1.
func (c Config) FrameByteCount() int {
	return max(1, c.FrameSampleCount()*BytesPerSample)
}

// FrameDuration is the nominal duration of one frame.
func (c Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameDurationMs) * time.Millisecond
}
