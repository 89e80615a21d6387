package silencegate

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func TestTally_Result(t *testing.T) {
	var tally Tally
	for i := 0; i < 10; i++ {
		tally.Add(i < 3)
	}

	result := tally.Result(DefaultConfig())
	assert.Equal(t, uint64(10), result.TotalFrames)
	assert.Equal(t, uint64(3), result.SilentFrames)
	assert.InDelta(t, 0.3, result.SilentRatio, 1e-12)
	assert.InDelta(t, 0.2, result.TotalDurationSec, 1e-12)
}

func TestTally_EmptyResultIsNaN(t *testing.T) {
	var tally Tally
	result := tally.Result(DefaultConfig())

	assert.True(t, math.IsNaN(result.SilentRatio))
	assert.Zero(t, result.TotalFrames)
	assert.Zero(t, result.TotalDurationSec)
}

func TestAnalyze_AllZeroStream(t *testing.T) {
	// 64000 samples, 256000 bytes at 1280 bytes per frame.
	stream := constantPCM(0, 64000)

	analysis, err := Analyze(bytes.NewReader(stream), DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	result := analysis.Result
	assert.Equal(t, uint64(200), result.TotalFrames)
	assert.Equal(t, uint64(200), result.SilentFrames)
	assert.Equal(t, 1.0, result.SilentRatio)
	assert.InDelta(t, 4.0, result.TotalDurationSec, 1e-9)
	assert.Equal(t, int64(256000), analysis.DecodedBytes)
	assert.Zero(t, analysis.DiscardedBytes)

	assert.Equal(t, OutcomeRejectedMostlySilent, Decide(&result, DefaultConfig()).Outcome)
}

func TestAnalyze_EmptyStream(t *testing.T) {
	analysis, err := Analyze(bytes.NewReader(nil), DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.Zero(t, analysis.Result.TotalFrames)
	assert.True(t, math.IsNaN(analysis.Result.SilentRatio))

	verdict := Decide(&analysis.Result, DefaultConfig())
	assert.Equal(t, OutcomeRejectedMostlySilent, verdict.Outcome)
}

func TestAnalyze_LoudStream(t *testing.T) {
	stream := sinePCM(0.3, 32000, 16000)

	analysis, err := Analyze(iotest.OneByteReader(bytes.NewReader(stream)), DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, uint64(100), analysis.Result.TotalFrames)
	assert.Zero(t, analysis.Result.SilentFrames)
	assert.Equal(t, 0.0, analysis.Result.SilentRatio)
	assert.InDelta(t, 0.3/math.Sqrt2, analysis.PeakRMS, 5e-3)
	assert.Equal(t, OutcomeProceed, Decide(&analysis.Result, DefaultConfig()).Outcome)
}

func TestAnalyze_DropsTrailingPartialFrame(t *testing.T) {
	stream := append(constantPCM(0.5, 640), 1, 2, 3, 4, 5)

	analysis, err := Analyze(bytes.NewReader(stream), DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), analysis.Result.TotalFrames)
	assert.Equal(t, 5, analysis.DiscardedBytes)
}

func TestAnalyze_ReadError(t *testing.T) {
	boom := errors.New("pipe broke")
	r := io.MultiReader(bytes.NewReader(constantPCM(0, 640)), iotest.ErrReader(boom))

	_, err := Analyze(r, DefaultConfig(), zap.NewNop())
	assert.ErrorIs(t, err, boom)
}

func TestAnalyze_FrameCountLaw(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		frameMs := rapid.IntRange(1, 60).Draw(rt, "frameMs")
		cfg, err := NewConfig(frameMs, 16000, -45, 0.85, 0.8)
		require.NoError(rt, err)

		stream := rapid.SliceOfN(rapid.Byte(), 0, 20000).Draw(rt, "stream")
		analysis, err := Analyze(bytes.NewReader(stream), cfg, nil)
		require.NoError(rt, err)

		assert.Equal(rt, uint64(len(stream)/cfg.FrameByteCount()), analysis.Result.TotalFrames)
		assert.LessOrEqual(rt, analysis.Result.SilentFrames, analysis.Result.TotalFrames)
	})
}

func TestAnalyze_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 4000).Draw(rt, "samples")
		samples := make([]float32, n)
		for i := range samples {
			samples[i] = rapid.Float32Range(-1, 1).Draw(rt, "sample")
		}
		stream := pcm(samples...)

		first, err := Analyze(bytes.NewReader(stream), DefaultConfig(), nil)
		require.NoError(rt, err)
		second, err := Analyze(iotest.HalfReader(bytes.NewReader(stream)), DefaultConfig(), nil)
		require.NoError(rt, err)

		assert.Equal(rt, first.Result.TotalFrames, second.Result.TotalFrames)
		assert.Equal(rt, first.Result.SilentFrames, second.Result.SilentFrames)
		assert.Equal(rt, first.Result.TotalDurationSec, second.Result.TotalDurationSec)
		assert.Equal(rt, math.Float64bits(first.Result.SilentRatio), math.Float64bits(second.Result.SilentRatio))
	})
}
