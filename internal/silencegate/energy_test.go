package silencegate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameRMS(t *testing.T) {
	tests := []struct {
		name     string
		frame    []byte
		expected float64
	}{
		{"silence", constantPCM(0, 320), 0},
		{"constant", constantPCM(0.5, 320), 0.5},
		{"negative constant", constantPCM(-0.25, 320), 0.25},
		{"alternating full scale", pcm(1, -1, 1, -1), 1},
		{"sine", sinePCM(1, 16000, 16000), 1 / math.Sqrt2},
		{"no whole sample", []byte{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, FrameRMS(tt.frame), 1e-4)
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	threshold := DefaultConfig().SilenceThresholdLinear()

	silent, rms := c.Classify(constantPCM(0, 320))
	assert.True(t, silent)
	assert.Zero(t, rms)

	silent, _ = c.Classify(constantPCM(float32(threshold/2), 320))
	assert.True(t, silent)

	silent, rms = c.Classify(constantPCM(float32(threshold*2), 320))
	assert.False(t, silent)
	assert.Greater(t, rms, threshold)
}

func TestClassifier_HigherThresholdSilencesMore(t *testing.T) {
	quiet, err := NewConfig(20, 16000, -60, 0.85, 0.8)
	assert.NoError(t, err)
	loud, err := NewConfig(20, 16000, -20, 0.85, 0.8)
	assert.NoError(t, err)

	// -40 dBFS tone sits between the two thresholds.
	frame := constantPCM(0.01, 320)

	silentQuiet, _ := NewClassifier(quiet).Classify(frame)
	silentLoud, _ := NewClassifier(loud).Classify(frame)
	assert.False(t, silentQuiet)
	assert.True(t, silentLoud)
}
