package silencegate

import (
	"encoding/binary"
	"math"
)

// FrameRMS returns the root-mean-square level of a frame of little-endian
// float32 samples. Accumulation is done in float64. A frame holding no whole
// sample has RMS 0.
func FrameRMS(frame []byte) float64 {
	n := len(frame) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sumSq float64
	for i := 0; i < n; i++ {
		v := float64(math.Float32frombits(binary.LittleEndian.Uint32(frame[i*BytesPerSample:])))
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(n))
}

// Classifier labels frames as silent or voiced against a linear threshold.
type Classifier struct {
	threshold float64
}

// NewClassifier uses the threshold precomputed in cfg.
func NewClassifier(cfg Config) Classifier {
	return Classifier{threshold: cfg.SilenceThresholdLinear()}
}

// Classify reports whether the frame is silent, along with its RMS.
func (c Classifier) Classify(frame []byte) (silent bool, rms float64) {
	rms = FrameRMS(frame)
	return rms < c.threshold, rms
}
