package silencegate

import (
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
)

// readChunkSize is the buffer used to pull decoded bytes off the stream.
const readChunkSize = 32 * 1024

// SilenceCheckResult summarises one decoded recording.
type SilenceCheckResult struct {
	// SilentRatio is SilentFrames/TotalFrames, NaN when TotalFrames is 0.
	SilentRatio  float64
	SilentFrames uint64
	TotalFrames  uint64
	// TotalDurationSec is TotalFrames times the frame duration. It counts
	// whole frames only, so it ignores a discarded trailing partial frame.
	TotalDurationSec float64
}

// Tally counts frame classifications.
type Tally struct {
	total  uint64
	silent uint64
}

// Add records one classified frame.
func (t *Tally) Add(silent bool) {
	t.total++
	if silent {
		t.silent++
	}
}

// Result derives the ratio and duration for the frames seen so far.
func (t *Tally) Result(cfg Config) SilenceCheckResult {
	ratio := math.NaN()
	if t.total > 0 {
		ratio = float64(t.silent) / float64(t.total)
	}
	return SilenceCheckResult{
		SilentRatio:      ratio,
		SilentFrames:     t.silent,
		TotalFrames:      t.total,
		TotalDurationSec: float64(t.total) * float64(cfg.FrameDurationMs) / 1000,
	}
}

// Analysis is a SilenceCheckResult plus diagnostics that only go to logs.
type Analysis struct {
	Result SilenceCheckResult

	DecodedBytes   int64
	DiscardedBytes int
	PeakRMS        float64
}

// Analyze reads decoded f32le PCM from r until EOF and folds it into a
// SilenceCheckResult. Frames are classified in stream order. A read error
// other than EOF aborts the analysis.
func Analyze(r io.Reader, cfg Config, logger *zap.Logger) (Analysis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		analysis   Analysis
		tally      Tally
		classifier = NewClassifier(cfg)
	)

	assembler := NewAssembler(cfg.FrameByteCount(), func(frame []byte) {
		silent, rms := classifier.Classify(frame)
		tally.Add(silent)
		if rms > analysis.PeakRMS {
			analysis.PeakRMS = rms
		}
		if ce := logger.Check(zap.DebugLevel, "Frame classified"); ce != nil {
			ce.Write(
				zap.Uint64("frame", tally.total-1),
				zap.Float64("rms", rms),
				zap.Bool("silent", silent))
		}
	})

	n, err := io.CopyBuffer(assembler, r, make([]byte, readChunkSize))
	analysis.DecodedBytes = n
	if err != nil {
		return analysis, fmt.Errorf("failed to read decoded audio: %w", err)
	}

	analysis.DiscardedBytes = assembler.Discard()
	analysis.Result = tally.Result(cfg)
	return analysis, nil
}
