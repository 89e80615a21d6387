package silencegate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/satriahrh/speaklab/domain/repositories"
)

// ErrNoDecodeSlot means every decode slot stayed busy until the deadline.
var ErrNoDecodeSlot = errors.New("no decode slot available")

// Fallback causes reported to logs and metrics.
const (
	CauseDecoderUnavailable = "decoder_unavailable"
	CauseDecodeTimeout      = "decode_timeout"
	CauseDecodeFailed       = "decode_failed"
	CauseNoDecodeSlot       = "no_decode_slot"
	CauseReadFailed         = "read_failed"
)

// Recorder receives gate measurements. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	RecordVerdict(outcome, rule string)
	RecordFallback(cause string)
	RecordDecode(duration time.Duration, success bool)
	RecordSilenceRatio(ratio float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordVerdict(string, string)     {}
func (nopRecorder) RecordFallback(string)            {}
func (nopRecorder) RecordDecode(time.Duration, bool) {}
func (nopRecorder) RecordSilenceRatio(float64)       {}

// Options bound the side effects of a gate check.
type Options struct {
	// DecodeTimeout caps slot wait plus decoding for one recording.
	DecodeTimeout time.Duration
	// MaxConcurrentDecodes caps decoder processes running at once.
	MaxConcurrentDecodes int
}

// DefaultOptions returns the stock decode limits.
func DefaultOptions() Options {
	return Options{
		DecodeTimeout:        15 * time.Second,
		MaxConcurrentDecodes: 8,
	}
}

// Gate runs the decoder and the silence analysis for uploaded recordings.
// It is safe for concurrent use; each Check owns its own decoder process and
// buffers.
type Gate struct {
	cfg      Config
	opts     Options
	decoder  repositories.AudioDecoder
	slots    *semaphore.Weighted
	recorder Recorder
	logger   *zap.Logger
}

// NewGate creates a gate. recorder may be nil.
func NewGate(cfg Config, decoder repositories.AudioDecoder, opts Options, recorder Recorder, logger *zap.Logger) *Gate {
	defaults := DefaultOptions()
	if opts.DecodeTimeout <= 0 {
		opts.DecodeTimeout = defaults.DecodeTimeout
	}
	if opts.MaxConcurrentDecodes <= 0 {
		opts.MaxConcurrentDecodes = defaults.MaxConcurrentDecodes
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Gate{
		cfg:      cfg,
		opts:     opts,
		decoder:  decoder,
		slots:    semaphore.NewWeighted(int64(opts.MaxConcurrentDecodes)),
		recorder: recorder,
		logger:   logger,
	}
}

// Config returns the thresholds the gate was built with.
func (g *Gate) Config() Config {
	return g.cfg
}

// Inspection is a verdict together with the analysis behind it. Analysis is
// nil when the gate fell back.
type Inspection struct {
	Verdict  Verdict
	Analysis *Analysis
}

// Check decodes the file at path and decides whether it holds enough speech.
// It never fails: decoder problems yield OutcomeSkippedFallback.
func (g *Gate) Check(ctx context.Context, path string) Verdict {
	return g.Inspect(ctx, path).Verdict
}

// Inspect is Check that also returns the frame counts and signal levels.
func (g *Gate) Inspect(ctx context.Context, path string) Inspection {
	start := time.Now()
	analysis, err := g.analyze(ctx, path)
	g.recorder.RecordDecode(time.Since(start), err == nil)

	if err != nil {
		return Inspection{Verdict: g.fallback(path, err)}
	}

	verdict := Decide(&analysis.Result, g.cfg)
	g.recorder.RecordVerdict(verdict.Outcome.String(), string(verdict.Rule))
	if analysis.Result.TotalFrames > 0 {
		g.recorder.RecordSilenceRatio(analysis.Result.SilentRatio)
	}

	fields := []zap.Field{
		zap.String("path", path),
		zap.String("outcome", verdict.Outcome.String()),
		zap.String("rule", string(verdict.Rule)),
		zap.Float64("silent_ratio", analysis.Result.SilentRatio),
		zap.Float64("duration_sec", analysis.Result.TotalDurationSec),
		zap.Uint64("total_frames", analysis.Result.TotalFrames),
		zap.Uint64("silent_frames", analysis.Result.SilentFrames),
		zap.Float64("peak_rms", analysis.PeakRMS),
		zap.Int64("decoded_bytes", analysis.DecodedBytes),
		zap.Int("discarded_bytes", analysis.DiscardedBytes),
		zap.Duration("elapsed", time.Since(start)),
	}

	if verdict.Outcome == OutcomeRejectedMostlySilent {
		fields = append(fields,
			zap.Int("frame_ms", g.cfg.FrameDurationMs),
			zap.Float64("threshold_dbfs", g.cfg.SilenceThresholdDBFS),
			zap.Float64("ratio_cutoff", g.cfg.SilenceRatioCutoff),
			zap.Float64("min_duration_sec", g.cfg.MinDurationSec))
		g.logger.Info("Silence gate triggered", fields...)
	} else {
		g.logger.Debug("Silence gate passed", fields...)
	}

	return Inspection{Verdict: verdict, Analysis: &analysis}
}

// analyze runs the decoder under the timeout and a decode slot. The stream is
// closed, and so the decoder reaped, on every path.
func (g *Gate) analyze(ctx context.Context, path string) (analysis Analysis, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.DecodeTimeout)
	defer cancel()

	if err := g.slots.Acquire(ctx, 1); err != nil {
		return Analysis{}, fmt.Errorf("%w: %w", ErrNoDecodeSlot, err)
	}
	defer g.slots.Release(1)

	stream, err := g.decoder.Open(ctx, path, g.cfg.SampleRateHz)
	if err != nil {
		return Analysis{}, err
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return Analyze(stream, g.cfg, g.logger)
}

func (g *Gate) fallback(path string, err error) Verdict {
	cause := fallbackCause(err)
	g.recorder.RecordFallback(cause)
	g.recorder.RecordVerdict(OutcomeSkippedFallback.String(), string(RuleFallback))

	g.logger.Warn("Silence check skipped",
		zap.String("path", path),
		zap.Bool("silence_gate_fallback", true),
		zap.String("cause", cause),
		zap.Error(err))

	verdict := Decide(nil, g.cfg)
	verdict.Cause = err
	return verdict
}

func fallbackCause(err error) string {
	switch {
	case errors.Is(err, repositories.ErrDecoderUnavailable):
		return CauseDecoderUnavailable
	case errors.Is(err, ErrNoDecodeSlot):
		return CauseNoDecodeSlot
	case errors.Is(err, context.DeadlineExceeded):
		return CauseDecodeTimeout
	case errors.Is(err, repositories.ErrDecodeFailed):
		return CauseDecodeFailed
	default:
		return CauseReadFailed
	}
}
