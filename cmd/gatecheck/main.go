// Command gatecheck runs the silence gate against local recordings, for
// tuning thresholds without going through the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/speaklab/adapters/decoder"
	"github.com/satriahrh/speaklab/internal/config"
	"github.com/satriahrh/speaklab/internal/silencegate"
)

// report is one line of gatecheck output
type report struct {
	File            string   `json:"file"`
	Outcome         string   `json:"outcome"`
	Rule            string   `json:"rule"`
	Forward         bool     `json:"forward"`
	SilenceRatio    *float64 `json:"silenceRatio"`
	DurationSeconds float64  `json:"durationSeconds"`
	SilentFrames    *uint64  `json:"silentFrames,omitempty"`
	TotalFrames     *uint64  `json:"totalFrames,omitempty"`
	PeakRMS         *float64 `json:"peakRms,omitempty"`
	Cause           string   `json:"cause,omitempty"`
}

type options struct {
	frameMs        int
	dbfs           float64
	ratioCutoff    float64
	minDuration    float64
	ffmpegPath     string
	timeout        time.Duration
	rawPCM         bool
	logLevel       string
	failOnRejected bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := silencegate.DefaultConfig()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "gatecheck [files...]",
		Short: "Run the silence gate against local recordings",
		Long: `gatecheck decodes each file with ffmpeg, runs the silence gate and prints
one JSON verdict per line, with frame counts and peak RMS whenever the
recording could be analysed. With --pcm the files are read as raw mono f32le
PCM at 16 kHz and no decoder is started; "-" reads standard input.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), opts, args)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVar(&opts.frameMs, "frame-ms", defaults.FrameDurationMs, "frame duration in milliseconds")
	flags.Float64Var(&opts.dbfs, "dbfs", defaults.SilenceThresholdDBFS, "silence threshold in dBFS")
	flags.Float64Var(&opts.ratioCutoff, "ratio-cutoff", defaults.SilenceRatioCutoff, "silent frame ratio at which a recording is rejected")
	flags.Float64Var(&opts.minDuration, "min-duration", defaults.MinDurationSec, "minimum decoded duration in seconds")
	flags.StringVar(&opts.ffmpegPath, "ffmpeg", "ffmpeg", "ffmpeg binary")
	flags.DurationVar(&opts.timeout, "timeout", silencegate.DefaultOptions().DecodeTimeout, "decode timeout per file")
	flags.BoolVar(&opts.rawPCM, "pcm", false, "treat inputs as raw f32le PCM")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flags.BoolVar(&opts.failOnRejected, "fail-on-rejected", false, "exit non-zero when any file is rejected")

	return rootCmd
}

func run(ctx context.Context, stdout io.Writer, stdin io.Reader, opts *options, files []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := config.NewLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := silencegate.NewConfig(opts.frameMs, silencegate.DefaultSampleRateHz, opts.dbfs, opts.ratioCutoff, opts.minDuration)
	if err != nil {
		return err
	}

	var gate *silencegate.Gate
	if !opts.rawPCM {
		ffmpeg := decoder.NewFFmpegDecoder(decoder.FFmpegConfig{BinaryPath: opts.ffmpegPath}, logger)
		gate = silencegate.NewGate(cfg, ffmpeg, silencegate.Options{
			DecodeTimeout:        opts.timeout,
			MaxConcurrentDecodes: 1,
		}, nil, logger)
	}

	encoder := json.NewEncoder(stdout)
	rejected := 0
	for _, file := range files {
		var r report
		if opts.rawPCM {
			r, err = checkPCM(file, stdin, cfg, logger)
			if err != nil {
				return err
			}
		} else {
			inspection := gate.Inspect(ctx, file)
			r = fromVerdict(file, inspection.Verdict)
			if inspection.Analysis != nil {
				r.withAnalysis(inspection.Analysis)
			}
		}

		if !r.Forward {
			rejected++
		}
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if opts.failOnRejected && rejected > 0 {
		return fmt.Errorf("%d of %d recordings rejected", rejected, len(files))
	}
	return nil
}

func checkPCM(file string, stdin io.Reader, cfg silencegate.Config, logger *zap.Logger) (report, error) {
	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return report{}, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}

	analysis, err := silencegate.Analyze(r, cfg, logger)
	if err != nil {
		return report{}, fmt.Errorf("failed to analyze %s: %w", file, err)
	}

	rep := fromVerdict(file, silencegate.Decide(&analysis.Result, cfg))
	rep.withAnalysis(&analysis)
	return rep, nil
}

// withAnalysis adds the frame counts and peak level; they are absent when
// the gate fell back.
func (r *report) withAnalysis(analysis *silencegate.Analysis) {
	r.SilentFrames = &analysis.Result.SilentFrames
	r.TotalFrames = &analysis.Result.TotalFrames
	r.PeakRMS = &analysis.PeakRMS
}

func fromVerdict(file string, verdict silencegate.Verdict) report {
	r := report{
		File:            file,
		Outcome:         verdict.Outcome.String(),
		Rule:            string(verdict.Rule),
		Forward:         verdict.Forward(),
		DurationSeconds: verdict.DurationSec,
	}
	if !math.IsNaN(verdict.SilentRatio) {
		ratio := verdict.SilentRatio
		r.SilenceRatio = &ratio
	}
	if verdict.Cause != nil {
		r.Cause = verdict.Cause.Error()
	}
	return r
}
