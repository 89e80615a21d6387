package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/speaklab/domain/repositories"
)

const (
	defaultBinary    = "ffmpeg"
	defaultWaitDelay = 2 * time.Second
	stderrTailBytes  = 4 * 1024
)

// FFmpegConfig holds configuration for the ffmpeg decoder
type FFmpegConfig struct {
	// BinaryPath is looked up on PATH when it has no separator (default: "ffmpeg")
	BinaryPath string
	// WaitDelay bounds how long pipes may stay open after the process is
	// killed (default: 2s)
	WaitDelay time.Duration
}

// FFmpegDecoder decodes audio files by piping them through an ffmpeg process
type FFmpegDecoder struct {
	binaryPath string
	waitDelay  time.Duration
	logger     *zap.Logger
}

// Ensure FFmpegDecoder implements the AudioDecoder interface
var _ repositories.AudioDecoder = (*FFmpegDecoder)(nil)

// NewFFmpegDecoder creates a new ffmpeg backed decoder. A missing binary is
// not an error here; it surfaces from Open as ErrDecoderUnavailable.
func NewFFmpegDecoder(config FFmpegConfig, logger *zap.Logger) *FFmpegDecoder {
	binaryPath := config.BinaryPath
	if binaryPath == "" {
		binaryPath = defaultBinary
	}
	waitDelay := config.WaitDelay
	if waitDelay <= 0 {
		waitDelay = defaultWaitDelay
	}
	return &FFmpegDecoder{
		binaryPath: binaryPath,
		waitDelay:  waitDelay,
		logger:     logger,
	}
}

// Available reports whether the ffmpeg binary can be resolved
func (d *FFmpegDecoder) Available() error {
	if _, err := exec.LookPath(d.binaryPath); err != nil {
		return fmt.Errorf("%w: %w", repositories.ErrDecoderUnavailable, err)
	}
	return nil
}

// Open starts ffmpeg on the file and streams mono f32le PCM from its stdout.
// The process is bound to ctx and is reaped by Close.
func (d *FFmpegDecoder) Open(ctx context.Context, path string, sampleRate int) (io.ReadCloser, error) {
	binary, err := exec.LookPath(d.binaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repositories.ErrDecoderUnavailable, err)
	}

	cmd := exec.CommandContext(ctx, binary, Args(path, sampleRate)...)
	cmd.WaitDelay = d.waitDelay

	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", repositories.ErrDecoderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %w", repositories.ErrDecodeFailed, err)
	}

	d.logger.Debug("ffmpeg started",
		zap.String("path", path),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("sampleRate", sampleRate))

	return &pcmStream{
		ctx:    ctx,
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		logger: d.logger,
	}, nil
}

// Args returns the ffmpeg arguments for decoding path to raw mono f32le PCM
// on stdout.
func Args(path string, sampleRate int) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"pipe:1",
	}
}

// pcmStream is the read side of one ffmpeg process
type pcmStream struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	logger *zap.Logger

	eof       bool
	closeOnce sync.Once
	closeErr  error
}

func (s *pcmStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == io.EOF {
		s.eof = true
	}
	return n, err
}

// Close stops ffmpeg if the output was not read to the end, then waits for
// it. Safe to call more than once.
func (s *pcmStream) Close() error {
	s.closeOnce.Do(func() {
		if !s.eof {
			if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.logger.Warn("Failed to kill ffmpeg", zap.Error(err))
			}
		}
		s.closeErr = s.wait()
	})
	return s.closeErr
}

func (s *pcmStream) wait() error {
	err := s.cmd.Wait()
	if err == nil {
		return nil
	}

	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: ffmpeg interrupted: %w", repositories.ErrDecodeFailed, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: ffmpeg exited with status %d: %s",
			repositories.ErrDecodeFailed, exitErr.ExitCode(), s.stderr.String())
	}
	return fmt.Errorf("%w: %w", repositories.ErrDecodeFailed, err)
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
