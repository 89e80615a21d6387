package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/speaklab/domain"
	"github.com/satriahrh/speaklab/domain/repositories"
	"github.com/satriahrh/speaklab/internal/silencegate"
)

// minTranscriptWords is the shortest answer worth scoring.
const minTranscriptWords = 3

var hallucinationPattern = regexp.MustCompile(`(?i)(thank you for watching|subscribe|like and subscribe|foreign)`)

// SilenceChecker inspects a stored recording before it is transcribed
type SilenceChecker interface {
	Check(ctx context.Context, path string) silencegate.Verdict
}

// TranscriptionRecorder receives per-request outcomes
type TranscriptionRecorder interface {
	RecordTranscription(provider, result string, duration time.Duration)
}

// TranscriptionConfig holds the transcription service settings
type TranscriptionConfig struct {
	TempDir  string
	Provider string
	Language string
	Prompt   string
}

// TranscriptionService runs the silence gate and, when it lets a recording
// through, the speech-to-text provider.
type TranscriptionService struct {
	gate         SilenceChecker
	speechToText repositories.SpeechToText
	config       TranscriptionConfig
	recorder     TranscriptionRecorder
	logger       *zap.Logger
}

// NewTranscriptionService creates a new transcription service. recorder may be nil.
func NewTranscriptionService(
	gate SilenceChecker,
	stt repositories.SpeechToText,
	config TranscriptionConfig,
	recorder TranscriptionRecorder,
	logger *zap.Logger,
) *TranscriptionService {
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	return &TranscriptionService{
		gate:         gate,
		speechToText: stt,
		config:       config,
		recorder:     recorder,
		logger:       logger,
	}
}

// Transcribe gates and transcribes one submission. The only error it returns
// comes from the speech-to-text provider; everything else degrades to a
// payload.
func (s *TranscriptionService) Transcribe(ctx context.Context, submission domain.Submission) (*domain.TranscriptionResult, error) {
	logger := s.logger.With(
		zap.String("taskID", submission.TaskID),
		zap.String("fileName", submission.FileName),
		zap.Int("audioSize", len(submission.Audio)))

	verdict := s.checkSilence(ctx, submission, logger)
	if !verdict.Forward() {
		s.record(string(domain.ResultSilence), 0)
		return domain.NewSilenceResult(verdict.SilentRatio, verdict.DurationSec), nil
	}

	audioConfig := repositories.AudioConfig{
		Encoding: encodingFor(submission),
		Language: s.config.Language,
		FileName: submission.FileName,
		Prompt:   s.config.Prompt,
	}

	start := time.Now()
	text, err := s.speechToText.TranscribeAudio(ctx, submission.Audio, audioConfig)
	elapsed := time.Since(start)
	if err != nil {
		s.record("error", elapsed)
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if !usableTranscript(text) {
		logger.Info("Transcript filtered as no speech",
			zap.String("text", text),
			zap.String("gateOutcome", verdict.Outcome.String()))
		s.record(string(domain.ResultFiltered), elapsed)
		return domain.NewFilteredResult(), nil
	}

	logger.Info("Transcription completed",
		zap.Int("words", len(strings.Fields(text))),
		zap.String("gateOutcome", verdict.Outcome.String()),
		zap.Duration("elapsed", elapsed))
	s.record(string(domain.ResultTranscript), elapsed)

	return domain.NewTranscriptResult(text), nil
}

// checkSilence stores the upload for the decoder and runs the gate. The temp
// file is removed before returning.
func (s *TranscriptionService) checkSilence(ctx context.Context, submission domain.Submission, logger *zap.Logger) silencegate.Verdict {
	path, err := s.saveToTemp(submission)
	if err != nil {
		logger.Warn("Silence check skipped",
			zap.Bool("silence_gate_fallback", true),
			zap.String("cause", "temp_write_failed"),
			zap.Error(err))
		verdict := silencegate.Decide(nil, silencegate.Config{})
		verdict.Cause = err
		return verdict
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove temp upload", zap.String("path", path), zap.Error(err))
		}
	}()

	return s.gate.Check(ctx, path)
}

func (s *TranscriptionService) saveToTemp(submission domain.Submission) (string, error) {
	ext := strings.ToLower(filepath.Ext(submission.FileName))
	if ext == "" {
		ext = ".webm"
	}
	path := filepath.Join(s.config.TempDir, "audio-"+uuid.NewString()+ext)

	if err := os.WriteFile(path, submission.Audio, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp upload: %w", err)
	}
	return path, nil
}

func (s *TranscriptionService) record(result string, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordTranscription(s.config.Provider, result, elapsed)
	}
}

// usableTranscript rejects empty, very short and known hallucinated output.
func usableTranscript(text string) bool {
	if text == "" {
		return false
	}
	if len(strings.Fields(text)) < minTranscriptWords {
		return false
	}
	return !hallucinationPattern.MatchString(text)
}

func encodingFor(submission domain.Submission) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(submission.FileName), ".")) {
	case "ogg", "oga", "opus":
		return "OGG"
	case "wav":
		return "WAV"
	case "flac":
		return "FLAC"
	}
	if strings.Contains(submission.ContentType, "ogg") {
		return "OGG"
	}
	return "WEBM"
}
