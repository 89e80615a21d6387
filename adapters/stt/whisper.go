package stt

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/speaklab/domain/repositories"
)

const defaultUploadName = "recording.webm"

// WhisperConfig holds configuration for the Whisper adapter
// Required fields:
// - APIKey: OpenAI API key
// Optional fields with defaults:
// - Model: transcription model (default: "whisper-1")
// - BaseURL: API base URL, for proxies and tests (default: OpenAI)
type WhisperConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// WhisperSpeechToText implements SpeechToText using OpenAI's transcription API
type WhisperSpeechToText struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Ensure WhisperSpeechToText implements the SpeechToText interface
var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

// NewWhisperSpeechToText creates a new Whisper adapter
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperSpeechToText{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// TranscribeAudio sends the recording as-is; the API sniffs the container
// from the file name.
func (w *WhisperSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	fileName := filepath.Base(config.FileName)
	if fileName == "." || fileName == "/" || filepath.Ext(fileName) == "" {
		fileName = defaultUploadName
	}

	w.logger.Info("Sending audio to Whisper",
		zap.Int("audioSize", len(audioData)),
		zap.String("model", w.model),
		zap.String("language", config.Language))

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       w.model,
		FilePath:    fileName,
		Reader:      bytes.NewReader(audioData),
		Prompt:      config.Prompt,
		Temperature: 0,
		Language:    config.Language,
		Format:      openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
