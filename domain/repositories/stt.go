package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts a complete recording to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
	// FileName carries the original upload name; some providers sniff the
	// container from its extension.
	FileName string `json:"file_name"`
	// Prompt biases the recognizer towards the expected vocabulary.
	Prompt string `json:"prompt,omitempty"`
}
