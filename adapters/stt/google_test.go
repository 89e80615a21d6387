package stt

import (
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAudioEncoding(t *testing.T) {
	tests := []struct {
		in       string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"", speechpb.RecognitionConfig_WEBM_OPUS},
		{"webm", speechpb.RecognitionConfig_WEBM_OPUS},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"ogg", speechpb.RecognitionConfig_OGG_OPUS},
		{"wav", speechpb.RecognitionConfig_LINEAR16},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := getAudioEncoding(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := getAudioEncoding("aiff")
	assert.Error(t, err)
}

func TestJoinTranscripts(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " I wake up early "}, {Transcript: "ignored"}}},
		{},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "and eat breakfast"}}},
	}

	assert.Equal(t, "I wake up early and eat breakfast", joinTranscripts(results))
	assert.Equal(t, "", joinTranscripts(nil))
}

func TestLanguageCode(t *testing.T) {
	assert.Equal(t, "en-US", languageCode(""))
	assert.Equal(t, "en-US", languageCode("en"))
	assert.Equal(t, "en-GB", languageCode("en-GB"))
}
