package domain

import "math"

// NoSpeechMessage is shown to the learner whenever a recording is not worth
// scoring.
const NoSpeechMessage = "Audio is unclear or too short. Please try recording again."

// Rejection reasons and error tags
const (
	ReasonMostlySilence = "mostly_silence"
	ErrorNoSpeech       = "no_speech"
)

// Submission is a single uploaded recording for a practice task
type Submission struct {
	TaskID      string
	FileName    string
	ContentType string
	Audio       []byte
}

// ResultKind tells which payload a TranscriptionResult carries
type ResultKind string

const (
	ResultTranscript ResultKind = "transcript"
	ResultSilence    ResultKind = "silence"
	ResultFiltered   ResultKind = "filtered"
)

// TranscriptionResult is the outcome of processing one submission.
// Exactly one payload matching Kind is set.
type TranscriptionResult struct {
	Kind       ResultKind
	Transcript *TranscriptResponse
	Silence    *SilenceRejection
	Filtered   *FilteredTranscript
}

// Payload returns the JSON body for the result
func (r *TranscriptionResult) Payload() interface{} {
	switch r.Kind {
	case ResultSilence:
		return r.Silence
	case ResultFiltered:
		return r.Filtered
	default:
		return r.Transcript
	}
}

// TranscriptResponse carries a usable transcript
type TranscriptResponse struct {
	Transcript string `json:"transcript"`
}

// SilenceRejection is the zero-score payload for a recording the silence
// gate turned away.
type SilenceRejection struct {
	Transcript string `json:"transcript"`
	NoSpeech   bool   `json:"no_speech"`
	Reason     string `json:"reason"`
	// SilenceRatio is null when no frame could be formed.
	SilenceRatio     *float64  `json:"silenceRatio"`
	DurationSeconds  float64   `json:"durationSeconds"`
	OverallScore     int       `json:"overallScore"`
	PerformanceLabel string    `json:"performanceLabel"`
	CEFR             string    `json:"cefr"`
	Subscores        Subscores `json:"subscores"`
	Feedback         string    `json:"feedback"`
}

// Subscores is the per-dimension score breakdown for a spoken answer
type Subscores struct {
	TaskCompletion int `json:"taskCompletion"`
	Elaboration    int `json:"elaboration"`
	Coherence      int `json:"coherence"`
	Grammar        int `json:"grammar"`
	Vocabulary     int `json:"vocabulary"`
}

// FilteredTranscript is returned when the recognizer produced nothing usable
type FilteredTranscript struct {
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// NewTranscriptResult wraps a usable transcript
func NewTranscriptResult(text string) *TranscriptionResult {
	return &TranscriptionResult{
		Kind:       ResultTranscript,
		Transcript: &TranscriptResponse{Transcript: text},
	}
}

// NewSilenceResult builds the rejection payload. ratio may be NaN.
func NewSilenceResult(ratio, durationSec float64) *TranscriptionResult {
	rejection := &SilenceRejection{
		Transcript:       "",
		NoSpeech:         true,
		Reason:           ReasonMostlySilence,
		DurationSeconds:  durationSec,
		PerformanceLabel: "Try again",
		CEFR:             "Pre-A1",
		Feedback:         NoSpeechMessage,
	}
	if !math.IsNaN(ratio) {
		rejection.SilenceRatio = &ratio
	}
	return &TranscriptionResult{Kind: ResultSilence, Silence: rejection}
}

// NewFilteredResult builds the payload for an empty or implausible transcript
func NewFilteredResult() *TranscriptionResult {
	return &TranscriptionResult{
		Kind: ResultFiltered,
		Filtered: &FilteredTranscript{
			Transcript: "",
			Error:      ErrorNoSpeech,
			Message:    NoSpeechMessage,
		},
	}
}
