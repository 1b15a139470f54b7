// Package asr wraps the speech-to-text backends behind a common
// Transcriber interface. Two backends exist: the whisper CLI run as a
// subprocess, and an HTTP transcription service.
package asr

import "context"

// TranscriptWord is a single recognized word with timing.
type TranscriptWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// TranscriptResult is the full word-level transcription of one recording.
// Duration is the end of the last word if any words exist, otherwise the
// end of the last recognized segment, otherwise 0.
type TranscriptResult struct {
	Text     string           `json:"text"`
	Words    []TranscriptWord `json:"words"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

// Transcriber converts raw audio bytes into a word-level transcript.
// Implementations may lazily initialize a heavy model once per process and
// reuse it across jobs.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (*TranscriptResult, error)
}

// TranscriptionError marks a backend or model failure. It is fatal to the
// job that triggered it.
type TranscriptionError struct {
	Backend string
	Err     error
}

func (e *TranscriptionError) Error() string {
	return "transcription failed (" + e.Backend + "): " + e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// suffixes maps upload content types to file extensions the backends
// understand. Unknown types fall back to .wav.
var suffixes = map[string]string{
	"audio/wav":   ".wav",
	"audio/mpeg":  ".mp3",
	"audio/mp4":   ".m4a",
	"audio/m4a":   ".m4a",
	"audio/x-m4a": ".m4a",
}

// SuffixFor returns the file extension for a MIME content type.
func SuffixFor(contentType string) string {
	if s, ok := suffixes[contentType]; ok {
		return s
	}
	return ".wav"
}
