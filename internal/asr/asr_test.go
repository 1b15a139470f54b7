package asr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSuffixFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"audio/wav", ".wav"},
		{"audio/mpeg", ".mp3"},
		{"audio/mp4", ".m4a"},
		{"audio/m4a", ".m4a"},
		{"audio/x-m4a", ".m4a"},
		{"application/octet-stream", ".wav"},
		{"", ".wav"},
	}
	for _, tt := range tests {
		if got := SuffixFor(tt.contentType); got != tt.want {
			t.Errorf("SuffixFor(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestTranscriptionErrorUnwrap(t *testing.T) {
	cause := errors.New("model crashed")
	err := &TranscriptionError{Backend: "whisper", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("TranscriptionError does not unwrap to its cause")
	}
}

func TestHTTPTranscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path = %s, want /transcribe", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.mp3" {
			t.Errorf("filename = %s, want audio.mp3", header.Filename)
		}
		json.NewEncoder(w).Encode(TranscriptResult{
			Text: "hello world",
			Words: []TranscriptWord{
				{Word: "hello", Start: 0, End: 0.5, Confidence: 0.99},
				{Word: "world", Start: 0.6, End: 1.1, Confidence: 0.98},
			},
			Language: "en",
		})
	}))
	defer server.Close()

	transcriber := NewHTTPTranscriber(server.URL)
	result, err := transcriber.Transcribe(context.Background(), []byte("fake-mp3"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Words) != 2 {
		t.Fatalf("got %d words, want 2", len(result.Words))
	}
	// Duration was omitted by the service and must be derived from the
	// last word.
	if result.Duration != 1.1 {
		t.Errorf("duration = %g, want 1.1", result.Duration)
	}
}

func TestHTTPTranscriberServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transcriber := NewHTTPTranscriber(server.URL)
	_, err := transcriber.Transcribe(context.Background(), []byte("x"), "audio/wav")
	var terr *TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want a TranscriptionError", err)
	}
	if terr.Backend != "http" {
		t.Errorf("backend = %s, want http", terr.Backend)
	}
}
