package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPTranscriber posts audio to an external transcription service that
// returns word-level timestamps. The service owns the model; this client
// only speaks the wire shape.
type HTTPTranscriber struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTranscriber creates a client for a transcription service at baseURL.
func NewHTTPTranscriber(baseURL string) *HTTPTranscriber {
	return &HTTPTranscriber{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe uploads the audio as multipart form data to POST /transcribe.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (*TranscriptResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", "audio"+SuffixFor(contentType))
	if err != nil {
		return nil, &TranscriptionError{Backend: "http", Err: err}
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, &TranscriptionError{Backend: "http", Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &TranscriptionError{Backend: "http", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, &TranscriptionError{Backend: "http", Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Backend: "http", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &TranscriptionError{Backend: "http", Err: fmt.Errorf("asr %s: %s", resp.Status, string(msg))}
	}

	var result TranscriptResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TranscriptionError{Backend: "http", Err: fmt.Errorf("decode asr response: %w", err)}
	}
	if result.Duration == 0 && len(result.Words) > 0 {
		result.Duration = result.Words[len(result.Words)-1].End
	}
	return &result, nil
}
