package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// WhisperTranscriber runs the whisper CLI on a temp file and parses its
// JSON output. The binary lookup happens once per process.
type WhisperTranscriber struct {
	binPath   string
	model     string
	checkOnce sync.Once
	checkErr  error
	log       *logrus.Entry
}

// NewWhisperTranscriber creates a whisper-CLI backed transcriber.
func NewWhisperTranscriber(binPath, model string) *WhisperTranscriber {
	return &WhisperTranscriber{
		binPath: binPath,
		model:   model,
		log:     logrus.WithField("component", "asr.whisper"),
	}
}

// whisperOutput mirrors the JSON the whisper CLI writes with
// --word_timestamps enabled.
type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		End   float64 `json:"end"`
		Words []struct {
			Word        string  `json:"word"`
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Probability float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

func (t *WhisperTranscriber) ensureAvailable() error {
	t.checkOnce.Do(func() {
		path, err := exec.LookPath(t.binPath)
		if err != nil {
			t.checkErr = fmt.Errorf("whisper binary not found at %q: %w", t.binPath, err)
			return
		}
		t.binPath = path
		t.log.WithFields(logrus.Fields{"binary": path, "model": t.model}).Info("whisper backend ready")
	})
	return t.checkErr
}

// Transcribe writes the audio to a temp file, runs whisper with word
// timestamps and converts the JSON output into a TranscriptResult.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (*TranscriptResult, error) {
	if err := t.ensureAvailable(); err != nil {
		return nil, &TranscriptionError{Backend: "whisper", Err: err}
	}

	workDir, err := os.MkdirTemp("", "speakflow-asr-")
	if err != nil {
		return nil, &TranscriptionError{Backend: "whisper", Err: err}
	}
	defer os.RemoveAll(workDir)

	audioPath := filepath.Join(workDir, "audio"+SuffixFor(contentType))
	if err := os.WriteFile(audioPath, audio, 0o600); err != nil {
		return nil, &TranscriptionError{Backend: "whisper", Err: err}
	}

	cmd := exec.CommandContext(ctx, t.binPath,
		audioPath,
		"--model", t.model,
		"--language", "en",
		"--word_timestamps", "True",
		"--output_format", "json",
		"--output_dir", workDir,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.log.WithError(err).WithField("output", truncate(string(out), 500)).Error("whisper execution failed")
		return nil, &TranscriptionError{Backend: "whisper", Err: fmt.Errorf("whisper execution failed: %w", err)}
	}

	data, err := os.ReadFile(filepath.Join(workDir, "audio.json"))
	if err != nil {
		return nil, &TranscriptionError{Backend: "whisper", Err: fmt.Errorf("read whisper output: %w", err)}
	}

	var raw whisperOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &TranscriptionError{Backend: "whisper", Err: fmt.Errorf("parse whisper output: %w", err)}
	}

	result := &TranscriptResult{
		Text:     strings.TrimSpace(raw.Text),
		Language: raw.Language,
	}
	if result.Language == "" {
		result.Language = "en"
	}
	for _, seg := range raw.Segments {
		for _, w := range seg.Words {
			result.Words = append(result.Words, TranscriptWord{
				Word:       strings.TrimSpace(w.Word),
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Probability,
			})
		}
	}
	if n := len(result.Words); n > 0 {
		result.Duration = result.Words[n-1].End
	} else if n := len(raw.Segments); n > 0 {
		result.Duration = raw.Segments[n-1].End
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
