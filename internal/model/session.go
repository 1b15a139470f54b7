package model

import (
	"fmt"
	"time"

	"github.com/danielladerman/speakflow/internal/contract"
)

// SessionStatus is the lifecycle state of a recording session.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// allowedTransitions is the closed transition table. The worker is the only
// writer after upload; completed and failed are terminal.
var allowedTransitions = map[SessionStatus][]SessionStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// CanTransition reports whether moving from s to next is a valid lifecycle step.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the next status, or an error for any
// move outside the table.
func (s SessionStatus) Transition(next SessionStatus) (SessionStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("invalid session transition %s -> %s", s, next)
	}
	return next, nil
}

// Session is a recorded speech session and its analysis results.
type Session struct {
	ID               string                     `json:"id" bson:"_id"`
	AudioKey         string                     `json:"audio_key" bson:"audio_key"`
	AudioURL         string                     `json:"audio_url,omitempty" bson:"audio_url,omitempty"`
	ContentType      string                     `json:"content_type" bson:"content_type"`
	DurationSec      float64                    `json:"duration_sec,omitempty" bson:"duration_sec,omitempty"`
	Status           SessionStatus              `json:"status" bson:"status"`
	ErrorMessage     string                     `json:"error_message,omitempty" bson:"error_message,omitempty"`
	ScoreContract    *contract.ScoreContract    `json:"score_contract,omitempty" bson:"score_contract,omitempty"`
	CoachingResponse *contract.CoachingResponse `json:"coaching_response,omitempty" bson:"coaching_response,omitempty"`
	Transcript       []TranscriptEntry          `json:"transcript,omitempty" bson:"transcript,omitempty"`
	CreatedAt        time.Time                  `json:"created_at" bson:"created_at"`
	CompletedAt      *time.Time                 `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// TranscriptEntry is the persisted form of one transcribed word.
type TranscriptEntry struct {
	Word       string  `json:"word" bson:"word"`
	Start      float64 `json:"start" bson:"start"`
	End        float64 `json:"end" bson:"end"`
	Confidence float64 `json:"confidence" bson:"confidence"`
}

// StatusEvent is published on every status transition so the API can push
// live updates to clients watching a session.
type StatusEvent struct {
	SessionID    string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
}
