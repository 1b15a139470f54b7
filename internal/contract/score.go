// Package contract defines the versioned JSON shapes shared between the
// worker, the API and any external consumer: ScoreContract,
// CoachingResponse and the drill library. These are the system's wire
// compatibility guarantees and must not grow extra fields.
package contract

import "fmt"

// FocusMetric is the primary area for improvement.
type FocusMetric string

const (
	FocusPace         FocusMetric = "pace"
	FocusFluency      FocusMetric = "fluency"
	FocusClarity      FocusMetric = "clarity"
	FocusVocalVariety FocusMetric = "vocal_variety"
	FocusStructure    FocusMetric = "structure"
	FocusConfidence   FocusMetric = "confidence"
)

// Valid reports whether m is one of the six known focus metrics.
func (m FocusMetric) Valid() bool {
	switch m {
	case FocusPace, FocusFluency, FocusClarity, FocusVocalVariety, FocusStructure, FocusConfidence:
		return true
	}
	return false
}

// FlagReason is the type of a flagged event in the recording.
type FlagReason string

const (
	FlagFiller     FlagReason = "filler"
	FlagLongPause  FlagReason = "long_pause"
	FlagRush       FlagReason = "rush"
	FlagMumble     FlagReason = "mumble"
	FlagPowerPause FlagReason = "power_pause"
)

// Metrics holds the raw extracted metrics from audio analysis.
type Metrics struct {
	WPM             float64 `json:"wpm" bson:"wpm"`
	FillerPerMin    float64 `json:"filler_per_min" bson:"filler_per_min"`
	PauseEvents     int     `json:"pause_events" bson:"pause_events"`
	PowerPauses     int     `json:"power_pauses" bson:"power_pauses"`
	PitchVariance   float64 `json:"pitch_variance" bson:"pitch_variance"`
	VolumeStability float64 `json:"volume_stability" bson:"volume_stability"`
}

// Scores holds the computed 0-100 scores derived from metrics.
type Scores struct {
	Pace         int `json:"pace" bson:"pace"`
	Fluency      int `json:"fluency" bson:"fluency"`
	Clarity      int `json:"clarity" bson:"clarity"`
	VocalVariety int `json:"vocal_variety" bson:"vocal_variety"`
	Overall      int `json:"overall" bson:"overall"`
}

// Flag is a timestamped event of note (filler, long pause, etc.).
type Flag struct {
	TStart float64    `json:"t_start" bson:"t_start"`
	TEnd   float64    `json:"t_end" bson:"t_end"`
	Reason FlagReason `json:"reason" bson:"reason"`
}

// ScoreContract is the canonical schema for session analysis results.
// All producers and consumers must match this exact shape.
type ScoreContract struct {
	SessionID   string      `json:"session_id" bson:"session_id"`
	DurationSec float64     `json:"duration_sec" bson:"duration_sec"`
	Metrics     Metrics     `json:"metrics" bson:"metrics"`
	Scores      Scores      `json:"scores" bson:"scores"`
	FocusMetric FocusMetric `json:"focus_metric" bson:"focus_metric"`
	Flags       []Flag      `json:"flags" bson:"flags"`
}

// Validate checks the contract's documented numeric ranges.
func (c *ScoreContract) Validate() error {
	if c.SessionID == "" {
		return &ValidationError{Field: "session_id", Msg: "required"}
	}
	if c.DurationSec < 0 {
		return &ValidationError{Field: "duration_sec", Msg: "must be >= 0"}
	}
	if !c.FocusMetric.Valid() {
		return &ValidationError{Field: "focus_metric", Msg: fmt.Sprintf("unknown metric %q", c.FocusMetric)}
	}
	m := c.Metrics
	if m.WPM < 0 || m.FillerPerMin < 0 || m.PitchVariance < 0 || m.PauseEvents < 0 || m.PowerPauses < 0 {
		return &ValidationError{Field: "metrics", Msg: "values must be >= 0"}
	}
	if m.VolumeStability < 0 || m.VolumeStability > 1 {
		return &ValidationError{Field: "metrics.volume_stability", Msg: "must be in [0,1]"}
	}
	for _, s := range []int{c.Scores.Pace, c.Scores.Fluency, c.Scores.Clarity, c.Scores.VocalVariety, c.Scores.Overall} {
		if s < 0 || s > 100 {
			return &ValidationError{Field: "scores", Msg: "scores must be in [0,100]"}
		}
	}
	for _, f := range c.Flags {
		if f.TEnd < f.TStart {
			return &ValidationError{Field: "flags", Msg: "t_end must be >= t_start"}
		}
	}
	return nil
}

// ValidationError marks a contract shape violation. It is fatal to the job
// everywhere except the drill-id repair pass in the coaching selector.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
}
