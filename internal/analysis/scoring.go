package analysis

import (
	"github.com/danielladerman/speakflow/internal/contract"
)

// ScoringConfig holds the thresholds and weights behind the deterministic
// scoring curves. The defaults are the v1 calibration; the engine itself
// has no other state.
type ScoringConfig struct {
	// Pace thresholds (WPM).
	PaceOptimal float64
	PaceRange   float64 // +/- from optimal

	// Fluency breakpoints (fillers per minute).
	FluencyExcellent  float64
	FluencyGood       float64
	FluencyAcceptable float64

	// Vocal variety thresholds.
	PitchVarianceGood   float64
	VolumeStabilityGood float64

	// Weights for the overall score.
	WeightPace         float64
	WeightFluency      float64
	WeightClarity      float64
	WeightVocalVariety float64
	WeightConfidence   float64 // confidence is the mean of the other four
}

// DefaultScoringConfig returns the v1 calibration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PaceOptimal:         150.0,
		PaceRange:           30.0,
		FluencyExcellent:    1.0,
		FluencyGood:         3.0,
		FluencyAcceptable:   6.0,
		PitchVarianceGood:   40.0,
		VolumeStabilityGood: 0.3,
		WeightPace:          0.20,
		WeightFluency:       0.25,
		WeightClarity:       0.20,
		WeightVocalVariety:  0.20,
		WeightConfidence:    0.15,
	}
}

// Engine maps extracted features to 0-100 scores. Pure function of its
// inputs and config; no ML, no hidden state.
type Engine struct {
	cfg ScoringConfig
}

// NewEngine creates a scoring engine with the given config.
func NewEngine(cfg ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score computes the full ScoreContract for a session.
func (e *Engine) Score(sessionID string, f *ExtractedFeatures) *contract.ScoreContract {
	pace := e.scorePace(f.WPM)
	fluency := e.scoreFluency(f.FillerPerMin)
	clarity := e.scoreClarity(f.PauseEvents, f.PowerPauses, f.DurationSec)
	vocalVariety := e.scoreVocalVariety(f.PitchVariance, f.VolumeStability)
	overall := e.scoreOverall(pace, fluency, clarity, vocalVariety)

	flags := f.Flags
	if flags == nil {
		flags = []contract.Flag{}
	}

	return &contract.ScoreContract{
		SessionID:   sessionID,
		DurationSec: f.DurationSec,
		Metrics: contract.Metrics{
			WPM:             f.WPM,
			FillerPerMin:    f.FillerPerMin,
			PauseEvents:     f.PauseEvents,
			PowerPauses:     f.PowerPauses,
			PitchVariance:   f.PitchVariance,
			VolumeStability: clampFloat(f.VolumeStability, 0, 1),
		},
		Scores: contract.Scores{
			Pace:         clampScore(pace),
			Fluency:      clampScore(fluency),
			Clarity:      clampScore(clarity),
			VocalVariety: clampScore(vocalVariety),
			Overall:      clampScore(overall),
		},
		FocusMetric: e.determineFocus(pace, fluency, clarity, vocalVariety),
		Flags:       flags,
	}
}

// scorePace scores speaking pace against the optimal WPM. Four piecewise
// bands keyed by multiples of the half-range, anchored at 100/85/65/40,
// the last floored at 20.
func (e *Engine) scorePace(wpm float64) int {
	if wpm == 0 {
		return 0
	}
	optimal := e.cfg.PaceOptimal
	half := e.cfg.PaceRange / 2
	distance := abs(wpm - optimal)

	switch {
	case distance <= half:
		return 100 - int(distance/half*10)
	case distance <= e.cfg.PaceRange:
		return 85 - int((distance-half)/half*20)
	case distance <= e.cfg.PaceRange*1.5:
		return 65 - int((distance-e.cfg.PaceRange)/half*25)
	default:
		excess := distance - e.cfg.PaceRange*1.5
		return maxInt(20, 40-int(excess/5))
	}
}

// scoreFluency scores filler-word frequency: piecewise against the three
// breakpoints with a steeper falloff past the last one.
func (e *Engine) scoreFluency(fillerPerMin float64) int {
	switch {
	case fillerPerMin <= e.cfg.FluencyExcellent:
		return 100 - int(fillerPerMin*10)
	case fillerPerMin <= e.cfg.FluencyGood:
		return 90 - int((fillerPerMin-1)*10)
	case fillerPerMin <= e.cfg.FluencyAcceptable:
		return 70 - int((fillerPerMin-3)*7)
	default:
		excess := fillerPerMin - e.cfg.FluencyAcceptable
		return maxInt(20, 50-int(excess*5))
	}
}

// scoreClarity scores pause patterns: long pauses cost points, a moderate
// rate of power pauses earns a small bonus, an excessive one costs again.
func (e *Engine) scoreClarity(pauseEvents, powerPauses int, durationSec float64) int {
	if durationSec <= 0 {
		return 50
	}
	minutes := durationSec / 60
	score := 100

	pausePerMin := float64(pauseEvents) / minutes
	if pausePerMin > 2 {
		score -= int((pausePerMin - 2) * 10)
	}

	powerPerMin := float64(powerPauses) / minutes
	if powerPerMin >= 1 && powerPerMin <= 3 {
		score += 5
	} else if powerPerMin > 4 {
		score -= int((powerPerMin - 4) * 3)
	}

	return maxInt(20, minInt(100, score))
}

// scoreVocalVariety starts at 50, adds a tiered pitch-variance
// contribution and adjusts for volume stability.
func (e *Engine) scoreVocalVariety(pitchVariance, volumeStability float64) int {
	score := 50

	switch {
	case pitchVariance >= e.cfg.PitchVarianceGood:
		score += 40 + minInt(10, int((pitchVariance-40)/5))
	case pitchVariance >= 20:
		score += int(pitchVariance / 40 * 40)
	default:
		score += int(pitchVariance / 20 * 20)
	}

	switch {
	case volumeStability <= e.cfg.VolumeStabilityGood:
		score += 5
	case volumeStability <= 0.5:
		// acceptable, no adjustment
	default:
		score -= int((volumeStability - 0.5) * 20)
	}

	return maxInt(20, minInt(100, score))
}

// scoreOverall is the weighted sum of the four component scores plus a
// confidence term (their unweighted mean). Truncated, not rounded.
func (e *Engine) scoreOverall(pace, fluency, clarity, vocalVariety int) int {
	cfg := e.cfg
	confidence := float64(pace+fluency+clarity+vocalVariety) / 4
	overall := float64(pace)*cfg.WeightPace +
		float64(fluency)*cfg.WeightFluency +
		float64(clarity)*cfg.WeightClarity +
		float64(vocalVariety)*cfg.WeightVocalVariety +
		confidence*cfg.WeightConfidence
	return int(overall)
}

// determineFocus picks the lowest-scoring metric. Ties break on the fixed
// evaluation order pace, fluency, clarity, vocal variety: first minimum
// wins.
func (e *Engine) determineFocus(pace, fluency, clarity, vocalVariety int) contract.FocusMetric {
	focus := contract.FocusPace
	lowest := pace
	for _, candidate := range []struct {
		metric contract.FocusMetric
		score  int
	}{
		{contract.FocusFluency, fluency},
		{contract.FocusClarity, clarity},
		{contract.FocusVocalVariety, vocalVariety},
	} {
		if candidate.score < lowest {
			lowest = candidate.score
			focus = candidate.metric
		}
	}
	return focus
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clampScore(v int) int {
	return maxInt(0, minInt(100, v))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
