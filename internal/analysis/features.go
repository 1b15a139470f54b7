// Package analysis derives quantitative speech metrics from a transcript
// and scores them deterministically.
package analysis

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/danielladerman/speakflow/internal/asr"
	"github.com/danielladerman/speakflow/internal/contract"
)

// fillerVocabulary is the full filler vocabulary, including multi-word
// phrases.
var fillerVocabulary = map[string]bool{
	"um": true, "uh": true, "uhh": true, "umm": true, "er": true, "ah": true, "ahh": true,
	"like": true, "you know": true, "basically": true, "actually": true,
	"literally": true, "so": true, "well": true, "right": true, "okay": true,
	"i mean": true, "sort of": true, "kind of": true,
}

// singleWordFillers is the subset the detector actually matches. Detection
// is a single-token scan: multi-word phrases such as "you know" stay in the
// vocabulary but are never matched. Known limitation, kept on purpose.
var singleWordFillers = map[string]bool{
	"um": true, "uh": true, "uhh": true, "umm": true, "er": true, "ah": true, "ahh": true,
	"like": true, "basically": true, "actually": true, "literally": true,
}

// Pause classification boundaries, in seconds of gap between consecutive
// words.
const (
	pauseMin      = 0.5 // below this a gap is ignored
	powerPauseMin = 1.0 // [1.0, 3.0] is an intentional emphasis pause
	longPauseMax  = 3.0 // above this is a problematic long pause
)

// ExtractedFeatures holds all metrics derived from one transcript.
type ExtractedFeatures struct {
	DurationSec     float64
	WPM             float64
	FillerPerMin    float64
	PauseEvents     int
	PowerPauses     int
	PitchVariance   float64
	VolumeStability float64
	Flags           []contract.Flag
	WordCount       int
	FillerCount     int
}

// Extractor derives speech features from transcripts and optional raw audio.
type Extractor struct {
	log *logrus.Entry
}

// NewExtractor creates a feature extractor.
func NewExtractor() *Extractor {
	return &Extractor{log: logrus.WithField("component", "analysis.features")}
}

// Extract computes all features. Audio may be nil; the acoustic metrics
// then default to zero. Acoustic analysis failures are swallowed (logged)
// so optional audio can never fail the job.
func (e *Extractor) Extract(transcript *asr.TranscriptResult, audio []byte) *ExtractedFeatures {
	duration := transcript.Duration
	if duration <= 0 {
		return &ExtractedFeatures{}
	}
	words := transcript.Words

	wordCount := 0
	for _, w := range words {
		if strings.TrimSpace(w.Word) != "" {
			wordCount++
		}
	}
	wpm := float64(wordCount) / duration * 60

	fillerCount, fillerFlags := detectFillers(words)
	fillerPerMin := float64(fillerCount) / duration * 60

	pauseEvents, powerPauses, pauseFlags := detectPauses(words)

	pitchVariance, volumeStability := 0.0, 0.0
	if len(audio) > 0 {
		var err error
		pitchVariance, volumeStability, err = analyzeAcoustics(audio)
		if err != nil {
			e.log.WithError(err).Warn("acoustic analysis failed, defaulting pitch/volume to zero")
			pitchVariance, volumeStability = 0, 0
		}
	}

	// Flag order is append order: fillers first, then pauses.
	flags := append(fillerFlags, pauseFlags...)

	return &ExtractedFeatures{
		DurationSec:     duration,
		WPM:             round1(wpm),
		FillerPerMin:    round1(fillerPerMin),
		PauseEvents:     pauseEvents,
		PowerPauses:     powerPauses,
		PitchVariance:   round1(pitchVariance),
		VolumeStability: round3(volumeStability),
		Flags:           flags,
		WordCount:       wordCount,
		FillerCount:     fillerCount,
	}
}

// IsFillerPhrase reports whether the phrase is in the full filler
// vocabulary (including multi-word entries the detector cannot match).
func IsFillerPhrase(phrase string) bool {
	return fillerVocabulary[strings.ToLower(strings.TrimSpace(phrase))]
}

func detectFillers(words []asr.TranscriptWord) (int, []contract.Flag) {
	count := 0
	var flags []contract.Flag
	for _, w := range words {
		cleaned := strings.Trim(strings.ToLower(strings.TrimSpace(w.Word)), ".,!?")
		if singleWordFillers[cleaned] {
			count++
			flags = append(flags, contract.Flag{TStart: w.Start, TEnd: w.End, Reason: contract.FlagFiller})
		}
	}
	return count, flags
}

func detectPauses(words []asr.TranscriptWord) (pauseEvents, powerPauses int, flags []contract.Flag) {
	if len(words) < 2 {
		return 0, 0, nil
	}
	for i := 1; i < len(words); i++ {
		gap := words[i].Start - words[i-1].End
		switch {
		case gap > longPauseMax:
			pauseEvents++
			flags = append(flags, contract.Flag{TStart: words[i-1].End, TEnd: words[i].Start, Reason: contract.FlagLongPause})
		case gap >= powerPauseMin:
			powerPauses++
			flags = append(flags, contract.Flag{TStart: words[i-1].End, TEnd: words[i].Start, Reason: contract.FlagPowerPause})
		case gap >= pauseMin:
			pauseEvents++
		}
	}
	return pauseEvents, powerPauses, flags
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
