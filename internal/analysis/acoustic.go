package analysis

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/montanaflynn/stats"
	wav "github.com/youpy/go-wav"
)

// Frame parameters for the acoustic pass. 2048 samples at 22kHz is ~93ms,
// close enough to the analysis windows the mobile clients record against.
const (
	frameSize = 2048
	hopSize   = 512

	// Voiced pitch search range, roughly C2..C7.
	pitchMinHz = 65.0
	pitchMaxHz = 2093.0

	// Minimum normalized autocorrelation peak to accept a pitch estimate.
	voicedPeakThreshold = 0.3
)

// analyzeAcoustics decodes a WAV payload and derives:
//   - pitch variance: standard deviation (Hz) of the voiced pitch track
//   - volume stability: coefficient of variation of frame RMS, clamped to [0,1]
//
// Non-WAV or undecodable audio returns an error; the caller treats any
// failure here as "no acoustic features", never as a job failure.
func analyzeAcoustics(audio []byte) (pitchVariance, volumeStability float64, err error) {
	reader := wav.NewReader(bytes.NewReader(audio))
	format, err := reader.Format()
	if err != nil {
		return 0, 0, err
	}
	sampleRate := float64(format.SampleRate)
	if sampleRate <= 0 {
		return 0, 0, errors.New("wav header reports zero sample rate")
	}

	signal, err := readMono(reader, format)
	if err != nil {
		return 0, 0, err
	}
	if len(signal) < frameSize {
		return 0, 0, errors.New("audio too short for acoustic analysis")
	}

	var rmsTrack []float64
	for off := 0; off+frameSize <= len(signal); off += hopSize {
		rmsTrack = append(rmsTrack, frameRMS(signal[off:off+frameSize]))
	}

	meanRMS, _ := stats.Mean(rmsTrack)
	stdRMS, _ := stats.StandardDeviation(rmsTrack)
	if meanRMS > 0 {
		volumeStability = clampFloat(stdRMS/meanRMS, 0, 1)
	}

	// Pitch is only meaningful on frames with enough energy to be voiced.
	var pitchTrack []float64
	voicedFloor := meanRMS * 0.5
	for off := 0; off+frameSize <= len(signal); off += hopSize {
		frame := signal[off : off+frameSize]
		if frameRMS(frame) < voicedFloor {
			continue
		}
		if f0, ok := estimatePitch(frame, sampleRate); ok {
			pitchTrack = append(pitchTrack, f0)
		}
	}
	if len(pitchTrack) > 0 {
		pitchVariance, _ = stats.StandardDeviation(pitchTrack)
	}

	return pitchVariance, volumeStability, nil
}

func readMono(reader *wav.Reader, format *wav.WavFormat) ([]float64, error) {
	channels := uint(format.NumChannels)
	if channels == 0 {
		return nil, errors.New("wav header reports zero channels")
	}
	var signal []float64
	for {
		samples, err := reader.ReadSamples(4096)
		for _, s := range samples {
			sum := 0.0
			for ch := uint(0); ch < channels; ch++ {
				sum += reader.FloatValue(s, ch)
			}
			signal = append(signal, sum/float64(channels))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return signal, nil
}

func frameRMS(frame []float64) float64 {
	sum := 0.0
	for _, v := range frame {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// estimatePitch runs a normalized autocorrelation over the voiced lag range
// and returns the dominant fundamental frequency, if any peak is strong
// enough.
func estimatePitch(frame []float64, sampleRate float64) (float64, bool) {
	minLag := int(sampleRate / pitchMaxHz)
	maxLag := int(sampleRate / pitchMinHz)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}
	if minLag >= maxLag {
		return 0, false
	}

	// Remove DC offset so silence-adjacent frames do not correlate on bias.
	mean := 0.0
	for _, v := range frame {
		mean += v
	}
	mean /= float64(len(frame))

	energy := 0.0
	for _, v := range frame {
		d := v - mean
		energy += d * d
	}
	if energy == 0 {
		return 0, false
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		for i := 0; i+lag < len(frame); i++ {
			corr += (frame[i] - mean) * (frame[i+lag] - mean)
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr < voicedPeakThreshold {
		return 0, false
	}
	return sampleRate / float64(bestLag), true
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
