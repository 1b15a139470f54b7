// Package worker runs the single-consumer analysis loop: one job at a
// time, pulled from the queue and driven through download, transcription,
// feature extraction, scoring and coaching, ending in exactly one terminal
// session state.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danielladerman/speakflow/internal/analysis"
	"github.com/danielladerman/speakflow/internal/asr"
	"github.com/danielladerman/speakflow/internal/contract"
	"github.com/danielladerman/speakflow/internal/model"
	"github.com/danielladerman/speakflow/internal/queue"
	"github.com/danielladerman/speakflow/internal/repository"
	"github.com/danielladerman/speakflow/internal/storage"
)

// JobSource is the queue capability the worker consumes from.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
}

// CoachingSelector is the optional coaching capability.
type CoachingSelector interface {
	Enabled() bool
	Generate(ctx context.Context, sc *contract.ScoreContract) (*contract.CoachingResponse, error)
}

// EventSink receives status transition events. Best effort.
type EventSink interface {
	Publish(ctx context.Context, event model.StatusEvent)
}

// Worker is the job consumer. It never processes two jobs concurrently;
// the shutdown flag is observed only between jobs.
type Worker struct {
	repo        repository.SessionRepo
	jobs        JobSource
	store       storage.Storage
	transcriber asr.Transcriber
	extractor   *analysis.Extractor
	engine      *analysis.Engine
	coach       CoachingSelector
	events      EventSink

	pollInterval time.Duration
	errorBackoff time.Duration
	running      atomic.Bool
	log          *logrus.Entry
}

// New wires a worker. coach and events may be nil.
func New(
	repo repository.SessionRepo,
	jobs JobSource,
	store storage.Storage,
	transcriber asr.Transcriber,
	engine *analysis.Engine,
	coach CoachingSelector,
	events EventSink,
	pollInterval time.Duration,
) *Worker {
	return &Worker{
		repo:         repo,
		jobs:         jobs,
		store:        store,
		transcriber:  transcriber,
		extractor:    analysis.NewExtractor(),
		engine:       engine,
		coach:        coach,
		events:       events,
		pollInterval: pollInterval,
		errorBackoff: time.Second,
		log:          logrus.WithField("component", "worker"),
	}
}

// Run consumes jobs until Stop is called or ctx is cancelled. A failing
// job never terminates the loop; it is logged and followed by a short
// pause to avoid a tight failure cycle.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	w.log.WithField("poll_interval", w.pollInterval).Info("worker started, waiting for jobs")

	for w.running.Load() {
		if ctx.Err() != nil {
			break
		}
		if err := w.processNext(ctx); err != nil {
			w.log.WithError(err).Error("job attempt failed")
			sleepCtx(ctx, w.errorBackoff)
		}
	}
	w.log.Info("worker stopped")
}

// Stop requests a graceful stop. The in-flight job runs to completion or
// failure first.
func (w *Worker) Stop() {
	w.running.Store(false)
}

func (w *Worker) processNext(ctx context.Context) error {
	job, err := w.jobs.Dequeue(ctx, w.pollInterval)
	if err != nil {
		return err
	}
	if job == nil {
		return nil // timeout, check the running flag again
	}

	if job.Type != queue.JobTypeAnalyzeSession {
		w.log.WithField("job_type", job.Type).Warn("skipping unknown job type")
		return nil
	}
	return w.processAnalysisJob(ctx, job.Payload)
}

// processAnalysisJob drives the full pipeline for one session. The session
// is marked processing before any heavy work; every fatal error is
// persisted as a failed terminal state and returned so the loop can log
// and back off.
func (w *Worker) processAnalysisJob(ctx context.Context, payload queue.Payload) error {
	log := w.log.WithField("session_id", payload.SessionID)
	log.Info("processing analysis job")

	if err := w.repo.MarkProcessing(ctx, payload.SessionID); err != nil {
		// The session is not in pending; nothing was touched, so there is
		// no failed state to record.
		return fmt.Errorf("mark processing: %w", err)
	}
	w.publish(ctx, payload.SessionID, model.StatusProcessing, "")

	result, err := w.runPipeline(ctx, payload, log)
	if err != nil {
		if markErr := w.repo.MarkFailed(ctx, payload.SessionID, err.Error()); markErr != nil {
			log.WithError(markErr).Error("failed to persist failed state")
		}
		w.publish(ctx, payload.SessionID, model.StatusFailed, err.Error())
		return fmt.Errorf("session %s: %w", payload.SessionID, err)
	}

	if err := w.repo.MarkCompleted(ctx, payload.SessionID, result); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	w.publish(ctx, payload.SessionID, model.StatusCompleted, "")
	log.WithField("duration_sec", result.DurationSec).Info("session completed")
	return nil
}

// runPipeline executes the stages and returns either a full result or the
// first fatal error. It never persists anything itself.
func (w *Worker) runPipeline(ctx context.Context, payload queue.Payload, log *logrus.Entry) (*repository.CompletedResult, error) {
	log.WithField("audio_key", payload.AudioKey).Info("downloading audio")
	audio, err := w.store.Download(ctx, payload.AudioKey)
	if err != nil {
		return nil, err
	}

	log.Info("transcribing")
	transcript, err := w.transcriber.Transcribe(ctx, audio, payload.ContentType)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"words":    len(transcript.Words),
		"duration": transcript.Duration,
	}).Info("transcription done")

	features := w.extractor.Extract(transcript, audio)
	log.WithFields(logrus.Fields{
		"wpm":            features.WPM,
		"filler_per_min": features.FillerPerMin,
	}).Info("features extracted")

	scoreContract := w.engine.Score(payload.SessionID, features)
	if err := scoreContract.Validate(); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"overall": scoreContract.Scores.Overall,
		"focus":   scoreContract.FocusMetric,
	}).Info("scored")

	var coachingResponse *contract.CoachingResponse
	if w.coach != nil && w.coach.Enabled() {
		log.Info("generating coaching")
		coachingResponse, err = w.coach.Generate(ctx, scoreContract)
		if err != nil {
			return nil, err
		}
		log.WithField("drills", len(coachingResponse.RecommendedDrills)).Info("coaching generated")
	}

	entries := make([]model.TranscriptEntry, 0, len(transcript.Words))
	for _, word := range transcript.Words {
		entries = append(entries, model.TranscriptEntry{
			Word:       word.Word,
			Start:      word.Start,
			End:        word.End,
			Confidence: word.Confidence,
		})
	}

	return &repository.CompletedResult{
		DurationSec:      transcript.Duration,
		ScoreContract:    scoreContract,
		CoachingResponse: coachingResponse,
		Transcript:       entries,
		CompletedAt:      time.Now().UTC(),
	}, nil
}

func (w *Worker) publish(ctx context.Context, sessionID string, status model.SessionStatus, errMsg string) {
	if w.events == nil {
		return
	}
	w.events.Publish(ctx, model.StatusEvent{SessionID: sessionID, Status: status, ErrorMessage: errMsg})
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
