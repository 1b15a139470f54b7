package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danielladerman/speakflow/internal/asr"
	"github.com/danielladerman/speakflow/internal/cache"
	"github.com/danielladerman/speakflow/internal/model"
	"github.com/danielladerman/speakflow/internal/queue"
	"github.com/danielladerman/speakflow/internal/repository"
	"github.com/danielladerman/speakflow/internal/storage"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFileTooLarge      = errors.New("audio file too large")
	ErrSessionNotFound   = errors.New("session not found")
)

var supportedContentTypes = map[string]bool{
	"audio/wav":   true,
	"audio/mpeg":  true,
	"audio/mp4":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
}

// SessionService owns the upload flow (create pending session, store
// audio, enqueue analysis) and read paths. Completed reports are served
// through the redis read-through cache.
type SessionService struct {
	repo     repository.SessionRepo
	store    storage.Storage
	jobs     *queue.Queue
	reports  cache.ReportCache
	maxBytes int64
	log      *logrus.Entry
}

// NewSessionService wires the session service.
func NewSessionService(repo repository.SessionRepo, store storage.Storage, jobs *queue.Queue, reports cache.ReportCache, maxUploadMB int64) *SessionService {
	return &SessionService{
		repo:     repo,
		store:    store,
		jobs:     jobs,
		reports:  reports,
		maxBytes: maxUploadMB * 1024 * 1024,
		log:      logrus.WithField("component", "service.session"),
	}
}

// CreateFromUpload validates the audio, creates a pending session, stores
// the bytes and enqueues the analysis job.
func (s *SessionService) CreateFromUpload(ctx context.Context, audio []byte, contentType string) (*model.Session, error) {
	if !supportedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
	if int64(len(audio)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(audio))
	}

	session := &model.Session{
		ID:          uuid.New().String(),
		ContentType: contentType,
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	session.AudioKey = fmt.Sprintf("sessions/%s/audio%s", session.ID, asr.SuffixFor(contentType))

	url, err := s.store.Upload(ctx, session.AudioKey, audio, contentType)
	if err != nil {
		return nil, err
	}
	session.AudioURL = url

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.jobs.Enqueue(ctx, queue.Payload{
		SessionID:   session.ID,
		AudioKey:    session.AudioKey,
		ContentType: contentType,
	}); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"bytes":      len(audio),
	}).Info("session created and queued")
	return session, nil
}

// Get returns the full session report. Terminal sessions are cached.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	if cached, err := s.reports.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.log.WithError(err).Warn("report cache read failed, falling back to repository")
	}

	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status == model.StatusCompleted || session.Status == model.StatusFailed {
		if err := s.reports.Set(ctx, session); err != nil {
			s.log.WithError(err).Warn("report cache write failed")
		}
	}
	return session, nil
}

// List returns the most recent sessions.
func (s *SessionService) List(ctx context.Context, limit int64) ([]*model.Session, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}
