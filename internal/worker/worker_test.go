package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielladerman/speakflow/internal/analysis"
	"github.com/danielladerman/speakflow/internal/asr"
	"github.com/danielladerman/speakflow/internal/contract"
	"github.com/danielladerman/speakflow/internal/model"
	"github.com/danielladerman/speakflow/internal/queue"
	"github.com/danielladerman/speakflow/internal/repository"
)

type fakeRepo struct {
	sessions map[string]*model.Session

	processingErr error
	completed     map[string]*repository.CompletedResult
	failed        map[string]string
}

func newFakeRepo(sessions ...*model.Session) *fakeRepo {
	r := &fakeRepo{
		sessions:  map[string]*model.Session{},
		completed: map[string]*repository.CompletedResult{},
		failed:    map[string]string{},
	}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, s *model.Session) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	return r.sessions[id], nil
}

func (r *fakeRepo) List(_ context.Context, _ int64) ([]*model.Session, error) {
	return nil, nil
}

func (r *fakeRepo) MarkProcessing(_ context.Context, id string) error {
	if r.processingErr != nil {
		return r.processingErr
	}
	s, ok := r.sessions[id]
	if !ok || s.Status != model.StatusPending {
		return repository.ErrConflict
	}
	s.Status = model.StatusProcessing
	return nil
}

func (r *fakeRepo) MarkCompleted(_ context.Context, id string, result *repository.CompletedResult) error {
	s, ok := r.sessions[id]
	if !ok || s.Status != model.StatusProcessing {
		return repository.ErrConflict
	}
	s.Status = model.StatusCompleted
	r.completed[id] = result
	return nil
}

func (r *fakeRepo) MarkFailed(_ context.Context, id string, errorMessage string) error {
	s, ok := r.sessions[id]
	if !ok || s.Status != model.StatusProcessing {
		return repository.ErrConflict
	}
	s.Status = model.StatusFailed
	s.ErrorMessage = errorMessage
	r.failed[id] = errorMessage
	return nil
}

type fakeJobs struct {
	jobs []*queue.Job
}

func (q *fakeJobs) Dequeue(_ context.Context, _ time.Duration) (*queue.Job, error) {
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

type fakeStore struct {
	objects map[string][]byte
}

func (s *fakeStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.objects[key] = data
	return "fake://" + key, nil
}

func (s *fakeStore) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return data, nil
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

type fakeTranscriber struct {
	result *asr.TranscriptResult
	err    error
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (*asr.TranscriptResult, error) {
	return t.result, t.err
}

type fakeCoach struct {
	enabled  bool
	response *contract.CoachingResponse
	err      error
	calls    int
}

func (c *fakeCoach) Enabled() bool { return c.enabled }

func (c *fakeCoach) Generate(_ context.Context, sc *contract.ScoreContract) (*contract.CoachingResponse, error) {
	c.calls++
	return c.response, c.err
}

type fakeEvents struct {
	events []model.StatusEvent
}

func (e *fakeEvents) Publish(_ context.Context, event model.StatusEvent) {
	e.events = append(e.events, event)
}

func testTranscript() *asr.TranscriptResult {
	return &asr.TranscriptResult{
		Text: "hello um world",
		Words: []asr.TranscriptWord{
			{Word: "hello", Start: 0, End: 0.5, Confidence: 0.98},
			{Word: "um", Start: 0.6, End: 0.8, Confidence: 0.91},
			{Word: "world", Start: 0.9, End: 1.4, Confidence: 0.97},
		},
		Duration: 1.4,
	}
}

func pendingSession(id string) *model.Session {
	return &model.Session{
		ID:          id,
		AudioKey:    "sessions/" + id + "/audio.wav",
		ContentType: "audio/wav",
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func analysisJob(sessionID string) *queue.Job {
	return &queue.Job{
		Type: queue.JobTypeAnalyzeSession,
		Payload: queue.Payload{
			SessionID:   sessionID,
			AudioKey:    "sessions/" + sessionID + "/audio.wav",
			ContentType: "audio/wav",
		},
	}
}

func newTestWorker(repo *fakeRepo, jobs *fakeJobs, store *fakeStore, transcriber *fakeTranscriber, coach CoachingSelector, events *fakeEvents) *Worker {
	return New(repo, jobs, store, transcriber, analysis.NewEngine(analysis.DefaultScoringConfig()), coach, events, 10*time.Millisecond)
}

func TestProcessAnalysisJobSuccess(t *testing.T) {
	repo := newFakeRepo(pendingSession("sess-1"))
	store := &fakeStore{objects: map[string][]byte{"sessions/sess-1/audio.wav": []byte("not-real-audio")}}
	events := &fakeEvents{}
	w := newTestWorker(repo, &fakeJobs{}, store, &fakeTranscriber{result: testTranscript()}, nil, events)

	if err := w.processAnalysisJob(context.Background(), analysisJob("sess-1").Payload); err != nil {
		t.Fatalf("processAnalysisJob: %v", err)
	}

	if got := repo.sessions["sess-1"].Status; got != model.StatusCompleted {
		t.Errorf("status = %s, want completed", got)
	}
	result := repo.completed["sess-1"]
	if result == nil {
		t.Fatal("no completed result persisted")
	}
	if result.DurationSec != 1.4 {
		t.Errorf("duration = %g, want 1.4", result.DurationSec)
	}
	if result.ScoreContract == nil || result.ScoreContract.SessionID != "sess-1" {
		t.Errorf("score contract = %+v", result.ScoreContract)
	}
	if result.CoachingResponse != nil {
		t.Error("coaching response set without a coach")
	}
	if len(result.Transcript) != 3 {
		t.Errorf("transcript entries = %d, want 3", len(result.Transcript))
	}
	if result.CompletedAt.IsZero() {
		t.Error("completed_at not set")
	}

	wantStatuses := []model.SessionStatus{model.StatusProcessing, model.StatusCompleted}
	if len(events.events) != len(wantStatuses) {
		t.Fatalf("published %d events, want %d", len(events.events), len(wantStatuses))
	}
	for i, want := range wantStatuses {
		if events.events[i].Status != want {
			t.Errorf("event[%d] = %s, want %s", i, events.events[i].Status, want)
		}
	}
}

func TestProcessAnalysisJobTranscriptionFailure(t *testing.T) {
	repo := newFakeRepo(pendingSession("sess-1"))
	store := &fakeStore{objects: map[string][]byte{"sessions/sess-1/audio.wav": []byte("x")}}
	events := &fakeEvents{}
	transcriber := &fakeTranscriber{err: &asr.TranscriptionError{Backend: "whisper", Err: errors.New("model crashed")}}
	w := newTestWorker(repo, &fakeJobs{}, store, transcriber, nil, events)

	err := w.processAnalysisJob(context.Background(), analysisJob("sess-1").Payload)
	if err == nil {
		t.Fatal("processAnalysisJob succeeded with a failing transcriber")
	}

	session := repo.sessions["sess-1"]
	if session.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", session.Status)
	}
	if session.ErrorMessage == "" {
		t.Error("error message not persisted")
	}
	if _, ok := repo.completed["sess-1"]; ok {
		t.Error("completed result persisted for a failed session")
	}

	last := events.events[len(events.events)-1]
	if last.Status != model.StatusFailed || last.ErrorMessage == "" {
		t.Errorf("last event = %+v, want failed with an error message", last)
	}
}

func TestProcessAnalysisJobDownloadFailure(t *testing.T) {
	repo := newFakeRepo(pendingSession("sess-1"))
	store := &fakeStore{objects: map[string][]byte{}} // audio missing
	w := newTestWorker(repo, &fakeJobs{}, store, &fakeTranscriber{result: testTranscript()}, nil, &fakeEvents{})

	if err := w.processAnalysisJob(context.Background(), analysisJob("sess-1").Payload); err == nil {
		t.Fatal("processAnalysisJob succeeded with missing audio")
	}
	if got := repo.sessions["sess-1"].Status; got != model.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestProcessAnalysisJobMarkProcessingConflict(t *testing.T) {
	// Session already completed, e.g. a replayed job. Nothing may change.
	session := pendingSession("sess-1")
	session.Status = model.StatusCompleted
	repo := newFakeRepo(session)
	events := &fakeEvents{}
	w := newTestWorker(repo, &fakeJobs{}, &fakeStore{objects: map[string][]byte{}}, &fakeTranscriber{}, nil, events)

	if err := w.processAnalysisJob(context.Background(), analysisJob("sess-1").Payload); err == nil {
		t.Fatal("processAnalysisJob succeeded on a non-pending session")
	}
	if got := repo.sessions["sess-1"].Status; got != model.StatusCompleted {
		t.Errorf("status = %s, want completed untouched", got)
	}
	if len(events.events) != 0 {
		t.Errorf("published %d events, want 0", len(events.events))
	}
}

func TestProcessAnalysisJobWithCoaching(t *testing.T) {
	repo := newFakeRepo(pendingSession("sess-1"))
	store := &fakeStore{objects: map[string][]byte{"sessions/sess-1/audio.wav": []byte("x")}}
	coach := &fakeCoach{
		enabled: true,
		response: &contract.CoachingResponse{
			SessionID: "sess-1",
			Summary:   "Short session but the pacing held steady and the fillers were rare.",
			Strengths: []contract.Strength{{Area: contract.FocusPace, Observation: "steady"}},
			FocusArea: contract.FocusArea{Area: contract.FocusFluency, CurrentScore: 60, TargetScore: 70, Observation: "ok", Impact: "ok"},
			RecommendedDrills: []contract.RecommendedDrill{
				{DrillID: "drill_fluency_silence", Reason: "fits", Priority: 1},
			},
			NextSessionGoal: "Keep fillers under two per minute.",
		},
	}
	w := newTestWorker(repo, &fakeJobs{}, store, &fakeTranscriber{result: testTranscript()}, coach, &fakeEvents{})

	if err := w.processAnalysisJob(context.Background(), analysisJob("sess-1").Payload); err != nil {
		t.Fatalf("processAnalysisJob: %v", err)
	}
	if coach.calls != 1 {
		t.Errorf("coach called %d times, want 1", coach.calls)
	}
	if repo.completed["sess-1"].CoachingResponse == nil {
		t.Error("coaching response not persisted")
	}
}

func TestProcessAnalysisJobSkipsDisabledCoach(t *testing.T) {
	repo := newFakeRepo(pendingSession("sess-1"))
	store := &fakeStore{objects: map[string][]byte{"sessions/sess-1/audio.wav": []byte("x")}}
	coach := &fakeCoach{enabled: false}
	w := newTestWorker(repo, &fakeJobs{}, store, &fakeTranscriber{result: testTranscript()}, coach, &fakeEvents{})

	if err := w.processAnalysisJob(context.Background(), analysisJob("sess-1").Payload); err != nil {
		t.Fatalf("processAnalysisJob: %v", err)
	}
	if coach.calls != 0 {
		t.Errorf("disabled coach called %d times", coach.calls)
	}
	if repo.completed["sess-1"].CoachingResponse != nil {
		t.Error("coaching response persisted from a disabled coach")
	}
}

func TestProcessAnalysisJobCoachingFailureFailsSession(t *testing.T) {
	repo := newFakeRepo(pendingSession("sess-1"))
	store := &fakeStore{objects: map[string][]byte{"sessions/sess-1/audio.wav": []byte("x")}}
	coach := &fakeCoach{enabled: true, err: errors.New("model unavailable")}
	w := newTestWorker(repo, &fakeJobs{}, store, &fakeTranscriber{result: testTranscript()}, coach, &fakeEvents{})

	if err := w.processAnalysisJob(context.Background(), analysisJob("sess-1").Payload); err == nil {
		t.Fatal("processAnalysisJob succeeded despite a coaching failure")
	}
	if got := repo.sessions["sess-1"].Status; got != model.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestProcessNextSkipsUnknownJobType(t *testing.T) {
	repo := newFakeRepo(pendingSession("sess-1"))
	jobs := &fakeJobs{jobs: []*queue.Job{{Type: "reindex_everything"}}}
	w := newTestWorker(repo, jobs, &fakeStore{objects: map[string][]byte{}}, &fakeTranscriber{}, nil, &fakeEvents{})

	if err := w.processNext(context.Background()); err != nil {
		t.Fatalf("processNext: %v", err)
	}
	if got := repo.sessions["sess-1"].Status; got != model.StatusPending {
		t.Errorf("status = %s, unknown job type must not touch sessions", got)
	}
}

func TestProcessNextEmptyQueue(t *testing.T) {
	w := newTestWorker(newFakeRepo(), &fakeJobs{}, &fakeStore{objects: map[string][]byte{}}, &fakeTranscriber{}, nil, &fakeEvents{})
	if err := w.processNext(context.Background()); err != nil {
		t.Fatalf("processNext on an empty queue: %v", err)
	}
}

func TestRunStops(t *testing.T) {
	w := newTestWorker(newFakeRepo(), &fakeJobs{}, &fakeStore{objects: map[string][]byte{}}, &fakeTranscriber{}, nil, &fakeEvents{})

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	w.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
