package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danielladerman/speakflow/internal/contract"
	"github.com/danielladerman/speakflow/internal/model"
)

// ErrConflict is returned when a status update finds the session in a
// different state than expected. It protects the lifecycle table against
// concurrent or replayed writers.
var ErrConflict = errors.New("session not in expected status")

// SessionRepo persists sessions keyed by session id.
type SessionRepo interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context, limit int64) ([]*model.Session, error)
	// MarkProcessing transitions pending -> processing.
	MarkProcessing(ctx context.Context, id string) error
	// MarkCompleted transitions processing -> completed with the full result.
	MarkCompleted(ctx context.Context, id string, result *CompletedResult) error
	// MarkFailed transitions processing -> failed with the cause.
	MarkFailed(ctx context.Context, id string, errorMessage string) error
}

// CompletedResult carries everything persisted on pipeline success.
type CompletedResult struct {
	DurationSec      float64
	ScoreContract    *contract.ScoreContract
	CoachingResponse *contract.CoachingResponse
	Transcript       []model.TranscriptEntry
	CompletedAt      time.Time
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a mongo-backed session repository.
func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{collection: db.Collection("sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context, limit int64) ([]*model.Session, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// guardedUpdate applies update only when the session is currently in one of
// the expected statuses, enforcing the transition table at the store.
func (r *sessionRepo) guardedUpdate(ctx context.Context, id string, from []model.SessionStatus, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		update,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", id, ErrConflict)
	}
	return nil
}

func (r *sessionRepo) MarkProcessing(ctx context.Context, id string) error {
	return r.guardedUpdate(ctx, id,
		[]model.SessionStatus{model.StatusPending},
		bson.M{"$set": bson.M{"status": model.StatusProcessing}},
	)
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string, result *CompletedResult) error {
	return r.guardedUpdate(ctx, id,
		[]model.SessionStatus{model.StatusProcessing},
		bson.M{
			"$set": bson.M{
				"status":            model.StatusCompleted,
				"duration_sec":      result.DurationSec,
				"score_contract":    result.ScoreContract,
				"coaching_response": result.CoachingResponse,
				"transcript":        result.Transcript,
				"completed_at":      result.CompletedAt,
			},
			"$unset": bson.M{"error_message": ""},
		},
	)
}

func (r *sessionRepo) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	return r.guardedUpdate(ctx, id,
		[]model.SessionStatus{model.StatusProcessing},
		bson.M{"$set": bson.M{
			"status":        model.StatusFailed,
			"error_message": errorMessage,
		}},
	)
}
