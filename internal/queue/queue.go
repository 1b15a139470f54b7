// Package queue is the redis-backed job queue between the upload API and
// the analysis worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobTypeAnalyzeSession is the only job type the worker understands today.
const JobTypeAnalyzeSession = "analyze_session"

// Payload identifies the uploaded audio a job should analyze.
type Payload struct {
	SessionID   string `json:"session_id"`
	AudioKey    string `json:"audio_key"`
	ContentType string `json:"content_type"`
}

// Job is the queue message envelope.
type Job struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Queue is a redis list used FIFO: LPUSH to enqueue, BRPOP to consume.
type Queue struct {
	client *redis.Client
	name   string
}

// New creates a queue on the given redis list.
func New(client *redis.Client, name string) *Queue {
	return &Queue{client: client, name: name}
}

// Enqueue pushes an analysis job for the session.
func (q *Queue) Enqueue(ctx context.Context, payload Payload) error {
	data, err := json.Marshal(Job{Type: JobTypeAnalyzeSession, Payload: payload})
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. Returns (nil, nil) when
// the timeout elapses with an empty queue, so the consumer can check its
// shutdown flag between attempts.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	// BRPOP returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(result))
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Length returns the number of pending jobs.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}
