// Package cache holds redis read-through caches in front of mongo.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielladerman/speakflow/internal/model"
)

// ReportCache caches completed session reports. Only terminal sessions are
// cached; pending/processing reads always hit the repository.
type ReportCache interface {
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	Set(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, sessionID string) error
}

type reportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a report cache with a 1h TTL.
func NewReportCache(client *redis.Client) ReportCache {
	return &reportCache{client: client, ttl: time.Hour}
}

func (c *reportCache) key(sessionID string) string {
	return fmt.Sprintf("report:%s", sessionID)
}

func (c *reportCache) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *reportCache) Set(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.ID), data, c.ttl).Err()
}

func (c *reportCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
