// Package events moves session status transitions from the worker to the
// API over redis pub/sub, so clients watching a session get pushes instead
// of polling.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/danielladerman/speakflow/internal/model"
)

// Publisher emits status events on a redis channel. Publish failures are
// logged and dropped: live updates are best effort and must never affect
// the pipeline outcome.
type Publisher struct {
	client  *redis.Client
	channel string
	log     *logrus.Entry
}

// NewPublisher creates a status event publisher.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
		log:     logrus.WithField("component", "events"),
	}
}

// Publish sends one status event.
func (p *Publisher) Publish(ctx context.Context, event model.StatusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Warn("failed to encode status event")
		return
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.log.WithError(err).WithField("session_id", event.SessionID).Warn("failed to publish status event")
	}
}

// Subscribe listens on the status channel and invokes handle for every
// decoded event until ctx is cancelled.
func Subscribe(ctx context.Context, client *redis.Client, channel string, handle func(model.StatusEvent)) {
	log := logrus.WithField("component", "events")
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event model.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.WithError(err).Warn("dropping malformed status event")
				continue
			}
			handle(event)
		}
	}
}
