// Package events publishes window and mint notifications over redis
// pub/sub for external observers. Publication is best-effort: failures are
// logged and never fail the operation that triggered them.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mintgate-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the redis channel events are published on.
const DefaultChannel = "mintgate:events"

// Publisher emits events on a redis channel. A nil *Publisher is valid and
// publishes nothing, so callers never need to branch on redis availability.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a publisher. Returns nil when client is nil.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if client == nil {
		return nil
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload interface{}) {
	if p == nil {
		return
	}
	data, err := json.Marshal(model.Event{
		Type:    eventType,
		At:      time.Now().UTC(),
		Payload: payload,
	})
	if err != nil {
		log.Printf("[Events] Failed to encode %s: %v", eventType, err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		log.Printf("[Events] Failed to publish %s: %v", eventType, err)
	}
}

// WindowAdded announces a newly inserted window.
func (p *Publisher) WindowAdded(ctx context.Context, w model.WindowRecord) {
	p.publish(ctx, model.EventWindowAdded, w)
}

// WindowEdited announces a window's post-edit fields.
func (p *Publisher) WindowEdited(ctx context.Context, w model.WindowRecord) {
	p.publish(ctx, model.EventWindowEdited, w)
}

// WindowRemoved announces a removed window id.
func (p *Publisher) WindowRemoved(ctx context.Context, id uint64) {
	p.publish(ctx, model.EventWindowRemoved, map[string]uint64{"id": id})
}

// MintCompleted announces a successful mint.
func (p *Publisher) MintCompleted(ctx context.Context, r model.MintReceipt) {
	p.publish(ctx, model.EventMintCompleted, r)
}
