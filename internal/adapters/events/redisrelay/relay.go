// Package redisrelay forwards published events to a Redis pub/sub channel so
// other processes can follow logins, messages and job progress.
package redisrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const publishTimeout = 2 * time.Second

type Relay struct {
	client  redis.UniversalClient
	channel string
	log     *slog.Logger
}

func New(client redis.UniversalClient, channel string, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{client: client, channel: channel, log: log.With("component", "redis-relay")}
}

// Attach subscribes the relay to bus and returns the unsubscribe func.
func (r *Relay) Attach(bus ports.EventBus) func() {
	return bus.Subscribe(r.Forward)
}

func (r *Relay) Forward(event domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.publish(ctx, event); err != nil {
		r.log.Warn("relay event", "kind", event.Kind, "error", err)
	}
}

func (r *Relay) publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Decode parses a payload produced by the relay.
func Decode(payload string) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}
