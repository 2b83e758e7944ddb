package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

type RedisFeed struct {
	logger *slog.Logger
	client *redis.Client
}

func NewRedisFeed(logger *slog.Logger, client *redis.Client) *RedisFeed {
	return &RedisFeed{
		logger: logger.With("component", "redisFeed"),
		client: client,
	}
}

func redisChannel(roomID string) string {
	return "room:" + roomID + ":changes"
}

func (that *RedisFeed) Publish(ctx context.Context, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	if err = that.client.Publish(ctx, redisChannel(event.RoomID), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (that *RedisFeed) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	pubsub := that.client.Subscribe(ctx, redisChannel(roomID))

	// wait for the subscription confirmation, so no event published afterwards is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}

	sub := &redisSubscription{
		logger: that.logger.With("roomID", roomID),
		pubsub: pubsub,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}

	go sub.run()

	return sub, nil
}

type redisSubscription struct {
	logger *slog.Logger
	pubsub *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (that *redisSubscription) run() {
	defer close(that.events)

	for msg := range that.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			that.logger.Error("failed to unmarshal event", "error", err)
			continue
		}

		select {
		case that.events <- event:
		case <-that.done:
			return
		}
	}
}

func (that *redisSubscription) Events() <-chan Event {
	return that.events
}

func (that *redisSubscription) Close() error {
	var err error

	that.once.Do(func() {
		close(that.done)
		err = that.pubsub.Close()
	})

	if err != nil {
		return fmt.Errorf("failed to close subscription: %w", err)
	}

	return nil
}
