package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

type NatsFeed struct {
	logger *slog.Logger
	conn   *nats.Conn
}

func NewNatsFeed(logger *slog.Logger, conn *nats.Conn) *NatsFeed {
	return &NatsFeed{
		logger: logger.With("component", "natsFeed"),
		conn:   conn,
	}
}

func natsSubject(roomID string) string {
	return "rooms." + roomID + ".changes"
}

func (that *NatsFeed) Publish(ctx context.Context, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	if err = that.conn.Publish(natsSubject(event.RoomID), eventJSON); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err = that.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}

	return nil
}

func (that *NatsFeed) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	msgs := make(chan *nats.Msg, bufferSize)

	natsSub, err := that.conn.ChanSubscribe(natsSubject(roomID), msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}

	// make sure the server registered the interest before returning
	if err = that.conn.FlushWithContext(ctx); err != nil {
		_ = natsSub.Unsubscribe()
		return nil, fmt.Errorf("failed to flush subscription: %w", err)
	}

	sub := &natsSubscription{
		logger: that.logger.With("roomID", roomID),
		sub:    natsSub,
		msgs:   msgs,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}

	go sub.run()

	return sub, nil
}

type natsSubscription struct {
	logger *slog.Logger
	sub    *nats.Subscription
	msgs   chan *nats.Msg
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (that *natsSubscription) run() {
	defer close(that.events)

	for {
		select {
		case <-that.done:
			return
		case msg := <-that.msgs:
			var event Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
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
}

func (that *natsSubscription) Events() <-chan Event {
	return that.events
}

func (that *natsSubscription) Close() error {
	var err error

	that.once.Do(func() {
		err = that.sub.Unsubscribe()
		close(that.done)
	})

	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}

	return nil
}
