package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rocketscienceinc/tictactoe-online/internal/changefeed"
)

type subscriber interface {
	Subscribe(ctx context.Context, roomID string) (changefeed.Subscription, error)
}

// Listener turns the change feed of a room into an ordered stream of accepted events.
type Listener struct {
	logger *slog.Logger
	feed   subscriber
}

func NewListener(logger *slog.Logger, feed subscriber) *Listener {
	return &Listener{
		logger: logger.With("component", "listener"),
		feed:   feed,
	}
}

// Listen - subscribes to roomID and calls handle for every event that is newer than version since.
// ctx bounds only the subscribe call; the subscription lives until Close.
// handle runs on one goroutine per subscription, never concurrently with itself.
func (that *Listener) Listen(ctx context.Context, roomID string, since int64, handle func(changefeed.Event)) (*Listening, error) {
	sub, err := that.feed.Subscribe(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to listen to room %s: %w", roomID, err)
	}

	listening := &Listening{
		logger:  that.logger.With("roomID", roomID),
		sub:     sub,
		version: since,
		handle:  handle,
		done:    make(chan struct{}),
	}

	go listening.run()

	return listening, nil
}

// Listening is an active room subscription.
type Listening struct {
	logger  *slog.Logger
	sub     changefeed.Subscription
	version int64
	handle  func(changefeed.Event)
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once
}

func (that *Listening) run() {
	defer close(that.done)

	for event := range that.sub.Events() {
		if that.closed.Load() {
			return
		}

		if !that.accept(event) {
			continue
		}

		that.handle(event)

		if event.IsDeleted() {
			if err := that.Close(); err != nil {
				that.logger.Error("failed to release deleted room subscription", "error", err)
			}
			return
		}
	}
}

// accept - drops events that do not move the room forward.
func (that *Listening) accept(event changefeed.Event) bool {
	if event.IsDeleted() {
		return true
	}

	if event.Room == nil {
		that.logger.Warn("event without room record", "type", event.Type)
		return false
	}

	if event.Room.Version <= that.version {
		that.logger.Debug("out of order event dropped", "version", event.Room.Version, "current", that.version)
		return false
	}

	that.version = event.Room.Version

	return true
}

// Done is closed once no more events will be handled.
func (that *Listening) Done() <-chan struct{} {
	return that.done
}

// Close - releases the subscription. It may be called from inside handle.
func (that *Listening) Close() error {
	var err error

	that.once.Do(func() {
		that.closed.Store(true)
		err = that.sub.Close()
	})

	if err != nil {
		return fmt.Errorf("failed to close listening: %w", err)
	}

	return nil
}
