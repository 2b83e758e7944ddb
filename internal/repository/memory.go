package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/changefeed"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

// memoryRoom keeps rooms in process memory. Events are handed to the feed while the lock is held,
// so subscribers observe them in commit order; the feed must not block.
type memoryRoom struct {
	logger *slog.Logger
	mu     sync.Mutex
	rooms  map[string]*entity.Room
	codes  map[string]string
	feed   publisher
}

func NewMemoryRoomRepository(logger *slog.Logger, feed publisher) RoomRepository {
	return &memoryRoom{
		logger: logger.With("component", "memoryRoomRepository"),
		rooms:  make(map[string]*entity.Room),
		codes:  make(map[string]string),
		feed:   feed,
	}
}

func (that *memoryRoom) Create(ctx context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.codes[room.Code]; ok {
		return fmt.Errorf("%w: %s", apperror.ErrCodeTaken, room.Code)
	}

	now := time.Now().UTC()
	room.Version = 1
	room.CreatedAt = now
	room.UpdatedAt = now

	that.rooms[room.ID] = room.Clone()
	that.codes[room.Code] = room.ID

	that.publish(ctx, changefeed.Event{Type: changefeed.EventInserted, RoomID: room.ID, Room: room.Clone()})

	return nil
}

func (that *memoryRoom) GetByID(_ context.Context, id string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (that *memoryRoom) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	that.mu.Lock()
	id, ok := that.codes[code]
	that.mu.Unlock()

	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return that.GetByID(ctx, id)
}

func (that *memoryRoom) Update(ctx context.Context, id string, mutate MutateFunc) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	stored, ok := that.rooms[id]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	room := stored.Clone()
	if err := applyMutation(room, mutate); err != nil {
		return nil, err
	}

	that.rooms[id] = room

	that.publish(ctx, changefeed.Event{Type: changefeed.EventUpdated, RoomID: id, Room: room.Clone()})

	return room.Clone(), nil
}

func (that *memoryRoom) DeleteByID(ctx context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[id]
	if !ok {
		return apperror.ErrRoomNotFound
	}

	delete(that.rooms, id)
	delete(that.codes, room.Code)

	that.publish(ctx, changefeed.Event{Type: changefeed.EventDeleted, RoomID: id, Room: room.Clone()})

	return nil
}

// publish - the write is already committed, so a feed failure is only logged.
func (that *memoryRoom) publish(ctx context.Context, event changefeed.Event) {
	if err := that.feed.Publish(context.WithoutCancel(ctx), event); err != nil {
		that.logger.Error("failed to publish room change", "roomID", event.RoomID, "type", event.Type, "error", err)
	}
}
