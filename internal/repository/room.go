package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/changefeed"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

const DefaultUpdateRetries = 5

var ErrUpdateConflict = errors.New("room was modified concurrently")

// MutateFunc changes a freshly loaded room inside an atomic update. Returning an error aborts the update.
type MutateFunc func(room *entity.Room) error

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, id string, mutate MutateFunc) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
}

type publisher interface {
	Publish(ctx context.Context, event changefeed.Event) error
}

type dbRoom struct {
	logger  *slog.Logger
	client  *redis.Client
	feed    publisher
	retries int
}

func NewRoomRepository(logger *slog.Logger, client *redis.Client, feed publisher, retries int) RoomRepository {
	if retries <= 0 {
		retries = DefaultUpdateRetries
	}

	return &dbRoom{
		logger:  logger.With("component", "roomRepository"),
		client:  client,
		feed:    feed,
		retries: retries,
	}
}

func roomKey(id string) string {
	return "room:" + id
}

func codeKey(code string) string {
	return "room:code:" + code
}

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	now := time.Now().UTC()
	room.Version = 1
	room.CreatedAt = now
	room.UpdatedAt = now

	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	key := codeKey(room.Code)

	// the code index doubles as the uniqueness constraint; index and record are written in one MULTI
	txf := func(tx *redis.Tx) error {
		taken, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check room code: %w", err)
		}

		if taken > 0 {
			return fmt.Errorf("%w: %s", apperror.ErrCodeTaken, room.Code)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, room.ID, 0)
			pipe.Set(ctx, roomKey(room.ID), roomJSON, 0)
			return nil
		})

		return err
	}

	for range that.retries {
		err = that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return err
		}

		that.publish(ctx, changefeed.Event{Type: changefeed.EventInserted, RoomID: room.ID, Room: room})

		return nil
	}

	return fmt.Errorf("%w: code %s", ErrUpdateConflict, room.Code)
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	return decodeRoom(response)
}

func (that *dbRoom) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	id, err := that.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	return that.GetByID(ctx, id)
}

func (that *dbRoom) Update(ctx context.Context, id string, mutate MutateFunc) (*entity.Room, error) {
	key := roomKey(id)

	var updated *entity.Room

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		room, err := decodeRoom(response)
		if err != nil {
			return err
		}

		if err = applyMutation(room, mutate); err != nil {
			return err
		}

		roomJSON, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("could not marshal room: %w", err)
		}

		// runs only if the watched key is unchanged
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, roomJSON, 0)
			return nil
		})

		updated = room

		return err
	}

	for range that.retries {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		that.publish(ctx, changefeed.Event{Type: changefeed.EventUpdated, RoomID: id, Room: updated})

		return updated, nil
	}

	return nil, fmt.Errorf("%w: room %s", ErrUpdateConflict, id)
}

func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	key := roomKey(id)

	var deleted *entity.Room

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		room, err := decodeRoom(response)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.Del(ctx, codeKey(room.Code))
			return nil
		})

		deleted = room

		return err
	}

	for range that.retries {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return err
		}

		that.publish(ctx, changefeed.Event{Type: changefeed.EventDeleted, RoomID: id, Room: deleted})

		return nil
	}

	return fmt.Errorf("%w: room %s", ErrUpdateConflict, id)
}

// publish - the write is already committed, so a feed failure is only logged
// and a canceled caller does not keep the event from the other side.
func (that *dbRoom) publish(ctx context.Context, event changefeed.Event) {
	if err := that.feed.Publish(context.WithoutCancel(ctx), event); err != nil {
		that.logger.Error("failed to publish room change", "roomID", event.RoomID, "type", event.Type, "error", err)
	}
}

func decodeRoom(data []byte) (*entity.Room, error) {
	var room entity.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

// applyMutation - runs mutate and stamps the new revision. Identity fields cannot be changed.
func applyMutation(room *entity.Room, mutate MutateFunc) error {
	id, code, createdAt := room.ID, room.Code, room.CreatedAt

	if err := mutate(room); err != nil {
		return err
	}

	room.ID, room.Code, room.CreatedAt = id, code, createdAt
	room.Version++
	room.UpdatedAt = time.Now().UTC()

	return nil
}
