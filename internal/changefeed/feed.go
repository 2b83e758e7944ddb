package changefeed

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

const (
	EventInserted = "inserted"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
)

const bufferSize = 64

// Event is a committed change of a room record.
type Event struct {
	Type   string       `json:"type"`
	RoomID string       `json:"room_id"`
	Room   *entity.Room `json:"room,omitempty"`
}

func (that Event) IsDeleted() bool {
	return that.Type == EventDeleted
}

// Subscription delivers the events of one room until it is closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Feed fans committed room changes out to every subscriber of the room, the writer included.
type Feed interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
}
