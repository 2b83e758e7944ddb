package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/changefeed"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/usecase"
)

const NoticeRoomClosed = "Room was closed by the host"

var (
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrNotInRoom     = errors.New("not in a room")
)

type roomManager interface {
	CreateRoom(ctx context.Context, host entity.Identity, hostName string) (*entity.Room, error)
	JoinRoom(ctx context.Context, guest entity.Identity, code, guestName string) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
	ResetRoom(ctx context.Context, roomID string) (*entity.Room, error)
	LeaveRoom(ctx context.Context, roomID string, player entity.Identity, role entity.Role) error
}

type moveArbiter interface {
	MakeMove(ctx context.Context, room *entity.Room, role entity.Role, cell int) (bool, error)
}

type roomListener interface {
	Listen(ctx context.Context, roomID string, since int64, handle func(changefeed.Event)) (*usecase.Listening, error)
}

// Session is the local state of one player: who they are, which room they are in and as what.
type Session struct {
	logger   *slog.Logger
	identity entity.Identity
	manager  roomManager
	arbiter  moveArbiter
	listener roomListener

	mu        sync.Mutex
	room      *entity.Room
	role      entity.Role
	notice    string
	listening *usecase.Listening
	observers []func(View)
}

func NewSession(logger *slog.Logger, identity entity.Identity, manager roomManager, arbiter moveArbiter, listener roomListener) *Session {
	return &Session{
		logger:   logger.With("component", "session", "player", identity.String()),
		identity: identity,
		manager:  manager,
		arbiter:  arbiter,
		listener: listener,
	}
}

func (that *Session) Identity() entity.Identity {
	return that.identity
}

// OnChange - registers fn to be called with the new view after every change of local state.
func (that *Session) OnChange(fn func(View)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.observers = append(that.observers, fn)
}

func (that *Session) View() View {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.viewLocked()
}

func (that *Session) CreateRoom(ctx context.Context, hostName string) (*entity.Room, error) {
	if err := that.beginEntering(); err != nil {
		return nil, err
	}

	room, err := that.manager.CreateRoom(ctx, that.identity, hostName)
	if err != nil {
		that.fail(err)
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if err = that.enter(ctx, room, entity.RoleHost); err != nil {
		return nil, err
	}

	return room, nil
}

func (that *Session) JoinRoom(ctx context.Context, code, guestName string) (*entity.Room, error) {
	if err := that.beginEntering(); err != nil {
		return nil, err
	}

	room, err := that.manager.JoinRoom(ctx, that.identity, code, guestName)
	if err != nil {
		that.fail(err)
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	if err = that.enter(ctx, room, entity.RoleGuest); err != nil {
		return nil, err
	}

	return room, nil
}

// MakeMove - tries to play cell. false without error means the move is not legal right now.
func (that *Session) MakeMove(ctx context.Context, cell int) (bool, error) {
	that.mu.Lock()
	room, role := that.room.Clone(), that.role
	that.mu.Unlock()

	ok, err := that.arbiter.MakeMove(ctx, room, role, cell)

	switch {
	case errors.Is(err, apperror.ErrStaleWrite):
		// the opponent's write won; catch up so the player can retry on the current board
		that.refresh(ctx, room.ID)
	case errors.Is(err, apperror.ErrRoomNotFound):
		// the host closed the room; the move is dropped along with it
		that.closed(room.ID)
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to make move: %w", err)
	}

	return ok, nil
}

// Reset - starts a rematch in the current room.
func (that *Session) Reset(ctx context.Context) error {
	that.mu.Lock()
	room := that.room
	that.mu.Unlock()

	if room == nil {
		return ErrNotInRoom
	}

	reset, err := that.manager.ResetRoom(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("failed to reset room: %w", err)
	}

	that.apply(reset)

	return nil
}

// Leave - unsubscribes and forgets the room locally, even when the shared record cannot be written.
func (that *Session) Leave(ctx context.Context) error {
	that.mu.Lock()
	room, role, listening := that.room, that.role, that.listening
	that.room, that.role, that.listening = nil, entity.RoleNone, nil
	that.notice = ""
	that.mu.Unlock()

	if room == nil {
		return nil
	}

	that.release(listening)
	that.notify()

	if err := that.manager.LeaveRoom(ctx, room.ID, that.identity, role); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

// Close - drops the subscription without touching the shared record.
func (that *Session) Close() {
	that.mu.Lock()
	listening := that.listening
	that.listening = nil
	that.mu.Unlock()

	that.release(listening)
}

func (that *Session) beginEntering() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.room != nil {
		return ErrAlreadyInRoom
	}

	that.notice = ""

	return nil
}

func (that *Session) fail(err error) {
	that.mu.Lock()
	that.notice = Describe(err)
	that.mu.Unlock()

	that.notify()
}

// enter - subscribe-on-enter; the record is read once more to cover writes committed before the subscription.
// Without a subscription the opponent would never be seen, so the room is given up again.
func (that *Session) enter(ctx context.Context, room *entity.Room, role entity.Role) error {
	log := that.logger.With("method", "enter", "roomID", room.ID, "role", role)

	that.mu.Lock()
	that.room, that.role = room.Clone(), role
	that.mu.Unlock()

	listening, err := that.listener.Listen(ctx, room.ID, room.Version, that.handleEvent(room.ID))
	if err != nil {
		log.Error("room updates are not available", "error", err)
		that.abandon(ctx, room.ID, role)

		err = fmt.Errorf("%w: %w", apperror.ErrWriteFailed, err)
		that.fail(err)

		return err
	}

	that.mu.Lock()
	stillHere := that.room != nil && that.room.ID == room.ID
	if stillHere {
		that.listening = listening
	}
	that.mu.Unlock()

	if !stillHere {
		that.release(listening)
	}

	that.notify()
	that.refresh(ctx, room.ID)

	return nil
}

// abandon - forgets the room locally and gives up the seat in the shared record.
func (that *Session) abandon(ctx context.Context, roomID string, role entity.Role) {
	that.mu.Lock()
	if that.room != nil && that.room.ID == roomID {
		that.room, that.role = nil, entity.RoleNone
	}
	that.mu.Unlock()

	if err := that.manager.LeaveRoom(ctx, roomID, that.identity, role); err != nil {
		that.logger.Warn("failed to give up room", "roomID", roomID, "error", err)
	}
}

func (that *Session) refresh(ctx context.Context, roomID string) {
	latest, err := that.manager.GetRoom(ctx, roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		that.closed(roomID)
		return
	}

	if err != nil {
		that.logger.Warn("failed to refresh room", "roomID", roomID, "error", err)
		return
	}

	that.apply(latest)
}

func (that *Session) handleEvent(roomID string) func(changefeed.Event) {
	return func(event changefeed.Event) {
		if event.IsDeleted() {
			that.closed(roomID)
			return
		}

		that.apply(event.Room)
	}
}

// apply - replaces the local room wholesale unless room is older than what is already held.
func (that *Session) apply(room *entity.Room) {
	that.mu.Lock()
	if that.room == nil || that.room.ID != room.ID || room.Version < that.room.Version {
		that.mu.Unlock()
		return
	}

	that.room = room.Clone()
	that.mu.Unlock()

	that.notify()
}

func (that *Session) closed(roomID string) {
	that.mu.Lock()
	if that.room == nil || that.room.ID != roomID {
		that.mu.Unlock()
		return
	}

	if that.role == entity.RoleGuest {
		that.notice = NoticeRoomClosed
	}

	listening := that.listening
	that.room, that.role, that.listening = nil, entity.RoleNone, nil
	that.mu.Unlock()

	that.release(listening)
	that.notify()
}

func (that *Session) release(listening *usecase.Listening) {
	if listening == nil {
		return
	}

	if err := listening.Close(); err != nil {
		that.logger.Error("failed to release room subscription", "error", err)
	}
}

func (that *Session) notify() {
	that.mu.Lock()
	view := that.viewLocked()
	observers := append(([]func(View))(nil), that.observers...)
	that.mu.Unlock()

	for _, observer := range observers {
		observer(view)
	}
}
