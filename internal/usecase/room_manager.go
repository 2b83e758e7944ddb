package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
)

const DefaultCodeAttempts = 3

var (
	ErrIdentityRequired = errors.New("player identity is required")
	ErrInvalidRole      = errors.New("invalid player role")
)

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, id string, mutate repository.MutateFunc) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
}

// CodeGenerator produces candidate room codes.
type CodeGenerator func() (string, error)

// RoomManager creates, joins, resets and tears down shared room records.
type RoomManager struct {
	logger       *slog.Logger
	roomRepo     roomRepo
	generateCode CodeGenerator
	codeAttempts int
}

func NewRoomManager(logger *slog.Logger, roomRepo roomRepo, generateCode CodeGenerator, codeAttempts int) *RoomManager {
	if codeAttempts <= 0 {
		codeAttempts = DefaultCodeAttempts
	}

	return &RoomManager{
		logger:       logger.With("component", "roomManager"),
		roomRepo:     roomRepo,
		generateCode: generateCode,
		codeAttempts: codeAttempts,
	}
}

// CreateRoom - opens a waiting room owned by host. Code collisions are retried with a fresh code.
func (that *RoomManager) CreateRoom(ctx context.Context, host entity.Identity, hostName string) (*entity.Room, error) {
	log := that.logger.With("method", "CreateRoom")

	if host == "" {
		return nil, fmt.Errorf("%w: %w", apperror.ErrCreationFailed, ErrIdentityRequired)
	}

	var lastErr error

	for attempt := 1; attempt <= that.codeAttempts; attempt++ {
		code, err := that.generateCode()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to generate code: %w", apperror.ErrCreationFailed, err)
		}

		room := entity.NewRoom(pkg.GenerateRoomID(), code, host.String(), hostName)

		err = that.roomRepo.Create(ctx, room)
		if err == nil {
			log.Info("room created", "roomID", room.ID, "code", room.Code)
			return room, nil
		}

		if !errors.Is(err, apperror.ErrCodeTaken) {
			return nil, fmt.Errorf("%w: %w", apperror.ErrCreationFailed, err)
		}

		log.Warn("room code collision", "code", code, "attempt", attempt)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %d attempts: %w", apperror.ErrCreationFailed, that.codeAttempts, lastErr)
}

// JoinRoom - seats guest in the room with the given code.
func (that *RoomManager) JoinRoom(ctx context.Context, guest entity.Identity, code, guestName string) (*entity.Room, error) {
	log := that.logger.With("method", "JoinRoom")

	if guest == "" {
		return nil, ErrIdentityRequired
	}

	code = pkg.NormalizeRoomCode(code)

	room, err := that.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to find room %s: %w", code, err)
	}

	// fail fast on the stale copy; the same check is repeated inside the atomic update
	if err = checkAdmission(room, guest); err != nil {
		return nil, err
	}

	joined, err := that.roomRepo.Update(ctx, room.ID, func(current *entity.Room) error {
		if err := checkAdmission(current, guest); err != nil {
			return err
		}

		current.AdmitGuest(guest.String(), guestName)

		return nil
	})
	if err != nil {
		return nil, writeError("failed to join room", err)
	}

	log.Info("guest joined", "roomID", joined.ID, "code", joined.Code)

	return joined, nil
}

func (that *RoomManager) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// ResetRoom - starts a rematch. Scores are kept.
func (that *RoomManager) ResetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.roomRepo.Update(ctx, roomID, func(current *entity.Room) error {
		current.ResetRound()
		if !current.HasGuest() {
			current.Status = entity.StatusWaiting
		}
		return nil
	})
	if err != nil {
		return nil, writeError("failed to reset room", err)
	}

	return room, nil
}

// LeaveRoom - the host closes the room for both sides, a guest frees the seat for somebody else.
func (that *RoomManager) LeaveRoom(ctx context.Context, roomID string, player entity.Identity, role entity.Role) error {
	log := that.logger.With("method", "LeaveRoom", "roomID", roomID, "role", role)

	switch role {
	case entity.RoleHost:
		err := that.roomRepo.DeleteByID(ctx, roomID)
		if err != nil && !errors.Is(err, apperror.ErrRoomNotFound) {
			return writeError("failed to delete room", err)
		}

		log.Info("room closed by host")

		return nil
	case entity.RoleGuest:
		_, err := that.roomRepo.Update(ctx, roomID, func(current *entity.Room) error {
			if current.GuestID != player.String() {
				return errNotSeated
			}

			current.ReleaseGuest()

			return nil
		})
		if err != nil && !errors.Is(err, apperror.ErrRoomNotFound) && !errors.Is(err, errNotSeated) {
			return writeError("failed to release guest seat", err)
		}

		log.Info("guest left room")

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}

var errNotSeated = errors.New("player is not seated in the room")

func checkAdmission(room *entity.Room, guest entity.Identity) error {
	if room.HasGuest() {
		return apperror.ErrRoomFull
	}

	if room.HostID == guest.String() {
		return apperror.ErrSelfJoinForbidden
	}

	return nil
}

// writeError - keeps domain errors as they are and marks storage failures as ErrWriteFailed.
func writeError(msg string, err error) error {
	for _, domainErr := range []error{
		apperror.ErrRoomNotFound,
		apperror.ErrRoomFull,
		apperror.ErrSelfJoinForbidden,
		apperror.ErrStaleWrite,
	} {
		if errors.Is(err, domainErr) {
			return fmt.Errorf("%s: %w", msg, err)
		}
	}

	return fmt.Errorf("%s: %w: %w", msg, apperror.ErrWriteFailed, err)
}
