package usecase

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
)

// Evaluator maps a board to ongoing, won or draw. It is provided by the specific game.
type Evaluator interface {
	Evaluate(board []string) entity.Outcome
}

type roomUpdater interface {
	Update(ctx context.Context, id string, mutate repository.MutateFunc) (*entity.Room, error)
}

// MoveArbiter validates a move against the latest known room and writes it conditionally.
type MoveArbiter struct {
	logger    *slog.Logger
	roomRepo  roomUpdater
	evaluator Evaluator
}

func NewMoveArbiter(logger *slog.Logger, roomRepo roomUpdater, evaluator Evaluator) *MoveArbiter {
	return &MoveArbiter{
		logger:    logger.With("component", "moveArbiter"),
		roomRepo:  roomRepo,
		evaluator: evaluator,
	}
}

// MakeMove - places the mark of role on cell.
//
// An illegal move (wrong turn, occupied cell, game not running) is a silent no-op that returns false
// without an error. A legal move is written only if the stored board, turn and status still equal the
// observed room; otherwise nothing is written and apperror.ErrStaleWrite is returned.
func (that *MoveArbiter) MakeMove(ctx context.Context, room *entity.Room, role entity.Role, cell int) (bool, error) {
	if room == nil || !role.Valid() {
		return false, nil
	}

	if !room.IsTurnOf(role) || !room.IsPlaying() || !room.IsCellEmpty(cell) {
		return false, nil
	}

	log := that.logger.With("method", "MakeMove", "roomID", room.ID, "role", role, "cell", cell)

	mark := role.Symbol()

	board, err := room.PlaceMark(mark, cell)
	if err != nil {
		return false, nil
	}

	outcome := that.evaluator.Evaluate(board)
	observed := room.Clone()

	_, err = that.roomRepo.Update(ctx, room.ID, func(current *entity.Room) error {
		if !current.SameRound(observed) {
			return apperror.ErrStaleWrite
		}

		applyMove(current, board, mark, outcome)

		return nil
	})
	if err != nil {
		log.Warn("move was not written", "error", err)
		return false, writeError("failed to write move", err)
	}

	log.Debug("move written", "terminal", outcome.IsTerminal())

	return true, nil
}

// applyMove - scores are incremented on the stored counters, so a terminal transition counts once.
func applyMove(room *entity.Room, board []string, mark string, outcome entity.Outcome) {
	room.Board = board

	switch {
	case outcome.Winner != "":
		room.Winner = outcome.Winner
		room.WinningLine = outcome.WinningLine
		room.Status = entity.StatusFinished

		if outcome.Winner == entity.RoleHost.Symbol() {
			room.HostScore++
		} else {
			room.GuestScore++
		}
	case outcome.Draw:
		room.Status = entity.StatusFinished
		room.Draws++
	default:
		room.CurrentPlayer = entity.ToggleMark(mark)
	}
}
