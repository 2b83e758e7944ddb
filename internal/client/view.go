package client

import (
	"errors"
	"slices"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

const (
	OutcomePlaying = "playing"
	OutcomeWon     = "won"
	OutcomeDraw    = "draw"
)

// View is everything the UI needs, derived from the local room on every change.
type View struct {
	InRoom    bool
	RoomID    string
	Code      string
	Role      entity.Role
	Symbol    string
	HostName  string
	GuestName string

	Board         []string
	CurrentPlayer string
	Winner        string
	WinningLine   []int
	Outcome       string
	IsMyTurn      bool
	IsWaiting     bool

	HostScore  int
	GuestScore int
	Draws      int

	Notice string
}

func (that *Session) viewLocked() View {
	view := View{
		Board:         entity.NewBoard(),
		CurrentPlayer: entity.PlayerX,
		Outcome:       OutcomePlaying,
		Role:          that.role,
		Symbol:        that.role.Symbol(),
		Notice:        that.notice,
	}

	room := that.room
	if room == nil {
		return view
	}

	view.InRoom = true
	view.RoomID = room.ID
	view.Code = room.Code
	view.HostName = room.HostName
	view.GuestName = room.GuestName
	view.Board = slices.Clone(room.Board)
	view.Winner = room.Winner
	view.WinningLine = slices.Clone(room.WinningLine)
	view.IsWaiting = room.IsWaiting()
	view.IsMyTurn = room.IsPlaying() && room.IsTurnOf(that.role)
	view.HostScore = room.HostScore
	view.GuestScore = room.GuestScore
	view.Draws = room.Draws

	if room.CurrentPlayer != "" {
		view.CurrentPlayer = room.CurrentPlayer
	}

	if room.IsFinished() {
		view.Outcome = OutcomeDraw
		if room.Winner != "" {
			view.Outcome = OutcomeWon
		}
	}

	return view
}

// Describe - a human-readable reason for err.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apperror.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, apperror.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, apperror.ErrSelfJoinForbidden):
		return "You cannot join your own room"
	case errors.Is(err, apperror.ErrCreationFailed):
		return "Could not create a room, please try again"
	case errors.Is(err, apperror.ErrStaleWrite):
		return "The board changed, please try again"
	case errors.Is(err, apperror.ErrWriteFailed):
		return "Connection problem, please try again"
	case errors.Is(err, ErrAlreadyInRoom):
		return "Leave the current room first"
	case errors.Is(err, ErrNotInRoom):
		return "You are not in a room"
	default:
		return err.Error()
	}
}
