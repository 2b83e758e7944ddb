package entity

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"

	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""

	BoardSize = 9
)

const (
	DefaultHostName  = "Player 1"
	DefaultGuestName = "Player 2"
)

var ErrInvalidCell = errors.New("invalid cell index")

// Room is the single record shared by the host and the guest of a match.
type Room struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	HostID    string `json:"host_id"`
	GuestID   string `json:"guest_id,omitempty"`
	HostName  string `json:"host_name"`
	GuestName string `json:"guest_name"`

	Board         []string `json:"board"`
	CurrentPlayer string   `json:"current_player"`
	Winner        string   `json:"winner,omitempty"`
	WinningLine   []int    `json:"winning_line,omitempty"`
	Status        string   `json:"status"`

	HostScore  int `json:"host_score"`
	GuestScore int `json:"guest_score"`
	Draws      int `json:"draws"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRoom(id, code, hostID, hostName string) *Room {
	if hostName == "" {
		hostName = DefaultHostName
	}

	return &Room{
		ID:            id,
		Code:          code,
		HostID:        hostID,
		HostName:      hostName,
		GuestName:     DefaultGuestName,
		Board:         NewBoard(),
		CurrentPlayer: PlayerX,
		Status:        StatusWaiting,
	}
}

func NewBoard() []string {
	return make([]string, BoardSize)
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) IsDraw() bool {
	return that.IsFinished() && that.Winner == ""
}

func (that *Room) HasGuest() bool {
	return that.GuestID != ""
}

// IsTurnOf reports whether the given role is the one expected to move next.
func (that *Room) IsTurnOf(role Role) bool {
	symbol := role.Symbol()
	return symbol != "" && that.CurrentPlayer == symbol
}

func (that *Room) IsCellEmpty(cell int) bool {
	return cell >= 0 && cell < len(that.Board) && that.Board[cell] == EmptyCell
}

// SameRound reports whether other holds the same board, turn and status.
func (that *Room) SameRound(other *Room) bool {
	return that.Status == other.Status &&
		that.CurrentPlayer == other.CurrentPlayer &&
		slices.Equal(that.Board, other.Board)
}

// ResetRound clears the board for a rematch. Scores are kept.
func (that *Room) ResetRound() {
	that.Board = NewBoard()
	that.CurrentPlayer = PlayerX
	that.Winner = ""
	that.WinningLine = nil
	that.Status = StatusPlaying
}

// AdmitGuest seats a guest and starts the game.
func (that *Room) AdmitGuest(guestID, guestName string) {
	if guestName == "" {
		guestName = DefaultGuestName
	}

	that.GuestID = guestID
	that.GuestName = guestName
	that.Status = StatusPlaying
}

// ReleaseGuest removes the guest and puts the room back into the waiting state.
func (that *Room) ReleaseGuest() {
	that.ResetRound()
	that.GuestID = ""
	that.GuestName = DefaultGuestName
	that.Status = StatusWaiting
}

// PlaceMark returns a copy of the board with the cell set to mark.
func (that *Room) PlaceMark(mark string, cell int) ([]string, error) {
	if cell < 0 || cell >= len(that.Board) {
		return nil, fmt.Errorf("%w: cell %d", ErrInvalidCell, cell)
	}

	board := slices.Clone(that.Board)
	board[cell] = mark

	return board, nil
}

func (that *Room) Clone() *Room {
	if that == nil {
		return nil
	}

	clone := *that
	clone.Board = slices.Clone(that.Board)
	clone.WinningLine = slices.Clone(that.WinningLine)

	return &clone
}

func ToggleMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
