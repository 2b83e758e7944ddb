package tictactoe

import (
	"slices"

	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluator scores a classic 3x3 board.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate - returns the winner and its line, a draw, or an ongoing outcome.
func (that *Evaluator) Evaluate(board []string) entity.Outcome {
	if len(board) != entity.BoardSize {
		return entity.Outcome{}
	}

	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return entity.Outcome{Winner: a, WinningLine: combo[:]}
		}
	}

	// the game will continue until all the squares are full
	if slices.Contains(board, entity.EmptyCell) {
		return entity.Outcome{}
	}

	return entity.Outcome{Draw: true}
}
