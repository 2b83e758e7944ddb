package entity

// Outcome is the evaluation of a board.
type Outcome struct {
	Winner      string
	WinningLine []int
	Draw        bool
}

func (that Outcome) IsTerminal() bool {
	return that.Winner != "" || that.Draw
}
