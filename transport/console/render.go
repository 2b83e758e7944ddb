package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-online/internal/client"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

const boardSide = 3

// Render - the board and status of view as console text.
func Render(view client.View) string {
	var b strings.Builder

	if !view.InRoom {
		if view.Notice != "" {
			fmt.Fprintf(&b, "%s\n", view.Notice)
		}
		b.WriteString("You are not in a room. Type create or join <code>.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Room %s  %s (X) %d : %d %s (O)  draws %d\n",
		view.Code, view.HostName, view.HostScore, view.GuestScore, view.GuestName, view.Draws)

	for row := 0; row < boardSide; row++ {
		if row > 0 {
			b.WriteString("---+---+---\n")
		}

		cells := make([]string, 0, boardSide)
		for col := 0; col < boardSide; col++ {
			cells = append(cells, " "+cellText(view, row*boardSide+col)+" ")
		}

		b.WriteString(strings.Join(cells, "|") + "\n")
	}

	b.WriteString(status(view) + "\n")

	if view.Notice != "" {
		fmt.Fprintf(&b, "%s\n", view.Notice)
	}

	return b.String()
}

func cellText(view client.View, cell int) string {
	if cell >= len(view.Board) || view.Board[cell] == entity.EmptyCell {
		return strconv.Itoa(cell + 1)
	}

	return view.Board[cell]
}

func status(view client.View) string {
	switch {
	case view.IsWaiting:
		return fmt.Sprintf("Waiting for an opponent, share the code %s.", view.Code)
	case view.Outcome == client.OutcomeDraw:
		return "Draw! Type reset for a rematch."
	case view.Outcome == client.OutcomeWon && view.Winner == view.Symbol:
		return fmt.Sprintf("You won on %s! Type reset for a rematch.", lineText(view.WinningLine))
	case view.Outcome == client.OutcomeWon:
		return fmt.Sprintf("%s won on %s. Type reset for a rematch.", view.Winner, lineText(view.WinningLine))
	case view.IsMyTurn:
		return fmt.Sprintf("Your turn (%s).", view.Symbol)
	default:
		return fmt.Sprintf("Waiting for %s to move.", view.CurrentPlayer)
	}
}

// lineText - cells as numbered on the board, e.g. 1-2-3.
func lineText(line []int) string {
	cells := make([]string, 0, len(line))
	for _, cell := range line {
		cells = append(cells, strconv.Itoa(cell+1))
	}

	return strings.Join(cells, "-")
}
