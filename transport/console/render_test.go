package console

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-online/internal/client"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		view client.View
		want []string
	}{
		{
			name: "Outside a room",
			view: client.View{Notice: client.NoticeRoomClosed},
			want: []string{client.NoticeRoomClosed, "You are not in a room."},
		},
		{
			name: "Waiting",
			view: client.View{
				InRoom: true, Code: "AB12CD", HostName: "Alice", GuestName: entity.DefaultGuestName,
				Board: entity.NewBoard(), IsWaiting: true, Outcome: client.OutcomePlaying,
			},
			want: []string{"Room AB12CD  Alice (X) 0 : 0 Player 2 (O)  draws 0", " 1 | 2 | 3 ", "---+---+---", "share the code AB12CD"},
		},
		{
			name: "My turn",
			view: client.View{
				InRoom: true, Board: []string{"X", "", "", "", "O", "", "", "", ""},
				Symbol: entity.PlayerX, CurrentPlayer: entity.PlayerX, IsMyTurn: true, Outcome: client.OutcomePlaying,
			},
			want: []string{" X | 2 | 3 ", " 4 | O | 6 ", "Your turn (X)."},
		},
		{
			name: "Draw",
			view: client.View{
				InRoom: true, Board: []string{"X", "O", "X", "X", "O", "O", "O", "X", "X"},
				Outcome: client.OutcomeDraw, Draws: 1,
			},
			want: []string{"draws 1", "Draw! Type reset for a rematch."},
		},
		{
			name: "Lost",
			view: client.View{
				InRoom: true, Board: []string{"", "", "O", "", "O", "", "O", "X", "X"},
				Symbol: entity.PlayerX, Winner: entity.PlayerO, WinningLine: []int{2, 4, 6}, Outcome: client.OutcomeWon,
			},
			want: []string{"O won on 3-5-7."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.view)

			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}
