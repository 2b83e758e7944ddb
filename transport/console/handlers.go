package console

import (
	"context"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

const helpText = `Commands:
  create [name]       create a room and wait for an opponent
  join <code> [name]  join a room by its code
  move <cell>         put your mark on cell 1-9
  reset               start a rematch
  leave               leave the room (the host closes it)
  view                show the board again
  player <n>          switch between local players
  quit                exit
`

func (that *Console) handleCreate(ctx context.Context, args []string) error {
	_, s := that.current()

	room, err := s.CreateRoom(ctx, that.name(args))
	if err != nil {
		return err
	}

	that.printf("Room created, share the code %s with your opponent.\n", room.Code)

	return nil
}

func (that *Console) handleJoin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		that.printf("Usage: join <code> [name]\n")
		return nil
	}

	_, s := that.current()

	room, err := s.JoinRoom(ctx, args[0], that.name(args[1:]))
	if err != nil {
		return err
	}

	that.printf("Joined room %s, you play O against %s.\n", room.Code, room.HostName)

	return nil
}

func (that *Console) handleMove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		that.printf("Usage: move <cell>\n")
		return nil
	}

	cell, err := strconv.Atoi(args[0])
	if err != nil || cell < 1 || cell > entity.BoardSize {
		that.printf("Cell must be a number from 1 to %d.\n", entity.BoardSize)
		return nil
	}

	_, s := that.current()

	ok, err := s.MakeMove(ctx, cell-1)
	if err != nil {
		return err
	}

	if !ok {
		that.printf("Move not allowed.\n")
	}

	return nil
}

func (that *Console) handleReset(ctx context.Context, _ []string) error {
	_, s := that.current()

	return s.Reset(ctx)
}

func (that *Console) handleLeave(ctx context.Context, _ []string) error {
	_, s := that.current()

	if !s.View().InRoom {
		that.printf("You are not in a room.\n")
		return nil
	}

	if err := s.Leave(ctx); err != nil {
		return err
	}

	that.printf("You left the room.\n")

	return nil
}

func (that *Console) handleView(_ context.Context, _ []string) error {
	i, s := that.current()
	that.render(i, s.View(), true)

	return nil
}

func (that *Console) handlePlayer(_ context.Context, args []string) error {
	count := len(that.sessions)
	if count < 2 {
		that.printf("There is only one player on this device.\n")
		return nil
	}

	if len(args) != 1 {
		that.printf("Usage: player <1-%d>\n", count)
		return nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > count {
		that.printf("Usage: player <1-%d>\n", count)
		return nil
	}

	that.mu.Lock()
	that.active = n - 1
	that.mu.Unlock()

	i, s := that.current()
	that.render(i, s.View(), true)

	return nil
}

func (that *Console) handleHelp(_ context.Context, _ []string) error {
	that.printf("%s", helpText)
	return nil
}

func (that *Console) handleQuit(_ context.Context, _ []string) error {
	return errQuit
}

func (that *Console) name(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}

	return that.playerName
}
