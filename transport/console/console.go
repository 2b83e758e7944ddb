package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-online/internal/client"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

var errQuit = errors.New("quit")

// Session is one local player as the console drives it.
type Session interface {
	CreateRoom(ctx context.Context, hostName string) (*entity.Room, error)
	JoinRoom(ctx context.Context, code, guestName string) (*entity.Room, error)
	MakeMove(ctx context.Context, cell int) (bool, error)
	Reset(ctx context.Context) error
	Leave(ctx context.Context) error
	View() client.View
	OnChange(fn func(client.View))
}

// Console is a line-oriented front end for one or more local players.
type Console struct {
	logger     *slog.Logger
	playerName string

	outMu    sync.Mutex
	out      io.Writer
	rendered map[int]string

	mu       sync.Mutex
	sessions []Session
	active   int

	handlers map[string]func(ctx context.Context, args []string) error
}

// New - with more than one session the players share the keyboard and switch with the player command.
func New(logger *slog.Logger, out io.Writer, playerName string, sessions ...Session) *Console {
	console := &Console{
		logger:     logger.With("component", "console"),
		playerName: playerName,
		out:        out,
		rendered:   make(map[int]string),
		sessions:   sessions,

		handlers: make(map[string]func(context.Context, []string) error),
	}

	console.handlers["create"] = console.handleCreate
	console.handlers["join"] = console.handleJoin
	console.handlers["move"] = console.handleMove
	console.handlers["reset"] = console.handleReset
	console.handlers["leave"] = console.handleLeave
	console.handlers["view"] = console.handleView
	console.handlers["player"] = console.handlePlayer
	console.handlers["help"] = console.handleHelp
	console.handlers["quit"] = console.handleQuit
	console.handlers["exit"] = console.handleQuit

	for i, s := range sessions {
		s.OnChange(func(view client.View) {
			if console.isActive(i) {
				console.render(i, view, false)
			}
		})
	}

	return console
}

// Run - reads commands from in until quit, end of input or ctx cancellation.
func (that *Console) Run(ctx context.Context, in io.Reader) error {
	log := that.logger.With("method", "Run")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	that.printf("Type help for the list of commands.\n")

	for {
		select {
		case <-ctx.Done():
			log.Info("console stopped", "reason", context.Cause(ctx))
			return nil
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			return nil
		case line := <-lines:
			if err := that.Execute(ctx, line); errors.Is(err, errQuit) {
				return nil
			}
		}
	}
}

// Execute - runs one command line. Only quit is reported back; other failures are printed.
func (that *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]

	handler, ok := that.handlers[name]
	if !ok {
		that.printf("Unknown command %q, type help for the list of commands.\n", name)
		return nil
	}

	err := handler(ctx, args)
	if errors.Is(err, errQuit) {
		return err
	}

	if err != nil {
		that.logger.Debug("command failed", "command", name, "error", err)
		that.printf("%s\n", client.Describe(err))
	}

	return nil
}

func (that *Console) current() (int, Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.active, that.sessions[that.active]
}

func (that *Console) isActive(i int) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.active == i
}

// render - prints view unless it is what was printed last for this player.
func (that *Console) render(i int, view client.View, force bool) {
	text := Render(view)
	if len(that.sessions) > 1 {
		text = fmt.Sprintf("[player %d]\n%s", i+1, text)
	}

	that.outMu.Lock()
	defer that.outMu.Unlock()

	if !force && that.rendered[i] == text {
		return
	}

	that.rendered[i] = text
	fmt.Fprint(that.out, text)
}

func (that *Console) printf(format string, args ...any) {
	that.outMu.Lock()
	defer that.outMu.Unlock()

	fmt.Fprintf(that.out, format, args...)
}
