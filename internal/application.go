package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-online/internal/changefeed"
	"github.com/rocketscienceinc/tictactoe-online/internal/client"
	"github.com/rocketscienceinc/tictactoe-online/internal/config"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/identity"
	"github.com/rocketscienceinc/tictactoe-online/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-online/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-online/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-online/transport/console"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// backend - the room store and change feed selected by the config, with everything that must be closed on exit.
type backend struct {
	rooms   repository.RoomRepository
	feed    changefeed.Feed
	closers []func() error
}

func (that *backend) close(log *slog.Logger) {
	for i := len(that.closers) - 1; i >= 0; i-- {
		if err := that.closers[i](); err != nil {
			log.Error("could not close connection", "error", err)
		}
	}
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	return Run(ctx, logger, conf, os.Stdin, os.Stdout)
}

// Run - wires the players to the configured backend and serves the console until it stops.
func Run(ctx context.Context, logger *slog.Logger, conf *config.Config, in io.Reader, out io.Writer) error {
	log := logger.With("component", "app")

	back, err := newBackend(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer back.close(log)

	identities, err := playerIdentities(ctx, conf)
	if err != nil {
		return err
	}

	manager := usecase.NewRoomManager(logger, back.rooms, pkg.GenerateRoomCode, conf.Room.CodeAttempts)
	arbiter := usecase.NewMoveArbiter(logger, back.rooms, tictactoe.NewEvaluator())
	listener := usecase.NewListener(logger, back.feed)

	sessions := make([]console.Session, 0, len(identities))
	for _, id := range identities {
		session := client.NewSession(logger, id, manager, arbiter, listener)
		defer session.Close()

		sessions = append(sessions, session)
	}

	log.Info("Starting console", "storage", conf.Storage, "changeFeed", conf.ChangeFeed, "players", len(sessions))

	if err = console.New(logger, out, conf.PlayerName, sessions...).Run(ctx, in); err != nil {
		return fmt.Errorf("console error: %w", err)
	}

	return nil
}

func newBackend(ctx context.Context, logger *slog.Logger, conf *config.Config) (*backend, error) {
	back := &backend{}

	var redisStorage *redis.Client
	if conf.Storage == config.DriverRedis || conf.ChangeFeed == config.DriverRedis {
		addr := conf.Redis.GetRedisAddr()
		if addr == "" {
			return nil, ErrAddrNotFound
		}

		conn, err := storage.NewRedis(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		redisStorage = conn
		back.closers = append(back.closers, conn.Close)
	}

	switch conf.ChangeFeed {
	case config.DriverRedis:
		back.feed = changefeed.NewRedisFeed(logger, redisStorage)
	case config.DriverNats:
		conn, err := storage.NewNats(conf.Nats.URL, conf.Nats.Token)
		if err != nil {
			back.close(logger)
			return nil, fmt.Errorf("could not connect to nats: %w", err)
		}

		back.closers = append(back.closers, conn.Drain)
		back.feed = changefeed.NewNatsFeed(logger, conn)
	default:
		back.feed = changefeed.NewMemoryFeed()
	}

	switch conf.Storage {
	case config.DriverRedis:
		back.rooms = repository.NewRoomRepository(logger, redisStorage, back.feed, conf.Room.UpdateRetries)
	default:
		back.rooms = repository.NewMemoryRoomRepository(logger, back.feed)
	}

	return back, nil
}

// playerIdentities - the device identity, plus a throwaway second player when both share this process.
func playerIdentities(ctx context.Context, conf *config.Config) ([]entity.Identity, error) {
	path := conf.IdentityPath
	if path == "" {
		defaultPath, err := identity.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("could not locate identity file: %w", err)
		}
		path = defaultPath
	}

	providers := []*identity.Provider{identity.NewProvider(identity.NewFileStore(path))}
	if conf.IsLocal() {
		providers = append(providers, identity.NewProvider(identity.NewMemoryStore()))
	}

	identities := make([]entity.Identity, 0, len(providers))
	for _, provider := range providers {
		id, err := provider.GetOrCreate(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not get player identity: %w", err)
		}
		identities = append(identities, id)
	}

	return identities, nil
}
