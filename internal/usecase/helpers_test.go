package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rocketscienceinc/tictactoe-online/internal/changefeed"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
	"github.com/rocketscienceinc/tictactoe-online/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-online/testing/suite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	hostID  entity.Identity = "host-identity"
	guestID entity.Identity = "guest-identity"
	thirdID entity.Identity = "third-identity"
)

var (
	errRedisDown     = errors.New("redis down")
	errStorageIsFull = errors.New("storage is full")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fixedCodes - a generator cycling through the given codes.
func fixedCodes(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

type fixture struct {
	feed    changefeed.Feed
	repo    repository.RoomRepository
	manager *RoomManager
	arbiter *MoveArbiter
}

func newFixture(codes ...string) *fixture {
	feed := changefeed.NewMemoryFeed()

	return newFixtureWith(feed, repository.NewMemoryRoomRepository(testLogger(), feed), codes...)
}

// newRedisFixture - the same fixture on a redis container.
func newRedisFixture(t *testing.T, codes ...string) (context.Context, *fixture) {
	t.Helper()

	ctx, st := suite.New(t)
	feed := changefeed.NewRedisFeed(st.Logger, st.Storage)
	repo := repository.NewRoomRepository(st.Logger, st.Storage, feed, repository.DefaultUpdateRetries)

	return ctx, newFixtureWith(feed, repo, codes...)
}

func newFixtureWith(feed changefeed.Feed, repo repository.RoomRepository, codes ...string) *fixture {
	if len(codes) == 0 {
		codes = []string{"AB12CD"}
	}

	return &fixture{
		feed:    feed,
		repo:    repo,
		manager: NewRoomManager(testLogger(), repo, fixedCodes(codes...), DefaultCodeAttempts),
		arbiter: NewMoveArbiter(testLogger(), repo, tictactoe.NewEvaluator()),
	}
}

// playingRoom - a room with host and guest seated.
func (that *fixture) playingRoom(ctx context.Context, t *testing.T) *entity.Room {
	t.Helper()

	room, err := that.manager.CreateRoom(ctx, hostID, "Alice")
	require.NoError(t, err)

	room, err = that.manager.JoinRoom(ctx, guestID, room.Code, "Bob")
	require.NoError(t, err)

	return room
}

func (that *fixture) stored(ctx context.Context, t *testing.T, id string) *entity.Room {
	t.Helper()

	room, err := that.repo.GetByID(ctx, id)
	require.NoError(t, err)

	return room
}

type mockRoomRepo struct {
	mock.Mock
}

func (that *mockRoomRepo) Create(ctx context.Context, room *entity.Room) error {
	return that.Called(ctx, room).Error(0)
}

func (that *mockRoomRepo) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	args := that.Called(ctx, id)
	room, _ := args.Get(0).(*entity.Room)
	return room, args.Error(1)
}

func (that *mockRoomRepo) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	args := that.Called(ctx, code)
	room, _ := args.Get(0).(*entity.Room)
	return room, args.Error(1)
}

func (that *mockRoomRepo) Update(ctx context.Context, id string, mutate repository.MutateFunc) (*entity.Room, error) {
	args := that.Called(ctx, id, mutate)
	room, _ := args.Get(0).(*entity.Room)
	return room, args.Error(1)
}

func (that *mockRoomRepo) DeleteByID(ctx context.Context, id string) error {
	return that.Called(ctx, id).Error(0)
}

// staleLookupRepo serves GetByCode from a snapshot, as a client whose read raced another writer.
type staleLookupRepo struct {
	repository.RoomRepository
	snapshot *entity.Room
}

func (that *staleLookupRepo) GetByCode(_ context.Context, _ string) (*entity.Room, error) {
	return that.snapshot.Clone(), nil
}
