package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/changefeed"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAbort = errors.New("abort")

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type repoFactory func(t *testing.T) (context.Context, RoomRepository, changefeed.Feed)

func memoryFactory(t *testing.T) (context.Context, RoomRepository, changefeed.Feed) {
	t.Helper()

	feed := changefeed.NewMemoryFeed()
	return context.Background(), NewMemoryRoomRepository(testLogger(), feed), feed
}

func redisFactory(t *testing.T) (context.Context, RoomRepository, changefeed.Feed) {
	t.Helper()

	ctx, st := suite.New(t)
	feed := changefeed.NewRedisFeed(st.Logger, st.Storage)
	return ctx, NewRoomRepository(st.Logger, st.Storage, feed, DefaultUpdateRetries), feed
}

func nextEvent(t *testing.T, sub changefeed.Subscription) changefeed.Event {
	t.Helper()

	select {
	case event := <-sub.Events():
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return changefeed.Event{}
	}
}

func runRoomRepositoryTests(t *testing.T, factory repoFactory) {
	t.Run("Create_and_GetByCode", func(t *testing.T) {
		ctx, repo, _ := factory(t)

		// Given: a new room
		room := entity.NewRoom("r1", "AB12CD", "host", "Alice")

		// When: it is created
		require.NoError(t, repo.Create(ctx, room))

		// Then: it can be found by code with the first revision
		found, err := repo.GetByCode(ctx, "AB12CD")
		require.NoError(t, err)
		assert.Equal(t, "r1", found.ID)
		assert.Equal(t, "Alice", found.HostName)
		assert.Equal(t, entity.StatusWaiting, found.Status)
		assert.Equal(t, int64(1), found.Version)
		assert.Len(t, found.Board, entity.BoardSize)
	})

	t.Run("Create_DuplicateCode", func(t *testing.T) {
		ctx, repo, _ := factory(t)

		// Given: a room holding a code
		require.NoError(t, repo.Create(ctx, entity.NewRoom("r1", "AB12CD", "host", "")))

		// When: another room reuses the code
		err := repo.Create(ctx, entity.NewRoom("r2", "AB12CD", "other", ""))

		// Then: the code is rejected and the second room does not exist
		require.ErrorIs(t, err, apperror.ErrCodeTaken)
		_, err = repo.GetByID(ctx, "r2")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, repo, _ := factory(t)

		_, err := repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)

		_, err = repo.GetByCode(ctx, "ZZZZZZ")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Update_PublishesNewRevision", func(t *testing.T) {
		ctx, repo, feed := factory(t)

		// Given: a room and a subscriber
		require.NoError(t, repo.Create(ctx, entity.NewRoom("r1", "AB12CD", "host", "")))
		sub, err := feed.Subscribe(ctx, "r1")
		require.NoError(t, err)
		defer sub.Close()

		// When: the guest is admitted
		updated, err := repo.Update(ctx, "r1", func(room *entity.Room) error {
			room.AdmitGuest("guest", "Bob")
			room.Code = "HACKED"
			return nil
		})

		// Then: the new revision is returned and identity fields are kept
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPlaying, updated.Status)
		assert.Equal(t, int64(2), updated.Version)
		assert.Equal(t, "AB12CD", updated.Code)

		// And: the change is published to subscribers
		event := nextEvent(t, sub)
		assert.Equal(t, changefeed.EventUpdated, event.Type)
		require.NotNil(t, event.Room)
		assert.Equal(t, "guest", event.Room.GuestID)
		assert.Equal(t, int64(2), event.Room.Version)
	})

	t.Run("Update_AbortKeepsRecord", func(t *testing.T) {
		ctx, repo, _ := factory(t)

		// Given: a room
		require.NoError(t, repo.Create(ctx, entity.NewRoom("r1", "AB12CD", "host", "")))

		// When: the mutation aborts
		_, err := repo.Update(ctx, "r1", func(room *entity.Room) error {
			room.Status = entity.StatusFinished
			return errAbort
		})

		// Then: the error is returned and nothing is written
		require.ErrorIs(t, err, errAbort)
		stored, err := repo.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaiting, stored.Status)
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		ctx, repo, _ := factory(t)

		_, err := repo.Update(ctx, "missing", func(*entity.Room) error { return nil })
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Create_ConcurrentSameCode", func(t *testing.T) {
		ctx, repo, _ := factory(t)

		// Given: several hosts racing for the same code
		const hosts = 8
		errs := make([]error, hosts)

		// When: they create their rooms at once
		var wg sync.WaitGroup
		for i := range hosts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				room := entity.NewRoom(fmt.Sprintf("r%d", i), "AB12CD", fmt.Sprintf("host%d", i), "")
				errs[i] = repo.Create(ctx, room)
			}()
		}
		wg.Wait()

		// Then: exactly one room owns the code and the index points at it
		winner := -1
		for i, err := range errs {
			if err == nil {
				require.Equal(t, -1, winner, "two rooms got the same code")
				winner = i
				continue
			}
			require.ErrorIs(t, err, apperror.ErrCodeTaken)
		}
		require.NotEqual(t, -1, winner)

		found, err := repo.GetByCode(ctx, "AB12CD")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("r%d", winner), found.ID)
	})

	t.Run("Update_ConcurrentSeatTakenOnce", func(t *testing.T) {
		ctx, repo, _ := factory(t)

		// Given: a waiting room and several guests
		require.NoError(t, repo.Create(ctx, entity.NewRoom("r1", "AB12CD", "host", "")))

		const guests = 8
		errs := make([]error, guests)

		// When: every guest tries to take the seat at once
		var wg sync.WaitGroup
		for i := range guests {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = repo.Update(ctx, "r1", func(room *entity.Room) error {
					if room.HasGuest() {
						return errAbort
					}
					room.AdmitGuest(fmt.Sprintf("guest%d", i), "")
					return nil
				})
			}()
		}
		wg.Wait()

		// Then: exactly one update committed and it is the stored guest
		winner := -1
		for i, err := range errs {
			if err == nil {
				require.Equal(t, -1, winner, "two guests were seated")
				winner = i
				continue
			}
			require.ErrorIs(t, err, errAbort)
		}
		require.NotEqual(t, -1, winner)

		stored, err := repo.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("guest%d", winner), stored.GuestID)
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("DeleteByID_ReleasesCode", func(t *testing.T) {
		ctx, repo, feed := factory(t)

		// Given: a room and a subscriber
		require.NoError(t, repo.Create(ctx, entity.NewRoom("r1", "AB12CD", "host", "")))
		sub, err := feed.Subscribe(ctx, "r1")
		require.NoError(t, err)
		defer sub.Close()

		// When: the room is deleted
		require.NoError(t, repo.DeleteByID(ctx, "r1"))

		// Then: the subscriber sees the deletion
		event := nextEvent(t, sub)
		assert.True(t, event.IsDeleted())

		// And: the room is gone and the code can be reused
		_, err = repo.GetByID(ctx, "r1")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		require.NoError(t, repo.Create(ctx, entity.NewRoom("r2", "AB12CD", "host", "")))

		// And: deleting again reports not found
		require.ErrorIs(t, repo.DeleteByID(ctx, "r1"), apperror.ErrRoomNotFound)
	})
}

func TestMemoryRoomRepository(t *testing.T) {
	runRoomRepositoryTests(t, memoryFactory)
}

func TestRedisRoomRepository(t *testing.T) {
	runRoomRepositoryTests(t, redisFactory)
}

// recordingPublisher keeps the contexts it was called with and fails with err.
type recordingPublisher struct {
	mu       sync.Mutex
	err      error
	contexts []context.Context
}

func (that *recordingPublisher) Publish(ctx context.Context, _ changefeed.Event) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.contexts = append(that.contexts, ctx)

	return that.err
}

func (that *recordingPublisher) calls() []context.Context {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]context.Context(nil), that.contexts...)
}

func TestRoomRepository_CommittedWrites(t *testing.T) {
	backends := []struct {
		name string
		repo func(t *testing.T, feed publisher) (context.Context, RoomRepository)
	}{
		{
			name: "memory",
			repo: func(_ *testing.T, feed publisher) (context.Context, RoomRepository) {
				return context.Background(), NewMemoryRoomRepository(testLogger(), feed)
			},
		},
		{
			name: "redis",
			repo: func(t *testing.T, feed publisher) (context.Context, RoomRepository) {
				ctx, st := suite.New(t)
				return ctx, NewRoomRepository(st.Logger, st.Storage, feed, DefaultUpdateRetries)
			},
		},
	}

	for _, backend := range backends {
		t.Run(backend.name+"/FeedFailureDoesNotFailWrite", func(t *testing.T) {
			// Given: a feed that rejects every event
			feed := &recordingPublisher{err: errors.New("feed is down")}
			ctx, repo := backend.repo(t, feed)
			require.NoError(t, repo.Create(ctx, entity.NewRoom("r1", "AB12CD", "host", "")))

			// When: the room is updated
			updated, err := repo.Update(ctx, "r1", func(room *entity.Room) error {
				room.AdmitGuest("guest", "Bob")
				return nil
			})

			// Then: the committed write is reported as done
			require.NoError(t, err)
			assert.Equal(t, "guest", updated.GuestID)

			stored, err := repo.GetByID(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, "guest", stored.GuestID)

			require.NoError(t, repo.DeleteByID(ctx, "r1"))
			assert.Len(t, feed.calls(), 3)
		})

		t.Run(backend.name+"/EventOutlivesCaller", func(t *testing.T) {
			// Given: a caller whose context is canceled right after the write
			feed := &recordingPublisher{}
			base, repo := backend.repo(t, feed)
			ctx, cancel := context.WithCancel(base)

			require.NoError(t, repo.Create(ctx, entity.NewRoom("r1", "AB12CD", "host", "")))
			_, err := repo.Update(ctx, "r1", func(room *entity.Room) error {
				room.AdmitGuest("guest", "Bob")
				return nil
			})
			require.NoError(t, err)

			// When: the caller goes away
			cancel()

			// Then: the contexts the events were published with are still alive
			calls := feed.calls()
			require.Len(t, calls, 2)
			for _, published := range calls {
				assert.NoError(t, published.Err())
			}
		})
	}
}
