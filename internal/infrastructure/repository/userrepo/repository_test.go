package userrepo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
)

func newTestRepo(t *testing.T) (*Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRepository(cache.NewFromClient(client), time.Second), mr
}

func listOf(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	if !mr.Exists(key) {
		return nil
	}
	vals, err := mr.List(key)
	require.NoError(t, err)
	return vals
}

func TestGetOrCreate_NewUser(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.GetOrCreate(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, user.New("12345"), u)
	assert.True(t, mr.Exists("user:12345"))
	assert.Equal(t, []string{"12345"}, listOf(t, mr, "userList"))

	_, err = repo.GetOrCreate(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, []string{"12345"}, listOf(t, mr, "userList"), "no duplicate list entries")
}

func TestGetOrCreate_UnarchivesReturningUser(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "7")
	require.NoError(t, err)
	require.NoError(t, repo.Archive(ctx, "7"))
	assert.Empty(t, listOf(t, mr, "userList"))
	assert.Equal(t, []string{"7"}, listOf(t, mr, "archiveUserList"))

	_, err = repo.GetOrCreate(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, listOf(t, mr, "userList"))
	assert.Empty(t, listOf(t, mr, "archiveUserList"))
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSaveAllAndList(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		_, err := repo.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}
	_, err := mr.Lpush("userList", "missing")
	require.NoError(t, err)

	u1 := user.New("1")
	u1.History = []user.HistoryEntry{{Type: content.KindMessage, ID: "m1", Timestamp: 5}}
	u2 := user.New("2")
	u2.StopNotifications = true
	require.NoError(t, repo.SaveAll(ctx, []user.User{u1, u2}))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	byID := map[string]user.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	assert.Equal(t, "m1", byID["1"].History[0].ID)
	assert.True(t, byID["2"].StopNotifications)
}

func TestDelete(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.GetOrCreate(ctx, "9")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "9"))
	assert.False(t, mr.Exists("user:9"))
	assert.Empty(t, listOf(t, mr, "userList"))
}

func TestIssuedStudyIDs(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	ids, err := repo.IssuedStudyIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.AddIssuedStudyIDs(ctx, 10, 11))
	require.NoError(t, repo.AddIssuedStudyIDs(ctx, 11, 12))
	ids, err = repo.IssuedStudyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, ids)
}

func TestLock(t *testing.T) {
	repo, _ := newTestRepo(t)
	called := false
	err := repo.Lock(context.Background(), "1", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestSplitLegacy(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("users", `[{"id":"1","history":[]},{"id":"2","stopNotifications":true},{"history":[]}]`))
	_, err := mr.Lpush("userList", "1")
	require.NoError(t, err)

	n, err := repo.SplitLegacy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u2, err := repo.Get(ctx, "2")
	require.NoError(t, err)
	assert.True(t, u2.StopNotifications)
	assert.ElementsMatch(t, []string{"1", "2"}, listOf(t, mr, "userList"))
	assert.True(t, mr.Exists("users"), "legacy blob is kept")
}

func TestSplitLegacy_NoBlob(t *testing.T) {
	repo, _ := newTestRepo(t)

	n, err := repo.SplitLegacy(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
