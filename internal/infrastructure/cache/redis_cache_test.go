package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client), mr
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestRedisCache_JSON(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type doc struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.SetJSON(ctx, "k", doc{Name: "x"}))
	got, err := GetJSON[doc](ctx, c, "k")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
}

func TestRedisCache_ListPushFrontDedupes(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ListPushFront(ctx, "l", "a"))
	require.NoError(t, c.ListPushFront(ctx, "l", "b"))
	require.NoError(t, c.ListPushFront(ctx, "l", "a"))

	vals, err := c.List(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, vals)

	ok, err := c.ListContains(ctx, "l", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.ListRemove(ctx, "l", "b"))
	ok, err = c.ListContains(ctx, "l", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("message:1", "a"))
	require.NoError(t, mr.Set("message:2", "b"))
	require.NoError(t, mr.Set("user:1", "c"))

	n, err := c.DeletePattern(ctx, "message:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("user:1"))
	assert.False(t, mr.Exists("message:1"))
}

func TestWithLock_Serialises(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(ctx, c, "lock:user:1", time.Second, func() error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
