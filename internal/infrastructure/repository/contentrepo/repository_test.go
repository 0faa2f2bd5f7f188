package contentrepo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
)

func newTestRepo(t *testing.T, ttl time.Duration) (*Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo, err := NewRepository(cache.NewFromClient(client), ttl, dialogue.Terms{StopTerms: []string{"stop"}})
	require.NoError(t, err)
	return repo, mr
}

func sampleSnapshot() content.Snapshot {
	return content.Snapshot{
		Conversations: []content.Node{{ID: "c1", Type: content.KindConversation, IsLive: true}},
		Collections:   []content.Node{{ID: "col1", Type: content.KindCollection, Parent: &content.Ref{ID: "c1", Type: content.KindConversation}}},
		Messages: []content.Node{
			{ID: "m1", Type: content.KindMessage, Start: true, Parent: &content.Ref{ID: "c1", Type: content.KindConversation}, Text: "hi"},
			{ID: "m2", Type: content.KindMessage, Text: "there"},
		},
		Media: []content.Attachment{{Type: "image", URL: "https://example.com/a.png"}},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.SaveSnapshot(ctx, sampleSnapshot()))

	g, err := repo.Graph(ctx)
	require.NoError(t, err)

	m1, ok := g.Message("m1")
	require.True(t, ok)
	assert.Equal(t, "hi", m1.Text)
	assert.Len(t, g.All(content.KindMessage), 2)
	assert.Len(t, g.All(content.KindCollection), 1)
	assert.Len(t, g.Media(), 1)
	assert.Len(t, g.StartNodes("c1", content.KindMessage), 1)
}

func TestGraph_IsCachedUntilInvalidated(t *testing.T) {
	repo, mr := newTestRepo(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, repo.SaveSnapshot(ctx, sampleSnapshot()))

	first, err := repo.Graph(ctx)
	require.NoError(t, err)

	mr.Del("message:m2")
	cached, err := repo.Graph(ctx)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	repo.Invalidate()
	fresh, err := repo.Graph(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh.All(content.KindMessage), 1, "missing records are skipped")
}

func TestParams_MergesStoredLists(t *testing.T) {
	repo, mr := newTestRepo(t, time.Minute)
	_, err := mr.Push("stopSearchWordList", "quit")
	require.NoError(t, err)
	_, err = mr.Push("crisisSearchTermList", "i need help")
	require.NoError(t, err)

	terms, err := repo.Params(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"stop"}, terms.StopTerms)
	assert.Equal(t, []string{"quit"}, terms.StopWords)
	assert.Equal(t, []string{"i need help"}, terms.CrisisTerms)
	assert.Empty(t, terms.CrisisWords)
}

func TestDedupeMessages(t *testing.T) {
	repo, mr := newTestRepo(t, time.Minute)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "a", "c", "b"} {
		_, err := mr.Push("messageList", id)
		require.NoError(t, err)
	}
	require.NoError(t, mr.Set("msg:a", "{}"))
	require.NoError(t, mr.Set("messages", `[{"id":"a"},{"id":"a"},{"id":"b"}]`))

	removed, err := repo.DedupeMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ids, err := mr.List("messageList")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.False(t, mr.Exists("msg:a"))

	legacy, err := mr.Get("messages")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","type":""},{"id":"b","type":""}]`, legacy)
}

func TestDeleteMessageKeys(t *testing.T) {
	repo, mr := newTestRepo(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.SaveSnapshot(ctx, sampleSnapshot()))

	n, err := repo.DeleteMessageKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("messageList"))
	assert.True(t, mr.Exists("collection:col1"))
}
