package contentrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
	"github.com/janhq/dialogue-bot/internal/infrastructure/ttlcache"
)

const (
	keyConversations    = "conversations"
	keySeries           = "series"
	keyBlocks           = "blocks"
	keyMedia            = "media"
	keyCollectionList   = "collectionList"
	keyCollectionPrefix = "collection:"
	keyMessageList      = "messageList"
	keyMessagePrefix    = "message:"
	keyLegacyMessages   = "messages"
	keyLegacyMsgPrefix  = "msg:"

	keyCrisisTerms = "crisisSearchTermList"
	keyCrisisWords = "crisisSearchWordList"
	keyStopTerms   = "stopSearchTermList"
	keyStopWords   = "stopSearchWordList"

	cacheKeyGraph = "graph"
	cacheKeyTerms = "terms"
)

// Repository reads the authored content graph from Redis and keeps a short
// lived in-process copy of it.
type Repository struct {
	cache    *cache.RedisCache
	graphs   *ttlcache.Cache[*content.Graph]
	terms    *ttlcache.Cache[dialogue.Terms]
	defaults dialogue.Terms
}

func NewRepository(c *cache.RedisCache, ttl time.Duration, defaults dialogue.Terms) (*Repository, error) {
	graphs, err := ttlcache.New[*content.Graph](1, ttl)
	if err != nil {
		return nil, fmt.Errorf("content cache: %w", err)
	}
	terms, err := ttlcache.New[dialogue.Terms](1, ttl)
	if err != nil {
		return nil, fmt.Errorf("terms cache: %w", err)
	}
	return &Repository{cache: c, graphs: graphs, terms: terms, defaults: defaults}, nil
}

// Graph returns the current content graph.
func (r *Repository) Graph(ctx context.Context) (*content.Graph, error) {
	return r.graphs.GetOrLoad(cacheKeyGraph, func() (*content.Graph, error) {
		snap, err := r.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return content.NewGraph(snap), nil
	})
}

// Params returns the stop and crisis lists stored alongside the content,
// merged with the configured defaults.
func (r *Repository) Params(ctx context.Context) (dialogue.Terms, error) {
	return r.terms.GetOrLoad(cacheKeyTerms, func() (dialogue.Terms, error) {
		var (
			stored dialogue.Terms
			err    error
		)
		if stored.CrisisTerms, err = r.cache.List(ctx, keyCrisisTerms); err != nil {
			return dialogue.Terms{}, err
		}
		if stored.CrisisWords, err = r.cache.List(ctx, keyCrisisWords); err != nil {
			return dialogue.Terms{}, err
		}
		if stored.StopTerms, err = r.cache.List(ctx, keyStopTerms); err != nil {
			return dialogue.Terms{}, err
		}
		if stored.StopWords, err = r.cache.List(ctx, keyStopWords); err != nil {
			return dialogue.Terms{}, err
		}
		return r.defaults.Merge(stored), nil
	})
}

// Invalidate drops the in-process copies so the next read hits Redis.
func (r *Repository) Invalidate() {
	r.graphs.Purge()
	r.terms.Purge()
}

// Snapshot reads every content collection from Redis.
func (r *Repository) Snapshot(ctx context.Context) (content.Snapshot, error) {
	var (
		snap content.Snapshot
		err  error
	)
	if snap.Conversations, err = r.nodeArray(ctx, keyConversations); err != nil {
		return snap, err
	}
	if snap.Series, err = r.nodeArray(ctx, keySeries); err != nil {
		return snap, err
	}
	if snap.Blocks, err = r.nodeArray(ctx, keyBlocks); err != nil {
		return snap, err
	}
	if snap.Collections, err = r.nodeSet(ctx, keyCollectionList, keyCollectionPrefix); err != nil {
		return snap, err
	}
	if snap.Messages, err = r.nodeSet(ctx, keyMessageList, keyMessagePrefix); err != nil {
		return snap, err
	}
	media, err := cache.GetJSON[[]content.Attachment](ctx, r.cache, keyMedia)
	switch {
	case errors.Is(err, cache.ErrMiss):
	case err != nil:
		return snap, fmt.Errorf("load media: %w", err)
	default:
		snap.Media = *media
	}
	return snap, nil
}

// SaveSnapshot writes a full content snapshot, replacing what is stored.
func (r *Repository) SaveSnapshot(ctx context.Context, snap content.Snapshot) error {
	if _, err := r.DeleteMessageKeys(ctx); err != nil {
		return err
	}
	if _, err := r.cache.DeletePattern(ctx, keyCollectionPrefix+"*"); err != nil {
		return err
	}

	pipe := r.cache.Client().TxPipeline()
	for key, nodes := range map[string][]content.Node{
		keyConversations: snap.Conversations,
		keySeries:        snap.Series,
		keyBlocks:        snap.Blocks,
	} {
		raw, err := json.Marshal(nonNil(nodes))
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		pipe.Set(ctx, key, raw, 0)
	}
	media, err := json.Marshal(snap.Media)
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	pipe.Set(ctx, keyMedia, media, 0)

	pipe.Del(ctx, keyCollectionList)
	for _, n := range snap.Collections {
		raw, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal collection %s: %w", n.ID, err)
		}
		pipe.Set(ctx, keyCollectionPrefix+n.ID, raw, 0)
		pipe.RPush(ctx, keyCollectionList, n.ID)
	}
	for _, n := range snap.Messages {
		raw, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal message %s: %w", n.ID, err)
		}
		pipe.Set(ctx, keyMessagePrefix+n.ID, raw, 0)
		pipe.RPush(ctx, keyMessageList, n.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	r.Invalidate()
	return nil
}

// DedupeMessages removes duplicate ids from the message list, drops the
// legacy msg:<id> keys and de-duplicates the legacy messages blob. It
// returns the number of duplicate list entries removed.
func (r *Repository) DedupeMessages(ctx context.Context) (int, error) {
	ids, err := r.cache.List(ctx, keyMessageList)
	if err != nil {
		return 0, err
	}
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	pipe := r.cache.Client().TxPipeline()
	pipe.Del(ctx, keyMessageList)
	if len(unique) > 0 {
		vals := make([]any, len(unique))
		for i, id := range unique {
			vals[i] = id
		}
		pipe.RPush(ctx, keyMessageList, vals...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rewrite message list: %w", err)
	}

	if _, err := r.cache.DeletePattern(ctx, keyLegacyMsgPrefix+"*"); err != nil {
		return 0, err
	}

	legacy, err := cache.GetJSON[[]content.Node](ctx, r.cache, keyLegacyMessages)
	switch {
	case errors.Is(err, cache.ErrMiss):
	case err != nil:
		return 0, fmt.Errorf("load legacy messages: %w", err)
	default:
		if err := r.cache.SetJSON(ctx, keyLegacyMessages, dedupeNodes(*legacy)); err != nil {
			return 0, err
		}
	}

	r.Invalidate()
	return len(ids) - len(unique), nil
}

// DeleteMessageKeys removes every message:<id> key and the message list.
func (r *Repository) DeleteMessageKeys(ctx context.Context) (int, error) {
	n, err := r.cache.DeletePattern(ctx, keyMessagePrefix+"*")
	if err != nil {
		return n, err
	}
	if err := r.cache.Delete(ctx, keyMessageList); err != nil {
		return n, fmt.Errorf("delete message list: %w", err)
	}
	r.Invalidate()
	return n, nil
}

func (r *Repository) nodeArray(ctx context.Context, key string) ([]content.Node, error) {
	nodes, err := cache.GetJSON[[]content.Node](ctx, r.cache, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return *nodes, nil
}

// nodeSet reads the ids on listKey and loads prefix+id for each, preserving
// list order. Missing or corrupt records are skipped.
func (r *Repository) nodeSet(ctx context.Context, listKey, prefix string) ([]content.Node, error) {
	ids, err := r.cache.List(ctx, listKey)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefix + id
	}
	vals, err := r.cache.Client().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", listKey, err)
	}
	nodes := make([]content.Node, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			log.Ctx(ctx).Warn().Str("key", keys[i]).Msg("listed content node has no record")
			continue
		}
		var n content.Node
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", keys[i]).Msg("skipping corrupt content node")
			continue
		}
		if n.ID == "" {
			n.ID = ids[i]
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func dedupeNodes(nodes []content.Node) []content.Node {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]content.Node, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

func nonNil(nodes []content.Node) []content.Node {
	if nodes == nil {
		return []content.Node{}
	}
	return nodes
}
