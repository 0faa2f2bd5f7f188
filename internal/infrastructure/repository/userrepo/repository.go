package userrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/janhq/dialogue-bot/internal/domain/user"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
)

const (
	keyUserPrefix   = "user:"
	keyUserList     = "userList"
	keyArchiveList  = "archiveUserList"
	keyStudyIDs     = "study"
	keyLegacyUsers  = "users"
	lockUserPrefix  = "lock:user:"
	lockStudyIDs    = "lock:study"
	batchGetChunk   = 500
	defaultLockTime = 30 * time.Second
)

// ErrUserNotFound is returned when no record exists for an id.
var ErrUserNotFound = errors.New("user not found")

// Repository stores user records in Redis.
type Repository struct {
	cache   *cache.RedisCache
	lockTTL time.Duration
}

func NewRepository(c *cache.RedisCache, lockTTL time.Duration) *Repository {
	if lockTTL <= 0 {
		lockTTL = defaultLockTime
	}
	return &Repository{cache: c, lockTTL: lockTTL}
}

// UserKey is the storage key of a user record.
func UserKey(id string) string {
	return keyUserPrefix + id
}

func (r *Repository) Get(ctx context.Context, id string) (user.User, error) {
	u, err := cache.GetJSON[user.User](ctx, r.cache, UserKey(id))
	if errors.Is(err, cache.ErrMiss) {
		return user.User{}, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return normalize(*u, id), nil
}

// GetOrCreate loads a user, creating a default record for unknown ids. An
// existing id missing from the active list is moved back onto it.
func (r *Repository) GetOrCreate(ctx context.Context, id string) (user.User, error) {
	u, err := r.Get(ctx, id)
	switch {
	case errors.Is(err, ErrUserNotFound):
		u = user.New(id)
		if err := r.Save(ctx, u); err != nil {
			return user.User{}, err
		}
		if err := r.cache.ListPushFront(ctx, keyUserList, id); err != nil {
			return user.User{}, fmt.Errorf("register user %s: %w", id, err)
		}
		log.Ctx(ctx).Info().Str("user_id", id).Msg("created user")
		return u, nil
	case err != nil:
		return user.User{}, err
	}

	active, err := r.cache.ListContains(ctx, keyUserList, id)
	if err != nil {
		return user.User{}, err
	}
	if !active {
		if err := r.Unarchive(ctx, id); err != nil {
			return user.User{}, err
		}
		log.Ctx(ctx).Info().Str("user_id", id).Msg("unarchived returning user")
	}
	return u, nil
}

func (r *Repository) Save(ctx context.Context, u user.User) error {
	if err := r.cache.SetJSON(ctx, UserKey(u.ID), u); err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	return nil
}

// SaveAll writes every record in a single pipelined batch.
func (r *Repository) SaveAll(ctx context.Context, users []user.User) error {
	if len(users) == 0 {
		return nil
	}
	pipe := r.cache.Client().Pipeline()
	for _, u := range users {
		raw, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user %s: %w", u.ID, err)
		}
		pipe.Set(ctx, UserKey(u.ID), raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save %d users: %w", len(users), err)
	}
	return nil
}

// IDs returns the ids on the active list.
func (r *Repository) IDs(ctx context.Context) ([]string, error) {
	return r.cache.List(ctx, keyUserList)
}

// ArchivedIDs returns the ids on the archive list.
func (r *Repository) ArchivedIDs(ctx context.Context) ([]string, error) {
	return r.cache.List(ctx, keyArchiveList)
}

// List loads every active user. Ids whose record is missing or corrupt are
// skipped with a warning.
func (r *Repository) List(ctx context.Context) ([]user.User, error) {
	ids, err := r.IDs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	users := make([]user.User, 0, len(ids))
	for start := 0; start < len(ids); start += batchGetChunk {
		end := min(start+batchGetChunk, len(ids))
		chunk := ids[start:end]
		keys := make([]string, len(chunk))
		for i, id := range chunk {
			keys[i] = UserKey(id)
		}
		vals, err := r.cache.Client().MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
		for i, v := range vals {
			id := chunk[i]
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			s, ok := v.(string)
			if !ok {
				log.Ctx(ctx).Warn().Str("user_id", id).Msg("listed user has no record")
				continue
			}
			var u user.User
			if err := json.Unmarshal([]byte(s), &u); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("user_id", id).Msg("skipping corrupt user record")
				continue
			}
			users = append(users, normalize(u, id))
		}
	}
	return users, nil
}

// Archive moves id from the active list to the archive list. The record is
// kept.
func (r *Repository) Archive(ctx context.Context, id string) error {
	pipe := r.cache.Client().TxPipeline()
	pipe.LRem(ctx, keyUserList, 0, id)
	pipe.LRem(ctx, keyArchiveList, 0, id)
	pipe.LPush(ctx, keyArchiveList, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive user %s: %w", id, err)
	}
	return nil
}

// Unarchive moves id back onto the active list.
func (r *Repository) Unarchive(ctx context.Context, id string) error {
	pipe := r.cache.Client().TxPipeline()
	pipe.LRem(ctx, keyArchiveList, 0, id)
	pipe.LRem(ctx, keyUserList, 0, id)
	pipe.LPush(ctx, keyUserList, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("unarchive user %s: %w", id, err)
	}
	return nil
}

// Delete removes the record and every list entry for id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	pipe := r.cache.Client().TxPipeline()
	pipe.Del(ctx, UserKey(id))
	pipe.LRem(ctx, keyUserList, 0, id)
	pipe.LRem(ctx, keyArchiveList, 0, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// IssuedStudyIDs returns every study id handed out so far.
func (r *Repository) IssuedStudyIDs(ctx context.Context) ([]int64, error) {
	ids, err := cache.GetJSON[[]int64](ctx, r.cache, keyStudyIDs)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load study ids: %w", err)
	}
	return *ids, nil
}

func (r *Repository) SetIssuedStudyIDs(ctx context.Context, ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	if err := r.cache.SetJSON(ctx, keyStudyIDs, ids); err != nil {
		return fmt.Errorf("save study ids: %w", err)
	}
	return nil
}

// AddIssuedStudyIDs appends ids to the issued set under a global lock.
func (r *Repository) AddIssuedStudyIDs(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return cache.WithLock(ctx, r.cache, lockStudyIDs, r.lockTTL, func() error {
		current, err := r.IssuedStudyIDs(ctx)
		if err != nil {
			return err
		}
		have := make(map[int64]struct{}, len(current))
		for _, id := range current {
			have[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := have[id]; !ok {
				current = append(current, id)
				have[id] = struct{}{}
			}
		}
		return r.SetIssuedStudyIDs(ctx, current)
	})
}

// SplitLegacy copies every record of the legacy single-blob "users" key
// into its own key and registers missing ids on the active list. The blob
// is left in place. It returns the number of records written.
func (r *Repository) SplitLegacy(ctx context.Context) (int, error) {
	blob, err := cache.GetJSON[[]user.User](ctx, r.cache, keyLegacyUsers)
	if errors.Is(err, cache.ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load legacy users: %w", err)
	}

	users := make([]user.User, 0, len(*blob))
	for _, u := range *blob {
		if u.ID == "" {
			continue
		}
		users = append(users, normalize(u, u.ID))
	}
	if err := r.SaveAll(ctx, users); err != nil {
		return 0, err
	}
	for _, u := range users {
		active, err := r.cache.ListContains(ctx, keyUserList, u.ID)
		if err != nil {
			return 0, err
		}
		if !active {
			if err := r.cache.ListPushFront(ctx, keyUserList, u.ID); err != nil {
				return 0, fmt.Errorf("register user %s: %w", u.ID, err)
			}
		}
	}
	return len(users), nil
}

// Lock runs fn while holding the per-user lock for id.
func (r *Repository) Lock(ctx context.Context, id string, fn func() error) error {
	return cache.WithLock(ctx, r.cache, lockUserPrefix+id, r.lockTTL, fn)
}

func normalize(u user.User, id string) user.User {
	if u.ID == "" {
		u.ID = id
	}
	if u.History == nil {
		u.History = []user.HistoryEntry{}
	}
	return u
}
