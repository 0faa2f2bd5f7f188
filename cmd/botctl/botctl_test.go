package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/dialogue-bot/internal/config"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
)

func runStoreCommand(t *testing.T, mr *miniredis.Miniredis, cmd *cobra.Command, fn storeFunc, args ...string) string {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	cfg := &config.Config{ContentCacheTTL: time.Minute, UserLockTTL: time.Second}

	err := runWithCache(cmd, args, cfg, cache.NewFromClient(client), fn)
	require.NoError(t, err)
	return out.String()
}

func TestDeleteUserCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("user:42", `{"id":"42","history":[]}`))
	_, err := mr.Lpush("userList", "42")
	require.NoError(t, err)

	out := runStoreCommand(t, mr, deleteUserCmd, runDeleteUser, "42")

	assert.Contains(t, out, "deleted user 42")
	assert.False(t, mr.Exists("user:42"))
}

func TestUnarchiveCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("user:42", `{"id":"42","history":[]}`))
	_, err := mr.Lpush("archiveUserList", "42")
	require.NoError(t, err)

	runStoreCommand(t, mr, unarchiveCmd, runUnarchive, "42")

	active, err := mr.List("userList")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, active)
}

func TestSplitUsersCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("users", `[{"id":"1"},{"id":"2"}]`))

	out := runStoreCommand(t, mr, splitUsersCmd, runSplitUsers)

	assert.Contains(t, out, "split 2 users")
	assert.True(t, mr.Exists("user:1"))
	assert.True(t, mr.Exists("user:2"))
}

func TestSchemaCommand(t *testing.T) {
	var out bytes.Buffer
	schemaCmd.SetOut(&out)
	require.NoError(t, runSchema(schemaCmd, nil))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "Dialogue content", doc["title"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "messages")
	assert.Contains(t, props, "conversations")
}
