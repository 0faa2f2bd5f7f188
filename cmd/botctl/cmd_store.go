package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janhq/dialogue-bot/internal/config"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
	"github.com/janhq/dialogue-bot/internal/infrastructure/repository/contentrepo"
	"github.com/janhq/dialogue-bot/internal/infrastructure/repository/userrepo"
)

var splitUsersCmd = &cobra.Command{
	Use:   "split-users",
	Short: "Split the legacy users blob into per-user keys",
	Long:  `Read the legacy "users" JSON blob, write one user:<id> key per record and register every id on userList.`,
	Args:  cobra.NoArgs,
	RunE:  withStores(runSplitUsers),
}

var dedupeMessagesCmd = &cobra.Command{
	Use:   "dedupe-messages",
	Short: "De-duplicate message ids and drop per-message keys",
	Long:  `De-duplicate messageList, delete the message:<id> and legacy msg:<id> keys, and de-duplicate the legacy messages blob.`,
	Args:  cobra.NoArgs,
	RunE:  withStores(runDedupeMessages),
}

var deleteMessageKeysCmd = &cobra.Command{
	Use:   "delete-message-keys",
	Short: "Delete every message:<id> key and messageList",
	Args:  cobra.NoArgs,
	RunE:  withStores(runDeleteMessageKeys),
}

var deleteUserCmd = &cobra.Command{
	Use:   "delete-user <id>",
	Short: "Remove a user record and its list entries",
	Args:  cobra.ExactArgs(1),
	RunE:  withStores(runDeleteUser),
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Move a user back to the active list",
	Args:  cobra.ExactArgs(1),
	RunE:  withStores(runUnarchive),
}

func runSplitUsers(ctx context.Context, cmd *cobra.Command, s *stores, _ []string) error {
	n, err := s.users.SplitLegacy(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "split %d users\n", n)
	return nil
}

func runDedupeMessages(ctx context.Context, cmd *cobra.Command, s *stores, _ []string) error {
	n, err := s.content.DedupeMessages(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d duplicate messages\n", n)
	return nil
}

func runDeleteMessageKeys(ctx context.Context, cmd *cobra.Command, s *stores, _ []string) error {
	n, err := s.content.DeleteMessageKeys(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d keys\n", n)
	return nil
}

func runDeleteUser(ctx context.Context, cmd *cobra.Command, s *stores, args []string) error {
	if err := s.users.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
	return nil
}

func runUnarchive(ctx context.Context, cmd *cobra.Command, s *stores, args []string) error {
	if _, err := s.users.Get(ctx, args[0]); err != nil {
		return err
	}
	if err := s.users.Unarchive(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "unarchived user %s\n", args[0])
	return nil
}

type stores struct {
	users   *userrepo.Repository
	content *contentrepo.Repository
}

type storeFunc func(ctx context.Context, cmd *cobra.Command, s *stores, args []string) error

// withStores connects to Redis from the environment and hands the
// repositories to fn.
func withStores(fn storeFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer c.Close()
		return runWithCache(cmd, args, cfg, c, fn)
	}
}

func runWithCache(cmd *cobra.Command, args []string, cfg *config.Config, c *cache.RedisCache, fn storeFunc) error {
	content, err := contentrepo.NewRepository(c, cfg.ContentCacheTTL, cfg.Terms())
	if err != nil {
		return err
	}
	s := &stores{
		users:   userrepo.NewRepository(c, cfg.UserLockTTL),
		content: content,
	}
	return fn(cmd.Context(), cmd, s, args)
}
