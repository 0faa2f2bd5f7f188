package crontab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RejectsBadSpec(t *testing.T) {
	c := NewCrontab(zerolog.Nop(), Job{Name: "bad", Spec: "not a cron", Run: func(context.Context) error { return nil }})
	err := c.Run(context.Background())
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := NewCrontab(zerolog.Nop(),
		Job{Name: "updates", Spec: "* * * * *", Run: func(context.Context) error { return nil }},
		Job{Name: "disabled", Spec: ""},
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestExecute(t *testing.T) {
	c := NewCrontab(zerolog.Nop())
	ran := 0
	c.execute(context.Background(), Job{Name: "ok", Run: func(ctx context.Context) error {
		ran++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	}})
	c.execute(context.Background(), Job{Name: "fails", Run: func(context.Context) error {
		ran++
		return errors.New("boom")
	}})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	c.execute(cancelled, Job{Name: "skipped", Run: func(context.Context) error {
		ran++
		return nil
	}})
	assert.Equal(t, 2, ran)
}

func TestNextRun(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		spec string
		want time.Time
	}{
		{"0 3 * * *", time.Date(2024, 1, 3, 3, 0, 0, 0, time.UTC)},
		{"*/5 * * * *", time.Date(2024, 1, 2, 12, 5, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			next, err := NextRun(tt.spec, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(next), "got %s", next)
		})
	}
}
