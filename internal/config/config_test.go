package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STUDY_SCHEDULE_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, 500, cfg.MaxUpdateActions)
	assert.Equal(t, 30*24*time.Hour, cfg.ArchiveAfter)
	assert.Equal(t, []string{"stop", "unsubscribe"}, cfg.StopTerms)
	assert.Empty(t, cfg.StudySchedule())
	assert.Equal(t, "UTC", cfg.Location().String())

	s := cfg.DialogueSettings()
	assert.Equal(t, cfg.IntroID, s.IntroConversationID)
	assert.Equal(t, int64(-1), s.StudyIDNoOp)
	assert.Equal(t, 20.0, cfg.SendRateLimit)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{"bad cut-off hour", map[string]string{"CUT_OFF_HOUR_FOR_NEW_MESSAGES": "24"}},
		{"empty study range", map[string]string{"STUDY_ID_MIN": "10", "STUDY_ID_MAX": "10"}},
		{"unparsable duration", map[string]string{"TYPING_TIME": "soon"}},
		{"bad cron", map[string]string{"UPDATE_PUSH_CRON": "every five minutes"}},
		{"negative send rate", map[string]string{"SEND_RATE_LIMIT": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STUDY_SCHEDULE_FILE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadStudySchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.yaml")
	doc := "messages:\n  - delayInMinutes: 0\n    text: welcome\n  - delayInMinutes: 1440\n    text: \"Your code is XXXXX\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	schedule, err := LoadStudySchedule(path)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, 1440, schedule[1].DelayInMinutes)
	assert.Equal(t, "Your code is XXXXX", schedule[1].Text)

	require.NoError(t, os.WriteFile(path, []byte("messages:\n  - delayInMinutes: -5\n"), 0o600))
	_, err = LoadStudySchedule(path)
	assert.Error(t, err)
}
