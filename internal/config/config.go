package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
)

// Config holds the environment driven configuration for the dialogue bot.
type Config struct {
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"dialogue-bot"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"5000" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" validate:"required"`

	GraphRootURL    string `env:"FB_GRAPH_ROOT_URL" envDefault:"https://graph.facebook.com/v2.6"`
	PageAccessToken string `env:"FB_PAGE_ACCESS_TOKEN"`
	VerifyToken     string `env:"FB_VERIFY_TOKEN"`
	AppSecret       string `env:"FB_APP_SECRET"`

	TypingTime        time.Duration `env:"TYPING_TIME" envDefault:"2s"`
	MaxUpdateActions  int           `env:"MAX_UPDATE_ACTIONS_ALLOWED" envDefault:"500"`
	CutOffHour        int           `env:"CUT_OFF_HOUR_FOR_NEW_MESSAGES" envDefault:"5" validate:"min=0,max=23"`
	CutOffMinute      int           `env:"CUT_OFF_MINUTE_FOR_NEW_MESSAGES" envDefault:"0" validate:"min=0,max=59"`
	Timezone          string        `env:"TIMEZONE" envDefault:"UTC"`
	StopTerms         []string      `env:"STOP_TERMS" envSeparator:"," envDefault:"stop,unsubscribe"`
	StopWords         []string      `env:"STOP_WORDS" envSeparator:","`
	CrisisTerms       []string      `env:"CRISIS_TERMS" envSeparator:","`
	CrisisWords       []string      `env:"CRISIS_WORDS" envSeparator:","`
	ResumePhrase      string        `env:"RESUME_PHRASE" envDefault:"resume"`
	StopPhraseReply   string        `env:"STOP_PHRASE_REPLY" envDefault:"You won't get any more messages. Send ${RESUME_MESSAGE} any time to start again."`
	IntroID           string        `env:"INTRO_CONVERSATION_ID" envDefault:"intro-conversation" validate:"required"`
	EndOfConvID       string        `env:"END_OF_CONVERSATION_ID" envDefault:"end-of-conversation"`
	StopMessageID     string        `env:"STOP_MESSAGE_ID"`
	ResumeMessageID   string        `env:"RESUME_MESSAGE_ID"`
	RetryContinueID   string        `env:"QUICK_REPLY_RETRY_ID_CONTINUE"`
	RetryStopID       string        `env:"QUICK_REPLY_RETRY_ID_STOP"`
	ResetUserConfirm  string        `env:"RESET_USER_CONFIRM_ID"`
	StudyIDNoOp       int64         `env:"STUDY_ID_NO_OP" envDefault:"-1"`
	StudyIDMin        int64         `env:"STUDY_ID_MIN" envDefault:"10000"`
	StudyIDMax        int64         `env:"STUDY_ID_MAX" envDefault:"99999" validate:"gtfield=StudyIDMin"`
	StudyScheduleFile string        `env:"STUDY_SCHEDULE_FILE" envDefault:"study.yaml"`

	UpdatePushCron  string        `env:"UPDATE_PUSH_CRON" envDefault:"*/5 * * * *"`
	StudyPushCron   string        `env:"STUDY_PUSH_CRON" envDefault:"*/10 * * * *"`
	ArchiveCron     string        `env:"ARCHIVE_CRON" envDefault:"0 3 * * *"`
	ArchiveAfter    time.Duration `env:"ARCHIVE_AFTER" envDefault:"720h"`
	ContentCacheTTL time.Duration `env:"CONTENT_CACHE_TTL" envDefault:"1m"`
	ProfileCacheSz  int           `env:"PROFILE_CACHE_SIZE" envDefault:"1024" validate:"gt=0"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"1h"`
	UserLockTTL     time.Duration `env:"USER_LOCK_TTL" envDefault:"30s"`
	SendRateLimit   float64       `env:"SEND_RATE_LIMIT" envDefault:"20" validate:"gte=0"`
	EventsAPIURL    string        `env:"EVENTS_API_URL"`

	location      *time.Location
	studySchedule []dialogue.StudyMessage
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	for name, spec := range map[string]string{
		"UPDATE_PUSH_CRON": cfg.UpdatePushCron,
		"STUDY_PUSH_CRON":  cfg.StudyPushCron,
		"ARCHIVE_CRON":     cfg.ArchiveCron,
	} {
		if spec != "" && !gronx.IsValid(spec) {
			return nil, fmt.Errorf("%s %q is not a valid cron expression", name, spec)
		}
	}
	if cfg.MaxUpdateActions <= 0 {
		cfg.MaxUpdateActions = 500
	}
	if cfg.TypingTime < 0 {
		cfg.TypingTime = 0
	}

	schedule, err := LoadStudySchedule(cfg.StudyScheduleFile)
	if err != nil {
		return nil, err
	}
	cfg.studySchedule = schedule

	return cfg, nil
}

// LoadStudySchedule reads the ordered study message schedule. A missing
// file yields an empty schedule.
func LoadStudySchedule(path string) ([]dialogue.StudyMessage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read study schedule %s: %w", path, err)
	}
	var doc struct {
		Messages []dialogue.StudyMessage `yaml:"messages"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse study schedule %s: %w", path, err)
	}
	for i, m := range doc.Messages {
		if m.DelayInMinutes < 0 {
			return nil, fmt.Errorf("study schedule %s: message %d has a negative delay", path, i)
		}
	}
	return doc.Messages, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Location is the timezone used for the daily cut-off.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// StudySchedule is the study message schedule loaded from disk.
func (c *Config) StudySchedule() []dialogue.StudyMessage {
	return c.studySchedule
}

// DialogueSettings maps the configuration onto the engine settings.
func (c *Config) DialogueSettings() dialogue.Settings {
	return dialogue.Settings{
		IntroConversationID: c.IntroID,
		EndOfConversationID: c.EndOfConvID,
		StopMessageID:       c.StopMessageID,
		ResumeMessageID:     c.ResumeMessageID,
		RetryContinueID:     c.RetryContinueID,
		RetryStopID:         c.RetryStopID,
		ResetUserConfirmID:  c.ResetUserConfirm,
		ResumePhrase:        c.ResumePhrase,
		StopReply:           c.StopPhraseReply,
		CutOffHour:          c.CutOffHour,
		CutOffMinute:        c.CutOffMinute,
		Location:            c.Location(),
		StudyIDNoOp:         c.StudyIDNoOp,
		StudyIDMin:          c.StudyIDMin,
		StudyIDMax:          c.StudyIDMax,
		StudyMessages:       c.studySchedule,
	}
}

// Terms returns the configured stop and crisis lists.
func (c *Config) Terms() dialogue.Terms {
	return dialogue.Terms{
		StopTerms:   c.StopTerms,
		StopWords:   c.StopWords,
		CrisisTerms: c.CrisisTerms,
		CrisisWords: c.CrisisWords,
	}
}
