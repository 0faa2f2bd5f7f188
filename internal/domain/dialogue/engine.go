// Package dialogue is the conversation state machine. It is pure: given a
// content graph, a user record and an event it computes the next action,
// the outbound messages and an explicit user patch. All effects (storage,
// delivery) live in the bot service.
package dialogue

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/dialogue-bot/internal/domain/content"
)

// maxWalkSteps bounds a single traversal so an authored cycle without an
// input node cannot spin forever.
const maxWalkSteps = 200

var (
	// ErrNoLiveConversations is returned when no track can be assigned.
	ErrNoLiveConversations = errors.New("no live conversations to assign")
	// ErrStudyIDsExhausted is returned when every study id in range is taken.
	ErrStudyIDsExhausted = errors.New("study id range exhausted")
)

// Action points at the content node that happens next.
type Action = content.Ref

// StudyMessage is one entry of the longitudinal study schedule.
type StudyMessage struct {
	DelayInMinutes int    `yaml:"delayInMinutes" json:"delayInMinutes"`
	Text           string `yaml:"text" json:"text"`
}

// Settings holds the reserved ids and tunables the engine depends on.
type Settings struct {
	IntroConversationID string
	EndOfConversationID string
	StopMessageID       string
	ResumeMessageID     string
	RetryContinueID     string
	RetryStopID         string
	ResetUserConfirmID  string

	// ResumePhrase and StopReply are used when the graph carries no
	// resume/stop message nodes.
	ResumePhrase string
	StopReply    string

	CutOffHour   int
	CutOffMinute int
	Location     *time.Location

	StudyIDNoOp   int64
	StudyIDMin    int64
	StudyIDMax    int64
	StudyMessages []StudyMessage
}

// Engine resolves turns. It is safe for concurrent use.
type Engine struct {
	settings Settings
	now      func() time.Time
	log      zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand replaces the random source used for track and series selection
// and study id generation.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rnd = r }
}

// NewEngine builds an engine.
func NewEngine(settings Settings, log zerolog.Logger, opts ...Option) *Engine {
	if settings.Location == nil {
		settings.Location = time.Local
	}
	e := &Engine{
		settings: settings,
		now:      time.Now,
		log:      log.With().Str("component", "dialogue").Logger(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the engine configuration.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Intn(n)
}

func (e *Engine) int63n(n int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Int63n(n)
}

// MessagingType classifies a send for the platform's messaging policy:
// replies to the user versus unprompted updates.
type MessagingType string

const (
	MessagingResponse MessagingType = "RESPONSE"
	MessagingUpdate   MessagingType = "UPDATE"
)

// OutboundKind distinguishes content sends from presence indicators.
type OutboundKind string

const (
	OutboundMessage OutboundKind = "message"
	OutboundTyping  OutboundKind = "typing_on"
)

// Outbound is one item of a delivery sequence.
type Outbound struct {
	Kind         OutboundKind
	Text         string
	QuickReplies []content.QuickReply
	Attachment   *content.Attachment
}

// IsTyping reports whether o is a presence indicator.
func (o Outbound) IsTyping() bool {
	return o.Kind == OutboundTyping
}

// Interleave places a typing indicator between consecutive messages.
func Interleave(msgs []Outbound) []Outbound {
	if len(msgs) < 2 {
		return msgs
	}
	out := make([]Outbound, 0, len(msgs)*2-1)
	for i, m := range msgs {
		if i > 0 {
			out = append(out, Outbound{Kind: OutboundTyping})
		}
		out = append(out, m)
	}
	return out
}

// CountMessages returns the number of content messages in a sequence.
func CountMessages(seq []Outbound) int {
	n := 0
	for _, o := range seq {
		if !o.IsTyping() {
			n++
		}
	}
	return n
}

func outboundFromNode(n *content.Node) Outbound {
	return Outbound{
		Kind:         OutboundMessage,
		Text:         n.Text,
		QuickReplies: n.QuickReplies,
		Attachment:   n.Attachment,
	}
}
