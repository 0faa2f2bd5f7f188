// Package user holds the per-user conversational record and its reducer.
package user

import (
	"github.com/janhq/dialogue-bot/internal/domain/content"
)

// QuickReplyPayload is the quick-reply part of an inbound message.
type QuickReplyPayload struct {
	Payload string `json:"payload"`
}

// InboundMessage is the platform-independent shape of a user message.
type InboundMessage struct {
	ID         string             `json:"id,omitempty"`
	Type       content.Kind       `json:"type,omitempty"`
	Text       string             `json:"text,omitempty"`
	QuickReply *QuickReplyPayload `json:"quick_reply,omitempty"`
}

// Directive decodes the quick-reply payload, if any.
func (m InboundMessage) Directive() (content.Directive, bool) {
	if m.QuickReply == nil {
		return content.Directive{}, false
	}
	return content.DecodePayload(m.QuickReply.Payload)
}

// HistoryEntry is one item of a user's chronological history. Answers carry
// the inbound message; sent messages carry a snapshot of the content node.
type HistoryEntry struct {
	Type        content.Kind        `json:"type"`
	ID          string              `json:"id,omitempty"`
	MessageType content.MessageType `json:"messageType,omitempty"`
	Text        string              `json:"text,omitempty"`
	Parent      *content.Ref        `json:"parent,omitempty"`
	Next        *content.Ref        `json:"next,omitempty"`
	IsEnd       bool                `json:"isEnd,omitempty"`
	Timestamp   int64               `json:"timestamp"`
	Message     *InboundMessage     `json:"message,omitempty"`
	Previous    string              `json:"previous,omitempty"`
	IsUpdate    bool                `json:"isUpdate,omitempty"`
}

// IsAnswer reports whether the entry was produced by the user.
func (e HistoryEntry) IsAnswer() bool {
	return e.Type == content.KindAnswer
}

// IsContent reports whether the entry was sent from a content node.
func (e HistoryEntry) IsContent() bool {
	return e.Type != content.KindAnswer && e.Type != content.KindStudyMessage
}

// NeedsInput mirrors content.Node.NeedsInput for a sent entry.
func (e HistoryEntry) NeedsInput() bool {
	return e.MessageType == content.MessageTypeQuestion || e.MessageType == content.MessageTypeQuestionWithReplies
}

// Ref points back at the content node the entry was sent from.
func (e HistoryEntry) Ref() content.Ref {
	return content.Ref{ID: e.ID, Type: e.Type}
}

// EntryFromNode snapshots a sent content node.
func EntryFromNode(n *content.Node, timestamp int64, previous string) HistoryEntry {
	return HistoryEntry{
		Type:        n.Type,
		ID:          n.ID,
		MessageType: n.MessageType,
		Text:        n.Text,
		Parent:      n.Parent,
		Next:        n.Next,
		IsEnd:       n.IsEnd,
		Timestamp:   timestamp,
		Previous:    previous,
	}
}

// ScopeEntry is one frame of the block-scope stack.
type ScopeEntry struct {
	Block  content.Ref  `json:"block"`
	Return *content.Ref `json:"return,omitempty"`
}

// User is the persisted per-user conversational state.
type User struct {
	ID                         string         `json:"id"`
	History                    []HistoryEntry `json:"history"`
	AssignedConversationTrack  string         `json:"assignedConversationTrack,omitempty"`
	IntroConversationSeen      bool           `json:"introConversationSeen"`
	BlockScope                 []ScopeEntry   `json:"blockScope"`
	StopNotifications          bool           `json:"stopNotifications"`
	InvalidUser                bool           `json:"invalidUser"`
	StudyID                    *int64         `json:"studyId,omitempty"`
	StudyStartTime             int64          `json:"studyStartTime,omitempty"`
	StudyMessageUpdateCount    *int           `json:"studyMessageUpdateCount,omitempty"`
	ConversationStartTimestamp int64          `json:"conversationStartTimestamp,omitempty"`
}

// New returns a fresh record for an external id.
func New(id string) User {
	return User{
		ID:      id,
		History: []HistoryEntry{},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (u User) Clone() User {
	c := u
	if u.History != nil {
		c.History = append(make([]HistoryEntry, 0, len(u.History)), u.History...)
	}
	if u.BlockScope != nil {
		c.BlockScope = append(make([]ScopeEntry, 0, len(u.BlockScope)), u.BlockScope...)
	}
	if u.StudyID != nil {
		v := *u.StudyID
		c.StudyID = &v
	}
	if u.StudyMessageUpdateCount != nil {
		v := *u.StudyMessageUpdateCount
		c.StudyMessageUpdateCount = &v
	}
	return c
}

// Suppressed reports whether no outbound message may be sent to the user.
func (u User) Suppressed() bool {
	return u.StopNotifications || u.InvalidUser
}

// LastSentMessage returns the most recent entry sent from a content node.
func (u User) LastSentMessage() (HistoryEntry, bool) {
	for i := len(u.History) - 1; i >= 0; i-- {
		if u.History[i].IsContent() {
			return u.History[i], true
		}
	}
	return HistoryEntry{}, false
}

// LastRealMessage returns the most recent sent entry that is not the
// end-of-conversation marker itself.
func (u User) LastRealMessage(endOfConversationID string) (HistoryEntry, bool) {
	for i := len(u.History) - 1; i >= 0; i-- {
		e := u.History[i]
		if e.ID != endOfConversationID && e.IsContent() {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// LastAnswer returns the most recent answer entry.
func (u User) LastAnswer() (HistoryEntry, bool) {
	for i := len(u.History) - 1; i >= 0; i-- {
		if u.History[i].IsAnswer() {
			return u.History[i], true
		}
	}
	return HistoryEntry{}, false
}

// HasValidStudyID reports whether the user takes part in study sequencing.
func (u User) HasValidStudyID(noOp int64) bool {
	return u.StudyID != nil && *u.StudyID != noOp
}

// StudyUpdateCount returns the number of study updates already sent.
func (u User) StudyUpdateCount() (int, bool) {
	if u.StudyMessageUpdateCount == nil {
		return 0, false
	}
	return *u.StudyMessageUpdateCount, true
}

// Profile is the public platform profile of a user.
type Profile struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ProfilePic string `json:"profile_pic"`
}
