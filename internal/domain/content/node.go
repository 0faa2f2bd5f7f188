// Package content models the authored dialogue graph: conversations,
// collections, series, blocks and messages linked by parent/next references.
package content

import (
	"encoding/json"
	"strings"
)

// Kind discriminates the node variants stored in the content graph.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindCollection   Kind = "collection"
	KindSeries       Kind = "series"
	KindBlock        Kind = "block"
	KindMessage      Kind = "message"

	// KindAnswer is only used for user answers recorded in history.
	KindAnswer Kind = "answer"
	// KindStudyMessage is only used for scheduled study sends recorded in history.
	KindStudyMessage Kind = "studyMessage"
	// KindBackToConversation marks a next reference that leaves the current scope.
	KindBackToConversation Kind = "backToConversation"
)

// MessageType is the sub-kind of a message node.
type MessageType string

const (
	MessageTypeText                MessageType = "text"
	MessageTypeQuestion            MessageType = "question"
	MessageTypeQuestionWithReplies MessageType = "questionWithReplies"
	MessageTypeAnswer              MessageType = "answer"
	MessageTypeBackToConversation  MessageType = "backToConversation"
)

// SelectionRandom is the collection rule that picks series at random.
const SelectionRandom = "random"

// Ref is a weak reference to another node. It never implies ownership.
type Ref struct {
	ID   string `json:"id" jsonschema:"required"`
	Type Kind   `json:"type" jsonschema:"required"`
}

// IsZero reports whether the reference points nowhere.
func (r *Ref) IsZero() bool {
	return r == nil || r.ID == ""
}

// QuickReply is a tappable option attached to a message.
type QuickReply struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Attachment is a media item sent alongside or instead of text.
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Node is a single authored content item. Type selects the variant; the
// variant-specific fields are left empty when they do not apply.
type Node struct {
	ID           string       `json:"id" jsonschema:"required"`
	Type         Kind         `json:"type" jsonschema:"required,enum=conversation,enum=collection,enum=series,enum=block,enum=message"`
	MessageType  MessageType  `json:"messageType,omitempty"`
	Name         string       `json:"name,omitempty"`
	Text         string       `json:"text,omitempty"`
	Parent       *Ref         `json:"parent,omitempty"`
	Next         *Ref         `json:"next,omitempty"`
	Start        bool         `json:"start,omitempty"`
	IsLive       bool         `json:"isLive,omitempty"`
	IsStudy      bool         `json:"isStudy,omitempty"`
	IsEnd        bool         `json:"isEnd,omitempty"`
	Rule         string       `json:"rule,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
	Attachment   *Attachment  `json:"attachment,omitempty"`
}

// Ref returns a reference to n.
func (n *Node) Ref() Ref {
	return Ref{ID: n.ID, Type: n.Type}
}

// NeedsInput reports whether the dialogue must wait for the user after n.
func (n *Node) NeedsInput() bool {
	return n.MessageType == MessageTypeQuestion || n.MessageType == MessageTypeQuestionWithReplies
}

// Directive is the decoded content of a quick-reply payload.
type Directive struct {
	ID   string `json:"id"`
	Type Kind   `json:"type"`
}

// Ref converts the directive into a graph reference.
func (d Directive) Ref() Ref {
	return Ref{ID: d.ID, Type: d.Type}
}

// DecodePayload decodes an opaque quick-reply payload. Malformed payloads
// report ok=false and are treated as carrying no directive.
func DecodePayload(raw string) (Directive, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Directive{}, false
	}
	var d Directive
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Directive{}, false
	}
	if d.ID == "" && d.Type == "" {
		return Directive{}, false
	}
	return d, true
}

// EncodePayload is the inverse of DecodePayload.
func EncodePayload(d Directive) string {
	b, _ := json.Marshal(d)
	return string(b)
}
