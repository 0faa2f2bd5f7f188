package requests

import (
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// WebhookEnvelope is the batch the platform posts to the webhook.
type WebhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID        string             `json:"id"`
	Time      int64              `json:"time"`
	Messaging []MessagingPayload `json:"messaging"`
}

type Party struct {
	ID string `json:"id"`
}

// MessagingPayload is one event for one user.
type MessagingPayload struct {
	Sender    Party           `json:"sender"`
	Recipient Party           `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *MessagePayload `json:"message,omitempty"`
	Postback  *Postback       `json:"postback,omitempty"`
}

type MessagePayload struct {
	MID        string                  `json:"mid"`
	Text       string                  `json:"text"`
	IsEcho     bool                    `json:"is_echo,omitempty"`
	QuickReply *user.QuickReplyPayload `json:"quick_reply,omitempty"`
}

type Postback struct {
	MID     string `json:"mid,omitempty"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Inbound converts the event into the bot's inbound message. It returns
// false for events the bot does not act on, such as echoes of its own
// sends and delivery or read receipts.
func (m MessagingPayload) Inbound() (user.InboundMessage, bool) {
	if m.Sender.ID == "" {
		return user.InboundMessage{}, false
	}
	switch {
	case m.Message != nil && !m.Message.IsEcho:
		return user.InboundMessage{
			ID:         m.Message.MID,
			Text:       m.Message.Text,
			QuickReply: m.Message.QuickReply,
		}, true
	case m.Postback != nil:
		return user.InboundMessage{
			ID:         m.Postback.MID,
			Text:       m.Postback.Title,
			QuickReply: &user.QuickReplyPayload{Payload: m.Postback.Payload},
		}, true
	}
	return user.InboundMessage{}, false
}
