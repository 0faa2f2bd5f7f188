package messenger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

const senderActionTypingOn = "typing_on"

type recipient struct {
	ID string `json:"id"`
}

type quickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type attachmentPayload struct {
	URL        string `json:"url"`
	IsReusable bool   `json:"is_reusable"`
}

type attachment struct {
	Type    string            `json:"type"`
	Payload attachmentPayload `json:"payload"`
}

type message struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []quickReply `json:"quick_replies,omitempty"`
	Attachment   *attachment  `json:"attachment,omitempty"`
}

type sendRequest struct {
	MessagingType dialogue.MessagingType `json:"messaging_type"`
	Recipient     recipient              `json:"recipient"`
	Message       *message               `json:"message,omitempty"`
	SenderAction  string                 `json:"sender_action,omitempty"`
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

type errorEnvelope struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}

// Client talks to the messaging platform's send and profile APIs.
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a Resty-backed client.
func NewClient(rootURL, pageAccessToken string) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(rootURL).
			SetHeader("Content-Type", "application/json").
			SetQueryParam("access_token", pageAccessToken).
			SetTimeout(30 * time.Second),
	}
}

// Send delivers one outbound item and returns the platform message id.
// Typing indicators return an empty id.
func (c *Client) Send(ctx context.Context, recipientID string, item dialogue.Outbound, mt dialogue.MessagingType) (string, error) {
	req := sendRequest{
		MessagingType: mt,
		Recipient:     recipient{ID: recipientID},
	}
	if item.IsTyping() {
		req.SenderAction = senderActionTypingOn
	} else {
		req.Message = toMessage(item)
	}

	var (
		result   sendResponse
		envelope errorEnvelope
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&envelope).
		Post("/me/messages")
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", recipientID, err)
	}
	if resp.IsError() {
		return "", &SendError{
			StatusCode:  resp.StatusCode(),
			Code:        envelope.Error.Code,
			Subcode:     envelope.Error.ErrorSubcode,
			Message:     envelope.Error.Message,
			RecipientID: recipientID,
		}
	}
	return result.MessageID, nil
}

// UserDetails fetches a user's public profile.
func (c *Client) UserDetails(ctx context.Context, userID string) (*user.Profile, error) {
	var (
		profile  user.Profile
		envelope errorEnvelope
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("userID", userID).
		SetQueryParam("fields", "first_name,last_name,profile_pic").
		SetResult(&profile).
		SetError(&envelope).
		Get("/{userID}")
	if err != nil {
		return nil, fmt.Errorf("user details %s: %w", userID, err)
	}
	if resp.IsError() {
		return nil, &SendError{
			StatusCode:  resp.StatusCode(),
			Code:        envelope.Error.Code,
			Subcode:     envelope.Error.ErrorSubcode,
			Message:     envelope.Error.Message,
			RecipientID: userID,
		}
	}
	if profile.ID == "" {
		profile.ID = userID
	}
	return &profile, nil
}

func toMessage(item dialogue.Outbound) *message {
	m := &message{Text: item.Text}
	for _, qr := range item.QuickReplies {
		m.QuickReplies = append(m.QuickReplies, quickReply{
			ContentType: "text",
			Title:       qr.Title,
			Payload:     qr.Payload,
		})
	}
	if item.Attachment != nil && item.Attachment.URL != "" {
		m.Attachment = &attachment{
			Type:    item.Attachment.Type,
			Payload: attachmentPayload{URL: item.Attachment.URL, IsReusable: true},
		}
		// The platform rejects text alongside an attachment.
		m.Text = ""
	}
	return m
}
