package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
)

func TestSend_Message(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages", r.URL.Path)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recipient_id":"42","message_id":"mid.1"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "page-token")
	id, err := c.Send(context.Background(), "42", dialogue.Outbound{
		Kind:         dialogue.OutboundMessage,
		Text:         "Ready?",
		QuickReplies: []content.QuickReply{{Title: "Yes", Payload: `{"id":"m3","type":"message"}`}},
	}, dialogue.MessagingResponse)
	require.NoError(t, err)
	assert.Equal(t, "mid.1", id)

	assert.Equal(t, "RESPONSE", got["messaging_type"])
	assert.Equal(t, map[string]any{"id": "42"}, got["recipient"])
	msg := got["message"].(map[string]any)
	assert.Equal(t, "Ready?", msg["text"])
	qr := msg["quick_replies"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", qr["content_type"])
	assert.Equal(t, "Yes", qr["title"])
}

func TestSend_TypingAndAttachment(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&b))
		bodies = append(bodies, b)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recipient_id":"42"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	_, err := c.Send(context.Background(), "42", dialogue.Outbound{Kind: dialogue.OutboundTyping}, dialogue.MessagingUpdate)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), "42", dialogue.Outbound{
		Kind:       dialogue.OutboundMessage,
		Text:       "ignored",
		Attachment: &content.Attachment{Type: "image", URL: "https://example.com/a.gif"},
	}, dialogue.MessagingUpdate)
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, "typing_on", bodies[0]["sender_action"])
	assert.Nil(t, bodies[0]["message"])
	assert.Equal(t, "UPDATE", bodies[0]["messaging_type"])

	msg := bodies[1]["message"].(map[string]any)
	assert.Nil(t, msg["text"])
	att := msg["attachment"].(map[string]any)
	assert.Equal(t, "image", att["type"])
}

func TestSend_StructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"This person isn't available right now.","type":"OAuthException","code":10,"error_subcode":2018108}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t")
	_, err := c.Send(context.Background(), "42", dialogue.Outbound{Kind: dialogue.OutboundMessage, Text: "hi"}, dialogue.MessagingUpdate)
	require.Error(t, err)

	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "42", se.RecipientID)
	assert.True(t, se.InvalidRecipient())
}

func TestSendError_InvalidRecipient(t *testing.T) {
	tests := []struct {
		code, subcode int
		want          bool
	}{
		{551, 0, true},
		{100, 2018001, true},
		{10, 2018108, true},
		{200, 1545041, true},
		{100, 0, false},
		{613, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.code, tt.subcode), func(t *testing.T) {
			e := &SendError{Code: tt.code, Subcode: tt.subcode}
			assert.Equal(t, tt.want, e.InvalidRecipient())
		})
	}
}

func TestUserDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/42", r.URL.Path)
		assert.Equal(t, "first_name,last_name,profile_pic", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"first_name":"Sam","last_name":"Lee","profile_pic":"https://example.com/p.png"}`)
	}))
	defer srv.Close()

	p, err := NewClient(srv.URL, "t").UserDetails(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "Sam", p.FirstName)
}
