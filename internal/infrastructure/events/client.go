// Package events records analytics events with an external collector.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// EventStop is recorded when a user asks the bot to stop.
const EventStop = "stop"

type event struct {
	UserID    string `json:"userId"`
	EventName string `json:"eventName"`
}

// Client posts events to EVENTS_API_URL. A client built with an empty URL
// discards every event.
type Client struct {
	httpClient *resty.Client
	url        string
}

func NewClient(url string) *Client {
	return &Client{
		httpClient: resty.New().
			SetHeader("Content-Type", "application/json").
			SetTimeout(10 * time.Second),
		url: url,
	}
}

// Enabled reports whether events are sent anywhere.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// LogEvent records eventName for userID.
func (c *Client) LogEvent(ctx context.Context, userID, eventName string) error {
	if !c.Enabled() {
		return nil
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(event{UserID: userID, EventName: eventName}).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("log event %s: %w", eventName, err)
	}
	if resp.IsError() {
		return fmt.Errorf("log event %s: status %d: %s", eventName, resp.StatusCode(), resp.String())
	}
	return nil
}
