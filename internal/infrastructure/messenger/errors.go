package messenger

import "fmt"

// SendError is a structured failure returned by the platform.
type SendError struct {
	StatusCode  int
	Code        int
	Subcode     int
	Message     string
	RecipientID string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("messenger: status %d code %d subcode %d for %s: %s",
		e.StatusCode, e.Code, e.Subcode, e.RecipientID, e.Message)
}

// InvalidRecipient reports whether the platform says the recipient can no
// longer be messaged: blocked the page, deleted the account or is
// otherwise unavailable.
func (e *SendError) InvalidRecipient() bool {
	switch {
	case e.Code == 551:
		return true
	case e.Code == 100 && e.Subcode == 2018001:
		return true
	case e.Code == 10 && e.Subcode == 2018108:
		return true
	case e.Code == 200 && e.Subcode == 1545041:
		return true
	}
	return false
}
