package dialogue

import (
	"time"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// CutOff returns the most recent daily cut-off instant at or before now.
func (e *Engine) CutOff(now time.Time) time.Time {
	local := now.In(e.settings.Location)
	c := time.Date(local.Year(), local.Month(), local.Day(), e.settings.CutOffHour, e.settings.CutOffMinute, 0, 0, e.settings.Location)
	if local.Before(c) {
		c = c.AddDate(0, 0, -1)
	}
	return c
}

// CanRestart reports whether a user at the end of a conversation may be
// given a new one: the daily cut-off must lie strictly between their last
// real message and now.
func (e *Engine) CanRestart(u user.User) bool {
	last, ok := u.LastRealMessage(e.settings.EndOfConversationID)
	if !ok {
		return true
	}
	now := e.now()
	cut := e.CutOff(now)
	return now.After(cut) && cut.UnixMilli() > last.Timestamp
}

// AtEndOfConversation reports whether the last sent entry closes the
// conversation. Questions with replies never do: the replies lead on.
func (e *Engine) AtEndOfConversation(last user.HistoryEntry) bool {
	if last.MessageType == content.MessageTypeQuestionWithReplies {
		return false
	}
	end := e.settings.EndOfConversationID
	if end == "" {
		return false
	}
	return last.ID == end || (last.Next != nil && last.Next.ID == end)
}
