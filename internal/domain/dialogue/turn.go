package dialogue

import (
	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// Outcome is everything a caller needs to finish an inbound turn.
type Outcome struct {
	// User is the record to persist. Unchanged when Skipped is set.
	User     user.User
	Outbound []Outbound
	// Stopped is set when the message was a stop or crisis request.
	Stopped bool
	// Skipped is set when the user is suppressed and nothing happened.
	Skipped bool
	// Reset is set when the user confirmed a full reset.
	Reset bool
	// NewStudyID is set when the turn enrolled the user in a study.
	NewStudyID *int64
}

// HandleMessage runs one inbound turn end to end without side effects.
func (e *Engine) HandleMessage(t Turn) (Outcome, error) {
	u := t.User
	g := t.Graph

	if u.InvalidUser {
		return Outcome{User: t.User, Skipped: true}, nil
	}

	if e.IsStop(t.Message, t.Terms) {
		if u.StopNotifications {
			return Outcome{User: t.User, Skipped: true}, nil
		}
		u = u.Apply(user.Patch{StopNotifications: user.Ptr(true)})
		return Outcome{
			User:     u,
			Outbound: []Outbound{{Kind: OutboundMessage, Text: e.StopReplyText(g)}},
			Stopped:  true,
		}, nil
	}

	if e.IsResume(g, t.Message) {
		u = u.Apply(user.Patch{StopNotifications: user.Ptr(false)})
	}
	if u.Suppressed() {
		return Outcome{User: t.User, Skipped: true}, nil
	}

	u = u.Apply(user.Patch{History: []user.HistoryEntry{e.answerEntry(u, t.Message)}})

	t.User = u
	res, err := e.ResolveAction(t)
	if err != nil {
		return Outcome{}, err
	}
	u = u.Apply(res.Patch)

	var out []Outbound
	if res.Action != nil {
		walk := e.ResolveMessages(g, u, *res.Action)
		u = u.Apply(walk.Patch)
		out = walk.Outbound
	}

	outcome := Outcome{User: u, Outbound: out}
	if t.User.StudyID == nil && u.StudyID != nil {
		id := *u.StudyID
		outcome.NewStudyID = &id
	}
	if e.IsResetConfirm(t.Message) {
		outcome.User = user.New(u.ID)
		outcome.Reset = true
	}
	return outcome, nil
}

func (e *Engine) answerEntry(u user.User, msg user.InboundMessage) user.HistoryEntry {
	var previous string
	if last, ok := u.LastSentMessage(); ok {
		previous = last.ID
	}
	m := msg
	return user.HistoryEntry{
		Type:        content.KindAnswer,
		ID:          msg.ID,
		MessageType: content.MessageTypeAnswer,
		Timestamp:   e.now().UnixMilli(),
		Message:     &m,
		Previous:    previous,
	}
}
