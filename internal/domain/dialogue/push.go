package dialogue

import (
	"strconv"
	"strings"
	"time"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// StudyIDPlaceholder is replaced with the user's study id in study texts.
const StudyIDPlaceholder = "XXXXX"

// Push is a proactive send planned for one user.
type Push struct {
	User     user.User
	Outbound []Outbound
	// NewStudyID is set when the push enrolled the user in a study.
	NewStudyID *int64
}

// PlanUpdate continues a user who is idle between messages, as if they had
// tapped continue. It returns false when nothing new would be sent.
func (e *Engine) PlanUpdate(g *content.Graph, u user.User, issued []int64) (Push, bool, error) {
	if u.Suppressed() || len(u.History) == 0 {
		return Push{}, false, nil
	}
	last, ok := u.LastSentMessage()
	if !ok || last.NeedsInput() {
		return Push{}, false, nil
	}

	res, err := e.ResolveAction(Turn{User: u, Graph: g, IssuedStudyIDs: issued})
	if err != nil {
		return Push{}, false, err
	}
	if res.Action == nil {
		return Push{}, false, nil
	}
	next := u.Apply(res.Patch)
	walk := e.ResolveMessages(g, next, *res.Action)
	if len(walk.Sent()) == 0 {
		return Push{}, false, nil
	}
	sent := append([]user.HistoryEntry(nil), walk.Sent()...)
	sent[0].IsUpdate = true
	walk.Patch.History = sent
	next = next.Apply(walk.Patch)

	p := Push{User: next, Outbound: walk.Outbound}
	if u.StudyID == nil && next.StudyID != nil {
		id := *next.StudyID
		p.NewStudyID = &id
	}
	return p, true, nil
}

// PlanStudyMessage returns the next scheduled study message if its delay
// since enrolment has elapsed.
func (e *Engine) PlanStudyMessage(u user.User) (Push, bool) {
	if !u.HasValidStudyID(e.settings.StudyIDNoOp) || u.Suppressed() || u.StudyStartTime <= 0 {
		return Push{}, false
	}
	count, has := u.StudyUpdateCount()
	index := 1
	if has {
		index = count + 1
	}
	schedule := e.settings.StudyMessages
	if index >= len(schedule) {
		return Push{}, false
	}
	msg := schedule[index]

	now := e.now()
	due := time.UnixMilli(u.StudyStartTime).Add(time.Duration(msg.DelayInMinutes) * time.Minute)
	if !due.Before(now) {
		return Push{}, false
	}

	text := strings.ReplaceAll(msg.Text, StudyIDPlaceholder, strconv.FormatInt(*u.StudyID, 10))
	var previous string
	if last, ok := u.LastSentMessage(); ok {
		previous = last.ID
	}
	entry := user.HistoryEntry{
		Type:        content.KindStudyMessage,
		ID:          "study-" + strconv.Itoa(index),
		MessageType: content.MessageTypeText,
		Text:        text,
		Timestamp:   now.UnixMilli(),
		Previous:    previous,
		IsUpdate:    true,
	}
	next := u.Apply(user.Patch{
		History:                 []user.HistoryEntry{entry},
		StudyMessageUpdateCount: user.Ptr(index),
	})
	return Push{User: next, Outbound: []Outbound{{Kind: OutboundMessage, Text: text}}}, true
}
