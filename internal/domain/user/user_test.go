package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/dialogue-bot/internal/domain/content"
)

func TestNew(t *testing.T) {
	u := New("12345")
	assert.Equal(t, "12345", u.ID)
	assert.NotNil(t, u.History)
	assert.Empty(t, u.History)
	assert.False(t, u.IntroConversationSeen)
}

func TestApply_AppendsHistoryWithoutTouchingEarlierEntries(t *testing.T) {
	u := New("1")
	u.History = []HistoryEntry{{Type: content.KindAnswer, Timestamp: 1}}

	first := u.Apply(Patch{History: []HistoryEntry{{Type: content.KindMessage, ID: "m1", Timestamp: 2}}})
	second := first.Apply(Patch{History: []HistoryEntry{{Type: content.KindMessage, ID: "m2", Timestamp: 3}}})

	require.Len(t, u.History, 1)
	require.Len(t, first.History, 2)
	require.Len(t, second.History, 3)
	assert.Equal(t, first.History, second.History[:2])
}

func TestApply_ExplicitFieldsOnly(t *testing.T) {
	u := New("1")
	u.AssignedConversationTrack = "c1"
	u.StopNotifications = true

	out := u.Apply(Patch{StopNotifications: Ptr(false), StudyID: Ptr(int64(4242))})
	assert.Equal(t, "c1", out.AssignedConversationTrack, "unset fields are not clobbered")
	assert.False(t, out.StopNotifications)
	require.NotNil(t, out.StudyID)
	assert.Equal(t, int64(4242), *out.StudyID)
	assert.Nil(t, u.StudyID)
}

func TestPatch_Merge(t *testing.T) {
	a := Patch{History: []HistoryEntry{{ID: "a"}}, AssignedConversationTrack: Ptr("c1")}
	b := Patch{History: []HistoryEntry{{ID: "b"}}, AssignedConversationTrack: Ptr("c2"), IntroConversationSeen: Ptr(true)}

	m := a.Merge(b)
	require.Len(t, m.History, 2)
	assert.Equal(t, "a", m.History[0].ID)
	assert.Equal(t, "c2", *m.AssignedConversationTrack)
	assert.True(t, *m.IntroConversationSeen)
	assert.Len(t, a.History, 1)
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, m.IsEmpty())
}

func TestHistoryLookups(t *testing.T) {
	u := New("1")
	u.History = []HistoryEntry{
		{Type: content.KindMessage, ID: "m1", Timestamp: 1},
		{Type: content.KindAnswer, Timestamp: 2},
		{Type: content.KindMessage, ID: "end", Timestamp: 3},
		{Type: content.KindAnswer, Timestamp: 4},
	}

	last, ok := u.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "end", last.ID)

	lastReal, ok := u.LastRealMessage("end")
	require.True(t, ok)
	assert.Equal(t, "m1", lastReal.ID)

	ans, ok := u.LastAnswer()
	require.True(t, ok)
	assert.Equal(t, int64(4), ans.Timestamp)

	_, ok = New("2").LastSentMessage()
	assert.False(t, ok)
}

func TestShouldArchive(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour

	tests := []struct {
		name    string
		history []HistoryEntry
		want    bool
	}{
		{"30 days without an answer", []HistoryEntry{{Type: content.KindAnswer, Timestamp: now.Add(-30 * day).UnixMilli()}}, false},
		{"31 days without an answer", []HistoryEntry{{Type: content.KindAnswer, Timestamp: now.Add(-31 * day).UnixMilli()}}, true},
		{"never answered", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New("12345")
			u.History = tt.history
			assert.Equal(t, tt.want, ShouldArchive(u, now, 30*day))
		})
	}
}

func TestUser_JSONRoundTrip(t *testing.T) {
	studyID := int64(9007199254740991)
	count := 3
	u := User{
		ID: "42",
		History: []HistoryEntry{
			{Type: content.KindAnswer, Timestamp: 1700000000123, Message: &InboundMessage{ID: "mid", Text: "hi", QuickReply: &QuickReplyPayload{Payload: `{"id":"m2","type":"message"}`}}},
			{Type: content.KindMessage, ID: "m1", MessageType: content.MessageTypeQuestion, Next: &content.Ref{ID: "m2", Type: content.KindMessage}, Timestamp: 1700000000456, Previous: "m0", IsUpdate: true},
		},
		AssignedConversationTrack:  "c1",
		IntroConversationSeen:      true,
		BlockScope:                 []ScopeEntry{{Block: content.Ref{ID: "b1", Type: content.KindBlock}, Return: &content.Ref{ID: "m9", Type: content.KindMessage}}},
		StudyID:                    &studyID,
		StudyStartTime:             1700000000000,
		StudyMessageUpdateCount:    &count,
		ConversationStartTimestamp: 1700000000001,
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var back User
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, u, back)
}

func TestHasValidStudyID(t *testing.T) {
	u := New("1")
	assert.False(t, u.HasValidStudyID(-1))
	u.StudyID = Ptr(int64(-1))
	assert.False(t, u.HasValidStudyID(-1), "the opt-out sentinel is never valid")
	u.StudyID = Ptr(int64(123))
	assert.True(t, u.HasValidStudyID(-1))
}
