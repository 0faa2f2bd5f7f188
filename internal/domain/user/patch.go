package user

import "time"

// Patch is an explicit set of changes to a User. Nil fields are untouched;
// History entries are appended, never replacing earlier ones.
type Patch struct {
	History                    []HistoryEntry
	AssignedConversationTrack  *string
	IntroConversationSeen      *bool
	BlockScope                 *[]ScopeEntry
	StopNotifications          *bool
	InvalidUser                *bool
	StudyID                    *int64
	StudyStartTime             *int64
	StudyMessageUpdateCount    *int
	ConversationStartTimestamp *int64
}

// IsEmpty reports whether applying p would change nothing.
func (p Patch) IsEmpty() bool {
	return len(p.History) == 0 &&
		p.AssignedConversationTrack == nil &&
		p.IntroConversationSeen == nil &&
		p.BlockScope == nil &&
		p.StopNotifications == nil &&
		p.InvalidUser == nil &&
		p.StudyID == nil &&
		p.StudyStartTime == nil &&
		p.StudyMessageUpdateCount == nil &&
		p.ConversationStartTimestamp == nil
}

// Merge layers o on top of p: o's set fields win and histories concatenate.
func (p Patch) Merge(o Patch) Patch {
	out := p
	if len(o.History) > 0 {
		out.History = append(append([]HistoryEntry(nil), p.History...), o.History...)
	}
	if o.AssignedConversationTrack != nil {
		out.AssignedConversationTrack = o.AssignedConversationTrack
	}
	if o.IntroConversationSeen != nil {
		out.IntroConversationSeen = o.IntroConversationSeen
	}
	if o.BlockScope != nil {
		out.BlockScope = o.BlockScope
	}
	if o.StopNotifications != nil {
		out.StopNotifications = o.StopNotifications
	}
	if o.InvalidUser != nil {
		out.InvalidUser = o.InvalidUser
	}
	if o.StudyID != nil {
		out.StudyID = o.StudyID
	}
	if o.StudyStartTime != nil {
		out.StudyStartTime = o.StudyStartTime
	}
	if o.StudyMessageUpdateCount != nil {
		out.StudyMessageUpdateCount = o.StudyMessageUpdateCount
	}
	if o.ConversationStartTimestamp != nil {
		out.ConversationStartTimestamp = o.ConversationStartTimestamp
	}
	return out
}

// Apply returns a copy of u with p applied. u itself is not modified.
func (u User) Apply(p Patch) User {
	out := u.Clone()
	if len(p.History) > 0 {
		out.History = append(out.History, p.History...)
	}
	if p.AssignedConversationTrack != nil {
		out.AssignedConversationTrack = *p.AssignedConversationTrack
	}
	if p.IntroConversationSeen != nil {
		out.IntroConversationSeen = *p.IntroConversationSeen
	}
	if p.BlockScope != nil {
		out.BlockScope = append([]ScopeEntry(nil), (*p.BlockScope)...)
	}
	if p.StopNotifications != nil {
		out.StopNotifications = *p.StopNotifications
	}
	if p.InvalidUser != nil {
		out.InvalidUser = *p.InvalidUser
	}
	if p.StudyID != nil {
		v := *p.StudyID
		out.StudyID = &v
	}
	if p.StudyStartTime != nil {
		out.StudyStartTime = *p.StudyStartTime
	}
	if p.StudyMessageUpdateCount != nil {
		v := *p.StudyMessageUpdateCount
		out.StudyMessageUpdateCount = &v
	}
	if p.ConversationStartTimestamp != nil {
		out.ConversationStartTimestamp = *p.ConversationStartTimestamp
	}
	return out
}

// ShouldArchive reports whether the user's last answer is older than after.
// Users who never answered are kept.
func ShouldArchive(u User, now time.Time, after time.Duration) bool {
	last, ok := u.LastAnswer()
	if !ok {
		return false
	}
	return now.UnixMilli()-last.Timestamp > after.Milliseconds()
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}
