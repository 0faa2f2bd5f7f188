package dialogue

import (
	"errors"
	"fmt"

	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// AssignTrack picks the conversation the user should be in and returns the
// entry node of that conversation. New users always go through the intro
// first; afterwards a live track is kept, or a random live one is assigned.
func (e *Engine) AssignTrack(g *content.Graph, u user.User, issued []int64) (Action, user.Patch, error) {
	patch := user.Patch{BlockScope: &[]user.ScopeEntry{}}
	intro := e.settings.IntroConversationID
	track := u.AssignedConversationTrack

	switch {
	case !u.IntroConversationSeen:
		track = intro
		patch.IntroConversationSeen = user.Ptr(true)
		if u.AssignedConversationTrack != "" {
			patch.AssignedConversationTrack = user.Ptr("")
		}
	case track == "" || !isLive(g, track, intro):
		live := g.LiveConversations(intro)
		if len(live) == 0 {
			return Action{}, user.Patch{}, ErrNoLiveConversations
		}
		track = live[e.intn(len(live))].ID
	}

	if track != intro && track != u.AssignedConversationTrack {
		now := e.now().UnixMilli()
		patch.AssignedConversationTrack = user.Ptr(track)
		patch.ConversationStartTimestamp = user.Ptr(now)

		conv, ok := g.Get(content.Ref{ID: track, Type: content.KindConversation})
		if ok && conv.IsStudy && u.StudyID == nil {
			id, err := e.GenerateStudyID(issued)
			switch {
			case errors.Is(err, ErrStudyIDsExhausted):
				e.log.Error().Err(err).Str("user_id", u.ID).Msg("could not enrol user in study")
			case err != nil:
				return Action{}, user.Patch{}, err
			default:
				patch.StudyID = user.Ptr(id)
				patch.StudyStartTime = user.Ptr(now)
			}
		}
	}

	starts := g.StartNodes(track, content.KindMessage, content.KindCollection)
	switch len(starts) {
	case 0:
		e.log.Error().Str("conversation_id", track).Msg("conversation has no start node")
		return Action{}, user.Patch{}, fmt.Errorf("conversation %q: %w", track, content.ErrStartNodeMissing)
	case 1:
	default:
		e.log.Warn().Str("conversation_id", track).Int("count", len(starts)).Msg("conversation has more than one start node")
	}
	return starts[0].Ref(), patch, nil
}

// GenerateStudyID draws a random id in [StudyIDMin, StudyIDMax) that has not
// been issued and is not the opt-out sentinel.
func (e *Engine) GenerateStudyID(issued []int64) (int64, error) {
	lo, hi := e.settings.StudyIDMin, e.settings.StudyIDMax
	if hi <= lo {
		return 0, fmt.Errorf("study id range [%d, %d): %w", lo, hi, ErrStudyIDsExhausted)
	}
	taken := make(map[int64]struct{}, len(issued)+1)
	for _, id := range issued {
		if id >= lo && id < hi {
			taken[id] = struct{}{}
		}
	}
	if e.settings.StudyIDNoOp >= lo && e.settings.StudyIDNoOp < hi {
		taken[e.settings.StudyIDNoOp] = struct{}{}
	}
	size := hi - lo
	if int64(len(taken)) >= size {
		return 0, ErrStudyIDsExhausted
	}

	for i := 0; i < 64; i++ {
		id := lo + e.int63n(size)
		if _, ok := taken[id]; !ok {
			return id, nil
		}
	}
	// Dense range: scan forward from a random offset.
	start := e.int63n(size)
	for i := int64(0); i < size; i++ {
		id := lo + (start+i)%size
		if _, ok := taken[id]; !ok {
			return id, nil
		}
	}
	return 0, ErrStudyIDsExhausted
}

func isLive(g *content.Graph, id, intro string) bool {
	for _, c := range g.LiveConversations(intro) {
		if c.ID == id {
			return true
		}
	}
	return false
}
