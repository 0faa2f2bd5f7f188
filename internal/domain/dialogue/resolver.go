package dialogue

import (
	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// Turn is the input to a single inbound resolution.
type Turn struct {
	User           user.User
	Message        user.InboundMessage
	Graph          *content.Graph
	Terms          Terms
	IssuedStudyIDs []int64
}

// Resolution is the next action for a user plus the state changes needed
// to get there. A nil Action means nothing should be sent.
type Resolution struct {
	Action *Action
	Patch  user.Patch
}

// position is the part of a sent node that decides where to go next.
type position struct {
	ref    content.Ref
	parent *content.Ref
	next   *content.Ref
	isEnd  bool
}

func positionOfEntry(h user.HistoryEntry) position {
	return position{ref: h.Ref(), parent: h.Parent, next: h.Next, isEnd: h.IsEnd}
}

func positionOfNode(n *content.Node) position {
	return position{ref: n.Ref(), parent: n.Parent, next: n.Next, isEnd: n.IsEnd}
}

// ResolveAction decides what happens next for t.User. t.User must already
// carry the answer entry for t.Message when the turn is user-initiated.
func (e *Engine) ResolveAction(t Turn) (Resolution, error) {
	g, u := t.Graph, t.User
	last, ok := u.LastSentMessage()
	if !ok {
		return e.assign(t)
	}

	if e.AtEndOfConversation(last) {
		if e.CanRestart(u) {
			return e.assign(t)
		}
		return Resolution{}, nil
	}

	if e.trackDeleted(g, u, last) {
		e.log.Info().Str("user_id", u.ID).Str("message_id", last.ID).Msg("current track no longer exists, reassigning")
		return e.assign(t)
	}

	scope := append([]user.ScopeEntry(nil), u.BlockScope...)
	if d, ok := t.Message.Directive(); ok {
		switch {
		case d.Type == content.KindBackToConversation:
			a := e.backToConversation(g, positionOfEntry(last))
			return Resolution{Action: a, Patch: user.Patch{BlockScope: &[]user.ScopeEntry{}}}, nil
		case e.settings.RetryContinueID != "" && d.ID == e.settings.RetryContinueID:
			return e.advance(g, positionOfEntry(last), scope), nil
		default:
			if target, found := g.Get(d.Ref()); found {
				a := d.Ref()
				kept := scopeWithin(g, target, scope)
				return Resolution{Action: &a, Patch: user.Patch{BlockScope: &kept}}, nil
			}
			e.log.Warn().Str("user_id", u.ID).Str("target_id", d.ID).Str("target_type", string(d.Type)).Msg("quick reply points at a missing node")
		}
	}

	if last.MessageType == content.MessageTypeQuestionWithReplies && t.Message.QuickReply == nil {
		if _, found := g.Get(last.Ref()); found {
			a := last.Ref()
			return Resolution{Action: &a}, nil
		}
	}

	return e.advance(g, positionOfEntry(last), scope), nil
}

func (e *Engine) assign(t Turn) (Resolution, error) {
	a, patch, err := e.AssignTrack(t.Graph, t.User, t.IssuedStudyIDs)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Action: &a, Patch: patch}, nil
}

func (e *Engine) advance(g *content.Graph, pos position, scope []user.ScopeEntry) Resolution {
	a, scope := e.continueFrom(g, pos, scope)
	return Resolution{Action: a, Patch: user.Patch{BlockScope: &scope}}
}

// trackDeleted reports whether the user's place in the graph has been
// pulled out from under them.
func (e *Engine) trackDeleted(g *content.Graph, u user.User, last user.HistoryEntry) bool {
	if u.IntroConversationSeen && u.AssignedConversationTrack != "" &&
		!e.inIntro(g, last) &&
		!isLive(g, u.AssignedConversationTrack, e.settings.IntroConversationID) {
		return true
	}
	if last.Next.IsZero() || last.NeedsInput() {
		return false
	}
	if _, ok := g.Get(last.Ref()); !ok {
		return true
	}
	if last.Next.Type == content.KindBackToConversation || last.Next.ID == e.settings.EndOfConversationID {
		return false
	}
	_, ok := g.Get(*last.Next)
	return !ok
}

// inIntro reports whether the entry was sent from the intro conversation.
func (e *Engine) inIntro(g *content.Graph, last user.HistoryEntry) bool {
	probe := &content.Node{ID: last.ID, Type: last.Type, Parent: last.Parent}
	top := g.Outermost(probe)
	return top.Parent != nil && top.Parent.Type == content.KindConversation &&
		top.Parent.ID == e.settings.IntroConversationID
}

// scopeWithin keeps the frames whose block encloses target.
func scopeWithin(g *content.Graph, target *content.Node, scope []user.ScopeEntry) []user.ScopeEntry {
	enclosing := map[content.Ref]bool{}
	item := target
	for i := 0; i < maxWalkSteps; i++ {
		parent, ok := g.Container(item)
		if !ok {
			break
		}
		enclosing[parent.Ref()] = true
		item = parent
	}
	kept := make([]user.ScopeEntry, 0, len(scope))
	for _, f := range scope {
		if enclosing[f.Block] {
			kept = append(kept, f)
		}
	}
	return kept
}

// continueFrom computes the node after pos, maintaining the block scope.
func (e *Engine) continueFrom(g *content.Graph, pos position, scope []user.ScopeEntry) (*Action, []user.ScopeEntry) {
	if pos.next != nil && pos.next.Type == content.KindBackToConversation {
		return e.backToConversation(g, pos), []user.ScopeEntry{}
	}
	if pos.isEnd || pos.next.IsZero() {
		return e.pop(g, pos, scope)
	}
	a := *pos.next
	return &a, scope
}

// pop leaves the innermost block with a return target. Frames without one
// are discarded so the exit cascades outwards.
func (e *Engine) pop(g *content.Graph, pos position, scope []user.ScopeEntry) (*Action, []user.ScopeEntry) {
	for len(scope) > 0 {
		top := scope[len(scope)-1]
		scope = scope[:len(scope)-1]
		if !top.Return.IsZero() {
			a := *top.Return
			return &a, scope
		}
	}
	probe := &content.Node{ID: pos.ref.ID, Type: pos.ref.Type, Parent: pos.parent}
	if blk, ok := g.Container(probe); ok && blk.Type == content.KindBlock {
		return blockReturn(g, blk), scope
	}
	return nil, scope
}

// backToConversation continues after the outermost container of pos.
func (e *Engine) backToConversation(g *content.Graph, pos position) *Action {
	probe := &content.Node{ID: pos.ref.ID, Type: pos.ref.Type, Parent: pos.parent}
	top := g.Outermost(probe)
	if top == probe || top.Next.IsZero() {
		return nil
	}
	a := *top.Next
	return &a
}

// blockReturn is where control goes once blk is finished: its own next, or
// the next of its outermost ancestor.
func blockReturn(g *content.Graph, blk *content.Node) *content.Ref {
	if !blk.Next.IsZero() {
		r := *blk.Next
		return &r
	}
	top := g.Outermost(blk)
	if top != blk && !top.Next.IsZero() {
		r := *top.Next
		return &r
	}
	return nil
}
