package dialogue

import (
	"github.com/janhq/dialogue-bot/internal/domain/content"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// Walk is the result of resolving messages from an action.
type Walk struct {
	// Outbound is the delivery sequence, typing indicators included.
	Outbound []Outbound
	Patch    user.Patch
}

// Sent returns the history entries produced by the walk.
func (w Walk) Sent() []user.HistoryEntry {
	return w.Patch.History
}

// ResolveMessages walks the graph from action, collecting every message up
// to and including the first one that waits for input. Containers are
// entered through their start nodes; blocks push a scope frame.
func (e *Engine) ResolveMessages(g *content.Graph, u user.User, action Action) Walk {
	scope := append([]user.ScopeEntry(nil), u.BlockScope...)
	seen := seenSeries(g, u)
	now := e.now().UnixMilli()

	var previous string
	if last, ok := u.LastSentMessage(); ok {
		previous = last.ID
	}

	var (
		msgs    []Outbound
		entries []user.HistoryEntry
	)
	cur := &action
	for steps := 0; cur != nil; steps++ {
		if steps >= maxWalkSteps {
			e.log.Warn().Str("user_id", u.ID).Str("node_id", cur.ID).Msg("walk limit reached, stopping")
			break
		}
		node, ok := g.Get(*cur)
		if !ok {
			if cur.ID != e.settings.EndOfConversationID {
				e.log.Warn().Str("user_id", u.ID).Str("node_id", cur.ID).Str("node_type", string(cur.Type)).Msg("dangling reference, stopping")
			}
			break
		}

		switch node.Type {
		case content.KindConversation:
			cur = e.startOf(g, node, content.KindMessage, content.KindCollection)
		case content.KindCollection:
			s := e.pickSeries(g, node, seen)
			if s == nil {
				e.log.Warn().Str("collection_id", node.ID).Msg("collection has no series")
				cur = nil
				break
			}
			seen[s.ID] = true
			r := s.Ref()
			cur = &r
		case content.KindSeries:
			cur = e.startOf(g, node, content.KindBlock)
		case content.KindBlock:
			scope = append(scope, user.ScopeEntry{Block: node.Ref(), Return: blockReturn(g, node)})
			cur = e.startOf(g, node, content.KindMessage)
		default:
			entries = append(entries, user.EntryFromNode(node, now, previous))
			msgs = append(msgs, outboundFromNode(node))
			previous = node.ID
			if node.NeedsInput() || node.ID == e.settings.EndOfConversationID {
				cur = nil
				break
			}
			cur, scope = e.continueFrom(g, positionOfNode(node), scope)
		}
	}

	return Walk{
		Outbound: Interleave(msgs),
		Patch:    user.Patch{History: entries, BlockScope: &scope},
	}
}

// startOf returns the entry child of parent. An explicit start flag wins;
// otherwise the first child in authoring order is used.
func (e *Engine) startOf(g *content.Graph, parent *content.Node, kinds ...content.Kind) *Action {
	if starts := g.StartNodes(parent.ID, kinds...); len(starts) > 0 {
		r := starts[0].Ref()
		return &r
	}
	for _, k := range kinds {
		if children := g.Children(k, parent.ID); len(children) > 0 {
			r := children[0].Ref()
			return &r
		}
	}
	e.log.Warn().Str("node_id", parent.ID).Str("node_type", string(parent.Type)).Msg("container has no children")
	return nil
}

// pickSeries chooses the next series of a collection, preferring ones the
// user has not been through.
func (e *Engine) pickSeries(g *content.Graph, col *content.Node, seen map[string]bool) *content.Node {
	all := g.Children(content.KindSeries, col.ID)
	if len(all) == 0 {
		return nil
	}
	candidates := make([]*content.Node, 0, len(all))
	for _, s := range all {
		if !seen[s.ID] {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		candidates = all
	}
	if col.Rule == content.SelectionRandom {
		return candidates[e.intn(len(candidates))]
	}
	return candidates[0]
}

// seenSeries lists the series whose blocks appear in the user's history.
func seenSeries(g *content.Graph, u user.User) map[string]bool {
	seen := map[string]bool{}
	for _, h := range u.History {
		if h.Parent == nil || h.Parent.Type != content.KindBlock {
			continue
		}
		blk, ok := g.Get(*h.Parent)
		if !ok || blk.Parent == nil || blk.Parent.Type != content.KindSeries {
			continue
		}
		seen[blk.Parent.ID] = true
	}
	return seen
}
