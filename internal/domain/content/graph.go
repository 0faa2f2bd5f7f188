package content

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a reference does not resolve.
	ErrNodeNotFound = errors.New("content node not found")
	// ErrStartNodeMissing is returned when a container has no entry node.
	ErrStartNodeMissing = errors.New("start node missing")
)

type nodeKey struct {
	kind Kind
	id   string
}

// Graph is an immutable snapshot of the content graph with typed lookups.
// Nodes keep their authored order within each kind.
type Graph struct {
	index  map[nodeKey]*Node
	byKind map[Kind][]*Node
	media  []Attachment
}

// Snapshot groups the raw node lists a Graph is built from.
type Snapshot struct {
	Conversations []Node       `json:"conversations"`
	Collections   []Node       `json:"collections"`
	Series        []Node       `json:"series"`
	Blocks        []Node       `json:"blocks"`
	Messages      []Node       `json:"messages"`
	Media         []Attachment `json:"media,omitempty"`
}

// NewGraph indexes the snapshot. Nodes without an id are skipped and the
// first node wins on duplicate (type, id) pairs.
func NewGraph(s Snapshot) *Graph {
	g := &Graph{
		index:  make(map[nodeKey]*Node),
		byKind: make(map[Kind][]*Node),
		media:  s.Media,
	}
	add := func(kind Kind, nodes []Node) {
		for i := range nodes {
			n := nodes[i]
			if n.ID == "" {
				continue
			}
			// Lists are stored per kind, so the list wins over a stale type field.
			n.Type = kind
			key := nodeKey{kind: kind, id: n.ID}
			if _, exists := g.index[key]; exists {
				continue
			}
			g.index[key] = &n
			g.byKind[kind] = append(g.byKind[kind], &n)
		}
	}
	add(KindConversation, s.Conversations)
	add(KindCollection, s.Collections)
	add(KindSeries, s.Series)
	add(KindBlock, s.Blocks)
	add(KindMessage, s.Messages)
	return g
}

// Get resolves a reference.
func (g *Graph) Get(ref Ref) (*Node, bool) {
	if g == nil || ref.ID == "" {
		return nil, false
	}
	n, ok := g.index[nodeKey{kind: ref.Type, id: ref.ID}]
	return n, ok
}

// MustGet resolves a reference or returns ErrNodeNotFound.
func (g *Graph) MustGet(ref Ref) (*Node, error) {
	n, ok := g.Get(ref)
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", ref.Type, ref.ID, ErrNodeNotFound)
	}
	return n, nil
}

// Message looks up a message by id.
func (g *Graph) Message(id string) (*Node, bool) {
	return g.Get(Ref{ID: id, Type: KindMessage})
}

// All returns the nodes of one kind in authored order.
func (g *Graph) All(kind Kind) []*Node {
	if g == nil {
		return nil
	}
	return g.byKind[kind]
}

// Children returns nodes of the given kind whose parent is parentID.
func (g *Graph) Children(kind Kind, parentID string) []*Node {
	var out []*Node
	for _, n := range g.All(kind) {
		if n.Parent != nil && n.Parent.ID == parentID {
			out = append(out, n)
		}
	}
	return out
}

// StartNodes returns every node in kinds with parent parentID and start=true.
// More than one match is an authoring error the caller should report.
func (g *Graph) StartNodes(parentID string, kinds ...Kind) []*Node {
	var out []*Node
	for _, kind := range kinds {
		for _, n := range g.Children(kind, parentID) {
			if n.Start {
				out = append(out, n)
			}
		}
	}
	return out
}

// LiveConversations returns live conversations excluding the given id.
func (g *Graph) LiveConversations(excludeID string) []*Node {
	var out []*Node
	for _, c := range g.All(KindConversation) {
		if c.IsLive && c.ID != excludeID {
			out = append(out, c)
		}
	}
	return out
}

// Media returns the media library.
func (g *Graph) Media() []Attachment {
	if g == nil {
		return nil
	}
	return g.media
}

// Container returns the ancestor (collection, series or block) referenced by
// n.Parent, if any. Conversations are never returned.
func (g *Graph) Container(n *Node) (*Node, bool) {
	if n == nil || n.Parent.IsZero() {
		return nil, false
	}
	switch n.Parent.Type {
	case KindCollection, KindSeries, KindBlock:
		return g.Get(*n.Parent)
	}
	return nil, false
}

// Outermost walks the parent chain through blocks, series and collections
// and returns the top-most ancestor, or n itself when it has none.
func (g *Graph) Outermost(n *Node) *Node {
	item := n
	seen := map[nodeKey]bool{}
	for {
		parent, ok := g.Container(item)
		if !ok {
			return item
		}
		key := nodeKey{kind: parent.Type, id: parent.ID}
		if seen[key] {
			return item
		}
		seen[key] = true
		item = parent
	}
}
