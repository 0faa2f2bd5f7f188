package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Conversations: []Node{
			{ID: "intro", IsLive: true},
			{ID: "c1", IsLive: true},
			{ID: "c2", IsLive: false},
		},
		Collections: []Node{
			{ID: "col1", Parent: &Ref{ID: "c1", Type: KindConversation}, Next: &Ref{ID: "m9", Type: KindMessage}},
		},
		Series: []Node{
			{ID: "s1", Parent: &Ref{ID: "col1", Type: KindCollection}},
		},
		Blocks: []Node{
			{ID: "b1", Parent: &Ref{ID: "s1", Type: KindSeries}, Start: true},
		},
		Messages: []Node{
			{ID: "m1", Parent: &Ref{ID: "c1", Type: KindConversation}, Start: true},
			{ID: "m2", Parent: &Ref{ID: "b1", Type: KindBlock}, Start: true},
			{ID: "m2", Text: "duplicate"},
			{ID: ""},
		},
	}
}

func TestNewGraph_IndexesByKind(t *testing.T) {
	g := NewGraph(testSnapshot())

	n, ok := g.Get(Ref{ID: "m1", Type: KindMessage})
	require.True(t, ok)
	assert.Equal(t, KindMessage, n.Type)

	_, ok = g.Get(Ref{ID: "m1", Type: KindBlock})
	assert.False(t, ok, "lookups are keyed by type as well as id")

	assert.Len(t, g.All(KindMessage), 2)
	m2, _ := g.Message("m2")
	assert.Empty(t, m2.Text, "first node wins on duplicate ids")
}

func TestGraph_MustGet(t *testing.T) {
	g := NewGraph(testSnapshot())
	_, err := g.MustGet(Ref{ID: "missing", Type: KindMessage})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestGraph_StartNodesAndLive(t *testing.T) {
	g := NewGraph(testSnapshot())

	starts := g.StartNodes("c1", KindMessage, KindCollection)
	require.Len(t, starts, 1)
	assert.Equal(t, "m1", starts[0].ID)

	live := g.LiveConversations("intro")
	require.Len(t, live, 1)
	assert.Equal(t, "c1", live[0].ID)
}

func TestGraph_Outermost(t *testing.T) {
	g := NewGraph(testSnapshot())
	m2, _ := g.Message("m2")

	top := g.Outermost(m2)
	assert.Equal(t, "col1", top.ID)
	assert.Equal(t, "m9", top.Next.ID)

	m1, _ := g.Message("m1")
	assert.Equal(t, "m1", g.Outermost(m1).ID, "conversation parents are not containers")
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		want Directive
	}{
		{"valid", `{"id":"m2","type":"message"}`, true, Directive{ID: "m2", Type: KindMessage}},
		{"back to conversation", `{"type":"backToConversation"}`, true, Directive{Type: KindBackToConversation}},
		{"empty", "", false, Directive{}},
		{"garbage", "not-json", false, Directive{}},
		{"empty object", "{}", false, Directive{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodePayload(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, Directive{ID: "x", Type: KindBlock}, mustDecode(t, EncodePayload(Directive{ID: "x", Type: KindBlock})))
}

func mustDecode(t *testing.T, raw string) Directive {
	t.Helper()
	d, ok := DecodePayload(raw)
	require.True(t, ok)
	return d
}
