package reconcile_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/reconcile"
)

type fixture struct {
	store  *graph.Store
	engine *reconcile.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := operator.DefaultCatalog()
	store := graph.NewStore(cat)
	return &fixture{store: store, engine: reconcile.New(store, cat)}
}

func (f *fixture) add(t *testing.T, id string, kind operator.Kind, form map[string]any) {
	t.Helper()
	if form == nil {
		form = map[string]any{}
	}
	ok := f.store.AddNode(&graph.Node{
		ID:   id,
		Type: graph.RenderType(kind),
		Data: graph.NodeData{Label: kind, Name: id, Form: form},
	})
	require.True(t, ok)
}

func outgoing(f *fixture, id string) map[string]string {
	out := make(map[string]string)
	for _, e := range f.store.OutgoingEdges(id) {
		out[e.SourceHandle] = e.Target
	}
	return out
}

func TestSyncAllDerivesEdgesFromForms(t *testing.T) {
	f := newFixture(t)
	f.add(t, "cat", operator.KindCategorize, map[string]any{
		operator.FieldCategoryDescription: map[string]any{
			"good": map[string]any{operator.FieldTo: "a"},
			"bad":  map[string]any{operator.FieldTo: "b"},
		},
	})
	f.add(t, "rel", operator.KindRelevant, map[string]any{
		operator.FieldYes: "a",
		operator.FieldNo:  "",
	})
	f.add(t, "sw", operator.KindSwitch, map[string]any{
		operator.FieldConditions: []any{
			map[string]any{operator.FieldTo: "b"},
			map[string]any{operator.FieldTo: "a"},
		},
		operator.FieldElse: "b",
	})
	f.add(t, "a", operator.KindGenerate, nil)
	f.add(t, "b", operator.KindMessage, nil)

	f.engine.SyncAll()

	assert.Equal(t, map[string]string{"good": "a", "bad": "b"}, outgoing(f, "cat"))
	assert.Equal(t, map[string]string{"yes": "a"}, outgoing(f, "rel"))
	assert.Equal(t, map[string]string{"Case 1": "b", "Case 2": "a", "else": "b"}, outgoing(f, "sw"))
}

func TestSyncAllIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.add(t, "rel", operator.KindRelevant, map[string]any{
		operator.FieldYes: "a",
		operator.FieldNo:  "b",
	})
	f.add(t, "a", operator.KindGenerate, nil)
	f.add(t, "b", operator.KindMessage, nil)

	f.engine.SyncAll()
	before := f.store.MutationCount()
	f.engine.SyncAll()
	f.engine.SyncAll()
	assert.Equal(t, before, f.store.MutationCount(), "resyncing an unchanged store must not mutate")
}

func TestSyncSkipsDanglingTargets(t *testing.T) {
	f := newFixture(t)
	f.add(t, "rel", operator.KindRelevant, map[string]any{
		operator.FieldYes: "gone",
		operator.FieldNo:  "b",
	})
	f.add(t, "b", operator.KindMessage, nil)

	f.engine.SyncAll()

	assert.Equal(t, map[string]string{"no": "b"}, outgoing(f, "rel"))
	// The dangling value is preserved, not scrubbed.
	assert.Equal(t, "gone", f.store.Node("rel").Data.Form[operator.FieldYes])
}

func TestConnectWritesFormRef(t *testing.T) {
	f := newFixture(t)
	f.add(t, "cat", operator.KindCategorize, map[string]any{
		operator.FieldCategoryDescription: map[string]any{
			"good": map[string]any{operator.FieldTo: ""},
		},
	})
	f.add(t, "rel", operator.KindRelevant, map[string]any{
		operator.FieldYes: "", operator.FieldNo: "",
	})
	f.add(t, "sw", operator.KindSwitch, map[string]any{
		operator.FieldConditions: []any{map[string]any{operator.FieldTo: ""}},
		operator.FieldElse:       "",
	})
	f.add(t, "a", operator.KindGenerate, nil)

	_, ok := f.engine.Connect(graph.Connection{Source: "cat", Target: "a", SourceHandle: "good"})
	require.True(t, ok)
	cd := f.store.Node("cat").Data.Form[operator.FieldCategoryDescription].(map[string]any)
	assert.Equal(t, "a", cd["good"].(map[string]any)[operator.FieldTo])

	_, ok = f.engine.Connect(graph.Connection{Source: "rel", Target: "a", SourceHandle: "no"})
	require.True(t, ok)
	assert.Equal(t, "a", f.store.Node("rel").Data.Form[operator.FieldNo])

	_, ok = f.engine.Connect(graph.Connection{Source: "sw", Target: "a", SourceHandle: "Case 1"})
	require.True(t, ok)
	conds := f.store.Node("sw").Data.Form[operator.FieldConditions].([]any)
	assert.Equal(t, "a", conds[0].(map[string]any)[operator.FieldTo])

	_, ok = f.engine.Connect(graph.Connection{Source: "sw", Target: "a", SourceHandle: "else"})
	require.True(t, ok)
	assert.Equal(t, "a", f.store.Node("sw").Data.Form[operator.FieldElse])
}

func TestConnectReplacesSameAnchor(t *testing.T) {
	f := newFixture(t)
	f.add(t, "rel", operator.KindRelevant, map[string]any{
		operator.FieldYes: "", operator.FieldNo: "",
	})
	f.add(t, "a", operator.KindGenerate, nil)
	f.add(t, "b", operator.KindMessage, nil)

	_, ok := f.engine.Connect(graph.Connection{Source: "rel", Target: "a", SourceHandle: "yes"})
	require.True(t, ok)
	_, ok = f.engine.Connect(graph.Connection{Source: "rel", Target: "b", SourceHandle: "yes"})
	require.True(t, ok)

	edges := f.store.OutgoingEdges("rel")
	require.Len(t, edges, 1, "reconnecting the same anchor replaces, never doubles")
	assert.Equal(t, "b", edges[0].Target)
	assert.Equal(t, "b", f.store.Node("rel").Data.Form[operator.FieldYes])
}

func TestIsValidConnectionRejections(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", operator.KindBegin, nil)
	f.add(t, "b", operator.KindAnswer, nil)
	f.add(t, "note", operator.KindNote, nil)

	assert.False(t, f.engine.IsValidConnection(graph.Connection{Source: "a", Target: "a"}), "self-loop")
	assert.False(t, f.engine.IsValidConnection(graph.Connection{Source: "a", Target: "ghost"}), "unknown node")
	assert.False(t, f.engine.IsValidConnection(graph.Connection{Source: "b", Target: "a"}), "nothing targets Begin")
	assert.False(t, f.engine.IsValidConnection(graph.Connection{Source: "note", Target: "b"}), "notes connect to nothing")

	assert.True(t, f.engine.IsValidConnection(graph.Connection{Source: "a", Target: "b"}))
	_, ok := f.engine.Connect(graph.Connection{Source: "a", Target: "b"})
	require.True(t, ok)
	assert.False(t, f.engine.IsValidConnection(graph.Connection{Source: "a", Target: "b"}), "duplicate pair")
}

func TestDisconnectClearsForm(t *testing.T) {
	f := newFixture(t)
	f.add(t, "rel", operator.KindRelevant, map[string]any{
		operator.FieldYes: "", operator.FieldNo: "",
	})
	f.add(t, "a", operator.KindGenerate, nil)

	edge, ok := f.engine.Connect(graph.Connection{Source: "rel", Target: "a", SourceHandle: "yes"})
	require.True(t, ok)
	require.True(t, f.engine.Disconnect(edge.ID))

	assert.Empty(t, f.store.OutgoingEdges("rel"))
	assert.Equal(t, "", f.store.Node("rel").Data.Form[operator.FieldYes])
}

func TestFormEditThenSyncReplacesEdges(t *testing.T) {
	f := newFixture(t)
	f.add(t, "cat", operator.KindCategorize, map[string]any{
		operator.FieldCategoryDescription: map[string]any{
			"good": map[string]any{operator.FieldTo: "a"},
		},
	})
	f.add(t, "a", operator.KindGenerate, nil)
	f.add(t, "b", operator.KindMessage, nil)
	f.engine.SyncAll()
	require.Equal(t, map[string]string{"good": "a"}, outgoing(f, "cat"))

	// Retarget the branch through the form, then resync: the edge follows.
	require.True(t, f.store.UpdateNodeForm("cat",
		map[string]any{operator.FieldTo: "b"},
		operator.FieldCategoryDescription, "good"))
	f.engine.SyncNode("cat")

	assert.Equal(t, map[string]string{"good": "b"}, outgoing(f, "cat"))
	assert.Len(t, f.store.Edges(), 1)
}

func TestCategorizeEdgesAreOrderedByBranchName(t *testing.T) {
	f := newFixture(t)
	f.add(t, "cat", operator.KindCategorize, map[string]any{
		operator.FieldCategoryDescription: map[string]any{
			"zeta":  map[string]any{operator.FieldTo: "a"},
			"alpha": map[string]any{operator.FieldTo: "b"},
		},
	})
	f.add(t, "a", operator.KindGenerate, nil)
	f.add(t, "b", operator.KindMessage, nil)

	f.engine.SyncAll()

	handles := []string{}
	for _, e := range f.store.OutgoingEdges("cat") {
		handles = append(handles, e.SourceHandle)
	}
	sorted := append([]string(nil), handles...)
	sort.Strings(sorted)
	assert.Equal(t, sorted, handles, "branch order is deterministic regardless of map iteration")
}
