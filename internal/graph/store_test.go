package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

func newStore(t *testing.T) *graph.Store {
	t.Helper()
	return graph.NewStore(operator.DefaultCatalog())
}

func node(id string, kind operator.Kind, name string, form map[string]any) *graph.Node {
	if form == nil {
		form = map[string]any{}
	}
	return &graph.Node{
		ID:   id,
		Type: graph.RenderType(kind),
		Data: graph.NodeData{Label: kind, Name: name, Form: form},
	}
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	s := newStore(t)

	require.True(t, s.AddNode(node("a", operator.KindBegin, "Begin", nil)))
	assert.False(t, s.AddNode(node("a", operator.KindAnswer, "Answer", nil)))
	assert.False(t, s.AddNode(nil))
	assert.Len(t, s.Nodes(), 1)
}

func TestQueriesReturnZeroValuesForUnknownIDs(t *testing.T) {
	s := newStore(t)

	assert.Nil(t, s.Node("ghost"))
	assert.Equal(t, operator.Kind(""), s.Kind("ghost"))
	assert.Equal(t, "", s.ParentID("ghost"))
	assert.False(t, s.DeleteNode("ghost"))
	assert.False(t, s.DeleteEdge("ghost"))
}

func TestDeleteNodeCascadesToContainerChildren(t *testing.T) {
	s := newStore(t)

	require.True(t, s.AddNode(node("C", operator.KindIteration, "Iteration", nil)))
	c1 := node("c1", operator.KindGenerate, "Generate", nil)
	c1.ParentID = "C"
	c2 := node("c2", operator.KindTemplate, "Template", nil)
	c2.ParentID = "C"
	require.True(t, s.AddNode(c1))
	require.True(t, s.AddNode(c2))
	require.True(t, s.AddNode(node("out", operator.KindAnswer, "Answer", nil)))

	_, ok := s.AddEdge(graph.Connection{Source: "c1", Target: "c2"})
	require.True(t, ok)
	_, ok = s.AddEdge(graph.Connection{Source: "c2", Target: "out"})
	require.True(t, ok)

	require.True(t, s.DeleteNode("C"))

	assert.Nil(t, s.Node("C"))
	assert.Nil(t, s.Node("c1"))
	assert.Nil(t, s.Node("c2"))
	assert.NotNil(t, s.Node("out"))
	assert.Empty(t, s.Edges(), "every edge touching the container's children must go")
}

func TestDuplicateNodeNamesAndDeepClone(t *testing.T) {
	s := newStore(t)

	form := map[string]any{
		operator.FieldCategoryDescription: map[string]any{
			"good": map[string]any{"description": "positive", operator.FieldTo: ""},
		},
	}
	require.True(t, s.AddNode(node("n", operator.KindCategorize, "Generate", form)))

	d1 := s.DuplicateNode("n")
	d2 := s.DuplicateNode("n")
	d3 := s.DuplicateNode("n")
	require.NotNil(t, d1)
	require.NotNil(t, d2)
	require.NotNil(t, d3)

	assert.Equal(t, "Generate (2)", d1.Data.Name)
	assert.Equal(t, "Generate (3)", d2.Data.Name)
	assert.Equal(t, "Generate (4)", d3.Data.Name)
	assert.NotEqual(t, "n", d1.ID)

	// Same structure, distinct references: mutating the copy's nested
	// branch map must not leak into the original.
	orig := s.Node("n").Data.Form
	assert.Equal(t, orig, d1.Data.Form)
	d1.Data.Form[operator.FieldCategoryDescription].(map[string]any)["good"].(map[string]any)[operator.FieldTo] = "x"
	assert.Equal(t, "",
		orig[operator.FieldCategoryDescription].(map[string]any)["good"].(map[string]any)[operator.FieldTo])
}

func TestDuplicateNodeOffsetsPosition(t *testing.T) {
	s := newStore(t)
	n := node("n", operator.KindGenerate, "Generate", nil)
	n.Position = graph.Position{X: 100, Y: 200}
	require.True(t, s.AddNode(n))

	d := s.DuplicateNode("n")
	require.NotNil(t, d)
	assert.Greater(t, d.Position.X, n.Position.X)
	assert.Greater(t, d.Position.Y, n.Position.Y)
}

func TestDuplicateContainerRemapsChildren(t *testing.T) {
	s := newStore(t)

	require.True(t, s.AddNode(node("C", operator.KindIteration, "Iteration", nil)))
	c1 := node("c1", operator.KindGenerate, "Generate", map[string]any{"prompt": "p"})
	c1.ParentID = "C"
	require.True(t, s.AddNode(c1))

	dup := s.DuplicateNode("C")
	require.NotNil(t, dup)

	var dupChild *graph.Node
	for _, n := range s.Nodes() {
		if n.ParentID == dup.ID {
			dupChild = n
		}
	}
	require.NotNil(t, dupChild, "container duplication must clone children")
	assert.Equal(t, operator.KindGenerate, dupChild.Data.Label)
	assert.Equal(t, "Generate (2)", dupChild.Data.Name)
	assert.Equal(t, "p", dupChild.Data.Form["prompt"])

	// The original child still belongs to the original container.
	assert.Equal(t, "C", s.Node("c1").ParentID)
}

func TestAddEdgeValidation(t *testing.T) {
	s := newStore(t)
	require.True(t, s.AddNode(node("a", operator.KindBegin, "Begin", nil)))
	require.True(t, s.AddNode(node("b", operator.KindAnswer, "Answer", nil)))

	_, ok := s.AddEdge(graph.Connection{Source: "a", Target: "a"})
	assert.False(t, ok, "self-loop")
	_, ok = s.AddEdge(graph.Connection{Source: "", Target: "b"})
	assert.False(t, ok, "empty source")
	_, ok = s.AddEdge(graph.Connection{Source: "a", Target: "ghost"})
	assert.False(t, ok, "missing target")

	_, ok = s.AddEdge(graph.Connection{Source: "a", Target: "b"})
	require.True(t, ok)
	_, ok = s.AddEdge(graph.Connection{Source: "a", Target: "b"})
	assert.False(t, ok, "duplicate plain (source,target) pair")
	assert.Len(t, s.Edges(), 1)
	assert.True(t, s.HasEdge("a", "b"))
	assert.False(t, s.HasEdge("b", "a"))
}

func TestAddEdgeReplacesBranchAnchor(t *testing.T) {
	s := newStore(t)
	form := map[string]any{operator.FieldYes: "a", operator.FieldNo: ""}
	require.True(t, s.AddNode(node("r", operator.KindRelevant, "Relevant", form)))
	require.True(t, s.AddNode(node("a", operator.KindGenerate, "Generate", nil)))
	require.True(t, s.AddNode(node("b", operator.KindMessage, "Message", nil)))

	_, ok := s.AddEdge(graph.Connection{Source: "r", Target: "a", SourceHandle: "yes"})
	require.True(t, ok)
	_, ok = s.AddEdge(graph.Connection{Source: "r", Target: "b", SourceHandle: "yes"})
	require.True(t, ok)

	edges := s.OutgoingEdges("r")
	require.Len(t, edges, 1, "one edge per branch anchor")
	assert.Equal(t, "b", edges[0].Target)
	// The stale form reference was cleared when its edge was replaced.
	assert.Equal(t, "", s.Node("r").Data.Form[operator.FieldYes])
}

func TestDeleteEdgeClearsBranchFormField(t *testing.T) {
	s := newStore(t)
	form := map[string]any{
		operator.FieldCategoryDescription: map[string]any{
			"good": map[string]any{operator.FieldTo: "x"},
			"bad":  map[string]any{operator.FieldTo: "y"},
		},
	}
	require.True(t, s.AddNode(node("c", operator.KindCategorize, "Categorize", form)))
	require.True(t, s.AddNode(node("x", operator.KindGenerate, "Generate", nil)))
	require.True(t, s.AddNode(node("y", operator.KindMessage, "Message", nil)))

	e, ok := s.AddEdge(graph.Connection{Source: "c", Target: "x", SourceHandle: "good"})
	require.True(t, ok)
	require.True(t, s.DeleteEdge(e.ID))

	cd := s.Node("c").Data.Form[operator.FieldCategoryDescription].(map[string]any)
	assert.Equal(t, "", cd["good"].(map[string]any)[operator.FieldTo])
	assert.Equal(t, "y", cd["bad"].(map[string]any)[operator.FieldTo], "sibling branches stay intact")
}

func TestDeleteEdgesBySourceAndHandle(t *testing.T) {
	s := newStore(t)
	form := map[string]any{operator.FieldYes: "a", operator.FieldNo: "b"}
	require.True(t, s.AddNode(node("r", operator.KindRelevant, "Relevant", form)))
	require.True(t, s.AddNode(node("a", operator.KindGenerate, "Generate", nil)))
	require.True(t, s.AddNode(node("b", operator.KindMessage, "Message", nil)))
	_, _ = s.AddEdge(graph.Connection{Source: "r", Target: "a", SourceHandle: "yes"})
	_, _ = s.AddEdge(graph.Connection{Source: "r", Target: "b", SourceHandle: "no"})

	assert.Equal(t, 1, s.DeleteEdgesBySourceAndHandle("r", "no"))
	assert.Equal(t, 0, s.DeleteEdgesBySourceAndHandle("r", "no"))
	assert.Equal(t, "", s.Node("r").Data.Form[operator.FieldNo])
	assert.Equal(t, "a", s.Node("r").Data.Form[operator.FieldYes])
}

func TestUpdateNodeFormShallowAndPathMerge(t *testing.T) {
	s := newStore(t)
	form := map[string]any{
		"prompt": "old",
		operator.FieldCategoryDescription: map[string]any{
			"good": map[string]any{"description": "d1", operator.FieldTo: "x"},
			"bad":  map[string]any{"description": "d2", operator.FieldTo: "y"},
		},
	}
	require.True(t, s.AddNode(node("c", operator.KindCategorize, "Categorize", form)))

	require.True(t, s.UpdateNodeForm("c", map[string]any{"prompt": "new"}))
	assert.Equal(t, "new", s.Node("c").Data.Form["prompt"])

	// Path merge touches one branch entry and leaves siblings alone.
	require.True(t, s.UpdateNodeForm("c",
		map[string]any{"description": "changed"},
		operator.FieldCategoryDescription, "good"))
	cd := s.Node("c").Data.Form[operator.FieldCategoryDescription].(map[string]any)
	assert.Equal(t, "changed", cd["good"].(map[string]any)["description"])
	assert.Equal(t, "x", cd["good"].(map[string]any)[operator.FieldTo])
	assert.Equal(t, "d2", cd["bad"].(map[string]any)["description"])

	// A missing key along the path is created.
	require.True(t, s.UpdateNodeForm("c",
		map[string]any{operator.FieldTo: "z"},
		operator.FieldCategoryDescription, "fresh"))
	assert.Equal(t, "z", cd["fresh"].(map[string]any)[operator.FieldTo])

	// An out-of-range index is a no-op.
	before := s.MutationCount()
	assert.False(t, s.UpdateNodeForm("c", map[string]any{"x": 1}, operator.FieldConditions, 5))
	assert.Equal(t, before, s.MutationCount())
}

func TestUpdateNodeFormIndexedPath(t *testing.T) {
	s := newStore(t)
	form := map[string]any{
		operator.FieldConditions: []any{
			map[string]any{operator.FieldTo: "a", "items": []any{}},
			map[string]any{operator.FieldTo: "b", "items": []any{}},
		},
		operator.FieldElse: "",
	}
	require.True(t, s.AddNode(node("sw", operator.KindSwitch, "Switch", form)))

	require.True(t, s.UpdateNodeForm("sw",
		map[string]any{operator.FieldTo: "c"},
		operator.FieldConditions, 1))
	conds := s.Node("sw").Data.Form[operator.FieldConditions].([]any)
	assert.Equal(t, "a", conds[0].(map[string]any)[operator.FieldTo])
	assert.Equal(t, "c", conds[1].(map[string]any)[operator.FieldTo])
}

func TestSetEdgesForNodeOnlyWritesOnDiff(t *testing.T) {
	s := newStore(t)
	require.True(t, s.AddNode(node("n", operator.KindRelevant, "Relevant", nil)))
	require.True(t, s.AddNode(node("a", operator.KindGenerate, "Generate", nil)))
	require.True(t, s.AddNode(node("b", operator.KindMessage, "Message", nil)))

	desired := []*graph.Edge{
		{Source: "n", Target: "a", SourceHandle: "yes"},
		{Source: "n", Target: "b", SourceHandle: "no"},
	}
	assert.True(t, s.SetEdgesForNode("n", desired))
	require.Len(t, s.OutgoingEdges("n"), 2)

	// Same set in a different order: no mutation.
	before := s.MutationCount()
	same := []*graph.Edge{
		{Source: "n", Target: "b", SourceHandle: "no"},
		{Source: "n", Target: "a", SourceHandle: "yes"},
	}
	assert.False(t, s.SetEdgesForNode("n", same))
	assert.Equal(t, before, s.MutationCount())

	// A real diff replaces the outgoing set.
	assert.True(t, s.SetEdgesForNode("n", []*graph.Edge{{Source: "n", Target: "a", SourceHandle: "yes"}}))
	assert.Len(t, s.OutgoingEdges("n"), 1)
}

func TestOnChangeNotifies(t *testing.T) {
	s := newStore(t)
	var ops []string
	s.OnChange(func(c graph.Change) { ops = append(ops, c.Op) })

	require.True(t, s.AddNode(node("a", operator.KindBegin, "Begin", nil)))
	require.True(t, s.AddNode(node("b", operator.KindAnswer, "Answer", nil)))
	_, ok := s.AddEdge(graph.Connection{Source: "a", Target: "b"})
	require.True(t, ok)

	assert.Equal(t, []string{"addNode", "addNode", "addEdge"}, ops)
}

func TestSeedDoesNotNotify(t *testing.T) {
	s := newStore(t)
	notified := 0
	s.OnChange(func(graph.Change) { notified++ })

	s.Seed(&graph.Graph{
		Nodes: []*graph.Node{node("a", operator.KindBegin, "Begin", nil)},
		Edges: []*graph.Edge{},
	})
	assert.Zero(t, notified, "loading is not an edit")
	assert.NotNil(t, s.Node("a"))
}
