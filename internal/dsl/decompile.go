package dsl

import (
	"sort"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/metrics"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/naming"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// Decompile reconstructs a graph from a component map. Positions come back
// as the origin (layout is not persisted at this layer) and display names
// are regenerated from the operator kind. Names are a known lossy aspect
// of the format, not state to recover.
//
// Edges are synthesized from downstream lists only; upstream lists carry
// the same information from the other endpoint and synthesizing both would
// duplicate edges. A downstream reference to a component that does not
// exist produces no edge and is otherwise left alone.
func Decompile(components ComponentMap, cat *operator.Catalog) *graph.Graph {
	ids := make([]string, 0, len(components))
	for id := range components {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := &graph.Graph{Nodes: []*graph.Node{}, Edges: []*graph.Edge{}}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		comp := components[id]
		kind := comp.Obj.ComponentName
		form := comp.Obj.Params
		if form == nil {
			form = map[string]any{}
		}
		name := naming.UniqueName(string(kind), names)
		names = append(names, name)
		g.Nodes = append(g.Nodes, &graph.Node{
			ID:       id,
			Type:     graph.RenderType(kind),
			Position: graph.Position{},
			Data: graph.NodeData{
				Label: kind,
				Name:  name,
				Form:  operator.CloneForm(form),
			},
		})
	}

	for _, id := range ids {
		comp := components[id]
		for _, target := range comp.Downstream {
			if _, ok := components[target]; !ok {
				// Dangling reference, e.g. from hand-edited DSL. Skip the
				// edge; execution-time validation is the backend's problem.
				continue
			}
			g.Edges = append(g.Edges, &graph.Edge{
				ID:           "xy-edge__" + id + "-" + target,
				Source:       id,
				Target:       target,
				SourceHandle: recoverHandle(cat, comp, target),
			})
		}
	}

	metrics.Decompiles.Inc()
	return g
}

// recoverHandle infers which branch anchor an edge left from by matching
// the target against the source's form-encoded branch targets. Handles are
// not stored in adjacency lists, so this is the inverse of the form-to-edge
// derivation.
func recoverHandle(cat *operator.Catalog, comp *Component, target string) string {
	form := comp.Obj.Params
	switch cat.Branch(comp.Obj.ComponentName) {
	case operator.BranchCategorize:
		cd, _ := form[operator.FieldCategoryDescription].(map[string]any)
		names := make([]string, 0, len(cd))
		for name := range cd {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if b, ok := cd[name].(map[string]any); ok && str(b[operator.FieldTo]) == target {
				return name
			}
		}
	case operator.BranchRelevant:
		if str(form[operator.FieldYes]) == target {
			return naming.HandleYes
		}
		if str(form[operator.FieldNo]) == target {
			return naming.HandleNo
		}
	case operator.BranchSwitch:
		conds, _ := form[operator.FieldConditions].([]any)
		for i, c := range conds {
			if cm, ok := c.(map[string]any); ok && str(cm[operator.FieldTo]) == target {
				return naming.BranchHandle(i)
			}
		}
		if str(form[operator.FieldElse]) == target {
			return naming.HandleElse
		}
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
