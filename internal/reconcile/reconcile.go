// Package reconcile keeps the branch targets encoded in operator forms and
// the edge set mutually derivable, in both directions, without feedback
// loops. Categorize, Relevant and Switch store their downstream targets
// inside the form; everything else only exists as edges.
package reconcile

import (
	"sort"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/metrics"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/naming"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// Engine is the branch-consistency engine for one store. It is purely
// synchronous: callers invoke it after mutations instead of relying on any
// render cycle, which keeps it testable headlessly.
type Engine struct {
	store   *graph.Store
	catalog *operator.Catalog
}

// New creates an Engine over a store and its catalog.
func New(store *graph.Store, catalog *operator.Catalog) *Engine {
	return &Engine{store: store, catalog: catalog}
}

// SyncAll recomputes the outgoing edge set of every branching node from its
// form and applies only actual diffs. Running it twice on an unchanged
// store is a no-op, which is what breaks the form/edge feedback loop.
func (e *Engine) SyncAll() {
	for _, n := range e.store.Nodes() {
		if e.catalog.Branch(n.Data.Label) != operator.BranchNone {
			e.syncNode(n)
		}
	}
	metrics.ReconcilePasses.Inc()
}

// SyncNode runs the form-to-edges direction for a single node.
func (e *Engine) SyncNode(id string) {
	n := e.store.Node(id)
	if n == nil || e.catalog.Branch(n.Data.Label) == operator.BranchNone {
		return
	}
	e.syncNode(n)
}

func (e *Engine) syncNode(n *graph.Node) {
	e.store.SetEdgesForNode(n.ID, e.desiredEdges(n))
}

// desiredEdges derives the full outgoing edge set a branching node's form
// implies. Branch fields pointing at nodes that no longer exist produce no
// edge (the dangling value itself is left alone).
func (e *Engine) desiredEdges(n *graph.Node) []*graph.Edge {
	form := n.Data.Form
	var out []*graph.Edge
	add := func(handle, target string) {
		if target == "" || e.store.Node(target) == nil {
			return
		}
		out = append(out, &graph.Edge{Source: n.ID, Target: target, SourceHandle: handle})
	}

	switch e.catalog.Branch(n.Data.Label) {
	case operator.BranchCategorize:
		cd, _ := form[operator.FieldCategoryDescription].(map[string]any)
		names := make([]string, 0, len(cd))
		for name := range cd {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if b, ok := cd[name].(map[string]any); ok {
				add(name, str(b[operator.FieldTo]))
			}
		}
	case operator.BranchRelevant:
		add(naming.HandleYes, str(form[operator.FieldYes]))
		add(naming.HandleNo, str(form[operator.FieldNo]))
	case operator.BranchSwitch:
		conds, _ := form[operator.FieldConditions].([]any)
		for i, c := range conds {
			if cm, ok := c.(map[string]any); ok {
				add(naming.BranchHandle(i), str(cm[operator.FieldTo]))
			}
		}
		add(naming.HandleElse, str(form[operator.FieldElse]))
	}
	return out
}

// Connect validates a UI connection gesture and applies it. For a branching
// source the edge's target is written back into the form field its handle
// addresses; a stale edge on the same anchor is replaced, never doubled.
func (e *Engine) Connect(conn graph.Connection) (*graph.Edge, bool) {
	if !e.IsValidConnection(conn) {
		return nil, false
	}
	edge, ok := e.store.AddEdge(conn)
	if !ok {
		return nil, false
	}
	e.writeFormRef(conn)
	return edge, true
}

// Disconnect removes an edge; the store clears the matching form field.
func (e *Engine) Disconnect(edgeID string) bool {
	return e.store.DeleteEdge(edgeID)
}

// IsValidConnection is the UI-facing predicate: false rejects the gesture
// visually. A connection is invalid when it is a self-loop, when either
// endpoint is unknown, when it duplicates an existing edge (for a branching
// source the anchor is part of the identity, so two handles may share a
// target), or when the kind pair is in the restricted table.
func (e *Engine) IsValidConnection(conn graph.Connection) bool {
	if conn.Source == "" || conn.Target == "" || conn.Source == conn.Target {
		metrics.ConnectionsRejected.WithLabelValues("self_loop").Inc()
		return false
	}
	srcKind := e.store.Kind(conn.Source)
	dstKind := e.store.Kind(conn.Target)
	if srcKind == "" || dstKind == "" {
		metrics.ConnectionsRejected.WithLabelValues("unknown_node").Inc()
		return false
	}
	branching := e.catalog.Branch(srcKind) != operator.BranchNone
	for _, ed := range e.store.OutgoingEdges(conn.Source) {
		if ed.Target == conn.Target && (!branching || ed.SourceHandle == conn.SourceHandle) {
			metrics.ConnectionsRejected.WithLabelValues("duplicate").Inc()
			return false
		}
	}
	if e.catalog.Forbidden(srcKind, dstKind) {
		metrics.ConnectionsRejected.WithLabelValues("restricted").Inc()
		return false
	}
	return true
}

// writeFormRef is the edges-to-form direction: store the connected target
// in the field addressed by the source handle.
func (e *Engine) writeFormRef(conn graph.Connection) {
	switch e.catalog.Branch(e.store.Kind(conn.Source)) {
	case operator.BranchCategorize:
		e.store.UpdateNodeForm(conn.Source,
			map[string]any{operator.FieldTo: conn.Target},
			operator.FieldCategoryDescription, conn.SourceHandle)
	case operator.BranchRelevant:
		if conn.SourceHandle == naming.HandleYes || conn.SourceHandle == naming.HandleNo {
			e.store.UpdateNodeForm(conn.Source, map[string]any{conn.SourceHandle: conn.Target})
		}
	case operator.BranchSwitch:
		if conn.SourceHandle == naming.HandleElse {
			e.store.UpdateNodeForm(conn.Source, map[string]any{operator.FieldElse: conn.Target})
			return
		}
		if idx, ok := naming.BranchHandleIndex(conn.SourceHandle); ok {
			e.store.UpdateNodeForm(conn.Source,
				map[string]any{operator.FieldTo: conn.Target},
				operator.FieldConditions, idx)
		}
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
