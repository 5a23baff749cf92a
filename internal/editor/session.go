// Package editor wires one flow's store, branch-consistency engine and DSL
// document into the editing session the HTTP layer talks to.
package editor

import (
	"encoding/json"
	"fmt"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/dsl"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/naming"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/reconcile"
)

// Session owns the mutable state of one open flow. All operations are
// synchronous; the canvas collaborator calls them in response to user
// gestures and re-reads the store afterwards.
type Session struct {
	flowID  string
	store   *graph.Store
	engine  *reconcile.Engine
	catalog *operator.Catalog
	doc     *dsl.Document
}

// NewSession creates an empty session for a flow.
func NewSession(flowID string, catalog *operator.Catalog) *Session {
	store := graph.NewStore(catalog)
	return &Session{
		flowID:  flowID,
		store:   store,
		engine:  reconcile.New(store, catalog),
		catalog: catalog,
		doc:     dsl.NewDocument(),
	}
}

// FlowID returns the id of the flow this session edits.
func (s *Session) FlowID() string { return s.flowID }

// Store exposes the underlying graph store (queries and subscriptions).
func (s *Session) Store() *graph.Store { return s.store }

// AddOperator drops a fresh node of the given kind onto the canvas, with
// the catalog's default form and a collision-free display name. Dropping
// an Iteration container also seeds its entry node as a child.
func (s *Session) AddOperator(kind operator.Kind, pos graph.Position, parentID string) (*graph.Node, error) {
	entry := s.catalog.Lookup(kind)
	if entry == nil {
		return nil, fmt.Errorf("unknown operator kind %q", kind)
	}
	n := &graph.Node{
		ID:       naming.NodeID(kind),
		Type:     graph.RenderType(kind),
		ParentID: parentID,
		Position: pos,
		Data: graph.NodeData{
			Label: kind,
			Name:  naming.UniqueName(string(kind), s.names()),
			Form:  s.catalog.DefaultForm(kind),
		},
	}
	if !s.store.AddNode(n) {
		return nil, fmt.Errorf("node id collision for %q", n.ID)
	}
	if entry.Container {
		start := &graph.Node{
			ID:       naming.NodeID(operator.KindIterationStart),
			Type:     graph.RenderType(operator.KindIterationStart),
			ParentID: n.ID,
			Position: graph.Position{X: pos.X + 40, Y: pos.Y + 40},
			Data: graph.NodeData{
				Label: operator.KindIterationStart,
				Name:  naming.UniqueName(string(operator.KindIterationStart), s.names()),
				Form:  s.catalog.DefaultForm(operator.KindIterationStart),
			},
		}
		s.store.AddNode(start)
	}
	return n, nil
}

// Duplicate deep-clones a node (and, for containers, its children).
func (s *Session) Duplicate(id string) *graph.Node {
	return s.store.DuplicateNode(id)
}

// DeleteNode removes a node with full cascade.
func (s *Session) DeleteNode(id string) bool {
	ok := s.store.DeleteNode(id)
	if ok {
		// Branch forms elsewhere may have pointed at the deleted node.
		s.engine.SyncAll()
	}
	return ok
}

// Connect applies a validated UI connection.
func (s *Session) Connect(conn graph.Connection) (*graph.Edge, bool) {
	return s.engine.Connect(conn)
}

// Disconnect removes an edge.
func (s *Session) Disconnect(edgeID string) bool {
	return s.engine.Disconnect(edgeID)
}

// IsValidConnection is the predicate the canvas calls during a drag.
func (s *Session) IsValidConnection(conn graph.Connection) bool {
	return s.engine.IsValidConnection(conn)
}

// UpdateForm merges values into a node's form and reconciles branch edges.
func (s *Session) UpdateForm(id string, values map[string]any, path ...any) bool {
	ok := s.store.UpdateNodeForm(id, values, path...)
	if ok {
		s.engine.SyncAll()
	}
	return ok
}

// Compile refreshes and returns the session's DSL document from the
// current graph. This is the synchronous compile-now entry point the
// autosave timer and the save handler call.
func (s *Session) Compile() *dsl.Document {
	s.doc.Apply(s.store.Snapshot(), s.catalog)
	return s.doc
}

// LoadDocument seeds the session from a persisted DSL document. The
// editor-facing graph is used when present; otherwise the component map is
// decompiled. A reconcile pass afterwards restores branch edges implied by
// forms (including handles the adjacency lists do not store).
func (s *Session) LoadDocument(doc *dsl.Document) {
	if doc == nil {
		doc = dsl.NewDocument()
	}
	s.doc = doc
	var g *graph.Graph
	if doc.Graph != nil && len(doc.Graph.Nodes) > 0 {
		g = doc.Graph
	} else {
		g = dsl.Decompile(doc.Components, s.catalog)
	}
	s.store.Seed(g)
	s.engine.SyncAll()
}

// ImportGraph replaces the session's graph with an uploaded document.
// Validation failures leave the store untouched.
func (s *Session) ImportGraph(data []byte) error {
	g, err := dsl.ParseGraphJSON(data)
	if err != nil {
		return err
	}
	s.store.Seed(g)
	s.engine.SyncAll()
	return nil
}

// ExportGraph serializes the current graph for download, named after the
// flow's title.
func (s *Session) ExportGraph(title string) (data []byte, filename string, err error) {
	data, err = json.MarshalIndent(s.store.Snapshot(), "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("export flow %s: %w", s.flowID, err)
	}
	return data, dsl.ExportFilename(title), nil
}

func (s *Session) names() []string {
	nodes := s.store.Nodes()
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Data.Name)
	}
	return names
}
