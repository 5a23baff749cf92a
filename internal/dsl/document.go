// Package dsl defines the declarative document the execution backend
// consumes and the bidirectional transformations between it and the editor
// graph.
package dsl

import (
	"encoding/json"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// ComponentObj carries the execution-facing identity and parameters of one
// operator. Params is the node form minus the kind's editor-only fields.
type ComponentObj struct {
	ComponentName operator.Kind  `json:"component_name"`
	Params        map[string]any `json:"params"`
}

// Component is the execution-oriented dual of a node: adjacency lists
// instead of edges, no name, no position.
//
// Downstream and Upstream are id-only and deduplicated; two edges that
// differ only by source handle compile to a single adjacency entry. Handle
// detail lives exclusively in graph.edges.
type Component struct {
	Obj        ComponentObj `json:"obj"`
	Downstream []string     `json:"downstream"`
	Upstream   []string     `json:"upstream"`
}

// ComponentMap keys components by node id.
type ComponentMap map[string]*Component

// Document is the persisted DSL. Only Graph and Components are owned by
// the editor core; the remaining fields belong to the chat/execution
// subsystem and round-trip as opaque JSON.
type Document struct {
	Graph      *graph.Graph    `json:"graph"`
	Components ComponentMap    `json:"components"`
	Messages   json.RawMessage `json:"messages,omitempty"`
	Reference  json.RawMessage `json:"reference,omitempty"`
	History    json.RawMessage `json:"history,omitempty"`
	Path       json.RawMessage `json:"path,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
}

// NewDocument returns a Document with an empty graph and component map.
func NewDocument() *Document {
	return &Document{
		Graph:      &graph.Graph{Nodes: []*graph.Node{}, Edges: []*graph.Edge{}},
		Components: ComponentMap{},
	}
}

// Apply refreshes the editor-owned fields of the document from a graph
// snapshot, leaving the pass-through fields untouched.
func (d *Document) Apply(g *graph.Graph, cat *operator.Catalog) {
	d.Graph = g
	d.Components = Compile(g, cat)
}
