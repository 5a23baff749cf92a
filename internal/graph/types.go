// Package graph holds the canonical in-memory representation of a flow:
// nodes, edges, and the Store every other component reads and writes
// through.
package graph

import (
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// Position is a canvas coordinate. The editor core never does layout; it
// only offsets positions on duplication and zeroes them on decompilation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the operator payload of a node. Label is the operator kind;
// Name is the human-facing display name, unique among siblings; Form is
// the kind-specific parameter bag.
type NodeData struct {
	Label operator.Kind  `json:"label"`
	Name  string         `json:"name"`
	Form  map[string]any `json:"form"`
}

// Node is a vertex on the canvas. ParentID is set for children of an
// Iteration container (one level deep, no nesting).
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	ParentID string   `json:"parentId,omitempty"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Edge is a directed connection. SourceHandle names the output anchor on
// branching sources (a categorize branch name, "yes"/"no", "Case n", or
// "else"); non-branching sources leave it empty.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Key returns the identity triple used for set comparisons. Two edges with
// equal keys are the same logical connection.
func (e *Edge) Key() string {
	return e.Source + "\x00" + e.Target + "\x00" + e.SourceHandle
}

// Graph is the unit of persistence and exchange, embedded in the DSL
// document as "graph".
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Connection is a proposed edge coming from a UI gesture, before
// validation.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Change describes a single store mutation handed to subscribers.
type Change struct {
	Op     string
	NodeID string
	EdgeID string
}

// Render types consumed by the canvas collaborator. Unmapped kinds fall
// back to the generic node type.
const renderTypeDefault = "ragNode"

var renderTypes = map[operator.Kind]string{
	operator.KindBegin:      "beginNode",
	operator.KindCategorize: "categorizeNode",
	operator.KindRelevant:   "relevantNode",
	operator.KindSwitch:     "logicNode",
	operator.KindIteration:  "groupNode",
	operator.KindNote:       "noteNode",
}

// RenderType returns the canvas node type for an operator kind.
func RenderType(kind operator.Kind) string {
	if t, ok := renderTypes[kind]; ok {
		return t
	}
	return renderTypeDefault
}
