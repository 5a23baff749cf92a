package graph

import (
	"sync"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/metrics"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/naming"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// duplicateOffset keeps a duplicated node from landing exactly on top of
// the original.
const duplicateOffset = 30

// Store is the single source of truth for one editable flow graph. All
// mutations go through its typed operations so the invariants hold: unique
// node ids, no self-loops, one edge per plain (source,target) pair, one
// edge per branching (source,sourceHandle) anchor, and no edge without both
// endpoints.
//
// Operations are total over the current state: unknown ids are no-ops, not
// errors. Change subscribers are notified synchronously after the mutation
// completes and the lock is released, so a subscriber may call back into
// the store.
type Store struct {
	mu        sync.Mutex
	catalog   *operator.Catalog
	nodes     []*Node
	byID      map[string]*Node
	edges     []*Edge
	listeners []func(Change)
	mutations uint64
}

// NewStore creates an empty Store bound to an operator catalog. The
// catalog supplies the branch shape the store needs to keep form-encoded
// branch targets and edges from diverging on edge deletion.
func NewStore(catalog *operator.Catalog) *Store {
	return &Store{
		catalog: catalog,
		byID:    make(map[string]*Node),
	}
}

// OnChange registers a callback invoked after every mutation.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// MutationCount returns how many mutations have been applied. Reconcilers
// use it to prove a pass was a no-op.
func (s *Store) MutationCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations
}

// AddNode appends a node. The caller guarantees id uniqueness (ids come
// from naming.NodeID); a duplicate or empty id is rejected.
func (s *Store) AddNode(n *Node) bool {
	if n == nil || n.ID == "" {
		return false
	}
	s.mu.Lock()
	if _, exists := s.byID[n.ID]; exists {
		s.mu.Unlock()
		return false
	}
	if n.Data.Form == nil {
		n.Data.Form = map[string]any{}
	}
	s.nodes = append(s.nodes, n)
	s.byID[n.ID] = n
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("addNode").Inc()
	s.notify(Change{Op: "addNode", NodeID: n.ID})
	return true
}

// DeleteNode removes a node together with every edge touching it. For an
// Iteration container it also removes all children and their edges.
func (s *Store) DeleteNode(id string) bool {
	s.mu.Lock()
	n, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	doomed := map[string]bool{id: true}
	if s.isContainer(n) {
		for _, c := range s.nodes {
			if c.ParentID == id {
				doomed[c.ID] = true
			}
		}
	}

	kept := s.nodes[:0]
	for _, c := range s.nodes {
		if doomed[c.ID] {
			delete(s.byID, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	s.nodes = kept

	var changes []Change
	keptEdges := s.edges[:0]
	for _, e := range s.edges {
		if doomed[e.Source] || doomed[e.Target] {
			s.clearBranchRef(e)
			changes = append(changes, Change{Op: "deleteEdge", EdgeID: e.ID})
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	s.edges = keptEdges

	for nodeID := range doomed {
		changes = append(changes, Change{Op: "deleteNode", NodeID: nodeID})
	}
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("deleteNode").Inc()
	s.notify(changes...)
	return true
}

// DuplicateNode deep-clones a node: fresh id, collision-free name, offset
// position, and a structurally independent form (nested branch maps are
// copied, never shared). A container is duplicated recursively with every
// child re-parented onto the new container. Returns the new node, or nil
// for an unknown id.
func (s *Store) DuplicateNode(id string) *Node {
	s.mu.Lock()
	src, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}

	names := make([]string, 0, len(s.nodes))
	for _, n := range s.nodes {
		names = append(names, n.Data.Name)
	}

	clone := s.cloneNodeLocked(src, src.ParentID, names)
	names = append(names, clone.Data.Name)
	changes := []Change{{Op: "addNode", NodeID: clone.ID}}

	if s.isContainer(src) {
		// Snapshot first: cloning appends to s.nodes while we iterate.
		var children []*Node
		for _, c := range s.nodes {
			if c.ParentID == src.ID {
				children = append(children, c)
			}
		}
		for _, c := range children {
			cc := s.cloneNodeLocked(c, clone.ID, names)
			names = append(names, cc.Data.Name)
			changes = append(changes, Change{Op: "addNode", NodeID: cc.ID})
		}
	}
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("duplicateNode").Inc()
	s.notify(changes...)
	return clone
}

func (s *Store) cloneNodeLocked(src *Node, parentID string, names []string) *Node {
	clone := &Node{
		ID:       naming.NodeID(src.Data.Label),
		Type:     src.Type,
		ParentID: parentID,
		Position: Position{X: src.Position.X + duplicateOffset, Y: src.Position.Y + duplicateOffset},
		Data: NodeData{
			Label: src.Data.Label,
			Name:  naming.UniqueName(src.Data.Name, names),
			Form:  operator.CloneForm(src.Data.Form),
		},
	}
	s.nodes = append(s.nodes, clone)
	s.byID[clone.ID] = clone
	return clone
}

// AddEdge validates and appends a connection. Self-loops, missing
// endpoints, and duplicate plain (source,target) pairs are rejected. For a
// branching source, an existing edge from the same (source,sourceHandle)
// anchor is deleted first, so a drag-to-reconnect never leaves two edges on
// one anchor.
func (s *Store) AddEdge(conn Connection) (*Edge, bool) {
	if conn.Source == "" || conn.Target == "" || conn.Source == conn.Target {
		return nil, false
	}
	s.mu.Lock()
	src, okS := s.byID[conn.Source]
	_, okT := s.byID[conn.Target]
	if !okS || !okT {
		s.mu.Unlock()
		return nil, false
	}

	var changes []Change
	branching := s.catalog.Branch(src.Data.Label) != operator.BranchNone
	if branching {
		kept := s.edges[:0]
		for _, e := range s.edges {
			if e.Source == conn.Source && e.SourceHandle == conn.SourceHandle {
				s.clearBranchRef(e)
				changes = append(changes, Change{Op: "deleteEdge", EdgeID: e.ID})
				continue
			}
			kept = append(kept, e)
		}
		s.edges = kept
	}
	for _, e := range s.edges {
		if e.Source == conn.Source && e.Target == conn.Target && (!branching || e.SourceHandle == conn.SourceHandle) {
			s.mu.Unlock()
			return nil, false
		}
	}

	edge := &Edge{
		ID:           edgeID(conn),
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
	}
	s.edges = append(s.edges, edge)
	changes = append(changes, Change{Op: "addEdge", EdgeID: edge.ID})
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("addEdge").Inc()
	s.notify(changes...)
	return edge, true
}

// DeleteEdge removes an edge by id. When the edge left a branching anchor,
// the form field that pointed at the target is cleared so form data and
// topology do not diverge.
func (s *Store) DeleteEdge(id string) bool {
	s.mu.Lock()
	var removed *Edge
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.ID == id && removed == nil {
			removed = e
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	if removed == nil {
		s.mu.Unlock()
		return false
	}
	s.clearBranchRef(removed)
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("deleteEdge").Inc()
	s.notify(Change{Op: "deleteEdge", EdgeID: removed.ID})
	return true
}

// DeleteEdgesBySourceAndHandle removes every edge leaving the given anchor
// and clears the matching form fields. Returns how many edges were removed.
func (s *Store) DeleteEdgesBySourceAndHandle(source, sourceHandle string) int {
	s.mu.Lock()
	var changes []Change
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source == source && e.SourceHandle == sourceHandle {
			s.clearBranchRef(e)
			changes = append(changes, Change{Op: "deleteEdge", EdgeID: e.ID})
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	if len(changes) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("deleteEdge").Inc()
	s.notify(changes...)
	return len(changes)
}

// UpdateNodeForm merges values into the node's form. Without a path the
// merge is shallow at the top level; with a path (string keys and int
// indices) the merge happens at the addressed nested container, so editing
// one branch entry never clobbers its siblings.
func (s *Store) UpdateNodeForm(id string, values map[string]any, path ...any) bool {
	s.mu.Lock()
	n, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if n.Data.Form == nil {
		n.Data.Form = map[string]any{}
	}
	if !mergeAtPath(n.Data.Form, values, path) {
		s.mu.Unlock()
		return false
	}
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("updateForm").Inc()
	s.notify(Change{Op: "updateForm", NodeID: id})
	return true
}

// SetEdgesForNode replaces the node's outgoing edges with desired, but only
// when the (source,target,sourceHandle) set actually differs. The diff
// check is what keeps reactive consumers from re-triggering each other
// forever: an idempotent pass causes zero mutations.
func (s *Store) SetEdgesForNode(source string, desired []*Edge) bool {
	s.mu.Lock()
	current := make(map[string]bool)
	for _, e := range s.edges {
		if e.Source == source {
			current[e.Key()] = true
		}
	}
	want := make(map[string]bool, len(desired))
	for _, e := range desired {
		want[e.Key()] = true
	}
	if setsEqual(current, want) {
		s.mu.Unlock()
		return false
	}

	var changes []Change
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source == source {
			changes = append(changes, Change{Op: "deleteEdge", EdgeID: e.ID})
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	for _, e := range desired {
		if e.ID == "" {
			e.ID = edgeID(Connection{Source: e.Source, Target: e.Target, SourceHandle: e.SourceHandle, TargetHandle: e.TargetHandle})
		}
		s.edges = append(s.edges, e)
		changes = append(changes, Change{Op: "addEdge", EdgeID: e.ID})
	}
	s.mutations++
	s.mu.Unlock()

	metrics.GraphMutations.WithLabelValues("setEdges").Inc()
	s.notify(changes...)
	return true
}

// Node returns a node by id (nil if not found).
func (s *Store) Node(id string) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

// Kind returns the node's operator kind, or "" for an unknown id.
func (s *Store) Kind(id string) operator.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byID[id]; ok {
		return n.Data.Label
	}
	return ""
}

// ParentID returns the node's container id, or "" when the node is
// top-level or unknown.
func (s *Store) ParentID(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byID[id]; ok {
		return n.ParentID
	}
	return ""
}

// Nodes returns a copy of the node list.
func (s *Store) Nodes() []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns a copy of the edge list.
func (s *Store) Edges() []*Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// OutgoingEdges returns the edges leaving a node.
func (s *Store) OutgoingEdges(source string) []*Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Edge
	for _, e := range s.edges {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether any edge connects source to target, regardless of
// handle.
func (s *Store) HasEdge(source, target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

// Snapshot returns the current graph as a value suitable for compilation
// or export. The slices are copies; nodes and edges are shared.
func (s *Store) Snapshot() *Graph {
	return &Graph{Nodes: s.Nodes(), Edges: s.Edges()}
}

// Seed replaces the store content with a loaded graph. Used when a DSL
// document is decompiled or a graph JSON is imported; subscribers are not
// notified, since a load is not an edit.
func (s *Store) Seed(g *Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.edges = nil
	s.byID = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Data.Form == nil {
			n.Data.Form = map[string]any{}
		}
		s.nodes = append(s.nodes, n)
		s.byID[n.ID] = n
	}
	s.edges = append(s.edges, g.Edges...)
}

func (s *Store) isContainer(n *Node) bool {
	if e := s.catalog.Lookup(n.Data.Label); e != nil {
		return e.Container
	}
	return false
}

// clearBranchRef clears the form field that produced the edge being
// removed, addressed by the edge's source handle. Called with the lock
// held.
func (s *Store) clearBranchRef(e *Edge) {
	src, ok := s.byID[e.Source]
	if !ok || src.Data.Form == nil {
		return
	}
	clearBranchField(s.catalog.Branch(src.Data.Label), src.Data.Form, e.SourceHandle, e.Target)
}

func (s *Store) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.Lock()
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		for _, c := range changes {
			fn(c)
		}
	}
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func edgeID(c Connection) string {
	return "xy-edge__" + c.Source + c.SourceHandle + "-" + c.Target + c.TargetHandle
}
