package operator

import (
	"fmt"
	"sync"
)

// Entry is everything the editor core knows about one operator kind.
// It is configuration, not logic: the compiler, decompiler and the
// branch-consistency engine all dispatch on this table instead of
// switching on kind strings.
type Entry struct {
	Kind          Kind
	Branch        BranchKind
	Container     bool     // owns children via parentId (Iteration)
	DragHandle    string   // restricted drag handle selector, empty for whole-node drag
	DefaultForm   map[string]any
	UselessFields []string // editor-only fields stripped before compilation
}

// Catalog maps operator kinds to their entries.
// Safe for concurrent reads; Register should only be called at startup.
type Catalog struct {
	mu         sync.RWMutex
	entries    map[Kind]*Entry
	restricted map[Kind]map[Kind]bool // source kind -> forbidden target kinds
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entries:    make(map[Kind]*Entry),
		restricted: make(map[Kind]map[Kind]bool),
	}
}

// Register adds an entry. Panics on duplicate kind to surface
// misconfiguration early.
func (c *Catalog) Register(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[e.Kind]; exists {
		panic(fmt.Sprintf("operator catalog: duplicate kind %q", e.Kind))
	}
	c.entries[e.Kind] = e
}

// Lookup returns the entry for kind, or nil if the kind is unknown.
func (c *Catalog) Lookup(kind Kind) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[kind]
}

// Kinds returns all registered kinds.
func (c *Catalog) Kinds() []Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Kind, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}

// Branch returns the branch shape for kind (BranchNone for unknown kinds).
func (c *Catalog) Branch(kind Kind) BranchKind {
	if e := c.Lookup(kind); e != nil {
		return e.Branch
	}
	return BranchNone
}

// DefaultForm returns a fresh deep copy of the kind's initial form,
// so callers can mutate it freely.
func (c *Catalog) DefaultForm(kind Kind) map[string]any {
	e := c.Lookup(kind)
	if e == nil || e.DefaultForm == nil {
		return map[string]any{}
	}
	return CloneForm(e.DefaultForm)
}

// UselessFields returns the editor-only field names stripped from the
// kind's form before it is serialized into the DSL.
func (c *Catalog) UselessFields(kind Kind) []string {
	if e := c.Lookup(kind); e != nil {
		return e.UselessFields
	}
	return nil
}

// Forbid records that edges from src may not target dst.
func (c *Catalog) Forbid(src, dst Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restricted[src] == nil {
		c.restricted[src] = make(map[Kind]bool)
	}
	c.restricted[src][dst] = true
}

// Forbidden reports whether an edge src -> dst is in the restricted-pairs
// table.
func (c *Catalog) Forbidden(src, dst Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.restricted[src][dst]
}

// CloneForm deep-copies a form by structural recursion. Forms are built
// from JSON-shaped values only (maps, slices, scalars), which is also what
// keeps them serializable into the DSL.
func CloneForm(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneForm(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		// Scalars (string/bool/float64/int/nil) are immutable.
		return v
	}
}
