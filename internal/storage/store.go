// Package storage persists flow documents. The editor core only depends on
// the FlowStore contract; the sqlite implementation ships with the server
// binary and other backends can be added without touching the core.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/dsl"
)

// ErrFlowNotFound is returned when a flow id does not exist.
var ErrFlowNotFound = errors.New("storage: flow not found")

// Flow is a stored flow: its identity plus the DSL document.
type Flow struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	DSL       *dsl.Document `json:"dsl,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FlowStore is the persistence contract for flows.
type FlowStore interface {
	Create(ctx context.Context, title string, doc *dsl.Document) (*Flow, error)
	Load(ctx context.Context, id string) (*Flow, error)
	Save(ctx context.Context, id, title string, doc *dsl.Document) error
	// List returns flow summaries (no DSL body).
	List(ctx context.Context) ([]*Flow, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
