package dsl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
)

// ParseGraphJSON validates and decodes an uploaded graph document. The
// document must be a JSON object with a "nodes" array; anything else is
// rejected with an error the UI can surface, and the caller's store is
// left untouched (all-or-nothing import).
func ParseGraphJSON(data []byte) (*graph.Graph, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("import: file is not a JSON object: %w", err)
	}
	nodes, ok := raw["nodes"]
	if !ok {
		return nil, fmt.Errorf("import: document has no \"nodes\" field")
	}
	if t := firstToken(nodes); t != '[' {
		return nil, fmt.Errorf("import: \"nodes\" must be an array")
	}
	var g graph.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("import: malformed graph: %w", err)
	}
	if g.Edges == nil {
		g.Edges = []*graph.Edge{}
	}
	return &g, nil
}

// ExportFilename derives the download filename for a flow from its title.
func ExportFilename(title string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "flow"
	}
	// Strip path separators and other characters that break downloads.
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name + ".json"
}

func firstToken(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
