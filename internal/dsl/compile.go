package dsl

import (
	"time"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/metrics"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// Compile flattens a graph into the component map the execution backend
// runs: one entry per node keyed by node id, with the form stripped of
// editor-only fields and edges expanded into deduplicated id-only
// adjacency lists. The output is deterministic for a given graph.
func Compile(g *graph.Graph, cat *operator.Catalog) ComponentMap {
	start := time.Now()
	out := make(ComponentMap, len(g.Nodes))

	for _, n := range g.Nodes {
		out[n.ID] = &Component{
			Obj: ComponentObj{
				ComponentName: n.Data.Label,
				Params:        stripUselessFields(cat, n.Data.Label, n.Data.Form),
			},
			Downstream: []string{},
			Upstream:   []string{},
		}
	}

	seenDown := make(map[string]bool)
	seenUp := make(map[string]bool)
	for _, e := range g.Edges {
		src, okS := out[e.Source]
		dst, okT := out[e.Target]
		if !okS || !okT {
			// An edge with a missing endpoint cannot be executed; drop it.
			continue
		}
		if k := e.Source + "\x00" + e.Target; !seenDown[k] {
			seenDown[k] = true
			src.Downstream = append(src.Downstream, e.Target)
		}
		if k := e.Target + "\x00" + e.Source; !seenUp[k] {
			seenUp[k] = true
			dst.Upstream = append(dst.Upstream, e.Source)
		}
	}

	metrics.Compiles.Inc()
	metrics.CompileDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return out
}

// stripUselessFields deep-copies form and removes the fields that exist
// only to drive the editor. Which fields are useless is catalog data per
// kind, never a global list.
func stripUselessFields(cat *operator.Catalog, kind operator.Kind, form map[string]any) map[string]any {
	params := operator.CloneForm(form)
	for _, f := range cat.UselessFields(kind) {
		delete(params, f)
	}
	return params
}
