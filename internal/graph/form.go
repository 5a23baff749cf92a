package graph

import (
	"github.com/gyaneshwarpardhi/flowcanvas/internal/naming"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// mergeAtPath merges values into the container addressed by path inside
// form. Path steps are string keys into maps and int indices into slices.
// Missing map keys are created on the way down; an out-of-range index or a
// non-container step makes the whole update a no-op.
func mergeAtPath(form map[string]any, values map[string]any, path []any) bool {
	target := any(form)
	for _, step := range path {
		switch st := step.(type) {
		case string:
			m, ok := target.(map[string]any)
			if !ok {
				return false
			}
			next, exists := m[st]
			if !exists || next == nil {
				created := map[string]any{}
				m[st] = created
				target = created
				continue
			}
			target = next
		case int:
			sl, ok := target.([]any)
			if !ok || st < 0 || st >= len(sl) {
				return false
			}
			target = sl[st]
		default:
			return false
		}
	}
	m, ok := target.(map[string]any)
	if !ok {
		return false
	}
	for k, v := range values {
		m[k] = v
	}
	return true
}

// clearBranchField writes "" into the form field a removed edge was derived
// from, but only if the field still points at the removed edge's target.
// A replace-on-reconnect may already have rewritten it.
func clearBranchField(branch operator.BranchKind, form map[string]any, handle, target string) {
	switch branch {
	case operator.BranchCategorize:
		cd, ok := form[operator.FieldCategoryDescription].(map[string]any)
		if !ok {
			return
		}
		if b, ok := cd[handle].(map[string]any); ok && str(b[operator.FieldTo]) == target {
			b[operator.FieldTo] = ""
		}
	case operator.BranchRelevant:
		if handle != naming.HandleYes && handle != naming.HandleNo {
			return
		}
		if str(form[handle]) == target {
			form[handle] = ""
		}
	case operator.BranchSwitch:
		if handle == naming.HandleElse {
			if str(form[operator.FieldElse]) == target {
				form[operator.FieldElse] = ""
			}
			return
		}
		idx, ok := naming.BranchHandleIndex(handle)
		if !ok {
			return
		}
		conds, ok := form[operator.FieldConditions].([]any)
		if !ok || idx >= len(conds) {
			return
		}
		if c, ok := conds[idx].(map[string]any); ok && str(c[operator.FieldTo]) == target {
			c[operator.FieldTo] = ""
		}
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
