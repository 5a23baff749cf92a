// Package naming generates node ids, collision-free display names, and the
// stable handle text that addresses branch anchors on switch-style
// operators.
package naming

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
)

// Source handles that are fixed sentinels rather than generated text.
const (
	HandleYes  = "yes"
	HandleNo   = "no"
	HandleElse = "else"
)

const branchHandlePrefix = "Case "

const (
	consonants = "bcdfghjklmnpqrstvwxz"
	vowels     = "aeiouy"
	pairs      = 7 // 120^7 distinct suffixes, comfortably above 2^40
)

// NodeID returns a fresh id for a node of the given kind, shaped as
// "<Kind>:<Suffix>". The suffix is a pronounceable consonant-vowel string
// derived from UUID bytes, so ids stay readable in logs and DSL documents
// while collisions remain practically impossible.
func NodeID(kind operator.Kind) string {
	return string(kind) + ":" + suffix()
}

func suffix() string {
	u := uuid.New()
	var b strings.Builder
	b.Grow(pairs * 2)
	for i := 0; i < pairs; i++ {
		c := consonants[int(u[2*i])%len(consonants)]
		v := vowels[int(u[2*i+1])%len(vowels)]
		// Capitalize the pair start for a CamelCase-looking suffix.
		b.WriteByte(c - 'a' + 'A')
		b.WriteByte(v)
	}
	return b.String()
}

// UniqueName returns base if it is not taken, otherwise the first
// "base (n)" (n starting at 2) that does not collide. Resolution is always
// deterministic; a collision is never an error.
func UniqueName(base string, existing []string) string {
	taken := make(map[string]bool, len(existing))
	for _, n := range existing {
		taken[n] = true
	}
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", base, i)
		if !taken[candidate] {
			return candidate
		}
	}
}

// BranchHandle returns the anchor text for the zero-based Nth condition of
// a switch operator ("Case 1", "Case 2", ...).
func BranchHandle(index int) string {
	return branchHandlePrefix + strconv.Itoa(index+1)
}

// BranchHandleIndex inverts BranchHandle. The second return is false when
// text is not a generated branch handle (including the yes/no/else
// sentinels).
func BranchHandleIndex(text string) (int, bool) {
	rest, ok := strings.CutPrefix(text, branchHandlePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
