package zoning

import (
	"strings"
)

const (
	countSuffix = "_count"
	idsSuffix   = "_ids"
)

// Summarize returns a copy of n where every id list key k gains a sibling
// k_count holding its length, and every mapping key k is summarized
// recursively and mirrored under k_ids. Existing keys keep their values.
// Derived keys are not derived again, so Summarize(Summarize(n)) equals
// Summarize(n).
func Summarize(n Node) Node {
	out := make(Node, 2*len(n))
	for k, v := range n {
		out[k] = v.clone()
	}
	for k, v := range n {
		if derived(n, k) {
			continue
		}
		switch v.kind {
		case KindIDs:
			out[k+countSuffix] = CountValue(len(v.ids))
		case KindNode:
			s := Summarize(v.node)
			out[k] = NodeValue(s)
			out[k+idsSuffix] = NodeValue(s.Clone())
		}
	}
	return out
}

// derived reports whether key is a sibling Summarize added for another key
// of n.
func derived(n Node, key string) bool {
	if base, ok := strings.CutSuffix(key, countSuffix); ok {
		if v, exists := n[base]; exists && v.kind == KindIDs {
			return true
		}
	}
	if base, ok := strings.CutSuffix(key, idsSuffix); ok {
		if v, exists := n[base]; exists && v.kind == KindNode {
			return true
		}
	}
	return false
}
