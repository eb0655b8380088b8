package zoning

import (
	"encoding/json"
	"slices"
	"sort"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindIDs Kind = iota + 1
	KindCount
	KindNode
)

func (k Kind) String() string {
	switch k {
	case KindIDs:
		return "ids"
	case KindCount:
		return "count"
	case KindNode:
		return "node"
	default:
		return "invalid"
	}
}

// Value is one entry of a zoning tree: an id list, a count or a nested node.
type Value struct {
	kind  Kind
	ids   []types.ObjectID
	count int
	node  Node
}

// IDList returns a list value holding a copy of ids. The list is never nil.
func IDList(ids ...types.ObjectID) Value {
	return Value{kind: KindIDs, ids: append(make([]types.ObjectID, 0, len(ids)), ids...)}
}

// CountValue returns a count value.
func CountValue(n int) Value {
	return Value{kind: KindCount, count: n}
}

// NodeValue returns a nested node value.
func NodeValue(n Node) Value {
	if n == nil {
		n = Node{}
	}
	return Value{kind: KindNode, node: n}
}

func (v Value) Kind() Kind { return v.kind }

// IDs returns the ids of a list value, or nil for other kinds.
func (v Value) IDs() []types.ObjectID {
	if v.kind != KindIDs {
		return nil
	}
	return slices.Clone(v.ids)
}

// Count returns the count of a count value, or 0 for other kinds.
func (v Value) Count() int { return v.count }

// Node returns the nested node of a node value, or nil for other kinds.
func (v Value) Node() Node { return v.node }

func (v Value) clone() Value {
	switch v.kind {
	case KindIDs:
		return IDList(v.ids...)
	case KindNode:
		return NodeValue(v.node.Clone())
	default:
		return v
	}
}

func (v Value) plain() any {
	switch v.kind {
	case KindIDs:
		out := make([]any, len(v.ids))
		for i, id := range v.ids {
			out[i] = id.Value()
		}
		return out
	case KindCount:
		return int64(v.count)
	case KindNode:
		return v.node.AsMap()
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.plain())
}

// Node is a mapping level of a zoning tree.
type Node map[string]Value

// Clone returns a deep copy.
func (n Node) Clone() Node {
	if n == nil {
		return nil
	}
	out := make(Node, len(n))
	for k, v := range n {
		out[k] = v.clone()
	}
	return out
}

// AsMap converts the tree to plain maps, []any id lists and int64 counts.
// The result is accepted by structpb.NewStruct.
func (n Node) AsMap() map[string]any {
	out := make(map[string]any, len(n))
	for k, v := range n {
		out[k] = v.plain()
	}
	return out
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.AsMap())
}

// Keys returns the keys in sorted order.
func (n Node) Keys() []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Child returns the node stored under key, or nil.
func (n Node) Child(key string) Node {
	return n[key].node
}

// IDs returns the id list stored under key, or nil.
func (n Node) IDs(key string) []types.ObjectID {
	return n[key].IDs()
}

// Count returns the count stored under key. ok is false when key does not
// hold a count.
func (n Node) Count(key string) (int, bool) {
	v, exists := n[key]
	if !exists || v.kind != KindCount {
		return 0, false
	}
	return v.count, true
}

func (n Node) appendID(key string, id types.ObjectID) {
	v := n[key]
	v.kind = KindIDs
	v.ids = append(v.ids, id)
	n[key] = v
}
