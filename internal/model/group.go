package model

import (
	"bytes"
	"encoding/json"
)

// GroupNode is either a leaf holding corrections or a branch holding
// sub-groups. Exactly one of the two is set.
type GroupNode struct {
	corrections []Correction
	items       *Groups
}

// NewLeaf returns a leaf node. A nil slice is stored as an empty one.
func NewLeaf(corrections []Correction) *GroupNode {
	if corrections == nil {
		corrections = []Correction{}
	}
	return &GroupNode{corrections: corrections}
}

// NewBranch returns a branch node. A nil map is stored as an empty one.
func NewBranch(items *Groups) *GroupNode {
	if items == nil {
		items = NewGroups()
	}
	return &GroupNode{items: items}
}

// IsLeaf reports whether n holds corrections.
func (n *GroupNode) IsLeaf() bool {
	return n.items == nil
}

// Corrections returns the corrections of a leaf, nil for a branch.
func (n *GroupNode) Corrections() []Correction {
	return n.corrections
}

// Items returns the sub-groups of a branch, nil for a leaf.
func (n *GroupNode) Items() *Groups {
	return n.items
}

// Walk calls fn for every leaf under n with the labels leading to it.
func (n *GroupNode) Walk(path []string, fn func(path []string, corrections []Correction)) {
	if n.IsLeaf() {
		fn(path, n.corrections)
		return
	}
	for _, key := range n.items.Keys() {
		child, _ := n.items.Get(key)
		next := append(append([]string{}, path...), key)
		child.Walk(next, fn)
	}
}

type leafJSON struct {
	Corrections []Correction `json:"corrections"`
}

type branchJSON struct {
	Items *Groups `json:"items"`
}

// MarshalJSON encodes {"corrections": [...]} or {"items": {...}}.
func (n *GroupNode) MarshalJSON() ([]byte, error) {
	if n.IsLeaf() {
		return json.Marshal(leafJSON{Corrections: n.corrections})
	}
	return json.Marshal(branchJSON{Items: n.items})
}

// Groups is an insertion-ordered map from group label to node.
type Groups struct {
	keys  []string
	nodes map[string]*GroupNode
}

// NewGroups returns an empty ordered map.
func NewGroups() *Groups {
	return &Groups{nodes: make(map[string]*GroupNode)}
}

// Set stores node under key, appending key when it is new.
func (g *Groups) Set(key string, node *GroupNode) {
	if _, ok := g.nodes[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.nodes[key] = node
}

// Get returns the node stored under key.
func (g *Groups) Get(key string) (*GroupNode, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Keys returns the labels in insertion order.
func (g *Groups) Keys() []string {
	return append([]string{}, g.keys...)
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.keys)
}

// Walk visits every leaf in order.
func (g *Groups) Walk(fn func(path []string, corrections []Correction)) {
	NewBranch(g).Walk(nil, fn)
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (g *Groups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range g.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(g.nodes[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
