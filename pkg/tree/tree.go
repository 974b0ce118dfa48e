// Package tree defines the tagged, ordered tree that the espalier strategies
// walk. A Tree is typically produced by a parser: Data names the production
// that matched, Children holds the matched sub-productions and tokens in
// order, and Meta carries whatever positional or semantic record the producer
// attached.
package tree

import (
	"fmt"
	"strings"
)

// Tree is a tagged node. Children is ordered and may mix nested *Tree nodes
// with opaque leaf values; leaves are never interpreted by the walking
// strategies, only passed through. Meta is shared by reference: strategies
// hand the same record to handlers, never a copy.
type Tree struct {
	Data     string `json:"data"`
	Children []any  `json:"children"`
	Meta     any    `json:"meta,omitempty"`
}

// New builds a node with the given tag and children.
func New(data string, children ...any) *Tree {
	return &Tree{Data: data, Children: children}
}

// NewWithMeta builds a node carrying an attached metadata record.
func NewWithMeta(data string, children []any, meta any) *Tree {
	return &Tree{Data: data, Children: children, Meta: meta}
}

// Subtrees returns every node reachable from t exactly once, children before
// parents. The last element is always t itself.
//
// This ordering is what makes the one-pass in-place strategies correct: by
// the time a node is visited, every node below it has already been visited.
// Shared nodes (the same *Tree appearing under two parents) are yielded once,
// before the first parent that references them.
func (t *Tree) Subtrees() []*Tree {
	var order []*Tree
	stack := []*Tree{t}
	seen := make(map[*Tree]bool)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[node] {
			continue
		}
		seen[node] = true
		order = append(order, node)
		for _, c := range node.Children {
			if sub, ok := c.(*Tree); ok {
				stack = append(stack, sub)
			}
		}
	}
	// A node is appended only after its parent, so the reverse order puts
	// children first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Copy returns a deep copy of the tree spine. Leaves and Meta records are
// shared with the original, not cloned.
func (t *Tree) Copy() *Tree {
	children := make([]any, len(t.Children))
	for i, c := range t.Children {
		if sub, ok := c.(*Tree); ok {
			children[i] = sub.Copy()
		} else {
			children[i] = c
		}
	}
	return &Tree{Data: t.Data, Children: children, Meta: t.Meta}
}

// String renders the tree as a compact s-expression, e.g.
// (add (number 1) (number 2)).
func (t *Tree) String() string {
	var sb strings.Builder
	t.writeSexpr(&sb)
	return sb.String()
}

func (t *Tree) writeSexpr(sb *strings.Builder) {
	sb.WriteByte('(')
	sb.WriteString(t.Data)
	for _, c := range t.Children {
		sb.WriteByte(' ')
		if sub, ok := c.(*Tree); ok {
			sub.writeSexpr(sb)
		} else {
			fmt.Fprintf(sb, "%v", c)
		}
	}
	sb.WriteByte(')')
}

// Pretty renders the tree one node per line, indented by depth. Useful when
// debugging handler output.
func (t *Tree) Pretty() string {
	var sb strings.Builder
	t.writePretty(&sb, "")
	return sb.String()
}

func (t *Tree) writePretty(sb *strings.Builder, indent string) {
	sb.WriteString(indent)
	sb.WriteString(t.Data)
	sb.WriteByte('\n')
	for _, c := range t.Children {
		if sub, ok := c.(*Tree); ok {
			sub.writePretty(sb, indent+"  ")
		} else {
			fmt.Fprintf(sb, "%s%v\n", indent+"  ", c)
		}
	}
}
