package espalier

import (
	"fmt"
	"maps"
	"strings"

	"github.com/aretw0/espalier/pkg/tree"
)

// VisitFunc is a side-effecting visitor handler. It receives the node
// itself, not reduced children, and its only output is an error: returning a
// non-nil error aborts the traversal and propagates to the Visit caller.
type VisitFunc func(node *tree.Tree) error

// visitCore is the tag lookup shared by both bottom-up visitors. Handler
// shapes do not apply here; every handler receives the node.
type visitCore struct {
	handlers map[string]VisitFunc
	cfg      config
}

func newVisitCore(handlers map[string]VisitFunc, opts []Option) (*visitCore, error) {
	core := &visitCore{
		handlers: make(map[string]VisitFunc, len(handlers)),
		cfg:      newConfig(opts),
	}
	if err := core.apply(handlers); err != nil {
		return nil, err
	}
	return core, nil
}

func (c *visitCore) apply(handlers map[string]VisitFunc) error {
	for tag, fn := range handlers {
		if strings.HasPrefix(tag, reservedPrefix) {
			return fmt.Errorf("%w: %q", ErrReservedName, tag)
		}
		if fn == nil {
			return fmt.Errorf("%w: nil handler bound for tag %q", ErrBadHandler, tag)
		}
		c.handlers[tag] = fn
	}
	return nil
}

func (c *visitCore) extend(handlers map[string]VisitFunc) (*visitCore, error) {
	nc := &visitCore{
		handlers: make(map[string]VisitFunc, len(c.handlers)+len(handlers)),
		cfg:      c.cfg,
	}
	maps.Copy(nc.handlers, c.handlers)
	if err := nc.apply(handlers); err != nil {
		return nil, err
	}
	return nc, nil
}

// call dispatches on one node. A tag without a bound handler goes to the
// WithVisitDefault fallback if one was set, otherwise it is a no-op.
func (c *visitCore) call(node *tree.Tree) error {
	fn, ok := c.handlers[node.Data]
	if !ok {
		if c.cfg.visitDefault == nil {
			c.cfg.logger.Debug("visit fallback", "tag", node.Data)
			return nil
		}
		fn = c.cfg.visitDefault
	}
	return fn(node)
}

// Visitor is the iterative bottom-up visitor: every subtree is enumerated
// children-before-parents on an explicit work list and handed to its
// handler. Handlers may mutate node contents; the framework never copies or
// replaces nodes, and Visit always returns the original root.
//
// A Visitor instance must not be shared by concurrent traversals.
type Visitor struct {
	core *visitCore
}

// NewVisitor builds an iterative bottom-up visitor.
func NewVisitor(handlers map[string]VisitFunc, opts ...Option) (*Visitor, error) {
	core, err := newVisitCore(handlers, opts)
	if err != nil {
		return nil, err
	}
	return &Visitor{core: core}, nil
}

// Visit invokes the handler of every subtree, children before parents, and
// returns the root. The first handler error aborts the walk.
func (v *Visitor) Visit(root *tree.Tree) (*tree.Tree, error) {
	for _, sub := range root.Subtrees() {
		if err := v.core.call(sub); err != nil {
			return root, err
		}
	}
	return root, nil
}

// Extend derives a new Visitor reusing the receiver's handlers and applying
// the extra ones on top, without re-wrapping anything inherited.
func (v *Visitor) Extend(handlers map[string]VisitFunc) (*Visitor, error) {
	core, err := v.core.extend(handlers)
	if err != nil {
		return nil, err
	}
	return &Visitor{core: core}, nil
}

// VisitorRecursive is the true recursive-descent bottom-up visitor: children
// are visited by explicit recursion before the current node's handler runs.
// The outcome matches Visitor; the difference is that traversal state lives
// on the call stack, so very deep trees can exhaust it. Prefer Visitor when
// depth is unbounded.
type VisitorRecursive struct {
	core *visitCore
}

// NewVisitorRecursive builds a recursive bottom-up visitor.
func NewVisitorRecursive(handlers map[string]VisitFunc, opts ...Option) (*VisitorRecursive, error) {
	core, err := newVisitCore(handlers, opts)
	if err != nil {
		return nil, err
	}
	return &VisitorRecursive{core: core}, nil
}

// Visit recurses into every *tree.Tree child, skipping leaves, then invokes
// the current node's handler. It returns the original root.
func (v *VisitorRecursive) Visit(root *tree.Tree) (*tree.Tree, error) {
	if err := v.visit(root); err != nil {
		return root, err
	}
	return root, nil
}

func (v *VisitorRecursive) visit(node *tree.Tree) error {
	for _, c := range node.Children {
		if sub, ok := c.(*tree.Tree); ok {
			if err := v.visit(sub); err != nil {
				return err
			}
		}
	}
	return v.core.call(node)
}

// Extend derives a new VisitorRecursive reusing the receiver's handlers; see
// (*Visitor).Extend.
func (v *VisitorRecursive) Extend(handlers map[string]VisitFunc) (*VisitorRecursive, error) {
	core, err := v.core.extend(handlers)
	if err != nil {
		return nil, err
	}
	return &VisitorRecursive{core: core}, nil
}
