package espalier

import (
	"github.com/aretw0/espalier/pkg/tree"
)

// Transform is the contract shared by every transforming strategy: feed in a
// root node, get back the reduced result. Transformer, InPlace,
// InPlaceRecursive and Chain all satisfy it.
type Transform interface {
	Transform(root *tree.Tree) (any, error)
}

// Transformer is the copy-producing bottom-up strategy. Children are reduced
// depth-first, left to right, before their parent's handler runs; the input
// tree is never mutated. Tags without a bound handler fall back to
// reconstructing a generic node with the same tag and metadata and the
// reduced children, so a Transformer with no bindings returns a structurally
// identical copy.
//
// A Transformer instance must not be shared by two traversals running
// concurrently; handler state, if any, is unsynchronized.
//
// Recursion depth is proportional to tree depth. Very deep trees can exhaust
// the call stack; use InPlace if that is a concern and mutation is
// acceptable.
type Transformer struct {
	d *dispatcher
}

// NewTransformer builds a Transformer from the given handler bindings.
// Binding a reserved tag or an invalid inline handler fails here, never
// mid-traversal.
func NewTransformer(bindings []Binding, opts ...Option) (*Transformer, error) {
	d, err := newDispatcher(bindings, opts)
	if err != nil {
		return nil, err
	}
	return &Transformer{d: d}, nil
}

// Transform reduces the whole tree and returns the root handler's result.
// Discard returned by the root handler itself is not consumed and reaches
// the caller; deciding what discarding the whole tree means is the caller's
// call.
func (t *Transformer) Transform(root *tree.Tree) (any, error) {
	return t.transformTree(root)
}

func (t *Transformer) transformTree(node *tree.Tree) (any, error) {
	children, err := t.d.collect(node.Children, t.transformTree)
	if err != nil {
		return nil, err
	}
	return t.d.dispatch(node.Data, children, node.Meta)
}

// Then composes the receiver with next into a Chain that runs the receiver
// first.
func (t *Transformer) Then(next Transform) *Chain {
	return NewChain(t, next)
}

// Extend derives a new Transformer that reuses the receiver's handlers and
// applies the extra bindings on top. Inherited handlers are used as they
// are — never re-wrapped — so extending an already-built holder is safe to
// repeat down a hierarchy of refinements.
func (t *Transformer) Extend(bindings ...Binding) (*Transformer, error) {
	d, err := t.d.extend(bindings)
	if err != nil {
		return nil, err
	}
	return &Transformer{d: d}, nil
}

// InPlace is the shallow in-place strategy: one iterative pass over every
// subtree, children before parents, replacing each node's Children with
// their one-level reduction, then a final dispatch on the root. The input
// tree is mutated; the work list is sized to the node count instead of
// consuming call-stack depth, which makes this the strategy of choice for
// very deep trees.
//
// Correctness depends on the children-before-parents enumeration order that
// tree.Subtrees guarantees: a node's children must already hold reduced
// values when the node itself is dispatched. The order is a precondition,
// not a runtime-checked invariant.
type InPlace struct {
	d *dispatcher
}

// NewInPlace builds the shallow in-place strategy from the given bindings.
func NewInPlace(bindings []Binding, opts ...Option) (*InPlace, error) {
	d, err := newDispatcher(bindings, opts)
	if err != nil {
		return nil, err
	}
	return &InPlace{d: d}, nil
}

// Transform reduces the tree in place and returns the root handler's result.
// On error the tree keeps whatever partial mutation was already applied;
// nothing is rolled back.
func (t *InPlace) Transform(root *tree.Tree) (any, error) {
	reduceOne := func(sub *tree.Tree) (any, error) {
		return t.d.dispatch(sub.Data, sub.Children, sub.Meta)
	}
	for _, sub := range root.Subtrees() {
		children, err := t.d.collect(sub.Children, reduceOne)
		if err != nil {
			return nil, err
		}
		sub.Children = children
	}
	return t.d.dispatch(root.Data, root.Children, root.Meta)
}

// Then composes the receiver with next into a Chain.
func (t *InPlace) Then(next Transform) *Chain {
	return NewChain(t, next)
}

// Extend derives a new InPlace reusing the receiver's handlers; see
// (*Transformer).Extend.
func (t *InPlace) Extend(bindings ...Binding) (*InPlace, error) {
	d, err := t.d.extend(bindings)
	if err != nil {
		return nil, err
	}
	return &InPlace{d: d}, nil
}

// InPlaceRecursive is the recursive in-place strategy: classic descent that
// assigns the reduced child sequence back onto each node before dispatching
// on it. It both mutates the original tree and returns the root handler's
// result; with no Discard in play the returned value equals what Transformer
// would produce, while the tree itself now holds the reduced children.
//
// Recursion depth is proportional to tree depth.
type InPlaceRecursive struct {
	d *dispatcher
}

// NewInPlaceRecursive builds the recursive in-place strategy.
func NewInPlaceRecursive(bindings []Binding, opts ...Option) (*InPlaceRecursive, error) {
	d, err := newDispatcher(bindings, opts)
	if err != nil {
		return nil, err
	}
	return &InPlaceRecursive{d: d}, nil
}

// Transform reduces the tree in place and returns the root handler's result.
func (t *InPlaceRecursive) Transform(root *tree.Tree) (any, error) {
	return t.transformTree(root)
}

func (t *InPlaceRecursive) transformTree(node *tree.Tree) (any, error) {
	children, err := t.d.collect(node.Children, t.transformTree)
	if err != nil {
		return nil, err
	}
	node.Children = children
	return t.d.dispatch(node.Data, node.Children, node.Meta)
}

// Then composes the receiver with next into a Chain.
func (t *InPlaceRecursive) Then(next Transform) *Chain {
	return NewChain(t, next)
}

// Extend derives a new InPlaceRecursive reusing the receiver's handlers; see
// (*Transformer).Extend.
func (t *InPlaceRecursive) Extend(bindings ...Binding) (*InPlaceRecursive, error) {
	d, err := t.d.extend(bindings)
	if err != nil {
		return nil, err
	}
	return &InPlaceRecursive{d: d}, nil
}

// InlineTransformer is a copy-producing transformer whose handlers are all
// plain funcs invoked positionally, with no shape declarations.
//
// Deprecated: it predates the explicit handler shapes and exists only for
// callers written against the old convention. Use NewTransformer with
// Inline callbacks instead.
type InlineTransformer struct {
	t *Transformer
}

// NewInlineTransformer builds the legacy positional-convention transformer.
//
// Deprecated: see InlineTransformer.
func NewInlineTransformer(handlers map[string]any, opts ...Option) (*InlineTransformer, error) {
	t, err := NewTransformer(InlineAll(handlers), opts...)
	if err != nil {
		return nil, err
	}
	return &InlineTransformer{t: t}, nil
}

// Transform reduces the tree exactly as Transformer does.
func (t *InlineTransformer) Transform(root *tree.Tree) (any, error) {
	return t.t.Transform(root)
}
