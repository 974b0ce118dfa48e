package espalier

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/tree"
)

// Chain applies its stages left to right, feeding each stage's result into
// the next. Stages share no state; a Chain is only delegation. Composition
// is associative: a.Then(b).Then(c) and a.Then(NewChain(b, c)) run the same
// stages in the same order.
type Chain struct {
	stages []Transform
}

// NewChain builds a chain over the given stages. Nested chains are
// flattened, keeping evaluation order.
func NewChain(stages ...Transform) *Chain {
	flat := make([]Transform, 0, len(stages))
	for _, s := range stages {
		if sub, ok := s.(*Chain); ok {
			flat = append(flat, sub.stages...)
			continue
		}
		flat = append(flat, s)
	}
	return &Chain{stages: flat}
}

// Transform runs every stage in order. A stage can only consume a
// *tree.Tree, so a preceding stage that reduced the tree to any other value
// fails the chain with an error naming the offending stage.
func (c *Chain) Transform(root *tree.Tree) (any, error) {
	var current any = root
	for i, stage := range c.stages {
		node, ok := current.(*tree.Tree)
		if !ok {
			return nil, fmt.Errorf("espalier: chain stage %d needs a *tree.Tree, previous stage produced %T", i, current)
		}
		v, err := stage.Transform(node)
		if err != nil {
			return nil, err
		}
		current = v
	}
	return current, nil
}

// Then appends next to the chain, returning a new Chain. The receiver is
// not modified.
func (c *Chain) Then(next Transform) *Chain {
	return NewChain(c, next)
}
