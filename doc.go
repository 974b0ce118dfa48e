/*
Package espalier is a walking and transformation framework for tagged, ordered trees — typically syntax trees produced by a parser, where each node carries a production name as its tag and an attached metadata record.

Instead of writing a recursive walk for every tree shape, client code binds handlers to tags and picks a traversal strategy. The framework owns dispatch and traversal order; the handlers own the semantics.

# Concept

A tree node (see pkg/tree) is a tag, an ordered child sequence mixing nested nodes with opaque leaf values, and an opaque metadata record. Every strategy resolves handlers the same way: the node's tag is looked up in a table built at construction, and unbound tags fall back to a documented default. What differs per strategy is traversal order and mutation policy:

  - Transformer: bottom-up, copy-producing. Children are reduced before their parent's handler runs; the result is a brand-new value and the input is untouched.
  - InPlace / InPlaceRecursive: bottom-up, mutating. The reduced children are written back onto the tree itself. InPlace trades recursion for an explicit work list and handles arbitrarily deep trees.
  - Visitor / VisitorRecursive: bottom-up, side-effecting. Handlers see the node itself and return values are ignored.
  - Interpreter: top-down and lazy. A handler decides whether, how often, and in what order its node's children are visited.
  - Chain: sequential composition of transforms, left to right.

# Handler shapes

A transform handler declares how it wants a node's children delivered: Seq (one ordered slice, the default), Inline (each child as a separate positional argument), or WithMeta (the slice plus the node's metadata record). Shapes are fixed when the strategy is built; Inline and WithMeta cannot be combined.

A transform handler may return the Discard sentinel to prune its subtree: the parent's child collection drops the result entirely.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/espalier"
		"github.com/aretw0/espalier/pkg/tree"
	)

	func main() {
		// (add (number 1) (number 2))
		root := tree.New("add",
			tree.New("number", 1),
			tree.New("number", 2),
		)

		calc, err := espalier.NewTransformer(espalier.Handlers(
			espalier.On("number", espalier.Inline(func(v int) (any, error) {
				return v, nil
			})),
			espalier.On("add", espalier.Seq(func(children []any) (any, error) {
				return children[0].(int) + children[1].(int), nil
			})),
		))
		if err != nil {
			log.Fatal(err)
		}

		sum, err := calc.Transform(root)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(sum) // 3
	}

Strategies are synchronous and single-threaded: one traversal per instance at a time, errors propagate out of the entry call unchanged, and partial in-place mutation is not rolled back on abort.
*/
package espalier
