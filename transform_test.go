package espalier_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/tree"
)

// parseTree builds the little arithmetic fixture used across the transform
// tests: (add (number 1) (number 2) (number 3)).
func numbersTree() *tree.Tree {
	return tree.New("add",
		tree.New("number", 1),
		tree.New("number", 2),
		tree.New("number", 3),
	)
}

// sumBindings reduces number nodes to their leaf and add nodes to the sum.
func sumBindings() []espalier.Binding {
	return espalier.Handlers(
		espalier.On("number", espalier.Inline(func(v int) (any, error) {
			return v, nil
		})),
		espalier.On("add", espalier.Seq(func(children []any) (any, error) {
			total := 0
			for _, c := range children {
				total += c.(int)
			}
			return total, nil
		})),
	)
}

func TestTransformerDefaultIdentity(t *testing.T) {
	t.Parallel()

	meta := map[string]int{"line": 3}
	root := tree.NewWithMeta("a", []any{
		tree.New("b", 1, "x"),
		tree.New("c"),
	}, meta)

	tr, err := espalier.NewTransformer(nil)
	require.NoError(t, err)

	got, err := tr.Transform(root)
	require.NoError(t, err)

	out, ok := got.(*tree.Tree)
	require.True(t, ok, "default transform must produce a tree, got: %s", spew.Sdump(got))
	assert.NotSame(t, root, out, "copy-producing transform must allocate a new root")
	if diff := cmp.Diff(root, out); diff != "" {
		t.Errorf("reconstructed tree differs (-want +got):\n%s", diff)
	}
}

func TestTransformerReduces(t *testing.T) {
	t.Parallel()

	tr, err := espalier.NewTransformer(sumBindings())
	require.NoError(t, err)

	root := numbersTree()
	got, err := tr.Transform(root)
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	// The input tree must be untouched.
	assert.Equal(t, "(add (number 1) (number 2) (number 3))", root.String())
}

func TestDiscardFiltersChildren(t *testing.T) {
	t.Parallel()

	var gotChildren []any
	tr, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("b", espalier.Seq(func([]any) (any, error) {
			return "kept", nil
		})),
		espalier.On("c", espalier.Seq(func([]any) (any, error) {
			return nil, espalier.Discard
		})),
		espalier.On("a", espalier.Seq(func(children []any) (any, error) {
			gotChildren = children
			return nil, nil
		})),
	))
	require.NoError(t, err)

	root := tree.New("a", tree.New("b"), tree.New("c"), tree.New("b"))
	_, err = tr.Transform(root)
	require.NoError(t, err)
	assert.Equal(t, []any{"kept", "kept"}, gotChildren,
		"discarded subtree must vanish, keeping sibling order")
}

func TestRootDiscardPropagates(t *testing.T) {
	t.Parallel()

	tr, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("a", espalier.Seq(func([]any) (any, error) {
			return nil, espalier.Discard
		})),
	))
	require.NoError(t, err)

	_, err = tr.Transform(tree.New("a"))
	assert.ErrorIs(t, err, espalier.Discard,
		"discard from the root call is the caller's problem")
}

func TestInlineArity(t *testing.T) {
	t.Parallel()

	tr, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("pair", espalier.Inline(func(x, y int) (any, error) {
			return x + y, nil
		})),
	))
	require.NoError(t, err)

	got, err := tr.Transform(tree.New("pair", 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = tr.Transform(tree.New("pair", 1, 2, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 2 arguments, node has 3 children")
}

func TestInlineVariadic(t *testing.T) {
	t.Parallel()

	tr, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("all", espalier.Inline(func(first int, rest ...int) (any, error) {
			for _, v := range rest {
				first += v
			}
			return first, nil
		})),
	))
	require.NoError(t, err)

	got, err := tr.Transform(tree.New("all", 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	_, err = tr.Transform(tree.New("all"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestInlineHandlerValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler any
	}{
		{"not a func", 42},
		{"no results", func(int) {}},
		{"error only", func() error { return nil }},
		{"bad second result", func() (int, string) { return 0, "" }},
		{"three results", func() (int, int, error) { return 0, 0, nil }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := espalier.NewTransformer(espalier.Handlers(
				espalier.On("x", espalier.Inline(tc.handler)),
			))
			assert.ErrorIs(t, err, espalier.ErrBadHandler)
		})
	}
}

func TestReservedTagName(t *testing.T) {
	t.Parallel()

	_, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("__internal", espalier.Seq(func([]any) (any, error) {
			return nil, nil
		})),
	))
	assert.ErrorIs(t, err, espalier.ErrReservedName)
}

func TestMetaShapeAliasesRecord(t *testing.T) {
	t.Parallel()

	type pos struct{ Line int }
	record := &pos{Line: 1}

	tr, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("stmt", espalier.WithMeta(func(children []any, meta any) (any, error) {
			meta.(*pos).Line = 99
			return children, nil
		})),
	))
	require.NoError(t, err)

	node := tree.NewWithMeta("stmt", nil, record)
	_, err = tr.Transform(node)
	require.NoError(t, err)
	assert.Equal(t, 99, record.Line,
		"handler must see the node's own record, not a copy")
}

func TestInPlaceRecursiveMatchesCopy(t *testing.T) {
	t.Parallel()

	copyT, err := espalier.NewTransformer(sumBindings())
	require.NoError(t, err)
	inPlace, err := espalier.NewInPlaceRecursive(sumBindings())
	require.NoError(t, err)

	original := numbersTree()
	mutated := numbersTree()

	want, err := copyT.Transform(original)
	require.NoError(t, err)
	got, err := inPlace.Transform(mutated)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, "(add (number 1) (number 2) (number 3))", original.String())
	assert.Equal(t, []any{1, 2, 3}, mutated.Children,
		"in-place transform must leave the reduced children on the tree")
}

func TestInPlaceShallowMatchesCopy(t *testing.T) {
	t.Parallel()

	copyT, err := espalier.NewTransformer(sumBindings())
	require.NoError(t, err)
	shallow, err := espalier.NewInPlace(sumBindings())
	require.NoError(t, err)

	want, err := copyT.Transform(numbersTree())
	require.NoError(t, err)

	mutated := tree.New("add",
		tree.New("number", 1),
		tree.New("add", tree.New("number", 2), tree.New("number", 3)),
	)
	got, err := shallow.Transform(mutated)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInlineTransformerShim(t *testing.T) {
	t.Parallel()

	tr, err := espalier.NewInlineTransformer(map[string]any{
		"number": func(v int) (any, error) { return v, nil },
		"add":    func(a, b, c int) (any, error) { return a + b + c, nil },
	})
	require.NoError(t, err)

	got, err := tr.Transform(numbersTree())
	require.NoError(t, err)
	assert.Equal(t, 6, got)
}

func TestDefaultOverride(t *testing.T) {
	t.Parallel()

	tr, err := espalier.NewTransformer(espalier.Handlers(
		espalier.Default(func(data string, children []any, meta any) (any, error) {
			return data, nil
		}),
	))
	require.NoError(t, err)

	got, err := tr.Transform(tree.New("mystery"))
	require.NoError(t, err)
	assert.Equal(t, "mystery", got)
}

func TestExtendDoesNotRewrapInherited(t *testing.T) {
	t.Parallel()

	calls := 0
	base, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("b", espalier.Seq(func([]any) (any, error) {
			calls++
			return "b", nil
		})),
	))
	require.NoError(t, err)

	ext, err := base.Extend(
		espalier.On("c", espalier.Seq(func([]any) (any, error) {
			return "c", nil
		})),
	)
	require.NoError(t, err)

	root := tree.New("a", tree.New("b"), tree.New("c"))
	_, err = ext.Transform(root)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "inherited handler must run exactly once per node")

	// The parent holder is unaffected by the extension.
	calls = 0
	got, err := base.Transform(root)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	out := got.(*tree.Tree)
	_, stillTree := out.Children[1].(*tree.Tree)
	assert.True(t, stillTree, "parent must still fall back for tag c")
}

func TestHandlerErrorPropagatesUnwrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tr, err := espalier.NewTransformer(espalier.Handlers(
		espalier.On("b", espalier.Seq(func([]any) (any, error) {
			return nil, boom
		})),
	))
	require.NoError(t, err)

	_, err = tr.Transform(tree.New("a", tree.New("b")))
	assert.Same(t, boom, err, "user errors must reach the caller unmodified")
}

func TestWithLoggerObservesFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr, err := espalier.NewTransformer(nil, espalier.WithLogger(logger))
	require.NoError(t, err)

	_, err = tr.Transform(tree.New("mystery"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "dispatch fallback")
	assert.Contains(t, buf.String(), "mystery")
}
