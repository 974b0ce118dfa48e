package espalier

import (
	"fmt"
	"maps"
	"strings"

	"github.com/aretw0/espalier/pkg/tree"
)

// InterpFunc is a top-down handler. It receives the interpreter so it can
// descend explicitly — the framework never visits a node's children on its
// own. Skipping VisitChildren skips the subtree; calling it twice visits the
// subtree twice; handlers may equally visit single children directly, in any
// order.
type InterpFunc func(ip *Interpreter, node *tree.Tree) (any, error)

// Interpreter is the top-down lazy strategy. Visit dispatches strictly by
// tag; when a tag has no bound handler the built-in fallback visits the
// node's children (it never silently does nothing), unless
// WithInterpretDefault installed an override.
//
// Handlers control descent, which is what makes the strategy lazy: an
// unvisited branch costs nothing and its handlers never run.
//
// Recursion depth is proportional to the depth the handlers actually
// descend to. An Interpreter instance must not be shared by concurrent
// traversals.
type Interpreter struct {
	handlers map[string]InterpFunc
	cfg      config
}

// NewInterpreter builds a top-down interpreter from the handler map.
func NewInterpreter(handlers map[string]InterpFunc, opts ...Option) (*Interpreter, error) {
	ip := &Interpreter{
		handlers: make(map[string]InterpFunc, len(handlers)),
		cfg:      newConfig(opts),
	}
	if err := ip.apply(handlers); err != nil {
		return nil, err
	}
	return ip, nil
}

func (ip *Interpreter) apply(handlers map[string]InterpFunc) error {
	for tag, fn := range handlers {
		if strings.HasPrefix(tag, reservedPrefix) {
			return fmt.Errorf("%w: %q", ErrReservedName, tag)
		}
		if fn == nil {
			return fmt.Errorf("%w: nil handler bound for tag %q", ErrBadHandler, tag)
		}
		ip.handlers[tag] = fn
	}
	return nil
}

// Visit dispatches on node by tag. It does not descend into children;
// that is the handler's decision, via VisitChildren or direct Visit calls.
func (ip *Interpreter) Visit(node *tree.Tree) (any, error) {
	fn, ok := ip.handlers[node.Data]
	if !ok {
		if ip.cfg.interpDefault != nil {
			return ip.cfg.interpDefault(ip, node)
		}
		ip.cfg.logger.Debug("interpret fallback", "tag", node.Data)
		return ip.VisitChildren(node)
	}
	return fn(ip, node)
}

// VisitChildren visits each *tree.Tree child of node and passes leaves
// through unchanged, returning the ordered results. The first error aborts
// and propagates.
func (ip *Interpreter) VisitChildren(node *tree.Tree) ([]any, error) {
	out := make([]any, 0, len(node.Children))
	for _, c := range node.Children {
		sub, ok := c.(*tree.Tree)
		if !ok {
			out = append(out, c)
			continue
		}
		v, err := ip.Visit(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Extend derives a new Interpreter reusing the receiver's handlers and
// applying the extra ones on top, without re-wrapping anything inherited.
func (ip *Interpreter) Extend(handlers map[string]InterpFunc) (*Interpreter, error) {
	nip := &Interpreter{
		handlers: make(map[string]InterpFunc, len(ip.handlers)+len(handlers)),
		cfg:      ip.cfg,
	}
	maps.Copy(nip.handlers, ip.handlers)
	if err := nip.apply(handlers); err != nil {
		return nil, err
	}
	return nip, nil
}
