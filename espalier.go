package espalier

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/aretw0/espalier/pkg/tree"
)

// config carries the ambient settings shared by every strategy.
type config struct {
	logger        *slog.Logger
	visitDefault  VisitFunc
	interpDefault InterpFunc
}

func newConfig(opts []Option) config {
	cfg := config{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a strategy at construction time.
type Option func(*config)

// WithLogger sets a custom structured logger. The default logger discards
// all records; traversal internals (dispatch fallbacks, discarded subtrees)
// log at Debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithVisitDefault replaces the visitors' no-op fallback for tags without a
// bound handler. It applies to Visitor and VisitorRecursive only.
func WithVisitDefault(fn VisitFunc) Option {
	return func(cfg *config) { cfg.visitDefault = fn }
}

// WithInterpretDefault replaces the Interpreter's fallback for tags without
// a bound handler. The built-in fallback visits the node's children; an
// override takes full control of descent. It applies to Interpreter only.
func WithInterpretDefault(fn InterpFunc) Option {
	return func(cfg *config) { cfg.interpDefault = fn }
}

// dispatcher is the lookup core behind every transform strategy: a tag to
// callback table built once at construction, plus the fallback for unbound
// tags. It guarantees exactly one handler invocation per dispatched node.
type dispatcher struct {
	callbacks map[string]Callback
	fallback  DefaultFunc
	cfg       config
}

func newDispatcher(bindings []Binding, opts []Option) (*dispatcher, error) {
	d := &dispatcher{
		callbacks: make(map[string]Callback, len(bindings)),
		cfg:       newConfig(opts),
	}
	if err := d.apply(bindings); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *dispatcher) apply(bindings []Binding) error {
	for _, b := range bindings {
		if b.def != nil {
			d.fallback = b.def
			continue
		}
		if strings.HasPrefix(b.tag, reservedPrefix) {
			return fmt.Errorf("%w: %q", ErrReservedName, b.tag)
		}
		if err := b.cb.validate(b.tag); err != nil {
			return err
		}
		d.callbacks[b.tag] = b.cb
	}
	return nil
}

// extend derives a new dispatcher that reuses the receiver's callbacks as
// they are and applies the extra bindings on top. Parent callbacks are never
// re-wrapped, only overridden when a binding targets the same tag.
func (d *dispatcher) extend(bindings []Binding) (*dispatcher, error) {
	nd := &dispatcher{
		callbacks: make(map[string]Callback, len(d.callbacks)+len(bindings)),
		fallback:  d.fallback,
		cfg:       d.cfg,
	}
	maps.Copy(nd.callbacks, d.callbacks)
	if err := nd.apply(bindings); err != nil {
		return nil, err
	}
	return nd, nil
}

// dispatch resolves the handler for data and invokes it once, using the
// calling convention recorded on its Callback. Unbound tags go to the
// fallback, or to the built-in reconstruction when none is set.
func (d *dispatcher) dispatch(data string, children []any, meta any) (any, error) {
	cb, ok := d.callbacks[data]
	if !ok {
		d.cfg.logger.Debug("dispatch fallback", "tag", data)
		if d.fallback != nil {
			return d.fallback(data, children, meta)
		}
		return &tree.Tree{Data: data, Children: children, Meta: meta}, nil
	}
	switch {
	case cb.meta != nil:
		return cb.meta(children, meta)
	case cb.inline.IsValid():
		return cb.callInline(data, children)
	default:
		return cb.seq(children)
	}
}

// collect reduces an ordered child sequence left to right. Leaves pass
// through untouched; each *tree.Tree child goes through reduce, and a child
// whose reduction signalled Discard is dropped from the result.
func (d *dispatcher) collect(children []any, reduce func(*tree.Tree) (any, error)) ([]any, error) {
	out := make([]any, 0, len(children))
	for _, c := range children {
		sub, ok := c.(*tree.Tree)
		if !ok {
			out = append(out, c)
			continue
		}
		v, err := reduce(sub)
		if errors.Is(err, Discard) {
			d.cfg.logger.Debug("subtree discarded", "tag", sub.Data)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
