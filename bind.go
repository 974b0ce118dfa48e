package espalier

import (
	"fmt"
	"reflect"
)

// reservedPrefix marks the framework-internal tag namespace. User handlers
// cannot bind tags under it.
const reservedPrefix = "__"

// SeqFunc is the default handler shape: one call per node, the node's
// already-reduced children delivered as a single ordered slice.
type SeqFunc func(children []any) (any, error)

// MetaFunc is the metadata handler shape: reduced children plus the node's
// own Meta record. The record is shared, not copied, so mutations through it
// are visible on the original node.
type MetaFunc func(children []any, meta any) (any, error)

// DefaultFunc is the fallback invoked when a node's tag has no bound handler.
type DefaultFunc func(data string, children []any, meta any) (any, error)

// Callback couples a handler with its calling convention. Build one with
// Seq, Inline or WithMeta; the zero value fails construction.
//
// The three shapes are mutually exclusive by construction. In particular
// there is no inlined-with-metadata shape: metadata has no natural position
// in an unpacked argument list.
type Callback struct {
	seq    SeqFunc
	meta   MetaFunc
	inline reflect.Value
}

// Seq wraps fn in the default shape.
func Seq(fn SeqFunc) Callback { return Callback{seq: fn} }

// WithMeta wraps fn in the metadata shape.
func WithMeta(fn MetaFunc) Callback { return Callback{meta: fn} }

// Inline wraps fn in the positional shape: each reduced child is passed as a
// separate argument. fn must be a func whose results are (T) or (T, error);
// anything else fails construction with ErrBadHandler. The framework does
// not enforce arity up front — a node whose child count does not match fn's
// parameter count produces an argument-count error when that node is
// dispatched. Variadic funcs accept any child count at or above their fixed
// parameter count.
func Inline(fn any) Callback { return Callback{inline: reflect.ValueOf(fn)} }

var errType = reflect.TypeOf((*error)(nil)).Elem()

// validate checks a callback eagerly, at construction time, so that shape
// mistakes never surface mid-traversal.
func (c Callback) validate(tag string) error {
	if c.seq != nil || c.meta != nil {
		return nil
	}
	if !c.inline.IsValid() {
		return fmt.Errorf("%w: no handler bound for tag %q", ErrBadHandler, tag)
	}
	t := c.inline.Type()
	if t.Kind() != reflect.Func {
		return fmt.Errorf("%w: inline handler for tag %q is %s, want func", ErrBadHandler, tag, t.Kind())
	}
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return fmt.Errorf("%w: inline handler for tag %q returns only an error, want a value", ErrBadHandler, tag)
		}
	case 2:
		if t.Out(1) != errType {
			return fmt.Errorf("%w: inline handler for tag %q must have error as its second result, got %s", ErrBadHandler, tag, t.Out(1))
		}
	default:
		return fmt.Errorf("%w: inline handler for tag %q returns %d values, want (T) or (T, error)", ErrBadHandler, tag, t.NumOut())
	}
	return nil
}

// callInline invokes an inline handler with the children unpacked into
// positional arguments.
func (c Callback) callInline(tag string, children []any) (any, error) {
	t := c.inline.Type()
	if t.IsVariadic() {
		if want := t.NumIn() - 1; len(children) < want {
			return nil, fmt.Errorf("espalier: handler for tag %q takes at least %d arguments, node has %d children", tag, want, len(children))
		}
	} else if len(children) != t.NumIn() {
		return nil, fmt.Errorf("espalier: handler for tag %q takes %d arguments, node has %d children", tag, t.NumIn(), len(children))
	}
	in := make([]reflect.Value, len(children))
	for i, child := range children {
		pt := paramType(t, i)
		if child == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		cv := reflect.ValueOf(child)
		if !cv.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("espalier: handler for tag %q: child %d is %T, want %s", tag, i, child, pt)
		}
		in[i] = cv
	}
	out := c.inline.Call(in)
	if len(out) == 2 {
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
	}
	return out[0].Interface(), nil
}

func paramType(t reflect.Type, i int) reflect.Type {
	if t.IsVariadic() && i >= t.NumIn()-1 {
		return t.In(t.NumIn() - 1).Elem()
	}
	return t.In(i)
}

// Binding attaches one handler — or the fallback — to a strategy under
// construction.
type Binding struct {
	tag string
	cb  Callback
	def DefaultFunc
}

// On binds cb to nodes tagged tag.
func On(tag string, cb Callback) Binding { return Binding{tag: tag, cb: cb} }

// Default replaces the built-in fallback handler, which reconstructs a
// generic node with the same tag and metadata and the reduced children.
func Default(fn DefaultFunc) Binding { return Binding{def: fn} }

// Handlers collects bindings into a slice, purely for call-site readability.
func Handlers(bindings ...Binding) []Binding { return bindings }

// SeqAll binds every handler in the map in the default shape. It is the bulk
// equivalent of calling On(tag, Seq(fn)) per entry, for holders whose
// handlers all share one calling convention.
func SeqAll(handlers map[string]SeqFunc) []Binding {
	out := make([]Binding, 0, len(handlers))
	for tag, fn := range handlers {
		out = append(out, On(tag, Seq(fn)))
	}
	return out
}

// InlineAll binds every handler in the map in the positional shape.
func InlineAll(handlers map[string]any) []Binding {
	out := make([]Binding, 0, len(handlers))
	for tag, fn := range handlers {
		out = append(out, On(tag, Inline(fn)))
	}
	return out
}

// MetaAll binds every handler in the map in the metadata shape.
func MetaAll(handlers map[string]MetaFunc) []Binding {
	out := make([]Binding, 0, len(handlers))
	for tag, fn := range handlers {
		out = append(out, On(tag, WithMeta(fn)))
	}
	return out
}
