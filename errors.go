package espalier

import "errors"

// Discard is the subtree-pruning signal. A transform handler returns it
// (usually as `return nil, espalier.Discard`) to tell the parent's
// child-collection step to drop this subtree's result from the reduced child
// sequence. It is control flow, not a failure: the collecting strategies
// filter it with errors.Is. Returned from the root call itself it is not
// consumed and reaches the caller of Transform unchanged.
var Discard = errors.New("espalier: discard subtree")

// ErrReservedName is returned at construction when a handler is bound to a
// tag inside the framework-internal "__" namespace.
var ErrReservedName = errors.New("espalier: tag name is reserved")

// ErrBadHandler is returned at construction when an inline handler is not a
// func, or its signature does not produce (T) or (T, error).
var ErrBadHandler = errors.New("espalier: invalid handler signature")
