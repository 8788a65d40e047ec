// Package flowerr defines the caller-facing error families of the flow
// runtime: parse failures, link failures, execution failures, and the
// narrower structural errors (bad copy, mutate) raised by the container
// and construct layers. Contract violations inside the core itself use
// internal/invariant instead - these types are for conditions a caller
// is expected to handle (bad source text, an unsatisfiable push, a
// malformed construct).
package flowerr

import "fmt"

// ParseError carries positional context the way a recursive-descent
// parser naturally accumulates it: what has already been consumed
// (left context) and what remains (right context).
type ParseError struct {
	Position    int
	Message     string
	LeftContext string
	RightContext string
	Suggestions []string
}

func (e *ParseError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("parse error at %d: %s (did you mean: %v?)\n  -- %s|%s",
			e.Position, e.Message, e.Suggestions, e.LeftContext, e.RightContext)
	}
	return fmt.Sprintf("parse error at %d: %s\n  -- %s|%s",
		e.Position, e.Message, e.LeftContext, e.RightContext)
}

// LinkError signals that a push could not be satisfied by any
// available future point or context. The flow is left unchanged.
type LinkError struct {
	Message string
}

func (e *LinkError) Error() string { return "link error: " + e.Message }

// FlowError signals a structural execution failure: constant context,
// abstract context, wrong arity - anything beyond "not applicable".
type FlowError struct {
	Message string
}

func (e *FlowError) Error() string { return "flow error: " + e.Message }

// ConstructError signals that a Construct could not be realized by
// Create: unknown type, non-creatable type, or a descriptor that
// failed schema validation.
type ConstructError struct {
	Message string
}

func (e *ConstructError) Error() string { return "construct error: " + e.Message }

// BadCopy signals that CopyTo could not copy between incompatible
// Many values (type mismatch with no viable interpretation).
type BadCopy struct {
	From, To string
}

func (e *BadCopy) Error() string {
	return fmt.Sprintf("bad copy: cannot copy %s into %s", e.From, e.To)
}

// MutateError signals an attempted mutation of a constant or otherwise
// immutable Many.
type MutateError struct {
	Message string
}

func (e *MutateError) Error() string { return "mutate error: " + e.Message }
