// Package model implements the verb/construct/trait/missing-point
// data model: the in-memory abstract graph produced by the parser,
// consumed by the executor, and rewritten by the temporal linker.
package model

import (
	"github.com/flowlang/flow/internal/charge"
	"github.com/flowlang/flow/internal/container"
)

// Verb is a named operation carrying a source, an argument, an
// output, a charge, and execution state.
type Verb struct {
	VerbMeta  container.Meta
	Source    *container.Many
	Argument  *container.Many
	Output    *container.Many
	Charge    charge.Charge
	State     charge.VerbState
	Successes uint32
	Done      bool

	// Entangled is set by the temporal linker on every verb of an OR
	// branch spread across stacks; branches share the pointer so the
	// first to complete makes the rest inert. Nil for ordinary verbs.
	Entangled *EntangledFlag
}

// NewVerb builds a verb with empty source/argument/output and default
// charge/state, per the invariant successes==0 <=> not done.
func NewVerb(meta container.Meta) *Verb {
	return &Verb{
		VerbMeta: meta,
		Source:   container.Empty(),
		Argument: container.Empty(),
		Output:   container.Empty(),
		Charge:   charge.Default(),
	}
}

// Hash combines the identity of the verb's meta, source, argument,
// and output: hash(verb_meta) xor hash(source) xor hash(argument)
// xor hash(output).
func (v *Verb) Hash() uint64 {
	return metaHash(v.VerbMeta) ^ v.Source.Hash() ^ v.Argument.Hash() ^ v.Output.Hash()
}

// Equal reports structural equality of every field.
func (v *Verb) Equal(o *Verb) bool {
	if v == nil || o == nil {
		return v == o
	}
	return metaTokenEqual(v.VerbMeta, o.VerbMeta) &&
		v.Source.Equal(o.Source) &&
		v.Argument.Equal(o.Argument) &&
		v.Output.Equal(o.Output) &&
		v.Charge.Equal(o.Charge) &&
		v.State == o.State
}

func metaTokenEqual(a, b container.Meta) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Token() == b.Token()
}

// Clone deep-copies the verb including charge and flags, but resets
// per-execution state (successes, done, output).
func (v *Verb) Clone() *Verb {
	clone := &Verb{
		VerbMeta:  v.VerbMeta,
		Source:    v.Source.Clone(),
		Argument:  v.Argument.Clone(),
		Output:    container.Empty(),
		Charge:    v.Charge,
		State:     v.State,
		Entangled: v.Entangled, // shared by design: clones stay in the branch
	}
	return clone
}

// Reset returns the verb to its pre-execution state: clears output,
// clears done/successes, and descends recursively into source and
// argument (any nested Verb values found there are reset too).
func (v *Verb) Reset() {
	v.Output = container.Empty()
	v.Done = false
	v.Successes = 0
	resetDeep(v.Source)
	resetDeep(v.Argument)
}

func resetDeep(m *container.Many) {
	if m == nil {
		return
	}
	m.ForEach(func(_ int, val any) bool {
		if nested, ok := val.(*Verb); ok {
			nested.Reset()
		}
		return true
	})
	m.ForEachDeep(func(val any) bool {
		if nested, ok := val.(*Verb); ok {
			nested.Reset()
		}
		return true
	})
}

// WithMass, WithRate, WithTime, WithPriority set the corresponding
// charge component directly and return the receiver for chaining.
func (v *Verb) WithMass(m float64) *Verb     { v.Charge.Mass = m; return v }
func (v *Verb) WithRate(r float64) *Verb     { v.Charge.Rate = r; return v }
func (v *Verb) WithTime(t float64) *Verb     { v.Charge = v.Charge.WithTime(t); return v }
func (v *Verb) WithPriority(p float64) *Verb { v.Charge = v.Charge.WithPriority(p); return v }

// SetSource clears cached done/output, per the invariant that setting
// source/argument on a Verb invalidates any prior execution result.
func (v *Verb) SetSource(m *container.Many) *Verb {
	v.Source = m
	v.Done = false
	v.Successes = 0
	v.Output = container.Empty()
	return v
}

// SetArgument clears cached done/output, same invariant as SetSource.
func (v *Verb) SetArgument(m *container.Many) *Verb {
	v.Argument = m
	v.Done = false
	v.Successes = 0
	v.Output = container.Empty()
	return v
}

// Succeed records one successful application and marks the verb done.
func (v *Verb) Succeed() {
	v.Successes++
	v.Done = true
}
