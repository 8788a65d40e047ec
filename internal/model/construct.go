package model

import (
	"github.com/flowlang/flow/internal/charge"
	"github.com/flowlang/flow/internal/container"
)

// Producer reports whether a type requires an external producer to be
// instantiated; Construct only needs this much of the registry's
// DataMeta surface, kept as a narrow interface to avoid a model ->
// registry import cycle (registry already imports model for ability
// function signatures).
type Producer interface {
	container.Meta
	IsStaticallyCreatable() bool
}

// Construct denotes a request to build an instance of TypeMeta
// parameterised by Descriptor.
type Construct struct {
	TypeMeta   container.Meta
	Descriptor *container.Many
	Charge     charge.Charge
}

// NewConstruct builds a construct with an empty descriptor and
// default charge.
func NewConstruct(typeMeta container.Meta) *Construct {
	return &Construct{TypeMeta: typeMeta, Descriptor: container.Empty(), Charge: charge.Default()}
}

// IsStaticallyCreatable reports whether TypeMeta has no producer
// requirement. Returns true (conservatively) if TypeMeta does not
// expose the producer interface at all.
func (c *Construct) IsStaticallyCreatable() bool {
	if p, ok := c.TypeMeta.(Producer); ok {
		return p.IsStaticallyCreatable()
	}
	return true
}

// Hash combines type meta identity and descriptor content. Charge is
// deliberately excluded: setting charge on a Construct must not change
// its descriptor hash.
func (c *Construct) Hash() uint64 {
	return metaHash(c.TypeMeta) ^ c.Descriptor.Hash()
}

// Equal reports structural equality, including charge.
func (c *Construct) Equal(o *Construct) bool {
	if c == nil || o == nil {
		return c == o
	}
	return metaTokenEqual(c.TypeMeta, o.TypeMeta) &&
		c.Descriptor.Equal(o.Descriptor) &&
		c.Charge.Equal(o.Charge)
}

// Clone deep-copies the construct.
func (c *Construct) Clone() *Construct {
	return &Construct{TypeMeta: c.TypeMeta, Descriptor: c.Descriptor.Clone(), Charge: c.Charge}
}

// WithMass/WithRate/WithTime/WithPriority mutate Charge directly and
// return the receiver - they never touch the descriptor, preserving
// the hash invariant above.
func (c *Construct) WithMass(m float64) *Construct     { c.Charge.Mass = m; return c }
func (c *Construct) WithRate(r float64) *Construct     { c.Charge.Rate = r; return c }
func (c *Construct) WithTime(t float64) *Construct     { c.Charge = c.Charge.WithTime(t); return c }
func (c *Construct) WithPriority(p float64) *Construct { c.Charge = c.Charge.WithPriority(p); return c }
