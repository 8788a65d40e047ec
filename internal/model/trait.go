package model

import "github.com/flowlang/flow/internal/container"

// Trait is a named container: behaves as Many for iteration but
// carries an identity distinct from its content.
type Trait struct {
	TraitMeta container.Meta
	Content   *container.Many
}

// NewTrait builds a trait wrapping an empty content container.
func NewTrait(meta container.Meta) *Trait {
	return &Trait{TraitMeta: meta, Content: container.Empty()}
}

// Hash combines trait identity and content.
func (t *Trait) Hash() uint64 {
	return metaHash(t.TraitMeta) ^ t.Content.Hash()
}

// Equal reports structural equality.
func (t *Trait) Equal(o *Trait) bool {
	if t == nil || o == nil {
		return t == o
	}
	return metaTokenEqual(t.TraitMeta, o.TraitMeta) && t.Content.Equal(o.Content)
}

// Clone deep-copies the trait.
func (t *Trait) Clone() *Trait {
	return &Trait{TraitMeta: t.TraitMeta, Content: t.Content.Clone()}
}
