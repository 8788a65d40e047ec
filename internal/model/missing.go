package model

import (
	"weak"

	"github.com/flowlang/flow/internal/container"
)

// MissingKind distinguishes the two concrete missing-point variants.
type MissingKind uint8

const (
	MissingPastKind MissingKind = iota
	MissingFutureKind
)

// MissingPoint is a placeholder in the graph waiting to be filled from
// past context (MissingPastKind) or future context (MissingFutureKind).
//
// The above/below links observe without owning: a missing point must
// never keep its enclosing (or nested) missing points alive.
// weak.Pointer gives us that directly instead of an arena+index
// scheme - the linker
// (internal/temporal) is the sole owner of every MissingPoint's
// strong reference.
type MissingPoint struct {
	Kind      MissingKind
	Filter    []container.Meta
	Content   *container.Many
	Priority  float64
	above     weak.Pointer[MissingPoint]
	below     []weak.Pointer[MissingPoint]
	Suspended bool
}

// NewMissingPast builds an unsuspended, unfilled past-missing point.
func NewMissingPast(filter ...container.Meta) *MissingPoint {
	return &MissingPoint{Kind: MissingPastKind, Filter: filter, Content: container.Empty()}
}

// NewMissingFuture builds an unsuspended, unfilled future-missing
// point.
func NewMissingFuture(filter ...container.Meta) *MissingPoint {
	return &MissingPoint{Kind: MissingFutureKind, Filter: filter, Content: container.Empty()}
}

// Above returns the enclosing missing point, or nil if it has been
// collected or was never set.
func (p *MissingPoint) Above() *MissingPoint { return p.above.Value() }

// SetAbove installs the (non-owning) enclosing-point observer link.
func (p *MissingPoint) SetAbove(parent *MissingPoint) { p.above = weak.Make(parent) }

// Below returns the live child missing points, pruning any that have
// since been collected.
func (p *MissingPoint) Below() []*MissingPoint {
	var live []*MissingPoint
	kept := p.below[:0]
	for _, w := range p.below {
		if v := w.Value(); v != nil {
			live = append(live, v)
			kept = append(kept, w)
		}
	}
	p.below = kept
	return live
}

// AddBelow installs a (non-owning) child-point observer link.
func (p *MissingPoint) AddBelow(child *MissingPoint) {
	p.below = append(p.below, weak.Make(child))
}

// IsSatisfied reports whether Content contains at least one element
// whose meta matches Filter (or Filter is empty).
func (p *MissingPoint) IsSatisfied() bool {
	if p.Content.IsEmpty() {
		return false
	}
	if len(p.Filter) == 0 {
		return true
	}
	matched := false
	var check func(m *container.Many)
	check = func(m *container.Many) {
		if matched || m == nil {
			return
		}
		if m.IsDeep() {
			for i := 0; i < m.Len(); i++ {
				check(m.DeepAt(i))
			}
			return
		}
		if m.IsEmpty() {
			return
		}
		for _, f := range p.Filter {
			if m.CastsToMeta(f) {
				matched = true
				return
			}
		}
	}
	check(p.Content)
	return matched
}

// Clone resets the observer links to empty - relinking happens
// during the next linking pass.
func (p *MissingPoint) Clone() *MissingPoint {
	return &MissingPoint{
		Kind:      p.Kind,
		Filter:    append([]container.Meta(nil), p.Filter...),
		Content:   p.Content.Clone(),
		Priority:  p.Priority,
		Suspended: p.Suspended,
	}
}

// missingMeta lets a MissingPoint be wrapped in a container.Many the
// same way every other graph node is (a typed single-element Many
// whose meta identifies the element) without the model package
// needing to import the registry package for a dedicated data type.
type missingMeta string

func (m missingMeta) Token() string                    { return string(m) }
func (m missingMeta) IsAbstract() bool                  { return false }
func (m missingMeta) CastsToMeta(o container.Meta) bool { return o != nil && o.Token() == string(m) }

// MissingPastMeta and MissingFutureMeta are the metas used to wrap a
// MissingPoint when it is stored inside a Many.
var (
	MissingPastMeta   container.Meta = missingMeta("?")
	MissingFutureMeta container.Meta = missingMeta("??")
)

// Wrap returns a single-element typed Many holding p, with the
// past/future/missing state bits set appropriately.
func (p *MissingPoint) Wrap() *container.Many {
	meta := MissingPastMeta
	if p.Kind == MissingFutureKind {
		meta = MissingFutureMeta
	}
	m := container.NewTyped(meta, p)
	m.MakeMissing()
	if p.Kind == MissingFutureKind {
		m.MakeFuture()
	} else {
		m.MakePast()
	}
	return m
}
