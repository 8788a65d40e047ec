// Package container implements Many, the heterogeneous, stateful,
// typed sequence that is both the parser's output and the executor's
// universal value.
//
// Many is a tagged sum: empty, a flat typed run of values, or a deep
// block of nested Many values. State bits (or/and, past/future,
// missing, const, sparse) are orthogonal to the kind. Reference
// counting / copy-on-write for shared literals is approximated with
// Go's own value semantics plus an explicit Clone; the package never
// imports a source-language smart pointer.
package container

import (
	"fmt"
	"hash/maphash"
)

// Meta identifies a runtime element type without this package needing
// to know about the registry package that defines concrete metas -
// avoids an import cycle (registry.DataMeta implements this).
type Meta interface {
	Token() string
	// CastsToMeta reports whether a value of this meta can be
	// interpreted as the other meta (identity, base class, or a
	// registered numeric/textual conversion).
	CastsToMeta(other Meta) bool
	IsAbstract() bool
}

// Kind is the tag of the Many sum type.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindTyped
	KindDeep
)

// Flag is a bitset of orthogonal state bits carried by a Many.
type Flag uint16

const (
	FlagOr Flag = 1 << iota
	FlagPast
	FlagFuture
	FlagMissing
	FlagConst
	FlagSparse
)

// Many is the heterogeneous, stateful, typed container.
type Many struct {
	kind  Kind
	meta  Meta    // set iff kind == KindTyped
	flat  []any   // set iff kind == KindTyped
	deep  []*Many // set iff kind == KindDeep, owning
	flags Flag
}

// Empty returns a new, empty Many with default (AND, non-const) state.
func Empty() *Many { return &Many{kind: KindEmpty} }

// FromMeta returns an empty-but-typed Many of the given meta: no
// elements yet, but casts_to checks and Push calls will use meta.
func FromMeta(meta Meta) *Many {
	return &Many{kind: KindTyped, meta: meta}
}

// FromStateOf copies only the state bits of other, not its data -
// used to build an output container that should inherit whether its
// source scope was OR/AND, const, etc.
func FromStateOf(other *Many) *Many {
	return &Many{kind: KindEmpty, flags: other.flags}
}

// NewTyped builds a flat typed Many directly from values already known
// to share meta - used by the parser/registry on construction.
func NewTyped(meta Meta, values ...any) *Many {
	return &Many{kind: KindTyped, meta: meta, flat: values}
}

// NewDeep builds a deep Many owning the given children.
func NewDeep(children ...*Many) *Many {
	return &Many{kind: KindDeep, deep: children}
}

// Kind reports the tag of the sum.
func (m *Many) Kind() Kind { return m.kind }

// Flags reports the raw state bits, for serialisation.
func (m *Many) Flags() Flag { return m.flags }

// SetFlags overwrites the state bits, for deserialisation.
func (m *Many) SetFlags(f Flag) { m.flags = f }

// Meta reports the element meta of a typed Many, or nil.
func (m *Many) Meta() Meta { return m.meta }

// IsEmpty reports whether the container holds no elements.
func (m *Many) IsEmpty() bool {
	switch m.kind {
	case KindEmpty:
		return true
	case KindTyped:
		return len(m.flat) == 0
	case KindDeep:
		return len(m.deep) == 0
	}
	return true
}

// IsDeep reports whether the container holds nested Many values.
func (m *Many) IsDeep() bool { return m.kind == KindDeep }

// IsDense is the complement of IsSparse: every element is a concrete
// value, not a reference/placeholder.
func (m *Many) IsDense() bool { return !m.IsSparse() }

// IsSparse reports whether the sparse flag is set (elements are
// references rather than inline values).
func (m *Many) IsSparse() bool { return m.flags&FlagSparse != 0 }

// IsConstant reports whether this Many refuses mutation.
func (m *Many) IsConstant() bool { return m.flags&FlagConst != 0 }

// IsStatic reports whether the container is statically creatable: a
// typed, non-abstract, non-missing Many whose meta has no producer
// requirement is static. Here we approximate with "typed and
// concrete": callers that need the producer check layer it on top via
// the registry, since Many itself doesn't know about producers.
func (m *Many) IsStatic() bool {
	return m.kind == KindTyped && m.meta != nil && !m.IsAbstract() && m.flags&FlagMissing == 0
}

// IsAbstract reports whether the element meta is abstract.
func (m *Many) IsAbstract() bool { return m.meta != nil && m.meta.IsAbstract() }

// IsOr reports whether the or-branching bit is set.
func (m *Many) IsOr() bool { return m.flags&FlagOr != 0 }

// IsAnd is the complement of IsOr.
func (m *Many) IsAnd() bool { return !m.IsOr() }

// IsPast / IsFuture / IsMissing report the corresponding state bits.
func (m *Many) IsPast() bool    { return m.flags&FlagPast != 0 }
func (m *Many) IsFuture() bool  { return m.flags&FlagFuture != 0 }
func (m *Many) IsMissing() bool { return m.flags&FlagMissing != 0 }

// MakeOr / MakeAnd / MakePast / MakeFuture / MakeMissing / MakeConst
// set the corresponding state bit and return the receiver for
// chaining.
func (m *Many) MakeOr() *Many      { m.flags |= FlagOr; return m }
func (m *Many) MakeAnd() *Many     { m.flags &^= FlagOr; return m }
func (m *Many) MakePast() *Many    { m.flags |= FlagPast; m.flags &^= FlagFuture; return m }
func (m *Many) MakeFuture() *Many  { m.flags |= FlagFuture; m.flags &^= FlagPast; return m }
func (m *Many) MakeMissing() *Many { m.flags |= FlagMissing; return m }
func (m *Many) MakeConst() *Many   { m.flags |= FlagConst; return m }
func (m *Many) MakeSparse() *Many  { m.flags |= FlagSparse; return m }

// Len returns the number of elements (flat count, or deep child count).
func (m *Many) Len() int {
	switch m.kind {
	case KindTyped:
		return len(m.flat)
	case KindDeep:
		return len(m.deep)
	}
	return 0
}

// At returns the flat element at index i.
func (m *Many) At(i int) any {
	if m.kind != KindTyped {
		return nil
	}
	return m.flat[i]
}

// DeepAt returns the deep child at index i.
func (m *Many) DeepAt(i int) *Many {
	if m.kind != KindDeep {
		return nil
	}
	return m.deep[i]
}

// ForEach calls fn once per flat element (not recursing into deep
// children). Returns early if fn returns false.
func (m *Many) ForEach(fn func(i int, v any) bool) {
	if m.kind != KindTyped {
		return
	}
	for i, v := range m.flat {
		if !fn(i, v) {
			return
		}
	}
}

// ForEachDeep recurses into nested Many values, calling fn for every
// leaf flat element it contains.
func (m *Many) ForEachDeep(fn func(v any) bool) {
	switch m.kind {
	case KindTyped:
		for _, v := range m.flat {
			if !fn(v) {
				return
			}
		}
	case KindDeep:
		for _, child := range m.deep {
			child.ForEachDeep(fn)
		}
	}
}

// Gather collects every flat element (recursing into deep children)
// whose dynamic type matches T, returning them as a slice in visit
// order.
func Gather[T any](m *Many) []T {
	var out []T
	m.ForEachDeep(func(v any) bool {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}

// CastsToMeta reports whether every flat element's meta (or the
// container's own meta, if typed-empty) can be interpreted as other.
func (m *Many) CastsToMeta(other Meta) bool {
	if other == nil {
		return true
	}
	if m.meta == nil {
		return m.kind != KindTyped
	}
	return m.meta.CastsToMeta(other)
}

// Push appends a value to a flat Many, setting meta if this is the
// first element pushed into an untyped-empty container.
func (m *Many) Push(meta Meta, v any) error {
	if m.IsConstant() {
		return fmt.Errorf("cannot push into a constant Many")
	}
	if m.kind == KindEmpty {
		m.kind = KindTyped
		m.meta = meta
	}
	if m.kind != KindTyped {
		return fmt.Errorf("cannot push a flat value into a deep Many")
	}
	m.flat = append(m.flat, v)
	return nil
}

// PushDeep appends an owned child to a deep (or empty, becoming deep)
// Many.
func (m *Many) PushDeep(child *Many) error {
	if m.IsConstant() {
		return fmt.Errorf("cannot push into a constant Many")
	}
	if m.kind == KindEmpty {
		m.kind = KindDeep
	}
	if m.kind != KindDeep {
		return fmt.Errorf("cannot push a deep value into a flat Many")
	}
	m.deep = append(m.deep, child)
	return nil
}

// SmartPush auto-wraps value for compatibility: if the receiver is
// empty it adopts the pushed Many's kind/meta; if kinds mismatch it
// promotes the receiver to deep and nests both sides.
func (m *Many) SmartPush(side *Many) error {
	if m.IsConstant() {
		return fmt.Errorf("cannot push into a constant Many")
	}
	if m.kind == KindEmpty {
		kept := m.flags
		*m = *side.Clone()
		m.flags |= kept
		return nil
	}
	if m.kind == KindTyped && side.kind == KindTyped && sameMeta(m.meta, side.meta) {
		m.flat = append(m.flat, side.flat...)
		return nil
	}
	// Incompatible shapes: become deep and nest.
	if m.kind != KindDeep {
		wrapped := &Many{kind: m.kind, meta: m.meta, flat: m.flat, flags: m.flags &^ (FlagOr)}
		m.kind = KindDeep
		m.meta = nil
		m.flat = nil
		m.deep = []*Many{wrapped}
	}
	m.deep = append(m.deep, side.Clone())
	return nil
}

func sameMeta(a, b Meta) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Token() == b.Token()
}

// InsertBlock inserts other's content at position i of a deep Many.
func (m *Many) InsertBlock(i int, other *Many) error {
	if m.IsConstant() {
		return fmt.Errorf("cannot mutate a constant Many")
	}
	if m.kind == KindEmpty {
		m.kind = KindDeep
	}
	if m.kind != KindDeep {
		return fmt.Errorf("cannot insert a block into a flat Many")
	}
	if i < 0 || i > len(m.deep) {
		return fmt.Errorf("insert index %d out of range", i)
	}
	m.deep = append(m.deep[:i:i], append([]*Many{other}, m.deep[i:]...)...)
	return nil
}

// RemoveIndex removes the element at position i.
func (m *Many) RemoveIndex(i int) error {
	if m.IsConstant() {
		return fmt.Errorf("cannot mutate a constant Many")
	}
	switch m.kind {
	case KindTyped:
		if i < 0 || i >= len(m.flat) {
			return fmt.Errorf("remove index %d out of range", i)
		}
		m.flat = append(m.flat[:i], m.flat[i+1:]...)
	case KindDeep:
		if i < 0 || i >= len(m.deep) {
			return fmt.Errorf("remove index %d out of range", i)
		}
		m.deep = append(m.deep[:i], m.deep[i+1:]...)
	default:
		return fmt.Errorf("cannot remove from an empty Many")
	}
	return nil
}

// Reset clears all data while preserving state flags and meta.
func (m *Many) Reset() {
	m.flat = nil
	m.deep = nil
	m.kind = KindEmpty
}

// Optimize collapses single-child deep wrappers and drops empty
// children.
func (m *Many) Optimize() {
	if m.kind != KindDeep {
		return
	}
	var kept []*Many
	for _, child := range m.deep {
		child.Optimize()
		if child.IsEmpty() && !child.IsMissing() {
			continue
		}
		kept = append(kept, child)
	}
	m.deep = kept
	if len(m.deep) == 1 && !m.IsOr() {
		only := m.deep[0]
		m.kind = only.kind
		m.meta = only.meta
		m.flat = only.flat
		inner := m.deep[0].deep
		or := m.flags & FlagOr
		m.flags = only.flags | or
		m.deep = inner
	}
}

// CopyTo copies as many elements as possible into dst, returning the
// count copied. Fails with an error (BadCopy, in flowerr) left to the
// caller to construct, since this package must not import flowerr to
// avoid a cycle with the model/exec layers that both depend on it.
func (m *Many) CopyTo(dst *Many) (int, error) {
	if dst.IsConstant() {
		return 0, fmt.Errorf("bad copy: destination is constant")
	}
	switch m.kind {
	case KindEmpty:
		dst.Reset()
		return 0, nil
	case KindTyped:
		dst.kind = KindTyped
		dst.meta = m.meta
		dst.flat = append([]any(nil), m.flat...)
		return len(dst.flat), nil
	case KindDeep:
		dst.kind = KindDeep
		dst.deep = make([]*Many, len(m.deep))
		for i, c := range m.deep {
			dst.deep[i] = c.Clone()
		}
		return len(dst.deep), nil
	}
	return 0, fmt.Errorf("bad copy: unknown kind")
}

// Clone deep-copies the container, including nested children and
// state bits, but never copies the observer-only back-links that
// model.MissingPoint keeps outside of Many (those live in the model
// package and are explicitly reset on clone there).
func (m *Many) Clone() *Many {
	if m == nil {
		return nil
	}
	clone := &Many{kind: m.kind, meta: m.meta, flags: m.flags}
	if m.flat != nil {
		clone.flat = append([]any(nil), m.flat...)
	}
	if m.deep != nil {
		clone.deep = make([]*Many, len(m.deep))
		for i, c := range m.deep {
			clone.deep[i] = c.Clone()
		}
	}
	return clone
}

var hashSeed = maphash.MakeSeed()

// Hash returns a structural hash of the container's shape and content.
func (m *Many) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	m.writeHash(&h)
	return h.Sum64()
}

func (m *Many) writeHash(h *maphash.Hash) {
	_, _ = h.Write([]byte{byte(m.kind), byte(m.flags), byte(m.flags >> 8)})
	switch m.kind {
	case KindTyped:
		if m.meta != nil {
			_, _ = h.WriteString(m.meta.Token())
		}
		for _, v := range m.flat {
			_, _ = h.WriteString(fmt.Sprintf("%T:%v;", v, v))
		}
	case KindDeep:
		for _, c := range m.deep {
			c.writeHash(h)
		}
	}
}

// Equal reports structural equality between two Many values.
func (m *Many) Equal(o *Many) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.kind != o.kind || m.flags != o.flags {
		return false
	}
	switch m.kind {
	case KindTyped:
		if !sameMeta(m.meta, o.meta) || len(m.flat) != len(o.flat) {
			return false
		}
		for i := range m.flat {
			if fmt.Sprint(m.flat[i]) != fmt.Sprint(o.flat[i]) {
				return false
			}
		}
		return true
	case KindDeep:
		if len(m.deep) != len(o.deep) {
			return false
		}
		for i := range m.deep {
			if !m.deep[i].Equal(o.deep[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// String renders a debug-friendly, not necessarily round-trippable,
// textual form - Code.String()/the parser own the authoritative
// serialisation grammar; this is for logs and test failures.
func (m *Many) String() string {
	switch m.kind {
	case KindEmpty:
		return "<empty>"
	case KindTyped:
		return fmt.Sprintf("%v", m.flat)
	case KindDeep:
		s := "("
		for i, c := range m.deep {
			if i > 0 {
				if m.IsOr() {
					s += " or "
				} else {
					s += ", "
				}
			}
			s += c.String()
		}
		return s + ")"
	}
	return ""
}
