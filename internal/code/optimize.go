package code

import (
	"math"

	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// optimizeTree constant-folds arithmetic verbs whose operands are
// literal reals, bottom-up. Non-arithmetic nodes and verbs with any
// non-literal operand are left untouched; the executor evaluates them
// at run time instead.
func optimizeTree(reg *registry.Registry, m *container.Many) *container.Many {
	if m == nil {
		return nil
	}
	if m.IsDeep() {
		folded := container.FromStateOf(m)
		for i := 0; i < m.Len(); i++ {
			child := optimizeTree(reg, m.DeepAt(i))
			_ = folded.SmartPush(child)
		}
		return folded
	}
	if m.Kind() != container.KindTyped || m.Len() != 1 {
		return m
	}
	v, ok := m.At(0).(*model.Verb)
	if !ok {
		return m
	}
	v.SetSource(optimizeTree(reg, v.Source))
	v.SetArgument(optimizeTree(reg, v.Argument))

	result, ok := foldArithmetic(reg, v)
	if !ok {
		return m
	}
	numberMeta := reg.GetMetaData("number")
	if numberMeta == nil {
		return m
	}
	return container.NewTyped(numberMeta, result)
}

// foldArithmetic evaluates an arithmetic verb over literal reals. The
// reverse form of each pair is expressed through the sign of mass:
// Add with mass -1 is Subtract, Multiply is Divide, Exponent is Root.
func foldArithmetic(reg *registry.Registry, v *model.Verb) (float64, bool) {
	arg, ok := literalNumber(v.Argument)
	if !ok {
		return 0, false
	}
	src, srcOK := literalNumber(v.Source)

	switch v.VerbMeta {
	case container.Meta(registry.VerbAdd):
		if !srcOK {
			if !v.Source.IsEmpty() {
				return 0, false
			}
			src = 0 // unary: an empty source behaves as zero
		}
		return src + v.Charge.Mass*arg, true
	case container.Meta(registry.VerbMultiply):
		if !srcOK {
			return 0, false
		}
		if v.Charge.Mass < 0 {
			if arg == 0 {
				return 0, false
			}
			return src / arg, true
		}
		return src * arg, true
	case container.Meta(registry.VerbExponent):
		if !srcOK {
			return 0, false
		}
		if v.Charge.Mass < 0 {
			if arg == 0 {
				return 0, false
			}
			return math.Pow(src, 1/arg), true
		}
		return math.Pow(src, arg), true
	case container.Meta(registry.VerbModulate):
		if !srcOK || arg == 0 {
			return 0, false
		}
		return math.Mod(src, arg), true
	}
	return 0, false
}

// literalNumber extracts the single literal real held by m, descending
// through single-child deep wrappers left by scope parsing.
func literalNumber(m *container.Many) (float64, bool) {
	for m != nil && m.IsDeep() && m.Len() == 1 {
		m = m.DeepAt(0)
	}
	if m == nil || m.Kind() != container.KindTyped || m.Len() != 1 {
		return 0, false
	}
	f, ok := m.At(0).(float64)
	return f, ok
}
