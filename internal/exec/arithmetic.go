package exec

import (
	"math"

	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// defaultArithmetic evaluates Add/Multiply/Exponent/Modulate
// element-wise over the numbers in source and argument. The reverse
// direction of each pair rides on the sign of mass: Add becomes
// Subtract, Multiply becomes Divide, Exponent becomes Root. A side
// with no numbers fails silently ("not applicable").
func (r *Runner) defaultArithmetic(v *model.Verb) bool {
	numberMeta := r.reg.GetMetaData("number")
	if numberMeta == nil {
		return false
	}
	args := numbersOf(v.Argument)
	if len(args) == 0 {
		return false
	}
	srcs := numbersOf(v.Source)
	if len(srcs) == 0 {
		if v.VerbMeta != container.Meta(registry.VerbAdd) || !v.Source.IsEmpty() {
			return false
		}
		srcs = []float64{0} // unary: an empty source behaves as zero
	}

	n := len(srcs)
	if len(args) > n {
		n = len(args)
	}
	results := make([]any, 0, n)
	for i := 0; i < n; i++ {
		s := srcs[min(i, len(srcs)-1)]
		a := args[min(i, len(args)-1)]
		result, ok := applyArithmetic(v, s, a)
		if !ok {
			return false
		}
		results = append(results, result)
	}
	v.Output = container.NewTyped(numberMeta, results...)
	return true
}

func applyArithmetic(v *model.Verb, s, a float64) (float64, bool) {
	reversed := v.Charge.Mass < 0
	switch v.VerbMeta {
	case container.Meta(registry.VerbAdd):
		return s + v.Charge.Mass*a, true
	case container.Meta(registry.VerbMultiply):
		if reversed {
			if a == 0 {
				return 0, false
			}
			return s / a, true
		}
		return s * a, true
	case container.Meta(registry.VerbExponent):
		if reversed {
			if a == 0 {
				return 0, false
			}
			return math.Pow(s, 1/a), true
		}
		return math.Pow(s, a), true
	case container.Meta(registry.VerbModulate):
		if a == 0 {
			return 0, false
		}
		return math.Mod(s, a), true
	}
	return 0, false
}

// defaultComparison evaluates Compare/Equal/Lower/Greater/LowerOrEqual
// over the first number (or, for Equal, any scalar) of each side.
// Compare outputs the three-way ordering as a number; the rest output
// booleans.
func (r *Runner) defaultComparison(v *model.Verb) bool {
	boolMeta := r.reg.GetMetaData("bool")
	numberMeta := r.reg.GetMetaData("number")

	srcs := numbersOf(v.Source)
	args := numbersOf(v.Argument)

	if len(srcs) == 0 || len(args) == 0 {
		// Equal still applies structurally to non-numeric scalars.
		if v.VerbMeta == container.Meta(registry.VerbEqual) && boolMeta != nil {
			if v.Source.IsEmpty() || v.Argument.IsEmpty() {
				return false
			}
			v.Output = container.NewTyped(boolMeta, v.Source.Equal(v.Argument))
			return true
		}
		return false
	}

	s, a := srcs[0], args[0]
	switch v.VerbMeta {
	case container.Meta(registry.VerbCompare):
		if numberMeta == nil {
			return false
		}
		result := 0.0
		if s < a {
			result = -1
		} else if s > a {
			result = 1
		}
		v.Output = container.NewTyped(numberMeta, result)
		return true
	case container.Meta(registry.VerbEqual):
		if boolMeta == nil {
			return false
		}
		v.Output = container.NewTyped(boolMeta, s == a)
		return true
	case container.Meta(registry.VerbLower):
		if boolMeta == nil {
			return false
		}
		v.Output = container.NewTyped(boolMeta, s < a)
		return true
	case container.Meta(registry.VerbGreater):
		if boolMeta == nil {
			return false
		}
		v.Output = container.NewTyped(boolMeta, s > a)
		return true
	case container.Meta(registry.VerbLowerOrEqual):
		if boolMeta == nil {
			return false
		}
		v.Output = container.NewTyped(boolMeta, s <= a)
		return true
	}
	return false
}

// numbersOf collects every literal real in m, recursing deep.
func numbersOf(m *container.Many) []float64 {
	if m == nil {
		return nil
	}
	return container.Gather[float64](m)
}
