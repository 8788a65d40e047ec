package exec

import (
	"fmt"

	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/flowerr"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
	"github.com/flowlang/flow/internal/schema"
)

// defaultAbility is the third dispatch phase: the built-in behaviour
// for each well-known verb. Reversible pairs share a VerbMeta; the
// sign of mass picks the direction.
func (r *Runner) defaultAbility(context *container.Many, v *model.Verb) (bool, error) {
	switch v.VerbMeta {
	case container.Meta(registry.VerbDo):
		return r.defaultDo(context, v), nil
	case container.Meta(registry.VerbInterpret):
		return r.defaultInterpret(context, v), nil
	case container.Meta(registry.VerbAssociate):
		return r.defaultAssociate(context, v)
	case container.Meta(registry.VerbSelect):
		return r.defaultSelect(context, v), nil
	case container.Meta(registry.VerbCreate):
		return r.defaultCreate(context, v)
	case container.Meta(registry.VerbCatenate):
		return r.defaultCatenate(v), nil
	case container.Meta(registry.VerbConjunct):
		return r.defaultConjunct(v), nil
	case container.Meta(registry.VerbScope):
		return r.defaultScope(v), nil
	case container.Meta(registry.VerbAdd),
		container.Meta(registry.VerbMultiply),
		container.Meta(registry.VerbExponent),
		container.Meta(registry.VerbModulate):
		return r.defaultArithmetic(v), nil
	case container.Meta(registry.VerbCompare),
		container.Meta(registry.VerbEqual),
		container.Meta(registry.VerbLower),
		container.Meta(registry.VerbGreater),
		container.Meta(registry.VerbLowerOrEqual):
		return r.defaultComparison(v), nil
	}
	return false, nil
}

// defaultDo propagates: if the output is still empty after
// integration, the argument (if non-empty) else the source flows
// through. Do cannot fail.
func (r *Runner) defaultDo(context *container.Many, v *model.Verb) bool {
	if !v.Output.IsEmpty() {
		return true
	}
	if !v.Argument.IsEmpty() {
		v.Output = v.Argument.Clone()
	} else if !v.Source.IsEmpty() {
		v.Output = v.Source.Clone()
	} else if context != nil && !context.IsEmpty() {
		v.Output = context.Clone()
	}
	return true
}

// defaultInterpret converts context to each type requested in the
// argument: identity cast, base-class pass-through, numeric cast, else
// fail silently.
func (r *Runner) defaultInterpret(context *container.Many, v *model.Verb) bool {
	output := container.Empty()
	for _, target := range requestedTypes(v.Argument) {
		switch {
		case context.CastsToMeta(target):
			_ = output.SmartPush(retype(context, target))
		case isNumericPair(context.Meta(), target):
			_ = output.SmartPush(retype(context, target))
		}
	}
	if output.IsEmpty() {
		return false
	}
	v.Output = output
	return true
}

// requestedTypes extracts the DataMeta targets named by an Interpret
// argument: bare type keywords parse into empty-descriptor Constructs,
// and a raw meta is accepted too for programmatic callers.
func requestedTypes(argument *container.Many) []*registry.DataMeta {
	var out []*registry.DataMeta
	argument.ForEachDeep(func(elem any) bool {
		switch t := elem.(type) {
		case *model.Construct:
			if dm, ok := t.TypeMeta.(*registry.DataMeta); ok {
				out = append(out, dm)
			}
		case *registry.DataMeta:
			out = append(out, t)
		}
		return true
	})
	return out
}

func isNumericPair(a container.Meta, b *registry.DataMeta) bool {
	am, ok := a.(*registry.DataMeta)
	return ok && am.IsNumeric() && b.IsNumeric()
}

// retype clones m under a new element meta, keeping the values.
func retype(m *container.Many, target *registry.DataMeta) *container.Many {
	if m.Kind() != container.KindTyped {
		return m.Clone()
	}
	values := make([]any, 0, m.Len())
	m.ForEach(func(_ int, v any) bool {
		values = append(values, v)
		return true
	})
	return container.NewTyped(target, values...)
}

// defaultAssociate assigns the argument onto a copy of the context:
// direct structural assignment first, then interpretation to the
// context's element type, then catenation. Disassociate (mass < 0)
// removes matching elements instead.
func (r *Runner) defaultAssociate(context *container.Many, v *model.Verb) (bool, error) {
	if context.IsEmpty() {
		return false, &flowerr.FlowError{Message: "associate requires a non-empty context"}
	}
	if context.IsConstant() {
		return false, &flowerr.FlowError{Message: "associate requires a mutable context"}
	}
	if context.IsAbstract() {
		return false, &flowerr.FlowError{Message: "associate requires a concrete context"}
	}

	copy := context.Clone()
	if v.Charge.Mass < 0 {
		removed := disassociate(copy, v.Argument)
		if !removed {
			return false, nil
		}
		v.Output = copy
		return true, nil
	}

	assigned := false
	forEachTerm(v.Argument, func(term *container.Many) {
		switch {
		case sameElementMeta(copy, term):
			// Direct structural assignment: the term replaces the copy's
			// content.
			replaced := term.Clone()
			_, _ = replaced.CopyTo(copy)
			assigned = true
		case canInterpret(copy.Meta(), term.Meta()):
			_, _ = retypeTo(term, copy.Meta()).CopyTo(copy)
			assigned = true
		default:
			if err := copy.SmartPush(term.Clone()); err == nil {
				assigned = true
			}
		}
	})
	if !assigned {
		return false, nil
	}
	v.Output = copy
	return true, nil
}

func disassociate(copy *container.Many, argument *container.Many) bool {
	removed := false
	argument.ForEachDeep(func(target any) bool {
		for i := 0; i < copy.Len(); i++ {
			if fmt.Sprint(copy.At(i)) == fmt.Sprint(target) {
				_ = copy.RemoveIndex(i)
				removed = true
				break
			}
		}
		return true
	})
	return removed
}

// forEachTerm visits every flat run of an argument, descending deep
// children, handing each as its own single-meta Many.
func forEachTerm(m *container.Many, fn func(term *container.Many)) {
	if m == nil || m.IsEmpty() {
		return
	}
	if m.IsDeep() {
		for i := 0; i < m.Len(); i++ {
			forEachTerm(m.DeepAt(i), fn)
		}
		return
	}
	fn(m)
}

func sameElementMeta(a, b *container.Many) bool {
	am, bm := a.Meta(), b.Meta()
	if am == nil || bm == nil {
		return am == bm
	}
	return am.Token() == bm.Token()
}

func canInterpret(to container.Meta, from container.Meta) bool {
	toDM, ok := to.(*registry.DataMeta)
	if !ok || from == nil {
		return false
	}
	return from.CastsToMeta(toDM) || isNumericPair(from, toDM)
}

func retypeTo(m *container.Many, target container.Meta) *container.Many {
	if dm, ok := target.(*registry.DataMeta); ok {
		return retype(m, dm)
	}
	return m.Clone()
}

// defaultSelect picks traits, members, and abilities out of the
// context per the argument's indices and metas; an empty argument
// selects everything. Deselect (mass < 0) inverts the element picks.
func (r *Runner) defaultSelect(context *container.Many, v *model.Verb) bool {
	deselect := v.Charge.Mass < 0
	if v.Argument.IsEmpty() {
		if context.IsEmpty() {
			return false
		}
		v.Output = context.Clone()
		return true
	}

	output := container.Empty()
	picked := map[int]bool{}
	v.Argument.ForEachDeep(func(req any) bool {
		switch t := req.(type) {
		case float64:
			i := int(t)
			if i >= 0 && i < context.Len() {
				picked[i] = true
			}
		case *model.Trait:
			selectTraits(context, t.TraitMeta, picked)
		case *registry.TraitMeta:
			selectTraits(context, t, picked)
		case *model.Construct:
			selectMembers(context, t.TypeMeta, picked)
		case *registry.VerbMeta:
			// A verb meta selects the reflected abilities the context's
			// type registered for it.
			if dm, ok := context.Meta().(*registry.DataMeta); ok {
				if _, found := findAbility(dm, t); found {
					_ = output.Push(registry.TypeVerb, t)
				}
			}
		}
		return true
	})

	for i := 0; i < context.Len(); i++ {
		hit := picked[i]
		if deselect {
			hit = !hit
		}
		if !hit {
			continue
		}
		if context.IsDeep() {
			_ = output.SmartPush(context.DeepAt(i).Clone())
		} else {
			_ = output.Push(context.Meta(), context.At(i))
		}
	}
	if output.IsEmpty() {
		return false
	}
	v.Output = output
	return true
}

func selectTraits(context *container.Many, meta container.Meta, picked map[int]bool) {
	for i := 0; i < context.Len(); i++ {
		var elem any
		if context.IsDeep() {
			child := context.DeepAt(i)
			if child.Len() == 1 {
				elem = child.At(0)
			}
		} else {
			elem = context.At(i)
		}
		if t, ok := elem.(*model.Trait); ok && t.TraitMeta.Token() == meta.Token() {
			picked[i] = true
		}
	}
}

func selectMembers(context *container.Many, meta container.Meta, picked map[int]bool) {
	for i := 0; i < context.Len(); i++ {
		if context.IsDeep() {
			if context.DeepAt(i).CastsToMeta(meta) {
				picked[i] = true
			}
		} else if context.CastsToMeta(meta) {
			picked[i] = true
		}
	}
}

// defaultCreate realizes each Construct in the argument: schema
// validation (when the type registered one), delegation to context
// constructs of a compatible type, then allocation - mass instances
// via the type's default constructor when it has one, the realized
// construct itself otherwise. Destroy (mass < 0) removes matching
// constructs from a copy of the context.
func (r *Runner) defaultCreate(context *container.Many, v *model.Verb) (bool, error) {
	if context.IsConstant() {
		return false, &flowerr.FlowError{Message: "create requires a non-constant context"}
	}

	if v.Charge.Mass < 0 {
		return destroy(context, v)
	}

	output := container.Empty()
	var firstErr error
	for _, c := range container.Gather[*model.Construct](v.Argument) {
		if !c.IsStaticallyCreatable() {
			if firstErr == nil {
				firstErr = &flowerr.ConstructError{Message: "type " + c.TypeMeta.Token() + " requires a producer"}
			}
			continue
		}
		dm, _ := c.TypeMeta.(*registry.DataMeta)
		if dm != nil && dm.DescriptorSchema() != "" {
			if err := schema.ValidateDescriptor(dm.DescriptorSchema(), c.Descriptor); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}

		realized := delegate(context, c)
		count := int(c.Charge.Mass)
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			if dm != nil && dm.DefaultConstructor() != nil {
				_ = output.Push(dm, dm.DefaultConstructor()())
			} else {
				_ = output.Push(c.TypeMeta, realized.Clone())
			}
		}
	}
	if output.IsEmpty() {
		return false, firstErr
	}
	v.Output = output
	return true, firstErr
}

// delegate merges the descriptors of context constructs compatible
// with c into a realized clone, tracking each contributing type by
// token + ordinal so duplicate contributions land consecutively.
func delegate(context *container.Many, c *model.Construct) *model.Construct {
	realized := c.Clone()
	ordinals := map[string]int{}
	for _, ctx := range container.Gather[*model.Construct](context) {
		if ctx == c || !metaCompatible(ctx.TypeMeta, c.TypeMeta) {
			continue
		}
		token := ctx.TypeMeta.Token()
		at := ordinals[token]
		if ctx.Descriptor.IsEmpty() {
			continue
		}
		if realized.Descriptor.IsDeep() && at <= realized.Descriptor.Len() {
			_ = realized.Descriptor.InsertBlock(at, ctx.Descriptor.Clone())
		} else {
			_ = realized.Descriptor.SmartPush(ctx.Descriptor.Clone())
		}
		ordinals[token] = at + 1
	}
	return realized
}

func metaCompatible(a, b container.Meta) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Token() == b.Token() || a.CastsToMeta(b)
}

func destroy(context *container.Many, v *model.Verb) (bool, error) {
	copy := context.Clone()
	removed := false
	for _, target := range container.Gather[*model.Construct](v.Argument) {
		for i := 0; i < copy.Len(); i++ {
			if c, ok := copy.At(i).(*model.Construct); ok && c.Equal(target) {
				_ = copy.RemoveIndex(i)
				removed = true
				break
			}
		}
	}
	if !removed {
		return false, nil
	}
	v.Output = copy
	return true, nil
}

// defaultCatenate concatenates source and argument; Split (mass < 0)
// breaks the source apart into one child per element.
func (r *Runner) defaultCatenate(v *model.Verb) bool {
	if v.Charge.Mass < 0 {
		if v.Source.IsEmpty() {
			return false
		}
		output := container.Empty()
		if v.Source.IsDeep() {
			for i := 0; i < v.Source.Len(); i++ {
				_ = output.PushDeep(v.Source.DeepAt(i).Clone())
			}
		} else {
			v.Source.ForEach(func(_ int, elem any) bool {
				_ = output.PushDeep(container.NewTyped(v.Source.Meta(), elem))
				return true
			})
		}
		v.Output = output
		return !output.IsEmpty()
	}
	output := v.Source.Clone()
	if err := output.SmartPush(v.Argument.Clone()); err != nil {
		return false
	}
	if output.IsEmpty() {
		return false
	}
	v.Output = output
	return true
}

// defaultConjunct combines source and argument into a new AND
// container; Disjunct (mass < 0) makes it OR.
func (r *Runner) defaultConjunct(v *model.Verb) bool {
	if v.Source.IsEmpty() && v.Argument.IsEmpty() {
		return false
	}
	output := container.NewDeep(v.Source.Clone(), v.Argument.Clone())
	if v.Charge.Mass < 0 {
		output.MakeOr()
	}
	v.Output = output
	return true
}

// defaultScope wraps the argument into a nested sub-scope as data,
// preserving its AND/OR bit.
func (r *Runner) defaultScope(v *model.Verb) bool {
	if v.Argument.IsEmpty() {
		return false
	}
	output := container.NewDeep(v.Argument.Clone())
	if v.Argument.IsOr() {
		output.MakeOr()
	}
	v.Output = output
	return true
}
