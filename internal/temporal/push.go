package temporal

import (
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/flowerr"
	"github.com/flowlang/flow/internal/invariant"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// Push integrates new material into the flow: compile
// attaches priorities to missing points, link routes each top-level
// term to its stack, then the future points re-map their suspension
// state and, at time zero, the priority stack executes once.
//
// The flow takes ownership of the pushed graph. Link planning is
// two-phase - every term finds its destination before any mutation
// happens - so a failed push leaves the flow in its pre-push state.
func (t *Temporal) Push(input *container.Many) (*container.Many, error) {
	invariant.NotNil(input, "input")
	t.compile(input, 0)

	var ops []func()
	if err := t.planTerm(input, &ops, nil); err != nil {
		return nil, err
	}
	for _, op := range ops {
		op()
	}
	t.remapSuspension()

	effects := container.Empty()
	if t.now == t.start {
		_, out, err := t.runner.Execute(t.priorityStack, container.Empty())
		if err != nil {
			return effects, err
		}
		if !out.IsEmpty() {
			_ = effects.SmartPush(out)
		}
	}
	return effects, nil
}

// compile walks the pushed graph, attaching the effective caller
// priority to every missing point and transferring their ownership to
// the linker. A verb with a non-zero priority charge overrides the
// inherited priority for everything beneath it.
func (t *Temporal) compile(m *container.Many, priority float64) {
	if m == nil {
		return
	}
	if m.IsDeep() {
		for i := 0; i < m.Len(); i++ {
			t.compile(m.DeepAt(i), priority)
		}
		return
	}
	m.ForEach(func(_ int, elem any) bool {
		switch n := elem.(type) {
		case *model.Verb:
			inner := priority
			if n.Charge.Priority != 0 {
				inner = n.Charge.Priority
			}
			t.compile(n.Source, inner)
			t.compile(n.Argument, inner)
		case *model.Trait:
			t.compile(n.Content, priority)
		case *model.Construct:
			t.compile(n.Descriptor, priority)
		case *model.MissingPoint:
			n.Priority = priority
			t.own(n)
			t.compile(n.Content, priority)
		}
		return true
	})
}

// planTerm routes one term of the compiled scope: Do-verbs override
// context for their argument, time- and rate-charged verbs go to
// their stacks, OR scopes entangle their branches, and everything else
// is pushed to the futures of the priority stack.
func (t *Temporal) planTerm(term *container.Many, ops *[]func(), flag *model.EntangledFlag) error {
	if term.IsDeep() {
		if term.IsOr() && term.Len() > 1 {
			return t.planBranches(term, ops)
		}
		for i := 0; i < term.Len(); i++ {
			if err := t.planTerm(term.DeepAt(i), ops, flag); err != nil {
				return err
			}
		}
		return nil
	}
	if term.Kind() != container.KindTyped || term.Len() == 0 {
		return nil
	}
	if term.Len() > 1 {
		// Adjacent same-meta terms merged by the parser route one by
		// one, each in its own wrapper.
		var err error
		term.ForEach(func(_ int, elem any) bool {
			err = t.planTerm(container.NewTyped(term.Meta(), elem), ops, flag)
			return err == nil
		})
		return err
	}

	v, isVerb := term.At(0).(*model.Verb)
	if !isVerb {
		return t.planPushToFutures(term, ops, flag)
	}
	if flag != nil {
		tagEntangled(term, flag)
	}

	switch {
	case v.VerbMeta == container.Meta(registry.VerbDo) && v.Charge.Mass >= 0 && !v.Argument.IsEmpty():
		// A Do-verb is not pushed: its source becomes the past context
		// of its argument, and the argument links on its own.
		*ops = append(*ops, func() { satisfyPasts(v.Argument, v.Source) })
		return t.planTerm(v.Argument, ops, flag)
	case v.Charge.Time != 0:
		ticks := uint64(v.Charge.Time)
		sub := t.subflowTime(ticks)
		var subOps []func()
		v.Charge.Time = 0
		if err := sub.planPushToFutures(term, &subOps, flag); err != nil {
			return err
		}
		*ops = append(*ops, subOps...)
		return nil
	case v.Charge.Rate != 0:
		ticks := uint64(v.Charge.Rate)
		sub := t.subflowFreq(ticks)
		var subOps []func()
		v.Charge.Rate = 0
		if err := sub.planPushToFutures(term, &subOps, flag); err != nil {
			return err
		}
		*ops = append(*ops, subOps...)
		return nil
	default:
		return t.planPushToFutures(term, ops, flag)
	}
}

// planBranches routes an OR scope: every branch links separately, and
// all branches share one entangled done flag so the first to complete
// makes the rest inert.
func (t *Temporal) planBranches(term *container.Many, ops *[]func()) error {
	flag := model.NewEntangledFlag()
	t.flags = append(t.flags, flag)
	for i := 0; i < term.Len(); i++ {
		branch := term.DeepAt(i)
		tagEntangled(branch, flag)
		if err := t.planTerm(branch, ops, flag); err != nil {
			return err
		}
	}
	return nil
}

func tagEntangled(m *container.Many, flag *model.EntangledFlag) {
	model.WalkVerbs(m, func(v *model.Verb) bool {
		v.Entangled = flag
		return true
	})
}

// planPushToFutures walks the future points back-to-front looking for
// one that accepts the material, falling back
// to the parent flow, and plans the insertion.
func (t *Temporal) planPushToFutures(material *container.Many, ops *[]func(), flag *model.EntangledFlag) error {
	priority := materialPriority(material)

	for i := len(t.futures) - 1; i >= 0; i-- {
		fp := t.futures[i]
		if priority > fp.Priority {
			continue // this point refuses higher-priority material
		}
		if bare := barePastPoint(material); bare != nil {
			// A bare past point drinks from the nearest filled future
			// point, walking up through the above links.
			src := nearestFilledContent(fp)
			if src == nil {
				continue
			}
			*ops = append(*ops, func() {
				_ = bare.Content.SmartPush(src.Clone())
				bare.Priority = fp.Priority
				bare.SetAbove(fp)
				fp.AddBelow(bare)
			})
			return nil
		}
		if len(fp.Filter) > 0 && !matchesFilter(material, fp.Filter) {
			continue
		}
		*ops = append(*ops, func() { t.acceptMaterial(fp, material) })
		return nil
	}

	if t.parent != nil {
		return t.parent.planPushToFutures(material, ops, flag)
	}
	return &flowerr.LinkError{Message: "no future point accepts the pushed material"}
}

// acceptMaterial lands material in fp: an unsatisfied past point
// already waiting in fp's content takes it if its filter agrees,
// otherwise the material appends to the point itself. Either way the
// material's own missing points become observers of fp.
func (t *Temporal) acceptMaterial(fp *model.MissingPoint, material *container.Many) {
	var existing *container.Many
	if !fp.Content.IsEmpty() {
		existing = fp.Content.Clone()
	}

	// An unsatisfied past point already waiting in fp takes the new
	// material when its filter agrees; the material's home is then that
	// point, not fp itself.
	placed := false
	model.WalkMissing(fp.Content, func(p *model.MissingPoint) bool {
		if p.Kind != model.MissingPastKind || !p.Content.IsEmpty() {
			return true
		}
		if len(p.Filter) > 0 && !matchesFilter(material, p.Filter) {
			return true
		}
		_ = p.Content.SmartPush(material)
		p.Priority = materialPriority(material)
		placed = true
		return false
	})
	if !placed {
		_ = fp.Content.SmartPush(material)
	}

	model.WalkMissing(material, func(p *model.MissingPoint) bool {
		p.SetAbove(fp)
		fp.AddBelow(p)
		if p.Kind == model.MissingFutureKind {
			t.futures = append(t.futures, p)
		}
		// The other direction: the material's own past points drink
		// from what the future point already held.
		if p.Kind == model.MissingPastKind && p.Content.IsEmpty() && existing != nil {
			if len(p.Filter) == 0 || matchesFilter(existing, p.Filter) {
				_ = p.Content.SmartPush(existing.Clone())
				p.Priority = fp.Priority
			}
		}
		return true
	})
}

// satisfyPasts fills every unfilled past point reachable from m whose
// filter accepts the context - the Do-verb override path.
func satisfyPasts(m *container.Many, context *container.Many) {
	if context == nil || context.IsEmpty() {
		return
	}
	model.WalkMissing(m, func(p *model.MissingPoint) bool {
		if p.Kind == model.MissingPastKind && p.Content.IsEmpty() {
			if len(p.Filter) == 0 || matchesFilter(context, p.Filter) {
				_ = p.Content.SmartPush(context.Clone())
			}
		}
		return true
	})
}

// remapSuspension re-derives each future point's suspended bit: a
// point suspends while unfilled future points of equal priority remain
// deeper in its own content.
func (t *Temporal) remapSuspension() {
	for _, fp := range t.futures {
		suspended := false
		model.WalkMissing(fp.Content, func(p *model.MissingPoint) bool {
			if p != fp && p.Kind == model.MissingFutureKind && p.Content.IsEmpty() && p.Priority == fp.Priority {
				suspended = true
				return false
			}
			return true
		})
		fp.Suspended = suspended
	}
}

// materialPriority is the priority charge of the material's first
// charged verb, or zero.
func materialPriority(m *container.Many) float64 {
	priority := 0.0
	model.WalkVerbs(m, func(v *model.Verb) bool {
		if v.Charge.Priority != 0 {
			priority = v.Charge.Priority
			return false
		}
		return true
	})
	return priority
}

// barePastPoint unwraps material that is exactly one past-missing
// point and nothing else.
func barePastPoint(m *container.Many) *model.MissingPoint {
	for m.IsDeep() && m.Len() == 1 {
		m = m.DeepAt(0)
	}
	if m.Kind() != container.KindTyped || m.Len() != 1 {
		return nil
	}
	p, ok := m.At(0).(*model.MissingPoint)
	if !ok || p.Kind != model.MissingPastKind {
		return nil
	}
	return p
}

// nearestFilledContent walks fp and its above chain for content to
// feed a past point.
func nearestFilledContent(fp *model.MissingPoint) *container.Many {
	for p := fp; p != nil; p = p.Above() {
		if !p.Content.IsEmpty() {
			return p.Content
		}
	}
	return nil
}

// matchesFilter reports whether any element meta of material casts to
// any filter entry.
func matchesFilter(material *container.Many, filter []container.Meta) bool {
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
		for _, f := range filter {
			if m.CastsToMeta(f) {
				matched = true
				return
			}
		}
	}
	check(material)
	return matched
}
