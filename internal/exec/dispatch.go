package exec

import (
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// DispatchDeep dispatches v to block, recursing into deep children
// and trait contents when the verb is multicast. A monocast verb is
// applied to the block as a whole.
func (r *Runner) DispatchDeep(block *container.Many, v *model.Verb) (bool, error) {
	if v.State.IsMulticast() && block.IsDeep() {
		handled := false
		var firstErr error
		for i := 0; i < block.Len(); i++ {
			ok, err := r.DispatchDeep(block.DeepAt(i), v)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if ok {
				handled = true
				if v.State.IsShortCircuited() {
					return true, firstErr
				}
			}
		}
		if handled {
			return true, firstErr
		}
		// Nothing in the deep children claimed the verb; fall through to
		// the default phase on the whole block.
		return r.dispatchDefault(block, v, firstErr)
	}

	// Traits act as deep w.r.t. execution: dispatch descends into their
	// content rather than treating them as opaque values.
	if v.State.IsMulticast() && block.Kind() == container.KindTyped && allTraits(block) {
		handled := false
		var firstErr error
		block.ForEach(func(_ int, elem any) bool {
			t := elem.(*model.Trait)
			ok, err := r.DispatchDeep(t.Content, v)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if ok {
				handled = true
				if v.State.IsShortCircuited() {
					return false
				}
			}
			return true
		})
		if handled {
			return true, firstErr
		}
		return r.dispatchDefault(block, v, firstErr)
	}

	return r.DispatchFlat(block, v)
}

func allTraits(block *container.Many) bool {
	if block.Len() == 0 {
		return false
	}
	all := true
	block.ForEach(func(_ int, elem any) bool {
		if _, ok := elem.(*model.Trait); !ok {
			all = false
			return false
		}
		return true
	})
	return all
}

// DispatchFlat applies the three dispatch phases once per element of
// block: custom (exclusive), reflected (walking the type's bases), and
// default.
func (r *Runner) DispatchFlat(block *container.Many, v *model.Verb) (bool, error) {
	dm, _ := block.Meta().(*registry.DataMeta)

	// Phase 1 - custom: exclusive when present.
	if dm != nil && dm.CustomDispatch() != nil {
		r.log.Detail("dispatch.custom", "type", dm.Token(), "verb", v.VerbMeta.Token())
		handled := false
		block.ForEach(func(_ int, elem any) bool {
			h, ok := dm.CustomDispatch()(elem, v)
			if h && ok {
				handled = true
				if v.State.IsShortCircuited() {
					return false
				}
			}
			return true
		})
		return handled, nil
	}

	// Phase 2 - reflected: the type's own ability, then its bases.
	if dm != nil {
		if fn, found := findAbility(dm, v.VerbMeta); found {
			r.log.Detail("dispatch.reflected", "type", dm.Token(), "verb", v.VerbMeta.Token())
			handled := false
			block.ForEach(func(_ int, elem any) bool {
				if fn(elem, v) {
					handled = true
					if v.State.IsShortCircuited() {
						return false
					}
				}
				return true
			})
			if handled {
				return true, nil
			}
		}
	}

	// Phase 3 - default.
	return r.dispatchDefault(block, v, nil)
}

func (r *Runner) dispatchDefault(block *container.Many, v *model.Verb, prevErr error) (bool, error) {
	if !r.allowDefaults {
		return false, prevErr
	}
	r.log.Detail("dispatch.default", "verb", v.VerbMeta.Token())
	ok, err := r.defaultAbility(block, v)
	if err == nil {
		err = prevErr
	}
	return ok, err
}

// findAbility looks up an ability for verbMeta on dm, walking the base
// list depth-first when the type itself has none.
func findAbility(dm *registry.DataMeta, verbMeta container.Meta) (registry.AbilityFunc, bool) {
	vm, ok := verbMeta.(*registry.VerbMeta)
	if !ok {
		return nil, false
	}
	if fn, found := dm.Ability(vm); found {
		return fn, true
	}
	for _, base := range dm.Bases() {
		if fn, found := findAbility(base, verbMeta); found {
			return fn, true
		}
	}
	return nil, false
}
