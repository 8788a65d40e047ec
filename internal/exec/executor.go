// Package exec implements the scope executor: nested AND/OR scope
// traversal, three-phase verb dispatch (custom, reflected, default),
// verb integration, and the built-in default abilities.
//
// The executor interprets the graph directly. It owns only transient
// intermediate Many values; the graph itself belongs to the caller (or
// to the temporal linker).
package exec

import (
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/flowlog"
	"github.com/flowlang/flow/internal/invariant"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// Runner executes scopes against a reflection registry.
type Runner struct {
	reg           *registry.Registry
	log           *flowlog.Logger
	allowDefaults bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger installs a debug logger (default: discard).
func WithLogger(l *flowlog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithoutDefaults disables the built-in default abilities, leaving
// only the custom and reflected dispatch phases.
func WithoutDefaults() Option {
	return func(r *Runner) { r.allowDefaults = false }
}

// New builds a Runner over reg.
func New(reg *registry.Registry, opts ...Option) *Runner {
	invariant.NotNil(reg, "registry")
	r := &Runner{reg: reg, log: flowlog.Discard(), allowDefaults: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs scope in env, branching to OR semantics when the
// scope's or-branching bit is set and it has more than one child.
// Returns whether the scope succeeded, its merged output, and any
// structural error raised by a default ability.
func (r *Runner) Execute(scope, env *container.Many) (bool, *container.Many, error) {
	skipVerbs := false
	if scope.IsOr() && scope.Len() > 1 {
		return r.ExecuteOr(scope, env, &skipVerbs)
	}
	return r.ExecuteAnd(scope, env, &skipVerbs)
}

// ExecuteAnd runs scope as an AND sequence: strict left-to-right, and
// in short-circuited mode the first failing child fails the scope.
func (r *Runner) ExecuteAnd(scope, env *container.Many, skipVerbs *bool) (bool, *container.Many, error) {
	r.log.Path("scope.and", "len", scope.Len())
	output := container.FromStateOf(scope)

	fail := false
	var firstErr error
	r.forEachItem(scope, func(item scopeItem) bool {
		ok, out, err := r.executeItem(item, env, skipVerbs)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ok {
			if out != nil && !out.IsEmpty() {
				_ = output.SmartPush(out)
			}
			return true
		}
		fail = true
		return false // short-circuit: stop on first failure
	})
	if fail {
		return false, container.FromStateOf(scope), firstErr
	}
	return true, output, firstErr
}

// ExecuteOr runs scope as an OR alternation: children are tried in
// order and, short-circuited, the first success wins. Subsequent verbs
// are skipped via skipVerbs, but non-verb data still accumulates.
func (r *Runner) ExecuteOr(scope, env *container.Many, skipVerbs *bool) (bool, *container.Many, error) {
	r.log.Path("scope.or", "len", scope.Len())
	output := container.FromStateOf(scope)
	anyOK := false
	var firstErr error
	r.forEachItem(scope, func(item scopeItem) bool {
		ok, out, err := r.executeItem(item, env, skipVerbs)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !ok {
			return true // try the next alternative
		}
		anyOK = true
		if out != nil && !out.IsEmpty() {
			_ = output.SmartPush(out)
		}
		// A successful verb alternative silences every later verb of
		// this OR (and, through the shared flag, of enclosing scopes);
		// plain data keeps accumulating passively.
		if item.containsVerb() {
			*skipVerbs = true
		}
		return true
	})
	if !anyOK {
		return false, container.FromStateOf(scope), firstErr
	}
	return true, output, firstErr
}

// scopeItem is one executable unit of a scope: either a nested Many
// child or a single flat element.
type scopeItem struct {
	child *container.Many
	elem  any
	meta  container.Meta
}

func (it scopeItem) isVerb() bool {
	if it.elem != nil {
		_, ok := it.elem.(*model.Verb)
		return ok
	}
	return false
}

// containsVerb reports whether executing this item involved verb work
// - a flat verb element, or any verb reachable inside a nested child.
func (it scopeItem) containsVerb() bool {
	if it.isVerb() {
		return true
	}
	if it.child == nil {
		return false
	}
	found := false
	model.WalkVerbs(it.child, func(*model.Verb) bool {
		found = true
		return false
	})
	return found
}

// forEachItem flattens a scope into executable units, preserving
// order: deep children are units of their own, flat elements are
// visited one by one.
func (r *Runner) forEachItem(scope *container.Many, fn func(scopeItem) bool) {
	if scope.IsDeep() {
		for i := 0; i < scope.Len(); i++ {
			if !fn(scopeItem{child: scope.DeepAt(i)}) {
				return
			}
		}
		return
	}
	scope.ForEach(func(_ int, v any) bool {
		return fn(scopeItem{elem: v, meta: scope.Meta()})
	})
}

// executeItem runs one scope unit in env.
func (r *Runner) executeItem(item scopeItem, env *container.Many, skipVerbs *bool) (bool, *container.Many, error) {
	if item.child != nil {
		// skipVerbs propagates through the recursion: a success in a
		// nested OR silences later verbs of the enclosing scope too.
		if item.child.IsOr() && item.child.Len() > 1 {
			return r.ExecuteOr(item.child, env, skipVerbs)
		}
		return r.ExecuteAnd(item.child, env, skipVerbs)
	}
	switch v := item.elem.(type) {
	case *model.Verb:
		if *skipVerbs {
			return true, container.Empty(), nil
		}
		ok, err := r.RunVerb(v, env)
		if !ok {
			return false, container.Empty(), err
		}
		return true, v.Output, err
	case *model.Trait:
		ok, out, err := r.Execute(v.Content, env)
		if !ok {
			return false, container.Empty(), err
		}
		result := model.NewTrait(v.TraitMeta)
		result.Content = out
		return true, container.NewTyped(v.TraitMeta, result), err
	case *model.MissingPoint:
		// A satisfied point executes its content; an unfilled or
		// suspended one is neutral - it produces nothing, fails nothing.
		if !v.Content.IsEmpty() && !v.Suspended {
			return r.Execute(v.Content, env)
		}
		return true, container.Empty(), nil
	default:
		// Plain data succeeds trivially and flows to the output.
		out := container.NewTyped(item.meta, item.elem)
		return true, out, nil
	}
}

// RunVerb integrates and dispatches a single verb in env: the
// source executes in the outer environment and replaces
// itself, argument executes in the resolved source and replaces
// itself, then the verb dispatches against its source context. A
// monocast verb skips integration and inherits the environment.
func (r *Runner) RunVerb(v *model.Verb, env *container.Many) (bool, error) {
	if v.Entangled != nil && v.Entangled.Done() && !v.Done {
		// A sibling branch already completed; this one is inert.
		return true, nil
	}
	if v.Done {
		// Already executed this flow cycle; the retained output flows
		// through unchanged until a Reset.
		return true, nil
	}
	if model.HasUnfilledMissing(v.Source) || model.HasUnfilledMissing(v.Argument) {
		// Not ready: a missing point is still waiting for the linker.
		// Neutral - neither output nor failure.
		return true, nil
	}
	r.log.Path("verb", "meta", v.VerbMeta.Token())
	v.Output = container.Empty()

	var firstErr error
	if v.State.IsMulticast() {
		if !v.Source.IsEmpty() {
			ok, out, err := r.Execute(v.Source, env)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if ok && !out.IsEmpty() {
				v.Source = out
			}
		} else if env != nil && !env.IsEmpty() {
			v.Source = env.Clone()
		}
		if !v.Argument.IsEmpty() {
			ok, out, err := r.Execute(v.Argument, v.Source)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if ok && !out.IsEmpty() {
				v.Argument = out
			}
		}
	} else if v.Source.IsEmpty() && env != nil {
		v.Source = env.Clone()
	}

	ok, err := r.DispatchDeep(v.Source, v)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	if ok {
		v.Succeed()
		if v.Entangled != nil {
			v.Entangled.TryComplete()
		}
	}
	return ok, firstErr
}
