package model

import "github.com/flowlang/flow/internal/container"

// Walk visits every graph node reachable from m in document order:
// flat elements first, then each node's owned children (verb source
// and argument, trait content, construct descriptor, missing-point
// content). The observer-only above/below links of missing points are
// never followed. fn returning false stops the walk.
func Walk(m *container.Many, fn func(elem any) bool) bool {
	if m == nil {
		return true
	}
	if m.IsDeep() {
		for i := 0; i < m.Len(); i++ {
			if !Walk(m.DeepAt(i), fn) {
				return false
			}
		}
		return true
	}
	cont := true
	m.ForEach(func(_ int, elem any) bool {
		if !fn(elem) {
			cont = false
			return false
		}
		switch t := elem.(type) {
		case *Verb:
			cont = Walk(t.Source, fn) && Walk(t.Argument, fn)
		case *Trait:
			cont = Walk(t.Content, fn)
		case *Construct:
			cont = Walk(t.Descriptor, fn)
		case *MissingPoint:
			cont = Walk(t.Content, fn)
		}
		return cont
	})
	return cont
}

// WalkVerbs visits every Verb reachable from m.
func WalkVerbs(m *container.Many, fn func(v *Verb) bool) {
	Walk(m, func(elem any) bool {
		if v, ok := elem.(*Verb); ok {
			return fn(v)
		}
		return true
	})
}

// WalkMissing visits every MissingPoint reachable from m.
func WalkMissing(m *container.Many, fn func(p *MissingPoint) bool) {
	Walk(m, func(elem any) bool {
		if p, ok := elem.(*MissingPoint); ok {
			return fn(p)
		}
		return true
	})
}

// HasUnfilledMissing reports whether any missing point reachable from
// m still has empty content - such a graph is not ready to execute.
func HasUnfilledMissing(m *container.Many) bool {
	unfilled := false
	WalkMissing(m, func(p *MissingPoint) bool {
		if p.Content.IsEmpty() {
			unfilled = true
			return false
		}
		return true
	})
	return unfilled
}
