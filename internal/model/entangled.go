package model

import "sync/atomic"

// EntangledFlag is the done flag shared by every branch of an OR scope
// that was pushed across more than one stack: the first branch to
// complete flips it, and the rest become inert. This is the only
// cross-branch shared mutable state in the core, hence the only
// atomic in this package.
type EntangledFlag struct {
	done atomic.Bool
}

// NewEntangledFlag returns a fresh, unset flag.
func NewEntangledFlag() *EntangledFlag { return &EntangledFlag{} }

// TryComplete flips the flag if unset and reports whether this caller
// won the race - i.e. whether its branch is the one that gets to run.
func (f *EntangledFlag) TryComplete() bool {
	return f.done.CompareAndSwap(false, true)
}

// Done reports whether some branch has already completed.
func (f *EntangledFlag) Done() bool { return f.done.Load() }

// Reset clears the flag, used by Temporal.reset().
func (f *EntangledFlag) Reset() { f.done.Store(false) }
