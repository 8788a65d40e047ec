package charge

// VerbState is a bitset of independent verb flags. Defaults are
// short-circuited and multicast - both flags below are "opt out" bits.
type VerbState uint8

const (
	// LongCircuited means "don't stop on first success/failure" - the
	// opposite of the default short-circuited behaviour.
	LongCircuited VerbState = 1 << iota
	// Monocast means "do not iterate deep items" - the opposite of the
	// default multicast behaviour.
	Monocast
)

// With sets flags (the `+` operator).
func (s VerbState) With(flags VerbState) VerbState { return s | flags }

// Without clears flags (the `-` operator).
func (s VerbState) Without(flags VerbState) VerbState { return s &^ flags }

// And returns the flags of s that are also in flags (the `&`
// operator); use Has for an all-set test.
func (s VerbState) And(flags VerbState) VerbState { return s & flags }

// Toggle flips flags (the `%` operator).
func (s VerbState) Toggle(flags VerbState) VerbState { return s ^ flags }

// Has reports whether all given flags are present.
func (s VerbState) Has(flags VerbState) bool { return s&flags == flags }

// IsShortCircuited reports the default (LongCircuited not set).
func (s VerbState) IsShortCircuited() bool { return !s.Has(LongCircuited) }

// IsMulticast reports the default (Monocast not set).
func (s VerbState) IsMulticast() bool { return !s.Has(Monocast) }
