// Package charge implements the scalar modifiers (mass, rate, time,
// priority) and verb-state flags that every Verb and Construct carries.
package charge

import (
	"hash/maphash"
	"math"
)

// Charge is the quadruple (mass, rate, time, priority) applied to
// verbs and constructs.
type Charge struct {
	Mass     float64
	Rate     float64
	Time     float64
	Priority float64
}

// Default mass is 1; rate, time, and priority default to 0.
const DefaultMass = 1.0

// Default returns the zero charge: mass 1, everything else 0.
func Default() Charge {
	return Charge{Mass: DefaultMass}
}

// Scale implements `charge * k`: scales mass.
func (c Charge) Scale(k float64) Charge {
	c.Mass *= k
	return c
}

// ScaleRate implements `charge ^ k`: scales rate. A still-default
// (zero) rate adopts k directly, so the first `^` charge on a verb
// sets its frequency rather than annihilating it.
func (c Charge) ScaleRate(k float64) Charge {
	if c.Rate == 0 {
		c.Rate = k
	} else {
		c.Rate *= k
	}
	return c
}

// WithTime returns a copy with Time set.
func (c Charge) WithTime(t float64) Charge {
	c.Time = t
	return c
}

// WithPriority returns a copy with Priority set.
func (c Charge) WithPriority(p float64) Charge {
	c.Priority = p
	return c
}

// Equal reports structural equality.
func (c Charge) Equal(o Charge) bool {
	return c.Mass == o.Mass && c.Rate == o.Rate && c.Time == o.Time && c.Priority == o.Priority
}

// IsDefault reports whether c is the all-default charge.
func (c Charge) IsDefault() bool {
	return c.Equal(Default())
}

// IsFlowDependent reports whether this charge is time- or rate-bound,
// i.e. whether it belongs on the time stack or the frequency stack
// rather than executing synchronously in the priority stack.
func (c Charge) IsFlowDependent() bool {
	return c.Rate != 0 || c.Time != 0
}

var seed = maphash.MakeSeed()

// Hash returns a structural hash of the charge.
func (c Charge) Hash() uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	writeFloat(&h, c.Mass)
	writeFloat(&h, c.Rate)
	writeFloat(&h, c.Time)
	writeFloat(&h, c.Priority)
	return h.Sum64()
}

func writeFloat(h *maphash.Hash, f float64) {
	var buf [8]byte
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	_, _ = h.Write(buf[:])
}
