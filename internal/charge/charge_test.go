package charge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCharge(t *testing.T) {
	c := Default()
	assert.Equal(t, 1.0, c.Mass)
	assert.Equal(t, 0.0, c.Rate)
	assert.Equal(t, 0.0, c.Time)
	assert.Equal(t, 0.0, c.Priority)
	assert.True(t, c.IsDefault())
	assert.False(t, c.IsFlowDependent())
}

func TestScale(t *testing.T) {
	c := Default().Scale(3).Scale(-1)
	assert.Equal(t, -3.0, c.Mass)
	assert.False(t, c.IsDefault())
	assert.False(t, c.IsFlowDependent(), "mass alone is not flow-dependent")
}

func TestScaleRate(t *testing.T) {
	// The first rate charge sets; later ones scale.
	c := Default().ScaleRate(4)
	assert.Equal(t, 4.0, c.Rate)
	c = c.ScaleRate(2)
	assert.Equal(t, 8.0, c.Rate)
	assert.True(t, c.IsFlowDependent())
}

func TestFlowDependence(t *testing.T) {
	assert.True(t, Default().WithTime(2).IsFlowDependent())
	assert.True(t, Default().ScaleRate(1).IsFlowDependent())
	assert.False(t, Default().WithPriority(-1).IsFlowDependent())
}

func TestChargeHash(t *testing.T) {
	a := Default().Scale(2).WithPriority(-1)
	b := Default().Scale(2).WithPriority(-1)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), Default().Hash())
}

func TestVerbStateDefaults(t *testing.T) {
	var s VerbState
	assert.True(t, s.IsShortCircuited())
	assert.True(t, s.IsMulticast())
}

func TestVerbStateOps(t *testing.T) {
	s := VerbState(0).With(LongCircuited | Monocast)
	assert.False(t, s.IsShortCircuited())
	assert.False(t, s.IsMulticast())

	s = s.Without(Monocast)
	assert.True(t, s.IsMulticast())
	assert.False(t, s.IsShortCircuited(), "multicast and short-circuit are independent")

	assert.Equal(t, LongCircuited, s.And(LongCircuited|Monocast))
	assert.True(t, s.Toggle(LongCircuited).IsShortCircuited())
}
