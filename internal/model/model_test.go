package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlang/flow/internal/container"
)

type testMeta string

func (m testMeta) Token() string   { return string(m) }
func (m testMeta) IsAbstract() bool { return false }
func (m testMeta) CastsToMeta(o container.Meta) bool {
	return o != nil && o.Token() == string(m)
}

var (
	doMeta    = testMeta("do")
	thingMeta = testMeta("thing")
	nameMeta  = testMeta("name")
	numMeta   = testMeta("number")
)

func sampleVerb() *Verb {
	v := NewVerb(doMeta)
	v.SetSource(container.NewTyped(numMeta, 1.0))
	v.SetArgument(container.NewTyped(numMeta, 2.0))
	return v
}

func TestVerbHashIsStructural(t *testing.T) {
	a, b := sampleVerb(), sampleVerb()
	assert.Equal(t, a.Hash(), b.Hash())

	b.SetArgument(container.NewTyped(numMeta, 3.0))
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestVerbEqual(t *testing.T) {
	a, b := sampleVerb(), sampleVerb()
	assert.True(t, a.Equal(b))

	b.WithMass(-1)
	assert.False(t, a.Equal(b))
}

func TestVerbCloneResetsExecutionState(t *testing.T) {
	v := sampleVerb()
	v.Succeed()
	require.NoError(t, v.Output.Push(numMeta, 9.0))

	clone := v.Clone()
	assert.False(t, clone.Done)
	assert.Zero(t, clone.Successes)
	assert.True(t, clone.Output.IsEmpty())
	assert.True(t, v.Source.Equal(clone.Source))
	assert.Equal(t, v.Charge, clone.Charge)
}

func TestVerbResetDescends(t *testing.T) {
	inner := sampleVerb()
	inner.Succeed()
	inner.Output = container.NewTyped(numMeta, 5.0)

	outer := NewVerb(doMeta)
	outer.SetSource(container.NewTyped(doMeta, inner))
	outer.Succeed()
	outer.Output = container.NewTyped(numMeta, 6.0)

	outer.Reset()
	assert.False(t, outer.Done)
	assert.True(t, outer.Output.IsEmpty())
	assert.False(t, inner.Done, "reset descends into the source")
	assert.True(t, inner.Output.IsEmpty())
}

func TestSetSourceInvalidatesResult(t *testing.T) {
	v := sampleVerb()
	v.Succeed()
	v.Output = container.NewTyped(numMeta, 5.0)

	v.SetSource(container.NewTyped(numMeta, 7.0))
	assert.False(t, v.Done)
	assert.Zero(t, v.Successes)
	assert.True(t, v.Output.IsEmpty())
}

func TestSuccessesDoneInvariant(t *testing.T) {
	v := sampleVerb()
	assert.False(t, v.Done)
	assert.Zero(t, v.Successes)

	v.Succeed()
	assert.True(t, v.Done)
	assert.Equal(t, uint32(1), v.Successes)
}

func TestConstructChargeLeavesHashAlone(t *testing.T) {
	c := NewConstruct(thingMeta)
	require.NoError(t, c.Descriptor.Push(numMeta, 1.0))
	before := c.Hash()

	c.WithMass(4).WithPriority(-1)
	assert.Equal(t, before, c.Hash(), "charge must not leak into the descriptor hash")
	assert.False(t, c.Equal(NewConstruct(thingMeta)), "equality still sees the charge")
}

func TestConstructClone(t *testing.T) {
	c := NewConstruct(thingMeta)
	require.NoError(t, c.Descriptor.Push(numMeta, 1.0))
	clone := c.Clone()
	assert.True(t, c.Equal(clone))

	require.NoError(t, clone.Descriptor.Push(numMeta, 2.0))
	assert.False(t, c.Equal(clone))
}

func TestTraitIdentityDistinctFromContent(t *testing.T) {
	tr := NewTrait(nameMeta)
	require.NoError(t, tr.Content.Push(numMeta, 1.0))

	other := NewTrait(thingMeta)
	require.NoError(t, other.Content.Push(numMeta, 1.0))

	assert.False(t, tr.Equal(other))
	assert.NotEqual(t, tr.Hash(), other.Hash())
}

func TestMissingPointSatisfaction(t *testing.T) {
	p := NewMissingFuture()
	assert.False(t, p.IsSatisfied(), "empty content never satisfies")

	require.NoError(t, p.Content.Push(numMeta, 1.0))
	assert.True(t, p.IsSatisfied(), "any content satisfies an unfiltered point")
}

func TestMissingPointFilteredSatisfaction(t *testing.T) {
	p := NewMissingFuture(thingMeta)
	require.NoError(t, p.Content.SmartPush(container.NewTyped(numMeta, 1.0)))
	assert.False(t, p.IsSatisfied())

	require.NoError(t, p.Content.SmartPush(container.NewTyped(thingMeta, "a thing")))
	assert.True(t, p.IsSatisfied())
}

func TestMissingPointCloneResetsObservers(t *testing.T) {
	parent := NewMissingFuture()
	child := NewMissingPast()
	child.SetAbove(parent)
	parent.AddBelow(child)

	clone := child.Clone()
	assert.Nil(t, clone.Above(), "clones drop observer links")
	assert.Empty(t, clone.Below())
	assert.Equal(t, child.Kind, clone.Kind)
}

func TestEntangledFlag(t *testing.T) {
	f := NewEntangledFlag()
	assert.False(t, f.Done())
	assert.True(t, f.TryComplete(), "first branch wins")
	assert.False(t, f.TryComplete(), "later branches lose")
	assert.True(t, f.Done())

	f.Reset()
	assert.False(t, f.Done())
	assert.True(t, f.TryComplete())
}

func TestWalkVisitsNestedNodes(t *testing.T) {
	inner := sampleVerb()
	tr := NewTrait(nameMeta)
	require.NoError(t, tr.Content.Push(doMeta, inner))

	m := container.NewTyped(nameMeta, tr)
	var verbs int
	WalkVerbs(m, func(*Verb) bool { verbs++; return true })
	assert.Equal(t, 1, verbs)
}

func TestHasUnfilledMissing(t *testing.T) {
	p := NewMissingPast()
	v := NewVerb(doMeta)
	v.SetSource(p.Wrap())

	m := container.NewTyped(doMeta, v)
	assert.True(t, HasUnfilledMissing(m))

	require.NoError(t, p.Content.Push(numMeta, 1.0))
	assert.False(t, HasUnfilledMissing(m))
}
