package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMeta string

func (m testMeta) Token() string  { return string(m) }
func (m testMeta) IsAbstract() bool { return false }
func (m testMeta) CastsToMeta(o Meta) bool {
	return o != nil && o.Token() == string(m)
}

var (
	numMeta  = testMeta("number")
	textMeta = testMeta("text")
)

func TestEmptyState(t *testing.T) {
	m := Empty()
	assert.True(t, m.IsEmpty())
	assert.True(t, m.IsAnd())
	assert.False(t, m.IsDeep())
	assert.False(t, m.IsConstant())
}

func TestPushAdoptsMeta(t *testing.T) {
	m := Empty()
	require.NoError(t, m.Push(numMeta, 1.0))
	require.NoError(t, m.Push(numMeta, 2.0))
	assert.Equal(t, KindTyped, m.Kind())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1.0, m.At(0))
}

func TestPushIntoConstantFails(t *testing.T) {
	m := NewTyped(numMeta, 1.0).MakeConst()
	assert.Error(t, m.Push(numMeta, 2.0))
	assert.Error(t, m.RemoveIndex(0))
}

func TestSmartPushMergesSameMeta(t *testing.T) {
	a := NewTyped(numMeta, 1.0)
	b := NewTyped(numMeta, 2.0)
	require.NoError(t, a.SmartPush(b))
	assert.Equal(t, KindTyped, a.Kind())
	assert.Equal(t, 2, a.Len())
}

func TestSmartPushNestsMismatched(t *testing.T) {
	a := NewTyped(numMeta, 1.0)
	b := NewTyped(textMeta, "x")
	require.NoError(t, a.SmartPush(b))
	assert.True(t, a.IsDeep())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1.0, a.DeepAt(0).At(0))
	assert.Equal(t, "x", a.DeepAt(1).At(0))
}

func TestSmartPushIntoEmptyKeepsReceiverFlags(t *testing.T) {
	acc := Empty().MakeOr()
	require.NoError(t, acc.SmartPush(NewTyped(numMeta, 1.0)))
	assert.True(t, acc.IsOr(), "adopting content must not drop the receiver's or bit")
}

func TestMakePastFutureAreExclusive(t *testing.T) {
	m := Empty().MakePast()
	assert.True(t, m.IsPast())
	m.MakeFuture()
	assert.True(t, m.IsFuture())
	assert.False(t, m.IsPast())
}

func TestForEachDeep(t *testing.T) {
	m := NewDeep(NewTyped(numMeta, 1.0), NewDeep(NewTyped(numMeta, 2.0, 3.0)))
	var seen []float64
	m.ForEachDeep(func(v any) bool {
		seen = append(seen, v.(float64))
		return true
	})
	assert.Equal(t, []float64{1, 2, 3}, seen)
}

func TestGather(t *testing.T) {
	m := NewDeep(NewTyped(numMeta, 1.0), NewTyped(textMeta, "x"), NewTyped(numMeta, 2.0))
	assert.Equal(t, []float64{1, 2}, Gather[float64](m))
	assert.Equal(t, []string{"x"}, Gather[string](m))
}

func TestCloneIsStructurallyEqual(t *testing.T) {
	m := NewDeep(NewTyped(numMeta, 1.0), NewTyped(textMeta, "x").MakeConst())
	m.MakeOr()
	clone := m.Clone()
	assert.True(t, m.Equal(clone))

	// Mutating the clone must not touch the original.
	require.NoError(t, clone.DeepAt(0).Push(numMeta, 9.0))
	assert.Equal(t, 1, m.DeepAt(0).Len())
	assert.False(t, m.Equal(clone))
}

func TestHashStructural(t *testing.T) {
	a := NewDeep(NewTyped(numMeta, 1.0, 2.0))
	b := NewDeep(NewTyped(numMeta, 1.0, 2.0))
	assert.Equal(t, a.Hash(), b.Hash())
	require.NoError(t, b.DeepAt(0).Push(numMeta, 3.0))
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHashSensitiveToFlags(t *testing.T) {
	a := NewTyped(numMeta, 1.0)
	b := NewTyped(numMeta, 1.0).MakeConst()
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestOptimizeCollapsesSingletons(t *testing.T) {
	m := NewDeep(NewDeep(NewTyped(numMeta, 1.0)), Empty())
	m.Optimize()
	assert.Equal(t, KindTyped, m.Kind())
	assert.Equal(t, 1.0, m.At(0))
}

func TestOptimizeKeepsMissingChildren(t *testing.T) {
	missing := Empty().MakeMissing()
	m := NewDeep(missing, NewTyped(numMeta, 1.0))
	m.Optimize()
	assert.Equal(t, 2, m.Len(), "missing placeholders survive optimization")
}

func TestCopyToConstantFails(t *testing.T) {
	src := NewTyped(numMeta, 1.0)
	dst := Empty().MakeConst()
	_, err := src.CopyTo(dst)
	assert.Error(t, err)
}

func TestCopyTo(t *testing.T) {
	src := NewTyped(numMeta, 1.0, 2.0)
	dst := Empty()
	n, err := src.CopyTo(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, src.Equal(dst) || dst.Len() == 2)
}

func TestInsertBlockAndRemove(t *testing.T) {
	m := NewDeep(NewTyped(numMeta, 1.0), NewTyped(numMeta, 3.0))
	require.NoError(t, m.InsertBlock(1, NewTyped(numMeta, 2.0)))
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 2.0, m.DeepAt(1).At(0))
	require.NoError(t, m.RemoveIndex(1))
	assert.Equal(t, 2, m.Len())
}

func TestFromStateOf(t *testing.T) {
	src := NewTyped(numMeta, 1.0).MakeOr().MakeConst()
	dst := FromStateOf(src)
	assert.True(t, dst.IsEmpty())
	assert.True(t, dst.IsOr())
	assert.True(t, dst.IsConstant())
}
