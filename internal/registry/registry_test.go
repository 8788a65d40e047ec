package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryBuiltins(t *testing.T) {
	r := Default()
	assert.NotNil(t, r.GetMetaData("text"))
	assert.NotNil(t, r.GetMetaData("number"))
	assert.NotNil(t, r.GetMetaVerb("create"))
	assert.NotNil(t, r.GetMetaVerb("destroy"), "reverse tokens resolve to the same meta")
	assert.Same(t, r.GetMetaVerb("create"), r.GetMetaVerb("destroy"))
	assert.NotNil(t, r.GetOperator("+"))
	assert.NotNil(t, r.GetOperator("-"))
}

func TestLookupsFoldCase(t *testing.T) {
	r := Default()
	assert.Same(t, r.GetMetaVerb("create"), r.GetMetaVerb("Create"))
	assert.Same(t, r.GetMetaData("text"), r.GetMetaData("Text"))
}

func TestFrozenRegistryRejectsRegistration(t *testing.T) {
	r := Default()
	assert.Panics(t, func() { r.RegisterData(NewDataType("late")) })
}

func TestDisambiguateExactBeatsPrefix(t *testing.T) {
	r := Default()
	m := r.DisambiguateMeta("as")
	require.NotNil(t, m, "'as' is exact even though it prefixes 'associate'")
	assert.Same(t, VerbInterpret, m.Verb)
}

func TestDisambiguateUniquePrefix(t *testing.T) {
	r := Default()
	m := r.DisambiguateMeta("assoc")
	require.NotNil(t, m)
	assert.Same(t, VerbAssociate, m.Verb)
}

func TestDisambiguateAmbiguousFails(t *testing.T) {
	r := Seed(New())
	r.RegisterData(NewDataType("thing"))
	r.RegisterData(NewDataType("thread"))
	assert.Nil(t, r.DisambiguateMeta("th"), "two candidates of equal length stay ambiguous")
	assert.Nil(t, r.DisambiguateMeta("zzz"))
}

func TestCastsToMetaBases(t *testing.T) {
	base := NewDataType("shape").Abstract()
	circle := NewDataType("circle").WithBases(base)
	assert.True(t, circle.CastsToMeta(base))
	assert.False(t, base.CastsToMeta(circle))
	assert.True(t, base.IsAbstract())
}

func TestCastsToMetaNumeric(t *testing.T) {
	a := NewDataType("celsius").Numeric()
	b := NewDataType("fahrenheit").Numeric()
	c := NewDataType("label")
	assert.True(t, a.CastsToMeta(b))
	assert.False(t, a.CastsToMeta(c))
}

func TestSuggestToken(t *testing.T) {
	r := Default()
	got := r.SuggestToken("creat")
	assert.Equal(t, "create", got)
}

func TestOperatorTokensLongestFirst(t *testing.T) {
	tokens := Default().OperatorTokens()
	require.NotEmpty(t, tokens)
	for i := 1; i < len(tokens); i++ {
		assert.GreaterOrEqual(t, len(tokens[i-1]), len(tokens[i]))
	}
}

func TestProducerBlocksStaticCreation(t *testing.T) {
	factory := NewDataType("factory")
	product := NewDataType("product").WithProducer(factory)
	assert.False(t, product.IsStaticallyCreatable())
	assert.True(t, factory.IsStaticallyCreatable())
}
