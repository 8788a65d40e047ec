package code

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/flowerr"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// testRegistry extends the built-ins with the types these tests
// reference.
func testRegistry() *registry.Registry {
	r := registry.Seed(registry.New())
	r.RegisterData(registry.NewDataType("thing"))
	r.RegisterData(registry.NewDataType("user"))
	r.RegisterData(registry.NewDataType("universe"))
	r.RegisterData(registry.NewDataType("a::text"))
	r.RegisterTrait(registry.NewTraitType("name"))
	r.RegisterConstant(registry.NewConstant("index::many", -2.0, registry.TypeNumber))
	return r.Freeze()
}

func parseOne(t *testing.T, reg *registry.Registry, src string) *container.Many {
	t.Helper()
	result, err := New(src).Parse(reg, false)
	require.NoError(t, err)
	return result
}

func singleVerb(t *testing.T, m *container.Many) *model.Verb {
	t.Helper()
	require.Equal(t, container.KindTyped, m.Kind())
	require.Equal(t, 1, m.Len())
	v, ok := m.At(0).(*model.Verb)
	require.True(t, ok, "expected a verb, got %T", m.At(0))
	return v
}

func TestParseAssociateWithConstant(t *testing.T) {
	reg := testRegistry()
	v := singleVerb(t, parseOne(t, reg, "`plural` associate index::many"))

	expected := model.NewVerb(registry.VerbAssociate)
	expected.SetSource(container.NewTyped(registry.TypeText, "plural"))
	expected.SetArgument(container.NewTyped(registry.TypeNumber, -2.0))

	assert.True(t, v.Equal(expected), "got %v, want %v", v, expected)
	assert.Equal(t, expected.Hash(), v.Hash())
}

func TestParseChargedCreateWithMissingVerb(t *testing.T) {
	reg := testRegistry()
	v := singleVerb(t, parseOne(t, reg, "Create!-1(Verb(?, ??))"))

	assert.Same(t, registry.VerbCreate, v.VerbMeta)
	assert.Equal(t, -1.0, v.Charge.Priority)
	assert.True(t, v.Source.IsEmpty())

	inner := singleVerb(t, v.Argument)
	past, ok := singleMissing(inner.Source)
	require.True(t, ok, "inner verb's source should be a past point")
	assert.Equal(t, model.MissingPastKind, past.Kind)

	future, ok := singleMissing(inner.Argument)
	require.True(t, ok, "inner verb's argument should be a future point")
	assert.Equal(t, model.MissingFutureKind, future.Kind)
}

func singleMissing(m *container.Many) (*model.MissingPoint, bool) {
	for m.IsDeep() && m.Len() == 1 {
		m = m.DeepAt(0)
	}
	if m.Kind() != container.KindTyped || m.Len() != 1 {
		return nil, false
	}
	p, ok := m.At(0).(*model.MissingPoint)
	return p, ok
}

func TestParseArithmeticOptimized(t *testing.T) {
	reg := testRegistry()
	result, err := New("-(2 * 8.75 - 14 ^ 2)").Parse(reg, true)
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.Equal(t, 178.5, result.At(0))
}

func TestParseArithmeticUnoptimized(t *testing.T) {
	reg := testRegistry()
	outer := singleVerb(t, parseOne(t, reg, "-(2 * 8.75 - 14 ^ 2)"))

	assert.Same(t, registry.VerbAdd, outer.VerbMeta)
	assert.Equal(t, -1.0, outer.Charge.Mass, "leading '-' is the reverse add")
	assert.True(t, outer.Source.IsEmpty())

	sub := singleVerb(t, outer.Argument)
	assert.Same(t, registry.VerbAdd, sub.VerbMeta)
	assert.Equal(t, -1.0, sub.Charge.Mass)

	mul := singleVerb(t, sub.Source)
	assert.Same(t, registry.VerbMultiply, mul.VerbMeta)
	if diff := cmp.Diff([]float64{2, 8.75}, numbers(mul.Source, mul.Argument)); diff != "" {
		t.Errorf("multiply operands mismatch (-want +got):\n%s", diff)
	}

	pow := singleVerb(t, sub.Argument)
	assert.Same(t, registry.VerbExponent, pow.VerbMeta)
	if diff := cmp.Diff([]float64{14, 2}, numbers(pow.Source, pow.Argument)); diff != "" {
		t.Errorf("exponent operands mismatch (-want +got):\n%s", diff)
	}
}

func numbers(sides ...*container.Many) []float64 {
	var out []float64
	for _, side := range sides {
		out = append(out, container.Gather[float64](side)...)
	}
	return out
}

func TestParsePastCreateTraitWithFilteredFuture(t *testing.T) {
	reg := testRegistry()
	v := singleVerb(t, parseOne(t, reg, "? create Name(A::Text??)"))

	assert.Same(t, registry.VerbCreate, v.VerbMeta)

	past, ok := singleMissing(v.Source)
	require.True(t, ok)
	assert.Equal(t, model.MissingPastKind, past.Kind)

	require.Equal(t, 1, v.Argument.Len())
	trait, ok := v.Argument.At(0).(*model.Trait)
	require.True(t, ok, "argument should be a trait, got %T", v.Argument.At(0))
	assert.Equal(t, "name", trait.TraitMeta.Token())

	future, ok := singleMissing(trait.Content)
	require.True(t, ok)
	assert.Equal(t, model.MissingFutureKind, future.Kind)
	require.Len(t, future.Filter, 1)
	assert.Equal(t, "a::text", future.Filter[0].Token())
}

func TestParseConstructDescriptor(t *testing.T) {
	reg := testRegistry()
	result := parseOne(t, reg, "Thing(User)")
	require.Equal(t, 1, result.Len())

	c, ok := result.At(0).(*model.Construct)
	require.True(t, ok)
	assert.Equal(t, "thing", c.TypeMeta.Token())

	inner := container.Gather[*model.Construct](c.Descriptor)
	require.Len(t, inner, 1)
	assert.Equal(t, "user", inner[0].TypeMeta.Token())
}

func TestParseChargeRunOnConstruct(t *testing.T) {
	reg := testRegistry()
	result := parseOne(t, reg, "Thing*3!2(User)")
	c, ok := result.At(0).(*model.Construct)
	require.True(t, ok)
	assert.Equal(t, 3.0, c.Charge.Mass)
	assert.Equal(t, 2.0, c.Charge.Priority)
	assert.NotEmpty(t, container.Gather[*model.Construct](c.Descriptor))
}

func TestParseTimeAndRateCharges(t *testing.T) {
	reg := testRegistry()
	v := singleVerb(t, parseOne(t, reg, "create@2(Thing)"))
	assert.Equal(t, 2.0, v.Charge.Time)
	assert.True(t, v.Charge.IsFlowDependent())

	v = singleVerb(t, parseOne(t, reg, "create^3(Thing)"))
	assert.Equal(t, 3.0, v.Charge.Rate)
}

func TestParseStringEscapes(t *testing.T) {
	reg := testRegistry()
	result := parseOne(t, reg, `"a\nb\x21"`)
	assert.Equal(t, "a\nb!", result.At(0))
}

func TestParseByteLiteral(t *testing.T) {
	reg := testRegistry()
	result := parseOne(t, reg, "0xdeadbeef")
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, result.At(0))
}

func TestParseCodeLiteralKeepsNestedBrackets(t *testing.T) {
	reg := testRegistry()
	result := parseOne(t, reg, "[do [nested] thing]")
	assert.Equal(t, "do [nested] thing", result.At(0))
}

func TestParseConstMarksTerm(t *testing.T) {
	reg := testRegistry()
	result := parseOne(t, reg, `const "fixed"`)
	assert.True(t, result.IsConstant())
	assert.Equal(t, "fixed", result.At(0))
}

func TestParseCommentsAreSkippable(t *testing.T) {
	reg := testRegistry()
	result := parseOne(t, reg, "|a comment| 5")
	assert.Equal(t, 5.0, result.At(0))
}

func TestParseUnknownTokenSuggests(t *testing.T) {
	reg := testRegistry()
	_, err := New("cretae Thing").Parse(reg, false)
	require.Error(t, err)

	var parseErr *flowerr.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.NotEmpty(t, parseErr.Suggestions)
}

func TestParseUnterminatedScopeFails(t *testing.T) {
	reg := testRegistry()
	_, err := New("(1, 2").Parse(reg, false)
	require.Error(t, err)

	var parseErr *flowerr.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Message, "unterminated")
}

func TestParseTrailingInputWarns(t *testing.T) {
	reg := testRegistry()
	_, warnings, err := New("5 )").ParseWithWarnings(reg, false)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestParseRoundTripStructure(t *testing.T) {
	reg := testRegistry()
	a := parseOne(t, reg, "? create Name(A::Text??)")
	b := parseOne(t, reg, "? create Name(A::Text??)")
	assert.True(t, a.Equal(b), "two parses of the same code agree structurally")
	assert.Equal(t, a.Hash(), b.Hash())
}
