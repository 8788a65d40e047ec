package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlang/flow/internal/code"
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/registry"
)

func testRegistry() *registry.Registry {
	r := registry.Seed(registry.New())
	r.RegisterData(registry.NewDataType("thing"))
	r.RegisterData(registry.NewDataType("user"))
	r.RegisterData(registry.NewDataType("a::text"))
	r.RegisterTrait(registry.NewTraitType("name"))
	r.RegisterConstant(registry.NewConstant("index::many", -2.0, registry.TypeNumber))
	return r.Freeze()
}

// Round-trip: representative graphs of every node kind must decode
// back to a structurally equal graph.
func TestRoundTripScenarios(t *testing.T) {
	reg := testRegistry()
	sources := []string{
		"`plural` associate index::many",
		"Create!-1(Verb(?, ??))",
		"-(2 * 8.75 - 14 ^ 2)",
		"? create Name(A::Text??)",
		"Thing(User)",
		`const "fixed" 0xdeadbeef 42`,
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			original, err := code.New(src).Parse(reg, false)
			require.NoError(t, err)

			data, err := Encode(original)
			require.NoError(t, err)

			decoded, err := Decode(reg, data)
			require.NoError(t, err)

			assert.True(t, original.Equal(decoded),
				"round-trip mismatch:\n  original: %v\n  decoded:  %v", original, decoded)
			assert.Equal(t, original.Hash(), decoded.Hash())
		})
	}
}

func TestEncodingIsCanonical(t *testing.T) {
	reg := testRegistry()
	graph, err := code.New("? create Name(A::Text??)").Parse(reg, false)
	require.NoError(t, err)

	a, err := Encode(graph)
	require.NoError(t, err)
	b, err := Encode(graph)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDigestDistinguishesGraphs(t *testing.T) {
	reg := testRegistry()
	a, err := code.New("Thing(User)").Parse(reg, false)
	require.NoError(t, err)
	b, err := code.New("Thing(User) 5").Parse(reg, false)
	require.NoError(t, err)

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)

	da2, err := Digest(a.Clone())
	require.NoError(t, err)
	assert.Equal(t, da, da2, "clones share a digest")
}

func TestDecodeUnknownMetaFails(t *testing.T) {
	reg := testRegistry()
	graph, err := code.New("Thing(User)").Parse(reg, false)
	require.NoError(t, err)
	data, err := Encode(graph)
	require.NoError(t, err)

	bare := registry.Seed(registry.New()).Freeze() // no "thing"
	_, err = Decode(bare, data)
	assert.Error(t, err)
}

func TestStateBitsSurviveRoundTrip(t *testing.T) {
	reg := testRegistry()
	m := container.NewTyped(registry.TypeNumber, 1.0).MakeConst().MakeOr()

	data, err := Encode(m)
	require.NoError(t, err)
	decoded, err := Decode(reg, data)
	require.NoError(t, err)

	assert.True(t, decoded.IsConstant())
	assert.True(t, decoded.IsOr())
}
