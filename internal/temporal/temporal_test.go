package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlang/flow/internal/code"
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/flowerr"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

func testRegistry() *registry.Registry {
	r := registry.Seed(registry.New())
	r.RegisterData(registry.NewDataType("thing"))
	r.RegisterData(registry.NewDataType("user"))
	r.RegisterData(registry.NewDataType("universe"))
	return r.Freeze()
}

func newFlow(t *testing.T) *Temporal {
	t.Helper()
	return New(nil, testRegistry(), Config{})
}

func push(t *testing.T, flow *Temporal, src string) *container.Many {
	t.Helper()
	effects, err := flow.PushCode(code.New(src))
	require.NoError(t, err)
	return effects
}

func constructs(m *container.Many) []*model.Construct {
	return container.Gather[*model.Construct](m)
}

func TestFreshFlowIsValid(t *testing.T) {
	flow := newFlow(t)
	assert.True(t, flow.IsValid())
	assert.Equal(t, time.Duration(0), flow.Now())
}

func TestPushPlainDataExecutesAtTimeZero(t *testing.T) {
	flow := newFlow(t)
	effects := push(t, flow, "5")
	assert.Equal(t, []float64{5}, container.Gather[float64](effects))
}

func TestDeferredCreateCompletesWhenPastArrives(t *testing.T) {
	flow := newFlow(t)

	effects := push(t, flow, "? create Thing(User)")
	assert.Empty(t, constructs(effects), "the past point is still unfilled")

	push(t, flow, "Thing(Universe)")

	_, effects, err := flow.Update(time.Second)
	require.NoError(t, err)
	created := constructs(effects)
	require.NotEmpty(t, created, "update must surface the constructed Thing")

	var thing *model.Construct
	for _, c := range created {
		if c.TypeMeta.Token() == "thing" {
			thing = c
			break
		}
	}
	require.NotNil(t, thing)

	descriptorTokens := map[string]bool{}
	for _, c := range constructs(thing.Descriptor) {
		descriptorTokens[c.TypeMeta.Token()] = true
	}
	assert.True(t, descriptorTokens["universe"], "descriptor must include Universe, got %v", descriptorTokens)
}

func TestResetClearsEveryVerb(t *testing.T) {
	flow := newFlow(t)
	push(t, flow, "? create Thing(User)")
	push(t, flow, "Thing(Universe)")
	_, _, err := flow.Update(time.Second)
	require.NoError(t, err)

	flow.Reset()
	assert.Equal(t, time.Duration(0), flow.Now())
	model.WalkVerbs(flow.priorityStack, func(v *model.Verb) bool {
		assert.False(t, v.Done)
		assert.True(t, v.Output.IsEmpty())
		return true
	})
}

func TestTimeStackFiresOnce(t *testing.T) {
	flow := newFlow(t)
	push(t, flow, "create@2(Thing)")

	_, effects, err := flow.Update(time.Second)
	require.NoError(t, err)
	assert.Empty(t, constructs(effects), "tick 2 not reached yet")

	_, effects, err = flow.Update(time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, constructs(effects), "tick 2 reached")

	_, effects, err = flow.Update(time.Second)
	require.NoError(t, err)
	assert.Empty(t, constructs(effects), "one-shot subflows never re-fire")
}

func TestFrequencyStackFiresPeriodically(t *testing.T) {
	flow := newFlow(t)
	push(t, flow, "create^2(Thing)")

	_, effects, err := flow.Update(time.Second)
	require.NoError(t, err)
	assert.Empty(t, constructs(effects))

	_, effects, err = flow.Update(time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, constructs(effects), "first period elapsed")

	_, effects, err = flow.Update(2 * time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, constructs(effects), "periodic subflows re-fire")
}

func TestUpdateSplitIsEquivalent(t *testing.T) {
	runTo := func(steps ...time.Duration) []*model.Construct {
		flow := newFlow(t)
		push(t, flow, "create@2(Thing)")
		var all []*model.Construct
		for _, dt := range steps {
			_, effects, err := flow.Update(dt)
			require.NoError(t, err)
			all = append(all, constructs(effects)...)
		}
		return all
	}
	split := runTo(time.Second, time.Second, time.Second)
	whole := runTo(3 * time.Second)
	assert.Equal(t, len(whole), len(split))
}

func TestHigherPriorityMaterialIsRefused(t *testing.T) {
	flow := newFlow(t)
	_, err := flow.PushCode(code.New("create!5(Thing)"))
	require.Error(t, err)

	var linkErr *flowerr.LinkError
	assert.ErrorAs(t, err, &linkErr)
	assert.True(t, flow.IsValid(), "a failed push leaves the flow runnable")

	// The flow still accepts ordinary material afterwards.
	push(t, flow, "Thing(User)")
}

func TestEntangledBranchesAcrossStacks(t *testing.T) {
	reg := testRegistry()
	flow := New(nil, reg, Config{})

	thing := reg.GetMetaData("thing")
	mkCreate := func() *model.Verb {
		v := model.NewVerb(registry.VerbCreate)
		v.SetArgument(container.NewTyped(thing, model.NewConstruct(thing)))
		return v
	}
	immediate := mkCreate()
	delayed := mkCreate().WithTime(1)

	branches := container.NewDeep(
		container.NewTyped(registry.VerbCreate, immediate),
		container.NewTyped(registry.VerbCreate, delayed),
	).MakeOr()

	_, err := flow.Push(branches)
	require.NoError(t, err)

	assert.True(t, immediate.Done, "the synchronous branch wins at time zero")
	require.NotNil(t, immediate.Entangled)
	assert.Same(t, immediate.Entangled, delayed.Entangled, "branches share one flag")
	assert.True(t, immediate.Entangled.Done())

	_, _, err = flow.Update(time.Second)
	require.NoError(t, err)
	assert.False(t, delayed.Done, "the losing branch stays inert")
}

func TestDumpDoesNotExecute(t *testing.T) {
	flow := newFlow(t)
	push(t, flow, "? create Thing(User)")

	var pending *model.Verb
	model.WalkVerbs(flow.priorityStack, func(v *model.Verb) bool {
		pending = v
		return false
	})
	require.NotNil(t, pending)
	require.False(t, pending.Done)

	out := flow.Dump()
	assert.Contains(t, out, "priority:")
	assert.Contains(t, out, "[future]")
	assert.False(t, pending.Done, "dump must never execute verbs")
}

func TestDumpAnnotatesStacks(t *testing.T) {
	flow := newFlow(t)
	push(t, flow, "create@2(Thing)")
	push(t, flow, "create^3(Thing)")
	out := flow.Dump()
	assert.Contains(t, out, "time @2")
	assert.Contains(t, out, "rate ^3")
}

func TestMergeSplicesPeerFlow(t *testing.T) {
	flow := newFlow(t)
	peer := newFlow(t)
	push(t, peer, "Thing(User)")

	require.NoError(t, flow.Merge(peer))
	// The merged material is live in flow: a past-consumer links to it.
	effects := push(t, flow, "? create Thing(Universe)")
	_ = effects

	_, effects, err := flow.Update(time.Second)
	require.NoError(t, err)
	assert.True(t, flow.IsValid())
}

func TestDoVerbOverridesContext(t *testing.T) {
	flow := newFlow(t)
	// do(Thing(User), ? create Thing(Universe)): the do's source fills
	// the argument's past point instead of waiting for a later push.
	reg := testRegistry()
	thing := reg.GetMetaData("thing")

	ctx := model.NewConstruct(thing)
	require.NoError(t, ctx.Descriptor.SmartPush(container.NewTyped(reg.GetMetaData("user"), model.NewConstruct(reg.GetMetaData("user")))))

	past := model.NewMissingPast()
	create := model.NewVerb(registry.VerbCreate)
	create.SetSource(past.Wrap())
	create.SetArgument(container.NewTyped(thing, model.NewConstruct(thing)))

	do := model.NewVerb(registry.VerbDo)
	do.SetSource(container.NewTyped(thing, ctx))
	do.SetArgument(container.NewTyped(registry.VerbCreate, create))

	_, err := flow.Push(container.NewTyped(registry.VerbDo, do))
	require.NoError(t, err)
	assert.False(t, past.Content.IsEmpty(), "the do-verb's source fills the past point")
	assert.True(t, create.Done, "the argument executed with the override context")
}
