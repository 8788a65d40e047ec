// Package temporal implements the temporal linker and flow: a
// Temporal accepts incremental pushes of new code, places each
// verb into the priority, time, or frequency stack, links missing-past
// and missing-future placeholders as material arrives, and executes
// the stacks as simulated time advances through Update.
//
// The linker owns every missing point; the executor only ever sees
// them through the graph. Scheduling is single-threaded cooperative:
// callers drive the flow by calling Push and Update, and Update
// returns only after its whole tick has completed.
package temporal

import (
	"sort"
	"time"

	"github.com/flowlang/flow/internal/code"
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/exec"
	"github.com/flowlang/flow/internal/flowlog"
	"github.com/flowlang/flow/internal/invariant"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// Config holds the flow's tick periods and dump formatting.
type Config struct {
	// TimePeriod is one tick of the time stack (default 1s).
	TimePeriod time.Duration
	// RatePeriod is one tick of the frequency stack (default 1s).
	RatePeriod time.Duration
	// AbbrevLen is the serialisation length beyond which Dump breaks a
	// sub-scope onto multiple lines (default 120 runes).
	AbbrevLen int
	// Log receives path/detail traces (default: discard).
	Log *flowlog.Logger
}

func (c Config) withDefaults() Config {
	if c.TimePeriod <= 0 {
		c.TimePeriod = time.Second
	}
	if c.RatePeriod <= 0 {
		c.RatePeriod = time.Second
	}
	if c.AbbrevLen <= 0 {
		c.AbbrevLen = 120
	}
	if c.Log == nil {
		c.Log = flowlog.Discard()
	}
	return c
}

// Temporal is the top-level flow object owning the priority, time, and
// frequency stacks.
type Temporal struct {
	parent *Temporal // observing, never owning
	reg    *registry.Registry
	runner *exec.Runner
	cfg    Config

	start, now time.Duration

	// priorityStack is the synchronous flow; it begins with a single
	// MissingFuture accepting anything.
	priorityStack *container.Many
	futures       []*model.MissingPoint // owned future points, front to back
	points        []*model.MissingPoint // every owned missing point
	flags         []*model.EntangledFlag

	timeStack   map[uint64]*Temporal // one-shot subflows, keyed by tick
	timeFired   map[uint64]bool
	freqStack   map[uint64]*Temporal // periodic subflows, keyed by tick count
	freqElapsed map[uint64]time.Duration
}

// New builds a fresh flow. parent may be nil; a non-nil parent is
// consulted when a push cannot be satisfied locally.
func New(parent *Temporal, reg *registry.Registry, cfg Config) *Temporal {
	invariant.NotNil(reg, "registry")
	cfg = cfg.withDefaults()
	t := &Temporal{
		parent:      parent,
		reg:         reg,
		runner:      exec.New(reg, exec.WithLogger(cfg.Log)),
		cfg:         cfg,
		timeStack:   map[uint64]*Temporal{},
		timeFired:   map[uint64]bool{},
		freqStack:   map[uint64]*Temporal{},
		freqElapsed: map[uint64]time.Duration{},
	}
	root := model.NewMissingFuture()
	t.own(root)
	t.futures = append(t.futures, root)
	t.priorityStack = container.NewDeep(root.Wrap())
	return t
}

func (t *Temporal) own(p *model.MissingPoint) {
	t.points = append(t.points, p)
}

// PushCode parses src against the flow's registry and pushes the
// result.
func (t *Temporal) PushCode(src code.Code) (*container.Many, error) {
	parsed, err := src.Parse(t.reg, false)
	if err != nil {
		return nil, err
	}
	return t.Push(parsed)
}

// Update advances simulated time by dt: the priority stack runs at
// time zero, then periodic subflows tick on the frequency stack, then
// due one-shot subflows run off the time stack.
func (t *Temporal) Update(dt time.Duration) (bool, *container.Many, error) {
	effects := container.Empty()

	if t.now == t.start {
		_, out, err := t.runner.Execute(t.priorityStack, container.Empty())
		if err != nil {
			return false, effects, err
		}
		if !out.IsEmpty() {
			_ = effects.SmartPush(out)
		}
	}
	if dt == 0 {
		return true, effects, nil
	}
	t.now += dt

	// Frequency stack: every periodic subflow accumulates dt and fires
	// once per full period elapsed, resetting before each firing.
	for _, k := range sortedKeys(t.freqStack) {
		sub := t.freqStack[k]
		period := time.Duration(k) * t.cfg.RatePeriod
		if period <= 0 {
			continue
		}
		t.freqElapsed[k] += dt
		for t.freqElapsed[k] >= period {
			sub.Reset()
			if _, out, err := sub.Update(0); err != nil {
				return false, effects, err
			} else if !out.IsEmpty() {
				_ = effects.SmartPush(out)
			}
			t.freqElapsed[k] -= period
		}
	}

	// Time stack: one-shot subflows fire in key order once their tick
	// is reached.
	elapsedTicks := uint64((t.now - t.start) / t.cfg.TimePeriod)
	for _, k := range sortedKeys(t.timeStack) {
		if k > elapsedTicks || t.timeFired[k] {
			continue
		}
		if _, out, err := t.timeStack[k].Update(dt); err != nil {
			return false, effects, err
		} else if !out.IsEmpty() {
			_ = effects.SmartPush(out)
		}
		t.timeFired[k] = true
	}

	return true, effects, nil
}

// Reset rolls the flow back to now == start, recursively clearing done
// and output on every verb in every stack while preserving the graph
// shape, and re-arming entangled branches.
func (t *Temporal) Reset() {
	t.now = t.start
	model.WalkVerbs(t.priorityStack, func(v *model.Verb) bool {
		v.Output = container.Empty()
		v.Done = false
		v.Successes = 0
		return true
	})
	for _, f := range t.flags {
		f.Reset()
	}
	for _, sub := range t.timeStack {
		sub.Reset()
	}
	for k := range t.timeFired {
		t.timeFired[k] = false
	}
	for _, sub := range t.freqStack {
		sub.Reset()
	}
	for k := range t.freqElapsed {
		t.freqElapsed[k] = 0
	}
}

// Merge splices a detached deep copy of o's stacks into t. The copy is
// taken through the snapshot codec so no ownership is shared; observer
// links re-establish on the next linking pass.
func (t *Temporal) Merge(o *Temporal) error {
	stack, err := detachedCopy(t.reg, o.priorityStack)
	if err != nil {
		return err
	}
	// Skip o's root future point; its filled content and any other
	// terms join t's own futures.
	for i := 0; i < stack.Len(); i++ {
		child := stack.DeepAt(i)
		if child.Kind() == container.KindTyped && child.Len() == 1 {
			if fp, ok := child.At(0).(*model.MissingPoint); ok && fp.Kind == model.MissingFutureKind {
				if fp.Content.IsEmpty() {
					continue
				}
				child = fp.Content
			}
		}
		if _, err := t.Push(child); err != nil {
			return err
		}
	}
	for k, sub := range o.timeStack {
		target := t.subflowTime(k)
		if err := target.Merge(sub); err != nil {
			return err
		}
	}
	for k, sub := range o.freqStack {
		target := t.subflowFreq(k)
		if err := target.Merge(sub); err != nil {
			return err
		}
	}
	return nil
}

// IsValid reports basic structural health: monotonic time, a priority
// stack that still carries at least one future point.
func (t *Temporal) IsValid() bool {
	if t.now < t.start {
		return false
	}
	if t.priorityStack == nil || len(t.futures) == 0 {
		return false
	}
	for _, f := range t.futures {
		if f == nil {
			return false
		}
	}
	return true
}

// Now reports the current simulated time.
func (t *Temporal) Now() time.Duration { return t.now }

func (t *Temporal) subflowTime(ticks uint64) *Temporal {
	if sub, ok := t.timeStack[ticks]; ok {
		return sub
	}
	sub := New(t, t.reg, t.cfg)
	t.timeStack[ticks] = sub
	return sub
}

func (t *Temporal) subflowFreq(ticks uint64) *Temporal {
	if sub, ok := t.freqStack[ticks]; ok {
		return sub
	}
	sub := New(t, t.reg, t.cfg)
	t.freqStack[ticks] = sub
	t.freqElapsed[ticks] = 0
	return sub
}

func sortedKeys(m map[uint64]*Temporal) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
