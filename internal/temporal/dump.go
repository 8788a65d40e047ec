package temporal

import (
	"fmt"
	"strings"

	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/model"
)

// Dump renders the three stacks for inspection, annotating past,
// future, and suspended points and breaking long sub-scopes onto
// multiple lines past the configured abbreviation threshold. Dump
// never executes verbs.
func (t *Temporal) Dump() string {
	var b strings.Builder
	t.dumpInto(&b, 0)
	return b.String()
}

func (t *Temporal) dumpInto(b *strings.Builder, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%stemporal now=%s start=%s\n", pad, t.now, t.start)
	fmt.Fprintf(b, "%spriority:\n", pad)
	for i := 0; i < t.priorityStack.Len(); i++ {
		b.WriteString(t.renderMany(t.priorityStack.DeepAt(i), depth+1))
		b.WriteByte('\n')
	}
	for _, k := range sortedKeys(t.timeStack) {
		fired := ""
		if t.timeFired[k] {
			fired = " [fired]"
		}
		fmt.Fprintf(b, "%stime @%d%s:\n", pad, k, fired)
		t.timeStack[k].dumpInto(b, depth+1)
	}
	for _, k := range sortedKeys(t.freqStack) {
		fmt.Fprintf(b, "%srate ^%d:\n", pad, k)
		t.freqStack[k].dumpInto(b, depth+1)
	}
}

func (t *Temporal) renderMany(m *container.Many, depth int) string {
	pad := strings.Repeat("  ", depth)
	flat := Serialize(m)
	if len([]rune(flat)) <= t.cfg.AbbrevLen || !m.IsDeep() {
		return pad + flat
	}
	// Too long for one line: break the children out.
	var b strings.Builder
	b.WriteString(pad + "(\n")
	for i := 0; i < m.Len(); i++ {
		b.WriteString(t.renderMany(m.DeepAt(i), depth+1))
		b.WriteByte('\n')
	}
	b.WriteString(pad + ")")
	return b.String()
}

// Serialize renders a Many graph in source-like form.
func Serialize(m *container.Many) string {
	if m == nil || m.IsEmpty() {
		return "()"
	}
	if m.IsDeep() {
		parts := make([]string, 0, m.Len())
		for i := 0; i < m.Len(); i++ {
			parts = append(parts, Serialize(m.DeepAt(i)))
		}
		sep := ", "
		if m.IsOr() {
			sep = " or "
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
	parts := make([]string, 0, m.Len())
	m.ForEach(func(_ int, elem any) bool {
		parts = append(parts, serializeNode(elem))
		return true
	})
	s := strings.Join(parts, ", ")
	if m.IsConstant() {
		s = "const " + s
	}
	return s
}

func serializeNode(elem any) string {
	switch n := elem.(type) {
	case *model.Verb:
		return fmt.Sprintf("%s(%s, %s)", n.VerbMeta.Token(), Serialize(n.Source), Serialize(n.Argument))
	case *model.Construct:
		return fmt.Sprintf("%s%s", n.TypeMeta.Token(), Serialize(n.Descriptor))
	case *model.Trait:
		return fmt.Sprintf("%s%s", n.TraitMeta.Token(), Serialize(n.Content))
	case *model.MissingPoint:
		tag := "[past]"
		if n.Kind == model.MissingFutureKind {
			tag = "[future]"
		}
		if n.Suspended {
			tag += "[suspended]"
		}
		if n.Content.IsEmpty() {
			return tag + "?"
		}
		return tag + Serialize(n.Content)
	case string:
		return fmt.Sprintf("%q", n)
	default:
		return fmt.Sprint(n)
	}
}
