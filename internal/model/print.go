package model

import (
	"fmt"
	"strings"
)

// The String forms below are structural: two nodes render identically
// iff they are structurally equal. The container layer leans on this -
// its hashing and equality visit flat elements through their printed
// form, so every graph node must render its full identity and never a
// pointer.

func (v *Verb) String() string {
	return fmt.Sprintf("%s[%g %g %g %g %d](%s)(%s)->(%s)",
		v.VerbMeta.Token(),
		v.Charge.Mass, v.Charge.Rate, v.Charge.Time, v.Charge.Priority,
		v.State, v.Source, v.Argument, v.Output)
}

func (c *Construct) String() string {
	return fmt.Sprintf("%s[%g %g %g %g]%s",
		c.TypeMeta.Token(),
		c.Charge.Mass, c.Charge.Rate, c.Charge.Time, c.Charge.Priority,
		c.Descriptor)
}

func (t *Trait) String() string {
	return fmt.Sprintf("%s%s", t.TraitMeta.Token(), t.Content)
}

func (p *MissingPoint) String() string {
	tokens := make([]string, 0, len(p.Filter))
	for _, f := range p.Filter {
		tokens = append(tokens, f.Token())
	}
	kind := "?"
	if p.Kind == MissingFutureKind {
		kind = "??"
	}
	return fmt.Sprintf("%s[%s !%g]%s", kind, strings.Join(tokens, " "), p.Priority, p.Content)
}
