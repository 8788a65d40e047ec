// Package schema validates a Construct's descriptor against the JSON
// Schema its data type optionally registered. Types without a schema
// skip validation entirely; this is a guardrail in front of Create, not
// a requirement on every type.
package schema

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/flowerr"
	"github.com/flowlang/flow/internal/model"
)

// ValidateDescriptor checks descriptor against schemaText, returning a
// ConstructError describing the first violation. An empty schemaText
// always passes.
func ValidateDescriptor(schemaText string, descriptor *container.Many) error {
	if schemaText == "" {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("descriptor.json", strings.NewReader(schemaText)); err != nil {
		return &flowerr.ConstructError{Message: fmt.Sprintf("invalid descriptor schema: %v", err)}
	}
	compiled, err := compiler.Compile("descriptor.json")
	if err != nil {
		return &flowerr.ConstructError{Message: fmt.Sprintf("invalid descriptor schema: %v", err)}
	}
	if err := compiled.Validate(ToJSON(descriptor)); err != nil {
		return &flowerr.ConstructError{Message: fmt.Sprintf("descriptor rejected by schema: %v", err)}
	}
	return nil
}

// ToJSON projects a Many graph onto plain JSON values so a schema can
// constrain it: deep blocks become arrays, graph nodes become objects
// keyed by their kind, scalars pass through.
func ToJSON(m *container.Many) any {
	if m == nil || m.IsEmpty() {
		return []any{}
	}
	if m.IsDeep() {
		out := make([]any, 0, m.Len())
		for i := 0; i < m.Len(); i++ {
			out = append(out, ToJSON(m.DeepAt(i)))
		}
		return out
	}
	out := make([]any, 0, m.Len())
	m.ForEach(func(_ int, v any) bool {
		out = append(out, valueToJSON(v))
		return true
	})
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func valueToJSON(v any) any {
	switch t := v.(type) {
	case float64, string, bool:
		return t
	case []byte:
		return fmt.Sprintf("%x", t)
	case *model.Construct:
		return map[string]any{
			"construct":  t.TypeMeta.Token(),
			"descriptor": ToJSON(t.Descriptor),
		}
	case *model.Trait:
		return map[string]any{
			"trait":   t.TraitMeta.Token(),
			"content": ToJSON(t.Content),
		}
	case *model.Verb:
		return map[string]any{
			"verb":     t.VerbMeta.Token(),
			"source":   ToJSON(t.Source),
			"argument": ToJSON(t.Argument),
		}
	case *model.MissingPoint:
		kind := "past"
		if t.Kind == model.MissingFutureKind {
			kind = "future"
		}
		return map[string]any{"missing": kind}
	default:
		return fmt.Sprint(v)
	}
}
