// Package snapshot serializes Many graphs to a canonical CBOR byte
// form and back. It backs Temporal.Merge (detached deep copies), the
// round-trip properties of the test suite, and the CLI's graph dumps.
//
// Metas are encoded by token and re-resolved against a registry on
// decode; missing-point observer links are never encoded - they are
// re-established by the next linking pass.
package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/flowlang/flow/internal/charge"
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

var encMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic("snapshot: cannot build canonical CBOR mode: " + err.Error())
	}
	encMode = mode
}

const (
	valueNumber uint8 = iota + 1
	valueText
	valueBool
	valueBytes
	valueVerb
	valueConstruct
	valueTrait
	valueMissing
)

type wireNode struct {
	Kind     uint8        `cbor:"1,keyasint"`
	Flags    uint16       `cbor:"2,keyasint,omitempty"`
	Meta     string       `cbor:"3,keyasint,omitempty"`
	Values   []wireValue  `cbor:"4,keyasint,omitempty"`
	Children []*wireNode  `cbor:"5,keyasint,omitempty"`
}

type wireValue struct {
	Kind      uint8          `cbor:"1,keyasint"`
	Number    float64        `cbor:"2,keyasint,omitempty"`
	Text      string         `cbor:"3,keyasint,omitempty"`
	Bool      bool           `cbor:"4,keyasint,omitempty"`
	Bytes     []byte         `cbor:"5,keyasint,omitempty"`
	Verb      *wireVerb      `cbor:"6,keyasint,omitempty"`
	Construct *wireConstruct `cbor:"7,keyasint,omitempty"`
	Trait     *wireTrait     `cbor:"8,keyasint,omitempty"`
	Missing   *wireMissing   `cbor:"9,keyasint,omitempty"`
}

type wireCharge struct {
	Mass     float64 `cbor:"1,keyasint"`
	Rate     float64 `cbor:"2,keyasint,omitempty"`
	Time     float64 `cbor:"3,keyasint,omitempty"`
	Priority float64 `cbor:"4,keyasint,omitempty"`
}

type wireVerb struct {
	Meta     string     `cbor:"1,keyasint"`
	Source   *wireNode  `cbor:"2,keyasint,omitempty"`
	Argument *wireNode  `cbor:"3,keyasint,omitempty"`
	Output   *wireNode  `cbor:"4,keyasint,omitempty"`
	Charge   wireCharge `cbor:"5,keyasint"`
	State    uint8      `cbor:"6,keyasint,omitempty"`
}

type wireConstruct struct {
	Meta       string     `cbor:"1,keyasint"`
	Descriptor *wireNode  `cbor:"2,keyasint,omitempty"`
	Charge     wireCharge `cbor:"3,keyasint"`
}

type wireTrait struct {
	Meta    string    `cbor:"1,keyasint"`
	Content *wireNode `cbor:"2,keyasint,omitempty"`
}

type wireMissing struct {
	Future    bool      `cbor:"1,keyasint,omitempty"`
	Filter    []string  `cbor:"2,keyasint,omitempty"`
	Content   *wireNode `cbor:"3,keyasint,omitempty"`
	Priority  float64   `cbor:"4,keyasint,omitempty"`
	Suspended bool      `cbor:"5,keyasint,omitempty"`
}

// Encode serializes m to canonical CBOR.
func Encode(m *container.Many) ([]byte, error) {
	node, err := toWire(m)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(node)
}

// Decode deserializes data produced by Encode, re-resolving meta
// tokens against reg.
func Decode(reg *registry.Registry, data []byte) (*container.Many, error) {
	var node wireNode
	if err := cbor.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return fromWire(reg, &node)
}

// Digest returns the BLAKE2b-256 digest of m's canonical encoding - a
// stable content address for snapshots.
func Digest(m *container.Many) ([32]byte, error) {
	data, err := Encode(m)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

func toWire(m *container.Many) (*wireNode, error) {
	if m == nil {
		return nil, nil
	}
	node := &wireNode{Kind: uint8(m.Kind()), Flags: uint16(m.Flags())}
	if m.Meta() != nil {
		node.Meta = m.Meta().Token()
	}
	switch m.Kind() {
	case container.KindTyped:
		var err error
		m.ForEach(func(_ int, elem any) bool {
			var v wireValue
			v, err = valueToWire(elem)
			if err != nil {
				return false
			}
			node.Values = append(node.Values, v)
			return true
		})
		if err != nil {
			return nil, err
		}
	case container.KindDeep:
		for i := 0; i < m.Len(); i++ {
			child, err := toWire(m.DeepAt(i))
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}

func valueToWire(elem any) (wireValue, error) {
	switch t := elem.(type) {
	case float64:
		return wireValue{Kind: valueNumber, Number: t}, nil
	case string:
		return wireValue{Kind: valueText, Text: t}, nil
	case bool:
		return wireValue{Kind: valueBool, Bool: t}, nil
	case []byte:
		return wireValue{Kind: valueBytes, Bytes: t}, nil
	case *model.Verb:
		src, err := toWire(t.Source)
		if err != nil {
			return wireValue{}, err
		}
		arg, err := toWire(t.Argument)
		if err != nil {
			return wireValue{}, err
		}
		out, err := toWire(t.Output)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: valueVerb, Verb: &wireVerb{
			Meta:     t.VerbMeta.Token(),
			Source:   src,
			Argument: arg,
			Output:   out,
			Charge:   chargeToWire(t.Charge),
			State:    uint8(t.State),
		}}, nil
	case *model.Construct:
		desc, err := toWire(t.Descriptor)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: valueConstruct, Construct: &wireConstruct{
			Meta:       t.TypeMeta.Token(),
			Descriptor: desc,
			Charge:     chargeToWire(t.Charge),
		}}, nil
	case *model.Trait:
		content, err := toWire(t.Content)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: valueTrait, Trait: &wireTrait{
			Meta:    t.TraitMeta.Token(),
			Content: content,
		}}, nil
	case *model.MissingPoint:
		content, err := toWire(t.Content)
		if err != nil {
			return wireValue{}, err
		}
		filter := make([]string, 0, len(t.Filter))
		for _, f := range t.Filter {
			filter = append(filter, f.Token())
		}
		return wireValue{Kind: valueMissing, Missing: &wireMissing{
			Future:    t.Kind == model.MissingFutureKind,
			Filter:    filter,
			Content:   content,
			Priority:  t.Priority,
			Suspended: t.Suspended,
		}}, nil
	default:
		return wireValue{}, fmt.Errorf("snapshot: unsupported element type %T", elem)
	}
}

func chargeToWire(c charge.Charge) wireCharge {
	return wireCharge{Mass: c.Mass, Rate: c.Rate, Time: c.Time, Priority: c.Priority}
}

func chargeFromWire(w wireCharge) charge.Charge {
	return charge.Charge{Mass: w.Mass, Rate: w.Rate, Time: w.Time, Priority: w.Priority}
}

func fromWire(reg *registry.Registry, node *wireNode) (*container.Many, error) {
	if node == nil {
		return container.Empty(), nil
	}
	switch container.Kind(node.Kind) {
	case container.KindEmpty:
		m := container.Empty()
		m.SetFlags(container.Flag(node.Flags))
		return m, nil
	case container.KindTyped:
		values := make([]any, 0, len(node.Values))
		for _, wv := range node.Values {
			v, err := valueFromWire(reg, wv)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		m := container.NewTyped(resolveMeta(reg, node.Meta), values...)
		m.SetFlags(container.Flag(node.Flags))
		return m, nil
	case container.KindDeep:
		children := make([]*container.Many, 0, len(node.Children))
		for _, wc := range node.Children {
			c, err := fromWire(reg, wc)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		m := container.NewDeep(children...)
		m.SetFlags(container.Flag(node.Flags))
		return m, nil
	}
	return nil, fmt.Errorf("snapshot: unknown node kind %d", node.Kind)
}

func valueFromWire(reg *registry.Registry, wv wireValue) (any, error) {
	switch wv.Kind {
	case valueNumber:
		return wv.Number, nil
	case valueText:
		return wv.Text, nil
	case valueBool:
		return wv.Bool, nil
	case valueBytes:
		return wv.Bytes, nil
	case valueVerb:
		// Most verbs resolve in the verb catalogue; a Verb built from
		// the verb-base data type carries that data meta instead.
		var meta container.Meta
		if vm := reg.GetMetaVerb(wv.Verb.Meta); vm != nil {
			meta = vm
		} else if m := resolveMeta(reg, wv.Verb.Meta); m != nil {
			meta = m
		} else {
			return nil, fmt.Errorf("snapshot: unknown verb %q", wv.Verb.Meta)
		}
		v := model.NewVerb(meta)
		var err error
		if v.Source, err = fromWire(reg, wv.Verb.Source); err != nil {
			return nil, err
		}
		if v.Argument, err = fromWire(reg, wv.Verb.Argument); err != nil {
			return nil, err
		}
		if v.Output, err = fromWire(reg, wv.Verb.Output); err != nil {
			return nil, err
		}
		v.Charge = chargeFromWire(wv.Verb.Charge)
		v.State = charge.VerbState(wv.Verb.State)
		return v, nil
	case valueConstruct:
		meta := reg.GetMetaData(wv.Construct.Meta)
		if meta == nil {
			return nil, fmt.Errorf("snapshot: unknown data type %q", wv.Construct.Meta)
		}
		c := model.NewConstruct(meta)
		var err error
		if c.Descriptor, err = fromWire(reg, wv.Construct.Descriptor); err != nil {
			return nil, err
		}
		c.Charge = chargeFromWire(wv.Construct.Charge)
		return c, nil
	case valueTrait:
		meta := reg.GetMetaTrait(wv.Trait.Meta)
		if meta == nil {
			return nil, fmt.Errorf("snapshot: unknown trait %q", wv.Trait.Meta)
		}
		t := model.NewTrait(meta)
		var err error
		if t.Content, err = fromWire(reg, wv.Trait.Content); err != nil {
			return nil, err
		}
		return t, nil
	case valueMissing:
		filter := make([]container.Meta, 0, len(wv.Missing.Filter))
		for _, token := range wv.Missing.Filter {
			m := resolveMeta(reg, token)
			if m == nil {
				return nil, fmt.Errorf("snapshot: unknown filter meta %q", token)
			}
			filter = append(filter, m)
		}
		var p *model.MissingPoint
		if wv.Missing.Future {
			p = model.NewMissingFuture(filter...)
		} else {
			p = model.NewMissingPast(filter...)
		}
		var err error
		if p.Content, err = fromWire(reg, wv.Missing.Content); err != nil {
			return nil, err
		}
		p.Priority = wv.Missing.Priority
		p.Suspended = wv.Missing.Suspended
		return p, nil
	}
	return nil, fmt.Errorf("snapshot: unknown value kind %d", wv.Kind)
}

// resolveMeta re-binds an encoded meta token: the two missing-marker
// metas are fixed, everything else resolves through the registry
// catalogues in data, trait, verb order.
func resolveMeta(reg *registry.Registry, token string) container.Meta {
	switch token {
	case "":
		return nil
	case model.MissingPastMeta.Token():
		return model.MissingPastMeta
	case model.MissingFutureMeta.Token():
		return model.MissingFutureMeta
	}
	if d := reg.GetMetaData(token); d != nil {
		return d
	}
	if t := reg.GetMetaTrait(token); t != nil {
		return t
	}
	if v := reg.GetMetaVerb(token); v != nil {
		return v
	}
	return nil
}
