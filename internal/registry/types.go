package registry

import (
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/model"
)

// AbilityFunc is a reflected ability: a handler a data type registers
// for a specific verb, called during the "Reflected" dispatch phase
// when no custom dispatcher claims the verb.
// elem is the concrete flat value the verb is being dispatched to.
type AbilityFunc func(elem any, verb *model.Verb) bool

// CustomDispatcher is the "Custom" dispatch phase (step 1): if
// present, it is called exclusively - no Reflected/Default fallback.
type CustomDispatcher func(elem any, verb *model.Verb) (handled, ok bool)

// DataMeta describes a registered data type.
type DataMeta struct {
	token              string
	abstract           bool
	bases              []*DataMeta
	abilities          map[*VerbMeta]AbilityFunc
	customDispatch     CustomDispatcher
	defaultConstructor func() any
	producer           *DataMeta // non-nil => not statically creatable
	numeric            bool      // casts to/from Number
	descriptorSchema   string    // optional JSON schema text for Create validation
}

// NewDataType registers (but does not insert into a Registry) a new
// data type meta. Use Registry.RegisterData to add it.
func NewDataType(token string) *DataMeta {
	return &DataMeta{token: token, abilities: map[*VerbMeta]AbilityFunc{}}
}

func (d *DataMeta) Token() string   { return d.token }
func (d *DataMeta) IsAbstract() bool { return d.abstract }

// Abstract marks the type abstract (a filter/base that cannot be
// instantiated directly) and returns the receiver for chaining.
func (d *DataMeta) Abstract() *DataMeta { d.abstract = true; return d }

// Numeric marks the type as castable to/from the built-in Number type
// for the Interpret default ability's numeric-cast rule.
func (d *DataMeta) Numeric() *DataMeta { d.numeric = true; return d }
func (d *DataMeta) IsNumeric() bool    { return d.numeric }

// WithBases declares base types walked during Reflected dispatch.
func (d *DataMeta) WithBases(bases ...*DataMeta) *DataMeta {
	d.bases = append(d.bases, bases...)
	return d
}

func (d *DataMeta) Bases() []*DataMeta { return d.bases }

// WithAbility registers a reflected ability for verb meta v.
func (d *DataMeta) WithAbility(v *VerbMeta, fn AbilityFunc) *DataMeta {
	d.abilities[v] = fn
	return d
}

func (d *DataMeta) Ability(v *VerbMeta) (AbilityFunc, bool) {
	fn, ok := d.abilities[v]
	return fn, ok
}

// WithCustomDispatch registers the exclusive custom dispatcher.
func (d *DataMeta) WithCustomDispatch(fn CustomDispatcher) *DataMeta {
	d.customDispatch = fn
	return d
}

func (d *DataMeta) CustomDispatch() CustomDispatcher { return d.customDispatch }

// WithDefaultConstructor registers a zero-arg constructor invoked
// when a non-producer type is opened with an empty body.
func (d *DataMeta) WithDefaultConstructor(fn func() any) *DataMeta {
	d.defaultConstructor = fn
	return d
}

func (d *DataMeta) DefaultConstructor() func() any { return d.defaultConstructor }

// WithProducer marks the type as requiring an external producer,
// making it not statically creatable.
func (d *DataMeta) WithProducer(p *DataMeta) *DataMeta { d.producer = p; return d }

func (d *DataMeta) Producer() *DataMeta { return d.producer }

// IsStaticallyCreatable reports whether Create can allocate this type
// without an external producer.
func (d *DataMeta) IsStaticallyCreatable() bool { return d.producer == nil }

// WithDescriptorSchema attaches a JSON Schema (as text) validated
// against a Construct's descriptor before Create allocates instances.
func (d *DataMeta) WithDescriptorSchema(schema string) *DataMeta {
	d.descriptorSchema = schema
	return d
}

func (d *DataMeta) DescriptorSchema() string { return d.descriptorSchema }

// CastsToMeta reports identity, base-class, or numeric compatibility.
func (d *DataMeta) CastsToMeta(other container.Meta) bool {
	if other == nil {
		return true
	}
	if d.token == other.Token() {
		return true
	}
	for _, b := range d.bases {
		if b.CastsToMeta(other) {
			return true
		}
	}
	if om, ok := other.(*DataMeta); ok && d.numeric && om.numeric {
		return true
	}
	return false
}

// TraitMeta describes a registered named-container trait type.
type TraitMeta struct {
	token string
}

func NewTraitType(token string) *TraitMeta { return &TraitMeta{token: token} }
func (t *TraitMeta) Token() string         { return t.token }
func (t *TraitMeta) IsAbstract() bool      { return false }
func (t *TraitMeta) CastsToMeta(o container.Meta) bool {
	return o != nil && t.token == o.Token()
}

// ConstantMeta is a named literal value resolved at parse time, e.g.
// `index::many`.
type ConstantMeta struct {
	token string
	value any
	meta  *DataMeta
}

func NewConstant(token string, value any, meta *DataMeta) *ConstantMeta {
	return &ConstantMeta{token: token, value: value, meta: meta}
}

func (c *ConstantMeta) Token() string  { return c.token }
func (c *ConstantMeta) Value() any     { return c.value }
func (c *ConstantMeta) Meta() *DataMeta { return c.meta }

// VerbMeta describes a registered verb type: its canonical and
// reverse tokens (the reverse token sets mass = -1),
// and whether default abilities are implemented for it natively by
// internal/exec (that mapping lives in exec, keyed by pointer identity
// of well-known VerbMeta values exported from this package - see
// builtins.go).
type VerbMeta struct {
	token        string
	reverseToken string
	precedence   int
}

func NewVerbType(token, reverseToken string, precedence int) *VerbMeta {
	return &VerbMeta{token: token, reverseToken: reverseToken, precedence: precedence}
}

func (v *VerbMeta) Token() string        { return v.token }
func (v *VerbMeta) ReverseToken() string { return v.reverseToken }
func (v *VerbMeta) Precedence() int      { return v.precedence }
func (v *VerbMeta) IsAbstract() bool     { return false }
func (v *VerbMeta) CastsToMeta(o container.Meta) bool {
	return o != nil && v.token == o.Token()
}

// Operator is a reflected symbolic operator (e.g. "+", "<") that
// parses into a verb application.
type Operator struct {
	Token        string
	ReverseToken string
	Precedence   int
	Verb         *VerbMeta
}
