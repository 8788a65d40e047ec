package registry

// Well-known verb metas for the built-in default abilities.
//
// Each reversible pair (Create/Destroy, Catenate/Split, Conjunct/Disjunct,
// Add/Subtract, Multiply/Divide, Exponent/Root, Associate/Disassociate,
// Select/Deselect, Do/Undo) is ONE VerbMeta carrying both tokens: matching
// the reverse token sets mass=-1, and the single default
// ability implementation in internal/exec branches on the sign of mass to
// choose a direction. There is deliberately no separate "Destroy" object -
// the *Destroy exported names below are aliases of the same pointer as
// their canonical counterpart, so exec code can still spell out the
// direction it means at the call site.
var (
	VerbDo        = NewVerbType("do", "undo", 10)
	VerbUndo      = VerbDo
	VerbInterpret = NewVerbType("as", "", 1)

	VerbAssociate    = NewVerbType("associate", "disassociate", 1)
	VerbDisassociate = VerbAssociate

	VerbSelect   = NewVerbType("select", "deselect", 7)
	VerbDeselect = VerbSelect

	VerbCreate  = NewVerbType("create", "destroy", 10)
	VerbDestroy = VerbCreate

	VerbCatenate = NewVerbType("catenate", "split", 4)
	VerbSplit    = VerbCatenate

	VerbConjunct = NewVerbType("conjunct", "disjunct", 2)
	VerbDisjunct = VerbConjunct

	VerbScope = NewVerbType("scope", "", 1)

	VerbAdd      = NewVerbType("+", "-", 4)
	VerbSubtract = VerbAdd
	VerbMultiply = NewVerbType("*", "/", 5)
	VerbDivide   = VerbMultiply
	VerbExponent = NewVerbType("^", "rt", 6)
	VerbRoot     = VerbExponent
	VerbModulate = NewVerbType("%", "", 5)

	VerbCompare      = NewVerbType("<=>", "", 3)
	VerbEqual        = NewVerbType("==", "", 3)
	VerbLower        = NewVerbType("<", "", 3)
	VerbGreater      = NewVerbType(">", "", 3)
	VerbLowerOrEqual = NewVerbType("<=", "", 3)
)

// Well-known data type metas.
var (
	TypeText   = NewDataType("text")
	TypeNumber = NewDataType("number").Numeric()
	TypeBool   = NewDataType("bool")
	TypeBytes  = NewDataType("bytes")
	TypeVerb   = NewDataType("verb") // the parser's own "verb base" meta
)

// Default returns a frozen registry seeded with the built-in data
// types, verbs, and operators.
func Default() *Registry {
	return Seed(New()).Freeze()
}

// Seed registers the built-ins into r and returns it, leaving it
// unfrozen so a caller can keep extending the catalogue.
func Seed(r *Registry) *Registry {
	for _, t := range []*DataMeta{TypeText, TypeNumber, TypeBool, TypeBytes, TypeVerb} {
		r.RegisterData(t)
	}

	for _, v := range []*VerbMeta{
		VerbDo, VerbInterpret, VerbAssociate, VerbSelect, VerbCreate,
		VerbCatenate, VerbConjunct, VerbScope,
		VerbAdd, VerbMultiply, VerbExponent, VerbModulate,
		VerbCompare, VerbEqual, VerbLower, VerbGreater, VerbLowerOrEqual,
	} {
		r.RegisterVerb(v)
	}

	// Reflected arithmetic/comparison operators. "*" and "^" are
	// deliberately NOT also exposed as distinct charge tokens here: the
	// parser's Charge sub-parser claims them first, immediately after a
	// data-type or verb keyword; everywhere else they fall through to
	// these operator entries at their own precedences.
	for _, op := range []*Operator{
		{Token: "+", ReverseToken: "-", Precedence: 4, Verb: VerbAdd},
		{Token: "*", ReverseToken: "/", Precedence: 5, Verb: VerbMultiply},
		{Token: "^", ReverseToken: "rt", Precedence: 6, Verb: VerbExponent},
		{Token: "%", Precedence: 5, Verb: VerbModulate},
		{Token: "<=>", Precedence: 3, Verb: VerbCompare},
		{Token: "==", Precedence: 3, Verb: VerbEqual},
		{Token: "<", Precedence: 3, Verb: VerbLower},
		{Token: ">", Precedence: 3, Verb: VerbGreater},
		{Token: "<=", Precedence: 3, Verb: VerbLowerOrEqual},
	} {
		r.RegisterOperator(op)
	}

	return r
}
