// Package registry is the default, process-wide implementation of
// the reflection registry consumed by the core: a read-only catalogue
// of data types, traits, constants, verbs, and operators,
// together with each type's reflected abilities, bases, and optional
// default constructor / producer requirement.
//
// The core treats this as an external collaborator behind the
// interfaces in internal/model and internal/exec; this package is the
// concrete catalogue a caller wires up (or extends) before parsing or
// executing any Code.
package registry

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/flowlang/flow/internal/container"
)

// Registry is the catalogue of metas and operators. It is mutable
// during setup and should be frozen before being handed to a parser
// or executor; read paths take no lock.
type Registry struct {
	dataByToken     map[string]*DataMeta
	traitByToken    map[string]*TraitMeta
	constantByToken map[string]*ConstantMeta
	verbByToken     map[string]*VerbMeta
	operatorByToken map[string]*Operator
	frozen          bool
}

// New returns an empty registry with none of the built-ins
// registered. Use Default() for a registry seeded with the built-in
// data types and verbs.
func New() *Registry {
	return &Registry{
		dataByToken:     map[string]*DataMeta{},
		traitByToken:    map[string]*TraitMeta{},
		constantByToken: map[string]*ConstantMeta{},
		verbByToken:     map[string]*VerbMeta{},
		operatorByToken: map[string]*Operator{},
	}
}

// Freeze marks the registry read-only. Further Register* calls panic.
func (r *Registry) Freeze() *Registry {
	r.frozen = true
	return r
}

func (r *Registry) checkMutable() {
	if r.frozen {
		panic("registry: cannot register into a frozen registry")
	}
}

// Keyword tokens resolve case-insensitively: registered tokens are
// keyed folded, and every lookup folds its input the same way, so
// `Create`, `create`, and `CREATE` all reach the same verb meta.
func fold(token string) string { return strings.ToLower(token) }

// RegisterData adds (or replaces) a data type meta.
func (r *Registry) RegisterData(m *DataMeta) {
	r.checkMutable()
	r.dataByToken[fold(m.token)] = m
}

// RegisterTrait adds (or replaces) a trait meta.
func (r *Registry) RegisterTrait(m *TraitMeta) {
	r.checkMutable()
	r.traitByToken[fold(m.token)] = m
}

// RegisterConstant adds (or replaces) a named constant.
func (r *Registry) RegisterConstant(m *ConstantMeta) {
	r.checkMutable()
	r.constantByToken[fold(m.token)] = m
}

// RegisterVerb adds (or replaces) a verb meta.
func (r *Registry) RegisterVerb(m *VerbMeta) {
	r.checkMutable()
	r.verbByToken[fold(m.token)] = m
	if m.reverseToken != "" {
		r.verbByToken[fold(m.reverseToken)] = m
	}
}

// RegisterOperator adds (or replaces) a reflected operator.
func (r *Registry) RegisterOperator(op *Operator) {
	r.checkMutable()
	r.operatorByToken[op.Token] = op
	if op.ReverseToken != "" {
		r.operatorByToken[op.ReverseToken] = op
	}
}

// GetMetaData looks up a data type by token.
func (r *Registry) GetMetaData(token string) *DataMeta { return r.dataByToken[fold(token)] }

// GetMetaTrait looks up a trait type by token.
func (r *Registry) GetMetaTrait(token string) *TraitMeta { return r.traitByToken[fold(token)] }

// GetMetaConstant looks up a named constant by token.
func (r *Registry) GetMetaConstant(token string) *ConstantMeta { return r.constantByToken[fold(token)] }

// GetMetaVerb looks up a verb type by token.
func (r *Registry) GetMetaVerb(token string) *VerbMeta { return r.verbByToken[fold(token)] }

// GetOperator looks up a reflected symbolic operator by token.
func (r *Registry) GetOperator(token string) *Operator { return r.operatorByToken[token] }

// Meta is the disambiguated result of DisambiguateMeta: exactly one of
// the fields is non-nil.
type Meta struct {
	Data     *DataMeta
	Trait    *TraitMeta
	Constant *ConstantMeta
	Verb     *VerbMeta
}

// DisambiguateMeta resolves an ambiguous keyword by longest unique
// prefix among all registered tokens across the four catalogues.
// Returns nil if no registered token is a prefix match, or if more
// than one equally-long candidate exists.
func (r *Registry) DisambiguateMeta(token string) *Meta {
	type candidate struct {
		len int
		m   Meta
	}
	token = fold(token)

	// An exact token always beats a prefix match - without this, a short
	// token ("as") would tie with every longer token it prefixes
	// ("associate") and report a false ambiguity.
	if d, ok := r.dataByToken[token]; ok {
		return &Meta{Data: d}
	}
	if t, ok := r.traitByToken[token]; ok {
		return &Meta{Trait: t}
	}
	if c, ok := r.constantByToken[token]; ok {
		return &Meta{Constant: c}
	}
	if v, ok := r.verbByToken[token]; ok {
		return &Meta{Verb: v}
	}

	var best []candidate
	bestLen := -1

	consider := func(t string, m Meta) {
		if !strings.HasPrefix(token, t) && !strings.HasPrefix(t, token) {
			return
		}
		matchLen := commonPrefixLen(token, t)
		if matchLen == 0 {
			return
		}
		if matchLen > bestLen {
			bestLen = matchLen
			best = []candidate{{matchLen, m}}
		} else if matchLen == bestLen {
			best = append(best, candidate{matchLen, m})
		}
	}

	for t, d := range r.dataByToken {
		consider(t, Meta{Data: d})
	}
	for t, tr := range r.traitByToken {
		consider(t, Meta{Trait: tr})
	}
	for t, c := range r.constantByToken {
		consider(t, Meta{Constant: c})
	}
	for t, v := range r.verbByToken {
		consider(t, Meta{Verb: v})
	}

	if len(best) != 1 {
		return nil
	}
	return &best[0].m
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// SuggestToken returns the closest registered token to an unknown one,
// across all four catalogues plus operators, for use in parse error
// messages. Empty if the registry has no tokens or nothing is close.
func (r *Registry) SuggestToken(unknown string) string {
	all := make([]string, 0, len(r.dataByToken)+len(r.traitByToken)+len(r.constantByToken)+len(r.verbByToken)+len(r.operatorByToken))
	for t := range r.dataByToken {
		all = append(all, t)
	}
	for t := range r.traitByToken {
		all = append(all, t)
	}
	for t := range r.constantByToken {
		all = append(all, t)
	}
	for t := range r.verbByToken {
		all = append(all, t)
	}
	for t := range r.operatorByToken {
		all = append(all, t)
	}
	sort.Strings(all)
	ranked := fuzzy.RankFindNormalizedFold(unknown, all)
	if len(ranked) == 0 {
		// Not a subsequence of any token (a transposed or mistyped
		// letter): fall back to the nearest token by edit distance,
		// within half the unknown token's length.
		folded := strings.ToLower(unknown)
		best, bestDist := "", len(folded)/2+1
		for _, t := range all {
			if d := fuzzy.LevenshteinDistance(folded, t); d < bestDist {
				best, bestDist = t, d
			}
		}
		return best
	}
	sort.Sort(ranked)
	return ranked[0].Target
}

// OperatorTokens returns every registered operator token (canonical and
// reverse), longest first, so a caller doing greedy prefix matching at a
// cursor position (the parser) never matches a short token ("<") when a
// longer one ("<=", "<=>") is actually present.
func (r *Registry) OperatorTokens() []string {
	seen := map[string]bool{}
	var out []string
	for t := range r.operatorByToken {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

var _ container.Meta = (*DataMeta)(nil)
