package model

import "hash/fnv"

// metaHash hashes a meta by its token identity - metas are pointers
// held for process lifetime by the registry, so token identity is a
// sufficient, stable structural hash for the graph nodes that embed
// them.
func metaHash(m interface{ Token() string }) uint64 {
	if m == nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(m.Token()))
	return h.Sum64()
}
