package temporal

import (
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/registry"
	"github.com/flowlang/flow/internal/snapshot"
)

// detachedCopy deep-copies a graph through the snapshot codec: the
// result shares no pointers with the original, and every missing
// point comes back with empty observer links, ready for re-linking.
func detachedCopy(reg *registry.Registry, m *container.Many) (*container.Many, error) {
	data, err := snapshot.Encode(m)
	if err != nil {
		return nil, err
	}
	return snapshot.Decode(reg, data)
}
